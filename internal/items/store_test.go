package items

import (
	"context"
	"errors"
	"testing"

	pebblestore "github.com/brandon-schabel/Promptliano-sub009/internal/storage/pebble"
	"github.com/brandon-schabel/Promptliano-sub009/pkg/id"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir: t.TempDir(),
		Fsync:   pebblestore.FsyncModeNever,
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db, id.NewGenerator())
}

func TestTicketTaskLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ticket, err := s.CreateTicket(ctx, "p1", "build the thing", "details")
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	if ticket.ID == "" || ticket.ProjectID != "p1" {
		t.Fatalf("ticket = %+v", ticket)
	}

	task1, err := s.CreateTask(ctx, ticket.ID, "step one")
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	task2, err := s.CreateTask(ctx, ticket.ID, "step two")
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task1.ProjectID != "p1" || task1.TicketID != ticket.ID {
		t.Fatalf("task inherits parent: %+v", task1)
	}

	ids, err := s.TasksOf(ticket.ID)
	if err != nil {
		t.Fatalf("tasks of: %v", err)
	}
	if len(ids) != 2 || ids[0] != task1.ID || ids[1] != task2.ID {
		t.Fatalf("tasks of = %v, want [%s %s]", ids, task1.ID, task2.ID)
	}

	done, err := s.SetTaskDone(ctx, task1.ID, true)
	if err != nil || !done.Done {
		t.Fatalf("set done: %+v, %v", done, err)
	}
	got, err := s.GetTask(task1.ID)
	if err != nil || !got.Done {
		t.Fatalf("get after done: %+v, %v", got, err)
	}
}

func TestCreateTaskRequiresTicket(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateTask(context.Background(), "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, err := s.CreateTicket(context.Background(), "p1", "", ""); err == nil {
		t.Fatalf("empty title accepted")
	}
}

func TestDeleteTicketRemovesTasks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ticket, err := s.CreateTicket(ctx, "p1", "parent", "")
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	task, err := s.CreateTask(ctx, ticket.ID, "child")
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	if err := s.DeleteTicket(ctx, ticket.ID); err != nil {
		t.Fatalf("delete ticket: %v", err)
	}
	if _, err := s.GetTicket(ticket.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ticket survived delete: %v", err)
	}
	if _, err := s.GetTask(task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("task survived ticket delete: %v", err)
	}

	tickets, err := s.ProjectTickets("p1")
	if err != nil || len(tickets) != 0 {
		t.Fatalf("project tickets = %v, %v", tickets, err)
	}
	tasks, err := s.ProjectTasks("p1")
	if err != nil || len(tasks) != 0 {
		t.Fatalf("project tasks = %v, %v", tasks, err)
	}
}

func TestProjectIndexes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	t1, _ := s.CreateTicket(ctx, "p1", "a", "")
	t2, _ := s.CreateTicket(ctx, "p1", "b", "")
	other, _ := s.CreateTicket(ctx, "p2", "c", "")

	tickets, err := s.ProjectTickets("p1")
	if err != nil {
		t.Fatalf("project tickets: %v", err)
	}
	if len(tickets) != 2 {
		t.Fatalf("p1 tickets = %v", tickets)
	}
	for _, tid := range tickets {
		if tid == other.ID {
			t.Fatalf("p2 ticket leaked into p1 index")
		}
	}
	_ = t1
	_ = t2
}
