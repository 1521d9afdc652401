package flowsvc

import (
	"context"
	"errors"
	"testing"

	cfgpkg "github.com/brandon-schabel/Promptliano-sub009/internal/config"
	"github.com/brandon-schabel/Promptliano-sub009/internal/flow"
	"github.com/brandon-schabel/Promptliano-sub009/internal/runtime"
	pebblestore "github.com/brandon-schabel/Promptliano-sub009/internal/storage/pebble"
	logpkg "github.com/brandon-schabel/Promptliano-sub009/pkg/log"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	rt, err := runtime.Open(runtime.Options{
		DataDir: t.TempDir(),
		Fsync:   pebblestore.FsyncModeNever,
		Config:  cfgpkg.Default(),
		Logger:  logpkg.NewLogger(logpkg.WithLevel(logpkg.ErrorLevel)),
	})
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	return NewWithLogger(rt, logpkg.NewLogger(logpkg.WithLevel(logpkg.ErrorLevel)))
}

func TestResolveProject(t *testing.T) {
	s := newTestService(t)

	meta, err := s.EnsureProject("alpha")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	byName, err := s.ResolveProject("alpha")
	if err != nil || byName.ID != meta.ID {
		t.Fatalf("by name: %+v, %v", byName, err)
	}
	byID, err := s.ResolveProject(meta.ID)
	if err != nil || byID.Name != "alpha" {
		t.Fatalf("by id: %+v, %v", byID, err)
	}
	if _, err := s.ResolveProject("nope"); !errors.Is(err, flow.ErrNotFound) {
		t.Fatalf("unknown project: err = %v, want ErrNotFound", err)
	}
}

func TestListMembersFilter(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.EnsureProject("alpha"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	q, err := s.CreateQueue(ctx, "alpha", flow.QueueSpec{Name: "main", MaxConcurrency: 2})
	if err != nil {
		t.Fatalf("create queue: %v", err)
	}

	var refs []flow.Ref
	for i, prio := range []int{1, 5, 9} {
		tk, err := s.CreateTicket(ctx, "alpha", "t", "")
		if err != nil {
			t.Fatalf("ticket %d: %v", i, err)
		}
		r := flow.TicketRef(tk.ID)
		refs = append(refs, r)
		if _, err := s.Enqueue(ctx, q.ID, r, flow.EnqueueOptions{Priority: prio}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	if _, err := s.ClaimNext(ctx, q.ID, "agent-1"); err != nil {
		t.Fatalf("claim: %v", err)
	}

	all, err := s.ListMembers(q.ID, "")
	if err != nil || len(all) != 3 {
		t.Fatalf("unfiltered: %d members, err=%v", len(all), err)
	}
	queued, err := s.ListMembers(q.ID, `status == "queued" && priority > 3`)
	if err != nil {
		t.Fatalf("filtered: %v", err)
	}
	if len(queued) != 2 {
		t.Fatalf("filtered: %d members, want 2", len(queued))
	}
	for _, m := range queued {
		if m.Status != flow.StatusQueued || m.Priority <= 3 {
			t.Fatalf("filter let through %+v", m)
		}
	}
	claimed, err := s.ListMembers(q.ID, `agent_id == "agent-1"`)
	if err != nil || len(claimed) != 1 || claimed[0].Ref() != refs[0] {
		t.Fatalf("agent filter: %+v, %v", claimed, err)
	}

	if _, err := s.ListMembers(q.ID, "not a cel ((("); err == nil {
		t.Fatal("bad filter accepted")
	}
}

func TestDeleteTicketCascades(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.EnsureProject("alpha"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	q, err := s.CreateQueue(ctx, "alpha", flow.QueueSpec{Name: "main"})
	if err != nil {
		t.Fatalf("create queue: %v", err)
	}
	tk, err := s.CreateTicket(ctx, "alpha", "parent", "")
	if err != nil {
		t.Fatalf("ticket: %v", err)
	}
	task, err := s.CreateTask(ctx, tk.ID, "child")
	if err != nil {
		t.Fatalf("task: %v", err)
	}
	if _, err := s.Enqueue(ctx, q.ID, flow.TicketRef(tk.ID), flow.EnqueueOptions{}); err != nil {
		t.Fatalf("enqueue ticket: %v", err)
	}
	if _, err := s.Enqueue(ctx, q.ID, flow.TaskRef(task.ID), flow.EnqueueOptions{}); err != nil {
		t.Fatalf("enqueue task: %v", err)
	}

	if err := s.DeleteTicket(ctx, tk.ID); err != nil {
		t.Fatalf("delete ticket: %v", err)
	}
	if _, err := s.GetTicket(tk.ID); err == nil {
		t.Fatal("ticket still readable")
	}
	if _, err := s.GetTask(task.ID); err == nil {
		t.Fatal("task still readable")
	}
	stats, err := s.QueueStats(q.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Queued != 0 || stats.InProgress != 0 {
		t.Fatalf("queue not emptied: %+v", stats)
	}
}
