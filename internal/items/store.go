package items

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pebblestore "github.com/brandon-schabel/Promptliano-sub009/internal/storage/pebble"
	"github.com/brandon-schabel/Promptliano-sub009/pkg/id"
)

// ErrNotFound is returned when a ticket or task does not exist.
var ErrNotFound = errors.New("items: not found")

// Ticket is a parent work item.
type Ticket struct {
	ID          string `json:"id"`
	ProjectID   string `json:"projectId"`
	Title       string `json:"title"`
	Overview    string `json:"overview,omitempty"`
	CreatedAtMs int64  `json:"createdAtMs"`
}

// Task is a child work item; it always belongs to a ticket.
type Task struct {
	ID          string `json:"id"`
	TicketID    string `json:"ticketId"`
	ProjectID   string `json:"projectId"`
	Title       string `json:"title"`
	Done        bool   `json:"done"`
	CreatedAtMs int64  `json:"createdAtMs"`
}

// Key layout:
//
//	ticket/{ticketID}                 -> Ticket JSON
//	task/{taskID}                     -> Task JSON
//	ticket_tasks/{ticketID}/{taskID}  -> nil (children index)
//	pj/{projectID}/ticket/{ticketID}  -> nil (project index)
//	pj/{projectID}/task/{taskID}      -> nil (project index)
func ticketKey(ticketID string) []byte { return []byte("ticket/" + ticketID) }
func taskKey(taskID string) []byte     { return []byte("task/" + taskID) }

func childKey(ticketID, taskID string) []byte {
	return []byte("ticket_tasks/" + ticketID + "/" + taskID)
}

func childPrefix(ticketID string) []byte {
	return []byte("ticket_tasks/" + ticketID + "/")
}

func projectTicketKey(projectID, ticketID string) []byte {
	return []byte("pj/" + projectID + "/ticket/" + ticketID)
}

func projectTaskKey(projectID, taskID string) []byte {
	return []byte("pj/" + projectID + "/task/" + taskID)
}

// Store persists tickets and tasks.
type Store struct {
	db  *pebblestore.DB
	gen *id.Generator
}

// NewStore creates a Store.
func NewStore(db *pebblestore.DB, gen *id.Generator) *Store {
	return &Store{db: db, gen: gen}
}

// CreateTicket creates a ticket in the given project.
func (s *Store) CreateTicket(ctx context.Context, projectID, title, overview string) (Ticket, error) {
	if title == "" {
		return Ticket{}, fmt.Errorf("items: ticket title required")
	}
	t := Ticket{
		ID:          s.gen.Next().String(),
		ProjectID:   projectID,
		Title:       title,
		Overview:    overview,
		CreatedAtMs: time.Now().UnixMilli(),
	}
	val, err := json.Marshal(t)
	if err != nil {
		return Ticket{}, err
	}
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(ticketKey(t.ID), val, nil); err != nil {
		return Ticket{}, err
	}
	if err := b.Set(projectTicketKey(projectID, t.ID), nil, nil); err != nil {
		return Ticket{}, err
	}
	if err := s.db.CommitBatch(ctx, b); err != nil {
		return Ticket{}, err
	}
	return t, nil
}

// CreateTask creates a task under an existing ticket.
func (s *Store) CreateTask(ctx context.Context, ticketID, title string) (Task, error) {
	if title == "" {
		return Task{}, fmt.Errorf("items: task title required")
	}
	parent, err := s.GetTicket(ticketID)
	if err != nil {
		return Task{}, err
	}
	t := Task{
		ID:          s.gen.Next().String(),
		TicketID:    ticketID,
		ProjectID:   parent.ProjectID,
		Title:       title,
		CreatedAtMs: time.Now().UnixMilli(),
	}
	val, err := json.Marshal(t)
	if err != nil {
		return Task{}, err
	}
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(taskKey(t.ID), val, nil); err != nil {
		return Task{}, err
	}
	if err := b.Set(childKey(ticketID, t.ID), nil, nil); err != nil {
		return Task{}, err
	}
	if err := b.Set(projectTaskKey(parent.ProjectID, t.ID), nil, nil); err != nil {
		return Task{}, err
	}
	if err := s.db.CommitBatch(ctx, b); err != nil {
		return Task{}, err
	}
	return t, nil
}

// GetTicket loads a ticket by ID.
func (s *Store) GetTicket(ticketID string) (Ticket, error) {
	b, err := s.db.Get(ticketKey(ticketID))
	if err != nil {
		if pebblestore.IsNotFound(err) {
			return Ticket{}, fmt.Errorf("%w: ticket %s", ErrNotFound, ticketID)
		}
		return Ticket{}, err
	}
	var t Ticket
	if err := json.Unmarshal(b, &t); err != nil {
		return Ticket{}, err
	}
	return t, nil
}

// GetTask loads a task by ID.
func (s *Store) GetTask(taskID string) (Task, error) {
	b, err := s.db.Get(taskKey(taskID))
	if err != nil {
		if pebblestore.IsNotFound(err) {
			return Task{}, fmt.Errorf("%w: task %s", ErrNotFound, taskID)
		}
		return Task{}, err
	}
	var t Task
	if err := json.Unmarshal(b, &t); err != nil {
		return Task{}, err
	}
	return t, nil
}

// SetTaskDone flips a task's done flag.
func (s *Store) SetTaskDone(ctx context.Context, taskID string, done bool) (Task, error) {
	t, err := s.GetTask(taskID)
	if err != nil {
		return Task{}, err
	}
	t.Done = done
	val, err := json.Marshal(t)
	if err != nil {
		return Task{}, err
	}
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(taskKey(t.ID), val, nil); err != nil {
		return Task{}, err
	}
	if err := s.db.CommitBatch(ctx, b); err != nil {
		return Task{}, err
	}
	return t, nil
}

// TasksOf returns the IDs of all tasks under a ticket, in creation order.
func (s *Store) TasksOf(ticketID string) ([]string, error) {
	prefix := childPrefix(ticketID)
	var out []string
	err := s.db.ScanPrefix(prefix, func(key, _ []byte) (bool, error) {
		out = append(out, string(key[len(prefix):]))
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteTask removes a task and its indexes.
func (s *Store) DeleteTask(ctx context.Context, taskID string) error {
	t, err := s.GetTask(taskID)
	if err != nil {
		return err
	}
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Delete(taskKey(taskID), nil); err != nil {
		return err
	}
	if err := b.Delete(childKey(t.TicketID, taskID), nil); err != nil {
		return err
	}
	if err := b.Delete(projectTaskKey(t.ProjectID, taskID), nil); err != nil {
		return err
	}
	return s.db.CommitBatch(ctx, b)
}

// DeleteTicket removes a ticket and all of its tasks.
func (s *Store) DeleteTicket(ctx context.Context, ticketID string) error {
	t, err := s.GetTicket(ticketID)
	if err != nil {
		return err
	}
	taskIDs, err := s.TasksOf(ticketID)
	if err != nil {
		return err
	}
	b := s.db.NewBatch()
	defer b.Close()
	for _, taskID := range taskIDs {
		if err := b.Delete(taskKey(taskID), nil); err != nil {
			return err
		}
		if err := b.Delete(childKey(ticketID, taskID), nil); err != nil {
			return err
		}
		if err := b.Delete(projectTaskKey(t.ProjectID, taskID), nil); err != nil {
			return err
		}
	}
	if err := b.Delete(ticketKey(ticketID), nil); err != nil {
		return err
	}
	if err := b.Delete(projectTicketKey(t.ProjectID, ticketID), nil); err != nil {
		return err
	}
	return s.db.CommitBatch(ctx, b)
}

// ProjectTickets returns the IDs of all tickets in a project.
func (s *Store) ProjectTickets(projectID string) ([]string, error) {
	prefix := []byte("pj/" + projectID + "/ticket/")
	var out []string
	err := s.db.ScanPrefix(prefix, func(key, _ []byte) (bool, error) {
		out = append(out, string(key[len(prefix):]))
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ProjectTasks returns the IDs of all tasks in a project.
func (s *Store) ProjectTasks(projectID string) ([]string, error) {
	prefix := []byte("pj/" + projectID + "/task/")
	var out []string
	err := s.db.ScanPrefix(prefix, func(key, _ []byte) (bool, error) {
		out = append(out, string(key[len(prefix):]))
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
