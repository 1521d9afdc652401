package flowsvc

import (
	"context"
	"fmt"

	"github.com/brandon-schabel/Promptliano-sub009/internal/flow"
	"github.com/brandon-schabel/Promptliano-sub009/internal/flowevent"
	"github.com/brandon-schabel/Promptliano-sub009/internal/items"
	"github.com/brandon-schabel/Promptliano-sub009/internal/project"
	"github.com/brandon-schabel/Promptliano-sub009/internal/runtime"
	logpkg "github.com/brandon-schabel/Promptliano-sub009/pkg/log"
)

// Service exposes Flow operations to the transport layer.
type Service struct {
	rt     *runtime.Runtime
	logger logpkg.Logger
}

// New creates a Service with a default logger.
func New(rt *runtime.Runtime) *Service {
	return NewWithLogger(rt, nil)
}

// NewWithLogger creates a Service with a custom logger.
func NewWithLogger(rt *runtime.Runtime, logger logpkg.Logger) *Service {
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	}
	return &Service{rt: rt, logger: logger.With(logpkg.Component("flowsvc"))}
}

// ResolveProject accepts a project name or ID and returns its metadata,
// falling back to the configured default project when empty.
func (s *Service) ResolveProject(nameOrID string) (project.Meta, error) {
	if nameOrID == "" {
		nameOrID = s.rt.Config().DefaultProjectName
	}
	reg := s.rt.Projects()
	if m, ok, err := reg.Get(nameOrID); err != nil {
		return project.Meta{}, err
	} else if ok {
		return m, nil
	}
	if m, ok, err := reg.GetByID(nameOrID); err != nil {
		return project.Meta{}, err
	} else if ok {
		return m, nil
	}
	return project.Meta{}, fmt.Errorf("%w: project %s", flow.ErrNotFound, nameOrID)
}

// EnsureProject idempotently creates a project by name.
func (s *Service) EnsureProject(name string) (project.Meta, error) {
	if name == "" {
		name = s.rt.Config().DefaultProjectName
	}
	return s.rt.Projects().Ensure(name)
}

// ListProjects returns all projects.
func (s *Service) ListProjects() ([]project.Meta, error) {
	return s.rt.Projects().List()
}

// CreateQueue creates a queue in a project addressed by name or ID.
func (s *Service) CreateQueue(ctx context.Context, projectRef string, spec flow.QueueSpec) (flow.Queue, error) {
	meta, err := s.ResolveProject(projectRef)
	if err != nil {
		return flow.Queue{}, err
	}
	return s.rt.Engine().CreateQueue(ctx, meta.ID, spec)
}

// GetQueue returns a queue by ID.
func (s *Service) GetQueue(queueID string) (flow.Queue, error) {
	return s.rt.Engine().GetQueue(queueID)
}

// ListQueues returns a project's queues.
func (s *Service) ListQueues(projectRef string) ([]flow.Queue, error) {
	meta, err := s.ResolveProject(projectRef)
	if err != nil {
		return nil, err
	}
	return s.rt.Engine().ListQueues(meta.ID)
}

// UpdateQueue patches a queue.
func (s *Service) UpdateQueue(ctx context.Context, queueID string, patch flow.QueuePatch) (flow.Queue, error) {
	return s.rt.Engine().UpdateQueue(ctx, queueID, patch)
}

// DeleteQueue removes an empty queue.
func (s *Service) DeleteQueue(ctx context.Context, queueID string) error {
	return s.rt.Engine().DeleteQueue(ctx, queueID)
}

// Enqueue adds a work item to a queue.
func (s *Service) Enqueue(ctx context.Context, queueID string, r flow.Ref, opts flow.EnqueueOptions) (*flow.Membership, error) {
	return s.rt.Engine().Enqueue(ctx, queueID, r, opts)
}

// Dequeue removes a work item from its queue, optionally cascading to a
// ticket's tasks.
func (s *Service) Dequeue(ctx context.Context, r flow.Ref, includeChildren bool) (int, error) {
	return s.rt.Engine().Dequeue(ctx, r, includeChildren)
}

// Move relocates an item to another queue, or to unqueued.
func (s *Service) Move(ctx context.Context, r flow.Ref, targetQueueID string) (*flow.Membership, error) {
	return s.rt.Engine().Move(ctx, r, targetQueueID)
}

// BulkMove relocates a set of items, all-or-nothing.
func (s *Service) BulkMove(ctx context.Context, refs []flow.Ref, targetQueueID string) ([]*flow.Membership, error) {
	return s.rt.Engine().BulkMove(ctx, refs, targetQueueID)
}

// Reorder persists a caller-supplied ordering of a queue's queued members.
func (s *Service) Reorder(ctx context.Context, queueID string, refs []flow.Ref) ([]flow.Membership, error) {
	return s.rt.Engine().Reorder(ctx, queueID, refs)
}

// ClaimNext claims the next eligible item for an agent.
func (s *Service) ClaimNext(ctx context.Context, queueID, agentID string) (*flow.Membership, error) {
	return s.rt.Engine().ClaimNext(ctx, queueID, agentID)
}

// ClaimSpecific claims a caller-chosen item.
func (s *Service) ClaimSpecific(ctx context.Context, r flow.Ref, agentID string) (*flow.Membership, error) {
	return s.rt.Engine().ClaimSpecific(ctx, r, agentID)
}

// Complete marks an in-progress item done.
func (s *Service) Complete(ctx context.Context, r flow.Ref, result string) (*flow.Membership, error) {
	return s.rt.Engine().Complete(ctx, r, result)
}

// Fail marks an in-progress item failed.
func (s *Service) Fail(ctx context.Context, r flow.Ref, errorMessage string) (*flow.Membership, error) {
	return s.rt.Engine().Fail(ctx, r, errorMessage)
}

// RetryAdvice computes retry advice for a failed item.
func (s *Service) RetryAdvice(r flow.Ref) (flow.RetryAdvice, error) {
	return s.rt.Engine().RetryAdvice(r)
}

// Membership returns an item's live membership (nil when unqueued) and its
// archived history.
func (s *Service) Membership(r flow.Ref) (*flow.Membership, []flow.Membership, error) {
	live, err := s.rt.Engine().GetMembership(r)
	if err != nil {
		return nil, nil, err
	}
	hist, err := s.rt.Engine().History(r)
	if err != nil {
		return nil, nil, err
	}
	return live, hist, nil
}

// ListMembers returns a queue's members in positional order, optionally
// filtered by a CEL expression over membership fields.
func (s *Service) ListMembers(queueID, filterExpr string) ([]flow.Membership, error) {
	filter, err := newCELFilter(filterExpr)
	if err != nil {
		return nil, fmt.Errorf("flowsvc: bad filter: %w", err)
	}
	members, err := s.rt.Engine().ListMembers(queueID)
	if err != nil {
		return nil, err
	}
	if !filter.enabled {
		return members, nil
	}
	out := members[:0:0]
	for _, m := range members {
		if filter.Eval(m) {
			out = append(out, m)
		}
	}
	return out, nil
}

// ListUnqueued returns refs of a project's items with no live membership.
func (s *Service) ListUnqueued(projectRef string) ([]flow.Ref, error) {
	meta, err := s.ResolveProject(projectRef)
	if err != nil {
		return nil, err
	}
	return s.rt.Engine().ListUnqueued(meta.ID)
}

// QueueStats returns one queue's rollup.
func (s *Service) QueueStats(queueID string) (flow.QueueStats, error) {
	return s.rt.Engine().QueueStats(queueID)
}

// ProjectStats aggregates stats across a project's queues.
func (s *Service) ProjectStats(projectRef string) (flow.ProjectStats, error) {
	meta, err := s.ResolveProject(projectRef)
	if err != nil {
		return flow.ProjectStats{}, err
	}
	return s.rt.Engine().ProjectStats(meta.ID)
}

// Events returns a project's recent audit events, newest first.
func (s *Service) Events(projectRef string, limit int) ([]flowevent.Record, error) {
	meta, err := s.ResolveProject(projectRef)
	if err != nil {
		return nil, err
	}
	return s.rt.Events().List(meta.ID, limit)
}

// TrimEvents deletes a project's oldest audit events beyond keepLast and
// returns how many were removed.
func (s *Service) TrimEvents(ctx context.Context, projectRef string, keepLast int) (int, error) {
	meta, err := s.ResolveProject(projectRef)
	if err != nil {
		return 0, err
	}
	return s.rt.Events().Trim(ctx, meta.ID, keepLast)
}

// CreateTicket creates a ticket in a project addressed by name or ID.
func (s *Service) CreateTicket(ctx context.Context, projectRef, title, overview string) (items.Ticket, error) {
	meta, err := s.ResolveProject(projectRef)
	if err != nil {
		return items.Ticket{}, err
	}
	return s.rt.Items().CreateTicket(ctx, meta.ID, title, overview)
}

// CreateTask creates a task under a ticket.
func (s *Service) CreateTask(ctx context.Context, ticketID, title string) (items.Task, error) {
	return s.rt.Items().CreateTask(ctx, ticketID, title)
}

// SetTaskDone flips a task's done flag.
func (s *Service) SetTaskDone(ctx context.Context, taskID string, done bool) (items.Task, error) {
	return s.rt.Items().SetTaskDone(ctx, taskID, done)
}

// GetTicket loads a ticket.
func (s *Service) GetTicket(ticketID string) (items.Ticket, error) {
	return s.rt.Items().GetTicket(ticketID)
}

// GetTask loads a task.
func (s *Service) GetTask(taskID string) (items.Task, error) {
	return s.rt.Items().GetTask(taskID)
}

// DeleteTicket dequeues a ticket and its tasks, then deletes the records.
func (s *Service) DeleteTicket(ctx context.Context, ticketID string) error {
	if _, err := s.rt.Engine().Dequeue(ctx, flow.TicketRef(ticketID), true); err != nil {
		return err
	}
	return s.rt.Items().DeleteTicket(ctx, ticketID)
}

// DeleteTask dequeues a task, then deletes the record.
func (s *Service) DeleteTask(ctx context.Context, taskID string) error {
	if _, err := s.rt.Engine().Dequeue(ctx, flow.TaskRef(taskID), false); err != nil {
		return err
	}
	return s.rt.Items().DeleteTask(ctx, taskID)
}
