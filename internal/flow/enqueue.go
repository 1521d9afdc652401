package flow

import (
	"context"
	"fmt"

	"github.com/brandon-schabel/Promptliano-sub009/internal/flowevent"
	"github.com/brandon-schabel/Promptliano-sub009/pkg/log"
)

// Enqueue appends a work item to the tail of a queue and returns the new
// membership. Priority is a claim-time tie-break hint only; it never
// repositions queued items.
func (e *Engine) Enqueue(ctx context.Context, queueID string, r Ref, opts EnqueueOptions) (*Membership, error) {
	if !r.Type.Valid() || r.ID == "" {
		return nil, fmt.Errorf("%w: bad ref %s", ErrNotFound, r)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	projectID, err := e.resolveRef(r)
	if err != nil {
		return nil, err
	}
	q, err := e.getQueue(queueID)
	if err != nil {
		return nil, err
	}
	if q.ProjectID != projectID {
		return nil, fmt.Errorf("%w: %s not in project %s", ErrNotFound, r, q.ProjectID)
	}
	if !q.IsActive {
		return nil, fmt.Errorf("%w: queue %s", ErrQueueInactive, queueID)
	}

	t := e.newTxn()
	defer t.close()

	if existing, err := t.member(r); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, fmt.Errorf("%w: %s in queue %s", ErrAlreadyQueued, r, existing.QueueID)
	}

	tokens, err := t.order(queueID)
	if err != nil {
		return nil, err
	}
	m := &Membership{
		ItemType:              r.Type,
		ItemID:                r.ID,
		ProjectID:             projectID,
		QueueID:               queueID,
		Position:              len(tokens),
		Priority:              opts.Priority,
		Status:                StatusQueued,
		QueuedAtMs:            e.nowMs(),
		EstimatedProcessingMs: opts.EstimatedProcessingMs,
	}
	t.setOrder(queueID, append(tokens, r.token()))
	t.setMember(m)
	if err := t.event(flowevent.Record{
		ProjectID: projectID,
		Type:      flowevent.TypeEnqueued,
		ItemType:  string(r.Type),
		ItemID:    r.ID,
		QueueID:   queueID,
	}); err != nil {
		return nil, err
	}
	if err := t.commit(ctx); err != nil {
		return nil, err
	}
	e.log.Debug("enqueued", log.Str("ref", r.String()), log.Str("queue", queueID), log.Int("position", m.Position))
	return m, nil
}

// Dequeue removes a work item from its queue, returning how many memberships
// were removed. An unqueued item is a no-op. When r is a ticket and
// includeChildren is set, every queued task of the ticket is removed in the
// same operation. Dequeuing an in-progress item is permitted but cooperative:
// the holding agent is not interrupted, and a forced_interrupt record is
// written so it can discover the change.
func (e *Engine) Dequeue(ctx context.Context, r Ref, includeChildren bool) (int, error) {
	if !r.Type.Valid() || r.ID == "" {
		return 0, fmt.Errorf("%w: bad ref %s", ErrNotFound, r)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	projectID, err := e.resolveRef(r)
	if err != nil {
		return 0, err
	}

	refs := []Ref{r}
	if r.Type == ItemTicket && includeChildren {
		taskIDs, err := e.items.TasksOf(r.ID)
		if err != nil {
			return 0, err
		}
		for _, taskID := range taskIDs {
			refs = append(refs, TaskRef(taskID))
		}
	}

	t := e.newTxn()
	defer t.close()

	removed := 0
	for _, ref := range refs {
		n, err := t.dropMember(ref)
		if err != nil {
			return 0, err
		}
		removed += n
	}
	if removed == 0 {
		return 0, nil
	}
	if err := t.commit(ctx); err != nil {
		return 0, err
	}
	e.log.Debug("dequeued", log.Str("ref", r.String()), log.Str("project", projectID), log.Int("removed", removed))
	return removed, nil
}

// dropMember stages removal of one item's live membership: the order entry
// goes away, the row is archived as cancelled, and audit events are written.
// Returns 1 when a membership was removed, 0 when the item was unqueued.
func (t *txn) dropMember(r Ref) (int, error) {
	m, err := t.member(r)
	if err != nil {
		return 0, err
	}
	if m == nil {
		return 0, nil
	}

	tokens, err := t.order(m.QueueID)
	if err != nil {
		return 0, err
	}
	tok := r.token()
	kept := tokens[:0:0]
	for _, s := range tokens {
		if s != tok {
			kept = append(kept, s)
		}
	}
	t.setOrder(m.QueueID, kept)

	now := t.e.nowMs()
	forced := m.Status == StatusInProgress
	if forced {
		m.ActualProcessingMs = now - m.StartedAtMs
		if err := t.event(flowevent.Record{
			ProjectID: m.ProjectID,
			Type:      flowevent.TypeForcedInterrupt,
			ItemType:  string(m.ItemType),
			ItemID:    m.ItemID,
			QueueID:   m.QueueID,
			AgentID:   m.AgentID,
		}); err != nil {
			return 0, err
		}
	}
	m.Status = StatusCancelled
	m.CompletedAtMs = now
	if err := t.archive(m); err != nil {
		return 0, err
	}
	t.removeMember(r)
	if err := t.event(flowevent.Record{
		ProjectID: m.ProjectID,
		Type:      flowevent.TypeDequeued,
		ItemType:  string(m.ItemType),
		ItemID:    m.ItemID,
		QueueID:   m.QueueID,
	}); err != nil {
		return 0, err
	}
	return 1, nil
}
