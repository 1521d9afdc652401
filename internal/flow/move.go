package flow

import (
	"context"
	"fmt"

	"github.com/brandon-schabel/Promptliano-sub009/internal/flowevent"
	"github.com/brandon-schabel/Promptliano-sub009/pkg/log"
)

// stageEnqueue appends a fresh queued membership at the tail of queueID.
func (t *txn) stageEnqueue(r Ref, projectID, queueID string, priority int, estimate int64) (*Membership, error) {
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
		Priority:              priority,
		Status:                StatusQueued,
		QueuedAtMs:            t.e.nowMs(),
		EstimatedProcessingMs: estimate,
	}
	t.setOrder(queueID, append(tokens, r.token()))
	t.setMember(m)
	return m, nil
}

// checkMoveTarget validates the destination queue for a move. Empty target
// means "to unqueued" and is always valid.
func (e *Engine) checkMoveTarget(targetQueueID, projectID string) (*Queue, error) {
	if targetQueueID == "" {
		return nil, nil
	}
	q, err := e.getQueue(targetQueueID)
	if err != nil {
		return nil, err
	}
	if q.ProjectID != projectID {
		return nil, fmt.Errorf("%w: queue %s not in project %s", ErrNotFound, targetQueueID, projectID)
	}
	if !q.IsActive {
		return nil, fmt.Errorf("%w: queue %s", ErrQueueInactive, targetQueueID)
	}
	return &q, nil
}

// stageMove removes the item from its current queue (if any) and enqueues it
// into the target. Priority and estimate carry over; the new membership is a
// fresh Queued row. Empty target leaves the item unqueued and returns nil.
func (t *txn) stageMove(r Ref, projectID, targetQueueID string) (*Membership, error) {
	prev, err := t.member(r)
	if err != nil {
		return nil, err
	}
	priority, estimate := 0, int64(0)
	if prev != nil {
		priority, estimate = prev.Priority, prev.EstimatedProcessingMs
		if _, err := t.dropMember(r); err != nil {
			return nil, err
		}
	}
	if targetQueueID == "" {
		return nil, nil
	}
	m, err := t.stageEnqueue(r, projectID, targetQueueID, priority, estimate)
	if err != nil {
		return nil, err
	}
	if err := t.event(flowevent.Record{
		ProjectID: projectID,
		Type:      flowevent.TypeMoved,
		ItemType:  string(r.Type),
		ItemID:    r.ID,
		QueueID:   targetQueueID,
	}); err != nil {
		return nil, err
	}
	return m, nil
}

// Move relocates a work item to another queue, or to unqueued when
// targetQueueID is empty. Source and destination queues are renumbered in
// the same commit.
func (e *Engine) Move(ctx context.Context, r Ref, targetQueueID string) (*Membership, error) {
	if !r.Type.Valid() || r.ID == "" {
		return nil, fmt.Errorf("%w: bad ref %s", ErrNotFound, r)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	projectID, err := e.resolveRef(r)
	if err != nil {
		return nil, err
	}
	if _, err := e.checkMoveTarget(targetQueueID, projectID); err != nil {
		return nil, err
	}

	t := e.newTxn()
	defer t.close()

	m, err := t.stageMove(r, projectID, targetQueueID)
	if err != nil {
		return nil, err
	}
	if err := t.commit(ctx); err != nil {
		return nil, err
	}
	e.log.Debug("moved", log.Str("ref", r.String()), log.Str("target", targetQueueID))
	return m, nil
}

// BulkMove applies Move to a set of refs as one all-or-nothing operation: if
// any ref is invalid or duplicated the whole batch is rejected and no queue
// changes. Results align with refs; entries are nil when the target is
// unqueued.
func (e *Engine) BulkMove(ctx context.Context, refs []Ref, targetQueueID string) ([]*Membership, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	seen := make(map[string]struct{}, len(refs))
	var projectID string
	for _, r := range refs {
		if !r.Type.Valid() || r.ID == "" {
			return nil, fmt.Errorf("%w: bad ref %s", ErrNotFound, r)
		}
		if _, dup := seen[r.token()]; dup {
			return nil, fmt.Errorf("%w: duplicate ref %s", ErrNotFound, r)
		}
		seen[r.token()] = struct{}{}
		pid, err := e.resolveRef(r)
		if err != nil {
			return nil, err
		}
		if projectID == "" {
			projectID = pid
		} else if pid != projectID {
			return nil, fmt.Errorf("%w: refs span projects %s and %s", ErrNotFound, projectID, pid)
		}
	}
	if _, err := e.checkMoveTarget(targetQueueID, projectID); err != nil {
		return nil, err
	}

	t := e.newTxn()
	defer t.close()

	out := make([]*Membership, 0, len(refs))
	for _, r := range refs {
		m, err := t.stageMove(r, projectID, targetQueueID)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := t.commit(ctx); err != nil {
		return nil, err
	}
	e.log.Debug("bulk moved", log.Int("count", len(refs)), log.Str("target", targetQueueID))
	return out, nil
}

// Reorder persists a caller-supplied ordering of a queue's Queued members.
// The supplied refs must exactly match the live Queued set or the call is
// rejected with ErrOrderMismatch and nothing changes. In-progress members
// are excluded from reordering; they keep their relative order at the head
// of the position space.
func (e *Engine) Reorder(ctx context.Context, queueID string, orderedRefs []Ref) ([]Membership, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	q, err := e.getQueue(queueID)
	if err != nil {
		return nil, err
	}

	t := e.newTxn()
	defer t.close()

	tokens, err := t.order(queueID)
	if err != nil {
		return nil, err
	}
	queuedSet := make(map[string]struct{})
	var inProgress []string
	for _, tok := range tokens {
		r, err := parseToken(tok)
		if err != nil {
			return nil, err
		}
		m, err := t.member(r)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, fmt.Errorf("flow: order entry %s in queue %s has no live membership", tok, queueID)
		}
		if m.Status == StatusInProgress {
			inProgress = append(inProgress, tok)
		} else {
			queuedSet[tok] = struct{}{}
		}
	}

	if len(orderedRefs) != len(queuedSet) {
		return nil, fmt.Errorf("%w: got %d refs, queue has %d queued", ErrOrderMismatch, len(orderedRefs), len(queuedSet))
	}
	newOrder := append([]string(nil), inProgress...)
	for _, r := range orderedRefs {
		tok := r.token()
		if _, ok := queuedSet[tok]; !ok {
			return nil, fmt.Errorf("%w: %s is not queued in %s", ErrOrderMismatch, r, queueID)
		}
		delete(queuedSet, tok)
		newOrder = append(newOrder, tok)
	}

	t.setOrder(queueID, newOrder)
	if err := t.event(flowevent.Record{
		ProjectID: q.ProjectID,
		Type:      flowevent.TypeReordered,
		QueueID:   queueID,
	}); err != nil {
		return nil, err
	}
	if err := t.commit(ctx); err != nil {
		return nil, err
	}

	out := make([]Membership, 0, len(orderedRefs))
	for _, tok := range newOrder[len(inProgress):] {
		out = append(out, *t.members[tok])
	}
	e.log.Debug("reordered", log.Str("queue", queueID), log.Int("queued", len(out)))
	return out, nil
}
