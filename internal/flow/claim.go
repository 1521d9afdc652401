package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/brandon-schabel/Promptliano-sub009/internal/flowevent"
	"github.com/brandon-schabel/Promptliano-sub009/pkg/log"
)

// claimLess orders claim candidates: lowest position first, then higher
// priority, then earlier queuedAt.
func claimLess(a, b *Membership) bool {
	if a.Position != b.Position {
		return a.Position < b.Position
	}
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.QueuedAtMs < b.QueuedAtMs
}

// ClaimNext atomically claims the next eligible queued item for an agent.
// Returns (nil, nil) when the queue has nothing queued, which is the normal
// "nothing to do" answer for polling agents. Returns ErrCapacityExceeded
// when the queue is already running maxConcurrency items.
func (e *Engine) ClaimNext(ctx context.Context, queueID, agentID string) (*Membership, error) {
	if agentID == "" {
		return nil, fmt.Errorf("flow: agent id required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.claimNextOnce(ctx, queueID, agentID)
	if errors.Is(err, errClaimRace) {
		// Lost the conditional write; retry the selection once.
		m, err = e.claimNextOnce(ctx, queueID, agentID)
		if errors.Is(err, errClaimRace) {
			return nil, nil
		}
	}
	return m, err
}

func (e *Engine) claimNextOnce(ctx context.Context, queueID, agentID string) (*Membership, error) {
	q, err := e.getQueue(queueID)
	if err != nil {
		return nil, err
	}
	if !q.IsActive {
		return nil, fmt.Errorf("%w: queue %s", ErrQueueInactive, queueID)
	}

	t := e.newTxn()
	defer t.close()

	tokens, err := t.order(queueID)
	if err != nil {
		return nil, err
	}
	inProgress := 0
	var best *Membership
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
		switch m.Status {
		case StatusInProgress:
			inProgress++
		case StatusQueued:
			if best == nil || claimLess(m, best) {
				best = m
			}
		}
	}
	if inProgress >= q.MaxConcurrency {
		return nil, fmt.Errorf("%w: queue %s at %d in progress", ErrCapacityExceeded, queueID, inProgress)
	}
	if best == nil {
		return nil, nil
	}

	// Conditional write: the selection only holds if the row is still Queued
	// in the store at write time.
	fresh, err := e.liveMembership(best.Ref())
	if err != nil {
		return nil, err
	}
	if fresh == nil || fresh.Status != StatusQueued {
		return nil, errClaimRace
	}

	best.Status = StatusInProgress
	best.AgentID = agentID
	best.StartedAtMs = e.nowMs()
	t.setMember(best)
	if err := t.event(flowevent.Record{
		ProjectID: best.ProjectID,
		Type:      flowevent.TypeClaimed,
		ItemType:  string(best.ItemType),
		ItemID:    best.ItemID,
		QueueID:   queueID,
		AgentID:   agentID,
	}); err != nil {
		return nil, err
	}
	if err := t.commit(ctx); err != nil {
		return nil, err
	}
	e.log.Debug("claimed", log.Str("ref", best.Ref().String()), log.Str("queue", queueID), log.Str("agent", agentID))
	out := *best
	return &out, nil
}

// ClaimSpecific claims a caller-chosen item instead of the next one, for
// agents assigned out-of-band. Claiming an item you already hold is
// idempotent; an item held by another agent returns ErrAlreadyClaimed.
func (e *Engine) ClaimSpecific(ctx context.Context, r Ref, agentID string) (*Membership, error) {
	if agentID == "" {
		return nil, fmt.Errorf("flow: agent id required")
	}
	if !r.Type.Valid() || r.ID == "" {
		return nil, fmt.Errorf("%w: bad ref %s", ErrNotFound, r)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.resolveRef(r); err != nil {
		return nil, err
	}

	t := e.newTxn()
	defer t.close()

	m, err := t.member(r)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("%w: %s is not queued", ErrInvalidTransition, r)
	}
	if m.Status == StatusInProgress {
		if m.AgentID == agentID {
			out := *m
			return &out, nil
		}
		return nil, fmt.Errorf("%w: %s held by agent %s", ErrAlreadyClaimed, r, m.AgentID)
	}
	if m.Status != StatusQueued {
		return nil, fmt.Errorf("%w: %s is %s", ErrInvalidTransition, r, m.Status)
	}

	q, err := e.getQueue(m.QueueID)
	if err != nil {
		return nil, err
	}
	if !q.IsActive {
		return nil, fmt.Errorf("%w: queue %s", ErrQueueInactive, m.QueueID)
	}
	tokens, err := t.order(m.QueueID)
	if err != nil {
		return nil, err
	}
	inProgress := 0
	for _, tok := range tokens {
		ref, err := parseToken(tok)
		if err != nil {
			return nil, err
		}
		other, err := t.member(ref)
		if err != nil {
			return nil, err
		}
		if other != nil && other.Status == StatusInProgress {
			inProgress++
		}
	}
	if inProgress >= q.MaxConcurrency {
		return nil, fmt.Errorf("%w: queue %s at %d in progress", ErrCapacityExceeded, m.QueueID, inProgress)
	}

	m.Status = StatusInProgress
	m.AgentID = agentID
	m.StartedAtMs = e.nowMs()
	t.setMember(m)
	if err := t.event(flowevent.Record{
		ProjectID: m.ProjectID,
		Type:      flowevent.TypeClaimed,
		ItemType:  string(m.ItemType),
		ItemID:    m.ItemID,
		QueueID:   m.QueueID,
		AgentID:   agentID,
	}); err != nil {
		return nil, err
	}
	if err := t.commit(ctx); err != nil {
		return nil, err
	}
	out := *m
	return &out, nil
}

// finish archives an in-progress membership into a terminal status and frees
// its queue slot.
func (e *Engine) finish(ctx context.Context, r Ref, status Status, result, errorMessage string) (*Membership, error) {
	if !r.Type.Valid() || r.ID == "" {
		return nil, fmt.Errorf("%w: bad ref %s", ErrNotFound, r)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.resolveRef(r); err != nil {
		return nil, err
	}

	t := e.newTxn()
	defer t.close()

	m, err := t.member(r)
	if err != nil {
		return nil, err
	}
	if m == nil || m.Status != StatusInProgress {
		got := "unqueued"
		if m != nil {
			got = string(m.Status)
		}
		return nil, fmt.Errorf("%w: %s is %s, want in_progress", ErrInvalidTransition, r, got)
	}

	tokens, err := t.order(m.QueueID)
	if err != nil {
		return nil, err
	}
	tok := r.token()
	kept := tokens[:0:0]
	for _, s := range tokens {
		if s != tok {
			kept = append(kept, s)
		}
	}
	t.setOrder(m.QueueID, kept)

	now := e.nowMs()
	m.Status = status
	m.CompletedAtMs = now
	m.ActualProcessingMs = now - m.StartedAtMs
	m.Result = result
	m.ErrorMessage = errorMessage
	if err := t.archive(m); err != nil {
		return nil, err
	}
	t.removeMember(r)

	evType := flowevent.TypeCompleted
	if status == StatusFailed {
		evType = flowevent.TypeFailed
	}
	if err := t.event(flowevent.Record{
		ProjectID: m.ProjectID,
		Type:      evType,
		ItemType:  string(m.ItemType),
		ItemID:    m.ItemID,
		QueueID:   m.QueueID,
		AgentID:   m.AgentID,
		Message:   errorMessage,
	}); err != nil {
		return nil, err
	}
	if err := t.commit(ctx); err != nil {
		return nil, err
	}
	out := *m
	return &out, nil
}

// Complete marks an in-progress item done. Any other state, including a
// second Complete on the same ref, returns ErrInvalidTransition.
func (e *Engine) Complete(ctx context.Context, r Ref, result string) (*Membership, error) {
	m, err := e.finish(ctx, r, StatusCompleted, result, "")
	if err != nil {
		return nil, err
	}
	e.log.Debug("completed", log.Str("ref", r.String()), log.Int64("actualMs", m.ActualProcessingMs))
	return m, nil
}

// Fail marks an in-progress item failed. The engine never re-enqueues on
// failure; retry is the caller's decision, see RetryAdvice.
func (e *Engine) Fail(ctx context.Context, r Ref, errorMessage string) (*Membership, error) {
	m, err := e.finish(ctx, r, StatusFailed, "", errorMessage)
	if err != nil {
		return nil, err
	}
	e.log.Debug("failed", log.Str("ref", r.String()), log.Str("error", errorMessage))
	return m, nil
}

// RetryAdvice answers whether a failed item should be re-enqueued, based on
// the retry policy of the queue it last failed in and its archived failure
// count. Attempts counts failed runs so far.
func (e *Engine) RetryAdvice(r Ref) (RetryAdvice, error) {
	if _, err := e.resolveRef(r); err != nil {
		return RetryAdvice{}, err
	}

	attempts := 0
	var last *Membership
	err := e.db.ScanPrefix(itemHistPrefix(r.token()), func(_, value []byte) (bool, error) {
		var m Membership
		if err := json.Unmarshal(value, &m); err != nil {
			return false, err
		}
		if m.Status == StatusFailed {
			attempts++
			mm := m
			last = &mm
		}
		return true, nil
	})
	if err != nil {
		return RetryAdvice{}, err
	}
	if attempts == 0 || last == nil {
		return RetryAdvice{Retry: false, Attempts: 0}, nil
	}

	q, err := e.getQueue(last.QueueID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return RetryAdvice{Retry: false, Attempts: attempts}, nil
		}
		return RetryAdvice{}, err
	}
	pol := q.RetryPolicy
	if pol == nil || attempts >= pol.MaxAttempts {
		return RetryAdvice{Retry: false, Attempts: attempts}, nil
	}
	return RetryAdvice{Retry: true, DelayMs: retryDelayMs(pol, attempts), Attempts: attempts}, nil
}

// retryDelayMs computes the backoff before retry number attempts+1.
func retryDelayMs(pol *RetryPolicy, attempts int) int64 {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Duration(pol.BackoffMs) * time.Millisecond
	bo.Multiplier = pol.BackoffMultiplier
	if bo.Multiplier <= 0 {
		bo.Multiplier = 2
	}
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0
	if pol.MaxBackoffMs > 0 {
		bo.MaxInterval = time.Duration(pol.MaxBackoffMs) * time.Millisecond
	} else {
		bo.MaxInterval = time.Duration(math.MaxInt64)
	}
	bo.Reset()
	var d time.Duration
	for i := 0; i < attempts; i++ {
		d = bo.NextBackOff()
	}
	return d.Milliseconds()
}
