package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	pebblestore "github.com/brandon-schabel/Promptliano-sub009/internal/storage/pebble"
	"github.com/brandon-schabel/Promptliano-sub009/pkg/log"
)

// CreateQueue registers a queue under a project. Name must be non-empty and
// unique within the project; unset fields take the configured defaults.
func (e *Engine) CreateQueue(ctx context.Context, projectID string, spec QueueSpec) (Queue, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return Queue{}, fmt.Errorf("flow: queue name required")
	}
	if projectID == "" {
		return Queue{}, fmt.Errorf("flow: project id required")
	}
	if spec.MaxConcurrency < 0 {
		return Queue{}, fmt.Errorf("flow: maxConcurrency must be >= 1")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.db.Get(queueNameKey(projectID, name)); err == nil {
		return Queue{}, fmt.Errorf("%w: %s in project %s", ErrDuplicateName, name, projectID)
	} else if !pebblestore.IsNotFound(err) {
		return Queue{}, err
	}

	now := e.nowMs()
	q := Queue{
		ID:             e.gen.Next().String(),
		ProjectID:      projectID,
		Name:           name,
		Description:    spec.Description,
		IsActive:       true,
		MaxConcurrency: spec.MaxConcurrency,
		RetryPolicy:    spec.RetryPolicy,
		Metadata:       spec.Metadata,
		CreatedAtMs:    now,
		UpdatedAtMs:    now,
	}
	if q.MaxConcurrency == 0 {
		q.MaxConcurrency = e.defaults.MaxConcurrency
	}
	if q.RetryPolicy == nil && e.defaults.RetryMaxAttempts > 0 {
		q.RetryPolicy = &RetryPolicy{
			MaxAttempts: e.defaults.RetryMaxAttempts,
			BackoffMs:   e.defaults.RetryBackoff.Std().Milliseconds(),
		}
	}

	val, err := json.Marshal(q)
	if err != nil {
		return Queue{}, err
	}
	b := e.db.NewBatch()
	defer b.Close()
	if err := b.Set(queueKey(q.ID), val, nil); err != nil {
		return Queue{}, err
	}
	if err := b.Set(queueNameKey(projectID, name), []byte(q.ID), nil); err != nil {
		return Queue{}, err
	}
	if err := e.db.CommitBatch(ctx, b); err != nil {
		return Queue{}, err
	}
	e.log.Info("queue created", log.Str("queue", q.ID), log.Str("name", name), log.Str("project", projectID))
	return q, nil
}

// GetQueue returns a queue by ID.
func (e *Engine) GetQueue(queueID string) (Queue, error) {
	return e.getQueue(queueID)
}

// GetQueueByName resolves a queue by project and name.
func (e *Engine) GetQueueByName(projectID, name string) (Queue, error) {
	val, err := e.db.Get(queueNameKey(projectID, name))
	if err != nil {
		if pebblestore.IsNotFound(err) {
			return Queue{}, fmt.Errorf("%w: queue %s in project %s", ErrNotFound, name, projectID)
		}
		return Queue{}, err
	}
	return e.getQueue(string(val))
}

// ListQueues returns all queues of a project, ordered by name.
func (e *Engine) ListQueues(projectID string) ([]Queue, error) {
	var out []Queue
	err := e.db.ScanPrefix(queueNamePrefix(projectID), func(_, value []byte) (bool, error) {
		q, err := e.getQueue(string(value))
		if err != nil {
			return false, err
		}
		out = append(out, q)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateQueue applies a patch. Renames re-check name uniqueness.
func (e *Engine) UpdateQueue(ctx context.Context, queueID string, patch QueuePatch) (Queue, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	q, err := e.getQueue(queueID)
	if err != nil {
		return Queue{}, err
	}

	b := e.db.NewBatch()
	defer b.Close()

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return Queue{}, fmt.Errorf("flow: queue name required")
		}
		if name != q.Name {
			if _, err := e.db.Get(queueNameKey(q.ProjectID, name)); err == nil {
				return Queue{}, fmt.Errorf("%w: %s in project %s", ErrDuplicateName, name, q.ProjectID)
			} else if !pebblestore.IsNotFound(err) {
				return Queue{}, err
			}
			if err := b.Delete(queueNameKey(q.ProjectID, q.Name), nil); err != nil {
				return Queue{}, err
			}
			if err := b.Set(queueNameKey(q.ProjectID, name), []byte(q.ID), nil); err != nil {
				return Queue{}, err
			}
			q.Name = name
		}
	}
	if patch.Description != nil {
		q.Description = *patch.Description
	}
	if patch.IsActive != nil {
		q.IsActive = *patch.IsActive
	}
	if patch.MaxConcurrency != nil {
		if *patch.MaxConcurrency < 1 {
			return Queue{}, fmt.Errorf("flow: maxConcurrency must be >= 1")
		}
		q.MaxConcurrency = *patch.MaxConcurrency
	}
	if patch.ClearRetry {
		q.RetryPolicy = nil
	} else if patch.RetryPolicy != nil {
		q.RetryPolicy = patch.RetryPolicy
	}
	if patch.Metadata != nil {
		q.Metadata = patch.Metadata
	}
	q.UpdatedAtMs = e.nowMs()

	val, err := json.Marshal(q)
	if err != nil {
		return Queue{}, err
	}
	if err := b.Set(queueKey(q.ID), val, nil); err != nil {
		return Queue{}, err
	}
	if err := e.db.CommitBatch(ctx, b); err != nil {
		return Queue{}, err
	}
	return q, nil
}

// DeleteQueue removes an empty queue and its archived history. Members must
// be moved out first; deletion never migrates or orphans them.
func (e *Engine) DeleteQueue(ctx context.Context, queueID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	q, err := e.getQueue(queueID)
	if err != nil {
		return err
	}
	tokens, err := e.loadOrder(queueID)
	if err != nil {
		return err
	}
	if len(tokens) > 0 {
		return fmt.Errorf("%w: queue %s has %d members", ErrQueueNotEmpty, queueID, len(tokens))
	}

	b := e.db.NewBatch()
	defer b.Close()
	if err := b.Delete(queueKey(queueID), nil); err != nil {
		return err
	}
	if err := b.Delete(queueNameKey(q.ProjectID, q.Name), nil); err != nil {
		return err
	}
	hp := histPrefix(queueID)
	if err := b.DeleteRange(hp, pebblestore.KeyUpperBound(hp), nil); err != nil {
		return err
	}
	if err := e.db.CommitBatch(ctx, b); err != nil {
		return err
	}
	e.log.Info("queue deleted", log.Str("queue", queueID), log.Str("project", q.ProjectID))
	return nil
}
