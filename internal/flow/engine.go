package flow

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/brandon-schabel/Promptliano-sub009/internal/config"
	"github.com/brandon-schabel/Promptliano-sub009/internal/flowevent"
	"github.com/brandon-schabel/Promptliano-sub009/internal/items"
	pebblestore "github.com/brandon-schabel/Promptliano-sub009/internal/storage/pebble"
	"github.com/brandon-schabel/Promptliano-sub009/pkg/id"
	"github.com/brandon-schabel/Promptliano-sub009/pkg/log"
)

// Engine owns the queue keyspaces. Every mutating operation builds one batch
// and commits it under mu, so operations are atomic and serialized; readers
// go straight to the store and always see a committed state.
type Engine struct {
	db       *pebblestore.DB
	items    *items.Store
	events   *flowevent.Log
	gen      *id.Generator
	log      log.Logger
	defaults config.QueueDefaults

	mu    sync.Mutex
	nowMs func() int64
}

// NewEngine creates an Engine over an open store.
func NewEngine(db *pebblestore.DB, store *items.Store, events *flowevent.Log, gen *id.Generator, logger log.Logger, defaults config.QueueDefaults) *Engine {
	if logger == nil {
		logger = log.NewLogger()
	}
	if defaults.MaxConcurrency <= 0 {
		defaults.MaxConcurrency = 1
	}
	return &Engine{
		db:       db,
		items:    store,
		events:   events,
		gen:      gen,
		log:      logger.With(log.Component("flow")),
		defaults: defaults,
		nowMs:    func() int64 { return time.Now().UnixMilli() },
	}
}

// getQueue loads a queue record.
func (e *Engine) getQueue(queueID string) (Queue, error) {
	val, err := e.db.Get(queueKey(queueID))
	if err != nil {
		if pebblestore.IsNotFound(err) {
			return Queue{}, fmt.Errorf("%w: queue %s", ErrNotFound, queueID)
		}
		return Queue{}, err
	}
	var q Queue
	if err := json.Unmarshal(val, &q); err != nil {
		return Queue{}, fmt.Errorf("flow: decode queue %s: %w", queueID, err)
	}
	return q, nil
}

// resolveRef checks that the referenced work item exists and returns the
// project it belongs to.
func (e *Engine) resolveRef(r Ref) (string, error) {
	switch r.Type {
	case ItemTicket:
		t, err := e.items.GetTicket(r.ID)
		if err != nil {
			if errors.Is(err, items.ErrNotFound) {
				return "", fmt.Errorf("%w: %s", ErrNotFound, r)
			}
			return "", err
		}
		return t.ProjectID, nil
	case ItemTask:
		t, err := e.items.GetTask(r.ID)
		if err != nil {
			if errors.Is(err, items.ErrNotFound) {
				return "", fmt.Errorf("%w: %s", ErrNotFound, r)
			}
			return "", err
		}
		return t.ProjectID, nil
	}
	return "", fmt.Errorf("%w: bad item type %q", ErrNotFound, r.Type)
}

// liveMembership returns the item's live membership, or nil when the item is
// unqueued.
func (e *Engine) liveMembership(r Ref) (*Membership, error) {
	val, err := e.db.Get(memberKey(r.token()))
	if err != nil {
		if pebblestore.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var m Membership
	if err := json.Unmarshal(val, &m); err != nil {
		return nil, fmt.Errorf("flow: decode membership %s: %w", r, err)
	}
	return &m, nil
}

// loadOrder returns the queue's ref tokens in positional order.
func (e *Engine) loadOrder(queueID string) ([]string, error) {
	var tokens []string
	err := e.db.ScanPrefix(orderPrefix(queueID), func(_, value []byte) (bool, error) {
		tokens = append(tokens, string(value))
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return tokens, nil
}
