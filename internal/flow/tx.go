package flow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/brandon-schabel/Promptliano-sub009/internal/flowevent"
)

// txn stages one operation's mutations: order slices per queue, membership
// rows per item, archives, and audit events. commit materializes dirty order
// slices as dense position keys (syncing each member's Position field) and
// writes everything in a single batch. Callers hold e.mu throughout.
type txn struct {
	e     *Engine
	batch *pebble.Batch

	orders     map[string][]string
	oldLens    map[string]int
	dirtyOrder map[string]struct{}

	members     map[string]*Membership
	loaded      map[string]struct{}
	dirtyMember map[string]struct{}
}

func (e *Engine) newTxn() *txn {
	return &txn{
		e:           e,
		batch:       e.db.NewBatch(),
		orders:      make(map[string][]string),
		oldLens:     make(map[string]int),
		dirtyOrder:  make(map[string]struct{}),
		members:     make(map[string]*Membership),
		loaded:      make(map[string]struct{}),
		dirtyMember: make(map[string]struct{}),
	}
}

func (t *txn) close() { _ = t.batch.Close() }

// order returns the queue's token slice, loading it on first access.
func (t *txn) order(queueID string) ([]string, error) {
	if tokens, ok := t.orders[queueID]; ok {
		return tokens, nil
	}
	tokens, err := t.e.loadOrder(queueID)
	if err != nil {
		return nil, err
	}
	t.orders[queueID] = tokens
	t.oldLens[queueID] = len(tokens)
	return tokens, nil
}

// setOrder replaces the queue's token slice. The queue must have been loaded
// via order first so the stale tail length is known.
func (t *txn) setOrder(queueID string, tokens []string) {
	t.orders[queueID] = tokens
	t.dirtyOrder[queueID] = struct{}{}
}

// member returns the item's live membership (nil when unqueued), consulting
// staged state before the store.
func (t *txn) member(r Ref) (*Membership, error) {
	tok := r.token()
	if _, ok := t.loaded[tok]; ok {
		return t.members[tok], nil
	}
	m, err := t.e.liveMembership(r)
	if err != nil {
		return nil, err
	}
	t.members[tok] = m
	t.loaded[tok] = struct{}{}
	return m, nil
}

// setMember stages a live membership write.
func (t *txn) setMember(m *Membership) {
	tok := m.Ref().token()
	t.members[tok] = m
	t.loaded[tok] = struct{}{}
	t.dirtyMember[tok] = struct{}{}
}

// removeMember stages deletion of the item's live membership.
func (t *txn) removeMember(r Ref) {
	tok := r.token()
	t.members[tok] = nil
	t.loaded[tok] = struct{}{}
	t.dirtyMember[tok] = struct{}{}
}

// archive writes a terminal membership snapshot into the queue's history and
// the item's history. The snapshot is stored in full under both keys so item
// history survives queue deletion.
func (t *txn) archive(m *Membership) error {
	if !m.Status.Terminal() {
		return fmt.Errorf("flow: archive of non-terminal status %s", m.Status)
	}
	archiveID := t.e.gen.Next().String()
	val, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := t.batch.Set(histKey(m.QueueID, archiveID), val, nil); err != nil {
		return err
	}
	return t.batch.Set(itemHistKey(m.Ref().token(), archiveID), val, nil)
}

// event appends an audit record to the batch.
func (t *txn) event(rec flowevent.Record) error {
	_, err := t.e.events.AppendToBatch(t.batch, rec)
	return err
}

// commit renumbers dirty queues, flushes staged memberships, and commits the
// batch.
func (t *txn) commit(ctx context.Context) error {
	for queueID := range t.dirtyOrder {
		tokens := t.orders[queueID]
		for pos, tok := range tokens {
			if err := t.batch.Set(orderKey(queueID, pos), []byte(tok), nil); err != nil {
				return err
			}
			r, err := parseToken(tok)
			if err != nil {
				return err
			}
			m, err := t.member(r)
			if err != nil {
				return err
			}
			if m == nil {
				return fmt.Errorf("flow: order entry %s in queue %s has no live membership", tok, queueID)
			}
			if m.QueueID == queueID && m.Position != pos {
				m.Position = pos
				t.dirtyMember[tok] = struct{}{}
			}
		}
		for pos := len(tokens); pos < t.oldLens[queueID]; pos++ {
			if err := t.batch.Delete(orderKey(queueID, pos), nil); err != nil {
				return err
			}
		}
	}

	for tok := range t.dirtyMember {
		m := t.members[tok]
		if m == nil {
			if err := t.batch.Delete(memberKey(tok), nil); err != nil {
				return err
			}
			continue
		}
		val, err := json.Marshal(m)
		if err != nil {
			return err
		}
		if err := t.batch.Set(memberKey(tok), val, nil); err != nil {
			return err
		}
	}

	return t.e.db.CommitBatch(ctx, t.batch)
}
