package flowevent

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/brandon-schabel/Promptliano-sub009/internal/storage/pebble"
	"github.com/brandon-schabel/Promptliano-sub009/pkg/id"
)

// Event types recorded by the engine.
const (
	TypeEnqueued        = "enqueued"
	TypeDequeued        = "dequeued"
	TypeMoved           = "moved"
	TypeReordered       = "reordered"
	TypeClaimed         = "claimed"
	TypeCompleted       = "completed"
	TypeFailed          = "failed"
	TypeForcedInterrupt = "forced_interrupt"
	TypeReaped          = "reaped"
)

// Record is one audit event.
type Record struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`
	Type      string `json:"type"`
	ItemType  string `json:"itemType,omitempty"`
	ItemID    string `json:"itemId,omitempty"`
	QueueID   string `json:"queueId,omitempty"`
	AgentID   string `json:"agentId,omitempty"`
	Message   string `json:"message,omitempty"`
	AtMs      int64  `json:"atMs"`
}

// Key layout: flowev/{projectID}/{eventID}. Event IDs are time-ordered, so
// lexical key order is chronological within a project.
func eventKey(projectID, eventID string) []byte {
	return []byte("flowev/" + projectID + "/" + eventID)
}

func eventPrefix(projectID string) []byte {
	return []byte("flowev/" + projectID + "/")
}

// Log appends and reads audit events.
type Log struct {
	db  *pebblestore.DB
	gen *id.Generator
}

// NewLog creates a Log.
func NewLog(db *pebblestore.DB, gen *id.Generator) *Log {
	return &Log{db: db, gen: gen}
}

// AppendToBatch stamps the record with an ID and timestamp-derived ordering
// and writes it into the caller's batch. The record becomes durable when the
// caller commits.
func (l *Log) AppendToBatch(b *pebble.Batch, rec Record) (Record, error) {
	eid := l.gen.Next()
	rec.ID = eid.String()
	if rec.AtMs == 0 {
		rec.AtMs = int64(uint64(eid[0])<<56 | uint64(eid[1])<<48 | uint64(eid[2])<<40 | uint64(eid[3])<<32 |
			uint64(eid[4])<<24 | uint64(eid[5])<<16 | uint64(eid[6])<<8 | uint64(eid[7]))
	}
	val, err := json.Marshal(rec)
	if err != nil {
		return Record{}, err
	}
	if err := b.Set(eventKey(rec.ProjectID, rec.ID), val, nil); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Append writes a single record in its own batch.
func (l *Log) Append(ctx context.Context, rec Record) (Record, error) {
	b := l.db.NewBatch()
	defer b.Close()
	out, err := l.AppendToBatch(b, rec)
	if err != nil {
		return Record{}, err
	}
	if err := l.db.CommitBatch(ctx, b); err != nil {
		return Record{}, err
	}
	return out, nil
}

// List returns up to limit events for a project, newest first.
func (l *Log) List(projectID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	prefix := eventPrefix(projectID)
	iter, err := l.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: pebblestore.KeyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	out := make([]Record, 0, limit)
	for ok := iter.Last(); ok && len(out) < limit; ok = iter.Prev() {
		var rec Record
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, iter.Error()
}

// Trim deletes the oldest events of a project beyond keepLast.
func (l *Log) Trim(ctx context.Context, projectID string, keepLast int) (int, error) {
	if keepLast < 0 {
		keepLast = 0
	}
	prefix := eventPrefix(projectID)
	total := 0
	err := l.db.ScanPrefix(prefix, func(_, _ []byte) (bool, error) {
		total++
		return true, nil
	})
	if err != nil {
		return 0, err
	}
	excess := total - keepLast
	if excess <= 0 {
		return 0, nil
	}

	b := l.db.NewBatch()
	defer b.Close()
	deleted := 0
	err = l.db.ScanPrefix(prefix, func(key, _ []byte) (bool, error) {
		if deleted >= excess {
			return false, nil
		}
		if err := b.Delete(append([]byte(nil), key...), nil); err != nil {
			return false, err
		}
		deleted++
		return true, nil
	})
	if err != nil {
		return 0, err
	}
	if err := l.db.CommitBatch(ctx, b); err != nil {
		return 0, err
	}
	// compaction hint after large trims
	if deleted >= 4096 {
		_ = l.db.CompactRange(prefix, pebblestore.KeyUpperBound(prefix))
	}
	return deleted, nil
}
