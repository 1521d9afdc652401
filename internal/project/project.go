package project

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	pebblestore "github.com/brandon-schabel/Promptliano-sub009/internal/storage/pebble"
	"github.com/brandon-schabel/Promptliano-sub009/pkg/id"
)

// Meta holds project metadata. Queues, tickets, and tasks are scoped to a
// project by ID.
type Meta struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CreatedAtMs int64  `json:"createdAtMs"`
}

var (
	metaPrefix = []byte("pjmeta/")
	idPrefix   = []byte("pjid/")
)

func metaKey(name string) []byte {
	k := make([]byte, 0, len(metaPrefix)+len(name))
	k = append(k, metaPrefix...)
	k = append(k, name...)
	return k
}

func idKey(projectID string) []byte {
	k := make([]byte, 0, len(idPrefix)+len(projectID))
	k = append(k, idPrefix...)
	k = append(k, projectID...)
	return k
}

// Registry provides project lookup and idempotent creation.
type Registry struct {
	db        *pebblestore.DB
	gen       *id.Generator
	nameRegex *regexp.Regexp
}

// NewRegistry creates a Registry. namePattern constrains names accepted by
// Ensure; an empty pattern accepts any non-empty name.
func NewRegistry(db *pebblestore.DB, gen *id.Generator, namePattern string) (*Registry, error) {
	r := &Registry{db: db, gen: gen}
	if namePattern != "" {
		re, err := regexp.Compile("^" + namePattern + "$")
		if err != nil {
			return nil, fmt.Errorf("project: bad name pattern: %w", err)
		}
		r.nameRegex = re
	}
	return r, nil
}

// Ensure creates a project record if absent, returning the effective meta.
// Idempotent: returns the existing record if already present.
func (r *Registry) Ensure(name string) (Meta, error) {
	if name == "" {
		return Meta{}, fmt.Errorf("project: name required")
	}
	if r.nameRegex != nil && !r.nameRegex.MatchString(name) {
		return Meta{}, fmt.Errorf("project: name %q does not match allowed pattern", name)
	}
	if b, err := r.db.Get(metaKey(name)); err == nil && len(b) > 0 {
		var m Meta
		if err := json.Unmarshal(b, &m); err == nil {
			return m, nil
		}
		// fallthrough to rewrite if corrupted
	}
	m := Meta{
		ID:          r.gen.Next().String(),
		Name:        name,
		CreatedAtMs: time.Now().UnixMilli(),
	}
	bytes, err := json.Marshal(m)
	if err != nil {
		return Meta{}, err
	}
	b := r.db.NewBatch()
	defer b.Close()
	if err := b.Set(metaKey(name), bytes, nil); err != nil {
		return Meta{}, err
	}
	if err := b.Set(idKey(m.ID), []byte(name), nil); err != nil {
		return Meta{}, err
	}
	if err := r.db.CommitBatch(context.Background(), b); err != nil {
		return Meta{}, err
	}
	return m, nil
}

// Get returns the project with the given name.
func (r *Registry) Get(name string) (Meta, bool, error) {
	b, err := r.db.Get(metaKey(name))
	if err != nil {
		if pebblestore.IsNotFound(err) {
			return Meta{}, false, nil
		}
		return Meta{}, false, err
	}
	var m Meta
	if err := json.Unmarshal(b, &m); err != nil {
		return Meta{}, false, err
	}
	return m, true, nil
}

// GetByID returns the project with the given ID.
func (r *Registry) GetByID(projectID string) (Meta, bool, error) {
	nameBytes, err := r.db.Get(idKey(projectID))
	if err != nil {
		if pebblestore.IsNotFound(err) {
			return Meta{}, false, nil
		}
		return Meta{}, false, err
	}
	return r.Get(string(nameBytes))
}

// List returns all projects in name order.
func (r *Registry) List() ([]Meta, error) {
	var out []Meta
	err := r.db.ScanPrefix(metaPrefix, func(_, value []byte) (bool, error) {
		var m Meta
		if err := json.Unmarshal(value, &m); err != nil {
			return false, err
		}
		out = append(out, m)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
