package project

import (
	"testing"

	pebblestore "github.com/brandon-schabel/Promptliano-sub009/internal/storage/pebble"
	"github.com/brandon-schabel/Promptliano-sub009/pkg/id"
)

func newTestRegistry(t *testing.T, pattern string) *Registry {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir: t.TempDir(),
		Fsync:   pebblestore.FsyncModeNever,
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	r, err := NewRegistry(db, id.NewGenerator(), pattern)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return r
}

func TestEnsureIdempotent(t *testing.T) {
	r := newTestRegistry(t, "")

	first, err := r.Ensure("default")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	second, err := r.Ensure("default")
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("ensure minted a new ID: %s vs %s", first.ID, second.ID)
	}

	byName, ok, err := r.Get("default")
	if err != nil || !ok || byName.ID != first.ID {
		t.Fatalf("get by name: %+v, %v, %v", byName, ok, err)
	}
	byID, ok, err := r.GetByID(first.ID)
	if err != nil || !ok || byID.Name != "default" {
		t.Fatalf("get by id: %+v, %v, %v", byID, ok, err)
	}
}

func TestEnsureNamePattern(t *testing.T) {
	r := newTestRegistry(t, `[a-z][a-z0-9-]*`)

	if _, err := r.Ensure("good-name"); err != nil {
		t.Fatalf("valid name rejected: %v", err)
	}
	if _, err := r.Ensure("Bad Name"); err == nil {
		t.Fatalf("invalid name accepted")
	}
	if _, err := r.Ensure(""); err == nil {
		t.Fatalf("empty name accepted")
	}
}

func TestListSortedByName(t *testing.T) {
	r := newTestRegistry(t, "")
	for _, name := range []string{"charlie", "alpha", "bravo"} {
		if _, err := r.Ensure(name); err != nil {
			t.Fatalf("ensure %s: %v", name, err)
		}
	}
	got, err := r.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("list len = %d", len(got))
	}
	want := []string{"alpha", "bravo", "charlie"}
	for i, m := range got {
		if m.Name != want[i] {
			t.Fatalf("list[%d] = %s, want %s", i, m.Name, want[i])
		}
	}
}

func TestGetMissing(t *testing.T) {
	r := newTestRegistry(t, "")
	if _, ok, err := r.Get("nope"); err != nil || ok {
		t.Fatalf("missing name: ok=%v err=%v", ok, err)
	}
	if _, ok, err := r.GetByID("nope"); err != nil || ok {
		t.Fatalf("missing id: ok=%v err=%v", ok, err)
	}
}
