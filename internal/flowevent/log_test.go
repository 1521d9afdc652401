package flowevent

import (
	"context"
	"fmt"
	"testing"

	pebblestore "github.com/brandon-schabel/Promptliano-sub009/internal/storage/pebble"
	"github.com/brandon-schabel/Promptliano-sub009/pkg/id"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir: t.TempDir(),
		Fsync:   pebblestore.FsyncModeNever,
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewLog(db, id.NewGenerator())
}

func TestAppendAndListNewestFirst(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rec, err := l.Append(ctx, Record{
			ProjectID: "p1",
			Type:      TypeEnqueued,
			Message:   fmt.Sprintf("event %d", i),
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		if rec.ID == "" || rec.AtMs == 0 {
			t.Fatalf("record not stamped: %+v", rec)
		}
	}

	got, err := l.List("p1", 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("list len = %d, want 3", len(got))
	}
	if got[0].Message != "event 4" || got[2].Message != "event 2" {
		t.Fatalf("order: got %q .. %q", got[0].Message, got[2].Message)
	}
}

func TestListIsolatesProjects(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()

	if _, err := l.Append(ctx, Record{ProjectID: "p1", Type: TypeClaimed}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := l.Append(ctx, Record{ProjectID: "p2", Type: TypeClaimed}); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := l.List("p1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ProjectID != "p1" {
		t.Fatalf("cross-project leak: %+v", got)
	}
}

func TestTrimKeepsNewest(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := l.Append(ctx, Record{ProjectID: "p1", Type: TypeCompleted, Message: fmt.Sprintf("e%d", i)}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	deleted, err := l.Trim(ctx, "p1", 4)
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if deleted != 6 {
		t.Fatalf("deleted = %d, want 6", deleted)
	}
	got, err := l.List("p1", 100)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("remaining = %d, want 4", len(got))
	}
	if got[0].Message != "e9" || got[3].Message != "e6" {
		t.Fatalf("trim removed the wrong end: %q .. %q", got[0].Message, got[3].Message)
	}

	if n, err := l.Trim(ctx, "p1", 100); err != nil || n != 0 {
		t.Fatalf("noop trim: n=%d err=%v", n, err)
	}
}
