package runtime

import (
	"context"
	"testing"

	cfgpkg "github.com/brandon-schabel/Promptliano-sub009/internal/config"
	pebblestore "github.com/brandon-schabel/Promptliano-sub009/internal/storage/pebble"
)

func TestOpenWiresComponents(t *testing.T) {
	rt, err := Open(Options{
		DataDir: t.TempDir(),
		Fsync:   pebblestore.FsyncModeNever,
		Config:  cfgpkg.Default(),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rt.Close()

	if err := rt.CheckHealth(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
	meta, err := rt.EnsureDefaultProject()
	if err != nil {
		t.Fatalf("ensure default project: %v", err)
	}
	if meta.Name != "default" {
		t.Fatalf("default project name = %q", meta.Name)
	}
	// idempotent
	again, err := rt.EnsureDefaultProject()
	if err != nil || again.ID != meta.ID {
		t.Fatalf("re-ensure: %+v, %v", again, err)
	}
	if rt.Engine() == nil || rt.Items() == nil || rt.Events() == nil || rt.Projects() == nil {
		t.Fatal("component not wired")
	}
}
