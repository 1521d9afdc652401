package serverrun

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	logpkg "github.com/brandon-schabel/Promptliano-sub009/pkg/log"
)

func TestWatchConfigReloadsLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flow.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: info\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	logger := logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- watchConfig(ctx, path, logger) }()

	// give the watcher time to register before rewriting
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for logger.GetLevel() != logpkg.DebugLevel {
		select {
		case <-deadline:
			t.Fatalf("level not reloaded, still %v", logger.GetLevel())
		case <-time.After(20 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watcher exit: %v", err)
	}
}
