package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"
)

func TestWatcherReloadsLoggingModules(t *testing.T) {
	path := writeConfig(t, `
[logging.modules]
supervisor = "info"
`)

	w := NewWatcher(path, ReadLoggingModules, slog.New(slog.NewTextHandler(io.Discard, nil)))
	w.SetDebounce(20 * time.Millisecond)

	changes := make(chan map[string]string, 8)
	w.OnChange(func(modules map[string]string) { changes <- modules })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run returned %v", err)
		}
	}()

	updated := []byte("[logging.modules]\nsupervisor = \"debug\"\n")
	deadline := time.After(5 * time.Second)
	// Rewritten until seen: the watch may not be registered yet on the first write.
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		if err := os.WriteFile(path, updated, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		select {
		case modules := <-changes:
			if modules["supervisor"] != "debug" {
				t.Fatalf("supervisor = %q, want debug", modules["supervisor"])
			}
			return
		case <-tick.C:
		case <-deadline:
			t.Fatal("no reload after config change")
		}
	}
}

func TestWatcherIgnoresInvalidConfig(t *testing.T) {
	path := writeConfig(t, "[logging.modules]\napi = \"warn\"\n")

	w := NewWatcher(path, ReadLoggingModules, slog.New(slog.NewTextHandler(io.Discard, nil)))
	called := false
	w.OnChange(func(map[string]string) { called = true })

	if err := os.WriteFile(path, []byte("[logging.modules\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	w.reload()
	if called {
		t.Error("handler called for unparsable config")
	}
}

func TestWatcherMissingDirectory(t *testing.T) {
	w := NewWatcher("/nonexistent/devup/devup.toml", ReadLoggingModules, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := w.Run(context.Background()); err == nil {
		t.Error("expected error watching a missing directory")
	}
}
