package index_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tbrandt/othala/internal/index"
	"github.com/tbrandt/othala/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcher_ExternalWriteInvalidates(t *testing.T) {
	vaultDir, _, ix := testutil.TestIndex(t)

	// Drain the initial dirty state so staleness below is attributable to
	// the watcher.
	if _, err := ix.NoteSummaries(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string
	go index.Watch(ctx, ix, vaultDir, quietLogger(), func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(vaultDir, "new.md"), []byte("# New\n"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		sums, err := ix.NoteSummaries()
		return err == nil && len(sums) == 1
	}, "external write not picked up by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:new.md" {
				return true
			}
		}
		return false
	}, "expected created:new.md callback")
}

func TestWatcher_NewDirWatched(t *testing.T) {
	vaultDir, _, ix := testutil.TestIndex(t)
	if _, err := ix.NoteSummaries(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go index.Watch(ctx, ix, vaultDir, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	subDir := filepath.Join(vaultDir, "subdir")
	_ = os.MkdirAll(subDir, 0o755)
	time.Sleep(200 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(subDir, "deep.md"), []byte("# Deep\n"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		sums, err := ix.NoteSummaries()
		return err == nil && len(sums) == 1 && sums[0].Path == "subdir/deep.md"
	}, "file in new subdir not picked up by watcher")
}

func TestWatcher_DeleteRemoves(t *testing.T) {
	vaultDir, _, ix := testutil.TestIndex(t)
	_ = os.WriteFile(filepath.Join(vaultDir, "del.md"), []byte("# Delete Me\n"), 0o644)
	if sums, err := ix.NoteSummaries(); err != nil || len(sums) != 1 {
		t.Fatalf("precondition: sums=%v err=%v", sums, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go index.Watch(ctx, ix, vaultDir, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(vaultDir, "del.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		sums, err := ix.NoteSummaries()
		return err == nil && len(sums) == 0
	}, "deleted file still indexed")
}
