package ingest

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func recvPath(t *testing.T, ch <-chan string, timeout time.Duration) string {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(timeout):
		t.Fatal("timed out waiting for watch event")
		return ""
	}
}

func assertNoEvent(t *testing.T, ch <-chan string, wait time.Duration) {
	t.Helper()
	select {
	case p := <-ch:
		t.Fatalf("unexpected extra event: %s", p)
	case <-time.After(wait):
	}
}

func TestWatchEmitsCreatedFile(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _, err := Watch(ctx, WatchConfig{Root: root, Debounce: 20 * time.Millisecond}, testLogger())
	require.NoError(t, err)

	path := filepath.Join(root, "scan.png")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	assert.Equal(t, path, recvPath(t, events, 2*time.Second))
}

func TestWatchFiltersExtensions(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _, err := Watch(ctx, WatchConfig{Root: root, Debounce: 20 * time.Millisecond}, testLogger())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))
	want := filepath.Join(root, "scan.pdf")
	require.NoError(t, os.WriteFile(want, []byte("x"), 0o644))

	assert.Equal(t, want, recvPath(t, events, 2*time.Second))
	assertNoEvent(t, events, 200*time.Millisecond)
}

func TestWatchInitialScan(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a.png")
	b := filepath.Join(root, "b.pdf")
	require.NoError(t, os.WriteFile(a, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("x"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _, err := Watch(ctx, WatchConfig{Root: root, InitialScan: true}, testLogger())
	require.NoError(t, err)

	got := map[string]bool{
		recvPath(t, events, time.Second): true,
		recvPath(t, events, time.Second): true,
	}
	assert.True(t, got[a])
	assert.True(t, got[b])
}

func TestWatchDebounceCoalesces(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _, err := Watch(ctx, WatchConfig{Root: root, Debounce: 150 * time.Millisecond}, testLogger())
	require.NoError(t, err)

	path := filepath.Join(root, "scan.png")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	assert.Equal(t, path, recvPath(t, events, 2*time.Second))
	assertNoEvent(t, events, 300*time.Millisecond)
}

func TestWatchMissingRoot(t *testing.T) {
	_, _, err := Watch(context.Background(), WatchConfig{Root: filepath.Join(t.TempDir(), "absent")}, testLogger())
	require.Error(t, err)
}

func TestWatchStopsOnCancel(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())

	events, _, err := Watch(ctx, WatchConfig{Root: root}, testLogger())
	require.NoError(t, err)

	cancel()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("watch channel not closed after cancel")
		}
	}
}
