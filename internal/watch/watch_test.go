package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"evotrace/internal/types"
)

type fakeIngestor struct {
	mu    sync.Mutex
	calls []struct {
		code     string
		language string
	}
}

func (f *fakeIngestor) TrackEvolution(code, language string, ctx types.ConversationContext) (*types.EvolutionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, struct {
		code     string
		language string
	}{code, language})
	return &types.EvolutionResult{
		Evolution: types.CodeEvolution{Type: types.EvolutionInitial},
	}, nil
}

func (f *fakeIngestor) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeIngestor) last() (string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.calls[len(f.calls)-1]
	return c.code, c.language
}

func TestWatcherIngestsSavedFile(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	ingestor := &fakeIngestor{}
	w := New(ingestor, []string{".go"}, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, dir) }()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n\nfunc main() {}\n"), 0644))

	require.Eventually(t, func() bool { return ingestor.count() > 0 },
		5*time.Second, 20*time.Millisecond, "file save never ingested")

	code, language := ingestor.last()
	assert.Contains(t, code, "package main")
	assert.Equal(t, "go", language)

	cancel()
	err := <-done
	assert.True(t, errors.Is(err, context.Canceled), "Run returned %v", err)
}

func TestWatcherIgnoresOtherExtensions(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	ingestor := &fakeIngestor{}
	w := New(ingestor, []string{".go"}, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, dir) }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("# notes\n"), 0644))
	time.Sleep(300 * time.Millisecond)

	assert.Zero(t, ingestor.count(), "markdown save must not be ingested")

	cancel()
	<-done
}

func TestWatcherDebouncesRapidSaves(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	ingestor := &fakeIngestor{}
	w := New(ingestor, []string{".go"}, 200*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, dir) }()

	time.Sleep(100 * time.Millisecond)
	path := filepath.Join(dir, "burst.go")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("package main\n"), 0644))
		time.Sleep(20 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return ingestor.count() > 0 },
		5*time.Second, 20*time.Millisecond)
	time.Sleep(300 * time.Millisecond)

	assert.Equal(t, 1, ingestor.count(), "burst of saves must collapse to one ingest")

	cancel()
	<-done
}

func TestNewDefaultsToKnownLanguages(t *testing.T) {
	w := New(&fakeIngestor{}, nil, 0)
	assert.True(t, w.extensions[".go"])
	assert.True(t, w.extensions[".py"])
	assert.False(t, w.extensions[".md"])
	assert.Equal(t, 500*time.Millisecond, w.debounce)
}
