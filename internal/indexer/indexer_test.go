package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commonplacehq/passagemcp/internal/embedder"
	"github.com/commonplacehq/passagemcp/internal/segmenter"
	"github.com/commonplacehq/passagemcp/internal/storage"
	"github.com/commonplacehq/passagemcp/pkg/types"
)

// stubSource lets tests script extraction results per file.
type stubSource struct {
	extract func(ctx context.Context, path string) (*types.Document, error)
}

func (s *stubSource) Extract(ctx context.Context, path string) (*types.Document, error) {
	return s.extract(ctx, path)
}

func (s *stubSource) Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".pdf":
		return true
	default:
		return false
	}
}

func testDoc(title string) *types.Document {
	para := strings.Repeat("All the riches of the world were spread before them. ", 4)
	para = strings.TrimSpace(para)
	return &types.Document{
		Text:       para,
		Paragraphs: []string{para},
		Metadata: types.DocumentMeta{
			Title:    title,
			FileType: types.FileTypeText,
		},
	}
}

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestCoordinator(store storage.Store, source DocumentSource, emb embedder.Embedder) *Coordinator {
	return NewCoordinator(store, source, segmenter.New(0, 0), emb, Config{})
}

func registerFiles(t *testing.T, store storage.Store, paths ...string) {
	t.Helper()
	for _, p := range paths {
		require.NoError(t, store.RegisterPendingFile(context.Background(), p))
	}
}

func requireState(t *testing.T, store storage.Store, path string, want types.IndexState) {
	t.Helper()
	status, err := store.GetIndexingStatus(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, want, status.State, "state of %s", path)
}

func TestDiscoverLibraryRegistersSupportedFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.xyz"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".cache"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".cache", "hidden.txt"), []byte("h"), 0o644))

	store := newTestStore(t)
	c := newTestCoordinator(store, &stubSource{}, nil)

	count, err := c.DiscoverLibrary(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	pending, err := store.ListPendingFiles(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, filepath.Join(root, "a.txt"), pending[0])
	assert.Equal(t, filepath.Join(root, "b.txt"), pending[1])
}

func TestDiscoverLibraryPreservesExistingState(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "done.txt")
	require.NoError(t, os.WriteFile(path, []byte("d"), 0o644))

	store := newTestStore(t)
	require.NoError(t, store.RegisterPendingFile(context.Background(), path))
	require.NoError(t, store.UpsertIndexingStatus(context.Background(), path, types.IndexStateCompleted, ""))

	c := newTestCoordinator(store, &stubSource{}, nil)
	_, err := c.DiscoverLibrary(context.Background(), root)
	require.NoError(t, err)

	requireState(t, store, path, types.IndexStateCompleted)
}

func TestIndexBatchCompletesFiles(t *testing.T) {
	store := newTestStore(t)
	registerFiles(t, store, "/lib/a.txt", "/lib/b.txt")

	source := &stubSource{extract: func(_ context.Context, path string) (*types.Document, error) {
		return testDoc(filepath.Base(path)), nil
	}}
	c := newTestCoordinator(store, source, nil)

	report, err := c.IndexBatch(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, report.FilesAttempted)
	assert.Equal(t, 2, report.FilesCompleted)
	assert.Equal(t, 0, report.FilesFailed)
	assert.Equal(t, 2, report.PassagesCreated)
	assert.Empty(t, report.Errors)

	requireState(t, store, "/lib/a.txt", types.IndexStateCompleted)
	requireState(t, store, "/lib/b.txt", types.IndexStateCompleted)

	count, err := store.CountPassages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestIndexBatchStoresMetadata(t *testing.T) {
	store := newTestStore(t)
	registerFiles(t, store, "/lib/novel.txt")

	source := &stubSource{extract: func(_ context.Context, _ string) (*types.Document, error) {
		doc := testDoc("The Idiot")
		doc.Metadata.Author = "Fyodor Dostoevsky"
		return doc, nil
	}}
	c := newTestCoordinator(store, source, nil)

	_, err := c.IndexBatch(context.Background(), 0)
	require.NoError(t, err)

	p, err := store.RandomPassage(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "/lib/novel.txt", p.SourceFile)
	require.NotNil(t, p.DocumentTitle)
	assert.Equal(t, "The Idiot", *p.DocumentTitle)
	require.NotNil(t, p.Author)
	assert.Equal(t, "Fyodor Dostoevsky", *p.Author)
}

func TestIndexBatchHonorsLimit(t *testing.T) {
	store := newTestStore(t)
	registerFiles(t, store, "/lib/a.txt", "/lib/b.txt", "/lib/c.txt")

	source := &stubSource{extract: func(_ context.Context, path string) (*types.Document, error) {
		return testDoc(filepath.Base(path)), nil
	}}
	c := newTestCoordinator(store, source, nil)

	report, err := c.IndexPendingBatch(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesAttempted)

	pending, err := store.ListPendingFiles(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestIndexBatchIsolatesFileFailures(t *testing.T) {
	store := newTestStore(t)
	registerFiles(t, store, "/lib/bad.txt", "/lib/good.txt")

	source := &stubSource{extract: func(_ context.Context, path string) (*types.Document, error) {
		if strings.Contains(path, "bad") {
			return nil, errors.New("corrupt file")
		}
		return testDoc(filepath.Base(path)), nil
	}}
	c := newTestCoordinator(store, source, nil)

	report, err := c.IndexBatch(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, report.FilesAttempted)
	assert.Equal(t, 1, report.FilesCompleted)
	assert.Equal(t, 1, report.FilesFailed)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "/lib/bad.txt")
	assert.Contains(t, report.Errors[0], "corrupt file")

	requireState(t, store, "/lib/good.txt", types.IndexStateCompleted)
	status, err := store.GetIndexingStatus(context.Background(), "/lib/bad.txt")
	require.NoError(t, err)
	assert.Equal(t, types.IndexStateFailed, status.State)
	assert.Contains(t, status.ErrorMessage, "corrupt file")
}

func TestIndexPendingBatchSkipsFailedFiles(t *testing.T) {
	store := newTestStore(t)
	registerFiles(t, store, "/lib/failed.txt", "/lib/fresh.txt")
	require.NoError(t, store.UpsertIndexingStatus(context.Background(), "/lib/failed.txt", types.IndexStateFailed, "corrupt file"))

	source := &stubSource{extract: func(_ context.Context, path string) (*types.Document, error) {
		return testDoc(filepath.Base(path)), nil
	}}
	c := newTestCoordinator(store, source, nil)

	report, err := c.IndexPendingBatch(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesAttempted)
	requireState(t, store, "/lib/failed.txt", types.IndexStateFailed)
	requireState(t, store, "/lib/fresh.txt", types.IndexStateCompleted)

	// A manual batch retries files that previously failed.
	report, err = c.IndexBatch(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesAttempted)
	requireState(t, store, "/lib/failed.txt", types.IndexStateCompleted)
}

func TestIndexBatchRejectsConcurrentRuns(t *testing.T) {
	store := newTestStore(t)
	c := newTestCoordinator(store, &stubSource{}, nil)

	require.True(t, c.TryLock())
	defer c.Unlock()

	_, err := c.IndexBatch(context.Background(), 0)
	assert.ErrorIs(t, err, ErrIndexingInProgress)

	_, err = c.IndexPendingBatch(context.Background(), 0)
	assert.ErrorIs(t, err, ErrIndexingInProgress)
}

func TestIndexBatchCancellationRevertsCurrentFile(t *testing.T) {
	store := newTestStore(t)
	registerFiles(t, store, "/lib/a.txt", "/lib/b.txt", "/lib/c.txt")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &stubSource{extract: func(ctx context.Context, path string) (*types.Document, error) {
		if strings.Contains(path, "b.txt") {
			cancel()
			return nil, ctx.Err()
		}
		return testDoc(filepath.Base(path)), nil
	}}
	c := newTestCoordinator(store, source, nil)

	report, err := c.IndexBatch(ctx, 0)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, report.FilesAttempted)
	assert.Equal(t, 1, report.FilesCompleted)

	requireState(t, store, "/lib/a.txt", types.IndexStateCompleted)
	requireState(t, store, "/lib/b.txt", types.IndexStatePending)
	requireState(t, store, "/lib/c.txt", types.IndexStatePending)
}

func TestIndexBatchReplacesPartialPassages(t *testing.T) {
	store := newTestStore(t)
	registerFiles(t, store, "/lib/a.txt")

	stale := &types.Passage{
		ID:         "stale-passage",
		Text:       "left over from an interrupted attempt",
		SourceFile: "/lib/a.txt",
		FileType:   types.FileTypeText,
		EndChar:    37,
	}
	require.NoError(t, store.InsertPassage(context.Background(), stale))

	source := &stubSource{extract: func(_ context.Context, path string) (*types.Document, error) {
		return testDoc(filepath.Base(path)), nil
	}}
	c := newTestCoordinator(store, source, nil)

	_, err := c.IndexBatch(context.Background(), 0)
	require.NoError(t, err)

	_, err = store.GetPassage(context.Background(), "stale-passage")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	count, err := store.CountPassages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestIndexBatchEmbedsPassages(t *testing.T) {
	store := newTestStore(t)
	registerFiles(t, store, "/lib/a.txt")

	emb, err := embedder.NewLocalProvider(nil)
	require.NoError(t, err)

	source := &stubSource{extract: func(_ context.Context, path string) (*types.Document, error) {
		return testDoc(filepath.Base(path)), nil
	}}
	c := newTestCoordinator(store, source, emb)

	_, err = c.IndexBatch(context.Background(), 0)
	require.NoError(t, err)

	embedded, err := store.ListEmbeddedPassages(context.Background(), "", "")
	require.NoError(t, err)
	require.Len(t, embedded, 1)
	assert.Len(t, embedded[0].Embedding, embedder.LocalDimension)
}

func TestIndexBatchPDFTimeout(t *testing.T) {
	store := newTestStore(t)
	registerFiles(t, store, "/lib/huge.pdf", "/lib/ok.txt")

	source := &stubSource{extract: func(ctx context.Context, path string) (*types.Document, error) {
		if strings.HasSuffix(path, ".pdf") {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return testDoc(filepath.Base(path)), nil
	}}
	c := NewCoordinator(store, source, segmenter.New(0, 0), nil, Config{PDFTimeout: 20 * time.Millisecond})

	report, err := c.IndexBatch(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesFailed)
	assert.Equal(t, 1, report.FilesCompleted)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "timed out")

	status, err := store.GetIndexingStatus(context.Background(), "/lib/huge.pdf")
	require.NoError(t, err)
	assert.Equal(t, types.IndexStateFailed, status.State)
	assert.Contains(t, status.ErrorMessage, "timed out")
	requireState(t, store, "/lib/ok.txt", types.IndexStateCompleted)
}

func TestWorkerDrainsBacklog(t *testing.T) {
	store := newTestStore(t)
	var paths []string
	for i := 0; i < 5; i++ {
		paths = append(paths, fmt.Sprintf("/lib/file%d.txt", i))
	}
	registerFiles(t, store, paths...)

	source := &stubSource{extract: func(_ context.Context, path string) (*types.Document, error) {
		return testDoc(filepath.Base(path)), nil
	}}
	c := newTestCoordinator(store, source, nil)
	w := NewWorker(c, 2)

	require.True(t, w.Start(context.Background()))
	select {
	case <-w.done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not drain the backlog")
	}

	assert.False(t, w.Running())
	pending, err := store.ListPendingFiles(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, pending)

	counts, err := store.CountByState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, counts[types.IndexStateCompleted])
}

func TestWorkerStartIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	registerFiles(t, store, "/lib/slow.txt")

	source := &stubSource{extract: func(ctx context.Context, _ string) (*types.Document, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	c := newTestCoordinator(store, source, nil)
	w := NewWorker(c, 1)

	require.True(t, w.Start(context.Background()))
	assert.False(t, w.Start(context.Background()))

	w.Stop()
	assert.False(t, w.Running())

	// The interrupted file is handed back for a later run.
	requireState(t, store, "/lib/slow.txt", types.IndexStatePending)
}

func TestWorkerStopWithoutStart(t *testing.T) {
	w := NewWorker(newTestCoordinator(newTestStore(t), &stubSource{}, nil), 1)
	w.Stop()
	assert.False(t, w.Running())
}

func TestWorkerConcurrentStartStop(t *testing.T) {
	store := newTestStore(t)
	registerFiles(t, store, "/lib/slow.txt")

	source := &stubSource{extract: func(ctx context.Context, _ string) (*types.Document, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	c := newTestCoordinator(store, source, nil)
	w := NewWorker(c, 1)

	// Start and Stop race from different goroutines, as when a tool
	// handler restarts the worker during shutdown.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			w.Start(context.Background())
		}()
		go func() {
			defer wg.Done()
			w.Stop()
		}()
	}
	wg.Wait()

	w.Stop()
	assert.False(t, w.Running())
	requireState(t, store, "/lib/slow.txt", types.IndexStatePending)
}

func TestWorkerWaitsOutManualBatch(t *testing.T) {
	store := newTestStore(t)
	registerFiles(t, store, "/lib/a.txt")

	source := &stubSource{extract: func(_ context.Context, path string) (*types.Document, error) {
		return testDoc(filepath.Base(path)), nil
	}}
	c := newTestCoordinator(store, source, nil)
	w := NewWorker(c, 1)
	w.retryDelay = 10 * time.Millisecond

	// Simulate a manual batch holding the lock when the worker starts.
	require.True(t, c.TryLock())
	require.True(t, w.Start(context.Background()))

	time.Sleep(30 * time.Millisecond)
	assert.True(t, w.Running())

	c.Unlock()
	select {
	case <-w.done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not resume after lock release")
	}
	requireState(t, store, "/lib/a.txt", types.IndexStateCompleted)
}
