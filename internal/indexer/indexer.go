// Package indexer coordinates the pipeline that turns library files into
// stored passages: discovery, extraction, segmentation, optional embedding,
// and the indexing status ledger. A single IndexLock serializes runs so the
// background worker and manual batch requests never index concurrently.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/commonplacehq/passagemcp/internal/embedder"
	"github.com/commonplacehq/passagemcp/internal/segmenter"
	"github.com/commonplacehq/passagemcp/internal/storage"
	"github.com/commonplacehq/passagemcp/pkg/types"
)

// ErrIndexingInProgress is returned when a batch is requested while another
// indexing run holds the lock.
var ErrIndexingInProgress = errors.New("indexing already in progress")

// errStorage marks ledger or passage store failures that must abort the
// whole batch instead of being recorded against a single file.
var errStorage = errors.New("storage failure")

// DocumentSource extracts documents from files on disk. Satisfied by
// extractor.Registry; tests substitute stubs.
type DocumentSource interface {
	Extract(ctx context.Context, path string) (*types.Document, error)
	Supported(path string) bool
}

// Config controls per-run coordinator behavior.
type Config struct {
	// PDFTimeout bounds extraction of a single PDF file. Zero disables
	// the deadline. Other formats are not subject to it.
	PDFTimeout time.Duration
	// EmbedWorkers is the number of concurrent embedding requests per
	// file. Values below 1 are treated as DefaultEmbedWorkers.
	EmbedWorkers int
}

// DefaultEmbedWorkers bounds concurrent embedding requests for one file.
const DefaultEmbedWorkers = 4

// Coordinator runs the indexing pipeline over a passage store.
// The embedder may be nil; passages are then stored without vectors and
// retrieval falls back to random suggestions.
type Coordinator struct {
	store     storage.Store
	source    DocumentSource
	segmenter *segmenter.Segmenter
	embedder  embedder.Embedder
	lock      *IndexLock
	cfg       Config
}

// NewCoordinator creates a coordinator. emb may be nil.
func NewCoordinator(store storage.Store, source DocumentSource, seg *segmenter.Segmenter, emb embedder.Embedder, cfg Config) *Coordinator {
	if cfg.EmbedWorkers < 1 {
		cfg.EmbedWorkers = DefaultEmbedWorkers
	}
	return &Coordinator{
		store:     store,
		source:    source,
		segmenter: seg,
		embedder:  emb,
		lock:      &IndexLock{},
		cfg:       cfg,
	}
}

// TryLock attempts to take the indexing lock without blocking. Callers
// that need to keep indexing out of the way, such as tests or shutdown
// paths, pair it with Unlock.
func (c *Coordinator) TryLock() bool { return c.lock.TryAcquire() }

// Unlock releases the indexing lock taken with TryLock.
func (c *Coordinator) Unlock() { c.lock.Release() }

// DiscoverLibrary walks root, registers every supported file as pending in
// the ledger, and returns the number of supported files found. Hidden
// directories are skipped. Files already in the ledger keep their state.
// Registration order is deterministic (sorted by path).
func (c *Coordinator) DiscoverLibrary(ctx context.Context, root string) (int, error) {
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != root && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if c.source.Supported(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to scan library %s: %w", root, err)
	}

	sort.Strings(files)
	for _, f := range files {
		if err := c.store.RegisterPendingFile(ctx, f); err != nil {
			return 0, fmt.Errorf("failed to register %s: %w", f, err)
		}
	}

	log.Info().Str("root", root).Int("files", len(files)).Msg("library discovered")
	return len(files), nil
}

// IndexBatch indexes up to limit files that have never completed, including
// previously failed ones. Returns ErrIndexingInProgress if another run holds
// the lock. limit <= 0 means no limit.
func (c *Coordinator) IndexBatch(ctx context.Context, limit int) (*types.BatchReport, error) {
	if !c.lock.TryAcquire() {
		return nil, ErrIndexingInProgress
	}
	defer c.lock.Release()

	paths, err := c.store.ListIndexableFiles(ctx, limit)
	if err != nil {
		return nil, err
	}
	return c.indexPaths(ctx, paths)
}

// IndexPendingBatch indexes up to limit files still in the pending state.
// The background worker uses this so files that already failed are not
// retried automatically on every pass.
func (c *Coordinator) IndexPendingBatch(ctx context.Context, limit int) (*types.BatchReport, error) {
	if !c.lock.TryAcquire() {
		return nil, ErrIndexingInProgress
	}
	defer c.lock.Release()

	paths, err := c.store.ListPendingFiles(ctx, limit)
	if err != nil {
		return nil, err
	}
	return c.indexPaths(ctx, paths)
}

// indexPaths runs the per-file pipeline over paths. Individual file failures
// are recorded in the ledger and the report; the batch continues. Storage
// failures and context cancellation abort the batch, and a file interrupted
// by cancellation is reverted to pending so a later run picks it up.
func (c *Coordinator) indexPaths(ctx context.Context, paths []string) (*types.BatchReport, error) {
	start := time.Now()
	report := &types.BatchReport{}

	for _, path := range paths {
		if ctx.Err() != nil {
			report.Duration = time.Since(start)
			return report, ctx.Err()
		}

		report.FilesAttempted++
		count, err := c.indexFile(ctx, path)
		if err == nil {
			report.FilesCompleted++
			report.PassagesCreated += count
			continue
		}

		if ctx.Err() != nil {
			// Interrupted mid-file: hand the file back to a future run.
			if revertErr := c.store.UpsertIndexingStatus(context.Background(), path, types.IndexStatePending, ""); revertErr != nil {
				log.Error().Err(revertErr).Str("file", path).Msg("failed to revert interrupted file to pending")
			}
			report.FilesAttempted--
			report.Duration = time.Since(start)
			return report, ctx.Err()
		}

		if errors.Is(err, errStorage) {
			report.Duration = time.Since(start)
			return report, err
		}

		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			msg = fmt.Sprintf("extraction timed out after %s", c.cfg.PDFTimeout)
		}
		report.FilesFailed++
		report.Errors = append(report.Errors, fmt.Sprintf("%s: %s", path, msg))
		log.Warn().Str("file", path).Str("reason", msg).Msg("file failed to index")

		if serr := c.store.UpsertIndexingStatus(ctx, path, types.IndexStateFailed, msg); serr != nil {
			report.Duration = time.Since(start)
			return report, fmt.Errorf("%w: %v", errStorage, serr)
		}
	}

	report.Duration = time.Since(start)
	log.Info().
		Int("attempted", report.FilesAttempted).
		Int("completed", report.FilesCompleted).
		Int("failed", report.FilesFailed).
		Int("passages", report.PassagesCreated).
		Dur("duration", report.Duration).
		Msg("indexing batch finished")
	return report, nil
}

// indexFile runs one file through extraction, segmentation, embedding, and
// storage. Replaces any passages left over from a previous partial attempt
// before inserting.
func (c *Coordinator) indexFile(ctx context.Context, path string) (int, error) {
	log.Debug().Str("file", path).Msg("indexing file")

	if err := c.store.UpsertIndexingStatus(ctx, path, types.IndexStateIndexing, ""); err != nil {
		return 0, fmt.Errorf("%w: %v", errStorage, err)
	}

	doc, err := c.extract(ctx, path)
	if err != nil {
		return 0, err
	}

	drafts := c.segmenter.Segment(doc)
	passages := c.buildPassages(path, doc, drafts)

	if err := c.embedPassages(ctx, passages); err != nil {
		return 0, err
	}

	if err := c.store.DeletePassagesByFile(ctx, path); err != nil {
		return 0, fmt.Errorf("%w: %v", errStorage, err)
	}
	if len(passages) > 0 {
		if err := c.store.InsertPassages(ctx, passages); err != nil {
			return 0, fmt.Errorf("%w: %v", errStorage, err)
		}
	}
	if err := c.store.UpsertIndexingStatus(ctx, path, types.IndexStateCompleted, ""); err != nil {
		return 0, fmt.Errorf("%w: %v", errStorage, err)
	}

	return len(passages), nil
}

// extract calls the document source, applying the PDF deadline and running
// the extraction in a goroutine so a wedged parser cannot stall the batch
// past its timeout.
func (c *Coordinator) extract(ctx context.Context, path string) (*types.Document, error) {
	if c.cfg.PDFTimeout > 0 && strings.EqualFold(filepath.Ext(path), ".pdf") {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.PDFTimeout)
		defer cancel()
	}

	type result struct {
		doc *types.Document
		err error
	}
	ch := make(chan result, 1)
	go func() {
		doc, err := c.source.Extract(ctx, path)
		ch <- result{doc, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.doc, r.err
	}
}

// buildPassages converts drafts into persistable passages, attaching the
// document metadata each passage carries denormalized.
func (c *Coordinator) buildPassages(path string, doc *types.Document, drafts []types.PassageDraft) []*types.Passage {
	now := time.Now().UTC()
	passages := make([]*types.Passage, 0, len(drafts))
	for _, d := range drafts {
		p := &types.Passage{
			ID:          uuid.NewString(),
			Text:        d.Text,
			SourceFile:  path,
			FileType:    doc.Metadata.FileType,
			PageNumber:  d.PageNumber,
			LineNumber:  d.LineNumber,
			Section:     d.Section,
			StartChar:   d.StartChar,
			EndChar:     d.EndChar,
			ExtractedAt: now,
		}
		if doc.Metadata.Title != "" {
			title := doc.Metadata.Title
			p.DocumentTitle = &title
		}
		if doc.Metadata.Author != "" {
			author := doc.Metadata.Author
			p.Author = &author
		}
		passages = append(passages, p)
	}
	return passages
}

// embedPassages computes vectors for all passages concurrently. A failed
// embedding leaves that passage without a vector rather than failing the
// file; only cancellation propagates.
func (c *Coordinator) embedPassages(ctx context.Context, passages []*types.Passage) error {
	if c.embedder == nil || len(passages) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.EmbedWorkers)
	for _, p := range passages {
		p := p
		g.Go(func() error {
			emb, err := c.embedder.GenerateEmbedding(gctx, embedder.EmbeddingRequest{Text: p.Text})
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Warn().Err(err).Str("passage", p.ID).Msg("embedding failed, storing passage without vector")
				return nil
			}
			p.Embedding = emb.Vector
			return nil
		})
	}
	return g.Wait()
}
