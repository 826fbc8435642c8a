package storage

import (
	"context"
	"time"

	"github.com/commonplacehq/passagemcp/pkg/types"
)

// Store defines the interface for persisting passages, the indexing
// ledger, session history, saved passages, and usage events.
type Store interface {
	// Passage operations
	InsertPassage(ctx context.Context, passage *types.Passage) error
	InsertPassages(ctx context.Context, passages []*types.Passage) error
	GetPassage(ctx context.Context, id string) (*types.Passage, error)
	SetPassageEmbedding(ctx context.Context, id string, vector []float32) error
	DeletePassagesByFile(ctx context.Context, sourceFile string) error
	HasPassages(ctx context.Context) (bool, error)
	CountPassages(ctx context.Context) (int, error)
	RandomPassage(ctx context.Context, excludeShownSince *time.Time) (*types.Passage, error)
	RandomPassageExcludingFile(ctx context.Context, sourceFile string) (*types.Passage, error)
	ListEmbeddedPassages(ctx context.Context, excludeFile, excludeID string) ([]*types.Passage, error)

	// Indexing ledger operations
	RegisterPendingFile(ctx context.Context, path string) error
	UpsertIndexingStatus(ctx context.Context, path string, state types.IndexState, errMsg string) error
	GetIndexingStatus(ctx context.Context, path string) (*types.IndexingStatus, error)
	ListPendingFiles(ctx context.Context, limit int) ([]string, error)
	ListIndexableFiles(ctx context.Context, limit int) ([]string, error)
	CountByState(ctx context.Context) (map[types.IndexState]int, error)
	CountCompletedFiles(ctx context.Context) (int, error)

	// Session history operations
	RecordShown(ctx context.Context, passageID string) error
	ClearSessions(ctx context.Context) (int64, error)

	// Saved passage operations
	SavePassage(ctx context.Context, passageID, note string) error

	// Usage event operations
	LogEvent(ctx context.Context, action, passageID, info string) error

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Store // Embed Store interface for transaction operations
}
