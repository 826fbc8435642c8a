package types

import "time"

// IndexState is the lifecycle state of one file in the indexing ledger.
type IndexState string

const (
	IndexStatePending   IndexState = "pending"
	IndexStateIndexing  IndexState = "indexing"
	IndexStateCompleted IndexState = "completed"
	IndexStateFailed    IndexState = "failed"
)

// Valid reports whether s is one of the known ledger states.
func (s IndexState) Valid() bool {
	switch s {
	case IndexStatePending, IndexStateIndexing, IndexStateCompleted, IndexStateFailed:
		return true
	}
	return false
}

// IndexingStatus is one ledger row: a file path and its current state.
// ErrorMessage is set only for failed files. IndexedAt is stamped when
// the file reaches completed.
type IndexingStatus struct {
	FilePath     string
	State        IndexState
	ErrorMessage string
	IndexedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
