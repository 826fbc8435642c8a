package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/commonplacehq/passagemcp/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrNoPassages is returned when a random draw finds an empty library
	ErrNoPassages = errors.New("no passages available")
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStore) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, store: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx    *sql.Tx
	store *SQLiteStore
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStore) querier() querier {
	return s.db
}

// Passage operations

const passageColumns = `id, text, source_file, file_type, page_number, line_number,
       chapter, section, document_title, author, start_char, end_char, extracted_at, embedding`

// rowScanner abstracts *sql.Row and *sql.Rows for scanPassage
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanPassage reads one passage row, decoding nullable columns and the
// embedding blob.
func scanPassage(row rowScanner) (*types.Passage, error) {
	var p types.Passage
	var pageNumber, lineNumber sql.NullInt64
	var chapter, section, documentTitle, author sql.NullString
	var extractedAt sql.NullTime
	var embedding []byte

	err := row.Scan(
		&p.ID, &p.Text, &p.SourceFile, &p.FileType, &pageNumber, &lineNumber,
		&chapter, &section, &documentTitle, &author,
		&p.StartChar, &p.EndChar, &extractedAt, &embedding,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if pageNumber.Valid {
		v := int(pageNumber.Int64)
		p.PageNumber = &v
	}
	if lineNumber.Valid {
		v := int(lineNumber.Int64)
		p.LineNumber = &v
	}
	if chapter.Valid {
		p.Chapter = &chapter.String
	}
	if section.Valid {
		p.Section = &section.String
	}
	if documentTitle.Valid {
		p.DocumentTitle = &documentTitle.String
	}
	if author.Valid {
		p.Author = &author.String
	}
	if extractedAt.Valid {
		p.ExtractedAt = extractedAt.Time
	}
	if len(embedding) > 0 {
		p.Embedding = deserializeVector(embedding)
	}
	return &p, nil
}

// insertPassageWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) insertPassageWithQuerier(ctx context.Context, q querier, passage *types.Passage) error {
	if err := passage.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO passages (id, text, source_file, file_type, page_number, line_number,
		                      chapter, section, document_title, author, start_char, end_char,
		                      extracted_at, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if passage.ExtractedAt.IsZero() {
		passage.ExtractedAt = time.Now()
	}
	var embedding []byte
	if len(passage.Embedding) > 0 {
		embedding = serializeVector(passage.Embedding)
	}
	_, err := q.ExecContext(ctx, query,
		passage.ID, passage.Text, passage.SourceFile, string(passage.FileType),
		nullableInt(passage.PageNumber), nullableInt(passage.LineNumber),
		nullableString(passage.Chapter), nullableString(passage.Section),
		nullableString(passage.DocumentTitle), nullableString(passage.Author),
		passage.StartChar, passage.EndChar, passage.ExtractedAt, embedding)
	if err != nil {
		return fmt.Errorf("failed to insert passage %s: %w", passage.ID, err)
	}
	return nil
}

func (s *SQLiteStore) InsertPassage(ctx context.Context, passage *types.Passage) error {
	return s.insertPassageWithQuerier(ctx, s.querier(), passage)
}

// InsertPassages inserts all passages in a single transaction, so a
// file's passages land atomically.
func (s *SQLiteStore) InsertPassages(ctx context.Context, passages []*types.Passage) error {
	if len(passages) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, passage := range passages {
		if err := s.insertPassageWithQuerier(ctx, tx, passage); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit passages: %w", err)
	}
	return nil
}

// getPassageWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) getPassageWithQuerier(ctx context.Context, q querier, id string) (*types.Passage, error) {
	query := `SELECT ` + passageColumns + ` FROM passages WHERE id = ?`
	return scanPassage(q.QueryRowContext(ctx, query, id))
}

func (s *SQLiteStore) GetPassage(ctx context.Context, id string) (*types.Passage, error) {
	return s.getPassageWithQuerier(ctx, s.querier(), id)
}

// setPassageEmbeddingWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) setPassageEmbeddingWithQuerier(ctx context.Context, q querier, id string, vector []float32) error {
	result, err := q.ExecContext(ctx,
		"UPDATE passages SET embedding = ? WHERE id = ?",
		serializeVector(vector), id)
	if err != nil {
		return fmt.Errorf("failed to set embedding for passage %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) SetPassageEmbedding(ctx context.Context, id string, vector []float32) error {
	return s.setPassageEmbeddingWithQuerier(ctx, s.querier(), id, vector)
}

// deletePassagesByFileWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) deletePassagesByFileWithQuerier(ctx context.Context, q querier, sourceFile string) error {
	_, err := q.ExecContext(ctx, "DELETE FROM passages WHERE source_file = ?", sourceFile)
	if err != nil {
		return fmt.Errorf("failed to delete passages for %s: %w", sourceFile, err)
	}
	return nil
}

func (s *SQLiteStore) DeletePassagesByFile(ctx context.Context, sourceFile string) error {
	return s.deletePassagesByFileWithQuerier(ctx, s.querier(), sourceFile)
}

// hasPassagesWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) hasPassagesWithQuerier(ctx context.Context, q querier) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM passages LIMIT 1").Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check for passages: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) HasPassages(ctx context.Context) (bool, error) {
	return s.hasPassagesWithQuerier(ctx, s.querier())
}

// countPassagesWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) countPassagesWithQuerier(ctx context.Context, q querier) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM passages").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count passages: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) CountPassages(ctx context.Context) (int, error) {
	return s.countPassagesWithQuerier(ctx, s.querier())
}

// randomPassageWithQuerier draws a uniform random passage, optionally
// excluding passages shown since the cutoff.
func (s *SQLiteStore) randomPassageWithQuerier(ctx context.Context, q querier, excludeShownSince *time.Time) (*types.Passage, error) {
	var row *sql.Row
	if excludeShownSince != nil {
		query := `
			SELECT ` + passageColumns + `
			FROM passages
			WHERE id NOT IN (SELECT passage_id FROM session_history WHERE shown_at >= ?)
			ORDER BY RANDOM()
			LIMIT 1
		`
		row = q.QueryRowContext(ctx, query, *excludeShownSince)
	} else {
		query := `SELECT ` + passageColumns + ` FROM passages ORDER BY RANDOM() LIMIT 1`
		row = q.QueryRowContext(ctx, query)
	}
	passage, err := scanPassage(row)
	if err == ErrNotFound {
		return nil, ErrNoPassages
	}
	return passage, err
}

func (s *SQLiteStore) RandomPassage(ctx context.Context, excludeShownSince *time.Time) (*types.Passage, error) {
	return s.randomPassageWithQuerier(ctx, s.querier(), excludeShownSince)
}

// randomPassageExcludingFileWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) randomPassageExcludingFileWithQuerier(ctx context.Context, q querier, sourceFile string) (*types.Passage, error) {
	query := `
		SELECT ` + passageColumns + `
		FROM passages
		WHERE source_file != ?
		ORDER BY RANDOM()
		LIMIT 1
	`
	passage, err := scanPassage(q.QueryRowContext(ctx, query, sourceFile))
	if err == ErrNotFound {
		return nil, ErrNoPassages
	}
	return passage, err
}

func (s *SQLiteStore) RandomPassageExcludingFile(ctx context.Context, sourceFile string) (*types.Passage, error) {
	return s.randomPassageExcludingFileWithQuerier(ctx, s.querier(), sourceFile)
}

// listEmbeddedPassagesWithQuerier returns all passages that carry an
// embedding, excluding one source file and one passage ID.
func (s *SQLiteStore) listEmbeddedPassagesWithQuerier(ctx context.Context, q querier, excludeFile, excludeID string) ([]*types.Passage, error) {
	query := `
		SELECT ` + passageColumns + `
		FROM passages
		WHERE embedding IS NOT NULL
		  AND source_file != ?
		  AND id != ?
	`
	rows, err := q.QueryContext(ctx, query, excludeFile, excludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query embedded passages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var passages []*types.Passage
	for rows.Next() {
		passage, err := scanPassage(rows)
		if err != nil {
			return nil, err
		}
		passages = append(passages, passage)
	}
	return passages, rows.Err()
}

func (s *SQLiteStore) ListEmbeddedPassages(ctx context.Context, excludeFile, excludeID string) ([]*types.Passage, error) {
	return s.listEmbeddedPassagesWithQuerier(ctx, s.querier(), excludeFile, excludeID)
}

// Indexing ledger operations

// registerPendingFileWithQuerier registers a newly discovered file as
// pending. Files already in the ledger keep their current state.
func (s *SQLiteStore) registerPendingFileWithQuerier(ctx context.Context, q querier, path string) error {
	query := `
		INSERT INTO indexing_status (file_path, status, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(file_path) DO NOTHING
	`
	now := time.Now()
	_, err := q.ExecContext(ctx, query, path, string(types.IndexStatePending), now, now)
	if err != nil {
		return fmt.Errorf("failed to register file %s: %w", path, err)
	}
	return nil
}

func (s *SQLiteStore) RegisterPendingFile(ctx context.Context, path string) error {
	return s.registerPendingFileWithQuerier(ctx, s.querier(), path)
}

// upsertIndexingStatusWithQuerier writes a file's ledger state. The
// indexed_at stamp is set when the file reaches completed and cleared
// otherwise; errMsg is stored as-is (empty clears a previous error).
func (s *SQLiteStore) upsertIndexingStatusWithQuerier(ctx context.Context, q querier, path string, state types.IndexState, errMsg string) error {
	if !state.Valid() {
		return fmt.Errorf("invalid indexing state %q for %s", state, path)
	}

	query := `
		INSERT INTO indexing_status (file_path, status, error_message, indexed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_path) DO UPDATE SET
			status = excluded.status,
			error_message = excluded.error_message,
			indexed_at = excluded.indexed_at,
			updated_at = excluded.updated_at
	`
	now := time.Now()
	var indexedAt interface{}
	if state == types.IndexStateCompleted {
		indexedAt = now
	}
	var message interface{}
	if errMsg != "" {
		message = errMsg
	}
	_, err := q.ExecContext(ctx, query, path, string(state), message, indexedAt, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert indexing status for %s: %w", path, err)
	}
	return nil
}

func (s *SQLiteStore) UpsertIndexingStatus(ctx context.Context, path string, state types.IndexState, errMsg string) error {
	return s.upsertIndexingStatusWithQuerier(ctx, s.querier(), path, state, errMsg)
}

// getIndexingStatusWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) getIndexingStatusWithQuerier(ctx context.Context, q querier, path string) (*types.IndexingStatus, error) {
	query := `
		SELECT file_path, status, error_message, indexed_at, created_at, updated_at
		FROM indexing_status
		WHERE file_path = ?
	`
	var status types.IndexingStatus
	var state string
	var errMsg sql.NullString
	var indexedAt sql.NullTime
	err := q.QueryRowContext(ctx, query, path).Scan(
		&status.FilePath, &state, &errMsg, &indexedAt,
		&status.CreatedAt, &status.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	status.State = types.IndexState(state)
	if errMsg.Valid {
		status.ErrorMessage = errMsg.String
	}
	if indexedAt.Valid {
		status.IndexedAt = &indexedAt.Time
	}
	return &status, nil
}

func (s *SQLiteStore) GetIndexingStatus(ctx context.Context, path string) (*types.IndexingStatus, error) {
	return s.getIndexingStatusWithQuerier(ctx, s.querier(), path)
}

// listFilesByStateWithQuerier lists file paths matching a status filter,
// ordered by path for reproducible batches.
func (s *SQLiteStore) listFilesByStateWithQuerier(ctx context.Context, q querier, where string, limit int, args ...interface{}) ([]string, error) {
	query := "SELECT file_path FROM indexing_status WHERE " + where + " ORDER BY file_path"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, rows.Err()
}

// ListPendingFiles returns up to limit pending files (limit <= 0 means all).
func (s *SQLiteStore) ListPendingFiles(ctx context.Context, limit int) ([]string, error) {
	return s.listFilesByStateWithQuerier(ctx, s.querier(), "status = ?", limit, string(types.IndexStatePending))
}

// ListIndexableFiles returns up to limit files that have not completed
// indexing: pending, failed, and stale indexing rows are all eligible.
func (s *SQLiteStore) ListIndexableFiles(ctx context.Context, limit int) ([]string, error) {
	return s.listFilesByStateWithQuerier(ctx, s.querier(), "status != ?", limit, string(types.IndexStateCompleted))
}

// countByStateWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) countByStateWithQuerier(ctx context.Context, q querier) (map[types.IndexState]int, error) {
	rows, err := q.QueryContext(ctx, "SELECT status, COUNT(*) FROM indexing_status GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count ledger states: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[types.IndexState]int)
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		counts[types.IndexState(state)] = count
	}
	return counts, rows.Err()
}

func (s *SQLiteStore) CountByState(ctx context.Context) (map[types.IndexState]int, error) {
	return s.countByStateWithQuerier(ctx, s.querier())
}

// countCompletedFilesWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) countCompletedFilesWithQuerier(ctx context.Context, q querier) (int, error) {
	var count int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM indexing_status WHERE status = ?",
		string(types.IndexStateCompleted)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed files: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) CountCompletedFiles(ctx context.Context) (int, error) {
	return s.countCompletedFilesWithQuerier(ctx, s.querier())
}

// Session history operations

// recordShownWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) recordShownWithQuerier(ctx context.Context, q querier, passageID string) error {
	_, err := q.ExecContext(ctx,
		"INSERT INTO session_history (passage_id, shown_at) VALUES (?, ?)",
		passageID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record shown passage %s: %w", passageID, err)
	}
	return nil
}

func (s *SQLiteStore) RecordShown(ctx context.Context, passageID string) error {
	return s.recordShownWithQuerier(ctx, s.querier(), passageID)
}

// clearSessionsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) clearSessionsWithQuerier(ctx context.Context, q querier) (int64, error) {
	result, err := q.ExecContext(ctx, "DELETE FROM session_history")
	if err != nil {
		return 0, fmt.Errorf("failed to clear session history: %w", err)
	}
	return result.RowsAffected()
}

func (s *SQLiteStore) ClearSessions(ctx context.Context) (int64, error) {
	return s.clearSessionsWithQuerier(ctx, s.querier())
}

// Saved passage operations

// savePassageWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) savePassageWithQuerier(ctx context.Context, q querier, passageID, note string) error {
	var noteVal interface{}
	if note != "" {
		noteVal = note
	}
	_, err := q.ExecContext(ctx,
		"INSERT INTO saved_passages (passage_id, note, saved_at) VALUES (?, ?, ?)",
		passageID, noteVal, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save passage %s: %w", passageID, err)
	}
	return nil
}

func (s *SQLiteStore) SavePassage(ctx context.Context, passageID, note string) error {
	return s.savePassageWithQuerier(ctx, s.querier(), passageID, note)
}

// Usage event operations

// logEventWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) logEventWithQuerier(ctx context.Context, q querier, action, passageID, info string) error {
	var passageVal, infoVal interface{}
	if passageID != "" {
		passageVal = passageID
	}
	if info != "" {
		infoVal = info
	}
	_, err := q.ExecContext(ctx,
		"INSERT INTO usage_events (action, passage_id, info, created_at) VALUES (?, ?, ?, ?)",
		action, passageVal, infoVal, time.Now())
	if err != nil {
		return fmt.Errorf("failed to log %s event: %w", action, err)
	}
	return nil
}

func (s *SQLiteStore) LogEvent(ctx context.Context, action, passageID, info string) error {
	return s.logEventWithQuerier(ctx, s.querier(), action, passageID, info)
}

// Nullable conversion helpers

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// Transaction delegation

func (t *sqliteTx) InsertPassage(ctx context.Context, passage *types.Passage) error {
	return t.store.insertPassageWithQuerier(ctx, t.querier(), passage)
}

func (t *sqliteTx) InsertPassages(ctx context.Context, passages []*types.Passage) error {
	for _, passage := range passages {
		if err := t.store.insertPassageWithQuerier(ctx, t.querier(), passage); err != nil {
			return err
		}
	}
	return nil
}

func (t *sqliteTx) GetPassage(ctx context.Context, id string) (*types.Passage, error) {
	return t.store.getPassageWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) SetPassageEmbedding(ctx context.Context, id string, vector []float32) error {
	return t.store.setPassageEmbeddingWithQuerier(ctx, t.querier(), id, vector)
}

func (t *sqliteTx) DeletePassagesByFile(ctx context.Context, sourceFile string) error {
	return t.store.deletePassagesByFileWithQuerier(ctx, t.querier(), sourceFile)
}

func (t *sqliteTx) HasPassages(ctx context.Context) (bool, error) {
	return t.store.hasPassagesWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) CountPassages(ctx context.Context) (int, error) {
	return t.store.countPassagesWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) RandomPassage(ctx context.Context, excludeShownSince *time.Time) (*types.Passage, error) {
	return t.store.randomPassageWithQuerier(ctx, t.querier(), excludeShownSince)
}

func (t *sqliteTx) RandomPassageExcludingFile(ctx context.Context, sourceFile string) (*types.Passage, error) {
	return t.store.randomPassageExcludingFileWithQuerier(ctx, t.querier(), sourceFile)
}

func (t *sqliteTx) ListEmbeddedPassages(ctx context.Context, excludeFile, excludeID string) ([]*types.Passage, error) {
	return t.store.listEmbeddedPassagesWithQuerier(ctx, t.querier(), excludeFile, excludeID)
}

func (t *sqliteTx) RegisterPendingFile(ctx context.Context, path string) error {
	return t.store.registerPendingFileWithQuerier(ctx, t.querier(), path)
}

func (t *sqliteTx) UpsertIndexingStatus(ctx context.Context, path string, state types.IndexState, errMsg string) error {
	return t.store.upsertIndexingStatusWithQuerier(ctx, t.querier(), path, state, errMsg)
}

func (t *sqliteTx) GetIndexingStatus(ctx context.Context, path string) (*types.IndexingStatus, error) {
	return t.store.getIndexingStatusWithQuerier(ctx, t.querier(), path)
}

func (t *sqliteTx) ListPendingFiles(ctx context.Context, limit int) ([]string, error) {
	return t.store.listFilesByStateWithQuerier(ctx, t.querier(), "status = ?", limit, string(types.IndexStatePending))
}

func (t *sqliteTx) ListIndexableFiles(ctx context.Context, limit int) ([]string, error) {
	return t.store.listFilesByStateWithQuerier(ctx, t.querier(), "status != ?", limit, string(types.IndexStateCompleted))
}

func (t *sqliteTx) CountByState(ctx context.Context) (map[types.IndexState]int, error) {
	return t.store.countByStateWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) CountCompletedFiles(ctx context.Context) (int, error) {
	return t.store.countCompletedFilesWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) RecordShown(ctx context.Context, passageID string) error {
	return t.store.recordShownWithQuerier(ctx, t.querier(), passageID)
}

func (t *sqliteTx) ClearSessions(ctx context.Context) (int64, error) {
	return t.store.clearSessionsWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) SavePassage(ctx context.Context, passageID, note string) error {
	return t.store.savePassageWithQuerier(ctx, t.querier(), passageID, note)
}

func (t *sqliteTx) LogEvent(ctx context.Context, action, passageID, info string) error {
	return t.store.logEventWithQuerier(ctx, t.querier(), action, passageID, info)
}

func (t *sqliteTx) Close() error {
	return nil // Transaction close is handled by Commit/Rollback
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, errors.New("nested transactions not supported")
}
