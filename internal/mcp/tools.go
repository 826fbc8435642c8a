package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog/log"

	"github.com/commonplacehq/passagemcp/internal/export"
	"github.com/commonplacehq/passagemcp/internal/indexer"
	"github.com/commonplacehq/passagemcp/internal/storage"
	"github.com/commonplacehq/passagemcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeLibraryEmpty       = -32001 // No passages indexed yet
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodePassageNotFound    = -32003 // Referenced passage does not exist
)

// handleIndexLibrary handles the index_library tool invocation
func (s *Server) handleIndexLibrary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	path := getStringDefault(args, "path", s.cfg.LibraryPath)
	if err := validateLibraryPath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid library path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	discovered, err := s.coordinator.DiscoverLibrary(ctx, path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "library discovery failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"library_path":     path,
		"files_discovered": discovered,
	}

	// Index a first batch synchronously so the caller gets passages right
	// away; the background worker drains the rest.
	report, err := s.coordinator.IndexBatch(ctx, s.cfg.InitialBatchSize)
	switch {
	case errors.Is(err, indexer.ErrIndexingInProgress):
		response["initial_batch"] = "skipped, indexing already in progress"
	case err != nil:
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	default:
		response["initial_batch"] = reportResponse(report)
	}

	response["background_indexing"] = s.worker.Start(context.Background()) || s.worker.Running()

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIndexNextBatch handles the index_next_batch tool invocation
func (s *Server) handleIndexNextBatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	batchSize := getIntDefault(args, "batch_size", s.cfg.ProgressiveBatchSize)
	if batchSize < 1 || batchSize > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "batch_size must be between 1 and 100", map[string]interface{}{
			"param": "batch_size",
			"value": batchSize,
		})
	}

	report, err := s.coordinator.IndexBatch(ctx, batchSize)
	if errors.Is(err, indexer.ErrIndexingInProgress) {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := reportResponse(report)
	if counts, err := s.storage.CountByState(ctx); err == nil {
		response["files_remaining"] = counts[types.IndexStatePending] + counts[types.IndexStateFailed]
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleRandomPassage handles the random_passage tool invocation
func (s *Server) handleRandomPassage(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	passage, err := s.retriever.RandomPassage(ctx)
	if errors.Is(err, storage.ErrNoPassages) {
		return nil, newMCPError(ErrorCodeLibraryEmpty, "no passages indexed yet, run index_library first", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to pick a passage", map[string]interface{}{
			"error": err.Error(),
		})
	}

	s.logEvent(ctx, "random_passage", passage.ID, "")

	return mcp.NewToolResultText(formatJSON(passageResponse(passage))), nil
}

// handleRelatedPassages handles the related_passages tool invocation
func (s *Server) handleRelatedPassages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	passageID, ok := args["passage_id"].(string)
	if !ok || passageID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "passage_id parameter is required", map[string]interface{}{
			"param":  "passage_id",
			"reason": "missing or empty",
		})
	}

	count := getIntDefault(args, "count", 0)
	if count < 0 || count > 20 {
		return nil, newMCPError(ErrorCodeInvalidParams, "count must be between 1 and 20", map[string]interface{}{
			"param": "count",
			"value": count,
		})
	}

	related, err := s.retriever.FindRelated(ctx, passageID, count)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodePassageNotFound, "passage not found", map[string]interface{}{
			"passage_id": passageID,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "related passage lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, 0, len(related))
	for _, r := range related {
		entry := passageResponse(r.Passage)
		entry["similarity"] = r.Similarity
		results = append(results, entry)
	}

	s.logEvent(ctx, "related_passages", passageID, fmt.Sprintf("returned=%d", len(results)))

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"base_passage_id": passageID,
		"related":         results,
	})), nil
}

// handlePassageContext handles the passage_context tool invocation
func (s *Server) handlePassageContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	passageID, ok := args["passage_id"].(string)
	if !ok || passageID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "passage_id parameter is required", map[string]interface{}{
			"param":  "passage_id",
			"reason": "missing or empty",
		})
	}

	passage, err := s.storage.GetPassage(ctx, passageID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodePassageNotFound, "passage not found", map[string]interface{}{
			"passage_id": passageID,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to load passage", map[string]interface{}{
			"error": err.Error(),
		})
	}

	contextText, err := s.retriever.ContextFor(ctx, passageID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "context expansion failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	s.logEvent(ctx, "passage_context", passageID, "")

	response := passageResponse(passage)
	response["context"] = contextText
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSavePassage handles the save_passage tool invocation
func (s *Server) handleSavePassage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	passageID, ok := args["passage_id"].(string)
	if !ok || passageID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "passage_id parameter is required", map[string]interface{}{
			"param":  "passage_id",
			"reason": "missing or empty",
		})
	}
	note := getStringDefault(args, "note", "")

	passage, err := s.storage.GetPassage(ctx, passageID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodePassageNotFound, "passage not found", map[string]interface{}{
			"passage_id": passageID,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to load passage", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if err := s.storage.SavePassage(ctx, passageID, note); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to save passage", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if err := export.AppendSavedPassage(s.cfg.SavedPassagesPath, passage, time.Now()); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to export passage", map[string]interface{}{
			"error": err.Error(),
		})
	}

	s.logEvent(ctx, "save_passage", passageID, note)

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"saved":       true,
		"passage_id":  passageID,
		"export_path": s.cfg.SavedPassagesPath,
	})), nil
}

// handleIndexingStatus handles the indexing_status tool invocation
func (s *Server) handleIndexingStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	counts, err := s.storage.CountByState(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to read indexing status", map[string]interface{}{
			"error": err.Error(),
		})
	}
	passages, err := s.storage.CountPassages(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to count passages", map[string]interface{}{
			"error": err.Error(),
		})
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	response := map[string]interface{}{
		"files": map[string]interface{}{
			"total":     total,
			"pending":   counts[types.IndexStatePending],
			"indexing":  counts[types.IndexStateIndexing],
			"completed": counts[types.IndexStateCompleted],
			"failed":    counts[types.IndexStateFailed],
		},
		"passages":           passages,
		"background_worker":  s.worker.Running(),
		"database_driver":    storage.DriverName,
		"embedding_provider": "none",
	}
	if s.embedder != nil {
		response["embedding_provider"] = s.embedder.Provider()
		response["embedding_model"] = s.embedder.Model()
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleResetSessions handles the reset_sessions tool invocation
func (s *Server) handleResetSessions(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cleared, err := s.storage.ClearSessions(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to clear session history", map[string]interface{}{
			"error": err.Error(),
		})
	}

	s.logEvent(ctx, "reset_sessions", "", fmt.Sprintf("cleared=%d", cleared))

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"cleared": cleared,
	})), nil
}

// Helper functions

// logEvent records a usage event, logging instead of failing the tool
// when the write does not succeed.
func (s *Server) logEvent(ctx context.Context, action, passageID, info string) {
	if err := s.storage.LogEvent(ctx, action, passageID, info); err != nil {
		log.Warn().Err(err).Str("action", action).Msg("failed to log usage event")
	}
}

// passageResponse renders the fields of a passage that tools return.
func passageResponse(p *types.Passage) map[string]interface{} {
	response := map[string]interface{}{
		"id":          p.ID,
		"text":        p.Text,
		"source_file": filepath.Base(p.SourceFile),
		"file_type":   string(p.FileType),
		"location":    p.Location(),
	}
	if p.DocumentTitle != nil {
		response["document_title"] = *p.DocumentTitle
	}
	if p.Author != nil {
		response["author"] = *p.Author
	}
	if p.Chapter != nil {
		response["chapter"] = *p.Chapter
	}
	if p.Section != nil {
		response["section"] = *p.Section
	}
	return response
}

// reportResponse renders a batch report, truncating long error lists.
func reportResponse(report *types.BatchReport) map[string]interface{} {
	response := map[string]interface{}{
		"files_attempted":  report.FilesAttempted,
		"files_completed":  report.FilesCompleted,
		"files_failed":     report.FilesFailed,
		"passages_created": report.PassagesCreated,
		"duration_ms":      report.Duration.Milliseconds(),
	}
	if len(report.Errors) > 0 {
		if len(report.Errors) > 5 {
			response["errors"] = report.Errors[:5]
			response["error_count"] = len(report.Errors)
		} else {
			response["errors"] = report.Errors
		}
	}
	return response
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validateLibraryPath checks that a library path is an accessible directory
func validateLibraryPath(path string) error {
	if path == "" {
		return ErrPathRequired
	}
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
