package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/commonplacehq/passagemcp/internal/config"
	"github.com/commonplacehq/passagemcp/internal/embedder"
	"github.com/commonplacehq/passagemcp/internal/extractor"
	"github.com/commonplacehq/passagemcp/internal/indexer"
	"github.com/commonplacehq/passagemcp/internal/retriever"
	"github.com/commonplacehq/passagemcp/internal/segmenter"
	"github.com/commonplacehq/passagemcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "passage-explorer"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp         *server.MCPServer
	cfg         *config.Config
	storage     storage.Store
	embedder    embedder.Embedder
	coordinator *indexer.Coordinator
	worker      *indexer.Worker
	retriever   *retriever.Retriever
}

// NewServer creates a new MCP server instance from a validated config.
func NewServer(cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// A failed embedder setup degrades to random-only retrieval instead
	// of refusing to start.
	emb, err := embedder.New(embedder.Config{
		Provider: cfg.Embedding.Provider,
		Model:    cfg.Embedding.Model,
		BaseURL:  cfg.Embedding.BaseURL,
		APIKey:   os.Getenv(cfg.Embedding.APIKeyEnv),
	})
	if err != nil {
		log.Warn().Err(err).Msg("embedding provider unavailable, similarity disabled")
		emb = nil
	}

	registry := extractor.NewRegistry()
	seg := segmenter.New(cfg.MinPassageLength, cfg.MaxPassageLength)
	coordinator := indexer.NewCoordinator(store, registry, seg, emb, indexer.Config{
		PDFTimeout: time.Duration(cfg.PDFTimeoutSeconds) * time.Second,
	})

	s := &Server{
		mcp:         server.NewMCPServer(ServerName, ServerVersion),
		cfg:         cfg,
		storage:     store,
		embedder:    emb,
		coordinator: coordinator,
		worker:      indexer.NewWorker(coordinator, cfg.ProgressiveBatchSize),
		retriever:   retriever.New(store, registry, emb, cfg.SessionHistoryDays, cfg.ContextChars),
	}

	if err := s.registerTools(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// StartIndexing discovers the configured library and kicks off background
// indexing. Called at startup so passages appear without waiting for the
// first tool call.
func (s *Server) StartIndexing(ctx context.Context) error {
	discovered, err := s.coordinator.DiscoverLibrary(ctx, s.cfg.LibraryPath)
	if err != nil {
		return err
	}
	if discovered == 0 {
		log.Info().Str("library", s.cfg.LibraryPath).Msg("no supported documents found")
		return nil
	}

	// First batch runs eagerly so early tool calls find passages; the
	// worker drains the rest progressively.
	if _, err := s.coordinator.IndexBatch(ctx, s.cfg.InitialBatchSize); err != nil && !errors.Is(err, indexer.ErrIndexingInProgress) {
		return err
	}
	s.worker.Start(context.Background())
	return nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() {
		s.worker.Stop()
		if s.embedder != nil {
			_ = s.embedder.Close()
		}
		_ = s.storage.Close()
	}()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	s.mcp.AddTool(indexLibraryTool(), s.handleIndexLibrary)
	s.mcp.AddTool(indexNextBatchTool(), s.handleIndexNextBatch)
	s.mcp.AddTool(randomPassageTool(), s.handleRandomPassage)
	s.mcp.AddTool(relatedPassagesTool(), s.handleRelatedPassages)
	s.mcp.AddTool(passageContextTool(), s.handlePassageContext)
	s.mcp.AddTool(savePassageTool(), s.handleSavePassage)
	s.mcp.AddTool(indexingStatusTool(), s.handleIndexingStatus)
	s.mcp.AddTool(resetSessionsTool(), s.handleResetSessions)
	return nil
}
