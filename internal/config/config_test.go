package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultMinPassageLength, cfg.MinPassageLength)
	assert.Equal(t, DefaultMaxPassageLength, cfg.MaxPassageLength)
	assert.Equal(t, DefaultContextChars, cfg.ContextChars)
	assert.Equal(t, DefaultSessionHistoryDays, cfg.SessionHistoryDays)
	assert.Equal(t, DefaultInitialBatchSize, cfg.InitialBatchSize)
	assert.Equal(t, DefaultProgressiveBatchSize, cfg.ProgressiveBatchSize)
	assert.Equal(t, DefaultPDFTimeoutSeconds, cfg.PDFTimeoutSeconds)
	assert.Equal(t, "local", cfg.Embedding.Provider)
	assert.Equal(t, filepath.Join("library", "passages.db"), cfg.DBPath)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `library_path: /books
min_passage_length: 150
embedding:
  provider: ollama
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/books", cfg.LibraryPath)
	assert.Equal(t, 150, cfg.MinPassageLength)
	assert.Equal(t, DefaultMaxPassageLength, cfg.MaxPassageLength)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, DefaultEmbeddingModel, cfg.Embedding.Model)
	assert.Equal(t, filepath.Join("/books", "passages.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join("/books", "saved_passages.csv"), cfg.SavedPassagesPath)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvertedBounds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `min_passage_length: 500
max_passage_length: 400
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "max_passage_length")
}

func TestValidateRejectsZeroBatchSize(t *testing.T) {
	cfg := Default()
	cfg.ProgressiveBatchSize = 0
	assert.Error(t, cfg.Validate())
}
