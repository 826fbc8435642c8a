package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commonplacehq/passagemcp/pkg/types"
)

func savedPassage() *types.Passage {
	title := "War and Peace"
	author := "Leo Tolstoy"
	line := 42
	return &types.Passage{
		ID:            "p1",
		Text:          "a passage worth keeping, with a comma",
		SourceFile:    "/library/war-and-peace.txt",
		FileType:      types.FileTypeText,
		LineNumber:    &line,
		DocumentTitle: &title,
		Author:        &author,
		StartChar:     0,
		EndChar:       37,
	}
}

func readRecords(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}), "missing UTF-8 BOM")

	records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF}))).ReadAll()
	require.NoError(t, err)
	return records
}

func TestAppendSavedPassageCreatesFileWithHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved_passages.csv")
	savedAt := time.Date(2026, 8, 24, 10, 30, 0, 0, time.UTC)

	require.NoError(t, AppendSavedPassage(path, savedPassage(), savedAt))

	records := readRecords(t, path)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"saved_at", "text", "document_title", "location", "filename", "file_type", "author", "chapter"}, records[0])

	row := records[1]
	assert.Equal(t, "2026-08-24T10:30:00Z", row[0])
	assert.Equal(t, "a passage worth keeping, with a comma", row[1])
	assert.Equal(t, "War and Peace", row[2])
	assert.Equal(t, "line 42", row[3])
	assert.Equal(t, "war-and-peace.txt", row[4])
	assert.Equal(t, "txt", row[5])
	assert.Equal(t, "Leo Tolstoy", row[6])
	assert.Equal(t, "", row[7])
}

func TestAppendSavedPassageAppendsWithoutSecondHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved_passages.csv")
	savedAt := time.Now()

	require.NoError(t, AppendSavedPassage(path, savedPassage(), savedAt))
	require.NoError(t, AppendSavedPassage(path, savedPassage(), savedAt))

	records := readRecords(t, path)
	require.Len(t, records, 3)
	assert.Equal(t, "saved_at", records[0][0])
	assert.NotEqual(t, "saved_at", records[1][0])
	assert.NotEqual(t, "saved_at", records[2][0])
}

func TestAppendSavedPassageMissingMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved_passages.csv")
	p := &types.Passage{
		ID:         "p2",
		Text:       "bare passage",
		SourceFile: "/library/notes.md",
		FileType:   types.FileTypeMarkdown,
		StartChar:  0,
		EndChar:    12,
	}

	require.NoError(t, AppendSavedPassage(path, p, time.Now()))

	records := readRecords(t, path)
	row := records[1]
	assert.Equal(t, "", row[2])
	assert.Equal(t, "", row[3])
	assert.Equal(t, "notes.md", row[4])
	assert.Equal(t, "", row[6])
}
