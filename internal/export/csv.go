// Package export appends saved passages to a CSV file meant to be opened
// directly in spreadsheet applications.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/commonplacehq/passagemcp/pkg/types"
)

// utf8BOM makes Excel detect the encoding instead of assuming latin-1.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var csvHeader = []string{
	"saved_at",
	"text",
	"document_title",
	"location",
	"filename",
	"file_type",
	"author",
	"chapter",
}

// AppendSavedPassage appends one passage to the CSV at path, creating the
// file with a BOM and header row on first use. The parent directory must
// already exist.
func AppendSavedPassage(path string, passage *types.Passage, savedAt time.Time) error {
	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)
	if statErr != nil && !isNew {
		return fmt.Errorf("failed to stat %s: %w", path, statErr)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if isNew {
		if _, err := f.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	if err := w.Write(passageRecord(passage, savedAt)); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return nil
}

func passageRecord(p *types.Passage, savedAt time.Time) []string {
	return []string{
		savedAt.UTC().Format(time.RFC3339),
		p.Text,
		stringOrEmpty(p.DocumentTitle),
		p.Location(),
		filepath.Base(p.SourceFile),
		string(p.FileType),
		stringOrEmpty(p.Author),
		stringOrEmpty(p.Chapter),
	}
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
