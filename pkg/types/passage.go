package types

import (
	"fmt"
	"time"
)

// FileType identifies the source document format of a passage.
type FileType string

const (
	FileTypeText     FileType = "txt"
	FileTypeHTML     FileType = "html"
	FileTypeMarkdown FileType = "md"
	FileTypePDF      FileType = "pdf"
)

// PassageDraft is a segmented span of document text before persistence.
// Offsets are byte positions: Text covers [StartChar, EndChar) of the
// full document text.
type PassageDraft struct {
	Text       string
	StartChar  int
	EndChar    int
	PageNumber *int
	LineNumber *int
	Section    *string
}

// Validate checks draft offset invariants.
func (d *PassageDraft) Validate() error {
	if d.Text == "" {
		return fmt.Errorf("passage draft has empty text")
	}
	if d.StartChar < 0 {
		return fmt.Errorf("passage draft start offset %d is negative", d.StartChar)
	}
	if d.EndChar <= d.StartChar {
		return fmt.Errorf("passage draft end offset %d not after start %d", d.EndChar, d.StartChar)
	}
	return nil
}

// Passage is a stored unit of readable text with its source location
// and optional embedding vector.
type Passage struct {
	ID            string
	Text          string
	SourceFile    string
	FileType      FileType
	PageNumber    *int
	LineNumber    *int
	Chapter       *string
	Section       *string
	DocumentTitle *string
	Author        *string
	StartChar     int
	EndChar       int
	ExtractedAt   time.Time
	Embedding     []float32
}

// Validate checks required fields and offset invariants.
func (p *Passage) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("passage has empty ID")
	}
	if p.Text == "" {
		return fmt.Errorf("passage %s has empty text", p.ID)
	}
	if p.SourceFile == "" {
		return fmt.Errorf("passage %s has empty source file", p.ID)
	}
	if p.StartChar < 0 || p.EndChar <= p.StartChar {
		return fmt.Errorf("passage %s has invalid offsets [%d, %d)", p.ID, p.StartChar, p.EndChar)
	}
	return nil
}

// Location renders the human-readable position of a passage, the way
// the presentation layer shows it (page for PDFs, line otherwise).
func (p *Passage) Location() string {
	if p.PageNumber != nil {
		return fmt.Sprintf("page %d", *p.PageNumber)
	}
	if p.LineNumber != nil {
		return fmt.Sprintf("line %d", *p.LineNumber)
	}
	return ""
}
