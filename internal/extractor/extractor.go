// Package extractor turns source documents into structured text.
//
// Each supported format has its own extractor; the registry picks one
// by file extension. All extractors produce a types.Document with the
// full text, its paragraph decomposition, and whatever metadata the
// format exposes.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/commonplacehq/passagemcp/pkg/types"
)

// ErrUnsupportedFormat is returned for file extensions no extractor handles.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Extractor extracts text and metadata from one document format.
type Extractor interface {
	Extract(ctx context.Context, path string) (*types.Document, error)
}

// Registry maps file extensions to extractors.
type Registry struct {
	handlers map[string]Extractor
}

// NewRegistry creates a registry with all built-in extractors.
func NewRegistry() *Registry {
	text := &TextExtractor{}
	html := &HTMLExtractor{}
	markdown := &MarkdownExtractor{}
	pdf := &PDFExtractor{}
	return &Registry{
		handlers: map[string]Extractor{
			".txt":      text,
			".html":     html,
			".htm":      html,
			".md":       markdown,
			".markdown": markdown,
			".pdf":      pdf,
		},
	}
}

// ForFile returns the extractor for a file path, or
// ErrUnsupportedFormat when the extension is unknown.
func (r *Registry) ForFile(path string) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(path))
	handler, ok := r.handlers[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	return handler, nil
}

// Supported reports whether the registry can handle a file path.
func (r *Registry) Supported(path string) bool {
	_, ok := r.handlers[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extensions returns the supported file extensions.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.handlers))
	for ext := range r.handlers {
		exts = append(exts, ext)
	}
	return exts
}

// Extract runs the extractor matching the file's extension.
func (r *Registry) Extract(ctx context.Context, path string) (*types.Document, error) {
	handler, err := r.ForFile(path)
	if err != nil {
		return nil, err
	}
	return handler.Extract(ctx, path)
}

// readTextFile reads a file as UTF-8, falling back to latin-1 when the
// content is not valid UTF-8.
func readTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	log.Warn().Str("file", path).Msg("not valid UTF-8, decoding as latin-1")
	return decodeLatin1(data), nil
}

// decodeLatin1 maps each byte to the Unicode code point of the same
// value, which is exactly the latin-1 decoding.
func decodeLatin1(data []byte) string {
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}

// titleFromFilename derives a readable title from a file name:
// "war-and-peace.txt" becomes "War And Peace".
func titleFromFilename(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	words := strings.Fields(strings.ReplaceAll(stem, "-", " "))
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		for j := 1; j < len(runes); j++ {
			runes[j] = unicode.ToLower(runes[j])
		}
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// splitParagraphs splits text on blank lines, trimming and dropping
// empty entries.
func splitParagraphs(text string) []string {
	parts := strings.Split(text, "\n\n")
	paragraphs := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	return paragraphs
}
