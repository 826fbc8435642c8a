package extractor

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"github.com/commonplacehq/passagemcp/pkg/types"
)

// PDFExtractor handles PDF files with page-aware extraction: each
// paragraph remembers the page it came from.
type PDFExtractor struct{}

func (e *PDFExtractor) Extract(ctx context.Context, path string) (doc *types.Document, err error) {
	// The pdf library panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("failed to parse pdf %s: %v", path, r)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf %s: %w", path, err)
	}

	title, author := pdfInfo(reader)
	if title == "" {
		title = titleFromFilename(path)
	}

	var paragraphs []string
	var paragraphPages []int
	var fullTextParts []string

	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Int("page", i).Msg("failed to extract pdf page")
			continue
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}

		fullTextParts = append(fullTextParts, pageText)
		for _, para := range splitParagraphs(pageText) {
			paragraphs = append(paragraphs, para)
			paragraphPages = append(paragraphPages, i)
		}
	}

	return &types.Document{
		Text:           strings.Join(fullTextParts, "\n\n"),
		Paragraphs:     paragraphs,
		ParagraphPages: paragraphPages,
		Metadata: types.DocumentMeta{
			Title:    title,
			Author:   author,
			FileType: types.FileTypePDF,
		},
	}, nil
}

// pdfInfo reads title and author from the document info dictionary.
func pdfInfo(reader *pdf.Reader) (title, author string) {
	info := reader.Trailer().Key("Info")
	if info.IsNull() {
		return "", ""
	}
	if v := info.Key("Title"); v.Kind() == pdf.String {
		title = strings.TrimSpace(v.Text())
	}
	if v := info.Key("Author"); v.Kind() == pdf.String {
		author = strings.TrimSpace(v.Text())
	}
	return title, author
}
