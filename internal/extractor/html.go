package extractor

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/commonplacehq/passagemcp/pkg/types"
)

// HTMLExtractor handles HTML files.
type HTMLExtractor struct{}

func (e *HTMLExtractor) Extract(ctx context.Context, path string) (*types.Document, error) {
	content, err := readTextFile(path)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	author, _ := doc.Find(`meta[name="author"]`).Attr("content")

	// Title fallback chain: <title>, first <h1>, file name
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	if title == "" {
		title = titleFromFilename(path)
	}

	var sections []string
	seen := make(map[string]bool)
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, sel *goquery.Selection) {
		heading := strings.TrimSpace(sel.Text())
		if heading != "" && !seen[heading] {
			seen[heading] = true
			sections = append(sections, heading)
		}
	})

	// Body text is rebuilt from block elements in document order, one
	// paragraph per block, so offsets into the text stay meaningful.
	var blocks []string
	doc.Find("p, h1, h2, h3, h4, h5, h6, li, blockquote, pre").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			blocks = append(blocks, text)
		}
	})
	textContent := strings.Join(blocks, "\n\n")

	return &types.Document{
		Text:       textContent,
		Paragraphs: splitParagraphs(textContent),
		Metadata: types.DocumentMeta{
			Title:    title,
			Author:   strings.TrimSpace(author),
			FileType: types.FileTypeHTML,
			Sections: sections,
		},
	}, nil
}
