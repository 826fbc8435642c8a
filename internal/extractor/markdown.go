package extractor

import (
	"context"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/commonplacehq/passagemcp/pkg/types"
)

// MarkdownExtractor handles Markdown files.
//
// The full text keeps the raw markdown so offsets survive, while
// paragraphs are cleaned of inline syntax for segmentation.
type MarkdownExtractor struct{}

var (
	mdHeaderPattern = regexp.MustCompile(`^#+\s+`)
	mdBoldPattern   = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	mdItalicPattern = regexp.MustCompile(`\*([^*]+)\*`)
	mdLinkPattern   = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
)

func (e *MarkdownExtractor) Extract(ctx context.Context, path string) (*types.Document, error) {
	content, err := readTextFile(path)
	if err != nil {
		return nil, err
	}
	source := []byte(content)

	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(source))

	title := ""
	var sections []string
	seen := make(map[string]bool)

	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		headingText := nodeLinesText(heading, source)
		if headingText == "" {
			return ast.WalkContinue, nil
		}
		if title == "" && heading.Level <= 2 {
			title = headingText
		}
		if !seen[headingText] {
			seen[headingText] = true
			sections = append(sections, headingText)
		}
		return ast.WalkContinue, nil
	})

	// Authors are often the bold second line under the title
	author := ""
	lines := strings.Split(content, "\n")
	if len(lines) > 1 {
		second := strings.TrimSpace(lines[1])
		if strings.HasPrefix(second, "**") && strings.HasSuffix(second, "**") {
			author = strings.TrimSpace(strings.Trim(second, "*"))
		}
	}

	if title == "" {
		title = titleFromFilename(path)
	}

	paragraphs := make([]string, 0)
	for _, para := range splitParagraphs(content) {
		cleaned := cleanMarkdown(para)
		if cleaned != "" {
			paragraphs = append(paragraphs, cleaned)
		}
	}

	return &types.Document{
		Text:       content,
		Paragraphs: paragraphs,
		Metadata: types.DocumentMeta{
			Title:    title,
			Author:   author,
			FileType: types.FileTypeMarkdown,
			Sections: sections,
		},
	}, nil
}

// cleanMarkdown strips heading markers, emphasis, and link syntax from
// a paragraph.
func cleanMarkdown(para string) string {
	para = mdHeaderPattern.ReplaceAllString(para, "")
	para = mdBoldPattern.ReplaceAllString(para, "$1")
	para = mdItalicPattern.ReplaceAllString(para, "$1")
	para = mdLinkPattern.ReplaceAllString(para, "$1")
	return strings.TrimSpace(para)
}

// nodeLinesText concatenates the source segments a block node spans.
func nodeLinesText(n ast.Node, source []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		sb.Write(segment.Value(source))
	}
	return strings.TrimSpace(sb.String())
}
