package extractor

import (
	"context"

	"github.com/commonplacehq/passagemcp/pkg/types"
)

// TextExtractor handles plain text files.
type TextExtractor struct{}

func (e *TextExtractor) Extract(ctx context.Context, path string) (*types.Document, error) {
	content, err := readTextFile(path)
	if err != nil {
		return nil, err
	}

	return &types.Document{
		Text:       content,
		Paragraphs: splitParagraphs(content),
		Metadata: types.DocumentMeta{
			Title:    titleFromFilename(path),
			FileType: types.FileTypeText,
		},
	}, nil
}
