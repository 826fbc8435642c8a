package types

// DocumentMeta carries the metadata an extractor could recover from a
// source file. Empty strings mean "unknown".
type DocumentMeta struct {
	Title    string
	Author   string
	FileType FileType
	Sections []string
}

// Document is the extraction result for one source file: the full text,
// its paragraph decomposition, and optional per-paragraph page numbers
// (parallel to Paragraphs, PDF only).
type Document struct {
	Text           string
	Paragraphs     []string
	ParagraphPages []int
	Metadata       DocumentMeta
}

// PageForParagraph returns the page number for paragraph i, or nil when
// the document has no page information.
func (d *Document) PageForParagraph(i int) *int {
	if i < 0 || i >= len(d.ParagraphPages) {
		return nil
	}
	page := d.ParagraphPages[i]
	return &page
}
