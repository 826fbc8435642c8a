// Package segmenter turns extracted document text into passage drafts.
//
// Segmentation is paragraph-driven: paragraphs that fit the length
// bounds become passages directly, long paragraphs are split on
// sentence boundaries and re-accumulated greedily. Offsets always
// point into the full document text so a passage can be located in its
// source later.
package segmenter

import (
	"regexp"
	"strings"

	"github.com/commonplacehq/passagemcp/pkg/types"
)

// Default length bounds in characters.
const (
	DefaultMinLength = 100
	DefaultMaxLength = 420
)

// Segmenter extracts passage drafts from a document.
type Segmenter struct {
	minLength int
	maxLength int
}

// New creates a segmenter with the given length bounds. Non-positive
// values fall back to the defaults.
func New(minLength, maxLength int) *Segmenter {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Segmenter{minLength: minLength, maxLength: maxLength}
}

// Segment produces ordered passage drafts for a document. The output
// is deterministic for a given input.
func (s *Segmenter) Segment(doc *types.Document) []types.PassageDraft {
	var drafts []types.PassageDraft
	fullText := doc.Text
	sections := doc.Metadata.Sections

	charOffset := 0
	var currentSection *string

	for idx, para := range doc.Paragraphs {
		paraStripped := strings.TrimSpace(para)
		paraLower := strings.ToLower(paraStripped)
		isSectionHeading := false

		// Headings may appear as their own paragraphs (HTML/MD). A match
		// updates the running section even when the paragraph is skipped.
		for _, section := range sections {
			sectionLower := strings.ToLower(strings.TrimSpace(section))
			if paraLower == sectionLower ||
				strings.HasPrefix(paraLower, sectionLower+"\n") ||
				strings.HasPrefix(paraLower, sectionLower+" ") {
				sec := section
				currentSection = &sec
				isSectionHeading = true
				break
			}
		}

		// Too short to stand alone
		if len(paraStripped) < s.minLength {
			charOffset += len(para) + 2 // +2 for paragraph separator
			continue
		}

		// Headings themselves are not passages
		if isSectionHeading && len(paraStripped) < 100 {
			charOffset += len(para) + 2
			continue
		}

		page := doc.PageForParagraph(idx)

		if len(para) <= s.maxLength {
			startChar := findFrom(fullText, paraStripped, charOffset)
			if startChar == -1 {
				startChar = charOffset
			}
			drafts = append(drafts, s.draft(paraStripped, startChar, fullText, page, currentSection))
		} else {
			drafts = append(drafts, s.splitLongParagraph(para, fullText, charOffset, page, currentSection)...)
		}

		// Advance the cursor past this paragraph, resolving drift from
		// paragraphs that do not appear verbatim in the full text.
		if paraPos := findFrom(fullText, para, charOffset); paraPos != -1 {
			charOffset = paraPos + len(para) + 2
		} else {
			charOffset += len(para) + 2
		}
	}

	return drafts
}

// splitLongParagraph accumulates sentences greedily up to maxLength,
// emitting a draft each time the buffer would overflow. A leftover
// buffer shorter than minLength, or one whose joined text exceeds
// maxLength, is dropped.
func (s *Segmenter) splitLongParagraph(para, fullText string, charOffset int, page *int, section *string) []types.PassageDraft {
	var drafts []types.PassageDraft

	var currentPassage []string
	currentLength := 0
	passageStart := charOffset

	for _, sentence := range splitSentences(para) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		sentenceLength := len(sentence)

		if len(currentPassage) > 0 && currentLength+sentenceLength+1 > s.maxLength {
			if currentLength >= s.minLength {
				passageText := strings.Join(currentPassage, " ")
				startChar := findFrom(fullText, passageText, passageStart)
				if startChar == -1 {
					startChar = passageStart
				}
				drafts = append(drafts, s.draft(passageText, startChar, fullText, page, section))
			}

			currentPassage = []string{sentence}
			currentLength = sentenceLength
			passageStart = charOffset + relativeIndex(fullText, sentence, charOffset)
		} else {
			currentPassage = append(currentPassage, sentence)
			currentLength += sentenceLength + 1 // +1 for joining space
		}
	}

	if len(currentPassage) > 0 && currentLength >= s.minLength {
		passageText := strings.Join(currentPassage, " ")
		if len(passageText) <= s.maxLength {
			startChar := findFrom(fullText, passageText, passageStart)
			if startChar == -1 {
				startChar = passageStart
			}
			drafts = append(drafts, s.draft(passageText, startChar, fullText, page, section))
		}
	}

	return drafts
}

// draft builds one passage draft, deriving the end offset and line
// number from the start.
func (s *Segmenter) draft(text string, startChar int, fullText string, page *int, section *string) types.PassageDraft {
	return types.PassageDraft{
		Text:       text,
		StartChar:  startChar,
		EndChar:    startChar + len(text),
		PageNumber: page,
		LineNumber: lineNumber(fullText, startChar),
		Section:    section,
	}
}

// Sentence boundary: terminal punctuation run followed by whitespace.
var sentencePattern = regexp.MustCompile(`([.!?]+)\s+`)

// splitSentences splits text into sentences, re-attaching common
// terminal punctuation to the preceding sentence.
func splitSentences(text string) []string {
	matches := sentencePattern.FindAllStringSubmatchIndex(text, -1)

	parts := make([]string, 0, 2*len(matches)+1)
	last := 0
	for _, m := range matches {
		parts = append(parts, text[last:m[2]]) // text before the punctuation
		parts = append(parts, text[m[2]:m[3]]) // the punctuation run
		last = m[1]
	}
	parts = append(parts, text[last:])

	var result []string
	i := 0
	for i < len(parts) {
		if i+1 < len(parts) && isTerminalPunctuation(parts[i+1]) {
			result = append(result, parts[i]+parts[i+1])
			i += 2
		} else if strings.TrimSpace(parts[i]) != "" {
			result = append(result, parts[i])
			i++
		} else {
			i++
		}
	}

	sentences := make([]string, 0, len(result))
	for _, sentence := range result {
		if trimmed := strings.TrimSpace(sentence); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	return sentences
}

func isTerminalPunctuation(s string) bool {
	switch s {
	case ".", "!", "?", "...":
		return true
	}
	return false
}

// findFrom is strings.Index starting at an arbitrary offset, returning
// an absolute position. The offset is clamped to the text bounds.
func findFrom(text, sub string, from int) int {
	if from < 0 {
		from = 0
	}
	if from > len(text) {
		return -1
	}
	idx := strings.Index(text[from:], sub)
	if idx == -1 {
		return -1
	}
	return from + idx
}

// relativeIndex mirrors findFrom but keeps the -1 sentinel relative,
// so a miss nudges the cursor back one position instead of resetting it.
func relativeIndex(text, sub string, from int) int {
	if from < 0 {
		from = 0
	}
	if from > len(text) {
		return -1
	}
	return strings.Index(text[from:], sub)
}

// lineNumber returns the 1-indexed line for a character position, or
// nil when the position falls outside the text.
func lineNumber(text string, charPos int) *int {
	if charPos < 0 || charPos >= len(text) {
		return nil
	}
	line := strings.Count(text[:charPos], "\n") + 1
	return &line
}
