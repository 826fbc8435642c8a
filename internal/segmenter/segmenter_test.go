package segmenter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commonplacehq/passagemcp/pkg/types"
)

// sentence builds a sentence of exactly n characters ending in a period.
func sentence(fill byte, n int) string {
	return strings.Repeat(string(fill), n-1) + "."
}

func docFromParagraphs(paragraphs ...string) *types.Document {
	return &types.Document{
		Text:       strings.Join(paragraphs, "\n\n"),
		Paragraphs: paragraphs,
	}
}

func TestSegmentShortParagraphSkipped(t *testing.T) {
	s := New(100, 420)
	doc := docFromParagraphs("Too short to keep.")

	drafts := s.Segment(doc)
	assert.Empty(t, drafts)
}

func TestSegmentMediumParagraphKeptWhole(t *testing.T) {
	s := New(100, 420)
	para := sentence('a', 150)
	doc := docFromParagraphs(para)

	drafts := s.Segment(doc)
	require.Len(t, drafts, 1)
	assert.Equal(t, para, drafts[0].Text)
	assert.Equal(t, 0, drafts[0].StartChar)
	assert.Equal(t, 150, drafts[0].EndChar)
	require.NotNil(t, drafts[0].LineNumber)
	assert.Equal(t, 1, *drafts[0].LineNumber)
}

func TestSegmentLongParagraphSplitsOnSentences(t *testing.T) {
	s := New(100, 420)
	first := sentence('a', 300)
	second := sentence('b', 150)
	para := first + " " + second // 451 chars, over the max
	doc := docFromParagraphs(para)

	drafts := s.Segment(doc)
	require.Len(t, drafts, 2)

	assert.Equal(t, first, drafts[0].Text)
	assert.Equal(t, 0, drafts[0].StartChar)
	assert.Equal(t, 300, drafts[0].EndChar)

	assert.Equal(t, second, drafts[1].Text)
	assert.Equal(t, 301, drafts[1].StartChar)
	assert.Equal(t, 451, drafts[1].EndChar)

	for _, d := range drafts {
		assert.GreaterOrEqual(t, len(d.Text), 100)
		assert.LessOrEqual(t, len(d.Text), 420)
		assert.Equal(t, doc.Text[d.StartChar:d.EndChar], d.Text)
	}
}

func TestSegmentShortLeftoverDropped(t *testing.T) {
	s := New(100, 420)
	first := sentence('a', 400)
	tail := sentence('b', 50) // under the minimum, never emitted
	doc := docFromParagraphs(first + " " + tail)

	drafts := s.Segment(doc)
	require.Len(t, drafts, 1)
	assert.Equal(t, first, drafts[0].Text)
}

func TestSegmentOverlongSingleSentenceDropped(t *testing.T) {
	s := New(100, 420)
	// One unbroken 500-char "sentence": no boundary to split on, and the
	// leftover exceeds the maximum, so nothing is emitted.
	doc := docFromParagraphs(strings.Repeat("a", 500))

	drafts := s.Segment(doc)
	assert.Empty(t, drafts)
}

func TestSegmentHeadingSkippedButSectionAttributed(t *testing.T) {
	s := New(100, 420)
	body := sentence('a', 200)
	doc := docFromParagraphs("Introduction", body)
	doc.Metadata.Sections = []string{"Introduction"}

	drafts := s.Segment(doc)
	require.Len(t, drafts, 1)
	assert.Equal(t, body, drafts[0].Text)
	require.NotNil(t, drafts[0].Section)
	assert.Equal(t, "Introduction", *drafts[0].Section)
}

func TestSegmentSectionPersistsAcrossParagraphs(t *testing.T) {
	s := New(100, 420)
	first := sentence('a', 150)
	second := sentence('b', 150)
	doc := docFromParagraphs("Chapter One", first, "Chapter Two", second)
	doc.Metadata.Sections = []string{"Chapter One", "Chapter Two"}

	drafts := s.Segment(doc)
	require.Len(t, drafts, 2)
	assert.Equal(t, "Chapter One", *drafts[0].Section)
	assert.Equal(t, "Chapter Two", *drafts[1].Section)
}

func TestSegmentLineNumbers(t *testing.T) {
	s := New(100, 420)
	first := sentence('a', 120)
	second := sentence('b', 120)
	doc := docFromParagraphs(first, second)

	drafts := s.Segment(doc)
	require.Len(t, drafts, 2)
	assert.Equal(t, 1, *drafts[0].LineNumber)
	// Paragraph separator is a blank line
	assert.Equal(t, 3, *drafts[1].LineNumber)
}

func TestSegmentPageNumbers(t *testing.T) {
	s := New(100, 420)
	first := sentence('a', 120)
	second := sentence('b', 120)
	doc := docFromParagraphs(first, second)
	doc.Paragraphs = []string{first, second}
	doc.ParagraphPages = []int{4, 7}

	drafts := s.Segment(doc)
	require.Len(t, drafts, 2)
	require.NotNil(t, drafts[0].PageNumber)
	assert.Equal(t, 4, *drafts[0].PageNumber)
	assert.Equal(t, 7, *drafts[1].PageNumber)
}

func TestSegmentOffsetFallbackWhenParagraphNotInText(t *testing.T) {
	s := New(100, 420)
	first := sentence('a', 120)
	ghost := sentence('b', 120) // paragraph absent from the full text
	doc := &types.Document{
		Text:       first,
		Paragraphs: []string{first, ghost},
	}

	drafts := s.Segment(doc)
	require.Len(t, drafts, 2)
	assert.Equal(t, 0, drafts[0].StartChar)
	// Search miss falls back to the running cursor
	assert.Equal(t, len(first)+2, drafts[1].StartChar)
	assert.Nil(t, drafts[1].LineNumber)
}

func TestSegmentDeterministic(t *testing.T) {
	s := New(100, 420)
	doc := docFromParagraphs(
		sentence('a', 200),
		sentence('b', 300)+" "+sentence('c', 250),
		"short one",
	)

	first := s.Segment(doc)
	second := s.Segment(doc)
	assert.Equal(t, first, second)
}

func TestSegmentCustomBounds(t *testing.T) {
	s := New(20, 80)
	para := sentence('a', 50)
	doc := docFromParagraphs(para)

	drafts := s.Segment(doc)
	require.Len(t, drafts, 1)
	assert.Equal(t, para, drafts[0].Text)
}

func TestNewAppliesDefaults(t *testing.T) {
	s := New(0, 0)
	assert.Equal(t, DefaultMinLength, s.minLength)
	assert.Equal(t, DefaultMaxLength, s.maxLength)
}

func TestSplitSentences(t *testing.T) {
	sentences := splitSentences("Hello world. How are you? Quite well! Good.")
	assert.Equal(t, []string{"Hello world.", "How are you?", "Quite well!", "Good."}, sentences)
}

func TestSplitSentencesEllipsis(t *testing.T) {
	sentences := splitSentences("It trailed off... Then resumed.")
	assert.Equal(t, []string{"It trailed off...", "Then resumed."}, sentences)
}

func TestSplitSentencesNoBoundary(t *testing.T) {
	sentences := splitSentences("no terminal punctuation here")
	assert.Equal(t, []string{"no terminal punctuation here"}, sentences)
}
