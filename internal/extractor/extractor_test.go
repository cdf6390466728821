package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pageRunner is a test double for CommandRunner keyed by page number.
type pageRunner struct {
	pages   map[string]string
	failing map[string]bool
	info    string
	calls   []string
}

func (r *pageRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, name+" "+strings.Join(args, " "))
	if name == "pdfinfo" {
		return []byte(r.info), nil
	}
	page := pageArg(args)
	if r.failing[page] {
		return nil, errors.New("syntax error in content stream")
	}
	return []byte(r.pages[page]), nil
}

func pageArg(args []string) string {
	for i, a := range args {
		if a == "-f" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func converterWithPages(pages string) PDFConverter {
	return func(r io.Reader) (string, map[string]string, error) {
		return "", map[string]string{"Pages": pages}, nil
	}
}

func newTestExtractor(t *testing.T, convert PDFConverter, runner CommandRunner) *Extractor {
	return New(WithConverter(convert), WithRunner(runner), WithTempDir(t.TempDir()))
}

func TestExtract_JoinsAndNormalizesPages(t *testing.T) {
	runner := &pageRunner{pages: map[string]string{
		"1": "Policy   Terms\n\nSection 1.",
		"2": "Waiting period: 30 days........ Done",
	}}
	e := newTestExtractor(t, converterWithPages("2"), runner)

	text, err := e.Extract(context.Background(), []byte("%PDF-1.4"))

	require.NoError(t, err)
	assert.Equal(t, "Policy Terms Section 1. Waiting period: 30 days... Done", text)
	assert.Len(t, runner.calls, 2)
}

func TestExtract_SkipsFailingPage(t *testing.T) {
	runner := &pageRunner{
		pages:   map[string]string{"1": "First page.", "3": "Third page."},
		failing: map[string]bool{"2": true},
	}
	e := newTestExtractor(t, converterWithPages("3"), runner)

	text, err := e.Extract(context.Background(), []byte("%PDF-1.4"))

	require.NoError(t, err)
	assert.Equal(t, "First page. Third page.", text)
}

func TestExtract_EmptyInput(t *testing.T) {
	e := newTestExtractor(t, converterWithPages("1"), &pageRunner{})

	_, err := e.Extract(context.Background(), nil)

	assert.True(t, errors.Is(err, domain.ErrCorruptInput))
}

func TestExtract_UnparseableDocument(t *testing.T) {
	convert := func(r io.Reader) (string, map[string]string, error) {
		return "", nil, fmt.Errorf("pdfinfo: May not be a PDF file")
	}
	e := newTestExtractor(t, convert, &pageRunner{})

	_, err := e.Extract(context.Background(), []byte("<html>not a pdf</html>"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCorruptInput))
	assert.Equal(t, domain.ErrCodeCorruptInput, domain.CodeOf(err))
}

func TestExtract_ZeroPages(t *testing.T) {
	e := newTestExtractor(t, converterWithPages("0"), &pageRunner{})

	_, err := e.Extract(context.Background(), []byte("%PDF-1.4"))

	assert.True(t, errors.Is(err, domain.ErrCorruptInput))
}

func TestExtract_ImageOnlyDocumentIsEmpty(t *testing.T) {
	runner := &pageRunner{pages: map[string]string{"1": "  \n\f", "2": ""}}
	e := newTestExtractor(t, converterWithPages("2"), runner)

	_, err := e.Extract(context.Background(), []byte("%PDF-1.4"))

	assert.True(t, errors.Is(err, domain.ErrEmptyContent))
}

func TestExtract_AllPagesFailIsEmpty(t *testing.T) {
	runner := &pageRunner{failing: map[string]bool{"1": true}}
	e := newTestExtractor(t, converterWithPages("1"), runner)

	_, err := e.Extract(context.Background(), []byte("%PDF-1.4"))

	assert.True(t, errors.Is(err, domain.ErrEmptyContent))
}

func TestExtract_FallsBackToWholeDocumentText(t *testing.T) {
	convert := func(r io.Reader) (string, map[string]string, error) {
		return "Whole   document\ntext.", map[string]string{"Pages": "2"}, nil
	}
	runner := &pageRunner{failing: map[string]bool{"1": true, "2": true}}
	e := newTestExtractor(t, convert, runner)

	text, err := e.Extract(context.Background(), []byte("%PDF-1.4"))

	require.NoError(t, err)
	assert.Equal(t, "Whole document text.", text)
}

func TestExtract_PageTextWinsOverWholeDocumentText(t *testing.T) {
	convert := func(r io.Reader) (string, map[string]string, error) {
		return "Whole document text.", map[string]string{"Pages": "1"}, nil
	}
	runner := &pageRunner{pages: map[string]string{"1": "Page text."}}
	e := newTestExtractor(t, convert, runner)

	text, err := e.Extract(context.Background(), []byte("%PDF-1.4"))

	require.NoError(t, err)
	assert.Equal(t, "Page text.", text)
}

func TestExtract_FallsBackToPDFInfo(t *testing.T) {
	convert := func(r io.Reader) (string, map[string]string, error) {
		return "", map[string]string{"Title": "Policy"}, nil
	}
	runner := &pageRunner{
		info:  "Title:          Policy\nPages:          1\nEncrypted:      no\n",
		pages: map[string]string{"1": "Only page."},
	}
	e := newTestExtractor(t, convert, runner)

	text, err := e.Extract(context.Background(), []byte("%PDF-1.4"))

	require.NoError(t, err)
	assert.Equal(t, "Only page.", text)
	assert.True(t, strings.HasPrefix(runner.calls[0], "pdfinfo "))
}

func TestParsePDFInfoPages(t *testing.T) {
	n, err := parsePDFInfoPages([]byte("Producer: x\nPages:   12\n"))
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	_, err = parsePDFInfoPages([]byte("Producer: x\n"))
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"collapses whitespace", "a \t\n\r b", "a b"},
		{"strips symbols", "Cost: $500 @ 5% [approx]", "Cost: 500  5 approx"},
		{"keeps allowed punctuation", "Yes, no; maybe: (ok)! why? end-of-line.", "Yes, no; maybe: (ok)! why? end-of-line."},
		{"collapses long ellipsis", "wait......... now", "wait... now"},
		{"keeps two periods", "a.. b", "a.. b"},
		{"keeps unicode letters", "Café über naïve", "Café über naïve"},
		{"non-breaking space", "a\u00a0b", "a b"},
		{"next line", "a\u0085b", "a b"},
		{"unit separator", "a\x1fb", "a b"},
		{"file separator", "a\x1cb", "a b"},
		{"trims", "   padded   ", "padded"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	input := "Clause 4.2 — Exclusions…   apply!!  See § 7 ....."
	first := Normalize(input)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Normalize(input))
	}
}
