// Package extractor turns PDF bytes into normalized plain text.
package extractor

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"code.sajari.com/docconv"
	"github.com/cloo-solutions/docqa/internal/domain"
)

// PDFConverter parses a whole PDF and returns its text and pdfinfo metadata.
type PDFConverter func(r io.Reader) (string, map[string]string, error)

// Extractor validates a PDF with docconv and pulls text page by page with
// pdftotext so one damaged page does not lose the whole document. The docconv
// text is used only when no page yields any text.
type Extractor struct {
	convert PDFConverter
	runner  CommandRunner
	tempDir string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithConverter replaces the docconv converter.
func WithConverter(convert PDFConverter) Option {
	return func(e *Extractor) {
		e.convert = convert
	}
}

// WithRunner replaces the command runner used for per-page extraction.
func WithRunner(runner CommandRunner) Option {
	return func(e *Extractor) {
		e.runner = runner
	}
}

// WithTempDir sets the directory used for the scratch copy of the PDF.
func WithTempDir(dir string) Option {
	return func(e *Extractor) {
		e.tempDir = dir
	}
}

func New(opts ...Option) *Extractor {
	e := &Extractor{
		convert: docconv.ConvertPDF,
		runner:  ExecRunner{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the normalized text of raw.
func (e *Extractor) Extract(ctx context.Context, raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", domain.ErrCorruptInput
	}

	docText, meta, err := e.convert(bytes.NewReader(raw))
	if err != nil {
		return "", domain.ErrCorruptInput.Wrap(err)
	}

	path, cleanup, err := e.writeTemp(raw)
	if err != nil {
		return "", fmt.Errorf("failed to stage pdf: %w", err)
	}
	defer cleanup()

	pages, err := e.pageCount(ctx, meta, path)
	if err != nil {
		return "", domain.ErrCorruptInput.Wrap(err)
	}
	if pages == 0 {
		return "", domain.ErrCorruptInput.Wrap(fmt.Errorf("pdf has no pages"))
	}

	var sb strings.Builder
	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := e.pageText(ctx, path, page)
		if err != nil {
			log.Printf("extract: skipping page %d/%d: %v", page, pages, err)
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	text := sb.String()
	if strings.TrimSpace(text) == "" {
		if strings.TrimSpace(docText) == "" {
			return "", domain.ErrEmptyContent
		}
		log.Printf("WARN: extract: no page yielded text, using whole-document conversion")
		text = docText
	}

	normalized := Normalize(text)
	log.Printf("extract: %d characters from %d pages", len([]rune(normalized)), pages)
	return normalized, nil
}

func (e *Extractor) pageText(ctx context.Context, path string, page int) (string, error) {
	n := strconv.Itoa(page)
	out, err := e.runner.Run(ctx, "pdftotext",
		"-q", "-f", n, "-l", n, "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}
	return string(out), nil
}

// pageCount prefers the docconv metadata and asks pdfinfo directly when the
// key is absent.
func (e *Extractor) pageCount(ctx context.Context, meta map[string]string, path string) (int, error) {
	if v, ok := meta["Pages"]; ok {
		return strconv.Atoi(strings.TrimSpace(v))
	}

	out, err := e.runner.Run(ctx, "pdfinfo", path)
	if err != nil {
		return 0, fmt.Errorf("pdfinfo failed: %w", err)
	}
	return parsePDFInfoPages(out)
}

func parsePDFInfoPages(out []byte) (int, error) {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok || strings.TrimSpace(key) != "Pages" {
			continue
		}
		return strconv.Atoi(strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("page count missing from pdfinfo output")
}

func (e *Extractor) writeTemp(raw []byte) (string, func(), error) {
	f, err := os.CreateTemp(e.tempDir, "docqa-*.pdf")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.Remove(f.Name()) }

	if _, err := f.Write(raw); err != nil {
		f.Close()
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return f.Name(), cleanup, nil
}
