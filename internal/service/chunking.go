package service

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// ChunkConfig controls how document text is split for embedding.
type ChunkConfig struct {
	MaxChars int
	Overlap  int
}

// DefaultChunkConfig provides the defaults used for ingestion.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChars: 1000,
		Overlap:  200,
	}
}

var sentenceBoundary = regexp.MustCompile(`[.!?]+`)

// ChunkText splits text into sentence-aligned chunks of at most cfg.MaxChars
// characters. Each chunk after the first starts with the word-aligned tail of
// its predecessor. A single sentence longer than MaxChars is kept whole.
func ChunkText(text string, cfg ChunkConfig) []string {
	if cfg.MaxChars <= 0 {
		cfg = DefaultChunkConfig()
	}

	var chunks []string
	current := ""
	for _, sentence := range splitSentences(text) {
		size := utf8.RuneCountInString(current) + utf8.RuneCountInString(sentence)
		if current != "" {
			size++
		}
		if size > cfg.MaxChars {
			if current != "" {
				chunks = append(chunks, strings.TrimSpace(current))
				current = joinOverlap(overlapTail(current, seedBudget(cfg, sentence)), sentence)
			} else {
				current = sentence
			}
			continue
		}

		if current == "" {
			current = sentence
		} else {
			current += " " + sentence
		}
	}

	if current != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}
	return chunks
}

func splitSentences(text string) []string {
	parts := sentenceBoundary.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// seedBudget is the overlap length that still lets sentence fit in MaxChars
// after the joining space.
func seedBudget(cfg ChunkConfig, sentence string) int {
	return min(cfg.Overlap, cfg.MaxChars-utf8.RuneCountInString(sentence)-1)
}

// overlapTail returns the last n characters of text, starting after the
// first space in that window so the seam does not split a word.
func overlapTail(text string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}

	tail := string(runes[len(runes)-n:])
	if idx := strings.IndexByte(tail, ' '); idx != -1 {
		return strings.TrimSpace(tail[idx:])
	}
	return tail
}

func joinOverlap(overlap, sentence string) string {
	if overlap == "" {
		return sentence
	}
	return overlap + " " + sentence
}
