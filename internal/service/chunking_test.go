package service

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var policyWords = []string{"policy", "coverage", "claim", "benefit", "insured", "premium", "period", "hospital", "treatment", "waiting"}

// policySentence builds a deterministic sentence of exactly length characters.
func policySentence(i, length int) string {
	s := fmt.Sprintf("Clause %02d", i)
	k := i
	for len(s) < length {
		s += " " + policyWords[k%len(policyWords)]
		k += 3
	}
	s = s[:length]
	if strings.HasSuffix(s, " ") {
		s = s[:len(s)-1] + "x"
	}
	return s
}

func policyText(sentences, length int) string {
	parts := make([]string, sentences)
	for i := range parts {
		parts[i] = policySentence(i, length)
	}
	return strings.Join(parts, ". ") + "."
}

func TestChunkText_TwoPageScenario(t *testing.T) {
	text := policyText(39, 57)
	require.Equal(t, 2300, utf8.RuneCountInString(text))

	chunks := ChunkText(text, ChunkConfig{MaxChars: 1000, Overlap: 200})

	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 1000, "chunk %d", i)
	}
	for i := 1; i < len(chunks); i++ {
		tail := overlapTail(chunks[i-1], 200)
		assert.NotEmpty(t, tail)
		assert.LessOrEqual(t, utf8.RuneCountInString(tail), 200)
		assert.True(t, strings.HasPrefix(chunks[i], tail), "chunk %d should start with the tail of chunk %d", i, i-1)
		assert.True(t, strings.HasSuffix(chunks[i-1], tail))
	}
	assert.True(t, strings.HasPrefix(chunks[0], "Clause 00"))
}

func TestChunkText_Deterministic(t *testing.T) {
	text := policyText(60, 73)
	cfg := ChunkConfig{MaxChars: 500, Overlap: 120}

	first := ChunkText(text, cfg)
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, ChunkText(text, cfg))
	}
}

func TestChunkText_ShortTextSingleChunk(t *testing.T) {
	chunks := ChunkText("First sentence. Second one! Third?", DefaultChunkConfig())

	assert.Equal(t, []string{"First sentence Second one Third"}, chunks)
}

func TestChunkText_EmptyAndPunctuationOnly(t *testing.T) {
	assert.Empty(t, ChunkText("", DefaultChunkConfig()))
	assert.Empty(t, ChunkText("... !!! ??", DefaultChunkConfig()))
}

func TestChunkText_OversizeSentenceKeptWhole(t *testing.T) {
	long := strings.Repeat("a", 150)
	text := long + ". short tail."

	chunks := ChunkText(text, ChunkConfig{MaxChars: 100, Overlap: 20})

	require.Len(t, chunks, 2)
	assert.Equal(t, long, chunks[0])
	// The tail of a space-free chunk is used verbatim.
	assert.Equal(t, strings.Repeat("a", 20)+" short tail", chunks[1])
}

func TestChunkText_ZeroOverlap(t *testing.T) {
	text := "alpha beta gamma. delta epsilon zeta. eta theta iota."

	chunks := ChunkText(text, ChunkConfig{MaxChars: 20, Overlap: 0})

	assert.Equal(t, []string{"alpha beta gamma", "delta epsilon zeta", "eta theta iota"}, chunks)
}

func TestChunkText_NearMaxSentenceShortensOverlap(t *testing.T) {
	first := policySentence(1, 599)
	second := policySentence(2, 899)
	third := policySentence(3, 999)
	text := first + ". " + second + ". " + third + "."

	chunks := ChunkText(text, ChunkConfig{MaxChars: 1000, Overlap: 200})

	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 1000, "chunk %d", i)
	}
	assert.Equal(t, first, chunks[0])

	tail := overlapTail(chunks[0], 100)
	require.NotEmpty(t, tail)
	assert.Equal(t, tail+" "+second, chunks[1])

	assert.Equal(t, third, chunks[2], "no room left for overlap")
}

func TestChunkText_JoiningSpaceCountsTowardsBound(t *testing.T) {
	chunks := ChunkText("hello. there.", ChunkConfig{MaxChars: 10, Overlap: 0})

	assert.Equal(t, []string{"hello", "there"}, chunks)
}

func TestChunkText_DefaultsWhenUnset(t *testing.T) {
	text := policyText(39, 57)

	assert.Equal(t, ChunkText(text, DefaultChunkConfig()), ChunkText(text, ChunkConfig{}))
}

func TestOverlapTail(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		n        int
		expected string
	}{
		{"shorter than window", "short text", 20, "short text"},
		{"equal to window", "exact", 5, "exact"},
		{"cuts at first space", "the quick brown fox", 8, "fox"},
		{"no space uses tail", "abcdefghij", 4, "ghij"},
		{"space at window start", "one two three", 6, "three"},
		{"zero window", "anything", 0, ""},
		{"multibyte characters", "naïve café olé", 6, "olé"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, overlapTail(tt.text, tt.n))
		})
	}
}
