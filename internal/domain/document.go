package domain

import (
	"net/url"
	"strings"
	"time"
)

// Document is a source PDF identified by its URL.
type Document struct {
	ID         string
	URL        string
	UploadedAt time.Time
}

// DocumentChunk is one contiguous span of a document's normalized text.
type DocumentChunk struct {
	ID         string
	DocumentID string
	ChunkIndex int
	Text       string
	VectorID   string
	CreatedAt  time.Time
}

// NewDocumentChunk creates a new DocumentChunk instance
func NewDocumentChunk(id, documentID string, chunkIndex int, text, vectorID string, createdAt time.Time) *DocumentChunk {
	return &DocumentChunk{
		ID:         id,
		DocumentID: documentID,
		ChunkIndex: chunkIndex,
		Text:       text,
		VectorID:   vectorID,
		CreatedAt:  createdAt,
	}
}

// Placeholder vector id prefixes used when the vector index could not store a chunk.
const (
	LocalVectorPrefix    = "local_"
	FallbackVectorPrefix = "fallback_"
)

// IsPlaceholderVectorID reports whether id was generated locally instead of by a
// successful vector upsert.
func IsPlaceholderVectorID(id string) bool {
	return strings.HasPrefix(id, LocalVectorPrefix) || strings.HasPrefix(id, FallbackVectorPrefix)
}

// ValidateDocumentURL checks that raw is an absolute http or https URL.
func ValidateDocumentURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ErrInvalidURL.Wrap(err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidURL
	}
	if u.Host == "" {
		return ErrInvalidURL
	}
	return nil
}
