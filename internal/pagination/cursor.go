package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

// Cursor marks the last row of a page in (created_at DESC, id DESC) order.
type Cursor struct {
	ID        string
	CreatedAt time.Time
}

var ErrInvalidCursor = errors.New("invalid cursor format")

const sep = "|"

// Encode returns an opaque, URL-safe cursor for the row (id, createdAt).
func Encode(id string, createdAt time.Time) string {
	if id == "" {
		return ""
	}
	raw := createdAt.UTC().Format(time.RFC3339Nano) + sep + id
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Decode parses a cursor produced by Encode. An empty string decodes to nil.
func Decode(cursor string) (*Cursor, error) {
	if cursor == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	ts, id, ok := strings.Cut(string(decoded), sep)
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}

	createdAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &Cursor{ID: id, CreatedAt: createdAt}, nil
}

// ClampLimit returns def for non-positive limits and caps the rest at max.
func ClampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// Trim cuts rows fetched with LIMIT limit+1 down to one page. It reports whether
// more rows follow and, if so, the cursor of the last row kept.
func Trim[T any](rows []T, limit int, key func(T) (string, time.Time)) ([]T, string, bool) {
	if len(rows) <= limit {
		return rows, "", false
	}
	rows = rows[:limit]
	if limit == 0 {
		return rows, "", true
	}
	id, createdAt := key(rows[len(rows)-1])
	return rows, Encode(id, createdAt), true
}
