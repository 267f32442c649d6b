// Package pagination implements keyset paging over (created_at, id) ordered listings.
package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

var ErrInvalidCursor = errors.New("invalid cursor")

// Params is the caller's paging request. A zero value asks for the full listing.
type Params struct {
	Limit  int
	Cursor string
}

// Paged reports whether the caller asked for a page rather than everything.
func (p Params) Paged() bool {
	return p.Limit > 0 || strings.TrimSpace(p.Cursor) != ""
}

// Cursor is the position of the last row a client has seen.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// Window is a resolved page request: Fetch is one more than Limit so the
// repository read reveals whether another page exists.
type Window struct {
	Limit int
	Fetch int
	After *Cursor
}

// Window normalizes the limit and decodes the cursor. Unpaged params yield a zero Window.
func (p Params) Window() (Window, error) {
	if !p.Paged() {
		return Window{}, nil
	}
	after, err := ParseCursor(p.Cursor)
	if err != nil {
		return Window{}, err
	}
	limit := NormalizeLimit(p.Limit)
	return Window{Limit: limit, Fetch: limit + 1, After: after}, nil
}

// NormalizeLimit clamps limit into [1, MaxLimit], using DefaultLimit for non-positive input.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// Trim cuts rows fetched with w.Fetch down to the page and returns the cursor of
// the next page, or "" on the last one.
func Trim[T any](rows []T, w Window, position func(T) Cursor) ([]T, string) {
	if w.Limit <= 0 || len(rows) <= w.Limit {
		return rows, ""
	}
	rows = rows[:w.Limit]
	return rows, EncodeCursor(position(rows[len(rows)-1]))
}

// EncodeCursor renders c as an opaque, URL-safe token.
func EncodeCursor(c Cursor) string {
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor decodes a token from EncodeCursor. A blank token means "from the start".
func ParseCursor(token string) (*Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	createdAt, id, ok := strings.Cut(string(decoded), "|")
	if !ok {
		return nil, fmt.Errorf("%w: missing separator", ErrInvalidCursor)
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return &Cursor{CreatedAt: ts, ID: uid}, nil
}
