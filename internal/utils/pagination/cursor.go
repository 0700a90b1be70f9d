package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidToken is returned for tokens that were not produced by Encode.
var ErrInvalidToken = errors.New("invalid pagination token")

// Cursor is the opaque pagination state we encode/decode.
// ID + Unix (millis) establish a stable keyset position for lists ordered
// by time DESC, id DESC.
type Cursor struct {
	ID   uint64 `json:"id"`
	Unix int64  `json:"ts,omitempty"`
}

// At builds a cursor positioned after the row (id, t).
func At(id uint64, t time.Time) Cursor {
	return Cursor{ID: id, Unix: t.UnixMilli()}
}

// IsZero reports whether c points at the first page.
func (c Cursor) IsZero() bool { return c.ID == 0 || c.Unix == 0 }

// Time returns the cursor timestamp.
func (c Cursor) Time() time.Time { return time.UnixMilli(c.Unix).UTC() }

// Encode converts a Cursor into a Base64 string.
func Encode(c Cursor) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Decode parses a Base64 string into a Cursor.
// Empty token → empty cursor (first page).
func Decode(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}

	b, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, ErrInvalidToken
	}

	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return Cursor{}, ErrInvalidToken
	}
	return c, nil
}
