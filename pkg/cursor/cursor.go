// Package cursor implements opaque keyset pagination cursors.
// A cursor is a tagged composite key (sort field, sort value, entity id)
// encoded as base64url JSON. Callers treat the encoded form as opaque.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// ErrInvalidCursor indicates malformed cursor input or a cursor encoded for
// a different sort field. Callers restart pagination from the first page.
var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor is the resume point after the entry with the given key and id.
type Cursor struct {
	Field string `json:"f"`
	Key   int64  `json:"k"`
	ID    string `json:"id"`
}

// Encode serializes the cursor to its opaque wire form.
func (c Cursor) Encode() string {
	raw, _ := json.Marshal(c) // struct of scalars, cannot fail
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Decode parses an opaque cursor string.
func Decode(s string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	if c.Field == "" || c.ID == "" {
		return Cursor{}, ErrInvalidCursor
	}
	return c, nil
}

// DecodeFor parses a cursor and rejects one encoded for a different sort
// field. Changing the sort mid-pagination is a caller error, not a silent
// reinterpretation.
func DecodeFor(s, field string) (Cursor, error) {
	c, err := Decode(s)
	if err != nil {
		return Cursor{}, err
	}
	if c.Field != field {
		return Cursor{}, ErrInvalidCursor
	}
	return c, nil
}
