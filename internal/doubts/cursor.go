package doubts

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"doubtabase/internal/domain"
)

// Cursor marks the position after the last row of a page under
// (created_at DESC, id DESC) order. CreatedAt is the row's RFC 3339 timestamp
// exactly as serialized by the store; keeping it as a string makes the
// round-trip byte-stable.
//
// Resuming appends only "created_at < cursor.created_at" — not the full
// (created_at, id) tuple — so rows sharing the cursor's exact timestamp with a
// smaller id are skipped. Known limitation, kept for compatibility with
// previously issued cursors.
type Cursor struct {
	CreatedAt string `json:"created_at"`
	ID        string `json:"id"`
}

// EncodeCursor serializes a cursor as unpadded URL-safe base64 of its
// two-field JSON form.
func EncodeCursor(c Cursor) string {
	payload, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(payload)
}

// DecodeCursor parses a cursor token. Any structural defect — undecodable
// base64, JSON not matching the exact pair shape, a created_at that is not a
// valid RFC 3339 datetime, or an id that is not a UUID — fails with
// domain.ErrInvalidCursor. Supersets of the pair shape are rejected.
func DecodeCursor(token string) (Cursor, error) {
	raw, err := decodeURLBase64(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", domain.ErrInvalidCursor, err)
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()

	var cursor Cursor
	if err := decoder.Decode(&cursor); err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", domain.ErrInvalidCursor, err)
	}
	if decoder.More() {
		return Cursor{}, fmt.Errorf("%w: trailing data", domain.ErrInvalidCursor)
	}

	if _, err := time.Parse(time.RFC3339, cursor.CreatedAt); err != nil {
		return Cursor{}, fmt.Errorf("%w: bad created_at", domain.ErrInvalidCursor)
	}
	if _, err := uuid.Parse(cursor.ID); err != nil {
		return Cursor{}, fmt.Errorf("%w: bad id", domain.ErrInvalidCursor)
	}

	return cursor, nil
}

// CreatedAtTime returns the cursor timestamp as a time.Time. Only valid on
// cursors produced by DecodeCursor.
func (c Cursor) CreatedAtTime() time.Time {
	t, _ := time.Parse(time.RFC3339, c.CreatedAt)
	return t
}

// decodeURLBase64 accepts both padded and unpadded url-safe base64, since
// tokens minted by earlier releases carried padding.
func decodeURLBase64(token string) ([]byte, error) {
	if raw, err := base64.RawURLEncoding.DecodeString(token); err == nil {
		return raw, nil
	}
	return base64.URLEncoding.DecodeString(token)
}
