package doubts

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"doubtabase/internal/domain"
)

func TestCursorRoundTrip(t *testing.T) {
	created := time.Date(2026, 2, 9, 13, 0, 0, 0, time.UTC)
	id := "0f2a7c2e-9d1b-4f5a-8c3d-1e2f3a4b5c6d"

	encoded := EncodeCursor(Cursor{CreatedAt: created.Format(time.RFC3339), ID: id})
	got, err := DecodeCursor(encoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != id {
		t.Errorf("id = %q, want %q", got.ID, id)
	}
	if !got.CreatedAtTime().Equal(created) {
		t.Errorf("created_at = %v, want %v", got.CreatedAtTime(), created)
	}
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "not base64", input: "%%%"},
		{name: "not json", input: base64.RawURLEncoding.EncodeToString([]byte("hello"))},
		{name: "json scalar", input: base64.RawURLEncoding.EncodeToString([]byte(`"hi"`))},
		{name: "missing id", input: base64.RawURLEncoding.EncodeToString([]byte(`{"created_at":"2026-02-09T13:00:00Z"}`))},
		{name: "bad timestamp", input: base64.RawURLEncoding.EncodeToString([]byte(`{"created_at":"yesterday","id":"0f2a7c2e-9d1b-4f5a-8c3d-1e2f3a4b5c6d"}`))},
		{name: "non uuid id", input: base64.RawURLEncoding.EncodeToString([]byte(`{"created_at":"2026-02-09T13:00:00Z","id":"42"}`))},
		{name: "unknown field", input: base64.RawURLEncoding.EncodeToString([]byte(`{"created_at":"2026-02-09T13:00:00Z","id":"0f2a7c2e-9d1b-4f5a-8c3d-1e2f3a4b5c6d","extra":1}`))},
		{name: "trailing data", input: base64.RawURLEncoding.EncodeToString([]byte(`{"created_at":"2026-02-09T13:00:00Z","id":"0f2a7c2e-9d1b-4f5a-8c3d-1e2f3a4b5c6d"} {}`))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeCursor(tt.input); !errors.Is(err, domain.ErrInvalidCursor) {
				t.Fatalf("expected ErrInvalidCursor, got %v", err)
			}
		})
	}
}

func TestDecodeCursorAcceptsPadded(t *testing.T) {
	payload := []byte(`{"created_at":"2026-02-09T13:00:00Z","id":"0f2a7c2e-9d1b-4f5a-8c3d-1e2f3a4b5c6d"}`)
	padded := base64.URLEncoding.EncodeToString(payload)

	if _, err := DecodeCursor(padded); err != nil {
		t.Fatalf("padded cursor should decode: %v", err)
	}
}
