package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"doubtabase/internal/domain/models"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	c, err := New("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	return c, s
}

func TestSignedURLRoundTrip(t *testing.T) {
	c, s := setupTestCache(t)
	defer c.Close()
	defer s.Close()

	ctx := context.Background()
	path := "doubts/u1/d1/img.png"

	if got := c.GetSignedURL(ctx, path); got != "" {
		t.Errorf("expected miss, got %q", got)
	}

	c.SetSignedURL(ctx, path, "https://signed.example/img", 10*time.Minute)
	if got := c.GetSignedURL(ctx, path); got != "https://signed.example/img" {
		t.Errorf("got %q", got)
	}
}

func TestSignedURLExpires(t *testing.T) {
	c, s := setupTestCache(t)
	defer c.Close()
	defer s.Close()

	ctx := context.Background()
	c.SetSignedURL(ctx, "p", "https://signed.example/p", time.Minute)

	s.FastForward(2 * time.Minute)

	if got := c.GetSignedURL(ctx, "p"); got != "" {
		t.Errorf("expected expiry, got %q", got)
	}
}

func TestSuggestionsRoundTripAndInvalidate(t *testing.T) {
	c, s := setupTestCache(t)
	defer c.Close()
	defer s.Close()

	ctx := context.Background()
	want := &models.Suggestions{
		Subjects:  []string{"Calculus"},
		Subtopics: []string{"derivatives"},
		ErrorTags: []string{"sign error"},
	}

	if got := c.GetSuggestions(ctx, "room-1"); got != nil {
		t.Errorf("expected miss, got %v", got)
	}

	c.SetSuggestions(ctx, "room-1", want, time.Minute)
	got := c.GetSuggestions(ctx, "room-1")
	if got == nil || len(got.Subjects) != 1 || got.Subjects[0] != "Calculus" {
		t.Errorf("got %v", got)
	}

	c.InvalidateSuggestions(ctx, "room-1")
	if got := c.GetSuggestions(ctx, "room-1"); got != nil {
		t.Errorf("expected miss after invalidation, got %v", got)
	}
}

func TestNilCacheIsAlwaysMiss(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	if got := c.GetSignedURL(ctx, "p"); got != "" {
		t.Errorf("nil cache returned %q", got)
	}
	c.SetSignedURL(ctx, "p", "u", time.Minute)
	if got := c.GetSuggestions(ctx, "r"); got != nil {
		t.Errorf("nil cache returned %v", got)
	}
	c.InvalidateSuggestions(ctx, "r")
	if err := c.Close(); err != nil {
		t.Errorf("nil close: %v", err)
	}
}
