package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"doubtabase/internal/domain/models"
	"doubtabase/internal/httputil"
)

type stubVerifier struct {
	userID string
	err    error
}

func (v *stubVerifier) VerifyToken(string) (*models.SupabaseClaims, error) {
	if v.err != nil {
		return nil, v.err
	}
	return &models.SupabaseClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: v.userID},
	}, nil
}

func (v *stubVerifier) Close() error { return nil }

func TestAuthInjectsUserID(t *testing.T) {
	var gotUserID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = httputil.GetUserID(r)
	})

	h := Auth(&stubVerifier{userID: "user-42"})(next)

	req := httptest.NewRequest(http.MethodGet, "/api/doubts", nil)
	req.Header.Set("Authorization", "Bearer some.jwt.token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotUserID != "user-42" {
		t.Errorf("user id = %q, want user-42", gotUserID)
	}
}

func TestAuthRejectsMissingAndBadTokens(t *testing.T) {
	tests := []struct {
		name     string
		verifier *stubVerifier
		header   string
	}{
		{"no header", &stubVerifier{userID: "u"}, ""},
		{"not bearer", &stubVerifier{userID: "u"}, "Basic abc"},
		{"rejected token", &stubVerifier{err: errors.New("expired")}, "Bearer bad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })
			h := Auth(tt.verifier)(next)

			req := httptest.NewRequest(http.MethodGet, "/api/doubts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			if called {
				t.Error("next handler ran without valid auth")
			}
		})
	}
}

func TestAuthExemptPaths(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })
	h := Auth(&stubVerifier{err: errors.New("never consulted")}, "/health")(next)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !called {
		t.Error("exempt path did not reach the handler")
	}
}
