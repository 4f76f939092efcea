package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"doubtabase/internal/domain"
	"doubtabase/internal/domain/models"
)

type exportFixture struct {
	svc       *ExportService
	rooms     *RoomService
	doubtRepo *fakeDoubtRepo
}

func newExportFixture() *exportFixture {
	doubtRepo := newFakeDoubtRepo()
	rooms := NewRoomService(newFakeRoomRepo(), newFakeInviteRepo(), fakeTxManager{}, discardLogger())
	svc := NewExportService(doubtRepo, newFakeAttachmentRepo(), rooms, newFakeBlobStore(), discardLogger())
	return &exportFixture{svc: svc, rooms: rooms, doubtRepo: doubtRepo}
}

func (f *exportFixture) seedDoubts(t *testing.T, userID string, n int) []string {
	t.Helper()
	room, err := f.rooms.EnsurePersonalRoom(context.Background(), userID)
	if err != nil {
		t.Fatalf("EnsurePersonalRoom() error = %v", err)
	}

	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		doubt := &models.Doubt{
			RoomID:       room.ID,
			UserID:       userID,
			Title:        fmt.Sprintf("Doubt %d", i),
			BodyMarkdown: "Why does this integral diverge?",
			Subject:      "Calculus",
			Difficulty:   models.DifficultyMedium,
		}
		if err := f.doubtRepo.Create(context.Background(), doubt); err != nil {
			t.Fatalf("seed doubt %d: %v", i, err)
		}
		ids = append(ids, doubt.ID)
	}
	return ids
}

func TestBuildPDFManualSelection(t *testing.T) {
	f := newExportFixture()
	ids := f.seedDoubts(t, "user-1", 3)

	var buf bytes.Buffer
	out, err := f.svc.BuildPDF(context.Background(), &buf, "user-1", PDFRequest{
		Mode: ExportModeManual,
		IDs:  ids,
	})
	if err != nil {
		t.Fatalf("BuildPDF() error = %v", err)
	}

	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Error("output does not start with a PDF header")
	}
	if !strings.HasPrefix(out.Filename, "doubts-personal-") || !strings.HasSuffix(out.Filename, ".pdf") {
		t.Errorf("filename = %q", out.Filename)
	}
}

func TestBuildPDFRefusesTruncatedSelection(t *testing.T) {
	f := newExportFixture()
	f.seedDoubts(t, "user-1", 1)

	ids := make([]string, 1201)
	for i := range ids {
		ids[i] = fmt.Sprintf("id-%d", i)
	}

	var buf bytes.Buffer
	_, err := f.svc.BuildPDF(context.Background(), &buf, "user-1", PDFRequest{
		Mode: ExportModeManual,
		IDs:  ids,
	})

	var truncated *domain.TruncatedError
	if !errors.As(err, &truncated) {
		t.Fatalf("BuildPDF() error = %v, want TruncatedError", err)
	}
	if truncated.MaxRows != 1200 {
		t.Errorf("MaxRows = %d, want 1200", truncated.MaxRows)
	}
	if buf.Len() != 0 {
		t.Errorf("wrote %d bytes despite refusal", buf.Len())
	}
}

func TestBuildPDFRejectsUnknownMode(t *testing.T) {
	f := newExportFixture()
	f.seedDoubts(t, "user-1", 1)

	var buf bytes.Buffer
	_, err := f.svc.BuildPDF(context.Background(), &buf, "user-1", PDFRequest{Mode: "sideways"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("BuildPDF(bad mode) error = %v, want ErrValidation", err)
	}
}

func TestCandidatesScopedToRoom(t *testing.T) {
	f := newExportFixture()
	f.seedDoubts(t, "user-1", 4)
	f.seedDoubts(t, "user-2", 2)

	result, err := f.svc.Candidates(context.Background(), "user-1", nil, models.ExportFilter{})
	if err != nil {
		t.Fatalf("Candidates() error = %v", err)
	}
	if len(result.Rows) != 4 {
		t.Errorf("rows = %d, want 4", len(result.Rows))
	}
	if result.Truncated {
		t.Error("small result flagged truncated")
	}
}

func TestSelectionLabel(t *testing.T) {
	cleared := true
	tests := []struct {
		name string
		mode ExportMode
		f    models.ExportFilter
		want string
	}{
		{"all mode", ExportModeAll, models.ExportFilter{}, "all doubts"},
		{"empty filter", ExportModeFilter, models.ExportFilter{}, "all doubts"},
		{"search only", ExportModeFilter, models.ExportFilter{Q: "limits"}, `filtered: matching "limits"`},
		{
			"combined",
			ExportModeFilter,
			models.ExportFilter{Subject: "Calculus", IsCleared: &cleared},
			"filtered: subject Calculus, cleared only",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := selectionLabel(tt.mode, tt.f); got != tt.want {
				t.Errorf("selectionLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToFileSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Personal", "personal"},
		{"Physics Study Group", "physics-study-group"},
		{"  JEE 2026!!  ", "jee-2026"},
		{"___", "room"},
	}

	for _, tt := range tests {
		if got := toFileSlug(tt.in); got != tt.want {
			t.Errorf("toFileSlug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
