package doubts

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-pdf/fpdf"

	"doubtabase/internal/domain/models"
)

func samplePDFRows() []models.ExportDoubtRow {
	base := time.Date(2026, 2, 9, 13, 0, 0, 0, time.UTC)
	return []models.ExportDoubtRow{
		{
			ID:           "doubt-1",
			Title:        "Why does the chain rule drop a factor here?",
			BodyMarkdown: "I differentiated f(g(x)) and lost the g'(x) term.\n\nSecond paragraph with more detail.",
			Subject:      "Calculus",
			Subtopics:    []string{"derivatives", "composition"},
			Difficulty:   models.DifficultyHard,
			ErrorTags:    []string{"sign error"},
			CreatedAt:    base,
		},
		{
			ID:           "doubt-2",
			Title:        "Cleared doubt",
			BodyMarkdown: strings.Repeat("A long body that forces wrapping onto several lines. ", 80),
			Subject:      "Algebra",
			Difficulty:   models.DifficultyEasy,
			IsCleared:    true,
			CreatedAt:    base.Add(-time.Hour),
		},
	}
}

// countPages counts page objects, excluding the /Type /Pages tree node the
// raw substring would also match.
func countPages(out []byte) int {
	return bytes.Count(out, []byte("/Type /Page")) - bytes.Count(out, []byte("/Type /Pages"))
}

func TestRenderExportPDF(t *testing.T) {
	var buf bytes.Buffer
	opts := PDFOptions{
		RoomName:       "Study Group",
		SelectionLabel: "All doubts",
		GeneratedAt:    time.Date(2026, 2, 9, 13, 0, 0, 0, time.UTC),
	}

	err := RenderExportPDF(context.Background(), &buf, samplePDFRows(), nil, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.Bytes()
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatal("output does not start with a PDF header")
	}
	if len(out) < 1000 {
		t.Errorf("output suspiciously small: %d bytes", len(out))
	}
}

func TestRenderExportPDF_OnePagePerDoubt(t *testing.T) {
	short := models.ExportDoubtRow{
		ID:           "doubt-short",
		Title:        "Short",
		BodyMarkdown: "One line.",
		Subject:      "Misc",
		Difficulty:   models.DifficultyEasy,
		CreatedAt:    time.Now(),
	}

	second := short
	second.ID = "doubt-short-2"
	second.Title = "Also short"

	tests := []struct {
		name  string
		rows  []models.ExportDoubtRow
		pages int
	}{
		{"single doubt", []models.ExportDoubtRow{short}, 2},
		{"two doubts", []models.ExportDoubtRow{short, second}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := RenderExportPDF(context.Background(), &buf, tt.rows, nil, PDFOptions{GeneratedAt: time.Now()})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			// Cover page plus a fresh page per doubt; a short doubt must
			// never share the cover or a neighbour's page.
			if got := countPages(buf.Bytes()); got != tt.pages {
				t.Errorf("expected %d pages, got %d", tt.pages, got)
			}
		})
	}
}

func TestRenderExportPDF_PlaceholderOnFetchFailure(t *testing.T) {
	rows := samplePDFRows()[:1]
	attachments := map[string][]models.ExportAttachmentRow{
		"doubt-1": {{ID: "a1", DoubtID: "doubt-1", StoragePath: "doubts/u/d/missing.png"}},
	}

	var buf bytes.Buffer
	opts := PDFOptions{
		GeneratedAt: time.Now(),
		FetchImage: func(context.Context, string) ([]byte, error) {
			return nil, errors.New("blob gone")
		},
	}

	if err := RenderExportPDF(context.Background(), &buf, rows, attachments, opts); err != nil {
		t.Fatalf("fetch failure must degrade to a placeholder, got error: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatal("output does not start with a PDF header")
	}
}

func TestRenderExportPDF_LongBodyPaginates(t *testing.T) {
	row := models.ExportDoubtRow{
		ID:           "doubt-long",
		Title:        "Pagination",
		BodyMarkdown: strings.Repeat("line\n", 400),
		Subject:      "Misc",
		Difficulty:   models.DifficultyMedium,
		CreatedAt:    time.Now(),
	}

	var buf bytes.Buffer
	err := RenderExportPDF(context.Background(), &buf, []models.ExportDoubtRow{row}, nil, PDFOptions{GeneratedAt: time.Now()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Cover plus at least two content pages for the long body.
	if pages := countPages(buf.Bytes()); pages < 3 {
		t.Errorf("expected at least 3 pages, found %d", pages)
	}
}

func TestEnsureSpaceRestoresFontAfterContinuation(t *testing.T) {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.AddPage()
	r := &pdfRenderer{pdf: pdf, doubtTitle: "Mid-break doubt"}

	r.setFont("B", 14)
	pdf.SetXY(pdfMargin, pdfContentBot-1)
	r.ensureSpace(18)

	if r.continued != 1 {
		t.Fatalf("expected a page break with continuation heading, continued = %d", r.continued)
	}
	// The continuation heading draws in italic 10; the caller's font must
	// come back so remaining title lines stay bold 14.
	if size, _ := pdf.GetFontSize(); size != 14 {
		t.Errorf("font size after break = %v, want 14", size)
	}
}

func TestWrapRespectsWidth(t *testing.T) {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 10)
	r := &pdfRenderer{pdf: pdf}

	const width = 120.0
	text := "a few short words plus an extraordinarily" +
		strings.Repeat("x", 200) + " long token"

	lines := r.wrap(text, width)
	if len(lines) < 2 {
		t.Fatalf("expected multiple lines, got %d", len(lines))
	}
	for i, line := range lines {
		if w := pdf.GetStringWidth(line); w > width {
			t.Errorf("line %d overflows: %.1f > %.1f (%q)", i, w, width, line)
		}
	}

	joined := strings.ReplaceAll(strings.Join(lines, ""), " ", "")
	original := strings.ReplaceAll(text, " ", "")
	if joined != original {
		t.Error("wrapping lost or reordered characters")
	}
}
