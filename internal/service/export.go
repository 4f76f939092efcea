package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"doubtabase/internal/config"
	"doubtabase/internal/domain"
	"doubtabase/internal/domain/models"
	"doubtabase/internal/domain/repositories"
	"doubtabase/internal/doubts"
)

// ExportMode selects how the doubts of a PDF export are chosen.
type ExportMode string

const (
	ExportModeAll    ExportMode = "all"
	ExportModeManual ExportMode = "manual"
	ExportModeFilter ExportMode = "filter"
)

// ExportService drives the export candidate listing and PDF generation.
type ExportService struct {
	doubtRepo      repositories.DoubtRepository
	attachmentRepo repositories.AttachmentRepository
	rooms          *RoomService
	blobs          repositories.BlobStore
	logger         *slog.Logger
}

// NewExportService creates a new export service
func NewExportService(
	doubtRepo repositories.DoubtRepository,
	attachmentRepo repositories.AttachmentRepository,
	rooms *RoomService,
	blobs repositories.BlobStore,
	logger *slog.Logger,
) *ExportService {
	return &ExportService{
		doubtRepo:      doubtRepo,
		attachmentRepo: attachmentRepo,
		rooms:          rooms,
		blobs:          blobs,
		logger:         logger,
	}
}

// Candidates returns every doubt matching the filter up to the browse cap,
// flagged when the cap cut the scan short.
func (s *ExportService) Candidates(ctx context.Context, userID string, roomID *string, f models.ExportFilter) (*doubts.ExportResult, error) {
	rc, err := s.rooms.ResolveRoomContext(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	return doubts.FetchForExport(ctx, s.doubtRepo, rc.ID, f, config.MaxExportBrowseRows)
}

// PDFRequest is a parsed PDF export request.
type PDFRequest struct {
	RoomID *string
	Mode   ExportMode
	IDs    []string
	Filter models.ExportFilter
}

// PDFExport is a rendered document and the filename to serve it under.
type PDFExport struct {
	Filename string
}

// BuildPDF selects rows by mode, renders the document into w, and returns the
// download metadata. A selection wider than the PDF row cap is refused with
// domain.TruncatedError rather than rendering a partial document.
func (s *ExportService) BuildPDF(ctx context.Context, w io.Writer, userID string, req PDFRequest) (*PDFExport, error) {
	rc, err := s.rooms.ResolveRoomContext(ctx, req.RoomID, userID)
	if err != nil {
		return nil, err
	}

	var rows []models.ExportDoubtRow
	var label string

	switch req.Mode {
	case ExportModeManual:
		if len(req.IDs) == 0 {
			return nil, &domain.FieldError{Field: "ids", Message: "manual export needs at least one id"}
		}
		if len(req.IDs) > config.MaxExportPDFRows {
			return nil, &domain.TruncatedError{MaxRows: config.MaxExportPDFRows}
		}
		rows, err = doubts.FetchByIDs(ctx, s.doubtRepo, rc.ID, req.IDs)
		if err != nil {
			return nil, err
		}
		label = fmt.Sprintf("%d selected doubts", len(rows))

	case ExportModeAll, ExportModeFilter:
		filter := models.ExportFilter{}
		if req.Mode == ExportModeFilter {
			filter = req.Filter
		}
		result, err := doubts.FetchForExport(ctx, s.doubtRepo, rc.ID, filter, config.MaxExportPDFRows)
		if err != nil {
			return nil, err
		}
		if result.Truncated {
			return nil, &domain.TruncatedError{MaxRows: config.MaxExportPDFRows}
		}
		rows = result.Rows
		label = selectionLabel(req.Mode, filter)

	default:
		return nil, &domain.FieldError{Field: "mode", Message: "must be all, manual or filter"}
	}

	doubtIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		doubtIDs = append(doubtIDs, row.ID)
	}
	attachmentRows, err := doubts.FetchAttachments(ctx, s.attachmentRepo, doubtIDs)
	if err != nil {
		return nil, err
	}

	opts := doubts.PDFOptions{
		RoomName:       rc.Name,
		SelectionLabel: label,
		GeneratedAt:    time.Now().UTC(),
		FetchImage:     s.blobs.Download,
	}
	if err := doubts.RenderExportPDF(ctx, w, rows, doubts.GroupAttachments(attachmentRows), opts); err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("doubts-%s-%s.pdf", toFileSlug(rc.Name), opts.GeneratedAt.Format("2006-01-02"))
	return &PDFExport{Filename: filename}, nil
}

func selectionLabel(mode ExportMode, f models.ExportFilter) string {
	if mode == ExportModeAll {
		return "all doubts"
	}

	var parts []string
	if f.Q != "" {
		parts = append(parts, fmt.Sprintf("matching %q", f.Q))
	}
	if f.Subject != "" {
		parts = append(parts, "subject "+f.Subject)
	}
	if f.IsCleared != nil {
		if *f.IsCleared {
			parts = append(parts, "cleared only")
		} else {
			parts = append(parts, "open only")
		}
	}
	if len(parts) == 0 {
		return "all doubts"
	}
	return "filtered: " + strings.Join(parts, ", ")
}

// toFileSlug lowercases a room name into a hyphenated filename fragment.
func toFileSlug(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		return "room"
	}
	return slug
}
