package doubts

import (
	"context"
	"sort"
	"strings"

	"doubtabase/internal/config"
	"doubtabase/internal/domain/models"
)

// NormalizeExportFilter trims the text filters; empty strings mean "no filter".
func NormalizeExportFilter(f models.ExportFilter) models.ExportFilter {
	f.Q = strings.TrimSpace(f.Q)
	f.Subject = strings.TrimSpace(f.Subject)
	return f
}

// ExportSource supplies export rows page by page. Implemented by the doubt and
// attachment repositories.
type ExportSource interface {
	ExportPage(ctx context.Context, roomID string, f models.ExportFilter, offset, limit int) ([]models.ExportDoubtRow, error)
	ExportByIDs(ctx context.Context, roomID string, ids []string) ([]models.ExportDoubtRow, error)
}

// AttachmentExportSource supplies attachment rows for a set of doubts.
type AttachmentExportSource interface {
	ExportPage(ctx context.Context, doubtIDs []string, offset, limit int) ([]models.ExportAttachmentRow, error)
}

// ExportResult is a drained candidate set plus a flag saying whether the row
// cap cut it short.
type ExportResult struct {
	Rows      []models.ExportDoubtRow
	Truncated bool
}

// FetchForExport drains matching doubts newest-first in fixed-size pages up to
// maxRows. One row past the cap is enough to mark the result truncated.
func FetchForExport(ctx context.Context, src ExportSource, roomID string, f models.ExportFilter, maxRows int) (*ExportResult, error) {
	f = NormalizeExportFilter(f)

	rows := make([]models.ExportDoubtRow, 0, config.ExportPageSize)
	offset := 0
	for {
		page, err := src.ExportPage(ctx, roomID, f, offset, config.ExportPageSize)
		if err != nil {
			return nil, err
		}
		rows = append(rows, page...)

		if len(rows) > maxRows {
			return &ExportResult{Rows: rows[:maxRows], Truncated: true}, nil
		}
		if len(page) < config.ExportPageSize {
			return &ExportResult{Rows: rows, Truncated: false}, nil
		}
		offset += config.ExportPageSize
	}
}

// FetchByIDs resolves an explicit selection in lookup chunks of 100, then
// re-sorts newest-first since chunked lookups lose the global order. Repeated
// ids are collapsed so a doubt never exports twice.
func FetchByIDs(ctx context.Context, src ExportSource, roomID string, ids []string) ([]models.ExportDoubtRow, error) {
	ids = dedupeIDs(ids)

	rows := make([]models.ExportDoubtRow, 0, len(ids))
	for start := 0; start < len(ids); start += config.ExportIDChunkSize {
		end := start + config.ExportIDChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk, err := src.ExportByIDs(ctx, roomID, ids[start:end])
		if err != nil {
			return nil, err
		}
		rows = append(rows, chunk...)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].ID > rows[j].ID
		}
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
	return rows, nil
}

// dedupeIDs drops repeated ids, keeping first-seen order.
func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// FetchAttachments loads attachment rows for the selected doubts, chunking the
// doubt-ID list and paging within each chunk, then sorts by doubt, creation
// time and id ascending so the renderer sees a stable order.
func FetchAttachments(ctx context.Context, src AttachmentExportSource, doubtIDs []string) ([]models.ExportAttachmentRow, error) {
	rows := make([]models.ExportAttachmentRow, 0, len(doubtIDs))
	for start := 0; start < len(doubtIDs); start += config.ExportIDChunkSize {
		end := start + config.ExportIDChunkSize
		if end > len(doubtIDs) {
			end = len(doubtIDs)
		}

		offset := 0
		for {
			page, err := src.ExportPage(ctx, doubtIDs[start:end], offset, config.ExportPageSize)
			if err != nil {
				return nil, err
			}
			rows = append(rows, page...)
			if len(page) < config.ExportPageSize {
				break
			}
			offset += config.ExportPageSize
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].DoubtID != rows[j].DoubtID {
			return rows[i].DoubtID < rows[j].DoubtID
		}
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.Before(rows[j].CreatedAt)
		}
		return rows[i].ID < rows[j].ID
	})
	return rows, nil
}

// GroupAttachments indexes attachment rows by doubt ID.
func GroupAttachments(rows []models.ExportAttachmentRow) map[string][]models.ExportAttachmentRow {
	grouped := make(map[string][]models.ExportAttachmentRow, len(rows))
	for _, row := range rows {
		grouped[row.DoubtID] = append(grouped[row.DoubtID], row)
	}
	return grouped
}
