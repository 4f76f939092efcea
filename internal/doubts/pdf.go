package doubts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"

	"doubtabase/internal/domain/models"
)

// A4 portrait in points, with the layout constants the exporter was tuned for.
const (
	pdfPageWidth  = 595.28
	pdfPageHeight = 841.89
	pdfMargin     = 36.0
	pdfFooterH    = 20.0

	pdfContentWidth = pdfPageWidth - 2*pdfMargin
	pdfContentBot   = pdfPageHeight - pdfMargin - pdfFooterH

	pdfImageMaxH = 240.0

	pdfWatermarkText  = "DOUBTABASE"
	pdfWatermarkAngle = 32.0
	pdfWatermarkAlpha = 0.15

	pdfBrandLine = "made with doubtabase | https://doubtabase.sbs/"
)

// ImageFetcher loads attachment bytes by storage path for embedding.
type ImageFetcher func(ctx context.Context, storagePath string) ([]byte, error)

// PDFOptions configures one export rendering.
type PDFOptions struct {
	RoomName       string
	SelectionLabel string
	GeneratedAt    time.Time
	Truncated      bool

	// FetchImage may be nil, in which case attachments render as
	// placeholders only.
	FetchImage ImageFetcher
}

type pdfRenderer struct {
	ctx  context.Context
	pdf  *fpdf.Fpdf
	opts PDFOptions

	// doubtTitle is the heading repeated as "(continued)" when a doubt
	// spills onto a new page; empty between doubts.
	doubtTitle string
	continued  int

	// fontStyle and fontSize track the active doubt-body font so a page
	// break can restore it after the continuation heading.
	fontStyle string
	fontSize  float64
}

// RenderExportPDF renders the selected doubts into a printable document: a
// cover page, then each doubt on its own page run with metadata, body and
// embedded images, a diagonal watermark on every page, and a brand/pagination
// footer written in a finalization pass once the page count is known.
func RenderExportPDF(ctx context.Context, w io.Writer, rows []models.ExportDoubtRow, attachments map[string][]models.ExportAttachmentRow, opts PDFOptions) error {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, 0)

	r := &pdfRenderer{ctx: ctx, pdf: pdf, opts: opts}

	r.addPage()
	r.renderCover(len(rows))

	for i, row := range rows {
		r.renderDoubt(i+1, len(rows), row, attachments[row.ID])
	}

	r.renderFooters()

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func (r *pdfRenderer) addPage() {
	r.pdf.AddPage()
	r.drawWatermark()
	r.pdf.SetXY(pdfMargin, pdfMargin)
}

// ensureSpace starts a new page when fewer than h points remain, repeating
// the current doubt heading with a continuation marker.
func (r *pdfRenderer) ensureSpace(h float64) {
	if r.pdf.GetY()+h <= pdfContentBot {
		return
	}
	r.addPage()

	if r.doubtTitle != "" {
		r.continued++
		r.pdf.SetFont("Helvetica", "I", 10)
		r.pdf.SetTextColor(120, 120, 120)
		heading := fmt.Sprintf("%s (continued %d)", r.doubtTitle, r.continued)
		r.writeLines(r.wrap(heading, pdfContentWidth), 13)
		r.pdf.SetTextColor(0, 0, 0)
		r.pdf.SetFont("Helvetica", r.fontStyle, r.fontSize)
		r.addGap(6)
	}
}

// setFont switches the active font and records it so ensureSpace can restore
// it after a continuation heading.
func (r *pdfRenderer) setFont(style string, size float64) {
	r.fontStyle, r.fontSize = style, size
	r.pdf.SetFont("Helvetica", style, size)
}

func (r *pdfRenderer) addGap(h float64) {
	r.pdf.SetXY(pdfMargin, r.pdf.GetY()+h)
}

func (r *pdfRenderer) drawWatermark() {
	pdf := r.pdf
	pdf.SetFont("Helvetica", "B", 72)
	pdf.SetTextColor(150, 150, 150)
	pdf.SetAlpha(pdfWatermarkAlpha, "Normal")

	w := pdf.GetStringWidth(pdfWatermarkText)
	cx, cy := pdfPageWidth/2, pdfPageHeight/2
	pdf.TransformBegin()
	pdf.TransformRotate(pdfWatermarkAngle, cx, cy)
	pdf.Text(cx-w/2, cy, pdfWatermarkText)
	pdf.TransformEnd()

	pdf.SetAlpha(1, "Normal")
	pdf.SetTextColor(0, 0, 0)
}

func (r *pdfRenderer) renderCover(rowCount int) {
	pdf := r.pdf

	pdf.SetXY(pdfMargin, 220)
	pdf.SetFont("Helvetica", "B", 28)
	r.writeLines(r.wrap("Doubts Export", pdfContentWidth), 34)
	r.addGap(10)

	pdf.SetFont("Helvetica", "", 14)
	if r.opts.RoomName != "" {
		r.writeLines(r.wrap(r.opts.RoomName, pdfContentWidth), 18)
		r.addGap(4)
	}

	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(90, 90, 90)
	if r.opts.SelectionLabel != "" {
		r.writeLines(r.wrap(r.opts.SelectionLabel, pdfContentWidth), 14)
	}
	r.writeLines(r.wrap(fmt.Sprintf("%d doubts", rowCount), pdfContentWidth), 14)
	r.writeLines(r.wrap("Generated "+r.opts.GeneratedAt.UTC().Format("2 Jan 2006 15:04 MST"), pdfContentWidth), 14)
	if r.opts.Truncated {
		r.addGap(8)
		pdf.SetTextColor(180, 60, 60)
		r.writeLines(r.wrap("Selection exceeded the export limit; older doubts were omitted.", pdfContentWidth), 14)
	}
	pdf.SetTextColor(0, 0, 0)
}

func (r *pdfRenderer) renderDoubt(index, total int, row models.ExportDoubtRow, atts []models.ExportAttachmentRow) {
	pdf := r.pdf

	r.doubtTitle = row.Title
	r.continued = 0

	// Every doubt opens on a fresh page.
	r.addPage()
	r.setFont("I", 10)
	pdf.SetTextColor(120, 120, 120)
	r.writeLines(r.wrap(fmt.Sprintf("Doubt %d of %d", index, total), pdfContentWidth), 13)
	pdf.SetTextColor(0, 0, 0)
	r.addGap(6)

	r.setFont("B", 14)
	for _, line := range r.wrap(row.Title, pdfContentWidth) {
		r.ensureSpace(18)
		pdf.Text(pdfMargin, pdf.GetY()+14, line)
		r.addGap(18)
	}
	r.addGap(2)

	r.setFont("", 9)
	pdf.SetTextColor(90, 90, 90)
	r.writeWrapped(r.metaLine(row), 12)
	if tags := r.tagLine(row); tags != "" {
		r.writeWrapped(tags, 12)
	}
	pdf.SetTextColor(0, 0, 0)
	r.addGap(8)

	r.setFont("", 10)
	for _, paragraph := range strings.Split(row.BodyMarkdown, "\n") {
		if strings.TrimSpace(paragraph) == "" {
			r.addGap(6)
			continue
		}
		r.writeWrapped(paragraph, 13)
	}

	for _, att := range atts {
		r.renderAttachment(att)
	}

	r.doubtTitle = ""
	r.continued = 0
}

func (r *pdfRenderer) metaLine(row models.ExportDoubtRow) string {
	status := "open"
	if row.IsCleared {
		status = "cleared"
	}
	return fmt.Sprintf("%s | %s | %s | %s",
		row.Subject, row.Difficulty, status,
		row.CreatedAt.UTC().Format("2 Jan 2006 15:04"))
}

func (r *pdfRenderer) tagLine(row models.ExportDoubtRow) string {
	var parts []string
	if len(row.Subtopics) > 0 {
		parts = append(parts, "Subtopics: "+strings.Join(row.Subtopics, ", "))
	}
	if len(row.ErrorTags) > 0 {
		parts = append(parts, "Errors: "+strings.Join(row.ErrorTags, ", "))
	}
	return strings.Join(parts, " | ")
}

func (r *pdfRenderer) renderAttachment(att models.ExportAttachmentRow) {
	r.addGap(8)

	var data []byte
	if r.opts.FetchImage != nil {
		fetched, err := r.opts.FetchImage(r.ctx, att.StoragePath)
		if err == nil {
			data = fetched
		}
	}

	if data == nil {
		r.renderImagePlaceholder(att)
		return
	}

	png, err := NormalizeImageToPNG(data)
	if err != nil {
		r.renderImagePlaceholder(att)
		return
	}

	name := "att-" + uuid.NewString()
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	info := r.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
	if r.pdf.Err() {
		r.renderImagePlaceholder(att)
		return
	}

	// Fit inside content width x max height without upscaling.
	w, h := info.Extent()
	scale := 1.0
	if w > pdfContentWidth {
		scale = pdfContentWidth / w
	}
	if h*scale > pdfImageMaxH {
		scale = pdfImageMaxH / h
	}
	if scale > 1 {
		scale = 1
	}
	w, h = w*scale, h*scale

	r.ensureSpace(h + 4)
	r.pdf.ImageOptions(name, pdfMargin, r.pdf.GetY(), w, h, false, opts, 0, "")
	r.addGap(h + 4)
}

func (r *pdfRenderer) renderImagePlaceholder(att models.ExportAttachmentRow) {
	const boxH = 40.0
	r.ensureSpace(boxH + 4)

	pdf := r.pdf
	y := pdf.GetY()
	pdf.SetDrawColor(180, 180, 180)
	pdf.Rect(pdfMargin, y, pdfContentWidth, boxH, "D")

	r.setFont("I", 9)
	pdf.SetTextColor(120, 120, 120)
	label := "image unavailable"
	if att.StoragePath != "" {
		label = "image unavailable: " + att.StoragePath
	}
	for i, line := range r.wrap(label, pdfContentWidth-16) {
		if i > 0 {
			break
		}
		pdf.Text(pdfMargin+8, y+boxH/2+3, line)
	}
	pdf.SetTextColor(0, 0, 0)
	r.addGap(boxH + 4)
}

// writeWrapped wraps text to the content width and writes it line by line,
// paginating between lines.
func (r *pdfRenderer) writeWrapped(text string, lineH float64) {
	for _, line := range r.wrap(text, pdfContentWidth) {
		r.ensureSpace(lineH)
		r.pdf.Text(pdfMargin, r.pdf.GetY()+lineH-3, line)
		r.addGap(lineH)
	}
}

// writeLines writes pre-wrapped lines without pagination checks. Cover-page
// use only.
func (r *pdfRenderer) writeLines(lines []string, lineH float64) {
	for _, line := range lines {
		r.pdf.Text(pdfMargin, r.pdf.GetY()+lineH-3, line)
		r.addGap(lineH)
	}
}

// wrap greedily packs words into lines no wider than width. A single word
// wider than the line is hard-split by binary search on the widest fitting
// prefix.
func (r *pdfRenderer) wrap(text string, width float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := ""
	for _, word := range words {
		for r.pdf.GetStringWidth(word) > width {
			head, rest := r.hardSplit(word, width)
			if current != "" {
				lines = append(lines, current)
				current = ""
			}
			lines = append(lines, head)
			word = rest
		}

		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if r.pdf.GetStringWidth(candidate) <= width {
			current = candidate
			continue
		}
		if current != "" {
			lines = append(lines, current)
		}
		current = word
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

// hardSplit returns the widest prefix of word that fits in width, and the
// remainder. Always consumes at least one rune so the caller makes progress.
func (r *pdfRenderer) hardSplit(word string, width float64) (head, rest string) {
	runes := []rune(word)
	lo, hi := 1, len(runes)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if r.pdf.GetStringWidth(string(runes[:mid])) <= width {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return string(runes[:lo]), string(runes[lo:])
}

// renderFooters stamps every page with the brand line and "Page X of Y" once
// the final page count is known.
func (r *pdfRenderer) renderFooters() {
	pdf := r.pdf
	total := pdf.PageCount()

	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(120, 120, 120)
	y := pdfPageHeight - pdfMargin + 6

	for page := 1; page <= total; page++ {
		pdf.SetPage(page)
		pdf.Text(pdfMargin, y, pdfBrandLine)

		label := fmt.Sprintf("Page %d of %d", page, total)
		pdf.Text(pdfPageWidth-pdfMargin-pdf.GetStringWidth(label), y, label)
	}
	pdf.SetTextColor(0, 0, 0)
}
