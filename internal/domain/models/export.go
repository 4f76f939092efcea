package models

import "time"

// ExportFilter selects the doubts an export covers. IsCleared is ternary:
// nil means both cleared and open doubts.
type ExportFilter struct {
	Q         string
	Subject   string
	IsCleared *bool
}

// ExportDoubtRow is the immutable projection of a doubt used by bulk export.
type ExportDoubtRow struct {
	ID           string     `json:"id"`
	RoomID       string     `json:"room_id"`
	UserID       string     `json:"user_id"`
	Title        string     `json:"title"`
	BodyMarkdown string     `json:"body_markdown"`
	Subject      string     `json:"subject"`
	Subtopics    []string   `json:"subtopics"`
	Difficulty   Difficulty `json:"difficulty"`
	ErrorTags    []string   `json:"error_tags"`
	IsCleared    bool       `json:"is_cleared"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ExportAttachmentRow is the attachment projection used by bulk export.
type ExportAttachmentRow struct {
	ID          string    `json:"id"`
	DoubtID     string    `json:"doubt_id"`
	StoragePath string    `json:"storage_path"`
	MimeType    string    `json:"mime_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}
