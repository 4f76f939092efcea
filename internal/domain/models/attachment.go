package models

import "time"

// Attachment links a stored image blob to its parent doubt. The blob at
// StoragePath is written before the row is inserted; the ingest pipeline rolls
// both back together on failure.
type Attachment struct {
	ID          string    `json:"id" db:"id"`
	DoubtID     string    `json:"doubt_id" db:"doubt_id"`
	StoragePath string    `json:"storage_path" db:"storage_path"`
	MimeType    string    `json:"mime_type" db:"mime_type"`
	SizeBytes   int64     `json:"size_bytes" db:"size_bytes"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// SignedAttachment is an attachment plus a short-lived signed download URL.
type SignedAttachment struct {
	Attachment
	PublicURLSigned *string `json:"public_url_signed"`
}
