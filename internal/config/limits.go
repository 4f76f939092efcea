package config

// AttachmentsBucket is the default bucket for doubt attachment blobs.
const AttachmentsBucket = "doubts-attachments"

const (
	// MaxTitleLength / MinTitleLength bound doubt titles.
	MinTitleLength = 3
	MaxTitleLength = 200

	// MaxBodyLength is the hard cap for doubt bodies. Longer ingest payloads
	// are truncated, form submissions are rejected.
	MaxBodyLength = 50_000

	// MaxSubjectLength bounds the free-text subject field.
	MaxSubjectLength = 120

	// MaxTagLength / MaxTagsPerDoubt bound subtopic and error-tag lists.
	MaxTagLength   = 80
	MaxTagsPerDoubt = 20

	// MaxAttachmentsPerDoubt is enforced both by the presign route and the
	// ingest pipeline.
	MaxAttachmentsPerDoubt = 5

	// MaxAttachmentBytes is the decoded size cap for a single attachment.
	MaxAttachmentBytes = 5 * 1024 * 1024

	// MaxIngestEndpointLength / MaxIngestEndpoints bound the "Source Endpoints"
	// list an ingest payload may carry.
	MaxIngestEndpointLength = 2_000
	MaxIngestEndpoints      = 50

	// MaxCommentLength bounds comment bodies.
	MaxCommentLength = 2_000

	// MaxRoomNameLength bounds room names.
	MaxRoomNameLength = 120

	// RoomInviteCodeLength is the visible length of a freshly minted invite code.
	RoomInviteCodeLength = 24

	// MaxListLimit / DefaultListLimit bound the cursor-paginated doubt listing.
	MaxListLimit     = 50
	DefaultListLimit = 20

	// SuggestionScanRows is how many recently-updated doubts feed the
	// autocomplete suggestion lists; MaxSuggestionEntries caps each list.
	SuggestionScanRows   = 80
	MaxSuggestionEntries = 30

	// MetaMaxIDs caps the id list accepted by the listing metadata route.
	MetaMaxIDs = 40

	// ExportPageSize is the chunk size used when draining a room for export.
	// ExportIDChunkSize bounds IN-list lookups during explicit selection.
	ExportPageSize    = 200
	ExportIDChunkSize = 100

	// MaxExportBrowseRows caps the export candidate listing; MaxExportPDFRows
	// caps a single PDF export. Hitting either cap flags the result truncated.
	MaxExportBrowseRows = 5_000
	MaxExportPDFRows    = 1_200
)

// AllowedAttachmentMimeTypes lists the attachment content types the API accepts.
var AllowedAttachmentMimeTypes = []string{
	"image/jpeg",
	"image/png",
	"image/webp",
}

// IsAllowedAttachmentMime reports whether mime is an accepted attachment type.
func IsAllowedAttachmentMime(mime string) bool {
	for _, allowed := range AllowedAttachmentMimeTypes {
		if mime == allowed {
			return true
		}
	}
	return false
}
