package doubts

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"doubtabase/internal/config"
	"doubtabase/internal/domain"
	"doubtabase/internal/domain/models"
)

const (
	defaultIngestTitle   = "OpenClaw Ingest"
	defaultIngestSubject = "OpenClaw"
	defaultIngestBody    = "Ingested from OpenClaw."

	bodyTruncationSuffix = "\n\n[truncated]"
)

var (
	dataURLPrefix = regexp.MustCompile(`(?i)^data:[^,]*;base64,`)
	base64Charset = regexp.MustCompile(`^[A-Za-z0-9+/=]*$`)
)

// IngestAttachment is one inline attachment of an ingest request, still
// base64-encoded.
type IngestAttachment struct {
	Filename   string `json:"filename,omitempty"`
	MimeType   string `json:"mime_type"`
	DataBase64 string `json:"data_base64"`
}

// IngestInput is the programmatic doubt-creation request. Explicit fields
// override whatever the decoded message carries.
type IngestInput struct {
	MessageBase64 string             `json:"message_base64,omitempty"`
	Title         *string            `json:"title,omitempty"`
	Subject       *string            `json:"subject,omitempty"`
	Subtopics     []string           `json:"subtopics,omitempty"`
	Difficulty    *models.Difficulty `json:"difficulty,omitempty"`
	ErrorTags     []string           `json:"error_tags,omitempty"`
	IsCleared     *bool              `json:"is_cleared,omitempty"`
	Endpoints     []string           `json:"endpoints,omitempty"`
	Attachments   []IngestAttachment `json:"attachments,omitempty"`
}

// Validate checks the request envelope before decoding. The message body
// itself is validated after assembly.
func (in *IngestInput) Validate() error {
	err := validation.ValidateStruct(in,
		validation.Field(&in.Subtopics, validation.Length(0, config.MaxTagsPerDoubt)),
		validation.Field(&in.ErrorTags, validation.Length(0, config.MaxTagsPerDoubt)),
		validation.Field(&in.Endpoints, validation.Length(0, config.MaxIngestEndpoints)),
		validation.Field(&in.Attachments, validation.Length(0, config.MaxAttachmentsPerDoubt)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if in.Difficulty != nil && !in.Difficulty.IsValid() {
		return &domain.FieldError{Field: "difficulty", Message: "must be easy, medium or hard"}
	}

	if strings.TrimSpace(in.MessageBase64) == "" && len(in.Attachments) == 0 {
		return &domain.FieldError{Field: "message_base64", Message: "provide a message or at least one attachment"}
	}

	for i, att := range in.Attachments {
		if !config.IsAllowedAttachmentMime(att.MimeType) {
			return &domain.FieldError{
				Field:   fmt.Sprintf("attachments[%d].mime_type", i),
				Message: "must be image/jpeg, image/png or image/webp",
			}
		}
		if strings.TrimSpace(att.DataBase64) == "" {
			return &domain.FieldError{
				Field:   fmt.Sprintf("attachments[%d].data_base64", i),
				Message: "cannot be blank",
			}
		}
	}

	return nil
}

// messageEnvelope is the loose JSON metadata shape an ingest message may carry.
// Unknown fields pass through unnoticed; known fields with the wrong type make
// the whole envelope invalid, which demotes the message to plain text.
type messageEnvelope struct {
	Title      *string  `json:"title"`
	Subject    *string  `json:"subject"`
	Difficulty *string  `json:"difficulty"`
	Subtopics  []string `json:"subtopics"`
	ErrorTags  []string `json:"error_tags"`
	Endpoints  []string `json:"endpoints"`
	IsCleared  *bool    `json:"is_cleared"`

	// Message-body aliases, first non-nil wins in this order.
	BodyMarkdown *string `json:"body_markdown"`
	Body         *string `json:"body"`
	Notes        *string `json:"notes"`
	Message      *string `json:"message"`
	Content      *string `json:"content"`
	Text         *string `json:"text"`
}

func (e *messageEnvelope) messageText() *string {
	for _, candidate := range []*string{e.BodyMarkdown, e.Body, e.Notes, e.Message, e.Content, e.Text} {
		if candidate != nil {
			return candidate
		}
	}
	return nil
}

// decodedMetadata is the normalized outcome of envelope parsing.
type decodedMetadata struct {
	title      string
	subject    string
	difficulty models.Difficulty
	subtopics  []string
	errorTags  []string
	endpoints  []string
	isCleared  *bool
	message    *string
}

// normalizeBase64 cleans a base64 payload: strips a data-URL prefix, removes
// whitespace, converts the URL-safe alphabet to standard, and re-pads. Fails
// with domain.ErrInvalidBase64 on foreign characters or an impossible length.
func normalizeBase64(raw string) (string, error) {
	trimmed := dataURLPrefix.ReplaceAllString(strings.TrimSpace(raw), "")
	cleaned := whitespaceRun.ReplaceAllString(trimmed, "")
	cleaned = strings.ReplaceAll(cleaned, "-", "+")
	cleaned = strings.ReplaceAll(cleaned, "_", "/")

	if cleaned == "" || !base64Charset.MatchString(cleaned) {
		return "", domain.ErrInvalidBase64
	}

	switch remainder := len(cleaned) % 4; remainder {
	case 0:
		return cleaned, nil
	case 1:
		return "", domain.ErrInvalidBase64
	default:
		return cleaned + strings.Repeat("=", 4-remainder), nil
	}
}

// DecodeBase64Bytes decodes an ingest payload (message or attachment data)
// after normalization.
func DecodeBase64Bytes(raw string) ([]byte, error) {
	normalized, err := normalizeBase64(raw)
	if err != nil {
		return nil, err
	}

	data, err := base64.StdEncoding.DecodeString(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidBase64, err)
	}
	return data, nil
}

// DecodeBase64Message decodes an ingest message payload to text.
func DecodeBase64Message(raw string) (string, error) {
	data, err := DecodeBase64Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// parseEnvelope attempts to read the decoded message as a metadata envelope.
// The second result is false when the text is not a valid envelope, in which
// case the caller treats the whole text as the literal message body. Those are
// the only two outcomes; malformed shapes are never coerced.
func parseEnvelope(decoded string) (decodedMetadata, bool) {
	trimmed := strings.TrimSpace(decoded)
	if !strings.HasPrefix(trimmed, "{") {
		return decodedMetadata{}, false
	}

	var envelope messageEnvelope
	if err := json.Unmarshal([]byte(trimmed), &envelope); err != nil {
		return decodedMetadata{}, false
	}

	meta := decodedMetadata{
		title:     normalizeText(deref(envelope.Title), config.MaxTitleLength),
		subject:   normalizeText(deref(envelope.Subject), config.MaxSubjectLength),
		subtopics: normalizeTagList(envelope.Subtopics),
		errorTags: normalizeTagList(envelope.ErrorTags),
		endpoints: normalizeEndpoints(envelope.Endpoints),
		isCleared: envelope.IsCleared,
		message:   envelope.messageText(),
	}

	if envelope.Difficulty != nil {
		if d := models.Difficulty(*envelope.Difficulty); d.IsValid() {
			meta.difficulty = d
		}
	}

	return meta, true
}

// normalizeTagList trims/collapses each entry, drops empties, caps entries at
// the tag length, and caps the list length. Unlike UniqueTags it keeps
// duplicates; the creation schema dedupes later.
func normalizeTagList(values []string) []string {
	if values == nil {
		return nil
	}

	normalized := make([]string, 0, len(values))
	for _, value := range values {
		v := NormalizeTag(value)
		if v == "" {
			continue
		}
		normalized = append(normalized, truncate(v, config.MaxTagLength))
	}

	if len(normalized) > config.MaxTagsPerDoubt {
		normalized = normalized[:config.MaxTagsPerDoubt]
	}
	return normalized
}

// normalizeEndpoints trims entries, drops empties, caps each at the endpoint
// length, dedupes preserving order, and caps the list.
func normalizeEndpoints(values []string) []string {
	normalized := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))

	for _, value := range values {
		v := strings.TrimSpace(value)
		if v == "" {
			continue
		}
		v = truncate(v, config.MaxIngestEndpointLength)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		normalized = append(normalized, v)
	}

	if len(normalized) > config.MaxIngestEndpoints {
		normalized = normalized[:config.MaxIngestEndpoints]
	}
	return normalized
}

// normalizeText trims, collapses whitespace, and caps a single-line value.
// Returns "" when nothing usable remains.
func normalizeText(value string, maxLength int) string {
	cleaned := whitespaceRun.ReplaceAllString(strings.TrimSpace(value), " ")
	return truncate(cleaned, maxLength)
}

func truncateBody(body string) string {
	if len(body) <= config.MaxBodyLength {
		return body
	}

	keep := config.MaxBodyLength - len(bodyTruncationSuffix)
	if keep < 0 {
		keep = 0
	}
	return body[:keep] + bodyTruncationSuffix
}

// deriveTitle takes the first line of the assembled body, whitespace-collapsed
// and capped at the title limit; bodies whose first line is too short fall
// back to the default title.
func deriveTitle(body string) string {
	line, _, _ := strings.Cut(body, "\n")
	normalized := normalizeText(line, config.MaxTitleLength)

	if len(normalized) >= config.MinTitleLength {
		return normalized
	}
	return defaultIngestTitle
}

// buildBody assembles the final body: the message (or the default body when no
// message text exists), plus a Source Endpoints section when endpoints are
// present, truncated to the body cap.
func buildBody(message string, endpoints []string) string {
	base := strings.TrimSpace(message)
	if base == "" {
		base = defaultIngestBody
	}

	if len(endpoints) == 0 {
		return truncateBody(base)
	}

	var section strings.Builder
	section.WriteString(base)
	section.WriteString("\n\n### Source Endpoints\n")
	for i, endpoint := range endpoints {
		if i > 0 {
			section.WriteByte('\n')
		}
		section.WriteString("- ")
		section.WriteString(endpoint)
	}

	return truncateBody(section.String())
}

// CreateInputFromIngest turns an ingest request into a validated doubt-creation
// payload. Pure and deterministic: decode the message, extract envelope
// metadata when the message is a valid envelope, then merge with precedence
// explicit request field > decoded metadata > default.
func CreateInputFromIngest(input *IngestInput) (*models.CreateDoubtInput, error) {
	var decodedRaw string
	if strings.TrimSpace(input.MessageBase64) != "" {
		var err error
		decodedRaw, err = DecodeBase64Message(input.MessageBase64)
		if err != nil {
			return nil, err
		}
	}

	var meta decodedMetadata
	if strings.TrimSpace(decodedRaw) != "" {
		if parsed, ok := parseEnvelope(decodedRaw); ok {
			meta = parsed
		}
	}

	endpoints := input.Endpoints
	if endpoints == nil {
		endpoints = meta.endpoints
	}
	endpoints = normalizeEndpoints(endpoints)

	var message string
	if meta.message != nil {
		message = *meta.message
	} else {
		message = decodedRaw
	}
	message = strings.TrimSpace(message)

	body := buildBody(message, endpoints)

	title := defaultIngestTitle
	switch {
	case input.Title != nil && normalizeText(*input.Title, config.MaxTitleLength) != "":
		title = normalizeText(*input.Title, config.MaxTitleLength)
	case meta.title != "":
		title = meta.title
	case message != "":
		title = deriveTitle(body)
	}

	subject := defaultIngestSubject
	switch {
	case input.Subject != nil && normalizeText(*input.Subject, config.MaxSubjectLength) != "":
		subject = normalizeText(*input.Subject, config.MaxSubjectLength)
	case meta.subject != "":
		subject = meta.subject
	}

	difficulty := models.DifficultyMedium
	switch {
	case input.Difficulty != nil:
		difficulty = *input.Difficulty
	case meta.difficulty != "":
		difficulty = meta.difficulty
	}

	subtopics := normalizeTagList(input.Subtopics)
	if subtopics == nil {
		subtopics = meta.subtopics
	}

	errorTags := normalizeTagList(input.ErrorTags)
	if errorTags == nil {
		errorTags = meta.errorTags
	}

	isCleared := false
	switch {
	case input.IsCleared != nil:
		isCleared = *input.IsCleared
	case meta.isCleared != nil:
		isCleared = *meta.isCleared
	}

	created := &models.CreateDoubtInput{
		Title:        title,
		BodyMarkdown: body,
		Subject:      subject,
		Subtopics:    UniqueTags(subtopics),
		Difficulty:   difficulty,
		ErrorTags:    UniqueTags(errorTags),
		IsCleared:    isCleared,
	}

	if err := ValidateCreateInput(created); err != nil {
		return nil, err
	}
	return created, nil
}
