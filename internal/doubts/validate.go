package doubts

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"doubtabase/internal/config"
	"doubtabase/internal/domain"
	"doubtabase/internal/domain/models"
)

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ValidateCreateInput checks a doubt-creation payload against the content
// limits. Tag lists are assumed normalized already.
func ValidateCreateInput(in *models.CreateDoubtInput) error {
	err := validation.ValidateStruct(in,
		validation.Field(&in.Title,
			validation.Required,
			validation.Length(config.MinTitleLength, config.MaxTitleLength)),
		validation.Field(&in.BodyMarkdown,
			validation.Required,
			validation.Length(1, config.MaxBodyLength)),
		validation.Field(&in.Subject,
			validation.Required,
			validation.Length(1, config.MaxSubjectLength)),
		validation.Field(&in.Subtopics, validation.Length(0, config.MaxTagsPerDoubt)),
		validation.Field(&in.ErrorTags, validation.Length(0, config.MaxTagsPerDoubt)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if !in.Difficulty.IsValid() {
		return &domain.FieldError{Field: "difficulty", Message: "must be easy, medium or hard"}
	}
	return nil
}

// ValidateUpdateInput checks a partial-update payload. Nil fields are left
// untouched by the update and skip validation.
func ValidateUpdateInput(in *models.UpdateDoubtInput) error {
	if in.IsEmpty() {
		return &domain.FieldError{Field: "body", Message: "at least one field must be provided"}
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if len(title) < config.MinTitleLength || len(title) > config.MaxTitleLength {
			return &domain.FieldError{
				Field:   "title",
				Message: fmt.Sprintf("length must be between %d and %d", config.MinTitleLength, config.MaxTitleLength),
			}
		}
	}
	if in.BodyMarkdown != nil {
		if *in.BodyMarkdown == "" || len(*in.BodyMarkdown) > config.MaxBodyLength {
			return &domain.FieldError{
				Field:   "body_markdown",
				Message: fmt.Sprintf("length must be between 1 and %d", config.MaxBodyLength),
			}
		}
	}
	if in.Subject != nil {
		subject := strings.TrimSpace(*in.Subject)
		if subject == "" || len(subject) > config.MaxSubjectLength {
			return &domain.FieldError{
				Field:   "subject",
				Message: fmt.Sprintf("length must be between 1 and %d", config.MaxSubjectLength),
			}
		}
	}
	if in.Difficulty != nil && !in.Difficulty.IsValid() {
		return &domain.FieldError{Field: "difficulty", Message: "must be easy, medium or hard"}
	}
	if in.Subtopics != nil && len(in.Subtopics) > config.MaxTagsPerDoubt {
		return &domain.FieldError{Field: "subtopics", Message: fmt.Sprintf("at most %d entries", config.MaxTagsPerDoubt)}
	}
	if in.ErrorTags != nil && len(in.ErrorTags) > config.MaxTagsPerDoubt {
		return &domain.FieldError{Field: "error_tags", Message: fmt.Sprintf("at most %d entries", config.MaxTagsPerDoubt)}
	}

	return nil
}

// ValidateListQuery bounds the list parameters; out-of-range limits are
// clamped rather than rejected.
func ValidateListQuery(q *models.ListDoubtsQuery) {
	if q.Limit <= 0 {
		q.Limit = config.DefaultListLimit
	}
	if q.Limit > config.MaxListLimit {
		q.Limit = config.MaxListLimit
	}
	q.Q = strings.TrimSpace(q.Q)
	q.Subject = strings.TrimSpace(q.Subject)
	q.Subtopic = NormalizeTag(q.Subtopic)
	q.ErrorTag = NormalizeTag(q.ErrorTag)
}
