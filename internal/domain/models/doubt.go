package models

import (
	"time"
)

// Difficulty is the three-valued difficulty rating of a doubt.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// IsValid reports whether d is one of the three known difficulty values.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Doubt is the core content entity: a study question posted into a room.
// Subtopics and ErrorTags never contain blank or duplicate entries; every
// entry is whitespace-collapsed and at most 80 characters.
type Doubt struct {
	ID           string     `json:"id" db:"id"`
	RoomID       string     `json:"room_id" db:"room_id"`
	UserID       string     `json:"created_by_user_id" db:"user_id"`
	Title        string     `json:"title" db:"title"`
	BodyMarkdown string     `json:"body_markdown" db:"body_markdown"`
	Subject      string     `json:"subject" db:"subject"`
	Subtopics    []string   `json:"subtopics" db:"subtopics"`
	Difficulty   Difficulty `json:"difficulty" db:"difficulty"`
	ErrorTags    []string   `json:"error_tags" db:"error_tags"`
	IsCleared    bool       `json:"is_cleared" db:"is_cleared"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// CreateDoubtInput is the normalized, validated payload for inserting a doubt.
type CreateDoubtInput struct {
	RoomID       *string    `json:"room_id,omitempty"`
	Title        string     `json:"title"`
	BodyMarkdown string     `json:"body_markdown"`
	Subject      string     `json:"subject"`
	Subtopics    []string   `json:"subtopics"`
	Difficulty   Difficulty `json:"difficulty"`
	ErrorTags    []string   `json:"error_tags"`
	IsCleared    bool       `json:"is_cleared"`
}

// UpdateDoubtInput carries a partial doubt update. Nil means "leave unchanged".
type UpdateDoubtInput struct {
	Title        *string     `json:"title,omitempty"`
	BodyMarkdown *string     `json:"body_markdown,omitempty"`
	Subject      *string     `json:"subject,omitempty"`
	Subtopics    []string    `json:"subtopics,omitempty"`
	Difficulty   *Difficulty `json:"difficulty,omitempty"`
	ErrorTags    []string    `json:"error_tags,omitempty"`
	IsCleared    *bool       `json:"is_cleared,omitempty"`
}

// IsEmpty reports whether the update would change nothing.
func (u *UpdateDoubtInput) IsEmpty() bool {
	return u.Title == nil && u.BodyMarkdown == nil && u.Subject == nil &&
		u.Subtopics == nil && u.Difficulty == nil && u.ErrorTags == nil &&
		u.IsCleared == nil
}

// ListDoubtsQuery holds the parsed filters for the cursor-paginated listing.
type ListDoubtsQuery struct {
	RoomID     *string
	Q          string
	Subject    string
	Subtopic   string
	Difficulty Difficulty
	ErrorTag   string
	IsCleared  *bool
	Cursor     string
	Limit      int
}

// Suggestions are recently-used subject/tag values offered for autocomplete.
type Suggestions struct {
	Subjects  []string `json:"subjects"`
	Subtopics []string `json:"subtopics"`
	ErrorTags []string `json:"error_tags"`
}
