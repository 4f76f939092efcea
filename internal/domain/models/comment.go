package models

import "time"

// Comment is a discussion entry under a doubt.
type Comment struct {
	ID        string    `json:"id" db:"id"`
	DoubtID   string    `json:"doubt_id" db:"doubt_id"`
	UserID    string    `json:"created_by_user_id" db:"user_id"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
