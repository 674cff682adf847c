package models

import "time"

// Instructor is a tutor who can be assigned to students. Deleting an
// instructor never deletes students; their reference is cleared instead.
type Instructor struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
