package models

import "time"

// Student is a minimal roster record, enough to scope grades and pautas.
type Student struct {
	ID        string    `db:"id" json:"id"`
	Number    string    `db:"number" json:"number"`
	FullName  string    `db:"full_name" json:"full_name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
