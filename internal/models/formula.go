package models

import (
	"time"

	"github.com/lib/pq"
)

// DisciplineFormula is the teacher-authored expression that combines component
// values into the discipline's final grade. It must be validated against the
// component catalog before any final-grade computation may use it.
type DisciplineFormula struct {
	ID                string         `db:"id" json:"id"`
	DisciplineID      string         `db:"discipline_id" json:"discipline_id"`
	Period            string         `db:"period" json:"period"`
	Expression        string         `db:"expression" json:"expression"`
	ComponentsUsed    pq.StringArray `db:"components_used" json:"components_used"`
	Validated         bool           `db:"validated" json:"validated"`
	ValidationMessage string         `db:"validation_message" json:"validation_message"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}
