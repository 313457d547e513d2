package models

import "time"

// Grade is one numeric value for (student, component, period). Exactly one
// row exists per triple; later writes overwrite. Calculated grades share the
// storage shape but are produced by the evaluation engine and carry the
// formula that produced them as provenance.
type Grade struct {
	ID            string    `db:"id" json:"id"`
	StudentID     string    `db:"student_id" json:"student_id"`
	ComponentID   string    `db:"component_id" json:"component_id"`
	Period        string    `db:"period" json:"period"`
	Value         float64   `db:"value" json:"value"`
	IsCalculated  bool      `db:"is_calculated" json:"is_calculated"`
	SourceFormula string    `db:"source_formula" json:"source_formula,omitempty"`
	EnteredBy     string    `db:"entered_by" json:"entered_by,omitempty"`
	EnteredAt     time.Time `db:"entered_at" json:"entered_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
	ComponentCode string    `db:"component_code" json:"component_code"`
}

// GradeFilter allows querying grade entries.
type GradeFilter struct {
	StudentID    string
	ComponentID  string
	DisciplineID string
	Period       string
}

// FinalGrade is the discipline-level result for (student, discipline, period).
// Breakdown holds the JSON-encoded per-component arithmetic trace.
type FinalGrade struct {
	ID             string    `db:"id" json:"id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	DisciplineID   string    `db:"discipline_id" json:"discipline_id"`
	Period         string    `db:"period" json:"period"`
	Value          float64   `db:"value" json:"value"`
	Classification string    `db:"classification" json:"classification"`
	Passed         bool      `db:"passed" json:"passed"`
	Breakdown      string    `db:"breakdown" json:"breakdown"`
	ComputedAt     time.Time `db:"computed_at" json:"computed_at"`
}
