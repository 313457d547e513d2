package models

import (
	"time"

	"github.com/lib/pq"
)

// GradeComponent is a named, weighted unit of assessment within a discipline
// and grading period. A calculated component derives its value from a formula
// over other components of the same scope instead of direct teacher entry.
type GradeComponent struct {
	ID                string         `db:"id" json:"id"`
	DisciplineID      string         `db:"discipline_id" json:"discipline_id"`
	Period            string         `db:"period" json:"period"`
	Code              string         `db:"code" json:"code"`
	Name              string         `db:"name" json:"name"`
	WeightPercent     float64        `db:"weight_percent" json:"weight_percent"`
	MinScale          float64        `db:"min_scale" json:"min_scale"`
	MaxScale          float64        `db:"max_scale" json:"max_scale"`
	Required          bool           `db:"required" json:"required"`
	IsCalculated      bool           `db:"is_calculated" json:"is_calculated"`
	FormulaExpression string         `db:"formula_expression" json:"formula_expression,omitempty"`
	DependsOn         pq.StringArray `db:"depends_on" json:"depends_on,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// ComponentFilter scopes component listings.
type ComponentFilter struct {
	DisciplineID string
	Period       string
	Calculated   *bool
}
