package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edugest/mini-pautas-api/internal/models"
)

// FormulaRepository manages discipline-level formula persistence.
type FormulaRepository struct {
	db *sqlx.DB
}

// NewFormulaRepository creates a repository instance.
func NewFormulaRepository(db *sqlx.DB) *FormulaRepository {
	return &FormulaRepository{db: db}
}

// GetFormula returns the formula for a discipline+period, or nil when the
// discipline uses the default weighted-sum scheme.
func (r *FormulaRepository) GetFormula(ctx context.Context, disciplineID, period string) (*models.DisciplineFormula, error) {
	const query = `SELECT id, discipline_id, period, expression, components_used, validated, validation_message, created_at, updated_at
        FROM discipline_formulas WHERE discipline_id = $1 AND period = $2`
	var formula models.DisciplineFormula
	if err := r.db.GetContext(ctx, &formula, query, disciplineID, period); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get formula: %w", err)
	}
	return &formula, nil
}

// Upsert stores the formula, one row per discipline+period.
func (r *FormulaRepository) Upsert(ctx context.Context, formula *models.DisciplineFormula) error {
	if formula.ID == "" {
		formula.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if formula.CreatedAt.IsZero() {
		formula.CreatedAt = now
	}
	formula.UpdatedAt = now
	const query = `INSERT INTO discipline_formulas (id, discipline_id, period, expression, components_used, validated, validation_message, created_at, updated_at)
        VALUES (:id, :discipline_id, :period, :expression, :components_used, :validated, :validation_message, :created_at, :updated_at)
        ON CONFLICT (discipline_id, period)
        DO UPDATE SET expression = EXCLUDED.expression, components_used = EXCLUDED.components_used, validated = EXCLUDED.validated, validation_message = EXCLUDED.validation_message, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, formula); err != nil {
		return fmt.Errorf("upsert formula: %w", err)
	}
	return nil
}
