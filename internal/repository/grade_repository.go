package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edugest/mini-pautas-api/internal/models"
)

// GradeRepository manages raw and calculated grade entries.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository creates a repository instance.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// MapByStudent returns code -> value for every grade of a student within a
// discipline+period, calculated entries included.
func (r *GradeRepository) MapByStudent(ctx context.Context, studentID, disciplineID, period string) (map[string]float64, error) {
	const query = `SELECT gc.code AS component_code, g.value
        FROM grades g
        JOIN grade_components gc ON gc.id = g.component_id
        WHERE g.student_id = $1 AND gc.discipline_id = $2 AND g.period = $3`
	rows := []struct {
		ComponentCode string  `db:"component_code"`
		Value         float64 `db:"value"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, studentID, disciplineID, period); err != nil {
		return nil, fmt.Errorf("map grades by student: %w", err)
	}
	values := make(map[string]float64, len(rows))
	for _, row := range rows {
		values[row.ComponentCode] = row.Value
	}
	return values, nil
}

// Get returns the grade for (student, component, period).
func (r *GradeRepository) Get(ctx context.Context, studentID, componentID, period string) (*models.Grade, error) {
	const query = `SELECT g.id, g.student_id, g.component_id, g.period, g.value, g.is_calculated, g.source_formula, g.entered_by, g.entered_at, g.updated_at, gc.code AS component_code
        FROM grades g
        JOIN grade_components gc ON gc.id = g.component_id
        WHERE g.student_id = $1 AND g.component_id = $2 AND g.period = $3`
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, studentID, componentID, period); err != nil {
		return nil, err
	}
	return &grade, nil
}

// List returns grades matching a filter, newest entry first.
func (r *GradeRepository) List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, error) {
	query := `SELECT g.id, g.student_id, g.component_id, g.period, g.value, g.is_calculated, g.source_formula, g.entered_by, g.entered_at, g.updated_at, gc.code AS component_code
        FROM grades g
        JOIN grade_components gc ON gc.id = g.component_id
        WHERE 1=1`
	args := []interface{}{}
	idx := 1
	if filter.StudentID != "" {
		query += fmt.Sprintf(" AND g.student_id = $%d", idx)
		args = append(args, filter.StudentID)
		idx++
	}
	if filter.ComponentID != "" {
		query += fmt.Sprintf(" AND g.component_id = $%d", idx)
		args = append(args, filter.ComponentID)
		idx++
	}
	if filter.DisciplineID != "" {
		query += fmt.Sprintf(" AND gc.discipline_id = $%d", idx)
		args = append(args, filter.DisciplineID)
		idx++
	}
	if filter.Period != "" {
		query += fmt.Sprintf(" AND g.period = $%d", idx)
		args = append(args, filter.Period)
		idx++
	}
	query += " ORDER BY g.updated_at DESC"

	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query, args...); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return grades, nil
}

// Upsert writes a raw grade entry, one row per (student, component, period).
func (r *GradeRepository) Upsert(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if grade.EnteredAt.IsZero() {
		grade.EnteredAt = now
	}
	grade.UpdatedAt = now
	const query = `INSERT INTO grades (id, student_id, component_id, period, value, is_calculated, source_formula, entered_by, entered_at, updated_at)
        VALUES (:id, :student_id, :component_id, :period, :value, :is_calculated, :source_formula, :entered_by, :entered_at, :updated_at)
        ON CONFLICT (student_id, component_id, period)
        DO UPDATE SET value = EXCLUDED.value, is_calculated = EXCLUDED.is_calculated, source_formula = EXCLUDED.source_formula, entered_by = EXCLUDED.entered_by, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return fmt.Errorf("upsert grade: %w", err)
	}
	return nil
}

// UpsertCalculated writes an engine-produced grade with its formula as
// provenance. Same row shape as a raw entry.
func (r *GradeRepository) UpsertCalculated(ctx context.Context, grade *models.Grade) error {
	grade.IsCalculated = true
	return r.Upsert(ctx, grade)
}

// DeleteCalculated removes a stale engine-produced grade. Absence, never zero.
func (r *GradeRepository) DeleteCalculated(ctx context.Context, studentID, componentID, period string) error {
	const query = `DELETE FROM grades WHERE student_id = $1 AND component_id = $2 AND period = $3 AND is_calculated = true`
	if _, err := r.db.ExecContext(ctx, query, studentID, componentID, period); err != nil {
		return fmt.Errorf("delete calculated grade: %w", err)
	}
	return nil
}

// Delete removes a raw grade entry.
func (r *GradeRepository) Delete(ctx context.Context, studentID, componentID, period string) error {
	const query = `DELETE FROM grades WHERE student_id = $1 AND component_id = $2 AND period = $3 AND is_calculated = false`
	res, err := r.db.ExecContext(ctx, query, studentID, componentID, period)
	if err != nil {
		return fmt.Errorf("delete grade: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("delete grade: no raw entry for student %s component %s period %s", studentID, componentID, period)
	}
	return nil
}
