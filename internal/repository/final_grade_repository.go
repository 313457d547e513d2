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

// FinalGradeRepository manages discipline-level final grades and the read
// models behind pautas and report cards.
type FinalGradeRepository struct {
	db *sqlx.DB
}

// NewFinalGradeRepository creates a repository instance.
func NewFinalGradeRepository(db *sqlx.DB) *FinalGradeRepository {
	return &FinalGradeRepository{db: db}
}

// UpsertFinal stores the final grade, one row per (student, discipline, period).
func (r *FinalGradeRepository) UpsertFinal(ctx context.Context, final *models.FinalGrade) error {
	if final.ID == "" {
		final.ID = uuid.NewString()
	}
	if final.ComputedAt.IsZero() {
		final.ComputedAt = time.Now().UTC()
	}
	const query = `INSERT INTO final_grades (id, student_id, discipline_id, period, value, classification, passed, breakdown, computed_at)
        VALUES (:id, :student_id, :discipline_id, :period, :value, :classification, :passed, :breakdown, :computed_at)
        ON CONFLICT (student_id, discipline_id, period)
        DO UPDATE SET value = EXCLUDED.value, classification = EXCLUDED.classification, passed = EXCLUDED.passed, breakdown = EXCLUDED.breakdown, computed_at = EXCLUDED.computed_at`
	if _, err := r.db.NamedExecContext(ctx, query, final); err != nil {
		return fmt.Errorf("upsert final grade: %w", err)
	}
	return nil
}

// Get returns the final grade for (student, discipline, period), or nil when
// none has been computed yet.
func (r *FinalGradeRepository) Get(ctx context.Context, studentID, disciplineID, period string) (*models.FinalGrade, error) {
	const query = `SELECT id, student_id, discipline_id, period, value, classification, passed, breakdown, computed_at
        FROM final_grades WHERE student_id = $1 AND discipline_id = $2 AND period = $3`
	var final models.FinalGrade
	if err := r.db.GetContext(ctx, &final, query, studentID, disciplineID, period); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get final grade: %w", err)
	}
	return &final, nil
}

// PautaRows returns one line per active student of a class with the final
// grade for a discipline+period, nil-valued for students not yet computed.
func (r *FinalGradeRepository) PautaRows(ctx context.Context, classID, disciplineID, period string) ([]models.PautaRow, error) {
	const query = `SELECT s.id AS student_id, s.full_name AS student_name, s.number AS student_number,
               fg.value, fg.classification, fg.passed, fg.breakdown
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        LEFT JOIN final_grades fg ON fg.student_id = s.id AND fg.discipline_id = $2 AND fg.period = $3
        WHERE e.class_id = $1 AND e.status = 'ACTIVE'
        ORDER BY s.full_name`
	var rows []models.PautaRow
	if err := r.db.SelectContext(ctx, &rows, query, classID, disciplineID, period); err != nil {
		return nil, fmt.Errorf("pauta rows: %w", err)
	}
	return rows, nil
}

// ReportCardSubjects returns every discipline with the student's final grade
// for a period, nil-valued where nothing has been computed.
func (r *FinalGradeRepository) ReportCardSubjects(ctx context.Context, studentID, period string) ([]models.ReportCardSubject, error) {
	const query = `SELECT d.id AS discipline_id, d.name AS discipline_name, fg.value, fg.classification
        FROM disciplines d
        LEFT JOIN final_grades fg ON fg.discipline_id = d.id AND fg.student_id = $1 AND fg.period = $2
        ORDER BY d.name`
	var subjects []models.ReportCardSubject
	if err := r.db.SelectContext(ctx, &subjects, query, studentID, period); err != nil {
		return nil, fmt.Errorf("report card subjects: %w", err)
	}
	return subjects, nil
}
