package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/edugest/mini-pautas-api/internal/models"
)

// RosterRepository reads students, disciplines and enrollments. The roster is
// owned elsewhere; this service only consumes it.
type RosterRepository struct {
	db *sqlx.DB
}

// NewRosterRepository creates a repository instance.
func NewRosterRepository(db *sqlx.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

// FindStudent returns a student by ID.
func (r *RosterRepository) FindStudent(ctx context.Context, id string) (*models.Student, error) {
	var student models.Student
	if err := r.db.GetContext(ctx, &student, "SELECT id, number, full_name, active, created_at, updated_at FROM students WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindDiscipline returns a discipline by ID.
func (r *RosterRepository) FindDiscipline(ctx context.Context, id string) (*models.Discipline, error) {
	var discipline models.Discipline
	if err := r.db.GetContext(ctx, &discipline, "SELECT id, code, name, created_at, updated_at FROM disciplines WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &discipline, nil
}

// ActiveStudentIDs returns the IDs of students actively enrolled in a class.
func (r *RosterRepository) ActiveStudentIDs(ctx context.Context, classID string) ([]string, error) {
	const query = `SELECT student_id FROM enrollments WHERE class_id = $1 AND status = 'ACTIVE' ORDER BY student_id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, classID); err != nil {
		return nil, fmt.Errorf("active student ids: %w", err)
	}
	return ids, nil
}
