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

const componentColumns = `id, discipline_id, period, code, name, weight_percent, min_scale, max_scale, required, is_calculated, formula_expression, depends_on, created_at, updated_at`

// ComponentRepository manages grade component persistence.
type ComponentRepository struct {
	db *sqlx.DB
}

// NewComponentRepository creates a repository instance.
func NewComponentRepository(db *sqlx.DB) *ComponentRepository {
	return &ComponentRepository{db: db}
}

// ListComponents returns every component of a discipline+period. This is the
// catalog snapshot the engine evaluates against.
func (r *ComponentRepository) ListComponents(ctx context.Context, disciplineID, period string) ([]models.GradeComponent, error) {
	query := fmt.Sprintf(`SELECT %s FROM grade_components WHERE discipline_id = $1 AND period = $2 ORDER BY code`, componentColumns)
	var components []models.GradeComponent
	if err := r.db.SelectContext(ctx, &components, query, disciplineID, period); err != nil {
		return nil, fmt.Errorf("list components: %w", err)
	}
	return components, nil
}

// FindByID returns a component by its ID.
func (r *ComponentRepository) FindByID(ctx context.Context, id string) (*models.GradeComponent, error) {
	query := fmt.Sprintf(`SELECT %s FROM grade_components WHERE id = $1`, componentColumns)
	var component models.GradeComponent
	if err := r.db.GetContext(ctx, &component, query, id); err != nil {
		return nil, err
	}
	return &component, nil
}

// FindByCode returns the component with the given code within its scope.
func (r *ComponentRepository) FindByCode(ctx context.Context, disciplineID, period, code string) (*models.GradeComponent, error) {
	query := fmt.Sprintf(`SELECT %s FROM grade_components WHERE discipline_id = $1 AND period = $2 AND code = $3`, componentColumns)
	var component models.GradeComponent
	if err := r.db.GetContext(ctx, &component, query, disciplineID, period, code); err != nil {
		return nil, err
	}
	return &component, nil
}

// ExistsByCode checks whether a code is already used within a discipline+period.
func (r *ComponentRepository) ExistsByCode(ctx context.Context, disciplineID, period, code, excludeID string) (bool, error) {
	query := "SELECT 1 FROM grade_components WHERE discipline_id = $1 AND period = $2 AND code = $3"
	args := []interface{}{disciplineID, period, code}
	if excludeID != "" {
		query += " AND id <> $4"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check component code: %w", err)
	}
	return true, nil
}

// Create inserts a new component.
func (r *ComponentRepository) Create(ctx context.Context, component *models.GradeComponent) error {
	if component.ID == "" {
		component.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if component.CreatedAt.IsZero() {
		component.CreatedAt = now
	}
	component.UpdatedAt = now
	const query = `INSERT INTO grade_components (id, discipline_id, period, code, name, weight_percent, min_scale, max_scale, required, is_calculated, formula_expression, depends_on, created_at, updated_at)
        VALUES (:id, :discipline_id, :period, :code, :name, :weight_percent, :min_scale, :max_scale, :required, :is_calculated, :formula_expression, :depends_on, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, component); err != nil {
		return fmt.Errorf("create component: %w", err)
	}
	return nil
}

// Update replaces a component definition.
func (r *ComponentRepository) Update(ctx context.Context, component *models.GradeComponent) error {
	component.UpdatedAt = time.Now().UTC()
	const query = `UPDATE grade_components SET code = :code, name = :name, weight_percent = :weight_percent, min_scale = :min_scale, max_scale = :max_scale, required = :required, is_calculated = :is_calculated, formula_expression = :formula_expression, depends_on = :depends_on, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, component); err != nil {
		return fmt.Errorf("update component: %w", err)
	}
	return nil
}

// Delete removes a component definition.
func (r *ComponentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM grade_components WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete component: %w", err)
	}
	return nil
}
