package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edugest/mini-pautas-api/internal/engine"
	"github.com/edugest/mini-pautas-api/internal/models"
	appErrors "github.com/edugest/mini-pautas-api/pkg/errors"
)

type gradeRepo interface {
	List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, error)
	Get(ctx context.Context, studentID, componentID, period string) (*models.Grade, error)
	Upsert(ctx context.Context, grade *models.Grade) error
	Delete(ctx context.Context, studentID, componentID, period string) error
}

type recomputer interface {
	OnGradeWritten(ctx context.Context, studentID, disciplineID, period string) (*engine.FinalResult, error)
}

// UpsertGradeRequest carries one raw grade entry.
type UpsertGradeRequest struct {
	StudentID   string  `json:"student_id" validate:"required"`
	ComponentID string  `json:"component_id" validate:"required"`
	Period      string  `json:"period" validate:"required"`
	Value       float64 `json:"value" validate:"gte=0"`
	EnteredBy   string  `json:"entered_by"`
}

// GradeWriteResult reports what a grade write changed downstream. Final is
// nil when required components are still missing; MissingComponents then
// names them. Warning carries the out-of-scale advisory, the write itself is
// never rejected for it.
type GradeWriteResult struct {
	Grade             *models.Grade       `json:"grade,omitempty"`
	Final             *engine.FinalResult `json:"final,omitempty"`
	MissingComponents []string            `json:"missing_components,omitempty"`
	Warning           string              `json:"warning,omitempty"`
}

// GradeService handles raw grade entry. Every write and delete funnels into
// the engine's recompute pass so calculated components and the final grade
// can never drift from the raw values.
type GradeService struct {
	grades     gradeRepo
	components componentRepo
	engine     recomputer
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewGradeService constructs a grade service. cache and metrics may be nil.
func NewGradeService(grades gradeRepo, components componentRepo, eng recomputer, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{grades: grades, components: components, engine: eng, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// List returns grades matching the filter.
func (s *GradeService) List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, error) {
	grades, err := s.grades.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return grades, nil
}

// Upsert writes one raw grade and runs the cascade recompute.
func (s *GradeService) Upsert(ctx context.Context, req UpsertGradeRequest) (*GradeWriteResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	component, err := s.loadComponent(ctx, req.ComponentID, req.Period)
	if err != nil {
		return nil, err
	}

	var warning string
	if req.Value < component.MinScale || req.Value > component.MaxScale {
		warning = fmt.Sprintf("value %.2f is outside the component scale [%.2f, %.2f]", req.Value, component.MinScale, component.MaxScale)
	}

	grade := &models.Grade{
		StudentID:     req.StudentID,
		ComponentID:   component.ID,
		Period:        req.Period,
		Value:         req.Value,
		IsCalculated:  false,
		EnteredBy:     req.EnteredBy,
		ComponentCode: component.Code,
	}
	if err := s.grades.Upsert(ctx, grade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store grade")
	}

	result, err := s.recompute(ctx, req.StudentID, component.DisciplineID, req.Period)
	if err != nil {
		return nil, err
	}
	result.Grade = grade
	result.Warning = warning
	return result, nil
}

// Delete removes one raw grade and runs the cascade recompute; calculated
// components that depended on the removed value lose theirs too.
func (s *GradeService) Delete(ctx context.Context, studentID, componentID, period string) (*GradeWriteResult, error) {
	if studentID == "" || componentID == "" || period == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student_id, component_id and period are required")
	}

	component, err := s.loadComponent(ctx, componentID, period)
	if err != nil {
		return nil, err
	}

	if err := s.grades.Delete(ctx, studentID, componentID, period); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no grade entry to delete")
	}

	return s.recompute(ctx, studentID, component.DisciplineID, period)
}

func (s *GradeService) loadComponent(ctx context.Context, componentID, period string) (*models.GradeComponent, error) {
	component, err := s.components.FindByID(ctx, componentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "component not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load component")
	}
	if component.IsCalculated {
		return nil, appErrors.Clone(appErrors.ErrConflict, "calculated components are derived by the engine, not entered directly")
	}
	if component.Period != period {
		return nil, appErrors.Clone(appErrors.ErrValidation, "period does not match the component's grading period")
	}
	return component, nil
}

// recompute runs the engine pass and translates its outcome. A missing
// required component is a normal partial state, not a failure: the raw write
// stands and the response names the gaps.
func (s *GradeService) recompute(ctx context.Context, studentID, disciplineID, period string) (*GradeWriteResult, error) {
	start := time.Now()
	final, err := s.engine.OnGradeWritten(ctx, studentID, disciplineID, period)
	duration := time.Since(start)

	if err != nil {
		var missing *engine.MissingComponentError
		if errors.As(err, &missing) {
			if s.metrics != nil {
				s.metrics.RecordRecompute("incomplete", duration)
			}
			s.invalidateReports(ctx, studentID, disciplineID, period)
			return &GradeWriteResult{MissingComponents: missing.Codes}, nil
		}
		if s.metrics != nil {
			s.metrics.RecordRecompute("error", duration)
		}
		return nil, wrapEngineError(err)
	}

	if s.metrics != nil {
		s.metrics.RecordRecompute("computed", duration)
	}
	s.invalidateReports(ctx, studentID, disciplineID, period)
	return &GradeWriteResult{Final: final}, nil
}

func (s *GradeService) invalidateReports(ctx context.Context, studentID, disciplineID, period string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("pauta:*:%s:%s", disciplineID, period))
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("reportcard:%s:*", studentID))
}
