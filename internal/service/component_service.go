package service

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edugest/mini-pautas-api/internal/engine"
	"github.com/edugest/mini-pautas-api/internal/models"
	appErrors "github.com/edugest/mini-pautas-api/pkg/errors"
)

// codePattern is the identifier shape the formula lexer accepts.
var codePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

type componentRepo interface {
	ListComponents(ctx context.Context, disciplineID, period string) ([]models.GradeComponent, error)
	FindByID(ctx context.Context, id string) (*models.GradeComponent, error)
	ExistsByCode(ctx context.Context, disciplineID, period, code, excludeID string) (bool, error)
	Create(ctx context.Context, component *models.GradeComponent) error
	Update(ctx context.Context, component *models.GradeComponent) error
	Delete(ctx context.Context, id string) error
}

// SaveComponentRequest describes the create/update payload for a component.
type SaveComponentRequest struct {
	DisciplineID      string  `json:"discipline_id" validate:"required"`
	Period            string  `json:"period" validate:"required"`
	Code              string  `json:"code" validate:"required"`
	Name              string  `json:"name" validate:"required"`
	WeightPercent     float64 `json:"weight_percent" validate:"gt=0,lte=100"`
	MinScale          float64 `json:"min_scale" validate:"gte=0"`
	MaxScale          float64 `json:"max_scale" validate:"gtfield=MinScale"`
	Required          bool    `json:"required"`
	IsCalculated      bool    `json:"is_calculated"`
	FormulaExpression string  `json:"formula_expression"`
}

// ComponentSaveResult pairs the stored component with any advisory warning
// (weights of the scope not summing to 100).
type ComponentSaveResult struct {
	Component *models.GradeComponent `json:"component"`
	Warning   string                 `json:"warning,omitempty"`
}

// ComponentService manages the grade component catalog. Every definition
// change is validated against the rest of its discipline+period scope so the
// catalog can never hold an unparsable formula or a dependency cycle, and the
// stored discipline formula is re-validated after each change because its
// referenced codes may have appeared, changed or vanished.
type ComponentService struct {
	repo      componentRepo
	formulas  formulaRepo
	validator *validator.Validate
	scaleMax  float64
	logger    *zap.Logger
}

// NewComponentService constructs a component service. scaleMax caps component
// scale bounds to the configured grading scale; zero disables the cap.
func NewComponentService(repo componentRepo, formulas formulaRepo, validate *validator.Validate, scaleMax float64, logger *zap.Logger) *ComponentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ComponentService{repo: repo, formulas: formulas, validator: validate, scaleMax: scaleMax, logger: logger}
}

// List returns the components of a discipline+period.
func (s *ComponentService) List(ctx context.Context, disciplineID, period string) ([]models.GradeComponent, error) {
	if disciplineID == "" || period == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "discipline_id and period are required")
	}
	components, err := s.repo.ListComponents(ctx, disciplineID, period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list components")
	}
	return components, nil
}

// Get returns one component by ID.
func (s *ComponentService) Get(ctx context.Context, id string) (*models.GradeComponent, error) {
	component, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "component not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load component")
	}
	return component, nil
}

// Create inserts a new component after validating code uniqueness, formula
// shape and the dependency graph of its scope.
func (s *ComponentService) Create(ctx context.Context, req SaveComponentRequest) (*ComponentSaveResult, error) {
	component, err := s.prepare(ctx, req, "")
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, component); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create component")
	}
	if err := s.revalidateFormula(ctx, component.DisciplineID, component.Period); err != nil {
		return nil, err
	}
	warning, err := s.scopeWarning(ctx, component.DisciplineID, component.Period)
	if err != nil {
		return nil, err
	}
	s.logger.Info("component created",
		zap.String("component_id", component.ID),
		zap.String("code", component.Code),
		zap.String("discipline_id", component.DisciplineID))
	return &ComponentSaveResult{Component: component, Warning: warning}, nil
}

// Update replaces a component definition, re-running the same scope checks.
func (s *ComponentService) Update(ctx context.Context, id string, req SaveComponentRequest) (*ComponentSaveResult, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.DisciplineID != existing.DisciplineID || req.Period != existing.Period {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a component cannot move between disciplines or periods")
	}
	component, err := s.prepare(ctx, req, id)
	if err != nil {
		return nil, err
	}
	if component.Code != existing.Code {
		scope, err := s.repo.ListComponents(ctx, existing.DisciplineID, existing.Period)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load component scope")
		}
		if dependents := engine.DependentsOf(scope, existing.Code); len(dependents) > 0 {
			return nil, appErrors.Clone(appErrors.ErrConflict, "component code is referenced by calculated components and cannot be renamed")
		}
	}
	component.ID = id
	component.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, component); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update component")
	}
	if err := s.revalidateFormula(ctx, component.DisciplineID, component.Period); err != nil {
		return nil, err
	}
	warning, err := s.scopeWarning(ctx, component.DisciplineID, component.Period)
	if err != nil {
		return nil, err
	}
	return &ComponentSaveResult{Component: component, Warning: warning}, nil
}

// Delete removes a component unless another calculated component depends on it.
func (s *ComponentService) Delete(ctx context.Context, id string) error {
	component, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	scope, err := s.repo.ListComponents(ctx, component.DisciplineID, component.Period)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load component scope")
	}
	if dependents := engine.DependentsOf(scope, component.Code); len(dependents) > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "component is referenced by calculated components")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete component")
	}
	if err := s.revalidateFormula(ctx, component.DisciplineID, component.Period); err != nil {
		return err
	}
	s.logger.Info("component deleted", zap.String("component_id", id), zap.String("code", component.Code))
	return nil
}

// revalidateFormula re-checks the stored discipline formula against the
// catalog as it now stands. A formula whose referenced codes no longer exist
// is kept but demoted to validated=false, so the engine falls back to the
// weighted sum instead of evaluating against missing components; a formula
// the change repaired is promoted back.
func (s *ComponentService) revalidateFormula(ctx context.Context, disciplineID, period string) error {
	formula, err := s.formulas.GetFormula(ctx, disciplineID, period)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load formula")
	}
	if formula == nil {
		return nil
	}

	scope, err := s.repo.ListComponents(ctx, disciplineID, period)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load component scope")
	}
	known := make(map[string]struct{}, len(scope))
	for _, comp := range scope {
		known[comp.Code] = struct{}{}
	}

	wasValid := formula.Validated
	result, err := engine.Validate(formula.Expression, known)
	if err != nil {
		formula.Validated = false
		formula.ValidationMessage = err.Error()
		formula.ComponentsUsed = nil
	} else {
		formula.Validated = true
		formula.ValidationMessage = formulaValidMessage(result.UsedCodes)
		formula.ComponentsUsed = result.UsedCodes
	}
	if err := s.formulas.Upsert(ctx, formula); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store formula")
	}
	if wasValid != formula.Validated {
		s.logger.Info("discipline formula re-validated after catalog change",
			zap.String("discipline_id", disciplineID),
			zap.String("period", period),
			zap.Bool("validated", formula.Validated))
	}
	return nil
}

// prepare validates the payload and builds the component to persist. For a
// calculated component the formula is parsed against the scope's codes and
// the resulting dependency list replaces whatever the client sent; the merged
// scope must stay acyclic.
func (s *ComponentService) prepare(ctx context.Context, req SaveComponentRequest, excludeID string) (*models.GradeComponent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid component payload")
	}

	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if !codePattern.MatchString(code) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "component code must start with a letter and use only letters, digits and underscores")
	}
	if s.scaleMax > 0 && req.MaxScale > s.scaleMax {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("component max_scale %.2f exceeds the grading scale maximum %.2f", req.MaxScale, s.scaleMax))
	}

	exists, err := s.repo.ExistsByCode(ctx, req.DisciplineID, req.Period, code, excludeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check component code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "component code already exists in this discipline and period")
	}

	component := &models.GradeComponent{
		DisciplineID:      req.DisciplineID,
		Period:            req.Period,
		Code:              code,
		Name:              strings.TrimSpace(req.Name),
		WeightPercent:     req.WeightPercent,
		MinScale:          req.MinScale,
		MaxScale:          req.MaxScale,
		Required:          req.Required,
		IsCalculated:      req.IsCalculated,
		FormulaExpression: strings.TrimSpace(req.FormulaExpression),
	}

	if !component.IsCalculated {
		if component.FormulaExpression != "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "only calculated components may carry a formula")
		}
		return component, nil
	}
	if component.FormulaExpression == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "calculated component requires a formula")
	}

	scope, err := s.repo.ListComponents(ctx, req.DisciplineID, req.Period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load component scope")
	}
	known := make(map[string]struct{}, len(scope))
	for _, other := range scope {
		if other.ID == excludeID {
			continue
		}
		known[other.Code] = struct{}{}
	}

	result, err := engine.Validate(component.FormulaExpression, known)
	if err != nil {
		return nil, wrapEngineError(err)
	}
	component.DependsOn = result.UsedCodes

	merged := make([]models.GradeComponent, 0, len(scope)+1)
	for _, other := range scope {
		if other.ID == excludeID || other.Code == component.Code {
			continue
		}
		merged = append(merged, other)
	}
	merged = append(merged, *component)
	if _, err := engine.ResolveOrder(merged); err != nil {
		return nil, wrapEngineError(err)
	}

	return component, nil
}

func (s *ComponentService) scopeWarning(ctx context.Context, disciplineID, period string) (string, error) {
	scope, err := s.repo.ListComponents(ctx, disciplineID, period)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load component scope")
	}
	return engine.WeightSumWarning(scope), nil
}
