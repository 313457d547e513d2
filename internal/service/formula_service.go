package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edugest/mini-pautas-api/internal/engine"
	"github.com/edugest/mini-pautas-api/internal/models"
	appErrors "github.com/edugest/mini-pautas-api/pkg/errors"
)

type formulaRepo interface {
	GetFormula(ctx context.Context, disciplineID, period string) (*models.DisciplineFormula, error)
	Upsert(ctx context.Context, formula *models.DisciplineFormula) error
}

// SetFormulaRequest carries a discipline-level final-grade expression.
type SetFormulaRequest struct {
	Expression string `json:"expression" validate:"required"`
}

// FormulaCheck is the outcome of a dry-run validation.
type FormulaCheck struct {
	Valid          bool     `json:"valid"`
	Message        string   `json:"message,omitempty"`
	ComponentsUsed []string `json:"components_used,omitempty"`
}

// FormulaService manages discipline-level final-grade formulas. Every stored
// formula records its validation outcome; only rows with validated=true are
// ever used by the calculation engine, so an invalid save can never corrupt
// final grades.
type FormulaService struct {
	repo       formulaRepo
	components componentRepo
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewFormulaService constructs a formula service.
func NewFormulaService(repo formulaRepo, components componentRepo, validate *validator.Validate, logger *zap.Logger) *FormulaService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FormulaService{repo: repo, components: components, validator: validate, logger: logger}
}

// Get returns the stored formula for a discipline+period.
func (s *FormulaService) Get(ctx context.Context, disciplineID, period string) (*models.DisciplineFormula, error) {
	formula, err := s.repo.GetFormula(ctx, disciplineID, period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load formula")
	}
	if formula == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no formula set, discipline uses the weighted sum")
	}
	return formula, nil
}

// Validate dry-runs an expression against the discipline's component catalog
// without storing anything.
func (s *FormulaService) Validate(ctx context.Context, disciplineID, period, expression string) (*FormulaCheck, error) {
	known, err := s.knownCodes(ctx, disciplineID, period)
	if err != nil {
		return nil, err
	}
	result, err := engine.Validate(expression, known)
	if err != nil {
		return &FormulaCheck{Valid: false, Message: err.Error()}, nil
	}
	return &FormulaCheck{Valid: true, Message: formulaValidMessage(result.UsedCodes), ComponentsUsed: result.UsedCodes}, nil
}

// Set stores the expression with its validation outcome. An invalid formula
// is persisted with validated=false and the failure message so the client can
// see and fix it; the engine ignores unvalidated rows.
func (s *FormulaService) Set(ctx context.Context, disciplineID, period string, req SetFormulaRequest) (*models.DisciplineFormula, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid formula payload")
	}
	if disciplineID == "" || period == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "discipline_id and period are required")
	}

	expression := strings.TrimSpace(req.Expression)
	formula := &models.DisciplineFormula{
		DisciplineID: disciplineID,
		Period:       period,
		Expression:   expression,
	}

	known, err := s.knownCodes(ctx, disciplineID, period)
	if err != nil {
		return nil, err
	}
	result, err := engine.Validate(expression, known)
	if err != nil {
		formula.Validated = false
		formula.ValidationMessage = err.Error()
	} else {
		formula.Validated = true
		formula.ValidationMessage = formulaValidMessage(result.UsedCodes)
		formula.ComponentsUsed = result.UsedCodes
	}

	if err := s.repo.Upsert(ctx, formula); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store formula")
	}

	s.logger.Info("discipline formula stored",
		zap.String("discipline_id", disciplineID),
		zap.String("period", period),
		zap.Bool("validated", formula.Validated))
	return formula, nil
}

// formulaValidMessage is the stored validation_message for a passing check.
func formulaValidMessage(used []string) string {
	if len(used) == 0 {
		return "formula valid"
	}
	return "formula valid, uses " + strings.Join(used, ", ")
}

func (s *FormulaService) knownCodes(ctx context.Context, disciplineID, period string) (map[string]struct{}, error) {
	components, err := s.components.ListComponents(ctx, disciplineID, period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load component catalog")
	}
	known := make(map[string]struct{}, len(components))
	for _, comp := range components {
		known[comp.Code] = struct{}{}
	}
	return known, nil
}
