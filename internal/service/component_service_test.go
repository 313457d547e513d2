package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edugest/mini-pautas-api/internal/models"
	appErrors "github.com/edugest/mini-pautas-api/pkg/errors"
)

type mockComponentRepo struct {
	components map[string]*models.GradeComponent
	nextID     int
}

func (m *mockComponentRepo) ListComponents(ctx context.Context, disciplineID, period string) ([]models.GradeComponent, error) {
	var out []models.GradeComponent
	for _, comp := range m.components {
		if comp.DisciplineID == disciplineID && comp.Period == period {
			out = append(out, *comp)
		}
	}
	return out, nil
}

func (m *mockComponentRepo) FindByID(ctx context.Context, id string) (*models.GradeComponent, error) {
	if comp, ok := m.components[id]; ok {
		return comp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockComponentRepo) ExistsByCode(ctx context.Context, disciplineID, period, code, excludeID string) (bool, error) {
	for _, comp := range m.components {
		if comp.ID == excludeID {
			continue
		}
		if comp.DisciplineID == disciplineID && comp.Period == period && comp.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockComponentRepo) Create(ctx context.Context, component *models.GradeComponent) error {
	if m.components == nil {
		m.components = make(map[string]*models.GradeComponent)
	}
	m.nextID++
	component.ID = "comp-" + string(rune('0'+m.nextID))
	m.components[component.ID] = component
	return nil
}

func (m *mockComponentRepo) Update(ctx context.Context, component *models.GradeComponent) error {
	m.components[component.ID] = component
	return nil
}

func (m *mockComponentRepo) Delete(ctx context.Context, id string) error {
	delete(m.components, id)
	return nil
}

func seedComponent(repo *mockComponentRepo, id, code string, calculated bool, formula string, deps ...string) {
	if repo.components == nil {
		repo.components = make(map[string]*models.GradeComponent)
	}
	repo.components[id] = &models.GradeComponent{
		ID:                id,
		DisciplineID:      "disc-1",
		Period:            "T1",
		Code:              code,
		Name:              code,
		WeightPercent:     50,
		MaxScale:          20,
		Required:          true,
		IsCalculated:      calculated,
		FormulaExpression: formula,
		DependsOn:         deps,
	}
}

func newComponentService(repo *mockComponentRepo) *ComponentService {
	return NewComponentService(repo, &mockFormulaRepo{}, validator.New(), 20, zap.NewNop())
}

func newComponentServiceWithFormulas(repo *mockComponentRepo, formulas *mockFormulaRepo) *ComponentService {
	return NewComponentService(repo, formulas, validator.New(), 20, zap.NewNop())
}

func TestComponentServiceCreateCalculatedDerivesDependencies(t *testing.T) {
	repo := &mockComponentRepo{}
	seedComponent(repo, "c1", "T1_PROVA", false, "")
	seedComponent(repo, "c2", "T2_PROVA", false, "")
	svc := newComponentService(repo)

	result, err := svc.Create(context.Background(), SaveComponentRequest{
		DisciplineID:      "disc-1",
		Period:            "T1",
		Code:              "mt",
		Name:              "Media dos Trabalhos",
		WeightPercent:     40,
		MaxScale:          20,
		IsCalculated:      true,
		FormulaExpression: "(T1_PROVA + T2_PROVA) / 2",
	})
	require.NoError(t, err)
	assert.Equal(t, "MT", result.Component.Code)
	assert.Equal(t, []string{"T1_PROVA", "T2_PROVA"}, []string(result.Component.DependsOn))
}

func TestComponentServiceCreateRejectsUnknownCodes(t *testing.T) {
	repo := &mockComponentRepo{}
	seedComponent(repo, "c1", "P1", false, "")
	svc := newComponentService(repo)

	_, err := svc.Create(context.Background(), SaveComponentRequest{
		DisciplineID:      "disc-1",
		Period:            "T1",
		Code:              "MT",
		Name:              "Media",
		WeightPercent:     40,
		MaxScale:          20,
		IsCalculated:      true,
		FormulaExpression: "P1 + P9 + X",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrUnknownComponent.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "P9")
	assert.Contains(t, appErr.Message, "X")
}

func TestComponentServiceUpdateRejectsCycle(t *testing.T) {
	repo := &mockComponentRepo{}
	seedComponent(repo, "c1", "A", true, "B + 1", "B")
	seedComponent(repo, "c2", "B", false, "")
	svc := newComponentService(repo)

	// making B depend on A closes the loop A -> B -> A
	_, err := svc.Update(context.Background(), "c2", SaveComponentRequest{
		DisciplineID:      "disc-1",
		Period:            "T1",
		Code:              "B",
		Name:              "B",
		WeightPercent:     50,
		MaxScale:          20,
		IsCalculated:      true,
		FormulaExpression: "A + 1",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrDependencyCycle.Code, appErr.Code)
}

func TestComponentServiceCreateDuplicateCode(t *testing.T) {
	repo := &mockComponentRepo{}
	seedComponent(repo, "c1", "P1", false, "")
	svc := newComponentService(repo)

	_, err := svc.Create(context.Background(), SaveComponentRequest{
		DisciplineID:  "disc-1",
		Period:        "T1",
		Code:          "p1",
		Name:          "Prova 1",
		WeightPercent: 30,
		MaxScale:      20,
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestComponentServiceCreateWarnsOnWeightSum(t *testing.T) {
	repo := &mockComponentRepo{}
	svc := newComponentService(repo)

	result, err := svc.Create(context.Background(), SaveComponentRequest{
		DisciplineID:  "disc-1",
		Period:        "T1",
		Code:          "P1",
		Name:          "Prova 1",
		WeightPercent: 30,
		MaxScale:      20,
	})
	require.NoError(t, err)
	assert.Contains(t, result.Warning, "30.00")
}

func TestComponentServiceDeleteBlockedByDependents(t *testing.T) {
	repo := &mockComponentRepo{}
	seedComponent(repo, "c1", "P1", false, "")
	seedComponent(repo, "c2", "MT", true, "P1 * 1", "P1")
	svc := newComponentService(repo)

	err := svc.Delete(context.Background(), "c1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)

	// the dependent itself can go
	require.NoError(t, svc.Delete(context.Background(), "c2"))
}

func TestComponentServiceUpdateRenameBlockedByDependents(t *testing.T) {
	repo := &mockComponentRepo{}
	seedComponent(repo, "c1", "P1", false, "")
	seedComponent(repo, "c2", "MT", true, "P1 * 1", "P1")
	svc := newComponentService(repo)

	_, err := svc.Update(context.Background(), "c1", SaveComponentRequest{
		DisciplineID:  "disc-1",
		Period:        "T1",
		Code:          "P9",
		Name:          "Prova 9",
		WeightPercent: 50,
		MaxScale:      20,
		Required:      true,
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "P1", repo.components["c1"].Code)
}

func TestComponentServiceDeleteDemotesFormula(t *testing.T) {
	repo := &mockComponentRepo{}
	seedComponent(repo, "c1", "P1", false, "")
	seedComponent(repo, "c2", "P2", false, "")
	formulas := &mockFormulaRepo{stored: &models.DisciplineFormula{
		DisciplineID:      "disc-1",
		Period:            "T1",
		Expression:        "0.5*P1 + 0.5*P2",
		ComponentsUsed:    []string{"P1", "P2"},
		Validated:         true,
		ValidationMessage: "formula valid, uses P1, P2",
	}}
	svc := newComponentServiceWithFormulas(repo, formulas)

	require.NoError(t, svc.Delete(context.Background(), "c2"))
	require.NotNil(t, formulas.stored)
	assert.False(t, formulas.stored.Validated)
	assert.Contains(t, formulas.stored.ValidationMessage, "P2")
}

func TestComponentServiceRenameDemotesFormula(t *testing.T) {
	repo := &mockComponentRepo{}
	seedComponent(repo, "c1", "P1", false, "")
	formulas := &mockFormulaRepo{stored: &models.DisciplineFormula{
		DisciplineID:   "disc-1",
		Period:         "T1",
		Expression:     "P1 * 2",
		ComponentsUsed: []string{"P1"},
		Validated:      true,
	}}
	svc := newComponentServiceWithFormulas(repo, formulas)

	// no calculated component references P1, so the rename itself succeeds
	result, err := svc.Update(context.Background(), "c1", SaveComponentRequest{
		DisciplineID:  "disc-1",
		Period:        "T1",
		Code:          "P9",
		Name:          "Prova 9",
		WeightPercent: 50,
		MaxScale:      20,
		Required:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, "P9", result.Component.Code)
	require.NotNil(t, formulas.stored)
	assert.False(t, formulas.stored.Validated)
	assert.Contains(t, formulas.stored.ValidationMessage, "P1")
}

func TestComponentServiceCreatePromotesFormula(t *testing.T) {
	repo := &mockComponentRepo{}
	seedComponent(repo, "c1", "P1", false, "")
	formulas := &mockFormulaRepo{stored: &models.DisciplineFormula{
		DisciplineID:      "disc-1",
		Period:            "T1",
		Expression:        "P1 + P3",
		Validated:         false,
		ValidationMessage: "unknown component codes: P3",
	}}
	svc := newComponentServiceWithFormulas(repo, formulas)

	_, err := svc.Create(context.Background(), SaveComponentRequest{
		DisciplineID:  "disc-1",
		Period:        "T1",
		Code:          "P3",
		Name:          "Prova 3",
		WeightPercent: 50,
		MaxScale:      20,
	})
	require.NoError(t, err)
	require.NotNil(t, formulas.stored)
	assert.True(t, formulas.stored.Validated)
	assert.Equal(t, "formula valid, uses P1, P3", formulas.stored.ValidationMessage)
	assert.Equal(t, []string{"P1", "P3"}, []string(formulas.stored.ComponentsUsed))
}

func TestComponentServiceRejectsScaleAboveGradingMaximum(t *testing.T) {
	repo := &mockComponentRepo{}
	svc := newComponentService(repo)

	_, err := svc.Create(context.Background(), SaveComponentRequest{
		DisciplineID:  "disc-1",
		Period:        "T1",
		Code:          "P1",
		Name:          "Prova 1",
		WeightPercent: 50,
		MaxScale:      25,
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "25.00")
}

func TestComponentServiceRejectsFormulaOnRawComponent(t *testing.T) {
	repo := &mockComponentRepo{}
	svc := newComponentService(repo)

	_, err := svc.Create(context.Background(), SaveComponentRequest{
		DisciplineID:      "disc-1",
		Period:            "T1",
		Code:              "P1",
		Name:              "Prova 1",
		WeightPercent:     30,
		MaxScale:          20,
		FormulaExpression: "P2 + 1",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
