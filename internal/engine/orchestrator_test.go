package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edugest/mini-pautas-api/internal/models"
)

type mockCatalog struct {
	components []models.GradeComponent
}

func (m *mockCatalog) ListComponents(ctx context.Context, disciplineID, period string) ([]models.GradeComponent, error) {
	return m.components, nil
}

type mockFormulaStore struct {
	formula *models.DisciplineFormula
}

func (m *mockFormulaStore) GetFormula(ctx context.Context, disciplineID, period string) (*models.DisciplineFormula, error) {
	return m.formula, nil
}

type mockGradeStore struct {
	raw        map[string]float64 // code -> value, raw entries only
	calculated map[string]models.Grade
	deleted    []string
}

func (m *mockGradeStore) MapByStudent(ctx context.Context, studentID, disciplineID, period string) (map[string]float64, error) {
	values := make(map[string]float64, len(m.raw))
	for code, v := range m.raw {
		values[code] = v
	}
	return values, nil
}

func (m *mockGradeStore) UpsertCalculated(ctx context.Context, grade *models.Grade) error {
	if m.calculated == nil {
		m.calculated = make(map[string]models.Grade)
	}
	m.calculated[grade.ComponentID] = *grade
	return nil
}

func (m *mockGradeStore) DeleteCalculated(ctx context.Context, studentID, componentID, period string) error {
	m.deleted = append(m.deleted, componentID)
	delete(m.calculated, componentID)
	return nil
}

type mockFinalStore struct {
	finals []models.FinalGrade
}

func (m *mockFinalStore) UpsertFinal(ctx context.Context, final *models.FinalGrade) error {
	m.finals = append(m.finals, *final)
	return nil
}

type mockNotifier struct {
	events []FinalGradeEvent
}

func (m *mockNotifier) FinalGradeComputed(ctx context.Context, event FinalGradeEvent) {
	m.events = append(m.events, event)
}

func newTestOrchestrator(catalog *mockCatalog, formulas *mockFormulaStore, grades *mockGradeStore, finals *mockFinalStore, notifier *mockNotifier) *Orchestrator {
	return NewOrchestrator(catalog, formulas, grades, finals, notifier, NewCalculator(nil, 10), zap.NewNop())
}

func TestOnGradeWrittenCascadesCalculatedComponents(t *testing.T) {
	catalog := &mockCatalog{components: []models.GradeComponent{
		weighted("T1", 0, false),
		weighted("T2", 0, false),
		{
			ID: "id-MT", Code: "MT", WeightPercent: 100, Required: true,
			IsCalculated: true, FormulaExpression: "(T1 + T2) / 2",
			DependsOn: []string{"T1", "T2"},
		},
	}}
	grades := &mockGradeStore{raw: map[string]float64{"T1": 12, "T2": 16}}
	finals := &mockFinalStore{}
	notifier := &mockNotifier{}
	orch := newTestOrchestrator(catalog, &mockFormulaStore{}, grades, finals, notifier)

	result, err := orch.OnGradeWritten(context.Background(), "stu1", "disc1", "T1")
	require.NoError(t, err)
	assert.Equal(t, 14.0, result.Value)
	assert.Equal(t, "Good", result.Classification)

	calculated, ok := grades.calculated["id-MT"]
	require.True(t, ok, "calculated grade must be persisted")
	assert.Equal(t, 14.0, calculated.Value)
	assert.True(t, calculated.IsCalculated)
	assert.Equal(t, "(T1 + T2) / 2", calculated.SourceFormula)

	require.Len(t, finals.finals, 1)
	assert.Equal(t, "stu1", finals.finals[0].StudentID)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, 14.0, notifier.events[0].Value)
	assert.Equal(t, "Good", notifier.events[0].Classification)
}

func TestOnGradeWrittenMissingDependencyProducesAbsence(t *testing.T) {
	catalog := &mockCatalog{components: []models.GradeComponent{
		weighted("T1", 0, false),
		weighted("T2", 0, false),
		weighted("T3", 0, false),
		{
			ID: "id-MT", Code: "MT", WeightPercent: 100, Required: true,
			IsCalculated: true, FormulaExpression: "(T1 + T2 + T3) / 3",
			DependsOn: []string{"T1", "T2", "T3"},
		},
	}}
	grades := &mockGradeStore{raw: map[string]float64{"T1": 12, "T2": 14}}
	finals := &mockFinalStore{}
	orch := newTestOrchestrator(catalog, &mockFormulaStore{}, grades, finals, &mockNotifier{})

	result, err := orch.OnGradeWritten(context.Background(), "stu1", "disc1", "T1")
	assert.Nil(t, result)

	var missing *MissingComponentError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"MT"}, missing.Codes)

	// no calculated grade, no zero fill, stale value removed, final untouched
	assert.Empty(t, grades.calculated)
	assert.Contains(t, grades.deleted, "id-MT")
	assert.Empty(t, finals.finals)
}

func TestOnGradeWrittenMissingDependencyPropagatesThroughChains(t *testing.T) {
	catalog := &mockCatalog{components: []models.GradeComponent{
		weighted("T1", 0, false),
		{
			ID: "id-MT", Code: "MT", Required: false,
			IsCalculated: true, FormulaExpression: "T1 + T3",
			DependsOn: []string{"T1", "T3"},
		},
		{
			ID: "id-MF", Code: "MF", WeightPercent: 100, Required: true,
			IsCalculated: true, FormulaExpression: "MT / 2",
			DependsOn: []string{"MT"},
		},
	}}
	grades := &mockGradeStore{raw: map[string]float64{"T1": 12}}
	finals := &mockFinalStore{}
	orch := newTestOrchestrator(catalog, &mockFormulaStore{}, grades, finals, &mockNotifier{})

	_, err := orch.OnGradeWritten(context.Background(), "stu1", "disc1", "T1")
	var missing *MissingComponentError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"MF"}, missing.Codes)
	assert.Empty(t, grades.calculated)
}

func TestOnGradeWrittenUsesValidatedFormula(t *testing.T) {
	catalog := &mockCatalog{components: []models.GradeComponent{
		weighted("P1", 50, true),
		weighted("P2", 50, true),
	}}
	formulas := &mockFormulaStore{formula: &models.DisciplineFormula{
		Expression:     "0.30*P1 + 0.70*P2",
		ComponentsUsed: []string{"P1", "P2"},
		Validated:      true,
	}}
	grades := &mockGradeStore{raw: map[string]float64{"P1": 10, "P2": 20}}
	finals := &mockFinalStore{}
	orch := newTestOrchestrator(catalog, formulas, grades, finals, &mockNotifier{})

	result, err := orch.OnGradeWritten(context.Background(), "stu1", "disc1", "T1")
	require.NoError(t, err)
	assert.Equal(t, 17.0, result.Value)
	assert.Equal(t, "Excellent", result.Classification)
}

func TestOnGradeWrittenIsIdempotent(t *testing.T) {
	catalog := &mockCatalog{components: []models.GradeComponent{
		weighted("P1", 30, true),
		weighted("P2", 30, true),
		weighted("TRABALHO", 40, true),
	}}
	grades := &mockGradeStore{raw: map[string]float64{"P1": 14, "P2": 16, "TRABALHO": 18}}
	finals := &mockFinalStore{}
	orch := newTestOrchestrator(catalog, &mockFormulaStore{}, grades, finals, &mockNotifier{})

	first, err := orch.OnGradeWritten(context.Background(), "stu1", "disc1", "T1")
	require.NoError(t, err)
	second, err := orch.OnGradeWritten(context.Background(), "stu1", "disc1", "T1")
	require.NoError(t, err)

	assert.Equal(t, first.Value, second.Value)
	assert.Equal(t, first.Classification, second.Classification)
	assert.Equal(t, first.Breakdown, second.Breakdown)

	require.Len(t, finals.finals, 2)
	assert.Equal(t, finals.finals[0].Value, finals.finals[1].Value)
	assert.Equal(t, finals.finals[0].Breakdown, finals.finals[1].Breakdown)
}
