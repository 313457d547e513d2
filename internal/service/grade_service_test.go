package service

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edugest/mini-pautas-api/internal/engine"
	"github.com/edugest/mini-pautas-api/internal/models"
	appErrors "github.com/edugest/mini-pautas-api/pkg/errors"
)

type mockGradeRepo struct {
	stored  map[string]*models.Grade
	deleted bool
	failDel bool
}

func (m *mockGradeRepo) List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, error) {
	return nil, nil
}

func (m *mockGradeRepo) Get(ctx context.Context, studentID, componentID, period string) (*models.Grade, error) {
	return nil, nil
}

func (m *mockGradeRepo) Upsert(ctx context.Context, grade *models.Grade) error {
	if m.stored == nil {
		m.stored = make(map[string]*models.Grade)
	}
	m.stored[grade.ComponentID] = grade
	return nil
}

func (m *mockGradeRepo) Delete(ctx context.Context, studentID, componentID, period string) error {
	if m.failDel {
		return errors.New("no rows")
	}
	m.deleted = true
	return nil
}

type mockRecomputer struct {
	result *engine.FinalResult
	err    error
	calls  int
}

func (m *mockRecomputer) OnGradeWritten(ctx context.Context, studentID, disciplineID, period string) (*engine.FinalResult, error) {
	m.calls++
	return m.result, m.err
}

func newGradeService(grades *mockGradeRepo, components *mockComponentRepo, eng *mockRecomputer) *GradeService {
	return NewGradeService(grades, components, eng, nil, nil, validator.New(), zap.NewNop())
}

func TestGradeServiceUpsertRunsRecompute(t *testing.T) {
	components := &mockComponentRepo{}
	seedComponent(components, "c1", "P1", false, "")
	grades := &mockGradeRepo{}
	eng := &mockRecomputer{result: &engine.FinalResult{Value: 14.0, Classification: "Good", Passed: true}}
	svc := newGradeService(grades, components, eng)

	result, err := svc.Upsert(context.Background(), UpsertGradeRequest{
		StudentID:   "stu-1",
		ComponentID: "c1",
		Period:      "T1",
		Value:       14,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Final)
	assert.Equal(t, 14.0, result.Final.Value)
	assert.Equal(t, 1, eng.calls)
	require.Contains(t, grades.stored, "c1")
	assert.False(t, grades.stored["c1"].IsCalculated)
	assert.Empty(t, result.Warning)
}

func TestGradeServiceUpsertRejectsCalculatedComponent(t *testing.T) {
	components := &mockComponentRepo{}
	seedComponent(components, "c1", "MT", true, "P1 + 1", "P1")
	svc := newGradeService(&mockGradeRepo{}, components, &mockRecomputer{})

	_, err := svc.Upsert(context.Background(), UpsertGradeRequest{
		StudentID:   "stu-1",
		ComponentID: "c1",
		Period:      "T1",
		Value:       10,
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestGradeServiceUpsertOutOfScaleWarnsButSaves(t *testing.T) {
	components := &mockComponentRepo{}
	seedComponent(components, "c1", "P1", false, "")
	grades := &mockGradeRepo{}
	eng := &mockRecomputer{result: &engine.FinalResult{Value: 20, Classification: "Excellent", Passed: true}}
	svc := newGradeService(grades, components, eng)

	result, err := svc.Upsert(context.Background(), UpsertGradeRequest{
		StudentID:   "stu-1",
		ComponentID: "c1",
		Period:      "T1",
		Value:       25,
	})
	require.NoError(t, err)
	assert.Contains(t, result.Warning, "25.00")
	require.Contains(t, grades.stored, "c1")
	assert.Equal(t, 25.0, grades.stored["c1"].Value)
}

func TestGradeServiceUpsertIncompleteIsNotAnError(t *testing.T) {
	components := &mockComponentRepo{}
	seedComponent(components, "c1", "P1", false, "")
	grades := &mockGradeRepo{}
	eng := &mockRecomputer{err: &engine.MissingComponentError{Codes: []string{"P2", "TRABALHO"}}}
	svc := newGradeService(grades, components, eng)

	result, err := svc.Upsert(context.Background(), UpsertGradeRequest{
		StudentID:   "stu-1",
		ComponentID: "c1",
		Period:      "T1",
		Value:       12,
	})
	require.NoError(t, err)
	assert.Nil(t, result.Final)
	assert.Equal(t, []string{"P2", "TRABALHO"}, result.MissingComponents)
	require.Contains(t, grades.stored, "c1")
}

func TestGradeServiceUpsertPeriodMismatch(t *testing.T) {
	components := &mockComponentRepo{}
	seedComponent(components, "c1", "P1", false, "")
	svc := newGradeService(&mockGradeRepo{}, components, &mockRecomputer{})

	_, err := svc.Upsert(context.Background(), UpsertGradeRequest{
		StudentID:   "stu-1",
		ComponentID: "c1",
		Period:      "T2",
		Value:       12,
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestGradeServiceDeleteRecomputes(t *testing.T) {
	components := &mockComponentRepo{}
	seedComponent(components, "c1", "P1", false, "")
	grades := &mockGradeRepo{}
	eng := &mockRecomputer{err: &engine.MissingComponentError{Codes: []string{"P1"}}}
	svc := newGradeService(grades, components, eng)

	result, err := svc.Delete(context.Background(), "stu-1", "c1", "T1")
	require.NoError(t, err)
	assert.True(t, grades.deleted)
	assert.Equal(t, []string{"P1"}, result.MissingComponents)
	assert.Equal(t, 1, eng.calls)
}
