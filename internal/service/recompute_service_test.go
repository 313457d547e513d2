package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edugest/mini-pautas-api/internal/engine"
	"github.com/edugest/mini-pautas-api/internal/models"
	appErrors "github.com/edugest/mini-pautas-api/pkg/errors"
	"github.com/edugest/mini-pautas-api/pkg/jobs"
)

type mockRosterRepo struct {
	studentIDs        []string
	missingStudent    bool
	missingDiscipline bool
}

func (m *mockRosterRepo) FindStudent(ctx context.Context, id string) (*models.Student, error) {
	if m.missingStudent {
		return nil, sql.ErrNoRows
	}
	return &models.Student{ID: id, Active: true}, nil
}

func (m *mockRosterRepo) FindDiscipline(ctx context.Context, id string) (*models.Discipline, error) {
	if m.missingDiscipline {
		return nil, sql.ErrNoRows
	}
	return &models.Discipline{ID: id}, nil
}

func (m *mockRosterRepo) ActiveStudentIDs(ctx context.Context, classID string) ([]string, error) {
	return m.studentIDs, nil
}

type countingRecomputer struct {
	mu       sync.Mutex
	students []string
	err      error
}

func (m *countingRecomputer) OnGradeWritten(ctx context.Context, studentID, disciplineID, period string) (*engine.FinalResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students = append(m.students, studentID)
	if m.err != nil {
		return nil, m.err
	}
	return &engine.FinalResult{Value: 12, Classification: "Sufficient", Passed: true}, nil
}

func (m *countingRecomputer) seen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.students)
}

func TestRecomputeServiceRecomputeStudent(t *testing.T) {
	eng := &countingRecomputer{}
	svc := NewRecomputeService(&mockRosterRepo{}, eng, nil, jobs.QueueConfig{}, zap.NewNop())

	result, err := svc.RecomputeStudent(context.Background(), "stu-1", "disc-1", "T1")
	require.NoError(t, err)
	require.NotNil(t, result.Final)
	assert.Equal(t, 12.0, result.Final.Value)
}

func TestRecomputeServiceRecomputeStudentIncomplete(t *testing.T) {
	eng := &countingRecomputer{err: &engine.MissingComponentError{Codes: []string{"P2"}}}
	svc := NewRecomputeService(&mockRosterRepo{}, eng, nil, jobs.QueueConfig{}, zap.NewNop())

	result, err := svc.RecomputeStudent(context.Background(), "stu-1", "disc-1", "T1")
	require.NoError(t, err)
	assert.Nil(t, result.Final)
	assert.Equal(t, []string{"P2"}, result.MissingComponents)
}

func TestRecomputeServiceRecomputeClassFansOut(t *testing.T) {
	eng := &countingRecomputer{}
	roster := &mockRosterRepo{studentIDs: []string{"stu-1", "stu-2", "stu-3"}}
	svc := NewRecomputeService(roster, eng, nil, jobs.QueueConfig{Workers: 2}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	summary, err := svc.RecomputeClass(context.Background(), "class-1", "disc-1", "T1")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Enqueued)

	assert.Eventually(t, func() bool { return eng.seen() == 3 }, 2*time.Second, 10*time.Millisecond)
}

func TestRecomputeServiceRecomputeStudentUnknownStudent(t *testing.T) {
	eng := &countingRecomputer{}
	svc := NewRecomputeService(&mockRosterRepo{missingStudent: true}, eng, nil, jobs.QueueConfig{}, zap.NewNop())

	_, err := svc.RecomputeStudent(context.Background(), "stu-x", "disc-1", "T1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Zero(t, eng.seen())
}

func TestRecomputeServiceRecomputeClassUnknownDiscipline(t *testing.T) {
	svc := NewRecomputeService(&mockRosterRepo{missingDiscipline: true}, &countingRecomputer{}, nil, jobs.QueueConfig{}, zap.NewNop())

	_, err := svc.RecomputeClass(context.Background(), "class-1", "disc-x", "T1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestRecomputeServiceRecomputeClassValidation(t *testing.T) {
	svc := NewRecomputeService(&mockRosterRepo{}, &countingRecomputer{}, nil, jobs.QueueConfig{}, zap.NewNop())

	_, err := svc.RecomputeClass(context.Background(), "", "disc-1", "T1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
