package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edugest/mini-pautas-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestGradeRepositoryMapByStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	rows := sqlmock.NewRows([]string{"component_code", "value"}).
		AddRow("P1", 14.0).
		AddRow("TRABALHO", 18.0)
	mock.ExpectQuery("SELECT gc.code AS component_code, g.value").
		WithArgs("stu-1", "disc-1", "T1").
		WillReturnRows(rows)

	values, err := repo.MapByStudent(context.Background(), "stu-1", "disc-1", "T1")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"P1": 14.0, "TRABALHO": 18.0}, values)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryUpsertAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectExec("INSERT INTO grades").
		WillReturnResult(sqlmock.NewResult(0, 1))

	grade := &models.Grade{
		StudentID:   "stu-1",
		ComponentID: "comp-1",
		Period:      "T1",
		Value:       15.5,
	}
	require.NoError(t, repo.Upsert(context.Background(), grade))
	assert.NotEmpty(t, grade.ID)
	assert.False(t, grade.EnteredAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryUpsertCalculatedMarksRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectExec("INSERT INTO grades").
		WillReturnResult(sqlmock.NewResult(0, 1))

	grade := &models.Grade{StudentID: "stu-1", ComponentID: "comp-1", Period: "T1", Value: 12}
	require.NoError(t, repo.UpsertCalculated(context.Background(), grade))
	assert.True(t, grade.IsCalculated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryDeleteCalculated(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM grades WHERE student_id = $1 AND component_id = $2 AND period = $3 AND is_calculated = true")).
		WithArgs("stu-1", "comp-1", "T1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.DeleteCalculated(context.Background(), "stu-1", "comp-1", "T1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryDeleteMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM grades WHERE student_id = $1 AND component_id = $2 AND period = $3 AND is_calculated = false")).
		WithArgs("stu-1", "comp-1", "T1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "stu-1", "comp-1", "T1")
	assert.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
