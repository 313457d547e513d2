package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edugest/mini-pautas-api/internal/models"
)

func TestFormulaRepositoryGetFormula(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFormulaRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "discipline_id", "period", "expression", "components_used", "validated", "validation_message", "created_at", "updated_at"}).
		AddRow("f-1", "disc-1", "T1", "0.30*P1 + 0.70*P2", "{P1,P2}", true, "", now, now)
	mock.ExpectQuery("SELECT (.+) FROM discipline_formulas WHERE discipline_id = \\$1 AND period = \\$2").
		WithArgs("disc-1", "T1").
		WillReturnRows(rows)

	formula, err := repo.GetFormula(context.Background(), "disc-1", "T1")
	require.NoError(t, err)
	require.NotNil(t, formula)
	assert.True(t, formula.Validated)
	assert.Equal(t, []string{"P1", "P2"}, []string(formula.ComponentsUsed))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFormulaRepositoryGetFormulaAbsent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFormulaRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM discipline_formulas").
		WithArgs("disc-1", "T1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	formula, err := repo.GetFormula(context.Background(), "disc-1", "T1")
	require.NoError(t, err)
	assert.Nil(t, formula)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFormulaRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFormulaRepository(db)

	mock.ExpectExec("INSERT INTO discipline_formulas").
		WillReturnResult(sqlmock.NewResult(0, 1))

	formula := &models.DisciplineFormula{
		DisciplineID:   "disc-1",
		Period:         "T1",
		Expression:     "0.5*P1 + 0.5*P2",
		ComponentsUsed: []string{"P1", "P2"},
		Validated:      true,
	}
	require.NoError(t, repo.Upsert(context.Background(), formula))
	assert.NotEmpty(t, formula.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
