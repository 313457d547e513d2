package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/edugest/mini-pautas-api/internal/models"
)

// ComponentCatalog reads the component definitions for a discipline+period.
// The orchestrator snapshots the catalog once per pass; the caller must not
// mutate component definitions while a pass runs.
type ComponentCatalog interface {
	ListComponents(ctx context.Context, disciplineID, period string) ([]models.GradeComponent, error)
}

// FormulaStore reads the discipline-level formula. A nil formula with nil
// error means the discipline uses the default weighted-sum scheme.
type FormulaStore interface {
	GetFormula(ctx context.Context, disciplineID, period string) (*models.DisciplineFormula, error)
}

// GradeStore reads and writes grade rows for one student.
type GradeStore interface {
	// MapByStudent returns code -> value for every grade (raw and
	// calculated) of the student within the discipline+period.
	MapByStudent(ctx context.Context, studentID, disciplineID, period string) (map[string]float64, error)
	UpsertCalculated(ctx context.Context, grade *models.Grade) error
	DeleteCalculated(ctx context.Context, studentID, componentID, period string) error
}

// FinalGradeStore persists final grades, one row per student+discipline+period.
type FinalGradeStore interface {
	UpsertFinal(ctx context.Context, final *models.FinalGrade) error
}

// FinalGradeEvent is handed to the notification collaborator after a final
// grade is updated. Delivery is entirely the collaborator's concern.
type FinalGradeEvent struct {
	StudentID      string  `json:"student_id"`
	DisciplineID   string  `json:"discipline_id"`
	Period         string  `json:"period"`
	Value          float64 `json:"value"`
	Classification string  `json:"classification"`
}

// Notifier receives finalGradeComputed events.
type Notifier interface {
	FinalGradeComputed(ctx context.Context, event FinalGradeEvent)
}

// Orchestrator drives the write -> cascade recompute contract: every raw
// grade write (or delete) funnels through OnGradeWritten, which recomputes
// affected calculated components in dependency order and then the final
// grade. The pass is synchronous, deterministic and idempotent, so the
// storage layer may re-trigger it on every write without drift.
type Orchestrator struct {
	catalog  ComponentCatalog
	formulas FormulaStore
	grades   GradeStore
	finals   FinalGradeStore
	notifier Notifier
	calc     *Calculator
	logger   *zap.Logger
	now      func() time.Time
}

// NewOrchestrator wires the engine's collaborators. notifier may be nil.
func NewOrchestrator(catalog ComponentCatalog, formulas FormulaStore, grades GradeStore, finals FinalGradeStore, notifier Notifier, calc *Calculator, logger *zap.Logger) *Orchestrator {
	if calc == nil {
		calc = NewCalculator(nil, 0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		catalog:  catalog,
		formulas: formulas,
		grades:   grades,
		finals:   finals,
		notifier: notifier,
		calc:     calc,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// OnGradeWritten recomputes everything downstream of a grade change for one
// (student, discipline, period) triple.
//
// Calculated components are re-derived from raw values on every pass, in
// topological order. A component with any missing dependency is not computed
// and its previously persisted value, if any, is removed - absence, never a
// zero fill. The final grade is then recomputed; a *MissingComponentError
// leaves the stored final grade untouched and is returned for the caller to
// report. On success the final grade is upserted and the notifier is told.
func (o *Orchestrator) OnGradeWritten(ctx context.Context, studentID, disciplineID, period string) (*FinalResult, error) {
	components, err := o.catalog.ListComponents(ctx, disciplineID, period)
	if err != nil {
		return nil, fmt.Errorf("load component catalog: %w", err)
	}
	order, err := ResolveOrder(components)
	if err != nil {
		return nil, err
	}

	values, err := o.grades.MapByStudent(ctx, studentID, disciplineID, period)
	if err != nil {
		return nil, fmt.Errorf("load grades: %w", err)
	}
	// stored calculated values are derived state; drop them so each pass
	// recomputes from raw inputs alone
	for _, comp := range order {
		delete(values, comp.Code)
	}

	for _, comp := range order {
		if !ComputableNow(comp, values) {
			if err := o.grades.DeleteCalculated(ctx, studentID, comp.ID, period); err != nil {
				return nil, fmt.Errorf("remove stale calculated grade %s: %w", comp.Code, err)
			}
			o.logger.Debug("calculated component skipped, dependency missing",
				zap.String("component", comp.Code),
				zap.String("student_id", studentID))
			continue
		}
		value, err := Evaluate(comp.FormulaExpression, values)
		if err != nil {
			return nil, err
		}
		values[comp.Code] = value
		grade := &models.Grade{
			StudentID:     studentID,
			ComponentID:   comp.ID,
			Period:        period,
			Value:         value,
			IsCalculated:  true,
			SourceFormula: comp.FormulaExpression,
		}
		if err := o.grades.UpsertCalculated(ctx, grade); err != nil {
			return nil, fmt.Errorf("persist calculated grade %s: %w", comp.Code, err)
		}
	}

	formula, err := o.formulas.GetFormula(ctx, disciplineID, period)
	if err != nil {
		return nil, fmt.Errorf("load discipline formula: %w", err)
	}

	result, err := o.calc.ComputeFinal(components, formula, values)
	if err != nil {
		// the stored final grade, if any, stays as-is; the caller decides
		// how to surface the failure
		return nil, err
	}

	breakdown, err := json.Marshal(result.Breakdown)
	if err != nil {
		return nil, fmt.Errorf("encode breakdown: %w", err)
	}
	final := &models.FinalGrade{
		StudentID:      studentID,
		DisciplineID:   disciplineID,
		Period:         period,
		Value:          result.Value,
		Classification: result.Classification,
		Passed:         result.Passed,
		Breakdown:      string(breakdown),
		ComputedAt:     o.now(),
	}
	if err := o.finals.UpsertFinal(ctx, final); err != nil {
		return nil, fmt.Errorf("persist final grade: %w", err)
	}

	if o.notifier != nil {
		o.notifier.FinalGradeComputed(ctx, FinalGradeEvent{
			StudentID:      studentID,
			DisciplineID:   disciplineID,
			Period:         period,
			Value:          result.Value,
			Classification: result.Classification,
		})
	}

	o.logger.Info("final grade recomputed",
		zap.String("student_id", studentID),
		zap.String("discipline_id", disciplineID),
		zap.String("period", period),
		zap.Float64("value", result.Value),
		zap.String("classification", result.Classification))

	return result, nil
}
