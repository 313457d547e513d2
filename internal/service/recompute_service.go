package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edugest/mini-pautas-api/internal/engine"
	"github.com/edugest/mini-pautas-api/internal/models"
	appErrors "github.com/edugest/mini-pautas-api/pkg/errors"
	"github.com/edugest/mini-pautas-api/pkg/jobs"
)

type rosterRepo interface {
	FindStudent(ctx context.Context, id string) (*models.Student, error)
	FindDiscipline(ctx context.Context, id string) (*models.Discipline, error)
	ActiveStudentIDs(ctx context.Context, classID string) ([]string, error)
}

// recomputeJob is the payload fanned out per student during a batch run.
type recomputeJob struct {
	StudentID    string
	DisciplineID string
	Period       string
}

// RecomputeSummary reports how many students a batch run covered.
type RecomputeSummary struct {
	ClassID      string `json:"class_id"`
	DisciplineID string `json:"discipline_id"`
	Period       string `json:"period"`
	Enqueued     int    `json:"enqueued"`
}

// StudentRecomputeResult is the synchronous single-student outcome.
type StudentRecomputeResult struct {
	Final             *engine.FinalResult `json:"final,omitempty"`
	MissingComponents []string            `json:"missing_components,omitempty"`
}

// RecomputeService fans final-grade recalculation out over a class. Used
// after component or formula changes, when every stored final grade of the
// scope is stale at once. Per-student failures are logged and skipped so one
// bad record never stalls the batch.
type RecomputeService struct {
	roster  rosterRepo
	engine  recomputer
	metrics *MetricsService
	queue   *jobs.Queue
	logger  *zap.Logger
}

// NewRecomputeService constructs the service and its worker queue.
func NewRecomputeService(roster rosterRepo, eng recomputer, metrics *MetricsService, cfg jobs.QueueConfig, logger *zap.Logger) *RecomputeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &RecomputeService{roster: roster, engine: eng, metrics: metrics, logger: logger}
	cfg.Logger = logger
	s.queue = jobs.NewQueue("recompute", s.handle, cfg)
	return s
}

// Start launches the queue workers.
func (s *RecomputeService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the queue workers.
func (s *RecomputeService) Stop() {
	s.queue.Stop()
}

// RecomputeStudent runs one synchronous pass for a single student.
func (s *RecomputeService) RecomputeStudent(ctx context.Context, studentID, disciplineID, period string) (*StudentRecomputeResult, error) {
	if studentID == "" || disciplineID == "" || period == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student_id, discipline_id and period are required")
	}
	if _, err := s.roster.FindStudent(ctx, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if _, err := s.roster.FindDiscipline(ctx, disciplineID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "discipline not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load discipline")
	}
	start := time.Now()
	final, err := s.engine.OnGradeWritten(ctx, studentID, disciplineID, period)
	duration := time.Since(start)
	if err != nil {
		var missing *engine.MissingComponentError
		if errors.As(err, &missing) {
			if s.metrics != nil {
				s.metrics.RecordRecompute("incomplete", duration)
			}
			return &StudentRecomputeResult{MissingComponents: missing.Codes}, nil
		}
		if s.metrics != nil {
			s.metrics.RecordRecompute("error", duration)
		}
		return nil, wrapEngineError(err)
	}
	if s.metrics != nil {
		s.metrics.RecordRecompute("computed", duration)
	}
	return &StudentRecomputeResult{Final: final}, nil
}

// RecomputeClass enqueues one job per actively enrolled student of the class.
func (s *RecomputeService) RecomputeClass(ctx context.Context, classID, disciplineID, period string) (*RecomputeSummary, error) {
	if classID == "" || disciplineID == "" || period == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class_id, discipline_id and period are required")
	}
	if _, err := s.roster.FindDiscipline(ctx, disciplineID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "discipline not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load discipline")
	}

	studentIDs, err := s.roster.ActiveStudentIDs(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}

	enqueued := 0
	for _, studentID := range studentIDs {
		job := jobs.Job{
			ID:   uuid.NewString(),
			Type: "recompute_student",
			Payload: recomputeJob{
				StudentID:    studentID,
				DisciplineID: disciplineID,
				Period:       period,
			},
		}
		if err := s.queue.Enqueue(job); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue recompute job")
		}
		enqueued++
	}

	s.logger.Info("class recompute enqueued",
		zap.String("class_id", classID),
		zap.String("discipline_id", disciplineID),
		zap.String("period", period),
		zap.Int("students", enqueued))

	return &RecomputeSummary{ClassID: classID, DisciplineID: disciplineID, Period: period, Enqueued: enqueued}, nil
}

// handle processes one queued student. An incomplete grade set is a normal
// outcome, not a retryable failure.
func (s *RecomputeService) handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(recomputeJob)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}

	start := time.Now()
	_, err := s.engine.OnGradeWritten(ctx, payload.StudentID, payload.DisciplineID, payload.Period)
	duration := time.Since(start)
	if err != nil {
		var missing *engine.MissingComponentError
		if errors.As(err, &missing) {
			if s.metrics != nil {
				s.metrics.RecordRecompute("incomplete", duration)
			}
			s.logger.Debug("student recompute incomplete",
				zap.String("student_id", payload.StudentID),
				zap.Strings("missing", missing.Codes))
			return nil
		}
		if s.metrics != nil {
			s.metrics.RecordRecompute("error", duration)
		}
		return fmt.Errorf("recompute student %s: %w", payload.StudentID, err)
	}
	if s.metrics != nil {
		s.metrics.RecordRecompute("computed", duration)
	}
	return nil
}
