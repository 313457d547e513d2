package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/edugest/mini-pautas-api/internal/models"
	appErrors "github.com/edugest/mini-pautas-api/pkg/errors"
	"github.com/edugest/mini-pautas-api/pkg/export"
)

type finalsRepo interface {
	Get(ctx context.Context, studentID, disciplineID, period string) (*models.FinalGrade, error)
	PautaRows(ctx context.Context, classID, disciplineID, period string) ([]models.PautaRow, error)
	ReportCardSubjects(ctx context.Context, studentID, period string) ([]models.ReportCardSubject, error)
}

type sheetCSVRenderer interface {
	Render(sheet export.Sheet) ([]byte, error)
}

type sheetPDFRenderer interface {
	Render(sheet export.Sheet, generatedAt time.Time) ([]byte, error)
}

// ExportedPauta is a rendered grade sheet plus the HTTP metadata to serve it.
type ExportedPauta struct {
	Payload     []byte
	ContentType string
	Filename    string
}

// ReportService serves pautas (class grade sheets) and student report cards.
// Reads are cached; the grade service invalidates on every final-grade write.
type ReportService struct {
	finals   finalsRepo
	cache    *CacheService
	csv      sheetCSVRenderer
	pdf      sheetPDFRenderer
	cacheTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewReportService constructs a report service. cache may be nil.
func NewReportService(finals finalsRepo, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		finals:   finals,
		cache:    cache,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		cacheTTL: cacheTTL,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// GetFinal returns the stored final grade for (student, discipline, period).
func (s *ReportService) GetFinal(ctx context.Context, studentID, disciplineID, period string) (*models.FinalGrade, error) {
	final, err := s.finals.Get(ctx, studentID, disciplineID, period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load final grade")
	}
	if final == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no final grade computed yet")
	}
	return final, nil
}

// ClassPauta assembles the grade sheet of one class for a discipline+period.
// Students without a computed final grade appear with empty cells.
func (s *ReportService) ClassPauta(ctx context.Context, classID, disciplineID, period string) (*models.ClassPauta, error) {
	if classID == "" || disciplineID == "" || period == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class_id, discipline_id and period are required")
	}

	key := fmt.Sprintf("pauta:%s:%s:%s", classID, disciplineID, period)
	if s.cache != nil {
		var cached models.ClassPauta
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			return &cached, nil
		}
	}

	rows, err := s.finals.PautaRows(ctx, classID, disciplineID, period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pauta")
	}
	pauta := &models.ClassPauta{
		ClassID:      classID,
		DisciplineID: disciplineID,
		Period:       period,
		Rows:         rows,
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, pauta, s.cacheTTL)
	}
	return pauta, nil
}

// StudentReportCard assembles per-discipline final grades for one student.
func (s *ReportService) StudentReportCard(ctx context.Context, studentID, period string) (*models.StudentReportCard, error) {
	if studentID == "" || period == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student_id and period are required")
	}

	key := fmt.Sprintf("reportcard:%s:%s", studentID, period)
	if s.cache != nil {
		var cached models.StudentReportCard
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			return &cached, nil
		}
	}

	subjects, err := s.finals.ReportCardSubjects(ctx, studentID, period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report card")
	}
	card := &models.StudentReportCard{StudentID: studentID, Period: period, Subjects: subjects}

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, card, s.cacheTTL)
	}
	return card, nil
}

// ExportPauta renders the class grade sheet as CSV or PDF.
func (s *ReportService) ExportPauta(ctx context.Context, classID, disciplineID, period, format string) (*ExportedPauta, error) {
	pauta, err := s.ClassPauta(ctx, classID, disciplineID, period)
	if err != nil {
		return nil, err
	}
	sheet := pautaSheet(pauta)

	switch format {
	case "csv":
		payload, err := s.csv.Render(sheet)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportedPauta{
			Payload:     payload,
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("pauta_%s_%s_%s.csv", classID, disciplineID, period),
		}, nil
	case "pdf":
		payload, err := s.pdf.Render(sheet, s.now())
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportedPauta{
			Payload:     payload,
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("pauta_%s_%s_%s.pdf", classID, disciplineID, period),
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func pautaSheet(pauta *models.ClassPauta) export.Sheet {
	sheet := export.Sheet{
		Title:   fmt.Sprintf("Pauta %s / %s", pauta.DisciplineID, pauta.Period),
		Headers: []string{"Student", "Number", "Final", "Classification", "Passed"},
	}
	for _, row := range pauta.Rows {
		value, classification, passed := "", "", ""
		if row.Value != nil {
			value = strconv.FormatFloat(*row.Value, 'f', 2, 64)
		}
		if row.Classification != nil {
			classification = *row.Classification
		}
		if row.Passed != nil {
			if *row.Passed {
				passed = "yes"
			} else {
				passed = "no"
			}
		}
		sheet.Rows = append(sheet.Rows, []string{row.StudentName, row.StudentNumber, value, classification, passed})
	}
	return sheet
}
