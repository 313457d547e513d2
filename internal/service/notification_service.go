package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/edugest/mini-pautas-api/internal/engine"
)

// EventPublisher abstracts the pub/sub transport for grade events.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, payload interface{}) error
}

// NotificationService forwards final-grade events to interested consumers
// (notification workers, audit log). Delivery is best effort: a failed
// publish is logged and dropped, the grade write has already committed.
type NotificationService struct {
	publisher EventPublisher
	channel   string
	logger    *zap.Logger
}

// NewNotificationService constructs a notification service.
func NewNotificationService(publisher EventPublisher, channel string, logger *zap.Logger) *NotificationService {
	if channel == "" {
		channel = "grades.final_computed"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{publisher: publisher, channel: channel, logger: logger}
}

// FinalGradeComputed publishes one event per recomputed final grade.
func (s *NotificationService) FinalGradeComputed(ctx context.Context, event engine.FinalGradeEvent) {
	if s == nil || s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, s.channel, event); err != nil {
		s.logger.Warn("final grade event publish failed",
			zap.String("student_id", event.StudentID),
			zap.String("discipline_id", event.DisciplineID),
			zap.Error(err))
		return
	}
	s.logger.Debug("final grade event published",
		zap.String("student_id", event.StudentID),
		zap.String("discipline_id", event.DisciplineID),
		zap.String("period", event.Period),
		zap.Float64("value", event.Value))
}
