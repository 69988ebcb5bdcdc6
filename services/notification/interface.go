package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	notificationRepo "gymbuddy/database/repository/notification"
	"gymbuddy/models"
	"gymbuddy/utils"
)

// Sink delivers an event over one concrete channel (push, chat, mail).
// Delivery channels are added by registering sinks; the negotiation core
// never sees them.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, event models.MatchEvent) error
}

// NotificationService is the port the negotiation core emits lifecycle
// events through.
type NotificationService interface {
	Emit(ctx context.Context, event models.MatchEvent) error
}

// DefaultNotificationService persists each event as a notification record
// and fans it out to every registered sink. A failing sink does not stop
// the others; the first failure is reported to the caller.
type DefaultNotificationService struct {
	Repo  notificationRepo.NotificationRepository
	Sinks []Sink
}

// NewDefaultNotificationService wires the service with its record store and
// delivery sinks.
func NewDefaultNotificationService(repo notificationRepo.NotificationRepository, sinks ...Sink) (*DefaultNotificationService, error) {
	if repo == nil {
		return nil, fmt.Errorf("notification service initialization error: repository is nil")
	}
	return &DefaultNotificationService{Repo: repo, Sinks: sinks}, nil
}

func (s *DefaultNotificationService) Emit(ctx context.Context, event models.MatchEvent) error {
	logger := utils.GetLogger()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	rec := models.NotificationRecord{
		ID:        uuid.New().String(),
		UserID:    event.RecipientID,
		Event:     event,
		CreatedAt: event.CreatedAt,
	}
	var firstErr error
	if err := s.Repo.Create(ctx, &rec); err != nil {
		logger.Error("failed to persist notification record",
			zap.String("type", string(event.Type)),
			zap.String("recipientId", event.RecipientID),
			zap.Error(err))
		firstErr = err
	}

	for _, sink := range s.Sinks {
		if err := sink.Deliver(ctx, event); err != nil {
			logger.Warn("notification sink delivery failed",
				zap.String("sink", sink.Name()),
				zap.String("type", string(event.Type)),
				zap.String("recipientId", event.RecipientID),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
