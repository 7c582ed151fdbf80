package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/campus_safety_system/internal/broadcast"
	"github.com/shenikar/campus_safety_system/internal/models"
	"github.com/shenikar/campus_safety_system/internal/webhook"
	"github.com/sirupsen/logrus"
)

// SOSRepository определяет контракт для работы с журналом сигналов SOS
type SOSRepository interface {
	Create(ctx context.Context, log *models.SOSLog) error
	ListAll(ctx context.Context, limit int) ([]*models.SOSLog, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.SOSLog, error)
}

// Broadcaster определяет контракт рассылки событий подключенным сессиям
type Broadcaster interface {
	Publish(channel string, evt broadcast.Event) int
}

// SOSService определяет контракт для приема и рассылки сигналов SOS
type SOSService interface {
	Submit(ctx context.Context, userID uuid.UUID, lat, lng float64) (*models.SOSLog, error)
	History(ctx context.Context, actor *models.User, limit int) ([]*models.SOSLog, error)
}

// emergencyAlert - полезная нагрузка события emergency_alert
type emergencyAlert struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	UserID    string  `json:"user_id"`
	Timestamp string  `json:"timestamp"`
}

type sosService struct {
	repo        SOSRepository
	broadcaster Broadcaster
	alerts      webhook.AlertPublisher
	logger      *logrus.Logger
}

func NewSOSService(repo SOSRepository, broadcaster Broadcaster, alerts webhook.AlertPublisher, logger *logrus.Logger) SOSService {
	return &sosService{
		repo:        repo,
		broadcaster: broadcaster,
		alerts:      alerts,
		logger:      logger,
	}
}

// Submit сохраняет сигнал SOS и рассылает emergency_alert всем сессиям
// канала кампуса. Подтверждение отправителю возможно только после записи
// в бд; сама рассылка - best-effort и ошибок наружу не возвращает.
func (s *sosService) Submit(ctx context.Context, userID uuid.UUID, lat, lng float64) (*models.SOSLog, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "sos",
		"method":  "Submit",
		"user_id": userID,
	})
	log.Info("Received SOS signal")

	sosLog := &models.SOSLog{
		UserID:    userID,
		Latitude:  lat,
		Longitude: lng,
	}
	if err := s.repo.Create(ctx, sosLog); err != nil {
		log.WithError(err).Error("Failed to persist SOS log")
		return nil, fmt.Errorf("service: could not save sos signal: %w", err)
	}

	alert := emergencyAlert{
		Latitude:  sosLog.Latitude,
		Longitude: sosLog.Longitude,
		UserID:    sosLog.UserID.String(),
		Timestamp: sosLog.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	delivered := s.broadcaster.Publish(models.ChannelCampusBroadcast, broadcast.NewEvent("emergency_alert", alert))
	log.WithField("delivered", delivered).Info("SOS signal broadcasted")

	event := webhook.AlertEvent{
		SOSLogID:  sosLog.ID,
		UserID:    sosLog.UserID,
		Latitude:  sosLog.Latitude,
		Longitude: sosLog.Longitude,
		Timestamp: sosLog.CreatedAt,
	}
	if err := s.alerts.Publish(ctx, event); err != nil {
		log.WithError(err).Error("Failed to enqueue alert webhook")
	}

	return sosLog, nil
}

// History возвращает последние сигналы SOS: администратору - все,
// остальным - только собственные
func (s *sosService) History(ctx context.Context, actor *models.User, limit int) ([]*models.SOSLog, error) {
	// Не заданный лимит получает значение по умолчанию, превышение
	// потолка режется до него
	if limit < 1 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}

	log := s.logger.WithFields(logrus.Fields{
		"service": "sos",
		"method":  "History",
		"actor":   actor.ID,
		"limit":   limit,
	})

	var logs []*models.SOSLog
	var err error
	if actor.Role.IsAdmin() {
		logs, err = s.repo.ListAll(ctx, limit)
	} else {
		logs, err = s.repo.ListByUser(ctx, actor.ID, limit)
	}
	if err != nil {
		log.WithError(err).Error("Failed to list SOS history")
		return nil, fmt.Errorf("service: could not list sos history: %w", err)
	}

	log.WithField("count", len(logs)).Info("SOS history listed")
	return logs, nil
}
