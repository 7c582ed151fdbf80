package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shenikar/campus_safety_system/internal/geo"
	"github.com/shenikar/campus_safety_system/internal/lifecycle"
	"github.com/shenikar/campus_safety_system/internal/models"
	"github.com/sirupsen/logrus"
)

// IncidentRepository определяет контракт для работы с бд инцидентов
type IncidentRepository interface {
	Create(ctx context.Context, incident *models.Incident) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	FindNear(ctx context.Context, lat, lng, radiusMeters float64) ([]*models.Incident, error)
	FindInBoundingBox(ctx context.Context, box geo.BoundingBox) ([]*models.Incident, error)
	ListAll(ctx context.Context, status models.IncidentStatus) ([]*models.Incident, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.IncidentStatus) (*models.Incident, error)
	GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	SetIncidentCache(ctx context.Context, incident *models.Incident) error
	InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error
}

// IncidentService определяет контракт для бизнес-логики жизненного цикла инцидентов
type IncidentService interface {
	Report(ctx context.Context, authorID uuid.UUID, category models.IncidentCategory, description string, lat, lng float64) (*models.Incident, error)
	GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	FindNearby(ctx context.Context, lat, lng, radiusMeters float64) ([]*models.Incident, error)
	Approve(ctx context.Context, id uuid.UUID, actor *models.User) (*models.Incident, error)
	Reject(ctx context.Context, id uuid.UUID, actor *models.User) (*models.Incident, error)
	Resolve(ctx context.Context, id uuid.UUID, actor *models.User) (*models.Incident, error)
	ListAll(ctx context.Context, actor *models.User, status models.IncidentStatus) ([]*models.Incident, error)
}

type incidentService struct {
	repo   IncidentRepository
	logger *logrus.Logger
}

func NewIncidentService(repo IncidentRepository, logger *logrus.Logger) IncidentService {
	return &incidentService{
		repo:   repo,
		logger: logger,
	}
}

// Report создает инцидент от имени автора, всегда в статусе pending
func (s *incidentService) Report(ctx context.Context, authorID uuid.UUID, category models.IncidentCategory, description string, lat, lng float64) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "incident",
		"method":   "Report",
		"author":   authorID,
		"category": category,
	})
	log.Info("Attempting to report a new incident")

	incident := &models.Incident{
		UserID:      authorID,
		Category:    category,
		Description: description,
		Latitude:    lat,
		Longitude:   lng,
	}
	if err := s.repo.Create(ctx, incident); err != nil {
		log.WithError(err).Error("Failed to create incident in repository")
		return nil, fmt.Errorf("service: could not create incident: %w", err)
	}

	log.WithField("incident_id", incident.ID).Info("Incident reported successfully")
	return incident, nil
}

// GetIncident получает инцидент по ID, сначала из кеша, затем из бд
func (s *incidentService) GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "GetIncident",
		"incident_id": id,
	})

	cached, err := s.repo.GetIncidentFromCache(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to read incident cache")
	}
	if cached != nil {
		return cached, nil
	}

	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to get incident from repository")
		return nil, fmt.Errorf("service: could not get incident: %w", err)
	}

	if err := s.repo.SetIncidentCache(ctx, incident); err != nil {
		log.WithError(err).Warn("Failed to cache incident")
	}
	return incident, nil
}

// FindNearby возвращает видимые инциденты в радиусе radiusMeters от точки
func (s *incidentService) FindNearby(ctx context.Context, lat, lng, radiusMeters float64) ([]*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "FindNearby",
		"radius":  radiusMeters,
	})

	incidents, err := s.repo.FindNear(ctx, lat, lng, radiusMeters)
	if err != nil {
		log.WithError(err).Error("Failed to find incidents near point")
		return nil, fmt.Errorf("service: could not find nearby incidents: %w", err)
	}

	log.WithField("count", len(incidents)).Info("Nearby incidents found")
	return incidents, nil
}

// Approve переводит инцидент pending -> active, только для администратора
func (s *incidentService) Approve(ctx context.Context, id uuid.UUID, actor *models.User) (*models.Incident, error) {
	return s.transition(ctx, id, lifecycle.ActionApprove, actor)
}

// Reject переводит инцидент pending -> rejected, только для администратора
func (s *incidentService) Reject(ctx context.Context, id uuid.UUID, actor *models.User) (*models.Incident, error) {
	return s.transition(ctx, id, lifecycle.ActionReject, actor)
}

// Resolve переводит инцидент active/rejected -> resolved, доступно автору или администратору
func (s *incidentService) Resolve(ctx context.Context, id uuid.UUID, actor *models.User) (*models.Incident, error) {
	return s.transition(ctx, id, lifecycle.ActionResolve, actor)
}

// transition выполняет переход статуса с фиксированным порядком проверок:
// существование, затем статус, затем права действующего пользователя
func (s *incidentService) transition(ctx context.Context, id uuid.UUID, action lifecycle.Action, actor *models.User) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "transition",
		"incident_id": id,
		"action":      action,
		"actor":       actor.ID,
	})
	log.Info("Attempting incident status transition")

	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Incident not found for transition")
		return nil, fmt.Errorf("service: %w", err)
	}

	if err := lifecycle.CheckTransition(incident.Status, action); err != nil {
		log.WithField("status", incident.Status).Warn("Illegal status transition")
		return nil, fmt.Errorf("service: %w", err)
	}

	if err := lifecycle.CheckActor(action, incident, actor); err != nil {
		log.Warn("Actor is not authorized for transition")
		return nil, fmt.Errorf("service: %w", err)
	}

	updated, err := s.repo.UpdateStatus(ctx, id, incident.Status, lifecycle.TargetStatus(action))
	if err != nil {
		log.WithError(err).Error("Failed to persist status transition")
		return nil, fmt.Errorf("service: could not update incident status: %w", err)
	}

	if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	log.WithField("status", updated.Status).Info("Incident status transition completed")
	return updated, nil
}

// ListAll возвращает все инциденты для администратора, опционально по статусу
func (s *incidentService) ListAll(ctx context.Context, actor *models.User, status models.IncidentStatus) ([]*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "ListAll",
		"actor":   actor.ID,
		"status":  status,
	})

	if !actor.Role.IsAdmin() {
		log.Warn("Non-admin attempted to list all incidents")
		return nil, fmt.Errorf("service: listing all incidents requires admin role: %w", models.ErrForbidden)
	}

	incidents, err := s.repo.ListAll(ctx, status)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from repository")
		return nil, fmt.Errorf("service: could not list incidents: %w", err)
	}

	log.WithField("count", len(incidents)).Info("Incidents listed successfully")
	return incidents, nil
}
