package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shenikar/campus_safety_system/internal/models"
	"github.com/sirupsen/logrus"
)

// VoteRepository определяет контракт для работы с бд голосов
type VoteRepository interface {
	Cast(ctx context.Context, incidentID, userID uuid.UUID, isTruthful bool) (*models.Vote, error)
}

// VoteService определяет контракт для голосования за правдивость инцидентов
type VoteService interface {
	Cast(ctx context.Context, incidentID, voterID uuid.UUID, isTruthful bool) (*models.Vote, error)
}

type voteService struct {
	votes     VoteRepository
	incidents IncidentRepository
	logger    *logrus.Logger
}

func NewVoteService(votes VoteRepository, incidents IncidentRepository, logger *logrus.Logger) VoteService {
	return &voteService{
		votes:     votes,
		incidents: incidents,
		logger:    logger,
	}
}

// Cast регистрирует голос пользователя за или против правдивости инцидента.
// Порядок проверок: существование инцидента, затем его статус.
// Первый голос создает строку, смена мнения меняет ту же строку,
// повторный голос в том же направлении отклоняется без мутаций.
func (s *voteService) Cast(ctx context.Context, incidentID, voterID uuid.UUID, isTruthful bool) (*models.Vote, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "vote",
		"method":      "Cast",
		"incident_id": incidentID,
		"voter_id":    voterID,
		"is_truthful": isTruthful,
	})
	log.Info("Attempting to cast a vote")

	incident, err := s.incidents.GetByID(ctx, incidentID)
	if err != nil {
		log.WithError(err).Warn("Incident not found for vote")
		return nil, fmt.Errorf("service: %w", err)
	}

	if incident.Status == models.StatusResolved {
		log.Warn("Attempted to vote on resolved incident")
		return nil, fmt.Errorf("service: cannot vote on resolved incident: %w", models.ErrInvalidState)
	}

	vote, err := s.votes.Cast(ctx, incidentID, voterID, isTruthful)
	if err != nil {
		log.WithError(err).Warn("Failed to cast vote")
		return nil, fmt.Errorf("service: could not cast vote: %w", err)
	}

	// Счетчики инцидента изменились
	if err := s.incidents.InvalidateIncidentCache(ctx, incidentID); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	log.WithField("vote_id", vote.ID).Info("Vote cast successfully")
	return vote, nil
}
