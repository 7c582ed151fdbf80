package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shenikar/campus_safety_system/internal/models"
	"github.com/shenikar/campus_safety_system/internal/service"
)

type VoteRepository struct {
	db *pgxpool.Pool
}

func NewVoteRepository(db *pgxpool.Pool) service.VoteRepository {
	return &VoteRepository{db: db}
}

// Cast выполняет голосование одной транзакцией: строка голоса и счетчики
// инцидента меняются атомарно, частичное состояние снаружи не видно.
// Статус инцидента перепроверяется под блокировкой его строки, чтобы
// резолюция, закоммиченная после проверки на уровне сервиса, не пропустила
// голос по уже закрытому инциденту.
// Гонка двух параллельных первых голосов одной пары (incident, user)
// разрешается уникальным ограничением схемы: проигравший получает ErrDuplicateVote.
func (r *VoteRepository) Cast(ctx context.Context, incidentID, userID uuid.UUID, isTruthful bool) (*models.Vote, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin vote transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status models.IncidentStatus
	err = tx.QueryRow(ctx, `
		SELECT status FROM incidents
		WHERE id = $1
		FOR UPDATE;
	`, incidentID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("incident %s not found for vote: %w", incidentID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock incident for vote: %w", err)
	}
	if status == models.StatusResolved {
		return nil, fmt.Errorf("incident %s resolved before vote committed: %w", incidentID, models.ErrInvalidState)
	}

	vote := &models.Vote{IncidentID: incidentID, UserID: userID, IsTruthful: isTruthful}

	var existingID uuid.UUID
	var existingValue bool
	err = tx.QueryRow(ctx, `
		SELECT id, is_truthful FROM votes
		WHERE incident_id = $1 AND user_id = $2
		FOR UPDATE;
	`, incidentID, userID).Scan(&existingID, &existingValue)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// Первый голос пользователя по инциденту
		if err := r.insertVote(ctx, tx, vote); err != nil {
			return nil, err
		}

	case err != nil:
		return nil, fmt.Errorf("failed to look up existing vote: %w", err)

	case existingValue == isTruthful:
		// Повторный голос в том же направлении, без мутаций
		return nil, fmt.Errorf("user %s already voted this way on incident %s: %w",
			userID, incidentID, models.ErrDuplicateVote)

	default:
		// Смена голоса: условное обновление строки и корректировка обоих
		// счетчиков одним оператором каждая
		if err := r.flipVote(ctx, tx, vote, existingID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit vote transaction: %w", err)
	}
	return vote, nil
}

func (r *VoteRepository) insertVote(ctx context.Context, tx pgx.Tx, vote *models.Vote) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO votes (incident_id, user_id, is_truthful)
		VALUES ($1, $2, $3) RETURNING id, created_at;
	`, vote.IncidentID, vote.UserID, vote.IsTruthful).Scan(&vote.ID, &vote.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			// Проигравший гонки параллельных первых голосов
			return fmt.Errorf("concurrent vote on incident %s: %w", vote.IncidentID, models.ErrDuplicateVote)
		}
		return fmt.Errorf("failed to insert vote: %w", err)
	}

	cmdTag, err := tx.Exec(ctx, `
		UPDATE incidents SET
			confirm_count = confirm_count + CASE WHEN $2 THEN 1 ELSE 0 END,
			reject_count  = reject_count  + CASE WHEN $2 THEN 0 ELSE 1 END
		WHERE id = $1;
	`, vote.IncidentID, vote.IsTruthful)
	if err != nil {
		return fmt.Errorf("failed to increment vote counter: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("incident %s disappeared during vote: %w", vote.IncidentID, models.ErrNotFound)
	}
	return nil
}

func (r *VoteRepository) flipVote(ctx context.Context, tx pgx.Tx, vote *models.Vote, voteID uuid.UUID) error {
	err := tx.QueryRow(ctx, `
		UPDATE votes SET is_truthful = $2
		WHERE id = $1 AND is_truthful <> $2
		RETURNING created_at;
	`, voteID, vote.IsTruthful).Scan(&vote.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("vote already flipped: %w", models.ErrDuplicateVote)
		}
		return fmt.Errorf("failed to flip vote: %w", err)
	}
	vote.ID = voteID

	// Один оператор переносит единицу между счетчиками
	cmdTag, err := tx.Exec(ctx, `
		UPDATE incidents SET
			confirm_count = confirm_count + CASE WHEN $2 THEN 1 ELSE -1 END,
			reject_count  = reject_count  + CASE WHEN $2 THEN -1 ELSE 1 END
		WHERE id = $1;
	`, vote.IncidentID, vote.IsTruthful)
	if err != nil {
		return fmt.Errorf("failed to adjust vote counters: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("incident %s disappeared during vote flip: %w", vote.IncidentID, models.ErrNotFound)
	}
	return nil
}
