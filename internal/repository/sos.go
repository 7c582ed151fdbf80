package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shenikar/campus_safety_system/internal/models"
	"github.com/shenikar/campus_safety_system/internal/service"
)

type SOSRepository struct {
	db *pgxpool.Pool
}

func NewSOSRepository(db *pgxpool.Pool) service.SOSRepository {
	return &SOSRepository{db: db}
}

// Create сохраняет запись о сигнале SOS в бд
func (r *SOSRepository) Create(ctx context.Context, log *models.SOSLog) error {
	query := `
		INSERT INTO sos_logs (user_id, lat, lng)
		VALUES ($1, $2, $3) RETURNING id, created_at;
	`
	err := r.db.QueryRow(ctx, query,
		log.UserID,
		log.Latitude,
		log.Longitude,
	).Scan(&log.ID, &log.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save sos log: %w", err)
	}
	return nil
}

// ListAll возвращает последние сигналы SOS всех пользователей
func (r *SOSRepository) ListAll(ctx context.Context, limit int) ([]*models.SOSLog, error) {
	query := `
		SELECT id, user_id, lat, lng, created_at
		FROM sos_logs
		ORDER BY created_at DESC
		LIMIT $1;
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sos logs: %w", err)
	}
	defer rows.Close()

	return collectSOSLogs(rows)
}

// ListByUser возвращает последние сигналы SOS одного пользователя
func (r *SOSRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.SOSLog, error) {
	query := `
		SELECT id, user_id, lat, lng, created_at
		FROM sos_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2;
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sos logs by user: %w", err)
	}
	defer rows.Close()

	return collectSOSLogs(rows)
}

func collectSOSLogs(rows pgx.Rows) ([]*models.SOSLog, error) {
	logs := make([]*models.SOSLog, 0)
	for rows.Next() {
		log := &models.SOSLog{}
		err := rows.Scan(&log.ID, &log.UserID, &log.Latitude, &log.Longitude, &log.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sos log row: %w", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error sos log iteration: %w", err)
	}
	return logs, nil
}
