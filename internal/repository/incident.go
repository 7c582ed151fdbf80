package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/campus_safety_system/internal/geo"
	"github.com/shenikar/campus_safety_system/internal/models"
	"github.com/shenikar/campus_safety_system/internal/service"
)

const incidentColumns = `
			id,
			user_id,
			category,
			COALESCE(description, ''),
			lat,
			lng,
			status,
			confirm_count,
			reject_count,
			created_at,
			resolved_at`

type IncidentRepository struct {
	db          *pgxpool.Pool
	redisClient *redis.Client
}

func NewIncidentRepository(db *pgxpool.Pool, redisClient *redis.Client) service.IncidentRepository {
	return &IncidentRepository{
		db:          db,
		redisClient: redisClient,
	}
}

func scanIncident(row pgx.Row) (*models.Incident, error) {
	incident := &models.Incident{}
	err := row.Scan(
		&incident.ID,
		&incident.UserID,
		&incident.Category,
		&incident.Description,
		&incident.Latitude,
		&incident.Longitude,
		&incident.Status,
		&incident.ConfirmCount,
		&incident.RejectCount,
		&incident.CreatedAt,
		&incident.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return incident, nil
}

// Create создает новую запись об инциденте в бд.
// Статус всегда pending, счетчики голосов нулевые.
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	query := `
		INSERT INTO incidents (user_id, category, description, lat, lng, status)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6) RETURNING id, created_at;
	`
	incident.Status = models.StatusPending
	incident.ConfirmCount = 0
	incident.RejectCount = 0

	err := r.db.QueryRow(ctx, query,
		incident.UserID,
		incident.Category,
		incident.Description,
		incident.Latitude,
		incident.Longitude,
		incident.Status,
	).Scan(&incident.ID, &incident.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create incident: %w", err)
	}
	return nil
}

// GetByID возвращает инцидент по его UUID
func (r *IncidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	query := `
		SELECT ` + incidentColumns + `
		FROM incidents
		WHERE id = $1;
	`
	incident, err := scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("incident with id %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get incident by id: %w", err)
	}
	return incident, nil
}

// FindNear возвращает видимые инциденты (pending, active) в радиусе radiusMeters
// от точки, новые первыми. Полный проход по видимым строкам с фильтром по
// хаверсинусу в коде - контракт точной дистанции важнее индекса.
func (r *IncidentRepository) FindNear(ctx context.Context, lat, lng, radiusMeters float64) ([]*models.Incident, error) {
	query := `
		SELECT ` + incidentColumns + `
		FROM incidents
		WHERE status IN ($1, $2)
		ORDER BY created_at DESC;
	`
	rows, err := r.db.Query(ctx, query, models.StatusPending, models.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to find incidents near point: %w", err)
	}
	defer rows.Close()

	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident row in FindNear: %w", err)
		}
		if geo.HaversineDistance(lat, lng, incident.Latitude, incident.Longitude) <= radiusMeters {
			incidents = append(incidents, incident)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration in FindNear: %w", err)
	}
	return incidents, nil
}

// FindInBoundingBox возвращает видимые инциденты внутри прямоугольной области
func (r *IncidentRepository) FindInBoundingBox(ctx context.Context, box geo.BoundingBox) ([]*models.Incident, error) {
	query := `
		SELECT ` + incidentColumns + `
		FROM incidents
		WHERE
			status IN ($1, $2)
			AND lat BETWEEN $3 AND $4
			AND lng BETWEEN $5 AND $6;
	`
	rows, err := r.db.Query(ctx, query,
		models.StatusPending, models.StatusActive,
		box.MinLat, box.MaxLat, box.MinLng, box.MaxLng,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find incidents in bounding box: %w", err)
	}
	defer rows.Close()

	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident row in FindInBoundingBox: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration in FindInBoundingBox: %w", err)
	}
	return incidents, nil
}

// ListAll возвращает все инциденты, опционально отфильтрованные по статусу
func (r *IncidentRepository) ListAll(ctx context.Context, status models.IncidentStatus) ([]*models.Incident, error) {
	query := `
		SELECT ` + incidentColumns + `
		FROM incidents
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC;
	`
	rows, err := r.db.Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	defer rows.Close()

	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident row: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return incidents, nil
}

// UpdateStatus переводит инцидент из ожидаемого статуса в новый одним
// условным UPDATE, чтобы параллельный переход не потерялся. Для resolved
// одновременно проставляется resolved_at.
func (r *IncidentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.IncidentStatus) (*models.Incident, error) {
	query := `
		UPDATE incidents SET
			status = $1,
			resolved_at = CASE WHEN $1 = 'resolved' THEN NOW() ELSE resolved_at END
		WHERE id = $2 AND status = $3
		RETURNING ` + incidentColumns + `;
	`
	incident, err := scanIncident(r.db.QueryRow(ctx, query, to, id, from))
	if err == nil {
		return incident, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update incident status: %w", err)
	}

	// Ни одна строка не обновлена: либо инцидент исчез, либо статус
	// изменился между чтением и переходом
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("incident %s is no longer in status %q: %w", id, from, models.ErrInvalidState)
}

// GetIncidentFromCache пытается получить инцидент из Redis
func (r *IncidentRepository) GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	key := fmt.Sprintf("incident:%s", id.String())
	val, err := r.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get incident from cache: %w", err)
	}

	incident := &models.Incident{}
	if err := json.Unmarshal(val, incident); err != nil {
		return nil, fmt.Errorf("failed to unmarshal incident from cache: %w", err)
	}
	return incident, nil
}

// SetIncidentCache сохраняет инцидент в Redis
func (r *IncidentRepository) SetIncidentCache(ctx context.Context, incident *models.Incident) error {
	key := fmt.Sprintf("incident:%s", incident.ID.String())
	val, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("failed to marshal incident for cache: %w", err)
	}
	// Устанавливаем срок жизни кэша, например, 5 минут
	if err := r.redisClient.Set(ctx, key, val, 5*time.Minute).Err(); err != nil {
		return fmt.Errorf("failed to set incident in cache: %w", err)
	}
	return nil
}

// InvalidateIncidentCache удаляет инцидент из Redis кэша
func (r *IncidentRepository) InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error {
	key := fmt.Sprintf("incident:%s", id.String())
	if err := r.redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate incident cache: %w", err)
	}
	return nil
}
