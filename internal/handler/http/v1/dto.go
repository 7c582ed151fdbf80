package v1

import (
	"time"

	"github.com/google/uuid"
)

// RegisterRequest DTO для регистрации пользователя
// @Description DTO для регистрации пользователя
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FullName  string `json:"full_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	City      string `json:"city,omitempty"`
	AdminCode string `json:"admin_code,omitempty"`
}

// LoginRequest DTO для входа
// @Description DTO для входа
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse DTO для ответа на вход
// @Description DTO для ответа на вход
type LoginResponse struct {
	AccessToken string        `json:"access_token"`
	User        *UserResponse `json:"user"`
}

// UserResponse DTO для ответа с информацией о пользователе
// @Description DTO для ответа с информацией о пользователе
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	FullName  string    `json:"full_name,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	City      string    `json:"city,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UpdateProfileRequest DTO для обновления профиля; отсутствующее поле не меняется
// @Description DTO для обновления профиля
type UpdateProfileRequest struct {
	FullName *string `json:"full_name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	City     *string `json:"city,omitempty"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=8"`
}

// CreateIncidentRequest DTO для создания инцидента
// @Description DTO для создания инцидента
type CreateIncidentRequest struct {
	Category    string  `json:"category" validate:"required,oneof=no_light aggressive_animal harassment ice other"`
	Description string  `json:"description,omitempty"`
	Latitude    float64 `json:"latitude" validate:"latitude"`
	Longitude   float64 `json:"longitude" validate:"longitude"`
}

// IncidentResponse DTO для ответа с информацией об инциденте
// @Description DTO для ответа с информацией об инциденте
type IncidentResponse struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	Category     string     `json:"category"`
	Description  string     `json:"description,omitempty"`
	Latitude     float64    `json:"latitude"`
	Longitude    float64    `json:"longitude"`
	Status       string     `json:"status"`
	ConfirmCount int        `json:"confirm_count"`
	RejectCount  int        `json:"reject_count"`
	CreatedAt    time.Time  `json:"created_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}

// CastVoteRequest DTO для голосования за правдивость инцидента
// @Description DTO для голосования за правдивость инцидента
type CastVoteRequest struct {
	IsTruthful *bool `json:"is_truthful" validate:"required"`
}

// VoteResponse DTO для ответа с информацией о голосе
// @Description DTO для ответа с информацией о голосе
type VoteResponse struct {
	ID         uuid.UUID `json:"id"`
	IncidentID uuid.UUID `json:"incident_id"`
	UserID     uuid.UUID `json:"user_id"`
	IsTruthful bool      `json:"is_truthful"`
	CreatedAt  time.Time `json:"created_at"`
}

// SubmitSOSRequest DTO для отправки сигнала SOS
// @Description DTO для отправки сигнала SOS
type SubmitSOSRequest struct {
	Latitude  float64 `json:"lat" validate:"latitude"`
	Longitude float64 `json:"lng" validate:"longitude"`
}

// SOSLogResponse DTO для ответа с записью журнала SOS
// @Description DTO для ответа с записью журнала SOS
type SOSLogResponse struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

// SafeRouteRequest DTO для запроса безопасного маршрута
// @Description DTO для запроса безопасного маршрута
type SafeRouteRequest struct {
	StartLat    float64 `json:"start_lat" validate:"latitude"`
	StartLng    float64 `json:"start_lng" validate:"longitude"`
	EndLat      float64 `json:"end_lat" validate:"latitude"`
	EndLng      float64 `json:"end_lng" validate:"longitude"`
	AvoidRadius float64 `json:"avoid_radius,omitempty" validate:"omitempty,gt=0"`
}
