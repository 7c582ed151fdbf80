package models

import (
	"time"

	"github.com/google/uuid"
)

// IncidentStatus - статус жизненного цикла инцидента
type IncidentStatus string

const (
	StatusPending  IncidentStatus = "pending"
	StatusActive   IncidentStatus = "active"
	StatusRejected IncidentStatus = "rejected"
	StatusResolved IncidentStatus = "resolved"
)

// IncidentCategory - категория инцидента
type IncidentCategory string

const (
	CategoryNoLight          IncidentCategory = "no_light"
	CategoryAggressiveAnimal IncidentCategory = "aggressive_animal"
	CategoryHarassment       IncidentCategory = "harassment"
	CategoryIce              IncidentCategory = "ice"
	CategoryOther            IncidentCategory = "other"
)

// Valid проверяет, что категория входит в список допустимых
func (c IncidentCategory) Valid() bool {
	switch c {
	case CategoryNoLight, CategoryAggressiveAnimal, CategoryHarassment, CategoryIce, CategoryOther:
		return true
	}
	return false
}

type Incident struct {
	ID           uuid.UUID        `json:"id"`
	UserID       uuid.UUID        `json:"user_id"`
	Category     IncidentCategory `json:"category"`
	Description  string           `json:"description,omitempty"`
	Latitude     float64          `json:"latitude"`
	Longitude    float64          `json:"longitude"`
	Status       IncidentStatus   `json:"status"`
	ConfirmCount int              `json:"confirm_count"`
	RejectCount  int              `json:"reject_count"`
	CreatedAt    time.Time        `json:"created_at"`
	ResolvedAt   *time.Time       `json:"resolved_at,omitempty"`
}

type Vote struct {
	ID         uuid.UUID `json:"id"`
	IncidentID uuid.UUID `json:"incident_id"`
	UserID     uuid.UUID `json:"user_id"`
	IsTruthful bool      `json:"is_truthful"`
	CreatedAt  time.Time `json:"created_at"`
}
