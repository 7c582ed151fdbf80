package models

import (
	"time"

	"github.com/google/uuid"
)

// Role - роль пользователя в системе
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// IsAdmin проверяет наличие административных прав
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	Role           Role      `json:"role"`
	IsActive       bool      `json:"is_active"`
	FullName       string    `json:"full_name,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	City           string    `json:"city,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
