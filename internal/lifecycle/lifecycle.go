package lifecycle

import (
	"fmt"

	"github.com/shenikar/campus_safety_system/internal/models"
)

// Action - операция перехода статуса инцидента
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionResolve Action = "resolve"
)

// allowedFrom - таблица допустимых переходов: из каких статусов разрешено действие.
// resolved - терминальный статус, из него переходов нет.
var allowedFrom = map[Action][]models.IncidentStatus{
	ActionApprove: {models.StatusPending},
	ActionReject:  {models.StatusPending},
	ActionResolve: {models.StatusActive, models.StatusRejected},
}

// target - статус, в который переводит действие
var target = map[Action]models.IncidentStatus{
	ActionApprove: models.StatusActive,
	ActionReject:  models.StatusRejected,
	ActionResolve: models.StatusResolved,
}

// TargetStatus возвращает статус, в который переводит действие
func TargetStatus(action Action) models.IncidentStatus {
	return target[action]
}

// AllowedFrom возвращает статусы, из которых разрешено действие
func AllowedFrom(action Action) []models.IncidentStatus {
	return allowedFrom[action]
}

// CheckTransition проверяет легальность перехода из текущего статуса
func CheckTransition(current models.IncidentStatus, action Action) error {
	for _, s := range allowedFrom[action] {
		if s == current {
			return nil
		}
	}
	return fmt.Errorf("cannot %s incident in status %q: %w", action, current, models.ErrInvalidState)
}

// CheckActor проверяет права действующего пользователя на операцию.
// Вызывается после проверки существования и статуса - порядок проверок
// определяет, какая из ошибок видна снаружи.
func CheckActor(action Action, incident *models.Incident, actor *models.User) error {
	switch action {
	case ActionApprove, ActionReject:
		if !actor.Role.IsAdmin() {
			return fmt.Errorf("%s requires admin role: %w", action, models.ErrForbidden)
		}
	case ActionResolve:
		if incident.UserID != actor.ID && !actor.Role.IsAdmin() {
			return fmt.Errorf("only the author or admin can resolve incidents: %w", models.ErrForbidden)
		}
	}
	return nil
}
