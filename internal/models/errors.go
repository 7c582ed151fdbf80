package models

import "errors"

// Доменные ошибки. Репозитории и сервисы возвращают только их (обернутыми),
// хэндлеры сопоставляют каждую со своим HTTP-статусом.
var (
	// ErrNotFound - целевой инцидент/пользователь/голос отсутствует
	ErrNotFound = errors.New("not found")

	// ErrInvalidState - недопустимый переход статуса или мутация resolved-инцидента
	ErrInvalidState = errors.New("invalid state")

	// ErrForbidden - аутентифицирован, но не авторизован для действия
	ErrForbidden = errors.New("forbidden")

	// ErrDuplicateVote - повторный голос в том же направлении
	ErrDuplicateVote = errors.New("duplicate vote")

	// ErrAuth - отсутствующий/недействительный токен или неактивный пользователь
	ErrAuth = errors.New("authentication failed")

	// ErrUpstreamUnavailable - внешний провайдер маршрутов недоступен
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
