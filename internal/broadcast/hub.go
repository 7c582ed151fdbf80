package broadcast

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event - событие, доставляемое подключенным сессиям
type Event struct {
	Type string          `json:"type"`
	At   string          `json:"at"`
	Data json.RawMessage `json:"data,omitempty"`
}

func NewEvent(eventType string, data any) Event {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	return Event{Type: eventType, At: time.Now().UTC().Format(time.RFC3339Nano), Data: raw}
}

// session - запись реестра: идентичность подключения и его каналы
type session struct {
	userID   uuid.UUID
	ch       chan Event
	channels map[string]struct{}
}

// Hub - реестр подключенных сессий и их подписок на каналы.
// Создается при старте сервиса и дренируется при остановке.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*session
	closed   bool
}

func NewHub() *Hub {
	return &Hub{sessions: make(map[string]*session)}
}

// Register регистрирует аутентифицированную сессию под id пользователя
// и возвращает канал для чтения событий
func (h *Hub) Register(sessionID string, userID uuid.UUID, buffer int) (<-chan Event, error) {
	if buffer <= 0 {
		buffer = 32
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, fmt.Errorf("hub is shut down")
	}
	if _, exists := h.sessions[sessionID]; exists {
		return nil, fmt.Errorf("session %s already registered", sessionID)
	}

	s := &session{
		userID:   userID,
		ch:       make(chan Event, buffer),
		channels: make(map[string]struct{}),
	}
	h.sessions[sessionID] = s
	return s.ch, nil
}

// Join подписывает сессию на канал
func (h *Hub) Join(sessionID, channel string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, exists := h.sessions[sessionID]
	if !exists {
		return fmt.Errorf("session %s is not registered", sessionID)
	}
	s.channels[channel] = struct{}{}
	return nil
}

// Unregister удаляет сессию из реестра и закрывает ее канал событий.
// Повторный вызов безопасен.
func (h *Hub) Unregister(sessionID string) {
	h.mu.Lock()
	s, exists := h.sessions[sessionID]
	if exists {
		delete(h.sessions, sessionID)
	}
	h.mu.Unlock()
	if exists {
		close(s.ch)
	}
}

// SessionUser возвращает идентичность, под которой зарегистрирована сессия
func (h *Hub) SessionUser(sessionID string) (uuid.UUID, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s, exists := h.sessions[sessionID]
	if !exists {
		return uuid.Nil, false
	}
	return s.userID, true
}

// Publish отправляет событие каждой сессии, подписанной на канал.
// Отправка неблокирующая: медленный потребитель теряет событие, а не
// останавливает рассылку. Возвращает число сессий, получивших событие.
func (h *Hub) Publish(channel string, evt Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, s := range h.sessions {
		if _, joined := s.channels[channel]; !joined {
			continue
		}
		select {
		case s.ch <- evt:
			delivered++
		default:
		}
	}
	return delivered
}

// Shutdown закрывает все сессии и запрещает новые регистрации
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, s := range h.sessions {
		delete(h.sessions, id)
		close(s.ch)
	}
}
