package models

import (
	"time"

	"github.com/google/uuid"
)

// ChannelCampusBroadcast - единственный широковещательный канал кампуса,
// все аутентифицированные сессии подключаются к нему
const ChannelCampusBroadcast = "campus_broadcast"

// SOSLog - запись о сигнале SOS, только добавляется, никогда не изменяется
type SOSLog struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
}
