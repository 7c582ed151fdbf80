package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shenikar/campus_safety_system/internal/broadcast"
	"github.com/shenikar/campus_safety_system/internal/models"
)

// writeTimeout - предел на запись одного события в сокет; медленный клиент
// не должен задерживать остальных
const writeTimeout = 5 * time.Second

// clientMessage - входящее сообщение от подключенного клиента
type clientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// sosSignalPayload - координаты сигнала SOS, присланного по сокету
type sosSignalPayload struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// @Summary Connect to the campus broadcast channel
// @Description Upgrade to WebSocket and receive emergency alerts in real time. The token is taken from the query string or the Authorization header; identity is verified before the upgrade.
// @Tags SOS
// @Param token query string false "Bearer token (alternative to Authorization header)"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /ws [get]
func (h *Handler) serveWS(c *gin.Context) {
	log := h.logger.WithField("method", "serveWS")

	token := c.Query("token")
	if token == "" {
		token = bearerToken(c)
	}

	// Идентичность проверяется до апгрейда: неаутентифицированное
	// соединение не попадает в реестр сессий
	user, err := h.userService.Authenticate(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("WebSocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "connection closed")

	sessionID := uuid.NewString()
	events, err := h.hub.Register(sessionID, user.ID, 0)
	if err != nil {
		log.WithError(err).Error("Failed to register session")
		conn.Close(websocket.StatusTryAgainLater, "hub unavailable")
		return
	}
	defer h.hub.Unregister(sessionID)

	if err := h.hub.Join(sessionID, models.ChannelCampusBroadcast); err != nil {
		log.WithError(err).Error("Failed to join broadcast channel")
		return
	}

	log = log.WithField("session_id", sessionID).WithField("user_id", user.ID)
	log.Info("WebSocket session established")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	if err := writeEvent(ctx, conn, broadcast.NewEvent("ready", gin.H{"session_id": sessionID})); err != nil {
		return
	}

	go h.readLoop(ctx, cancel, conn, sessionID)

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			if err := writeEvent(ctx, conn, evt); err != nil {
				log.WithError(err).Debug("Write to session failed, dropping connection")
				return
			}
		}
	}
}

// readLoop принимает сообщения клиента до закрытия соединения. Сигнал SOS,
// пришедший по сокету, обрабатывается так же, как HTTP-вариант, но личность
// отправителя перепроверяется по реестру сессий.
func (h *Handler) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, sessionID string) {
	defer cancel()
	log := h.logger.WithField("method", "readLoop").WithField("session_id", sessionID)

	for {
		var msg clientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return
		}

		switch msg.Type {
		case "sos_signal":
			userID, ok := h.hub.SessionUser(sessionID)
			if !ok {
				// Сессия уже снята с учета; ошибку видит только отправитель
				_ = writeEvent(ctx, conn, broadcast.NewEvent("error", gin.H{"error": "unknown session"}))
				return
			}

			var payload sosSignalPayload
			if err := json.Unmarshal(msg.Data, &payload); err != nil {
				_ = writeEvent(ctx, conn, broadcast.NewEvent("error", gin.H{"error": "invalid sos payload"}))
				continue
			}

			if _, err := h.sosService.Submit(ctx, userID, payload.Latitude, payload.Longitude); err != nil {
				log.WithError(err).Error("Failed to submit SOS signal from socket")
				_ = writeEvent(ctx, conn, broadcast.NewEvent("error", gin.H{"error": "failed to process sos signal"}))
			}
		default:
			_ = writeEvent(ctx, conn, broadcast.NewEvent("error", gin.H{"error": "unknown message type"}))
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, evt broadcast.Event) error {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(wctx, conn, evt)
}
