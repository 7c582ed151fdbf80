package v1

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shenikar/campus_safety_system/internal/broadcast"
	"github.com/shenikar/campus_safety_system/internal/config"
	"github.com/shenikar/campus_safety_system/internal/handler/http/v1/mocks"
	"github.com/shenikar/campus_safety_system/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// newTestWSServer поднимает httptest-сервер с реальным хабом, чтобы
// проверять путь сокета целиком: апгрейд, регистрацию сессии и доставку
func newTestWSServer(t *testing.T) (*testMocks, *broadcast.Hub, *httptest.Server) {
	ctrl := gomock.NewController(t)
	m := &testMocks{
		incidents: mocks.NewMockIncidentService(ctrl),
		votes:     mocks.NewMockVoteService(ctrl),
		sos:       mocks.NewMockSOSService(ctrl),
		users:     mocks.NewMockUserService(ctrl),
		routes:    mocks.NewMockRouteService(ctrl),
	}

	logger := logrus.New()
	logger.SetOutput(&strings.Builder{})

	hub := broadcast.NewHub()
	handler := NewHandler(Services{
		Incidents: m.incidents,
		Votes:     m.votes,
		SOS:       m.sos,
		Users:     m.users,
		Routes:    m.routes,
	}, hub, logger, &config.Config{})

	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return m, hub, server
}

func dialWS(t *testing.T, ctx context.Context, server *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ws?token=" + token
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func TestServeWS_Unauthenticated_NeverJoins(t *testing.T) {
	// Подготовка
	m, hub, server := newTestWSServer(t)

	m.users.EXPECT().
		Authenticate(gomock.Any(), gomock.Any()).
		Return(nil, models.ErrAuth).
		AnyTimes()

	// Действие: подключение без токена и с мусорным токеном
	for _, url := range []string{
		server.URL + "/api/v1/ws",
		server.URL + "/api/v1/ws?token=garbage",
	} {
		resp, err := http.Get(url)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, url)
	}

	// Проверки: в реестре не появилось ни одной сессии,
	// вещание никому не доставляется
	delivered := hub.Publish(models.ChannelCampusBroadcast, broadcast.NewEvent("emergency_alert", gin.H{"lat": 55.75, "lng": 37.61}))
	assert.Zero(t, delivered)
}

func TestServeWS_AuthenticatedReceivesBroadcast(t *testing.T) {
	// Подготовка
	m, hub, server := newTestWSServer(t)
	user := testStudent()

	m.users.EXPECT().
		Authenticate(gomock.Any(), "ws-token").
		Return(user, nil).
		Times(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Действие
	conn := dialWS(t, ctx, server, "ws-token")

	var ready broadcast.Event
	require.NoError(t, wsjson.Read(ctx, conn, &ready))
	require.Equal(t, "ready", ready.Type)

	// Сессия подписана: событие кампуса доходит ровно до нее
	delivered := hub.Publish(models.ChannelCampusBroadcast, broadcast.NewEvent("emergency_alert", gin.H{"lat": 55.75, "lng": 37.61}))
	assert.Equal(t, 1, delivered)

	// Проверки
	var evt broadcast.Event
	require.NoError(t, wsjson.Read(ctx, conn, &evt))
	assert.Equal(t, "emergency_alert", evt.Type)
	assert.Contains(t, string(evt.Data), "55.75")
}

func TestServeWS_SOSSignalRevalidatesSession(t *testing.T) {
	// Подготовка
	m, _, server := newTestWSServer(t)
	user := testStudent()

	m.users.EXPECT().
		Authenticate(gomock.Any(), "ws-token").
		Return(user, nil).
		Times(1)

	submitted := make(chan uuid.UUID, 1)
	m.sos.EXPECT().
		Submit(gomock.Any(), user.ID, 55.75, 37.61).
		DoAndReturn(func(ctx context.Context, userID uuid.UUID, lat, lng float64) (*models.SOSLog, error) {
			submitted <- userID
			return &models.SOSLog{ID: uuid.New(), UserID: userID, Latitude: lat, Longitude: lng}, nil
		}).
		Times(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(t, ctx, server, "ws-token")

	var ready broadcast.Event
	require.NoError(t, wsjson.Read(ctx, conn, &ready))
	require.Equal(t, "ready", ready.Type)

	// Действие: сигнал SOS приходит по сокету, личность берется из реестра
	require.NoError(t, wsjson.Write(ctx, conn, gin.H{
		"type": "sos_signal",
		"data": gin.H{"lat": 55.75, "lng": 37.61},
	}))

	// Проверки
	select {
	case got := <-submitted:
		assert.Equal(t, user.ID, got)
	case <-time.After(5 * time.Second):
		t.Fatal("sos signal was not processed")
	}
}
