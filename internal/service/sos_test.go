package service

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/campus_safety_system/internal/broadcast"
	"github.com/shenikar/campus_safety_system/internal/models"
	"github.com/shenikar/campus_safety_system/internal/service/mocks"
	"github.com/shenikar/campus_safety_system/internal/webhook"
	webhook_mocks "github.com/shenikar/campus_safety_system/internal/webhook/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// newTestSOSService — вспомогательная функция для создания инстанса сервиса с моками.
func newTestSOSService(t *testing.T) (*sosService, *mocks.MockSOSRepository, *mocks.MockBroadcaster, *webhook_mocks.MockAlertPublisher) {
	ctrl := gomock.NewController(t)
	repoMock := mocks.NewMockSOSRepository(ctrl)
	broadcasterMock := mocks.NewMockBroadcaster(ctrl)
	alertsMock := webhook_mocks.NewMockAlertPublisher(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	service := NewSOSService(repoMock, broadcasterMock, alertsMock, logger)
	return service.(*sosService), repoMock, broadcasterMock, alertsMock
}

func TestSubmitSOS_Success(t *testing.T) {
	// Подготовка
	service, repoMock, broadcasterMock, alertsMock := newTestSOSService(t)
	ctx := context.Background()
	userID := uuid.New()
	createdAt := time.Now().UTC()

	// Ожидания: запись в журнал строго до рассылки
	persisted := repoMock.EXPECT().
		Create(ctx, gomock.Any()).
		DoAndReturn(func(ctx context.Context, log *models.SOSLog) error {
			log.ID = uuid.New()
			log.CreatedAt = createdAt
			return nil
		}).Times(1)

	broadcasterMock.EXPECT().
		Publish(models.ChannelCampusBroadcast, gomock.Any()).
		DoAndReturn(func(channel string, evt broadcast.Event) int {
			assert.Equal(t, "emergency_alert", evt.Type)

			var payload struct {
				Latitude  float64 `json:"lat"`
				Longitude float64 `json:"lng"`
				UserID    string  `json:"user_id"`
			}
			require.NoError(t, json.Unmarshal(evt.Data, &payload))
			assert.Equal(t, 55.75, payload.Latitude)
			assert.Equal(t, 37.61, payload.Longitude)
			assert.Equal(t, userID.String(), payload.UserID)
			return 3
		}).After(persisted).Times(1)

	alertsMock.EXPECT().
		Publish(ctx, gomock.Any()).
		Do(func(ctx context.Context, event webhook.AlertEvent) {
			assert.Equal(t, userID, event.UserID)
			assert.Equal(t, 55.75, event.Latitude)
		}).Return(nil).Times(1)

	// Действие
	sosLog, err := service.Submit(ctx, userID, 55.75, 37.61)

	// Проверки
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, sosLog.ID)
	assert.Equal(t, userID, sosLog.UserID)
}

func TestSubmitSOS_PersistFailed_NoBroadcast(t *testing.T) {
	// Подготовка
	service, repoMock, broadcasterMock, alertsMock := newTestSOSService(t)
	ctx := context.Background()
	userID := uuid.New()

	// Ожидания: без записи в журнал рассылки не происходит
	repoMock.EXPECT().Create(ctx, gomock.Any()).Return(assert.AnError).Times(1)
	broadcasterMock.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)
	alertsMock.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	// Действие
	sosLog, err := service.Submit(ctx, userID, 55.75, 37.61)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, sosLog)
}

func TestSubmitSOS_AlertQueueDown_StillSucceeds(t *testing.T) {
	// Подготовка
	service, repoMock, broadcasterMock, alertsMock := newTestSOSService(t)
	ctx := context.Background()
	userID := uuid.New()

	// Ожидания: недоступность очереди алертов не ломает прием сигнала
	repoMock.EXPECT().
		Create(ctx, gomock.Any()).
		DoAndReturn(func(ctx context.Context, log *models.SOSLog) error {
			log.ID = uuid.New()
			log.CreatedAt = time.Now().UTC()
			return nil
		}).Times(1)
	broadcasterMock.EXPECT().Publish(models.ChannelCampusBroadcast, gomock.Any()).Return(0).Times(1)
	alertsMock.EXPECT().Publish(ctx, gomock.Any()).Return(assert.AnError).Times(1)

	// Действие
	sosLog, err := service.Submit(ctx, userID, 55.75, 37.61)

	// Проверки
	require.NoError(t, err)
	assert.NotNil(t, sosLog)
}

func TestSOSHistory_Student_OwnLogsOnly(t *testing.T) {
	// Подготовка
	service, repoMock, _, _ := newTestSOSService(t)
	ctx := context.Background()
	student := &models.User{ID: uuid.New(), Role: models.RoleStudent}
	expectedLogs := []*models.SOSLog{
		{ID: uuid.New(), UserID: student.ID},
	}

	// Ожидания
	repoMock.EXPECT().ListByUser(ctx, student.ID, 50).Return(expectedLogs, nil).Times(1)

	// Действие
	logs, err := service.History(ctx, student, 0)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expectedLogs, logs)
}

func TestSOSHistory_Admin_AllLogs(t *testing.T) {
	// Подготовка
	service, repoMock, _, _ := newTestSOSService(t)
	ctx := context.Background()
	admin := &models.User{ID: uuid.New(), Role: models.RoleAdmin}
	expectedLogs := []*models.SOSLog{
		{ID: uuid.New(), UserID: uuid.New()},
		{ID: uuid.New(), UserID: uuid.New()},
	}

	// Ожидания
	repoMock.EXPECT().ListAll(ctx, 20).Return(expectedLogs, nil).Times(1)

	// Действие
	logs, err := service.History(ctx, admin, 20)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expectedLogs, logs)
}

func TestSOSHistory_LimitClamped(t *testing.T) {
	// Подготовка
	service, repoMock, _, _ := newTestSOSService(t)
	ctx := context.Background()
	admin := &models.User{ID: uuid.New(), Role: models.RoleAdmin}

	// Ожидания: запрошенный лимит сверх максимума режется до потолка
	repoMock.EXPECT().ListAll(ctx, 100).Return(nil, nil).Times(1)

	// Действие
	_, err := service.History(ctx, admin, 1000)

	// Проверки
	require.NoError(t, err)
}
