package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/campus_safety_system/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWorkerConfig() *config.Config {
	return &config.Config{
		WebhookTimeout:    2 * time.Second,
		WebhookMaxRetries: 3,
		WebhookBaseDelay:  10 * time.Millisecond,
	}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, client
}

func TestPublish_EnqueuesEvent(t *testing.T) {
	// Подготовка
	_, client := newTestRedis(t)
	publisher := NewRedisAlertPublisher(client)

	event := AlertEvent{
		SOSLogID:  uuid.New(),
		UserID:    uuid.New(),
		Latitude:  55.7512,
		Longitude: 37.6184,
		Timestamp: time.Now().UTC().Truncate(time.Second),
	}

	// Действие
	err := publisher.Publish(context.Background(), event)

	// Проверки
	require.NoError(t, err)

	payloads, err := client.LRange(context.Background(), alertQueueKey, 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, payloads, 1)

	var got AlertEvent
	require.NoError(t, json.Unmarshal([]byte(payloads[0]), &got))
	assert.Equal(t, event.SOSLogID, got.SOSLogID)
	assert.Equal(t, event.UserID, got.UserID)
	assert.Equal(t, event.Latitude, got.Latitude)
	assert.Equal(t, event.Longitude, got.Longitude)
	assert.True(t, event.Timestamp.Equal(got.Timestamp))
}

func TestPublish_PreservesQueueOrder(t *testing.T) {
	// Подготовка
	_, client := newTestRedis(t)
	publisher := NewRedisAlertPublisher(client)

	first := AlertEvent{SOSLogID: uuid.New(), UserID: uuid.New()}
	second := AlertEvent{SOSLogID: uuid.New(), UserID: uuid.New()}

	// Действие
	require.NoError(t, publisher.Publish(context.Background(), first))
	require.NoError(t, publisher.Publish(context.Background(), second))

	// Проверки: воркер читает справа (BRPOP), значит первым уйдет first
	payload, err := client.RPop(context.Background(), alertQueueKey).Result()
	require.NoError(t, err)

	var got AlertEvent
	require.NoError(t, json.Unmarshal([]byte(payload), &got))
	assert.Equal(t, first.SOSLogID, got.SOSLogID)
}

func TestPublish_RedisDown(t *testing.T) {
	// Подготовка
	mr, client := newTestRedis(t)
	publisher := NewRedisAlertPublisher(client)
	mr.Close()

	// Действие
	err := publisher.Publish(context.Background(), AlertEvent{SOSLogID: uuid.New()})

	// Проверки
	assert.Error(t, err)
}

func TestAlertWorker_DeliversWebhookWithSignature(t *testing.T) {
	// Подготовка
	_, client := newTestRedis(t)
	publisher := NewRedisAlertPublisher(client)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	type delivered struct {
		body      []byte
		signature string
	}
	deliveries := make(chan delivered, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		deliveries <- delivered{body: body, signature: r.Header.Get("X-Webhook-Signature")}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testWorkerConfig()
	cfg.WebhookURL = server.URL
	cfg.WebhookSecret = "campus-guard-secret"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker := NewAlertWorker(client, logger, cfg)
	worker.Start(ctx)

	event := AlertEvent{
		SOSLogID:  uuid.New(),
		UserID:    uuid.New(),
		Latitude:  55.75,
		Longitude: 37.61,
		Timestamp: time.Now().UTC(),
	}

	// Действие
	require.NoError(t, publisher.Publish(ctx, event))

	// Проверки
	select {
	case got := <-deliveries:
		var decoded AlertEvent
		require.NoError(t, json.Unmarshal(got.body, &decoded))
		assert.Equal(t, event.SOSLogID, decoded.SOSLogID)

		mac := hmac.New(sha256.New, []byte(cfg.WebhookSecret))
		mac.Write(got.body)
		assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), got.signature)
	case <-time.After(5 * time.Second):
		t.Fatal("webhook was not delivered")
	}
}

func TestAlertWorker_RetriesOnServerError(t *testing.T) {
	// Подготовка
	_, client := newTestRedis(t)
	publisher := NewRedisAlertPublisher(client)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	attempts := make(chan struct{}, 8)
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		attempts <- struct{}{}
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testWorkerConfig()
	cfg.WebhookURL = server.URL

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker := NewAlertWorker(client, logger, cfg)
	worker.Start(ctx)

	// Действие
	require.NoError(t, publisher.Publish(ctx, AlertEvent{SOSLogID: uuid.New()}))

	// Проверки: первая попытка провалилась, вторая дошла
	for i := 0; i < 2; i++ {
		select {
		case <-attempts:
		case <-time.After(5 * time.Second):
			t.Fatalf("expected delivery attempt %d", i+1)
		}
	}
}
