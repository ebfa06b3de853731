package analytics

import (
	"context"
	"errors"
	"testing"

	"asha-triage/internal/models"
	"asha-triage/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testStream = "asha:analytics:events"

func setupPublisher(t *testing.T) (sqlmock.Sqlmock, *miniredis.Miniredis, *redis.Client, *Publisher) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	repo := repository.NewAnalyticsEventsRepository(db, zap.NewNop())
	publisher := NewPublisher(repo, redisClient, testStream, zap.NewNop())

	return mock, mr, redisClient, publisher
}

func publisherTestResult() *models.TriageResult {
	return &models.TriageResult{
		TriageID: "triage-001",
		Request: models.TriageRequest{
			UserID:   "asha-worker-001",
			Symptoms: "High fever with chills",
			Language: "hi-IN",
			Location: &models.Location{District: "Pune", State: "Maharashtra"},
		},
		Response: models.TriageResponse{UrgencyLevel: models.UrgencyHigh},
		Metadata: models.TriageMetadata{Timestamp: "2024-06-15T10:30:05Z"},
	}
}

func TestPublishTriageEvent_DualWrite(t *testing.T) {
	mock, _, redisClient, publisher := setupPublisher(t)

	mock.ExpectExec(`INSERT INTO analytics_events`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	publisher.PublishTriageEvent(context.Background(), publisherTestResult())

	assert.NoError(t, mock.ExpectationsWereMet())

	entries, err := redisClient.XRange(context.Background(), testStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	payload, ok := entries[0].Values["data"].(string)
	require.True(t, ok)
	assert.Contains(t, payload, `"district":"Pune"`)
	assert.Contains(t, payload, `"anonymized":true`)
}

func TestPublishTriageEvent_PayloadNeverContainsUserID(t *testing.T) {
	mock, _, redisClient, publisher := setupPublisher(t)

	mock.ExpectExec(`INSERT INTO analytics_events`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	publisher.PublishTriageEvent(context.Background(), publisherTestResult())

	entries, err := redisClient.XRange(context.Background(), testStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	payload := entries[0].Values["data"].(string)
	assert.NotContains(t, payload, "asha-worker-001")
	assert.NotContains(t, payload, "userId")
}

func TestPublishTriageEvent_DBFailureSwallowed(t *testing.T) {
	mock, _, redisClient, publisher := setupPublisher(t)

	mock.ExpectExec(`INSERT INTO analytics_events`).
		WillReturnError(errors.New("db down"))

	// 不 panic、不返回错误；流发布仍然继续
	publisher.PublishTriageEvent(context.Background(), publisherTestResult())

	entries, err := redisClient.XRange(context.Background(), testStream, "-", "+").Result()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPublishTriageEvent_RedisFailureSwallowed(t *testing.T) {
	mock, mr, _, publisher := setupPublisher(t)

	mock.ExpectExec(`INSERT INTO analytics_events`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	mr.Close()

	publisher.PublishTriageEvent(context.Background(), publisherTestResult())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishEmergencyEvent_EventType(t *testing.T) {
	mock, _, redisClient, publisher := setupPublisher(t)

	mock.ExpectExec(`INSERT INTO analytics_events`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	publisher.PublishEmergencyEvent(context.Background(), publisherTestResult())

	entries, err := redisClient.XRange(context.Background(), testStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Values["data"].(string), `"eventType":"emergency"`)
}

func TestNewPublisher_NilRedisSkipsStream(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := repository.NewAnalyticsEventsRepository(db, zap.NewNop())
	publisher := NewPublisher(repo, nil, testStream, zap.NewNop())

	mock.ExpectExec(`INSERT INTO analytics_events`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	publisher.PublishTriageEvent(context.Background(), publisherTestResult())

	assert.NoError(t, mock.ExpectationsWereMet())
}
