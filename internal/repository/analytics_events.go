package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"asha-triage/internal/models"

	"go.uber.org/zap"
)

// analyticsRetention 分析事件保留期（约365天，三类记录中最长）
const analyticsRetention = 365 * 24 * time.Hour

// AnalyticsEventsRepository 匿名化分析事件仓库
type AnalyticsEventsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAnalyticsEventsRepository 创建分析事件仓库
func NewAnalyticsEventsRepository(db *sql.DB, logger *zap.Logger) *AnalyticsEventsRepository {
	return &AnalyticsEventsRepository{
		db:     db,
		logger: logger,
	}
}

// CreateAnalyticsEvent 写入分析事件
// 调用方负责吞掉错误：分析写入失败不得影响父操作
func (r *AnalyticsEventsRepository) CreateAnalyticsEvent(ctx context.Context, event *models.AnalyticsEvent) error {
	symptomsJSON, err := json.Marshal(event.Symptoms)
	if err != nil {
		return &StorageError{Op: "create_analytics", Err: err}
	}

	// 按日期分区便于区级时间段查询
	datePartition := event.Timestamp
	if idx := strings.Index(datePartition, "T"); idx > 0 {
		datePartition = datePartition[:idx]
	}

	query := `
		INSERT INTO analytics_events (
			event_id, event_type, district, state, symptoms,
			urgency_level, event_timestamp, date_partition, anonymized, expires_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	_, err = r.db.ExecContext(ctx, query,
		event.EventID,
		string(event.EventType),
		event.District,
		event.State,
		symptomsJSON,
		string(event.UrgencyLevel),
		event.Timestamp,
		datePartition,
		event.Anonymized,
		time.Now().Add(analyticsRetention),
	)
	if err != nil {
		return &StorageError{Op: "create_analytics", Err: err}
	}

	r.logger.Debug("Analytics event stored",
		zap.String("event_id", event.EventID),
		zap.String("event_type", string(event.EventType)),
	)

	return nil
}

// QueryDistrictAnalytics 查询区级时间段内的分析事件
// startDate/endDate 为 yyyy-mm-dd（含端点）
func (r *AnalyticsEventsRepository) QueryDistrictAnalytics(ctx context.Context, district, startDate, endDate string) ([]models.AnalyticsEvent, error) {
	if district == "" {
		return nil, fmt.Errorf("district is required")
	}
	if startDate == "" || endDate == "" {
		return nil, fmt.Errorf("start and end dates are required")
	}

	query := `
		SELECT event_id, event_type, district, state, symptoms,
		       urgency_level, event_timestamp, anonymized
		FROM analytics_events
		WHERE district = $1
		  AND date_partition BETWEEN $2 AND $3
		ORDER BY event_timestamp ASC
	`

	rows, err := r.db.QueryContext(ctx, query, district, startDate, endDate)
	if err != nil {
		return nil, &StorageError{Op: "query_district_analytics", Err: err}
	}
	defer rows.Close()

	var events []models.AnalyticsEvent
	for rows.Next() {
		var event models.AnalyticsEvent
		var eventType, urgencyLevel string
		var symptomsJSON []byte

		if err := rows.Scan(
			&event.EventID,
			&eventType,
			&event.District,
			&event.State,
			&symptomsJSON,
			&urgencyLevel,
			&event.Timestamp,
			&event.Anonymized,
		); err != nil {
			return nil, &StorageError{Op: "query_district_analytics", Err: err}
		}

		event.EventType = models.AnalyticsEventType(eventType)
		event.UrgencyLevel = models.UrgencyLevel(urgencyLevel)
		if len(symptomsJSON) > 0 {
			_ = json.Unmarshal(symptomsJSON, &event.Symptoms)
		}

		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "query_district_analytics", Err: err}
	}

	return events, nil
}
