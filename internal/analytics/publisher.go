package analytics

import (
	"context"

	commonredis "asha-triage/internal/common/redis"
	"asha-triage/internal/models"
	"asha-triage/internal/repository"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Publisher 匿名化分析事件发布器
// 双写：PostgreSQL（区级查询）+ Redis Streams（下游实时消费）
// 两条路径的失败都只记警告日志，绝不向调用方抛错
type Publisher struct {
	repo   *repository.AnalyticsEventsRepository
	redis  *redis.Client
	stream string
	logger *zap.Logger
}

// NewPublisher 创建分析事件发布器
// redisClient 可以为 nil（仅写 PostgreSQL）
func NewPublisher(repo *repository.AnalyticsEventsRepository, redisClient *redis.Client, stream string, logger *zap.Logger) *Publisher {
	return &Publisher{
		repo:   repo,
		redis:  redisClient,
		stream: stream,
		logger: logger,
	}
}

// PublishTriageEvent 从分诊结果派生并发布匿名化事件
// fire-and-forget：任何失败都被降级为警告日志
func (p *Publisher) PublishTriageEvent(ctx context.Context, result *models.TriageResult) {
	event := models.NewTriageAnalyticsEvent(result, models.AnalyticsEventTriage)
	p.publish(ctx, &event)
}

// PublishEmergencyEvent 为紧急升级发布匿名化事件
func (p *Publisher) PublishEmergencyEvent(ctx context.Context, result *models.TriageResult) {
	event := models.NewTriageAnalyticsEvent(result, models.AnalyticsEventEmergency)
	p.publish(ctx, &event)
}

func (p *Publisher) publish(ctx context.Context, event *models.AnalyticsEvent) {
	if err := p.repo.CreateAnalyticsEvent(ctx, event); err != nil {
		p.logger.Warn("Failed to store analytics event",
			zap.String("event_id", event.EventID),
			zap.Error(err),
		)
	}

	if p.redis == nil {
		return
	}

	if _, err := commonredis.PublishJSONToStream(ctx, p.redis, p.stream, event); err != nil {
		p.logger.Warn("Failed to publish analytics event to stream",
			zap.String("event_id", event.EventID),
			zap.String("stream", p.stream),
			zap.Error(err),
		)
	}
}
