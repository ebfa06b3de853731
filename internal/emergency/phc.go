package emergency

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"asha-triage/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// placeholderDistanceKm 坐标缺失时的占位距离（公里）
// 刻意的简化：缺失定位数据时静默降级，不视为数据质量错误
const placeholderDistanceKm = 5.0

// PHCInfo 初级卫生中心信息
type PHCInfo struct {
	Name      string   `json:"name"`
	District  string   `json:"district"`
	State     string   `json:"state"`
	Contact   string   `json:"contact"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Locator PHC 查询协作方接口
type Locator interface {
	FindNearest(ctx context.Context, district, state string) (*PHCInfo, error)
}

// StaticLocator 占位的 PHC 查询实现
// 生产环境应接入地理信息库；目前按区返回固定的区级 PHC
type StaticLocator struct {
	contact string
	logger  *zap.Logger
}

// NewStaticLocator 创建占位 PHC 查询器
// contact: 配置的兜底紧急联系电话
func NewStaticLocator(contact string, logger *zap.Logger) *StaticLocator {
	return &StaticLocator{
		contact: contact,
		logger:  logger,
	}
}

// FindNearest 返回区级 PHC 占位数据
func (l *StaticLocator) FindNearest(ctx context.Context, district, state string) (*PHCInfo, error) {
	l.logger.Debug("Finding nearest PHC",
		zap.String("district", district),
		zap.String("state", state),
	)

	return &PHCInfo{
		Name:     "District Primary Health Center",
		District: district,
		State:    state,
		Contact:  l.contact,
	}, nil
}

// CachedLocator 带 Redis 缓存的 PHC 查询器
// 缓存读写失败只记日志，不影响查询结果
type CachedLocator struct {
	inner     Locator
	redis     *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewCachedLocator 创建带缓存的 PHC 查询器
func NewCachedLocator(inner Locator, redisClient *redis.Client, logger *zap.Logger) *CachedLocator {
	return &CachedLocator{
		inner:     inner,
		redis:     redisClient,
		keyPrefix: "asha:phc:nearest:",
		ttl:       30 * time.Minute,
		logger:    logger,
	}
}

// FindNearest 先查缓存，未命中再走底层查询并回填
func (l *CachedLocator) FindNearest(ctx context.Context, district, state string) (*PHCInfo, error) {
	key := fmt.Sprintf("%s%s:%s", l.keyPrefix, district, state)

	if data, err := l.redis.Get(ctx, key).Bytes(); err == nil {
		var cached PHCInfo
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	} else if err != redis.Nil {
		l.logger.Warn("PHC cache read failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}

	info, err := l.inner.FindNearest(ctx, district, state)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(info); err == nil {
		if err := l.redis.Set(ctx, key, data, l.ttl).Err(); err != nil {
			l.logger.Warn("PHC cache write failed",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}

	return info, nil
}

// ResolveNearestPHC 解析患者位置最近的 PHC 并计算距离
// 患者和设施都有坐标时用 haversine 计算大圆距离，否则使用占位距离
func ResolveNearestPHC(ctx context.Context, locator Locator, location *models.Location) (models.NearestPHC, error) {
	district := "unknown"
	state := "unknown"
	if location != nil {
		if location.District != "" {
			district = location.District
		}
		if location.State != "" {
			state = location.State
		}
	}

	info, err := locator.FindNearest(ctx, district, state)
	if err != nil {
		return models.NearestPHC{}, fmt.Errorf("failed to find nearest PHC: %w", err)
	}

	distance := placeholderDistanceKm
	if location != nil && location.Latitude != nil && location.Longitude != nil &&
		info.Latitude != nil && info.Longitude != nil {
		distance = HaversineDistance(*location.Latitude, *location.Longitude, *info.Latitude, *info.Longitude)
	}

	return models.NearestPHC{
		Name:     info.Name,
		Distance: distance,
		Contact:  info.Contact,
	}, nil
}
