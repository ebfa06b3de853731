package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Session 已认证的会话信息
type Session struct {
	UserID string `json:"userId"`
	Role   string `json:"role"` // asha_worker | phc_doctor | admin
}

// ErrUnauthorized token 缺失或无效
var ErrUnauthorized = errors.New("unauthorized")

// SessionVerifier 会话校验协作方接口
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (*Session, error)
}

// RedisSessionVerifier 基于 Redis 的会话校验
// 会话由上游认证服务写入，key 为 asha:session:<token>，值为 Session JSON
type RedisSessionVerifier struct {
	redis     *redis.Client
	keyPrefix string
	logger    *zap.Logger
}

// NewRedisSessionVerifier 创建 Redis 会话校验器
func NewRedisSessionVerifier(redisClient *redis.Client, logger *zap.Logger) *RedisSessionVerifier {
	return &RedisSessionVerifier{
		redis:     redisClient,
		keyPrefix: "asha:session:",
		logger:    logger,
	}
}

// Verify 按 token 查找会话
func (v *RedisSessionVerifier) Verify(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}

	data, err := v.redis.Get(ctx, v.keyPrefix+token).Bytes()
	if err == redis.Nil {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("session lookup failed: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		v.logger.Warn("Malformed session payload", zap.Error(err))
		return nil, ErrUnauthorized
	}
	if session.UserID == "" {
		return nil, ErrUnauthorized
	}

	return &session, nil
}

// bearerToken 提取 Authorization: Bearer <token>
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// requireSession 校验请求会话；失败时已写入 401 响应并返回 nil
func requireSession(w http.ResponseWriter, r *http.Request, verifier SessionVerifier, logger *zap.Logger) *Session {
	session, err := verifier.Verify(r.Context(), bearerToken(r))
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			writeJSON(w, http.StatusUnauthorized, Fail("authentication required"))
		} else {
			logger.Error("Session verification failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, Fail("service temporarily unavailable"))
		}
		return nil
	}
	return session
}

// requireRole 校验会话角色；不满足时写入 403 并返回 false
func requireRole(w http.ResponseWriter, session *Session, roles ...string) bool {
	for _, role := range roles {
		if session.Role == role {
			return true
		}
	}
	writeJSON(w, http.StatusForbidden, Fail("insufficient permissions"))
	return false
}
