package service

import (
	"context"
	"fmt"
	"time"

	"asha-triage/internal/emergency"
	"asha-triage/internal/models"
	"asha-triage/internal/triage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TriagePerformer 分诊流水线接口（由 triage.Orchestrator 实现）
type TriagePerformer interface {
	PerformTriage(ctx context.Context, req *models.TriageRequest) (*triage.Outcome, error)
}

// TriageStore 分诊记录存储接口
type TriageStore interface {
	CreateTriageResult(ctx context.Context, result *models.TriageResult) error
	GetTriageResult(ctx context.Context, triageID string) (*models.TriageResult, error)
	ListUserTriageHistory(ctx context.Context, userID string, limit int) ([]*models.TriageResult, error)
}

// EventPublisher 分析事件发布接口（fire-and-forget，实现方吞掉所有失败）
type EventPublisher interface {
	PublishTriageEvent(ctx context.Context, result *models.TriageResult)
	PublishEmergencyEvent(ctx context.Context, result *models.TriageResult)
}

// Escalator 紧急升级处理接口（由 EmergencyService 实现）
type Escalator interface {
	ProcessEmergency(ctx context.Context, result *models.TriageResult) (*models.EmergencyCase, error)
}

// TriageService 分诊服务层
// 职责：
// 1. 编排流水线调用
// 2. 分配 triageId 并组装 TriageResult
// 3. 持久化 + 派生分析事件
// 4. 触发紧急升级策略
type TriageService struct {
	performer           TriagePerformer
	store               TriageStore
	publisher           EventPublisher
	escalator           Escalator
	escalationThreshold float64
	logger              *zap.Logger
}

// NewTriageService 创建分诊服务
func NewTriageService(
	performer TriagePerformer,
	store TriageStore,
	publisher EventPublisher,
	escalator Escalator,
	escalationThreshold float64,
	logger *zap.Logger,
) *TriageService {
	return &TriageService{
		performer:           performer,
		store:               store,
		publisher:           publisher,
		escalator:           escalator,
		escalationThreshold: escalationThreshold,
		logger:              logger,
	}
}

// ProcessTriageRequest 处理一次完整的分诊提交
// 返回持久化后的 TriageResult；若触发升级，同时返回升级记录
// 升级处理失败不会使分诊请求失败（评估结果已经持久化）
func (s *TriageService) ProcessTriageRequest(ctx context.Context, req *models.TriageRequest) (*models.TriageResult, *models.EmergencyCase, error) {
	// 症状关键词早期预警（仅日志信号，不参与决策）
	if emergency.ContainsEmergencyKeywords(req.Symptoms) {
		s.logger.Info("Symptoms contain emergency keywords",
			zap.String("user_id", req.UserID),
		)
	}

	// 1. 执行分诊流水线（检索 → 生成 → 提取）
	outcome, err := s.performer.PerformTriage(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	// 2. 分配 triageId，组装完整记录
	result := &models.TriageResult{
		TriageID: uuid.New().String(),
		Request:  *req,
		Response: outcome.Response,
		Metadata: models.TriageMetadata{
			ProcessingTimeMs:    outcome.ProcessingTimeMs,
			TokensUsed:          outcome.TokensUsed,
			GuardrailsTriggered: outcome.GuardrailsTriggered,
			RetrievedDocuments:  outcome.RAGContext.TotalDocuments,
			ModelVersion:        outcome.ModelVersion,
			Timestamp:           time.Now().UTC().Format(time.RFC3339),
		},
	}

	// 3. 持久化分诊记录（失败则整个请求失败，由调用方决定是否重试）
	if err := s.store.CreateTriageResult(ctx, result); err != nil {
		s.logger.Error("Failed to store triage result",
			zap.String("triage_id", result.TriageID),
			zap.Error(err),
		)
		return nil, nil, fmt.Errorf("failed to store triage result: %w", err)
	}

	// 4. 派生匿名化分析事件（fire-and-forget）
	s.publisher.PublishTriageEvent(ctx, result)

	// 5. 紧急升级策略
	var escalation *models.EmergencyCase
	if emergency.ShouldEscalate(result, s.escalationThreshold) {
		escalation, err = s.escalator.ProcessEmergency(ctx, result)
		if err != nil {
			// 升级失败只记错误：评估结果已经落库，不能因此丢掉
			s.logger.Error("Emergency escalation failed",
				zap.String("triage_id", result.TriageID),
				zap.Error(err),
			)
			escalation = nil
		} else {
			s.publisher.PublishEmergencyEvent(ctx, result)
		}
	}

	return result, escalation, nil
}

// GetTriageResult 获取单条分诊记录
func (s *TriageService) GetTriageResult(ctx context.Context, triageID string) (*models.TriageResult, error) {
	if triageID == "" {
		return nil, &triage.ValidationError{Field: "triageId", Message: "triageId is required"}
	}
	return s.store.GetTriageResult(ctx, triageID)
}

// GetUserTriageHistory 查询工作者的分诊历史
func (s *TriageService) GetUserTriageHistory(ctx context.Context, userID string, limit int) ([]*models.TriageResult, error) {
	if userID == "" {
		return nil, &triage.ValidationError{Field: "userId", Message: "userId is required"}
	}
	return s.store.ListUserTriageHistory(ctx, userID, limit)
}
