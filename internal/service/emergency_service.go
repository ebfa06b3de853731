package service

import (
	"context"
	"fmt"
	"time"

	"asha-triage/internal/emergency"
	"asha-triage/internal/models"
	"asha-triage/internal/triage"

	"go.uber.org/zap"
)

// EmergencyStore 紧急升级记录存储接口
type EmergencyStore interface {
	CreateEmergencyCase(ctx context.Context, escalation *models.EmergencyEscalation) (string, error)
	GetEmergencyCase(ctx context.Context, emergencyID string) (*models.EmergencyCase, error)
	ListEmergencyCases(ctx context.Context, district string, status models.EmergencyStatus, limit int) ([]*models.EmergencyCase, error)
	UpdateEmergencyStatus(ctx context.Context, emergencyID string, status models.EmergencyStatus) error
}

// EmergencyService 紧急升级服务层
// 职责：
// 1. 从分诊结果构建升级记录（最近 PHC、转诊单）
// 2. 持久化升级记录
// 3. 尽力通知 PHC（失败不影响升级本身）
// 4. 升级记录状态机管理
type EmergencyService struct {
	store               EmergencyStore
	locator             emergency.Locator
	notifier            emergency.Notifier
	notificationEnabled bool
	contactNumber       string
	logger              *zap.Logger
}

// NewEmergencyService 创建紧急升级服务
// notifier 可以为 nil（通知未启用时）
func NewEmergencyService(
	store EmergencyStore,
	locator emergency.Locator,
	notifier emergency.Notifier,
	notificationEnabled bool,
	contactNumber string,
	logger *zap.Logger,
) *EmergencyService {
	return &EmergencyService{
		store:               store,
		locator:             locator,
		notifier:            notifier,
		notificationEnabled: notificationEnabled,
		contactNumber:       contactNumber,
		logger:              logger,
	}
}

// ProcessEmergency 处理一次紧急升级
// 持久化失败返回错误；PHC 通知失败只记警告日志
func (s *EmergencyService) ProcessEmergency(ctx context.Context, result *models.TriageResult) (*models.EmergencyCase, error) {
	location := models.EscalationLocation{
		District: "unknown",
		State:    "unknown",
	}
	if result.Request.Location != nil {
		if result.Request.Location.District != "" {
			location.District = result.Request.Location.District
		}
		if result.Request.Location.State != "" {
			location.State = result.Request.Location.State
		}
		if result.Request.Location.Latitude != nil && result.Request.Location.Longitude != nil {
			location.Coordinates = &models.Coordinates{
				Latitude:  *result.Request.Location.Latitude,
				Longitude: *result.Request.Location.Longitude,
			}
		}
	}

	// 1. 解析最近 PHC（定位失败降级为静态兜底信息，升级流程不中断）
	phc, err := emergency.ResolveNearestPHC(ctx, s.locator, result.Request.Location)
	if err != nil {
		s.logger.Warn("Failed to resolve nearest PHC, using fallback",
			zap.String("triage_id", result.TriageID),
			zap.Error(err),
		)
		phc = models.NearestPHC{
			Name:     "District Primary Health Center",
			Distance: 5.0,
			Contact:  s.contactNumber,
		}
	}

	// 2. 生成确定性转诊单
	referralNote := emergency.GenerateReferralNote(result)

	// 升级记录的 urgencyLevel 固定为 emergency：
	// 触发条件可能是风险分或转诊标志，评估等级本身不一定是 emergency
	escalation := &models.EmergencyEscalation{
		TriageID:     result.TriageID,
		UrgencyLevel: models.UrgencyEmergency,
		PatientInfo: models.PatientInfo{
			Age:      result.Request.PatientAge,
			Gender:   result.Request.PatientGender,
			Symptoms: result.Request.Symptoms,
		},
		Location: location,
		NearestPHC: models.NearestPHC{
			Name:     phc.Name,
			Distance: phc.Distance,
			Contact:  phc.Contact,
		},
		ReferralNote:     referralNote,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		NotificationSent: s.notificationEnabled && s.notifier != nil,
		Status:           models.EmergencyStatusPending,
	}

	// 3. 持久化（失败则升级失败）
	emergencyID, err := s.store.CreateEmergencyCase(ctx, escalation)
	if err != nil {
		return nil, fmt.Errorf("failed to store emergency case: %w", err)
	}

	emergencyCase := &models.EmergencyCase{
		EmergencyID:         emergencyID,
		EmergencyEscalation: *escalation,
	}

	// 4. 尽力通知 PHC（记录已落库，通知失败不回滚）
	if s.notificationEnabled && s.notifier != nil {
		if err := s.notifier.NotifyPHC(emergencyCase); err != nil {
			s.logger.Warn("Failed to notify PHC",
				zap.String("emergency_id", emergencyID),
				zap.String("district", location.District),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("Emergency escalation processed",
		zap.String("emergency_id", emergencyID),
		zap.String("triage_id", result.TriageID),
		zap.String("urgency_level", string(result.Response.UrgencyLevel)),
		zap.String("district", location.District),
	)

	return emergencyCase, nil
}

// UpdateEmergencyStatus 按状态机推进升级记录
// pending → acknowledged → resolved（允许 pending 直接到 resolved，resolved 为终态）
func (s *EmergencyService) UpdateEmergencyStatus(ctx context.Context, emergencyID string, status models.EmergencyStatus) (*models.EmergencyCase, error) {
	if emergencyID == "" {
		return nil, &triage.ValidationError{Field: "emergencyId", Message: "emergencyId is required"}
	}
	if !status.Valid() {
		return nil, &triage.ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("status must be one of: pending, acknowledged, resolved, got %q", status),
		}
	}

	current, err := s.store.GetEmergencyCase(ctx, emergencyID)
	if err != nil {
		return nil, err
	}

	if !current.Status.CanTransitionTo(status) {
		return nil, &triage.ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("invalid status transition from %q to %q", current.Status, status),
		}
	}

	if err := s.store.UpdateEmergencyStatus(ctx, emergencyID, status); err != nil {
		return nil, err
	}

	current.Status = status
	return current, nil
}

// ListEmergencyCases 按区和状态查询升级记录
func (s *EmergencyService) ListEmergencyCases(ctx context.Context, district string, status models.EmergencyStatus, limit int) ([]*models.EmergencyCase, error) {
	if district == "" {
		return nil, &triage.ValidationError{Field: "district", Message: "district is required"}
	}
	if status != "" && !status.Valid() {
		return nil, &triage.ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("status must be one of: pending, acknowledged, resolved, got %q", status),
		}
	}
	return s.store.ListEmergencyCases(ctx, district, status, limit)
}

// GetEmergencyContact 返回全国紧急呼救号码
func (s *EmergencyService) GetEmergencyContact() string {
	return s.contactNumber
}
