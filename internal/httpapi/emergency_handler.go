package httpapi

import (
	"context"
	"net/http"

	"asha-triage/internal/models"

	"go.uber.org/zap"
)

// EmergencyManager 紧急升级服务接口（由 service.EmergencyService 实现）
type EmergencyManager interface {
	UpdateEmergencyStatus(ctx context.Context, emergencyID string, status models.EmergencyStatus) (*models.EmergencyCase, error)
	ListEmergencyCases(ctx context.Context, district string, status models.EmergencyStatus, limit int) ([]*models.EmergencyCase, error)
	GetEmergencyContact() string
}

// EmergencyHandler 紧急升级相关 Handler
type EmergencyHandler struct {
	service  EmergencyManager
	verifier SessionVerifier
	logger   *zap.Logger
}

// NewEmergencyHandler 创建紧急升级 Handler
func NewEmergencyHandler(service EmergencyManager, verifier SessionVerifier, logger *zap.Logger) *EmergencyHandler {
	return &EmergencyHandler{
		service:  service,
		verifier: verifier,
		logger:   logger,
	}
}

// ListCases 按区查询升级记录
// GET /emergency/api/v1/cases?district=X&status=pending&limit=20
func (h *EmergencyHandler) ListCases(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session := requireSession(w, r, h.verifier, h.logger)
	if session == nil {
		return
	}
	if !requireRole(w, session, "phc_doctor", "admin") {
		return
	}

	district := r.URL.Query().Get("district")
	status := models.EmergencyStatus(r.URL.Query().Get("status"))
	limit := parseInt(r.URL.Query().Get("limit"), 20)

	cases, err := h.service.ListEmergencyCases(ctx, district, status, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if cases == nil {
		cases = []*models.EmergencyCase{}
	}

	writeJSON(w, http.StatusOK, Ok(cases))
}

// UpdateStatusRequest POST /emergency/api/v1/status 的请求体
type UpdateStatusRequest struct {
	EmergencyID string `json:"emergencyId"`
	Status      string `json:"status"`
}

// UpdateStatus 推进升级记录状态（仅 PHC 医生和管理员）
// POST /emergency/api/v1/status
func (h *EmergencyHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session := requireSession(w, r, h.verifier, h.logger)
	if session == nil {
		return
	}
	if !requireRole(w, session, "phc_doctor", "admin") {
		return
	}

	var req UpdateStatusRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	updated, err := h.service.UpdateEmergencyStatus(ctx, req.EmergencyID, models.EmergencyStatus(req.Status))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(updated))
}

// Contact 返回全国紧急呼救号码
// GET /emergency/api/v1/contact
func (h *EmergencyHandler) Contact(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(map[string]string{
		"emergencyContact": h.service.GetEmergencyContact(),
	}))
}
