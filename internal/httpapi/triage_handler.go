package httpapi

import (
	"context"
	"net/http"
	"strings"

	"asha-triage/internal/models"
	"asha-triage/internal/triage"

	"go.uber.org/zap"
)

// TriageProcessor 分诊服务接口（由 service.TriageService 实现）
type TriageProcessor interface {
	ProcessTriageRequest(ctx context.Context, req *models.TriageRequest) (*models.TriageResult, *models.EmergencyCase, error)
	GetTriageResult(ctx context.Context, triageID string) (*models.TriageResult, error)
	GetUserTriageHistory(ctx context.Context, userID string, limit int) ([]*models.TriageResult, error)
}

// TriageHandler 分诊相关 Handler
type TriageHandler struct {
	service  TriageProcessor
	verifier SessionVerifier
	logger   *zap.Logger
}

// NewTriageHandler 创建分诊 Handler
func NewTriageHandler(service TriageProcessor, verifier SessionVerifier, logger *zap.Logger) *TriageHandler {
	return &TriageHandler{
		service:  service,
		verifier: verifier,
		logger:   logger,
	}
}

// AssessResponse POST /triage/api/v1/assess 的响应体
type AssessResponse struct {
	TriageID   string                `json:"triageId"`
	Assessment models.TriageResponse `json:"assessment"`
	Metadata   models.TriageMetadata `json:"metadata"`
	Escalation *models.EmergencyCase `json:"escalation,omitempty"`
}

// Assess 提交分诊请求
// POST /triage/api/v1/assess
func (h *TriageHandler) Assess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session := requireSession(w, r, h.verifier, h.logger)
	if session == nil {
		return
	}

	// 1. 解析请求体
	body, err := readBody(r, 1<<20)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("failed to read request body"))
		return
	}

	req, err := triage.ParseTriageRequest(body)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	// 提交者身份以会话为准，不信任 body 里的 userId
	req.UserID = session.UserID

	// 2. 校验（首个违规即拒绝）
	if err := triage.ValidateRequest(req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	// 3. 执行分诊
	result, escalation, err := h.service.ProcessTriageRequest(ctx, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(AssessResponse{
		TriageID:   result.TriageID,
		Assessment: result.Response,
		Metadata:   result.Metadata,
		Escalation: escalation,
	}))
}

// History 查询当前工作者的分诊历史
// GET /triage/api/v1/history?limit=10
func (h *TriageHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session := requireSession(w, r, h.verifier, h.logger)
	if session == nil {
		return
	}

	limit := parseInt(r.URL.Query().Get("limit"), 10)

	results, err := h.service.GetUserTriageHistory(ctx, session.UserID, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if results == nil {
		results = []*models.TriageResult{}
	}

	writeJSON(w, http.StatusOK, Ok(results))
}

// GetResult 按 triageId 获取单条分诊记录
// GET /triage/api/v1/result/{triageId}
func (h *TriageHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session := requireSession(w, r, h.verifier, h.logger)
	if session == nil {
		return
	}

	triageID := strings.TrimPrefix(r.URL.Path, "/triage/api/v1/result/")
	if triageID == "" || strings.Contains(triageID, "/") {
		writeJSON(w, http.StatusNotFound, Fail("resource not found"))
		return
	}

	result, err := h.service.GetTriageResult(ctx, triageID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	// ASHA 工作者只能查看自己的记录；PHC 医生和管理员可以查看全部
	if session.Role != "phc_doctor" && session.Role != "admin" && result.Request.UserID != session.UserID {
		writeJSON(w, http.StatusForbidden, Fail("insufficient permissions"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(result))
}
