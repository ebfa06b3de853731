package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"asha-triage/internal/models"

	"go.uber.org/zap"
)

// AnalyticsQuerier 分析事件查询接口（由 repository.AnalyticsEventsRepository 实现）
type AnalyticsQuerier interface {
	QueryDistrictAnalytics(ctx context.Context, district, startDate, endDate string) ([]models.AnalyticsEvent, error)
}

// AnalyticsHandler 区级分析 Handler
// 所有数据均已匿名化，不包含任何工作者或患者身份
type AnalyticsHandler struct {
	querier  AnalyticsQuerier
	verifier SessionVerifier
	logger   *zap.Logger
}

// NewAnalyticsHandler 创建分析 Handler
func NewAnalyticsHandler(querier AnalyticsQuerier, verifier SessionVerifier, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		querier:  querier,
		verifier: verifier,
		logger:   logger,
	}
}

// DistrictSummary 区级分析摘要
type DistrictSummary struct {
	District       string                  `json:"district"`
	StartDate      string                  `json:"startDate"`
	EndDate        string                  `json:"endDate"`
	TotalEvents    int                     `json:"totalEvents"`
	EmergencyCount int                     `json:"emergencyCount"`
	ByUrgency      map[string]int          `json:"byUrgency"`
	ByEventType    map[string]int          `json:"byEventType"`
	Events         []models.AnalyticsEvent `json:"events"`
}

// districtQueryParams 解析并校验区级查询参数
// 日期缺省为最近30天
func districtQueryParams(r *http.Request) (district, startDate, endDate string, err error) {
	district = r.URL.Query().Get("district")
	if district == "" {
		return "", "", "", fmt.Errorf("district is required")
	}

	startDate = r.URL.Query().Get("startDate")
	endDate = r.URL.Query().Get("endDate")
	if startDate == "" || endDate == "" {
		now := time.Now().UTC()
		endDate = now.Format("2006-01-02")
		startDate = now.AddDate(0, 0, -30).Format("2006-01-02")
	}

	for _, d := range []string{startDate, endDate} {
		if _, perr := time.Parse("2006-01-02", d); perr != nil {
			return "", "", "", fmt.Errorf("dates must be in yyyy-mm-dd format")
		}
	}

	return district, startDate, endDate, nil
}

// District 区级时间段分析摘要
// GET /analytics/api/v1/district?district=X&startDate=yyyy-mm-dd&endDate=yyyy-mm-dd
func (h *AnalyticsHandler) District(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session := requireSession(w, r, h.verifier, h.logger)
	if session == nil {
		return
	}
	if !requireRole(w, session, "phc_doctor", "admin") {
		return
	}

	district, startDate, endDate, err := districtQueryParams(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}

	events, err := h.querier.QueryDistrictAnalytics(ctx, district, startDate, endDate)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	summary := DistrictSummary{
		District:    district,
		StartDate:   startDate,
		EndDate:     endDate,
		TotalEvents: len(events),
		ByUrgency:   map[string]int{},
		ByEventType: map[string]int{},
		Events:      events,
	}
	if summary.Events == nil {
		summary.Events = []models.AnalyticsEvent{}
	}
	for _, event := range events {
		summary.ByUrgency[string(event.UrgencyLevel)]++
		summary.ByEventType[string(event.EventType)]++
		if event.EventType == models.AnalyticsEventEmergency {
			summary.EmergencyCount++
		}
	}

	writeJSON(w, http.StatusOK, Ok(summary))
}

// Export 导出区级分析事件为 Excel
// GET /analytics/api/v1/district/export?district=X&startDate=yyyy-mm-dd&endDate=yyyy-mm-dd
func (h *AnalyticsHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session := requireSession(w, r, h.verifier, h.logger)
	if session == nil {
		return
	}
	if !requireRole(w, session, "phc_doctor", "admin") {
		return
	}

	district, startDate, endDate, err := districtQueryParams(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}

	events, err := h.querier.QueryDistrictAnalytics(ctx, district, startDate, endDate)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	data, err := GenerateDistrictAnalyticsExport(events)
	if err != nil {
		h.logger.Error("Failed to generate analytics export", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to generate export"))
		return
	}

	filename := fmt.Sprintf("district-analytics-%s-%s-%s.xlsx", district, startDate, endDate)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
