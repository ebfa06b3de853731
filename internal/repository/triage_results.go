package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"asha-triage/internal/models"

	"go.uber.org/zap"
)

// triageRetention 分诊记录保留期（约90天后可清理）
const triageRetention = 90 * 24 * time.Hour

// TriageResultsRepository 分诊记录仓库
// 记录写入后不再修改（write-once）
type TriageResultsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTriageResultsRepository 创建分诊记录仓库
func NewTriageResultsRepository(db *sql.DB, logger *zap.Logger) *TriageResultsRepository {
	return &TriageResultsRepository{
		db:     db,
		logger: logger,
	}
}

// CreateTriageResult 写入分诊记录
func (r *TriageResultsRepository) CreateTriageResult(ctx context.Context, result *models.TriageResult) error {
	if result.TriageID == "" {
		return fmt.Errorf("triage_id is required")
	}

	var locationJSON []byte
	if result.Request.Location != nil {
		data, err := json.Marshal(result.Request.Location)
		if err != nil {
			return &StorageError{Op: "create_triage", Err: err}
		}
		locationJSON = data
	}

	var redFlagsJSON []byte
	if len(result.Response.RedFlags) > 0 {
		data, err := json.Marshal(result.Response.RedFlags)
		if err != nil {
			return &StorageError{Op: "create_triage", Err: err}
		}
		redFlagsJSON = data
	}

	query := `
		INSERT INTO triage_results (
			triage_id, user_id, symptoms, language,
			patient_age, patient_gender, location, voice_input, request_timestamp,
			urgency_level, risk_score, recommended_action, refer_to_phc,
			confidence_score, cited_guideline, reasoning, red_flags,
			processing_time_ms, tokens_used, guardrails_triggered,
			retrieved_documents, model_version, result_timestamp, expires_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		result.TriageID,
		result.Request.UserID,
		result.Request.Symptoms,
		result.Request.Language,
		nullableInt(result.Request.PatientAge),
		nullableString(result.Request.PatientGender),
		nullableBytes(locationJSON),
		result.Request.VoiceInput,
		result.Request.Timestamp,
		string(result.Response.UrgencyLevel),
		result.Response.RiskScore,
		result.Response.RecommendedAction,
		result.Response.ReferToPHC,
		result.Response.ConfidenceScore,
		result.Response.CitedGuideline,
		emptyToNull(result.Response.Reasoning),
		nullableBytes(redFlagsJSON),
		result.Metadata.ProcessingTimeMs,
		result.Metadata.TokensUsed,
		result.Metadata.GuardrailsTriggered,
		result.Metadata.RetrievedDocuments,
		result.Metadata.ModelVersion,
		result.Metadata.Timestamp,
		time.Now().Add(triageRetention),
	)
	if err != nil {
		return &StorageError{Op: "create_triage", Err: err}
	}

	r.logger.Info("Triage result stored",
		zap.String("triage_id", result.TriageID),
		zap.String("urgency_level", string(result.Response.UrgencyLevel)),
	)

	return nil
}

const triageSelectColumns = `
	triage_id, user_id, symptoms, language,
	patient_age, patient_gender, location, voice_input, request_timestamp,
	urgency_level, risk_score, recommended_action, refer_to_phc,
	confidence_score, cited_guideline, reasoning, red_flags,
	processing_time_ms, tokens_used, guardrails_triggered,
	retrieved_documents, model_version, result_timestamp
`

// GetTriageResult 根据 triage_id 获取分诊记录
func (r *TriageResultsRepository) GetTriageResult(ctx context.Context, triageID string) (*models.TriageResult, error) {
	query := `
		SELECT ` + triageSelectColumns + `
		FROM triage_results
		WHERE triage_id = $1
	`

	row := r.db.QueryRowContext(ctx, query, triageID)
	result, err := scanTriageResult(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, &StorageError{Op: "get_triage", Err: err}
	}

	return result, nil
}

// ListUserTriageHistory 查询某个工作者的分诊历史（最新在前）
func (r *TriageResultsRepository) ListUserTriageHistory(ctx context.Context, userID string, limit int) ([]*models.TriageResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	query := `
		SELECT ` + triageSelectColumns + `
		FROM triage_results
		WHERE user_id = $1
		ORDER BY request_timestamp DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, &StorageError{Op: "list_user_history", Err: err}
	}
	defer rows.Close()

	var results []*models.TriageResult
	for rows.Next() {
		result, err := scanTriageResult(rows)
		if err != nil {
			return nil, &StorageError{Op: "list_user_history", Err: err}
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list_user_history", Err: err}
	}

	return results, nil
}

// scanner 兼容 *sql.Row 和 *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanTriageResult 从查询行重建 TriageResult
func scanTriageResult(s scanner) (*models.TriageResult, error) {
	var result models.TriageResult
	var patientAge sql.NullInt64
	var patientGender, reasoning sql.NullString
	var locationJSON, redFlagsJSON []byte
	var urgencyLevel string

	err := s.Scan(
		&result.TriageID,
		&result.Request.UserID,
		&result.Request.Symptoms,
		&result.Request.Language,
		&patientAge,
		&patientGender,
		&locationJSON,
		&result.Request.VoiceInput,
		&result.Request.Timestamp,
		&urgencyLevel,
		&result.Response.RiskScore,
		&result.Response.RecommendedAction,
		&result.Response.ReferToPHC,
		&result.Response.ConfidenceScore,
		&result.Response.CitedGuideline,
		&reasoning,
		&redFlagsJSON,
		&result.Metadata.ProcessingTimeMs,
		&result.Metadata.TokensUsed,
		&result.Metadata.GuardrailsTriggered,
		&result.Metadata.RetrievedDocuments,
		&result.Metadata.ModelVersion,
		&result.Metadata.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	result.Response.UrgencyLevel = models.UrgencyLevel(urgencyLevel)

	if patientAge.Valid {
		age := int(patientAge.Int64)
		result.Request.PatientAge = &age
	}
	if patientGender.Valid {
		result.Request.PatientGender = &patientGender.String
	}
	if reasoning.Valid {
		result.Response.Reasoning = reasoning.String
	}
	if len(locationJSON) > 0 {
		var location models.Location
		if err := json.Unmarshal(locationJSON, &location); err == nil {
			result.Request.Location = &location
		}
	}
	if len(redFlagsJSON) > 0 {
		var redFlags []string
		if err := json.Unmarshal(redFlagsJSON, &redFlags); err == nil {
			result.Response.RedFlags = redFlags
		}
	}

	return &result, nil
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableBytes(v []byte) interface{} {
	if len(v) == 0 {
		return nil
	}
	return v
}

func emptyToNull(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}

