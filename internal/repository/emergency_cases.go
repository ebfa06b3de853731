package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"asha-triage/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// emergencyRetention 紧急升级记录保留期（约180天，比分诊记录更长）
const emergencyRetention = 180 * 24 * time.Hour

// EmergencyCasesRepository 紧急升级记录仓库
type EmergencyCasesRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEmergencyCasesRepository 创建紧急升级记录仓库
func NewEmergencyCasesRepository(db *sql.DB, logger *zap.Logger) *EmergencyCasesRepository {
	return &EmergencyCasesRepository{
		db:     db,
		logger: logger,
	}
}

// CreateEmergencyCase 写入紧急升级记录，返回生成的 emergency_id
func (r *EmergencyCasesRepository) CreateEmergencyCase(ctx context.Context, escalation *models.EmergencyEscalation) (string, error) {
	if escalation.TriageID == "" {
		return "", fmt.Errorf("triage_id is required")
	}

	emergencyID := uuid.New().String()

	var coordinatesJSON []byte
	if escalation.Location.Coordinates != nil {
		data, err := json.Marshal(escalation.Location.Coordinates)
		if err != nil {
			return "", &StorageError{Op: "create_emergency", Err: err}
		}
		coordinatesJSON = data
	}

	query := `
		INSERT INTO emergency_cases (
			emergency_id, triage_id, urgency_level,
			patient_age, patient_gender, symptoms,
			district, state, coordinates,
			phc_name, phc_distance_km, phc_contact,
			referral_note, escalated_at, notification_sent, status, expires_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		emergencyID,
		escalation.TriageID,
		string(escalation.UrgencyLevel),
		nullableInt(escalation.PatientInfo.Age),
		nullableString(escalation.PatientInfo.Gender),
		escalation.PatientInfo.Symptoms,
		escalation.Location.District,
		escalation.Location.State,
		nullableBytes(coordinatesJSON),
		escalation.NearestPHC.Name,
		escalation.NearestPHC.Distance,
		escalation.NearestPHC.Contact,
		escalation.ReferralNote,
		escalation.Timestamp,
		escalation.NotificationSent,
		string(escalation.Status),
		time.Now().Add(emergencyRetention),
	)
	if err != nil {
		return "", &StorageError{Op: "create_emergency", Err: err}
	}

	r.logger.Info("Emergency case stored",
		zap.String("emergency_id", emergencyID),
		zap.String("triage_id", escalation.TriageID),
		zap.String("district", escalation.Location.District),
	)

	return emergencyID, nil
}

const emergencySelectColumns = `
	emergency_id, triage_id, urgency_level,
	patient_age, patient_gender, symptoms,
	district, state, coordinates,
	phc_name, phc_distance_km, phc_contact,
	referral_note, escalated_at, notification_sent, status
`

// GetEmergencyCase 根据 emergency_id 获取升级记录
func (r *EmergencyCasesRepository) GetEmergencyCase(ctx context.Context, emergencyID string) (*models.EmergencyCase, error) {
	if emergencyID == "" {
		return nil, fmt.Errorf("emergency_id is required")
	}

	query := `
		SELECT ` + emergencySelectColumns + `
		FROM emergency_cases
		WHERE emergency_id = $1
	`

	row := r.db.QueryRowContext(ctx, query, emergencyID)
	result, err := scanEmergencyCase(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, &StorageError{Op: "get_emergency", Err: err}
	}

	return result, nil
}

// ListEmergencyCases 按区和状态查询升级记录（升级时间倒序）
// status 为空时不过滤状态
func (r *EmergencyCasesRepository) ListEmergencyCases(ctx context.Context, district string, status models.EmergencyStatus, limit int) ([]*models.EmergencyCase, error) {
	if district == "" {
		return nil, fmt.Errorf("district is required")
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	query := `
		SELECT ` + emergencySelectColumns + `
		FROM emergency_cases
		WHERE district = $1
	`
	args := []interface{}{district}

	if status != "" {
		query += ` AND status = $2`
		args = append(args, string(status))
	}

	query += fmt.Sprintf(` ORDER BY escalated_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StorageError{Op: "list_emergencies", Err: err}
	}
	defer rows.Close()

	var cases []*models.EmergencyCase
	for rows.Next() {
		c, err := scanEmergencyCase(rows)
		if err != nil {
			return nil, &StorageError{Op: "list_emergencies", Err: err}
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list_emergencies", Err: err}
	}

	return cases, nil
}

// UpdateEmergencyStatus 更新升级记录状态
// 状态机校验由服务层负责，这里只执行写入
func (r *EmergencyCasesRepository) UpdateEmergencyStatus(ctx context.Context, emergencyID string, status models.EmergencyStatus) error {
	if emergencyID == "" {
		return fmt.Errorf("emergency_id is required")
	}

	query := `
		UPDATE emergency_cases
		SET status = $1, updated_at = NOW()
		WHERE emergency_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, string(status), emergencyID)
	if err != nil {
		return &StorageError{Op: "update_emergency_status", Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &StorageError{Op: "update_emergency_status", Err: err}
	}
	if affected == 0 {
		return ErrNotFound
	}

	r.logger.Info("Emergency status updated",
		zap.String("emergency_id", emergencyID),
		zap.String("status", string(status)),
	)

	return nil
}

// scanEmergencyCase 从查询行重建 EmergencyCase
func scanEmergencyCase(s scanner) (*models.EmergencyCase, error) {
	var c models.EmergencyCase
	var patientAge sql.NullInt64
	var patientGender sql.NullString
	var coordinatesJSON []byte
	var urgencyLevel, status string

	err := s.Scan(
		&c.EmergencyID,
		&c.TriageID,
		&urgencyLevel,
		&patientAge,
		&patientGender,
		&c.PatientInfo.Symptoms,
		&c.Location.District,
		&c.Location.State,
		&coordinatesJSON,
		&c.NearestPHC.Name,
		&c.NearestPHC.Distance,
		&c.NearestPHC.Contact,
		&c.ReferralNote,
		&c.Timestamp,
		&c.NotificationSent,
		&status,
	)
	if err != nil {
		return nil, err
	}

	c.UrgencyLevel = models.UrgencyLevel(urgencyLevel)
	c.Status = models.EmergencyStatus(status)

	if patientAge.Valid {
		age := int(patientAge.Int64)
		c.PatientInfo.Age = &age
	}
	if patientGender.Valid {
		c.PatientInfo.Gender = &patientGender.String
	}
	if len(coordinatesJSON) > 0 {
		var coordinates models.Coordinates
		if err := json.Unmarshal(coordinatesJSON, &coordinates); err == nil {
			c.Location.Coordinates = &coordinates
		}
	}

	return &c, nil
}
