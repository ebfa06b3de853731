package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"asha-triage/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTriageRepo(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *TriageResultsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewTriageResultsRepository(db, zap.NewNop())
	return db, mock, repo
}

func sampleTriageResult() *models.TriageResult {
	age := 34
	gender := "female"
	return &models.TriageResult{
		TriageID: "triage-001",
		Request: models.TriageRequest{
			UserID:        "asha-worker-001",
			Symptoms:      "High fever with chills for two days",
			Language:      "hi-IN",
			PatientAge:    &age,
			PatientGender: &gender,
			Location:      &models.Location{District: "Pune", State: "Maharashtra"},
			VoiceInput:    true,
			Timestamp:     "2024-06-15T10:30:00Z",
		},
		Response: models.TriageResponse{
			UrgencyLevel:      models.UrgencyHigh,
			RiskScore:         0.75,
			RecommendedAction: "Visit PHC within 4 hours",
			ReferToPHC:        true,
			ConfidenceScore:   0.85,
			CitedGuideline:    "IPHS fever protocol",
			Reasoning:         "Sustained high fever",
			RedFlags:          []string{"persistent high fever"},
		},
		Metadata: models.TriageMetadata{
			ProcessingTimeMs:   950,
			TokensUsed:         420,
			RetrievedDocuments: 3,
			ModelVersion:       "model-v1",
			Timestamp:          "2024-06-15T10:30:05Z",
		},
	}
}

func TestCreateTriageResult_Success(t *testing.T) {
	db, mock, repo := setupTriageRepo(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO triage_results`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateTriageResult(context.Background(), sampleTriageResult())
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTriageResult_MissingTriageID(t *testing.T) {
	db, _, repo := setupTriageRepo(t)
	defer db.Close()

	result := sampleTriageResult()
	result.TriageID = ""

	err := repo.CreateTriageResult(context.Background(), result)
	assert.Error(t, err)
}

func TestCreateTriageResult_DBError(t *testing.T) {
	db, mock, repo := setupTriageRepo(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO triage_results`).
		WillReturnError(errors.New("connection lost"))

	err := repo.CreateTriageResult(context.Background(), sampleTriageResult())

	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "create_triage", storageErr.Op)
}

func triageRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"triage_id", "user_id", "symptoms", "language",
		"patient_age", "patient_gender", "location", "voice_input", "request_timestamp",
		"urgency_level", "risk_score", "recommended_action", "refer_to_phc",
		"confidence_score", "cited_guideline", "reasoning", "red_flags",
		"processing_time_ms", "tokens_used", "guardrails_triggered",
		"retrieved_documents", "model_version", "result_timestamp",
	})
}

func TestGetTriageResult_Success(t *testing.T) {
	db, mock, repo := setupTriageRepo(t)
	defer db.Close()

	rows := triageRows().AddRow(
		"triage-001", "asha-worker-001", "High fever with chills", "hi-IN",
		34, "female", []byte(`{"district":"Pune","state":"Maharashtra"}`), true, "2024-06-15T10:30:00Z",
		"high", 0.75, "Visit PHC within 4 hours", true,
		0.85, "IPHS fever protocol", "Sustained high fever", []byte(`["persistent high fever"]`),
		950, 420, false,
		3, "model-v1", "2024-06-15T10:30:05Z",
	)

	mock.ExpectQuery(`SELECT .+ FROM triage_results`).
		WithArgs("triage-001").
		WillReturnRows(rows)

	result, err := repo.GetTriageResult(context.Background(), "triage-001")
	require.NoError(t, err)

	assert.Equal(t, "triage-001", result.TriageID)
	assert.Equal(t, models.UrgencyHigh, result.Response.UrgencyLevel)
	require.NotNil(t, result.Request.PatientAge)
	assert.Equal(t, 34, *result.Request.PatientAge)
	require.NotNil(t, result.Request.Location)
	assert.Equal(t, "Pune", result.Request.Location.District)
	assert.Equal(t, []string{"persistent high fever"}, result.Response.RedFlags)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTriageResult_NotFound(t *testing.T) {
	db, mock, repo := setupTriageRepo(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM triage_results`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetTriageResult(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListUserTriageHistory_DefaultAndClampedLimit(t *testing.T) {
	db, mock, repo := setupTriageRepo(t)
	defer db.Close()

	// limit <= 0 时使用默认 10
	mock.ExpectQuery(`SELECT .+ FROM triage_results`).
		WithArgs("asha-worker-001", 10).
		WillReturnRows(triageRows())

	results, err := repo.ListUserTriageHistory(context.Background(), "asha-worker-001", 0)
	require.NoError(t, err)
	assert.Len(t, results, 0)

	// 超出上限时钳制到 100
	mock.ExpectQuery(`SELECT .+ FROM triage_results`).
		WithArgs("asha-worker-001", 100).
		WillReturnRows(triageRows())

	_, err = repo.ListUserTriageHistory(context.Background(), "asha-worker-001", 500)
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
