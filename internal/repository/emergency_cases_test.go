package repository

import (
	"context"
	"database/sql"
	"testing"

	"asha-triage/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupEmergencyRepo(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *EmergencyCasesRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewEmergencyCasesRepository(db, zap.NewNop())
	return db, mock, repo
}

func sampleEscalation() *models.EmergencyEscalation {
	age := 45
	gender := "male"
	return &models.EmergencyEscalation{
		TriageID:     "triage-001",
		UrgencyLevel: models.UrgencyEmergency,
		PatientInfo: models.PatientInfo{
			Age:      &age,
			Gender:   &gender,
			Symptoms: "Crushing chest pain",
		},
		Location: models.EscalationLocation{
			District: "Pune",
			State:    "Maharashtra",
			Coordinates: &models.Coordinates{
				Latitude:  18.5204,
				Longitude: 73.8567,
			},
		},
		NearestPHC: models.NearestPHC{
			Name:     "District Primary Health Center",
			Distance: 5.0,
			Contact:  "108",
		},
		ReferralNote:     "EMERGENCY REFERRAL NOTE\n...",
		Timestamp:        "2024-06-15T10:30:06Z",
		NotificationSent: true,
		Status:           models.EmergencyStatusPending,
	}
}

func TestCreateEmergencyCase_Success(t *testing.T) {
	db, mock, repo := setupEmergencyRepo(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO emergency_cases`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	emergencyID, err := repo.CreateEmergencyCase(context.Background(), sampleEscalation())
	require.NoError(t, err)
	assert.NotEmpty(t, emergencyID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEmergencyCase_MissingTriageID(t *testing.T) {
	db, _, repo := setupEmergencyRepo(t)
	defer db.Close()

	escalation := sampleEscalation()
	escalation.TriageID = ""

	_, err := repo.CreateEmergencyCase(context.Background(), escalation)
	assert.Error(t, err)
}

func emergencyRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"emergency_id", "triage_id", "urgency_level",
		"patient_age", "patient_gender", "symptoms",
		"district", "state", "coordinates",
		"phc_name", "phc_distance_km", "phc_contact",
		"referral_note", "escalated_at", "notification_sent", "status",
	})
}

func TestGetEmergencyCase_Success(t *testing.T) {
	db, mock, repo := setupEmergencyRepo(t)
	defer db.Close()

	rows := emergencyRows().AddRow(
		"emg-001", "triage-001", "emergency",
		45, "male", "Crushing chest pain",
		"Pune", "Maharashtra", []byte(`{"latitude":18.5204,"longitude":73.8567}`),
		"District Primary Health Center", 5.0, "108",
		"EMERGENCY REFERRAL NOTE", "2024-06-15T10:30:06Z", true, "pending",
	)

	mock.ExpectQuery(`SELECT .+ FROM emergency_cases`).
		WithArgs("emg-001").
		WillReturnRows(rows)

	c, err := repo.GetEmergencyCase(context.Background(), "emg-001")
	require.NoError(t, err)

	assert.Equal(t, "emg-001", c.EmergencyID)
	assert.Equal(t, models.UrgencyEmergency, c.UrgencyLevel)
	assert.Equal(t, models.EmergencyStatusPending, c.Status)
	require.NotNil(t, c.Location.Coordinates)
	assert.Equal(t, 18.5204, c.Location.Coordinates.Latitude)
	require.NotNil(t, c.PatientInfo.Age)
	assert.Equal(t, 45, *c.PatientInfo.Age)
}

func TestGetEmergencyCase_NotFound(t *testing.T) {
	db, mock, repo := setupEmergencyRepo(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM emergency_cases`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetEmergencyCase(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListEmergencyCases_WithStatusFilter(t *testing.T) {
	db, mock, repo := setupEmergencyRepo(t)
	defer db.Close()

	rows := emergencyRows().AddRow(
		"emg-001", "triage-001", "emergency",
		nil, nil, "Chest pain",
		"Pune", "Maharashtra", nil,
		"PHC", 5.0, "108",
		"note", "2024-06-15T10:30:06Z", false, "pending",
	)

	mock.ExpectQuery(`SELECT .+ FROM emergency_cases`).
		WithArgs("Pune", "pending", 20).
		WillReturnRows(rows)

	cases, err := repo.ListEmergencyCases(context.Background(), "Pune", models.EmergencyStatusPending, 20)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Nil(t, cases[0].PatientInfo.Age)
	assert.Nil(t, cases[0].Location.Coordinates)
}

func TestListEmergencyCases_RequiresDistrict(t *testing.T) {
	db, _, repo := setupEmergencyRepo(t)
	defer db.Close()

	_, err := repo.ListEmergencyCases(context.Background(), "", "", 20)
	assert.Error(t, err)
}

func TestUpdateEmergencyStatus_Success(t *testing.T) {
	db, mock, repo := setupEmergencyRepo(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE emergency_cases`).
		WithArgs("acknowledged", "emg-001").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateEmergencyStatus(context.Background(), "emg-001", models.EmergencyStatusAcknowledged)
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateEmergencyStatus_NotFound(t *testing.T) {
	db, mock, repo := setupEmergencyRepo(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE emergency_cases`).
		WithArgs("resolved", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateEmergencyStatus(context.Background(), "missing", models.EmergencyStatusResolved)
	assert.ErrorIs(t, err, ErrNotFound)
}
