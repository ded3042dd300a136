package database

import (
	"testing"

	"emergency-triage-service/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveIncident(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewFromDB(db)

	summary := &models.DispatchSummary{
		IncidentID:      "11111111-2222-3333-4444-555555555555",
		CallerID:        "caller-1",
		Location:        "camps bay",
		IncidentType:    "Water Rescue - Drowning",
		NumberOfVictims: 1,
		Condition:       "Unconscious/unresponsive",
		ResponderNeeded: "Marine Rescue + EMS",
		Hazards:         []string{"rip current", "rocks"},
		SeverityScore:   10.0,
		Category:        models.CategoryCatastrophic,
		DispatchLevel:   models.DispatchMassCasualty,
		BriefingText:    "DISPATCH SUMMARY",
	}

	mock.ExpectExec("INSERT INTO incidents").
		WithArgs(
			summary.IncidentID,
			summary.CallerID,
			summary.Location,
			summary.IncidentType,
			summary.NumberOfVictims,
			summary.Condition,
			summary.ResponderNeeded,
			"rip current, rocks",
			summary.SeverityScore,
			summary.Category,
			summary.DispatchLevel,
			summary.BriefingText,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = store.SaveIncident(summary)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveIncidentError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewFromDB(db)

	mock.ExpectExec("INSERT INTO incidents").WillReturnError(assert.AnError)

	err = store.SaveIncident(&models.DispatchSummary{IncidentID: "x"})
	assert.Error(t, err)
}

func TestCreateIncidentsTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewFromDB(db)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS incidents").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, store.CreateIncidentsTable())
	assert.NoError(t, mock.ExpectationsWereMet())
}
