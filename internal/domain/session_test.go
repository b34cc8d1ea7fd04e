package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func validSession() TrainingSession {
	return TrainingSession{
		SessionDate:     "2024-01-01",
		ActivityType:    "run",
		DurationMinutes: 30,
		EnergyLevel:     3,
		SessionEmphasis: "physical",
		UUID:            uuid.NewString(),
	}
}

func TestValidateAcceptsFullRecord(t *testing.T) {
	rec := validSession()
	rec.RPE = intPtr(7)
	notes := "tempo intervals"
	rec.Notes = &notes
	require.NoError(t, rec.Validate())
}

func TestValidateAcceptsRestDay(t *testing.T) {
	rec := validSession()
	rec.ActivityType = "rest"
	rec.DurationMinutes = 0
	require.NoError(t, rec.Validate())
}

func TestValidateFieldConstraints(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*TrainingSession)
		message string
	}{
		{"empty date", func(s *TrainingSession) { s.SessionDate = "" }, "session_date must be YYYY-MM-DD"},
		{"reversed date", func(s *TrainingSession) { s.SessionDate = "01-01-2024" }, "session_date must be YYYY-MM-DD"},
		{"empty activity", func(s *TrainingSession) { s.ActivityType = "" }, "activity_type required"},
		{"negative duration", func(s *TrainingSession) { s.DurationMinutes = -1 }, "duration_minutes invalid"},
		{"duration over cap", func(s *TrainingSession) { s.DurationMinutes = 301 }, "duration_minutes invalid"},
		{"energy low", func(s *TrainingSession) { s.EnergyLevel = 0 }, "energy_level invalid"},
		{"energy high", func(s *TrainingSession) { s.EnergyLevel = 6 }, "energy_level invalid"},
		{"empty emphasis", func(s *TrainingSession) { s.SessionEmphasis = "" }, "session_emphasis required"},
		{"rpe low", func(s *TrainingSession) { s.RPE = intPtr(0) }, "rpe must be 1-10 or null"},
		{"rpe high", func(s *TrainingSession) { s.RPE = intPtr(11) }, "rpe must be 1-10 or null"},
		{"short uuid", func(s *TrainingSession) { s.UUID = "abc" }, "uuid required (36 chars)"},
		{"bad uuid chars", func(s *TrainingSession) { s.UUID = "zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz" }, "uuid required (36 chars)"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := validSession()
			tc.mutate(&rec)
			err := rec.Validate()
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, tc.message, verr.Message)
		})
	}
}

func TestValidateBoundaryValues(t *testing.T) {
	rec := validSession()
	rec.DurationMinutes = 300
	rec.EnergyLevel = 5
	rec.RPE = intPtr(10)
	require.NoError(t, rec.Validate())

	rec.EnergyLevel = 1
	rec.RPE = intPtr(1)
	require.NoError(t, rec.Validate())
}

func TestIsRecordUUID(t *testing.T) {
	require.True(t, IsRecordUUID(uuid.NewString()))
	// The check is case-insensitive, matching the upsert conflict target.
	require.True(t, IsRecordUUID("A1B2C3D4-0000-4000-8000-AABBCCDDEEFF"))
	require.False(t, IsRecordUUID(""))
	require.False(t, IsRecordUUID("a1b2c3d4"))
}
