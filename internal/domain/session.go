package domain

import (
	"errors"
	"regexp"
	"time"
)

// ErrSessionNotFound is returned when no active row matches the given uuid.
var ErrSessionNotFound = errors.New("training session not found")

// ValidationError marks a record rejected before it reached storage. The
// message names the first failing field and is safe to return to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	uuidRe = regexp.MustCompile(`(?i)^[a-f0-9-]{36}$`)
)

// IsISODate reports whether value is a YYYY-MM-DD date string.
func IsISODate(value string) bool {
	return dateRe.MatchString(value)
}

// IsRecordUUID reports whether value looks like a client-generated v4 uuid.
func IsRecordUUID(value string) bool {
	return uuidRe.MatchString(value)
}

// TrainingSession is the sole entity: one workout record identified by a
// client-generated uuid, soft-deleted via the Deleted flag and tracked for
// incremental sync through UpdatedAt.
type TrainingSession struct {
	ID              int64
	SessionDate     string
	ActivityType    string
	DurationMinutes int
	EnergyLevel     int
	SessionEmphasis string
	RPE             *int
	Notes           *string
	UUID            string
	Deleted         int
	UpdatedAt       time.Time
}

// Validate checks every field constraint and returns a ValidationError
// naming the first failing field. Duration 0 is valid (rest days).
func (s TrainingSession) Validate() error {
	if !IsISODate(s.SessionDate) {
		return &ValidationError{Message: "session_date must be YYYY-MM-DD"}
	}
	if s.ActivityType == "" {
		return &ValidationError{Message: "activity_type required"}
	}
	if s.DurationMinutes < 0 || s.DurationMinutes > 300 {
		return &ValidationError{Message: "duration_minutes invalid"}
	}
	if s.EnergyLevel < 1 || s.EnergyLevel > 5 {
		return &ValidationError{Message: "energy_level invalid"}
	}
	if s.SessionEmphasis == "" {
		return &ValidationError{Message: "session_emphasis required"}
	}
	if s.RPE != nil && (*s.RPE < 1 || *s.RPE > 10) {
		return &ValidationError{Message: "rpe must be 1-10 or null"}
	}
	if !IsRecordUUID(s.UUID) {
		return &ValidationError{Message: "uuid required (36 chars)"}
	}
	return nil
}
