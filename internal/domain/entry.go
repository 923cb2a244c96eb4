package domain

import "time"

// Entry is one accepted step submission. (UserID, RecordID) is the primary key;
// entries are append-only.
type Entry struct {
	UserID    string `json:"user_id" dynamodbav:"user_id"`
	RecordID  string `json:"record_id" dynamodbav:"record_id"`
	Timestamp int64  `json:"timestamp" dynamodbav:"timestamp"` // epoch milliseconds, server-set
	StepCount int64  `json:"step_count" dynamodbav:"step_count"`
}

// SubmitStepsRequest is the payload accepted from clients.
type SubmitStepsRequest struct {
	Steps *int64 `json:"steps" validate:"required,min=0"`
}

// DailyGuard marks that a user already has an accepted entry on Day (UTC, YYYY-MM-DD).
type DailyGuard struct {
	UserID    string `dynamodbav:"user_id"`
	Day       string `dynamodbav:"day"`
	RecordID  string `dynamodbav:"record_id"`
	ExpiresAt int64  `dynamodbav:"expires_at"` // TTL epoch seconds
}

// DayLayout formats the UTC calendar day used for daily guards.
const DayLayout = "2006-01-02"

// StartOfDayUTC truncates t to 00:00:00.000 of its UTC calendar day.
func StartOfDayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DayUTC returns the UTC calendar day of t as YYYY-MM-DD.
func DayUTC(t time.Time) string {
	return t.UTC().Format(DayLayout)
}
