package models

import "time"

// JobState tracks a scheduled job through its lifecycle.
type JobState string

const (
	JobPending   JobState = "pending"
	JobFired     JobState = "fired"
	JobCompleted JobState = "completed"
	JobCancelled JobState = "cancelled"
	// JobFailed marks a fired job whose recipient set could not be resolved
	// (registry listing failed). Partial delivery failure is not a job failure.
	JobFailed JobState = "failed"
)

// RecipientMode selects how a job's recipients are resolved at fire time.
type RecipientMode string

const (
	// ModeSingle delivers to the one token captured at acceptance.
	ModeSingle RecipientMode = "single"
	// ModeRegistry snapshots all registry members when the timer fires, so
	// tokens registered after acceptance are included.
	ModeRegistry RecipientMode = "registry"
)

// ScheduledJob is the persisted form of a deferred notification. Rows in the
// pending state are re-armed at process start.
type ScheduledJob struct {
	ID           string `gorm:"primaryKey"`
	Title        string
	Body         string
	Mode         RecipientMode
	Recipient    string
	FireAt       time.Time
	State        JobState
	SuccessCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Payload rebuilds the notification payload stored on the row.
func (j *ScheduledJob) Payload() NotificationPayload {
	return NotificationPayload{Title: j.Title, Body: j.Body}
}
