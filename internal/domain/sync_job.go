package domain

import "time"

// JobStatus represents the status of a sync job.
type JobStatus string

const (
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
)

// JobTypeDriveSync is the only job type currently recorded.
const JobTypeDriveSync = "DRIVE_SYNC"

// SyncJob records one Google Drive sync run for a user.
type SyncJob struct {
	ID             string     `gorm:"type:text;primaryKey" json:"id"`
	UserID         string     `gorm:"type:text;not null;index:idx_sync_jobs_user" json:"user_id"`
	JobType        string     `gorm:"type:text;not null" json:"job_type"`
	Status         JobStatus  `gorm:"type:text;default:RUNNING" json:"status"`
	FilesTotal     int        `json:"files_total"`
	FilesProcessed int        `json:"files_processed"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	Error          string     `gorm:"type:text" json:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// TableName returns the database table name for SyncJob.
func (SyncJob) TableName() string {
	return "sync_jobs"
}
