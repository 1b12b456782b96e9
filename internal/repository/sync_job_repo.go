package repository

import (
	"context"
	"errors"

	"github.com/harbordocs/harbor/internal/domain"
	"gorm.io/gorm"
)

// SyncJobRepository persists Drive sync job records.
type SyncJobRepository struct {
	db *gorm.DB
}

// NewSyncJobRepository creates a new SyncJobRepository.
func NewSyncJobRepository(db *gorm.DB) *SyncJobRepository {
	return &SyncJobRepository{db: db}
}

// Create inserts a new sync job record.
func (r *SyncJobRepository) Create(ctx context.Context, job *domain.SyncJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// Update saves changes to an existing sync job.
func (r *SyncJobRepository) Update(ctx context.Context, job *domain.SyncJob) error {
	return r.db.WithContext(ctx).Save(job).Error
}

// GetByID retrieves a sync job by ID.
func (r *SyncJobRepository) GetByID(ctx context.Context, id string) (*domain.SyncJob, error) {
	var job domain.SyncJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// RecentByUser retrieves a user's most recent sync jobs, newest first.
func (r *SyncJobRepository) RecentByUser(ctx context.Context, userID string, limit int) ([]domain.SyncJob, error) {
	var jobs []domain.SyncJob
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// LastCompleted returns the most recent completed sync job for a user, or
// ErrNotFound when the user has never synced.
func (r *SyncJobRepository) LastCompleted(ctx context.Context, userID string) (*domain.SyncJob, error) {
	var job domain.SyncJob
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, domain.JobStatusCompleted).
		Order("completed_at DESC").
		First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// HasRunning reports whether the user already has a sync job in progress.
func (r *SyncJobRepository) HasRunning(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.SyncJob{}).
		Where("user_id = ? AND status = ?", userID, domain.JobStatusRunning).
		Count(&count).Error
	return count > 0, err
}
