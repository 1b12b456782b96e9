package repository

import (
	"context"
	"time"

	"github.com/harbordocs/harbor/internal/domain"
	"gorm.io/gorm"
)

// SearchQueryRepository persists the search history used by the activity feed
// and dashboard counters.
type SearchQueryRepository struct {
	db *gorm.DB
}

// NewSearchQueryRepository creates a new SearchQueryRepository.
func NewSearchQueryRepository(db *gorm.DB) *SearchQueryRepository {
	return &SearchQueryRepository{db: db}
}

// Create inserts a search history record.
func (r *SearchQueryRepository) Create(ctx context.Context, query *domain.SearchQuery) error {
	return r.db.WithContext(ctx).Create(query).Error
}

// RecentByUser retrieves a user's most recent searches, newest first.
func (r *SearchQueryRepository) RecentByUser(ctx context.Context, userID string, limit int) ([]domain.SearchQuery, error) {
	var queries []domain.SearchQuery
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&queries).Error
	if err != nil {
		return nil, err
	}
	return queries, nil
}

// CountSince returns the number of searches recorded since a point in time.
func (r *SearchQueryRepository) CountSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.SearchQuery{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error
	return count, err
}
