package repository

import (
	"context"
	"errors"
	"time"

	"github.com/harbordocs/harbor/internal/domain"
	"gorm.io/gorm"
)

// TemplateRepository handles PDF template and generation records.
type TemplateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository creates a new TemplateRepository.
func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Create inserts a new template record.
func (r *TemplateRepository) Create(ctx context.Context, tmpl *domain.PdfTemplate) error {
	return r.db.WithContext(ctx).Create(tmpl).Error
}

// GetByID retrieves a template by ID.
func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*domain.PdfTemplate, error) {
	var tmpl domain.PdfTemplate
	if err := r.db.WithContext(ctx).First(&tmpl, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tmpl, nil
}

// GetByIDForUser retrieves a template by ID scoped to its owner.
func (r *TemplateRepository) GetByIDForUser(ctx context.Context, id, userID string) (*domain.PdfTemplate, error) {
	var tmpl domain.PdfTemplate
	err := r.db.WithContext(ctx).First(&tmpl, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tmpl, nil
}

// ListByUser retrieves a user's templates, newest first.
func (r *TemplateRepository) ListByUser(ctx context.Context, userID string) ([]domain.PdfTemplate, error) {
	var templates []domain.PdfTemplate
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&templates).Error
	if err != nil {
		return nil, err
	}
	return templates, nil
}

// UpdatePrompts replaces the per-field LLM prompts of a template.
func (r *TemplateRepository) UpdatePrompts(ctx context.Context, id string, prompts domain.PromptMap) error {
	return r.db.WithContext(ctx).Model(&domain.PdfTemplate{}).
		Where("id = ?", id).
		Update("llm_prompts", prompts).Error
}

// CountByUser returns the total number of templates owned by a user.
func (r *TemplateRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.PdfTemplate{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// CreateGeneration records one template fill.
func (r *TemplateRepository) CreateGeneration(ctx context.Context, gen *domain.PdfGeneration) error {
	return r.db.WithContext(ctx).Create(gen).Error
}

// RecentGenerationsByUser retrieves a user's most recent template fills with
// the template preloaded for display names.
func (r *TemplateRepository) RecentGenerationsByUser(ctx context.Context, userID string, limit int) ([]domain.PdfGeneration, error) {
	var generations []domain.PdfGeneration
	err := r.db.WithContext(ctx).
		Preload("Template").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&generations).Error
	if err != nil {
		return nil, err
	}
	return generations, nil
}

// CountGenerationsSince returns the number of fills recorded since a point in time.
func (r *TemplateRepository) CountGenerationsSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.PdfGeneration{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error
	return count, err
}
