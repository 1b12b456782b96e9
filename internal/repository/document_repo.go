package repository

import (
	"context"
	"errors"
	"time"

	"github.com/harbordocs/harbor/internal/domain"
	"gorm.io/gorm"
)

// DocumentRepository handles document and chunk data operations.
type DocumentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new DocumentRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *DocumentRepository: repository instance bound to db.
func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts a new document record.
func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

// Update updates an existing document record.
func (r *DocumentRepository) Update(ctx context.Context, doc *domain.Document) error {
	return r.db.WithContext(ctx).Save(doc).Error
}

// GetByID retrieves a document by ID without its chunks.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	var doc domain.Document
	if err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// GetByIDForUser retrieves a document by ID scoped to its owner.
func (r *DocumentRepository) GetByIDForUser(ctx context.Context, id, userID string) (*domain.Document, error) {
	var doc domain.Document
	err := r.db.WithContext(ctx).First(&doc, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// GetWithChunks retrieves a document with its chunks ordered by chunk index.
func (r *DocumentRepository) GetWithChunks(ctx context.Context, id, userID string) (*domain.Document, error) {
	var doc domain.Document
	err := r.db.WithContext(ctx).
		Preload("Chunks", func(db *gorm.DB) *gorm.DB {
			return db.Order("chunk_index ASC")
		}).
		First(&doc, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// GetByGoogleFileID retrieves a document by its Drive file ID.
func (r *DocumentRepository) GetByGoogleFileID(ctx context.Context, fileID string) (*domain.Document, error) {
	var doc domain.Document
	if err := r.db.WithContext(ctx).First(&doc, "google_file_id = ?", fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// ListOptions filters and pages a document listing.
type ListOptions struct {
	Status string
	Search string
	Limit  int
	Offset int
}

// List retrieves a user's documents with optional status/name filters.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: owning user.
//   - opts: filter and pagination options.
// Returns:
//   - []domain.Document: page of documents, newest first.
//   - int64: total matching count.
//   - error: non-nil if retrieval fails.
func (r *DocumentRepository) List(ctx context.Context, userID string, opts ListOptions) ([]domain.Document, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Document{}).Where("user_id = ?", userID)
	if opts.Status != "" {
		q = q.Where("status = ?", opts.Status)
	}
	if opts.Search != "" {
		q = q.Where("name LIKE ?", "%"+opts.Search+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var docs []domain.Document
	err := q.Order("created_at DESC").
		Limit(opts.Limit).
		Offset(opts.Offset).
		Find(&docs).Error
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// Delete removes a document and its chunks.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&domain.DocumentChunk{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Document{}, "id = ?", id).Error
	})
}

// UpdateStatus sets the processing status of a document.
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error {
	return r.db.WithContext(ctx).Model(&domain.Document{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// MarkFailed sets a document FAILED and records the failure reason in its
// metadata without discarding other metadata keys.
func (r *DocumentRepository) MarkFailed(ctx context.Context, id, reason string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc domain.Document
		if err := tx.First(&doc, "id = ?", id).Error; err != nil {
			return err
		}
		if doc.Metadata == nil {
			doc.Metadata = domain.JSONMap{}
		}
		doc.Metadata["error"] = reason
		return tx.Model(&domain.Document{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"status":   domain.DocumentStatusFailed,
				"metadata": doc.Metadata,
			}).Error
	})
}

// GetChunks retrieves a document's chunks ordered by chunk index.
func (r *DocumentRepository) GetChunks(ctx context.Context, documentID string) ([]domain.DocumentChunk, error) {
	var chunks []domain.DocumentChunk
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("chunk_index ASC").
		Find(&chunks).Error
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// ReplaceChunks atomically replaces a document's chunk set and marks it
// completed. Old chunks are deleted, the new set inserted, and the document
// status flipped to COMPLETED in one transaction so reprocessing converges.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - documentID: document whose chunks are replaced.
//   - chunks: new chunk set, chunk_index contiguous from 0.
// Returns:
//   - error: non-nil if any step of the transaction fails.
func (r *DocumentRepository) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.DocumentChunk) error {
	now := time.Now()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", documentID).Delete(&domain.DocumentChunk{}).Error; err != nil {
			return err
		}
		if len(chunks) > 0 {
			if err := tx.Create(&chunks).Error; err != nil {
				return err
			}
		}
		return tx.Model(&domain.Document{}).
			Where("id = ?", documentID).
			Updates(map[string]interface{}{
				"status":       domain.DocumentStatusCompleted,
				"processed_at": now,
			}).Error
	})
}

// CountByUser returns the total number of documents owned by a user.
func (r *DocumentRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Document{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// CountProcessedSince returns the number of documents processed in [since, until).
func (r *DocumentRepository) CountProcessedSince(ctx context.Context, userID string, since, until time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Document{}).
		Where("user_id = ? AND processed_at >= ? AND processed_at < ?", userID, since, until).
		Count(&count).Error
	return count, err
}

// RecentByUser retrieves a user's most recently synced documents.
func (r *DocumentRepository) RecentByUser(ctx context.Context, userID string, limit int) ([]domain.Document, error) {
	var docs []domain.Document
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// ListPendingByUser retrieves a user's documents awaiting processing.
func (r *DocumentRepository) ListPendingByUser(ctx context.Context, userID string) ([]domain.Document, error) {
	var docs []domain.Document
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, domain.DocumentStatusPending).
		Order("created_at ASC").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}
