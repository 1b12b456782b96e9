package domain

import "time"

// DocumentStatus represents the processing state of a synced document.
// Transitions: PENDING -> PROCESSING -> COMPLETED | FAILED. A changed source
// file resets the document to PENDING.
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "PENDING"
	DocumentStatusProcessing DocumentStatus = "PROCESSING"
	DocumentStatusCompleted  DocumentStatus = "COMPLETED"
	DocumentStatusFailed     DocumentStatus = "FAILED"
)

// Document represents a file synced from Google Drive.
type Document struct {
	ID                 string          `gorm:"type:text;primaryKey" json:"id"`
	UserID             string          `gorm:"type:text;not null;index:idx_documents_user" json:"user_id"`
	GoogleFileID       string          `gorm:"type:text;not null;uniqueIndex:idx_documents_google_file" json:"google_file_id"`
	Name               string          `gorm:"type:text;not null" json:"name"`
	MimeType           string          `gorm:"type:text" json:"mime_type"`
	FileSize           int64           `json:"file_size"`
	GoogleModifiedTime time.Time       `json:"google_modified_time"`
	StorageKey         string          `gorm:"type:text" json:"storage_key,omitempty"`
	Status             DocumentStatus  `gorm:"type:text;index:idx_documents_status;default:PENDING" json:"status"`
	ProcessedAt        *time.Time      `json:"processed_at,omitempty"`
	Metadata           JSONMap         `gorm:"type:text" json:"metadata,omitempty"`
	Chunks             []DocumentChunk `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"chunks,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// TableName returns the database table name for Document.
func (Document) TableName() string {
	return "documents"
}

// DocumentChunk is one contiguous slice of a document's text, the unit of
// embedding and retrieval. The chunk set for a document is replaced wholesale
// whenever the document is reprocessed; ChunkIndex is contiguous from 0.
type DocumentChunk struct {
	ID         string    `gorm:"type:text;primaryKey" json:"id"`
	DocumentID string    `gorm:"type:text;not null;index:idx_chunks_document" json:"document_id"`
	VectorID   string    `gorm:"type:text;not null" json:"vector_id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	ChunkIndex int       `gorm:"not null" json:"chunk_index"`
	TokenCount int       `gorm:"not null" json:"token_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the database table name for DocumentChunk.
func (DocumentChunk) TableName() string {
	return "document_chunks"
}
