package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/harbordocs/harbor/internal/domain"
	"github.com/harbordocs/harbor/internal/logger"
	"github.com/harbordocs/harbor/internal/repository"
	"github.com/harbordocs/harbor/internal/storage"
)

// failedStatusAttempts bounds retries of the FAILED status write so a broken
// database doesn't leave the document stuck in PROCESSING silently.
const failedStatusAttempts = 3

// ProcessorConfig holds tunables for the document pipeline.
type ProcessorConfig struct {
	ChunkSize       int
	ChunkOverlap    int
	UpsertBatchSize int
}

// ProcessorService runs the extract/chunk/embed/index pipeline for documents.
type ProcessorService struct {
	documentRepo *repository.DocumentRepository
	qdrantRepo   *repository.QdrantRepository
	embedding    EmbeddingProvider
	storage      storage.ObjectStorage
	chunker      *Chunker
	logger       *logger.Logger
	batchSize    int
}

// NewProcessorService creates a new ProcessorService.
// Parameters:
//   - documentRepo: repository for document and chunk records.
//   - qdrantRepo: vector store client.
//   - embedding: embedding provider.
//   - objectStorage: object storage holding raw document bytes.
//   - log: logger instance.
//   - cfg: pipeline tunables.
// Returns:
//   - *ProcessorService: initialized service.
//   - error: non-nil if the chunker parameters are invalid.
func NewProcessorService(
	documentRepo *repository.DocumentRepository,
	qdrantRepo *repository.QdrantRepository,
	embedding EmbeddingProvider,
	objectStorage storage.ObjectStorage,
	log *logger.Logger,
	cfg *ProcessorConfig,
) (*ProcessorService, error) {
	chunker, err := NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	return &ProcessorService{
		documentRepo: documentRepo,
		qdrantRepo:   qdrantRepo,
		embedding:    embedding,
		storage:      objectStorage,
		chunker:      chunker,
		logger:       log.WithField("component", "processor"),
		batchSize:    cfg.UpsertBatchSize,
	}, nil
}

// ChunkID derives the stable chunk identifier for a document position.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s-chunk-%d", documentID, index)
}

// VectorID derives a deterministic point UUID from a chunk ID so
// reprocessing a document overwrites its old vectors in place.
func VectorID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}

// ProcessDocument runs the full pipeline for one document: download raw
// bytes, extract text, chunk, embed, upsert vectors, then replace the chunk
// records and mark the document COMPLETED in one transaction. Any failure
// marks the document FAILED with the reason recorded in metadata.
func (s *ProcessorService) ProcessDocument(ctx context.Context, documentID string) error {
	doc, err := s.documentRepo.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}

	log := s.logger.WithField("document_id", doc.ID)
	start := time.Now()

	if err := s.documentRepo.UpdateStatus(ctx, doc.ID, domain.DocumentStatusProcessing); err != nil {
		return fmt.Errorf("failed to mark document processing: %w", err)
	}

	chunks, err := s.process(ctx, doc)
	if err != nil {
		log.WithField("error", err.Error()).Error("document processing failed")
		s.markFailed(ctx, doc.ID, err)
		return err
	}

	log.WithFields(logger.Fields{
		"count":       len(chunks),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("document processed")
	return nil
}

func (s *ProcessorService) process(ctx context.Context, doc *domain.Document) ([]domain.DocumentChunk, error) {
	reader, err := s.storage.Download(ctx, doc.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to download document: %w", err)
	}
	data, err := io.ReadAll(reader)
	reader.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	text, err := ExtractText(data, doc.MimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}

	pieces := s.chunker.Split(text)
	if len(pieces) == 0 {
		return nil, fmt.Errorf("document has no text content")
	}

	texts := make([]string, len(pieces))
	for i, p := range pieces {
		texts[i] = p.Content
	}

	embeddings, err := s.embedding.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}

	// Remove old vectors first so a shrunken document leaves no orphans.
	if err := s.qdrantRepo.DeleteByDocument(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("failed to clear old vectors: %w", err)
	}

	points := make([]repository.ChunkPoint, len(pieces))
	chunks := make([]domain.DocumentChunk, len(pieces))
	for i, p := range pieces {
		chunkID := ChunkID(doc.ID, p.Index)
		vectorID := VectorID(chunkID)

		points[i] = repository.ChunkPoint{
			ID:     vectorID,
			Vector: embeddings[i],
			Payload: repository.ChunkPayload{
				DocumentID:   doc.ID,
				DocumentName: doc.Name,
				ChunkIndex:   p.Index,
				TokenCount:   p.TokenCount,
				UserID:       doc.UserID,
				Content:      p.Content,
			},
		}
		chunks[i] = domain.DocumentChunk{
			ID:         chunkID,
			DocumentID: doc.ID,
			VectorID:   vectorID,
			Content:    p.Content,
			ChunkIndex: p.Index,
			TokenCount: p.TokenCount,
		}
	}

	if err := s.qdrantRepo.UpsertBatch(ctx, points, s.batchSize); err != nil {
		return nil, fmt.Errorf("failed to upsert vectors: %w", err)
	}

	if err := s.documentRepo.ReplaceChunks(ctx, doc.ID, chunks); err != nil {
		return nil, fmt.Errorf("failed to store chunks: %w", err)
	}

	return chunks, nil
}

// DeleteDocument removes a document entirely: its vectors, its stored bytes,
// and its database records. The storage delete is best-effort; an orphaned
// object never becomes reachable again once the record is gone.
func (s *ProcessorService) DeleteDocument(ctx context.Context, documentID, userID string) error {
	doc, err := s.documentRepo.GetByIDForUser(ctx, documentID, userID)
	if err != nil {
		return err
	}

	if err := s.qdrantRepo.DeleteByDocument(ctx, doc.ID); err != nil {
		return fmt.Errorf("failed to delete vectors: %w", err)
	}

	if doc.StorageKey != "" {
		if err := s.storage.Delete(ctx, doc.StorageKey); err != nil {
			s.logger.WithFields(logger.Fields{
				"document_id": doc.ID,
				"error":       err.Error(),
			}).Warn("failed to delete stored document bytes")
		}
	}

	return s.documentRepo.Delete(ctx, doc.ID)
}

// markFailed writes the FAILED status, retrying a few times so a transient
// database error doesn't strand the document in PROCESSING.
func (s *ProcessorService) markFailed(ctx context.Context, documentID string, cause error) {
	for attempt := 1; attempt <= failedStatusAttempts; attempt++ {
		err := s.documentRepo.MarkFailed(ctx, documentID, cause.Error())
		if err == nil {
			return
		}
		s.logger.WithFields(logger.Fields{
			"document_id": documentID,
			"attempt":     attempt,
			"error":       err.Error(),
		}).Warn("failed to record FAILED status")
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
}
