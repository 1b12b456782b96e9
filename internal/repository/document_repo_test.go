package repository

import (
	"context"
	"fmt"
	"net/url"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/harbordocs/harbor/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// A named in-memory database with a shared cache so every pooled
	// connection sees the same data, scoped to this test.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", url.PathEscape(t.Name()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Document{}, &domain.DocumentChunk{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

func seedDocument(t *testing.T, repo *DocumentRepository, id string, status domain.DocumentStatus, metadata domain.JSONMap) {
	t.Helper()
	doc := &domain.Document{
		ID:           id,
		UserID:       "user-1",
		GoogleFileID: "gfile-" + id,
		Name:         "Doc " + id,
		MimeType:     "application/pdf",
		Status:       status,
		Metadata:     metadata,
	}
	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("seed document: %v", err)
	}
}

func TestReplaceChunks(t *testing.T) {
	repo := NewDocumentRepository(newTestDB(t))
	ctx := context.Background()
	seedDocument(t, repo, "doc-1", domain.DocumentStatusProcessing, nil)

	old := []domain.DocumentChunk{
		{ID: "doc-1-chunk-0", DocumentID: "doc-1", VectorID: "v0", Content: "stale a", ChunkIndex: 0, TokenCount: 2},
		{ID: "doc-1-chunk-1", DocumentID: "doc-1", VectorID: "v1", Content: "stale b", ChunkIndex: 1, TokenCount: 2},
		{ID: "doc-1-chunk-2", DocumentID: "doc-1", VectorID: "v2", Content: "stale c", ChunkIndex: 2, TokenCount: 2},
	}
	if err := repo.ReplaceChunks(ctx, "doc-1", old); err != nil {
		t.Fatalf("first ReplaceChunks: %v", err)
	}

	fresh := []domain.DocumentChunk{
		{ID: "doc-1-chunk-0", DocumentID: "doc-1", VectorID: "v0", Content: "fresh a", ChunkIndex: 0, TokenCount: 2},
		{ID: "doc-1-chunk-1", DocumentID: "doc-1", VectorID: "v1", Content: "fresh b", ChunkIndex: 1, TokenCount: 2},
	}
	if err := repo.ReplaceChunks(ctx, "doc-1", fresh); err != nil {
		t.Fatalf("second ReplaceChunks: %v", err)
	}

	chunks, err := repo.GetChunks(ctx, "doc-1")
	if err != nil {
		t.Fatalf("GetChunks: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("chunk count = %d, want 2", len(chunks))
	}
	for i, c := range chunks {
		if c.ChunkIndex != i {
			t.Errorf("chunk %d has index %d", i, c.ChunkIndex)
		}
	}
	if chunks[0].Content != "fresh a" || chunks[1].Content != "fresh b" {
		t.Errorf("stale chunk content survived: %q, %q", chunks[0].Content, chunks[1].Content)
	}

	doc, err := repo.GetByID(ctx, "doc-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if doc.Status != domain.DocumentStatusCompleted {
		t.Errorf("status = %s, want COMPLETED", doc.Status)
	}
	if doc.ProcessedAt == nil {
		t.Error("processed_at not set")
	}
}

func TestReplaceChunksEmptySet(t *testing.T) {
	repo := NewDocumentRepository(newTestDB(t))
	ctx := context.Background()
	seedDocument(t, repo, "doc-2", domain.DocumentStatusProcessing, nil)

	initial := []domain.DocumentChunk{
		{ID: "doc-2-chunk-0", DocumentID: "doc-2", VectorID: "v0", Content: "text", ChunkIndex: 0, TokenCount: 1},
	}
	if err := repo.ReplaceChunks(ctx, "doc-2", initial); err != nil {
		t.Fatalf("ReplaceChunks: %v", err)
	}
	if err := repo.ReplaceChunks(ctx, "doc-2", nil); err != nil {
		t.Fatalf("ReplaceChunks empty: %v", err)
	}

	chunks, err := repo.GetChunks(ctx, "doc-2")
	if err != nil {
		t.Fatalf("GetChunks: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("chunk count = %d, want 0", len(chunks))
	}
}

func TestMarkFailed(t *testing.T) {
	repo := NewDocumentRepository(newTestDB(t))
	ctx := context.Background()
	seedDocument(t, repo, "doc-3", domain.DocumentStatusProcessing, domain.JSONMap{"source": "drive"})

	if err := repo.MarkFailed(ctx, "doc-3", "extraction failed"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	doc, err := repo.GetByID(ctx, "doc-3")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if doc.Status != domain.DocumentStatusFailed {
		t.Errorf("status = %s, want FAILED", doc.Status)
	}
	if doc.Metadata["error"] != "extraction failed" {
		t.Errorf("metadata error = %v", doc.Metadata["error"])
	}
	if doc.Metadata["source"] != "drive" {
		t.Errorf("existing metadata key lost: %v", doc.Metadata)
	}
}

func TestMarkFailedNilMetadata(t *testing.T) {
	repo := NewDocumentRepository(newTestDB(t))
	ctx := context.Background()
	seedDocument(t, repo, "doc-4", domain.DocumentStatusPending, nil)

	if err := repo.MarkFailed(ctx, "doc-4", "timeout"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	doc, err := repo.GetByID(ctx, "doc-4")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if doc.Metadata["error"] != "timeout" {
		t.Errorf("metadata error = %v", doc.Metadata["error"])
	}
}

func TestListFiltersAndPaging(t *testing.T) {
	repo := NewDocumentRepository(newTestDB(t))
	ctx := context.Background()

	statuses := []domain.DocumentStatus{
		domain.DocumentStatusCompleted,
		domain.DocumentStatusCompleted,
		domain.DocumentStatusPending,
		domain.DocumentStatusFailed,
	}
	for i, st := range statuses {
		doc := &domain.Document{
			ID:           "doc-" + string(rune('a'+i)),
			UserID:       "user-1",
			GoogleFileID: "gfile-" + string(rune('a'+i)),
			Name:         "Report " + string(rune('A'+i)),
			Status:       st,
			CreatedAt:    time.Date(2026, 1, 1+i, 0, 0, 0, 0, time.UTC),
		}
		if err := repo.Create(ctx, doc); err != nil {
			t.Fatal(err)
		}
	}

	docs, total, err := repo.List(ctx, "user-1", ListOptions{Status: "COMPLETED", Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(docs) != 2 {
		t.Errorf("completed: total = %d, len = %d, want 2/2", total, len(docs))
	}

	docs, total, err = repo.List(ctx, "user-1", ListOptions{Search: "Report", Limit: 2, Offset: 0})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 4 {
		t.Errorf("search total = %d, want 4", total)
	}
	if len(docs) != 2 {
		t.Errorf("page len = %d, want 2", len(docs))
	}

	_, total, err = repo.List(ctx, "other-user", ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 0 {
		t.Errorf("other user total = %d, want 0", total)
	}
}
