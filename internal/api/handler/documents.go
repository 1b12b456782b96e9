package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/harbordocs/harbor/internal/api/middleware"
	"github.com/harbordocs/harbor/internal/domain"
	"github.com/harbordocs/harbor/internal/logger"
	"github.com/harbordocs/harbor/internal/repository"
	"github.com/harbordocs/harbor/internal/service"
)

// DocumentHandler handles document listing, detail, sync, and processing
// endpoints.
type DocumentHandler struct {
	documentRepo *repository.DocumentRepository
	drive        *service.DriveService
	processor    *service.ProcessorService
	logger       *logger.Logger
}

// NewDocumentHandler creates a new document handler.
// Parameters:
//   - documentRepo: repository for document records.
//   - drive: drive sync service.
//   - processor: document processing pipeline.
//   - log: logger instance.
// Returns:
//   - *DocumentHandler: initialized handler.
func NewDocumentHandler(
	documentRepo *repository.DocumentRepository,
	drive *service.DriveService,
	processor *service.ProcessorService,
	log *logger.Logger,
) *DocumentHandler {
	return &DocumentHandler{
		documentRepo: documentRepo,
		drive:        drive,
		processor:    processor,
		logger:       log,
	}
}

// List handles GET /api/v1/documents.
func (h *DocumentHandler) List(c *gin.Context) {
	opts := repository.ListOptions{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Limit:  20,
	}
	if limit := c.Query("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 && n <= 100 {
			opts.Limit = n
		}
	}
	if offset := c.Query("offset"); offset != "" {
		if n, err := strconv.Atoi(offset); err == nil && n >= 0 {
			opts.Offset = n
		}
	}

	docs, total, err := h.documentRepo.List(c.Request.Context(), middleware.UserID(c), opts)
	if err != nil {
		logger.CtxError(c.Request.Context(), "document listing failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list documents"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"documents": docs,
		"total":     total,
		"limit":     opts.Limit,
		"offset":    opts.Offset,
	})
}

// Get handles GET /api/v1/documents/:id. Includes the chunk set.
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.documentRepo.GetWithChunks(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		if repository.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		logger.CtxError(c.Request.Context(), "document load failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load document"})
		return
	}

	c.JSON(http.StatusOK, doc)
}

// Process handles POST /api/v1/documents/:id/process. Kicks off the pipeline
// in the background; a document already being processed gets 409.
func (h *DocumentHandler) Process(c *gin.Context) {
	doc, err := h.documentRepo.GetByIDForUser(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		if repository.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		logger.CtxError(c.Request.Context(), "document load failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load document"})
		return
	}
	if doc.Status == domain.DocumentStatusProcessing {
		c.JSON(http.StatusConflict, gin.H{"error": "document is already being processed"})
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	go func() {
		if err := h.processor.ProcessDocument(ctx, doc.ID); err != nil {
			h.logger.WithFields(logger.Fields{
				"document_id": doc.ID,
				"error":       err.Error(),
			}).Error("background processing failed")
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"message": "processing started", "document_id": doc.ID})
}

// Delete handles DELETE /api/v1/documents/:id. Removes the document's
// vectors, stored bytes, chunks, and record.
func (h *DocumentHandler) Delete(c *gin.Context) {
	err := h.processor.DeleteDocument(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		if repository.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		logger.CtxError(c.Request.Context(), "document delete failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete document"})
		return
	}

	c.Status(http.StatusNoContent)
}

// Sync handles POST /api/v1/documents/sync. Runs a full Drive sync for the
// authenticated user and reports the job outcome.
func (h *DocumentHandler) Sync(c *gin.Context) {
	job, err := h.drive.SyncUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		if errors.Is(err, service.ErrSyncInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": "A sync is already running"})
			return
		}
		logger.CtxError(c.Request.Context(), "drive sync failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sync failed"})
		return
	}

	c.JSON(http.StatusOK, job)
}
