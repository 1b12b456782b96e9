package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harbordocs/harbor/internal/api/middleware"
	"github.com/harbordocs/harbor/internal/domain"
	"github.com/harbordocs/harbor/internal/logger"
	"github.com/harbordocs/harbor/internal/repository"
	"github.com/harbordocs/harbor/internal/service"
)

// maxTemplateUpload caps template PDF uploads at 10 MiB.
const maxTemplateUpload = 10 << 20

// TemplateHandler handles PDF template endpoints.
type TemplateHandler struct {
	templates *service.TemplateService
}

// NewTemplateHandler creates a new template handler.
func NewTemplateHandler(templates *service.TemplateService) *TemplateHandler {
	return &TemplateHandler{templates: templates}
}

// Create handles POST /api/v1/templates. Accepts a multipart upload with the
// PDF under "file" plus name and description fields.
func (h *TemplateHandler) Create(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Form file 'file' is required"})
		return
	}
	if file.Size > maxTemplateUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "template pdf too large"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read upload: " + err.Error()})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read upload: " + err.Error()})
		return
	}

	tmpl, err := h.templates.CreateTemplate(
		c.Request.Context(),
		middleware.UserID(c),
		c.PostForm("name"),
		c.PostForm("description"),
		data,
	)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Template rejected: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, tmpl)
}

// List handles GET /api/v1/templates.
func (h *TemplateHandler) List(c *gin.Context) {
	templates, err := h.templates.ListTemplates(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		logger.CtxError(c.Request.Context(), "template listing failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list templates"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"templates": templates})
}

// Get handles GET /api/v1/templates/:id.
func (h *TemplateHandler) Get(c *gin.Context) {
	tmpl, err := h.templates.GetTemplate(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		if repository.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
			return
		}
		logger.CtxError(c.Request.Context(), "template load failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load template"})
		return
	}

	c.JSON(http.StatusOK, tmpl)
}

// UpdatePrompts handles PUT /api/v1/templates/:id/prompts.
func (h *TemplateHandler) UpdatePrompts(c *gin.Context) {
	var req struct {
		Prompts domain.PromptMap `json:"prompts" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	tmpl, err := h.templates.UpdatePrompts(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.Prompts)
	if err != nil {
		if repository.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Update rejected: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, tmpl)
}

// Fill handles POST /api/v1/templates/:id/fill. Streams the filled PDF back
// as an attachment. With use_ai and a search_query, prompt-mapped text fields
// are completed from retrieved document context.
func (h *TemplateHandler) Fill(c *gin.Context) {
	var req struct {
		FormData    map[string]string `json:"form_data"`
		SearchQuery string            `json:"search_query"`
		UseAI       bool              `json:"use_ai"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	result, err := h.templates.FillTemplate(c.Request.Context(), middleware.UserID(c), c.Param("id"), service.FillRequest{
		FormData:    req.FormData,
		SearchQuery: req.SearchQuery,
		UseAI:       req.UseAI,
	})
	if err != nil {
		if repository.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
			return
		}
		logger.CtxError(c.Request.Context(), "pdf fill failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "PDF filling failed"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Header("X-Generation-Id", result.GenerationID)
	c.Data(http.StatusOK, "application/pdf", result.Data)
}
