package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harbordocs/harbor/internal/api/middleware"
	"github.com/harbordocs/harbor/internal/logger"
	"github.com/harbordocs/harbor/internal/service"
)

// SearchHandler handles semantic search endpoints.
type SearchHandler struct {
	searchService *service.SearchService
}

// NewSearchHandler creates a new search handler.
// Parameters:
//   - searchService: search service instance.
// Returns:
//   - *SearchHandler: initialized handler.
func NewSearchHandler(searchService *service.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

type searchRequest struct {
	Query          string   `json:"query" binding:"required"`
	TopK           int      `json:"top_k"`
	ScoreThreshold *float32 `json:"score_threshold"`
}

// Search handles POST /api/v1/search.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SearchHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	result, err := h.searchService.Search(c.Request.Context(), middleware.UserID(c), service.SearchRequest{
		Query:          req.Query,
		TopK:           req.TopK,
		ScoreThreshold: req.ScoreThreshold,
	})
	if err != nil {
		logger.CtxError(c.Request.Context(), "search failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Suggestions handles GET /api/v1/search/suggestions. Query completion is not
// wired up yet, so this always returns an empty list.
func (h *SearchHandler) Suggestions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"suggestions": []string{}})
}
