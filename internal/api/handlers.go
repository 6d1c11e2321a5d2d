// Package api exposes the exchange search over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/exchange-search/internal/domain"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/query"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/response"
	infralogger "github.com/jonesrussell/north-cloud/exchange-search/infrastructure/logger"
)

// Searcher runs a normalized query to completion.
type Searcher interface {
	Search(ctx context.Context, q *domain.SearchQuery) *domain.SearchResponse
}

// Handler holds HTTP request handlers
type Handler struct {
	normalizer *query.Normalizer
	searcher   Searcher
	assembler  *response.Assembler
	logger     infralogger.Logger
}

// NewHandler creates a new handler instance
func NewHandler(normalizer *query.Normalizer, searcher Searcher, log infralogger.Logger) *Handler {
	return &Handler{
		normalizer: normalizer,
		searcher:   searcher,
		assembler:  response.NewAssembler(),
		logger:     log,
	}
}

// Search handles POST /api/exchange-programs/search. Rejected queries get 400;
// every query that reaches the pipeline gets 200 with the envelope.
func (h *Handler) Search(c *gin.Context) {
	var req domain.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid search request body", infralogger.Error(err))
		c.JSON(http.StatusBadRequest, h.assembler.Validation(&domain.ValidationError{
			Field:   "body",
			Message: "malformed JSON: " + err.Error(),
		}))
		return
	}

	q, err := h.normalizer.Normalize(req)
	if err != nil {
		h.logger.Warn("Search query rejected", infralogger.Error(err))
		c.JSON(http.StatusBadRequest, h.assembler.Validation(err))
		return
	}

	c.JSON(http.StatusOK, h.searcher.Search(c.Request.Context(), q))
}
