package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/sage/internal/knowledge"
	"github.com/kube-rca/sage/internal/model"
)

type documentIngester interface {
	IngestDocument(ctx context.Context, filename string, content []byte, collection string) (int, error)
}

type knowledgeSearcher interface {
	Retrieve(ctx context.Context, query, collection string, topK int) ([]model.KnowledgeSnippet, error)
}

type KnowledgeHandler struct {
	ingester documentIngester
	searcher knowledgeSearcher
	topK     int
}

func NewKnowledgeHandler(ingester documentIngester, searcher knowledgeSearcher, topK int) *KnowledgeHandler {
	return &KnowledgeHandler{ingester: ingester, searcher: searcher, topK: topK}
}

// UploadDocument godoc
// @Summary Upload a knowledge document
// @Description Supported formats: .txt, .md, .json. Existing chunks of the same filename are replaced.
// @Tags knowledge
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.DocumentUploadRequest true "Document"
// @Success 201 {object} model.DocumentUploadResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/documents [post]
func (h *KnowledgeHandler) UploadDocument(c *gin.Context) {
	var req model.DocumentUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	collection := model.NormalizeCollection(req.Collection)
	chunks, err := h.ingester.IngestDocument(c.Request.Context(), req.Filename, []byte(req.Content), collection)
	if err != nil {
		if errors.Is(err, knowledge.ErrUnsupportedFormat) {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, model.DocumentUploadResponse{Status: "success", Collection: collection, Chunks: chunks})
}

// SearchDocuments godoc
// @Summary Search knowledge
// @Tags knowledge
// @Produce json
// @Security BearerAuth
// @Param q query string true "Query"
// @Param collection query string false "Collection" Enums(documents, playbooks, incidents)
// @Param top_k query int false "Result count"
// @Success 200 {object} model.DocumentSearchResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/documents/search [get]
func (h *KnowledgeHandler) SearchDocuments(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "q is required"})
		return
	}
	topK := h.topK
	if raw := c.Query("top_k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 50 {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "top_k must be between 1 and 50"})
			return
		}
		topK = n
	}

	results, err := h.searcher.Retrieve(c.Request.Context(), query, c.Query("collection"), topK)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, model.DocumentSearchResponse{Status: "success", Data: results})
}
