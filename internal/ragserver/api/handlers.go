package api

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"DocuMind/internal/ragengine/schema"
	"DocuMind/internal/ragserver/service"
	"DocuMind/pkg/logger"
)

const defaultTopK = 3

// API provides the HTTP handlers for the ragserver.
type API struct {
	service *service.Service
	logger  *logger.Logger
}

// NewAPI creates a new API handler.
func NewAPI(svc *service.Service, log *logger.Logger) *API {
	return &API{service: svc, logger: log}
}

// uploadResult is the per-file outcome of an upload request.
type uploadResult struct {
	Filename        string   `json:"filename"`
	DocumentID      string   `json:"document_id,omitempty"`
	ElementsIndexed int      `json:"elements_indexed"`
	Summaries       []string `json:"summaries,omitempty"`
	Errors          []string `json:"errors,omitempty"`
}

// UploadHandler ingests one or more PDF files from a multipart form. A bad
// file reports its error in place; the remaining files still ingest.
func (a *API) UploadHandler(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form"})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files provided"})
		return
	}

	results := make([]uploadResult, 0, len(files))
	for _, fh := range files {
		result := uploadResult{Filename: fh.Filename}

		if !strings.HasSuffix(strings.ToLower(fh.Filename), ".pdf") {
			result.Errors = []string{"not a PDF"}
			results = append(results, result)
			continue
		}

		f, err := fh.Open()
		if err != nil {
			result.Errors = []string{err.Error()}
			results = append(results, result)
			continue
		}
		pdfBytes, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			result.Errors = []string{err.Error()}
			results = append(results, result)
			continue
		}

		report, err := a.service.IngestPDF(c.Request.Context(), fh.Filename, pdfBytes)
		if err != nil {
			a.logger.WithError(err).Error("Ingestion failed for " + fh.Filename)
			result.Errors = []string{err.Error()}
			results = append(results, result)
			continue
		}

		result.DocumentID = report.DocumentID
		result.ElementsIndexed = report.Succeeded
		result.Summaries = report.Summaries
		result.Errors = report.Errors
		results = append(results, result)
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// queryRequest is the body of a query call.
type queryRequest struct {
	Text       string `json:"text" binding:"required"`
	DocumentID string `json:"document_id"`
	TopK       int    `json:"top_k"`
}

// imageAttachment carries an image hit's bytes back to the caller.
type imageAttachment struct {
	ImageB64   string `json:"img_b64"`
	DocumentID string `json:"document_id"`
	PageNumber int    `json:"page_number"`
}

// QueryHandler answers a question with citations and any supporting images.
func (a *API) QueryHandler(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty question"})
		return
	}
	if req.TopK <= 0 {
		req.TopK = defaultTopK
	}

	result, err := a.service.Query(c.Request.Context(), req.Text, req.TopK, req.DocumentID)
	if err != nil {
		if errors.Is(err, schema.ErrGeneration) {
			// Generation is down but retrieval worked; hand back the citations.
			c.JSON(http.StatusBadGateway, gin.H{
				"error":     "Answer generation failed",
				"citations": result.Citations,
			})
			return
		}
		a.logger.WithError(err).Error("Query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Query failed"})
		return
	}
	if len(result.Hits) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No relevant content found"})
		return
	}

	var images []imageAttachment
	for _, h := range result.Hits {
		if h.Element.Type == schema.ElementImage && len(h.Element.ImageData) > 0 {
			images = append(images, imageAttachment{
				ImageB64:   base64.StdEncoding.EncodeToString(h.Element.ImageData),
				DocumentID: h.Element.DocumentID,
				PageNumber: h.Element.PageNumber,
			})
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"answer":    result.Answer,
		"citations": result.Citations,
		"images":    images,
	})
}

// DeleteDocumentHandler removes one document's elements from the corpus.
func (a *API) DeleteDocumentHandler(c *gin.Context) {
	documentID := c.Param("id")
	if err := a.service.DeleteDocument(c.Request.Context(), documentID); err != nil {
		a.logger.WithError(err).Error("Delete failed for document " + documentID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete document"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"document_id": documentID, "deleted": true})
}

// HealthHandler reports liveness, probing the store backends.
func (a *API) HealthHandler(c *gin.Context) {
	if err := a.service.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
