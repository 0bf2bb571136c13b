package redactions

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docredact-backend/internal/documents"
	"docredact-backend/internal/fieldservice"
	"docredact-backend/internal/shared/server/respond"
)

const maxSelectionBodyBytes = 1 << 20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches redaction routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/:id/redact", h.redact)
}

func (h *Handler) redact(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	c.Set("documentId", id)

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSelectionBodyBytes))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read request body", nil)
		return
	}
	selected, err := parseSelection(raw)
	if err != nil {
		writeError(c, err)
		return
	}

	res, err := h.Svc.Redact(c.Request.Context(), id, selected)
	if err != nil {
		writeError(c, err)
		return
	}
	header, err := documents.RedactedDataHeaderValue(res.Selection)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to encode redacted data", nil)
		return
	}

	c.Set("statusTransition", res.Transition)
	c.Header("Content-Disposition", documents.ContentDisposition(res.FileName))
	c.Header(documents.RedactedDataHeader, header)
	c.Data(http.StatusOK, pdfContentType, res.PDF)
}

func writeError(c *gin.Context, err error) {
	if se, ok := fieldservice.AsServiceError(err); ok {
		respond.Error(c, http.StatusInternalServerError, "redaction_service_error", se.Message, gin.H{"upstreamStatus": se.StatusCode})
		return
	}
	switch {
	case errors.Is(err, documents.ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, documents.ErrFileMissing):
		respond.Error(c, http.StatusNotFound, "not_found", "File not found", nil)
	case errors.Is(err, documents.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Document not found", nil)
	case errors.Is(err, documents.ErrStorage):
		respond.Error(c, http.StatusInternalServerError, "storage_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "unexpected error", nil)
	}
}
