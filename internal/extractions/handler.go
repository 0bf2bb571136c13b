package extractions

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"docredact-backend/internal/documents"
	"docredact-backend/internal/fieldservice"
	"docredact-backend/internal/profiles"
	"docredact-backend/internal/shared/server/respond"
)

const (
	maxSpecBodyBytes = 1 << 20

	// CachedHeader is "true" when the response was served from the stored extraction.
	CachedHeader = "X-Extraction-Cached"
)

// ProfileSource resolves a profile by ID.
type ProfileSource interface {
	Get(ctx context.Context, id string) (profiles.Profile, error)
}

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc      *Service
	Profiles ProfileSource
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, profileSource ProfileSource) *Handler {
	return &Handler{Svc: svc, Profiles: profileSource}
}

// RegisterRoutes attaches extraction routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/:id/extract", h.extract)
	rg.GET("/documents/:id/extraction", h.cached)
}

func (h *Handler) extract(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	c.Set("documentId", id)

	forceRefresh := true
	if raw := strings.TrimSpace(c.Query("refresh")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "refresh must be true or false", nil)
			return
		}
		forceRefresh = parsed
	}

	spec, err := h.resolveSpec(c)
	if err != nil {
		writeError(c, err)
		return
	}

	res, err := h.Svc.Extract(c.Request.Context(), id, spec, forceRefresh)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("statusTransition", res.Transition)
	c.Header(CachedHeader, strconv.FormatBool(res.Cached))
	respond.OK(c, res.Fields)
}

func (h *Handler) cached(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	c.Set("documentId", id)

	fields, ok, err := h.Svc.Cached(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		respond.Error(c, http.StatusNotFound, "not_found", "No extraction for this document", nil)
		return
	}
	c.Header(CachedHeader, "true")
	respond.OK(c, fields)
}

// resolveSpec reads the field spec from ?profileId= or, failing that, the request body.
func (h *Handler) resolveSpec(c *gin.Context) (fieldservice.FieldSpec, error) {
	if profileID := strings.TrimSpace(c.Query("profileId")); profileID != "" {
		c.Set("profileId", profileID)
		if h.Profiles == nil {
			return fieldservice.FieldSpec{}, profiles.ErrNotFound
		}
		p, err := h.Profiles.Get(c.Request.Context(), profileID)
		if err != nil {
			return fieldservice.FieldSpec{}, err
		}
		return p.Spec(), nil
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSpecBodyBytes))
	if err != nil {
		return fieldservice.FieldSpec{}, fieldservice.ErrInvalidFieldSpec
	}
	return fieldservice.ParseFieldSpec(raw)
}

func writeError(c *gin.Context, err error) {
	if se, ok := fieldservice.AsServiceError(err); ok {
		respond.Error(c, http.StatusInternalServerError, "extraction_service_error", se.Message, gin.H{"upstreamStatus": se.StatusCode})
		return
	}
	switch {
	case errors.Is(err, fieldservice.ErrInvalidFieldSpec):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, documents.ErrFileMissing):
		respond.Error(c, http.StatusNotFound, "not_found", "File not found", nil)
	case errors.Is(err, documents.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Document not found", nil)
	case errors.Is(err, profiles.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Profile not found", nil)
	case errors.Is(err, documents.ErrStorage):
		respond.Error(c, http.StatusInternalServerError, "storage_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "unexpected error", nil)
	}
}
