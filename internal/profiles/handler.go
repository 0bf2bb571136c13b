package profiles

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docredact-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches profile routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/profiles", h.list)
	rg.POST("/profiles", h.create)
	rg.GET("/profiles/:id", h.get)
	rg.PUT("/profiles/:id", h.update)
	rg.DELETE("/profiles/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.Svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	resp := make([]ProfileResponse, 0, len(items))
	for _, p := range items {
		resp = append(resp, toResponse(p))
	}
	respond.OK(c, resp)
}

func (h *Handler) create(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	p, err := h.Svc.Create(c.Request.Context(), req.Label, req.fieldList())
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("profileId", p.ID)
	respond.Created(c, toResponse(p))
}

func (h *Handler) get(c *gin.Context) {
	p, err := h.Svc.Get(c.Request.Context(), profileID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(p))
}

func (h *Handler) update(c *gin.Context) {
	id := profileID(c)
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	p, err := h.Svc.Update(c.Request.Context(), id, req.Label, req.fieldList())
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(p))
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), profileID(c)); err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"message": "Profile deleted successfully"})
}

func profileID(c *gin.Context) string {
	id := strings.TrimSpace(c.Param("id"))
	c.Set("profileId", id)
	return id
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrLabelExists):
		respond.Error(c, http.StatusConflict, "validation_error", "Profile with this label already exists", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Profile not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "unexpected error", nil)
	}
}
