package documents

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docredact-backend/internal/shared/server/respond"
	"docredact-backend/internal/shared/util"
)

const (
	defaultMaxUploadBytes = 50 << 20
	multipartMemory       = 32 << 20

	// RedactedDataHeader carries the stored redaction selection alongside the redacted file.
	RedactedDataHeader = "Redacted-Data"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
	// MaxUploadBytes bounds the whole multipart request body.
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/upload", h.upload)
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id", h.original)
	rg.GET("/documents/:id/info", h.info)
	rg.GET("/documents/:id/metadata", h.metadata)
	rg.GET("/documents/:id/redacted", h.redacted)
	rg.GET("/documents/redact/:id", h.redacted)
	rg.DELETE("/documents/:id", h.delete)
}

func (h *Handler) upload(c *gin.Context) {
	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = defaultMaxUploadBytes
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	var headers []*multipart.FileHeader
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "upload exceeds size limit", gin.H{"maxBytes": limit})
			return
		}
	} else if c.Request.MultipartForm != nil {
		headers = c.Request.MultipartForm.File["files"]
	}

	files := make([]UploadFile, 0, len(headers))
	for _, fh := range headers {
		fh := fh
		files = append(files, UploadFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}

	outcomes, err := h.Svc.Upload(c.Request.Context(), files)
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusOK
	results := make([]UploadResultResponse, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Created() {
			status = http.StatusCreated
		}
		results = append(results, toUploadResult(o))
	}
	respond.JSON(c, status, results)
}

func (h *Handler) list(c *gin.Context) {
	docs, err := h.Svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, toResponse(doc))
	}
	respond.OK(c, resp)
}

func (h *Handler) info(c *gin.Context) {
	id := documentID(c)
	doc, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(doc))
}

func (h *Handler) original(c *gin.Context) {
	id := documentID(c)
	rc, doc, err := h.Svc.OpenOriginal(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, doc.SizeBytes, doc.MimeType, rc, map[string]string{
		"Content-Disposition": ContentDisposition(doc.Name),
	})
}

func (h *Handler) redacted(c *gin.Context) {
	id := documentID(c)
	rc, doc, err := h.Svc.OpenRedacted(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	defer rc.Close()

	header, err := RedactedDataHeaderValue(doc.RedactedData)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to encode redacted data", nil)
		return
	}
	c.DataFromReader(http.StatusOK, -1, "application/pdf", rc, map[string]string{
		"Content-Disposition": ContentDisposition(util.RedactedFileName(doc.Name)),
		RedactedDataHeader:    header,
	})
}

func (h *Handler) metadata(c *gin.Context) {
	id := documentID(c)
	fields, err := h.Svc.Metadata(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, fields)
}

func (h *Handler) delete(c *gin.Context) {
	id := documentID(c)
	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"message": "Document deleted successfully"})
}

// RedactedDataHeaderValue encodes a redaction selection for the Redacted-Data header.
func RedactedDataHeaderValue(data map[string]string) (string, error) {
	if data == nil {
		data = map[string]string{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func documentID(c *gin.Context) string {
	id := strings.TrimSpace(c.Param("id"))
	c.Set("documentId", id)
	return id
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrFileMissing):
		respond.Error(c, http.StatusNotFound, "not_found", "File not found", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Document not found", nil)
	case errors.Is(err, ErrStorage):
		respond.Error(c, http.StatusInternalServerError, "storage_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "unexpected error", nil)
	}
}
