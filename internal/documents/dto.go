package documents

import (
	"time"

	"docredact-backend/internal/fieldservice"
)

const existingMessage = "Document already exists"

// DocumentResponse is the outward-facing representation of a document.
// Storage keys are never exposed.
type DocumentResponse struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	SizeBytes     int64               `json:"size"`
	MimeType      string              `json:"mimeType"`
	Checksum      string              `json:"checksum,omitempty"`
	PageCount     int                 `json:"pageCount"`
	UploadedAt    time.Time           `json:"uploadedAt"`
	ExtractedData fieldservice.Fields `json:"extractedData"`
	ExtractedAt   *time.Time          `json:"extractedAt,omitempty"`
	RedactedData  map[string]string   `json:"redactedData"`
	HasRedacted   bool                `json:"hasRedacted"`
	RedactedAt    *time.Time          `json:"redactedAt,omitempty"`
}

// UploadResultResponse describes one file of an upload batch.
type UploadResultResponse struct {
	FileName string            `json:"fileName"`
	Existing bool              `json:"existing"`
	Message  string            `json:"message,omitempty"`
	Document *DocumentResponse `json:"document,omitempty"`
	Error    string            `json:"error,omitempty"`
}

func toResponse(doc Document) DocumentResponse {
	extracted := doc.ExtractedData
	if extracted == nil {
		extracted = fieldservice.Fields{}
	}
	redacted := doc.RedactedData
	if redacted == nil {
		redacted = map[string]string{}
	}
	return DocumentResponse{
		ID:            doc.ID,
		Name:          doc.Name,
		SizeBytes:     doc.SizeBytes,
		MimeType:      doc.MimeType,
		Checksum:      doc.Checksum,
		PageCount:     doc.PageCount,
		UploadedAt:    doc.UploadedAt,
		ExtractedData: extracted,
		ExtractedAt:   doc.ExtractedAt,
		RedactedData:  redacted,
		HasRedacted:   doc.HasRedaction(),
		RedactedAt:    doc.RedactedAt,
	}
}

func toUploadResult(o UploadOutcome) UploadResultResponse {
	res := UploadResultResponse{FileName: o.FileName, Existing: o.Existing}
	switch {
	case o.Err != nil:
		res.Error = o.Err.Error()
	case o.Existing:
		res.Message = existingMessage
		doc := toResponse(o.Document)
		res.Document = &doc
	default:
		doc := toResponse(o.Document)
		res.Document = &doc
	}
	return res
}
