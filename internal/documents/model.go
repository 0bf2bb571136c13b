package documents

import (
	"time"

	"docredact-backend/internal/fieldservice"
)

// Document is an uploaded file plus its extraction and redaction state.
type Document struct {
	ID                 string
	Name               string
	StorageKey         string
	SizeBytes          int64
	MimeType           string
	Checksum           string
	PageCount          int
	UploadedAt         time.Time
	ExtractedData      fieldservice.Fields
	ExtractedAt        *time.Time
	RedactedData       map[string]string
	RedactedStorageKey string
	RedactedAt         *time.Time
}

// HasExtraction reports whether a previous extraction produced any fields.
func (d Document) HasExtraction() bool {
	return len(d.ExtractedData) > 0
}

// HasRedaction reports whether a redacted artifact has been stored.
func (d Document) HasRedaction() bool {
	return d.RedactedStorageKey != ""
}

// clone returns a copy that shares no maps with d.
func (d Document) clone() Document {
	d.ExtractedData = d.ExtractedData.Clone()
	if d.RedactedData != nil {
		redacted := make(map[string]string, len(d.RedactedData))
		for k, v := range d.RedactedData {
			redacted[k] = v
		}
		d.RedactedData = redacted
	}
	if d.ExtractedAt != nil {
		t := *d.ExtractedAt
		d.ExtractedAt = &t
	}
	if d.RedactedAt != nil {
		t := *d.RedactedAt
		d.RedactedAt = &t
	}
	return d
}

// LockKey is the keylock key guarding mutations of one document.
func LockKey(documentID string) string {
	return "document:" + documentID
}

func uploadLockKey(name string) string {
	return "upload:" + name
}
