package documents

import (
	"context"
	"time"

	"docredact-backend/internal/fieldservice"
)

// Repo defines persistence operations for documents.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, id string) (Document, error)
	GetByName(ctx context.Context, name string) (Document, error)
	List(ctx context.Context) ([]Document, error)
	// UpdateExtraction replaces the extracted data. A nil redacted map leaves
	// the stored redacted data untouched.
	UpdateExtraction(ctx context.Context, id string, extracted fieldservice.Fields, redacted map[string]string, at time.Time) error
	UpdateRedaction(ctx context.Context, id string, redacted map[string]string, redactedKey string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

func validateNew(doc Document) error {
	switch {
	case doc.ID == "", doc.Name == "", doc.StorageKey == "", doc.MimeType == "":
		return ErrInvalidInput
	case doc.SizeBytes < 0:
		return ErrInvalidInput
	}
	return nil
}
