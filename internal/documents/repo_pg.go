package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"docredact-backend/internal/fieldservice"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const selectColumns = `
SELECT id, name, storage_key, size_bytes, mime_type, checksum, page_count,
       extracted_data, extracted_at, redacted_data, redacted_storage_key, redacted_at, uploaded_at
FROM documents`

// Create inserts a new document. A name collision yields ErrDuplicateName.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	if err := validateNew(doc); err != nil {
		return err
	}
	const query = `
INSERT INTO documents (
    id,
    name,
    storage_key,
    size_bytes,
    mime_type,
    checksum,
    page_count,
    uploaded_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (name) DO NOTHING`

	res, err := r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.Name,
		doc.StorageKey,
		doc.SizeBytes,
		doc.MimeType,
		doc.Checksum,
		doc.PageCount,
		doc.UploadedAt,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDuplicateName
	}
	return nil
}

// GetByID fetches a document by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Document{}, ErrNotFound
	}
	row := r.DB.QueryRowContext(ctx, selectColumns+`
WHERE id = $1::uuid
LIMIT 1`, id)
	return scanOne(row)
}

// GetByName fetches the document with exactly this name.
func (r *PGRepo) GetByName(ctx context.Context, name string) (Document, error) {
	row := r.DB.QueryRowContext(ctx, selectColumns+`
WHERE name = $1
LIMIT 1`, name)
	return scanOne(row)
}

// List lists documents ordered newest-first.
func (r *PGRepo) List(ctx context.Context) ([]Document, error) {
	rows, err := r.DB.QueryContext(ctx, selectColumns+`
ORDER BY uploaded_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// UpdateExtraction replaces extracted_data and, when redacted is non-nil, redacted_data.
func (r *PGRepo) UpdateExtraction(ctx context.Context, id string, extracted fieldservice.Fields, redacted map[string]string, at time.Time) error {
	const query = `
UPDATE documents
SET extracted_data = $1::jsonb,
    extracted_at = $2,
    redacted_data = COALESCE($3::jsonb, redacted_data)
WHERE id = $4::uuid`

	extractedPayload, err := marshalJSONB(extracted)
	if err != nil {
		return err
	}
	var redactedPayload any
	if redacted != nil {
		if redactedPayload, err = marshalJSONB(redacted); err != nil {
			return err
		}
	}
	return r.execOne(ctx, id, query, extractedPayload, at, redactedPayload, id)
}

// UpdateRedaction replaces the redaction state of a document.
func (r *PGRepo) UpdateRedaction(ctx context.Context, id string, redacted map[string]string, redactedKey string, at time.Time) error {
	const query = `
UPDATE documents
SET redacted_data = $1::jsonb,
    redacted_storage_key = $2,
    redacted_at = $3
WHERE id = $4::uuid`

	payload, err := marshalJSONB(redacted)
	if err != nil {
		return err
	}
	return r.execOne(ctx, id, query, payload, redactedKey, at, id)
}

// Delete removes a document record.
func (r *PGRepo) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, id, `DELETE FROM documents WHERE id = $1::uuid`, id)
}

// execOne runs a statement targeting document id and maps zero affected rows to ErrNotFound.
func (r *PGRepo) execOne(ctx context.Context, id string, query string, args ...any) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOne(row rowScanner) (Document, error) {
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var checksum sql.NullString
	var extracted sql.NullString
	var extractedAt sql.NullTime
	var redacted sql.NullString
	var redactedKey sql.NullString
	var redactedAt sql.NullTime
	if err := row.Scan(
		&doc.ID,
		&doc.Name,
		&doc.StorageKey,
		&doc.SizeBytes,
		&doc.MimeType,
		&checksum,
		&doc.PageCount,
		&extracted,
		&extractedAt,
		&redacted,
		&redactedKey,
		&redactedAt,
		&doc.UploadedAt,
	); err != nil {
		return Document{}, err
	}
	if checksum.Valid {
		doc.Checksum = checksum.String
	}
	if extracted.Valid {
		if err := json.Unmarshal([]byte(extracted.String), &doc.ExtractedData); err != nil {
			doc.ExtractedData = nil
		}
	}
	if extractedAt.Valid {
		doc.ExtractedAt = &extractedAt.Time
	}
	if redacted.Valid {
		if err := json.Unmarshal([]byte(redacted.String), &doc.RedactedData); err != nil {
			doc.RedactedData = nil
		}
	}
	if redactedKey.Valid {
		doc.RedactedStorageKey = redactedKey.String
	}
	if redactedAt.Valid {
		doc.RedactedAt = &redactedAt.Time
	}
	return doc, nil
}

func marshalJSONB(value any) ([]byte, error) {
	switch v := value.(type) {
	case fieldservice.Fields:
		if v == nil {
			return []byte("{}"), nil
		}
	case map[string]string:
		if v == nil {
			return []byte("{}"), nil
		}
	}
	return json.Marshal(value)
}

var _ Repo = (*PGRepo)(nil)
