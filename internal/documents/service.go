package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"docredact-backend/internal/fieldservice"
	"docredact-backend/internal/shared/keylock"
	"docredact-backend/internal/shared/metrics"
	"docredact-backend/internal/shared/storage/object"
	"docredact-backend/internal/shared/telemetry"
	"docredact-backend/internal/shared/util"
)

const (
	// UploadsPrefix holds original files.
	UploadsPrefix = "uploads"
	// RedactedPrefix holds redacted artifacts.
	RedactedPrefix = "redacted-uploads"

	defaultMaxFiles = 10
)

// Service contains business logic for documents.
type Service struct {
	Store    object.ObjectStore
	Repo     Repo
	Locks    *keylock.Map
	MaxFiles int
	MaxBytes int64
	Now      func() time.Time
}

// UploadFile is one file of an upload batch.
type UploadFile struct {
	Name        string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// UploadOutcome reports what happened to one file of a batch.
type UploadOutcome struct {
	FileName string
	Existing bool
	Document Document
	Err      error
}

// Created reports whether the outcome produced a new document.
func (o UploadOutcome) Created() bool {
	return o.Err == nil && !o.Existing
}

// Upload stores each file and records a document for it. A file whose name
// matches an existing document is skipped and reported as existing. Per-file
// failures do not abort the batch.
func (s *Service) Upload(ctx context.Context, files []UploadFile) ([]UploadOutcome, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files uploaded", ErrInvalidInput)
	}
	maxFiles := s.MaxFiles
	if maxFiles <= 0 {
		maxFiles = defaultMaxFiles
	}
	if len(files) > maxFiles {
		return nil, fmt.Errorf("%w: at most %d files per upload", ErrInvalidInput, maxFiles)
	}

	out := make([]UploadOutcome, 0, len(files))
	for _, f := range files {
		outcome := s.uploadOne(ctx, f)
		if outcome.Err != nil {
			telemetry.Warn("document.upload_failed", map[string]any{
				"file_name": f.Name,
				"error":     outcome.Err,
			})
		}
		out = append(out, outcome)
	}
	return out, nil
}

func (s *Service) uploadOne(ctx context.Context, f UploadFile) UploadOutcome {
	outcome := UploadOutcome{FileName: f.Name}

	name, err := util.SanitizeFileName(f.Name)
	if err != nil {
		outcome.Err = fmt.Errorf("%w: %v", ErrInvalidInput, err)
		return outcome
	}
	outcome.FileName = name

	unlock, err := s.lock(ctx, uploadLockKey(name))
	if err != nil {
		outcome.Err = err
		return outcome
	}
	defer unlock()

	existing, err := s.Repo.GetByName(ctx, name)
	switch {
	case err == nil:
		outcome.Existing = true
		outcome.Document = existing
		return outcome
	case !errors.Is(err, ErrNotFound):
		outcome.Err = err
		return outcome
	}

	data, checksum, err := s.readUpload(f)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	key := object.Key(UploadsPrefix, name)
	size, mimeType, err := s.Store.Save(ctx, key, f.ContentType, bytes.NewReader(data))
	if err != nil {
		outcome.Err = fmt.Errorf("%w: save %s: %v", ErrStorage, name, err)
		return outcome
	}

	doc := Document{
		ID:         uuid.NewString(),
		Name:       name,
		StorageKey: key,
		SizeBytes:  size,
		MimeType:   mimeType,
		Checksum:   checksum,
		PageCount:  fieldservice.InspectPDF(data),
		UploadedAt: s.now(),
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		if errors.Is(err, ErrDuplicateName) {
			if existing, getErr := s.Repo.GetByName(ctx, name); getErr == nil {
				outcome.Existing = true
				outcome.Document = existing
				return outcome
			}
		} else {
			s.removeObject(ctx, doc.ID, key)
		}
		outcome.Err = err
		return outcome
	}

	metrics.IncDocumentsUploaded()
	telemetry.Info("document.uploaded", map[string]any{
		"document_id": doc.ID,
		"file_name":   doc.Name,
		"size_bytes":  doc.SizeBytes,
		"mime_type":   doc.MimeType,
		"page_count":  doc.PageCount,
	})
	outcome.Document = doc
	return outcome
}

func (s *Service) readUpload(f UploadFile) ([]byte, string, error) {
	if f.Open == nil {
		return nil, "", fmt.Errorf("%w: unreadable file", ErrInvalidInput)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, "", fmt.Errorf("%w: unable to read file", ErrInvalidInput)
	}
	defer rc.Close()

	var r io.Reader = rc
	if s.MaxBytes > 0 {
		r = io.LimitReader(rc, s.MaxBytes+1)
	}
	sum := util.NewChecksum(r)
	data, err := io.ReadAll(sum)
	if err != nil {
		return nil, "", fmt.Errorf("%w: unable to read file", ErrInvalidInput)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}
	if s.MaxBytes > 0 && int64(len(data)) > s.MaxBytes {
		return nil, "", fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidInput, s.MaxBytes)
	}
	return data, sum.Sum(), nil
}

// Get returns a document by ID.
func (s *Service) Get(ctx context.Context, id string) (Document, error) {
	return s.Repo.GetByID(ctx, id)
}

// List returns all documents, newest first.
func (s *Service) List(ctx context.Context) ([]Document, error) {
	return s.Repo.List(ctx)
}

// OpenOriginal opens the uploaded file of a document.
func (s *Service) OpenOriginal(ctx context.Context, id string) (io.ReadCloser, Document, error) {
	doc, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, Document{}, err
	}
	rc, err := s.open(ctx, doc.StorageKey)
	if err != nil {
		return nil, Document{}, err
	}
	return rc, doc, nil
}

// OpenRedacted opens the redacted artifact of a document.
func (s *Service) OpenRedacted(ctx context.Context, id string) (io.ReadCloser, Document, error) {
	doc, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, Document{}, err
	}
	if !doc.HasRedaction() {
		return nil, Document{}, fmt.Errorf("%w: no redacted file", ErrNotFound)
	}
	rc, err := s.open(ctx, doc.RedactedStorageKey)
	if err != nil {
		return nil, Document{}, err
	}
	return rc, doc, nil
}

// Metadata returns the extracted data of a document, or an empty map.
func (s *Service) Metadata(ctx context.Context, id string) (fieldservice.Fields, error) {
	doc, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.ExtractedData == nil {
		return fieldservice.Fields{}, nil
	}
	return doc.ExtractedData, nil
}

// Delete removes the record first, then its original and redacted files.
// File removal failures are logged and never fail the delete.
func (s *Service) Delete(ctx context.Context, id string) error {
	unlock, err := s.lock(ctx, LockKey(id))
	if err != nil {
		return err
	}
	defer unlock()

	doc, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}

	s.removeObject(ctx, id, doc.StorageKey)
	if doc.HasRedaction() {
		s.removeObject(ctx, id, doc.RedactedStorageKey)
	}
	telemetry.Info("document.deleted", map[string]any{
		"document_id": id,
		"file_name":   doc.Name,
	})
	return nil
}

func (s *Service) open(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := s.Store.Open(ctx, key)
	if err != nil {
		if errors.Is(err, object.ErrNotExist) {
			return nil, ErrFileMissing
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return rc, nil
}

func (s *Service) removeObject(ctx context.Context, documentID, key string) {
	if err := s.Store.Delete(ctx, key); err != nil {
		telemetry.Warn("document.file_remove_failed", map[string]any{
			"document_id": documentID,
			"storage_key": key,
			"missing":     errors.Is(err, object.ErrNotExist),
			"error":       err,
		})
	}
}

func (s *Service) lock(ctx context.Context, key string) (func(), error) {
	if s.Locks == nil {
		return func() {}, nil
	}
	return s.Locks.Lock(ctx, key)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
