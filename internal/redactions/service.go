package redactions

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"docredact-backend/internal/documents"
	"docredact-backend/internal/shared/keylock"
	"docredact-backend/internal/shared/metrics"
	"docredact-backend/internal/shared/storage/object"
	"docredact-backend/internal/shared/telemetry"
	"docredact-backend/internal/shared/util"
)

const (
	stateUnredacted = "unredacted"
	stateRedacting  = "redacting"
	stateRedacted   = "redacted"
	stateFailed     = "failed"

	pdfContentType = "application/pdf"
)

// Redactor calls the external redaction endpoint.
type Redactor interface {
	Redact(ctx context.Context, filePath string, fields map[string]string) ([]byte, error)
}

// Service produces redacted artifacts for documents.
type Service struct {
	Repo       documents.Repo
	Store      object.ObjectStore
	Client     Redactor
	Locks      *keylock.Map
	ScratchDir string
	Now        func() time.Time
}

// Result is a stored redaction.
type Result struct {
	PDF []byte
	// FileName is the download name of the artifact.
	FileName   string
	Selection  map[string]string
	Transition string
}

// Redact asks the field service to redact the selected values and stores the
// returned PDF as the document's redacted artifact, replacing any previous one.
// The document is left untouched unless both the call and the write succeed.
func (s *Service) Redact(ctx context.Context, documentID string, selected map[string]string) (Result, error) {
	if _, err := s.Repo.GetByID(ctx, documentID); err != nil {
		return Result{}, err
	}
	selection, err := cleanSelection(selected)
	if err != nil {
		return Result{}, err
	}

	unlock, err := s.lock(ctx, documents.LockKey(documentID))
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		return Result{}, err
	}
	from := stateUnredacted
	if doc.HasRedaction() {
		from = stateRedacted
	}

	path, cleanup, err := object.Materialize(ctx, s.Store, doc.StorageKey, s.ScratchDir)
	if err != nil {
		if errors.Is(err, object.ErrNotExist) {
			return Result{}, documents.ErrFileMissing
		}
		return Result{}, fmt.Errorf("%w: %v", documents.ErrStorage, err)
	}
	defer cleanup()

	start := time.Now()
	metrics.IncRedactionStarted()
	logStatus(documentID, from, stateRedacting, map[string]any{"field_count": len(selection)})

	pdf, err := s.Client.Redact(ctx, path, selection)
	if err != nil {
		s.fail(documentID, start, err)
		return Result{}, err
	}

	fileName := util.RedactedFileName(doc.Name)
	key := object.Key(documents.RedactedPrefix, fileName)
	if _, _, err := s.Store.Save(ctx, key, pdfContentType, bytes.NewReader(pdf)); err != nil {
		err = fmt.Errorf("%w: save %s: %v", documents.ErrStorage, key, err)
		s.fail(documentID, start, err)
		return Result{}, err
	}
	if err := s.Repo.UpdateRedaction(ctx, documentID, selection, key, s.now()); err != nil {
		if !doc.HasRedaction() {
			if delErr := s.Store.Delete(ctx, key); delErr != nil {
				telemetry.Warn("redaction.orphan_remove_failed", map[string]any{"document_id": documentID, "storage_key": key, "error": delErr})
			}
		}
		s.fail(documentID, start, err)
		return Result{}, err
	}

	elapsed := time.Since(start).Milliseconds()
	metrics.IncRedactionCompleted()
	metrics.ObserveRedactionDurationMs(float64(elapsed))
	logStatus(documentID, stateRedacting, stateRedacted, map[string]any{
		"field_count": len(selection),
		"size_bytes":  len(pdf),
		"duration_ms": elapsed,
	})
	return Result{
		PDF:        pdf,
		FileName:   fileName,
		Selection:  selection,
		Transition: from + "->" + stateRedacted,
	}, nil
}

// cleanSelection trims keys and rejects an empty selection.
func cleanSelection(selected map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(selected))
	for k, v := range selected {
		key := strings.TrimSpace(k)
		if key == "" {
			return nil, fmt.Errorf("%w: field names must not be empty", documents.ErrInvalidInput)
		}
		out[key] = v
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no fields selected for redaction", documents.ErrInvalidInput)
	}
	return out, nil
}

func (s *Service) fail(documentID string, start time.Time, err error) {
	elapsed := time.Since(start).Milliseconds()
	metrics.IncRedactionFailed()
	metrics.ObserveRedactionDurationMs(float64(elapsed))
	logStatus(documentID, stateRedacting, stateFailed, map[string]any{"duration_ms": elapsed, "error": err})
}

func logStatus(documentID, from, to string, extra map[string]any) {
	fields := map[string]any{
		"document_id":       documentID,
		"status_transition": from + "->" + to,
	}
	for k, v := range extra {
		fields[k] = v
	}
	if to == stateFailed {
		telemetry.Error("redaction.status", fields)
		return
	}
	telemetry.Info("redaction.status", fields)
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
