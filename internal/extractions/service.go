package extractions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"docredact-backend/internal/documents"
	"docredact-backend/internal/fieldservice"
	"docredact-backend/internal/shared/keylock"
	"docredact-backend/internal/shared/metrics"
	"docredact-backend/internal/shared/storage/object"
	"docredact-backend/internal/shared/telemetry"
)

const (
	stateNoData     = "no_data"
	stateExtracting = "extracting"
	stateExtracted  = "extracted"
	stateFailed     = "failed"
)

// Extractor calls the external extraction endpoint.
type Extractor interface {
	Extract(ctx context.Context, filePath string, spec fieldservice.FieldSpec) (fieldservice.Fields, error)
}

// Service runs extractions and caches their result on the document.
type Service struct {
	Repo       documents.Repo
	Store      object.ObjectStore
	Client     Extractor
	Locks      *keylock.Map
	ScratchDir string
	Now        func() time.Time

	inflight singleflight.Group
}

// Result is the outcome of an extraction request.
type Result struct {
	Fields fieldservice.Fields
	// Cached is true when the stored result was served without calling out.
	Cached bool
	// Transition is the state change, e.g. "no_data->extracted".
	Transition string
}

// Extract returns the normalized fields of a document. Without forceRefresh a
// stored result is served as is. Concurrent identical requests share one call.
func (s *Service) Extract(ctx context.Context, documentID string, spec fieldservice.FieldSpec, forceRefresh bool) (Result, error) {
	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		return Result{}, err
	}
	if !forceRefresh && doc.HasExtraction() {
		return Result{Fields: doc.ExtractedData, Cached: true, Transition: stateExtracted + "->" + stateExtracted}, nil
	}

	// The shared call outlives any single caller's cancellation; the field
	// service client timeout still bounds it.
	callCtx := context.WithoutCancel(ctx)
	v, err, shared := s.inflight.Do(documentID+"|"+spec.CacheKey(), func() (any, error) {
		return s.run(callCtx, documentID, spec)
	})
	if err != nil {
		return Result{}, err
	}
	res := v.(Result)
	res.Fields = res.Fields.Clone()
	if shared {
		telemetry.Info("extraction.shared", map[string]any{"document_id": documentID})
	}
	return res, nil
}

// Cached returns the stored extraction of a document without calling out.
func (s *Service) Cached(ctx context.Context, documentID string) (fieldservice.Fields, bool, error) {
	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, false, err
	}
	if !doc.HasExtraction() {
		return fieldservice.Fields{}, false, nil
	}
	return doc.ExtractedData, true, nil
}

func (s *Service) run(ctx context.Context, documentID string, spec fieldservice.FieldSpec) (Result, error) {
	unlock, err := s.lock(ctx, documents.LockKey(documentID))
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		return Result{}, err
	}
	from := stateNoData
	if doc.HasExtraction() {
		from = stateExtracted
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
	metrics.IncExtractionStarted()
	logStatus(documentID, from, stateExtracting, map[string]any{"default_spec": spec.IsDefault(), "field_count": len(spec.Fields)})

	fields, err := s.Client.Extract(ctx, path, spec)
	if err != nil {
		s.fail(documentID, start, err)
		return Result{}, err
	}

	// Mirror into the redaction selection unless a redacted artifact already
	// describes it.
	var redacted map[string]string
	if !doc.HasRedaction() {
		redacted = fields.Values()
	}
	if err := s.Repo.UpdateExtraction(ctx, documentID, fields, redacted, s.now()); err != nil {
		s.fail(documentID, start, err)
		return Result{}, err
	}

	elapsed := time.Since(start).Milliseconds()
	metrics.IncExtractionCompleted()
	metrics.ObserveExtractionDurationMs(float64(elapsed))
	logStatus(documentID, stateExtracting, stateExtracted, map[string]any{
		"field_count": len(fields),
		"duration_ms": elapsed,
	})
	return Result{Fields: fields, Transition: from + "->" + stateExtracted}, nil
}

func (s *Service) fail(documentID string, start time.Time, err error) {
	elapsed := time.Since(start).Milliseconds()
	metrics.IncExtractionFailed()
	metrics.ObserveExtractionDurationMs(float64(elapsed))
	fields := map[string]any{"duration_ms": elapsed, "error": err}
	if se, ok := fieldservice.AsServiceError(err); ok {
		fields["upstream_status"] = se.StatusCode
	}
	logStatus(documentID, stateExtracting, stateFailed, fields)
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
		telemetry.Error("extraction.status", fields)
		return
	}
	telemetry.Info("extraction.status", fields)
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
