package documents

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"docredact-backend/internal/fieldservice"
	"docredact-backend/internal/shared/keylock"
	"docredact-backend/internal/shared/storage/object/local"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &Service{
		Store:    local.New(dir),
		Repo:     NewMemoryRepo(),
		Locks:    keylock.New(),
		MaxFiles: 3,
		MaxBytes: 1 << 20,
		Now: func() time.Time {
			tick = tick.Add(time.Second)
			return tick
		},
	}, dir
}

func fileOf(name, content string) UploadFile {
	return UploadFile{
		Name: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}

func TestUploadRejectsEmptyAndOversizedBatches(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Upload(ctx, nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty batch, got %v", err)
	}
	files := []UploadFile{fileOf("a.pdf", "a"), fileOf("b.pdf", "b"), fileOf("c.pdf", "c"), fileOf("d.pdf", "d")}
	if _, err := svc.Upload(ctx, files); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for too many files, got %v", err)
	}
}

func TestUploadDedupsByName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Upload(ctx, []UploadFile{fileOf("report.pdf", "%PDF-1.4 first")})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !first[0].Created() {
		t.Fatalf("expected first upload to create, got %+v", first[0])
	}

	second, err := svc.Upload(ctx, []UploadFile{fileOf("report.pdf", "%PDF-1.4 second")})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !second[0].Existing || second[0].Document.ID != first[0].Document.ID {
		t.Fatalf("expected existing document, got %+v", second[0])
	}

	docs, _ := svc.List(ctx)
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}

	rc, _, err := svc.OpenOriginal(ctx, first[0].Document.ID)
	if err != nil {
		t.Fatalf("open original: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "%PDF-1.4 first" {
		t.Fatalf("existing file must not be overwritten, got %q", got)
	}
}

func TestUploadRecordsMetadataAndRoundTripsBytes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	content := "%PDF-1.4\nbinary\x00\x01payload"

	out, err := svc.Upload(ctx, []UploadFile{fileOf("scan.pdf", content)})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	doc := out[0].Document
	if doc.Name != "scan.pdf" || doc.StorageKey != "uploads/scan.pdf" {
		t.Fatalf("unexpected name/key: %+v", doc)
	}
	if doc.SizeBytes != int64(len(content)) || doc.MimeType != "application/pdf" {
		t.Fatalf("unexpected size/mime: %d %s", doc.SizeBytes, doc.MimeType)
	}
	if len(doc.Checksum) != 64 {
		t.Fatalf("expected sha256 hex checksum, got %q", doc.Checksum)
	}

	rc, _, err := svc.OpenOriginal(ctx, doc.ID)
	if err != nil {
		t.Fatalf("open original: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if !bytes.Equal(got, []byte(content)) {
		t.Fatalf("bytes differ: %q", got)
	}
}

func TestUploadReportsPerFileFailures(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	out, err := svc.Upload(ctx, []UploadFile{
		fileOf("ok.pdf", "%PDF ok"),
		fileOf("../evil.pdf", "x"),
		fileOf("empty.pdf", ""),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !out[0].Created() {
		t.Fatalf("expected first file created, got %+v", out[0])
	}
	if !errors.Is(out[1].Err, ErrInvalidInput) || !errors.Is(out[2].Err, ErrInvalidInput) {
		t.Fatalf("expected per-file validation errors, got %v / %v", out[1].Err, out[2].Err)
	}
	docs, _ := svc.List(ctx)
	if len(docs) != 1 {
		t.Fatalf("expected only the valid file stored, got %d", len(docs))
	}
}

func TestListNewestFirst(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		if _, err := svc.Upload(ctx, []UploadFile{fileOf(name, "%PDF "+name)}); err != nil {
			t.Fatalf("upload %s: %v", name, err)
		}
	}
	docs, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if docs[0].Name != "c.pdf" || docs[2].Name != "a.pdf" {
		t.Fatalf("expected newest first, got %s..%s", docs[0].Name, docs[2].Name)
	}
}

func TestOpenOriginalMissingFile(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()
	out, _ := svc.Upload(ctx, []UploadFile{fileOf("gone.pdf", "%PDF gone")})
	if err := os.Remove(filepath.Join(dir, "uploads", "gone.pdf")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if _, _, err := svc.OpenOriginal(ctx, out[0].Document.ID); !errors.Is(err, ErrFileMissing) {
		t.Fatalf("expected ErrFileMissing, got %v", err)
	}
	if _, _, err := svc.OpenOriginal(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOpenRedactedRequiresArtifact(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	out, _ := svc.Upload(ctx, []UploadFile{fileOf("a.pdf", "%PDF a")})

	if _, _, err := svc.OpenRedacted(ctx, out[0].Document.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound without redaction, got %v", err)
	}
}

func TestMetadataDefaultsToEmpty(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	out, _ := svc.Upload(ctx, []UploadFile{fileOf("a.pdf", "%PDF a")})

	fields, err := svc.Metadata(ctx, out[0].Document.ID)
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if fields == nil || len(fields) != 0 {
		t.Fatalf("expected empty non-nil map, got %v", fields)
	}
}

func TestDeleteRemovesRecordAndFiles(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()
	out, _ := svc.Upload(ctx, []UploadFile{fileOf("a.pdf", "%PDF a")})
	id := out[0].Document.ID

	redactedKey := RedactedPrefix + "/a_redacted.pdf"
	if _, _, err := svc.Store.Save(ctx, redactedKey, "application/pdf", strings.NewReader("redacted")); err != nil {
		t.Fatalf("save redacted: %v", err)
	}
	if err := svc.Repo.UpdateRedaction(ctx, id, map[string]string{"Name": "Alice"}, redactedKey, time.Now()); err != nil {
		t.Fatalf("update redaction: %v", err)
	}

	if err := svc.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if _, _, err := svc.OpenOriginal(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for original, got %v", err)
	}
	if _, err := svc.Metadata(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for metadata, got %v", err)
	}
	for _, p := range []string{filepath.Join(dir, "uploads", "a.pdf"), filepath.Join(dir, "redacted-uploads", "a_redacted.pdf")} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("expected %s removed, stat err=%v", p, err)
		}
	}
	if err := svc.Delete(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestDeleteToleratesMissingFile(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()
	out, _ := svc.Upload(ctx, []UploadFile{fileOf("a.pdf", "%PDF a")})
	_ = os.Remove(filepath.Join(dir, "uploads", "a.pdf"))

	if err := svc.Delete(ctx, out[0].Document.ID); err != nil {
		t.Fatalf("delete with missing file should succeed, got %v", err)
	}
}

func TestMemoryRepoIsolatesMaps(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	doc := Document{ID: "d1", Name: "a.pdf", StorageKey: "uploads/a.pdf", MimeType: "application/pdf", SizeBytes: 1}
	if err := repo.Create(ctx, doc); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, Document{ID: "d2", Name: "a.pdf", StorageKey: "uploads/a.pdf", MimeType: "application/pdf"}); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
	if err := repo.Create(ctx, Document{ID: "d3"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	fields := fieldservice.Fields{"Name": {Value: "Alice"}}
	if err := repo.UpdateExtraction(ctx, "d1", fields, fields.Values(), time.Now()); err != nil {
		t.Fatalf("update extraction: %v", err)
	}
	fields["Name"] = fieldservice.FieldValue{Value: "mutated"}

	got, _ := repo.GetByID(ctx, "d1")
	if got.ExtractedData["Name"].Value != "Alice" || got.RedactedData["Name"] != "Alice" {
		t.Fatalf("repo shares caller maps: %+v", got)
	}

	got.RedactedData["Name"] = "changed"
	again, _ := repo.GetByID(ctx, "d1")
	if again.RedactedData["Name"] != "Alice" {
		t.Fatalf("repo returns shared maps")
	}

	if err := repo.UpdateExtraction(ctx, "d1", fieldservice.Fields{}, nil, time.Now()); err != nil {
		t.Fatalf("update extraction: %v", err)
	}
	again, _ = repo.GetByID(ctx, "d1")
	if again.RedactedData["Name"] != "Alice" {
		t.Fatalf("nil redacted map must leave redacted data untouched")
	}
}

func TestContentDisposition(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "report.pdf", want: `attachment; filename="report.pdf"`},
		{name: `we"ird.pdf`, want: `attachment; filename="we_ird.pdf"`},
		{name: "résumé.pdf", want: `attachment; filename="r_sum_.pdf"; filename*=UTF-8''r%C3%A9sum%C3%A9.pdf`},
	}
	for _, tt := range tests {
		if got := ContentDisposition(tt.name); got != tt.want {
			t.Fatalf("ContentDisposition(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
