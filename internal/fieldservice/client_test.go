package fieldservice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestClientExtractSendsSpecAndPath(t *testing.T) {
	var gotPath, gotQuery, gotAccept string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("file_path")
		gotAccept = r.Header.Get("Accept")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"Name": ["Alice"]}, {"Email": ["a@x.com"]}]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", time.Second)
	spec := FieldSpec{Fields: []Field{{Key: "Name"}}}
	fields, err := client.Extract(context.Background(), "/data/uploads/my file.pdf", spec)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if gotPath != "/extract-data" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotQuery != "/data/uploads/my file.pdf" {
		t.Fatalf("unexpected file_path %q", gotQuery)
	}
	if gotAccept != "application/json" {
		t.Fatalf("unexpected Accept %q", gotAccept)
	}
	if string(gotBody) != `[{"key":"Name"}]` {
		t.Fatalf("unexpected body %s", gotBody)
	}
	if fields["Name"].Value != "Alice" || fields["Email"].Value != "a@x.com" {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestClientExtractDefaultSentinel(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, time.Second).Extract(context.Background(), "/tmp/a.pdf", DefaultSpec()); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if string(gotBody) != `"default"` {
		t.Fatalf("expected default sentinel body, got %s", gotBody)
	}
}

func TestClientExtractErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{name: "non 2xx with detail", status: http.StatusBadGateway, body: `{"detail":"ocr engine down"}`, wantStatus: http.StatusBadGateway, wantMsg: "ocr engine down"},
		{name: "non 2xx plain text", status: http.StatusInternalServerError, body: "boom", wantStatus: http.StatusInternalServerError, wantMsg: "boom"},
		{name: "non 2xx empty body", status: http.StatusServiceUnavailable, body: "", wantStatus: http.StatusServiceUnavailable, wantMsg: "Service Unavailable"},
		{name: "unknown shape", status: http.StatusOK, body: `{"Name":"Alice"}`, wantStatus: http.StatusOK, wantMsg: "unexpected response shape"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, time.Second).Extract(context.Background(), "/tmp/a.pdf", DefaultSpec())
			if !errors.Is(err, ErrServiceFailure) {
				t.Fatalf("expected ErrServiceFailure, got %v", err)
			}
			se, ok := AsServiceError(err)
			if !ok {
				t.Fatalf("expected ServiceError, got %T", err)
			}
			if se.Op != OpExtraction || se.StatusCode != tt.wantStatus || se.Message != tt.wantMsg {
				t.Fatalf("unexpected service error %+v", se)
			}
		})
	}
}

func TestClientTimeoutIsServiceError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewClient(srv.URL, 50*time.Millisecond).Redact(context.Background(), "/tmp/a.pdf", map[string]string{"Name": "Alice"})
	se, ok := AsServiceError(err)
	if !ok {
		t.Fatalf("expected ServiceError, got %v", err)
	}
	if se.Op != OpRedaction || se.Message != "request timed out" {
		t.Fatalf("unexpected service error %+v", se)
	}
}

func TestClientRedactWrapsFields(t *testing.T) {
	var calls int32
	var gotBody []byte
	var gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/redact-data" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAccept = r.Header.Get("Accept")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-redacted"))
	}))
	defer srv.Close()

	out, err := NewClient(srv.URL, time.Second).Redact(context.Background(), "/tmp/a.pdf", map[string]string{"Name": "Alice", "Email": "a@x.com"})
	if err != nil {
		t.Fatalf("Redact: %v", err)
	}
	if string(out) != "%PDF-redacted" {
		t.Fatalf("unexpected bytes %q", out)
	}
	if gotAccept != "application/pdf" {
		t.Fatalf("unexpected Accept %q", gotAccept)
	}

	var decoded []map[string][]string
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(decoded) != 1 || len(decoded[0]) != 2 || decoded[0]["Name"][0] != "Alice" || decoded[0]["Email"][0] != "a@x.com" {
		t.Fatalf("unexpected redact body %s", gotBody)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected one call, got %d", calls)
	}
}

func TestClientRedactEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Redact(context.Background(), "/tmp/a.pdf", map[string]string{"Name": "Alice"})
	se, ok := AsServiceError(err)
	if !ok || se.Message != "empty response body" {
		t.Fatalf("expected empty body service error, got %v", err)
	}
}

func TestClientWithoutBaseURL(t *testing.T) {
	_, err := NewClient("", time.Second).Extract(context.Background(), "/tmp/a.pdf", DefaultSpec())
	if !errors.Is(err, ErrServiceFailure) {
		t.Fatalf("expected ErrServiceFailure, got %v", err)
	}
}
