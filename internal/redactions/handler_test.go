package redactions

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"docredact-backend/internal/documents"
	"docredact-backend/internal/fieldservice"
)

func newHandlerRouter(t *testing.T, client Redactor) (*gin.Engine, *fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := newFixture(t, client)
	r := gin.New()
	NewHandler(f.svc).RegisterRoutes(r.Group("/api"))
	return r, f
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRedactReturnsAttachment(t *testing.T) {
	stub := &stubRedactor{}
	r, f := newHandlerRouter(t, stub)

	tests := []struct {
		name string
		body string
	}{
		{name: "plain values", body: `{"Name":"Alice","Age":42}`},
		{name: "extracted shape", body: `{"Name":{"value":"Alice","confidence":0.9},"Age":{"value":42,"confidence":null}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := post(r, "/api/documents/"+f.docID+"/redact", tc.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
				t.Fatalf("unexpected content type %s", ct)
			}
			if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="contract_redacted.pdf"` {
				t.Fatalf("unexpected disposition %s", cd)
			}
			var header map[string]string
			if err := json.Unmarshal([]byte(rec.Header().Get(documents.RedactedDataHeader)), &header); err != nil {
				t.Fatalf("decode header: %v", err)
			}
			if header["Name"] != "Alice" || header["Age"] != "42" || len(header) != 2 {
				t.Fatalf("unexpected Redacted-Data %v", header)
			}
			if !strings.HasPrefix(rec.Body.String(), "%PDF-1.4 redacted") {
				t.Fatalf("unexpected body %q", rec.Body.String())
			}
		})
	}
}

func TestRedactRejectsBadRequests(t *testing.T) {
	stub := &stubRedactor{}
	r, f := newHandlerRouter(t, stub)
	path := "/api/documents/" + f.docID + "/redact"

	for _, body := range []string{``, `{}`, `[]`, `{"Name":["Alice"]}`, `{"Name":null}`, `{"Name":{"confidence":1}}`} {
		if rec := post(r, path, body); rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
	if stub.callCount() != 0 {
		t.Fatalf("expected no external calls, got %d", stub.callCount())
	}
	if rec := post(r, "/api/documents/missing/redact", `{"Name":"Alice"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRedactMapsServiceError(t *testing.T) {
	stub := &stubRedactor{err: &fieldservice.ServiceError{Op: fieldservice.OpRedaction, StatusCode: 422, Message: "cannot redact"}}
	r, f := newHandlerRouter(t, stub)

	rec := post(r, "/api/documents/"+f.docID+"/redact", `{"Name":"Alice"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != "redaction_service_error" || body.Message != "cannot redact" {
		t.Fatalf("unexpected error body %s", rec.Body.String())
	}
}
