package fieldservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	maxExtractResponseBytes = 16 << 20
	maxRedactResponseBytes  = 256 << 20
	maxErrorMessageBytes    = 512
)

// Client calls the external extraction/redaction service.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient builds a client with a bounded per-call timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Extract asks the service for the fields in spec from the file at filePath
// and returns the normalized result.
func (c *Client) Extract(ctx context.Context, filePath string, spec FieldSpec) (Fields, error) {
	payload, err := json.Marshal(spec)
	if err != nil {
		return nil, &ServiceError{Op: OpExtraction, Message: "encode field spec", Err: err}
	}

	status, body, err := c.post(ctx, OpExtraction, "/extract-data", filePath, "application/json", payload, maxExtractResponseBytes)
	if err != nil {
		return nil, err
	}

	fields, err := Normalize(body)
	if err != nil {
		return nil, &ServiceError{Op: OpExtraction, StatusCode: status, Message: "unexpected response shape", Err: err}
	}
	return fields, nil
}

// Redact asks the service to redact the given values from the file at
// filePath and returns the redacted PDF bytes.
func (c *Client) Redact(ctx context.Context, filePath string, fields map[string]string) ([]byte, error) {
	wrapped := make(map[string][]string, len(fields))
	for k, v := range fields {
		wrapped[k] = []string{v}
	}
	payload, err := json.Marshal([]map[string][]string{wrapped})
	if err != nil {
		return nil, &ServiceError{Op: OpRedaction, Message: "encode redaction fields", Err: err}
	}

	status, body, err := c.post(ctx, OpRedaction, "/redact-data", filePath, "application/pdf", payload, maxRedactResponseBytes)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, &ServiceError{Op: OpRedaction, StatusCode: status, Message: "empty response body"}
	}
	return body, nil
}

func (c *Client) post(ctx context.Context, op, endpoint, filePath, accept string, payload []byte, limit int64) (int, []byte, error) {
	if c == nil || strings.TrimSpace(c.BaseURL) == "" {
		return 0, nil, &ServiceError{Op: op, Message: "field service URL is not configured"}
	}

	target := c.BaseURL + endpoint + "?" + url.Values{"file_path": {filePath}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, &ServiceError{Op: op, Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(msg, "Client.Timeout") {
			msg = "request timed out"
		}
		return 0, nil, &ServiceError{Op: op, Message: msg, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return resp.StatusCode, nil, &ServiceError{Op: op, StatusCode: resp.StatusCode, Message: "read response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, nil, &ServiceError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(resp.StatusCode, body)}
	}
	return resp.StatusCode, body, nil
}

// errorMessage pulls a readable message out of an error response body.
func errorMessage(status int, body []byte) string {
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err == nil {
		for _, key := range []string{"detail", "message", "error"} {
			if s, ok := parsed[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return http.StatusText(status)
	}
	if len(text) > maxErrorMessageBytes {
		text = text[:maxErrorMessageBytes]
	}
	return text
}

