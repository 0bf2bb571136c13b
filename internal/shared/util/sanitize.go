package util

import (
	"errors"
	"path"
	"strings"
)

// SanitizeFileName removes path separators and rejects traversal patterns.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	if s == "" {
		return "", errors.New("invalid file name")
	}
	return s, nil
}

// RedactedFileName derives the redacted artifact name: "<basename>_redacted.pdf".
func RedactedFileName(name string) string {
	base := strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	base = path.Base(base)
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" || base == "." || base == "/" {
		base = "document"
	}
	return base + "_redacted.pdf"
}
