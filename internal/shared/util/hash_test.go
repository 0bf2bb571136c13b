package util

import (
	"io"
	"strings"
	"testing"
)

func TestChecksumMatchesContent(t *testing.T) {
	c := NewChecksum(strings.NewReader("hello world"))
	if _, err := io.Copy(io.Discard, c); err != nil {
		t.Fatalf("drain: %v", err)
	}
	got := c.Sum()
	const want = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if got != want {
		t.Fatalf("unexpected checksum %s", got)
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(got))
	}
}
