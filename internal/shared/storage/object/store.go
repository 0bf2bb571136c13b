package object

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrNotExist is returned (wrapped) when a key has no stored object.
var ErrNotExist = errors.New("object does not exist")

// ObjectStore defines the contract for saving and retrieving binary objects.
// Keys are slash-separated regardless of platform.
type ObjectStore interface {
	Save(ctx context.Context, key string, contentType string, r io.Reader) (sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// LocalPather is implemented by stores whose objects live on the local filesystem.
type LocalPather interface {
	LocalPath(key string) (string, error)
}

// Key joins slash-separated key segments.
func Key(parts ...string) string {
	return path.Join(parts...)
}

// CleanKey normalizes a key and rejects absolute or escaping keys.
func CleanKey(key string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(key, "\\", "/"))
	if clean == "." || clean == "" || strings.HasPrefix(clean, "/") || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return clean, nil
}

// Materialize returns an absolute local path holding the object for key.
// Local stores hand out their own path; other stores are copied into scratchDir
// and cleanup removes the copy.
func Materialize(ctx context.Context, store ObjectStore, key, scratchDir string) (string, func(), error) {
	if lp, ok := store.(LocalPather); ok {
		p, err := lp.LocalPath(key)
		if err != nil {
			return "", func() {}, err
		}
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", func() {}, fmt.Errorf("materialize %s: %w", key, ErrNotExist)
			}
			return "", func() {}, fmt.Errorf("materialize %s: %w", key, err)
		}
		return p, func() {}, nil
	}

	body, err := store.Open(ctx, key)
	if err != nil {
		return "", func() {}, err
	}
	defer body.Close()

	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return "", func() {}, fmt.Errorf("mkdir scratch: %w", err)
	}
	f, err := os.CreateTemp(scratchDir, "obj-*"+path.Ext(key))
	if err != nil {
		return "", func() {}, fmt.Errorf("create scratch file: %w", err)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		cleanup()
		return "", func() {}, fmt.Errorf("copy to scratch: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("close scratch file: %w", err)
	}
	abs, err := filepath.Abs(f.Name())
	if err != nil {
		cleanup()
		return "", func() {}, err
	}
	return abs, cleanup, nil
}
