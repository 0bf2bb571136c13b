package util

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// Checksum tees everything read through it into a sha256 digest.
type Checksum struct {
	r io.Reader
	h hash.Hash
}

// NewChecksum wraps r so the content hash is available after it is drained.
func NewChecksum(r io.Reader) *Checksum {
	h := sha256.New()
	return &Checksum{r: io.TeeReader(r, h), h: h}
}

func (c *Checksum) Read(p []byte) (int, error) {
	return c.r.Read(p)
}

// Sum returns the hex digest of the bytes read so far.
func (c *Checksum) Sum() string {
	return hex.EncodeToString(c.h.Sum(nil))
}
