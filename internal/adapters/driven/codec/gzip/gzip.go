// Package gzip implements driven.Codec with compress/gzip.
package gzip

import (
	"compress/gzip"
	"fmt"
	"io"

	"github.com/custodia-labs/rlm/internal/core/ports/driven"
)

// Ensure Codec implements the interface.
var _ driven.Codec = (*Codec)(nil)

// Codec compresses archive artifacts with gzip.
type Codec struct {
	level int
}

// New returns a codec using the given compression level.
// Use gzip.DefaultCompression (-1) unless there is a reason not to.
func New(level int) (*Codec, error) {
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		return nil, fmt.Errorf("gzip: invalid compression level %d", level)
	}
	return &Codec{level: level}, nil
}

// Default returns a codec at the best-compression level, the trade-off
// archives want: written once, rarely read.
func Default() *Codec {
	return &Codec{level: gzip.BestCompression}
}

// NewWriter wraps w. Closing the returned writer flushes the gzip footer
// but leaves w open.
func (c *Codec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriterLevel(w, c.level)
}

// NewReader wraps r.
func (c *Codec) NewReader(r io.Reader) (io.ReadCloser, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	return zr, nil
}

// Extension returns ".gz".
func (c *Codec) Extension() string {
	return ".gz"
}
