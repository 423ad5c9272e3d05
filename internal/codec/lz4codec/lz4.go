// Package lz4codec compresses snapshots with the lz4 frame format. It trades
// ratio for speed compared to zstd.
package lz4codec

import (
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/discochess/codeassist/internal/codec"
)

// Compile-time check that Codec implements codec.Codec.
var _ codec.Codec = (*Codec)(nil)

// Codec implements lz4 compression.
type Codec struct {
	level lz4.CompressionLevel
}

// New returns an lz4 codec using the fast compression level.
func New() *Codec {
	return &Codec{level: lz4.Fast}
}

// NewLevel returns an lz4 codec using level.
func NewLevel(level lz4.CompressionLevel) *Codec {
	return &Codec{level: level}
}

// Reader wraps r to decompress lz4 frames.
func (c *Codec) Reader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}

// Writer wraps w to compress data with lz4. Close flushes the frame.
func (c *Codec) Writer(w io.Writer) (io.WriteCloser, error) {
	zw := lz4.NewWriter(w)
	if err := zw.Apply(lz4.CompressionLevelOption(c.level)); err != nil {
		return nil, fmt.Errorf("lz4codec: %w", err)
	}
	return zw, nil
}

// Extension returns "lz4".
func (c *Codec) Extension() string {
	return "lz4"
}
