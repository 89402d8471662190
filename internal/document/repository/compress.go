package repository

import (
	"bytes"
	"context"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/gogotex/archive/internal/document"
)

// zstdMagic starts every zstd frame; snapshots without it are passed
// through so an uncompressed mirror can be switched to compression.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Shared encoder/decoder; both are safe for concurrent use.
var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// Compressed wraps a mirror and stores zstd-compressed snapshots in it.
type Compressed struct {
	inner Mirror
}

func NewCompressed(inner Mirror) *Compressed {
	return &Compressed{inner: inner}
}

func (c *Compressed) Name() string { return c.inner.Name() + "+zstd" }

func (c *Compressed) Read(ctx context.Context) ([]byte, error) {
	data, err := c.inner.Read(ctx)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(data, zstdMagic) {
		return data, nil
	}
	out, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress snapshot: %v", document.ErrMalformedRecord, err)
	}
	return out, nil
}

func (c *Compressed) Write(ctx context.Context, data []byte) error {
	return c.inner.Write(ctx, zstdEncoder.EncodeAll(data, nil))
}

// Quarantine delegates to the wrapped mirror when it supports it.
func (c *Compressed) Quarantine(ctx context.Context) (string, error) {
	q, ok := c.inner.(Quarantiner)
	if !ok {
		return "", fmt.Errorf("%s mirror cannot quarantine snapshots", c.inner.Name())
	}
	return q.Quarantine(ctx)
}
