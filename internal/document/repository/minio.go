package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gogotex/archive/internal/storage"
)

// ObjectStore is the subset of storage.MinIOStorage the mirror needs.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Copy(ctx context.Context, src, dst string) error
}

// MinIOMirror keeps the snapshot as a single object.
type MinIOMirror struct {
	store ObjectStore
	key   string
}

func NewMinIOMirror(store ObjectStore, key string) *MinIOMirror {
	if key == "" {
		key = "documents.json"
	}
	return &MinIOMirror{store: store, key: key}
}

func (m *MinIOMirror) Name() string { return "minio" }

func (m *MinIOMirror) Read(ctx context.Context) ([]byte, error) {
	data, err := m.store.Get(ctx, m.key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, ErrSnapshotMissing
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", m.key, err)
	}
	return data, nil
}

func (m *MinIOMirror) Write(ctx context.Context, data []byte) error {
	if err := m.store.Put(ctx, m.key, data, "application/json"); err != nil {
		return fmt.Errorf("put %s: %w", m.key, err)
	}
	return nil
}

// Quarantine copies the object to <key>.corrupt-<unix seconds>.
func (m *MinIOMirror) Quarantine(ctx context.Context) (string, error) {
	dst := fmt.Sprintf("%s.corrupt-%d", m.key, time.Now().Unix())
	if err := m.store.Copy(ctx, m.key, dst); err != nil {
		return "", fmt.Errorf("quarantine %s: %w", m.key, err)
	}
	return dst, nil
}
