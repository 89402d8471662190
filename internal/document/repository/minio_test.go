package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogotex/archive/internal/storage"
)

type fakeObjects struct {
	objects map[string][]byte
	putErr  error
}

func (f *fakeObjects) Get(ctx context.Context, key string) ([]byte, error) {
	b, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return b, nil
}

func (f *fakeObjects) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.objects[key] = append([]byte(nil), data...)
	return nil
}

func (f *fakeObjects) Copy(ctx context.Context, src, dst string) error {
	b, ok := f.objects[src]
	if !ok {
		return storage.ErrObjectNotFound
	}
	f.objects[dst] = b
	return nil
}

func TestMinIOMirror(t *testing.T) {
	ctx := context.Background()
	objs := &fakeObjects{objects: map[string][]byte{}}
	m := NewMinIOMirror(objs, "")

	_, err := m.Read(ctx)
	assert.ErrorIs(t, err, ErrSnapshotMissing)

	require.NoError(t, m.Write(ctx, []byte("[]\n")))
	assert.Equal(t, "[]\n", string(objs.objects["documents.json"]))

	got, err := m.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(got))

	dst, err := m.Quarantine(ctx)
	require.NoError(t, err)
	assert.Contains(t, dst, "documents.json.corrupt-")
	assert.Contains(t, objs.objects, dst)

	objs.putErr = errors.New("bucket gone")
	assert.ErrorContains(t, m.Write(ctx, []byte("[1]")), "bucket gone")
}
