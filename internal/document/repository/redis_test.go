package repository

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisMirror(t *testing.T) (*RedisMirror, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisMirror(client, ""), mr
}

func TestRedisMirrorReadWrite(t *testing.T) {
	ctx := context.Background()
	m, mr := newRedisMirror(t)

	_, err := m.Read(ctx)
	assert.ErrorIs(t, err, ErrSnapshotMissing)

	require.NoError(t, m.Write(ctx, []byte("[]\n")))
	got, err := m.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(got))

	stored, err := mr.Get("archive:documents")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", stored)
}

func TestRedisMirrorQuarantine(t *testing.T) {
	ctx := context.Background()
	m, mr := newRedisMirror(t)
	require.NoError(t, mr.Set("archive:documents", "{broken"))

	s := NewStore(m)
	require.NoError(t, s.Load(ctx))
	assert.Equal(t, 0, s.Len())
	assert.False(t, mr.Exists("archive:documents"))

	var kept []string
	for _, k := range mr.Keys() {
		if k != "archive:documents" {
			kept = append(kept, k)
		}
	}
	require.Len(t, kept, 1)
	assert.Contains(t, kept[0], "archive:documents:corrupt:")
}

func TestRedisStorePersists(t *testing.T) {
	ctx := context.Background()
	m, _ := newRedisMirror(t)
	s := NewStore(m)
	require.NoError(t, s.Load(ctx))
	d := addDoc(t, s, polandFields(), "admin")

	again := NewStore(m)
	require.NoError(t, again.Load(ctx))
	got, err := again.Get(d.ID)
	require.NoError(t, err)
	assert.Equal(t, "History of Poland", got.Title)
}
