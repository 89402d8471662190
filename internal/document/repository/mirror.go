package repository

import (
	"context"
	"errors"
)

// ErrSnapshotMissing is returned by Mirror.Read when nothing has been
// persisted yet. The store treats it as an empty collection.
var ErrSnapshotMissing = errors.New("snapshot missing")

// Mirror is the durable copy of the collection. Write must replace the
// previous snapshot as a whole: a reader never observes a partial write.
type Mirror interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Name() string
}

// Quarantiner is implemented by mirrors that can move an unreadable
// snapshot aside so the next write does not destroy it.
type Quarantiner interface {
	Quarantine(ctx context.Context) (string, error)
}
