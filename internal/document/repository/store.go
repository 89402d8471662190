package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"

	"github.com/gogotex/archive/internal/document"
	"github.com/gogotex/archive/pkg/logger"
	"github.com/gogotex/archive/pkg/metrics"
)

// Store owns the authoritative collection and its durable mirror. Every
// mutation builds the next collection, persists it whole, and only then
// replaces the in-memory state, so a failed write leaves both untouched.
// Stored documents are never modified in place; callers get clones.
type Store struct {
	mu       sync.RWMutex
	mirror   Mirror
	docs     []*document.Document
	index    map[string]int
	revision uint64
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for stamps and due-date checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(m Mirror, opts ...Option) *Store {
	s := &Store{
		mirror: m,
		index:  map[string]int{},
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the collection with the mirror's snapshot. A missing
// snapshot yields an empty collection. An unreadable one, including one a
// mirror reports as ErrMalformedRecord, is logged, quarantined when the
// mirror supports it, and also yields an empty collection. Only a failing
// read is returned as an error.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.mirror.Read(ctx)
	if errors.Is(err, ErrSnapshotMissing) {
		logger.Infof("no snapshot in %s mirror; starting with an empty collection", s.mirror.Name())
		s.reset(nil, 0)
		return nil
	}
	var docs []*document.Document
	if err == nil {
		docs, err = document.DecodeSnapshot(data)
	} else if !errors.Is(err, document.ErrMalformedRecord) {
		return fmt.Errorf("%w: read snapshot: %w", document.ErrIOFailure, err)
	}
	if err != nil {
		logger.Warnf("unreadable snapshot in %s mirror, starting empty: %v", s.mirror.Name(), err)
		if q, ok := s.mirror.(Quarantiner); ok {
			if where, qerr := q.Quarantine(ctx); qerr != nil {
				logger.Errorf("quarantine unreadable snapshot: %v", qerr)
			} else {
				logger.Warnf("unreadable snapshot kept at %s", where)
			}
		}
		s.reset(nil, 0)
		return nil
	}

	s.reset(docs, xxh3.Hash(data))
	logger.Infof("loaded %d documents from %s mirror", len(docs), s.mirror.Name())
	return nil
}

// Add stamps the document with actor and the current time, appends it and
// persists. A caller-supplied id already in the collection fails with
// ErrDuplicateID; an empty id is replaced by a fresh one.
func (s *Store) Add(ctx context.Context, d *document.Document, actor string) (*document.Document, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil document", document.ErrInvalidDocument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := d.Clone()
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if _, exists := s.index[doc.ID]; exists {
		return nil, fmt.Errorf("%w: %s", document.ErrDuplicateID, doc.ID)
	}
	if doc.History == nil {
		doc.History = []document.HistoryEntry{}
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", document.ErrInvalidDocument, err)
	}
	doc.Touch(actor, s.now())

	next := append(slices.Clip(s.docs), doc)
	if err := s.commit(ctx, next); err != nil {
		return nil, err
	}
	return doc.Clone(), nil
}

// Remove deletes the document with id and persists. Removing an absent id
// is not an error; the unchanged collection is still written.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := slices.Clone(s.docs)
	if i, ok := s.index[id]; ok {
		next = slices.Delete(next, i, i+1)
	}
	return s.commit(ctx, next)
}

// Update applies a partial change set, stamps the last-modified fields and
// appends a modified entry.
func (s *Store) Update(ctx context.Context, id string, changes document.FieldChanges, actor string) (*document.Document, error) {
	return s.mutate(ctx, id, func(doc *document.Document, now time.Time) error {
		changes.Apply(doc)
		doc.Touch(actor, now)
		doc.Record(document.ActionModified, actor, now)
		return nil
	})
}

// Borrow lends the document to actor until due, which must lie strictly
// after the current time.
func (s *Store) Borrow(ctx context.Context, id, actor string, due time.Time) (*document.Document, error) {
	return s.mutate(ctx, id, func(doc *document.Document, now time.Time) error {
		if !doc.Available() {
			return fmt.Errorf("%w: %s is held by %s", document.ErrAlreadyBorrowed, id, *doc.BorrowedBy)
		}
		if !due.After(now) {
			return fmt.Errorf("%w: %s is not after %s", document.ErrInvalidDueDate, due.Format(time.RFC3339), now.Format(time.RFC3339))
		}
		borrower := actor
		dueUTC := due.UTC()
		doc.BorrowedBy = &borrower
		doc.ReturnDueDate = &dueUTC
		doc.Record(document.ActionBorrowed, actor, now)
		return nil
	})
}

// Return ends the current loan. The returning actor need not be the
// borrower.
func (s *Store) Return(ctx context.Context, id, actor string) (*document.Document, error) {
	return s.mutate(ctx, id, func(doc *document.Document, now time.Time) error {
		if doc.Available() {
			return fmt.Errorf("%w: %s", document.ErrNotBorrowed, id)
		}
		doc.BorrowedBy = nil
		doc.ReturnDueDate = nil
		doc.Record(document.ActionReturned, actor, now)
		return nil
	})
}

// Search returns clones of the matching documents in storage order.
func (s *Store) Search(f document.Filter) []*document.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*document.Document, 0, len(s.docs))
	for _, d := range s.docs {
		if f.Matches(d) {
			out = append(out, d.Clone())
		}
	}
	return out
}

// All returns clones of the whole collection in storage order.
func (s *Store) All() []*document.Document {
	return s.Search(document.Filter{})
}

// Get returns a clone of one document.
func (s *Store) Get(id string) (*document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", document.ErrNotFound, id)
	}
	return s.docs[i].Clone(), nil
}

// Overdue returns documents whose loan ended before now.
func (s *Store) Overdue(now time.Time) []*document.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*document.Document
	for _, d := range s.docs {
		if d.Overdue(now) {
			out = append(out, d.Clone())
		}
	}
	return out
}

// Len returns the collection size.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Revision identifies the last loaded or persisted snapshot.
func (s *Store) Revision() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return strconv.FormatUint(s.revision, 16)
}

// Mirror reports where the collection is persisted.
func (s *Store) Mirror() string {
	return s.mirror.Name()
}

func (s *Store) mutate(ctx context.Context, id string, fn func(doc *document.Document, now time.Time) error) (*document.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", document.ErrNotFound, id)
	}
	doc := s.docs[i].Clone()
	if err := fn(doc, s.now()); err != nil {
		return nil, err
	}

	next := slices.Clone(s.docs)
	next[i] = doc
	if err := s.commit(ctx, next); err != nil {
		return nil, err
	}
	return doc.Clone(), nil
}

// commit persists next and, on success, makes it the current collection.
// Callers hold s.mu.
func (s *Store) commit(ctx context.Context, next []*document.Document) error {
	data, err := document.EncodeSnapshot(next)
	if err != nil {
		return fmt.Errorf("%w: %w", document.ErrIOFailure, err)
	}
	start := time.Now()
	err = s.mirror.Write(ctx, data)
	metrics.ObservePersist(s.mirror.Name(), time.Since(start), err)
	if err != nil {
		logger.Errorf("persist snapshot to %s mirror: %v", s.mirror.Name(), err)
		return fmt.Errorf("%w: %w", document.ErrIOFailure, err)
	}

	s.reset(next, xxh3.Hash(data))
	return nil
}

func (s *Store) reset(docs []*document.Document, revision uint64) {
	s.docs = docs
	s.revision = revision
	s.index = make(map[string]int, len(docs))
	onLoan := 0
	for i, d := range docs {
		s.index[d.ID] = i
		if !d.Available() {
			onLoan++
		}
	}
	metrics.Documents.Set(float64(len(docs)))
	metrics.OnLoan.Set(float64(onLoan))
}
