package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogotex/archive/internal/document"
)

var testNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *MemoryMirror) {
	t.Helper()
	m := NewMemoryMirror()
	s := NewStore(m, WithClock(func() time.Time { return testNow }))
	require.NoError(t, s.Load(context.Background()))
	return s, m
}

func polandFields() document.Fields {
	return document.Fields{
		Title:           "History of Poland",
		Year:            1999,
		Category:        "History book",
		StorageLocation: "Shelf A1",
		Copies:          3,
	}
}

func addDoc(t *testing.T, s *Store, f document.Fields, actor string) *document.Document {
	t.Helper()
	d, err := s.Add(context.Background(), document.New(f), actor)
	require.NoError(t, err)
	return d
}

func TestStoreLendingScenario(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	created := addDoc(t, s, polandFields(), "admin")
	require.NotNil(t, created.LastModifiedBy)
	assert.Equal(t, "admin", *created.LastModifiedBy)
	assert.True(t, created.LastModifiedAt.Equal(testNow))
	assert.Empty(t, created.History)

	found := s.Search(document.Filter{Title: "History"})
	require.Len(t, found, 1)
	assert.Equal(t, created.ID, found[0].ID)

	due := testNow.Add(14 * 24 * time.Hour)
	borrowed, err := s.Borrow(ctx, created.ID, "jan", due)
	require.NoError(t, err)
	require.NotNil(t, borrowed.BorrowedBy)
	assert.Equal(t, "jan", *borrowed.BorrowedBy)
	assert.True(t, borrowed.ReturnDueDate.Equal(due))
	require.Len(t, borrowed.History, 1)
	assert.Equal(t, document.ActionBorrowed, borrowed.History[0].Action)
	assert.Equal(t, "jan", borrowed.History[0].User)

	for _, actor := range []string{"jan", "ola"} {
		_, err = s.Borrow(ctx, created.ID, actor, due)
		assert.ErrorIs(t, err, document.ErrAlreadyBorrowed)
	}

	returned, err := s.Return(ctx, created.ID, "jan")
	require.NoError(t, err)
	assert.Nil(t, returned.BorrowedBy)
	assert.Nil(t, returned.ReturnDueDate)
	require.Len(t, returned.History, 2)
	assert.Equal(t, document.ActionReturned, returned.History[1].Action)
	assert.True(t, returned.Consistent())
}

func TestStoreBorrowReturnRestoresAvailability(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	d := addDoc(t, s, polandFields(), "admin")

	before, err := s.Get(d.ID)
	require.NoError(t, err)

	_, err = s.Borrow(ctx, d.ID, "jan", testNow.Add(time.Hour))
	require.NoError(t, err)
	after, err := s.Return(ctx, d.ID, "ola")
	require.NoError(t, err)

	assert.Equal(t, before.BorrowedBy, after.BorrowedBy)
	assert.Equal(t, before.ReturnDueDate, after.ReturnDueDate)
	assert.Len(t, after.History, len(before.History)+2)
	assert.Equal(t, "ola", after.History[1].User)
	// lending does not count as an edit
	assert.True(t, after.LastModifiedAt.Equal(*before.LastModifiedAt))
}

func TestStoreFailedLendingLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	s, m := newTestStore(t)
	d := addDoc(t, s, polandFields(), "admin")

	_, err := s.Return(ctx, d.ID, "jan")
	require.ErrorIs(t, err, document.ErrNotBorrowed)

	_, err = s.Borrow(ctx, d.ID, "jan", testNow.Add(time.Hour))
	require.NoError(t, err)
	snapshot := m.Bytes()
	rev := s.Revision()

	_, err = s.Borrow(ctx, d.ID, "ola", testNow.Add(2*time.Hour))
	require.ErrorIs(t, err, document.ErrAlreadyBorrowed)

	got, err := s.Get(d.ID)
	require.NoError(t, err)
	assert.Equal(t, "jan", *got.BorrowedBy)
	assert.Len(t, got.History, 1)
	assert.Equal(t, snapshot, m.Bytes())
	assert.Equal(t, rev, s.Revision())
}

func TestStoreBorrowChecks(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	d := addDoc(t, s, polandFields(), "admin")

	_, err := s.Borrow(ctx, "missing", "jan", testNow.Add(time.Hour))
	assert.ErrorIs(t, err, document.ErrNotFound)

	_, err = s.Borrow(ctx, d.ID, "jan", testNow)
	assert.ErrorIs(t, err, document.ErrInvalidDueDate)
	_, err = s.Borrow(ctx, d.ID, "jan", testNow.Add(-time.Minute))
	assert.ErrorIs(t, err, document.ErrInvalidDueDate)

	_, err = s.Return(ctx, "missing", "jan")
	assert.ErrorIs(t, err, document.ErrNotFound)
}

func TestStoreUpdate(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	d := addDoc(t, s, polandFields(), "admin")

	title := "History of Poland, 2nd ed."
	copies := 5
	later := testNow.Add(time.Hour)
	s.now = func() time.Time { return later }

	got, err := s.Update(ctx, d.ID, document.FieldChanges{Title: &title, Copies: &copies}, "editor")
	require.NoError(t, err)
	assert.Equal(t, title, got.Title)
	assert.Equal(t, 5, got.Copies)
	assert.Equal(t, 1999, got.Year)
	assert.Equal(t, "Shelf A1", got.StorageLocation)
	assert.Equal(t, "editor", *got.LastModifiedBy)
	assert.True(t, got.LastModifiedAt.Equal(later))
	require.Len(t, got.History, 1)
	assert.Equal(t, document.HistoryEntry{Action: document.ActionModified, User: "editor", Date: later}, got.History[0])

	_, err = s.Update(ctx, "missing", document.FieldChanges{Title: &title}, "editor")
	assert.ErrorIs(t, err, document.ErrNotFound)
}

func TestStoreAddDuplicateAndEmptyID(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	d := addDoc(t, s, polandFields(), "admin")

	dup := document.New(polandFields())
	dup.ID = d.ID
	_, err := s.Add(ctx, dup, "admin")
	assert.ErrorIs(t, err, document.ErrDuplicateID)
	assert.Equal(t, 1, s.Len())

	blank := document.New(polandFields())
	blank.ID = ""
	got, err := s.Add(ctx, blank, "admin")
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.NotEqual(t, d.ID, got.ID)

	_, err = s.Add(ctx, nil, "admin")
	assert.ErrorIs(t, err, document.ErrInvalidDocument)
}

func TestStoreRemove(t *testing.T) {
	ctx := context.Background()
	s, m := newTestStore(t)
	a := addDoc(t, s, polandFields(), "admin")
	b := addDoc(t, s, document.Fields{Title: "Atlas", Year: 2001, Category: "Map", StorageLocation: "Shelf B2", Copies: 1}, "admin")
	writes := m.Writes()

	require.NoError(t, s.Remove(ctx, "missing"))
	assert.Equal(t, writes+1, m.Writes())
	assert.Equal(t, 2, s.Len())

	require.NoError(t, s.Remove(ctx, a.ID))
	assert.Equal(t, writes+2, m.Writes())
	all := s.All()
	require.Len(t, all, 1)
	assert.Equal(t, b.ID, all[0].ID)

	_, err := s.Get(a.ID)
	assert.ErrorIs(t, err, document.ErrNotFound)
}

func TestStoreSearch(t *testing.T) {
	s, _ := newTestStore(t)
	a := addDoc(t, s, polandFields(), "admin")
	b := addDoc(t, s, document.Fields{Title: "History of Art", Year: 2005, Category: "Art", StorageLocation: "Shelf B2", Copies: 1}, "admin")
	c := addDoc(t, s, document.Fields{Title: "Atlas", Year: 1999, Category: "Map", StorageLocation: "shelf a3", Copies: 2}, "admin")

	ids := func(docs []*document.Document) []string {
		out := make([]string, 0, len(docs))
		for _, d := range docs {
			out = append(out, d.ID)
		}
		return out
	}

	assert.Equal(t, []string{a.ID, b.ID, c.ID}, ids(s.Search(document.Filter{})))
	assert.Equal(t, ids(s.All()), ids(s.Search(document.Filter{})))

	year := 1999
	assert.Equal(t, []string{a.ID, b.ID}, ids(s.Search(document.Filter{Title: "history"})))
	assert.Equal(t, []string{a.ID}, ids(s.Search(document.Filter{Title: "history", Year: &year})))
	assert.Equal(t, []string{a.ID, c.ID}, ids(s.Search(document.Filter{Location: "SHELF A"})))
	assert.Empty(t, s.Search(document.Filter{Title: "atlas", Location: "B2"}))

	wide := ids(s.Search(document.Filter{Title: "a"}))
	narrow := ids(s.Search(document.Filter{Title: "a", Year: &year}))
	for _, id := range narrow {
		assert.Contains(t, wide, id)
	}
}

func TestStoreReturnsClones(t *testing.T) {
	s, _ := newTestStore(t)
	d := addDoc(t, s, polandFields(), "admin")

	d.Title = "changed"
	list := s.All()
	list[0].Title = "changed too"
	list[0].History = append(list[0].History, document.HistoryEntry{Action: document.ActionModified})

	got, err := s.Get(d.ID)
	require.NoError(t, err)
	assert.Equal(t, "History of Poland", got.Title)
	assert.Empty(t, got.History)
}

func TestStorePersistFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	s, m := newTestStore(t)
	d := addDoc(t, s, polandFields(), "admin")
	snapshot := m.Bytes()

	m.FailWrites(errors.New("disk full"))

	_, err := s.Add(ctx, document.New(polandFields()), "admin")
	assert.ErrorIs(t, err, document.ErrIOFailure)
	_, err = s.Borrow(ctx, d.ID, "jan", testNow.Add(time.Hour))
	assert.ErrorIs(t, err, document.ErrIOFailure)
	assert.ErrorIs(t, s.Remove(ctx, d.ID), document.ErrIOFailure)

	assert.Equal(t, 1, s.Len())
	got, err := s.Get(d.ID)
	require.NoError(t, err)
	assert.True(t, got.Available())
	assert.Empty(t, got.History)
	assert.Equal(t, snapshot, m.Bytes())

	m.FailWrites(nil)
	_, err = s.Borrow(ctx, d.ID, "jan", testNow.Add(time.Hour))
	require.NoError(t, err)
}

func TestStoreRemoveAbsentRewritesSnapshot(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryMirrorWith([]byte("[]"))
	s := NewStore(m)
	require.NoError(t, s.Load(ctx))

	require.NoError(t, s.Remove(ctx, "missing"))
	assert.Equal(t, 1, m.Writes())
	want, err := document.EncodeSnapshot(nil)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(m.Bytes()))
}

func TestStoreAddRejectsInconsistentDocument(t *testing.T) {
	ctx := context.Background()
	s, m := newTestStore(t)
	good := addDoc(t, s, polandFields(), "admin")
	writes := m.Writes()

	lent := document.New(polandFields())
	borrower := "jan"
	lent.BorrowedBy = &borrower
	_, err := s.Add(ctx, lent, "admin")
	assert.ErrorIs(t, err, document.ErrInvalidDocument)

	odd := document.New(polandFields())
	odd.History = []document.HistoryEntry{{Action: "lost", User: "jan", Date: testNow}}
	_, err = s.Add(ctx, odd, "admin")
	assert.ErrorIs(t, err, document.ErrInvalidDocument)

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, writes, m.Writes())

	reloaded := NewStore(NewMemoryMirrorWith(m.Bytes()))
	require.NoError(t, reloaded.Load(ctx))
	require.Equal(t, 1, reloaded.Len())
	_, err = reloaded.Get(good.ID)
	assert.NoError(t, err)
}

func TestStoreLoadMissingAndRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, m := newTestStore(t)
	assert.Equal(t, 0, s.Len())

	a := addDoc(t, s, polandFields(), "admin")
	_, err := s.Borrow(ctx, a.ID, "jan", testNow.Add(24*time.Hour))
	require.NoError(t, err)
	addDoc(t, s, document.Fields{Title: "Atlas", Year: 2001, Category: "Map", StorageLocation: "Shelf B2", Copies: 1}, "admin")

	reloaded := NewStore(NewMemoryMirrorWith(m.Bytes()))
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, s.Revision(), reloaded.Revision())

	want, got := s.All(), reloaded.All()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Title, got[i].Title)
		assert.Equal(t, want[i].BorrowedBy, got[i].BorrowedBy)
		assert.Len(t, got[i].History, len(want[i].History))
		assert.True(t, got[i].Consistent())
	}
}

type failingMirror struct{ MemoryMirror }

func (f *failingMirror) Read(ctx context.Context) ([]byte, error) {
	return nil, errors.New("permission denied")
}

func TestStoreLoadReadFailure(t *testing.T) {
	s := NewStore(&failingMirror{})
	err := s.Load(context.Background())
	assert.ErrorIs(t, err, document.ErrIOFailure)
}

func TestStoreLoadMalformedStartsEmpty(t *testing.T) {
	s := NewStore(NewMemoryMirrorWith([]byte(`{"not": "a collection"`)))
	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, 0, s.Len())
}

func TestStoreOverdue(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	a := addDoc(t, s, polandFields(), "admin")
	b := addDoc(t, s, document.Fields{Title: "Atlas", Year: 2001, Category: "Map", StorageLocation: "Shelf B2", Copies: 1}, "admin")

	_, err := s.Borrow(ctx, a.ID, "jan", testNow.Add(time.Hour))
	require.NoError(t, err)
	_, err = s.Borrow(ctx, b.ID, "ola", testNow.Add(48*time.Hour))
	require.NoError(t, err)

	assert.Empty(t, s.Overdue(testNow))
	late := s.Overdue(testNow.Add(2 * time.Hour))
	require.Len(t, late, 1)
	assert.Equal(t, a.ID, late[0].ID)
}
