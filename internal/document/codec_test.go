package document

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sampleDocs() []*Document {
	at := time.Date(2024, 3, 1, 10, 30, 0, 123456789, time.UTC)
	due := at.Add(14 * 24 * time.Hour)
	admin := "admin"
	jan := "jan"

	a := New(Fields{Title: "History of Poland", Year: 1999, Category: "History book", StorageLocation: "Shelf A1", Copies: 3})
	a.Touch(admin, at)
	a.Record(ActionModified, admin, at.Add(time.Minute))
	a.Record(ActionBorrowed, jan, at.Add(2*time.Minute))
	a.BorrowedBy = &jan
	a.ReturnDueDate = &due

	b := New(Fields{Title: "Maps", Year: 1850, Category: "Atlas", StorageLocation: "Drawer 4", Copies: 1})
	return []*Document{a, b}
}

func requireSameDocument(t *testing.T, want, got *Document) {
	t.Helper()
	require.Equal(t, want.ID, got.ID)
	require.Equal(t, want.Title, got.Title)
	require.Equal(t, want.Year, got.Year)
	require.Equal(t, want.Category, got.Category)
	require.Equal(t, want.StorageLocation, got.StorageLocation)
	require.Equal(t, want.Copies, got.Copies)
	require.Equal(t, want.BorrowedBy, got.BorrowedBy)
	require.Equal(t, want.LastModifiedBy, got.LastModifiedBy)
	requireSameTime(t, want.ReturnDueDate, got.ReturnDueDate)
	requireSameTime(t, want.LastModifiedAt, got.LastModifiedAt)
	require.Len(t, got.History, len(want.History))
	for i := range want.History {
		require.Equal(t, want.History[i].Action, got.History[i].Action)
		require.Equal(t, want.History[i].User, got.History[i].User)
		require.True(t, want.History[i].Date.Equal(got.History[i].Date), "history %d date", i)
	}
}

func requireSameTime(t *testing.T, want, got *time.Time) {
	t.Helper()
	if want == nil {
		require.Nil(t, got)
		return
	}
	require.NotNil(t, got)
	require.True(t, want.Equal(*got), "want %v, got %v", *want, *got)
}

func TestSnapshotRoundTrip(t *testing.T) {
	docs := sampleDocs()

	data, err := EncodeSnapshot(docs)
	require.NoError(t, err)

	got, err := DecodeSnapshot(data)
	require.NoError(t, err)
	require.Len(t, got, len(docs))
	for i := range docs {
		requireSameDocument(t, docs[i], got[i])
	}

	again, err := EncodeSnapshot(got)
	require.NoError(t, err)
	require.Equal(t, string(data), string(again))
}

func TestEncodeWritesExplicitNulls(t *testing.T) {
	d := New(Fields{Title: "t", Year: 2000, Category: "c", StorageLocation: "l", Copies: 1})
	data, err := EncodeSnapshot([]*Document{d})
	require.NoError(t, err)

	s := string(data)
	require.Contains(t, s, `"borrowedBy": null`)
	require.Contains(t, s, `"returnDueDate": null`)
	require.Contains(t, s, `"lastModifiedBy": null`)
	require.Contains(t, s, `"lastModifiedDate": null`)
	require.Contains(t, s, `"history": []`)
}

func TestDecodeSnapshotContainers(t *testing.T) {
	record := `{"id":"a1","title":"T","year":2001,"category":"C","storageLocation":"L","copies":2,"history":[],
		"borrowedBy":null,"returnDueDate":null,"lastModifiedBy":null,"lastModifiedDate":null}`

	bare, err := DecodeSnapshot([]byte("[" + record + "]"))
	require.NoError(t, err)
	require.Len(t, bare, 1)

	wrapped, err := DecodeSnapshot([]byte(`{"documents":[` + record + `]}`))
	require.NoError(t, err)
	require.Len(t, wrapped, 1)
	require.Equal(t, "a1", wrapped[0].ID)

	empty, err := DecodeSnapshot([]byte(" [ ] \n"))
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestDecodeLegacyRecord(t *testing.T) {
	legacy := `[{"uuid":"0b7e","title":"Historia Polski","year":1999,"category":"Książka historyczna",
		"storage_location":"Regał A1","copies":3,
		"history":[{"action":"borrowed","user":"jan_kowalski","date":"2024-05-01T12:00:00.123456"}],
		"borrowed_by":"jan_kowalski","return_date":"2024-05-15T12:00:00.123456",
		"last_modified_by":"admin","last_modified_date":"2024-05-01T11:59:00"}]`

	docs, err := DecodeSnapshot([]byte(legacy))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	d := docs[0]
	require.Equal(t, "0b7e", d.ID)
	require.Equal(t, "Regał A1", d.StorageLocation)
	require.NotNil(t, d.BorrowedBy)
	require.Equal(t, "jan_kowalski", *d.BorrowedBy)
	require.NotNil(t, d.ReturnDueDate)
	require.Equal(t, 123456000, d.ReturnDueDate.Nanosecond())
	require.Len(t, d.History, 1)
	require.Equal(t, ActionBorrowed, d.History[0].Action)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":             ``,
		"scalar":            `42`,
		"object no field":   `{"items":[]}`,
		"not json":          `[{"id":`,
		"missing title":     `[{"id":"x","year":1,"category":"c","storageLocation":"l","copies":1,"history":[]}]`,
		"missing history":   `[{"id":"x","title":"t","year":1,"category":"c","storageLocation":"l","copies":1}]`,
		"year as string":    `[{"id":"x","title":"t","year":"1999","category":"c","storageLocation":"l","copies":1,"history":[]}]`,
		"bad timestamp":     `[{"id":"x","title":"t","year":1,"category":"c","storageLocation":"l","copies":1,"history":[],"lastModifiedDate":"yesterday"}]`,
		"half borrowed":     `[{"id":"x","title":"t","year":1,"category":"c","storageLocation":"l","copies":1,"history":[],"borrowedBy":"jan"}]`,
		"unknown action":    `[{"id":"x","title":"t","year":1,"category":"c","storageLocation":"l","copies":1,"history":[{"action":"lost","user":"u","date":"2024-01-01T00:00:00Z"}]}]`,
		"incomplete entry":  `[{"id":"x","title":"t","year":1,"category":"c","storageLocation":"l","copies":1,"history":[{"action":"modified"}]}]`,
		"null record":       `[null]`,
		"duplicate id":      `[{"id":"x","title":"t","year":1,"category":"c","storageLocation":"l","copies":1,"history":[]},{"id":"x","title":"u","year":1,"category":"c","storageLocation":"l","copies":1,"history":[]}]`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeSnapshot([]byte(input))
			require.ErrorIs(t, err, ErrMalformedRecord)
		})
	}
}

func TestValidate(t *testing.T) {
	d := New(Fields{Title: "Atlas", Year: 2001, Copies: 1})
	require.NoError(t, d.Validate())

	jan := "jan"
	d.BorrowedBy = &jan
	require.ErrorContains(t, d.Validate(), "returnDueDate")
	due := time.Now()
	d.ReturnDueDate = &due
	require.NoError(t, d.Validate())

	d.History = []HistoryEntry{{Action: "lost", User: jan, Date: due}}
	require.ErrorContains(t, d.Validate(), "unknown action")
}

func TestDocumentJSONMatchesSnapshotRecord(t *testing.T) {
	d := sampleDocs()[0]
	data, err := d.MarshalJSON()
	require.NoError(t, err)

	var back Document
	require.NoError(t, back.UnmarshalJSON(data))
	requireSameDocument(t, d, &back)
}
