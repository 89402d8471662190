package document

import (
	"bytes"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// Snapshots are written as an indented JSON array of records. Readers also
// accept an object holding the array under "documents", and records using
// the older snake_case keys (uuid, storage_location, borrowed_by,
// return_date, last_modified_by, last_modified_date).

type recordOut struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Year             int        `json:"year"`
	Category         string     `json:"category"`
	StorageLocation  string     `json:"storageLocation"`
	Copies           int        `json:"copies"`
	History          []entryOut `json:"history"`
	BorrowedBy       *string    `json:"borrowedBy"`
	ReturnDueDate    *string    `json:"returnDueDate"`
	LastModifiedBy   *string    `json:"lastModifiedBy"`
	LastModifiedDate *string    `json:"lastModifiedDate"`
}

type entryOut struct {
	Action string `json:"action"`
	User   string `json:"user"`
	Date   string `json:"date"`
}

type recordIn struct {
	ID               *string    `json:"id"`
	Title            *string    `json:"title"`
	Year             *int       `json:"year"`
	Category         *string    `json:"category"`
	StorageLocation  *string    `json:"storageLocation"`
	Copies           *int       `json:"copies"`
	History          *[]entryIn `json:"history"`
	BorrowedBy       *string    `json:"borrowedBy"`
	ReturnDueDate    *string    `json:"returnDueDate"`
	LastModifiedBy   *string    `json:"lastModifiedBy"`
	LastModifiedDate *string    `json:"lastModifiedDate"`

	LegacyID               *string `json:"uuid"`
	LegacyStorageLocation  *string `json:"storage_location"`
	LegacyBorrowedBy       *string `json:"borrowed_by"`
	LegacyReturnDate       *string `json:"return_date"`
	LegacyLastModifiedBy   *string `json:"last_modified_by"`
	LegacyLastModifiedDate *string `json:"last_modified_date"`
}

type entryIn struct {
	Action *string `json:"action"`
	User   *string `json:"user"`
	Date   *string `json:"date"`
}

type container struct {
	Documents *[]json.RawMessage `json:"documents"`
}

// EncodeSnapshot serializes the collection in storage order.
func EncodeSnapshot(docs []*Document) ([]byte, error) {
	out := make([]recordOut, len(docs))
	for i, d := range docs {
		out[i] = toRecord(d)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return append(data, '\n'), nil
}

// DecodeSnapshot parses a snapshot. Any unreadable record fails the whole
// snapshot with ErrMalformedRecord; so does a repeated id.
func DecodeSnapshot(data []byte) ([]*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty snapshot", ErrMalformedRecord)
	}

	var raws []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
	case '{':
		var c container
		if err := json.Unmarshal(trimmed, &c); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
		if c.Documents == nil {
			return nil, fmt.Errorf("%w: object snapshot without documents field", ErrMalformedRecord)
		}
		raws = *c.Documents
	default:
		return nil, fmt.Errorf("%w: snapshot is neither an array nor an object", ErrMalformedRecord)
	}

	docs := make([]*Document, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))
	for i, raw := range raws {
		d, err := decodeRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if _, dup := seen[d.ID]; dup {
			return nil, fmt.Errorf("%w: record %d: id %s appears twice", ErrMalformedRecord, i, d.ID)
		}
		seen[d.ID] = struct{}{}
		docs = append(docs, d)
	}
	return docs, nil
}

// MarshalJSON writes the snapshot record form.
func (d Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(toRecord(&d))
}

// UnmarshalJSON reads the snapshot record form.
func (d *Document) UnmarshalJSON(data []byte) error {
	v, err := decodeRecord(data)
	if err != nil {
		return err
	}
	*d = *v
	return nil
}

// MarshalJSON writes the {action, user, date} form.
func (e HistoryEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryOut{Action: string(e.Action), User: e.User, Date: formatTime(e.Date)})
}

func toRecord(d *Document) recordOut {
	history := make([]entryOut, len(d.History))
	for i, e := range d.History {
		history[i] = entryOut{Action: string(e.Action), User: e.User, Date: formatTime(e.Date)}
	}
	return recordOut{
		ID:               d.ID,
		Title:            d.Title,
		Year:             d.Year,
		Category:         d.Category,
		StorageLocation:  d.StorageLocation,
		Copies:           d.Copies,
		History:          history,
		BorrowedBy:       d.BorrowedBy,
		ReturnDueDate:    formatTimePtr(d.ReturnDueDate),
		LastModifiedBy:   d.LastModifiedBy,
		LastModifiedDate: formatTimePtr(d.LastModifiedAt),
	}
}

func decodeRecord(raw []byte) (*Document, error) {
	var in recordIn
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	id := either(in.ID, in.LegacyID)
	location := either(in.StorageLocation, in.LegacyStorageLocation)
	switch {
	case id == nil || *id == "":
		return nil, missing("id")
	case in.Title == nil:
		return nil, missing("title")
	case in.Year == nil:
		return nil, missing("year")
	case in.Category == nil:
		return nil, missing("category")
	case location == nil:
		return nil, missing("storageLocation")
	case in.Copies == nil:
		return nil, missing("copies")
	case in.History == nil:
		return nil, missing("history")
	}

	d := &Document{
		ID:              *id,
		Title:           *in.Title,
		Year:            *in.Year,
		Category:        *in.Category,
		StorageLocation: *location,
		Copies:          *in.Copies,
		BorrowedBy:      either(in.BorrowedBy, in.LegacyBorrowedBy),
		LastModifiedBy:  either(in.LastModifiedBy, in.LegacyLastModifiedBy),
		History:         make([]HistoryEntry, 0, len(*in.History)),
	}

	var err error
	if d.ReturnDueDate, err = parseTimePtr(either(in.ReturnDueDate, in.LegacyReturnDate)); err != nil {
		return nil, fmt.Errorf("returnDueDate: %w", err)
	}
	if d.LastModifiedAt, err = parseTimePtr(either(in.LastModifiedDate, in.LegacyLastModifiedDate)); err != nil {
		return nil, fmt.Errorf("lastModifiedDate: %w", err)
	}

	for i, e := range *in.History {
		if e.Action == nil || e.User == nil || e.Date == nil {
			return nil, fmt.Errorf("%w: %s: history entry %d is incomplete", ErrMalformedRecord, d.ID, i)
		}
		at, err := parseTime(*e.Date)
		if err != nil {
			return nil, fmt.Errorf("history entry %d: %w", i, err)
		}
		d.History = append(d.History, HistoryEntry{Action: Action(*e.Action), User: *e.User, Date: at})
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedRecord, d.ID, err)
	}
	return d, nil
}

func missing(field string) error {
	return fmt.Errorf("%w: missing %s", ErrMalformedRecord, field)
}

func either[T any](current, legacy *T) *T {
	if current != nil {
		return current
	}
	return legacy
}

// Offset-less layouts come from the older format, which wrote local time.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparsable timestamp %q", ErrMalformedRecord, s)
}

func parseTimePtr(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := parseTime(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
