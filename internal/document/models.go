package document

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action names one kind of audited state change.
type Action string

const (
	ActionModified Action = "modified"
	ActionBorrowed Action = "borrowed"
	ActionReturned Action = "returned"
)

// HistoryEntry is one immutable audit record.
type HistoryEntry struct {
	Action Action
	User   string
	Date   time.Time
}

// Fields holds the bibliographic data needed to create a document.
type Fields struct {
	Title           string `json:"title"`
	Year            int    `json:"year"`
	Category        string `json:"category"`
	StorageLocation string `json:"storageLocation"`
	Copies          int    `json:"copies"`
}

// Document is one archived physical item together with its lending state
// and audit trail. BorrowedBy and ReturnDueDate are either both set or both
// nil. History only grows.
type Document struct {
	ID              string
	Title           string
	Year            int
	Category        string
	StorageLocation string
	Copies          int

	BorrowedBy    *string
	ReturnDueDate *time.Time

	LastModifiedBy *string
	LastModifiedAt *time.Time

	History []HistoryEntry
}

// New returns an available document with a fresh id and an empty history.
func New(f Fields) *Document {
	return &Document{
		ID:              uuid.NewString(),
		Title:           f.Title,
		Year:            f.Year,
		Category:        f.Category,
		StorageLocation: f.StorageLocation,
		Copies:          f.Copies,
		History:         []HistoryEntry{},
	}
}

// Available reports whether nobody currently holds the document.
func (d *Document) Available() bool {
	return d.BorrowedBy == nil
}

// Overdue reports whether the document is on loan past its due date.
func (d *Document) Overdue(now time.Time) bool {
	return d.ReturnDueDate != nil && now.After(*d.ReturnDueDate)
}

// Clone returns a deep copy; the store hands out clones only.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	c.BorrowedBy = cloneString(d.BorrowedBy)
	c.ReturnDueDate = cloneTime(d.ReturnDueDate)
	c.LastModifiedBy = cloneString(d.LastModifiedBy)
	c.LastModifiedAt = cloneTime(d.LastModifiedAt)
	c.History = make([]HistoryEntry, len(d.History))
	copy(c.History, d.History)
	return &c
}

// Validate checks that borrowedBy and returnDueDate are set together and
// that history entries use known actions only.
func (d *Document) Validate() error {
	if (d.BorrowedBy == nil) != (d.ReturnDueDate == nil) {
		return errors.New("borrowedBy and returnDueDate must be set together")
	}
	for i, e := range d.History {
		switch e.Action {
		case ActionModified, ActionBorrowed, ActionReturned:
		default:
			return fmt.Errorf("history entry %d has unknown action %q", i, e.Action)
		}
	}
	return nil
}

// Record appends a history entry.
func (d *Document) Record(action Action, user string, at time.Time) {
	d.History = append(d.History, HistoryEntry{Action: action, User: user, Date: at})
}

// Touch stamps the last-modified attribution.
func (d *Document) Touch(user string, at time.Time) {
	d.LastModifiedBy = &user
	d.LastModifiedAt = &at
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
