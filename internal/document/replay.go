package document

import "fmt"

// LendingState is the lending position implied by a history.
type LendingState struct {
	Borrowed   bool
	BorrowedBy string
	Loans      int
	Edits      int
}

// Replay walks a history from the start and derives the lending state.
// It fails when the sequence borrows an item already out or returns one
// that is not.
func Replay(history []HistoryEntry) (LendingState, error) {
	var s LendingState
	for i, e := range history {
		switch e.Action {
		case ActionBorrowed:
			if s.Borrowed {
				return s, fmt.Errorf("%w: entry %d borrows while on loan to %s", ErrAlreadyBorrowed, i, s.BorrowedBy)
			}
			s.Borrowed = true
			s.BorrowedBy = e.User
			s.Loans++
		case ActionReturned:
			if !s.Borrowed {
				return s, fmt.Errorf("%w: entry %d returns an available item", ErrNotBorrowed, i)
			}
			s.Borrowed = false
			s.BorrowedBy = ""
		case ActionModified:
			s.Edits++
		}
	}
	return s, nil
}

// Consistent reports whether replaying the history yields the stored
// lending state.
func (d *Document) Consistent() bool {
	s, err := Replay(d.History)
	if err != nil {
		return false
	}
	if d.BorrowedBy == nil {
		return !s.Borrowed
	}
	return s.Borrowed && s.BorrowedBy == *d.BorrowedBy
}
