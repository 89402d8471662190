package document

import "errors"

// Sentinel errors shared by the store, the service and the front ends.
// Callers match them with errors.Is; wrapped errors carry the offending id
// or field in their message.
var (
	ErrMalformedRecord = errors.New("malformed record")
	ErrNotFound        = errors.New("document not found")
	ErrDuplicateID     = errors.New("duplicate document id")
	ErrAlreadyBorrowed = errors.New("document already borrowed")
	ErrNotBorrowed     = errors.New("document is not borrowed")
	ErrInvalidDueDate  = errors.New("due date must be in the future")
	ErrUnknownField    = errors.New("unknown field")
	ErrIOFailure       = errors.New("persistence failure")
	ErrInvalidDocument = errors.New("invalid document")
)
