package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gogotex/archive/internal/document"
	"github.com/gogotex/archive/internal/document/repository"
	"github.com/gogotex/archive/pkg/logger"
	"github.com/gogotex/archive/pkg/metrics"
)

// Service defines the catalog operations used by the HTTP and CLI front ends.
type Service interface {
	CreateDocument(ctx context.Context, f document.Fields, actor string) (*document.Document, error)
	UpdateDocument(ctx context.Context, id string, changes document.FieldChanges, actor string) (*document.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	BorrowDocument(ctx context.Context, id, actor string, due time.Time) (*document.Document, error)
	ReturnDocument(ctx context.Context, id, actor string) (*document.Document, error)
	SearchDocuments(ctx context.Context, f document.Filter) ([]*document.Document, error)
	ListAllDocuments(ctx context.Context) ([]*document.Document, error)
	GetDocument(ctx context.Context, id string) (*document.Document, error)
	DocumentHistory(ctx context.Context, id string) ([]document.HistoryEntry, document.LendingState, error)
	OverdueDocuments(ctx context.Context, now time.Time) ([]*document.Document, error)
	// Revision identifies the current snapshot; it changes on every
	// persisted mutation.
	Revision() string
}

// NewService returns a Service over a loaded store.
func NewService(store *repository.Store) Service {
	return &catalogService{store: store}
}

// NewMemoryService returns a Service backed by an empty in-memory store.
func NewMemoryService() Service {
	store := repository.NewStore(repository.NewMemoryMirror())
	_ = store.Load(context.Background())
	return &catalogService{store: store}
}

type catalogService struct {
	store *repository.Store
}

func (s *catalogService) CreateDocument(ctx context.Context, f document.Fields, actor string) (*document.Document, error) {
	if err := validateFields(f); err != nil {
		return nil, observe("create", err)
	}
	d, err := s.store.Add(ctx, document.New(f), actor)
	if err != nil {
		return nil, observe("create", err)
	}
	logger.Infof("document %s created by %s", d.ID, actor)
	return d, observe("create", nil)
}

func (s *catalogService) UpdateDocument(ctx context.Context, id string, changes document.FieldChanges, actor string) (*document.Document, error) {
	if err := validateChanges(changes); err != nil {
		return nil, observe("update", err)
	}
	d, err := s.store.Update(ctx, id, changes, actor)
	if err != nil {
		return nil, observe("update", err)
	}
	logger.Infof("document %s updated by %s: %s", id, actor, strings.Join(changes.Names(), ","))
	return d, observe("update", nil)
}

func (s *catalogService) DeleteDocument(ctx context.Context, id string) error {
	if err := s.store.Remove(ctx, id); err != nil {
		return observe("delete", err)
	}
	logger.Infof("document %s deleted", id)
	return observe("delete", nil)
}

func (s *catalogService) BorrowDocument(ctx context.Context, id, actor string, due time.Time) (*document.Document, error) {
	d, err := s.store.Borrow(ctx, id, actor, due)
	if err != nil {
		return nil, observe("borrow", err)
	}
	logger.Infof("document %s borrowed by %s until %s", id, actor, due.UTC().Format(time.RFC3339))
	return d, observe("borrow", nil)
}

func (s *catalogService) ReturnDocument(ctx context.Context, id, actor string) (*document.Document, error) {
	d, err := s.store.Return(ctx, id, actor)
	if err != nil {
		return nil, observe("return", err)
	}
	logger.Infof("document %s returned by %s", id, actor)
	return d, observe("return", nil)
}

func (s *catalogService) SearchDocuments(ctx context.Context, f document.Filter) ([]*document.Document, error) {
	return s.store.Search(f), observe("search", nil)
}

func (s *catalogService) ListAllDocuments(ctx context.Context) ([]*document.Document, error) {
	return s.store.All(), observe("list", nil)
}

func (s *catalogService) GetDocument(ctx context.Context, id string) (*document.Document, error) {
	d, err := s.store.Get(id)
	return d, observe("get", err)
}

func (s *catalogService) DocumentHistory(ctx context.Context, id string) ([]document.HistoryEntry, document.LendingState, error) {
	d, err := s.store.Get(id)
	if err != nil {
		return nil, document.LendingState{}, observe("history", err)
	}
	state, err := document.Replay(d.History)
	if err != nil {
		// The stored state stays authoritative; a broken sequence is only reported.
		logger.Warnf("history of %s does not replay: %v", id, err)
	}
	return d.History, state, observe("history", nil)
}

func (s *catalogService) OverdueDocuments(ctx context.Context, now time.Time) ([]*document.Document, error) {
	return s.store.Overdue(now), observe("overdue", nil)
}

func (s *catalogService) Revision() string {
	return s.store.Revision()
}

func validateFields(f document.Fields) error {
	var problems []string
	if strings.TrimSpace(f.Title) == "" {
		problems = append(problems, "title is required")
	}
	if f.Year <= 0 {
		problems = append(problems, "year must be positive")
	}
	if f.Copies <= 0 {
		problems = append(problems, "copies must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", document.ErrInvalidDocument, strings.Join(problems, "; "))
	}
	return nil
}

func validateChanges(c document.FieldChanges) error {
	var problems []string
	if c.Title != nil && strings.TrimSpace(*c.Title) == "" {
		problems = append(problems, "title is required")
	}
	if c.Year != nil && *c.Year <= 0 {
		problems = append(problems, "year must be positive")
	}
	if c.Copies != nil && *c.Copies <= 0 {
		problems = append(problems, "copies must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", document.ErrInvalidDocument, strings.Join(problems, "; "))
	}
	return nil
}

// observe counts the call under its outcome and returns err unchanged.
func observe(op string, err error) error {
	metrics.Operations.WithLabelValues(op, Outcome(err)).Inc()
	return err
}

// Outcome names the error class of err for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, document.ErrNotFound):
		return "not_found"
	case errors.Is(err, document.ErrDuplicateID):
		return "duplicate_id"
	case errors.Is(err, document.ErrAlreadyBorrowed):
		return "already_borrowed"
	case errors.Is(err, document.ErrNotBorrowed):
		return "not_borrowed"
	case errors.Is(err, document.ErrInvalidDueDate):
		return "invalid_due_date"
	case errors.Is(err, document.ErrUnknownField):
		return "unknown_field"
	case errors.Is(err, document.ErrInvalidDocument):
		return "invalid_document"
	case errors.Is(err, document.ErrIOFailure):
		return "io_failure"
	default:
		return "error"
	}
}
