package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gogotex/archive/internal/document"
	"github.com/gogotex/archive/internal/document/service"
	"github.com/gogotex/archive/pkg/logger"
	"github.com/gogotex/archive/pkg/middleware"
)

// DefaultLoanDays is used when a borrow request names neither a due date
// nor a number of days.
const DefaultLoanDays = 14

// DocumentHandler exposes the catalog over HTTP.
type DocumentHandler struct {
	svc      service.Service
	loanDays int
	now      func() time.Time
}

// Option configures a DocumentHandler.
type Option func(*DocumentHandler)

// WithLoanDays sets the default loan length.
func WithLoanDays(days int) Option {
	return func(h *DocumentHandler) {
		if days > 0 {
			h.loanDays = days
		}
	}
}

// WithClock overrides the time source for due dates and overdue checks.
func WithClock(now func() time.Time) Option {
	return func(h *DocumentHandler) { h.now = now }
}

func NewDocumentHandler(svc service.Service, opts ...Option) *DocumentHandler {
	h := &DocumentHandler{svc: svc, loanDays: DefaultLoanDays, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the document routes under /api/documents. It expects
// middleware.ActorMiddleware to be installed upstream; mutating routes
// require the X-Archive-User header it resolves.
func (h *DocumentHandler) Register(r gin.IRouter) {
	g := r.Group("/api/documents")
	g.GET("", h.list)
	g.POST("", middleware.RequireActor(), h.create)
	g.GET("/overdue", h.overdue)
	g.GET("/:id", h.get)
	g.PATCH("/:id", middleware.RequireActor(), h.update)
	g.DELETE("/:id", middleware.RequireActor(), h.remove)
	g.POST("/:id/borrow", middleware.RequireActor(), h.borrow)
	g.POST("/:id/return", middleware.RequireActor(), h.giveBack)
	g.GET("/:id/history", h.history)
}

func (h *DocumentHandler) list(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	etag := `"` + h.svc.Revision() + `"`
	c.Header("ETag", etag)
	if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
		c.Status(http.StatusNotModified)
		return
	}

	var docs []*document.Document
	if f.IsZero() {
		docs, err = h.svc.ListAllDocuments(c.Request.Context())
	} else {
		docs, err = h.svc.SearchDocuments(c.Request.Context(), f)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h *DocumentHandler) create(c *gin.Context) {
	var req document.Fields
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	actor, _ := middleware.Actor(c)
	d, err := h.svc.CreateDocument(c.Request.Context(), req, actor.Username)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Location", "/api/documents/"+d.ID)
	c.JSON(http.StatusCreated, d)
}

func (h *DocumentHandler) get(c *gin.Context) {
	d, err := h.svc.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *DocumentHandler) update(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	changes, err := document.DecodeChanges(body)
	if err != nil {
		writeError(c, err)
		return
	}
	actor, _ := middleware.Actor(c)
	d, err := h.svc.UpdateDocument(c.Request.Context(), c.Param("id"), changes, actor.Username)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *DocumentHandler) remove(c *gin.Context) {
	if err := h.svc.DeleteDocument(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type borrowRequest struct {
	DueDate *time.Time `json:"dueDate"`
	Days    *int       `json:"days"`
}

func (h *DocumentHandler) borrow(c *gin.Context) {
	var req borrowRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	var due time.Time
	switch {
	case req.DueDate != nil && req.Days != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": "give either dueDate or days, not both"})
		return
	case req.DueDate != nil:
		due = *req.DueDate
	case req.Days != nil:
		if *req.Days <= 0 {
			writeError(c, document.ErrInvalidDueDate)
			return
		}
		due = h.now().AddDate(0, 0, *req.Days)
	default:
		due = h.now().AddDate(0, 0, h.loanDays)
	}

	actor, _ := middleware.Actor(c)
	d, err := h.svc.BorrowDocument(c.Request.Context(), c.Param("id"), actor.Username, due)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *DocumentHandler) giveBack(c *gin.Context) {
	actor, _ := middleware.Actor(c)
	d, err := h.svc.ReturnDocument(c.Request.Context(), c.Param("id"), actor.Username)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *DocumentHandler) history(c *gin.Context) {
	id := c.Param("id")
	entries, state, err := h.svc.DocumentHistory(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":      id,
		"history": entries,
		"state": gin.H{
			"borrowed":   state.Borrowed,
			"borrowedBy": state.BorrowedBy,
			"loans":      state.Loans,
			"edits":      state.Edits,
		},
	})
}

func (h *DocumentHandler) overdue(c *gin.Context) {
	at := h.now()
	if raw := c.Query("at"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "at must be an RFC 3339 timestamp"})
			return
		}
		at = t
	}
	docs, err := h.svc.OverdueDocuments(c.Request.Context(), at)
	if err != nil {
		writeError(c, err)
		return
	}
	if docs == nil {
		docs = []*document.Document{}
	}
	c.JSON(http.StatusOK, docs)
}

func parseFilter(c *gin.Context) (document.Filter, error) {
	f := document.Filter{
		Title:    strings.TrimSpace(c.Query("title")),
		Location: strings.TrimSpace(c.Query("location")),
	}
	if raw := strings.TrimSpace(c.Query("year")); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			return f, errors.New("year must be an integer")
		}
		f.Year = &y
	}
	return f, nil
}

// writeError maps catalog errors to HTTP status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, document.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, document.ErrDuplicateID),
		errors.Is(err, document.ErrAlreadyBorrowed),
		errors.Is(err, document.ErrNotBorrowed):
		status = http.StatusConflict
	case errors.Is(err, document.ErrInvalidDueDate),
		errors.Is(err, document.ErrUnknownField),
		errors.Is(err, document.ErrInvalidDocument),
		errors.Is(err, document.ErrMalformedRecord):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		logger.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(status, gin.H{"error": "internal error", "kind": service.Outcome(err)})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": service.Outcome(err)})
}
