package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gogotex/archive/internal/document"
	"github.com/gogotex/archive/internal/models"
)

// actor returns the --user identity or fails when none was given.
func (a *app) actor() (models.User, error) {
	u, err := models.NewUser(a.user, a.role)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: pass --user or set ARCHIVE_USER", err)
	}
	return u, nil
}

func newCreateCmd(a *app) *cobra.Command {
	var f document.Fields
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a document to the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.actor()
			if err != nil {
				return err
			}
			d, err := a.svc.CreateDocument(cmd.Context(), f, u.Username)
			if err != nil {
				return err
			}
			return a.printDocument(cmd, d)
		},
	}
	cmd.Flags().StringVar(&f.Title, "title", "", "Title")
	cmd.Flags().IntVar(&f.Year, "year", 0, "Publication year")
	cmd.Flags().StringVar(&f.Category, "category", "", "Category")
	cmd.Flags().StringVar(&f.StorageLocation, "location", "", "Storage location, e.g. a shelf")
	cmd.Flags().IntVar(&f.Copies, "copies", 1, "Number of copies")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("year")
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:   "update ID --set field=value...",
		Short: "Change editable fields of a document",
		Long: `Change editable fields of a document. Editable fields are title, year,
category, storageLocation and copies.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.actor()
			if err != nil {
				return err
			}
			pairs, err := parsePairs(sets)
			if err != nil {
				return err
			}
			changes, err := document.ParseChanges(pairs)
			if err != nil {
				return err
			}
			d, err := a.svc.UpdateDocument(cmd.Context(), args[0], changes, u.Username)
			if err != nil {
				return err
			}
			return a.printDocument(cmd, d)
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field=value to change (repeatable)")
	return cmd
}

func parsePairs(sets []string) (map[string]string, error) {
	pairs := make(map[string]string, len(sets))
	for _, s := range sets {
		name, value, ok := strings.Cut(s, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: expected field=value, got %q", document.ErrInvalidDocument, s)
		}
		pairs[strings.TrimSpace(name)] = value
	}
	return pairs, nil
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Remove a document; removing an unknown id does nothing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.actor(); err != nil {
				return err
			}
			if err := a.svc.DeleteDocument(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func newBorrowCmd(a *app) *cobra.Command {
	var days int
	var due string
	cmd := &cobra.Command{
		Use:   "borrow ID",
		Short: "Lend a document to the acting user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.actor()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("days") && due != "" {
				return fmt.Errorf("%w: give either --days or --due", document.ErrInvalidDueDate)
			}
			until := time.Now().AddDate(0, 0, a.cfg.Archive.LoanDays)
			switch {
			case due != "":
				if until, err = parseDue(due); err != nil {
					return err
				}
			case cmd.Flags().Changed("days"):
				if days <= 0 {
					return fmt.Errorf("%w: --days must be positive", document.ErrInvalidDueDate)
				}
				until = time.Now().AddDate(0, 0, days)
			}
			d, err := a.svc.BorrowDocument(cmd.Context(), args[0], u.Username, until)
			if err != nil {
				return err
			}
			return a.printDocument(cmd, d)
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Loan length in days (default ARCHIVE_LOAN_DAYS)")
	cmd.Flags().StringVar(&due, "due", "", "Due date, YYYY-MM-DD or RFC 3339")
	return cmd
}

// parseDue accepts RFC 3339 or a local calendar date.
func parseDue(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: cannot parse %q", document.ErrInvalidDueDate, s)
	}
	return t, nil
}

func newReturnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "return ID",
		Short: "Take a borrowed document back",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.actor()
			if err != nil {
				return err
			}
			d, err := a.svc.ReturnDocument(cmd.Context(), args[0], u.Username)
			if err != nil {
				return err
			}
			return a.printDocument(cmd, d)
		},
	}
}

func newSearchCmd(a *app) *cobra.Command {
	var f document.Filter
	var year int
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Find documents by year, title or location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("year") {
				f.Year = &year
			}
			docs, err := a.svc.SearchDocuments(cmd.Context(), f)
			if err != nil {
				return err
			}
			return a.printDocuments(cmd, docs)
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "Exact publication year")
	cmd.Flags().StringVar(&f.Title, "title", "", "Case-insensitive title fragment")
	cmd.Flags().StringVar(&f.Location, "location", "", "Case-insensitive location fragment")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the whole catalog in storage order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := a.svc.ListAllDocuments(cmd.Context())
			if err != nil {
				return err
			}
			return a.printDocuments(cmd, docs)
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.svc.GetDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printDocument(cmd, d)
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history ID",
		Short: "Show the audit history of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, state, err := a.svc.DocumentHistory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printHistory(cmd, entries, state)
		},
	}
}

func newOverdueCmd(a *app) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "List loans past their due date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at must be RFC 3339: %w", err)
				}
				now = t
			}
			docs, err := a.svc.OverdueDocuments(cmd.Context(), now)
			if err != nil {
				return err
			}
			return a.printDocuments(cmd, docs)
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "Reference time (RFC 3339), default now")
	return cmd
}
