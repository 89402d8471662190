package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/gogotex/archive/internal/document"
)

func (a *app) printDocument(cmd *cobra.Command, d *document.Document) error {
	if a.output == "json" {
		return writeJSON(cmd.OutOrStdout(), d)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "id:\t%s\n", d.ID)
	fmt.Fprintf(w, "title:\t%s\n", d.Title)
	fmt.Fprintf(w, "year:\t%d\n", d.Year)
	fmt.Fprintf(w, "category:\t%s\n", d.Category)
	fmt.Fprintf(w, "location:\t%s\n", d.StorageLocation)
	fmt.Fprintf(w, "copies:\t%d\n", d.Copies)
	fmt.Fprintf(w, "status:\t%s\n", status(d))
	if d.LastModifiedBy != nil && d.LastModifiedAt != nil {
		fmt.Fprintf(w, "modified:\t%s by %s\n", stamp(*d.LastModifiedAt), *d.LastModifiedBy)
	}
	fmt.Fprintf(w, "history:\t%d entries\n", len(d.History))
	return w.Flush()
}

func (a *app) printDocuments(cmd *cobra.Command, docs []*document.Document) error {
	if docs == nil {
		docs = []*document.Document{}
	}
	if a.output == "json" {
		return writeJSON(cmd.OutOrStdout(), docs)
	}
	if len(docs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no documents")
		return nil
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tYEAR\tLOCATION\tCOPIES\tSTATUS")
	for _, d := range docs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%s\n", d.ID, d.Title, d.Year, d.StorageLocation, d.Copies, status(d))
	}
	return w.Flush()
}

func (a *app) printHistory(cmd *cobra.Command, entries []document.HistoryEntry, state document.LendingState) error {
	if a.output == "json" {
		return writeJSON(cmd.OutOrStdout(), map[string]any{
			"history": entries,
			"state": map[string]any{
				"borrowed":   state.Borrowed,
				"borrowedBy": state.BorrowedBy,
				"loans":      state.Loans,
				"edits":      state.Edits,
			},
		})
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tACTION\tUSER")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\n", stamp(e.Date), e.Action, e.User)
	}
	fmt.Fprintf(w, "\nloans: %d, edits: %d\n", state.Loans, state.Edits)
	return w.Flush()
}

func status(d *document.Document) string {
	if d.Available() {
		return "available"
	}
	s := "borrowed by " + *d.BorrowedBy
	if d.ReturnDueDate != nil {
		s += " until " + d.ReturnDueDate.Local().Format(time.DateOnly)
	}
	return s
}

func stamp(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
