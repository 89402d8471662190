package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gogotex/archive/internal/config"
	"github.com/gogotex/archive/internal/document"
	"github.com/gogotex/archive/internal/document/service"
	"github.com/gogotex/archive/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{}
	err := newRootCommand(a).ExecuteContext(ctx)
	if a.res != nil {
		a.res.Close()
	}
	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "archive: %s\n", describe(err))
		os.Exit(exitCode(err))
	}
}

// app carries the state shared by all subcommands.
type app struct {
	user   string
	role   string
	output string

	cfg *config.Config
	res *resources
	svc service.Service
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Document archive catalog",
		Long: `archive manages a catalog of physical documents: their shelf locations,
loans to readers and an append-only audit history of every change.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger.Init(cfg.LogLevel)
			a.cfg = cfg
			res, err := openBackend(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			a.res = res
			a.svc = service.NewService(res.store)
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&a.user, "user", "u", os.Getenv("ARCHIVE_USER"), "User recorded as the actor of changes")
	cmd.PersistentFlags().StringVar(&a.role, "role", os.Getenv("ARCHIVE_ROLE"), "Role of the acting user")
	cmd.PersistentFlags().StringVarP(&a.output, "output", "o", "text", "Output format: text or json")
	cmd.AddCommand(
		newCreateCmd(a),
		newUpdateCmd(a),
		newDeleteCmd(a),
		newBorrowCmd(a),
		newReturnCmd(a),
		newSearchCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newHistoryCmd(a),
		newOverdueCmd(a),
		newServeCmd(a),
	)
	return cmd
}

// describe turns catalog errors into messages for the terminal.
func describe(err error) string {
	switch {
	case errors.Is(err, document.ErrNotFound):
		return "no such document: " + err.Error()
	case errors.Is(err, document.ErrAlreadyBorrowed):
		return "the document is already on loan: " + err.Error()
	case errors.Is(err, document.ErrNotBorrowed):
		return "the document is not on loan: " + err.Error()
	case errors.Is(err, document.ErrIOFailure):
		return "could not save the catalog, nothing was changed: " + err.Error()
	default:
		return err.Error()
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, document.ErrNotFound):
		return 3
	case errors.Is(err, document.ErrAlreadyBorrowed),
		errors.Is(err, document.ErrNotBorrowed),
		errors.Is(err, document.ErrDuplicateID):
		return 4
	case errors.Is(err, document.ErrInvalidDocument),
		errors.Is(err, document.ErrInvalidDueDate),
		errors.Is(err, document.ErrUnknownField):
		return 2
	default:
		return 1
	}
}
