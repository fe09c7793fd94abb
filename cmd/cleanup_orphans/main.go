// Command cleanup_orphans hard-deletes chat messages whose session is gone.
// It is the offline counterpart of the cleanup consumer, for messages left
// behind while the server was down.
package main

import (
	"context"
	"fmt"
	"os"

	"athena-be/internal/config"
	"athena-be/internal/repository/unitofwork"
	"athena-be/pkg/database"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "cleanup_orphans",
		Short: "Purge chat messages that no longer belong to a live session",
		Long: `Purge chat messages that no longer belong to a live session.

Messages are orphaned when their session was deleted but the cleanup
consumer never ran, e.g. the server stopped right after the delete.

Examples:
  cleanup_orphans            # purge
  cleanup_orphans --dry-run  # only count`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "count orphaned messages without deleting them")
	return cmd
}

func run(ctx context.Context, dryRun bool) error {
	cfg := config.Load()

	db, err := database.Open(cfg.Database.Driver, cfg.Database.Connection)
	if err != nil {
		return fmt.Errorf("db connection failed: %w", err)
	}

	uow := unitofwork.NewRepositoryFactory(db).NewUnitOfWork(ctx)

	if dryRun {
		count, err := uow.ChatMessageRepository().CountOrphansUnscoped(ctx)
		if err != nil {
			return fmt.Errorf("failed to count orphaned messages: %w", err)
		}
		fmt.Printf("Found %d orphaned messages.\n", count)
		return nil
	}

	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	purged, err := uow.ChatMessageRepository().DeleteOrphansUnscoped(ctx)
	if err != nil {
		return fmt.Errorf("failed to purge orphaned messages: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	fmt.Printf("Done. Purged %d orphaned messages.\n", purged)
	return nil
}
