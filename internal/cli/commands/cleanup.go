package commands

import (
	"context"
	"fmt"

	"immigration/internal/cli/bootstrap"
	"immigration/internal/config"
)

type cleanupPhotosCmd struct{}

func init() { RegisterCmd(cleanupPhotosCmd{}) }

func (cleanupPhotosCmd) Name() string        { return "cleanup-photos" }
func (cleanupPhotosCmd) Description() string { return "Remove stored photos no record refers to" }
func (cleanupPhotosCmd) Usage() string       { return "cleanup-photos [--dry-run]" }

func (cleanupPhotosCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	dryRun := false
	for _, a := range args {
		if a != "--dry-run" && a != "-n" {
			return ErrUsage
		}
		dryRun = true
	}

	app, cleanup, err := bootstrap.Open(cfg, Logger)
	if err != nil {
		return err
	}
	defer cleanup()

	found, removed, err := app.Reports.RemoveOrphans(ctx, dryRun)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		fmt.Fprintln(Out, "No orphaned photos found")
		return nil
	}
	if dryRun {
		fmt.Fprintf(Out, "Would remove %d orphaned photos:\n", len(found))
		for _, ref := range found {
			fmt.Fprintf(Out, "  %s\n", ref)
		}
		return nil
	}
	fmt.Fprintf(Out, "Removed %d of %d orphaned photos\n", removed, len(found))
	return nil
}
