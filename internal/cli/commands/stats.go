package commands

import (
	"context"
	"fmt"
	"strconv"

	"immigration/internal/cli/bootstrap"
	"immigration/internal/config"
)

type statsCmd struct{}

func init() { RegisterCmd(statsCmd{}) }

func (statsCmd) Name() string        { return "stats" }
func (statsCmd) Description() string { return "Show document and form statistics" }
func (statsCmd) Usage() string       { return "stats [days]" }

func (statsCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) > 1 {
		return ErrUsage
	}
	days := cfg.RecentDays
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return ErrUsage
		}
		days = n
	}

	app, cleanup, err := bootstrap.Open(cfg, Logger)
	if err != nil {
		return err
	}
	defer cleanup()

	ov, err := app.Reports.Overview(ctx, days)
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "Travel documents: %d\n", ov.TotalDocuments)
	fmt.Fprintf(Out, "  filled:   %d\n", ov.FilledDocuments)
	fmt.Fprintf(Out, "  approved: %d\n", ov.ApprovedDocuments)
	fmt.Fprintf(Out, "  printed:  %d\n", ov.PrintedDocuments)
	fmt.Fprintf(Out, "  created in last %d days: %d\n", ov.RecentDays, ov.RecentDocuments)
	if len(ov.TopRegions) > 0 {
		fmt.Fprintln(Out, "Top regions:")
		for _, rc := range ov.TopRegions {
			fmt.Fprintf(Out, "  %-20s %d\n", rc.Region, rc.Count)
		}
	}
	fmt.Fprintln(Out, "Sponsorship forms:")
	fmt.Fprintf(Out, "  degmada:  %d (%d in last %d days)\n", ov.TotalDegmada, ov.RecentDegmada, ov.RecentDays)
	fmt.Fprintf(Out, "  kafiilka: %d (%d in last %d days)\n", ov.TotalKafiilka, ov.RecentKafiilka, ov.RecentDays)
	return nil
}
