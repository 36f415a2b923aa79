package commands

import (
	"context"
	"fmt"

	"immigration/internal/cli/bootstrap"
	"immigration/internal/config"
)

type tokenCmd struct{}

func init() { RegisterCmd(tokenCmd{}) }

func (tokenCmd) Name() string        { return "token" }
func (tokenCmd) Description() string { return "Create the staff user if needed and print an API token" }
func (tokenCmd) Usage() string       { return "token <username>" }

func (tokenCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	app, cleanup, err := bootstrap.Open(cfg, Logger)
	if err != nil {
		return err
	}
	defer cleanup()

	u, created, err := app.Users.EnsureUser(ctx, args[0])
	if err != nil {
		return err
	}
	token, err := app.Users.IssueToken(u.ID)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	if created {
		fmt.Fprintf(Out, "Created user %s (id %d)\n", u.Username, u.ID)
	}
	fmt.Fprintln(Out, token)
	return nil
}
