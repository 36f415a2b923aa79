package commands

import (
	"context"
	"fmt"

	"immigration/internal/cli/bootstrap"
	"immigration/internal/config"
)

type passwdCmd struct{}

func init() { RegisterCmd(passwdCmd{}) }

func (passwdCmd) Name() string        { return "passwd" }
func (passwdCmd) Description() string { return "Set the password a staff user logs in with" }
func (passwdCmd) Usage() string       { return "passwd <username> <password>" }

func (passwdCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 2 || args[1] == "" {
		return ErrUsage
	}
	app, cleanup, err := bootstrap.Open(cfg, Logger)
	if err != nil {
		return err
	}
	defer cleanup()

	u, created, err := app.Users.SetPassword(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(Out, "Created user %s (id %d)\n", u.Username, u.ID)
	}
	fmt.Fprintf(Out, "Password updated for %s\n", u.Username)
	return nil
}
