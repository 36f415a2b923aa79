package commands

import (
	"context"
	"errors"
	"fmt"

	"immigration/internal/cli/api"
	"immigration/internal/config"
)

type healthCmd struct{}

func init() { RegisterCmd(healthCmd{}) }

func (healthCmd) Name() string        { return "health" }
func (healthCmd) Description() string { return "Check that the running server and its database respond" }
func (healthCmd) Usage() string       { return "health" }

func (healthCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	var resp struct {
		Status string `json:"status"`
	}
	err := api.GetJSON(ctx, cfg.ServerURL+"/healthz", "", &resp)
	var se *api.StatusError
	switch {
	case errors.As(err, &se):
		return fmt.Errorf("%s is %s (HTTP %d)", cfg.ServerURL, statusOr(resp.Status, "unhealthy"), se.Code)
	case err != nil:
		return err
	}
	fmt.Fprintf(Out, "%s: %s\n", cfg.ServerURL, statusOr(resp.Status, "ok"))
	return nil
}

func statusOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
