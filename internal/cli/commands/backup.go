package commands

import (
	"context"
	"fmt"
	"os"

	"immigration/internal/cli/bootstrap"
	"immigration/internal/config"
)

const defaultBackupFile = "backup.json"

type backupCmd struct{}

func init() { RegisterCmd(backupCmd{}) }

func (backupCmd) Name() string        { return "backup" }
func (backupCmd) Description() string { return "Write a JSON backup of all documents and forms" }
func (backupCmd) Usage() string       { return "backup [file]" }

func (backupCmd) Run(ctx context.Context, cfg *config.Config, args []string) (err error) {
	if len(args) > 1 {
		return ErrUsage
	}
	path := defaultBackupFile
	if len(args) == 1 {
		path = args[0]
	}

	app, cleanup, err := bootstrap.Open(cfg, Logger)
	if err != nil {
		return err
	}
	defer cleanup()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	b, err := app.Reports.Backup(ctx, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "Backup written to %s: %d documents, %d degmada forms, %d kafiilka forms\n",
		path, len(b.TravelDocuments), len(b.DegmadaForms), len(b.KafiilkaForms))
	return nil
}
