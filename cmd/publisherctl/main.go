package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

var (
	version = "dev"
	cli     struct {
		Migrate         MigrateCmd         `cmd:"" help:"Create or update the database schema"`
		Reconcile       ReconcileCmd       `cmd:"" help:"Run one reconciliation pass over in-flight transactions"`
		FailTransaction FailTransactionCmd `cmd:"" help:"Mark a stuck publish transaction as failed"`
		Schedule        ScheduleCmd        `cmd:"" help:"Show the next reconciliation runs"`
		Token           TokenCmd           `cmd:"" help:"Issue an API token for a marketplace component or approver"`
		Version         kong.VersionFlag
	}
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("publisherctl"),
		kong.Description("Operator tooling for the marketplace publisher."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run()
	cmd.FatalIfErrorf(err)
}
