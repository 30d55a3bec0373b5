// stockctl administra la base del ledger de stock: migraciones, snapshots y backup agendado.
//
// Uso:
//
//	stockctl migrate [--target N]
//	stockctl backup create|list|validate [name]|restore <name>|prune|test-restore <name>
//	stockctl schedule run
//
// La configuración sale de las mismas variables que la API (DB_PATH, BACKUP_DIR, ...).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jhoicas/stock-ledger/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil && !cli.IsReported(err) {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
