// Package cli implementa stockctl: migraciones, snapshots y agendamiento por línea de comandos.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/stock-ledger/internal/bootstrap"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// RootOptions flags globales de todos los comandos.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	DBPath    string
	BackupDir string

	// LoadConfig permite inyectar configuración en tests.
	LoadConfig func() (*config.Config, error)
}

// ValidFormats formatos de salida permitidos.
var ValidFormats = []string{"text", "json"}

// NewRootCommand crea el comando raíz de stockctl.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWith(&RootOptions{LoadConfig: config.Load})
}

// NewRootCommandWith igual que NewRootCommand con opciones preconstruidas.
func NewRootCommandWith(opts *RootOptions) *cobra.Command {
	if opts.LoadConfig == nil {
		opts.LoadConfig = config.Load
	}
	cmd := &cobra.Command{
		Use:   "stockctl",
		Short: "Administración del ledger de stock",
		Long:  "Migraciones de esquema, snapshots, restauración y backup automático del ledger de stock Canoas / Passo Fundo.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("formato inválido %q: use uno de %v", opts.Format, ValidFormats))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log detallado en stderr")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "formato de salida (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "ruta de la base (reemplaza DB_PATH)")
	cmd.PersistentFlags().StringVar(&opts.BackupDir, "backup-dir", "", "directorio de snapshots (reemplaza BACKUP_DIR)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewBackupCommand(opts))
	cmd.AddCommand(NewScheduleCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// open carga la configuración, aplica los overrides de flags y construye el grafo.
func (o *RootOptions) open(ctx context.Context, cmd *cobra.Command) (*bootstrap.App, error) {
	cfg, err := o.LoadConfig()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "cargar configuración", err)
	}
	if o.DBPath != "" {
		cfg.DB.Path = o.DBPath
	}
	if o.BackupDir != "" {
		cfg.Backup.Dir = o.BackupDir
	}

	level := "warn"
	if o.Verbose {
		level = "debug"
	}
	log := logger.NewWriter(cmd.ErrOrStderr(), level)

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "abrir base", err)
	}
	return app, nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
