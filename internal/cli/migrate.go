package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

// MigrateResult salida de stockctl migrate.
type MigrateResult struct {
	From     int64   `json:"from"`
	To       int64   `json:"to"`
	Applied  []int64 `json:"applied"`
	Snapshot string  `json:"snapshot,omitempty"`
}

// NewMigrateCommand crea el comando migrate.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	var target int64
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones de esquema pendientes",
		Long: `Aplica los pasos de esquema pendientes hasta --target (0 = última versión).

Antes de migrar toma un snapshot PRE_UPDATE; si algún paso falla la base se
reinstala desde ese snapshot.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, rootOpts, target)
		},
	}
	cmd.Flags().Int64Var(&target, "target", 0, "versión objetivo (0 = última)")
	return cmd
}

func runMigrate(cmd *cobra.Command, opts *RootOptions, target int64) (err error) {
	out := opts.formatter(cmd)
	if target < 0 {
		return out.Error(NewExitError(ExitCommandError, "--target no puede ser negativo"))
	}
	ctx := cmd.Context()
	app, err := opts.open(ctx, cmd)
	if err != nil {
		return out.Error(err)
	}
	defer func() { err = multierr.Append(err, app.Close()) }()

	goal := app.TargetVersion(target)
	if goal > app.Migrator.Latest() {
		return out.Error(NewExitError(ExitCommandError, fmt.Sprintf("versión %d inexistente; la última es %d", goal, app.Migrator.Latest())))
	}
	res, err := app.Migration.Run(ctx, goal)
	if err != nil {
		return out.Error(err)
	}
	data := MigrateResult{From: res.From, To: res.To, Applied: res.Applied, Snapshot: res.Snapshot}
	if data.Applied == nil {
		data.Applied = []int64{}
	}
	return out.Success(data, func(w io.Writer) error {
		if len(res.Applied) == 0 {
			_, err := fmt.Fprintf(w, "esquema al día (versión %d)\n", res.To)
			return err
		}
		_, err := fmt.Fprintf(w, "esquema migrado %d -> %d, pasos %v (snapshot %s)\n", res.From, res.To, res.Applied, res.Snapshot)
		return err
	})
}
