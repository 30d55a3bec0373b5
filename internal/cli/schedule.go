package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
)

// NewScheduleCommand agrupa los subcomandos del backup automático.
func NewScheduleCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Backup automático agendado",
	}
	cmd.AddCommand(newScheduleRunCommand(rootOpts))
	return cmd
}

// newScheduleRunCommand evalúa el agendamiento una vez (útil desde cron del sistema).
// Las mismas reglas que el loop del servicio: como mucho un backup por día.
func newScheduleRunCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Evalúa el agendamiento ahora y ejecuta el backup si corresponde",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			out := opts.formatter(cmd)
			ctx := cmd.Context()
			app, err := opts.open(ctx, cmd)
			if err != nil {
				return out.Error(err)
			}
			defer func() { err = multierr.Append(err, app.Close()) }()

			current, err := app.Migrator.CurrentVersion(ctx)
			if err != nil {
				return out.Error(err)
			}
			if current < app.Migrator.Latest() {
				return out.Error(NewExitError(ExitCommandError, "esquema desactualizado: ejecute stockctl migrate"))
			}

			res, err := app.Scheduler.TriggerOnce(ctx)
			if err != nil {
				return out.Error(err)
			}
			data := dto.RunResultResponse{Executed: res.Executed, Reason: res.Reason, Snapshot: res.Snapshot, Removed: res.Removed}
			return out.Success(data, func(w io.Writer) error {
				if !res.Executed {
					_, err := fmt.Fprintf(w, "sin ejecución: %s\n", res.Reason)
					return err
				}
				_, err := fmt.Fprintf(w, "backup automático creado: %s (%d eliminados por retención)\n", res.Snapshot, res.Removed)
				return err
			})
		},
	}
}
