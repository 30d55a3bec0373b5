package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// PruneResult salida de backup prune.
type PruneResult struct {
	Days    int `json:"days"`
	Max     int `json:"max"`
	Removed int `json:"removed"`
}

// NewBackupCommand agrupa los subcomandos de snapshots.
func NewBackupCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshots de la base: crear, listar, validar, restaurar y limpiar",
	}
	cmd.AddCommand(newBackupCreateCommand(rootOpts))
	cmd.AddCommand(newBackupListCommand(rootOpts))
	cmd.AddCommand(newBackupValidateCommand(rootOpts))
	cmd.AddCommand(newBackupRestoreCommand(rootOpts))
	cmd.AddCommand(newBackupPruneCommand(rootOpts))
	cmd.AddCommand(newBackupTestRestoreCommand(rootOpts))
	return cmd
}

func newBackupCreateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Crea un snapshot MANUAL en caliente",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			out := opts.formatter(cmd)
			app, err := opts.open(cmd.Context(), cmd)
			if err != nil {
				return out.Error(err)
			}
			defer func() { err = multierr.Append(err, app.Close()) }()

			s, err := app.Backups.CreateSnapshot(cmd.Context(), entity.SnapshotManual)
			if err != nil {
				return out.Error(err)
			}
			return out.Success(dto.NewSnapshotResponse(s), func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "snapshot creado: %s (%d bytes)\n", s.Name, s.SizeBytes)
				return err
			})
		},
	}
}

func newBackupListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Lista los snapshots, más recientes primero",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			out := opts.formatter(cmd)
			app, err := opts.open(cmd.Context(), cmd)
			if err != nil {
				return out.Error(err)
			}
			defer func() { err = multierr.Append(err, app.Close()) }()

			list, err := app.Backups.List(cmd.Context())
			if err != nil {
				return out.Error(err)
			}
			data := make([]dto.SnapshotResponse, 0, len(list))
			for _, s := range list {
				data = append(data, dto.NewSnapshotResponse(s))
			}
			return out.Success(data, func(w io.Writer) error {
				if len(list) == 0 {
					_, err := fmt.Fprintln(w, "sin snapshots")
					return err
				}
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "NOMBRE\tTIPO\tTAMAÑO\tFECHA")
				for _, s := range list {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.Name, s.Kind, s.SizeBytes, s.CreatedAt.Format(time.DateTime))
				}
				return tw.Flush()
			})
		},
	}
}

func newBackupValidateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [name]",
		Short: "Valida un snapshot, o la base viva si no se indica nombre",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			out := opts.formatter(cmd)
			app, err := opts.open(cmd.Context(), cmd)
			if err != nil {
				return out.Error(err)
			}
			defer func() { err = multierr.Append(err, app.Close()) }()

			var name string
			if len(args) == 1 {
				name = args[0]
			}
			rep, err := app.Backups.ValidateSnapshot(cmd.Context(), name)
			if err != nil {
				return out.Error(err)
			}
			if err := out.Success(dto.ValidationResponse{Name: name, OK: rep.OK, Detail: rep.Detail}, func(w io.Writer) error {
				target := name
				if target == "" {
					target = "base viva"
				}
				status := "OK"
				if !rep.OK {
					status = "INVÁLIDO"
				}
				_, err := fmt.Fprintf(w, "%s: %s (%s)\n", target, status, rep.Detail)
				return err
			}); err != nil {
				return err
			}
			if !rep.OK {
				return NewExitError(ExitFailure, "validación fallida")
			}
			return nil
		},
	}
}

func newBackupRestoreCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <name>",
		Short: "Restaura un snapshot sobre la base viva",
		Long: `Valida el snapshot, toma un PRE_RESTORE de seguridad y copia en caliente.
Si la base restaurada no pasa la validación se reinstala el PRE_RESTORE.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			out := opts.formatter(cmd)
			app, err := opts.open(cmd.Context(), cmd)
			if err != nil {
				return out.Error(err)
			}
			defer func() { err = multierr.Append(err, app.Close()) }()

			safety, err := app.Backups.Restore(cmd.Context(), args[0])
			if err != nil {
				return out.Error(err)
			}
			return out.Success(dto.NewSnapshotResponse(safety), func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "restaurado %s (snapshot de seguridad: %s)\n", args[0], safety.Name)
				return err
			})
		},
	}
}

func newBackupPruneCommand(opts *RootOptions) *cobra.Command {
	var days, maxCount int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Aplica la retención a los snapshots AUTO",
		Long: `Borra los snapshots AUTO más viejos que --days o fuera de los --max más recientes.
Por defecto usa la retención del agendamiento y BACKUP_MAX_AUTO_SNAPSHOTS.
MANUAL, PRE_UPDATE y PRE_RESTORE nunca se borran.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			out := opts.formatter(cmd)
			app, err := opts.open(cmd.Context(), cmd)
			if err != nil {
				return out.Error(err)
			}
			defer func() { err = multierr.Append(err, app.Close()) }()

			if days <= 0 {
				sched, err := app.Backups.GetSchedule(cmd.Context())
				if err != nil {
					return out.Error(err)
				}
				days = sched.RetentionDays
			}
			if maxCount <= 0 {
				maxCount = app.Config.Backup.MaxAutoSnapshots
			}
			removed, err := app.Backups.ApplyRetention(cmd.Context(), time.Now(), days, maxCount)
			if err != nil && removed == 0 {
				return out.Error(err)
			}
			return out.Success(PruneResult{Days: days, Max: maxCount, Removed: removed}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%d snapshot(s) AUTO eliminados (retención %d días, máximo %d)\n", removed, days, maxCount)
				return err
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "días de retención (0 = el del agendamiento)")
	cmd.Flags().IntVar(&maxCount, "max", 0, "máximo de snapshots AUTO (0 = BACKUP_MAX_AUTO_SNAPSHOTS)")
	return cmd
}

func newBackupTestRestoreCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "test-restore <name>",
		Short: "Restaura en una base temporal y reporta, sin tocar la base viva",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			out := opts.formatter(cmd)
			app, err := opts.open(cmd.Context(), cmd)
			if err != nil {
				return out.Error(err)
			}
			defer func() { err = multierr.Append(err, app.Close()) }()

			rep, err := app.Backups.TestRestore(cmd.Context(), args[0])
			if err != nil {
				return out.Error(err)
			}
			data := dto.TestRestoreResponse{Name: rep.Name, OK: rep.OK, Detail: rep.Detail, ProductCount: rep.ProductCount}
			if err := out.Success(data, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s: ok=%t productos=%d (%s)\n", rep.Name, rep.OK, rep.ProductCount, rep.Detail)
				return err
			}); err != nil {
				return err
			}
			if !rep.OK {
				return NewExitError(ExitFailure, "restauración de prueba fallida")
			}
			return nil
		},
	}
}
