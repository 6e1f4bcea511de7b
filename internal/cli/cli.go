package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/Additional-Code/orderdesk/internal/app"
	"github.com/Additional-Code/orderdesk/internal/migration"
	"github.com/Additional-Code/orderdesk/internal/seeder"
)

const stopTimeout = 10 * time.Second

// NewRootCommand builds the orderdesk command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "orderdesk",
		Short:        "Restaurant order API and tooling",
		SilenceUsage: true,
	}
	root.AddCommand(
		newStartCmd(),
		newMigrateCmd(),
		newSeedCmd(),
		newWorkerCmd(),
	)
	return root
}

// Execute runs the CLI until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	return nil
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "start",
		Aliases: []string{"run"},
		Short:   "Serve the orders HTTP API and gRPC health endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), app.Module)
		},
	}
}

func newWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Manage background workers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Consume order events until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), app.Worker)
		},
	})
	return cmd
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: withMigrator(func(ctx context.Context, cmd *cobra.Command, mig *migration.Migrator) error {
			if err := mig.Up(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		}),
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: withMigrator(func(ctx context.Context, cmd *cobra.Command, mig *migration.Migrator) error {
			steps, _ := cmd.Flags().GetInt("steps")
			all, _ := cmd.Flags().GetBool("all")
			if err := mig.Down(ctx, steps, all); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations rolled back")
			return nil
		}),
	}
	down.Flags().Int("steps", 1, "Number of migrations to roll back")
	down.Flags().Bool("all", false, "Roll back every applied migration")

	status := &cobra.Command{
		Use:   "status",
		Short: "Print the current schema version",
		RunE: withMigrator(func(ctx context.Context, cmd *cobra.Command, mig *migration.Migrator) error {
			version, err := mig.Version(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
			return nil
		}),
	}

	cmd.AddCommand(up, down, status)
	return cmd
}

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace all orders with generated sample data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			count, _ := cmd.Flags().GetInt("count")
			if count <= 0 {
				count = seeder.DefaultOrderCount
			}
			var seed *seeder.Seeder
			return runOnce(cmd.Context(), fx.Options(app.Core, seeder.Module, fx.Populate(&seed)), func(ctx context.Context) error {
				if err := seed.Orders(ctx, count); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d orders\n", count)
				return nil
			})
		},
	}
	cmd.Flags().Int("count", seeder.DefaultOrderCount, "Number of orders to generate")
	return cmd
}

type migratorFunc func(ctx context.Context, cmd *cobra.Command, mig *migration.Migrator) error

func withMigrator(fn migratorFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		var mig *migration.Migrator
		opts := fx.Options(app.Core, migration.Module, fx.Populate(&mig))
		return runOnce(cmd.Context(), opts, func(ctx context.Context) error {
			return fn(ctx, cmd, mig)
		})
	}
}

// serve starts the application and blocks until ctx is cancelled.
func serve(ctx context.Context, opts fx.Option) error {
	application := fx.New(opts)
	if err := application.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return application.Stop(stopCtx)
}

// runOnce starts a quiet application, runs fn and stops it again.
func runOnce(ctx context.Context, opts fx.Option, fn func(context.Context) error) error {
	application := fx.New(opts, fx.NopLogger)
	if err := application.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		_ = application.Stop(stopCtx)
	}()
	return fn(ctx)
}
