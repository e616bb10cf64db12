package cli

import (
	"context"
	"fmt"
	"time"

	"decaquiz-service/internal/config"
	"decaquiz-service/internal/infra/postgres"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			return runMigrationsWithConfig(cmd.Context(), cfg, config.NewLogger(cfg.Log))
		},
	}
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	group, err := postgres.Migrate(ctx, cfg.Postgres.URL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if group.IsZero() {
		logger.Info("no new migrations")
		return nil
	}
	logger.WithField("group", group.String()).Info("migrations applied")
	return nil
}

// newSweepCmd deletes expired rows once. Redis expires keys natively and the
// in-memory backend does not outlive the process, so only Postgres needs it.
func newSweepCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired quizzes, progress and submissions from Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			logger := config.NewLogger(cfg.Log)

			conn := postgres.NewConnector(cfg.Postgres.URL)
			defer conn.Close()

			removed, err := postgres.NewStore(conn).DeleteExpired(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			logger.WithField("removed", removed).Info("expired rows swept")
			return nil
		},
	}
}
