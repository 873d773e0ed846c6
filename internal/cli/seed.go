package cli

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"notiplay/internal/config"
	"notiplay/internal/infra/memory"
	"notiplay/internal/infra/postgres"
)

// NewSeedCmd loads the demo dataset into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert demo news, trivia and rewards into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			if err := runMigrations(cmd.Context(), cfg, logger); err != nil {
				return err
			}

			db := postgres.OpenDB(cfg.Postgres.URL)
			defer db.Close()
			if err := postgres.Seed(cmd.Context(), db, memory.SampleDataset()); err != nil {
				return errors.Wrap(err, "seed")
			}
			logger.Info("demo data seeded")
			return nil
		},
	}
}
