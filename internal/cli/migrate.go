package cli

import (
	"errors"

	"github.com/anis2566/monorepo-new-sub002/internal/repositories/postgres"
	"github.com/anis2566/monorepo-new-sub002/pkg"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	var withReadModels bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is not configured")
			}

			db, err := pkg.InitDatabase(cfg)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			if err := postgres.Migrate(db, withReadModels); err != nil {
				return err
			}
			logger.Info("Migrations applied", "read_models", withReadModels)
			return nil
		},
	}

	cmd.Flags().BoolVar(&withReadModels, "with-read-models", false, "also create exams, mcqs, students and class_options tables")
	return cmd
}
