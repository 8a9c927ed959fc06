package main

import (
	"errors"

	"github.com/spf13/cobra"

	pg "participation-service/internal/adapters/storage/postgres"
	"participation-service/internal/platform/logger"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or revert the Postgres schema",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(pg.Up), string(pg.Down)},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.DBDSN == "" {
			return errors.New("DB_DSN is required for migrate")
		}

		db, err := pg.Open(cfg.DBDSN)
		if err != nil {
			return err
		}
		defer db.Close()

		dir := pg.Direction(args[0])
		if err := pg.Migrate(db, dir); err != nil {
			return err
		}
		log.Info("migration finished", logger.Fields{"direction": dir})
		return nil
	},
}
