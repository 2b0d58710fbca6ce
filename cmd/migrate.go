package main

import (
	"context"

	"github.com/pot-code/coursesync/internal/infrastructure/driver"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, dbConn, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()
		defer dbConn.Close(context.Background())

		if err := driver.Migrate(cmd.Context(), dbConn); err != nil {
			logger.Error("Migration failed", zap.Error(err))
			return err
		}
		logger.Info("Schema is up to date")
		return nil
	},
}
