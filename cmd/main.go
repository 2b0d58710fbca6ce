package main

import (
	"log"
	"os"

	infra "github.com/pot-code/coursesync/internal/infrastructure"
	"github.com/pot-code/coursesync/internal/infrastructure/driver"
	"github.com/pot-code/coursesync/internal/infrastructure/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "coursesync",
	Short: "Course playback and progress synchronization service",
	// serve is the default action
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
	SilenceUsage: true,
}

func init() {
	infra.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	log.SetFlags(log.Lshortfile | log.Ldate | log.Ltime)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap load config and create the logger and the db connection shared by every command
func bootstrap(cmd *cobra.Command) (*infra.AppConfig, *zap.Logger, driver.ITransactionalDB, error) {
	option, err := infra.InitConfig(cmd.Flags())
	if err != nil {
		return nil, nil, nil, err
	}

	logger, err := logging.NewLogger(&logging.Config{
		FilePath: option.Logging.FilePath,
		Level:    option.Logging.Level,
		AppID:    option.AppID,
		Env:      option.Env,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	dbConn, err := driver.GetDBConnection(&driver.DBConfig{
		User:     option.Database.User,
		Password: option.Database.Password,
		MaxConn:  option.Database.MaxConn,
		Protocol: option.Database.Protocol,
		Driver:   option.Database.Driver,
		Host:     option.Database.Host,
		Port:     option.Database.Port,
		Query:    option.Database.Query,
		Schema:   option.Database.Schema,
	})
	if err != nil {
		logger.Sync()
		return nil, nil, nil, err
	}
	logger.Debug("Created db connection", zap.String("db.driver", option.Database.Driver),
		zap.String("db.schema", option.Database.Schema),
		zap.String("db.host", option.Database.Host),
	)
	return option, logger, dbConn, nil
}
