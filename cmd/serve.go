package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pot-code/coursesync/internal/catalog"
	"github.com/pot-code/coursesync/internal/infrastructure/driver"
	"github.com/pot-code/coursesync/internal/infrastructure/uuid"
	"github.com/pot-code/coursesync/internal/interfaces/rest"
	"github.com/pot-code/coursesync/internal/playback"
	"github.com/pot-code/coursesync/internal/progress"
	"github.com/pot-code/coursesync/internal/user"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and player websocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func runServe(cmd *cobra.Command) error {
	option, logger, dbConn, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer dbConn.Close(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// sqlite is used for local development, keep its schema current on start
	if dbConn.Dialect() == driver.DialectSQLite {
		if err := driver.Migrate(ctx, dbConn); err != nil {
			return err
		}
	}

	rdb := driver.NewRedisClient(option.KVStore.Host, option.KVStore.Port, option.KVStore.Password)
	defer rdb.Close()

	UUIDGenerator := uuid.NewNanoIDGenerator(option.Security.IDLength)

	UserRepo := user.NewUserRepository(dbConn)
	UserUseCase := user.NewUserUseCase(UserRepo, UUIDGenerator,
		option.Security.MaxLoginAttempts, option.Security.RetryTimeout)

	CatalogRepo := catalog.NewCatalogRepository(dbConn)
	CatalogUseCase := catalog.NewCatalogUseCase(CatalogRepo)

	ProgressRepo := progress.NewProgressRepository(dbConn)
	ProgressCache := progress.NewKVCache(rdb, option.Playback.ProgressCacheTTL, logger)
	ProgressUseCase := progress.NewProgressUseCase(ProgressRepo, ProgressCache, option.Playback.WriteThrottle)

	Manager := playback.NewManager(CatalogUseCase, ProgressUseCase, UUIDGenerator, logger)
	defer Manager.Shutdown()
	if idle := option.Playback.SessionIdle; idle > 0 {
		go Manager.RunJanitor(ctx, idle/4, idle)
	}

	app := rest.NewApp(option, &rest.Dependencies{
		Conn:            dbConn,
		KV:              rdb,
		UserUseCase:     UserUseCase,
		CatalogUseCase:  CatalogUseCase,
		ProgressUseCase: ProgressUseCase,
		Manager:         Manager,
		Logger:          logger,
	})
	if err := rest.Serve(ctx, app, option, logger); err != nil {
		logger.Error("Server stopped", zap.Error(err))
		return err
	}
	return nil
}
