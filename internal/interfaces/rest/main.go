package rest

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	"net/http/pprof"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echo_middleware "github.com/labstack/echo/v4/middleware"
	"github.com/pot-code/coursesync/internal/catalog"
	infra "github.com/pot-code/coursesync/internal/infrastructure"
	"github.com/pot-code/coursesync/internal/infrastructure/auth"
	"github.com/pot-code/coursesync/internal/infrastructure/driver"
	"github.com/pot-code/coursesync/internal/infrastructure/validate"
	"github.com/pot-code/coursesync/internal/interfaces/rest/handler"
	"github.com/pot-code/coursesync/internal/interfaces/rest/middleware"
	"github.com/pot-code/coursesync/internal/playback"
	"github.com/pot-code/coursesync/internal/progress"
	"github.com/pot-code/coursesync/internal/user"
	"go.elastic.co/apm/module/apmechov4"
	"go.uber.org/zap"
)

// Dependencies everything the transport layer is built from
type Dependencies struct {
	Conn            driver.ITransactionalDB
	KV              driver.KeyValueDB
	UserUseCase     user.UserUseCase
	CatalogUseCase  catalog.CatalogUseCase
	ProgressUseCase progress.ProgressUseCase
	Manager         *playback.Manager
	Logger          *zap.Logger
}

// NewApp create the echo application with every route registered
func NewApp(option *infra.AppConfig, deps *Dependencies) *echo.Echo {
	var (
		app       = echo.New()
		logger    = deps.Logger
		rdb       = deps.KV
		validator = validate.NewValidator()
		websocket = infra.NewWebsocket()
		jwtUtil   = auth.NewJWTUtil(option.Security.JWTMethod,
			option.Security.JWTSecret,
			option.Security.TokenName,
			option.SessionTimeout)
		jwtMiddleware = middleware.VerifyToken(jwtUtil, &middleware.ValidateTokenOption{
			InBlackList: func(token string) (bool, error) {
				return rdb.Exists(token)
			},
		})
		refreshMiddleware = middleware.RefreshToken(jwtUtil, &middleware.RefreshTokenOption{
			Threshold: option.SessionRefresh,
		})
	)
	app.HideBanner = true
	app.HidePort = true

	registerLivenessProbe(app, deps.Conn, rdb)
	if option.Env == infra.EnvDevelopment {
		registerProfileEndpoints(app)

		app.Use(middleware.Logging(logger, &middleware.LoggingConfig{
			Skipper: func(e echo.Context) bool {
				return strings.HasPrefix(e.Request().RequestURI, "/healthz")
			},
		}))
	}
	app.Use(middleware.ErrorHandling(
		&middleware.ErrorHandlingOption{
			Handler: func(c echo.Context, err error) {
				traceID := c.Response().Header().Get(echo.HeaderXRequestID)
				c.JSON(http.StatusInternalServerError,
					handler.NewRESTStandardError(http.StatusInternalServerError, err.Error()).SetTraceID(traceID),
				)
				logger.Error(err.Error(), zap.String("trace.id", traceID))
			},
			HTTPErrorHandler: func(c echo.Context, err *echo.HTTPError) {
				traceID := c.Response().Header().Get(echo.HeaderXRequestID)
				c.JSON(err.Code,
					handler.NewRESTStandardError(err.Code, fmt.Sprint(err.Message)).SetTraceID(traceID),
				)
			},
		},
	))
	app.Use(middleware.NoRouteMatched())
	app.Use(echo_middleware.Secure())
	if option.DevOP.APM {
		app.Use(apmechov4.Middleware())
	}
	app.Use(echo_middleware.CORS())
	app.Use(middleware.AbortRequest(&middleware.AbortRequestOption{
		Timeout: option.RequestTimeout,
	}))

	var (
		UserHandler    = handler.NewUserHandler(jwtUtil, rdb, deps.UserUseCase, validator)
		CourseHandler  = handler.NewCourseHandler(deps.CatalogUseCase, deps.ProgressUseCase, jwtUtil)
		SessionHandler = handler.NewSessionHandler(deps.Manager, jwtUtil, validator)
		PlayerHandler  = handler.NewPlayerHandler(deps.Manager, jwtUtil, validator)
		authenticated  = []echo.MiddlewareFunc{jwtMiddleware, refreshMiddleware}
	)

	createEndpoint(app,
		&endpoint{
			apiVersion:  "api/v1",
			middlewares: []echo.MiddlewareFunc{echo_middleware.RequestID(), middleware.SetTraceLogger(logger)},
			groups: []*apiGroup{
				{
					prefix: "/auth",
					routes: []*route{
						{"POST", "/login", UserHandler.HandleSignIn, nil},
						{"PUT", "/sign-out", UserHandler.HandleSignOut, nil},
						{"POST", "/sign-up", UserHandler.HandleSignUp, nil},
						{"GET", "/exists", UserHandler.HandleUserExists, nil},
					},
				},
				{
					prefix:      "/courses/:course",
					middlewares: authenticated,
					routes: []*route{
						{"GET", "/catalog", CourseHandler.HandleGetCatalog, nil},
						{"GET", "/progress", CourseHandler.HandleGetProgress, nil},
						{"POST", "/sessions", SessionHandler.HandleOpen, nil},
					},
				},
				{
					prefix:      "/sessions/:session",
					middlewares: authenticated,
					routes: []*route{
						{"GET", "", SessionHandler.HandleGet, nil},
						{"DELETE", "", SessionHandler.HandleClose, nil},
						{"POST", "/navigate", SessionHandler.HandleNavigate, nil},
						{"POST", "/previous", SessionHandler.HandlePrevious, nil},
						{"POST", "/next", SessionHandler.HandleNext, nil},
						{"POST", "/tab", SessionHandler.HandleSelectTab, nil},
						{"POST", "/location", SessionHandler.HandleLocation, nil},
						{"PUT", "/lessons/:lesson/completion", SessionHandler.HandleCompletion, nil},
						{"PUT", "/lessons/:lesson/favorite", SessionHandler.HandleFavorite, nil},
						{"GET", "/player", websocket.WithHeartbeat(PlayerHandler.HandlePlayer),
							[]echo.MiddlewareFunc{PlayerHandler.RequireSession}},
					},
				},
			},
		})
	return app
}

// Serve run app until ctx is done, then drain in-flight requests
func Serve(ctx context.Context, app *echo.Echo, option *infra.AppConfig, logger *zap.Logger) error {
	printRoutes(app, logger)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%d", option.Host, option.Port)
		logger.Info("HTTP server started", zap.String("server.address", addr))
		errCh <- app.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("Shutting down HTTP server")
	return app.Shutdown(shutdownCtx)
}

func printRoutes(app *echo.Echo, logger *zap.Logger) {
	for _, route := range app.Routes() {
		if !strings.HasPrefix(route.Name, "github.com/labstack/echo") {
			logger.Debug("Registered route", zap.String("method", route.Method), zap.String("path", route.Path))
		}
	}
}

func registerLivenessProbe(app *echo.Echo, db driver.ITransactionalDB, rdb driver.KeyValueDB) {
	app.GET("/healthz", func(c echo.Context) error {
		if db.Ping() == nil && rdb.Ping() == nil {
			return c.NoContent(http.StatusOK)
		}
		return c.NoContent(http.StatusServiceUnavailable)
	})
}

func registerProfileEndpoints(app *echo.Echo) {
	expvarHandler := expvar.Handler()
	app.GET("/debug/vars", func(c echo.Context) error {
		expvarHandler.ServeHTTP(c.Response().Writer, c.Request())
		return nil
	})
	app.GET("/debug/pprof/", func(c echo.Context) error {
		pprof.Index(c.Response().Writer, c.Request())
		return nil
	})
	app.GET("/debug/pprof/:name", func(c echo.Context) error {
		switch c.Param("name") {
		case "cmdline":
			pprof.Cmdline(c.Response().Writer, c.Request())
		case "profile":
			pprof.Profile(c.Response().Writer, c.Request())
		case "symbol":
			pprof.Symbol(c.Response().Writer, c.Request())
		case "trace":
			pprof.Trace(c.Response().Writer, c.Request())
		default:
			pprof.Handler(c.Param("name")).ServeHTTP(c.Response().Writer, c.Request())
		}
		return nil
	})
}
