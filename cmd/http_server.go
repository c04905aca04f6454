package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/workforce-management/internal"
	"github.com/frahmantamala/workforce-management/internal/auth"
	authPostgres "github.com/frahmantamala/workforce-management/internal/auth/postgres"
	"github.com/frahmantamala/workforce-management/internal/core/events"
	"github.com/frahmantamala/workforce-management/internal/engine"
	"github.com/frahmantamala/workforce-management/internal/organization"
	"github.com/frahmantamala/workforce-management/internal/store/postgres"
	"github.com/frahmantamala/workforce-management/internal/transport"
	"github.com/frahmantamala/workforce-management/internal/transport/middleware"
	"github.com/frahmantamala/workforce-management/internal/transport/rest"
	"github.com/frahmantamala/workforce-management/internal/user"
	"github.com/frahmantamala/workforce-management/internal/work"
	"github.com/frahmantamala/workforce-management/pkg/logger"

	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const apiPrefix = "/api/v1"

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	Gorm   *gorm.DB
	DB     *sqlx.DB
	Bus    *events.EventBus
	Engine *engine.Engine
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := setupRoutes(deps); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up routes: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "driver", deps.Config.Database.Driver)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) error {
	cfg := deps.Config
	lg := deps.Logger

	tokenGen := auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.AccessTokenDuration, cfg.Security.RefreshTokenDuration)
	authService := auth.NewService(authPostgres.NewRepository(deps.DB), tokenGen, lg)

	handlers := rest.Handlers{
		Auth:         auth.NewHandler(authService, lg),
		RBAC:         auth.NewRBACAuthorization(lg),
		User:         user.NewHandler(deps.Engine, lg),
		Organization: organization.NewHandler(deps.Engine, lg),
		Work:         work.NewHandler(deps.Engine, lg),
		Health:       rest.NewHealthHandler(transport.NewBaseHandler(lg), map[string]rest.Pinger{"database": deps.DB}),
		CORSOrigins:  cfg.Server.AllowedOrigins,
	}

	if spec := cfg.Server.OpenAPISpec; spec != "" {
		doc, err := middleware.LoadOpenAPI(spec)
		if err != nil {
			return err
		}
		validator, err := middleware.OpenAPIValidator(doc, apiPrefix, lg)
		if err != nil {
			return err
		}
		handlers.Validator = validator
		handlers.OpenAPISpec = spec
	}

	rest.RegisterAllRoutes(deps.Router, handlers, lg)
	return nil
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.Setup(os.Stdout, config.Logging.Level, config.Logging.Format)
	lg := logger.L()

	gdb, sqlDB, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if config.Database.IsSQLite() {
		if err := postgres.AutoMigrate(gdb); err != nil {
			return nil, fmt.Errorf("failed to migrate sqlite schema: %w", err)
		}
	}

	bus := events.NewEventBus(lg)
	bus.SubscribeAll(events.EventTypes, events.AuditLogger(lg.With("component", "audit")))

	opts := []engine.Option{}
	if config.Security.BCryptCost != 0 {
		opts = append(opts, engine.WithBCryptCost(config.Security.BCryptCost))
	}
	eng := engine.New(postgres.NewStore(gdb), bus, lg, opts...)

	return &Dependencies{
		Config: config,
		Gorm:   gdb,
		DB:     sqlDB,
		Bus:    bus,
		Engine: eng,
		Router: chi.NewRouter(),
		Logger: lg,
	}, nil
}

// initDB opens the GORM connection the entity store runs on and wraps the
// same pool in sqlx for the raw credential queries.
func initDB(cfg internal.DatabaseConfig) (*gorm.DB, *sqlx.DB, error) {
	gormCfg := &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
		TranslateError: true,
	}

	var (
		dialector  gorm.Dialector
		driverName string
	)
	if cfg.IsSQLite() {
		dialector, driverName = sqlite.Open(cfg.GetDSN()), "sqlite3"
	} else {
		dialector, driverName = gormPostgres.Open(cfg.GetDSN()), "pgx"
	}

	gdb, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db connection: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.IsSQLite() {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return gdb, sqlx.NewDb(sqlDB, driverName), nil
}
