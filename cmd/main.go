package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"user_accounts/internal/config"
	"user_accounts/internal/credential"
	"user_accounts/internal/handlers"
	"user_accounts/internal/logger"
	"user_accounts/internal/repository"
	"user_accounts/internal/repository/db"
	"user_accounts/internal/server"
	"user_accounts/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger options come from config, so fall back to defaults here
		logger.Get(logger.Options{Level: logger.InfoLevel}).Fatalw("error reading config", "err", err)
	}

	log := logger.Get(logger.Options{Level: cfg.Log.Level, Encoding: cfg.Log.Encoding})
	defer func() { _ = log.Sync() }()

	guard, err := credential.NewGuard(cfg.Security.BcryptCost)
	if err != nil {
		log.Fatalw("invalid bcrypt cost", "err", err)
	}

	repos, closeDB, err := openRepository(cfg.DB, guard, log)
	if err != nil {
		log.Fatalw("failed to open database", "driver", cfg.DB.Driver, "err", err)
	}
	defer closeDB()

	services := service.NewService(repos, guard, service.AuthConfig{
		SigningKey: cfg.Auth.SigningKey,
		TokenTTL:   cfg.Auth.TokenTTL,
	}, log)
	apiHandler := handlers.NewHandler(services, log)
	apiHandler.SetAuditPollInterval(cfg.HTTP.AuditPollInterval)

	srv := server.New(server.Options{
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	})
	runHTTPServer(srv, cfg.Port, apiHandler, log)

	waitForShutdown(srv, cfg.HTTP, log)
}

// openRepository selects the storage backend from config. The returned func closes it.
func openRepository(cfg config.DBConfig, guard *credential.Guard, log *logger.Logger) (*repository.Repository, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		gdb, err := db.OpenPostgres(cfg.DSN, db.PostgresOptions{
			MaxOpenConns:    cfg.MaxOpenConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			LogSQL:          cfg.LogSQL,
		})
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, nil, err
		}
		log.Infow("storage_ready", "driver", cfg.Driver)
		return repository.NewGormRepository(gdb, guard), closer(sqlDB.Close, log), nil
	default:
		sqlDB, err := db.InitDB(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		log.Infow("storage_ready", "driver", cfg.Driver, "path", cfg.Path)
		return repository.NewRepository(sqlDB, guard), closer(sqlDB.Close, log), nil
	}
}

func closer(closeFn func() error, log *logger.Logger) func() {
	return func() {
		if err := closeFn(); err != nil {
			log.Errorw("failed to close database", "err", err)
		}
	}
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		log.Infow("http_listen", "port", port)
		if err := srv.Run(port, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(srv *server.Server, cfg config.HTTPConfig, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
