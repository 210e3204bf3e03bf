package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"portfolio-api/internal/common/logging"
	"portfolio-api/internal/config"
	"portfolio-api/internal/security"
	"portfolio-api/internal/server"
)

const shutdownTimeout = 30 * time.Second

// Run loads configuration, starts the application and blocks until a
// termination signal or a fatal server error.
func Run() error {
	// .env is optional
	_ = godotenv.Load()

	cfg := config.Load()

	if err := logging.InitGlobalLogger(cfg.LogLevel, cfg.LogFormat, cfg.LogFile); err != nil {
		return err
	}
	defer logging.MustSync()

	logger := logging.Component("main")

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", err)
		return err
	}

	logger.Info("Starting portfolio API",
		logging.String("environment", cfg.Environment),
		logging.Any("settings", security.FilterSensitiveSettings(cfg.Settings())),
	)

	app, err := New(cfg)
	if err != nil {
		logger.Error("Failed to initialize application", err)
		return err
	}
	defer app.Cleanup()

	srv := server.New(app.Router(), cfg.Port)
	serveErr, err := srv.Start()
	if err != nil {
		logger.Error("Failed to start server", err, logging.String("port", cfg.Port))
		return err
	}
	logger.Info("Server listening", logging.String("addr", srv.Addr()))

	app.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case sig := <-quit:
		logger.Info("Shutting down", logging.String("signal", sig.String()))
	case err, ok := <-serveErr:
		if ok && err != nil {
			logger.Error("Server stopped unexpectedly", err)
			runErr = err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	app.Shutdown(ctx)
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", err)
		if runErr == nil {
			runErr = err
		}
	}

	logger.Info("Server exited")
	return runErr
}
