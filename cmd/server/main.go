/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the payroll back-office server: configuration,
  logging, store, handler wiring, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (env PAYROLL_*, optional config.yaml, defaults)
  2. Initialize the zap logger
  3. Open the SQLite store
  4. Configure the HTTP router
  5. Start the server with graceful shutdown

CONFIGURATION:
  PAYROLL_SERVER_PORT                 HTTP port (default 8080)
  PAYROLL_STORE_PATH                  Database path (":memory:" supported)
  PAYROLL_PAYROLL_FISCAL_WEEK1_ENDING Default fiscal anchor date
  PAYROLL_PAYROLL_EXPORT_TOKEN        Mark-paid shared secret (empty = off)
  PAYROLL_LOG_LEVEL / _FORMAT         Logging

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, drain for up to 30s,
  close the store, exit.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/staffdesk/payroll-engine/api"
	"github.com/staffdesk/payroll-engine/config"
	"github.com/staffdesk/payroll-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.InitLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	store, err := sqlite.New(cfg.Store.Path)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("path", cfg.Store.Path), zap.Error(err))
	}
	defer store.Close()

	handler := api.NewHandler(store, cfg.Payroll.ExportToken, cfg.Payroll.FiscalWeek1Ending, logger)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("store", cfg.Store.Path),
			zap.Bool("export_token_set", cfg.Payroll.ExportToken != ""))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
