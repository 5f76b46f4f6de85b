package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/hairizuan-noorazman/firesweep/cmd/firesweep/handlers"
	"github.com/hairizuan-noorazman/firesweep/logger"
	"github.com/hairizuan-noorazman/firesweep/results"
	"github.com/hairizuan-noorazman/firesweep/storage"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored results over HTTP",
	RunE:  runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func newRouter(store results.Store, archive storage.ArtifactStore, log logger.Logger) *mux.Router {
	router := mux.NewRouter()

	// Health check endpoint
	router.HandleFunc("/health", handlers.HealthHandler).Methods("GET")

	// Read-only results API
	resultsHandler := handlers.NewResultsHandler(store, archive, log)
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/sweeps", resultsHandler.ListSweeps).Methods("GET")
	api.HandleFunc("/sweeps/{id}/results", resultsHandler.ListBySweep).Methods("GET")
	api.HandleFunc("/results/{id}", resultsHandler.GetByID).Methods("GET")
	api.HandleFunc("/results/{id}/log", resultsHandler.GetLog).Methods("GET")
	return router
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// Load configuration
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log := logger.NewLogrusLogger(cfg.Log.Level)
	log.Info(ctx, "starting server", map[string]interface{}{
		"version": Version,
		"commit":  Commit,
		"date":    BuildDate,
	})

	// Connect to database
	db, err := openResultsDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB(db)

	log.Info(ctx, "database connected", map[string]interface{}{
		"driver": cfg.Results.Driver,
	})

	// Initialize archive
	var archive storage.ArtifactStore
	if cfg.Archive.Enabled {
		archive, err = newArchive(ctx, cfg)
		if err != nil {
			return err
		}
		log.Info(ctx, "log archive initialized", map[string]interface{}{
			"type": cfg.Archive.Type,
		})
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      newRouter(results.NewSQLStore(db, log), archive, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info(ctx, "server listening", map[string]interface{}{
			"address": addr,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "server error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info(ctx, "shutting down server", nil)

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info(ctx, "server stopped", nil)
	return nil
}
