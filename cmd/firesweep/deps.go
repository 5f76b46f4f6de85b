package main

import (
	"context"
	"fmt"

	"github.com/hairizuan-noorazman/firesweep/command"
	"github.com/hairizuan-noorazman/firesweep/database"
	"github.com/hairizuan-noorazman/firesweep/logger"
	"github.com/hairizuan-noorazman/firesweep/storage"
	"github.com/hairizuan-noorazman/firesweep/uartlog"
	"gorm.io/gorm"
)

func newBuilder(cfg *Config) (*command.Builder, error) {
	b, err := command.NewBuilder(cfg.FireSim.Binary, cfg.FireSim.HWDB, cfg.FireSim.BuildRecipes)
	if err != nil {
		return nil, fmt.Errorf("invalid firesim.binary %q: %w", cfg.FireSim.Binary, err)
	}
	return b, nil
}

func newScraper(ctx context.Context, cfg *Config, log logger.Logger) (*uartlog.Scraper, error) {
	mode := uartlog.MatchMode(cfg.Scrape.MatchMode)
	if !mode.IsValid() {
		return nil, fmt.Errorf("invalid scrape.match_mode %q", cfg.Scrape.MatchMode)
	}
	s := uartlog.NewScraper()
	s.Mode = mode
	s.TailLines = cfg.Scrape.TailLines
	s.OnAmbiguous = func(line string, labels []string) {
		log.Warn(ctx, "UART log line matches more than one metric", map[string]interface{}{
			"line":   line,
			"labels": labels,
		})
	}
	return s, nil
}

func databaseConfig(cfg *Config) database.Config {
	return database.Config{
		Driver:       cfg.Results.Driver,
		Path:         cfg.Results.Path,
		Host:         cfg.Results.Host,
		Port:         cfg.Results.Port,
		User:         cfg.Results.User,
		Password:     cfg.Results.Password,
		Database:     cfg.Results.Database,
		MaxOpenConns: cfg.Results.MaxOpenConns,
		MaxIdleConns: cfg.Results.MaxIdleConns,
	}
}

// openResultsDB connects to the results database and applies pending
// migrations. The caller closes the returned database.
func openResultsDB(cfg *Config) (*gorm.DB, error) {
	db, err := database.Connect(databaseConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// Bring the schema up to date
	if err := database.RunMigrations(sqlDB, cfg.Results.Driver); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

func newArchive(ctx context.Context, cfg *Config) (storage.ArtifactStore, error) {
	return storage.NewArtifactStore(ctx, storage.Config{
		Type:     cfg.Archive.Type,
		BaseDir:  cfg.Archive.BaseDir,
		S3Bucket: cfg.Archive.S3Bucket,
		S3Region: cfg.Archive.S3Region,
		S3Prefix: cfg.Archive.S3Prefix,
	})
}
