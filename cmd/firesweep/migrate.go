package main

import (
	"database/sql"
	"fmt"

	"github.com/hairizuan-noorazman/firesweep/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Results database migration commands",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSQLDB(func(db *sql.DB, driver string) error {
			// Run migrations
			if err := database.RunMigrations(db, driver); err != nil {
				return err
			}
			fmt.Println("Migrations applied successfully")
			return nil
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Rollback the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSQLDB(func(db *sql.DB, driver string) error {
			// Rollback migration
			if err := database.RollbackMigration(db, driver); err != nil {
				return err
			}
			fmt.Println("Migration rolled back successfully")
			return nil
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSQLDB(func(db *sql.DB, driver string) error {
			version, dirty, err := database.Version(db, driver)
			if err != nil {
				return fmt.Errorf("failed to read schema version: %w", err)
			}
			fmt.Printf("version %d (dirty: %t)\n", version, dirty)
			return nil
		})
	},
}

// withSQLDB connects to the configured results database without migrating
// it and hands the connection to fn.
func withSQLDB(fn func(db *sql.DB, driver string) error) error {
	// Load config
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Connect to database
	db, err := database.Connect(databaseConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	defer sqlDB.Close()

	return fn(sqlDB, cfg.Results.Driver)
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}
