package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/hairizuan-noorazman/firesweep/internal/uuidutil"
	"github.com/hairizuan-noorazman/firesweep/logger"
	"github.com/hairizuan-noorazman/firesweep/results"
	"github.com/hairizuan-noorazman/firesweep/storage"
	"github.com/spf13/cobra"
)

var (
	resultsLimit    int
	resultsOffset   int
	resultsJSON     bool
	resultsImportID string
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Inspect stored sweep results",
}

var resultsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sweeps",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		store, done, err := openResultsStore()
		if err != nil {
			return err
		}
		defer done()

		sweeps, err := store.ListSweeps(ctx, resultsLimit, resultsOffset)
		if err != nil {
			return fmt.Errorf("failed to list sweeps: %w", err)
		}

		if resultsJSON {
			printJSON(sweeps)
			return nil
		}

		rows := make([][]string, 0, len(sweeps))
		for _, s := range sweeps {
			rows = append(rows, []string{
				s.SweepID.String(),
				strconv.Itoa(s.Rows),
				formatTime(s.FirstSeen),
				formatTime(s.LastSeen),
			})
		}
		printTable([]string{"SWEEP", "ROWS", "FIRST", "LAST"}, rows)
		return nil
	},
}

var resultsShowCmd = &cobra.Command{
	Use:   "show <sweep-id>",
	Short: "Print the results of a sweep as CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		sweepID, err := uuidutil.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid sweep ID: %w", err)
		}

		store, done, err := openResultsStore()
		if err != nil {
			return err
		}
		defer done()

		records, err := store.ListBySweep(ctx, sweepID, resultsLimit, resultsOffset)
		if err != nil {
			return fmt.Errorf("failed to list results: %w", err)
		}

		if resultsJSON {
			printJSON(records)
			return nil
		}

		rows := make([]results.Row, 0, len(records))
		for _, r := range records {
			rows = append(rows, r.Row())
		}
		return printRows(rows)
	},
}

var resultsImportCmd = &cobra.Command{
	Use:   "import <csv>",
	Short: "Store the rows of a results CSV as a new sweep",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		sweepID := uuidutil.New()
		if resultsImportID != "" {
			id, err := uuidutil.Parse(resultsImportID)
			if err != nil {
				return fmt.Errorf("invalid sweep ID: %w", err)
			}
			sweepID = id
		}

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		rows, err := results.ReadCSV(f)
		if err != nil {
			return err
		}

		store, done, err := openResultsStore()
		if err != nil {
			return err
		}
		defer done()

		for _, row := range rows {
			if err := store.Create(ctx, results.NewRecord(sweepID, row)); err != nil {
				return fmt.Errorf("failed to store run %d of %s/%s: %w", row.Run, row.HWConfig, row.Workload, err)
			}
		}

		fmt.Printf("Imported %d rows as sweep %s\n", len(rows), sweepID)
		return nil
	},
}

var resultsDeleteCmd = &cobra.Command{
	Use:   "delete <sweep-id>",
	Short: "Delete the stored results of a sweep and their archived logs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		sweepID, err := uuidutil.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid sweep ID: %w", err)
		}

		cfg, err := LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		store, done, err := openResultsStore()
		if err != nil {
			return err
		}
		defer done()

		var archive storage.ArtifactStore
		if cfg.Archive.Enabled {
			if archive, err = newArchive(ctx, cfg); err != nil {
				return err
			}
		}

		deleted, err := results.PurgeSweep(ctx, store, archive, sweepID)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d rows of sweep %s\n", deleted, sweepID)
		return nil
	},
}

var resultsLogCmd = &cobra.Command{
	Use:   "log <result-id>",
	Short: "Print the archived UART log of a stored result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		id, err := uuidutil.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid result ID: %w", err)
		}

		cfg, err := LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if !cfg.Archive.Enabled {
			return fmt.Errorf("UART logs are not archived (archive.enabled is false)")
		}

		store, done, err := openResultsStore()
		if err != nil {
			return err
		}
		defer done()

		record, err := store.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if record.LogKey == "" {
			return fmt.Errorf("result %s has no archived log", id)
		}

		archive, err := newArchive(ctx, cfg)
		if err != nil {
			return err
		}
		body, err := archive.Get(ctx, record.LogKey)
		if err != nil {
			return fmt.Errorf("failed to read archived log %s: %w", record.LogKey, err)
		}
		defer body.Close()

		_, err = io.Copy(os.Stdout, body)
		return err
	},
}

// openResultsStore opens the configured results database. The returned
// function closes it.
func openResultsStore() (results.Store, func(), error) {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	db, err := openResultsDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	store := results.NewSQLStore(db, logger.NewLogrusLogger(cfg.Log.Level))
	return store, func() { closeDB(db) }, nil
}

func init() {
	for _, c := range []*cobra.Command{resultsListCmd, resultsShowCmd} {
		c.Flags().IntVar(&resultsLimit, "limit", 100, "maximum number of entries")
		c.Flags().IntVar(&resultsOffset, "offset", 0, "entries to skip")
		c.Flags().BoolVar(&resultsJSON, "json", false, "print as JSON")
	}
	resultsImportCmd.Flags().StringVar(&resultsImportID, "sweep-id", "", "sweep ID to store the rows under (default: new)")

	resultsCmd.AddCommand(resultsListCmd)
	resultsCmd.AddCommand(resultsShowCmd)
	resultsCmd.AddCommand(resultsImportCmd)
	resultsCmd.AddCommand(resultsDeleteCmd)
	resultsCmd.AddCommand(resultsLogCmd)
	rootCmd.AddCommand(resultsCmd)
}
