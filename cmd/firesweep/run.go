package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/hairizuan-noorazman/firesweep/command"
	"github.com/hairizuan-noorazman/firesweep/hwdb"
	"github.com/hairizuan-noorazman/firesweep/logger"
	"github.com/hairizuan-noorazman/firesweep/results"
	"github.com/hairizuan-noorazman/firesweep/sweep"
	"github.com/spf13/cobra"
)

var (
	runHWConfigs  []string
	runWorkloads  []string
	runIterations int
	runSkipMerge  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every workload on every hardware configuration and collect metrics",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringSliceVar(&runHWConfigs, "hw-configs", nil, "hardware configurations (overrides run.hw_configs)")
	runCmd.Flags().StringSliceVar(&runWorkloads, "workloads", nil, "workloads (overrides run.workloads)")
	runCmd.Flags().IntVarP(&runIterations, "iterations", "n", 0, "runs per configuration and workload (overrides run.iterations)")
	runCmd.Flags().BoolVar(&runSkipMerge, "skip-hwdb-merge", false, "do not merge built hwdb entries before running")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	plan := sweep.Plan{
		HWConfigs:  cfg.Run.HWConfigs,
		Workloads:  cfg.Run.Workloads,
		Iterations: cfg.Run.Iterations,
	}
	if len(runHWConfigs) > 0 {
		plan.HWConfigs = runHWConfigs
	}
	if len(runWorkloads) > 0 {
		plan.Workloads = runWorkloads
	}
	if runIterations > 0 {
		plan.Iterations = runIterations
	}

	// Reject the plan before the side log is truncated
	if err := plan.Validate(); err != nil {
		return err
	}

	log, err := logger.NewFileLogger(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return err
	}
	defer log.Close()

	log.Info(ctx, "Simulation script started.", map[string]interface{}{
		"version":    Version,
		"hw_configs": len(plan.HWConfigs),
		"workloads":  len(plan.Workloads),
		"iterations": plan.Iterations,
	})

	builder, err := newBuilder(cfg)
	if err != nil {
		return err
	}
	scraper, err := newScraper(ctx, cfg, log)
	if err != nil {
		return err
	}

	var opts []sweep.RunOption
	if cfg.HWDB.Enabled && !runSkipMerge {
		merger, err := hwdb.NewMerger(cfg.HWDB.EntriesDir, cfg.FireSim.HWDB, hwdb.Mode(cfg.HWDB.Mode), log)
		if err != nil {
			return err
		}
		opts = append(opts, sweep.WithMerger(merger))
	}
	if cfg.Results.Enabled {
		db, err := openResultsDB(cfg)
		if err != nil {
			return err
		}
		defer closeDB(db)
		opts = append(opts, sweep.WithStore(results.NewSQLStore(db, log)))
	}
	if cfg.Archive.Enabled {
		archive, err := newArchive(ctx, cfg)
		if err != nil {
			return err
		}
		opts = append(opts, sweep.WithArchive(archive))
	}

	s := sweep.NewRunSweeper(sweep.RunConfig{
		ConfigPath:    cfg.Run.ConfigPath,
		HWConfigField: cfg.Run.HWConfigField,
		WorkloadField: cfg.Run.WorkloadField,
		LogPath:       cfg.Run.LogPath(),
		CSVPath:       cfg.Run.CSVOutput,
	}, builder, command.NewExecInvoker(), scraper, log, opts...)

	report, err := s.Sweep(ctx, plan)
	if err != nil {
		log.Error(ctx, "simulation sweep aborted", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}
	log.Info(ctx, "Simulation script completed.", nil)

	printTable([]string{"SWEEP", "ATTEMPTED", "ROWS", "SKIPPED", "COMMAND FAILURES"}, [][]string{{
		report.SweepID.String(),
		strconv.Itoa(report.Attempted),
		strconv.Itoa(len(report.Rows)),
		strconv.Itoa(len(report.Skipped)),
		strconv.Itoa(report.CommandFailures),
	}})
	if report.HWDB != nil && !report.HWDB.OK() {
		fmt.Fprintf(os.Stderr, "Warning: %d hwdb entries missing, %d failed to merge (see %s)\n",
			len(report.HWDB.Missing), len(report.HWDB.Failed), cfg.Log.File)
	}
	fmt.Printf("Results saved to %s\n", cfg.Run.CSVOutput)
	return nil
}
