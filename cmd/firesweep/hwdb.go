package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/hairizuan-noorazman/firesweep/hwdb"
	"github.com/hairizuan-noorazman/firesweep/logger"
	"github.com/spf13/cobra"
)

var hwdbMode string

var hwdbCmd = &cobra.Command{
	Use:   "hwdb",
	Short: "Hardware database commands",
}

var hwdbMergeCmd = &cobra.Command{
	Use:   "merge [hw-config...]",
	Short: "Merge built hwdb entries into the master hwdb",
	Long: `Merge the built hwdb entry of each hardware configuration into the
master hwdb file. Without arguments the configurations in run.hw_configs
are merged.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		cfg, err := LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		names := cfg.Run.HWConfigs
		if len(args) > 0 {
			names = args
		}
		mode := cfg.HWDB.Mode
		if hwdbMode != "" {
			mode = hwdbMode
		}

		log := logger.NewLogrusLogger(cfg.Log.Level)
		merger, err := hwdb.NewMerger(cfg.HWDB.EntriesDir, cfg.FireSim.HWDB, hwdb.Mode(mode), log)
		if err != nil {
			return err
		}

		report := merger.Merge(ctx, names)

		var rows [][]string
		for _, name := range report.Merged {
			rows = append(rows, []string{name, "merged", ""})
		}
		for _, name := range report.Missing {
			rows = append(rows, []string{name, "missing", merger.FragmentPath(name)})
		}
		failed := make([]string, 0, len(report.Failed))
		for name := range report.Failed {
			failed = append(failed, name)
		}
		sort.Strings(failed)
		for _, name := range failed {
			rows = append(rows, []string{name, "failed", report.Failed[name].Error()})
		}
		printTable([]string{"HW CONFIG", "STATUS", "DETAIL"}, rows)

		if !report.OK() {
			return fmt.Errorf("%d of %d hwdb entries could not be merged",
				len(report.Missing)+len(report.Failed), len(names))
		}
		return nil
	},
}

func init() {
	hwdbMergeCmd.Flags().StringVar(&hwdbMode, "mode", "", "merge mode: upsert or append (overrides hwdb.mode)")
	hwdbCmd.AddCommand(hwdbMergeCmd)
	rootCmd.AddCommand(hwdbCmd)
}
