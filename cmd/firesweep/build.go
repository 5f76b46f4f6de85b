package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/hairizuan-noorazman/firesweep/command"
	"github.com/hairizuan-noorazman/firesweep/logger"
	"github.com/hairizuan-noorazman/firesweep/sweep"
	"github.com/spf13/cobra"
)

var buildNames []string

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build one bitstream per configuration",
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().StringSliceVar(&buildNames, "names", nil, "build configurations to build (overrides build.names)")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	names := cfg.Build.Names
	if len(buildNames) > 0 {
		names = buildNames
	}
	if len(names) == 0 {
		return fmt.Errorf("no build configurations given")
	}

	builder, err := newBuilder(cfg)
	if err != nil {
		return err
	}

	log := logger.NewLogrusLogger(cfg.Log.Level)

	ok := color.New(color.FgGreen, color.Bold)
	failed := color.New(color.FgRed, color.Bold)
	hooks := sweep.BuildHooks{
		OnStart: func(name string) {
			fmt.Printf("Building bitstream for %s\n", name)
		},
		OnDone: func(o sweep.BuildOutcome) {
			if o.Succeeded() {
				ok.Printf("Build for %s completed successfully\n", o.Name)
				return
			}
			failed.Printf("Build failed for %s (exit code %d)\n", o.Name, o.Result.ExitCode)
		},
	}

	s := sweep.NewBuildSweeper(cfg.Build.ConfigPath, cfg.Build.Field, builder, command.NewExecInvoker(), log, hooks)
	outcomes, err := s.Sweep(ctx, names)
	if err != nil {
		return err
	}

	succeeded := 0
	for _, o := range outcomes {
		if o.Succeeded() {
			succeeded++
		}
	}
	fmt.Printf("%d of %d builds succeeded\n", succeeded, len(outcomes))
	return nil
}
