package main

import (
	"context"
	"fmt"

	"github.com/hairizuan-noorazman/firesweep/logger"
	"github.com/hairizuan-noorazman/firesweep/uartlog"
	"github.com/spf13/cobra"
)

var scrapeJSON bool

var scrapeCmd = &cobra.Command{
	Use:   "scrape [uartlog]",
	Short: "Print the metrics found at the end of a UART log",
	Long: `Print the performance metrics found in the last lines of a UART log.
Without an argument the log of the latest run (run.output_dir/run.log_name)
is read.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		cfg, err := LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		path := cfg.Run.LogPath()
		if len(args) == 1 {
			path = args[0]
		}

		scraper, err := newScraper(ctx, cfg, logger.NewLogrusLogger(cfg.Log.Level))
		if err != nil {
			return err
		}
		metrics, err := scraper.ScrapeFile(path)
		if err != nil {
			return err
		}

		if scrapeJSON {
			printJSON(metrics)
			return nil
		}

		rows := make([][]string, 0, len(uartlog.Labels))
		for _, label := range uartlog.Labels {
			value, ok := metrics[label]
			if !ok {
				value = "-"
			}
			rows = append(rows, []string{uartlog.Column(label), value})
		}
		printTable([]string{"METRIC", "VALUE"}, rows)
		return nil
	},
}

func init() {
	scrapeCmd.Flags().BoolVar(&scrapeJSON, "json", false, "print metrics as JSON")
	rootCmd.AddCommand(scrapeCmd)
}
