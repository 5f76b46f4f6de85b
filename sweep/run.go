package sweep

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/hairizuan-noorazman/firesweep/command"
	"github.com/hairizuan-noorazman/firesweep/hwdb"
	"github.com/hairizuan-noorazman/firesweep/logger"
	"github.com/hairizuan-noorazman/firesweep/results"
	"github.com/hairizuan-noorazman/firesweep/storage"
	"github.com/hairizuan-noorazman/firesweep/uartlog"
	"github.com/hairizuan-noorazman/firesweep/yamldoc"
)

// Runtime configuration fields rewritten before every run.
const (
	DefaultHWConfigField = "target_config.default_hw_config"
	DefaultWorkloadField = "workload.workload_name"
)

// ErrEmptyPlan is returned when a plan has nothing to run.
var ErrEmptyPlan = errors.New("sweep plan has no runs")

// Plan is the parameter space of a run sweep.
type Plan struct {
	HWConfigs  []string
	Workloads  []string
	Iterations int
}

// Total is the number of simulation runs the plan attempts.
func (p Plan) Total() int {
	if p.Iterations < 1 {
		return 0
	}
	return len(p.HWConfigs) * len(p.Workloads) * p.Iterations
}

// Validate returns ErrEmptyPlan unless the plan has at least one hardware
// configuration, one workload and one iteration.
func (p Plan) Validate() error {
	switch {
	case len(p.HWConfigs) == 0:
		return fmt.Errorf("%w: no hardware configurations", ErrEmptyPlan)
	case len(p.Workloads) == 0:
		return fmt.Errorf("%w: no workloads", ErrEmptyPlan)
	case p.Iterations < 1:
		return fmt.Errorf("%w: iterations must be at least 1, got %d", ErrEmptyPlan, p.Iterations)
	}
	return nil
}

// RunConfig holds the file locations a run sweep works with.
type RunConfig struct {
	// ConfigPath is the runtime configuration document.
	ConfigPath    string
	HWConfigField string
	WorkloadField string

	// LogPath is where the simulator leaves the UART log of the latest run.
	LogPath string

	// CSVPath receives the results table. Empty skips writing it.
	CSVPath string
}

// RunReport summarises a run sweep.
type RunReport struct {
	SweepID         uuid.UUID
	Attempted       int
	Rows            []results.Row
	Skipped         []RunKey
	CommandFailures int
	HWDB            *hwdb.Report
}

// RunKey identifies one run of a plan.
type RunKey struct {
	HWConfig string
	Workload string
	Run      int
}

// RunOption configures optional collaborators of a RunSweeper.
type RunOption func(*RunSweeper)

// WithMerger merges hardware database fragments for the plan's
// configurations before the first run.
func WithMerger(m *hwdb.Merger) RunOption {
	return func(s *RunSweeper) { s.merger = m }
}

// WithStore persists every scraped row as soon as it is parsed.
func WithStore(store results.Store) RunOption {
	return func(s *RunSweeper) { s.store = store }
}

// WithArchive copies every scraped UART log into store.
func WithArchive(store storage.ArtifactStore) RunOption {
	return func(s *RunSweeper) { s.archive = store }
}

// WithSweepID fixes the sweep ID instead of generating one.
func WithSweepID(id uuid.UUID) RunOption {
	return func(s *RunSweeper) { s.sweepID = id }
}

// RunSweeper runs every (hw config, workload, repetition) of a Plan.
type RunSweeper struct {
	cfg     RunConfig
	builder *command.Builder
	invoker command.Invoker
	scraper *uartlog.Scraper
	logger  logger.Logger

	merger  *hwdb.Merger
	store   results.Store
	archive storage.ArtifactStore
	sweepID uuid.UUID
}

// NewRunSweeper creates a RunSweeper.
func NewRunSweeper(cfg RunConfig, builder *command.Builder, invoker command.Invoker, scraper *uartlog.Scraper, log logger.Logger, opts ...RunOption) *RunSweeper {
	if cfg.HWConfigField == "" {
		cfg.HWConfigField = DefaultHWConfigField
	}
	if cfg.WorkloadField == "" {
		cfg.WorkloadField = DefaultWorkloadField
	}
	s := &RunSweeper{
		cfg:     cfg,
		builder: builder,
		invoker: invoker,
		scraper: scraper,
		logger:  log,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sweepID == uuid.Nil {
		s.sweepID = uuid.New()
	}
	return s
}

// SweepID identifies this sweep in logs, stored rows and archive keys.
func (s *RunSweeper) SweepID() uuid.UUID {
	return s.sweepID
}

// Sweep executes the plan. For every run it rewrites the runtime
// configuration, runs the setup and workload stages and scrapes the UART log.
// A failing command is logged and the log is scraped anyway; a missing log
// skips the row. Errors rewriting the configuration, reading an existing log
// or writing the results table end the sweep.
func (s *RunSweeper) Sweep(ctx context.Context, plan Plan) (*RunReport, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	log := s.logger.WithField("sweep_id", s.sweepID.String())
	report := &RunReport{SweepID: s.sweepID}

	if s.merger != nil {
		report.HWDB = s.merger.Merge(ctx, plan.HWConfigs)
	}

	for _, hw := range plan.HWConfigs {
		for _, workload := range plan.Workloads {
			for run := 1; run <= plan.Iterations; run++ {
				key := RunKey{HWConfig: hw, Workload: workload, Run: run}
				if err := s.runOnce(ctx, log, plan, key, report); err != nil {
					return report, err
				}
			}
		}
	}

	if s.cfg.CSVPath != "" {
		if err := results.WriteCSVFile(s.cfg.CSVPath, report.Rows); err != nil {
			return report, err
		}
		log.Info(ctx, fmt.Sprintf("Results saved to %s", s.cfg.CSVPath), map[string]interface{}{
			"rows": len(report.Rows),
		})
	}

	return report, nil
}

func (s *RunSweeper) runOnce(ctx context.Context, log logger.Logger, plan Plan, key RunKey, report *RunReport) error {
	fields := map[string]interface{}{
		"hw_config": key.HWConfig,
		"workload":  key.Workload,
		"run":       key.Run,
	}
	runLog := log.WithFields(fields)
	report.Attempted++

	runLog.Info(ctx, fmt.Sprintf("Running hw_config=%s, workload=%s, run=%d/%d",
		key.HWConfig, key.Workload, key.Run, plan.Iterations), nil)

	err := yamldoc.Update(s.cfg.ConfigPath,
		yamldoc.SetField(s.cfg.HWConfigField, key.HWConfig),
		yamldoc.SetField(s.cfg.WorkloadField, key.Workload),
	)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", s.cfg.ConfigPath, err)
	}
	runLog.Info(ctx, fmt.Sprintf("Updated %s with HW Config: %s, Workload: %s",
		s.cfg.ConfigPath, key.HWConfig, key.Workload), nil)

	res := command.RunChain(ctx, s.invoker, s.builder.InfraSetup(), s.builder.RunWorkload())
	if !res.Success() {
		report.CommandFailures++
		warn := map[string]interface{}{
			"command":   res.Command.String(),
			"exit_code": res.ExitCode,
		}
		if res.Err != nil {
			warn["error"] = res.Err.Error()
		}
		runLog.Warn(ctx, "Ignored error during simulation command", warn)
	}

	metrics, err := s.scraper.ScrapeFile(s.cfg.LogPath)
	if errors.Is(err, uartlog.ErrLogNotFound) {
		report.Skipped = append(report.Skipped, key)
		runLog.Warn(ctx, fmt.Sprintf("UART log not found for run %d", key.Run), map[string]interface{}{
			"path": s.cfg.LogPath,
		})
		return nil
	}
	if err != nil {
		return err
	}

	row := results.Row{
		HWConfig: key.HWConfig,
		Workload: key.Workload,
		Run:      key.Run,
		Metrics:  metrics,
	}
	report.Rows = append(report.Rows, row)
	runLog.Info(ctx, fmt.Sprintf("Parsed UART log for run %d/%d", key.Run, plan.Iterations), map[string]interface{}{
		"metrics": len(metrics),
	})

	s.persist(ctx, runLog, row)
	return nil
}

// persist stores the row, archives the run's log and attaches the archive
// key to the stored row. Failures here are logged only; the row is already
// part of the report.
func (s *RunSweeper) persist(ctx context.Context, log logger.Logger, row results.Row) {
	record := results.NewRecord(s.sweepID, row)

	stored := false
	if s.store != nil {
		if err := s.store.Create(ctx, record); err != nil {
			log.Warn(ctx, "failed to store run result", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			stored = true
		}
	}

	if s.archive == nil {
		return
	}

	logKey := storage.RunLogKey(s.sweepID.String(), row.HWConfig, row.Workload, row.Run)
	if err := s.archiveLog(ctx, logKey); err != nil {
		log.Warn(ctx, "failed to archive UART log", map[string]interface{}{
			"error": err.Error(),
			"key":   logKey,
		})
		return
	}

	if !stored {
		return
	}
	if err := s.store.Update(ctx, record.ID, results.SetLogKey(logKey)); err != nil {
		log.Warn(ctx, "failed to attach archived UART log to run result", map[string]interface{}{
			"error":     err.Error(),
			"key":       logKey,
			"result_id": record.ID.String(),
		})
	}
}

func (s *RunSweeper) archiveLog(ctx context.Context, key string) error {
	f, err := os.Open(s.cfg.LogPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return s.archive.Put(ctx, key, f)
}
