package sweep

import (
	"context"
	"fmt"

	"github.com/hairizuan-noorazman/firesweep/command"
	"github.com/hairizuan-noorazman/firesweep/logger"
	"github.com/hairizuan-noorazman/firesweep/yamldoc"
)

// DefaultBuildField is the build configuration field naming the build to run.
const DefaultBuildField = "builds_to_run[0]"

// BuildOutcome is the result of one bitstream build.
type BuildOutcome struct {
	Name   string
	Result command.Result
}

// Succeeded reports whether the build command exited zero.
func (o BuildOutcome) Succeeded() bool {
	return o.Result.Success()
}

// BuildHooks lets the caller report progress as the sweep advances.
type BuildHooks struct {
	OnStart func(name string)
	OnDone  func(outcome BuildOutcome)
}

// BuildSweeper builds one bitstream per configuration name.
type BuildSweeper struct {
	configPath string
	field      string
	builder    *command.Builder
	invoker    command.Invoker
	logger     logger.Logger
	hooks      BuildHooks
}

// NewBuildSweeper creates a BuildSweeper that rewrites field (DefaultBuildField
// when empty) of the document at configPath before every build.
func NewBuildSweeper(configPath, field string, builder *command.Builder, invoker command.Invoker, log logger.Logger, hooks BuildHooks) *BuildSweeper {
	if field == "" {
		field = DefaultBuildField
	}
	return &BuildSweeper{
		configPath: configPath,
		field:      field,
		builder:    builder,
		invoker:    invoker,
		logger:     log,
		hooks:      hooks,
	}
}

// Sweep rewrites the build field to each name in turn and invokes the build
// once per name. A failed build is reported and the sweep continues. An error
// rewriting the configuration, or a build command that cannot be started,
// stops the sweep and is returned with the outcomes gathered so far.
func (s *BuildSweeper) Sweep(ctx context.Context, names []string) ([]BuildOutcome, error) {
	outcomes := make([]BuildOutcome, 0, len(names))

	for _, name := range names {
		log := s.logger.WithField("build", name)

		log.Debug(ctx, "updating build configuration", map[string]interface{}{
			"path":  s.configPath,
			"field": s.field,
		})
		if err := yamldoc.Update(s.configPath, yamldoc.SetField(s.field, name)); err != nil {
			return outcomes, fmt.Errorf("failed to update %s for %s: %w", s.configPath, name, err)
		}

		if s.hooks.OnStart != nil {
			s.hooks.OnStart(name)
		}

		cmd := s.builder.BuildBitstream()
		log.Info(ctx, "building bitstream", map[string]interface{}{
			"command": cmd.String(),
		})
		res := s.invoker.Run(ctx, cmd)
		if !res.Started() {
			return outcomes, fmt.Errorf("failed to start build for %s: %w", name, res.Err)
		}

		outcome := BuildOutcome{Name: name, Result: res}
		outcomes = append(outcomes, outcome)
		if outcome.Succeeded() {
			log.Info(ctx, "build succeeded", nil)
		} else {
			log.Warn(ctx, "build failed", map[string]interface{}{
				"exit_code": res.ExitCode,
			})
		}

		if s.hooks.OnDone != nil {
			s.hooks.OnDone(outcome)
		}
	}

	return outcomes, nil
}
