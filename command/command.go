// Package command builds and runs the external simulation tool's command
// lines. Only the exit status of a child process is consumed.
package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/google/shlex"
)

// ErrNoCommand is returned when a binary template is empty.
var ErrNoCommand = errors.New("no command to execute")

// Command is a fully resolved argv.
type Command struct {
	Name string
	Args []string
}

// String renders the command for logs.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Result is the outcome of running a Command.
type Result struct {
	Command  Command
	ExitCode int

	// Err is set when the process could not be started or waited on. A
	// non-zero ExitCode alone does not set Err.
	Err error
}

// Success reports whether the command ran and exited zero.
func (r Result) Success() bool {
	return r.Err == nil && r.ExitCode == 0
}

// Started reports whether the process was started at all.
func (r Result) Started() bool {
	return r.Err == nil
}

// Builder produces the tool's command lines from a binary template and the
// two auxiliary files every subcommand receives.
type Builder struct {
	argv        []string
	hwdbPath    string
	recipesPath string
}

// NewBuilder parses binary with shell quoting rules, so templates such as
// "sudo -E firesim" are accepted.
func NewBuilder(binary, hwdbPath, recipesPath string) (*Builder, error) {
	argv, err := shlex.Split(binary)
	if err != nil {
		return nil, fmt.Errorf("failed to parse command template: %w", err)
	}
	if len(argv) == 0 {
		return nil, ErrNoCommand
	}
	return &Builder{
		argv:        argv,
		hwdbPath:    hwdbPath,
		recipesPath: recipesPath,
	}, nil
}

// Subcommand returns "<binary> <sub> -a <hwdb> -r <recipes>".
func (b *Builder) Subcommand(sub string) Command {
	args := make([]string, 0, len(b.argv)+4)
	args = append(args, b.argv[1:]...)
	args = append(args, sub, "-a", b.hwdbPath, "-r", b.recipesPath)
	return Command{Name: b.argv[0], Args: args}
}

// BuildBitstream is the build sweep's command.
func (b *Builder) BuildBitstream() Command {
	return b.Subcommand("buildbitstream")
}

// InfraSetup is the first stage of a simulation run.
func (b *Builder) InfraSetup() Command {
	return b.Subcommand("infrasetup")
}

// RunWorkload is the second stage of a simulation run.
func (b *Builder) RunWorkload() Command {
	return b.Subcommand("runworkload")
}

// Dependencies is the seam between Invoker and os/exec.
type Dependencies interface {
	// CmdRun is equivalent to calling c.Run.
	CmdRun(c *exec.Cmd) error
}

// StdlibDependencies runs commands with os/exec.
type StdlibDependencies struct{}

// CmdRun implements Dependencies.
func (*StdlibDependencies) CmdRun(c *exec.Cmd) error {
	return c.Run()
}

// Invoker runs a Command and blocks until it exits.
type Invoker interface {
	Run(ctx context.Context, cmd Command) Result
}

// ExecInvoker runs commands as child processes sharing this process's stdio.
type ExecInvoker struct {
	deps Dependencies
}

// NewExecInvoker returns an ExecInvoker backed by os/exec.
func NewExecInvoker() *ExecInvoker {
	return &ExecInvoker{deps: &StdlibDependencies{}}
}

// NewExecInvokerWithDependencies returns an ExecInvoker using deps.
func NewExecInvokerWithDependencies(deps Dependencies) *ExecInvoker {
	return &ExecInvoker{deps: deps}
}

// Run implements Invoker.
func (i *ExecInvoker) Run(ctx context.Context, cmd Command) Result {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr

	err := i.deps.CmdRun(c)
	if err == nil {
		return Result{Command: cmd}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Result{Command: cmd, ExitCode: exitErr.ExitCode()}
	}
	return Result{Command: cmd, ExitCode: -1, Err: err}
}

// RunChain runs cmds in order with shell "&&" semantics: it stops at the
// first command that does not succeed and returns its result. The result of
// the last command is returned when all succeed.
func RunChain(ctx context.Context, inv Invoker, cmds ...Command) Result {
	var res Result
	for _, cmd := range cmds {
		res = inv.Run(ctx, cmd)
		if !res.Success() {
			return res
		}
	}
	return res
}
