package command

import (
	"context"
	"sync"
)

// Recorder is an Invoker that records every command instead of running it.
// Exit codes are taken from Script in order; once Script is exhausted every
// command succeeds.
type Recorder struct {
	mu     sync.Mutex
	Calls  []Command
	Script []Result

	// Before, when set, is invoked for each command before its result is
	// decided. Tests use it to inspect files or drop a log in place.
	Before func(cmd Command)
}

// Run implements Invoker.
func (r *Recorder) Run(ctx context.Context, cmd Command) Result {
	if r.Before != nil {
		r.Before(cmd)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, cmd)
	if len(r.Script) == 0 {
		return Result{Command: cmd}
	}
	res := r.Script[0]
	r.Script = r.Script[1:]
	res.Command = cmd
	return res
}
