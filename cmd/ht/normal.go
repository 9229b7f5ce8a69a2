package main

import (
	"context"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/jayteealao/ht/internal/orchestrator"
)

// runNormal implements the no-subcommand interactive mode: the PTY is
// spawned, the controlling terminal is put into raw mode, and bytes
// shuttle directly between stdin/stdout and the PTY while the session
// bus still runs underneath for any --listen observers. The stdio API is
// not started in this mode, so --subscribe echoes nothing.
func runNormal(ctx context.Context, g globalFlags) (int, error) {
	var oldState *term.State
	if isatty.IsTerminal(os.Stdin.Fd()) {
		var err error
		oldState, err = term.MakeRaw(int(os.Stdin.Fd()))
		if err == nil {
			defer term.Restore(int(os.Stdin.Fd()), oldState)
		}
	}

	noopTask := func(ctx context.Context, wg *sync.WaitGroup) *orchestrator.Task {
		return startupTask(ctx, wg, nil)
	}

	return runApp(ctx, g, noopTask, false, true)
}
