// Package orchestrator implements the startup barrier: it guarantees a
// recorder or streamer is subscribed to the session before the PTY is
// spawned, so no PTY byte can ever escape unobserved. Grounded on
// original_source/src/main.rs's run_record_mode / run_stream_mode
// sequencing (clients_rx.recv().await → client.accept(...) →
// ready_rx.await → start_pty), translated to Go channels.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/jayteealao/ht/internal/pty"
	"github.com/jayteealao/ht/internal/session"
)

// Task is a background consumer (recorder or streamer) that the barrier
// must have subscribed before the PTY spawns.
type Task struct {
	// Clients is where the task sends its subscription request; the
	// barrier receives from it exactly once.
	Clients chan *session.Client

	// Ready is closed by the task once its read loop is primed and safe
	// to receive broadcast events without missing any.
	Ready chan struct{}

	// Done resolves with the task's terminal error, if any, once it has
	// finished running (e.g. the file is closed, the socket closed).
	Done chan error
}

// Barrier blocks until task has subscribed and signaled ready, then spawns
// the PTY and binds its pid to sess. It returns the running PTY or an
// error if spawning failed. Session creation happens in the caller before
// Barrier runs.
func Barrier(ctx context.Context, sess *session.Session, task *Task, shellCommand []string, cols, rows int, env []string) (*pty.PTY, error) {
	select {
	case client := <-task.Clients:
		sess.Accept(client)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case <-task.Ready:
	case err := <-task.Done:
		return nil, fmt.Errorf("recorder/streamer failed before ready: %w", err)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p, err := pty.Start(ctx, shellCommand, cols, rows, env)
	if err != nil {
		return nil, err
	}
	sess.SetPID(p.PID())
	return p, nil
}
