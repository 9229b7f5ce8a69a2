// Package eventloop runs the main select loop that drives a session: PTY
// output becomes Output events, API commands become Input/Resize/
// Marker/Snapshot events, late subscription requests are accepted, and a
// PTY exit becomes the session's Exit event. Translated from
// original_source/src/main.rs's run_event_loop, whose tokio::select!
// becomes a Go select over four sources: PTY output, API commands,
// subscription requests, and PTY exit.
package eventloop

import (
	"context"
	"io"
	"time"

	"github.com/jayteealao/ht/internal/logger"
	"github.com/jayteealao/ht/internal/pty"
	"github.com/jayteealao/ht/internal/session"
)

// ExitGrace is the best-effort pause after the loop ends, giving
// background encoder tasks a chance to flush in-flight events.
const ExitGrace = 100 * time.Millisecond

// Config selects event-loop behavior gated by CLI flags.
type Config struct {
	CaptureInput bool

	// Echo, when non-nil, additionally receives a raw copy of every PTY
	// output chunk. Used by interactive (no-subcommand) mode to put bytes
	// on the controlling terminal; left nil for record/stream modes,
	// where the session bus's own subscribers are the only consumers.
	Echo io.Writer
}

// Run drives sess until the PTY exits or ctx is cancelled, accepting late
// subscribers on clients until that channel is closed (a nil clients
// channel accepts none). It returns the process exit status.
func Run(ctx context.Context, sess *session.Session, p *pty.PTY, commands <-chan Command, clients <-chan *session.Client, cfg Config) int {
	serving := clients != nil
	exitStatus := 0

	for {
		select {
		case data, ok := <-p.Output:
			if !ok {
				// PTY output channel closes once the read loop sees EOF;
				// the definitive exit status arrives on p.Exit.
				p.Output = nil
				continue
			}
			if cfg.Echo != nil {
				cfg.Echo.Write(data)
			}
			sess.Output(string(data))

		case cmd, ok := <-commands:
			if !ok {
				logger.Info("stdin closed, ending session")
				return finish(sess, p, exitStatus)
			}
			handleCommand(sess, p, cfg, cmd)

		case client, ok := <-clientsOrNil(clients, serving):
			if !ok {
				serving = false
				continue
			}
			sess.Accept(client)

		case status := <-p.Exit:
			exitStatus = status
			sess.Exit(int32(status))
			time.Sleep(ExitGrace)
			return exitStatus
		}
	}
}

// clientsOrNil returns clients while serving is true, else a nil channel
// (which blocks forever in a select), matching the Rust loop's
// `clients_rx.recv(), if serving` guarded branch.
func clientsOrNil(clients <-chan *session.Client, serving bool) <-chan *session.Client {
	if !serving {
		return nil
	}
	return clients
}

func handleCommand(sess *session.Session, p *pty.PTY, cfg Config, cmd Command) {
	switch cmd.Kind {
	case CommandInput:
		if cfg.CaptureInput {
			sess.Input(cmd.Data)
		}
		if err := p.Write([]byte(cmd.Data)); err != nil {
			logger.Warn("write to pty failed", "error", err)
		}
	case CommandSnapshot:
		sess.Snapshot()
	case CommandResize:
		sess.Resize(cmd.Cols, cmd.Rows)
		if err := p.Resize(cmd.Cols, cmd.Rows); err != nil {
			logger.Warn("resize pty failed", "error", err)
		}
	case CommandMarker:
		sess.Marker(cmd.Label)
	}
}

func finish(sess *session.Session, p *pty.PTY, exitStatus int) int {
	select {
	case status := <-p.Exit:
		exitStatus = status
	default:
		exitStatus = 1
	}
	sess.Exit(int32(exitStatus))
	time.Sleep(ExitGrace)
	return exitStatus
}
