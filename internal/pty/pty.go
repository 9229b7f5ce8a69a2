// Package pty spawns the child shell inside a pseudo-terminal and
// exposes its output as a channel, accepts input writes, and resolves to
// an exit status when the child terminates. Grounded on wingthing's
// internal/egg/server.go PTY spawn (pty.StartWithSize, cmd.Cancel,
// cmd.WaitDelay, readPTY), stripped of its sandbox/session-directory
// machinery since this module has none.
package pty

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/creack/pty"
)

const readBufSize = 4096

// PTY is a running child process attached to a pseudo-terminal.
type PTY struct {
	cmd  *exec.Cmd
	ptmx *os.File

	Output chan []byte // closed when the read loop sees EOF
	Exit   chan int    // exit status, sent exactly once

	pid int
}

// Start spawns shellCommand (argv[0] plus args) inside a PTY sized
// cols x rows and begins reading its output in the background.
func Start(ctx context.Context, shellCommand []string, cols, rows int, env []string) (*PTY, error) {
	if len(shellCommand) == 0 {
		return nil, fmt.Errorf("start pty: empty command")
	}

	cmd := exec.CommandContext(ctx, shellCommand[0], shellCommand[1:]...)
	if env != nil {
		cmd.Env = env
	}

	// Graceful termination: SIGTERM then a bounded wait before the
	// runtime escalates, matching wingthing's egg/server.go pattern.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = 5 * time.Second

	size := &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)}
	ptmx, err := pty.StartWithSize(cmd, size)
	if err != nil {
		return nil, fmt.Errorf("start pty: %w", err)
	}

	p := &PTY{
		cmd:    cmd,
		ptmx:   ptmx,
		Output: make(chan []byte, 256),
		Exit:   make(chan int, 1),
		pid:    cmd.Process.Pid,
	}

	go p.readLoop()
	go p.waitLoop()

	return p, nil
}

// PID returns the spawned child's process id.
func (p *PTY) PID() int {
	return p.pid
}

// Write sends input bytes to the child.
func (p *PTY) Write(data []byte) error {
	_, err := p.ptmx.Write(data)
	return err
}

// Resize changes the PTY window size.
func (p *PTY) Resize(cols, rows int) error {
	return pty.Setsize(p.ptmx, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)})
}

func (p *PTY) readLoop() {
	defer close(p.Output)
	buf := make([]byte, readBufSize)
	for {
		n, err := p.ptmx.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			p.Output <- chunk
		}
		if err != nil {
			return
		}
	}
}

func (p *PTY) waitLoop() {
	err := p.cmd.Wait()
	p.ptmx.Close()
	status := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			status = exitErr.ExitCode()
		} else {
			// A Wait error that carries no exit status maps to exit 1.
			// (A child killed by a signal is an *exec.ExitError above and
			// reports -1.)
			status = 1
		}
	}
	p.Exit <- status
	close(p.Exit)
}
