package main

import (
	"context"
	"os"

	"github.com/jayteealao/ht/internal/eventloop"
)

const stdinReadBufSize = 4096

// pumpStdin reads raw keystrokes from the controlling terminal and feeds
// them to the event loop as Input commands, so the normal (no-subcommand)
// mode's actual PTY write happens in exactly one place
// (eventloop.handleCommand), matching record/stream mode's input path
// instead of writing to the PTY twice.
func pumpStdin(ctx context.Context, commands chan<- eventloop.Command) {
	buf := make([]byte, stdinReadBufSize)
	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case commands <- eventloop.Command{Kind: eventloop.CommandInput, Data: string(data)}:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			return
		}
	}
}
