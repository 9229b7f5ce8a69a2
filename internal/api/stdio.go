package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jayteealao/ht/internal/eventloop"
	"github.com/jayteealao/ht/internal/logger"
	"github.com/jayteealao/ht/internal/session"
)

// stdioCommand is the newline-delimited JSON shape read from stdin.
type stdioCommand struct {
	Type  string   `json:"type"`
	Seqs  []string `json:"seqs,omitempty"`
	Cols  int      `json:"cols,omitempty"`
	Rows  int      `json:"rows,omitempty"`
	Label string   `json:"label,omitempty"`
}

// StdioAPI reads commands from stdin and, if configured, echoes
// subscribed event kinds to stdout.
type StdioAPI struct {
	in  io.Reader
	out io.Writer

	subscribe map[session.Kind]bool
	cursorKeyAppMode func() bool
}

// NewStdio creates a stdio API over in/out. subscribeKinds names the
// event kinds (e.g. "output", "exit") to echo to out as JSON lines; nil
// or empty disables event echo entirely.
func NewStdio(in io.Reader, out io.Writer, subscribeKinds []string, cursorKeyAppMode func() bool) *StdioAPI {
	a := &StdioAPI{in: in, out: out, cursorKeyAppMode: cursorKeyAppMode}
	if len(subscribeKinds) > 0 {
		a.subscribe = map[session.Kind]bool{}
		for _, name := range subscribeKinds {
			if k, ok := kindByName[name]; ok {
				a.subscribe[k] = true
			}
		}
	}
	return a
}

var kindByName = map[string]session.Kind{
	"init":     session.KindInit,
	"output":   session.KindOutput,
	"input":    session.KindInput,
	"resize":   session.KindResize,
	"marker":   session.KindMarker,
	"snapshot": session.KindSnapshot,
	"exit":     session.KindExit,
}

// RunCommands reads newline-delimited JSON commands from stdin and sends
// the translated Command on commands until EOF or ctx is cancelled.
func (a *StdioAPI) RunCommands(ctx context.Context, commands chan<- eventloop.Command) error {
	scanner := bufio.NewScanner(a.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var raw stdioCommand
		if err := json.Unmarshal(line, &raw); err != nil {
			logger.Warn("stdio api: malformed command", "error", err)
			continue
		}
		cmd, ok := a.translate(raw)
		if !ok {
			logger.Warn("stdio api: unknown command type", "type", raw.Type)
			continue
		}
		select {
		case commands <- cmd:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return scanner.Err()
}

func (a *StdioAPI) translate(raw stdioCommand) (eventloop.Command, bool) {
	switch raw.Type {
	case "input":
		appMode := false
		if a.cursorKeyAppMode != nil {
			appMode = a.cursorKeyAppMode()
		}
		return eventloop.Command{Kind: eventloop.CommandInput, Data: SeqsToBytes(raw.Seqs, appMode)}, true
	case "snapshot":
		return eventloop.Command{Kind: eventloop.CommandSnapshot}, true
	case "resize":
		return eventloop.Command{Kind: eventloop.CommandResize, Cols: raw.Cols, Rows: raw.Rows}, true
	case "marker":
		return eventloop.Command{Kind: eventloop.CommandMarker, Label: raw.Label}, true
	}
	return eventloop.Command{}, false
}

// RunEvents writes subscribed event kinds from recv to out as JSON lines
// until the receiver closes or ctx is cancelled. No-op if no kinds were
// configured for echo.
func (a *StdioAPI) RunEvents(ctx context.Context, recv *session.Receiver) error {
	if len(a.subscribe) == 0 {
		return nil
	}
	for {
		ev, err := recv.Recv(ctx)
		if err == session.ErrClosed || ctx.Err() != nil {
			return nil
		}
		if _, ok := err.(*session.ErrLagged); ok {
			continue
		}
		if err != nil {
			return err
		}
		if !a.subscribe[ev.Kind] {
			continue
		}
		line, err := json.Marshal(eventJSON{
			Kind: ev.Kind.String(),
			Time: ev.Time,
			Data: ev.Data,
			Cols: ev.Cols,
			Rows: ev.Rows,
			Label: ev.Label,
			Status: ev.Status,
		})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(a.out, string(line)); err != nil {
			return err
		}
	}
}

type eventJSON struct {
	Kind   string  `json:"kind"`
	Time   float64 `json:"time"`
	Data   string  `json:"data,omitempty"`
	Cols   int     `json:"cols,omitempty"`
	Rows   int     `json:"rows,omitempty"`
	Label  string  `json:"label,omitempty"`
	Status int32   `json:"status,omitempty"`
}
