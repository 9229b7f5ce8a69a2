package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/jayteealao/ht/internal/api"
	"github.com/jayteealao/ht/internal/config"
	"github.com/jayteealao/ht/internal/eventloop"
	"github.com/jayteealao/ht/internal/locale"
	"github.com/jayteealao/ht/internal/logger"
	"github.com/jayteealao/ht/internal/orchestrator"
	"github.com/jayteealao/ht/internal/session"
	"github.com/jayteealao/ht/internal/vterm"
)

// globalFlags holds the flags shared by the root command and every
// subcommand.
type globalFlags struct {
	size         string
	listen       string
	subscribe    string
	shellCommand []string
}

func (g globalFlags) parsedSubscribe() []string {
	if g.subscribe == "" {
		return nil
	}
	return strings.Split(g.subscribe, ",")
}

func (g globalFlags) command() []string {
	if len(g.shellCommand) == 0 {
		return []string{"bash"}
	}
	return g.shellCommand
}

func parseSize(s string) (cols, rows int, err error) {
	parts := strings.SplitN(s, "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid --size %q, want COLSxROWS", s)
	}
	cols, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid --size %q: %w", s, err)
	}
	rows, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid --size %q: %w", s, err)
	}
	return cols, rows, nil
}

// backgroundTask is what a recorder or streamer runs as, reported back
// through orchestrator.Task.
type backgroundTask func(ctx context.Context, recv *session.Receiver) error

// startupTask wires fn into an orchestrator.Task: fn starts running only
// once Barrier has handed it a subscribed Receiver, and its terminal
// error (if any) arrives on the Task's Done channel.
func startupTask(ctx context.Context, wg *sync.WaitGroup, fn backgroundTask) *orchestrator.Task {
	task := &orchestrator.Task{
		Clients: make(chan *session.Client, 1),
		Ready:   make(chan struct{}),
		Done:    make(chan error, 1),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		c := session.NewClient()
		task.Clients <- c
		recv := c.Wait()
		close(task.Ready)
		if fn == nil {
			return
		}
		task.Done <- fn(ctx, recv)
	}()
	return task
}

// subscribeLate completes a subscription handshake against the event
// loop's already-running clients channel, for consumers that attach
// after the PTY has started (HTTP /events, stdio --subscribe echo).
func subscribeLate(clients chan<- *session.Client) func() *session.Receiver {
	return func() *session.Receiver {
		c := session.NewClient()
		clients <- c
		return c.Wait()
	}
}

// runApp drives one full ht invocation end to end: locale check, session
// and PTY startup, control-API wiring, the main event loop, and the
// final process exit status.
func runApp(ctx context.Context, g globalFlags, task func(ctx context.Context, wg *sync.WaitGroup) *orchestrator.Task, captureInput bool, interactive bool) (int, error) {
	if err := locale.CheckUTF8(); err != nil {
		return 1, fmt.Errorf("locale check failed: %w", err)
	}

	cols, rows, err := parseSize(g.size)
	if err != nil {
		return 1, err
	}

	emulator := vterm.New(cols, rows)
	sess := session.New(cols, rows, emulator)

	var wg sync.WaitGroup
	t := task(ctx, &wg)

	p, err := orchestrator.Barrier(ctx, sess, t, g.command(), cols, rows, os.Environ())
	if err != nil {
		return 1, fmt.Errorf("start pty: %w", err)
	}

	commands := make(chan eventloop.Command, 64)
	clients := make(chan *session.Client, 8)

	var httpSrv *http.Server
	if g.listen != "" {
		auth, err := api.NewTokenAuth()
		if err != nil {
			return 1, fmt.Errorf("create control api token: %w", err)
		}
		fmt.Fprintf(os.Stderr, "control api token: %s\n", auth.Token())
		httpAPI := api.NewHTTP(auth, commands, subscribeLate(clients), sess.CursorKeyAppMode)
		httpSrv = &http.Server{Addr: g.listen, Handler: httpAPI.Handler()}
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("control api server failed", "error", err)
			}
		}()
		defer httpSrv.Close()
	}

	if !interactive {
		stdioAPI := api.NewStdio(os.Stdin, os.Stdout, g.parsedSubscribe(), sess.CursorKeyAppMode)
		go func() {
			if err := stdioAPI.RunCommands(ctx, commands); err != nil {
				logger.Warn("stdio command reader ended", "error", err)
			}
		}()
		if len(g.parsedSubscribe()) > 0 {
			go func() {
				recv := subscribeLate(clients)()
				if err := stdioAPI.RunEvents(ctx, recv); err != nil {
					logger.Warn("stdio event writer ended", "error", err)
				}
			}()
		}
	}

	var echo io.Writer
	if interactive {
		echo = os.Stdout
		go pumpStdin(ctx, commands)
	}

	exitStatus := eventloop.Run(ctx, sess, p, commands, clients, eventloop.Config{
		CaptureInput: captureInput,
		Echo:         echo,
	})

	wg.Wait()
	return exitStatus, nil
}

// startConfigWatcher begins watching ~/.config/ht/config.yaml for
// changes and returns the live snapshot. The recorder and streamer read
// its title/theme when the recording header or stream Init is produced,
// not on later events. Returns nil
// if the user config directory can't be prepared or watched — hot-reload
// is a convenience, not something worth failing startup over.
func startConfigWatcher(ctx context.Context) *config.Watcher {
	dir, err := config.UserConfigDir()
	if err != nil {
		return nil
	}
	if err := config.EnsureUserConfigDir(dir); err != nil {
		logger.Warn("config watcher unavailable", "error", err)
		return nil
	}
	w, err := config.NewWatcher(filepath.Join(dir, "config.yaml"))
	if err != nil {
		logger.Warn("config watcher unavailable", "error", err)
		return nil
	}
	go w.Run(ctx)
	return w
}
