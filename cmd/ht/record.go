package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jayteealao/ht/internal/orchestrator"
	"github.com/jayteealao/ht/internal/recording"
	"github.com/jayteealao/ht/internal/session"
	"github.com/jayteealao/ht/internal/wire/alis"
	"github.com/jayteealao/ht/internal/wire/asciicast"
)

func recordCmd(g *globalFlags) *cobra.Command {
	var (
		out           string
		appendMode    bool
		idleTimeLimit float64
		title         string
		captureInput  bool
		termType      string
		themeFG       string
		themeBG       string
		captureEnv    string
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record the session to an asciicast v3 file",
		RunE: func(cmd *cobra.Command, args []string) error {
			g.shellCommand = args

			cfg := recording.Config{
				OutputPath:   out,
				Append:       appendMode,
				Title:        title,
				Command:      strings.Join(g.command(), " "),
				CaptureInput: captureInput,
				TermType:     termType,
			}
			if cmd.Flags().Changed("idle-time-limit") {
				cfg.IdleTimeLimit = &idleTimeLimit
			}
			if captureEnv != "" {
				cfg.CaptureEnv = strings.Split(captureEnv, ",")
			}
			for _, c := range []string{themeFG, themeBG} {
				if _, err := alis.ParseColor(c); c != "" && err != nil {
					return fmt.Errorf("invalid theme color: %w", err)
				}
			}
			if themeFG != "" || themeBG != "" {
				cfg.Theme = &asciicast.Theme{FG: themeFG, BG: themeBG}
			}
			cfg.Watcher = startConfigWatcher(cmd.Context())

			rec, err := recording.New(cfg)
			if err != nil {
				return fmt.Errorf("open recording: %w", err)
			}

			task := func(ctx context.Context, wg *sync.WaitGroup) *orchestrator.Task {
				return startupTask(ctx, wg, func(ctx context.Context, recv *session.Receiver) error {
					return rec.Run(ctx, recv)
				})
			}

			status, err := runApp(cmd.Context(), *g, task, captureInput, false)
			if fi, statErr := os.Stat(out); statErr == nil {
				fmt.Fprintf(os.Stderr, "wrote %s (%s)\n", out, humanize.Bytes(uint64(fi.Size())))
			}
			if err != nil {
				return err
			}
			os.Exit(status)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "output file path")
	cmd.Flags().BoolVar(&appendMode, "append", false, "append to an existing recording")
	cmd.Flags().Float64Var(&idleTimeLimit, "idle-time-limit", 0, "clamp idle gaps to this many seconds")
	cmd.Flags().StringVar(&title, "title", "", "recording title")
	cmd.Flags().BoolVar(&captureInput, "capture-input", false, "also record input keystrokes")
	cmd.Flags().StringVar(&termType, "term-type", "", "TERM value to record in the header")
	cmd.Flags().StringVar(&themeFG, "theme-fg", "", "foreground color as #RRGGBB")
	cmd.Flags().StringVar(&themeBG, "theme-bg", "", "background color as #RRGGBB")
	cmd.Flags().StringVar(&captureEnv, "capture-env", "", "comma-separated environment variable names to record")
	cmd.MarkFlagRequired("out")

	return cmd
}
