package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/jayteealao/ht/internal/orchestrator"
	"github.com/jayteealao/ht/internal/session"
	"github.com/jayteealao/ht/internal/streaming"
	"github.com/jayteealao/ht/internal/wire/alis"
)

func streamCmd(g *globalFlags) *cobra.Command {
	var (
		server         string
		installIDPath  string
		installIDValue string
		title          string
		visibility     string
		protocol       string
		captureInput   bool
		termType       string
		themeFG        string
		themeBG        string
	)

	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Stream the session live to an asciinema-compatible server",
		RunE: func(cmd *cobra.Command, args []string) error {
			g.shellCommand = args

			cfg := streaming.Config{
				ServerURL:     server,
				InstallID:     installIDValue,
				InstallIDPath: installIDPath,
				Title:         title,
				Visibility:    visibility,
				Protocol:      streaming.Protocol(protocol),
				CaptureInput:  captureInput,
				TermType:      termType,
			}
			if cfg.Protocol != streaming.ProtocolAlis && cfg.Protocol != streaming.ProtocolV3 {
				return fmt.Errorf("unknown --protocol %q, want alis or v3", protocol)
			}
			for _, c := range []string{themeFG, themeBG} {
				if _, err := alis.ParseColor(c); c != "" && err != nil {
					return fmt.Errorf("invalid theme color: %w", err)
				}
			}
			if themeFG != "" || themeBG != "" {
				cfg.Theme = &alis.Theme{FG: themeFG, BG: themeBG}
			}
			cfg.Watcher = startConfigWatcher(cmd.Context())
			streamer := streaming.New(cfg)

			task := func(ctx context.Context, wg *sync.WaitGroup) *orchestrator.Task {
				return startupTask(ctx, wg, func(ctx context.Context, recv *session.Receiver) error {
					return streamer.Run(ctx, recv)
				})
			}

			status, err := runApp(cmd.Context(), *g, task, captureInput, false)
			if err != nil {
				return err
			}
			os.Exit(status)
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "asciinema-compatible server URL")
	cmd.Flags().StringVar(&installIDPath, "install-id-path", "", "path to an install-id credential file")
	cmd.Flags().StringVar(&installIDValue, "install-id-value", "", "install-id credential value")
	cmd.Flags().StringVar(&title, "title", "", "stream title")
	cmd.Flags().StringVar(&visibility, "visibility", "", "public, unlisted, or private")
	cmd.Flags().StringVar(&protocol, "protocol", "alis", "alis or v3")
	cmd.Flags().BoolVar(&captureInput, "capture-input", false, "also stream input keystrokes")
	cmd.Flags().StringVar(&termType, "term-type", "", "TERM value to report to the server")
	cmd.Flags().StringVar(&themeFG, "theme-fg", "", "foreground color as #RRGGBB")
	cmd.Flags().StringVar(&themeBG, "theme-bg", "", "background color as #RRGGBB")
	cmd.MarkFlagRequired("server")

	return cmd
}
