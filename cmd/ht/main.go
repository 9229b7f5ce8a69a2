// Command ht is a headless terminal host: it spawns a shell inside a
// PTY, tracks its screen state, and fans out every byte to a recorder,
// a live streamer, or direct terminal passthrough, all from the same
// session bus. Grounded on original_source/src/main.rs's three run
// modes, with the cobra command structure borrowed from wingthing's
// cmd/wt.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jayteealao/ht/internal/config"
	"github.com/jayteealao/ht/internal/logger"
)

func main() {
	var g globalFlags
	var logLevel string
	var logFile string

	root := &cobra.Command{
		Use:   "ht [flags] [-- shell_command...]",
		Short: "ht — headless terminal host",
		Long:  "Spawns a shell inside a PTY and records, streams, or passes through its session.",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.Init(logLevel, logFile); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			g.shellCommand = args

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
			go func() {
				<-sigCh
				cancel()
			}()

			status, err := runNormal(ctx, g)
			if err != nil {
				return err
			}
			os.Exit(status)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&g.size, "size", "120x40", "terminal size as COLSxROWS")
	root.PersistentFlags().StringVar(&g.listen, "listen", "", "address for the HTTP control API, e.g. :8080")
	root.PersistentFlags().StringVar(&g.subscribe, "subscribe", "", "comma-separated event kinds to echo on stdout")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn, or error")
	root.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file")

	root.AddCommand(recordCmd(&g), streamCmd(&g))

	if dir, err := config.UserConfigDir(); err == nil {
		defaultsPath := dir + "/config.yaml"
		if cfg, err := config.Load(defaultsPath); err == nil {
			applyConfigDefaults(root, cfg)
		}
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// applyConfigDefaults overrides a flag's default with the value from
// ~/.config/ht/config.yaml, for any flag the user has not already set on
// the command line. cobra parses flags before RunE runs, so defaults
// must be patched onto the flag objects beforehand.
func applyConfigDefaults(root *cobra.Command, cfg *config.Config) {
	set := func(name, value string) {
		if value == "" {
			return
		}
		if f := root.PersistentFlags().Lookup(name); f != nil {
			f.DefValue = value
			f.Value.Set(value)
		}
	}
	set("size", cfg.Size)
}
