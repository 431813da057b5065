package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pkt.systems/consolefold"
	"pkt.systems/consolefold/core"
	"pkt.systems/consolefold/internal/appconfig"
	"pkt.systems/consolefold/internal/eventbus"
	"pkt.systems/consolefold/internal/logx"
	"pkt.systems/consolefold/internal/tui"
	"pkt.systems/consolefold/schema"
	"pkt.systems/pslog"
)

func newWatchCmd() *cobra.Command {
	var (
		cfgPath string
		logFile string
	)
	cmd := &cobra.Command{
		Use:   "watch <file|url|->...",
		Short: "Watch folded consoles in the terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			// The viewer owns the terminal, so logs go to a file or nowhere.
			var logOut io.Writer = io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
				if err != nil {
					return err
				}
				defer f.Close()
				logOut = f
			}
			lvl, err := logx.ParseLevel(cfg.Logging.Level)
			if err != nil {
				return err
			}
			logger := pslog.NewWithOptions(logOut, pslog.Options{Mode: pslog.ModeConsole, NoColor: true, MinLevel: lvl})

			server, err := consolefold.New(consolefold.ServerConfig{Service: cfg.ServiceConfig()}, consolefold.ServerDeps{
				ServiceDeps: core.ServiceDeps{Logger: logger},
			})
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(pslog.ContextWithLogger(cmd.Context(), logger), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := server.Start(ctx); err != nil {
				return err
			}
			defer func() {
				if err := server.Stop(context.Background()); err != nil {
					logger.Warn("server stop failed", "err", err)
				}
			}()

			events, unsubscribe := server.Subscribe(eventbus.AllPanes)
			defer unsubscribe()
			for _, arg := range args {
				src, err := sourceFor(arg, cfg.Source)
				if err != nil {
					return err
				}
				if _, err := server.Attach(ctx, schema.CreatePaneRequest{Visible: boolPtr(false)}, src); err != nil {
					return err
				}
			}
			return tui.Run(ctx, tui.Options{Backend: server.Service(), Events: events})
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&logFile, "log-file", "", "append logs to this file while the viewer runs")
	return cmd
}

func boolPtr(v bool) *bool {
	return &v
}
