package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/consolefold"
	"pkt.systems/consolefold/core"
	"pkt.systems/consolefold/internal/appconfig"
	"pkt.systems/consolefold/schema"
	"pkt.systems/pslog"
)

func newServeCmd() *cobra.Command {
	var (
		cfgPath string
		addr    string
		polls   []string
		tails   []string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve folded consoles over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTP.Addr = addr
			}
			logger, err := levelLogger(cmd.Context(), cfg.Logging.Level, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx := pslog.ContextWithLogger(cmd.Context(), logger)

			serverCfg := consolefold.ServerConfig{
				Service:    cfg.ServiceConfig(),
				HTTP:       toHTTPConfig(cfg.HTTP),
				HubHistory: cfg.HTTP.ReplayEvents,
			}
			server, err := consolefold.New(serverCfg, consolefold.ServerDeps{
				ServiceDeps: core.ServiceDeps{Logger: logger},
			}, consolefold.WithHTTP())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Stop(stopCtx); err != nil {
					logger.Warn("server stop failed", "err", err)
				}
			}()
			logger.Info("http server listening", "addr", serverCfg.HTTP.Addr)
			if err := server.Start(ctx); err != nil {
				return err
			}
			if err := attachSources(ctx, server, cfg.Source, append(polls, tails...)); err != nil {
				_ = server.Stop(context.Background())
				return err
			}
			return server.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http.addr)")
	cmd.Flags().StringArrayVar(&polls, "poll", nil, "poll a console URL into a new pane (repeatable)")
	cmd.Flags().StringArrayVar(&tails, "tail", nil, "tail a log file into a new pane (repeatable)")
	return cmd
}

// attachSources opens one pane per source argument.
func attachSources(ctx context.Context, server consolefold.Server, cfg appconfig.SourceConfig, args []string) error {
	for _, arg := range args {
		src, err := sourceFor(arg, cfg)
		if err != nil {
			return err
		}
		if _, err := server.Attach(ctx, schema.CreatePaneRequest{}, src); err != nil {
			return err
		}
	}
	return nil
}
