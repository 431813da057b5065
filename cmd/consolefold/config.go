package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"pkt.systems/consolefold/httpapi"
	"pkt.systems/consolefold/internal/appconfig"
	"pkt.systems/consolefold/internal/logsource"
	"pkt.systems/pslog"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the consolefold configuration file",
	}
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var cfgPath string
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := appconfig.WriteDefault(cfgPath, overwrite)
			if err != nil {
				return err
			}
			pslog.Ctx(cmd.Context()).Info("config wrote", "path", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&overwrite, "force", false, "overwrite an existing config")
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	return cmd
}

func toHTTPConfig(cfg appconfig.HTTPConfig) httpapi.Config {
	return httpapi.Config{
		Addr:           cfg.Addr,
		BaseURL:        cfg.BaseURL,
		BasePath:       cfg.BasePath,
		ReplayEvents:   cfg.ReplayEvents,
		CompleteHeader: cfg.CompleteHeader,
		StartParam:     cfg.StartParam,
	}
}

func toPollerConfig(url string, cfg appconfig.SourceConfig) logsource.PollerConfig {
	return logsource.PollerConfig{
		URL:            url,
		StartParam:     cfg.StartParam,
		CompleteHeader: cfg.CompleteHeader,
		Interval:       millis(cfg.PollIntervalMS),
		Timeout:        seconds(cfg.TimeoutSeconds),
		MaxRetries:     uint64(max(cfg.MaxRetries, 0)),
		RetryBase:      millis(cfg.RetryBaseMS),
		Headers:        cfg.Headers,
	}
}

func toTailConfig(path string, cfg appconfig.SourceConfig) logsource.TailConfig {
	return logsource.TailConfig{
		Path:       path,
		Follow:     cfg.Follow && path != "-",
		BatchLines: cfg.BatchLines,
	}
}
