package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"docdigest/internal/config"
	"docdigest/internal/logger"
	"docdigest/internal/service"
)

type rootFlags struct {
	configPath string
	logLevel   string
	logJSON    bool
}

func RootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "docdigest",
		Short:         "Chunk, summarize and query long text documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to YAML config file (default ./config.yaml or ~/.config/docdigest/config.yaml)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&flags.logJSON, "log-json", false, "Log in JSON format")

	root.AddCommand(
		summarizeCmd(flags),
		browseCmd(flags),
		contextCmd(flags),
	)
	return root
}

// setup loads config, configures logging and builds the service.
func (f *rootFlags) setup(cmd *cobra.Command) (*config.AppConfig, *service.DigestService, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if f.configPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(f.configPath)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if cmd.Flags().Changed("log-json") {
		cfg.Log.JSON = f.logJSON
	}
	logger.SetupLogger(cfg.Log.Level, cfg.Log.JSON, false)
	log := logger.GetDefault()

	svc, err := service.Build(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, svc, nil
}
