package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	videoscout "video-scout/agents/video-scout"
	"video-scout/internal/apperr"
	"video-scout/shared/config"
	"video-scout/shared/logging"
	"video-scout/shared/scheduler"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	configPath      string
	maxResults      int
	filterThreshold int
	logLevel        string
	outputDir       string
	schedule        string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "video-scout [topics...]",
		Short:        "Find, score and report YouTube videos per topic",
		Long:         "video-scout searches YouTube for each topic, optionally scores every result with a language model, and writes the surviving videos as a Markdown report per topic.",
		Version:      version,
		SilenceUsage: true,
		RunE:         run,
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "Path to config file (default $CONFIG_FILE or ./config.yaml)")
	flags.IntVarP(&maxResults, "max-results", "n", 10, "Maximum videos per topic")
	flags.IntVarP(&filterThreshold, "filter-threshold", "t", 0, "Minimum score 0-10; setting it enables scoring (config file default 7)")
	flags.StringVarP(&logLevel, "log-level", "l", "info", "Log level: debug, info, warn, error")
	flags.StringVarP(&outputDir, "output-dir", "o", "outputs", "Directory for reports")
	flags.StringVar(&schedule, "schedule", "", "Cron expression; run repeatedly instead of once")
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	// Config loading logs at the flag's level; the merged config may change it.
	if err := logging.Setup(logLevel); err != nil {
		return apperr.NewConfigWrap("--log-level", err)
	}

	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := logging.Setup(cfg.LogLevel); err != nil {
		return apperr.NewConfigWrap("log_level", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	agent := videoscout.New(cfg)
	if err := agent.Initialize(); err != nil {
		return err
	}
	s := scheduler.New(cfg, agent)

	if cfg.Schedule != "" {
		if err := s.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	slog.Debug("running once", "topics", cfg.Topics)
	return s.RunOnce(ctx)
}

func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	base, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	overrides := config.Overrides{Topics: args}
	flags := cmd.Flags()
	if flags.Changed("max-results") {
		overrides.MaxResults = &maxResults
	}
	if flags.Changed("filter-threshold") {
		overrides.FilterThreshold = &filterThreshold
	}
	if flags.Changed("output-dir") {
		overrides.OutputDir = &outputDir
	}
	if flags.Changed("log-level") {
		overrides.LogLevel = &logLevel
	}
	if flags.Changed("schedule") {
		overrides.Schedule = &schedule
	}

	cfg := base.Apply(overrides)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
