// Package main is the entry point for the research CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sweetpotato0/ai-research/config"
	"github.com/sweetpotato0/ai-research/pkg/logging"
	"github.com/sweetpotato0/ai-research/pkg/telemetry"
)

// version is set at build time via ldflags.
var version = "dev"

// app holds what PersistentPreRunE prepares for the subcommands.
type app struct {
	v        *viper.Viper
	cfg      config.Config
	shutdown func(context.Context) error
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	config.Bind(a.v)

	root := &cobra.Command{
		Use:   "research",
		Short: "Turn a question into a sourced research report",
		Long: `research transforms a query into a research task, plans search angles,
checks the plan against the original intent, then either searches the web and
synthesizes a cited report or answers directly from model knowledge.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if a.shutdown == nil {
				return nil
			}
			return a.shutdown(context.WithoutCancel(cmd.Context()))
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default: ./research.yaml or ~/.config/research/research.yaml)")
	flags.String("env-file", ".env", "dotenv file loaded before configuration")
	flags.String("provider", "", "reasoning provider: openai, claude or gemini")
	flags.String("sink", "", "comma-separated report sinks: none, file, mongo, postgres")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	_ = a.v.BindPFlag("llm.provider", flags.Lookup("provider"))
	_ = a.v.BindPFlag("output.sink", flags.Lookup("sink"))
	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))

	root.AddCommand(newRunCmd(a), newBatchCmd(a), newMCPCmd(a))
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}
	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	// stdout carries reports and MCP frames, so logs always go to stderr.
	logging.Configure(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	shutdown, err := telemetry.Init(cmd.Context(), telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Disable:        !cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		Writer:         os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	a.shutdown = shutdown
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
