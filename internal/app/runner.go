// Package app wires the configuration, clients and bot together behind a
// small cobra command surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/voidexchange/walletbot/internal/auth"
	"github.com/voidexchange/walletbot/internal/bot"
	"github.com/voidexchange/walletbot/internal/config"
	"github.com/voidexchange/walletbot/internal/dex"
	boterr "github.com/voidexchange/walletbot/internal/errors"
	"github.com/voidexchange/walletbot/internal/httpx"
	"github.com/voidexchange/walletbot/internal/metacache"
	"github.com/voidexchange/walletbot/internal/risk"
	"github.com/voidexchange/walletbot/internal/version"
	"github.com/voidexchange/walletbot/internal/wallet"
)

type Runner struct {
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
}

func NewRunner(logger *slog.Logger) *Runner {
	return NewRunnerWithWriters(os.Stdout, os.Stderr, logger)
}

func NewRunnerWithWriters(stdout, stderr io.Writer, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{stdout: stdout, stderr: stderr, logger: logger}
}

func (r *Runner) Run(args []string) int {
	root := r.newRootCommand()
	root.SetArgs(args)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true

	if err := root.Execute(); err != nil {
		fmt.Fprintf(r.stderr, "error: %v\n", err)
		return boterr.ExitCode(err)
	}
	return 0
}

func (r *Runner) newRootCommand() *cobra.Command {
	var flags config.GlobalFlags

	cmd := &cobra.Command{
		Use:   version.CLIName,
		Short: "Telegram bot for a custodial MPC wallet",
	}
	cmd.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to the yaml config file")
	cmd.PersistentFlags().StringVar(&flags.Timeout, "timeout", "", "HTTP timeout, e.g. 10s")
	cmd.PersistentFlags().IntVar(&flags.Retries, "retries", -1, "HTTP retry count")
	cmd.PersistentFlags().StringVar(&flags.DataDir, "data-dir", "", "directory for the device keypair")
	cmd.PersistentFlags().BoolVar(&flags.NoCache, "no-cache", false, "disable the token-metadata cache")

	cmd.AddCommand(r.newRunCommand(&flags))
	cmd.AddCommand(newVersionCommand())
	return cmd
}

func (r *Runner) newRunCommand(flags *config.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot and poll for updates until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(*flags)
			if err != nil {
				return boterr.Wrap(boterr.CodeUsage, "load configuration", err)
			}
			if err := settings.Validate(); err != nil {
				return boterr.Wrap(boterr.CodeUsage, "invalid configuration", err)
			}
			return r.runBot(settings)
		},
	}
}

func (r *Runner) runBot(settings config.Settings) error {
	// The wallet backend gets its own HTTP client so the bearer token
	// installed after authentication never reaches the DEX or the risk
	// service.
	backendClient := httpx.New(settings.Timeout, settings.Retries)
	publicClient := httpx.New(settings.Timeout, settings.Retries)

	walletClient := wallet.New(backendClient, settings.APIBaseURL)

	var meta *metacache.Store
	if settings.CacheEnabled {
		store, err := metacache.Open(settings.CachePath, settings.CacheLockPath)
		if err != nil {
			r.logger.Warn("metadata cache unavailable, continuing without it", "error", err)
		} else {
			meta = store
			defer func() { _ = meta.Close() }()
		}
	}

	dexClient := dex.New(publicClient, settings.SwapBaseURL, settings.TokenBaseURL, meta)
	dexClient.SetMetadataTTL(settings.MetadataTTL)
	riskClient := risk.New(publicClient, settings.RiskBaseURL)

	coordinator := auth.NewCoordinator(walletClient, backendClient, auth.Options{
		DataDir:         settings.DataDir,
		PollInterval:    settings.AuthPollInterval,
		PollTimeout:     settings.AuthPollTimeout,
		SessionDuration: settings.SessionDuration,
		Logger:          r.logger,
	})

	tg, err := bot.NewTelegram(settings.TelegramToken, r.logger)
	if err != nil {
		return err
	}
	b := bot.New(tg, walletClient, coordinator, dexClient, riskClient, bot.Options{Logger: r.logger})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("bot starting", "version", version.CLIVersion)
	if err := tg.Run(ctx, b); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	r.logger.Info("bot stopped")
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Long())
		},
	}
}
