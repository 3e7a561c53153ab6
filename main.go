// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/votedeck/cliparse"
	"github.com/danielhkuo/votedeck/contract"
	"github.com/danielhkuo/votedeck/dashboard"
	"github.com/danielhkuo/votedeck/db"
	"github.com/danielhkuo/votedeck/meta"
	"github.com/danielhkuo/votedeck/router"
	"github.com/danielhkuo/votedeck/telemetry"
	"github.com/danielhkuo/votedeck/wallet"
	"github.com/danielhkuo/votedeck/watch"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := cliparse.Load()
	if err != nil {
		slog.Error("Error loading configuration", "error", err)
		os.Exit(1)
	}

	rootCmd := newRootCmd(&cfg)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Flags are bound to cfg, whose current
// values (from the environment) become the flag defaults.
func newRootCmd(cfg *cliparse.Config) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *cfg)
		},
	}

	rootCmd := &cobra.Command{
		Use:          "votedeck",
		Short:        "Dashboard for an on-chain voting contract",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			slog.SetDefault(cfg.NewLogger(os.Stderr))
			return nil
		},
		RunE: serveCmd.RunE,
	}
	cliparse.RegisterFlags(rootCmd.PersistentFlags(), cfg)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newStatusCmd(cfg))
	rootCmd.AddCommand(newAccountsCmd(cfg))
	return rootCmd
}

func runServe(parent context.Context, cfg cliparse.Config) error {
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.ServiceName, cfg.OTelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("trace flush failed", "error", err)
		}
	}()

	// Activity store
	dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	if err := db.CreateSchema(dbConn); err != nil {
		return fmt.Errorf("schema creation failed: %w", err)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)
	store := db.NewStore(dbConn)

	catalog := meta.NewCatalog()
	if cfg.MetadataPath != "" {
		catalog, err = meta.LoadCatalog(cfg.MetadataPath)
		if err != nil {
			return err
		}
	}

	// Chain and wallet
	client, err := contract.Dial(ctx, cfg.RPCURL)
	if err != nil {
		return err
	}
	defer client.Close()

	// The wallet is dialled on first use and redialled until it answers
	provider := wallet.NewRedialer(cfg.WalletURL)
	defer provider.Close()

	voting := contract.New(cfg.Contract(), client, cfg.VotePrice())
	dash := dashboard.New(voting, provider, store, dashboard.Config{
		SecondaryManager: cfg.Secondary(),
		BalanceInterval:  cfg.BalanceInterval,
		AccountInterval:  cfg.AccountInterval,
		ReceiptTimeout:   cfg.ReceiptTimeout,
	})
	// A failed connect leaves its message on the page; POST /connect retries.
	_ = dash.Connect(ctx)

	watcher := watch.New(voting, client, store, watch.Config{PollInterval: cfg.PollInterval})

	server := &http.Server{
		Addr: ":" + strconv.Itoa(cfg.Port),
		Handler: router.NewRouter(router.Deps{
			Dashboard: dash,
			Catalog:   catalog,
			Activity:  store,
			Config:    cfg,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return watcher.Run(gctx, dash.HandleEvent)
	})
	g.Go(func() error {
		return dash.Run(gctx)
	})
	g.Go(func() error {
		return catalog.Watch(gctx)
	})
	g.Go(func() error {
		slog.Info("Listening", "port", cfg.Port, "contract", cfg.Contract().Hex())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	slog.Info("Server closed", "error", err)
	return err
}
