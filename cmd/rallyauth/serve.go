package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"git.sr.ht/~jakintosh/rallyauth/internal/api"
	"git.sr.ht/~jakintosh/rallyauth/internal/config"
	"git.sr.ht/~jakintosh/rallyauth/internal/identity"
	"git.sr.ht/~jakintosh/rallyauth/internal/metrics"
	"git.sr.ht/~jakintosh/rallyauth/internal/service"
	"git.sr.ht/~jakintosh/rallyauth/pkg/tokens"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
	certsFetchTimeout = 10 * time.Second
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting rallyauth", "version", version, "config", cfg)

	tokenConfig, err := cfg.TokenConfig()
	if err != nil {
		return err
	}
	issuer, verifier, err := tokens.InitServer(tokenConfig)
	if err != nil {
		return err
	}

	keys, closeKeys, err := openKeySource(cfg, logger)
	if err != nil {
		return err
	}
	defer closeKeys()

	identities, err := identity.NewFirebaseVerifier(identity.FirebaseConfig{
		ProjectID: cfg.FirebaseProjectID,
		Keys:      keys,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	svc := service.New(store, identities, issuer, verifier, collector, logger)
	a := api.New(svc, api.Options{
		Prefix:         cfg.APIPrefix,
		RateLimit:      cfg.RateLimitRequests,
		RateWindow:     cfg.RateLimitWindow,
		RequestTimeout: cfg.RequestTimeout,
		Environment:    cfg.Environment,
		Metrics:        collector,
		Gatherer:       registry,
		Logger:         logger,
	})
	defer a.Close()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           a.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// openKeySource prefers a watched certificate directory over Google's
// endpoint, for offline and test deployments.
func openKeySource(cfg *config.Config, logger *slog.Logger) (identity.KeySource, func(), error) {
	if cfg.FirebaseCertsDir != "" {
		dir, err := identity.NewDirKeySource(cfg.FirebaseCertsDir, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := dir.Watch(); err != nil {
			dir.Close()
			return nil, nil, err
		}
		return dir, func() { dir.Close() }, nil
	}

	client := &http.Client{Timeout: certsFetchTimeout}
	remote := identity.NewRemoteKeySource(cfg.FirebaseCertsURL, client, logger)
	return remote, func() {}, nil
}
