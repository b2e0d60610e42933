package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"uniqiita/internal/auth"
	transporthttp "uniqiita/internal/http"
	"uniqiita/internal/moderation"
	"uniqiita/internal/platform/metrics"
	"uniqiita/internal/tags"
	"uniqiita/internal/users"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API (default)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}

	stores, err := buildStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize repository", "error", err)
		return err
	}
	defer stores.Close()

	m := metrics.New()
	creds := newCredentialManager(cfg, logger)

	// A missing or broken credential leaves auth disabled; the server still starts.
	state := creds.Initialize(ctx, false)
	m.SetCredentialsReady(state.Ready)
	if !state.Ready {
		logger.Warn("identity provider not initialized; logins will be rejected", "reason", state.Reason)
	}

	userSvc := users.NewService(stores.Users)
	verifier := auth.NewFirebaseVerifier(ctx, cfg.Auth.ClockSkew, &http.Client{Timeout: 10 * time.Second})
	authn := auth.NewAuthenticator(creds, verifier, userSvc, auth.Options{
		Environment:   cfg.Environment,
		AdminEmails:   cfg.AdminEmails,
		VerifyTimeout: cfg.Auth.VerifyTimeout,
		Logger:        logger,
		Observer:      m,
	})
	modSvc := moderation.NewService(stores.Moderation, userSvc, moderation.NewFirebaseRevoker(creds), logger)

	router := transporthttp.NewRouter(transporthttp.Dependencies{
		Config:        cfg,
		Authenticator: authn,
		Tags:          tags.NewService(stores.Tags),
		Moderation:    modSvc,
		Credentials:   creds,
		Metrics:       m,
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("uniqiita API listening", "addr", srv.Addr, "store", cfg.DataStore, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serveErr:
		logger.Error("http server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		return err
	}
	return nil
}
