// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/goalwriter/internal/auth"
	"github.com/pdiddy/goalwriter/internal/clock"
	"github.com/pdiddy/goalwriter/internal/critic"
	"github.com/pdiddy/goalwriter/internal/events"
	"github.com/pdiddy/goalwriter/internal/server"
	"github.com/pdiddy/goalwriter/internal/session"
	"github.com/pdiddy/goalwriter/internal/store"
	"github.com/pdiddy/goalwriter/pkg/types"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve starts the JSON API and websocket notifications used by the
editor. Documents are stored in SQLite by default, or in Redis with
--store redis. Interaction events are written to SQLite.

Clients sign in with POST /auth/anonymous or POST /auth/token and send the
returned token as a bearer token.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	serveCmd.Flags().String("store", "", "document store: sqlite or redis")
	serveCmd.Flags().String("db", "", "SQLite database path (default goalwriter.db)")
	serveCmd.Flags().String("backend", "", "critic backend: gemini or claude")
	serveCmd.Flags().String("model", "", "model identifier for the critic backend")
	serveCmd.Flags().Bool("release", false, "run gin in release mode")

	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("persistence.driver", serveCmd.Flags().Lookup("store"))
	_ = viper.BindPFlag("persistence.sqlite_path", serveCmd.Flags().Lookup("db"))
	_ = viper.BindPFlag("critic.backend", serveCmd.Flags().Lookup("backend"))
	_ = viper.BindPFlag("critic.model", serveCmd.Flags().Lookup("model"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadAppConfig(viper.GetViper(), loadedSecrets)
	if err != nil {
		return err
	}
	if release, _ := cmd.Flags().GetBool("release"); release {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	docs, err := store.Open(cfg.Persistence)
	if err != nil {
		return err
	}
	defer docs.Close()

	sink, closeSink, err := eventSink(docs, cfg.Persistence)
	if err != nil {
		return err
	}
	defer closeSink()

	client := newCritic(ctx, cfg.Critic)
	provider, err := auth.NewProvider(cfg.Server.JWTSecret, cfg.Server.TokenTTL, logger)
	if err != nil {
		return err
	}

	manager := session.NewManager(session.Deps{
		Critic:    client,
		Documents: docs,
		Events:    events.NewRecorder(sink, logger),
		Clock:     clock.Real{},
		Config:    cfg,
		Logger:    logger,
	})
	defer func() {
		if err := manager.CloseAll(); err != nil {
			logger.Error("closing sessions", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.New(manager, provider, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("store", string(cfg.Persistence.Driver)),
			zap.String("backend", string(cfg.Critic.Backend)))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// eventSink returns where interaction events go. The SQLite document store
// holds them itself; with Redis documents a separate SQLite database is
// opened for events.
func eventSink(docs store.DocumentStore, cfg types.PersistenceConfig) (events.Sink, func(), error) {
	if sink, ok := docs.(events.Sink); ok {
		return sink, func() {}, nil
	}
	path := cfg.SQLitePath
	if path == "" {
		path = types.DefaultAppConfig().Persistence.SQLitePath
	}
	db, err := store.OpenSQLite(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening event log: %w", err)
	}
	return db, func() { db.Close() }, nil
}

// newCritic builds the critic client. A backend that cannot be built (for
// instance one without an API key) still yields a client: every judgment
// then reports the configuration error as its result instead of stopping
// the server.
func newCritic(ctx context.Context, cfg types.CriticConfig) *critic.Client {
	backend, err := critic.NewBackend(ctx, cfg)
	if err != nil {
		logger.Warn("critic backend unavailable; analyses will report errors", zap.Error(err))
		backend = nil
	}
	return critic.NewClient(backend, cfg, logger)
}
