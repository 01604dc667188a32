package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"yatube/internal/cache"
	"yatube/internal/handlers"
	"yatube/internal/middleware"
	"yatube/internal/storage"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := a.openDB(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(context.Background()); err != nil {
			a.logger.Error("failed to close store", slog.Any("error", err))
		}
	}()

	sessions := middleware.NewSessionManager(a.cfg.Site.SessionSecret, a.cfg.Site.SessionTTL)
	sessions.Secure = !a.cfg.Debug

	server, err := handlers.NewServer(handlers.Options{
		DB:            db,
		Sessions:      sessions,
		Media:         storage.NewMediaStore(a.cfg.Server.MediaRoot),
		Cache:         cache.New(),
		Metrics:       a.metrics,
		Logger:        a.logger,
		PostsPerPage:  a.cfg.Site.PostsPerPage,
		IndexCacheTTL: a.cfg.Site.IndexCacheTTL,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              a.cfg.Address(),
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting server",
			slog.String("address", httpServer.Addr),
			slog.String("db", a.cfg.Database.Type),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down", slog.Duration("grace", a.cfg.Server.ShutdownGrace))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownGrace)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
