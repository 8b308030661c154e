package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"collate/api/internal/app"
	"collate/api/internal/config"
	"collate/api/internal/kv"
	"collate/api/internal/logging"
	"collate/api/internal/parser"
	"collate/api/internal/persist"
	"collate/api/internal/search"
	"collate/api/internal/session"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()
	logger := logging.New(logging.Config{
		Level: logging.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})
	if err := run(cfg, logger); err != nil {
		logger.Error("collate api stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := kv.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("store opened", "backend", cfg.Store)

	var remote search.Remote
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meiliClient.Close()
		remote = meiliClient
	}
	searchService := search.NewService(remote, logger)
	defer searchService.Close()

	sess := session.New(session.Options{
		Parser: parser.New(cfg.ParserCommand),
		Store:  persist.New(store, logger),
		Search: searchService,
		Logger: logger,
	})
	if sess.LoadFromStorage(ctx) {
		logger.Info("checkpoint restored")
	}
	if snap, ok := sess.RecoverableSession(ctx); ok {
		logger.Info("recoverable session available", "savedAt", snap.SavedAt, "paragraphs", len(snap.MergedParagraphs))
	}

	httpServer := app.NewHTTPServer(sess, app.Options{
		CORSOrigin:     cfg.CORSOrigin,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Logger:         logger,
	})
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("collate api listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if cfg.Autosave <= 0 {
			return nil
		}
		ticker := time.NewTicker(cfg.Autosave)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				sess.Checkpoint(gctx)
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		// The signal context is already cancelled; the final checkpoint
		// and shutdown get their own deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sess.Checkpoint(shutdownCtx)
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown error", "err", err)
		}
		return nil
	})

	return g.Wait()
}
