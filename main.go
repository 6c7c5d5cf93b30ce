// Command bonk-scanner serves the screenshot item-recognition pipeline for
// the Megabonk companion app: a scan API that identifies catalogued items,
// weapons, and tomes in inventory screenshots, plus metrics and
// active-learning endpoints for the dashboard.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"bonk-scanner/internal/catalog"
	"bonk-scanner/internal/conf"
	"bonk-scanner/internal/metrics"
	"bonk-scanner/internal/ocr"
	"bonk-scanner/internal/scan"
	"bonk-scanner/internal/server"
	"bonk-scanner/internal/template"
	"bonk-scanner/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "bonk-scanner: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	settings, err := conf.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log := newLogger(settings)
	slog.SetDefault(log)
	log.Info("starting bonk-scanner",
		"version", version.Version, "commit", version.GitCommit)

	cat, err := catalog.LoadDir(settings.Catalog.DataDir)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	log.Info("catalog loaded", "entities", len(cat.Entities()))

	store := template.NewStore(cat, settings.Catalog.TemplateDir)

	corpus, err := template.LoadCorpus(settings.Catalog.CorpusPath)
	if err != nil {
		log.Warn("training corpus unavailable, starting without it", "error", err)
	} else {
		store.SetCorpus(corpus)
		log.Info("training corpus loaded", "samples", corpus.Count())
	}

	// Priority templates load before the server accepts traffic; the rest
	// load in the background so first-scan latency stays flat.
	if n, err := store.LoadPriority(settings.Catalog.Priority); err != nil {
		return fmt.Errorf("loading priority templates: %w", err)
	} else if n > 0 {
		log.Info("priority templates loaded", "count", n)
	}
	go func() {
		loaded, failed := store.LoadAll()
		log.Info("template load complete", "loaded", loaded, "failed", failed)
	}()

	session := scan.New(store, cat, settings.Scan, log)

	coPath := filepath.Join(settings.Catalog.DataDir, "cooccurrence.json")
	if table, err := scan.LoadCooccurrence(coPath); err == nil {
		session.SetCooccurrence(table)
		log.Info("co-occurrence table loaded", "entities", len(table))
	} else if !errors.Is(err, os.ErrNotExist) {
		log.Warn("co-occurrence table unreadable, using defaults", "error", err)
	}

	counter, err := ocr.NewDigitReader()
	if err != nil {
		log.Warn("ocr engine unavailable, stack counts disabled", "error", err)
	} else {
		session.SetCounter(counter)
		defer counter.Close()
	}

	prom, err := metrics.NewPrometheus()
	if err != nil {
		return fmt.Errorf("initializing metrics: %w", err)
	}
	session.Collector().SetPrometheus(prom)

	ctrl := server.New(session, store, corpus, prom, log)

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	serveErr := make(chan error, 1)
	go func() { serveErr <- ctrl.Start(addr) }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	case sig := <-stop:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ctrl.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

func newLogger(settings *conf.Settings) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(settings.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if settings.Debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
