package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"

	"bqgate/internal/config"
	"bqgate/internal/credentials"
	"bqgate/internal/httpapi"
	"bqgate/internal/service"
)

var (
	configPath  = flag.String("config", "", "Path to bqgate.yaml (default: ./bqgate.yaml if present)")
	projectID   = flag.String("project", "", "BigQuery project ID (overrides config)")
	keyPath     = flag.String("credentials", "", "Path to the default service account key file (overrides config)")
	listenAddr  = flag.String("listen", "", "Listen address, e.g. :8080 (overrides config)")
	emulator    = flag.String("emulator", "", "BigQuery emulator endpoint (for local testing, disables credentials)")
	debug       = flag.Bool("debug", false, "Enable debug logging")
	showVersion = flag.Bool("version", false, "Show version information")
)

const (
	appVersion = "0.1.0"
	appName    = "bqgated"
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s version %s\n", appName, appVersion)
		fmt.Println("A BigQuery metadata REST facade with per-session credentials")
		os.Exit(0)
	}

	log, err := newLogger(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *projectID != "" {
		cfg.BigQuery.ProjectID = *projectID
	}
	if *keyPath != "" {
		cfg.BigQuery.KeyPath = *keyPath
	}
	if *emulator == "" {
		if err := cfg.Validate(); err != nil {
			return err
		}
	} else if cfg.BigQuery.ProjectID == "" {
		cfg.BigQuery.ProjectID = "test-project"
	}

	store, err := credentials.NewStore(cfg.Credentials.Dir, cfg.BigQuery.KeyPath, log)
	if err != nil {
		return err
	}

	var svcOpts []service.Option
	if *emulator != "" {
		log.Warn("running against BigQuery emulator, credentials disabled",
			zap.String("endpoint", *emulator))
		svcOpts = append(svcOpts,
			service.WithClientOptions(option.WithEndpoint(*emulator), option.WithoutAuthentication()),
			service.WithoutCredentials())
	}
	svc := service.New(store, cfg.BigQuery.ProjectID, log, svcOpts...)

	addr := cfg.Server.Addr()
	if *listenAddr != "" {
		addr = *listenAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.NewRouter(svc, store, log),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0, // external BigQuery calls have no deadline
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("listening",
			zap.String("addr", addr),
			zap.String("project", cfg.BigQuery.ProjectID))
		errc <- srv.ListenAndServe()
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errc:
		return err
	case sig := <-sigc:
		log.Info("shutting down", zap.Stringer("signal", sig))
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return nil
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
