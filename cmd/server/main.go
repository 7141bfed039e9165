// Package main runs the reference hashkeep store: a content-addressed blob
// server for journalon clients, backed by PostgreSQL or memory.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/journalon/internal/config"
	"github.com/atinyakov/journalon/internal/db"
	"github.com/atinyakov/journalon/internal/logger"
	"github.com/atinyakov/journalon/internal/repository"
	"github.com/atinyakov/journalon/internal/server/handler/http"
	"github.com/atinyakov/journalon/internal/service"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Pick the blob repository: PostgreSQL when a DSN is configured.
	var repo service.BlobRepository
	if options.DatabaseDSN != "" {
		postgresDB, err := db.InitPostgres(options.DatabaseDSN)
		if err != nil {
			zapLogger.Fatal("cannot init database", zap.Error(err))
		}
		defer postgresDB.Close()
		repo = repository.NewPostgresBlobRepository(postgresDB)

		if options.StatsInterval > 0 {
			db.StartStatsReporter(ctx, postgresDB, options.StatsInterval, zapLogger)
		}
	} else {
		zapLogger.Warn("no database configured, blobs are kept in memory")
		repo = repository.NewMemoryBlobRepository()
	}

	blobService := service.NewBlobService(repo, options.MaxBlob)
	blobHandler := &http.BlobHandler{BlobService: blobService, Log: zapLogger}
	router := http.NewRouter(blobHandler, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	useTLS := options.TLSCert != ""
	if useTLS {
		cert, err := tls.LoadX509KeyPair(options.TLSCert, options.TLSKey)
		if err != nil {
			zapLogger.Fatal("failed to load server TLS cert/key", zap.Error(err))
		}
		server.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("failed to shut down server", zap.Error(err))
		}
	}()

	zapLogger.Info("starting server",
		zap.String("addr", options.Port),
		zap.Bool("tls", useTLS),
		zap.Int("max_blob", blobService.MaxSize()),
	)
	var err error
	if useTLS {
		err = server.ListenAndServeTLS("", "")
	} else {
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("failed to start server", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}
