package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xelth-com/eckdocs/internal/ai"
	"github.com/xelth-com/eckdocs/internal/buildinfo"
	"github.com/xelth-com/eckdocs/internal/config"
	"github.com/xelth-com/eckdocs/internal/database"
	"github.com/xelth-com/eckdocs/internal/handlers"
	"github.com/xelth-com/eckdocs/internal/logger"
	"github.com/xelth-com/eckdocs/internal/models"
	"github.com/xelth-com/eckdocs/internal/services/agreement"
	"github.com/xelth-com/eckdocs/internal/services/finance"
	"github.com/xelth-com/eckdocs/internal/services/pdf"
	"github.com/xelth-com/eckdocs/internal/services/templates"
	"github.com/xelth-com/eckdocs/internal/storage"
	"github.com/xelth-com/eckdocs/internal/websocket"
	"go.uber.org/zap"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.NodeEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	zl.Info("starting eckdocs",
		zap.String("env", cfg.NodeEnv),
		zap.String("commit", buildinfo.CommitHash),
		zap.String("build_time", buildinfo.BuildTime))
	for _, w := range cfg.Warnings() {
		zl.Warn("configuration fallback in use", zap.String("detail", w))
	}

	// 2. Initialize database (embedded, external or sqlite)
	db, err := database.Connect(cfg.Database, zl.Named("db"))
	if err != nil {
		zl.Fatal("failed to connect to database", zap.Error(err))
	}

	// 3. Auto-Migrate Schema
	zl.Info("synchronizing database schema")
	if err := db.AutoMigrate(models.All()...); err != nil {
		zl.Warn("migration warning", zap.Error(err))
	} else {
		zl.Info("schema synchronized")
	}

	store, err := storage.NewLocal(cfg.UploadsDir)
	if err != nil {
		zl.Fatal("failed to prepare uploads directory", zap.String("dir", cfg.UploadsDir), zap.Error(err))
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 4. Document services
	hub := websocket.NewHub(zl.Named("ws"))
	go hub.Run(ctx)

	pdfSvc := pdf.NewService(db,
		pdf.NewChromePrinter(cfg.PDF.ChromePath, cfg.PDF.ExtraDelay, cfg.PDF.Timeout),
		store, zl, pdf.Options{
			InternalURL:   cfg.InternalURL,
			InternalKey:   cfg.InternalAPIKey,
			PublicURL:     cfg.BaseURL,
			MaxConcurrent: cfg.PDF.MaxConcurrent,
		})

	deps := agreement.Deps{
		DB:       db,
		Store:    store,
		PDF:      pdfSvc,
		Notifier: hub,
		Log:      zl,
		BaseURL:  cfg.BaseURL,
	}

	// AI editing is optional; the server runs without it
	completer, err := ai.NewCompleter(ctx, cfg.AI)
	if err != nil {
		zl.Warn("ai editing disabled", zap.String("provider", cfg.AI.Provider), zap.Error(err))
	} else {
		zl.Info("ai editing enabled", zap.String("backend", completer.Name()))
		deps.Editor = ai.NewEditor(completer, zl)
		if c, ok := completer.(io.Closer); ok {
			defer c.Close()
		}
	}

	router := handlers.NewRouter(handlers.Deps{
		DB:         db,
		Config:     cfg,
		Log:        zl.Named("http"),
		Store:      store,
		Agreements: agreement.NewService(deps),
		Finance:    finance.NewService(db, pdfSvc, store, zl),
		Templates:  templates.NewService(db, zl),
		Hub:        hub,
	})

	// 5. Start server with graceful shutdown
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		zl.Info("server listening", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	sig := <-shutdown
	zl.Info("shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Error("http server shutdown error", zap.Error(err))
	}

	// Closes websocket clients
	stop()

	// Close database (this also stops embedded PostgreSQL)
	if err := db.Close(); err != nil {
		zl.Error("database close error", zap.Error(err))
	}
	zl.Info("shutdown complete")
}
