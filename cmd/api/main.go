package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudface-ai/CloudFace-Ai/internal/auth"
	"github.com/cloudface-ai/CloudFace-Ai/internal/config"
	"github.com/cloudface-ai/CloudFace-Ai/internal/event"
	"github.com/cloudface-ai/CloudFace-Ai/internal/faceindex"
	"github.com/cloudface-ai/CloudFace-Ai/internal/ingest"
	"github.com/cloudface-ai/CloudFace-Ai/internal/logger"
	"github.com/cloudface-ai/CloudFace-Ai/internal/resolver"
	"github.com/cloudface-ai/CloudFace-Ai/internal/server"
	"github.com/cloudface-ai/CloudFace-Ai/internal/sharelink"
	"github.com/cloudface-ai/CloudFace-Ai/internal/storage"
	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	zlog, err := logger.Init()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync()

	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The event store degrades to the local file fallback when PostgreSQL is
	// unreachable at startup, so a connection failure is not fatal.
	var primary event.Store
	dbPool, err := storage.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		zlog.Warn("postgres unavailable, running on local event store", zap.Error(err))
		dbPool = nil
	} else {
		defer dbPool.Close()
		primary = event.NewRepository(dbPool)
	}

	var providerClient *minio.Client
	providerClient, err = storage.NewProviderClient(cfg.Provider)
	if err != nil {
		zlog.Warn("photo provider unavailable, mirror and re-ingest disabled", zap.Error(err))
		providerClient = nil
	}

	layout := resolver.NewLayout(cfg.Storage.Root)
	localStore := event.NewLocalStore(cfg.Storage.Root)
	eventStore := event.NewFallbackStore(primary, localStore, zlog)
	eventService := event.NewService(eventStore, cfg.Storage.EventTTL, zlog)

	faceClient := faceindex.NewClient(cfg.FaceEngine.BaseURL, cfg.FaceEngine.Timeout)
	progress := ingest.NewSinkFromConfig(cfg.Progress)
	coordinator := ingest.NewCoordinator(faceClient, layout, progress, cfg.Ingest, zlog)

	var mirror *resolver.Mirror
	if providerClient != nil {
		photoProvider := resolver.NewObjectProvider(providerClient, cfg.Provider.Bucket)
		mirror = resolver.NewMirror(layout, photoProvider, coordinator, zlog)
	}

	var authService *auth.Service
	if dbPool != nil {
		authService = auth.NewService(auth.NewRepository(dbPool), cfg.Auth)
	}

	shareLinks := sharelink.NewService(eventService, cfg.Auth.ShareLinkSecret, cfg.Auth.ShareLinkTTL)

	router := server.NewRouter(server.Dependencies{
		Config:           cfg,
		Log:              zlog,
		DB:               dbPool,
		Provider:         providerClient,
		AuthService:      authService,
		EventService:     eventService,
		Coordinator:      coordinator,
		Progress:         progress,
		Layout:           layout,
		Mirror:           mirror,
		ShareLinkService: shareLinks,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		zlog.Info("CloudFace API listening", zap.String("address", cfg.Server.Address()))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	zlog.Info("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zlog.Error("shutdown", zap.Error(err))
	}
}
