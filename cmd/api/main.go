package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ecosupply/api/internal/app"
	"ecosupply/api/internal/assets"
	"ecosupply/api/internal/config"
	"ecosupply/api/internal/guard"
	"ecosupply/api/internal/history"
	"ecosupply/api/internal/search"
	"ecosupply/api/internal/session"
	"ecosupply/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	var dataStore store.Store
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		defer db.Close()

		pg, err := store.NewPostgresStore(db, cfg.SiteTable, cfg.SiteRowID, cfg.DataFile)
		if err != nil {
			log.Fatalf("store setup failed: %v", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatalf("schema setup failed: %v", err)
		}
		log.Printf("Using PostgreSQL document storage")
		dataStore = pg
	} else {
		log.Printf("Using file document storage at %s", cfg.DataFile)
		dataStore = store.NewFileStore(cfg.DataFile)
	}

	accessGuard := guard.New(cfg.EditorPassword, cfg.EditorPasswordHash)

	var sessions session.Store
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for editor sessions")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisStore.Close()
		sessions = redisStore
	} else {
		log.Printf("Using in-memory editor sessions")
		sessions = session.NewMemoryStore()
	}

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient)

	historyService := history.New(cfg.HistoryDir)

	var assetService *assets.Service
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		svc, err := assets.New(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Printf("WARNING: asset storage unavailable: %v", err)
		} else {
			assetService = svc
		}
	}

	service := app.New(cfg, dataStore, accessGuard, sessions, searchService, historyService, assetService)
	if err := service.Bootstrap(ctx); err != nil {
		log.Printf("WARNING: bootstrap error (will retry on next restart): %v", err)
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, cfg.PublicDir)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("EcoSupply API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
