package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	"lamarkesa/internal/config"
	"lamarkesa/internal/server"
	"lamarkesa/internal/util"
	"lamarkesa/pkg/catalog"
	"lamarkesa/pkg/extract"
	"lamarkesa/pkg/notify"
	"lamarkesa/pkg/storage"
	"lamarkesa/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session ttl: %v", err)
	}

	dataStore, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}

	objects, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	if err != nil {
		log.Fatalf("failed to init object store: %v", err)
	}

	notifier, err := notify.NewRedisNotifier(notify.RedisNotifierConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatalf("failed to init change feed: %v", err)
	}

	revoker := store.NewRedisTokenRevoker(cfg.RedisAddr, cfg.RedisPassword)
	sessions, err := store.NewJWTSessionStore(cfg.JWTSecret, sessionTTL, revoker, store.JWTOptions{})
	if err != nil {
		log.Fatalf("failed to init session store: %v", err)
	}

	cat := catalog.New(dataStore, objects, notifier)
	cat.Subscribe(context.Background())

	httpServer, err := server.New(server.Config{
		Catalog:        cat,
		Store:          dataStore,
		Sessions:       sessions,
		Extractor:      extract.New(cfg.OpenAIBaseURL, cfg.OpenAIModel),
		OpenAIAPIKey:   cfg.OpenAIAPIKey,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("catalog server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
