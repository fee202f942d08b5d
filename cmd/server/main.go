package main

import (
	"TgDrive/internal/config"
	"TgDrive/internal/crypto"
	"TgDrive/internal/handlers"
	"TgDrive/internal/middleware"
	"TgDrive/internal/repo"
	"TgDrive/internal/service"
	"TgDrive/internal/telegram"
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func main() {
	cfg := config.NewConfig()

	// создаём предустановленный регистратор zap
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}

	// делаем регистратор SugaredLogger
	sugar := logger.Sugar()
	middleware.SetLogger(sugar) // передаём логгер в middleware
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gormDB, err := repo.InitDB(cfg.DatabaseDSN)
	if err != nil {
		sugar.Fatalw("failed to initialize database", "error", err)
	}

	sessionKey, err := crypto.DeriveKey(cfg.SessionSecret)
	if err != nil {
		sugar.Fatalw("failed to derive session key", "error", err)
	}

	// Repositories
	userRepo := repo.NewUserRepository(gormDB)
	sessionRepo := repo.NewSessionRepository(gormDB)
	channelRepo := repo.NewChannelRepository(gormDB)
	nodeRepo := repo.NewNodeRepository(gormDB)

	// Telegram backend
	tgOpts := telegram.Options{
		APIID:    cfg.APIID,
		APIHash:  cfg.APIHash,
		BotToken: cfg.BotToken,
	}
	pending := telegram.NewPendingLogins()
	authService := service.NewAuthService(userRepo, sessionRepo, pending,
		telegram.NewClient, tgOpts, sessionKey, sugar)
	manager := telegram.NewManager(telegram.NewClient, tgOpts, authService)
	authService.AttachManager(manager)

	prober := telegram.NewProber(cfg.ProbeTimeout())
	transport := telegram.NewTransport(manager, prober, sugar)

	// Services
	treeService := service.NewTreeService(nodeRepo, sugar)
	channelService := service.NewChannelService(channelRepo, manager, service.ChannelConfig{
		ChannelID: cfg.ChannelID,
		Username:  cfg.ChannelUsername,
		Title:     cfg.ChannelTitle,
	}, sugar)
	fileService := service.NewFileService(nodeRepo, treeService, channelService, transport, sugar)

	h := handlers.NewHandler(treeService, fileService, channelService, authService, sugar, cfg)

	addr := cfg.BaseURL
	server := &http.Server{Addr: addr, Handler: h.Router}

	sugar.Infow("Starting server", "addr", addr)
	sugar.Infow("Config",
		"BaseURL", cfg.BaseURL,
		"EnableHTTPS", cfg.EnableHTTPS,
		"DatabaseDSN", cfg.DatabaseDSN,
		"ChannelID", cfg.ChannelID,
		"ChannelUsername", cfg.ChannelUsername,
	)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("Server failed", "error", err)
		}
	}()

	<-ctx.Done()
	sugar.Infow("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("HTTP shutdown failed", "error", err)
	}
	authService.Shutdown(shutdownCtx)
	if err := manager.Stop(shutdownCtx); err != nil {
		sugar.Errorw("Client shutdown failed", "error", err)
	}
}
