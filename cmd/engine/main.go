package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/teamspace-action-engine/internal/audit"
	"github.com/xela07ax/teamspace-action-engine/internal/connectors"
	"github.com/xela07ax/teamspace-action-engine/internal/engine"
	"github.com/xela07ax/teamspace-action-engine/internal/infra"
	"github.com/xela07ax/teamspace-action-engine/internal/infra/auth"
	"github.com/xela07ax/teamspace-action-engine/internal/modules"
	"github.com/xela07ax/teamspace-action-engine/internal/notify"
	"github.com/xela07ax/teamspace-action-engine/internal/repository/postgres"
	"github.com/xela07ax/teamspace-action-engine/internal/server"
	"github.com/xela07ax/teamspace-action-engine/internal/server/handler"
	"github.com/xela07ax/teamspace-action-engine/internal/server/service"
)

func main() {
	// 1. Конфигурация и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	// 2. Инфраструктура и ресурсы
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if cfg.Database.URL == "" {
		logger.Fatal("database.url (или DATABASE_URL) обязателен")
	}
	approvalRepo := postgres.NewApprovalRepo(cfg.Database.URL)
	auditRepo := postgres.NewAuditRepo(cfg.Database.URL)
	userRepo := postgres.NewUserRepo(cfg.Database.URL)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := approvalRepo.Ping(pingCtx); err != nil {
		logger.Fatal("postgres is unreachable", zap.Error(err))
	}
	pingCancel()

	// RSA ключи: открытый проверяет токены, закрытый их подписывает
	publicKey, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
	if err != nil {
		logger.Fatal("failed to parse public key", zap.Error(err))
	}
	privateKey, err := auth.ParseRSAPrivateKey(cfg.Auth.PrivateKey)
	if err != nil {
		logger.Fatal("failed to parse private key", zap.Error(err))
	}

	// 3. Метрики
	reg := prometheus.NewRegistry()
	metrics := engine.NewMetrics(reg)

	// Экспортируем метрики для Prometheus на отдельном порту
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		addr := fmt.Sprintf(":%d", cfg.Server.MetricsPort)
		logger.Info("metrics endpoint started", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()

	// 4. Аудит: асинхронный sink с батчингом в Postgres
	sink := audit.NewSink(auditRepo, cfg.Engine.AuditBufferSize, cfg.Engine.AuditFlushInterval, logger)
	sink.SetGauge(metrics.AuditBufferFill)
	sink.Start()

	// 5. Execution Layer: локальный backend + Reliability-обертки
	workspace := connectors.NewLocalWorkspace()
	wrap := func(name string, ep connectors.ModuleEndpoint) connectors.ModuleEndpoint {
		return engine.NewReliabilityWrapper(ep, engine.ReliabilitySettings{
			Name:          name,
			CBMaxRequests: cfg.Engine.CBMaxRequests,
			CBInterval:    cfg.Engine.CBInterval,
			CBTimeout:     cfg.Engine.CBTimeout,
			RateLimit:     cfg.Engine.ModuleRateLimit,
		})
	}

	registry := engine.NewRegistry(logger)
	registry.RegisterBuiltin("drive", modules.NewDriveExecutor(wrap("drive", workspace.Drive()), logger))
	registry.RegisterBuiltin("chat", modules.NewChatExecutor(wrap("chat", workspace.Chat()), logger))
	registry.RegisterBuiltin("calendar", modules.NewCalendarExecutor(wrap("calendar", workspace.Calendar()), logger))
	registry.RegisterBuiltin("hr", modules.NewHRExecutor(wrap("hr", workspace.HR()), logger))
	registry.RegisterBuiltin("scheduling", modules.NewSchedulingExecutor(wrap("scheduling", workspace.Scheduling()), logger))

	// 6. Core: Approval Gate + Planner + RollbackStore (Redis) + Orchestrator
	notifier := notify.NewRedisNotifier(rdb, logger)
	gate := engine.NewGate(approvalRepo, notifier, cfg.Engine.ApprovalTTL, logger)
	gate.SetPendingGauge(metrics.PendingApprovals)
	planner := engine.NewPlanner(cfg.Engine.RollbackRetention, logger)
	plans := engine.NewRedisRollbackStore(rdb)

	orchestrator := engine.NewOrchestrator(
		gate,
		registry,
		planner,
		plans,
		sink,
		metrics,
		cfg.Engine.RollbackRetention,
		logger,
	)

	// 7. HTTP API
	validator := auth.NewBaseValidator(publicKey)
	authService := service.NewAuthService(userRepo, privateKey, cfg.Auth.TokenTTL)
	approvalService := service.NewApprovalService(approvalRepo, notifier, logger)
	approvalService.SetPendingGauge(metrics.PendingApprovals)

	srvHandler := server.NewServer(
		cfg,
		logger,
		validator,
		handler.NewAuthHandler(authService),
		handler.NewActionsHandler(orchestrator),
		handler.NewApprovalHandler(approvalService),
		handler.NewAuditHandler(auditRepo),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      srvHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 8. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("action engine started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-stop // Ждем сигнал
	logger.Info("action engine stopping...")

	// Даем 5 секунд на завершение запросов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	// Сбрасываем хвост аудита до выхода — иначе потеряем последние события
	sink.Stop()
	logger.Info("action engine exited properly")
}
