package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"asha-triage/internal/analytics"
	"asha-triage/internal/common/database"
	"asha-triage/internal/common/logger"
	"asha-triage/internal/common/mqtt"
	commonredis "asha-triage/internal/common/redis"
	"asha-triage/internal/config"
	"asha-triage/internal/emergency"
	"asha-triage/internal/httpapi"
	"asha-triage/internal/kb"
	"asha-triage/internal/repository"
	"asha-triage/internal/service"
	"asha-triage/internal/triage"

	"go.uber.org/zap"
)

const (
	serviceName    = "asha-triage"
	serviceVersion = "1.0.0"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting triage service",
		zap.String("version", serviceVersion),
	)

	// 3. 连接 PostgreSQL
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	// 4. 连接 Redis
	redisClient := commonredis.NewRedisClient(&cfg.Redis)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := commonredis.Ping(ctx, redisClient); err != nil {
		cancel()
		log.Fatal("Failed to connect to redis", zap.Error(err))
	}
	cancel()
	defer commonredis.Close(redisClient)

	// 5. 连接 MQTT（仅在 PHC 通知启用时；连接失败降级为禁用通知）
	var notifier emergency.Notifier
	notificationEnabled := cfg.Emergency.PHCNotificationEnabled
	var mqttClient *mqtt.Client
	if notificationEnabled {
		mqttClient, err = mqtt.NewClient(&cfg.MQTT)
		if err != nil {
			log.Warn("Failed to connect to MQTT broker, PHC notifications disabled", zap.Error(err))
			notificationEnabled = false
		} else {
			defer mqttClient.Disconnect()
			notifier = emergency.NewMQTTNotifier(mqttClient, cfg.Emergency.NotifyTopicPrefix, cfg.MQTT.QoS, log)
		}
	}

	// 6. 创建仓库
	triageRepo := repository.NewTriageResultsRepository(db, log)
	emergencyRepo := repository.NewEmergencyCasesRepository(db, log)
	analyticsRepo := repository.NewAnalyticsEventsRepository(db, log)

	// 7. 创建外部协作方客户端和分诊流水线
	retriever := kb.NewKnowledgeBaseClient(
		cfg.KnowledgeBase.BaseURL,
		cfg.KnowledgeBase.APIKey,
		cfg.KnowledgeBase.TopK,
		time.Duration(cfg.KnowledgeBase.TimeoutSeconds)*time.Second,
		log,
	)
	generator := kb.NewInferenceClient(
		cfg.Inference.BaseURL,
		cfg.Inference.APIKey,
		kb.GenerationConfig{
			ModelVersion: cfg.Inference.ModelVersion,
			MaxTokens:    cfg.Inference.MaxTokens,
			Temperature:  cfg.Inference.Temperature,
			TopP:         cfg.Inference.TopP,
		},
		time.Duration(cfg.Inference.TimeoutSeconds)*time.Second,
		log,
	)
	orchestrator := triage.NewOrchestrator(retriever, generator, log)

	// 8. 创建服务层
	publisher := analytics.NewPublisher(analyticsRepo, redisClient, cfg.Analytics.Stream, log)
	locator := emergency.NewCachedLocator(
		emergency.NewStaticLocator(cfg.Emergency.EmergencyContactNumber, log),
		redisClient,
		log,
	)
	emergencyService := service.NewEmergencyService(
		emergencyRepo,
		locator,
		notifier,
		notificationEnabled,
		cfg.Emergency.EmergencyContactNumber,
		log,
	)
	triageService := service.NewTriageService(
		orchestrator,
		triageRepo,
		publisher,
		emergencyService,
		cfg.Emergency.AutoEscalationThreshold,
		log,
	)

	// 9. 注册路由
	verifier := httpapi.NewRedisSessionVerifier(redisClient, log)
	router := httpapi.NewRouter(log)
	router.RegisterTriageRoutes(httpapi.NewTriageHandler(triageService, verifier, log))
	router.RegisterEmergencyRoutes(httpapi.NewEmergencyHandler(emergencyService, verifier, log))
	router.RegisterAnalyticsRoutes(httpapi.NewAnalyticsHandler(analyticsRepo, verifier, log))
	router.RegisterHealthRoutes(serviceName, serviceVersion)

	// 10. 启动 HTTP 服务（支持优雅关闭）
	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	// 11. 等待信号（优雅关闭）
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down",
			zap.String("signal", sig.String()),
		)
	case err := <-serverErrChan:
		log.Fatal("HTTP server error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}

	log.Info("Triage service stopped")
}
