package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/xela07ax/vehicle-health-pipeline/internal/audit"
	"github.com/xela07ax/vehicle-health-pipeline/internal/compliance"
	"github.com/xela07ax/vehicle-health-pipeline/internal/console/handler"
	"github.com/xela07ax/vehicle-health-pipeline/internal/console/server"
	"github.com/xela07ax/vehicle-health-pipeline/internal/console/service"
	"github.com/xela07ax/vehicle-health-pipeline/internal/engine"
	"github.com/xela07ax/vehicle-health-pipeline/internal/infra"
	"github.com/xela07ax/vehicle-health-pipeline/internal/notify"
	"github.com/xela07ax/vehicle-health-pipeline/internal/reasoning"
	"github.com/xela07ax/vehicle-health-pipeline/internal/repository/postgres"
	redisrepo "github.com/xela07ax/vehicle-health-pipeline/internal/repository/redis"
	"github.com/xela07ax/vehicle-health-pipeline/internal/support"
	"github.com/xela07ax/vehicle-health-pipeline/internal/telemetry"
)

const serviceName = "vehicle-health-pipeline"

func main() {
	// 1. Конфиг и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	// Контекст жизненного цикла: SIGINT/SIGTERM запускают остановку
	appCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := infra.NewTracerProvider(appCtx, cfg.Tracing, serviceName, logger)
	if err != nil {
		logger.Fatal("tracing init failed", zap.Error(err))
	}

	// 2. Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := engine.NewMetrics(reg)

	// 3. Инфраструктура: Redis (опционально) и хранилище аудита
	var rdb *goredis.Client
	if cfg.Redis.Addr != "" {
		rdb = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(appCtx).Err(); err != nil {
			logger.Fatal("redis unreachable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
	}

	store, closeStore, err := openAuditStore(appCtx, cfg, rdb)
	if err != nil {
		logger.Fatal("audit store init failed", zap.Error(err))
	}
	defer closeStore()

	agentFS := audit.NewAgentFS(store, logger, audit.Options{
		BufferSize:    cfg.Audit.BufferSize,
		BatchSize:     cfg.Audit.BatchSize,
		FlushInterval: cfg.Audit.FlushInterval,
		BufferFill:    metrics.AuditBufferFill,
	})
	agentFS.Start()

	var publisher notify.Publisher = notify.NewLogPublisher(logger)
	if rdb != nil {
		publisher = notify.NewRedisPublisher(rdb)
	}

	// 4. Инференс: провайдер, обернутый в Reliability (Rate limit -> CB -> Retry)
	client, err := reasoning.NewProviderClient(cfg.Inference.Provider, cfg.Inference.Model)
	if err != nil {
		logger.Fatal("inference init failed", zap.Error(err))
	}
	if client != nil {
		client = reasoning.NewReliableClient(client, reasoning.ReliabilityConfig{
			Timeout:       cfg.Inference.Timeout,
			MaxAttempts:   cfg.Inference.MaxAttempts,
			RateLimit:     cfg.Inference.RateLimit,
			RateBurst:     cfg.Inference.RateBurst,
			CBMaxRequests: cfg.Inference.CBMaxRequests,
			CBInterval:    cfg.Inference.CBInterval,
			CBTimeout:     cfg.Inference.CBTimeout,
			CBFailures:    cfg.Inference.CBFailures,
			OnStateChange: metrics.OnBreakerStateChange,
		})
	}
	agent := reasoning.NewAgent(client, logger,
		reasoning.WithTimeout(cfg.Inference.CallBudget()),
		reasoning.WithObserver(metrics),
	)

	// 5. Ядро
	sim := telemetry.NewSimulator(nil)
	orch, err := engine.NewOrchestrator(engine.Deps{
		Sensors:    sim,
		Reasoner:   agent,
		Inventory:  support.NewInventory(nil),
		Locator:    support.NewLocationResolver(support.DefaultWorkshops, nil),
		Scheduler:  support.NewScheduler(nil),
		Compliance: compliance.NewGate(logger),
		Auditor:    agentFS,
		Publisher:  publisher,
		Metrics:    metrics,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal("orchestrator init failed", zap.Error(err))
	}

	// 6. Серверы
	console := server.NewConsoleServer(
		logger,
		handler.NewRunHandler(orch, cfg.Inference.APIKey, logger,
			handler.WithRunTimeout(cfg.Server.WriteTimeout-time.Second),
		),
		handler.NewAuditHandler(service.NewAuditService(agentFS)),
		handler.NewFleetHandler(service.NewFleetService(sim, cfg.Fleet.Size)),
	)
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      console,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	metricsSrv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metricsMux, ReadHeaderTimeout: 5 * time.Second}

	healthSrv := health.NewServer()
	grpcSrv := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	healthSrv.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)

	errCh := make(chan error, 3)
	go func() {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
		if err != nil {
			errCh <- fmt.Errorf("grpc listen: %w", err)
			return
		}
		logger.Info("gRPC health server started", zap.Int("port", cfg.Server.GRPCPort))
		if err := grpcSrv.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()
	go func() {
		logger.Info("metrics server started", zap.String("addr", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics: %w", err)
		}
	}()
	go func() {
		logger.Info("pipeline API started",
			zap.String("addr", srv.Addr),
			zap.String("audit_backend", cfg.Audit.Backend),
			zap.String("inference_provider", cfg.Inference.Provider),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	// 7. Graceful Shutdown
	select {
	case <-appCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("server failed", zap.Error(err))
	}

	healthSrv.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics shutdown failed", zap.Error(err))
	}
	grpcSrv.GracefulStop()

	// Дописываем хвост журнала до закрытия хранилища
	agentFS.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracing shutdown failed", zap.Error(err))
	}
	logger.Info("pipeline exited properly")
}

// openAuditStore выбирает хранилище журнала по audit.backend
func openAuditStore(ctx context.Context, cfg *infra.Config, rdb *goredis.Client) (audit.Store, func(), error) {
	switch cfg.Audit.Backend {
	case "postgres":
		db, err := postgres.Open(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			return nil, nil, err
		}
		repo := postgres.NewAuditRepo(db)
		if err := repo.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return repo, func() { db.Close() }, nil
	case "redis":
		if rdb == nil {
			return nil, nil, errors.New("audit.backend=redis requires redis.addr")
		}
		return redisrepo.NewAuditRepo(rdb), func() {}, nil
	default:
		return audit.NewMemoryStore(), func() {}, nil
	}
}
