package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/mandrin-rain/broker-bridge/api/handler"
	"github.com/mandrin-rain/broker-bridge/internal/config"
	"github.com/mandrin-rain/broker-bridge/internal/infrastructure/journal"
	"github.com/mandrin-rain/broker-bridge/internal/infrastructure/monitor"
	pgInfra "github.com/mandrin-rain/broker-bridge/internal/infrastructure/postgres"
	redisInfra "github.com/mandrin-rain/broker-bridge/internal/infrastructure/redis"
	"github.com/mandrin-rain/broker-bridge/internal/kite"
	"github.com/mandrin-rain/broker-bridge/internal/middleware"
	"github.com/mandrin-rain/broker-bridge/internal/router"
	"github.com/mandrin-rain/broker-bridge/internal/services"
	"github.com/mandrin-rain/broker-bridge/internal/services/lifecycle"
	"github.com/mandrin-rain/broker-bridge/internal/session"
	"github.com/mandrin-rain/broker-bridge/internal/ws"
	"github.com/mandrin-rain/broker-bridge/pkg/httpcontext"
	"github.com/mandrin-rain/broker-bridge/pkg/logger"
	"github.com/mandrin-rain/broker-bridge/repository/postgres"
	redisRepo "github.com/mandrin-rain/broker-bridge/repository/redis"
	authUC "github.com/mandrin-rain/broker-bridge/usecase/auth"
	instrumentUC "github.com/mandrin-rain/broker-bridge/usecase/instrument"
	orderUC "github.com/mandrin-rain/broker-bridge/usecase/order"
	subscriptionUC "github.com/mandrin-rain/broker-bridge/usecase/subscription"
	"github.com/mandrin-rain/broker-bridge/usecase/validation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	if cfg.Kite.DevelopmentMode() {
		zapLogger.Warn("kite development carve-outs enabled",
			zap.Bool("auto_session", cfg.Kite.AutoSession),
			zap.Bool("mock_session", cfg.Kite.MockSession))
	}

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	journalStore, err := journal.Open(cfg.Journal.Path, "journal")
	if err != nil {
		zapLogger.Fatal("failed to open write journal", zap.Error(err))
	}
	manager.Register("journal", func(ctx context.Context) error {
		return journalStore.Close()
	})

	mon := monitor.New(pool, redisClient, journalStore, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	instrumentRepo := postgres.NewInstrumentRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	subscriptionRepo := postgres.NewSubscriptionRepository(pool)
	sessionRepo := redisRepo.NewSessionRepository(redisClient, cfg.Session.TTL)

	kiteClient := kite.NewClient(cfg.Kite, zapLogger)

	verdictCache := validation.NewCache(cfg.Kite.ValidationWindow)
	validator := validation.New(verdictCache, kiteClient, sessionRepo, cfg.Kite.MockSession, zapLogger)

	janitor := services.NewSessionJanitor(validator, zapLogger)
	janitor.Start()
	manager.Register("session_janitor", func(ctx context.Context) error {
		janitor.Stop(ctx)
		return nil
	})

	journalProcessor := services.NewJournalProcessor(
		journalStore,
		mon,
		orderRepo,
		subscriptionRepo,
		zapLogger,
		services.ProcessorConfig{
			Interval:   cfg.Journal.DrainInterval,
			BatchSize:  cfg.Journal.BatchSize,
			MaxRetries: cfg.Journal.MaxRetries,
		},
	)
	journalProcessor.Start()
	manager.Register("journal_processor", func(ctx context.Context) error {
		journalProcessor.Stop(ctx)
		return nil
	})
	journalBridge := services.NewJournalBridge(journalProcessor)

	sessions := session.NewManager(sessionRepo, cfg.Session, zapLogger)

	authUseCase := authUC.New(kiteClient, cfg.Kite, zapLogger)
	orderUseCase := orderUC.New(kiteClient, orderRepo, journalBridge, zapLogger)
	instrumentUseCase := instrumentUC.New(kiteClient, instrumentRepo, zapLogger)
	subscriptionUseCase := subscriptionUC.New(subscriptionRepo, instrumentRepo, journalBridge, zapLogger)

	hub := ws.NewHub(zapLogger)
	tickerService := services.NewTickerService(cfg.Kite, hub, zapLogger)
	manager.Register("ticker", func(ctx context.Context) error {
		tickerService.Disconnect()
		return nil
	})

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Auth:       apiHandler.NewAuthHandler(authUseCase, sessions, ctxAdapter, zapLogger),
		Session:    apiHandler.NewSessionHandler(sessions, validator, ctxAdapter, zapLogger),
		Order:      apiHandler.NewOrderHandler(orderUseCase, ctxAdapter, zapLogger),
		Portfolio:  apiHandler.NewPortfolioHandler(kiteClient, ctxAdapter, zapLogger),
		Instrument: apiHandler.NewInstrumentHandler(instrumentUseCase, ctxAdapter, zapLogger),
		Ticker:     apiHandler.NewTickerHandler(tickerService, subscriptionUseCase, ctxAdapter, zapLogger),
		Health:     apiHandler.NewHealthHandler(mon, hub, tickerService, validator, ctxAdapter, zapLogger),
		Page:       apiHandler.NewPageHandler(ctxAdapter, zapLogger),
		Hub:        hub,
	}

	gate := middleware.NewSessionGate(sessions, validator, authUseCase, zapLogger)
	r := router.New(handlers, gate.Guard)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
