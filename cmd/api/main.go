package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/asset-marketplace/internal/api/http"
	"github.com/spec-kit/asset-marketplace/internal/api/http/handlers"
	"github.com/spec-kit/asset-marketplace/internal/auth"
	"github.com/spec-kit/asset-marketplace/internal/config"
	"github.com/spec-kit/asset-marketplace/internal/domain"
	"github.com/spec-kit/asset-marketplace/internal/events"
	"github.com/spec-kit/asset-marketplace/internal/observability"
	"github.com/spec-kit/asset-marketplace/internal/payment"
	"github.com/spec-kit/asset-marketplace/internal/persistence"
	"github.com/spec-kit/asset-marketplace/internal/registry"
	"github.com/spec-kit/asset-marketplace/internal/repository"
	"github.com/spec-kit/asset-marketplace/internal/service"
	"github.com/spec-kit/asset-marketplace/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	staticGate := auth.NewStaticGate(map[domain.Capability][]domain.Identity{
		domain.CapabilityMinter: normalizeAll(cfg.Market.MinterIdentities),
		domain.CapabilityAdmin:  normalizeAll(cfg.Market.AdminIdentities),
	})
	var gate registry.Gate = staticGate

	deps := service.MarketplaceDependencies{
		MaxAssetsPerHolder: cfg.Market.MaxAssetsPerHolder,
		Treasury:           domain.NormalizeIdentity(cfg.Market.TreasuryIdentity),
		Logger:             logger,
	}

	checks := map[string]handlers.DependencyCheck{}
	if pool := pg.PoolHandle(); pool != nil {
		ledgerRepo := repository.NewLedgerRepository(pool)
		snapshot, err := ledgerRepo.Load(ctx)
		if err != nil {
			logger.Fatal("failed to load registry state", zap.Error(err))
		}
		deps.Store = ledgerRepo
		deps.Snapshot = &snapshot
		gate = auth.NewRepositoryGate(repository.NewCapabilityRepository(pool), staticGate, logger)
		checks["postgres"] = pg.Ping
	}
	deps.Gate = gate

	switch cfg.Payment.Backend {
	case config.PaymentBackendRedis:
		if !redis.Enabled() {
			logger.Fatal("PAYMENT_BACKEND=redis requires REDIS_ADDR")
		}
		ledger := payment.NewRedisLedger(redis.Client)
		for identity, amount := range cfg.Payment.InitialBalances {
			if err := ledger.Credit(ctx, domain.NormalizeIdentity(identity), amount); err != nil {
				logger.Fatal("failed to seed balance", zap.String("identity", identity), zap.Error(err))
			}
		}
		deps.Payments = ledger
	default:
		initial := make(map[domain.Identity]uint64, len(cfg.Payment.InitialBalances))
		for identity, amount := range cfg.Payment.InitialBalances {
			initial[domain.NormalizeIdentity(identity)] = amount
		}
		deps.Payments = payment.NewMemoryLedger(initial)
	}

	dispatcher := events.NewInMemoryDispatcher()
	deps.Dispatcher = dispatcher
	var publisher service.Publisher
	if redis.Enabled() {
		publisher = redis.Client
		checks["redis"] = redis.Ping
	}
	notifications := worker.StartNotificationWorker(
		dispatcher,
		service.NewNotificationService(publisher, logger, cfg.Notification),
		logger,
		cfg.Notification.Workers,
		cfg.Notification.QueueSize,
	)

	metrics := observability.NewMetrics()
	deps.Recorder = metrics

	market, err := service.NewMarketplaceService(deps)
	if err != nil {
		logger.Fatal("failed to build marketplace", zap.Error(err))
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes, auth.WithIssuer(cfg.Auth.Issuer))
	authMiddleware := auth.NewAuthMiddleware(tokens)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, checks, metrics),
		Users:          handlers.NewUsersHandler(market),
		Assets:         handlers.NewAssetsHandler(market),
		Market:         handlers.NewMarketHandler(market),
		AuthMiddleware: authMiddleware,
		Gate:           gate,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.Shutdown(); err != nil {
		logger.Warn("fiber shutdown", zap.Error(err))
	}

	stopCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := notifications.Stop(stopCtx); err != nil {
		logger.Warn("notification worker did not drain", zap.Error(err))
	}
}

func normalizeAll(raw []string) []domain.Identity {
	out := make([]domain.Identity, 0, len(raw))
	for _, r := range raw {
		out = append(out, domain.NormalizeIdentity(r))
	}
	return out
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
