package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"mindvibe/internal/cart"
	"mindvibe/internal/config"
	"mindvibe/internal/database"
	"mindvibe/internal/handlers"
	"mindvibe/internal/logger"
	"mindvibe/internal/repositories"
	"mindvibe/internal/services"
	"mindvibe/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// application holds everything main starts and must later stop.
type application struct {
	cfg       *config.Config
	log       *zap.Logger
	db        *gorm.DB
	rdb       *redis.Client
	mq        *rabbitmq.Client
	app       *fiber.App
	sweeper   *services.ExpirySweeper
	consume   func() error
	stopSweep func(context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	a, err := newApplication(context.Background(), cfg, log)
	if err != nil {
		log.Fatal("failed to initialize application", zap.Error(err))
	}
	if err := a.startWorkers(); err != nil {
		log.Fatal("failed to start workers", zap.Error(err))
	}

	go func() {
		log.Info("server starting", zap.String("addr", cfg.AppPort))
		if err := a.app.Listen(cfg.AppPort); err != nil {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.shutdown(ctx); err != nil {
		log.Error("shutdown finished with errors", zap.Error(err))
	}
	log.Info("server exited")
}

// newApplication connects to every configured backend and builds the HTTP
// app. Redis and RabbitMQ are optional: without them carts live in memory
// and order events are not published.
func newApplication(ctx context.Context, cfg *config.Config, log *zap.Logger) (*application, error) {
	a := &application{cfg: cfg, log: log}

	db, err := database.Initialize(cfg.DatabaseDriver, cfg.DatabaseDSN, gormLogLevel(cfg.LogLevel))
	if err != nil {
		return nil, err
	}
	a.db = db
	log.Info("database ready", zap.String("driver", cfg.DatabaseDriver))

	categoryRepo := repositories.NewGORMCategoryRepository(db)
	outfitRepo := repositories.NewGORMOutfitRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)
	uow := repositories.NewGORMUnitOfWork(db)

	var store cart.Store = cart.NewMemoryStore()
	if cfg.RedisURL != "" {
		rdb, err := cart.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			_ = a.closeBackends()
			return nil, err
		}
		a.rdb = rdb
		store = cart.NewRedisStore(rdb, cfg.CartTTL)
		log.Info("carts stored in redis")
	} else {
		log.Warn("REDIS_URL not set, carts are kept in memory")
	}

	var publisher services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, log)
		if err != nil {
			_ = a.closeBackends()
			return nil, err
		}
		a.mq = mq
		publisher = mq
	} else {
		log.Warn("RABBITMQ_URL not set, order events are not published")
	}

	availability := services.NewAvailabilityService(orderRepo, services.SingleUnit{})
	authService := services.NewAuthService(userRepo, cfg.JWTSecret, log)
	catalogService := services.NewCatalogService(categoryRepo, outfitRepo, orderRepo, availability, log)
	cartService := services.NewCartService(store, outfitRepo, log)
	checkoutService := services.NewCheckoutService(uow, outfitRepo, store, availability, publisher, log,
		services.WithDefaultShippingCost(cfg.DefaultShippingCost))
	orderService := services.NewOrderService(uow, orderRepo, availability, publisher, log)

	if cfg.SweeperEnabled() {
		a.sweeper = services.NewExpirySweeper(orderService, cfg.PendingOrderTTL, cfg.SweepInterval, log)
	}

	a.app = handlers.NewApp(handlers.Services{
		Auth:     authService,
		Catalog:  catalogService,
		Carts:    cartService,
		Checkout: checkoutService,
		Orders:   orderService,
		Media:    handlers.NewMediaStore(cfg.MediaRoot),
		CartTTL:  cfg.CartTTL,
		Log:      log,
		Health:   a.health,
	}, true)

	if a.mq != nil {
		consumer := handlers.NewPaymentResultConsumer(orderService, log)
		a.consume = func() error { return a.mq.Consume(rabbitmq.PaymentResultsQueue, consumer.Handle) }
	}
	return a, nil
}

// startWorkers begins consuming gateway results and sweeping stale orders.
func (a *application) startWorkers() error {
	if a.consume != nil {
		if err := a.consume(); err != nil {
			return err
		}
	}
	if a.sweeper != nil {
		a.stopSweep = a.sweeper.Start()
		a.log.Info("pending order sweeper started",
			zap.Duration("ttl", a.cfg.PendingOrderTTL),
			zap.Duration("interval", a.cfg.SweepInterval))
	}
	return nil
}

func (a *application) health() fiber.Map {
	status := fiber.Map{"database": "up", "redis": "disabled", "rabbitmq": "disabled"}
	if sqlDB, err := a.db.DB(); err != nil || sqlDB.Ping() != nil {
		status["database"] = "down"
	}
	if a.rdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		status["redis"] = "up"
		if err := a.rdb.Ping(ctx).Err(); err != nil {
			status["redis"] = "down"
		}
	}
	if a.mq != nil {
		status["rabbitmq"] = "up"
		if !a.mq.Healthy() {
			status["rabbitmq"] = "down"
		}
	}
	return status
}

// shutdown stops the HTTP server first so no request races the backends
// being closed.
func (a *application) shutdown(ctx context.Context) error {
	var errs []error
	if a.app != nil {
		if err := a.app.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("fiber shutdown: %w", err))
		}
	}
	if a.stopSweep != nil {
		if err := a.stopSweep(ctx); err != nil {
			errs = append(errs, fmt.Errorf("sweeper stop: %w", err))
		}
	}
	if err := a.closeBackends(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *application) closeBackends() error {
	var errs []error
	if a.mq != nil {
		if err := a.mq.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("database close: %w", err))
			}
		}
	}
	return errors.Join(errs...)
}

// gormLogLevel maps the application log level onto GORM's SQL logger.
func gormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return gormlogger.Info
	case "warn", "error":
		return gormlogger.Error
	default:
		return gormlogger.Warn
	}
}
