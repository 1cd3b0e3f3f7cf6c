package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/iliyamo/shop-management/internal/config"
	"github.com/iliyamo/shop-management/internal/database"
	"github.com/iliyamo/shop-management/internal/handler"
	"github.com/iliyamo/shop-management/internal/logger"
	"github.com/iliyamo/shop-management/internal/mail"
	"github.com/iliyamo/shop-management/internal/middleware"
	"github.com/iliyamo/shop-management/internal/model"
	"github.com/iliyamo/shop-management/internal/queue"
	"github.com/iliyamo/shop-management/internal/repository"
	"github.com/iliyamo/shop-management/internal/router"
	"github.com/iliyamo/shop-management/internal/service"
	"github.com/iliyamo/shop-management/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func run(cfg config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, cfg.Telemetry, cfg.Env)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.WithError(err).Warn("tracer shutdown failed")
		}
	}()

	db, err := database.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("mysql: %w", err)
	}
	defer db.Close()
	if cfg.DB.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	checks := map[string]handler.Check{"mysql": db.PingContext}

	// payments need MongoDB; without it purchases answer 500 and the
	// payment list is empty
	var payments service.PaymentStore
	if cfg.Mongo.URI != "" {
		mc, mdb, err := database.OpenMongo(ctx, cfg.Mongo)
		if err != nil {
			return fmt.Errorf("mongo: %w", err)
		}
		defer disconnectMongo(mc, log)
		repo := repository.NewPaymentRepo(mdb)
		if err := repo.EnsureIndexes(ctx); err != nil {
			log.WithError(err).Warn("payment indexes not created")
		}
		payments = repo
		checks["mongo"] = func(ctx context.Context) error { return mc.Ping(ctx, readpref.Primary()) }
	} else {
		log.Warn("MONGODB_URI not set, payments disabled")
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		log.Warn("redis unavailable, using in-process rate limiter and no response cache")
	}

	mailer := newMailer(ctx, cfg, log)

	timeout := cfg.DB.Timeout
	users := repository.NewUserRepo(db)
	shops := repository.NewShopRepo(db)
	plans := repository.NewPlanRepo(db)

	accounts := service.NewAccountService(service.AccountConfig{
		JWT:       cfg.JWT,
		ClientURL: cfg.ClientURL,
		Currency:  cfg.Payment.Currency,
	}, users, shops, repository.NewAccountRepo(db), mailer, timeout, log)
	gate := service.NewSubscriptionGate(shops, timeout, log)
	defer gate.Wait()

	catalog := make([]*handler.CatalogHandler, 0, len(model.Kinds))
	for _, k := range model.Kinds {
		svc := service.NewCatalogService(repository.NewCatalogRepo(db, k), timeout, log)
		catalog = append(catalog, handler.NewCatalogHandler(svc))
	}

	cache := middleware.NewCache(cfg.Cache, rdb, log)
	e := router.New(router.Options{
		Log:         log,
		CORSOrigins: cfg.CORSOrigins,
		RateLimit:   middleware.RateLimit(cfg.RateLimit, rdb, accounts, log),
	}, router.Handlers{
		Auth:     handler.NewAuthHandler(accounts, cfg.Cookie),
		Shops:    handler.NewShopHandler(service.NewShopService(shops, plans, timeout, log)),
		Catalog:  catalog,
		Products: handler.NewProductHandler(service.NewProductService(repository.NewProductRepo(db), timeout, log)),
		Subscriptions: handler.NewSubscriptionHandler(
			service.NewPlanService(plans, timeout, log),
			service.NewPaymentService(cfg.Payment, shops, plans, payments, timeout, log),
			cache, log,
		),
		Health: handler.NewHealthHandler(checks, 2*time.Second),
	}, router.Guards{
		Identifier: accounts,
		Gate:       gate,
		Cache:      cache,
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(sctx)
}

// newMailer queues mail through RabbitMQ when AMQP_URL is set and starts
// the consumer that delivers it; otherwise mail is sent inline.
func newMailer(ctx context.Context, cfg config.Config, log *logrus.Logger) mail.Sender {
	sender := mail.NewSender(cfg.SMTP, log)
	if cfg.AMQP.URL == "" {
		return sender
	}
	go func() {
		if err := queue.NewConsumer(cfg.AMQP, sender, cfg.SMTP.Timeout, log).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("mail consumer stopped")
		}
	}()
	return queue.NewMailer(queue.NewPublisher(cfg.AMQP, log), sender, cfg.SMTP.Timeout, log)
}

func disconnectMongo(c *mongo.Client, log *logrus.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Disconnect(ctx); err != nil {
		log.WithError(err).Warn("mongo disconnect failed")
	}
}
