// Command billingd runs the subscription billing service: it mirrors Iugu
// subscriptions into PostgreSQL and receives gateway webhooks.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/iugukit/pkg/billing"
	"github.com/dmitrymomot/iugukit/pkg/billing/postgres"
	"github.com/dmitrymomot/iugukit/pkg/config"
	"github.com/dmitrymomot/iugukit/pkg/httpserver"
	"github.com/dmitrymomot/iugukit/pkg/iugu"
	"github.com/dmitrymomot/iugukit/pkg/logger"
	"github.com/dmitrymomot/iugukit/pkg/pg"
)

// redisConfig is optional: without an address the service falls back to the
// in-process transition lock and skips webhook deduplication.
type redisConfig struct {
	Addr       string        `env:"REDIS_ADDR"`
	Password   string        `env:"REDIS_PASSWORD"`
	DB         int           `env:"REDIS_DB" envDefault:"0"`
	LockTTL    time.Duration `env:"REDIS_LOCK_TTL" envDefault:"30s"`
	WebhookTTL time.Duration `env:"REDIS_WEBHOOK_TTL" envDefault:"24h"`
}

func main() {
	var logCfg logger.Config
	config.MustLoad(&logCfg)
	log := logger.New(logCfg, logger.WithAttr(slog.String("app", "billingd")))

	if err := run(context.Background(), log); err != nil {
		log.Error("service stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger) error {
	var (
		pgCfg    pg.Config
		iuguCfg  iugu.Config
		storeCfg postgres.Config
		httpCfg  httpserver.Config
		redisCfg redisConfig
	)
	config.MustLoad(&pgCfg)
	config.MustLoad(&iuguCfg)
	config.MustLoad(&storeCfg)
	config.MustLoad(&httpCfg)
	config.MustLoad(&redisCfg)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}

	gateway, err := iugu.New(iuguCfg)
	if err != nil {
		return err
	}

	store := postgres.New(pool, storeCfg)

	svcOpts := []billing.ServiceOption{billing.WithLogger(log)}
	webhookOpts := []billing.WebhookOption{billing.WithWebhookLogger(log)}

	if redisCfg.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		defer rdb.Close()

		svcOpts = append(svcOpts, billing.WithLocker(billing.NewRedisLocker(rdb, redisCfg.LockTTL, 0)))
		webhookOpts = append(webhookOpts, billing.WithDeduper(billing.NewRedisDeduper(rdb, redisCfg.WebhookTTL)))
		log.InfoContext(ctx, "redis attached", "addr", redisCfg.Addr)
	}

	svc := billing.NewService(gateway, store, store, svcOpts...)
	receiver := billing.NewWebhookReceiver(svc, webhookOpts...)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Method(http.MethodPost, "/webhooks/iugu", receiver)

	return httpserver.New(httpCfg, log).Run(ctx, router)
}
