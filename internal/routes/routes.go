package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/pdavault/internal/auth"
	"github.com/congo-pay/pdavault/internal/config"
	"github.com/congo-pay/pdavault/internal/derive"
	"github.com/congo-pay/pdavault/internal/funding"
	"github.com/congo-pay/pdavault/internal/ledger"
	"github.com/congo-pay/pdavault/internal/metrics"
	"github.com/congo-pay/pdavault/internal/middleware"
	"github.com/congo-pay/pdavault/internal/notification"
	"github.com/congo-pay/pdavault/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Logger   *slog.Logger
	Registry *prometheus.Registry
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)
	RegisterMetricsRoute(app, d.Registry)

	// Services and handlers
	var store ledger.Store
	if d.DB != nil {
		store = ledger.NewPostgresStore(d.DB)
	} else {
		store = ledger.NewInMemory()
	}

	deriver, err := derive.New(d.Cfg.ProgramID, []byte(d.Cfg.AccountSeed))
	if err != nil {
		return fmt.Errorf("account deriver: %w", err)
	}
	m := metrics.New(d.Registry)

	walletSvc := wallet.NewService(store, deriver, wallet.Options{
		Reserve:  d.Cfg.ReserveLamports,
		Notifier: notification.NewLoggerNotifier(d.Logger),
		Metrics:  m,
		Logger:   d.Logger,
	})
	fundingSvc, err := funding.NewService(store, funding.StaticFaucet{}, funding.Options{
		Enabled:     d.Cfg.AirdropEnabled,
		MaxLamports: d.Cfg.AirdropMaxLamports,
		Metrics:     m,
		Logger:      d.Logger,
	})
	if err != nil {
		return err
	}

	walletHandler := wallet.NewHandler(walletSvc, auth.NewVerifier(d.Cfg.SignatureMaxAge))
	fundingHandler := funding.NewHandler(fundingSvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals(middleware.RequestIDHeader).(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	var mutations []fiber.Handler
	if d.Cache != nil {
		mutations = append(mutations,
			middleware.OwnerRateLimit(d.Cache, d.Cfg.OwnerRateLimit),
			middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger),
		)
	}
	RegisterWalletRoutes(api, walletHandler, mutations...)
	RegisterFundingRoutes(api, fundingHandler)

	return nil
}
