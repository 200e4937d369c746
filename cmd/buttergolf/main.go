package main

import (
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"

	"buttergolf/internal/auth"
	"buttergolf/internal/config"
	"buttergolf/internal/http/handlers"
	applog "buttergolf/internal/log"
	"buttergolf/internal/metrics"
	"buttergolf/internal/notify"
	"buttergolf/internal/payments"
	"buttergolf/internal/pubsub"
	"buttergolf/internal/repos"
	"buttergolf/internal/services"
	"buttergolf/internal/shipping"
)

func main() {
	cfg := config.Load()
	applog.SetLevel(cfg.LogLevel)

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			mw := io.MultiWriter(os.Stdout, f)
			log.SetOutput(mw)
			applog.SetOutput(mw)
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	// Integrations
	tokens, err := auth.NewVerifier(cfg.AuthPublicKey, cfg.AuthIssuer)
	if err != nil {
		log.Fatalf("[auth] public key: %v", err)
	}
	clerk, err := auth.NewWebhookVerifier(cfg.ClerkWebhookSecret)
	if err != nil {
		log.Fatalf("[auth] webhook secret: %v", err)
	}
	broker, err := pubsub.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("[pubsub] %v", err)
	}
	var gateway handlers.Gateway = payments.Disabled{}
	if cfg.StripeSecretKey != "" {
		gateway = payments.NewStripe(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	} else {
		log.Printf("[warn] STRIPE_SECRET_KEY not set, payment endpoints will answer 503")
	}
	userRepo := repos.NewUserRepo(db)
	var notifier services.Notifier = notify.Nop{}
	if cfg.PushRelayURL != "" {
		expo := notify.NewExpo(cfg.PushRelayURL, cfg.PushRatePerSec)
		expo.Forget = func(userID string) error { return userRepo.SetPushToken(userID, "") }
		notifier = expo
	}

	deps := handlers.NewDeps(db, cfg, handlers.Integrations{
		Payments: gateway,
		Notifier: notifier,
		Broker:   broker,
		Tracker:  shipping.NewTracker(cfg.TrackingAPIURL, cfg.TrackingAPIKey),
		Tokens:   tokens,
		Clerk:    clerk,
		APIKey:   auth.NewAPIKey(cfg.AdminAPIKeyHash),
	})

	app := newServer(cfg, deps)

	if err := deps.Jobs.Start(cfg.JobsSchedule); err != nil {
		log.Fatalf("[jobs] schedule %q: %v", cfg.JobsSchedule, err)
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Printf("[server] shutting down")
		deps.Jobs.Stop()
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}

// newServer assembles the middleware chain and routes. Metrics sit right
// behind requestid so rejections further down are counted too.
func newServer(cfg config.Config, deps *handlers.Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		Views:        html.New(cfg.Templates, ".html"),
		BodyLimit:    1 << 20, // 1 MiB
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(requestid.New())
	app.Use(metrics.Middleware())
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.Origins(),
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Csrf-Token",
		ExposeHeaders: "X-Request-Id",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			p := c.Path()
			return p == "/healthz" || p == "/metrics"
		},
	}))
	// Only cookie sessions need CSRF; mobile clients send bearer tokens.
	app.Use(handlers.CSRF())

	handlers.Register(app, deps)
	return app
}
