package config

import (
	"errors"
	"log"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string `env:"PORT,default=8080"`
	DBDSN       string `env:"DB_DSN,default=buttergolf.db"`
	LogFile     string `env:"LOG_FILE"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`
	PublicURL   string `env:"PUBLIC_URL,default=http://localhost:8080"`
	CORSOrigins string `env:"CORS_ORIGINS,default=*"`
	Templates   string `env:"TEMPLATES_DIR,default=./web/templates"`
	AppScheme   string `env:"APP_SCHEME,default=buttergolf"`

	// Auth provider
	AuthPublicKey      string `env:"AUTH_PUBLIC_KEY"`
	AuthIssuer         string `env:"AUTH_ISSUER"`
	ClerkWebhookSecret string `env:"CLERK_WEBHOOK_SECRET"`

	// Payments
	StripeSecretKey     string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	PlatformFeeBPS      int    `env:"PLATFORM_FEE_BPS,default=500"`
	Currency            string `env:"CURRENCY,default=gbp"`

	// Live delivery + notifications
	RedisURL       string  `env:"REDIS_URL"`
	PushRelayURL   string  `env:"PUSH_RELAY_URL,default=https://exp.host/--/api/v2/push/send"`
	PushRatePerSec float64 `env:"PUSH_RATE_PER_SEC,default=10"`

	// Shipping
	TrackingAPIURL string `env:"TRACKING_API_URL"`
	TrackingAPIKey string `env:"TRACKING_API_KEY"`

	CloudinaryURL string `env:"CLOUDINARY_URL"`

	// Internal ops
	AdminAPIKeyHash string `env:"ADMIN_API_KEY_HASH"`
	HoldReleaseDays int    `env:"HOLD_RELEASE_DAYS,default=7"`
	OfferTTLHours   int    `env:"OFFER_TTL_HOURS,default=48"`
	JobsSchedule    string `env:"JOBS_SCHEDULE,default=@every 15m"`
}

// Origins splits CORS_ORIGINS into the comma-joined form fiber's cors middleware expects.
func (c Config) Origins() string {
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return "*"
	}
	return strings.Join(out, ",")
}

func Load() Config {
	// .env is optional; real deployments inject the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("[config] no .env loaded: %v", err)
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		log.Fatalf("[config] decode env: %v", err)
	}
	if cfg.PlatformFeeBPS < 0 || cfg.PlatformFeeBPS > 10000 {
		log.Printf("[warn] PLATFORM_FEE_BPS=%d out of range, using 500", cfg.PlatformFeeBPS)
		cfg.PlatformFeeBPS = 500
	}

	log.Printf("[config] PORT=%s DB_DSN=%s LOG_FILE=%s REDIS=%t STRIPE=%t PUSH=%s",
		cfg.Port, redactDSN(cfg.DBDSN), cfg.LogFile, cfg.RedisURL != "", cfg.StripeSecretKey != "", cfg.PushRelayURL)
	return cfg
}

func redactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	return dsn[:scheme+3] + "***" + dsn[at:]
}
