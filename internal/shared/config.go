package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	CacheTTL    time.Duration
	DraftTTL    time.Duration
	AppURL      string

	StripeSecretKey     string
	StripeWebhookSecret string
	SendgridAPIKey      string
	EmailFrom           string
	EmailFromName       string
	EmailWorkers        int
	UploadthingBase     string
	UploadthingKey      string

	PendingTTL time.Duration
	SweepCron  string

	SeedProperties int
	SeedWorkers    int
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/stayhub?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),
		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,
		DraftTTL:    time.Duration(atoi("DRAFT_TTL_SECONDS", 3600)) * time.Second,
		AppURL:      env("APP_URL", "http://localhost:3000"),

		StripeSecretKey:     env("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: env("STRIPE_WEBHOOK_SECRET", ""),
		SendgridAPIKey:      env("SENDGRID_API_KEY", ""),
		EmailFrom:           env("EMAIL_FROM", "noreply@stayhub.dev"),
		EmailFromName:       env("EMAIL_FROM_NAME", "StayHub"),
		EmailWorkers:        atoi("EMAIL_WORKERS", 4),
		UploadthingBase:     env("UPLOADTHING_BASE_URL", "https://api.uploadthing.com"),
		UploadthingKey:      env("UPLOADTHING_API_KEY", ""),

		PendingTTL: time.Duration(atoi("PENDING_TTL_MINUTES", 60)) * time.Minute,
		SweepCron:  env("SWEEP_CRON", "@every 5m"),

		SeedProperties: atoi("SEED_PROPERTIES", 24),
		SeedWorkers:    atoi("SEED_WORKERS", 4),
	}
	// a hosted checkout lives 30 min to 24 h and must close before the sweeper releases the booking
	switch {
	case c.PendingTTL < 30*time.Minute:
		log.Warn().Dur("pending_ttl", c.PendingTTL).Msg("PENDING_TTL_MINUTES raised to 30")
		c.PendingTTL = 30 * time.Minute
	case c.PendingTTL > 24*time.Hour:
		log.Warn().Dur("pending_ttl", c.PendingTTL).Msg("PENDING_TTL_MINUTES lowered to 1440")
		c.PendingTTL = 24 * time.Hour
	}
	if c.StripeSecretKey == "" {
		log.Warn().Msg("STRIPE_SECRET_KEY is empty")
	}
	if c.SendgridAPIKey == "" {
		log.Warn().Msg("SENDGRID_API_KEY is empty")
	}
	if c.UploadthingKey == "" {
		log.Warn().Msg("UPLOADTHING_API_KEY is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
