package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"stayhub/internal/adapters/email"
	server "stayhub/internal/adapters/http_server"
	"stayhub/internal/adapters/observability"
	redisad "stayhub/internal/adapters/redis"
	"stayhub/internal/adapters/stripepay"
	"stayhub/internal/adapters/uploadthing"
	"stayhub/internal/app"
	"stayhub/internal/domain"
	"stayhub/internal/shared"
	mysqlrepo "stayhub/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "api")

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	files, err := uploadthing.New(cfg.UploadthingBase, cfg.UploadthingKey, 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Uploadthing client")
	}
	payments := stripepay.New(cfg.StripeSecretKey, cfg.StripeWebhookSecret)

	var sender domain.EmailSender
	if cfg.SendgridAPIKey != "" {
		sg, err := email.NewSendGrid(email.Config{
			APIKey:   cfg.SendgridAPIKey,
			From:     cfg.EmailFrom,
			FromName: cfg.EmailFromName,
			Sandbox:  cfg.AppEnv != "prod",
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize SendGrid")
		}
		sender = sg
	} else {
		log.Warn().Msg("confirmation emails disabled")
	}
	notifier := app.NewNotifier(sender, cfg.EmailWorkers, 15*time.Second)

	avail := app.NewAvailabilityChecker(repo)
	bookings := app.NewBookingService(repo, repo, payments)
	handlers := &server.Handlers{
		Properties:   app.NewPropertyService(repo, cache, files, cfg.CacheTTL),
		Availability: avail,
		Bookings:     bookings,
		Checkout: app.NewCheckoutService(app.CheckoutDeps{
			Properties:   repo,
			Bookings:     repo,
			Availability: avail,
			BookingSvc:   bookings,
			Payments:     payments,
			Drafts:       cache,
			Notifier:     notifier,
			AppURL:       cfg.AppURL,
			DraftTTL:     cfg.DraftTTL,
			PendingTTL:   cfg.PendingTTL,
		}),
		Users:    app.NewUserService(repo),
		Files:    files,
		Payments: payments,
	}

	// pending bookings that never reach payment give their nights back
	sweeper := app.NewSweeper(repo, cfg.PendingTTL)
	sched := cron.New(cron.WithLocation(time.UTC))
	if _, err := sched.AddFunc(cfg.SweepCron, sweeper.Run); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.SweepCron).Msg("invalid sweep schedule")
	}
	sched.Start()

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(handlers)

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	<-sched.Stop().Done()
	notifier.Wait()
	if err := cache.Close(); err != nil {
		log.Warn().Err(err).Msg("redis close failed")
	}
	if err := db.Close(); err != nil {
		log.Warn().Err(err).Msg("db close failed")
	}
}
