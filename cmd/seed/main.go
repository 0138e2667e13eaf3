package main

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"stayhub/internal/adapters/observability"
	"stayhub/internal/app"
	"stayhub/internal/domain"
	"stayhub/internal/shared"
	mysqlrepo "stayhub/internal/storage/mysql"
)

const demoHostID = "demo-host"

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv, "seed")

	log.Info().
		Int("properties", cfg.SeedProperties).
		Int("workers", cfg.SeedWorkers).
		Msg("seeder starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	seed := app.NewSeedService(repo, repo, repo)

	if err := seed.SeedHost(ctx, domain.User{ID: demoHostID, Email: "host@stayhub.dev", DisplayName: "Demo Host"}); err != nil {
		log.Fatal().Err(err).Msg("seed host failed")
	}

	sem := semaphore.NewWeighted(int64(cfg.SeedWorkers))
	var wg sync.WaitGroup
	var failed atomic.Int64

	for i := 0; i < cfg.SeedProperties; i++ {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, int64(1)); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(int64(1))

			p, err := seed.SeedProperty(ctx, demoHostID, i)
			if err != nil {
				failed.Add(1)
				log.Warn().Int("index", i).Err(err).Msg("seed failed")
				return
			}
			log.Info().Str("id", p.ID).Str("title", p.Title).Msg("seed ok")
		}(i)
	}

	wg.Wait()
	log.Info().Int64("failed", failed.Load()).Msg("seeding completed")
}
