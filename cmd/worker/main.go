// Command worker runs the asynq server that drains the deferred
// schedule-generation queue (§4.6), separate from the HTTP process so a
// burst of loan creations never blocks request latency on amortization math.
package main

import (
	"context"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/namma-finance/ledger-core/internal/config"
	"github.com/namma-finance/ledger-core/internal/jobs"
	"github.com/namma-finance/ledger-core/internal/repository/postgres"
	"github.com/namma-finance/ledger-core/internal/service"
)

const workerConcurrency = 10

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	db := postgres.New(pool)
	loanRepo := postgres.NewLoanRepo(db)
	scheduleRepo := postgres.NewScheduleRepo(db)
	scheduleService := service.NewScheduleService(loanRepo, scheduleRepo)

	srv, err := jobs.NewServer(cfg.CacheURL, workerConcurrency)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create job server")
	}
	mux := jobs.NewMux(scheduleService)

	log.Info().Int("concurrency", workerConcurrency).Msg("starting schedule-generation worker")
	if err := srv.Run(mux); err != nil {
		log.Fatal().Err(err).Msg("worker exited with error")
	}
}
