package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/effsweep/internal/bench"
	"github.com/RMahshie/effsweep/internal/config"
	"github.com/RMahshie/effsweep/internal/instrument"
	"github.com/RMahshie/effsweep/internal/measurement"
	"github.com/RMahshie/effsweep/internal/prompt"
	"github.com/RMahshie/effsweep/internal/repository/postgres"
	"github.com/RMahshie/effsweep/internal/storage"
	"github.com/RMahshie/effsweep/pkg/models"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	sweepCfg, err := prompt.Collect(os.Stdin, os.Stdout)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read sweep parameters")
	}

	// Ctrl-C stops the sweep at the next wait and still shuts the bench down
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := measurement.Options{
		Opener: instrument.NewManager(instrument.BusDialer{
			SerialPortPrefix: cfg.Bench.SerialPortPrefix,
			SerialBaud:       cfg.Bench.SerialBaud,
			Timeout:          cfg.Bench.IOTimeout,
		}, cfg.Bench.IOTimeout),
		Profiles:  bench.DefaultProfiles(cfg.Bench),
		Shunts:    models.Shunts{Iin: cfg.Bench.ShuntIin, Iout: cfg.Bench.ShuntIout},
		OutputDir: cfg.Bench.OutputDir,
	}

	if cfg.Database.URL != "" {
		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open database")
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		opts.Repository = postgres.NewPostgresRunRepository(db)
	}

	if cfg.AWS.S3Bucket != "" {
		store, err := storage.NewS3Service(storage.S3Config{
			Bucket:    cfg.AWS.S3Bucket,
			Endpoint:  cfg.AWS.S3Endpoint,
			Region:    cfg.AWS.Region,
			AccessKey: cfg.AWS.AccessKeyID,
			SecretKey: cfg.AWS.SecretAccessKey,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create S3 client")
		}
		opts.Store = store
	}

	run, err := measurement.NewMeasurementService(opts).Execute(ctx, sweepCfg)
	if err != nil {
		if run != nil {
			log.Error().Err(err).Str("status", run.Status).Str("path", run.OutputPath).Int("points", run.PointCount).Msg("Sweep did not complete")
		} else {
			log.Error().Err(err).Msg("Sweep rejected")
		}
		stop()
		os.Exit(1)
	}

	log.Info().Str("path", run.OutputPath).Int("points", run.PointCount).Msg("Efficiency data saved")
}
