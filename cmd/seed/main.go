package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"validationlake/internal/config"
	"validationlake/internal/infrastructure/database"
	"validationlake/internal/infrastructure/logger"
	"validationlake/internal/repository"
	"validationlake/internal/seed"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	total := flag.Int("n", 100000, "number of records to insert")
	seedValue := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)
	loc, err := cfg.App.Location()
	if err != nil {
		log.WithError(err).Fatal("invalid app.timezone")
	}

	ctx := context.Background()
	db, err := database.Open(ctx, cfg.Database, loc, log)
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}

	start := time.Now()
	n, err := seed.Populate(ctx, repository.NewRecordRepository(db), seed.NewGenerator(*seedValue, nil), *total, log)
	if err != nil {
		log.WithError(err).WithField("written", n).Fatal("seeding failed")
	}
	log.WithFields(logrus.Fields{"written": n, "took": time.Since(start).String()}).Info("seeding done")
}
