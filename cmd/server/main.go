package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"validationlake/internal/config"
	"validationlake/internal/handler"
	"validationlake/internal/infrastructure/cache"
	"validationlake/internal/infrastructure/database"
	"validationlake/internal/infrastructure/lock"
	"validationlake/internal/infrastructure/logger"
	"validationlake/internal/infrastructure/mq"
	"validationlake/internal/job"
	"validationlake/internal/repository"
	"validationlake/internal/service"
	"validationlake/pkg/idgen"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		var cfgErr *config.ConfigurationError
		if errors.As(err, &cfgErr) {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", cfgErr)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "fatal: load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log)

	if err := idgen.Init(cfg.App.WorkerID); err != nil {
		log.WithError(err).Fatal("invalid app.worker_id")
	}
	loc, err := cfg.App.Location()
	if err != nil {
		log.WithError(err).Fatal("invalid app.timezone")
	}
	log.WithFields(logrus.Fields{
		"app":         cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
		"timezone":    loc.String(),
	}).Info("starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.Open(ctx, cfg.Database, loc, log)
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}

	// dashboard cache: redis when enabled and reachable, in-process otherwise
	var (
		dashCache   cache.Cache
		redisClient *redis.Client
	)
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis, log)
		if err != nil {
			log.WithError(err).Warn("redis unavailable, using in-process cache")
		} else {
			defer redisClient.Close()
			dashCache = cache.NewRedisCache(redisClient, "vlake:")
		}
	}
	if dashCache == nil {
		dashCache = cache.NewMemoryCache(cfg.Cache.Size, cfg.Cache.TTL)
	}

	eventTopic := ""
	if cfg.Kafka.Enabled {
		producer, err := mq.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.WithError(err).Fatal("kafka unavailable")
		}
		defer producer.Close()
		eventTopic = cfg.Kafka.Topic.RecordCreated

		var locker job.Locker
		if redisClient != nil {
			locker = lock.NewJobLock(redisClient, "outbox-sender", idgen.InstanceID(), 30*time.Second)
		}
		sender := job.NewOutboxSender(db, producer, locker, cfg.Outbox, log)
		go sender.Start(ctx)

		purge := job.NewOutboxPurgeJob(db, cfg.Outbox, log)
		go purge.Start(ctx)
	}

	records := service.NewRecordService(db, eventTopic, log)
	dashboard := service.NewDashboardService(repository.NewRecordRepository(db).WithLocation(loc), dashCache, cfg.Cache.TTL, log)
	h := handler.NewHandler(records, dashboard, handler.Options{
		AppName:  cfg.App.Name,
		Version:  cfg.App.Version,
		Location: loc,
	}, log)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handler.SetupRouter(h, cfg.Auth.APIKey, log)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown incomplete")
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("bye")
}
