// server runs the multi-tenant API gateway.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	cachepkg "tenant-gateway/internal/cache"
	"tenant-gateway/internal/config"
	"tenant-gateway/internal/db"
	"tenant-gateway/internal/server"
	"tenant-gateway/internal/telemetry"
	telemetryotel "tenant-gateway/internal/telemetry/otel"
	"tenant-gateway/internal/telemetry/producer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	var (
		cache       cachepkg.Cache
		redisClient *redis.Client
	)
	switch cfg.CacheDriver {
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis ping: %v", err)
		}
		defer redisClient.Close()
		cache = cachepkg.NewRedis(redisClient)
	default:
		mem := cachepkg.NewMemory()
		defer mem.Close()
		cache = mem
	}

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, "tenant-gateway", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	emitter := telemetryotel.NewEventEmitter(providers.LoggerProvider)

	kafkaProducer, err := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.KafkaTopic)
	if err != nil {
		log.Fatalf("kafka: %v", err)
	}
	if kafkaProducer != nil {
		defer kafkaProducer.Close()
	}

	sinkEmitters := []telemetry.EventEmitter{emitter}
	if kafkaProducer != nil {
		sinkEmitters = append(sinkEmitters, kafkaProducer)
	}
	sink := telemetry.NewAuditSink(sinkEmitters...)

	handler, err := server.NewHandler(ctx, server.Deps{
		Cfg:     cfg,
		DB:      conn,
		Cache:   cache,
		Redis:   redisClient,
		Emitter: emitter,
		Sink:    sink,
	})
	if err != nil {
		log.Fatalf("server: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("gateway listening on %s (cache driver %s)", cfg.HTTPAddr, cfg.CacheDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}

	// Let in-flight async telemetry emits finish before the providers go away.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("telemetry shutdown: %v", err)
	}
	log.Println("gateway stopped")
}
