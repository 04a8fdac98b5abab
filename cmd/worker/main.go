// worker runs the gateway's background jobs: it consumes gateway events from
// Kafka and pushes them to Loki, and periodically purges expired sessions.
// Set KAFKA_BROKERS, TELEMETRY_KAFKA_TOPIC, KAFKA_GROUP_ID, and LOKI_URL for
// the event pipeline; DATABASE_URL for the session sweeper.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"tenant-gateway/internal/config"
	"tenant-gateway/internal/db"
	sessionrepo "tenant-gateway/internal/session/repository"
	"tenant-gateway/internal/telemetry/loki"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("worker: shutting down...")
		cancel()
	}()

	if cfg.DatabaseURL != "" {
		conn, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("worker: db: %v", err)
		}
		defer conn.Close()
		go sweepSessions(ctx, sessionrepo.NewPostgresRepository(conn), cfg.SweepInterval())
	} else {
		log.Println("worker: DATABASE_URL not set; session sweeper disabled")
	}

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 || cfg.LokiURL == "" {
		log.Println("worker: KAFKA_BROKERS or LOKI_URL not set; event pipeline disabled")
		<-ctx.Done()
		log.Println("worker: stopped")
		return
	}

	groupID := cfg.KafkaGroupID
	if groupID == "" {
		groupID = "gateway-events-worker"
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
	defer reader.Close()

	log.Printf("worker: consuming from %s (group %s), pushing to %s", cfg.KafkaTopic, groupID, cfg.LokiURL)

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("worker: stopped")
				return
			}
			log.Printf("worker: kafka read error: %v", err)
			continue
		}

		pushCtx, pushCancel := context.WithTimeout(ctx, 10*time.Second)
		if err := loki.PushEventJSON(pushCtx, cfg.LokiURL, msg.Value); err != nil {
			log.Printf("worker: loki push failed: %v", err)
		}
		pushCancel()
	}
}

// sweepSessions purges expired session rows on a fixed interval.
func sweepSessions(ctx context.Context, repo sessionrepo.Repository, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.DeleteExpired(ctx, time.Now().UTC())
			if err != nil {
				log.Printf("worker: session sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("worker: purged %d expired sessions", n)
			}
		}
	}
}
