// Worker consumes telemetry events from Kafka and fans them out to Loki and,
// when DATABASE_URL is set, the Postgres event store.
// Set KAFKA_BROKERS, TELEMETRY_KAFKA_TOPIC, KAFKA_GROUP_ID, and LOKI_URL.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"telemetry-bridge/backend/internal/config"
	"telemetry-bridge/backend/internal/db"
	"telemetry-bridge/backend/internal/telemetry/domain"
	"telemetry-bridge/backend/internal/telemetry/loki"
	"telemetry-bridge/backend/internal/telemetry/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal("worker: KAFKA_BROKERS is required")
	}
	if cfg.LokiURL == "" {
		log.Fatal("worker: LOKI_URL is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var repo repository.Repository
	if cfg.DatabaseURL != "" {
		pool, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("worker: database: %v", err)
		}
		defer pool.Close()
		repo = repository.NewPostgresRepository(pool)
		log.Println("worker: event persistence enabled")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaGroupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
	defer reader.Close()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("worker: shutting down...")
		cancel()
	}()

	log.Printf("worker: consuming from %s (group %s), pushing to %s", cfg.KafkaTopic, cfg.KafkaGroupID, cfg.LokiURL)

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

		fanOutCtx, fanOutCancel := context.WithTimeout(ctx, 10*time.Second)
		if err := loki.PushEventJSON(fanOutCtx, cfg.LokiURL, msg.Value); err != nil {
			log.Printf("worker: loki push failed: %v", err)
		}
		if repo != nil {
			var event domain.Event
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				log.Printf("worker: unparseable event, skipping persistence: %v", err)
			} else if err := repo.Save(fanOutCtx, &event); err != nil {
				log.Printf("worker: event save failed: %v", err)
			}
		}
		fanOutCancel()
	}
}
