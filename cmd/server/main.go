package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telemetry-bridge/backend/internal/config"
	"telemetry-bridge/backend/internal/monitoring/errortrack"
	"telemetry-bridge/backend/internal/monitoring/tracing"
	"telemetry-bridge/backend/internal/server"
	"telemetry-bridge/backend/internal/telemetry"
	"telemetry-bridge/backend/internal/telemetry/producer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	tr, err := tracing.New(ctx, tracing.Config{
		Endpoint:       cfg.OTLPEndpoint,
		Insecure:       cfg.OTLPInsecure,
		ServiceName:    cfg.ServiceName,
		ServiceVersion: cfg.ServiceVersion,
		Environment:    cfg.Env,
		SampleRatio:    cfg.SampleRatio(),
	})
	if err != nil {
		log.Fatalf("tracing: %v", err)
	}
	tr.SetGlobal()

	et := errortrack.New(errortrack.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Env,
		Release:     cfg.ServiceVersion,
		ServerName:  cfg.ServiceName,
		SampleRatio: cfg.SampleRatio(),
	})

	var emitter telemetry.Emitter
	kafkaProducer, err := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.KafkaTopic)
	if err != nil {
		log.Fatalf("kafka producer: %v", err)
	}
	if kafkaProducer != nil {
		defer kafkaProducer.Close()
		emitter = kafkaProducer
		log.Printf("telemetry: event fan-out enabled (topic %s)", cfg.KafkaTopic)
	}

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: server.NewHandler(server.Deps{
			Tracing:    tr,
			ErrorTrack: et,
			Emitter:    emitter,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}

	// Let in-flight async emits finish before tearing down telemetry.
	time.Sleep(telemetry.ShutdownDrainDuration)

	if !et.Flush(2 * time.Second) {
		log.Println("errortrack: flush timed out")
	}
	if err := tr.Shutdown(shutdownCtx); err != nil {
		log.Printf("tracing shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}
