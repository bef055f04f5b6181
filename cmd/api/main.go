package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/encounter-engine/internal/config"
	"github.com/jwebster45206/encounter-engine/internal/handlers"
	"github.com/jwebster45206/encounter-engine/internal/logger"
	"github.com/jwebster45206/encounter-engine/internal/middleware"
	"github.com/jwebster45206/encounter-engine/internal/observe"
	"github.com/jwebster45206/encounter-engine/internal/persist"
	"github.com/jwebster45206/encounter-engine/internal/storage"
	"github.com/jwebster45206/encounter-engine/pkg/dice"
	"github.com/jwebster45206/encounter-engine/pkg/encounter"
	"github.com/jwebster45206/encounter-engine/pkg/scenario"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Encounter Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"storage", cfg.StorageBackend,
		"scenario", cfg.ScenarioPath)

	mp, metricsHandler, err := observe.InitProvider()
	if err != nil {
		log.Error("Failed to initialise metrics", "error", err)
		os.Exit(1)
	}
	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		log.Error("Failed to create metrics", "error", err)
		os.Exit(1)
	}

	sc, err := scenario.Load(cfg.ScenarioPath)
	if err != nil {
		log.Error("Failed to load scenario", "error", err, "path", cfg.ScenarioPath)
		os.Exit(1)
	}
	if err := sc.Validate(); err != nil {
		log.Error("Scenario is invalid", "error", err)
		os.Exit(1)
	}

	seed := cfg.RNGSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	log.Info("Random source seeded", "seed", seed)

	engine, err := encounter.New(sc, dice.New(seed),
		encounter.WithLogger(log),
		encounter.WithEventLogger(logger.NewEventLogger(log, cfg.LogDedupInterval)),
		encounter.WithMetrics(metrics))
	if err != nil {
		log.Error("Failed to build encounter engine", "error", err)
		os.Exit(1)
	}

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	store, err := storage.New(storageCtx, cfg, log)
	if err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	session, err := persist.SessionID(cfg.SessionID, sc.ID)
	if err != nil {
		log.Error("Invalid session id", "error", err)
		os.Exit(1)
	}
	saver := persist.New(engine.Store(), store, session, cfg.SaveDebounce,
		persist.WithLogger(log),
		persist.WithOnSave(func(_ int, err error) {
			metrics.RecordSnapshotSave(context.Background(), err)
		}))
	loaded, err := saver.Load(storageCtx)
	if err != nil {
		log.Error("Failed to load saved session", "error", err, "session", session)
		os.Exit(1)
	}
	engine.Store().OnChange(saver.Notify)
	if !loaded {
		if err := saver.Flush(storageCtx); err != nil {
			log.Warn("Initial snapshot save failed", "error", err)
		}
	}
	log.Info("Session ready", "session", session, "resumed", loaded, "entities", engine.Store().Count())

	mux := http.NewServeMux()

	mux.Handle("/health", handlers.NewHealthHandler(store, engine.Store(), log))
	mux.Handle("/metrics", metricsHandler)

	entityHandler := handlers.NewEntityHandler(engine, log)
	mux.Handle("/v1/entities", entityHandler)
	mux.Handle("/v1/entities/", entityHandler)

	mux.Handle("/v1/encounters", handlers.NewEncounterHandler(engine, log))
	mux.Handle("/v1/narrative", handlers.NewNarrativeHandler(engine, log))
	mux.Handle("/v1/snapshot", handlers.NewSnapshotHandler(engine.Store(), saver, log))

	handler := middleware.Logger(log, metrics)(mux)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := saver.Close(shutdownCtx); err != nil {
		log.Error("Final snapshot save failed", "error", err)
	}
	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}
	if err := mp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down metrics", "error", err)
	}

	log.Info("Server exited")
}
