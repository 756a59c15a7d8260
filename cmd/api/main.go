package main

import (
	"context"
	"log"
	"time"

	"doodhly-fieldops/internal/core/config"
	"doodhly-fieldops/internal/core/kv"
	"doodhly-fieldops/internal/core/logger"
	"doodhly-fieldops/internal/core/server"
	livehandler "doodhly-fieldops/internal/features/live/handler"
	livehub "doodhly-fieldops/internal/features/live/hub"
	routinghandler "doodhly-fieldops/internal/features/routing/handler"
	routingservice "doodhly-fieldops/internal/features/routing/service"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
	)

	// Initialize the durable store and verify connectivity.
	store, err := kv.NewRedisStore(cfg.Redis.URL)
	if err != nil {
		l.Fatal("Failed to create Redis store", zap.Error(err))
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		l.Fatal("Redis health check failed", zap.Error(err))
	}
	l.Info("Redis connection verified")

	// Initialize Route Sequencing Service & Handler.
	schedule := routingservice.Schedule{
		InitialTemp: cfg.Annealing.InitialTemp,
		CoolingRate: cfg.Annealing.CoolingRate,
		MinTemp:     cfg.Annealing.MinTemp,
	}
	routeTTL := time.Duration(cfg.Redis.RouteTTLHours) * time.Hour
	routeService := routingservice.NewRouteService(schedule, store, routeTTL)
	routeHandler := routinghandler.NewRouteHandler(routeService)

	// Initialize Live Position Relay.
	hub := livehub.New()
	wsHandler := livehandler.NewWSHandler(hub)

	srv := server.New(cfg)

	// Register Routes
	srv.App.Post("/routes/optimize", routeHandler.Optimize)
	srv.App.Get("/routes/:partnerId", routeHandler.GetRunSheet)
	srv.App.Use("/ws/track", wsHandler.UpgradeRequired)
	srv.App.Get("/ws/track", wsHandler.Track())

	if err := srv.Run(); err != nil {
		l.Fatal("Server failed to start", zap.Error(err))
	}
}
