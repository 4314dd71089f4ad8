package main

import (
	"log"
	"net/http"

	"sharedcart/config"
	"sharedcart/config/database"
	"sharedcart/pkg/logger"
	"sharedcart/pkg/metrics"
	"sharedcart/router"
	"sharedcart/socket"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables from OS")
	}

	logger.Init()
	defer logger.Log.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Sugar.Fatalf("Invalid configuration: %v", err)
	}

	db := database.Connect(cfg.DatabaseURL)
	defer db.Close()

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		logger.Sugar.Fatalf("Migration failed: %v", err)
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// The hub fans change events and presence snapshots out to connected
	// clients. Its event loop runs in its own goroutine.
	hub := socket.NewHub(collector)
	go hub.Run()

	handler := router.Setup(cfg, db, hub, collector, registry)

	logger.Sugar.Infof("sharedcart backend listening on :%s", cfg.ServerPort)
	if err := http.ListenAndServe(":"+cfg.ServerPort, handler); err != nil {
		logger.Sugar.Fatalf("Server stopped: %v", err)
	}
}
