// Package main runs the DocuVault lock coordination server.
// Clients communicate via REST and WebSocket on the configured address.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sorenby/docuvault/internal/config"
	"github.com/sorenby/docuvault/internal/db"
	"github.com/sorenby/docuvault/internal/httpapi"
	"github.com/sorenby/docuvault/internal/identity"
	"github.com/sorenby/docuvault/internal/locks"
	"github.com/sorenby/docuvault/internal/logging"
	"github.com/sorenby/docuvault/internal/notify"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Error("failed to load configuration", err)
		os.Exit(1)
	}

	logging.Init(os.Stdout, logging.ParseLevel(cfg.Logging.Level))

	database, err := db.Open(cfg.Server.DataDir)
	if err != nil {
		logging.Error("failed to open database", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.NewMigrator(database.DB).Up(); err != nil {
		logging.Error("failed to run migrations", err)
		os.Exit(1)
	}

	repo := db.NewRepository(database.DB)
	defer repo.Close()

	resolver := identity.NewResolver(repo)
	hub := notify.NewHub()
	coordinator := locks.NewCoordinator(repo, resolver, hub)

	handler := httpapi.NewLockHandler(repo, resolver, coordinator, hub,
		notify.NewUpgrader(cfg.Server.AllowedOrigins))

	server := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: httpapi.NewRouter(handler, cfg.Auth.JWTSecret),
	}

	go func() {
		logging.Info("server starting", map[string]interface{}{
			"addr": cfg.Server.ListenAddr,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("server failed", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logging.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logging.Error("graceful shutdown failed", err)
	}
}
