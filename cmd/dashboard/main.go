// Dashboard serves the admin views over HTTP (DASHBOARD_ADDR) using the session file shared
// with the console, and follows console logins and logouts through a file watcher.
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

	"savings-admin/console/internal/app"
	"savings-admin/console/internal/config"
	"savings-admin/console/internal/dashboard"
	"savings-admin/console/internal/health"
	"savings-admin/console/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := app.Build(ctx, cfg, app.Options{Source: "dashboard"})
	if err != nil {
		log.Fatalf("dashboard: %v", err)
	}

	rt.Client.OnSessionExpired(func(context.Context) {
		log.Println("dashboard: session expired; next request will be sent to the login page")
	})

	go func() {
		if err := rt.WatchSession(ctx); err != nil {
			log.Printf("dashboard: session watcher: %v", err)
		}
	}()

	healthz := health.NewServer(map[string]health.Pinger{"session": rt.Storage})
	srv := &http.Server{
		Addr:              cfg.DashboardAddr,
		Handler:           dashboard.NewRouter(dashboard.NewHandlers(rt.Client), healthz),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("dashboard listening on %s (backend %s)", cfg.DashboardAddr, cfg.APIBaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down dashboard...")
	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("dashboard: shutdown: %v", err)
	}
	rt.Shutdown(shutdownCtx, telemetry.ShutdownDrainDuration)
	log.Println("dashboard stopped")
}
