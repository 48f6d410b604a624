package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mhollis/dutywheel/internal/database"
	"github.com/mhollis/dutywheel/internal/logging"
	"github.com/mhollis/dutywheel/internal/server"
)

func main() {
	port := os.Getenv("DUTYWHEEL_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("DUTYWHEEL_DB_PATH")
	if dbPath == "" {
		dbPath = "dutywheel.db"
	}

	logger := logging.Setup(os.Getenv("DUTYWHEEL_LOG_LEVEL"), os.Getenv("DUTYWHEEL_LOG_FORMAT"))

	sweepInterval := 5 * time.Minute
	if raw := os.Getenv("DUTYWHEEL_SWEEP_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatalf("invalid DUTYWHEEL_SWEEP_INTERVAL: %v", err)
		}
		sweepInterval = d
	}

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	srv := server.New(db, sweepInterval, logger)

	ctx, cancel := context.WithCancel(context.Background())
	srv.Listener().Start(ctx)
	srv.Sweeper().Start(ctx)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Dutywheel running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")

	srv.Sweeper().Stop()
	srv.Bus().Close()
	srv.Listener().Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
