package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sandbox-svc/app"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	application, err := app.Bootstrap(ctx)
	cancel()
	if err != nil {
		log.Fatalf("failed to bootstrap application: %v", err)
	}
	defer application.Close()

	// Execution requests block until the container finishes, so the
	// write timeout must cover the longest permitted run.
	server := &http.Server{
		Addr:           ":" + application.Config.Port,
		Handler:        application.Router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   time.Duration(application.Config.MaxTimeoutSeconds+30) * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("HTTP server starting on port %s", application.Config.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	<-sigChan
	log.Println("shutting down server...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
}
