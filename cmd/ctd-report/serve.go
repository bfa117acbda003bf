package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/banshee-data/ctd.report/internal/api"
	"github.com/banshee-data/ctd.report/internal/db"
	"github.com/banshee-data/ctd.report/internal/pipeline"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 5 * time.Second

func handleServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	listen := fs.String("listen", ":8080", "Listen address")
	dbPath := fs.String("db", DefaultDBFile, "Database file")
	configPath := fs.String("config", "", "Tuning config JSON (defaults built in)")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	database, err := db.NewDB(*dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	return serve(ctx, *listen, newHandler(database, pipeline.NewProcessor(cfg, database)))
}

// newHandler mounts the API and the database admin routes.
func newHandler(database *db.DB, processor *pipeline.Processor) http.Handler {
	mux := api.NewServer(database, processor).ServeMux()
	database.AttachAdminRoutes(mux)
	return api.LoggingMiddleware(mux)
}

// serve runs an HTTP server on addr until ctx is cancelled.
func serve(ctx context.Context, addr string, h http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	log.Printf("graceful shutdown complete")
	return nil
}
