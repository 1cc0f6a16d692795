// Command mock-showapi serves an in-memory Koi show API for local development.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/koishow/internal/mockshow"
	"github.com/okian/koishow/pkg/logger"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	var (
		addr   = flag.String("addr", ":9090", "Listen address")
		showID = flag.String("show", "demo", "ID of the seeded demo show; empty disables seeding")
		format = flag.String("log-format", "text", "Log format: text or json")
	)
	flag.Parse()

	if err := logger.Init(logger.WithFormat(*format)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Named("mock-showapi")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shows := mockshow.New()
	if *showID != "" {
		shows.Seed(mockshow.Demo(*showID, time.Now()))
		log.Info(ctx, "seeded demo show", logger.String("show_id", *showID))
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           shows,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting mock show API", logger.String("addr", *addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "mock show API failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "shutdown failed", logger.Error(err))
	}
	fetches, updates := shows.Calls()
	log.Info(ctx, "mock show API stopped", logger.Int("fetches", fetches), logger.Int("updates", updates))
}
