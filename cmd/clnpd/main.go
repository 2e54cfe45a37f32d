// clnpd - server-side liveness verification for pointer controllers.
//
// The daemon issues randomized visuomotor challenges, verifies the
// signed single-use tokens that bind clients to them, reconstructs the
// ground-truth target trajectory from server-held parameters, and runs
// the biomechanical analysis pipelines that separate biological from
// non-biological control.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clnpd/internal/config"
	"clnpd/internal/logging"
	"clnpd/internal/service"
)

func main() {
	configPath := flag.String("config", "", "path to config file (.toml, .yaml, or .json)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "clnpd: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(logging.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Component: "clnpd",
	})
	logging.SetDefault(log)

	svc, err := service.New(cfg, log)
	if err != nil {
		log.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go svc.Store().RunSweeper(ctx)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           svc.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown", "err", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}
}
