// aware-gateway — data-access gateway for AWARE sensor studies.
//
// Receives JSON records from AWARE clients, persists them into the study
// database, and serves filtered, paginated reads back to analysis tooling.
//
// Usage:
//
//	aware-gateway [--dev] [--config path] [--addr :3446]
//
// Flags:
//
//	--dev     Start in dev mode: in-memory sqlite store + in-process miniredis
//	--config  Path to gateway.yaml (default: configs/gateway.yaml)
//	--addr    Override server.addr from config
//
// Environment:
//
//	GATEWAY_STUDY_PASSWORD  Study password (required if not set in config)
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/polalpha/aware-gateway/internal/api"
	"github.com/polalpha/aware-gateway/internal/auth"
	"github.com/polalpha/aware-gateway/internal/infra"
	"github.com/polalpha/aware-gateway/internal/ingest"
	"github.com/polalpha/aware-gateway/internal/retrieve"
	"github.com/polalpha/aware-gateway/internal/stats"
)

func main() {
	dev := flag.Bool("dev", false, "dev mode: in-memory sqlite + in-process miniredis")
	configPath := flag.String("config", "configs/gateway.yaml", "path to config file")
	addrOverride := flag.String("addr", "", "listen address override (e.g. :3446)")
	flag.Parse()

	// Pretty console log; switch to JSON in production via log.Logger = zerolog.New(os.Stderr)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := infra.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("config load failed")
	}
	if *addrOverride != "" {
		cfg.Server.Addr = *addrOverride
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inf, err := infra.Setup(ctx, cfg, *dev)
	if err != nil {
		log.Fatal().Err(err).Msg("infrastructure setup failed")
	}
	defer inf.Close()

	if *dev {
		log.Warn().Msg("DEV MODE ACTIVE — in-memory store, data is not persisted")
	}

	acc := stats.New()
	router := api.NewRouter(api.Deps{
		Store:          inf.Store,
		Ingest:         ingest.New(inf.Store),
		Retrieve:       retrieve.New(inf.Store),
		Auth:           auth.New(inf.Redis, cfg.Auth.StudyPassword, cfg.Auth.TokenTTL),
		Stats:          acc,
		RequestTimeout: cfg.QueryTimeout,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", cfg.Server.Addr).
			Bool("dev", *dev).
			Str("config", *configPath).
			Msg("aware-gateway started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
	log.Info().Msg("stopped")
}
