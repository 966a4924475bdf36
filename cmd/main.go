// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
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

	"github.com/gooze-fr/event-planner/internal/config"
	"github.com/gooze-fr/event-planner/internal/geocode"
	"github.com/gooze-fr/event-planner/internal/handler"
	"github.com/gooze-fr/event-planner/internal/logger"
	"github.com/gooze-fr/event-planner/internal/repository"
	"github.com/gooze-fr/event-planner/internal/service"
	"github.com/gooze-fr/event-planner/internal/sweeper"
)

const limiterIdle = 3 * time.Minute

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// ── 1. Configuration and logging ──────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		l := logger.New("info", true)
		l.Fatal().Err(err).Msg("load config")
	}
	log := logger.New(cfg.LogLevel, cfg.LogPretty)
	if cfg.Maps.APIKey == "" {
		log.Warn().Msg("GOOGLE_MAPS_API_KEY not set, maps fall back to the default centre")
	}

	// ── 2. Wire up layers ────────────────────────────────────────────────
	rosterRepo := repository.NewRosterRepository()
	geo := geocode.NewClient(cfg.Maps.BaseURL, cfg.Maps.APIKey, cfg.Maps.Timeout, log)
	places := geocode.NewCache(geo, cfg.Maps.DefaultCenter, cfg.Maps.CacheTTL)
	eventSvc := service.NewEventService(rosterRepo, places, service.Options{
		Domain:        cfg.Domain,
		DefaultCenter: cfg.Maps.DefaultCenter,
		Zoom:          cfg.Maps.Zoom,
		MapsBaseURL:   cfg.Maps.BaseURL,
		MapsAPIKey:    cfg.Maps.APIKey,
		Location:      cfg.Location(),
	}, log)
	eventHandler := handler.NewEventHandler(eventSvc, cfg.Roster.DefaultSeats, log)
	limiter := handler.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	// ── 3. Background sweeps ──────────────────────────────────────────────
	rosterSweeper, err := sweeper.New(rosterRepo, cfg.Roster.SweepSchedule, cfg.Roster.IdleTTL,
		log.With().Str("target", "rosters").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("roster sweeper")
	}
	limiterSweeper, err := sweeper.New(limiter, "@every 1m", limiterIdle,
		log.With().Str("target", "rate_limiter").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("rate limiter sweeper")
	}
	placeSweeper, err := sweeper.New(places, cfg.Roster.SweepSchedule, cfg.Maps.CacheTTL,
		log.With().Str("target", "geocode_cache").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("geocode cache sweeper")
	}
	rosterSweeper.Start()
	limiterSweeper.Start()
	placeSweeper.Start()

	// ── 4. Build the router ───────────────────────────────────────────────
	r := handler.NewRouter(eventHandler, handler.RouterOptions{
		Log:         log,
		Limiter:     limiter,
		CORSOrigins: cfg.CORSOrigins,
	})

	// ── 5. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         cfg.Listen,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run in background goroutine so we can listen for shutdown signal.
	go func() {
		log.Info().Str("addr", cfg.Listen).Str("domain", cfg.Domain).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	rosterSweeper.Stop()
	limiterSweeper.Stop()
	placeSweeper.Stop()
	log.Info().Int("rosters", rosterRepo.Len()).Msg("server stopped")
}
