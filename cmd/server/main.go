package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CILXRY/f-sleepy/internal/api"
	"github.com/CILXRY/f-sleepy/internal/auth"
	"github.com/CILXRY/f-sleepy/internal/config"
	"github.com/CILXRY/f-sleepy/internal/control"
	"github.com/CILXRY/f-sleepy/internal/stream"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
)

const version = "0.5.0"

func main() {
	configPath := flag.StringP("config", "c", "", "config file (.yaml or .toml), defaults to $SLEEPY_CONFIG")
	listen := flag.String("listen", "", "listen address, overrides the config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	// Setup logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *debug {
		cfg.Debug = true
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Info().Str("version", version).Msg("starting sleepy server")

	secret, err := auth.NewSecretVerifier(cfg.Secret, cfg.SecretCost)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to prepare secret")
	}

	hub := stream.NewHub()
	state := control.NewState(cfg.Status.List, cfg.Status.Default, control.WithPublisher(hub))
	views := control.NewAssembler(state)
	views.SetMeta(cfg.Meta(version))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if ttl := cfg.DeviceTTL.Duration; ttl > 0 {
		interval := max(ttl/4, time.Second)
		log.Info().Dur("ttl", ttl).Msg("stale device eviction enabled")
		go control.RunExpiry(ctx, state, ttl, interval)
	}

	if cfg.LocalAgent {
		if err := startLocalAgent(ctx, state, os.Hostname); err != nil {
			log.Error().Err(err).Msg("local agent disabled")
		}
	} else {
		log.Info().Msg("local agent disabled by configuration")
	}

	srv := api.NewServer(cfg, state, views, hub, secret)

	// No WriteTimeout: event streams stay open; each stream write sets its
	// own deadline.
	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		if cfg.TLSCert != "" {
			log.Info().Str("listen", cfg.Listen).Str("cert", cfg.TLSCert).Msg("starting server (HTTPS)")
			if err := httpServer.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey); err != nil && err != http.ErrServerClosed {
				log.Fatal().Err(err).Msg("server error")
			}
			return
		}
		log.Info().Str("listen", cfg.Listen).Msg("starting server (HTTP)")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range sigs {
		if sig == syscall.SIGHUP {
			reload(*configPath, state, views)
			continue
		}
		break
	}
	log.Info().Msg("shutting down server...")

	// Ends every stream session so Shutdown does not wait on them.
	hub.Close()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}

// reload re-reads the status list and page metadata. Listener, secret and
// stream settings need a restart.
func reload(path string, state *control.State, views *control.Assembler) {
	cfg, err := config.Load(path)
	if err != nil {
		log.Error().Err(err).Msg("config reload failed, keeping current configuration")
		return
	}
	state.SetStatusList(cfg.Status.List)
	views.SetMeta(cfg.Meta(version))
	log.Info().Int("statuses", len(cfg.Status.List)).Msg("configuration reloaded")
}
