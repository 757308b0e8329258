package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CILXRY/f-sleepy/internal/agent"
	"github.com/CILXRY/f-sleepy/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
)

func main() {
	// Setup logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.LoadAgent()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load agent configuration")
	}

	flag.StringVarP(&cfg.ServerURL, "server", "s", cfg.ServerURL, "server base URL")
	flag.StringVar(&cfg.Secret, "secret", cfg.Secret, "shared secret")
	flag.StringVar(&cfg.DeviceID, "id", cfg.DeviceID, "device id")
	flag.StringVar(&cfg.ShowName, "name", cfg.ShowName, "display name, defaults to the hostname")
	flag.DurationVarP(&cfg.Interval, "interval", "i", cfg.Interval, "report interval")
	flag.BoolVar(&cfg.BypassSame, "bypass-same", cfg.BypassSame, "skip reports identical to the last one")
	flag.BoolVar(&cfg.Insecure, "insecure", cfg.Insecure, "skip TLS verification")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid agent configuration")
	}

	collector := &agent.SystemCollector{DeviceID: cfg.DeviceID, ShowName: cfg.ShowName}
	reporter := agent.NewHTTPReporter(cfg.ServerURL, cfg.Secret, cfg.Insecure)
	agt := agent.New(collector, reporter, cfg.Interval, cfg.BypassSame)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info().Str("server", cfg.ServerURL).Str("device", cfg.DeviceID).Dur("interval", cfg.Interval).Msg("agent started")
	if err := agt.Run(ctx); err != nil {
		log.Error().Err(err).Msg("agent error")
	}
	log.Info().Msg("agent exited")
}
