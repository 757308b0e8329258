package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/CILXRY/f-sleepy/internal/client"
	"github.com/CILXRY/f-sleepy/internal/panel"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
)

func main() {
	server := flag.StringP("server", "s", envOr("SLEEPY_SERVER", "http://127.0.0.1:9010"), "server base URL")
	retry := flag.Duration("retry", 3*time.Second, "delay before reconnecting a broken stream")
	logFile := flag.String("log", "", "write logs to this file")
	flag.Parse()

	// The terminal belongs to the UI; logs only go to a file when asked.
	var out io.Writer = io.Discard
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintln(os.Stderr, "open log file:", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(out).With().Timestamp().Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs := make(chan tea.Msg, 16)
	go panel.Feed(ctx, client.New(*server), msgs, *retry)

	p := tea.NewProgram(panel.New(*server, msgs), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Error().Err(err).Msg("panel failed")
		fmt.Fprintln(os.Stderr, "panel:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
