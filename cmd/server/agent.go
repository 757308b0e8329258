package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CILXRY/f-sleepy/internal/agent"
	"github.com/CILXRY/f-sleepy/internal/control"
	"github.com/rs/zerolog/log"
)

const localAgentInterval = 10 * time.Second

// startLocalAgent runs an agent for this host that reports straight into
// state. The hostname is the device id; without one every report would be
// rejected, so the agent is not started.
func startLocalAgent(ctx context.Context, state *control.State, hostname func() (string, error)) error {
	host, err := hostname()
	if err != nil {
		return fmt.Errorf("resolve hostname: %w", err)
	}
	if host == "" {
		return errors.New("resolve hostname: empty hostname")
	}

	bus := control.NewReportBus(16)
	go bus.Pump(ctx, state)

	ag := agent.New(&agent.SystemCollector{DeviceID: host}, agent.NewBusReporter(bus), localAgentInterval, true)
	go func() {
		if err := ag.Run(ctx); err != nil {
			log.Error().Err(err).Msg("agent run error")
		}
	}()
	log.Info().Str("device", host).Msg("local agent started")
	return nil
}
