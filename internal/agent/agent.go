package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/CILXRY/f-sleepy/internal/models"
	"github.com/rs/zerolog/log"
)

// Collector produces the current report of this device.
type Collector interface {
	Collect(ctx context.Context) (models.DeviceReport, error)
}

type Agent struct {
	collector  Collector
	reporter   Reporter
	interval   time.Duration
	bypassSame bool

	last []byte
}

// New returns an agent reporting every interval. With bypassSame set,
// reports identical to the previous successful one are not sent.
func New(collector Collector, reporter Reporter, interval time.Duration, bypassSame bool) *Agent {
	return &Agent{collector: collector, reporter: reporter, interval: interval, bypassSame: bypassSame}
}

func (a *Agent) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.tick(ctx)
		}
	}
}

// tick collects and reports once. It returns whether a report was sent.
func (a *Agent) tick(ctx context.Context) bool {
	report, err := a.collector.Collect(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to collect device state")
		return false
	}

	encoded, err := json.Marshal(report)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode report")
		return false
	}
	if a.bypassSame && bytes.Equal(encoded, a.last) {
		log.Debug().Str("device", report.ID).Msg("state unchanged, skipping report")
		return false
	}

	if err := a.reporter.Report(ctx, report); err != nil {
		log.Error().Err(err).Msg("failed to report status")
		return false
	}
	a.last = encoded
	log.Info().Str("device", report.ID).Bool("using", report.Using).Str("status", report.Status).Msg("agent status reported")
	return true
}
