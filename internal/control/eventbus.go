package control

import (
	"context"

	"github.com/CILXRY/f-sleepy/internal/models"
	"github.com/rs/zerolog/log"
)

// ReportBus carries reports from an in-process agent to the State without
// going through HTTP.
type ReportBus struct {
	ch chan models.DeviceReport
}

func NewReportBus(size int) *ReportBus {
	return &ReportBus{
		ch: make(chan models.DeviceReport, size),
	}
}

// Publish queues a report. It returns false when the buffer is full and the
// report was dropped.
func (b *ReportBus) Publish(r models.DeviceReport) bool {
	select {
	case b.ch <- r:
		return true
	default:
		return false
	}
}

// Pump applies queued reports to s until ctx is done.
func (b *ReportBus) Pump(ctx context.Context, s *State) {
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-b.ch:
			if _, err := s.Upsert(r); err != nil {
				log.Warn().Err(err).Str("device", r.ID).Msg("dropping invalid local report")
			}
		}
	}
}
