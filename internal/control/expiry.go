package control

import (
	"context"
	"time"
)

// RunExpiry evicts devices not seen for ttl, checking every interval, until
// ctx is done.
func RunExpiry(ctx context.Context, s *State, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.EvictStale(ttl)
		}
	}
}
