package control

import (
	"sync"
	"time"

	"github.com/CILXRY/f-sleepy/internal/metrics"
	"github.com/CILXRY/f-sleepy/internal/models"
	"github.com/rs/zerolog/log"
)

// Publisher receives a snapshot after every visible mutation. Publish must
// not block.
type Publisher interface {
	Publish(snap models.Snapshot)
}

// Option configures a State.
type Option func(*State)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *State) { s.now = now }
}

// WithPublisher sets where change snapshots go.
func WithPublisher(p Publisher) Option {
	return func(s *State) { s.publisher = p }
}

// State is the only owner of the global status and the device table. All
// mutations go through its methods and are serialized by one lock;
// snapshots are published after the lock is released.
type State struct {
	mu          sync.RWMutex
	registry    StatusRegistry
	devices     DeviceTable
	private     bool
	lastUpdated time.Time
	generation  uint64

	publisher Publisher
	now       func() time.Time

	countersMu sync.Mutex
	requests   map[string]int64
	since      time.Time
}

// NewState builds the state with the configured status list, starting at
// status defaultID.
func NewState(statuses []models.StatusDefinition, defaultID int, opts ...Option) *State {
	s := &State{
		registry: newStatusRegistry(statuses, defaultID),
		devices:  newDeviceTable(),
		now:      time.Now,
		requests: make(map[string]int64),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastUpdated = s.now().Truncate(time.Millisecond)
	s.since = s.lastUpdated
	return s
}

// commit advances last_updated and the generation. Caller holds the write
// lock. last_updated is kept at millisecond precision, the precision it is
// served with, and moves forward by at least one millisecond.
func (s *State) commit() models.Snapshot {
	t := s.now().Truncate(time.Millisecond)
	if !t.After(s.lastUpdated) {
		t = s.lastUpdated.Add(time.Millisecond)
	}
	s.lastUpdated = t
	s.generation++
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() models.Snapshot {
	return models.Snapshot{
		StatusID:    s.registry.current,
		LastUpdated: models.Timestamp(s.lastUpdated),
		DeviceCount: s.devices.size(),
		Generation:  s.generation,
	}
}

func (s *State) publish(snap models.Snapshot) {
	metrics.ObserveDevices(snap.DeviceCount)
	if s.publisher != nil {
		s.publisher.Publish(snap)
	}
}

// SetStatus selects status id. It fails without touching anything when id
// is outside the configured list.
func (s *State) SetStatus(id int) bool {
	s.mu.Lock()
	if !s.registry.set(id) {
		s.mu.Unlock()
		return false
	}
	snap := s.commit()
	s.mu.Unlock()

	metrics.StatusSwitchesTotal.Inc()
	log.Info().Int("status", id).Msg("status changed")
	s.publish(snap)
	return true
}

// CurrentStatus returns the raw selector.
func (s *State) CurrentStatus() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.current
}

// Resolve maps a selector to its definition, degrading to the unknown
// sentinel for ids the current configuration does not know.
func (s *State) Resolve(id int) models.StatusDefinition {
	s.mu.RLock()
	def, ok := s.registry.resolve(id)
	s.mu.RUnlock()
	if !ok {
		log.Warn().Int("status", id).Msg("status id not in configured list")
	}
	return def
}

// StatusList returns a copy of the configured statuses.
func (s *State) StatusList() []models.StatusDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneStatusList(s.registry.list)
}

// SetStatusList swaps the configured list, e.g. after a config reload. The
// selector is kept even if it falls out of range.
func (s *State) SetStatusList(list []models.StatusDefinition) {
	s.mu.Lock()
	s.registry.list = cloneStatusList(list)
	current := s.registry.current
	snap := s.commit()
	s.mu.Unlock()

	if current >= len(list) {
		log.Warn().Int("status", current).Int("statuses", len(list)).Msg("current status no longer configured")
	}
	s.publish(snap)
}

// Upsert validates r and stores it as the device's current record.
func (s *State) Upsert(r models.DeviceReport) (models.DeviceRecord, error) {
	if err := r.Validate(); err != nil {
		return models.DeviceRecord{}, err
	}

	s.mu.Lock()
	rec := r.Record(s.now())
	created := s.devices.upsert(rec)
	snap := s.commit()
	s.mu.Unlock()

	metrics.DeviceReportsTotal.Inc()
	if created {
		log.Info().Str("device", rec.ID).Str("name", rec.ShowName).Msg("device registered")
	} else {
		log.Debug().Str("device", rec.ID).Bool("using", rec.Using).Str("app", rec.Status).Msg("device updated")
	}
	s.publish(snap)
	return rec.Clone(), nil
}

// Remove deletes a device. It reports false, and publishes nothing, when
// the id is unknown.
func (s *State) Remove(id string) bool {
	s.mu.Lock()
	if !s.devices.remove(id) {
		s.mu.Unlock()
		return false
	}
	snap := s.commit()
	s.mu.Unlock()

	log.Info().Str("device", id).Msg("device removed")
	s.publish(snap)
	return true
}

// Clear drops every device and returns how many were removed.
func (s *State) Clear() int {
	s.mu.Lock()
	n := s.devices.reset()
	if n == 0 {
		s.mu.Unlock()
		return 0
	}
	snap := s.commit()
	s.mu.Unlock()

	log.Info().Int("devices", n).Msg("device table cleared")
	s.publish(snap)
	return n
}

// EvictStale removes devices not seen for maxAge and returns their ids.
func (s *State) EvictStale(maxAge time.Duration) []string {
	s.mu.Lock()
	ids := s.devices.staleBefore(s.now().Add(-maxAge))
	if len(ids) == 0 {
		s.mu.Unlock()
		return nil
	}
	for _, id := range ids {
		s.devices.remove(id)
	}
	snap := s.commit()
	s.mu.Unlock()

	log.Info().Strs("devices", ids).Dur("max_age", maxAge).Msg("evicted stale devices")
	s.publish(snap)
	return ids
}

// Get returns a copy of one device record.
func (s *State) Get(id string) (models.DeviceRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.devices.get(id)
}

// List returns copies of all device records in insertion order.
func (s *State) List() []models.DeviceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.devices.list()
}

// SetPrivate toggles private mode. Devices keep updating while private but
// are hidden from views. It reports whether the mode changed.
func (s *State) SetPrivate(private bool) bool {
	s.mu.Lock()
	if s.private == private {
		s.mu.Unlock()
		return false
	}
	s.private = private
	snap := s.commit()
	s.mu.Unlock()

	log.Info().Bool("private", private).Msg("private mode changed")
	s.publish(snap)
	return true
}

// Private reports whether private mode is on.
func (s *State) Private() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.private
}

// Snapshot returns the lightweight change-detection view.
func (s *State) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// RecordRequest counts one request to path. Counters are not part of the
// snapshot and never advance last_updated.
func (s *State) RecordRequest(path string) {
	s.countersMu.Lock()
	s.requests[path]++
	s.countersMu.Unlock()
}

// Metrics returns the access counters.
func (s *State) Metrics() models.MetricsReport {
	s.mu.RLock()
	switches := s.registry.switches
	s.mu.RUnlock()

	s.countersMu.Lock()
	defer s.countersMu.Unlock()
	requests := make(map[string]int64, len(s.requests))
	for k, v := range s.requests {
		requests[k] = v
	}
	return models.MetricsReport{
		SwitchCount: switches,
		Requests:    requests,
		Since:       models.Timestamp(s.since),
	}
}

// viewState is everything the assembler needs, copied under one read lock.
type viewState struct {
	statusID    int
	status      models.StatusDefinition
	known       bool
	devices     []models.DeviceRecord
	lastUpdated time.Time
	generation  uint64
}

func (s *State) capture() viewState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.registry.resolve(s.registry.current)
	v := viewState{
		statusID:    s.registry.current,
		status:      def,
		known:       ok,
		lastUpdated: s.lastUpdated,
		generation:  s.generation,
	}
	if s.private {
		v.devices = []models.DeviceRecord{}
	} else {
		v.devices = s.devices.list()
	}
	return v
}
