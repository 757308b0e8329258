package stream

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/CILXRY/f-sleepy/internal/metrics"
	"github.com/CILXRY/f-sleepy/internal/models"
	"github.com/google/uuid"
)

// DefaultHeartbeat is how long a session stays silent before it sends a
// heartbeat event.
const DefaultHeartbeat = 30 * time.Second

const (
	EventUpdate    = "update"
	EventHeartbeat = "heartbeat"
)

// SessionState is the lifecycle position of a Session.
type SessionState int32

const (
	Connecting SessionState = iota
	Streaming
	Closed
)

func (s SessionState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Streaming:
		return "streaming"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("SessionState(%d)", int32(s))
}

// Event is one frame written to a client.
type Event struct {
	ID   int64
	Name string
	Data []byte
}

// EventWriter delivers events to one transport.
type EventWriter interface {
	WriteEvent(ev Event) error
}

// ViewSource builds the payload of update events.
type ViewSource interface {
	BuildView(includeMeta, includeMetrics bool) models.FullView
}

// SessionOptions configure a Session.
type SessionOptions struct {
	// LastEventID is the id the client saw last. Missed events are not
	// replayed; the session starts with a fresh baseline at LastEventID+1.
	LastEventID    int64
	Heartbeat      time.Duration
	IncludeMeta    bool
	IncludeMetrics bool
}

// Session turns hub notifications into a numbered event sequence for one
// connection.
type Session struct {
	ID string

	hub   *Hub
	views ViewSource
	opts  SessionOptions

	eventID int64
	lastGen uint64
	state   atomic.Int32
}

func NewSession(hub *Hub, views ViewSource, opts SessionOptions) *Session {
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = DefaultHeartbeat
	}
	return &Session{
		ID:      uuid.NewString(),
		hub:     hub,
		views:   views,
		opts:    opts,
		eventID: opts.LastEventID,
	}
}

func (s *Session) State() SessionState { return SessionState(s.state.Load()) }

// LastEventID returns the id of the last event written.
func (s *Session) LastEventID() int64 { return atomic.LoadInt64(&s.eventID) }

// Run streams until ctx is done, the hub closes or w fails. A nil return
// means the session ended normally.
func (s *Session) Run(ctx context.Context, w EventWriter) error {
	sub := s.hub.Subscribe()
	defer func() {
		s.hub.Unsubscribe(sub)
		s.state.Store(int32(Closed))
	}()
	s.state.Store(int32(Streaming))

	if err := s.sendUpdate(w); err != nil {
		return err
	}

	timer := time.NewTimer(s.opts.Heartbeat)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-sub.C():
			if !ok {
				return nil
			}
			if snap.Generation <= s.lastGen {
				continue
			}
			if err := s.sendUpdate(w); err != nil {
				return err
			}
			timer.Reset(s.opts.Heartbeat)
		case <-timer.C:
			if err := s.send(w, EventHeartbeat, nil); err != nil {
				return err
			}
			timer.Reset(s.opts.Heartbeat)
		}
	}
}

func (s *Session) sendUpdate(w EventWriter) error {
	view := s.views.BuildView(s.opts.IncludeMeta, s.opts.IncludeMetrics)
	data, err := models.EncodeView(view)
	if err != nil {
		return fmt.Errorf("encode view: %w", err)
	}
	s.lastGen = view.Generation
	return s.send(w, EventUpdate, data)
}

func (s *Session) send(w EventWriter, name string, data []byte) error {
	id := atomic.AddInt64(&s.eventID, 1)
	if err := w.WriteEvent(Event{ID: id, Name: name, Data: data}); err != nil {
		return fmt.Errorf("write %s event: %w", name, err)
	}
	metrics.StreamEventsTotal.WithLabelValues(name).Inc()
	return nil
}
