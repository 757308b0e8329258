package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/CILXRY/f-sleepy/internal/control"
	"github.com/CILXRY/f-sleepy/internal/models"
)

// chanWriter hands written events to the test. When failAfter is set, the
// write after that many events fails.
type chanWriter struct {
	events    chan Event
	failAfter int
	written   int
}

func newChanWriter() *chanWriter {
	return &chanWriter{events: make(chan Event, 64)}
}

var errBroken = errors.New("broken pipe")

func (w *chanWriter) WriteEvent(ev Event) error {
	if w.failAfter > 0 && w.written >= w.failAfter {
		return errBroken
	}
	w.written++
	w.events <- ev
	return nil
}

func (w *chanWriter) next(t *testing.T, timeout time.Duration) Event {
	t.Helper()
	select {
	case ev := <-w.events:
		return ev
	case <-time.After(timeout):
		t.Fatalf("no event within %v", timeout)
		return Event{}
	}
}

type fixture struct {
	hub   *Hub
	state *control.State
	views *control.Assembler
}

func newFixture() fixture {
	hub := NewHub()
	now := time.Unix(1700000000, 0)
	state := control.NewState(
		[]models.StatusDefinition{{ID: 0, Name: "idle"}, {ID: 1, Name: "active"}},
		0,
		control.WithPublisher(hub),
		control.WithClock(func() time.Time { return now }),
	)
	return fixture{hub: hub, state: state, views: control.NewAssembler(state)}
}

func runSession(ctx context.Context, s *Session, w EventWriter) <-chan error {
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx, w) }()
	return errc
}

func TestSessionInitialUpdate(t *testing.T) {
	f := newFixture()
	f.state.Upsert(models.DeviceReport{ID: "dev-a"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := newChanWriter()
	s := NewSession(f.hub, f.views, SessionOptions{Heartbeat: time.Hour})
	errc := runSession(ctx, s, w)

	ev := w.next(t, time.Second)
	if ev.ID != 1 || ev.Name != EventUpdate {
		t.Fatalf("first event = %d %q, want 1 %q", ev.ID, ev.Name, EventUpdate)
	}
	want, _ := models.EncodeView(f.views.BuildView(false, false))
	if string(ev.Data) != string(want) {
		t.Errorf("update payload differs from query view:\n%s\n%s", ev.Data, want)
	}
	if s.State() != Streaming {
		t.Errorf("State() = %v, want streaming", s.State())
	}

	select {
	case ev := <-w.events:
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	if err := <-errc; err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if s.State() != Closed {
		t.Errorf("State() = %v, want closed", s.State())
	}
	if f.hub.Len() != 0 {
		t.Errorf("hub still has %d subscribers", f.hub.Len())
	}
}

func TestSessionResumesAfterLastEventID(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := newChanWriter()
	s := NewSession(f.hub, f.views, SessionOptions{LastEventID: 41, Heartbeat: time.Hour})
	runSession(ctx, s, w)

	if ev := w.next(t, time.Second); ev.ID != 42 || ev.Name != EventUpdate {
		t.Fatalf("first event = %d %q, want 42 update", ev.ID, ev.Name)
	}
}

func TestSessionUpdatesOnChange(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := newChanWriter()
	s := NewSession(f.hub, f.views, SessionOptions{Heartbeat: time.Hour})
	runSession(ctx, s, w)
	w.next(t, time.Second)

	waitFor(t, func() bool { return f.hub.Len() == 1 })
	f.state.SetStatus(1)

	ev := w.next(t, time.Second)
	if ev.ID != 2 || ev.Name != EventUpdate {
		t.Fatalf("event = %d %q, want 2 update", ev.ID, ev.Name)
	}
	if s.LastEventID() != 2 {
		t.Errorf("LastEventID() = %d, want 2", s.LastEventID())
	}
}

func TestSessionHeartbeat(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := newChanWriter()
	s := NewSession(f.hub, f.views, SessionOptions{Heartbeat: 20 * time.Millisecond})
	runSession(ctx, s, w)

	w.next(t, time.Second)
	for id := int64(2); id <= 3; id++ {
		ev := w.next(t, time.Second)
		if ev.ID != id || ev.Name != EventHeartbeat {
			t.Fatalf("event = %d %q, want %d heartbeat", ev.ID, ev.Name, id)
		}
		if len(ev.Data) != 0 {
			t.Errorf("heartbeat carries data %q", ev.Data)
		}
	}
}

func TestSessionNoHeartbeatWhileBusy(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := newChanWriter()
	s := NewSession(f.hub, f.views, SessionOptions{Heartbeat: 300 * time.Millisecond})
	runSession(ctx, s, w)
	w.next(t, time.Second)
	waitFor(t, func() bool { return f.hub.Len() == 1 })

	for i := 0; i < 20; i++ {
		f.state.SetStatus(i % 2)
		time.Sleep(25 * time.Millisecond)
	}
	cancel()

	for {
		select {
		case ev := <-w.events:
			if ev.Name == EventHeartbeat {
				t.Fatalf("heartbeat %d sent while updates were flowing", ev.ID)
			}
		default:
			return
		}
	}
}

func TestSessionWriterFailure(t *testing.T) {
	f := newFixture()
	w := newChanWriter()
	w.failAfter = 1

	s := NewSession(f.hub, f.views, SessionOptions{Heartbeat: 10 * time.Millisecond})
	err := s.Run(context.Background(), w)
	if !errors.Is(err, errBroken) {
		t.Fatalf("Run() = %v, want %v", err, errBroken)
	}
	if f.hub.Len() != 0 {
		t.Errorf("failed session still subscribed")
	}
	if s.State() != Closed {
		t.Errorf("State() = %v, want closed", s.State())
	}

	// Other writers are unaffected.
	if !f.state.SetStatus(1) {
		t.Fatal("SetStatus after failed session = false")
	}
}

func TestSessionEndsOnHubClose(t *testing.T) {
	f := newFixture()
	w := newChanWriter()
	s := NewSession(f.hub, f.views, SessionOptions{Heartbeat: time.Hour})
	errc := runSession(context.Background(), s, w)

	w.next(t, time.Second)
	f.hub.Close()

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Run() = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("session did not end after hub close")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}
