package control

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/CILXRY/f-sleepy/internal/models"
)

func TestBuildViewScenario(t *testing.T) {
	s := NewState(testStatuses, 0)
	a := NewAssembler(s)

	if !s.SetStatus(1) {
		t.Fatal("SetStatus(1) = false")
	}
	if got := a.BuildView(false, false).Status.ID; got != 1 {
		t.Fatalf("status.id = %d, want 1", got)
	}
	if s.SetStatus(5) {
		t.Fatal("SetStatus(5) = true")
	}
	if got := a.BuildView(false, false).Status.ID; got != 1 {
		t.Fatalf("status.id = %d after failed switch, want 1", got)
	}
}

func TestBuildViewIsStable(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := NewState(testStatuses, 0, WithClock(func() time.Time { return now }))
	a := NewAssembler(s)
	a.SetMeta(models.Meta{Version: "test"})
	s.Upsert(models.DeviceReport{ID: "dev-a", Fields: map[string]any{"k": "v"}})

	first, err := models.EncodeView(a.BuildView(true, true))
	if err != nil {
		t.Fatalf("EncodeView: %v", err)
	}
	second, err := models.EncodeView(a.BuildView(true, true))
	if err != nil {
		t.Fatalf("EncodeView: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("views of the same state differ:\n%s\n%s", first, second)
	}
}

func TestBuildViewOptionalBlocks(t *testing.T) {
	s := NewState(testStatuses, 0)
	a := NewAssembler(s)

	v := a.BuildView(true, false)
	if v.Meta != nil {
		t.Error("meta present before SetMeta")
	}
	if v.Metrics != nil {
		t.Error("metrics present without being requested")
	}

	a.SetMeta(models.Meta{Version: "1.0"})
	v = a.BuildView(true, true)
	if v.Meta == nil || v.Meta.Version != "1.0" {
		t.Errorf("meta = %+v, want version 1.0", v.Meta)
	}
	if v.Metrics == nil {
		t.Error("metrics missing")
	}
}

func TestBuildViewUsingFirst(t *testing.T) {
	s := NewState(testStatuses, 0)
	a := NewAssembler(s)
	s.Upsert(models.DeviceReport{ID: "a", Using: false})
	s.Upsert(models.DeviceReport{ID: "b", Using: true})
	s.Upsert(models.DeviceReport{ID: "c", Using: false})
	s.Upsert(models.DeviceReport{ID: "d", Using: true})

	ids := func(v models.FullView) string {
		var out string
		for _, d := range v.Device {
			out += d.ID
		}
		return out
	}

	if got := ids(a.BuildView(false, false)); got != "abcd" {
		t.Errorf("insertion order = %s, want abcd", got)
	}
	a.SetMeta(models.Meta{Status: models.StatusMeta{UsingFirst: true}})
	if got := ids(a.BuildView(false, false)); got != "bdac" {
		t.Errorf("using first order = %s, want bdac", got)
	}
}

func TestReportBusPump(t *testing.T) {
	s := NewState(testStatuses, 0)
	bus := NewReportBus(1)

	if !bus.Publish(models.DeviceReport{ID: "local"}) {
		t.Fatal("Publish on empty bus = false")
	}
	if bus.Publish(models.DeviceReport{ID: "dropped"}) {
		t.Fatal("Publish on full bus = true")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bus.Pump(ctx, s)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := s.Get("local"); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("report was never applied")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, ok := s.Get("dropped"); ok {
		t.Error("dropped report was applied")
	}
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestRunExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	s := NewState(testStatuses, 0, WithClock(clock.Now))
	s.Upsert(models.DeviceReport{ID: "old"})
	clock.Advance(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunExpiry(ctx, s, time.Minute, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for s.Snapshot().DeviceCount != 0 {
		if time.Now().After(deadline) {
			t.Fatal("stale device was never evicted")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
}
