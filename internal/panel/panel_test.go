package panel

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/CILXRY/f-sleepy/internal/client"
	"github.com/CILXRY/f-sleepy/internal/models"
	tea "github.com/charmbracelet/bubbletea"
)

func testView() models.FullView {
	battery := 64
	return models.FullView{
		Success: true,
		Status:  models.StatusDefinition{ID: 1, Name: "Asleep", Icon: "z", Color: "sleeping", Description: "see you tomorrow"},
		Device: []models.DeviceRecord{
			{ID: "a", ShowName: "Laptop", Using: true, ActiveApp: &models.AppInfo{Name: "vim", Title: "main.go"}},
			{ID: "b", ShowName: "Phone", Status: "music", BatteryPercent: &battery, BatteryStatus: models.BatteryCharging},
		},
		LastUpdated: models.NewTimestamp(time.Unix(1700000000, 0)),
	}
}

func TestModelWaitingView(t *testing.T) {
	m := New("http://localhost:9010", make(chan tea.Msg))
	out := m.View()
	if !strings.Contains(out, "waiting for first update") || !strings.Contains(out, "connecting") {
		t.Errorf("View() = %q", out)
	}
}

func TestModelUpdateView(t *testing.T) {
	var model tea.Model = New("http://localhost:9010", make(chan tea.Msg))

	model, cmd := model.Update(ConnMsg{Connected: true})
	if cmd == nil {
		t.Fatal("feed was not re-armed after ConnMsg")
	}
	model, _ = model.Update(ViewMsg{EventID: 3, View: testView()})

	out := model.View()
	for _, want := range []string{"live", "Asleep", "see you tomorrow", "Devices (2)", "Laptop", "vim: main.go", "Phone", "music", "64%", "event #3"} {
		if !strings.Contains(out, want) {
			t.Errorf("View() lacks %q:\n%s", want, out)
		}
	}

	model, _ = model.Update(HeartbeatMsg{EventID: 4})
	if !strings.Contains(model.View(), "event #4") {
		t.Error("heartbeat did not advance the event id")
	}

	model, _ = model.Update(ConnMsg{Err: errors.New("connection refused")})
	if out := model.View(); !strings.Contains(out, "reconnecting: connection refused") || !strings.Contains(out, "Laptop") {
		t.Errorf("View() after disconnect = %q", out)
	}
}

func TestModelQuit(t *testing.T) {
	m := New("http://localhost:9010", make(chan tea.Msg))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("no command for q")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("id: 1\nevent: update\ndata: {\"success\":true,\"status\":{\"id\":0,\"name\":\"Awake\"},\"device\":[]}\n\n"))
		w.Write([]byte("id: 2\nevent: heartbeat\ndata:\n\n"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan tea.Msg, 8)
	go Feed(ctx, client.New(srv.URL), out, time.Hour)

	next := func() tea.Msg {
		t.Helper()
		select {
		case msg := <-out:
			return msg
		case <-time.After(2 * time.Second):
			t.Fatal("no feed message in time")
			return nil
		}
	}

	if msg, ok := next().(ConnMsg); !ok || !msg.Connected {
		t.Fatalf("first message = %#v, want connected", msg)
	}
	view, ok := next().(ViewMsg)
	if !ok || view.EventID != 1 || view.View.Status.Name != "Awake" {
		t.Fatalf("second message = %#v", view)
	}
	if hb, ok := next().(HeartbeatMsg); !ok || hb.EventID != 2 {
		t.Fatalf("third message = %#v", hb)
	}
	// The handler returns, which ends the stream.
	if msg, ok := next().(ConnMsg); !ok || msg.Connected {
		t.Fatalf("fourth message = %#v, want disconnected", msg)
	}
}
