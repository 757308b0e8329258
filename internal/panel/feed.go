package panel

import (
	"context"
	"time"

	"github.com/CILXRY/f-sleepy/internal/client"
	"github.com/CILXRY/f-sleepy/internal/models"
	"github.com/CILXRY/f-sleepy/internal/stream"
	tea "github.com/charmbracelet/bubbletea"
)

// ViewMsg carries a fresh view from the server.
type ViewMsg struct {
	EventID int64
	View    models.FullView
}

// HeartbeatMsg is sent for heartbeat events.
type HeartbeatMsg struct {
	EventID int64
}

// ConnMsg reports a change of the stream connection.
type ConnMsg struct {
	Connected bool
	Err       error
}

// Feed keeps an event stream open and turns it into tea messages on out,
// reconnecting after retry whenever the stream breaks. It returns when ctx
// is done.
func Feed(ctx context.Context, c *client.Client, out chan<- tea.Msg, retry time.Duration) {
	var lastID int64
	for {
		connected := false
		err := c.Stream(ctx, lastID, func(ev client.Event) error {
			lastID = ev.ID
			if !connected {
				connected = true
				send(ctx, out, ConnMsg{Connected: true})
			}
			switch ev.Name {
			case stream.EventUpdate:
				view, err := ev.View()
				if err != nil {
					return err
				}
				send(ctx, out, ViewMsg{EventID: ev.ID, View: view})
			case stream.EventHeartbeat:
				send(ctx, out, HeartbeatMsg{EventID: ev.ID})
			}
			return nil
		})
		if ctx.Err() != nil {
			return
		}
		send(ctx, out, ConnMsg{Connected: false, Err: err})

		select {
		case <-ctx.Done():
			return
		case <-time.After(retry):
		}
	}
}

func send(ctx context.Context, out chan<- tea.Msg, msg tea.Msg) {
	select {
	case out <- msg:
	case <-ctx.Done():
	}
}

// waitForMsg returns a command that yields the next feed message.
func waitForMsg(in <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-in
	}
}
