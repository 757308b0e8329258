package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/CILXRY/f-sleepy/internal/models"
)

// Event is one decoded server-sent event.
type Event struct {
	ID   int64
	Name string
	Data []byte
}

// View decodes the payload of an update event.
func (e Event) View() (models.FullView, error) {
	var view models.FullView
	if err := json.Unmarshal(e.Data, &view); err != nil {
		return view, fmt.Errorf("decode %s event %d: %w", e.Name, e.ID, err)
	}
	return view, nil
}

// ReadEvents parses text/event-stream framing from r. Events without an
// explicit name are reported as "message".
func ReadEvents(r io.Reader, fn func(Event) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), 4<<20)

	var (
		ev      Event
		data    strings.Builder
		pending bool
	)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			if pending {
				ev.Data = []byte(data.String())
				if ev.Name == "" {
					ev.Name = "message"
				}
				if err := fn(ev); err != nil {
					return err
				}
			}
			ev, pending = Event{ID: ev.ID}, false
			data.Reset()
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		pending = true
		switch field {
		case "id":
			if id, err := strconv.ParseInt(value, 10, 64); err == nil {
				ev.ID = id
			}
		case "event":
			ev.Name = value
		case "data":
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(value)
		}
	}
	return sc.Err()
}
