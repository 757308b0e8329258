// Package client talks to a sleepy server: one-shot status queries and the
// server-sent event stream.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/CILXRY/f-sleepy/internal/models"
)

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the server at baseURL. Queries time out after
// ten seconds; streams run until their context ends.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
}

// Query fetches the current view.
func (c *Client) Query(ctx context.Context, meta bool) (models.FullView, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	u := c.baseURL + "/api/status/query"
	if meta {
		u += "?" + url.Values{"meta": {"true"}}.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return models.FullView{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return models.FullView{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.FullView{}, fmt.Errorf("query: server returned status %d", resp.StatusCode)
	}
	var view models.FullView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return models.FullView{}, fmt.Errorf("decode view: %w", err)
	}
	return view, nil
}

// Stream opens the event stream and calls fn for every event until ctx
// ends, the server closes the stream or fn returns an error.
func (c *Client) Stream(ctx context.Context, lastEventID int64, fn func(Event) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/status/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	if lastEventID > 0 {
		req.Header.Set("Last-Event-ID", strconv.FormatInt(lastEventID, 10))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("events: server returned status %d", resp.StatusCode)
	}
	return ReadEvents(resp.Body, fn)
}
