package agent

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/CILXRY/f-sleepy/internal/control"
	"github.com/CILXRY/f-sleepy/internal/models"
	"github.com/rs/zerolog/log"
)

// Reporter defines how the agent hands a report to the server.
type Reporter interface {
	Report(ctx context.Context, report models.DeviceReport) error
}

// BusReporter reports to an in-process ReportBus (agent embedded in the
// server).
type BusReporter struct {
	bus *control.ReportBus
}

func NewBusReporter(bus *control.ReportBus) *BusReporter {
	return &BusReporter{bus: bus}
}

func (r *BusReporter) Report(ctx context.Context, report models.DeviceReport) error {
	if !r.bus.Publish(report) {
		return errors.New("report bus full")
	}
	return nil
}

// HTTPReporter posts reports to a remote server.
type HTTPReporter struct {
	serverURL string
	secret    string
	client    *http.Client
}

func NewHTTPReporter(serverURL, secret string, insecure bool) *HTTPReporter {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if insecure {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		log.Info().Msg("insecure mode enabled: skipping TLS verification")
	}

	return &HTTPReporter{
		serverURL: strings.TrimRight(serverURL, "/"),
		secret:    secret,
		client: &http.Client{
			Timeout:   7500 * time.Millisecond,
			Transport: tr,
		},
	}
}

func (r *HTTPReporter) Report(ctx context.Context, report models.DeviceReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/device/report", r.serverURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	if r.secret != "" {
		req.Header.Set("X-Secret", r.secret)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		if body.Message != "" {
			return fmt.Errorf("server returned status %d: %s", resp.StatusCode, body.Message)
		}
		return fmt.Errorf("server returned status: %d", resp.StatusCode)
	}
	return nil
}
