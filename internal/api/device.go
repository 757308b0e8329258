package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/CILXRY/f-sleepy/internal/models"
)

// handleReport accepts a JSON device report. Old clients put the secret in
// the body instead of a header.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var report models.DeviceReport
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxReportBytes))
	if err := dec.Decode(&report); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "report body too large")
			return
		}
		writeFailure(w, &models.ValidationError{Field: "body", Reason: err.Error()})
		return
	}

	if !s.credentialsValid(r) && !s.secret.Verify(report.Secret) {
		writeError(w, http.StatusUnauthorized, "secret is invalid or missing")
		return
	}

	if _, err := s.state.Upsert(report); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleDeviceSetQuery is the GET form of a report: known query arguments
// fill the report, everything else lands in fields.
func (s *Server) handleDeviceSetQuery(w http.ResponseWriter, r *http.Request) {
	args := r.URL.Query()
	report := models.DeviceReport{
		ID:       args.Get("id"),
		ShowName: args.Get("show_name"),
		Status:   args.Get("status"),
		AppName:  args.Get("app_name"),
	}
	if v := args.Get("using"); v != "" {
		using, err := parseBool(v)
		if err != nil {
			writeFailure(w, &models.ValidationError{Field: "using", Reason: err.Error()})
			return
		}
		report.Using = using
	}

	for key, values := range args {
		switch key {
		case "id", "show_name", "status", "app_name", "using", "secret":
			continue
		}
		if report.Fields == nil {
			report.Fields = make(map[string]any)
		}
		report.Fields[key] = values[0]
	}

	if _, err := s.state.Upsert(report); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleDeviceRemove(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing device id")
		return
	}

	removed := s.state.Remove(id)
	if !removed && queryFlag(r, "strict") {
		writeError(w, http.StatusNotFound, "device "+id+" not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "removed": removed})
}

func (s *Server) handleDeviceClear(w http.ResponseWriter, r *http.Request) {
	n := s.state.Clear()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "removed": n})
}

func (s *Server) handleDevicePrivate(w http.ResponseWriter, r *http.Request) {
	private, err := requiredBool(r, "private")
	if err != nil {
		writeFailure(w, err)
		return
	}
	s.state.SetPrivate(private)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "private": private})
}
