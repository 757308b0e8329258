package api

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/CILXRY/f-sleepy/internal/metrics"
	"github.com/CILXRY/f-sleepy/internal/models"
	"github.com/CILXRY/f-sleepy/internal/stream"
	"github.com/rs/zerolog/log"
)

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	view := s.views.BuildView(queryFlag(r, "meta"), s.cfg.Metrics && queryFlag(r, "metrics"))
	data, err := models.EncodeView(view)
	if err != nil {
		writeFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "argument 'status' must be int")
		return
	}
	if !s.state.SetStatus(id) {
		writeError(w, http.StatusBadRequest, "invalid status id "+strconv.Itoa(id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "set_to": id})
}

func (s *Server) handleStatusList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "status_list": s.state.StatusList()})
}

func (s *Server) sessionOptions(r *http.Request, lastEventID int64) stream.SessionOptions {
	return stream.SessionOptions{
		LastEventID:    lastEventID,
		Heartbeat:      s.cfg.Heartbeat.Duration,
		IncludeMeta:    queryFlag(r, "meta"),
		IncludeMetrics: s.cfg.Metrics && queryFlag(r, "metrics"),
	}
}

func parseLastEventID(v string) (int64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	// The next event id is id+1, so the largest int64 cannot be resumed from.
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id < 0 || id == math.MaxInt64 {
		return 0, &models.ValidationError{Field: "Last-Event-ID", Reason: "must be a non-negative int"}
	}
	return id, nil
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	lastEventID, err := parseLastEventID(r.Header.Get("Last-Event-ID"))
	if err != nil {
		writeFailure(w, err)
		return
	}

	session := stream.NewSession(s.hub, s.views, s.sessionOptions(r, lastEventID))
	logger := log.With().Str("session", session.ID).Str("remote", r.RemoteAddr).Logger()
	logger.Info().Int64("last_event_id", lastEventID).Msg("event stream connected")

	gauge := metrics.StreamSessionsActive.WithLabelValues("sse")
	gauge.Inc()
	defer gauge.Dec()

	if err := session.Run(r.Context(), stream.NewSSEWriter(w, streamWriteTimeout)); err != nil {
		logger.Debug().Err(err).Msg("event stream delivery failed")
	}
	logger.Info().Int64("last_event_id", session.LastEventID()).Msg("event stream disconnected")
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	lastEventID, err := parseLastEventID(r.URL.Query().Get("last_event_id"))
	if err != nil {
		writeFailure(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already answered the client.
		log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	session := stream.NewSession(s.hub, s.views, s.sessionOptions(r, lastEventID))
	logger := log.With().Str("session", session.ID).Str("remote", r.RemoteAddr).Logger()
	logger.Info().Msg("websocket stream connected")

	gauge := metrics.StreamSessionsActive.WithLabelValues("websocket")
	gauge.Inc()
	defer gauge.Dec()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	writer := stream.NewWebSocketWriter(conn)
	go writer.Watch(ctx, cancel)

	if err := session.Run(ctx, writer); err != nil {
		logger.Debug().Err(err).Msg("websocket delivery failed")
	}
	logger.Info().Int64("last_event_id", session.LastEventID()).Msg("websocket stream disconnected")
}
