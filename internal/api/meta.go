package api

import (
	"encoding/json"
	"net/http"

	"github.com/CILXRY/f-sleepy/internal/auth"
	"github.com/CILXRY/f-sleepy/internal/models"
)

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	meta, ok := s.views.Meta()
	if !ok {
		writeError(w, http.StatusNotFound, "metadata not configured")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		models.Meta
	}{true, meta})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.Metrics {
		writeError(w, http.StatusNotFound, "metrics are disabled")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		models.MetricsReport
	}{true, s.state.Metrics()})
}

// handleToken exchanges the shared secret for an admin token, so
// dashboards do not have to keep the secret around.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	ok := s.credentialsValid(r)
	if !ok {
		var req struct {
			Secret string `json:"secret"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err == nil {
			ok = s.secret.Verify(req.Secret)
		}
	}
	if !ok {
		writeError(w, http.StatusUnauthorized, "secret is invalid or missing")
		return
	}

	token, exp, err := s.tokens.Issue("panel", auth.ScopeAdmin)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"token":      token,
		"expires_at": models.Timestamp(exp),
	})
}
