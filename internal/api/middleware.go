package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/CILXRY/f-sleepy/internal/auth"
	"github.com/CILXRY/f-sleepy/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// credentialsValid reports whether the request carries the shared secret
// (X-Secret header or ?secret=) or an admin token. Secret checks are bcrypt
// compares, so only routes that need authorization call it.
func (s *Server) credentialsValid(r *http.Request) bool {
	if secret := r.Header.Get("X-Secret"); secret != "" {
		return s.secret.Verify(secret)
	}
	if secret := r.URL.Query().Get("secret"); secret != "" {
		return s.secret.Verify(secret)
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return false
	}
	claims, err := s.tokens.Validate(parts[1])
	if err != nil {
		log.Debug().Err(err).Msg("rejected bearer token")
		return false
	}
	return claims.Scope == auth.ScopeAdmin
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.credentialsValid(r) {
			writeError(w, http.StatusUnauthorized, "secret is invalid or missing, pass it as ?secret= or the X-Secret header")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// accessLog logs each request once it is done, and feeds the Prometheus
// collectors and the per-path counters.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
		// Counters are keyed by route so unknown paths cannot add entries.
		if s.cfg.Metrics && countedRoute(route) {
			s.state.RecordRequest(route)
		}

		log.Info().
			Str("remote", r.RemoteAddr).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", elapsed).
			Msg("request")
	})
}

// countedRoute excludes requests no route handled: unmatched ones and those
// only caught by a mounted subrouter's wildcard.
func countedRoute(route string) bool {
	return route != "unmatched" && !strings.HasSuffix(route, "*")
}
