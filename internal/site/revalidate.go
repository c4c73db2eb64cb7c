package site

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// RevalidateResponse is the JSON body of POST /api/revalidate.
type RevalidateResponse struct {
	Purged int    `json:"purged"`
	Error  string `json:"error,omitempty"`
}

// handleRevalidate purges the response cache. WordPress calls it from a
// publish hook with the shared secret in ?secret=.
func (s *Server) handleRevalidate(w http.ResponseWriter, r *http.Request) {
	if s.cfg.RevalidateSecret == "" {
		writeJSON(w, http.StatusNotFound, RevalidateResponse{Error: "revalidation is not configured"})
		return
	}

	secret := r.URL.Query().Get("secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.cfg.RevalidateSecret)) != 1 {
		s.logger.Warn("Rejected revalidate request", zap.String("remote_addr", r.RemoteAddr))
		writeJSON(w, http.StatusUnauthorized, RevalidateResponse{Error: "invalid secret"})
		return
	}

	if s.cache == nil {
		writeJSON(w, http.StatusServiceUnavailable, RevalidateResponse{Error: "caching is disabled"})
		return
	}

	reason := r.URL.Query().Get("reason")
	if reason == "" {
		reason = "revalidate api"
	}

	n, err := s.cache.Purge(r.Context(), reason)
	if err != nil {
		s.logger.Error("Cache purge failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, RevalidateResponse{Error: "cache purge failed"})
		return
	}

	s.logger.Info("Cache purged", zap.Int("keys", n), zap.String("reason", reason))
	writeJSON(w, http.StatusOK, RevalidateResponse{Purged: n})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
