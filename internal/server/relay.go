package server

import (
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"strava-wrapped/internal/logging"
)

// relayedHeaders are copied from Strava's response to the caller
var relayedHeaders = []string{
	"Content-Type",
	"X-RateLimit-Limit",
	"X-RateLimit-Usage",
	"X-ReadRateLimit-Limit",
	"X-ReadRateLimit-Usage",
}

// handleRelay forwards GET /api/strava/{path} to Strava's /{path} with the
// stored bearer token. Status and body are passed through unchanged. Without
// a session the caller gets 401 and nothing is sent upstream.
func (s *Server) handleRelay(w http.ResponseWriter, r *http.Request) {
	path, ok := relayPath(chi.URLParam(r, "*"))
	if !ok {
		respondError(w, "invalid path", http.StatusBadRequest)
		return
	}

	resp, err := s.upstream.Do(r.Context(), http.MethodGet, path, r.URL.Query())
	if err != nil {
		respondFailure(w, err)
		return
	}
	defer resp.Body.Close()

	for _, h := range relayedHeaders {
		if v := resp.Header.Get(h); v != "" {
			w.Header().Set(h, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		logging.Warn("Server", "relaying %s: %v", path, err)
	}
}

// relayPath decodes the wildcard and rejects anything that could leave the
// API root or smuggle a query.
func relayPath(raw string) (string, bool) {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return "", false
	}
	if strings.Contains(decoded, "..") || strings.ContainsAny(decoded, "?#%\\") {
		return "", false
	}
	return "/" + strings.TrimPrefix(decoded, "/"), true
}
