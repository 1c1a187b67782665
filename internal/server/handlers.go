package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"strava-wrapped/internal/auth"
	"strava-wrapped/internal/logging"
	"strava-wrapped/internal/roast"
	"strava-wrapped/internal/service"
	"strava-wrapped/internal/strava"
)

type statusResponse struct {
	Authenticated  bool       `json:"authenticated"`
	AthleteID      int64      `json:"athlete_id,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	ShortRemaining int        `json:"rate_limit_short_remaining"`
	DailyRemaining int        `json:"rate_limit_daily_remaining"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	authURL, _, err := s.oauth.BuildAuthorizationURL()
	if err != nil {
		logging.Error("Server", err, "building authorization URL")
		respondError(w, "could not start sign-in", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	callback := auth.CallbackHandler(s.oauth, func(code string, err error) error {
		if err != nil {
			logging.Warn("Server", "rejected callback: %v", err)
			return err
		}
		if _, err := s.gate.Login(r.Context(), code); err != nil {
			logging.Error("Server", err, "completing sign-in")
			return err
		}
		s.reports.Invalidate()
		return nil
	})
	callback(w, r)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.gate.Logout(r.Context()); err != nil {
		logging.Error("Server", err, "signing out")
		respondError(w, "could not sign out", http.StatusInternalServerError)
		return
	}
	s.reports.Invalidate()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Authenticated: s.gate.IsAuthenticated(r.Context())}
	if resp.Authenticated {
		if cred, ok := s.gate.Session(r.Context()); ok {
			expiry := cred.Expiry().UTC()
			resp.AthleteID = cred.AthleteID
			resp.ExpiresAt = &expiry
		}
	}
	resp.ShortRemaining, resp.DailyRemaining = s.upstream.RateLimitStatus()
	respondJSON(w, resp, http.StatusOK)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	report, ok := s.loadReport(w, r)
	if !ok {
		return
	}
	respondJSON(w, report, http.StatusOK)
}

func (s *Server) handleRoast(w http.ResponseWriter, r *http.Request) {
	report, ok := s.loadReport(w, r)
	if !ok {
		return
	}
	respondJSON(w, roast.Generate(report.Athlete.Firstname, report.Stats, s.opts.Units), http.StatusOK)
}

// loadReport reads ?year= and ?refresh= and loads the report, writing the
// error response itself when it fails
func (s *Server) loadReport(w http.ResponseWriter, r *http.Request) (*service.Report, bool) {
	opts := service.LoadOptions{}
	if v := r.URL.Query().Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil || year < 1970 || year > 9999 {
			respondError(w, "year must be a four digit year", http.StatusBadRequest)
			return nil, false
		}
		opts.Year = year
	}
	if v := r.URL.Query().Get("refresh"); v != "" {
		force, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, "refresh must be true or false", http.StatusBadRequest)
			return nil, false
		}
		opts.Force = force
	}

	report, err := s.reports.Load(r.Context(), opts)
	if err != nil {
		respondFailure(w, err)
		return nil, false
	}
	return report, true
}

// respondFailure maps session and Strava errors to a status code
func respondFailure(w http.ResponseWriter, err error) {
	if errors.Is(err, auth.ErrUnauthenticated) {
		respondError(w, "not signed in", http.StatusUnauthorized)
		return
	}

	var apiErr *strava.APIError
	if errors.As(err, &apiErr) {
		respondError(w, apiErr.UserMessage(), statusForKind(apiErr.Kind))
		return
	}

	if errors.Is(err, context.Canceled) {
		return
	}

	logging.Error("Server", err, "request failed")
	respondError(w, "internal error", http.StatusInternalServerError)
}

func statusForKind(kind strava.ErrorKind) int {
	switch kind {
	case strava.KindUnauthorized:
		return http.StatusUnauthorized
	case strava.KindForbidden:
		return http.StatusForbidden
	case strava.KindNotFound:
		return http.StatusNotFound
	case strava.KindRateLimited:
		return http.StatusTooManyRequests
	case strava.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Warn("Server", "failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, map[string]string{"error": message}, status)
}
