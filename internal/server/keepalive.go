package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"

	"strava-wrapped/internal/auth"
	"strava-wrapped/internal/logging"
)

// NewKeepAlive schedules a job that asks the gate for a valid token, so the
// credential is refreshed ahead of expiry while the server idles. It returns
// nil when spec is empty.
func NewKeepAlive(gate *auth.Gate, spec string) (*cron.Cron, error) {
	if spec == "" {
		return nil, nil
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, func() { keepAlive(gate) }); err != nil {
		return nil, fmt.Errorf("parsing keep-alive schedule %q: %w", spec, err)
	}
	return c, nil
}

func keepAlive(gate *auth.Gate) {
	ctx, cancel := context.WithTimeout(context.Background(), auth.DefaultTimeout)
	defer cancel()

	_, err := gate.ValidAccessToken(ctx)
	switch {
	case err == nil:
		logging.Debug("KeepAlive", "session valid")
	case auth.IsRevoked(err):
		logging.Warn("KeepAlive", "session revoked, sign in again")
	case errors.Is(err, auth.ErrAuthRefreshFailed):
		logging.Warn("KeepAlive", "refresh failed, will retry: %v", err)
	default:
		logging.Debug("KeepAlive", "no session")
	}
}
