package store

import "time"

// Credential is the OAuth session state for Strava API access
type Credential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`           // unix seconds
	AthleteID    int64  `json:"athlete_id,omitempty"` // 0 when unknown
}

// Expiry returns ExpiresAt as a time.Time
func (c Credential) Expiry() time.Time {
	return time.Unix(c.ExpiresAt, 0)
}

// Complete reports whether the credential carries an access token and an expiry.
func (c Credential) Complete() bool {
	return c.AccessToken != "" && c.ExpiresAt > 0
}

// ExpiresWithin reports whether the access token is expired at now or will be
// within grace. A token is only usable while ExpiresAt > now+grace.
func (c Credential) ExpiresWithin(now time.Time, grace time.Duration) bool {
	return c.ExpiresAt <= now.Add(grace).Unix()
}
