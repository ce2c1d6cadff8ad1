package session

import (
	"errors"
	"fmt"
	"regexp"

	"punchcard/internal/redmine"
)

// Config is the session configuration record, JSON-persisted under the
// "config" key. Exactly one of UseCookies, UseAPIKey, or neither (basic
// auth) is meaningful; credentials resolution branches exhaustively.
// Credentials themselves are recomputed from this record on every session
// start and never persisted independently.
type Config struct {
	BaseURL    string    `json:"baseURL"`
	UseCookies bool      `json:"useCookies,omitempty"`
	UseAPIKey  bool      `json:"useAPIKey,omitempty"`
	Username   string    `json:"username,omitempty"`
	Password   string    `json:"password,omitempty"`
	APIKey     string    `json:"apiKey,omitempty"`
	UserPref   *UserPref `json:"userPref,omitempty"`
}

// UserPref marks a completed onboarding and carries per-user choices.
type UserPref struct {
	DefaultActivity *redmine.ActivityRef `json:"defaultActivity,omitempty"`
}

var baseURLDomain = regexp.MustCompile(`^https?://([^/:?#]+)`)

// Domain extracts the host (without port) from BaseURL for cookie lookups.
func (c Config) Domain() (string, error) {
	m := baseURLDomain.FindStringSubmatch(c.BaseURL)
	if m == nil {
		return "", fmt.Errorf("cannot extract domain from base URL %q", c.BaseURL)
	}
	return m[1], nil
}

// credentials resolves the configured auth strategy into a Credentials
// value. The three flags branch mutually exclusively: cookies first, then
// API key, else basic auth.
func (c Config) credentials(cookies CookieSource) (redmine.Credentials, error) {
	switch {
	case c.UseCookies:
		domain, err := c.Domain()
		if err != nil {
			return redmine.Credentials{}, err
		}
		if cookies == nil {
			return redmine.Credentials{}, errors.New("cookie auth configured but no cookie source available")
		}
		value, err := cookies.Lookup(domain, redmine.SessionCookieName)
		if err != nil {
			return redmine.Credentials{}, fmt.Errorf("look up session cookie: %w", err)
		}
		return redmine.CookieAuth(value), nil
	case c.UseAPIKey:
		return redmine.APIKeyAuth(c.APIKey), nil
	default:
		return redmine.BasicAuth(c.Username, c.Password), nil
	}
}
