package redmine

import (
	"encoding/base64"
	"net/http"
)

// SessionCookieName is the cookie Redmine issues for browser sessions.
const SessionCookieName = "_redmine_session"

// AuthMode identifies which credential strategy a Credentials value carries.
type AuthMode int

const (
	// AuthPlain sends requests undecorated. The server decides whether an
	// anonymous request is acceptable.
	AuthPlain AuthMode = iota
	// AuthCookie replays a Redmine session cookie.
	AuthCookie
	// AuthAPIKey appends the user's API key as a query parameter.
	AuthAPIKey
	// AuthBasic sends an HTTP basic Authorization header.
	AuthBasic
)

// Credentials is a tagged union over the four mutually exclusive auth
// strategies. The zero value is AuthPlain. Constructing a new value replaces
// the previous strategy wholesale; there is no fallback chain.
type Credentials struct {
	mode  AuthMode
	token string
}

// CookieAuth authenticates by replaying the given Redmine session cookie
// value.
func CookieAuth(session string) Credentials {
	return Credentials{mode: AuthCookie, token: SessionCookieName + "=" + session}
}

// APIKeyAuth authenticates with a Redmine REST API key.
func APIKeyAuth(key string) Credentials {
	return Credentials{mode: AuthAPIKey, token: key}
}

// BasicAuth authenticates with HTTP basic credentials. Encoding happens here
// so the plaintext password never rides along on the Credentials value.
func BasicAuth(username, password string) Credentials {
	encoded := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return Credentials{mode: AuthBasic, token: "Basic " + encoded}
}

// Mode reports the strategy this value carries.
func (c Credentials) Mode() AuthMode { return c.mode }

// apply decorates an outgoing request according to the configured strategy.
// Exactly one of the four transforms happens; AuthPlain is the identity.
func (c Credentials) apply(req *http.Request) {
	switch c.mode {
	case AuthCookie:
		req.Header.Set("Cookie", c.token)
	case AuthBasic:
		req.Header.Set("Authorization", c.token)
	case AuthAPIKey:
		q := req.URL.RawQuery
		if q == "" {
			req.URL.RawQuery = "key=" + c.token
		} else {
			req.URL.RawQuery = q + "&key=" + c.token
		}
	case AuthPlain:
	}
}
