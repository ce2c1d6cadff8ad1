package session

import (
	"encoding/json"
	"fmt"
	"os"
)

// CookieSource looks up a browser cookie for a domain. It is queried once at
// session start when cookie auth is configured.
type CookieSource interface {
	Lookup(domain, name string) (string, error)
}

// FileCookieSource reads cookies exported to a JSON file shaped as
// {"redmine.example.com": {"_redmine_session": "<value>"}}. The file is read
// on every lookup so a re-exported cookie is picked up on the next login.
type FileCookieSource struct {
	path string
}

// NewFileCookieSource builds a source backed by the given file.
func NewFileCookieSource(path string) *FileCookieSource {
	return &FileCookieSource{path: path}
}

// Lookup returns the named cookie for the domain.
func (s *FileCookieSource) Lookup(domain, name string) (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("read cookie file: %w", err)
	}
	var jar map[string]map[string]string
	if err := json.Unmarshal(data, &jar); err != nil {
		return "", fmt.Errorf("parse cookie file %s: %w", s.path, err)
	}
	value := jar[domain][name]
	if value == "" {
		return "", fmt.Errorf("no %s cookie for %s", name, domain)
	}
	return value, nil
}
