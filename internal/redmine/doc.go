// Package redmine provides an HTTP client for the Redmine REST API.
//
// # Overview
//
// This package defines the typed client Punchcard uses to talk to a Redmine
// server: issues assigned to the current user, reference enumerations
// (statuses, trackers, time entry activities) and time entry submission. It
// also owns the credential strategies a session can authenticate with.
//
// # Architecture
//
// The package is split into three files:
//
//   - auth.go: the Credentials tagged union and request decoration
//   - client.go: HTTP client implementation and request/response handling
//   - types.go: data structures mirroring the Redmine API schema
//
// # Authentication
//
// Redmine accepts three credential forms, and a request may also go out
// undecorated. Credentials models these as a closed union:
//
//	redmine.CookieAuth(session)       Cookie: _redmine_session=<v>
//	redmine.APIKeyAuth(key)           ?key=<v> query parameter
//	redmine.BasicAuth(user, pass)     Authorization: Basic <base64>
//	redmine.Credentials{}             no decoration (anonymous)
//
// Exactly one transform applies per request. A Credentials value is immutable;
// switching strategies means constructing a new value (and, at the session
// level, a new Client).
//
// # Client Usage
//
//	client, err := redmine.NewClient("https://redmine.example.com", redmine.APIKeyAuth(key))
//	if err != nil {
//		log.Fatalf("failed to create client: %v", err)
//	}
//
//	issues, err := client.GetIssues(ctx)
//	if err != nil {
//		log.Printf("issue fetch failed: %v", err)
//	}
//
// # Error Handling
//
// Transport failures are wrapped with short context verbs. Non-2xx responses
// become *APIError carrying the status code and the raw response payload; the
// client performs no retries.
package redmine
