package redmine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// API is the subset of Redmine operations the session layer drives. It is
// implemented by *Client and can be substituted in tests.
type API interface {
	GetUser(ctx context.Context) (*User, error)
	GetIssues(ctx context.Context) ([]Issue, error)
	GetIssue(ctx context.Context, id int64) (*Issue, error)
	GetIssueStatuses(ctx context.Context) ([]IssueStatus, error)
	GetTimeEntryActivities(ctx context.Context) ([]Activity, error)
	GetTrackers(ctx context.Context) ([]Tracker, error)
	UpdateIssue(ctx context.Context, id int64, update IssueUpdate) error
	GetTimeEntries(ctx context.Context, issueID int64) ([]TimeEntry, error)
	CreateTimeEntry(ctx context.Context, entry NewTimeEntry) error
}

// Ensure Client implements API at compile time.
var _ API = (*Client)(nil)

// Client talks to a Redmine server's REST API. Each session owns its own
// Client instance carrying that session's base URL and credentials; there is
// no shared mutable configuration.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	auth      Credentials
	userAgent string
}

const (
	defaultUserAgent = "punchcard/0.1"
	requestTimeout   = 15 * time.Second

	// pageLimit bounds list requests. Redmine defaults to 25; one page of
	// 100 covers a personal issue queue without paging.
	pageLimit = 100
)

// NewClient builds a Client for the given server base URL and credentials.
func NewClient(baseURL string, auth Credentials) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		auth:      auth,
		userAgent: defaultUserAgent,
	}, nil
}

// APIError is returned for non-2xx responses. Body carries the raw server
// payload so callers can surface Redmine's own error messages.
type APIError struct {
	Path   string
	Status int
	Body   []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("redmine %s returned status %d", e.Path, e.Status)
}

// GetUser retrieves the account the credentials authenticate as.
func (c *Client) GetUser(ctx context.Context) (*User, error) {
	var payload struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/users/current.json", nil, &payload); err != nil {
		return nil, err
	}
	return &payload.User, nil
}

// GetIssues retrieves issues assigned to the current user, bounded to one
// page. Server ordering is passed through unchanged.
func (c *Client) GetIssues(ctx context.Context) ([]Issue, error) {
	values := url.Values{}
	values.Set("assigned_to_id", "me")
	values.Set("limit", strconv.Itoa(pageLimit))
	rel := &url.URL{Path: "/issues.json", RawQuery: values.Encode()}
	var payload struct {
		Issues []Issue `json:"issues"`
	}
	if err := c.doURL(ctx, http.MethodGet, rel, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Issues, nil
}

// GetIssue retrieves a single issue including its attachments.
func (c *Client) GetIssue(ctx context.Context, id int64) (*Issue, error) {
	rel := &url.URL{
		Path:     fmt.Sprintf("/issues/%d.json", id),
		RawQuery: "include=attachments",
	}
	var payload struct {
		Issue Issue `json:"issue"`
	}
	if err := c.doURL(ctx, http.MethodGet, rel, nil, &payload); err != nil {
		return nil, err
	}
	return &payload.Issue, nil
}

// GetIssueStatuses retrieves the server's issue status list. Fetched once per
// session and cached by the caller.
func (c *Client) GetIssueStatuses(ctx context.Context) ([]IssueStatus, error) {
	var payload struct {
		IssueStatuses []IssueStatus `json:"issue_statuses"`
	}
	if err := c.do(ctx, http.MethodGet, "/issue_statuses.json", nil, &payload); err != nil {
		return nil, err
	}
	return payload.IssueStatuses, nil
}

// GetTimeEntryActivities retrieves the time entry activity enumeration.
// Fetched once per session and cached by the caller.
func (c *Client) GetTimeEntryActivities(ctx context.Context) ([]Activity, error) {
	var payload struct {
		TimeEntryActivities []Activity `json:"time_entry_activities"`
	}
	if err := c.do(ctx, http.MethodGet, "/enumerations/time_entry_activities.json", nil, &payload); err != nil {
		return nil, err
	}
	return payload.TimeEntryActivities, nil
}

// GetTrackers retrieves the server's tracker list.
func (c *Client) GetTrackers(ctx context.Context) ([]Tracker, error) {
	var payload struct {
		Trackers []Tracker `json:"trackers"`
	}
	if err := c.do(ctx, http.MethodGet, "/trackers.json", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Trackers, nil
}

// UpdateIssue submits a partial issue update. Callers only depend on
// success or failure, not on the response shape.
func (c *Client) UpdateIssue(ctx context.Context, id int64, update IssueUpdate) error {
	body := map[string]IssueUpdate{"issue": update}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/issues/%d.json", id), body, nil)
}

// GetTimeEntries retrieves logged time for an issue, bounded to one page.
func (c *Client) GetTimeEntries(ctx context.Context, issueID int64) ([]TimeEntry, error) {
	values := url.Values{}
	values.Set("issue_id", strconv.FormatInt(issueID, 10))
	values.Set("limit", strconv.Itoa(pageLimit))
	rel := &url.URL{Path: "/time_entries.json", RawQuery: values.Encode()}
	var payload struct {
		TimeEntries []TimeEntry `json:"time_entries"`
	}
	if err := c.doURL(ctx, http.MethodGet, rel, nil, &payload); err != nil {
		return nil, err
	}
	return payload.TimeEntries, nil
}

// CreateTimeEntry submits a new time entry.
func (c *Client) CreateTimeEntry(ctx context.Context, entry NewTimeEntry) error {
	body := map[string]NewTimeEntry{"time_entry": entry}
	return c.do(ctx, http.MethodPost, "/time_entries.json", body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	rel := &url.URL{Path: path}
	return c.doURL(ctx, method, rel, body, dest)
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, body, dest any) error {
	// Join rather than resolve so servers installed under a sub-path
	// (https://host/redmine) keep their prefix.
	reqURL := *c.baseURL
	reqURL.Path = c.baseURL.Path + rel.Path
	reqURL.RawQuery = rel.RawQuery

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.auth.apply(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &APIError{Path: rel.Path, Status: resp.StatusCode, Body: raw}
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("base URL is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse base URL %q: %w", raw, err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
