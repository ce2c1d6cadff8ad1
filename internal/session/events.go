package session

import "punchcard/internal/redmine"

// View names the UI surface the session is showing. ViewListIssues and
// ViewIssue are the values written into persisted state; the config form is
// never resumed into.
type View string

const (
	ViewNone       View = ""
	ViewListIssues View = "listIssues"
	ViewIssue      View = "issue"
	ViewConfigForm View = "config"
)

// State is the session phase. Combined with View it covers the full machine:
// StateReady with ViewNone is "authenticated, no view chosen yet".
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateReady
	StateFailed
)

// EventKind discriminates session events.
type EventKind int

const (
	// EventViewChanged fires when the active view transitions.
	EventViewChanged EventKind = iota
	// EventActionChanged fires on every Action mutation (start, finalize,
	// clear). The carried Action is the post-mutation snapshot.
	EventActionChanged
	// EventLoadingChanged fires when the loading flag flips.
	EventLoadingChanged
	// EventDataRefreshed fires when fetched server data (issues, issue
	// detail) lands.
	EventDataRefreshed
	// EventErrorRaised fires when an operation fails; Message carries the
	// user-facing text. The session stays alive.
	EventErrorRaised
)

// Event is the notification schema the presentation layer subscribes to.
// Events are wake-ups: consumers read the authoritative state via Snapshot.
type Event struct {
	Kind    EventKind
	View    View
	Action  Action
	Loading bool
	Message string
}

// Snapshot is an immutable copy of the session state at a point in time.
type Snapshot struct {
	State           State
	View            View
	Loading         bool
	LastError       string
	Config          Config
	Action          Action
	Issues          []redmine.Issue
	Issue           *redmine.Issue
	Statuses        []redmine.IssueStatus
	Activities      []redmine.Activity
	DefaultActivity redmine.ActivityRef
}
