// Package session orchestrates the Punchcard session state machine.
//
// # Overview
//
// The Controller is the composition point between the persisted key-value
// store, the Redmine client and the presentation layer. It owns login,
// logout and resume, the single in-flight Action (the running timer), and
// the reference data fetched once per session.
//
// # State Machine
//
// The phase (State) and the surface (View) together describe the machine:
//
//	Unauthenticated          no valid config; config form showing
//	Authenticating           credentials resolved, reference data loading
//	Ready + ViewNone         reference data loaded, no view chosen yet
//	Ready + ViewListIssues   issue list
//	Ready + ViewIssue        single issue, possibly with a running timer
//	Failed                   login failed; recoverable by re-submitting login
//
// Transitions:
//
//	Init     read config -> connect, or config form on first run
//	Login    persist config -> connect
//	connect  resolve credentials, fetch statuses + activities, restore view
//	Logout   clear config and state (base URL kept), discard the Action
//
// # Durable State
//
// Two records persist through the store: the Config under "config" and the
// {view, obj} pair under "state". Every Action change writes the pair
// immediately, so a mid-timer crash resumes the exact same timer with its
// original start timestamp. The resume path re-enters the saved view and
// re-injects the saved Action verbatim.
//
// # Events
//
// The presentation layer subscribes via Events() and treats each Event as a
// wake-up, reading authoritative state through Snapshot(). Every failing
// operation funnels through one error path that logs, surfaces a message,
// and keeps the session alive.
package session
