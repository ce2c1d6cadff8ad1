package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"punchcard/internal/billing"
	"punchcard/internal/redmine"
	"punchcard/internal/store"
)

// Persisted keys.
const (
	keyConfig = "config"
	keyState  = "state"
)

// ErrNoActivities is returned when the server's time entry activity list is
// empty. Without at least one activity no time entry can ever be booked, so
// session init fails rather than guessing.
var ErrNoActivities = errors.New("server returned no time entry activities")

// ClientFactory builds a Redmine client for a base URL and credentials. A
// fresh client is constructed on every login so no auth state leaks between
// sessions.
type ClientFactory func(baseURL string, auth redmine.Credentials) (redmine.API, error)

// Options configure a Controller.
type Options struct {
	Store   *store.Store
	Cookies CookieSource  // required only for cookie auth
	Clients ClientFactory // nil uses redmine.NewClient
	Now     func() time.Time
}

// Controller orchestrates login, logout and resume, owns the Action
// lifecycle, and persists every state transition as it happens. All methods
// are safe for concurrent use.
type Controller struct {
	store   *store.Store
	cookies CookieSource
	clients ClientFactory
	now     func() time.Time
	events  chan Event

	mu              sync.RWMutex
	state           State
	view            View
	loading         bool
	lastErr         string
	cfg             Config
	client          redmine.API
	action          Action
	issues          []redmine.Issue
	issue           *redmine.Issue
	statuses        []redmine.IssueStatus
	activities      []redmine.Activity
	defaultActivity redmine.ActivityRef
}

// New builds a Controller around the given store.
func New(opts Options) *Controller {
	clients := opts.Clients
	if clients == nil {
		clients = func(baseURL string, auth redmine.Credentials) (redmine.API, error) {
			return redmine.NewClient(baseURL, auth)
		}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Controller{
		store:   opts.Store,
		cookies: opts.Cookies,
		clients: clients,
		now:     now,
		events:  make(chan Event, 64),
	}
}

// Events returns the notification channel the presentation layer drains.
// Events are wake-ups; stale ones coalesce because consumers re-read
// Snapshot. When nobody drains, events are dropped rather than blocking the
// session.
func (c *Controller) Events() <-chan Event { return c.events }

// Snapshot returns a copy of the current session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		State:           c.state,
		View:            c.view,
		Loading:         c.loading,
		LastError:       c.lastErr,
		Config:          c.cfg,
		Action:          c.action,
		Issue:           c.issue,
		DefaultActivity: c.defaultActivity,
	}
	snap.Issues = append([]redmine.Issue(nil), c.issues...)
	snap.Statuses = append([]redmine.IssueStatus(nil), c.statuses...)
	snap.Activities = append([]redmine.Activity(nil), c.activities...)
	return snap
}

// Init boots the session: read the persisted config, authenticate, load
// reference data and resume the last view. A missing config lands on the
// config form (first run).
func (c *Controller) Init(ctx context.Context) {
	c.setLoading(true)

	raw, err := c.store.Get(ctx, keyConfig)
	if err != nil {
		// Storage failures are non-fatal; continue as first run.
		log.Printf("session: read config: %v", err)
	}
	if len(raw) == 0 {
		c.toConfigForm(StateUnauthenticated)
		return
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		log.Printf("session: corrupt config record: %v", err)
		c.toConfigForm(StateUnauthenticated)
		return
	}
	c.connect(ctx, cfg)
}

// Login persists the config and re-enters the init sequence with it.
// Submitting the form completes onboarding, so the UserPref marker is
// stamped here when absent.
func (c *Controller) Login(ctx context.Context, cfg Config) {
	if cfg.UserPref == nil {
		cfg.UserPref = &UserPref{}
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		c.fail("save config", err)
		return
	}
	if err := c.store.Set(ctx, keyConfig, raw); err != nil {
		log.Printf("session: persist config: %v", err)
	}
	c.connect(ctx, cfg)
}

// Logout clears the persisted config and state, keeping only the base URL
// for convenience. Any active Action is discarded.
func (c *Controller) Logout(ctx context.Context) {
	if err := c.store.Remove(ctx, keyConfig); err != nil {
		log.Printf("session: clear config: %v", err)
	}
	if err := c.store.Remove(ctx, keyState); err != nil {
		log.Printf("session: clear state: %v", err)
	}

	c.mu.Lock()
	c.cfg = Config{BaseURL: c.cfg.BaseURL}
	c.client = nil
	c.action = Action{}
	c.issues = nil
	c.issue = nil
	c.statuses = nil
	c.activities = nil
	c.defaultActivity = redmine.ActivityRef{}
	c.state = StateUnauthenticated
	c.view = ViewConfigForm
	c.lastErr = ""
	c.mu.Unlock()

	c.emit(Event{Kind: EventActionChanged})
	c.emit(Event{Kind: EventViewChanged, View: ViewConfigForm})
}

// connect configures credentials, fetches reference data and restores the
// persisted view. Reference-data failure is the recoverable error path: the
// session lands on StateFailed with a surfaced message and the user can
// re-submit login.
func (c *Controller) connect(ctx context.Context, cfg Config) {
	c.mu.Lock()
	c.cfg = cfg
	c.state = StateAuthenticating
	c.loading = true
	c.lastErr = ""
	c.mu.Unlock()
	c.emit(Event{Kind: EventLoadingChanged, Loading: true})

	creds, err := cfg.credentials(c.cookies)
	if err != nil {
		c.failAuth(err)
		return
	}
	client, err := c.clients(cfg.BaseURL, creds)
	if err != nil {
		c.failAuth(err)
		return
	}

	// No data dependency between the two reference fetches; run them
	// concurrently, but both must land before the session is usable.
	var (
		statuses   []redmine.IssueStatus
		activities []redmine.Activity
		stErr      error
		actErr     error
	)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		statuses, stErr = client.GetIssueStatuses(ctx)
	}()
	go func() {
		defer wg.Done()
		activities, actErr = client.GetTimeEntryActivities(ctx)
	}()
	wg.Wait()

	if stErr != nil {
		c.failAuth(stErr)
		return
	}
	if actErr != nil {
		c.failAuth(actErr)
		return
	}
	if len(activities) == 0 {
		c.failAuth(ErrNoActivities)
		return
	}

	c.mu.Lock()
	c.client = client
	c.statuses = statuses
	c.activities = activities
	c.defaultActivity = resolveDefaultActivity(cfg, activities)
	c.state = StateReady
	c.mu.Unlock()

	c.restore(ctx)
}

// restore re-enters the persisted {view, obj} pair, re-injecting the saved
// Action as the active timer. The loading flag clears only once this branch
// resolves.
func (c *Controller) restore(ctx context.Context) {
	defer c.setLoading(false)

	raw, err := c.store.Get(ctx, keyState)
	if err != nil {
		log.Printf("session: read state: %v", err)
		raw = nil
	}
	var saved persistedState
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &saved); err != nil {
			log.Printf("session: corrupt state record: %v", err)
			saved = persistedState{}
		}
	}

	if saved.View == ViewNone {
		// Nothing to resume. Users who never completed onboarding land on
		// the config form; everyone else starts at the issue list.
		if c.onboarded() {
			c.ListIssues(ctx, false)
		} else {
			c.toConfigForm(StateReady)
		}
		return
	}

	c.mu.Lock()
	if saved.Obj != nil {
		c.action = *saved.Obj
	}
	c.view = saved.View
	action := c.action
	c.mu.Unlock()

	c.emit(Event{Kind: EventActionChanged, Action: action})
	c.emit(Event{Kind: EventViewChanged, View: saved.View})

	switch saved.View {
	case ViewIssue:
		if action.Active() {
			c.fetchIssue(ctx, action.ID)
		}
	case ViewListIssues:
		c.fetchIssues(ctx)
	}
}

// ListIssues shows the issue list. When clearAction is set the current
// Action is discarded first (post-submission or explicit cancel).
func (c *Controller) ListIssues(ctx context.Context, clearAction bool) {
	c.mu.Lock()
	client := c.client
	c.issue = nil
	c.mu.Unlock()
	if client == nil {
		return
	}

	c.setView(ctx, ViewListIssues)
	if clearAction {
		c.clearAction(ctx)
	}
	c.fetchIssues(ctx)
}

// OpenIssue shows a single issue. With startTimer set a new Action starts,
// unless one is already active: starting a second timer is a no-op, not an
// error, and the existing Action is preserved untouched.
func (c *Controller) OpenIssue(ctx context.Context, id int64, startTimer bool) {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()
	if client == nil {
		return
	}

	c.setView(ctx, ViewIssue)

	if startTimer {
		c.mu.Lock()
		started := false
		if !c.action.Active() {
			c.action = Action{ID: id, Timer: c.now().UnixMilli()}
			started = true
		}
		action := c.action
		c.mu.Unlock()
		if started {
			c.emit(Event{Kind: EventActionChanged, Action: action})
			c.persistState(ctx)
		}
	}

	c.fetchIssue(ctx, id)
}

// Finalize stops the Action's timer, quantizes the elapsed time into a
// billable total and attaches the resolved default activity. Finalizing an
// inactive or already stopped Action is a no-op.
func (c *Controller) Finalize(ctx context.Context, message string) {
	c.mu.Lock()
	if !c.action.Active() || c.action.Stopped {
		c.mu.Unlock()
		return
	}
	elapsed := c.action.Elapsed(c.now())
	c.action.Stopped = true
	c.action.Total = billing.Quantize(elapsed)
	c.action.Message = message
	activity := c.defaultActivity
	c.action.Activity = &activity
	action := c.action
	c.mu.Unlock()

	c.emit(Event{Kind: EventActionChanged, Action: action})
	c.persistState(ctx)
}

// LogTime submits the finalized Action as a time entry, then clears it and
// returns to the issue list.
func (c *Controller) LogTime(ctx context.Context) {
	c.mu.RLock()
	client := c.client
	action := c.action
	c.mu.RUnlock()

	if client == nil || !action.Active() || !action.Stopped || action.Activity == nil {
		c.fail("log time", errors.New("no finalized timer to submit"))
		return
	}

	entry := redmine.NewTimeEntry{
		IssueID:    action.ID,
		Hours:      action.Total,
		ActivityID: action.Activity.ID,
		Comments:   action.Message,
	}
	if err := client.CreateTimeEntry(ctx, entry); err != nil {
		c.fail("log time", err)
		return
	}

	c.ListIssues(ctx, true)
}

// CancelAction discards the current Action without submitting it.
func (c *Controller) CancelAction(ctx context.Context) {
	c.clearAction(ctx)
}

// UpdateIssueStatus moves an issue to another status.
func (c *Controller) UpdateIssueStatus(ctx context.Context, issueID, statusID int64) {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()
	if client == nil {
		return
	}
	if err := client.UpdateIssue(ctx, issueID, redmine.IssueUpdate{StatusID: &statusID}); err != nil {
		c.fail("update issue status", err)
		return
	}
	c.fetchIssue(ctx, issueID)
}

// Workflow returns the statuses an issue can move to: every known status
// except the current one.
func (c *Controller) Workflow(currentStatusID int64) []redmine.IssueStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []redmine.IssueStatus
	for _, st := range c.statuses {
		if st.ID == currentStatusID {
			continue
		}
		out = append(out, st)
	}
	return out
}

func (c *Controller) fetchIssues(ctx context.Context) {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()
	if client == nil {
		return
	}

	issues, err := client.GetIssues(ctx)
	if err != nil {
		c.fail("list issues", err)
		return
	}
	c.mu.Lock()
	c.issues = issues
	c.mu.Unlock()
	c.emit(Event{Kind: EventDataRefreshed})
}

func (c *Controller) fetchIssue(ctx context.Context, id int64) {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()
	if client == nil {
		return
	}

	issue, err := client.GetIssue(ctx, id)
	if err != nil {
		c.fail("load issue", err)
		return
	}
	c.mu.Lock()
	c.issue = issue
	c.mu.Unlock()
	c.emit(Event{Kind: EventDataRefreshed})
}

// resolveDefaultActivity applies the three-tier fallback: the user's saved
// preference, then the first activity's paired default status, then the
// first activity itself. The activities slice is known non-empty here.
func resolveDefaultActivity(cfg Config, activities []redmine.Activity) redmine.ActivityRef {
	if cfg.UserPref != nil && cfg.UserPref.DefaultActivity != nil {
		return *cfg.UserPref.DefaultActivity
	}
	first := activities[0]
	if first.DefaultStatus != nil {
		return redmine.ActivityRef{ID: first.DefaultStatus.ID, Name: first.DefaultStatus.Name}
	}
	return redmine.ActivityRef{ID: first.ID, Name: first.Name}
}

// persistState writes the current {view, obj} pair. The config form is never
// persisted as a resumable view.
func (c *Controller) persistState(ctx context.Context) {
	c.mu.RLock()
	ps := persistedState{View: c.view}
	if ps.View == ViewConfigForm {
		ps.View = ViewNone
	}
	if c.action.Active() {
		action := c.action
		ps.Obj = &action
	}
	c.mu.RUnlock()

	raw, err := json.Marshal(ps)
	if err != nil {
		log.Printf("session: encode state: %v", err)
		return
	}
	if err := c.store.Set(ctx, keyState, raw); err != nil {
		log.Printf("session: persist state: %v", err)
	}
}

func (c *Controller) setView(ctx context.Context, v View) {
	c.mu.Lock()
	c.view = v
	c.mu.Unlock()
	c.emit(Event{Kind: EventViewChanged, View: v})
	c.persistState(ctx)
}

func (c *Controller) clearAction(ctx context.Context) {
	c.mu.Lock()
	c.action = Action{}
	c.mu.Unlock()
	c.emit(Event{Kind: EventActionChanged})
	c.persistState(ctx)
}

func (c *Controller) setLoading(loading bool) {
	c.mu.Lock()
	c.loading = loading
	c.mu.Unlock()
	c.emit(Event{Kind: EventLoadingChanged, Loading: loading})
}

func (c *Controller) toConfigForm(state State) {
	c.mu.Lock()
	c.state = state
	c.view = ViewConfigForm
	c.loading = false
	c.mu.Unlock()
	c.emit(Event{Kind: EventViewChanged, View: ViewConfigForm})
	c.emit(Event{Kind: EventLoadingChanged})
}

func (c *Controller) onboarded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg.UserPref != nil
}

// failAuth marks the login sequence as failed. The message is surfaced to
// the user and the session lands back on the config form so login can be
// re-submitted.
func (c *Controller) failAuth(err error) {
	log.Printf("session: authenticate: %v", err)
	c.mu.Lock()
	c.state = StateFailed
	c.view = ViewConfigForm
	c.loading = false
	c.lastErr = fmt.Sprintf("could not sign in to Redmine: %v", err)
	message := c.lastErr
	c.mu.Unlock()
	c.emit(Event{Kind: EventViewChanged, View: ViewConfigForm})
	c.emit(Event{Kind: EventErrorRaised, Message: message})
	c.emit(Event{Kind: EventLoadingChanged})
}

// fail is the single error path for every non-login operation: log it,
// surface it, keep the session alive.
func (c *Controller) fail(op string, err error) {
	log.Printf("session: %s: %v", op, err)
	c.mu.Lock()
	c.lastErr = fmt.Sprintf("%s failed: %v", op, err)
	message := c.lastErr
	c.mu.Unlock()
	c.emit(Event{Kind: EventErrorRaised, Message: message})
}

// emit delivers an event without ever blocking session progress.
func (c *Controller) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		log.Printf("session: dropping event (slow consumer)")
	}
}
