package session

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"punchcard/internal/redmine"
	"punchcard/internal/store"
)

// fakeRedmine is a minimal in-memory Redmine server.
type fakeRedmine struct {
	server *httptest.Server

	mu          sync.Mutex
	statuses    []redmine.IssueStatus
	activities  []redmine.Activity
	lastKey     string
	entryBodies [][]byte
}

func newFakeRedmine(t *testing.T) *fakeRedmine {
	t.Helper()
	f := &fakeRedmine{
		statuses: []redmine.IssueStatus{
			{ID: 1, Name: "New"},
			{ID: 2, Name: "In Progress"},
			{ID: 5, Name: "Closed", IsClosed: true},
		},
		activities: []redmine.Activity{
			{ID: 9, Name: "Development"},
			{ID: 10, Name: "Review"},
		},
	}

	r := mux.NewRouter()
	r.HandleFunc("/issue_statuses.json", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.lastKey = req.URL.Query().Get("key")
		writeJSON(w, map[string][]redmine.IssueStatus{"issue_statuses": f.statuses})
	})
	r.HandleFunc("/enumerations/time_entry_activities.json", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, map[string][]redmine.Activity{"time_entry_activities": f.activities})
	})
	r.HandleFunc("/issues.json", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, map[string][]redmine.Issue{"issues": {
			{ID: 42, Subject: "Fix the flaky build"},
			{ID: 43, Subject: "Upgrade the CI image"},
		}})
	})
	r.HandleFunc("/issues/{id}.json", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, map[string]redmine.Issue{"issue": {ID: 42, Subject: "Fix the flaky build"}})
	})
	r.HandleFunc("/time_entries.json", func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		f.mu.Lock()
		f.entryBodies = append(f.entryBodies, body)
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})

	f.server = httptest.NewServer(r)
	t.Cleanup(f.server.Close)
	return f
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

// fixture wires a Controller to a fake server, a temp-dir store and a
// manual clock.
type fixture struct {
	ctrl  *Controller
	store *store.Store
	fake  *fakeRedmine
	now   *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend, err := store.OpenFile(filepath.Join(t.TempDir(), "local.json"))
	if err != nil {
		t.Fatalf("OpenFile returned error: %v", err)
	}
	st := store.New(backend, nil)
	fake := newFakeRedmine(t)

	now := time.UnixMilli(1_700_000_000_000)
	f := &fixture{store: st, fake: fake, now: &now}
	f.ctrl = New(Options{
		Store: st,
		Now:   func() time.Time { return *f.now },
	})
	return f
}

func (f *fixture) apiKeyConfig() Config {
	return Config{BaseURL: f.fake.server.URL, UseAPIKey: true, APIKey: "abc"}
}

func (f *fixture) advance(d time.Duration) {
	*f.now = f.now.Add(d)
}

func TestInit_FirstRunShowsConfigForm(t *testing.T) {
	f := newFixture(t)
	f.ctrl.Init(context.Background())

	snap := f.ctrl.Snapshot()
	if snap.View != ViewConfigForm {
		t.Fatalf("View = %q, want config form on first run", snap.View)
	}
	if snap.State != StateUnauthenticated {
		t.Fatalf("State = %v, want StateUnauthenticated", snap.State)
	}
	if snap.Loading {
		t.Fatal("Loading = true, want cleared")
	}
}

func TestLogin_APIKeyEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ctrl.Login(ctx, f.apiKeyConfig())

	snap := f.ctrl.Snapshot()
	if snap.State != StateReady {
		t.Fatalf("State = %v, want StateReady (err %q)", snap.State, snap.LastError)
	}
	if snap.View != ViewListIssues {
		t.Fatalf("View = %q, want listIssues", snap.View)
	}
	if snap.Loading {
		t.Fatal("Loading = true, want cleared after resume branch")
	}
	if len(snap.Issues) != 2 || snap.Issues[0].ID != 42 {
		t.Fatalf("Issues = %#v, want the two fake issues in server order", snap.Issues)
	}
	if len(snap.Statuses) != 3 || len(snap.Activities) != 2 {
		t.Fatalf("reference data = %d statuses %d activities, want 3 and 2",
			len(snap.Statuses), len(snap.Activities))
	}
	want := redmine.ActivityRef{ID: 9, Name: "Development"}
	if snap.DefaultActivity != want {
		t.Fatalf("DefaultActivity = %#v, want activities[0] %#v", snap.DefaultActivity, want)
	}

	f.fake.mu.Lock()
	gotKey := f.fake.lastKey
	f.fake.mu.Unlock()
	if gotKey != "abc" {
		t.Fatalf("key query param = %q, want abc", gotKey)
	}
}

func TestResolveDefaultActivity_ThreeTierFallback(t *testing.T) {
	activities := []redmine.Activity{
		{ID: 9, Name: "Development", DefaultStatus: &redmine.IssueStatus{ID: 2, Name: "In Progress"}},
		{ID: 10, Name: "Review"},
	}

	pref := Config{UserPref: &UserPref{DefaultActivity: &redmine.ActivityRef{ID: 10, Name: "Review"}}}
	if got := resolveDefaultActivity(pref, activities); got.ID != 10 {
		t.Fatalf("with preference: got %#v, want the preferred activity", got)
	}

	if got := resolveDefaultActivity(Config{}, activities); got.ID != 2 {
		t.Fatalf("with default_status: got %#v, want activities[0].default_status", got)
	}

	if got := resolveDefaultActivity(Config{}, activities[1:]); got.ID != 10 {
		t.Fatalf("bare list: got %#v, want activities[0]", got)
	}
}

func TestLogin_EmptyActivitiesFailsInit(t *testing.T) {
	f := newFixture(t)
	f.fake.mu.Lock()
	f.fake.activities = nil
	f.fake.mu.Unlock()

	f.ctrl.Login(context.Background(), f.apiKeyConfig())

	snap := f.ctrl.Snapshot()
	if snap.State != StateFailed {
		t.Fatalf("State = %v, want StateFailed", snap.State)
	}
	if snap.LastError == "" {
		t.Fatal("LastError = empty, want surfaced message")
	}
	if snap.Loading {
		t.Fatal("Loading = true, want cleared on failure")
	}
}

func TestResume_PreservesActionIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cfg := f.apiKeyConfig()
	cfg.UserPref = &UserPref{}
	rawCfg, _ := json.Marshal(cfg)
	if err := f.store.Set(ctx, keyConfig, rawCfg); err != nil {
		t.Fatalf("seed config: %v", err)
	}
	saved := persistedState{
		View: ViewIssue,
		Obj:  &Action{ID: 42, Timer: 1_699_999_000_000},
	}
	rawState, _ := json.Marshal(saved)
	if err := f.store.Set(ctx, keyState, rawState); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	f.ctrl.Init(ctx)

	snap := f.ctrl.Snapshot()
	if snap.View != ViewIssue {
		t.Fatalf("View = %q, want the resumed issue view", snap.View)
	}
	if snap.Action.ID != 42 {
		t.Fatalf("Action.ID = %d, want the saved 42", snap.Action.ID)
	}
	if snap.Action.Timer != 1_699_999_000_000 {
		t.Fatalf("Action.Timer = %d, want the original start timestamp", snap.Action.Timer)
	}
	if snap.Action.Stopped {
		t.Fatal("Action.Stopped = true, want still running")
	}
	if snap.Issue == nil || snap.Issue.ID != 42 {
		t.Fatalf("Issue = %#v, want issue 42 refetched", snap.Issue)
	}
}

func TestOpenIssue_SecondTimerStartIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ctrl.Login(ctx, f.apiKeyConfig())

	f.ctrl.OpenIssue(ctx, 42, true)
	first := f.ctrl.Snapshot().Action

	f.advance(10 * time.Minute)
	f.ctrl.OpenIssue(ctx, 43, true)

	second := f.ctrl.Snapshot().Action
	if second.ID != first.ID || second.Timer != first.Timer {
		t.Fatalf("Action changed: got %+v, want %+v preserved", second, first)
	}
}

func TestFinalizeAndLogTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ctrl.Login(ctx, f.apiKeyConfig())

	f.ctrl.OpenIssue(ctx, 42, true)
	f.advance(90 * time.Minute)
	f.ctrl.Finalize(ctx, "pairing on the build fix")

	snap := f.ctrl.Snapshot()
	if !snap.Action.Stopped {
		t.Fatal("Action.Stopped = false, want stopped after finalize")
	}
	if snap.Action.Total != "1.50" {
		t.Fatalf("Action.Total = %q, want 1.50 for 90 minutes", snap.Action.Total)
	}
	if snap.Action.Activity == nil || snap.Action.Activity.ID != 9 {
		t.Fatalf("Action.Activity = %#v, want the resolved default activity", snap.Action.Activity)
	}

	// Finalizing again must not restamp anything.
	f.advance(30 * time.Minute)
	f.ctrl.Finalize(ctx, "second call")
	if got := f.ctrl.Snapshot().Action; got.Total != "1.50" || got.Message != "pairing on the build fix" {
		t.Fatalf("second finalize mutated Action: %+v", got)
	}

	f.ctrl.LogTime(ctx)

	f.fake.mu.Lock()
	bodies := f.fake.entryBodies
	f.fake.mu.Unlock()
	if len(bodies) != 1 {
		t.Fatalf("time entry submissions = %d, want 1", len(bodies))
	}
	var posted struct {
		TimeEntry redmine.NewTimeEntry `json:"time_entry"`
	}
	if err := json.Unmarshal(bodies[0], &posted); err != nil {
		t.Fatalf("unmarshal time entry body: %v", err)
	}
	want := redmine.NewTimeEntry{
		IssueID:    42,
		Hours:      "1.50",
		ActivityID: 9,
		Comments:   "pairing on the build fix",
	}
	if posted.TimeEntry != want {
		t.Fatalf("posted entry = %#v, want %#v", posted.TimeEntry, want)
	}

	snap = f.ctrl.Snapshot()
	if snap.View != ViewListIssues {
		t.Fatalf("View = %q, want back on the issue list", snap.View)
	}
	if snap.Action.Active() {
		t.Fatalf("Action = %+v, want cleared after submission", snap.Action)
	}

	// The cleared Action must be durable.
	raw, err := f.store.Get(ctx, keyState)
	if err != nil {
		t.Fatalf("read persisted state: %v", err)
	}
	var persisted persistedState
	if err := json.Unmarshal(raw, &persisted); err != nil {
		t.Fatalf("unmarshal persisted state: %v", err)
	}
	if persisted.Obj != nil {
		t.Fatalf("persisted Obj = %+v, want null after clearing", persisted.Obj)
	}
	if persisted.View != ViewListIssues {
		t.Fatalf("persisted View = %q, want listIssues", persisted.View)
	}
}

func TestActionChangesArePersistedImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ctrl.Login(ctx, f.apiKeyConfig())

	f.ctrl.OpenIssue(ctx, 42, true)

	raw, err := f.store.Get(ctx, keyState)
	if err != nil {
		t.Fatalf("read persisted state: %v", err)
	}
	var persisted persistedState
	if err := json.Unmarshal(raw, &persisted); err != nil {
		t.Fatalf("unmarshal persisted state: %v", err)
	}
	if persisted.View != ViewIssue {
		t.Fatalf("persisted View = %q, want issue", persisted.View)
	}
	if persisted.Obj == nil || persisted.Obj.ID != 42 {
		t.Fatalf("persisted Obj = %+v, want the started Action", persisted.Obj)
	}
	if persisted.Obj.Timer == 0 {
		t.Fatal("persisted Obj.Timer = 0, want the start timestamp")
	}
}

func TestLogout_KeepsOnlyBaseURL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ctrl.Login(ctx, f.apiKeyConfig())
	f.ctrl.OpenIssue(ctx, 42, true)

	f.ctrl.Logout(ctx)

	snap := f.ctrl.Snapshot()
	if snap.View != ViewConfigForm {
		t.Fatalf("View = %q, want config form after logout", snap.View)
	}
	if snap.Config.BaseURL != f.fake.server.URL {
		t.Fatalf("Config.BaseURL = %q, want kept for convenience", snap.Config.BaseURL)
	}
	if snap.Config.APIKey != "" || snap.Config.UseAPIKey {
		t.Fatalf("Config = %+v, want credentials discarded", snap.Config)
	}
	if snap.Action.Active() {
		t.Fatalf("Action = %+v, want discarded", snap.Action)
	}

	raw, err := f.store.Get(ctx, keyConfig)
	if err != nil {
		t.Fatalf("read config key: %v", err)
	}
	if len(raw) != 0 {
		t.Fatalf("config key = %q, want cleared from store", raw)
	}
}

func TestWorkflow_ExcludesCurrentStatus(t *testing.T) {
	f := newFixture(t)
	f.ctrl.Login(context.Background(), f.apiKeyConfig())

	next := f.ctrl.Workflow(2)
	if len(next) != 2 {
		t.Fatalf("Workflow returned %d statuses, want 2", len(next))
	}
	for _, st := range next {
		if st.ID == 2 {
			t.Fatalf("Workflow included the current status: %#v", next)
		}
	}
}

func TestConfig_Domain(t *testing.T) {
	cases := []struct {
		baseURL string
		want    string
		wantErr bool
	}{
		{baseURL: "https://redmine.example.com/", want: "redmine.example.com"},
		{baseURL: "http://tracker.local:3000/redmine", want: "tracker.local"},
		{baseURL: "redmine.example.com", wantErr: true},
	}
	for _, tc := range cases {
		got, err := Config{BaseURL: tc.baseURL}.Domain()
		if tc.wantErr {
			if err == nil {
				t.Errorf("Domain(%q) = %q, want error", tc.baseURL, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Domain(%q) returned error: %v", tc.baseURL, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Domain(%q) = %q, want %q", tc.baseURL, got, tc.want)
		}
	}
}

func TestLogin_CookieModeUsesCookieSource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	jarPath := filepath.Join(t.TempDir(), "cookies.json")
	jar := map[string]map[string]string{
		"127.0.0.1": {redmine.SessionCookieName: "s3cret"},
	}
	raw, _ := json.Marshal(jar)
	if err := os.WriteFile(jarPath, raw, 0o600); err != nil {
		t.Fatalf("write cookie file: %v", err)
	}

	var gotCookie string

	// Wrap the default factory to observe the resolved credentials.
	f.ctrl = New(Options{
		Store:   f.store,
		Cookies: NewFileCookieSource(jarPath),
		Now:     func() time.Time { return *f.now },
		Clients: func(baseURL string, auth redmine.Credentials) (redmine.API, error) {
			if auth.Mode() != redmine.AuthCookie {
				t.Errorf("auth mode = %v, want AuthCookie", auth.Mode())
			}
			gotCookie = "configured"
			return redmine.NewClient(baseURL, auth)
		},
	})

	cfg := Config{BaseURL: f.fake.server.URL, UseCookies: true}
	f.ctrl.Login(ctx, cfg)

	if gotCookie != "configured" {
		t.Fatal("client factory never saw cookie credentials")
	}
	if snap := f.ctrl.Snapshot(); snap.State != StateReady {
		t.Fatalf("State = %v, want StateReady (err %q)", snap.State, snap.LastError)
	}
}
