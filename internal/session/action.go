package session

import (
	"time"

	"punchcard/internal/redmine"
)

// Action is the single in-flight timed work session, bound to one issue.
// Only one Action exists system-wide at a time; the zero value means no
// timer is running.
//
// Invariants: ID and Timer are set exactly once when the timer starts and
// never mutated afterwards. Stopped transitions false to true exactly once.
// Total, Activity and Message are only populated once Stopped is true. The
// Action resets to the zero value after a successful time entry submission,
// an explicit cancel, or logout.
type Action struct {
	ID       int64                `json:"id,omitempty"`
	Timer    int64                `json:"timer,omitempty"` // ms since epoch at timer start
	Stopped  bool                 `json:"stopped,omitempty"`
	Total    string               `json:"total,omitempty"`
	Activity *redmine.ActivityRef `json:"activity,omitempty"`
	Message  string               `json:"message,omitempty"`
}

// Active reports whether a timer is running or awaiting submission.
func (a Action) Active() bool { return a.ID != 0 }

// Elapsed returns the wall-clock time since the timer started.
func (a Action) Elapsed(now time.Time) time.Duration {
	if !a.Active() {
		return 0
	}
	elapsed := now.Sub(time.UnixMilli(a.Timer))
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// persistedState is the durable {view, obj} pair written under the "state"
// key. Obj is always the latest Action snapshot, never a history.
type persistedState struct {
	View View    `json:"view"`
	Obj  *Action `json:"obj"`
}
