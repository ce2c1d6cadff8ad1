package redmine

import "time"

// Ref is the compact {id, name} pair Redmine embeds for associated records.
type Ref struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// User mirrors /users/current.json.
type User struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Mail      string `json:"mail"`
	APIKey    string `json:"api_key"`
}

// IssueStatus mirrors an entry of /issue_statuses.json.
type IssueStatus struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	IsClosed bool   `json:"is_closed"`
}

// Tracker mirrors an entry of /trackers.json. DefaultStatus is the status a
// new issue of this tracker starts in; older servers omit it.
type Tracker struct {
	ID            int64        `json:"id"`
	Name          string       `json:"name"`
	DefaultStatus *IssueStatus `json:"default_status"`
}

// Activity mirrors an entry of /enumerations/time_entry_activities.json.
// DefaultStatus is populated by servers that pair activities with a workflow
// status; most leave it null.
type Activity struct {
	ID            int64        `json:"id"`
	Name          string       `json:"name"`
	IsDefault     bool         `json:"is_default"`
	DefaultStatus *IssueStatus `json:"default_status"`
}

// ActivityRef is the resolved activity a time entry books against.
type ActivityRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Issue describes an issue in transport-friendly form.
type Issue struct {
	ID          int64        `json:"id"`
	Subject     string       `json:"subject"`
	Description string       `json:"description"`
	Project     Ref          `json:"project"`
	Tracker     Ref          `json:"tracker"`
	Status      IssueStatus  `json:"status"`
	Priority    Ref          `json:"priority"`
	AssignedTo  Ref          `json:"assigned_to"`
	DoneRatio   int          `json:"done_ratio"`
	SpentHours  float64      `json:"spent_hours"`
	Attachments []Attachment `json:"attachments"`
	CreatedOn   string       `json:"created_on"`
	UpdatedOn   string       `json:"updated_on"`
}

// ParsedUpdatedOn returns the parsed UpdatedOn timestamp.
func (i Issue) ParsedUpdatedOn() time.Time {
	return parseTime(i.UpdatedOn)
}

// Attachment describes a file attached to an issue.
type Attachment struct {
	ID         int64  `json:"id"`
	Filename   string `json:"filename"`
	Filesize   int64  `json:"filesize"`
	ContentURL string `json:"content_url"`
}

// TimeEntry describes a logged time entry as returned by /time_entries.json.
type TimeEntry struct {
	ID       int64   `json:"id"`
	Project  Ref     `json:"project"`
	Issue    Ref     `json:"issue"`
	User     Ref     `json:"user"`
	Activity Ref     `json:"activity"`
	Hours    float64 `json:"hours"`
	Comments string  `json:"comments"`
	SpentOn  string  `json:"spent_on"`
}

// NewTimeEntry is the payload for creating a time entry. Hours is the
// quantized decimal string the billing package produces; Redmine accepts
// both string and numeric hours.
type NewTimeEntry struct {
	IssueID    int64  `json:"issue_id"`
	Hours      string `json:"hours"`
	ActivityID int64  `json:"activity_id"`
	Comments   string `json:"comments,omitempty"`
}

// IssueUpdate carries the fields of a partial issue update. Nil fields are
// left untouched by the server.
type IssueUpdate struct {
	StatusID  *int64 `json:"status_id,omitempty"`
	DoneRatio *int   `json:"done_ratio,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
