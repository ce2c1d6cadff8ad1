package ui

import (
	"fmt"
	"strings"
	"time"

	"punchcard/internal/billing"
	"punchcard/internal/session"
)

// View renders the current session view.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.theme.Title.Render("punchcard"))
	if m.snap.Loading {
		b.WriteString(m.theme.Subtle.Render("  syncing..."))
	}
	b.WriteString("\n\n")

	switch m.snap.View {
	case session.ViewConfigForm:
		b.WriteString(m.renderConfigForm())
	case session.ViewListIssues:
		b.WriteString(m.renderIssueList())
	case session.ViewIssue:
		b.WriteString(m.renderIssueDetail())
	default:
		b.WriteString(m.theme.Subtle.Render("connecting..."))
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(m.theme.Error.Render(m.status))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderConfigForm() string {
	var b strings.Builder
	b.WriteString(m.theme.Subtle.Render("sign in to your Redmine server"))
	b.WriteString("\n\n")

	rows := []struct {
		label string
		field int
		show  bool
	}{
		{"server", fieldBaseURL, true},
		{"username", fieldUsername, m.auth == authBasic},
		{"password", fieldPassword, m.auth == authBasic},
		{"api key", fieldAPIKey, m.auth == authAPIKey},
	}
	for _, row := range rows {
		if !row.show {
			continue
		}
		b.WriteString(m.theme.FieldName.Render(row.label))
		b.WriteString(m.inputs[row.field].View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.theme.FieldName.Render("auth"))
	b.WriteString(m.theme.Badge.Render(m.auth.String()))
	b.WriteString("\n\n")
	b.WriteString(m.theme.Help.Render("tab: next field • ctrl+a: auth mode • enter: sign in • ctrl+c: quit"))
	return b.String()
}

func (m Model) renderIssueList() string {
	var b strings.Builder
	b.WriteString(m.theme.Subtle.Render("issues assigned to you"))
	b.WriteString("\n\n")

	if len(m.snap.Issues) == 0 {
		b.WriteString(m.theme.Subtle.Render("  nothing assigned"))
		b.WriteString("\n")
	}
	for i, issue := range m.snap.Issues {
		line := fmt.Sprintf("#%-6d %-12s %s", issue.ID, issue.Status.Name, issue.Subject)
		if i == m.selected {
			line = m.theme.Selected.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if m.snap.Action.Active() {
		b.WriteString("\n")
		b.WriteString(m.theme.Badge.Render(fmt.Sprintf("timer running on #%d: ", m.snap.Action.ID)))
		b.WriteString(m.theme.Timer.Render(m.runningClock()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.theme.Help.Render("j/k: move • enter: open • s: start timer • r: refresh • L: logout • q: quit"))
	return b.String()
}

func (m Model) renderIssueDetail() string {
	var b strings.Builder

	if issue := m.snap.Issue; issue != nil {
		b.WriteString(m.theme.Title.Render(fmt.Sprintf("#%d %s", issue.ID, issue.Subject)))
		b.WriteString("\n")
		meta := fmt.Sprintf("%s • %s • %s • %d%% done",
			issue.Project.Name, issue.Tracker.Name, issue.Status.Name, issue.DoneRatio)
		b.WriteString(m.theme.Subtle.Render(meta))
		b.WriteString("\n\n")
		if issue.Description != "" {
			b.WriteString(issue.Description)
			b.WriteString("\n\n")
		}
		if len(issue.Attachments) > 0 {
			b.WriteString(m.theme.Subtle.Render(fmt.Sprintf("%d attachment(s)", len(issue.Attachments))))
			b.WriteString("\n\n")
		}
	} else {
		b.WriteString(m.theme.Subtle.Render("loading issue..."))
		b.WriteString("\n\n")
	}

	action := m.snap.Action
	switch {
	case m.commenting:
		b.WriteString(m.theme.FieldName.Render("comment"))
		b.WriteString(m.comment.View())
		b.WriteString("\n\n")
		b.WriteString(m.theme.Help.Render("enter: stop timer • esc: keep running"))
	case action.Active() && !action.Stopped:
		b.WriteString(m.theme.Badge.Render("elapsed "))
		b.WriteString(m.theme.Timer.Render(m.runningClock()))
		b.WriteString("\n\n")
		b.WriteString(m.theme.Help.Render("f: finish • c: cancel • esc: back • q: quit"))
	case action.Stopped:
		line := fmt.Sprintf("ready to log %s hours", action.Total)
		if action.Activity != nil {
			line += " as " + action.Activity.Name
		}
		b.WriteString(m.theme.Badge.Render(line))
		b.WriteString("\n\n")
		b.WriteString(m.theme.Help.Render("enter: submit • c: discard • esc: back"))
	default:
		b.WriteString(m.theme.Help.Render("esc: back • q: quit"))
	}
	return b.String()
}

// runningClock formats the active timer's elapsed wall-clock time.
func (m Model) runningClock() string {
	return billing.FormatClock(m.snap.Action.Elapsed(time.Now()))
}
