package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"punchcard/internal/session"
)

// Form field indices on the config view.
const (
	fieldBaseURL = iota
	fieldUsername
	fieldPassword
	fieldAPIKey
	fieldCount
)

// authChoice is the auth strategy selected on the config form.
type authChoice int

const (
	authBasic authChoice = iota
	authAPIKey
	authCookie
)

func (a authChoice) String() string {
	switch a {
	case authAPIKey:
		return "API key"
	case authCookie:
		return "browser cookie"
	default:
		return "basic auth"
	}
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx   context.Context
	ctrl  *session.Controller
	theme Theme

	snap   session.Snapshot
	width  int
	height int

	// Issue list state
	selected int

	// Config form state
	inputs   [fieldCount]textinput.Model
	auth     authChoice
	focusIdx int

	// Comment entry shown while finalizing
	comment    textinput.Model
	commenting bool

	status string
}

type (
	sessionEventMsg session.Event
	tickMsg         time.Time
)

// New creates the root model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	m := Model{
		ctx:   ctx,
		ctrl:  opts.Controller,
		theme: themeByName(opts.ThemeName),
		snap:  opts.Controller.Snapshot(),
	}

	labels := [fieldCount]string{"https://redmine.example.com", "username", "password", "API key"}
	for i := range m.inputs {
		in := textinput.New()
		in.Placeholder = labels[i]
		in.CharLimit = 200
		m.inputs[i] = in
	}
	m.inputs[fieldPassword].EchoMode = textinput.EchoPassword
	m.inputs[fieldBaseURL].Focus()

	m.comment = textinput.New()
	m.comment.Placeholder = "what did you work on?"
	m.comment.CharLimit = 255

	return m
}

// Init arms the event listener and the timer tick.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), tick(), textinput.Blink)
}

func (m Model) waitForEvent() tea.Cmd {
	events := m.ctrl.Events()
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return sessionEventMsg(ev)
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case sessionEventMsg:
		m.snap = m.ctrl.Snapshot()
		if msg.Kind == session.EventErrorRaised {
			m.status = msg.Message
		}
		if msg.Kind == session.EventViewChanged {
			m.status = ""
			m.selected = 0
			m.commenting = false
			if msg.View == session.ViewConfigForm {
				m.seedForm()
			}
		}
		return m, m.waitForEvent()

	case tickMsg:
		// Re-render so a running timer advances on screen.
		return m, tick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	switch m.snap.View {
	case session.ViewConfigForm:
		return m.updateConfigForm(msg)
	case session.ViewListIssues:
		return m.updateIssueList(msg)
	case session.ViewIssue:
		return m.updateIssueDetail(msg)
	}

	if msg.String() == "q" {
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateConfigForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyTab, tea.KeyDown:
		m.focusField((m.focusIdx + 1) % fieldCount)
		return m, nil
	case tea.KeyShiftTab, tea.KeyUp:
		m.focusField((m.focusIdx + fieldCount - 1) % fieldCount)
		return m, nil
	case tea.KeyCtrlA:
		m.auth = (m.auth + 1) % 3
		return m, nil
	case tea.KeyEnter:
		cfg := m.formConfig()
		ctrl, ctx := m.ctrl, m.ctx
		return m, func() tea.Msg {
			ctrl.Login(ctx, cfg)
			return nil
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focusIdx], cmd = m.inputs[m.focusIdx].Update(msg)
	return m, cmd
}

func (m *Model) focusField(idx int) {
	m.inputs[m.focusIdx].Blur()
	m.focusIdx = idx
	m.inputs[m.focusIdx].Focus()
}

// seedForm prefills the form from the current config, keeping the base URL
// after logout.
func (m *Model) seedForm() {
	cfg := m.snap.Config
	m.inputs[fieldBaseURL].SetValue(cfg.BaseURL)
	m.inputs[fieldUsername].SetValue(cfg.Username)
	m.inputs[fieldPassword].SetValue("")
	m.inputs[fieldAPIKey].SetValue("")
	switch {
	case cfg.UseCookies:
		m.auth = authCookie
	case cfg.UseAPIKey:
		m.auth = authAPIKey
	default:
		m.auth = authBasic
	}
	m.focusField(fieldBaseURL)
}

func (m Model) formConfig() session.Config {
	cfg := session.Config{
		BaseURL:  strings.TrimSpace(m.inputs[fieldBaseURL].Value()),
		UserPref: m.snap.Config.UserPref,
	}
	switch m.auth {
	case authCookie:
		cfg.UseCookies = true
	case authAPIKey:
		cfg.UseAPIKey = true
		cfg.APIKey = strings.TrimSpace(m.inputs[fieldAPIKey].Value())
	default:
		cfg.Username = strings.TrimSpace(m.inputs[fieldUsername].Value())
		cfg.Password = m.inputs[fieldPassword].Value()
	}
	return cfg
}

func (m Model) updateIssueList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctrl, ctx := m.ctrl, m.ctx

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "j", "down":
		if m.selected < len(m.snap.Issues)-1 {
			m.selected++
		}
		return m, nil
	case "k", "up":
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case "r":
		return m, func() tea.Msg {
			ctrl.ListIssues(ctx, false)
			return nil
		}
	case "enter":
		if id, ok := m.selectedIssueID(); ok {
			return m, func() tea.Msg {
				ctrl.OpenIssue(ctx, id, false)
				return nil
			}
		}
	case "s":
		if id, ok := m.selectedIssueID(); ok {
			return m, func() tea.Msg {
				ctrl.OpenIssue(ctx, id, true)
				return nil
			}
		}
	case "L":
		return m, func() tea.Msg {
			ctrl.Logout(ctx)
			return nil
		}
	}
	return m, nil
}

func (m Model) selectedIssueID() (int64, bool) {
	if m.selected < 0 || m.selected >= len(m.snap.Issues) {
		return 0, false
	}
	return m.snap.Issues[m.selected].ID, true
}

func (m Model) updateIssueDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctrl, ctx := m.ctrl, m.ctx

	if m.commenting {
		switch msg.Type {
		case tea.KeyEnter:
			message := m.comment.Value()
			m.commenting = false
			return m, func() tea.Msg {
				ctrl.Finalize(ctx, message)
				return nil
			}
		case tea.KeyEsc:
			m.commenting = false
			return m, nil
		}
		var cmd tea.Cmd
		m.comment, cmd = m.comment.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc", "b":
		return m, func() tea.Msg {
			ctrl.ListIssues(ctx, false)
			return nil
		}
	case "f":
		if m.snap.Action.Active() && !m.snap.Action.Stopped {
			m.commenting = true
			m.comment.SetValue("")
			m.comment.Focus()
			return m, textinput.Blink
		}
	case "enter":
		if m.snap.Action.Stopped {
			return m, func() tea.Msg {
				ctrl.LogTime(ctx)
				return nil
			}
		}
	case "c":
		if m.snap.Action.Active() {
			return m, func() tea.Msg {
				ctrl.CancelAction(ctx)
				return nil
			}
		}
	}
	return m, nil
}
