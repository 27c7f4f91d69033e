// Package app is the root Bubble Tea model of the terminal UI.
package app

import (
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/nhle/vibratodo/internal/category"
	"github.com/nhle/vibratodo/internal/keys"
	"github.com/nhle/vibratodo/internal/model"
	"github.com/nhle/vibratodo/internal/tasks"
	"github.com/nhle/vibratodo/internal/theme"
	"github.com/nhle/vibratodo/internal/ui"
	"github.com/nhle/vibratodo/internal/ui/command"
	"github.com/nhle/vibratodo/internal/ui/detail"
	helpview "github.com/nhle/vibratodo/internal/ui/help"
	"github.com/nhle/vibratodo/internal/ui/tasklist"
	"github.com/nhle/vibratodo/internal/ui/todoform"
)

// toastDuration is how long a notification stays in the status bar.
const toastDuration = 4 * time.Second

// clearToastMsg hides the notification with the matching sequence number.
type clearToastMsg struct {
	seq int
}

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewHelp
	ViewCommand
	ViewForm
	ViewSignedOut
	ViewDetail
)

// Session is the sign-in state the UI gates the task list on.
type Session interface {
	IsAuthenticated() bool
	Logout() error
	OnLogout(fn func())
}

// Options configures the root model.
type Options struct {
	Controller *tasks.Controller
	Categories *category.Registry

	// Session is nil when the backend needs no sign-in.
	Session Session

	// Filter is the category shown first; empty means all.
	Filter string

	Log *logrus.Entry
}

// Model is the root Bubble Tea model that manages view routing,
// layout, and the task list controller.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	ctrl         *tasks.Controller
	session      Session
	categories   *category.Registry
	keys         *keys.KeyMap
	taskList     tasklist.Model
	helpView     helpview.Model
	commandView  command.Model
	formView     todoform.Model
	detailView   detail.Model
	filter       string
	log          *logrus.Entry

	toast    *model.Notification
	toastSeq int
	tick     func(time.Duration, func(time.Time) tea.Msg) tea.Cmd

	ready bool
}

// New creates a new root application model.
func New(opts Options) Model {
	km := keys.DefaultKeyMap()
	log := opts.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	filter := opts.Filter
	if filter == "" {
		filter = category.All
	}

	m := Model{
		currentView: ViewList,
		ctrl:        opts.Controller,
		session:     opts.Session,
		categories:  opts.Categories,
		keys:        km,
		taskList:    tasklist.New(opts.Categories, km, 80, 24),
		helpView:    helpview.New(opts.Categories, km, 80, 24),
		commandView: command.NewModel(opts.Categories, 80, 24),
		formView:    todoform.New(opts.Categories, 80, 24),
		detailView:  detail.New(opts.Categories, km, 80, 24),
		filter:      filter,
		log:         log.WithField("component", "app"),
		tick:        tea.Tick,
	}
	if m.session != nil {
		m.session.OnLogout(m.ctrl.Reset)
	}
	if !m.signedIn() {
		m.currentView = ViewSignedOut
	}
	return m
}

// Init mounts the task list, or shows the sign-in notice when the session
// is missing.
func (m Model) Init() tea.Cmd {
	if !m.signedIn() {
		return nil
	}
	return m.ctrl.Mount(m.filter)
}

func (m Model) signedIn() bool {
	return m.session == nil || m.session.IsAuthenticated()
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.currentView == ViewSignedOut && !m.signedIn() {
		// Nothing below may run against the store until sign-in.
		if _, ok := msg.(tea.KeyMsg); !ok {
			if _, ok := msg.(tea.WindowSizeMsg); !ok {
				return m, nil
			}
		}
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.Width, m.layout.ContentHeight()
		m.taskList.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		m.formView.SetSize(w, h)
		m.detailView.SetSize(w, h)
		if m.currentView == ViewForm {
			return m.updateActiveView(msg)
		}
		return m, nil

	case tasks.LoadedMsg:
		cmd := m.ctrl.Update(msg)
		if msg.Err() == nil && !m.ctrl.Loading() {
			m.formView.Drafts().Reconcile(m.ctrl.Tasks())
		}
		m.syncList()
		return m, cmd

	case tasks.StatsMsg:
		cmd := m.ctrl.Update(msg)
		m.syncList()
		return m, cmd

	case tasks.ResultMsg:
		m.formView.Drafts().Resolve(msg)
		cmd := m.ctrl.Update(msg)
		m.syncList()
		return m, cmd

	case tasks.NotificationMsg:
		return m, m.showToast(msg.Notification)

	case clearToastMsg:
		if msg.seq == m.toastSeq {
			m.toast = nil
		}
		return m, nil

	case tasklist.ActionMsg:
		return m.handleAction(msg)

	case todoform.SubmittedMsg:
		return m.handleSubmit(msg)

	case todoform.CancelledMsg:
		m.currentView = ViewList
		return m, nil

	case detail.BackMsg:
		m.detailView.SetTask(nil)
		m.currentView = ViewList
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m.executeCommand(msg)

	case command.ErrorMsg:
		m.currentView = m.previousView
		return m, m.showToast(errorNote("command", msg.Err.Error()))

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	return m.updateActiveView(msg)
}

// handleKey processes keys that belong to the root model. It reports false
// when the key should go to the active view.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		return tea.Quit, true
	}

	switch m.currentView {
	case ViewSignedOut:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return tea.Quit, true
		case key.Matches(msg, m.keys.Refresh):
			if m.signedIn() {
				m.currentView = ViewList
				return m.ctrl.Mount(m.filter), true
			}
		}
		return nil, true

	case ViewHelp:
		if key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Back) {
			m.currentView = m.previousView
		}
		return nil, true

	case ViewCommand:
		if key.Matches(msg, m.keys.Back) {
			m.currentView = m.previousView
			return nil, true
		}
		return nil, false

	case ViewForm:
		return nil, false

	case ViewDetail:
		if key.Matches(msg, m.keys.Quit) {
			return tea.Quit, true
		}
		return nil, false
	}

	// List view. A pending delete confirmation owns the keyboard.
	if m.taskList.Confirming() {
		return nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit, true

	case key.Matches(msg, m.keys.Help):
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return nil, true

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m.commandView.Focus(), true

	case key.Matches(msg, m.keys.Refresh):
		return m.ctrl.Refresh(), true

	case key.Matches(msg, m.keys.NextFilter):
		return m.stepFilter(1), true

	case key.Matches(msg, m.keys.PrevFilter):
		return m.stepFilter(-1), true
	}

	if n, err := strconv.Atoi(msg.String()); err == nil {
		filters := m.categories.Filters()
		if n >= 0 && n < len(filters) {
			return m.setFilter(filters[n]), true
		}
	}

	return nil, false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewList:
		m.taskList, cmd = m.taskList.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewForm:
		m.formView, cmd = m.formView.Update(msg)
	case ViewDetail:
		m.detailView, cmd = m.detailView.Update(msg)
	}

	return m, cmd
}

// syncList copies the controller state into the list view.
func (m *Model) syncList() {
	m.taskList.SetTasks(m.ctrl.Tasks())
	m.taskList.SetState(tasklist.State{
		Loading: m.ctrl.Loading(),
		LoadErr: m.ctrl.LoadErr(),
		Filter:  m.ctrl.Filter(),
	})
	if id := m.detailView.TaskID(); id != "" {
		t, ok := m.ctrl.Task(id)
		m.detailView.Refresh(t, ok)
		if !ok && m.currentView == ViewDetail {
			m.currentView = ViewList
		}
	}
}

func (m *Model) showToast(n model.Notification) tea.Cmd {
	m.toastSeq++
	m.toast = &n
	seq := m.toastSeq
	return m.tick(toastDuration, func(time.Time) tea.Msg {
		return clearToastMsg{seq: seq}
	})
}

func errorNote(op, text string) model.Notification {
	return model.Notification{
		Kind:      model.NotifyError,
		Op:        op,
		Message:   text,
		CreatedAt: time.Now(),
	}
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("VibraToDo", m.ctrl.Stats())
	filters := m.layout.RenderFilterBar(m.categories, m.ctrl.Filter())
	content := lipgloss.NewStyle().
		Height(m.layout.ContentHeight()).
		MaxHeight(m.layout.ContentHeight()).
		Render(m.renderContent())
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.toast)

	return m.layout.RenderWithFrame(header, filters, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewList:
		return m.taskList.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewForm:
		return m.formView.View()
	case ViewDetail:
		return m.detailView.View()
	case ViewSignedOut:
		return lipgloss.NewStyle().
			Width(m.layout.Width).
			Height(m.layout.ContentHeight()).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("You are signed out.\n\n" +
				"Run `vibratodo login --token <token>` and press r.")
	default:
		return ""
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | tab complete | esc back"
	case ViewForm:
		return "enter next/submit | esc cancel"
	case ViewSignedOut:
		return "r retry | q quit"
	case ViewDetail:
		return "esc back | e edit | x done | j/k scroll"
	}
	if m.taskList.Confirming() {
		return "y delete | n cancel"
	}
	return "q quit | ? help | n new | enter view | x done | e edit | d delete | J/K move | tab category"
}
