package tasklist

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/vibratodo/internal/category"
	"github.com/nhle/vibratodo/internal/keys"
	"github.com/nhle/vibratodo/internal/model"
	"github.com/nhle/vibratodo/internal/theme"
)

// Action is a task operation requested from the list.
type Action int

const (
	ActionNew Action = iota
	ActionEdit
	ActionToggle
	ActionDelete
	ActionMoveUp
	ActionMoveDown
	ActionView
)

// ActionMsg is sent when the user asks for an operation on a task. TaskID
// is empty for ActionNew.
type ActionMsg struct {
	Action Action
	TaskID string
}

// State is what the list shows when it has no rows to render.
type State struct {
	Loading bool
	LoadErr error
	Filter  string
}

// Model is the task list view component.
type Model struct {
	list       list.Model
	keys       *keys.KeyMap
	categories *category.Registry
	state      State

	// confirmID is the task awaiting delete confirmation, if any.
	confirmID string

	width  int
	height int
}

// New creates a new task list model.
func New(categories *category.Registry, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, NewItemDelegate(categories, nil), width, height)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	return Model{
		list:       l,
		keys:       k,
		categories: categories,
		width:      width,
		height:     height,
	}
}

// SetTasks replaces the rows while keeping the cursor on the same task
// when it is still present.
func (m *Model) SetTasks(tasks []model.Task) tea.Cmd {
	selected := m.SelectedID()
	items := make([]list.Item, len(tasks))
	for i, t := range tasks {
		items[i] = TaskItem{Task: t}
	}
	cmd := m.list.SetItems(items)
	m.Select(selected)
	if m.confirmID != "" && !m.has(m.confirmID) {
		m.confirmID = ""
	}
	return cmd
}

// SetState updates the loading and error state shown when the list is
// empty.
func (m *Model) SetState(s State) {
	m.state = s
}

// Select moves the cursor to the task with id, if present.
func (m *Model) Select(id string) {
	if id == "" {
		return
	}
	for i, it := range m.list.Items() {
		if it.(TaskItem).Task.ID == id {
			m.list.Select(i)
			return
		}
	}
}

// SelectedID returns the id of the task under the cursor.
func (m Model) SelectedID() string {
	item, ok := m.list.SelectedItem().(TaskItem)
	if !ok {
		return ""
	}
	return item.Task.ID
}

// Confirming reports whether a delete confirmation is pending.
func (m Model) Confirming() bool {
	return m.confirmID != ""
}

func (m Model) has(id string) bool {
	for _, it := range m.list.Items() {
		if it.(TaskItem).Task.ID == id {
			return true
		}
	}
	return false
}

func action(a Action, id string) tea.Cmd {
	return func() tea.Msg {
		return ActionMsg{Action: a, TaskID: id}
	}
}

// Update handles messages for the task list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if m.confirmID != "" {
			return m.handleConfirmKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleConfirmKeys resolves a pending delete confirmation. Any key other
// than confirm or cancel is ignored.
func (m Model) handleConfirmKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		id := m.confirmID
		m.confirmID = ""
		return m, action(ActionDelete, id)
	case key.Matches(msg, m.keys.Cancel):
		m.confirmID = ""
	}
	return m, nil
}

// handleNormalKeys maps task keys to actions and passes the rest to the
// list for navigation.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Add) {
		return m, action(ActionNew, "")
	}

	id := m.SelectedID()
	if id != "" {
		switch {
		case key.Matches(msg, m.keys.View):
			return m, action(ActionView, id)
		case key.Matches(msg, m.keys.Edit):
			return m, action(ActionEdit, id)
		case key.Matches(msg, m.keys.Toggle):
			return m, action(ActionToggle, id)
		case key.Matches(msg, m.keys.Delete):
			m.confirmID = id
			return m, nil
		case key.Matches(msg, m.keys.MoveUp):
			return m, action(ActionMoveUp, id)
		case key.Matches(msg, m.keys.MoveDown):
			return m, action(ActionMoveDown, id)
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the task list view.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}
	if m.confirmID == "" {
		return m.list.View()
	}

	title := ""
	for _, it := range m.list.Items() {
		if t := it.(TaskItem).Task; t.ID == m.confirmID {
			title = t.Title
		}
	}
	prompt := theme.ConfirmStyle.Render(fmt.Sprintf("Delete %q? (y/n)", title))
	m.list.SetHeight(max(m.height-lipgloss.Height(prompt), 1))
	return lipgloss.JoinVertical(lipgloss.Left, m.list.View(), prompt)
}

// renderEmptyState shows loading, error or guidance text when no tasks are
// available.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	switch {
	case m.state.Loading:
		return style.Render("Loading tasks...")
	case m.state.LoadErr != nil:
		return style.Foreground(theme.ColorRed).Render(
			"Could not load tasks.\n\nPress r to retry.",
		)
	case m.state.Filter != "" && m.state.Filter != category.All:
		return style.Render(fmt.Sprintf(
			"No %s tasks.\n\nPress n to add one or 0 to show all.",
			m.categories.DisplayNameFor(m.state.Filter),
		))
	}
	return style.Render("No tasks found.\n\nPress n to add one.")
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
}
