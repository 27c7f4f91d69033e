package detail

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/vibratodo/internal/category"
	"github.com/nhle/vibratodo/internal/keys"
	"github.com/nhle/vibratodo/internal/model"
	"github.com/nhle/vibratodo/internal/theme"
	"github.com/nhle/vibratodo/internal/ui/tasklist"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// Model is the task detail view component.
type Model struct {
	task       *model.Task
	viewport   viewport.Model
	keys       *keys.KeyMap
	categories *category.Registry
	now        func() time.Time
	width      int
	height     int
}

// New creates a new detail view model.
func New(categories *category.Registry, keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport:   vp,
		keys:       keys,
		categories: categories,
		now:        time.Now,
		width:      width,
		height:     height,
	}
}

// TaskID returns the id of the displayed task.
func (m Model) TaskID() string {
	if m.task == nil {
		return ""
	}
	return m.task.ID
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }

		case key.Matches(msg, m.keys.Edit) && m.task != nil:
			id := m.task.ID
			return m, func() tea.Msg {
				return tasklist.ActionMsg{Action: tasklist.ActionEdit, TaskID: id}
			}

		case key.Matches(msg, m.keys.Toggle) && m.task != nil:
			id := m.task.ID
			return m, func() tea.Msg {
				return tasklist.ActionMsg{Action: tasklist.ActionToggle, TaskID: id}
			}
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	if m.task == nil {
		emptyStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return emptyStyle.Render("No task selected")
	}

	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.task == nil {
		return ""
	}

	task := m.task
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	title := task.Title
	if task.Completed {
		title = "✓ " + title
	}
	sections = append(sections, titleStyle.Render(title))

	// Badges line: category + priority + state
	cat := m.categories.ByID(task.Category)
	catBadge := theme.CategoryStyle(cat.Color).Bold(true).Render("● " + cat.DisplayName)
	priBadge := theme.PriorityStyle(task.Priority).Render(task.Priority.Label() + " priority")
	state := "Active"
	if task.Completed {
		state = "Completed"
	}
	badgeLine := lipgloss.JoinHorizontal(
		lipgloss.Top, catBadge, "  ", priBadge, "  ", theme.MutedStyle.Render(state),
	)
	sections = append(sections, badgeLine, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)

	if task.DueDate != nil {
		due := valStyle.Render(model.FormatDate(task.DueDate))
		if task.IsOverdue(m.now()) {
			due += theme.OverdueStyle.Render(" OVERDUE")
		}
		sections = append(sections, fmt.Sprintf("%s       %s", metaStyle.Render("Due:"), due))
	}
	if !task.CreatedAt.IsZero() {
		sections = append(sections, fmt.Sprintf(
			"%s   %s",
			metaStyle.Render("Created:"),
			valStyle.Render(task.CreatedAt.Local().Format("2006-01-02 15:04")),
		))
	}
	sections = append(sections, fmt.Sprintf(
		"%s  %s",
		metaStyle.Render("Position:"),
		valStyle.Render(fmt.Sprint(task.Position)),
	))

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 1)))
	sections = append(sections, "", separator, "")

	descHeaderStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	sections = append(sections, descHeaderStyle.Render("Description"))

	body := task.Description
	if body == "" {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No description")
	}
	sections = append(sections, body)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetTask updates the task being displayed and re-renders the content.
// A nil task clears the view.
func (m *Model) SetTask(t *model.Task) {
	m.task = t
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// Refresh re-renders t when it is the displayed task, keeping the scroll
// position.
func (m *Model) Refresh(t model.Task, ok bool) {
	if m.task == nil {
		return
	}
	if !ok {
		m.task = nil
		return
	}
	m.task = &t
	m.viewport.SetContent(m.renderContent())
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	if m.task != nil {
		m.viewport.SetContent(m.renderContent())
	}
}
