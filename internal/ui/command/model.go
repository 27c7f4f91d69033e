package command

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/vibratodo/internal/category"
	"github.com/nhle/vibratodo/internal/theme"
)

// Palette command names.
const (
	Filter  = "filter"
	Refresh = "refresh"
	New     = "new"
	Logout  = "logout"
	Quit    = "quit"
)

// CommandMsg is emitted when the user executes a valid command.
type CommandMsg struct {
	Name string
	Arg  string
}

// ErrorMsg is emitted when the typed command cannot be parsed.
type ErrorMsg struct {
	Err error
}

// Parse splits a palette line into a command and checks its argument.
func Parse(line string, categories *category.Registry) (CommandMsg, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return CommandMsg{}, fmt.Errorf("empty command")
	}

	cmd := CommandMsg{Name: fields[0]}
	switch cmd.Name {
	case Filter:
		if len(fields) != 2 {
			return CommandMsg{}, fmt.Errorf("usage: filter <%s>", strings.Join(categories.Filters(), "|"))
		}
		if !categories.ValidFilter(fields[1]) {
			return CommandMsg{}, fmt.Errorf("unknown category %q", fields[1])
		}
		cmd.Arg = fields[1]
	case Refresh, New, Logout, Quit:
		if len(fields) != 1 {
			return CommandMsg{}, fmt.Errorf("%s takes no arguments", cmd.Name)
		}
	default:
		return CommandMsg{}, fmt.Errorf("unknown command %q", cmd.Name)
	}
	return cmd, nil
}

// suggestions lists every complete command line for tab completion.
func suggestions(categories *category.Registry) []string {
	out := []string{Refresh, New, Logout, Quit}
	for _, f := range categories.Filters() {
		out = append(out, Filter+" "+f)
	}
	return out
}

// Model is the command palette view.
type Model struct {
	input      textinput.Model
	categories *category.Registry
	width      int
	height     int
}

// NewModel creates a new command palette model.
func NewModel(categories *category.Registry, width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "filter work, refresh, logout..."
	ti.Prompt = ": "
	ti.ShowSuggestions = true
	ti.SetSuggestions(suggestions(categories))
	ti.Focus()
	ti.Width = width - 6

	return Model{
		input:      ti,
		categories: categories,
		width:      width,
		height:     height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEnter {
		line := strings.TrimSpace(m.input.Value())
		m.input.Reset()
		if line == "" {
			return m, nil
		}
		parsed, err := Parse(line, m.categories)
		if err != nil {
			return m, func() tea.Msg { return ErrorMsg{Err: err} }
		}
		return m, func() tea.Msg { return parsed }
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	title := titleStyle.Render("Command Palette")
	input := m.input.View()

	content := lipgloss.JoinVertical(lipgloss.Left, title, input)

	return theme.FormPanelStyle.
		Width(m.width - 4).
		Render(content)
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}
