package help

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/vibratodo/internal/category"
	"github.com/nhle/vibratodo/internal/keys"
	"github.com/nhle/vibratodo/internal/theme"
)

// Model is the help overlay: the full key map followed by the palette
// commands and the category legend.
type Model struct {
	keys       *keys.KeyMap
	help       help.Model
	categories *category.Registry
	width      int
	height     int
}

func New(categories *category.Registry, km *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.ShowAll = true
	m := Model{keys: km, help: h, categories: categories}
	m.SetSize(width, height)
	return m
}

func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Keyboard Shortcuts")

	sections := []string{title, m.help.View(m.keys), "", m.commandLine(), "", m.legend()}

	return theme.FormPanelStyle.
		Width(max(m.width-4, 1)).
		Height(max(m.height-4, 1)).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) commandLine() string {
	filters := strings.Join(m.categories.Filters(), "|")
	return theme.HelpStyle.Render(fmt.Sprintf(
		"Commands (:)  filter <%s>  refresh  new  logout  quit", filters,
	))
}

// legend lists each category with its number key and color.
func (m Model) legend() string {
	parts := make([]string, 0, len(m.categories.All()))
	for i, c := range m.categories.All() {
		dot := theme.CategoryStyle(c.Color).Render("●")
		parts = append(parts, fmt.Sprintf("%d %s %s", i+1, dot, c.DisplayName))
	}
	return theme.MutedStyle.Render("Categories  ") + strings.Join(parts, "   ")
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = max(width-4, 0)
}
