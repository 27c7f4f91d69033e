package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/vibratodo/internal/category"
	"github.com/nhle/vibratodo/internal/model"
	"github.com/nhle/vibratodo/internal/theme"
)

// Layout manages the terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	FilterBarHeight int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// The header, filter bar and status bar are one line each.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		FilterBarHeight: 1,
		StatusBarHeight: 1,
	}
}

// ContentHeight returns the height available for the task list.
func (l Layout) ContentHeight() int {
	h := l.Height - l.HeaderHeight - l.FilterBarHeight - l.StatusBarHeight
	if h < 1 {
		return 1
	}
	return h
}

// StatsSummary formats stats for the header, e.g. "3/5 done · 1 due today · 60%".
func StatsSummary(s model.Stats) string {
	return fmt.Sprintf("%d/%d done · %d due today · %d%%",
		s.Completed, s.Total, s.DueToday, s.Progress)
}

// RenderHeader renders the top header bar with a title on the left and the
// stats summary on the right.
func (l Layout) RenderHeader(title string, stats model.Stats) string {
	titleRendered := theme.HeaderStyle.Render(title)
	statsRendered := theme.HeaderStyle.
		Align(lipgloss.Right).
		Render(StatsSummary(stats))

	gap := max(l.Width-lipgloss.Width(titleRendered)-lipgloss.Width(statsRendered), 0)

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(theme.HeaderStyle.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		filler,
		statsRendered,
	)
}

// RenderFilterBar renders one tab per filter value with the active one
// highlighted in its category color.
func (l Layout) RenderFilterBar(reg *category.Registry, active string) string {
	tabs := make([]string, 0, len(reg.Filters()))
	for i, f := range reg.Filters() {
		label, color := "All", ""
		if f != category.All {
			c := reg.ByID(f)
			label, color = c.DisplayName, c.Color
		}
		tabs = append(tabs, theme.FilterTabStyle(color, f == active).
			Render(fmt.Sprintf("%d %s", i, label)))
	}
	return lipgloss.NewStyle().MaxWidth(l.Width).Render(strings.Join(tabs, " "))
}

// RenderStatusBar renders the bottom status bar. A notification, when set,
// replaces the keyboard hints.
func (l Layout) RenderStatusBar(hints string, note *model.Notification) string {
	var rendered string
	switch {
	case note == nil:
		rendered = theme.StatusBarStyle.Render(hints)
	case note.IsError():
		rendered = theme.ToastErrorStyle.Render(note.Message)
	default:
		rendered = theme.ToastSuccessStyle.Render(note.Message)
	}

	gap := max(l.Width-lipgloss.Width(rendered), 0)

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(theme.StatusBarStyle.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, filter bar, content area, and status bar.
func (l Layout) RenderWithFrame(
	header string,
	filters string,
	content string,
	statusBar string,
) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		filters,
		content,
		statusBar,
	)
}
