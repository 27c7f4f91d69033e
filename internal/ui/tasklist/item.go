package tasklist

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/vibratodo/internal/category"
	"github.com/nhle/vibratodo/internal/model"
	"github.com/nhle/vibratodo/internal/theme"
)

// TaskItem wraps a model.Task so it can be used in a bubbles/list.
type TaskItem struct {
	Task model.Task
}

// FilterValue returns the string used for fuzzy filtering.
func (i TaskItem) FilterValue() string { return i.Task.Title }

// Title returns the task title for the list.
func (i TaskItem) Title() string { return i.Task.Title }

// Description returns a short summary line for the list.
func (i TaskItem) Description() string {
	parts := []string{
		i.Task.Category,
		string(i.Task.Priority),
	}
	if i.Task.DueDate != nil {
		parts = append(parts, "due "+model.FormatDate(i.Task.DueDate))
	}
	return strings.Join(parts, " | ")
}

// ItemDelegate implements list.ItemDelegate for rendering task rows.
type ItemDelegate struct {
	categories *category.Registry
	now        func() time.Time
}

// NewItemDelegate returns a delegate that colors rows by category.
func NewItemDelegate(categories *category.Registry, now func() time.Time) ItemDelegate {
	if now == nil {
		now = time.Now
	}
	return ItemDelegate{categories: categories, now: now}
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single list item line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(TaskItem)
	if !ok {
		return
	}
	fmt.Fprint(w, d.renderLine(ti.Task, index == m.Index()))
}

// renderLine draws the check mark, category dot, priority badge, title,
// due date and overdue marker of one task.
func (d ItemDelegate) renderLine(t model.Task, selected bool) string {
	prefix := "○"
	if t.Completed {
		prefix = "✓"
	}

	dot := theme.CategoryStyle(d.categories.ColorFor(t.Category)).Render("●")
	priBadge := theme.PriorityStyle(t.Priority).Render(priorityLabel(t.Priority))

	due := ""
	overdue := ""
	now := d.now()
	if t.DueDate != nil {
		due = theme.DueDateStyle.Render(" " + dueLabel(*t.DueDate, now))
		if t.IsOverdue(now) {
			overdue = theme.OverdueStyle.Render(" OVERDUE")
		}
	}

	added := theme.MutedStyle.Render("  " + relativeTime(t.CreatedAt, now))

	var line string
	if t.Completed {
		line = fmt.Sprintf("%s %s %s %s%s%s",
			prefix, dot, priBadge, theme.DimmedStyle.Render(t.Title), due, added)
	} else {
		line = fmt.Sprintf("%s %s %s %s%s%s%s",
			prefix, dot, priBadge, t.Title, due, overdue, added)
	}

	if selected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

// dueLabel renders a due date relative to today when it is close.
func dueLabel(due, now time.Time) string {
	today := model.TruncateDate(now)
	switch model.TruncateDate(due).Sub(today) {
	case 0:
		return "today"
	case 24 * time.Hour:
		return "tomorrow"
	}
	if due.Year() != now.Year() {
		return due.Format("Jan 02 2006")
	}
	return due.Format("Jan 02")
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dw ago", int(d.Hours()/24/7))
	}
}

// priorityLabel returns a short badge for the given priority.
func priorityLabel(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "[H]"
	case model.PriorityLow:
		return "[L]"
	default:
		return "[M]"
	}
}
