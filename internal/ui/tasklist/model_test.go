package tasklist

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/vibratodo/internal/category"
	"github.com/nhle/vibratodo/internal/keys"
	"github.com/nhle/vibratodo/internal/model"
)

var fixedNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func sample() []model.Task {
	return []model.Task{
		{ID: "a", Title: "write report", Priority: model.PriorityHigh, Category: category.Work, Position: 3},
		{ID: "b", Title: "buy milk", Priority: model.PriorityLow, Category: category.Shopping, Position: 2},
		{ID: "c", Title: "run", Priority: model.PriorityMedium, Category: category.Health, Position: 1},
	}
}

func newModel(t *testing.T) Model {
	t.Helper()
	m := New(category.NewRegistry(), keys.DefaultKeyMap(), 80, 20)
	m.SetTasks(sample())
	return m
}

func actionOf(t *testing.T, cmd tea.Cmd) ActionMsg {
	t.Helper()
	require.NotNil(t, cmd)
	msg, ok := cmd().(ActionMsg)
	require.True(t, ok, "expected ActionMsg")
	return msg
}

func TestRenderLine(t *testing.T) {
	d := NewItemDelegate(category.NewRegistry(), func() time.Time { return fixedNow })

	open := model.Task{Title: "pay rent", Priority: model.PriorityHigh, DueDate: date(2026, 10, 10)}
	line := d.renderLine(open, false)
	assert.Contains(t, line, "○")
	assert.Contains(t, line, "pay rent")
	assert.Contains(t, line, "[H]")
	assert.Contains(t, line, "OVERDUE")

	done := open
	done.Completed = true
	line = d.renderLine(done, false)
	assert.Contains(t, line, "✓")
	assert.NotContains(t, line, "OVERDUE")

	today := model.Task{Title: "call mom", DueDate: date(2026, 10, 15)}
	line = d.renderLine(today, true)
	assert.Contains(t, line, "today")
	assert.NotContains(t, line, "OVERDUE")
}

func TestRelativeTime(t *testing.T) {
	assert.Equal(t, "", relativeTime(time.Time{}, fixedNow))
	assert.Equal(t, "just now", relativeTime(fixedNow.Add(-10*time.Second), fixedNow))
	assert.Equal(t, "5m ago", relativeTime(fixedNow.Add(-5*time.Minute), fixedNow))
	assert.Equal(t, "3h ago", relativeTime(fixedNow.Add(-3*time.Hour), fixedNow))
	assert.Equal(t, "2d ago", relativeTime(fixedNow.Add(-48*time.Hour), fixedNow))
	assert.Equal(t, "2w ago", relativeTime(fixedNow.Add(-15*24*time.Hour), fixedNow))
}

func TestDueLabel(t *testing.T) {
	assert.Equal(t, "tomorrow", dueLabel(*date(2026, 10, 16), fixedNow))
	assert.Equal(t, "Oct 30", dueLabel(*date(2026, 10, 30), fixedNow))
	assert.Equal(t, "Jan 05 2027", dueLabel(*date(2027, 1, 5), fixedNow))
}

func TestActionsTargetSelectedTask(t *testing.T) {
	m := newModel(t)
	assert.Equal(t, "a", m.SelectedID())

	_, cmd := m.Update(runes("x"))
	assert.Equal(t, ActionMsg{Action: ActionToggle, TaskID: "a"}, actionOf(t, cmd))

	_, cmd = m.Update(runes("e"))
	assert.Equal(t, ActionMsg{Action: ActionEdit, TaskID: "a"}, actionOf(t, cmd))

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ActionMsg{Action: ActionView, TaskID: "a"}, actionOf(t, cmd))

	_, cmd = m.Update(runes("J"))
	assert.Equal(t, ActionMsg{Action: ActionMoveDown, TaskID: "a"}, actionOf(t, cmd))

	_, cmd = m.Update(runes("K"))
	assert.Equal(t, ActionMsg{Action: ActionMoveUp, TaskID: "a"}, actionOf(t, cmd))

	_, cmd = m.Update(runes("n"))
	assert.Equal(t, ActionMsg{Action: ActionNew}, actionOf(t, cmd))
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	m := newModel(t)

	m, cmd := m.Update(runes("d"))
	assert.Nil(t, cmd)
	assert.True(t, m.Confirming())

	// Unrelated keys are swallowed while confirming.
	m, cmd = m.Update(runes("x"))
	assert.Nil(t, cmd)
	assert.True(t, m.Confirming())
	assert.Contains(t, m.View(), "write report")

	m, cmd = m.Update(runes("y"))
	assert.False(t, m.Confirming())
	assert.Equal(t, ActionMsg{Action: ActionDelete, TaskID: "a"}, actionOf(t, cmd))
}

func TestDeleteCanBeCancelled(t *testing.T) {
	m := newModel(t)

	m, _ = m.Update(runes("d"))
	m, cmd := m.Update(runes("n"))
	assert.Nil(t, cmd)
	assert.False(t, m.Confirming())

	m, _ = m.Update(runes("d"))
	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd)
	assert.False(t, m.Confirming())
}

func TestConfirmationDroppedWhenTaskDisappears(t *testing.T) {
	m := newModel(t)
	m, _ = m.Update(runes("d"))
	require.True(t, m.Confirming())

	m.SetTasks(sample()[1:])
	assert.False(t, m.Confirming())
}

func TestSetTasksKeepsSelection(t *testing.T) {
	m := newModel(t)
	m.Select("b")
	assert.Equal(t, "b", m.SelectedID())

	reordered := sample()
	reordered[0], reordered[1] = reordered[1], reordered[0]
	m.SetTasks(reordered)
	assert.Equal(t, "b", m.SelectedID())
}

func TestEmptyStates(t *testing.T) {
	m := New(category.NewRegistry(), keys.DefaultKeyMap(), 80, 10)

	m.SetState(State{Loading: true})
	assert.Contains(t, m.View(), "Loading tasks...")

	m.SetState(State{LoadErr: errors.New("boom")})
	assert.Contains(t, m.View(), "Could not load tasks.")

	m.SetState(State{Filter: category.Work})
	assert.Contains(t, m.View(), "No Work tasks.")

	m.SetState(State{Filter: category.All})
	assert.Contains(t, m.View(), "No tasks found.")

	// Task keys do nothing without a selection.
	_, cmd := m.Update(runes("x"))
	if cmd != nil {
		_, isAction := cmd().(ActionMsg)
		assert.False(t, isAction)
	}
}
