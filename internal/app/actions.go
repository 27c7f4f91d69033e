package app

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/vibratodo/internal/model"
	"github.com/nhle/vibratodo/internal/tasks"
	"github.com/nhle/vibratodo/internal/ui/command"
	"github.com/nhle/vibratodo/internal/ui/tasklist"
	"github.com/nhle/vibratodo/internal/ui/todoform"
)

// handleAction runs a list action against the controller.
func (m Model) handleAction(msg tasklist.ActionMsg) (tea.Model, tea.Cmd) {
	var (
		cmd tea.Cmd
		err error
	)

	switch msg.Action {
	case tasklist.ActionNew:
		m.currentView = ViewForm
		return m, m.formView.StartCreate()

	case tasklist.ActionView:
		t, ok := m.ctrl.Task(msg.TaskID)
		if !ok {
			return m, nil
		}
		m.detailView.SetTask(&t)
		m.currentView = ViewDetail
		return m, nil

	case tasklist.ActionEdit:
		t, ok := m.ctrl.Task(msg.TaskID)
		if !ok {
			return m, nil
		}
		m.currentView = ViewForm
		return m, m.formView.StartEdit(t)

	case tasklist.ActionToggle:
		cmd, err = m.ctrl.Toggle(msg.TaskID)
	case tasklist.ActionDelete:
		cmd, err = m.ctrl.Delete(msg.TaskID)
	case tasklist.ActionMoveUp:
		cmd, err = m.ctrl.Move(msg.TaskID, tasks.Up)
	case tasklist.ActionMoveDown:
		cmd, err = m.ctrl.Move(msg.TaskID, tasks.Down)
	}

	if err != nil {
		return m, m.rejected(string(actionOp(msg.Action)), err)
	}
	m.syncList()
	if m.currentView == ViewList {
		m.taskList.Select(msg.TaskID)
	}
	return m, cmd
}

func actionOp(a tasklist.Action) tasks.Op {
	switch a {
	case tasklist.ActionToggle:
		return tasks.OpToggle
	case tasklist.ActionDelete:
		return tasks.OpDelete
	case tasklist.ActionNew:
		return tasks.OpCreate
	case tasklist.ActionEdit:
		return tasks.OpEdit
	default:
		return tasks.OpMove
	}
}

// handleSubmit passes a submitted form draft to the controller. A draft the
// controller rejects reopens the form with the error.
func (m Model) handleSubmit(msg todoform.SubmittedMsg) (tea.Model, tea.Cmd) {
	var (
		cmd tea.Cmd
		err error
	)
	if msg.Mode == todoform.ModeCreate {
		cmd, err = m.ctrl.Create(msg.Draft)
	} else {
		cmd, err = m.ctrl.Edit(msg.TaskID, msg.Draft)
	}

	switch {
	case errors.Is(err, model.ErrValidation):
		m.currentView = ViewForm
		return m, m.formView.Reopen(err)
	case err != nil:
		m.currentView = ViewList
		op := tasks.OpCreate
		if msg.Mode == todoform.ModeEdit {
			op = tasks.OpEdit
		}
		return m, m.rejected(string(op), err)
	}

	m.currentView = ViewList
	return m, cmd
}

// rejected reports an operation the controller refused before any store
// call was made.
func (m *Model) rejected(op string, err error) tea.Cmd {
	if errors.Is(err, tasks.ErrUnknownTask) {
		return nil
	}
	m.log.WithError(err).WithField("op", op).Debug("operation rejected")
	text := err.Error()
	if errors.Is(err, tasks.ErrNotReady) {
		text = "Tasks are still loading. Please wait."
	}
	return m.showToast(errorNote(op, text))
}

// setFilter switches the category filter.
func (m *Model) setFilter(f string) tea.Cmd {
	if f == m.ctrl.Filter() {
		return nil
	}
	m.filter = f
	cmd := m.ctrl.SetFilter(f)
	m.syncList()
	return cmd
}

// stepFilter moves the filter by delta through the category tabs.
func (m *Model) stepFilter(delta int) tea.Cmd {
	filters := m.categories.Filters()
	cur := 0
	for i, f := range filters {
		if f == m.ctrl.Filter() {
			cur = i
		}
	}
	next := (cur + delta + len(filters)) % len(filters)
	return m.setFilter(filters[next])
}

// executeCommand handles a parsed command from the command palette.
func (m Model) executeCommand(c command.CommandMsg) (tea.Model, tea.Cmd) {
	switch c.Name {
	case command.Filter:
		return m, m.setFilter(c.Arg)
	case command.Refresh:
		return m, m.ctrl.Refresh()
	case command.New:
		return m.handleAction(tasklist.ActionMsg{Action: tasklist.ActionNew})
	case command.Logout:
		return m.logout()
	case command.Quit:
		return m, tea.Quit
	}
	return m, nil
}

// logout ends the session. The controller is reset by the session's
// logout hook so late results are discarded.
func (m Model) logout() (tea.Model, tea.Cmd) {
	if m.session == nil {
		return m, m.showToast(errorNote("logout", "Not signed in to a remote store."))
	}
	if err := m.session.Logout(); err != nil {
		m.log.WithError(err).Warn("logout failed")
	}
	m.formView.Close()
	m.syncList()
	m.currentView = ViewSignedOut
	return m, nil
}
