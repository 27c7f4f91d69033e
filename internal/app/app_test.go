package app

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/vibratodo/internal/category"
	"github.com/nhle/vibratodo/internal/model"
	"github.com/nhle/vibratodo/internal/store"
	"github.com/nhle/vibratodo/internal/tasks"
	"github.com/nhle/vibratodo/internal/ui/command"
	"github.com/nhle/vibratodo/internal/ui/todoform"
	"github.com/nhle/vibratodo/tests/testutil"
)

type fakeSession struct {
	authed  bool
	logouts int
	hooks   []func()
}

func (s *fakeSession) IsAuthenticated() bool { return s.authed }

func (s *fakeSession) Logout() error {
	s.authed = false
	s.logouts++
	for _, h := range s.hooks {
		h()
	}
	return nil
}

func (s *fakeSession) OnLogout(fn func()) { s.hooks = append(s.hooks, fn) }

func noTick(time.Duration, func(time.Time) tea.Msg) tea.Cmd { return nil }

func newApp(t *testing.T, fs *testutil.FakeStore, sess Session) Model {
	t.Helper()
	ctrl := tasks.New(fs, testutil.QuietLogger())
	m := New(Options{
		Controller: ctrl,
		Categories: category.NewRegistry(),
		Session:    sess,
		Log:        testutil.QuietLogger(),
	})
	m.tick = noTick
	m = send(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	return settle(t, m, m.Init())
}

// send delivers msg and runs the resulting commands to completion.
func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	return settle(t, next.(Model), cmd)
}

func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			next, follow := m.Update(msg)
			m = next.(Model)
			queue = append(queue, follow)
		}
	}
	return m
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestMountShowsTasksAndStats(t *testing.T) {
	seed := testutil.Seed(3, category.Work)
	seed[2].Completed = true
	m := newApp(t, testutil.NewFakeStore(seed...), nil)

	require.True(t, m.ctrl.Ready())
	view := m.View()
	assert.Contains(t, view, "task 1")
	assert.Contains(t, view, "task 3")
	assert.Contains(t, view, "1/3 done")
	assert.Contains(t, view, "33%")
}

func TestToggleFromKeyboard(t *testing.T) {
	fs := testutil.NewFakeStore(testutil.Seed(2, category.Work)...)
	m := newApp(t, fs, nil)

	m = send(t, m, keyMsg("x"))

	got, _ := fs.Get("t1")
	assert.True(t, got.Completed)
	require.NotNil(t, m.toast)
	assert.Equal(t, "Task marked as completed", m.toast.Message)
	assert.Equal(t, 1, m.ctrl.Stats().Completed)
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	fs := testutil.NewFakeStore(testutil.Seed(2, category.Work)...)
	m := newApp(t, fs, nil)

	m = send(t, m, keyMsg("d"))
	assert.Equal(t, 0, fs.Calls(testutil.OpDelete))
	assert.Contains(t, m.View(), "Delete \"task 1\"? (y/n)")

	m = send(t, m, keyMsg("y"))
	assert.Equal(t, 1, fs.Calls(testutil.OpDelete))
	assert.Len(t, fs.Snapshot(), 1)
	require.NotNil(t, m.toast)
	assert.Equal(t, "Task deleted successfully!", m.toast.Message)
}

func TestFailedToggleIsRolledBack(t *testing.T) {
	fs := testutil.NewFakeStore(testutil.Seed(2, category.Work)...)
	m := newApp(t, fs, nil)
	fs.FailNext(testutil.OpUpdate, errors.New("offline"))

	m = send(t, m, keyMsg("x"))

	task, ok := m.ctrl.Task("t1")
	require.True(t, ok)
	assert.False(t, task.Completed)
	require.NotNil(t, m.toast)
	assert.True(t, m.toast.IsError())
}

func TestNumberKeysSwitchFilter(t *testing.T) {
	seed := append(testutil.Seed(2, category.Work), model.Task{
		ID: "h1", Title: "stretch", Category: category.Health, Priority: model.PriorityLow, Position: 10,
	})
	m := newApp(t, testutil.NewFakeStore(seed...), nil)

	// Filters are all, work, personal, shopping, health.
	m = send(t, m, keyMsg("4"))
	assert.Equal(t, category.Health, m.ctrl.Filter())
	require.Len(t, m.ctrl.Tasks(), 1)
	assert.Equal(t, "h1", m.ctrl.Tasks()[0].ID)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, category.All, m.ctrl.Filter())
	assert.Len(t, m.ctrl.Tasks(), 3)
}

func TestMoveKeepsCursorOnTask(t *testing.T) {
	fs := testutil.NewFakeStore(testutil.Seed(3, category.Work)...)
	m := newApp(t, fs, nil)

	m = send(t, m, keyMsg("J"))

	ids := []string{}
	for _, task := range m.ctrl.Tasks() {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []string{"t2", "t1", "t3"}, ids)
	assert.Equal(t, "t1", m.taskList.SelectedID())
	require.NotNil(t, m.toast)
	assert.Equal(t, "Task moved down", m.toast.Message)
}

func TestSubmitCreate(t *testing.T) {
	fs := testutil.NewFakeStore()
	m := newApp(t, fs, nil)

	draft := model.NewDraft()
	draft.Title = "new thing"
	m.formView.Drafts().Hold(todoform.ModeCreate, "", draft)
	m = send(t, m, todoform.SubmittedMsg{Mode: todoform.ModeCreate, Draft: draft})

	assert.Equal(t, ViewList, m.currentView)
	require.Len(t, m.ctrl.Tasks(), 1)
	assert.Equal(t, "new thing", m.ctrl.Tasks()[0].Title)
	assert.False(t, m.formView.Drafts().HasCreate())
	require.NotNil(t, m.toast)
	assert.Equal(t, "Task added successfully!", m.toast.Message)
}

func TestSubmitCreateWithLostReplyDropsDraftOnceTaskAppears(t *testing.T) {
	fs := testutil.NewFakeStore()
	m := newApp(t, fs, nil)
	fs.FailNextAfterApply(testutil.OpCreate, store.ErrOutcomeUnknown)

	draft := model.NewDraft()
	draft.Title = "new thing"
	m.formView.Drafts().Hold(todoform.ModeCreate, "", draft)
	m = send(t, m, todoform.SubmittedMsg{Mode: todoform.ModeCreate, Draft: draft})

	require.Len(t, m.ctrl.Tasks(), 1)
	assert.Equal(t, "new thing", m.ctrl.Tasks()[0].Title)
	assert.False(t, m.formView.Drafts().HasCreate())
	require.NotNil(t, m.toast)
	assert.True(t, m.toast.IsError())
}

func TestSubmitInvalidDraftReopensForm(t *testing.T) {
	fs := testutil.NewFakeStore()
	m := newApp(t, fs, nil)

	next, _ := m.Update(todoform.SubmittedMsg{Mode: todoform.ModeCreate, Draft: model.NewDraft()})
	m = next.(Model)

	assert.Equal(t, ViewForm, m.currentView)
	assert.True(t, m.formView.Active())
	assert.Equal(t, 0, fs.Calls(testutil.OpCreate))
}

func TestSignedOutDoesNotTouchStore(t *testing.T) {
	fs := testutil.NewFakeStore(testutil.Seed(1, category.Work)...)
	sess := &fakeSession{}
	m := newApp(t, fs, sess)

	assert.Equal(t, ViewSignedOut, m.currentView)
	assert.Equal(t, 0, fs.TotalCalls())
	assert.Contains(t, m.View(), "You are signed out.")

	// Retrying before sign-in stays put.
	m = send(t, m, keyMsg("r"))
	assert.Equal(t, 0, fs.TotalCalls())

	sess.authed = true
	m = send(t, m, keyMsg("r"))
	assert.Equal(t, ViewList, m.currentView)
	assert.Len(t, m.ctrl.Tasks(), 1)
}

func TestLogoutDiscardsLateResults(t *testing.T) {
	fs := testutil.NewFakeStore(testutil.Seed(2, category.Work)...)
	sess := &fakeSession{authed: true}
	m := newApp(t, fs, sess)

	// Issue a toggle but hold its result until after logout.
	next, cmd := m.Update(keyMsg("x"))
	m = next.(Model)
	require.NotNil(t, cmd)
	action := cmd()
	next, cmd = m.Update(action)
	m = next.(Model)
	require.NotNil(t, cmd)
	late := cmd()

	m = send(t, m, command.CommandMsg{Name: command.Logout})
	assert.Equal(t, 1, sess.logouts)
	assert.Equal(t, ViewSignedOut, m.currentView)
	assert.Empty(t, m.ctrl.Tasks())

	m = send(t, m, late)
	assert.Empty(t, m.ctrl.Tasks())
}

func TestCommandErrorShowsToast(t *testing.T) {
	m := newApp(t, testutil.NewFakeStore(), nil)
	m = send(t, m, command.ErrorMsg{Err: errors.New(`unknown command "sync"`)})
	require.NotNil(t, m.toast)
	assert.True(t, m.toast.IsError())
	assert.Contains(t, m.View(), `unknown command "sync"`)
}

func TestLogoutWithoutSession(t *testing.T) {
	m := newApp(t, testutil.NewFakeStore(), nil)
	m = send(t, m, command.CommandMsg{Name: command.Logout})
	assert.Equal(t, ViewList, m.currentView)
	require.NotNil(t, m.toast)
	assert.True(t, m.toast.IsError())
}

func TestDetailViewFollowsTask(t *testing.T) {
	fs := testutil.NewFakeStore(testutil.Seed(2, category.Work)...)
	m := newApp(t, fs, nil)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, ViewDetail, m.currentView)
	assert.Contains(t, m.View(), "No description")

	m = send(t, m, keyMsg("x"))
	assert.Equal(t, ViewDetail, m.currentView)
	assert.Contains(t, m.View(), "Completed")

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewList, m.currentView)
	assert.Equal(t, "", m.detailView.TaskID())
}
