// Package tasks keeps the displayed task list in sync with the task store.
//
// The Controller is driven by a bubbletea event loop. Operations mutate the
// in-memory list immediately and return a tea.Cmd that performs the store
// call; the command's result message must be fed back through Update. A
// failed call is recovered by reloading the list from the store.
package tasks

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/nhle/vibratodo/internal/category"
	"github.com/nhle/vibratodo/internal/model"
	"github.com/nhle/vibratodo/internal/store"
)

// Controller owns the tasks matching the current filter. It is not safe
// for concurrent use; call it from the event loop only.
type Controller struct {
	store store.TaskStore
	log   *logrus.Entry
	now   func() time.Time

	filter  string
	tasks   []model.Task
	stats   model.Stats
	loading bool
	ready   bool
	loadErr error

	// session is bumped by Reset so that results of calls issued before a
	// teardown are discarded.
	session int

	// loadSeq identifies the newest load; older loads are discarded.
	loadSeq int
}

// New returns a controller over s showing every category.
func New(s store.TaskStore, log *logrus.Entry) *Controller {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Controller{
		store:  s,
		log:    log.WithField("component", "tasks"),
		now:    time.Now,
		filter: category.All,
	}
}

// Tasks returns a copy of the displayed list in display order.
func (c *Controller) Tasks() []model.Task {
	return append([]model.Task(nil), c.tasks...)
}

// Task returns the displayed task with id.
func (c *Controller) Task(id string) (model.Task, bool) {
	if i := c.indexOf(id); i >= 0 {
		return c.tasks[i], true
	}
	return model.Task{}, false
}

// Filter returns the active filter: a category id or "all".
func (c *Controller) Filter() string { return c.filter }

// Loading reports whether a load is in flight.
func (c *Controller) Loading() bool { return c.loading }

// Ready reports whether the initial load has completed.
func (c *Controller) Ready() bool { return c.ready }

// LoadErr returns the error of the last load, or nil.
func (c *Controller) LoadErr() error { return c.loadErr }

// Stats returns the statistics from the last stats fetch.
func (c *Controller) Stats() model.Stats { return c.stats }

// Mount starts a new list session with filter and loads it. Mutations are
// refused until this load completes.
func (c *Controller) Mount(filter string) tea.Cmd {
	c.filter = normalizeFilter(filter)
	c.ready = false
	return c.load(false)
}

// SetFilter switches the active filter and loads the matching tasks.
func (c *Controller) SetFilter(filter string) tea.Cmd {
	c.filter = normalizeFilter(filter)
	c.tasks = nil
	return c.load(false)
}

// Refresh reloads the current filter.
func (c *Controller) Refresh() tea.Cmd {
	return c.load(false)
}

// Reset tears down the current session. Results of calls still in flight
// are discarded when they arrive.
func (c *Controller) Reset() {
	c.session++
	c.tasks = nil
	c.stats = model.Stats{}
	c.loading = false
	c.ready = false
	c.loadErr = nil
}

// Create validates draft and stores it above every loaded task.
func (c *Controller) Create(draft model.Draft) (tea.Cmd, error) {
	if !c.ready {
		return nil, ErrNotReady
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	position := 1
	if len(c.tasks) > 0 {
		position = c.maxPosition() + 1
	}

	s, session := c.store, c.session
	draft = draft.Normalized()
	return func() tea.Msg {
		task, err := s.Create(context.Background(), draft, position)
		return ResultMsg{session: session, op: OpCreate, taskID: task.ID, err: err}
	}, nil
}

// Toggle flips the completed flag of task id.
func (c *Controller) Toggle(id string) (tea.Cmd, error) {
	if !c.ready {
		return nil, ErrNotReady
	}
	i := c.indexOf(id)
	if i < 0 {
		return nil, ErrUnknownTask
	}

	completed := !c.tasks[i].Completed
	c.tasks[i].Completed = completed

	s, session := c.store, c.session
	return func() tea.Msg {
		err := s.Update(context.Background(), id, model.CompletedPatch(completed))
		return ResultMsg{session: session, op: OpToggle, taskID: id, err: err, completed: completed}
	}, nil
}

// Edit writes every editable field of draft to task id. The displayed task
// is replaced once the store confirms.
func (c *Controller) Edit(id string, draft model.Draft) (tea.Cmd, error) {
	if !c.ready {
		return nil, ErrNotReady
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	if c.indexOf(id) < 0 {
		return nil, ErrUnknownTask
	}

	s, session := c.store, c.session
	draft = draft.Normalized()
	return func() tea.Msg {
		err := s.Update(context.Background(), id, model.PatchFromDraft(draft))
		return ResultMsg{session: session, op: OpEdit, taskID: id, err: err, draft: draft}
	}, nil
}

// Delete removes task id from the list and the store.
func (c *Controller) Delete(id string) (tea.Cmd, error) {
	if !c.ready {
		return nil, ErrNotReady
	}
	i := c.indexOf(id)
	if i < 0 {
		return nil, ErrUnknownTask
	}

	c.tasks = append(c.tasks[:i:i], c.tasks[i+1:]...)

	s, session := c.store, c.session
	return func() tea.Msg {
		err := s.Delete(context.Background(), id)
		return ResultMsg{session: session, op: OpDelete, taskID: id, err: err}
	}, nil
}

// Move swaps the positions of task id and its neighbour in direction.
// Moving the first task up or the last task down returns a nil command.
func (c *Controller) Move(id string, dir Direction) (tea.Cmd, error) {
	if !c.ready {
		return nil, ErrNotReady
	}
	i := c.indexOf(id)
	if i < 0 {
		return nil, ErrUnknownTask
	}
	j := i + 1
	if dir == Up {
		j = i - 1
	}
	if j < 0 || j >= len(c.tasks) {
		return nil, nil
	}

	a, b := c.tasks[i], c.tasks[j]
	s, session := c.store, c.session
	return func() tea.Msg {
		ctx := context.Background()
		msg := ResultMsg{
			session:       session,
			op:            OpMove,
			taskID:        a.ID,
			otherID:       b.ID,
			direction:     dir,
			position:      b.Position,
			otherPosition: a.Position,
		}
		// Not atomic: when the second write fails the first stays applied
		// and the reload shows whatever the store now holds.
		if err := s.Update(ctx, a.ID, model.PositionPatch(b.Position)); err != nil {
			msg.err = err
			return msg
		}
		msg.err = s.Update(ctx, b.ID, model.PositionPatch(a.Position))
		return msg
	}, nil
}

// FetchStats computes statistics over every task in the store.
func (c *Controller) FetchStats() tea.Cmd {
	s, session, now := c.store, c.session, c.now()
	return func() tea.Msg {
		return StatsMsg{session: session, Stats: store.FetchStats(context.Background(), s, now)}
	}
}

// Update applies a message produced by one of the controller's commands
// and returns any follow-up command. Other messages are ignored.
func (c *Controller) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case LoadedMsg:
		return c.handleLoaded(msg)
	case ResultMsg:
		return c.handleResult(msg)
	case StatsMsg:
		if msg.session == c.session {
			c.stats = msg.Stats
		}
	}
	return nil
}

func (c *Controller) load(quiet bool) tea.Cmd {
	c.loadSeq++
	c.loading = true

	s, session, seq, filter := c.store, c.session, c.loadSeq, c.filter
	return func() tea.Msg {
		tasks, err := s.List(context.Background(), storeFilter(filter))
		return LoadedMsg{session: session, seq: seq, filter: filter, tasks: tasks, err: err, quiet: quiet}
	}
}

func (c *Controller) handleLoaded(msg LoadedMsg) tea.Cmd {
	if msg.session != c.session || msg.seq != c.loadSeq {
		c.log.WithField("filter", msg.filter).Debug("discarding stale load")
		return nil
	}

	c.loading = false
	c.ready = true
	if msg.err != nil {
		c.tasks = nil
		c.loadErr = msg.err
		c.log.WithFields(logrus.Fields{"filter": msg.filter, "error": msg.err}).Warn("load failed")
		if msg.quiet {
			return nil
		}
		return c.notify(OpLoad, "", msg.err, failureText(OpLoad))
	}

	c.tasks = append([]model.Task(nil), msg.tasks...)
	c.loadErr = nil
	return c.FetchStats()
}

func (c *Controller) handleResult(msg ResultMsg) tea.Cmd {
	if msg.session != c.session {
		c.log.WithField("op", msg.op).Debug("discarding result from ended session")
		return nil
	}

	outcome := classify(msg)
	c.log.WithFields(logrus.Fields{
		"op":      msg.op,
		"id":      msg.taskID,
		"outcome": outcome.String(),
	}).Debug("store call finished")

	if outcome != Applied {
		note := c.notify(msg.op, msg.taskID, msg.err, failureText(msg.op))
		if msg.op == OpCreate && outcome == RolledBack {
			// Nothing was applied locally, so there is nothing to undo.
			return note
		}
		return tea.Batch(note, c.load(true))
	}

	switch msg.op {
	case OpCreate:
		return tea.Batch(c.notify(msg.op, msg.taskID, nil, "Task added successfully!"), c.load(true))
	case OpToggle:
		text := "Task marked as active"
		if msg.completed {
			text = "Task marked as completed"
		}
		return tea.Batch(c.notify(msg.op, msg.taskID, nil, text), c.FetchStats())
	case OpEdit:
		note := c.notify(msg.op, msg.taskID, nil, "Task updated successfully!")
		if i := c.indexOf(msg.taskID); i >= 0 {
			c.tasks[i] = msg.draft.Apply(c.tasks[i])
		}
		if c.filter != category.All && msg.draft.Category != c.filter {
			// The task left the filtered category.
			return tea.Batch(note, c.load(true))
		}
		return tea.Batch(note, c.FetchStats())
	case OpDelete:
		return tea.Batch(c.notify(msg.op, msg.taskID, nil, "Task deleted successfully!"), c.FetchStats())
	case OpMove:
		text := "Task moved " + msg.direction.String()
		i, j := c.indexOf(msg.taskID), c.indexOf(msg.otherID)
		if i < 0 || j < 0 {
			// One of the pair left the list meanwhile; show what the store has.
			return tea.Batch(c.notify(msg.op, msg.taskID, nil, text), c.load(true))
		}
		c.tasks[i].Position = msg.position
		c.tasks[j].Position = msg.otherPosition
		// Order by the written positions; overlapping moves of one pair
		// may resolve in any order.
		store.SortByPosition(c.tasks)
		return c.notify(msg.op, msg.taskID, nil, text)
	}
	return nil
}

// classify resolves a store result into an outcome. Deleting a task that is
// already gone counts as applied.
func classify(msg ResultMsg) Outcome {
	switch {
	case msg.err == nil:
		return Applied
	case msg.op == OpDelete && errors.Is(msg.err, store.ErrNotFound):
		return Applied
	case errors.Is(msg.err, store.ErrOutcomeUnknown):
		return Unknown
	default:
		return RolledBack
	}
}

func (c *Controller) notify(op Op, id string, err error, text string) tea.Cmd {
	n := model.Notification{
		Kind:      model.NotifySuccess,
		Op:        string(op),
		TaskID:    id,
		Message:   text,
		CreatedAt: c.now(),
	}
	if err != nil {
		n.Kind = model.NotifyError
	}
	return func() tea.Msg { return NotificationMsg{Notification: n} }
}

func failureText(op Op) string {
	switch op {
	case OpLoad:
		return "Failed to load tasks. Please try again."
	case OpCreate:
		return "Failed to create task. Please try again."
	case OpDelete:
		return "Failed to delete task. Please try again."
	case OpMove:
		return "Failed to reorder tasks. Please try again."
	default:
		return "Failed to update task. Please try again."
	}
}

func (c *Controller) indexOf(id string) int {
	for i, t := range c.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (c *Controller) maxPosition() int {
	highest := c.tasks[0].Position
	for _, t := range c.tasks[1:] {
		highest = max(highest, t.Position)
	}
	return highest
}

func normalizeFilter(f string) string {
	if f == "" {
		return category.All
	}
	return f
}

// storeFilter turns the "all" filter into the store's empty category.
func storeFilter(f string) string {
	if f == category.All {
		return ""
	}
	return f
}
