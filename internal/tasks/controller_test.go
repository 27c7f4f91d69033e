package tasks_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/vibratodo/internal/category"
	"github.com/nhle/vibratodo/internal/model"
	"github.com/nhle/vibratodo/internal/store"
	"github.com/nhle/vibratodo/internal/tasks"
	"github.com/nhle/vibratodo/tests/testutil"
)

func mounted(t *testing.T, fake *testutil.FakeStore, filter string) *tasks.Controller {
	t.Helper()
	c := tasks.New(fake, testutil.QuietLogger())
	notes := tasks.Drain(c, c.Mount(filter))
	require.Empty(t, notes)
	require.True(t, c.Ready())
	require.False(t, c.Loading())
	return c
}

func ids(list []model.Task) []string {
	out := make([]string, len(list))
	for i, t := range list {
		out[i] = t.ID
	}
	return out
}

func positionsByID(list []model.Task) map[string]int {
	out := make(map[string]int, len(list))
	for _, t := range list {
		out[t.ID] = t.Position
	}
	return out
}

func mixedTasks() []model.Task {
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	return []model.Task{
		{ID: "w1", Title: "report", Category: category.Work, Position: 3, CreatedAt: base},
		{ID: "p1", Title: "call mom", Category: category.Personal, Position: 7, CreatedAt: base},
		{ID: "w2", Title: "deploy", Category: category.Work, Position: 9, CreatedAt: base},
		{ID: "s1", Title: "bread", Category: category.Shopping, Position: 1, CreatedAt: base},
		{ID: "w3", Title: "review", Category: category.Work, Position: 5, CreatedAt: base},
	}
}

func single(t *testing.T, notes []model.Notification, kind model.NotificationKind) model.Notification {
	t.Helper()
	require.Len(t, notes, 1, "expected exactly one notification, got %+v", notes)
	assert.Equal(t, kind, notes[0].Kind)
	return notes[0]
}

func TestLoadIsIdempotent(t *testing.T) {
	c := mounted(t, testutil.NewFakeStore(mixedTasks()...), category.All)
	first := c.Tasks()

	assert.Empty(t, tasks.Drain(c, c.Refresh()))
	assert.Equal(t, first, c.Tasks())
	assert.Equal(t, []string{"w2", "p1", "w3", "w1", "s1"}, ids(first))
}

func TestSetFilterReturnsOnlyCategoryInPositionOrder(t *testing.T) {
	c := mounted(t, testutil.NewFakeStore(mixedTasks()...), category.All)

	assert.Empty(t, tasks.Drain(c, c.SetFilter(category.Work)))
	assert.Equal(t, category.Work, c.Filter())
	assert.Equal(t, []string{"w2", "w3", "w1"}, ids(c.Tasks()))
	for _, task := range c.Tasks() {
		assert.Equal(t, category.Work, task.Category)
	}
}

func TestCreateTakesTopPosition(t *testing.T) {
	fake := testutil.NewFakeStore(testutil.Seed(3, category.Work)...)
	c := mounted(t, fake, category.All)

	cmd, err := c.Create(model.Draft{Title: "new one", Category: category.Work})
	require.NoError(t, err)
	note := single(t, tasks.Drain(c, cmd), model.NotifySuccess)
	assert.Equal(t, "create", note.Op)

	list := c.Tasks()
	require.Len(t, list, 4)
	assert.Equal(t, "new one", list[0].Title)
	assert.Equal(t, 4, list[0].Position)
}

func TestCreateOnEmptyListUsesPositionOne(t *testing.T) {
	fake := testutil.NewFakeStore()
	c := mounted(t, fake, category.All)

	cmd, err := c.Create(model.Draft{Title: "first"})
	require.NoError(t, err)
	single(t, tasks.Drain(c, cmd), model.NotifySuccess)

	require.Len(t, c.Tasks(), 1)
	assert.Equal(t, 1, c.Tasks()[0].Position)
	assert.Equal(t, category.Personal, c.Tasks()[0].Category)
}

func TestCreateWithEmptyTitleMakesNoStoreCall(t *testing.T) {
	fake := testutil.NewFakeStore(testutil.Seed(2, category.Work)...)
	c := mounted(t, fake, category.All)
	before := fake.TotalCalls()

	cmd, err := c.Create(model.Draft{Title: ""})
	assert.Nil(t, cmd)
	assert.ErrorIs(t, err, store.ErrValidation)
	assert.Equal(t, before, fake.TotalCalls())
	assert.Len(t, c.Tasks(), 2)
}

func TestCreateFailureLeavesListUnchangedWithoutReload(t *testing.T) {
	fake := testutil.NewFakeStore(testutil.Seed(2, category.Work)...)
	c := mounted(t, fake, category.All)
	lists := fake.Calls(testutil.OpList)
	fake.FailNext(testutil.OpCreate, store.ErrUnavailable)

	cmd, err := c.Create(model.Draft{Title: "doomed"})
	require.NoError(t, err)
	note := single(t, tasks.Drain(c, cmd), model.NotifyError)
	assert.Equal(t, "Failed to create task. Please try again.", note.Message)

	assert.Equal(t, lists, fake.Calls(testutil.OpList))
	assert.Equal(t, []string{"t1", "t2"}, ids(c.Tasks()))
}

func TestCreateUnknownOutcomeReloads(t *testing.T) {
	fake := testutil.NewFakeStore(testutil.Seed(2, category.Work)...)
	c := mounted(t, fake, category.All)
	fake.FailNextAfterApply(testutil.OpCreate, store.ErrOutcomeUnknown)

	cmd, err := c.Create(model.Draft{Title: "maybe"})
	require.NoError(t, err)
	single(t, tasks.Drain(c, cmd), model.NotifyError)

	// The store did apply it; the reload reveals that.
	assert.Equal(t, ids(fake.Snapshot()), ids(c.Tasks()))
	assert.Equal(t, "maybe", c.Tasks()[0].Title)
}

func TestToggleRoundTrip(t *testing.T) {
	fake := testutil.NewFakeStore(testutil.Seed(3, category.Work)...)
	c := mounted(t, fake, category.All)

	cmd, err := c.Toggle("t2")
	require.NoError(t, err)
	got, _ := c.Task("t2")
	assert.True(t, got.Completed, "flip is applied before the store answers")
	note := single(t, tasks.Drain(c, cmd), model.NotifySuccess)
	assert.Equal(t, "Task marked as completed", note.Message)

	stored, _ := fake.Get("t2")
	assert.True(t, stored.Completed)

	cmd, err = c.Toggle("t2")
	require.NoError(t, err)
	single(t, tasks.Drain(c, cmd), model.NotifySuccess)

	got, _ = c.Task("t2")
	assert.False(t, got.Completed)
	stored, _ = fake.Get("t2")
	assert.False(t, stored.Completed)
}

func TestToggleRoundTripAcrossReload(t *testing.T) {
	fake := testutil.NewFakeStore(testutil.Seed(3, category.Work)...)
	c := mounted(t, fake, category.All)

	cmd, err := c.Toggle("t1")
	require.NoError(t, err)
	tasks.Drain(c, cmd)
	tasks.Drain(c, c.Refresh())

	cmd, err = c.Toggle("t1")
	require.NoError(t, err)
	tasks.Drain(c, cmd)
	tasks.Drain(c, c.Refresh())

	got, _ := c.Task("t1")
	assert.False(t, got.Completed)
}

func TestToggleFailureReloadsAuthoritativeState(t *testing.T) {
	fake := testutil.NewFakeStore(testutil.Seed(3, category.Work)...)
	c := mounted(t, fake, category.All)
	fake.FailNext(testutil.OpUpdate, store.ErrUnavailable)

	cmd, err := c.Toggle("t3")
	require.NoError(t, err)
	note := single(t, tasks.Drain(c, cmd), model.NotifyError)
	assert.Equal(t, "toggle", note.Op)
	assert.Equal(t, "t3", note.TaskID)

	assert.Equal(t, fake.Snapshot(), c.Tasks())
	got, _ := c.Task("t3")
	assert.False(t, got.Completed)
}

func TestFailedRecoveryReloadDoesNotNotifyAgain(t *testing.T) {
	fake := testutil.NewFakeStore(testutil.Seed(3, category.Work)...)
	c := mounted(t, fake, category.All)
	fake.FailNext(testutil.OpUpdate, store.ErrUnavailable)
	fake.FailNext(testutil.OpList, store.ErrUnavailable)

	cmd, err := c.Toggle("t1")
	require.NoError(t, err)
	single(t, tasks.Drain(c, cmd), model.NotifyError)

	assert.Empty(t, c.Tasks())
	assert.ErrorIs(t, c.LoadErr(), store.ErrUnavailable)
}

func TestEditReplacesTaskOnSuccess(t *testing.T) {
	fake := testutil.NewFakeStore(testutil.Seed(2, category.Work)...)
	c := mounted(t, fake, category.All)
	lists := fake.Calls(testutil.OpList)

	due, _ := model.ParseDate("2026-11-01")
	cmd, err := c.Edit("t2", model.Draft{Title: "renamed", Priority: model.PriorityHigh, Category: category.Health, DueDate: due})
	require.NoError(t, err)
	before, _ := c.Task("t2")
	assert.Equal(t, "task 2", before.Title, "edit waits for the store")

	note := single(t, tasks.Drain(c, cmd), model.NotifySuccess)
	assert.Equal(t, "Task updated successfully!", note.Message)

	got, _ := c.Task("t2")
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, model.PriorityHigh, got.Priority)
	assert.Equal(t, category.Health, got.Category)
	assert.Equal(t, 1, got.Position)

	stored, _ := fake.Get("t2")
	assert.Equal(t, "renamed", stored.Title)
	assert.Equal(t, "2026-11-01", model.FormatDate(stored.DueDate))

	// Only the stats refresh lists; no reload happened.
	assert.Equal(t, lists+1, fake.Calls(testutil.OpList))
}

func TestEditMovingTaskOutOfFilterReloads(t *testing.T) {
	fake := testutil.NewFakeStore(mixedTasks()...)
	c := mounted(t, fake, category.Work)
	require.Contains(t, ids(c.Tasks()), "w1")

	cmd, err := c.Edit("w1", model.Draft{Title: "report", Priority: model.PriorityMedium, Category: category.Personal})
	require.NoError(t, err)
	single(t, tasks.Drain(c, cmd), model.NotifySuccess)

	assert.Equal(t, []string{"w2", "w3"}, ids(c.Tasks()))
	stored, _ := fake.Get("w1")
	assert.Equal(t, category.Personal, stored.Category)
}

func TestEditValidationAndUnknownTask(t *testing.T) {
	fake := testutil.NewFakeStore(testutil.Seed(2, category.Work)...)
	c := mounted(t, fake, category.All)
	before := fake.TotalCalls()

	_, err := c.Edit("t1", model.Draft{Title: "   "})
	assert.ErrorIs(t, err, store.ErrValidation)

	_, err = c.Edit("nope", model.Draft{Title: "x"})
	assert.ErrorIs(t, err, tasks.ErrUnknownTask)

	assert.Equal(t, before, fake.TotalCalls())
}

func TestEditFailureReloads(t *testing.T) {
	fake := testutil.NewFakeStore(testutil.Seed(2, category.Work)...)
	c := mounted(t, fake, category.All)
	fake.FailNext(testutil.OpUpdate, store.ErrNotFound)

	cmd, err := c.Edit("t1", model.Draft{Title: "lost"})
	require.NoError(t, err)
	single(t, tasks.Drain(c, cmd), model.NotifyError)

	got, _ := c.Task("t1")
	assert.Equal(t, "task 1", got.Title)
}

func TestDeleteThenListExcludes(t *testing.T) {
	fake := testutil.NewFakeStore(testutil.Seed(3, category.Work)...)
	c := mounted(t, fake, category.All)

	cmd, err := c.Delete("t2")
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t3"}, ids(c.Tasks()), "removal is optimistic")
	single(t, tasks.Drain(c, cmd), model.NotifySuccess)

	tasks.Drain(c, c.Refresh())
	assert.NotContains(t, ids(c.Tasks()), "t2")
}

func TestDeleteOfAlreadyDeletedTaskSucceeds(t *testing.T) {
	fake := testutil.NewFakeStore(testutil.Seed(2, category.Work)...)
	c := mounted(t, fake, category.All)
	require.NoError(t, fake.Delete(t.Context(), "t1"))

	cmd, err := c.Delete("t1")
	require.NoError(t, err)
	single(t, tasks.Drain(c, cmd), model.NotifySuccess)
	assert.Equal(t, []string{"t2"}, ids(c.Tasks()))
}

func TestDeleteFailureRestoresTask(t *testing.T) {
	fake := testutil.NewFakeStore(testutil.Seed(2, category.Work)...)
	c := mounted(t, fake, category.All)
	fake.FailNext(testutil.OpDelete, store.ErrUnavailable)

	cmd, err := c.Delete("t1")
	require.NoError(t, err)
	single(t, tasks.Drain(c, cmd), model.NotifyError)
	assert.Equal(t, []string{"t1", "t2"}, ids(c.Tasks()))
}

func TestMoveAtEdgesIsNoOp(t *testing.T) {
	fake := testutil.NewFakeStore(testutil.Seed(3, category.Work)...)
	c := mounted(t, fake, category.All)
	before := c.Tasks()
	calls := fake.TotalCalls()

	cmd, err := c.Move("t1", tasks.Up)
	require.NoError(t, err)
	assert.Nil(t, cmd)

	cmd, err = c.Move("t3", tasks.Down)
	require.NoError(t, err)
	assert.Nil(t, cmd)

	assert.Equal(t, before, c.Tasks())
	assert.Equal(t, calls, fake.TotalCalls())
}

func TestMoveSwapsExactlyTwoPositions(t *testing.T) {
	fake := testutil.NewFakeStore(testutil.Seed(4, category.Work)...)
	c := mounted(t, fake, category.All)
	original := c.Tasks()
	origPos := positionsByID(original)

	cmd, err := c.Move("t2", tasks.Down)
	require.NoError(t, err)
	note := single(t, tasks.Drain(c, cmd), model.NotifySuccess)
	assert.Equal(t, "Task moved down", note.Message)

	assert.Equal(t, []string{"t1", "t3", "t2", "t4"}, ids(c.Tasks()))
	got := positionsByID(c.Tasks())
	assert.Equal(t, origPos["t3"], got["t2"])
	assert.Equal(t, origPos["t2"], got["t3"])
	assert.Equal(t, origPos["t1"], got["t1"])
	assert.Equal(t, origPos["t4"], got["t4"])

	// The displayed order matches the store's.
	assert.Equal(t, ids(fake.Snapshot()), ids(c.Tasks()))

	cmd, err = c.Move("t2", tasks.Up)
	require.NoError(t, err)
	single(t, tasks.Drain(c, cmd), model.NotifySuccess)
	assert.Equal(t, original, c.Tasks())
}

func TestRepeatedMoveBeforeResultKeepsDisplayInPositionOrder(t *testing.T) {
	fake := testutil.NewFakeStore(testutil.Seed(4, category.Work)...)
	c := mounted(t, fake, category.All)

	first, err := c.Move("t2", tasks.Down)
	require.NoError(t, err)
	second, err := c.Move("t2", tasks.Down)
	require.NoError(t, err)

	notes := tasks.Drain(c, first)
	notes = append(notes, tasks.Drain(c, second)...)
	require.Len(t, notes, 2)

	shown := c.Tasks()
	for i := 1; i < len(shown); i++ {
		assert.GreaterOrEqual(t, shown[i-1].Position, shown[i].Position,
			"%s above %s", shown[i-1].ID, shown[i].ID)
	}
	assert.Equal(t, ids(fake.Snapshot()), ids(shown))
	assert.Equal(t, positionsByID(fake.Snapshot()), positionsByID(shown))
}

func TestMovePartialFailureReloads(t *testing.T) {
	fake := testutil.NewFakeStore(testutil.Seed(3, category.Work)...)
	c := mounted(t, fake, category.All)

	// First write lands, second fails.
	fake.FailNext(testutil.OpUpdate, nil)
	fake.FailNext(testutil.OpUpdate, store.ErrUnavailable)

	cmd, err := c.Move("t1", tasks.Down)
	require.NoError(t, err)
	note := single(t, tasks.Drain(c, cmd), model.NotifyError)
	assert.Equal(t, "Failed to reorder tasks. Please try again.", note.Message)

	assert.Equal(t, fake.Snapshot(), c.Tasks())
}

func TestMovePairOfFailedFirstWriteSkipsSecond(t *testing.T) {
	fake := testutil.NewFakeStore(testutil.Seed(3, category.Work)...)
	c := mounted(t, fake, category.All)
	fake.FailNext(testutil.OpUpdate, store.ErrUnavailable)

	cmd, err := c.Move("t2", tasks.Up)
	require.NoError(t, err)
	single(t, tasks.Drain(c, cmd), model.NotifyError)

	assert.Equal(t, 1, fake.Calls(testutil.OpUpdate))
	assert.Equal(t, []string{"t1", "t2", "t3"}, ids(c.Tasks()))
}

func TestMutationsRefusedUntilInitialLoadCompletes(t *testing.T) {
	fake := testutil.NewFakeStore(testutil.Seed(2, category.Work)...)
	c := tasks.New(fake, testutil.QuietLogger())
	mount := c.Mount(category.All)

	_, err := c.Create(model.Draft{Title: "early"})
	assert.ErrorIs(t, err, tasks.ErrNotReady)
	_, err = c.Toggle("t1")
	assert.ErrorIs(t, err, tasks.ErrNotReady)
	_, err = c.Move("t1", tasks.Down)
	assert.ErrorIs(t, err, tasks.ErrNotReady)
	assert.True(t, c.Loading())

	tasks.Drain(c, mount)
	_, err = c.Toggle("t1")
	assert.NoError(t, err)
}

func TestLoadFailureEmptiesListAndNotifiesOnce(t *testing.T) {
	fake := testutil.NewFakeStore(testutil.Seed(2, category.Work)...)
	c := mounted(t, fake, category.All)
	fake.FailNext(testutil.OpList, store.ErrUnavailable)

	note := single(t, tasks.Drain(c, c.SetFilter(category.Work)), model.NotifyError)
	assert.Equal(t, "load", note.Op)
	assert.Empty(t, c.Tasks())
	assert.False(t, c.Loading())
}

func TestStaleLoadIsDiscarded(t *testing.T) {
	fake := testutil.NewFakeStore(mixedTasks()...)
	c := mounted(t, fake, category.All)

	toWork := c.SetFilter(category.Work)
	toShopping := c.SetFilter(category.Shopping)

	// The newer load lands first; the older one must not overwrite it.
	c.Update(toShopping())
	c.Update(toWork())

	assert.Equal(t, category.Shopping, c.Filter())
	assert.Equal(t, []string{"s1"}, ids(c.Tasks()))
}

func TestResultsAfterResetAreDiscarded(t *testing.T) {
	fake := testutil.NewFakeStore(testutil.Seed(2, category.Work)...)
	c := mounted(t, fake, category.All)

	cmd, err := c.Toggle("t1")
	require.NoError(t, err)
	msg := cmd()
	c.Reset()

	assert.Nil(t, c.Update(msg))
	assert.Empty(t, c.Tasks())
	assert.False(t, c.Ready())

	notes := tasks.Drain(c, c.Mount(category.All))
	assert.Empty(t, notes)
	got, _ := c.Task("t1")
	assert.True(t, got.Completed, "the store kept the write")
}

func TestStatsAfterLoad(t *testing.T) {
	seed := testutil.Seed(4, category.Work)
	seed[0].Completed = true
	fake := testutil.NewFakeStore(seed...)
	c := mounted(t, fake, category.Shopping)

	assert.Empty(t, c.Tasks())
	assert.Equal(t, model.Stats{Completed: 1, Total: 4, Progress: 25}, c.Stats())
}

func TestParseDirection(t *testing.T) {
	d, err := tasks.ParseDirection("UP")
	require.NoError(t, err)
	assert.Equal(t, tasks.Up, d)

	_, err = tasks.ParseDirection("sideways")
	assert.Error(t, err)
}
