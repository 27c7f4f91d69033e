package testutil

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/nhle/vibratodo/internal/model"
	"github.com/nhle/vibratodo/internal/store"
)

// Store operation names used for call counting and failure injection.
const (
	OpList   = "list"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

type injected struct {
	err          error
	afterApplied bool
}

// FakeStore is an in-memory TaskStore that counts calls per operation and
// can be told to fail upcoming calls.
type FakeStore struct {
	mu       sync.Mutex
	tasks    []model.Task
	nextID   int
	calls    map[string]int
	failures map[string][]injected
	now      time.Time
}

// NewFakeStore returns a fake holding tasks.
func NewFakeStore(tasks ...model.Task) *FakeStore {
	return &FakeStore{
		tasks:    append([]model.Task(nil), tasks...),
		nextID:   len(tasks) + 1,
		calls:    make(map[string]int),
		failures: make(map[string][]injected),
		now:      time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC),
	}
}

// FailNext makes the next call to op return err without touching the data.
// Queue a nil err to let one call succeed before a later failure.
func (f *FakeStore) FailNext(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = append(f.failures[op], injected{err: err})
}

// FailNextAfterApply makes the next call to op apply its change and then
// return err, as when a response is lost in transit.
func (f *FakeStore) FailNextAfterApply(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = append(f.failures[op], injected{err: err, afterApplied: true})
}

// Calls returns how many times op was invoked.
func (f *FakeStore) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// TotalCalls returns the number of calls across all operations.
func (f *FakeStore) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// Snapshot returns every stored task by descending position.
func (f *FakeStore) Snapshot() []model.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]model.Task(nil), f.tasks...)
	store.SortByPosition(out)
	return out
}

// Get returns the stored task with id.
func (f *FakeStore) Get(id string) (model.Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.indexOf(id); i >= 0 {
		return f.tasks[i], true
	}
	return model.Task{}, false
}

// begin records a call and pops any injected failure. A queued nil error
// lets that call through. Callers hold f.mu.
func (f *FakeStore) begin(op string) (injected, bool) {
	f.calls[op]++
	queue := f.failures[op]
	if len(queue) == 0 {
		return injected{}, false
	}
	f.failures[op] = queue[1:]
	return queue[0], queue[0].err != nil
}

func (f *FakeStore) List(_ context.Context, category string) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fail, ok := f.begin(OpList); ok {
		return nil, fail.err
	}
	var out []model.Task
	for _, t := range f.tasks {
		if category == "" || t.Category == category {
			out = append(out, t)
		}
	}
	store.SortByPosition(out)
	return out, nil
}

func (f *FakeStore) Create(_ context.Context, draft model.Draft, position int) (model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fail, failing := f.begin(OpCreate)
	if failing && !fail.afterApplied {
		return model.Task{}, fail.err
	}
	if err := draft.Validate(); err != nil {
		return model.Task{}, err
	}
	f.now = f.now.Add(time.Second)
	task := draft.Apply(model.Task{
		ID:        "t" + strconv.Itoa(f.nextID),
		Position:  position,
		CreatedAt: f.now,
	})
	f.nextID++
	f.tasks = append(f.tasks, task)
	if failing {
		return model.Task{}, fail.err
	}
	return task, nil
}

func (f *FakeStore) Update(_ context.Context, id string, patch model.Patch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fail, failing := f.begin(OpUpdate)
	if failing && !fail.afterApplied {
		return fail.err
	}
	i := f.indexOf(id)
	if i < 0 {
		return fmt.Errorf("updating task %s: %w", id, store.ErrNotFound)
	}
	f.tasks[i] = patch.Apply(f.tasks[i])
	if failing {
		return fail.err
	}
	return nil
}

func (f *FakeStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fail, failing := f.begin(OpDelete)
	if failing && !fail.afterApplied {
		return fail.err
	}
	i := f.indexOf(id)
	if i < 0 {
		return fmt.Errorf("deleting task %s: %w", id, store.ErrNotFound)
	}
	f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
	if failing {
		return fail.err
	}
	return nil
}

func (f *FakeStore) indexOf(id string) int {
	for i, t := range f.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Seed builds n tasks in category with positions n..1 so that "t1" sorts
// first.
func Seed(n int, category string) []model.Task {
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	tasks := make([]model.Task, n)
	for i := range tasks {
		tasks[i] = model.Task{
			ID:        "t" + strconv.Itoa(i+1),
			Title:     "task " + strconv.Itoa(i+1),
			Priority:  model.PriorityMedium,
			Category:  category,
			Position:  n - i,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
	}
	return tasks
}
