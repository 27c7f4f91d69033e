package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/nhle/vibratodo/internal/model"
)

// Failure categories every TaskStore reports through wrapped errors.
// Callers test for them with errors.Is.
var (
	// ErrValidation means the request was rejected before it reached the
	// store, e.g. an empty title.
	ErrValidation = model.ErrValidation

	// ErrUnavailable means the call could not complete (transport or
	// server failure).
	ErrUnavailable = errors.New("task store unavailable")

	// ErrNotFound means the targeted task does not exist in the store.
	ErrNotFound = errors.New("task not found")

	// ErrOutcomeUnknown means the request may or may not have been applied,
	// e.g. the connection dropped after the request was sent.
	ErrOutcomeUnknown = errors.New("task store outcome unknown")
)

// TaskStore is the contract shared by the remote record-service backend and
// the local fallback. Implementations hold no session state and must be
// safe for concurrent use.
type TaskStore interface {
	// List returns tasks ordered by descending position. An empty category
	// returns every task.
	List(ctx context.Context, category string) ([]model.Task, error)

	// Create persists a new task at the given position and returns it with
	// its store-assigned ID and creation time.
	Create(ctx context.Context, draft model.Draft, position int) (model.Task, error)

	// Update writes the fields set in patch to the task identified by id.
	Update(ctx context.Context, id string, patch model.Patch) error

	// Delete removes the task identified by id.
	Delete(ctx context.Context, id string) error
}

// SortByPosition orders tasks by descending position. Ties keep the newest
// task first.
func SortByPosition(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Position != tasks[j].Position {
			return tasks[i].Position > tasks[j].Position
		}
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
}

// FetchStats lists every task in s and summarizes it. A failed fetch
// yields zero stats rather than an error.
func FetchStats(ctx context.Context, s TaskStore, now time.Time) model.Stats {
	tasks, err := s.List(ctx, "")
	if err != nil {
		return model.Stats{}
	}
	return model.ComputeStats(tasks, now)
}
