package tasks

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nhle/vibratodo/internal/model"
)

// Op names a controller operation.
type Op string

const (
	OpLoad   Op = "load"
	OpCreate Op = "create"
	OpToggle Op = "toggle"
	OpEdit   Op = "edit"
	OpDelete Op = "delete"
	OpMove   Op = "move"
)

// Direction is the way a task moves in the displayed order.
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

// ParseDirection accepts "up" or "down".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	}
	return Up, fmt.Errorf("unknown direction %q: want up or down", s)
}

// Outcome is how a mutating store call ended as seen by the controller.
type Outcome int

const (
	// Applied means the store confirmed the change; the optimistic state
	// stands.
	Applied Outcome = iota

	// RolledBack means the store rejected or failed the change; the list is
	// reloaded from the store.
	RolledBack

	// Unknown means the call's result was lost. It is resolved exactly like
	// RolledBack.
	Unknown
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case RolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Errors returned synchronously by controller operations.
var (
	// ErrNotReady is returned while the initial load is still in flight.
	ErrNotReady = errors.New("task list is still loading")

	// ErrUnknownTask is returned when an id is not in the loaded list.
	ErrUnknownTask = errors.New("task is not in the current list")
)

// LoadedMsg carries the result of a list call back to the controller.
type LoadedMsg struct {
	session int
	seq     int
	filter  string
	tasks   []model.Task
	err     error

	// quiet loads recover from a failed mutation and never notify.
	quiet bool
}

// Err returns the load error, if any.
func (m LoadedMsg) Err() error { return m.err }

// ResultMsg carries the result of a mutating store call back to the
// controller.
type ResultMsg struct {
	session int
	op      Op
	taskID  string
	err     error

	// draft is the submitted edit, applied locally once the store confirms.
	draft model.Draft

	// otherID is the neighbour swapped with taskID by a move.
	otherID   string
	direction Direction

	// position and otherPosition are the values a move wrote to taskID
	// and otherID.
	position      int
	otherPosition int

	// completed is the flag a toggle wrote.
	completed bool
}

// Op returns the operation the result belongs to.
func (m ResultMsg) Op() Op { return m.op }

// TaskID returns the task the operation targeted. For a create it is the
// id the store assigned, or "" when the create failed.
func (m ResultMsg) TaskID() string { return m.taskID }

// Err returns the store error, if any.
func (m ResultMsg) Err() error { return m.err }

// NotificationMsg asks the UI to show a notification.
type NotificationMsg struct {
	model.Notification
}

// StatsMsg carries freshly computed statistics over every task.
type StatsMsg struct {
	session int
	Stats   model.Stats
}
