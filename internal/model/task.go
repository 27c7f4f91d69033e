package model

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the wire and display format for due dates.
const DateLayout = "2006-01-02"

// ErrValidation is returned when a task or draft fails local validation,
// for example when its title is empty.
var ErrValidation = errors.New("validation failed")

// Priority is the urgency of a task.
type Priority string

// Priority levels, lowest first.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists every priority in display order.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// ParsePriority returns the priority named by s. Unknown or empty values
// resolve to medium and report false.
func ParsePriority(s string) (Priority, bool) {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityLow:
		return PriorityLow, true
	case PriorityMedium:
		return PriorityMedium, true
	case PriorityHigh:
		return PriorityHigh, true
	default:
		return PriorityMedium, false
	}
}

// Label returns the capitalized priority name.
func (p Priority) Label() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityHigh:
		return "High"
	default:
		return "Medium"
	}
}

// Task is a single to-do item as held by the task store.
type Task struct {
	// ID is assigned by the store on creation and never changes.
	ID string `json:"id"`

	// Title is required and never empty once persisted.
	Title string `json:"title"`

	Description string   `json:"description"`
	Completed   bool     `json:"completed"`
	Priority    Priority `json:"priority"`

	// Category is a category registry identifier.
	Category string `json:"category"`

	// DueDate is a calendar date (UTC midnight) or nil.
	DueDate *time.Time `json:"due_date,omitempty"`

	// Position orders tasks manually; higher values sort first.
	Position int `json:"position"`

	CreatedAt time.Time `json:"created_at"`
}

// IsDueOn reports whether the task is due on the calendar day of t.
func (t Task) IsDueOn(day time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	y1, m1, d1 := t.DueDate.Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// IsOverdue reports whether an incomplete task's due date lies before the
// calendar day of now.
func (t Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.Completed {
		return false
	}
	return t.DueDate.Before(TruncateDate(now))
}

// TruncateDate strips the time component of t, keeping its calendar date.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an optional YYYY-MM-DD date. An empty string yields nil.
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// FormatDate renders d as YYYY-MM-DD, or "" when d is nil.
func FormatDate(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format(DateLayout)
}
