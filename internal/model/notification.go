package model

import "time"

// NotificationKind distinguishes success toasts from failure toasts.
type NotificationKind int

const (
	NotifySuccess NotificationKind = iota
	NotifyError
)

// Notification is a user-facing message about the outcome of an operation
// on the task list.
type Notification struct {
	// Kind is success or error.
	Kind NotificationKind `json:"kind"`

	// Op names the operation that produced this notification
	// (e.g., "create", "move").
	Op string `json:"op"`

	// TaskID is the task the operation targeted, if any.
	TaskID string `json:"task_id,omitempty"`

	// Message is the human-readable notification text.
	Message string `json:"message"`

	// CreatedAt is when this notification was generated.
	CreatedAt time.Time `json:"created_at"`
}

// IsError reports whether the notification reports a failure.
func (n Notification) IsError() bool {
	return n.Kind == NotifyError
}
