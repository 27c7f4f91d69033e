package tasks

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/vibratodo/internal/model"
)

// Drain runs cmd and every follow-up command it produces to completion on
// the calling goroutine, feeding results back into c. It returns the
// notifications emitted along the way. Batched commands run in order.
//
// Drain is how non-interactive callers drive the controller.
func Drain(c *Controller, cmd tea.Cmd) []model.Notification {
	var notes []model.Notification
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}

		switch msg := next().(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case NotificationMsg:
			notes = append(notes, msg.Notification)
		default:
			queue = append(queue, c.Update(msg))
		}
	}
	return notes
}
