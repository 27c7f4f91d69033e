package model

import (
	"math"
	"time"
)

// Stats summarizes a task list for the header and the stats command.
type Stats struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
	DueToday  int `json:"due_today"`
	Progress  int `json:"progress"`
}

// ComputeStats counts completed tasks, incomplete tasks due on the day of
// now, and the rounded completion percentage.
func ComputeStats(tasks []Task, now time.Time) Stats {
	var s Stats
	s.Total = len(tasks)
	for _, t := range tasks {
		if t.Completed {
			s.Completed++
			continue
		}
		if t.IsDueOn(now) {
			s.DueToday++
		}
	}
	if s.Total > 0 {
		s.Progress = int(math.Round(float64(s.Completed) / float64(s.Total) * 100))
	}
	return s
}
