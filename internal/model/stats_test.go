package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeStats(t *testing.T) {
	now := time.Date(2026, 10, 15, 14, 30, 0, 0, time.UTC)
	today, _ := ParseDate("2026-10-15")
	tomorrow, _ := ParseDate("2026-10-16")

	tasks := []Task{
		{ID: "1", Completed: true, DueDate: today},
		{ID: "2", DueDate: today},
		{ID: "3", DueDate: tomorrow},
	}

	s := ComputeStats(tasks, now)
	assert.Equal(t, Stats{Completed: 1, Total: 3, DueToday: 1, Progress: 33}, s)
}

func TestComputeStatsEmpty(t *testing.T) {
	assert.Equal(t, Stats{}, ComputeStats(nil, time.Now()))
}

func TestIsOverdue(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	past, _ := ParseDate("2026-10-14")

	assert.True(t, Task{DueDate: past}.IsOverdue(now))
	assert.False(t, Task{DueDate: past, Completed: true}.IsOverdue(now))
	assert.False(t, Task{}.IsOverdue(now))
}
