package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/nhle/vibratodo/internal/category"
)

// DefaultCategory is the category given to drafts that do not pick one.
const DefaultCategory = category.Default

// Draft is unsaved task data held by a form until create or edit succeeds.
type Draft struct {
	Title       string
	Description string
	Completed   bool
	Priority    Priority
	Category    string
	DueDate     *time.Time
}

// NewDraft returns an empty draft with default priority and category.
func NewDraft() Draft {
	return Draft{
		Priority: PriorityMedium,
		Category: DefaultCategory,
	}
}

// DraftFrom copies the editable fields of t into a draft.
func DraftFrom(t Task) Draft {
	d := Draft{
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		Priority:    t.Priority,
		Category:    t.Category,
	}
	if t.DueDate != nil {
		due := *t.DueDate
		d.DueDate = &due
	}
	return d
}

// Validate checks that the draft can be submitted.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("%w: task title is required", ErrValidation)
	}
	return nil
}

// Normalized trims the title and fills in default priority and category.
func (d Draft) Normalized() Draft {
	d.Title = strings.TrimSpace(d.Title)
	if _, ok := ParsePriority(string(d.Priority)); !ok {
		d.Priority = PriorityMedium
	}
	if d.Category == "" {
		d.Category = DefaultCategory
	}
	return d
}

// Apply returns t with the draft's editable fields written over it.
// Identity, position and creation time are kept.
func (d Draft) Apply(t Task) Task {
	d = d.Normalized()
	t.Title = d.Title
	t.Description = d.Description
	t.Completed = d.Completed
	t.Priority = d.Priority
	t.Category = d.Category
	t.DueDate = d.DueDate
	return t
}

// Patch lists the fields an update changes. Nil fields are left untouched
// by the store.
type Patch struct {
	Title       *string
	Description *string
	Completed   *bool
	Priority    *Priority
	Category    *string
	Position    *int

	// DueDate sets the due date; ClearDueDate removes it.
	DueDate      *time.Time
	ClearDueDate bool
}

// PatchFromDraft builds a patch that writes every editable field of d.
func PatchFromDraft(d Draft) Patch {
	d = d.Normalized()
	p := Patch{
		Title:       &d.Title,
		Description: &d.Description,
		Completed:   &d.Completed,
		Priority:    &d.Priority,
		Category:    &d.Category,
	}
	if d.DueDate != nil {
		p.DueDate = d.DueDate
	} else {
		p.ClearDueDate = true
	}
	return p
}

// CompletedPatch changes only the completed flag.
func CompletedPatch(completed bool) Patch {
	return Patch{Completed: &completed}
}

// PositionPatch changes only the position.
func PositionPatch(position int) Patch {
	return Patch{Position: &position}
}

// Validate rejects patches that would empty the title.
func (p Patch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return fmt.Errorf("%w: task title is required", ErrValidation)
	}
	return nil
}

// Apply returns t with the patch's fields written over it.
func (p Patch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Position != nil {
		t.Position = *p.Position
	}
	if p.ClearDueDate {
		t.DueDate = nil
	} else if p.DueDate != nil {
		due := *p.DueDate
		t.DueDate = &due
	}
	return t
}
