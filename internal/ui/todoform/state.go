package todoform

import (
	"errors"
	"strings"

	"github.com/nhle/vibratodo/internal/model"
	"github.com/nhle/vibratodo/internal/store"
	"github.com/nhle/vibratodo/internal/tasks"
)

// Mode tells whether a form creates a task or edits one.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

// Drafts holds the unsaved new-task draft and the per-task edit drafts.
// A draft survives a failed submission so the user can retry it, and is
// dropped on cancel or once the store confirms the change.
type Drafts struct {
	create *model.Draft
	edits  map[string]model.Draft

	// unconfirmed is set when the create's result was lost; the next
	// reload decides whether the task exists.
	unconfirmed bool
}

// NewDrafts returns an empty draft holder.
func NewDrafts() *Drafts {
	return &Drafts{edits: make(map[string]model.Draft)}
}

// ForCreate returns the retained new-task draft or a fresh one.
func (d *Drafts) ForCreate() model.Draft {
	if d.create != nil {
		return *d.create
	}
	return model.NewDraft()
}

// ForEdit returns the retained edit draft for t or one copied from t.
func (d *Drafts) ForEdit(t model.Task) model.Draft {
	if draft, ok := d.edits[t.ID]; ok {
		return draft
	}
	return model.DraftFrom(t)
}

// Hold keeps draft until the submission resolves.
func (d *Drafts) Hold(mode Mode, id string, draft model.Draft) {
	if mode == ModeCreate {
		d.create = &draft
		d.unconfirmed = false
		return
	}
	d.edits[id] = draft
}

// Discard drops the draft, as on cancel.
func (d *Drafts) Discard(mode Mode, id string) {
	if mode == ModeCreate {
		d.create = nil
		d.unconfirmed = false
		return
	}
	delete(d.edits, id)
}

// HasCreate reports whether a new-task draft is retained.
func (d *Drafts) HasCreate() bool { return d.create != nil }

// HasEdit reports whether an edit draft is retained for id.
func (d *Drafts) HasEdit(id string) bool {
	_, ok := d.edits[id]
	return ok
}

// Resolve clears the matching draft when a create or edit result reports
// success. A create whose outcome is unknown is settled by Reconcile.
func (d *Drafts) Resolve(msg tasks.ResultMsg) {
	if msg.Err() != nil {
		if msg.Op() == tasks.OpCreate && errors.Is(msg.Err(), store.ErrOutcomeUnknown) {
			d.unconfirmed = d.create != nil
		}
		return
	}
	switch msg.Op() {
	case tasks.OpCreate:
		d.create = nil
	case tasks.OpEdit:
		delete(d.edits, msg.TaskID())
	case tasks.OpDelete:
		delete(d.edits, msg.TaskID())
	}
}

// Reconcile settles an unconfirmed create against a freshly loaded list: a
// task with the draft's title means the create went through, so the draft
// is dropped rather than offered for a duplicate submit.
func (d *Drafts) Reconcile(list []model.Task) {
	if !d.unconfirmed || d.create == nil {
		return
	}
	d.unconfirmed = false
	title := strings.TrimSpace(d.create.Title)
	for _, t := range list {
		if t.Title == title {
			d.create = nil
			return
		}
	}
}
