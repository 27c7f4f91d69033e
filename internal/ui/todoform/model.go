package todoform

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/vibratodo/internal/category"
	"github.com/nhle/vibratodo/internal/model"
	"github.com/nhle/vibratodo/internal/theme"
)

// SubmittedMsg is dispatched when the user submits a valid form.
type SubmittedMsg struct {
	Mode   Mode
	TaskID string
	Draft  model.Draft
}

// CancelledMsg is dispatched when the user cancels the form.
type CancelledMsg struct {
	Mode   Mode
	TaskID string
}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title       string
	description string
	priority    model.Priority
	category    string
	dueDate     string
	completed   bool
}

// Model is the Bubble Tea model for the task create/edit form.
type Model struct {
	form       *huh.Form
	fb         *formBindings
	drafts     *Drafts
	categories *category.Registry
	mode       Mode
	editID     string

	// errText is shown above the form after a rejected submission.
	errText string

	width  int
	height int
}

// New creates a new task form model.
func New(categories *category.Registry, width, height int) Model {
	return Model{
		fb:         &formBindings{},
		drafts:     NewDrafts(),
		categories: categories,
		width:      width,
		height:     height,
	}
}

// Drafts returns the draft holder shared by every copy of the model.
func (m Model) Drafts() *Drafts { return m.drafts }

// Active reports whether a form is open.
func (m Model) Active() bool { return m.form != nil }

// Mode returns whether the open form creates or edits.
func (m Model) Mode() Mode { return m.mode }

// StartCreate opens the form for a new task, restoring a draft kept from a
// failed submission.
func (m *Model) StartCreate() tea.Cmd {
	m.mode = ModeCreate
	m.editID = ""
	m.errText = ""
	m.bind(m.drafts.ForCreate())
	m.form = m.buildForm()
	return m.form.Init()
}

// StartEdit opens the form for task t.
func (m *Model) StartEdit(t model.Task) tea.Cmd {
	m.mode = ModeEdit
	m.editID = t.ID
	m.errText = ""
	m.bind(m.drafts.ForEdit(t))
	m.form = m.buildForm()
	return m.form.Init()
}

// Reopen shows the form again with the same values and an error line, as
// when a submission is rejected before reaching the store.
func (m *Model) Reopen(err error) tea.Cmd {
	m.errText = err.Error()
	m.form = m.buildForm()
	return m.form.Init()
}

// Close drops the open form without touching the drafts.
func (m *Model) Close() {
	m.form = nil
	m.errText = ""
}

func (m *Model) bind(d model.Draft) {
	*m.fb = formBindings{
		title:       d.Title,
		description: d.Description,
		priority:    d.Priority,
		category:    d.Category,
		dueDate:     model.FormatDate(d.DueDate),
		completed:   d.Completed,
	}
	if m.fb.priority == "" {
		m.fb.priority = model.PriorityMedium
	}
	if m.fb.category == "" {
		m.fb.category = model.DefaultCategory
	}
}

// Update handles messages for the task form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		return m.handleSubmit()
	case huh.StateAborted:
		mode, id := m.mode, m.editID
		m.drafts.Discard(mode, id)
		m.Close()
		return m, func() tea.Msg { return CancelledMsg{Mode: mode, TaskID: id} }
	}

	return m, cmd
}

func (m Model) handleSubmit() (Model, tea.Cmd) {
	draft, err := m.fb.draft()
	if err != nil {
		return m, m.Reopen(err)
	}

	mode, id := m.mode, m.editID
	m.drafts.Hold(mode, id, draft)
	m.Close()
	return m, func() tea.Msg {
		return SubmittedMsg{Mode: mode, TaskID: id, Draft: draft}
	}
}

// draft converts the bound values into a draft.
func (fb *formBindings) draft() (model.Draft, error) {
	due, err := model.ParseDate(fb.dueDate)
	if err != nil {
		return model.Draft{}, fmt.Errorf("invalid date format, use YYYY-MM-DD")
	}
	d := model.Draft{
		Title:       fb.title,
		Description: fb.description,
		Completed:   fb.completed,
		Priority:    fb.priority,
		Category:    fb.category,
		DueDate:     due,
	}
	return d, d.Validate()
}

// View renders the task form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "New Task"
	if m.mode == ModeEdit {
		titleText = "Edit Task"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render(titleText) + "\n"
	if m.errText != "" {
		content += theme.OverdueStyle.Render(m.errText) + "\n"
	}
	content += m.form.View()

	return theme.FormPanelStyle.Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(m.formWidth()).WithHeight(m.formHeight())
	}
}

func (m *Model) buildForm() *huh.Form {
	fields := []huh.Field{
		huh.NewInput().
			Title("Title").
			Placeholder("What needs to be done?").
			Value(&m.fb.title).
			Validate(validateRequired("Title")),
		huh.NewText().
			Title("Description").
			Placeholder("Optional details...").
			Value(&m.fb.description),
		huh.NewSelect[model.Priority]().
			Title("Priority").
			Options(priorityOptions()...).
			Value(&m.fb.priority),
		huh.NewSelect[string]().
			Title("Category").
			Options(m.categoryOptions()...).
			Value(&m.fb.category),
		huh.NewInput().
			Title("Due Date").
			Placeholder("YYYY-MM-DD (optional)").
			Value(&m.fb.dueDate).
			Validate(validateOptionalDate),
	}
	if m.mode == ModeEdit {
		fields = append(fields,
			huh.NewConfirm().
				Title("Completed").
				Affirmative("Done").
				Negative("Open").
				Value(&m.fb.completed),
		)
	}

	return huh.NewForm(
		huh.NewGroup(fields...),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func priorityOptions() []huh.Option[model.Priority] {
	opts := make([]huh.Option[model.Priority], len(model.Priorities))
	for i, p := range model.Priorities {
		opts[i] = huh.NewOption(p.Label(), p)
	}
	return opts
}

func (m *Model) categoryOptions() []huh.Option[string] {
	all := m.categories.All()
	opts := make([]huh.Option[string], len(all))
	for i, c := range all {
		opts[i] = huh.NewOption(c.DisplayName, c.ID)
	}
	return opts
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

func (m Model) formHeight() int {
	return max(m.height-4, 10)
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateOptionalDate(s string) error {
	if _, err := model.ParseDate(s); err != nil {
		return fmt.Errorf("invalid date format, use YYYY-MM-DD")
	}
	return nil
}
