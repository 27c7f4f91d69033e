package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/nhle/vibratodo/internal/category"
	"github.com/nhle/vibratodo/internal/model"
	"github.com/nhle/vibratodo/internal/store"
	"github.com/nhle/vibratodo/internal/tasks"
	"github.com/nhle/vibratodo/internal/theme"
)

// run is a mounted controller for one non-interactive command.
type run struct {
	env  *env
	ctrl *tasks.Controller
	out  io.Writer
}

// mount opens the store and loads filter through the controller.
func mount(cmd *cobra.Command, opts *options, filter string) (*run, error) {
	e, err := loadEnv(opts)
	if err != nil {
		return nil, err
	}
	if err := e.requireSession(); err != nil {
		e.Close()
		return nil, err
	}

	ctrl := tasks.New(e.store, e.log)
	tasks.Drain(ctrl, ctrl.Mount(filter))
	if err := ctrl.LoadErr(); err != nil {
		e.Close()
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	return &run{env: e, ctrl: ctrl, out: cmd.OutOrStdout()}, nil
}

// do drives an operation to completion and prints its notifications. An
// error notification becomes the command's error.
func (r *run) do(cmd tea.Cmd, err error) error {
	if err != nil {
		return err
	}
	var failed error
	for _, n := range tasks.Drain(r.ctrl, cmd) {
		if n.IsError() {
			failed = errors.New(n.Message)
			continue
		}
		fmt.Fprintln(r.out, n.Message)
	}
	return failed
}

// resolve finds the loaded task whose id is id or starts with it.
func (r *run) resolve(id string) (model.Task, error) {
	if t, ok := r.ctrl.Task(id); ok {
		return t, nil
	}
	var matches []model.Task
	for _, t := range r.ctrl.Tasks() {
		if strings.HasPrefix(t.ID, id) {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 0:
		return model.Task{}, fmt.Errorf("no task with id %q", id)
	case 1:
		return matches[0], nil
	}
	return model.Task{}, fmt.Errorf("id prefix %q matches %d tasks", id, len(matches))
}

func newListCmd(opts *options) *cobra.Command {
	var (
		filter string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, highest position first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !category.NewRegistry().ValidFilter(filter) {
				return fmt.Errorf("unknown category %q", filter)
			}
			r, err := mount(cmd, opts, filter)
			if err != nil {
				return err
			}
			defer r.env.Close()

			list := r.ctrl.Tasks()
			if asJSON {
				return writeJSON(r.out, list)
			}
			if len(list) == 0 {
				fmt.Fprintln(r.out, "No tasks found.")
				return nil
			}
			fmt.Fprintln(r.out, renderTable(list, r.env.categories, time.Now()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&filter, "category", "c", category.All, "Category to show (all, work, personal, shopping, health)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print tasks as JSON")
	return cmd
}

// renderTable lays out tasks as a bordered table.
func renderTable(list []model.Task, reg *category.Registry, now time.Time) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers("ID", "", "TITLE", "PRIORITY", "CATEGORY", "DUE")

	for _, task := range list {
		done := "○"
		if task.Completed {
			done = "✓"
		}
		due := model.FormatDate(task.DueDate)
		if task.IsOverdue(now) {
			due += " OVERDUE"
		}
		t.Row(shortID(task.ID), done, task.Title, task.Priority.Label(), reg.DisplayNameFor(task.Category), due)
	}
	return t.Render()
}

// shortID trims uuids to a prefix that resolve accepts.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// draftFlags are the task fields settable from the command line.
type draftFlags struct {
	description string
	priority    string
	category    string
	due         string
	clearDue    bool
}

func (f *draftFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "Task description")
	cmd.Flags().StringVarP(&f.priority, "priority", "p", string(model.PriorityMedium), "Priority: low, medium or high")
	cmd.Flags().StringVarP(&f.category, "category", "c", category.Default, "Category: work, personal, shopping or health")
	cmd.Flags().StringVar(&f.due, "due", "", "Due date (YYYY-MM-DD)")
}

// apply copies the flags the user set onto d.
func (f *draftFlags) apply(cmd *cobra.Command, d model.Draft) (model.Draft, error) {
	changed := cmd.Flags().Changed
	if changed("description") {
		d.Description = f.description
	}
	if changed("priority") || d.Priority == "" {
		p, ok := model.ParsePriority(f.priority)
		if !ok {
			return d, fmt.Errorf("unknown priority %q", f.priority)
		}
		d.Priority = p
	}
	if changed("category") || d.Category == "" {
		if !category.NewRegistry().Known(f.category) {
			return d, fmt.Errorf("unknown category %q", f.category)
		}
		d.Category = f.category
	}
	if changed("due") {
		due, err := model.ParseDate(f.due)
		if err != nil {
			return d, fmt.Errorf("invalid due date %q: use YYYY-MM-DD", f.due)
		}
		d.DueDate = due
	}
	if f.clearDue {
		d.DueDate = nil
	}
	return d, nil
}

func newAddCmd(opts *options) *cobra.Command {
	var flags draftFlags
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task at the top of the list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft := model.NewDraft()
			draft.Title = strings.Join(args, " ")
			draft, err := flags.apply(cmd, draft)
			if err != nil {
				return err
			}

			r, err := mount(cmd, opts, category.All)
			if err != nil {
				return err
			}
			defer r.env.Close()
			return r.do(r.ctrl.Create(draft))
		},
	}
	flags.register(cmd)
	return cmd
}

func newDoneCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Toggle a task between completed and active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := mount(cmd, opts, category.All)
			if err != nil {
				return err
			}
			defer r.env.Close()

			t, err := r.resolve(args[0])
			if err != nil {
				return err
			}
			return r.do(r.ctrl.Toggle(t.ID))
		},
	}
}

func newEditCmd(opts *options) *cobra.Command {
	var (
		flags draftFlags
		title string
	)
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := mount(cmd, opts, category.All)
			if err != nil {
				return err
			}
			defer r.env.Close()

			t, err := r.resolve(args[0])
			if err != nil {
				return err
			}
			draft := model.DraftFrom(t)
			if cmd.Flags().Changed("title") {
				draft.Title = title
			}
			draft, err = flags.apply(cmd, draft)
			if err != nil {
				return err
			}
			return r.do(r.ctrl.Edit(t.ID, draft))
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "New title")
	cmd.Flags().BoolVar(&flags.clearDue, "clear-due", false, "Remove the due date")
	flags.register(cmd)
	return cmd
}

func newRmCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := mount(cmd, opts, category.All)
			if err != nil {
				return err
			}
			defer r.env.Close()

			t, err := r.resolve(args[0])
			if err != nil {
				return err
			}
			return r.do(r.ctrl.Delete(t.ID))
		},
	}
}

func newMoveCmd(opts *options) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "move <id> up|down",
		Short: "Swap a task with its neighbour",
		Long: `Swap a task with its neighbour in the list shown for --category.
Moving the first task up or the last task down does nothing.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := tasks.ParseDirection(args[1])
			if err != nil {
				return err
			}
			r, err := mount(cmd, opts, filter)
			if err != nil {
				return err
			}
			defer r.env.Close()

			t, err := r.resolve(args[0])
			if err != nil {
				return err
			}
			return r.do(r.ctrl.Move(t.ID, dir))
		},
	}
	cmd.Flags().StringVarP(&filter, "category", "c", category.All, "List the move applies to")
	return cmd
}

func newStatsCmd(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show completion statistics over every task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv(opts)
			if err != nil {
				return err
			}
			defer e.Close()
			if err := e.requireSession(); err != nil {
				return err
			}

			s := store.FetchStats(context.Background(), e.store, time.Now())
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), s)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Completed: %d/%d\nDue today: %d\nProgress:  %d%%\n",
				s.Completed, s.Total, s.DueToday, s.Progress)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print statistics as JSON")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
