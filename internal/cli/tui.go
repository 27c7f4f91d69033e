package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/vibratodo/internal/app"
	"github.com/nhle/vibratodo/internal/tasks"
)

// runTUI opens the interactive list. The terminal belongs to the UI, so
// logs go to the configured file only.
func runTUI(_ *cobra.Command, opts *options) error {
	e, err := loadEnv(opts)
	if err != nil {
		return err
	}
	defer e.Close()

	appOpts := app.Options{
		Controller: tasks.New(e.store, e.log),
		Categories: e.categories,
		Log:        e.log,
	}
	if e.session != nil {
		appOpts.Session = e.session
	}

	e.log.WithField("backend", e.cfg.Store.Backend).Info("starting ui")
	p := tea.NewProgram(app.New(appOpts), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}
	return nil
}
