// Package cli wires configuration, storage and the task controller into
// the vibratodo command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/vibratodo/internal/model"
)

// options are the global flags shared by every subcommand.
type options struct {
	configPath string
}

// newRootCmd builds the command tree. Running the root command without a
// subcommand launches the terminal UI.
func newRootCmd(version string) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "vibratodo",
		Short: "VibraToDo - a categorized task list",
		Long: `VibraToDo keeps a prioritized, categorized task list in a remote record
service or in a local SQLite file.

Run without arguments to open the interactive list.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, opts)
		},
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", model.DefaultConfigPath(), "Path to the config file")

	root.AddCommand(
		newListCmd(opts),
		newAddCmd(opts),
		newDoneCmd(opts),
		newEditCmd(opts),
		newRmCmd(opts),
		newMoveCmd(opts),
		newStatsCmd(opts),
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newConfigCmd(opts),
	)
	return root
}

// Execute runs the root command
func Execute(version string) error {
	if err := newRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
