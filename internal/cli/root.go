// Package cli is the taskhours command tree. Without a subcommand it runs
// the terminal UI.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// BuildInfo is stamped into the binary via ldflags
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

func (b BuildInfo) String() string {
	return fmt.Sprintf("taskhours %s (commit: %s, built: %s)", b.Version, b.Commit, b.Date)
}

// options are the persistent flags shared by every command
type options struct {
	configFile string
	envFile    string
}

func newRootCmd(info BuildInfo) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "taskhours",
		Short: "Tasks, subtasks and hours in your terminal",
		Long: `taskhours tracks tasks with subtasks, progress and notes, and the hours
logged against them.

Run without a command to open the terminal UI.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       info.Version,
	}
	rootCmd.SetVersionTemplate(info.String() + "\n")

	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/taskhours/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file with TASKHOURS_* overrides")

	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newTasksCmd(opts))
	rootCmd.AddCommand(newLogCmd(opts))
	rootCmd.AddCommand(newWeekCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newVersionCmd(info))

	return rootCmd
}

// Execute runs the root command
func Execute(info BuildInfo) error {
	if err := newRootCmd(info).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func newVersionCmd(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), info.String())
		},
	}
}
