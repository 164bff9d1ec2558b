package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/tgienger/taskhours/internal/ui"
)

func runTUI(cmd *cobra.Command, opts *options) error {
	sess, err := opts.open("tui")
	if err != nil {
		return err
	}
	defer sess.Close()

	app := ui.NewApp(cmd.Context(), sess.store)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running application: %w", err)
	}
	return nil
}
