package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/tgienger/taskhours/internal/timesheet"
)

func newWeekCmd(opts *options) *cobra.Command {
	var (
		export string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "week",
		Short: "Show logged hours grouped by week",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := opts.open("cli")
			if err != nil {
				return err
			}
			defer sess.Close()

			entries, err := sess.store.FetchTimeEntries(cmd.Context())
			if err != nil {
				return err
			}
			weeks := timesheet.GroupByWeek(entries, time.Now())

			if export != "" {
				return exportWeeks(export, weeks)
			}
			if limit > 0 && len(weeks) > limit {
				weeks = weeks[:limit]
			}
			printWeeks(cmd.OutOrStdout(), weeks)
			return nil
		},
	}

	cmd.Flags().StringVar(&export, "export", "", "write every week to this .xlsx file instead")
	cmd.Flags().IntVarP(&limit, "limit", "n", 1, "number of weeks to print, 0 for all")
	return cmd
}

func exportWeeks(path string, weeks []timesheet.Week) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	if err := timesheet.ExportXLSX(f, weeks); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

var weekTitleStyle = lipgloss.NewStyle().Bold(true)

func printWeeks(w io.Writer, weeks []timesheet.Week) {
	for i, week := range weeks {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, weekTitleStyle.Render(week.Title()+"  "+week.Range()))

		if len(week.Entries) == 0 {
			fmt.Fprintln(w, "No time logged.")
			continue
		}

		t := table.New().
			Border(lipgloss.RoundedBorder()).
			Headers("Title", "Description", "Hours", "Date").
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cellStyle
			})
		for _, e := range week.Entries {
			t.Row(e.Label(), e.Description, timesheet.FormatHours(e.Hours), e.Date.Format(dateLayout))
		}
		t.Row("Total", "", timesheet.FormatHours(week.TotalHours), "")
		fmt.Fprintln(w, t.Render())
	}
}
