package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/tgienger/taskhours/internal/store"
	"github.com/tgienger/taskhours/internal/timesheet"
)

const dateLayout = "2006-01-02"

func newLogCmd(opts *options) *cobra.Command {
	var (
		taskID      int64
		subtaskID   int64
		date        string
		description string
	)

	cmd := &cobra.Command{
		Use:   "log <hours>",
		Short: "Log hours against a task or subtask",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hours, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("hours must be a number: %q", args[0])
			}
			if taskID == 0 && subtaskID == 0 {
				return errors.New("pass --task or --subtask")
			}
			day, err := parseDay(date, time.Now())
			if err != nil {
				return err
			}

			in := store.NewTimeEntry{Hours: hours, Date: day, Description: description}
			if taskID > 0 {
				in.TaskID = &taskID
			}
			if subtaskID > 0 {
				in.SubtaskID = &subtaskID
			}

			sess, err := opts.open("cli")
			if err != nil {
				return err
			}
			defer sess.Close()

			entry, err := sess.store.CreateTimeEntry(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged %sh on %s\n",
				timesheet.FormatHours(entry.Hours), entry.Date.Format(dateLayout))
			return nil
		},
	}

	cmd.Flags().Int64Var(&taskID, "task", 0, "task id")
	cmd.Flags().Int64Var(&subtaskID, "subtask", 0, "subtask id")
	cmd.Flags().StringVar(&date, "date", "", "date as YYYY-MM-DD (default today)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "what the time was spent on")
	return cmd
}

// parseDay reads a YYYY-MM-DD flag value, defaulting to today
func parseDay(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return store.Day(now), nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD: %q", s)
	}
	return t, nil
}

func dueLabel(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}
