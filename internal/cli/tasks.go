package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/tgienger/taskhours/internal/models"
	"github.com/tgienger/taskhours/internal/store"
)

func newTasksCmd(opts *options) *cobra.Command {
	var archived bool

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List tasks, highest priority first",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := opts.open("cli")
			if err != nil {
				return err
			}
			defer sess.Close()

			fetch := sess.store.FetchTasks
			if archived {
				fetch = sess.store.FetchArchivedTasks
			}
			tasks, err := fetch(cmd.Context())
			if err != nil {
				return err
			}
			printTasks(cmd.OutOrStdout(), tasks)
			return nil
		},
	}
	cmd.Flags().BoolVar(&archived, "archived", false, "list the archive instead")

	cmd.AddCommand(newTasksAddCmd(opts), newTasksShowCmd(opts), newTasksNoteCmd(opts), newTasksDoneCmd(opts), newTasksProgressCmd(opts))
	return cmd
}

func newTasksAddCmd(opts *options) *cobra.Command {
	var (
		description string
		icon        string
		parent      int64
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a task, or a subtask with --parent",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := opts.open("cli")
			if err != nil {
				return err
			}
			defer sess.Close()

			name := strings.Join(args, " ")
			if parent > 0 {
				sub, err := sess.store.CreateSubtask(cmd.Context(), store.NewSubtask{
					TaskID:      parent,
					Name:        name,
					Description: description,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created subtask %d under task %d\n", sub.ID, parent)
				return nil
			}

			task, err := sess.store.CreateTask(cmd.Context(), store.NewTask{
				Name:        name,
				Description: description,
				Icon:        icon,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created task %d\n", task.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "description")
	cmd.Flags().StringVar(&icon, "icon", "", "icon: zap, penTool or settings")
	cmd.Flags().Int64Var(&parent, "parent", 0, "create a subtask of this task id")
	return cmd
}

func newTasksShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task with its notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			sess, err := opts.open("cli")
			if err != nil {
				return err
			}
			defer sess.Close()

			task, err := sess.store.GetTask(cmd.Context(), id)
			if err != nil {
				return err
			}
			notes, err := sess.store.NotesFor(cmd.Context(), models.TaskOwner(id))
			if err != nil {
				return err
			}
			printTask(cmd.OutOrStdout(), task, notes)
			return nil
		},
	}
}

func newTasksNoteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "note <id> <text>",
		Short: "Add a note to a task",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			sess, err := opts.open("cli")
			if err != nil {
				return err
			}
			defer sess.Close()

			note, err := sess.store.CreateNote(cmd.Context(), store.NewNote{
				Owner:   models.TaskOwner(id),
				Content: strings.Join(args[1:], " "),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added note %d\n", note.ID)
			return nil
		},
	}
}

func newTasksDoneCmd(opts *options) *cobra.Command {
	var subtask, undo bool

	cmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task or subtask as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			sess, err := opts.open("cli")
			if err != nil {
				return err
			}
			defer sess.Close()

			set := sess.store.SetTaskCompleted
			if subtask {
				set = sess.store.SetSubtaskCompleted
			}
			if err := set(cmd.Context(), id, !undo); err != nil {
				return err
			}
			state := "done"
			if undo {
				state = "not done"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %d %s\n", id, state)
			return nil
		},
	}
	cmd.Flags().BoolVar(&subtask, "subtask", false, "the id is a subtask")
	cmd.Flags().BoolVar(&undo, "undo", false, "mark as not done")
	return cmd
}

func newTasksProgressCmd(opts *options) *cobra.Command {
	var subtask bool

	cmd := &cobra.Command{
		Use:   "progress <id> <percent>",
		Short: "Set the progress of a task or subtask",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			percent, err := strconv.Atoi(strings.TrimSuffix(args[1], "%"))
			if err != nil {
				return fmt.Errorf("progress must be a whole number, got %q", args[1])
			}
			sess, err := opts.open("cli")
			if err != nil {
				return err
			}
			defer sess.Close()

			set := sess.store.SetTaskProgress
			if subtask {
				set = sess.store.SetSubtaskProgress
			}
			if err := set(cmd.Context(), id, percent); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %d to %s\n", id, progressLabel(models.ClampProgress(percent)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&subtask, "subtask", false, "the id is a subtask")
	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("ids are positive numbers, got %q", s)
	}
	return id, nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	doneStyle   = cellStyle.Foreground(lipgloss.Color("#9ece6a"))
)

// printTasks renders tasks as a table with subtasks indented under them
func printTasks(w io.Writer, tasks []models.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks.")
		return
	}

	var done []bool
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("ID", "Task", "Progress", "Priority", "Due")

	for _, task := range tasks {
		t.Row(strconv.FormatInt(task.ID, 10), task.Name, progressLabel(task.Progress), strconv.Itoa(task.PriorityScore), dueLabel(task.DueDate))
		done = append(done, task.Completed)
		for _, st := range task.Subtasks {
			t.Row(strconv.FormatInt(st.ID, 10), "  └ "+st.Name, progressLabel(st.Progress), strconv.Itoa(st.PriorityScore), dueLabel(st.DueDate))
			done = append(done, st.Completed)
		}
	}

	t.StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return headerStyle
		case row >= 0 && row < len(done) && done[row]:
			return doneStyle
		}
		return cellStyle
	})

	fmt.Fprintln(w, t.Render())
}

func printTask(w io.Writer, task models.Task, notes []models.Note) {
	fmt.Fprintf(w, "%s %s\n", headerStyle.UnsetPadding().Render(task.Name), progressLabel(task.Progress))
	if task.Description != "" {
		fmt.Fprintln(w, task.Description)
	}
	if due := dueLabel(task.DueDate); due != "" {
		fmt.Fprintf(w, "Due %s\n", due)
	}
	if len(notes) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, n := range notes {
		fmt.Fprintf(w, "- %s (%s)\n", n.Content, n.CreatedAt.Format(dateLayout))
	}
}

func progressLabel(p int) string {
	if p == 100 {
		return "done"
	}
	return strconv.Itoa(p) + "%"
}
