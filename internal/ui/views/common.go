package views

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/tgienger/taskhours/internal/models"
	"github.com/tgienger/taskhours/internal/store"
	"github.com/tgienger/taskhours/internal/ui/styles"
)

// Store is the data access the views need. *store.Store satisfies it.
type Store interface {
	FetchTasks(ctx context.Context) ([]models.Task, error)
	FetchArchivedTasks(ctx context.Context) ([]models.Task, error)
	CreateTask(ctx context.Context, in store.NewTask) (models.Task, error)
	UpdateTask(ctx context.Context, fields models.Fields) error
	DeleteTask(ctx context.Context, id int64) error
	ArchiveTask(ctx context.Context, id int64) error
	RestoreTask(ctx context.Context, id int64) error
	ReorderTasks(ctx context.Context, tasks []models.Task, from, to int) error

	CreateSubtask(ctx context.Context, in store.NewSubtask) (models.Subtask, error)
	UpdateSubtask(ctx context.Context, fields models.Fields) error
	DeleteSubtask(ctx context.Context, id int64) error
	ArchiveSubtask(ctx context.Context, id int64) error
	RestoreSubtask(ctx context.Context, id int64) error
	ReorderSubtasks(ctx context.Context, subtasks []models.Subtask, from, to int) error

	CreateNote(ctx context.Context, in store.NewNote) (models.Note, error)
	UpdateNote(ctx context.Context, id int64, content string) error
	DeleteNote(ctx context.Context, id int64) error

	FetchTimeEntries(ctx context.Context) ([]models.TimeEntry, error)
	CreateTimeEntry(ctx context.Context, in store.NewTimeEntry) (models.TimeEntry, error)
	UpdateTimeEntry(ctx context.Context, fields models.Fields) error
	DeleteTimeEntry(ctx context.Context, id int64) error
}

const dateLayout = "2006-01-02"

// loadFailedMsg reports a failed fetch; the view keeps what it had
type loadFailedMsg struct {
	source string // the view that fetched
	err    error
}

// status is the one-line notification under a view
type status struct {
	text string
	err  bool
}

func (s *status) set(format string, args ...any) {
	s.text = fmt.Sprintf(format, args...)
	s.err = false
}

// fail shows err. Validation errors are shown as is, anything else is
// prefixed with what was being done.
func (s *status) fail(action string, err error) {
	var verr *store.ValidationError
	if errors.As(err, &verr) {
		s.text = verr.Error()
	} else {
		s.text = action + ": " + err.Error()
	}
	s.err = true
}

func (s *status) clear() {
	*s = status{}
}

func (s status) render(st *styles.Styles) string {
	if s.text == "" {
		return ""
	}
	if s.err {
		return st.StatusError.Render("✗ " + s.text)
	}
	return st.StatusOK.Render("✓ " + s.text)
}

// row addresses one line of a task list: a task, or one of its subtasks
type row struct {
	task int
	sub  int // -1 for the task itself
}

func (r row) isSubtask() bool {
	return r.sub >= 0
}

// flatten lists the rows shown for tasks, with the subtasks of expanded
// tasks under their parent
func flatten(tasks []models.Task, expanded map[int64]bool) []row {
	var rows []row
	for i, t := range tasks {
		rows = append(rows, row{task: i, sub: -1})
		if expanded == nil || expanded[t.ID] {
			for j := range t.Subtasks {
				rows = append(rows, row{task: i, sub: j})
			}
		}
	}
	return rows
}

// clamp returns val clamped between minVal and maxVal
func clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

// scrollWindow returns the first visible index so that cursor stays on screen
func scrollWindow(cursor, offset, visible int) int {
	if visible < 1 {
		visible = 1
	}
	if cursor < offset {
		return cursor
	}
	if cursor >= offset+visible {
		return cursor - visible + 1
	}
	return offset
}

// helpLine renders "key desc • key desc ..." pairs
func helpLine(s *styles.Styles, pairs ...string) string {
	var parts []string
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, s.HelpKey.Render(pairs[i])+" "+s.HelpDesc.Render(pairs[i+1]))
	}
	return s.Help.Render(strings.Join(parts, " • "))
}

func renderConfirm(s *styles.Styles, width, height int, what, name string) string {
	box := s.Panel.Render(lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render("Delete "+what+"?"),
		"",
		name,
		"",
		s.TitleMuted.Render("y: delete • n/esc: cancel"),
	))
	return lipgloss.Place(styles.ContentWidth(width), height, lipgloss.Center, lipgloss.Center, box)
}

func dueText(s *styles.Styles, due *time.Time, today time.Time) string {
	if due == nil {
		return ""
	}
	label := "due " + due.Format("2 Jan")
	if due.Before(store.Day(today)) {
		return s.Overdue.Render(label)
	}
	return s.Due.Render(label)
}

// parseDate reads a YYYY-MM-DD input. An empty input is nil.
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("dates are YYYY-MM-DD, got %q", s)
	}
	return &t, nil
}
