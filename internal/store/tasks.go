package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tgienger/taskhours/internal/backend"
	"github.com/tgienger/taskhours/internal/models"
	"github.com/tgienger/taskhours/internal/priority"
)

// NewTask is the input for CreateTask. Only Name is required.
type NewTask struct {
	Name          string
	Description   string
	Icon          string
	PriorityScore *int // nil appends to the current list
	Progress      int
	Completed     bool
	DueDate       *time.Time
}

// FetchTasks returns the active tasks, highest priority first, each with
// its active subtasks and the notes of both levels attached
func (s *Store) FetchTasks(ctx context.Context) ([]models.Task, error) {
	taskRows, err := s.backend.List(ctx, backend.Tasks,
		byPriority(backend.Where(backend.Eq(models.ColArchived, false))))
	if err != nil {
		return nil, s.fetchFailed("tasks", err)
	}
	subRows, err := s.backend.List(ctx, backend.Subtasks,
		byPriority(backend.Where(backend.Eq(models.ColArchived, false))))
	if err != nil {
		return nil, s.fetchFailed("subtasks", err)
	}
	notes, err := s.allNotes(ctx)
	if err != nil {
		return nil, err
	}

	tasks := make([]models.Task, 0, len(taskRows))
	for _, r := range taskRows {
		tasks = append(tasks, taskFromRow(r))
	}
	return assemble(tasks, subRows, notes, func(models.Task, models.Subtask) bool { return true }), nil
}

// FetchArchivedTasks returns archived tasks with all their subtasks, plus
// active tasks that have archived subtasks with only those subtasks attached
func (s *Store) FetchArchivedTasks(ctx context.Context) ([]models.Task, error) {
	taskRows, err := s.backend.List(ctx, backend.Tasks, byPriority(backend.Query{}))
	if err != nil {
		return nil, s.fetchFailed("archived tasks", err)
	}
	subRows, err := s.backend.List(ctx, backend.Subtasks, byPriority(backend.Query{}))
	if err != nil {
		return nil, s.fetchFailed("archived subtasks", err)
	}
	notes, err := s.allNotes(ctx)
	if err != nil {
		return nil, err
	}

	hasArchived := map[int64]bool{}
	for _, r := range subRows {
		if r.Bool(models.ColArchived) {
			hasArchived[r.Int64(models.ColTaskID)] = true
		}
	}

	var tasks []models.Task
	for _, r := range taskRows {
		t := taskFromRow(r)
		if t.Archived || hasArchived[t.ID] {
			tasks = append(tasks, t)
		}
	}
	return assemble(tasks, subRows, notes, func(t models.Task, st models.Subtask) bool {
		return t.Archived || st.Archived
	}), nil
}

// assemble attaches subtasks and notes to tasks. keep decides which
// subtasks of a task are attached.
func assemble(tasks []models.Task, subRows []backend.Row, notes []models.Note, keep func(models.Task, models.Subtask) bool) []models.Task {
	taskNotes := map[int64][]models.Note{}
	subNotes := map[int64][]models.Note{}
	for _, n := range notes {
		switch {
		case n.TaskID != nil:
			taskNotes[*n.TaskID] = append(taskNotes[*n.TaskID], n)
		case n.SubtaskID != nil:
			subNotes[*n.SubtaskID] = append(subNotes[*n.SubtaskID], n)
		}
	}

	subs := map[int64][]models.Subtask{}
	for _, r := range subRows {
		st := subtaskFromRow(r)
		if ns, ok := subNotes[st.ID]; ok {
			st.Notes = ns
		}
		subs[st.TaskID] = append(subs[st.TaskID], st)
	}

	for i := range tasks {
		t := &tasks[i]
		if ns, ok := taskNotes[t.ID]; ok {
			t.Notes = ns
		}
		for _, st := range subs[t.ID] {
			if keep(*t, st) {
				t.Subtasks = append(t.Subtasks, st)
			}
		}
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks
}

func (s *Store) allNotes(ctx context.Context) ([]models.Note, error) {
	rows, err := s.backend.List(ctx, backend.Notes, oldestFirst(backend.Query{}))
	if err != nil {
		return nil, s.fetchFailed("notes", err)
	}
	notes := make([]models.Note, len(rows))
	for i, r := range rows {
		notes[i] = noteFromRow(r)
	}
	return notes, nil
}

func (s *Store) fetchFailed(section string, err error) error {
	err = fetchErr(section, err)
	s.log.WithField("section", section).WithError(err).Warn("fetch failed")
	return err
}

// GetTask returns a single task without relations
func (s *Store) GetTask(ctx context.Context, id int64) (models.Task, error) {
	row, err := s.backend.Get(ctx, backend.Tasks, id)
	if err != nil {
		return models.Task{}, backendErr("get task", err)
	}
	return taskFromRow(row), nil
}

// CreateTask inserts a task and returns it with empty subtasks and notes
func (s *Store) CreateTask(ctx context.Context, in NewTask) (models.Task, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Task{}, invalid(models.ColName, "a task needs a name")
	}
	icon := in.Icon
	if icon == "" {
		icon = models.DefaultIcon
	}
	if !validIcon(icon) {
		return models.Task{}, invalid(models.ColIcon, "unknown icon %q", icon)
	}

	var score int
	if in.PriorityScore != nil {
		score = *in.PriorityScore
	} else {
		rows, err := s.backend.List(ctx, backend.Tasks, backend.Where(backend.Eq(models.ColArchived, false)))
		if err != nil {
			return models.Task{}, s.failed("create task", err, nil)
		}
		score = nextScore(rows)
	}

	values := models.Fields{
		models.ColName:          name,
		models.ColDescription:   in.Description,
		models.ColIcon:          icon,
		models.ColPriorityScore: score,
		models.ColProgress:      in.Progress,
		models.ColCompleted:     in.Completed,
	}
	if in.DueDate != nil {
		values[models.ColDueDate] = Day(*in.DueDate)
	}
	if in.Progress == 0 && in.Completed {
		delete(values, models.ColProgress)
	}
	if err := models.PairProgress(values); err != nil {
		return models.Task{}, invalid(models.ColProgress, "%v", err)
	}

	row, err := s.backend.Insert(ctx, backend.Tasks, backend.Row(values))
	if err != nil {
		return models.Task{}, s.failed("create task", err, logrus.Fields{"name": name})
	}

	t := taskFromRow(row)
	s.changed("task created", logrus.Fields{"task": t.ID, "score": t.PriorityScore})
	return t, nil
}

// UpdateTask applies a partial patch to the task identified by fields["id"].
// Relation keys (subtasks, notes) are dropped before sending.
func (s *Store) UpdateTask(ctx context.Context, fields models.Fields) error {
	id, ok := fields.ID()
	if !ok {
		return invalid(models.ColID, "an update needs the task id")
	}
	values, err := s.taskPatch(fields)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	if err := s.backend.Update(ctx, backend.Tasks, id, values); err != nil {
		return s.failed("update task", err, logrus.Fields{"task": id})
	}
	s.changed("task updated", logrus.Fields{"task": id, "columns": backend.SortedKeys(values)})
	return nil
}

func (s *Store) taskPatch(fields models.Fields) (backend.Row, error) {
	values, err := sanitize(backend.Tasks, fields)
	if err != nil {
		return nil, err
	}
	if v, ok := values[models.ColName]; ok && strings.TrimSpace(v.(string)) == "" {
		return nil, invalid(models.ColName, "a task needs a name")
	}
	if v, ok := values[models.ColIcon]; ok && !validIcon(v.(string)) {
		return nil, invalid(models.ColIcon, "unknown icon %q", v)
	}
	if err := models.PairProgress(models.Fields(values)); err != nil {
		return nil, invalid(models.ColProgress, "%v", err)
	}
	return values, nil
}

// DeleteTask removes a task's subtasks and then the task itself. When the
// subtasks cannot be removed the task is left alone.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	if err := s.backend.Delete(ctx, backend.Subtasks, backend.Eq(models.ColTaskID, id)); err != nil {
		return s.failed("delete subtasks of task", err, logrus.Fields{"task": id})
	}
	if err := s.backend.Delete(ctx, backend.Tasks, backend.Eq(models.ColID, id)); err != nil {
		return s.failed("delete task", err, logrus.Fields{"task": id})
	}
	s.changed("task deleted", logrus.Fields{"task": id})
	return nil
}

// ArchiveTask moves a task out of the active list
func (s *Store) ArchiveTask(ctx context.Context, id int64) error {
	return s.UpdateTask(ctx, models.Fields{models.ColID: id, models.ColArchived: true})
}

// RestoreTask moves an archived task back to the active list
func (s *Store) RestoreTask(ctx context.Context, id int64) error {
	return s.UpdateTask(ctx, models.Fields{models.ColID: id, models.ColArchived: false})
}

// SetTaskCompleted toggles completion; progress follows in the same call
func (s *Store) SetTaskCompleted(ctx context.Context, id int64, done bool) error {
	return s.UpdateTask(ctx, models.Fields{models.ColID: id, models.ColCompleted: done})
}

// SetTaskProgress sets progress; completion follows in the same call
func (s *Store) SetTaskProgress(ctx context.Context, id int64, progress int) error {
	return s.UpdateTask(ctx, models.Fields{models.ColID: id, models.ColProgress: progress})
}

// ReorderTasks moves the task at from to position to within tasks (as
// displayed) and stores the new scores. Only scores that change are written,
// one call at a time; a failure leaves the earlier writes in place.
func (s *Store) ReorderTasks(ctx context.Context, tasks []models.Task, from, to int) error {
	items := make([]priority.Item, len(tasks))
	for i, t := range tasks {
		items[i] = priority.Item{ID: t.ID, Score: t.PriorityScore}
	}
	return s.reorder(ctx, backend.Tasks, items, from, to)
}

func (s *Store) reorder(ctx context.Context, table string, items []priority.Item, from, to int) error {
	assignments, err := priority.Reorder(items, from, to)
	if err != nil {
		return invalid("position", "%v", err)
	}
	writes := priority.Changed(items, assignments)

	for i, a := range writes {
		err := s.backend.Update(ctx, table, a.ID, backend.Row{models.ColPriorityScore: a.Score})
		if err != nil {
			op := fmt.Sprintf("reorder %s (%d of %d written)", table, i, len(writes))
			return s.failed(op, err, logrus.Fields{"id": a.ID})
		}
	}
	if len(writes) > 0 {
		s.changed(table+" reordered", logrus.Fields{"from": from, "to": to, "writes": len(writes)})
	}
	return nil
}
