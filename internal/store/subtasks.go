package store

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tgienger/taskhours/internal/backend"
	"github.com/tgienger/taskhours/internal/models"
	"github.com/tgienger/taskhours/internal/priority"
)

// NewSubtask is the input for CreateSubtask
type NewSubtask struct {
	TaskID        int64
	Name          string
	Description   string
	PriorityScore *int
	DueDate       *time.Time
}

// CreateSubtask adds a subtask to a task, first among its active siblings
// unless a score is given
func (s *Store) CreateSubtask(ctx context.Context, in NewSubtask) (models.Subtask, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Subtask{}, invalid(models.ColName, "a subtask needs a name")
	}
	if in.TaskID <= 0 {
		return models.Subtask{}, invalid(models.ColTaskID, "a subtask needs a task")
	}

	var score int
	if in.PriorityScore != nil {
		score = *in.PriorityScore
	} else {
		rows, err := s.backend.List(ctx, backend.Subtasks, backend.Where(
			backend.Eq(models.ColTaskID, in.TaskID),
			backend.Eq(models.ColArchived, false),
		))
		if err != nil {
			return models.Subtask{}, s.failed("create subtask", err, logrus.Fields{"task": in.TaskID})
		}
		score = nextScore(rows)
	}

	values := backend.Row{
		models.ColTaskID:        in.TaskID,
		models.ColName:          name,
		models.ColDescription:   in.Description,
		models.ColPriorityScore: score,
		models.ColProgress:      0,
		models.ColCompleted:     false,
	}
	if in.DueDate != nil {
		values[models.ColDueDate] = Day(*in.DueDate)
	}

	row, err := s.backend.Insert(ctx, backend.Subtasks, values)
	if err != nil {
		return models.Subtask{}, s.failed("create subtask", err, logrus.Fields{"task": in.TaskID})
	}
	st := subtaskFromRow(row)
	s.changed("subtask created", logrus.Fields{"task": st.TaskID, "subtask": st.ID})
	return st, nil
}

// UpdateSubtask applies a partial patch to the subtask identified by
// fields["id"]. The notes relation is dropped before sending.
func (s *Store) UpdateSubtask(ctx context.Context, fields models.Fields) error {
	id, ok := fields.ID()
	if !ok {
		return invalid(models.ColID, "an update needs the subtask id")
	}
	values, err := sanitize(backend.Subtasks, fields)
	if err != nil {
		return err
	}
	if v, ok := values[models.ColName]; ok && strings.TrimSpace(v.(string)) == "" {
		return invalid(models.ColName, "a subtask needs a name")
	}
	if v, ok := values[models.ColTaskID]; ok && v == nil {
		return invalid(models.ColTaskID, "a subtask needs a task")
	}
	if err := models.PairProgress(models.Fields(values)); err != nil {
		return invalid(models.ColProgress, "%v", err)
	}
	if len(values) == 0 {
		return nil
	}

	if err := s.backend.Update(ctx, backend.Subtasks, id, values); err != nil {
		return s.failed("update subtask", err, logrus.Fields{"subtask": id})
	}
	s.changed("subtask updated", logrus.Fields{"subtask": id, "columns": backend.SortedKeys(values)})
	return nil
}

// DeleteSubtask removes one subtask
func (s *Store) DeleteSubtask(ctx context.Context, id int64) error {
	if err := s.backend.Delete(ctx, backend.Subtasks, backend.Eq(models.ColID, id)); err != nil {
		return s.failed("delete subtask", err, logrus.Fields{"subtask": id})
	}
	s.changed("subtask deleted", logrus.Fields{"subtask": id})
	return nil
}

func (s *Store) ArchiveSubtask(ctx context.Context, id int64) error {
	return s.UpdateSubtask(ctx, models.Fields{models.ColID: id, models.ColArchived: true})
}

func (s *Store) RestoreSubtask(ctx context.Context, id int64) error {
	return s.UpdateSubtask(ctx, models.Fields{models.ColID: id, models.ColArchived: false})
}

func (s *Store) SetSubtaskCompleted(ctx context.Context, id int64, done bool) error {
	return s.UpdateSubtask(ctx, models.Fields{models.ColID: id, models.ColCompleted: done})
}

func (s *Store) SetSubtaskProgress(ctx context.Context, id int64, progress int) error {
	return s.UpdateSubtask(ctx, models.Fields{models.ColID: id, models.ColProgress: progress})
}

// ReorderSubtasks is ReorderTasks for the subtasks of one task
func (s *Store) ReorderSubtasks(ctx context.Context, subtasks []models.Subtask, from, to int) error {
	items := make([]priority.Item, len(subtasks))
	for i, st := range subtasks {
		items[i] = priority.Item{ID: st.ID, Score: st.PriorityScore}
	}
	return s.reorder(ctx, backend.Subtasks, items, from, to)
}
