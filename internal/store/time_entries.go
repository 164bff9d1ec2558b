package store

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tgienger/taskhours/internal/backend"
	"github.com/tgienger/taskhours/internal/models"
)

// NewTimeEntry is the input for CreateTimeEntry
type NewTimeEntry struct {
	TaskID      *int64
	SubtaskID   *int64
	Hours       float64
	Date        time.Time
	Description string
}

// FetchTimeEntries returns every time entry, most recent date first, with
// the names of the task and subtask it was logged against. Entries whose
// task or subtask is gone keep empty names.
func (s *Store) FetchTimeEntries(ctx context.Context) ([]models.TimeEntry, error) {
	rows, err := s.backend.List(ctx, backend.TimeEntries,
		backend.Query{}.OrderBy(models.ColDate, true).OrderBy(models.ColCreatedAt, true))
	if err != nil {
		return nil, s.fetchFailed("time entries", err)
	}
	taskNames, err := s.names(ctx, backend.Tasks)
	if err != nil {
		return nil, err
	}
	subtaskNames, err := s.names(ctx, backend.Subtasks)
	if err != nil {
		return nil, err
	}

	entries := make([]models.TimeEntry, len(rows))
	for i, r := range rows {
		e := timeEntryFromRow(r)
		if e.TaskID != nil {
			e.TaskName = taskNames[*e.TaskID]
		}
		if e.SubtaskID != nil {
			e.SubtaskName = subtaskNames[*e.SubtaskID]
		}
		entries[i] = e
	}
	return entries, nil
}

func (s *Store) names(ctx context.Context, table string) (map[int64]string, error) {
	rows, err := s.backend.List(ctx, table, backend.Query{})
	if err != nil {
		return nil, s.fetchFailed(table, err)
	}
	names := make(map[int64]string, len(rows))
	for _, r := range rows {
		names[r.Int64(models.ColID)] = r.String(models.ColName)
	}
	return names, nil
}

// CreateTimeEntry logs hours on a date against a task, a subtask or both
func (s *Store) CreateTimeEntry(ctx context.Context, in NewTimeEntry) (models.TimeEntry, error) {
	if in.Hours <= 0 {
		return models.TimeEntry{}, invalid(models.ColHours, "hours must be positive, got %v", in.Hours)
	}
	if in.Date.IsZero() {
		return models.TimeEntry{}, invalid(models.ColDate, "a time entry needs a date")
	}
	if in.TaskID == nil && in.SubtaskID == nil {
		return models.TimeEntry{}, invalid(models.ColTaskID, "a time entry needs a task or subtask")
	}

	values := backend.Row{
		models.ColHours:       in.Hours,
		models.ColDate:        Day(in.Date),
		models.ColDescription: in.Description,
		models.ColTaskID:      nil,
		models.ColSubtaskID:   nil,
	}
	if in.TaskID != nil {
		values[models.ColTaskID] = *in.TaskID
	}
	if in.SubtaskID != nil {
		values[models.ColSubtaskID] = *in.SubtaskID
	}

	row, err := s.backend.Insert(ctx, backend.TimeEntries, values)
	if err != nil {
		return models.TimeEntry{}, s.failed("create time entry", err, logrus.Fields{"hours": in.Hours})
	}
	e := timeEntryFromRow(row)
	s.changed("time entry created", logrus.Fields{"entry": e.ID, "hours": e.Hours})
	return e, nil
}

// UpdateTimeEntry applies a partial patch to the entry identified by fields["id"]
func (s *Store) UpdateTimeEntry(ctx context.Context, fields models.Fields) error {
	id, ok := fields.ID()
	if !ok {
		return invalid(models.ColID, "an update needs the time entry id")
	}
	values, err := sanitize(backend.TimeEntries, fields)
	if err != nil {
		return err
	}
	if v, ok := values[models.ColHours]; ok && v.(float64) <= 0 {
		return invalid(models.ColHours, "hours must be positive, got %v", v)
	}
	if v, ok := values[models.ColDate]; ok {
		d, isTime := v.(time.Time)
		if !isTime {
			return invalid(models.ColDate, "a time entry needs a date")
		}
		values[models.ColDate] = Day(d)
	}
	if len(values) == 0 {
		return nil
	}

	if err := s.backend.Update(ctx, backend.TimeEntries, id, values); err != nil {
		return s.failed("update time entry", err, logrus.Fields{"entry": id})
	}
	s.changed("time entry updated", logrus.Fields{"entry": id, "columns": backend.SortedKeys(values)})
	return nil
}

func (s *Store) DeleteTimeEntry(ctx context.Context, id int64) error {
	if err := s.backend.Delete(ctx, backend.TimeEntries, backend.Eq(models.ColID, id)); err != nil {
		return s.failed("delete time entry", err, logrus.Fields{"entry": id})
	}
	s.changed("time entry deleted", logrus.Fields{"entry": id})
	return nil
}
