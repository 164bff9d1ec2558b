// Package store is the data access layer. It turns task, subtask, note and
// time entry operations into calls against a backend.Backend and assembles
// the nested views (tasks with their subtasks and notes) the UI renders.
//
// Mutations are issued one at a time and nothing is cached: after a
// successful mutation callers re-fetch the lists they show.
package store

import (
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tgienger/taskhours/internal/backend"
	"github.com/tgienger/taskhours/internal/models"
)

// Store is the data access layer over a backend
type Store struct {
	backend backend.Backend
	log     logrus.FieldLogger

	mu        sync.Mutex
	listeners []func()
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger mutations and failures are reported to
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Store) { s.log = l }
}

// New creates a store over b
func New(b backend.Backend, opts ...Option) *Store {
	s := &Store{backend: b, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers fn to run after every successful mutation
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) changed(op string, fields logrus.Fields) {
	s.log.WithFields(fields).Info(op)

	s.mu.Lock()
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

func (s *Store) failed(op string, err error, fields logrus.Fields) error {
	err = backendErr(op, err)
	s.log.WithFields(fields).WithError(err).Warn(op + " failed")
	return err
}

// Close closes the backend
func (s *Store) Close() error {
	return s.backend.Close()
}

// nextScore returns one more than the highest score among the rows, so a
// new item sorts first under descending order
func nextScore(rows []backend.Row) int {
	top := 0
	for _, r := range rows {
		top = max(top, r.Int(models.ColPriorityScore))
	}
	return top + 1
}

func taskFromRow(r backend.Row) models.Task {
	icon := r.String(models.ColIcon)
	if icon == "" {
		icon = models.DefaultIcon
	}
	return models.Task{
		ID:            r.Int64(models.ColID),
		Name:          r.String(models.ColName),
		Description:   r.String(models.ColDescription),
		PriorityScore: r.Int(models.ColPriorityScore),
		Completed:     r.Bool(models.ColCompleted),
		Progress:      r.Int(models.ColProgress),
		Icon:          icon,
		DueDate:       r.NullTime(models.ColDueDate),
		CreatedAt:     r.Time(models.ColCreatedAt),
		Archived:      r.Bool(models.ColArchived),
		Subtasks:      []models.Subtask{},
		Notes:         []models.Note{},
	}
}

func subtaskFromRow(r backend.Row) models.Subtask {
	return models.Subtask{
		ID:            r.Int64(models.ColID),
		TaskID:        r.Int64(models.ColTaskID),
		Name:          r.String(models.ColName),
		Description:   r.String(models.ColDescription),
		PriorityScore: r.Int(models.ColPriorityScore),
		Completed:     r.Bool(models.ColCompleted),
		Progress:      r.Int(models.ColProgress),
		DueDate:       r.NullTime(models.ColDueDate),
		Archived:      r.Bool(models.ColArchived),
		CreatedAt:     r.Time(models.ColCreatedAt),
		Notes:         []models.Note{},
	}
}

func noteFromRow(r backend.Row) models.Note {
	taskID, _ := r.NullInt64(models.ColTaskID)
	subtaskID, _ := r.NullInt64(models.ColSubtaskID)
	return models.Note{
		ID:        r.Int64(models.ColID),
		Content:   r.String(models.ColContent),
		CreatedAt: r.Time(models.ColCreatedAt),
		TaskID:    taskID,
		SubtaskID: subtaskID,
	}
}

func timeEntryFromRow(r backend.Row) models.TimeEntry {
	taskID, _ := r.NullInt64(models.ColTaskID)
	subtaskID, _ := r.NullInt64(models.ColSubtaskID)
	return models.TimeEntry{
		ID:          r.Int64(models.ColID),
		TaskID:      taskID,
		SubtaskID:   subtaskID,
		Hours:       r.Float64(models.ColHours),
		Date:        r.Time(models.ColDate),
		Description: r.String(models.ColDescription),
		CreatedAt:   r.Time(models.ColCreatedAt),
	}
}

// byPriority orders a list the way it is displayed
func byPriority(q backend.Query) backend.Query {
	return q.OrderBy(models.ColPriorityScore, true).OrderBy(models.ColCreatedAt, true)
}

func oldestFirst(q backend.Query) backend.Query {
	return q.OrderBy(models.ColCreatedAt, false).OrderBy(models.ColID, false)
}
