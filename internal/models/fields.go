package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrProgressType is returned by PairProgress when progress is not a number
var ErrProgressType = errors.New("progress must be a number")

// Column names shared by the tasks and subtasks collections
const (
	ColID            = "id"
	ColTaskID        = "task_id"
	ColSubtaskID     = "subtask_id"
	ColName          = "name"
	ColDescription   = "description"
	ColPriorityScore = "priority_score"
	ColCompleted     = "completed"
	ColProgress      = "progress"
	ColIcon          = "icon"
	ColDueDate       = "due_date"
	ColCreatedAt     = "created_at"
	ColArchived      = "archived"
	ColContent       = "content"
	ColHours         = "hours"
	ColDate          = "date"
)

// Relation keys are loaded alongside a row but are not columns
const (
	RelSubtasks = "subtasks"
	RelNotes    = "notes"
)

// Fields is a partial set of column values keyed by column name
type Fields map[string]any

// Has reports whether the column is present
func (f Fields) Has(col string) bool {
	_, ok := f[col]
	return ok
}

// Clone returns a shallow copy
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// ID returns the id entry as an int64
func (f Fields) ID() (int64, bool) {
	v, ok := f[ColID]
	if !ok {
		return 0, false
	}
	n, ok := AsInt64(v)
	return n, ok && n > 0
}

// Fields renders every column of the task, relations excluded
func (t Task) Fields() Fields {
	return Fields{
		ColName:          t.Name,
		ColDescription:   t.Description,
		ColPriorityScore: t.PriorityScore,
		ColCompleted:     t.Completed,
		ColProgress:      t.Progress,
		ColIcon:          t.Icon,
		ColDueDate:       timeValue(t.DueDate),
		ColArchived:      t.Archived,
	}
}

// Fields renders every column of the subtask, relations excluded
func (s Subtask) Fields() Fields {
	return Fields{
		ColTaskID:        s.TaskID,
		ColName:          s.Name,
		ColDescription:   s.Description,
		ColPriorityScore: s.PriorityScore,
		ColCompleted:     s.Completed,
		ColProgress:      s.Progress,
		ColDueDate:       timeValue(s.DueDate),
		ColArchived:      s.Archived,
	}
}

// DiffTask returns the columns whose value differs between before and after
func DiffTask(before, after Task) Fields {
	return diff(before.Fields(), after.Fields())
}

// DiffSubtask returns the columns whose value differs between before and after
func DiffSubtask(before, after Subtask) Fields {
	return diff(before.Fields(), after.Fields())
}

func diff(before, after Fields) Fields {
	out := Fields{}
	for col, v := range after {
		if !sameValue(before[col], v) {
			out[col] = v
		}
	}
	return out
}

func sameValue(a, b any) bool {
	at, aok := a.(time.Time)
	bt, bok := b.(time.Time)
	if aok || bok {
		return aok && bok && at.Equal(bt)
	}
	return a == b
}

func timeValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// Clone returns a deep copy of the task including its relations
func (t Task) Clone() Task {
	c := t
	c.DueDate = cloneTime(t.DueDate)
	c.Subtasks = make([]Subtask, len(t.Subtasks))
	for i, s := range t.Subtasks {
		c.Subtasks[i] = s.Clone()
	}
	c.Notes = append([]Note(nil), t.Notes...)
	return c
}

// Clone returns a deep copy of the subtask including its notes
func (s Subtask) Clone() Subtask {
	c := s
	c.DueDate = cloneTime(s.DueDate)
	c.Notes = append([]Note(nil), s.Notes...)
	return c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// ClampProgress keeps a progress value within 0-100
func ClampProgress(p int) int {
	return max(0, min(100, p))
}

// SetProgress sets progress and keeps completed in step with it
func (t *Task) SetProgress(p int) {
	t.Progress = ClampProgress(p)
	t.Completed = t.Progress == 100
}

// SetCompleted sets completed and moves progress to 100 or 0
func (t *Task) SetCompleted(done bool) {
	t.Completed = done
	t.Progress = completedProgress(done)
}

// SetProgress sets progress and keeps completed in step with it
func (s *Subtask) SetProgress(p int) {
	s.Progress = ClampProgress(p)
	s.Completed = s.Progress == 100
}

// SetCompleted sets completed and moves progress to 100 or 0
func (s *Subtask) SetCompleted(done bool) {
	s.Completed = done
	s.Progress = completedProgress(done)
}

func completedProgress(done bool) int {
	if done {
		return 100
	}
	return 0
}

// PairProgress makes completed and progress agree inside a patch.
// When both are present progress decides. A progress that is not a number
// leaves the patch untouched.
func PairProgress(f Fields) error {
	if v, ok := f[ColProgress]; ok {
		p, ok := AsInt64(v)
		if !ok {
			return fmt.Errorf("%w, got %T", ErrProgressType, v)
		}
		n := ClampProgress(int(p))
		f[ColProgress] = n
		f[ColCompleted] = n == 100
		return nil
	}
	if done, ok := f[ColCompleted].(bool); ok {
		f[ColProgress] = completedProgress(done)
	}
	return nil
}

// AsInt64 converts the numeric types produced by drivers and JSON decoding
func AsInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float32:
		return int64(math.Round(float64(n))), true
	case float64:
		return int64(math.Round(n)), true
	}
	return 0, false
}
