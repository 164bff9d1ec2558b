package models

import "time"

// Icons a task can be displayed with
const (
	IconZap      = "zap"
	IconPenTool  = "penTool"
	IconSettings = "settings"
)

// DefaultIcon is used when a task is created without one
const DefaultIcon = IconZap

// Icons lists the valid task icons in display order
var Icons = []string{IconPenTool, IconSettings, IconZap}

// Task represents a top-level unit of work
type Task struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	PriorityScore int        `json:"priority_score"`
	Completed     bool       `json:"completed"`
	Progress      int        `json:"progress"`
	Icon          string     `json:"icon"`
	DueDate       *time.Time `json:"due_date"`
	CreatedAt     time.Time  `json:"created_at"`
	Archived      bool       `json:"archived"`
	Subtasks      []Subtask  `json:"subtasks"` // populated when loading tasks
	Notes         []Note     `json:"notes"`    // populated when loading tasks
}

// Subtask represents a child unit of a task
type Subtask struct {
	ID            int64      `json:"id"`
	TaskID        int64      `json:"task_id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	PriorityScore int        `json:"priority_score"`
	Completed     bool       `json:"completed"`
	Progress      int        `json:"progress"`
	DueDate       *time.Time `json:"due_date"`
	Archived      bool       `json:"archived"`
	CreatedAt     time.Time  `json:"created_at"`
	Notes         []Note     `json:"notes"` // populated when loading tasks
}

// Note is a free-text annotation attached to either a task or a subtask
type Note struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	TaskID    *int64    `json:"task_id"`    // nil when attached to a subtask
	SubtaskID *int64    `json:"subtask_id"` // nil when attached to a task
}

// TimeEntry is a number of hours logged against a task or subtask on a date
type TimeEntry struct {
	ID          int64     `json:"id"`
	TaskID      *int64    `json:"task_id"`
	SubtaskID   *int64    `json:"subtask_id"`
	Hours       float64   `json:"hours"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`

	// Display-only names resolved by the joined read
	TaskName    string `json:"task_name,omitempty"`
	SubtaskName string `json:"subtask_name,omitempty"`
}

// Label returns the name the entry is logged against
func (e TimeEntry) Label() string {
	switch {
	case e.SubtaskName != "" && e.TaskName != "":
		return e.TaskName + " / " + e.SubtaskName
	case e.TaskName != "":
		return e.TaskName
	case e.SubtaskName != "":
		return e.SubtaskName
	}
	return "Unknown"
}

// NoteOwner identifies the task or subtask a note hangs off
type NoteOwner struct {
	TaskID    *int64
	SubtaskID *int64
}

// TaskOwner returns an owner pointing at a task
func TaskOwner(id int64) NoteOwner {
	return NoteOwner{TaskID: &id}
}

// SubtaskOwner returns an owner pointing at a subtask
func SubtaskOwner(id int64) NoteOwner {
	return NoteOwner{SubtaskID: &id}
}

// Valid reports whether exactly one of the two owners is set
func (o NoteOwner) Valid() bool {
	return (o.TaskID == nil) != (o.SubtaskID == nil)
}

// Int64 returns a pointer to v, handy for nullable foreign keys
func Int64(v int64) *int64 {
	return &v
}
