// Package editor holds the per-card edit buffer. A card shows its committed
// task while Viewing; Begin copies it into a buffer that every change goes
// to, and Save commits only what differs.
package editor

import (
	"context"
	"errors"
	"time"

	"github.com/tgienger/taskhours/internal/models"
)

// State of a card
type State int

const (
	Viewing State = iota
	Editing
)

func (s State) String() string {
	if s == Editing {
		return "editing"
	}
	return "viewing"
}

var (
	// ErrNotEditing is returned by changes made outside an edit session
	ErrNotEditing = errors.New("editor: card is not being edited")
	// ErrNoSubtask is returned when a change names a subtask the buffer does not hold
	ErrNoSubtask = errors.New("editor: no such subtask")
)

// Committer persists the changes of a save. *store.Store satisfies it.
type Committer interface {
	UpdateTask(ctx context.Context, fields models.Fields) error
	UpdateSubtask(ctx context.Context, fields models.Fields) error
	DeleteSubtask(ctx context.Context, id int64) error
}

// Card is the edit buffer of one task and its subtasks
type Card struct {
	state     State
	committed models.Task
	buffer    models.Task
	deletions []int64
}

// NewCard returns a viewing card over a committed task
func NewCard(t models.Task) *Card {
	return &Card{committed: t.Clone()}
}

func (c *Card) State() State {
	return c.state
}

// Task returns what the card displays: the buffer while editing, the
// committed task otherwise
func (c *Card) Task() models.Task {
	if c.state == Editing {
		return c.buffer.Clone()
	}
	return c.committed.Clone()
}

// Committed returns the last committed task
func (c *Card) Committed() models.Task {
	return c.committed.Clone()
}

// Refresh replaces the committed task after a re-fetch. An open buffer is
// kept as is.
func (c *Card) Refresh(t models.Task) {
	c.committed = t.Clone()
}

// Begin starts an edit session by snapshotting the committed task.
// Calling it while already editing keeps the current buffer.
func (c *Card) Begin() {
	if c.state == Editing {
		return
	}
	c.buffer = c.committed.Clone()
	c.deletions = nil
	c.state = Editing
}

// Cancel discards the buffer and any queued deletions
func (c *Card) Cancel() {
	c.buffer = models.Task{}
	c.deletions = nil
	c.state = Viewing
}

// Dirty reports whether saving would issue any call
func (c *Card) Dirty() bool {
	if c.state != Editing {
		return false
	}
	if len(c.deletions) > 0 || len(models.DiffTask(c.committed, c.buffer)) > 0 {
		return true
	}
	for _, st := range c.buffer.Subtasks {
		if len(c.subtaskDiff(st)) > 0 {
			return true
		}
	}
	return false
}

// Queued returns the subtask ids that will be deleted on save
func (c *Card) Queued() []int64 {
	return append([]int64(nil), c.deletions...)
}

// Edit applies fn to the buffered task. Subtasks are changed through
// EditSubtask.
func (c *Card) Edit(fn func(t *models.Task)) error {
	if c.state != Editing {
		return ErrNotEditing
	}
	subtasks := c.buffer.Subtasks
	fn(&c.buffer)
	c.buffer.Subtasks = subtasks
	return nil
}

// EditSubtask applies fn to one buffered subtask
func (c *Card) EditSubtask(id int64, fn func(st *models.Subtask)) error {
	if c.state != Editing {
		return ErrNotEditing
	}
	for i := range c.buffer.Subtasks {
		if c.buffer.Subtasks[i].ID == id {
			fn(&c.buffer.Subtasks[i])
			c.buffer.Subtasks[i].ID = id
			return nil
		}
	}
	return ErrNoSubtask
}

func (c *Card) SetName(name string) error {
	return c.Edit(func(t *models.Task) { t.Name = name })
}

func (c *Card) SetDescription(desc string) error {
	return c.Edit(func(t *models.Task) { t.Description = desc })
}

func (c *Card) SetIcon(icon string) error {
	return c.Edit(func(t *models.Task) { t.Icon = icon })
}

func (c *Card) SetPriority(score int) error {
	return c.Edit(func(t *models.Task) { t.PriorityScore = score })
}

// SetDueDate sets or, with nil, clears the due date
func (c *Card) SetDueDate(due *time.Time) error {
	return c.Edit(func(t *models.Task) { t.DueDate = due })
}

// SetProgress moves the progress slider; completed follows
func (c *Card) SetProgress(p int) error {
	return c.Edit(func(t *models.Task) { t.SetProgress(p) })
}

// SetCompleted ticks the checkbox; progress follows
func (c *Card) SetCompleted(done bool) error {
	return c.Edit(func(t *models.Task) { t.SetCompleted(done) })
}

func (c *Card) SetSubtaskProgress(id int64, p int) error {
	return c.EditSubtask(id, func(st *models.Subtask) { st.SetProgress(p) })
}

func (c *Card) SetSubtaskCompleted(id int64, done bool) error {
	return c.EditSubtask(id, func(st *models.Subtask) { st.SetCompleted(done) })
}

// QueueSubtaskDelete drops a subtask from the buffer. It is deleted on
// Save and comes back on Cancel.
func (c *Card) QueueSubtaskDelete(id int64) error {
	if c.state != Editing {
		return ErrNotEditing
	}
	for i, st := range c.buffer.Subtasks {
		if st.ID == id {
			c.buffer.Subtasks = append(c.buffer.Subtasks[:i:i], c.buffer.Subtasks[i+1:]...)
			c.deletions = append(c.deletions, id)
			return nil
		}
	}
	return ErrNoSubtask
}

// Save commits the edit session: queued subtask deletions first, then the
// task's changed fields, then every subtask whose buffered value differs.
// Calls are made one at a time. On failure the card stays in Editing with
// the committed state advanced past whatever succeeded, so saving again
// only retries the rest.
func (c *Card) Save(ctx context.Context, to Committer) error {
	if c.state != Editing {
		return ErrNotEditing
	}

	for len(c.deletions) > 0 {
		id := c.deletions[0]
		if err := to.DeleteSubtask(ctx, id); err != nil {
			return err
		}
		c.deletions = c.deletions[1:]
		c.dropCommittedSubtask(id)
	}

	if diff := models.DiffTask(c.committed, c.buffer); len(diff) > 0 {
		diff[models.ColID] = c.committed.ID
		if err := to.UpdateTask(ctx, diff); err != nil {
			return err
		}
		subtasks := c.committed.Subtasks
		c.committed = c.buffer.Clone()
		c.committed.Subtasks = subtasks
	}

	for _, st := range c.buffer.Subtasks {
		diff := c.subtaskDiff(st)
		if len(diff) == 0 {
			continue
		}
		diff[models.ColID] = st.ID
		if err := to.UpdateSubtask(ctx, diff); err != nil {
			return err
		}
		c.replaceCommittedSubtask(st)
	}

	c.committed = c.buffer.Clone()
	c.buffer = models.Task{}
	c.state = Viewing
	return nil
}

func (c *Card) subtaskDiff(st models.Subtask) models.Fields {
	for _, prev := range c.committed.Subtasks {
		if prev.ID == st.ID {
			return models.DiffSubtask(prev, st)
		}
	}
	return nil
}

func (c *Card) dropCommittedSubtask(id int64) {
	out := c.committed.Subtasks[:0:0]
	for _, st := range c.committed.Subtasks {
		if st.ID != id {
			out = append(out, st)
		}
	}
	c.committed.Subtasks = out
}

func (c *Card) replaceCommittedSubtask(st models.Subtask) {
	for i := range c.committed.Subtasks {
		if c.committed.Subtasks[i].ID == st.ID {
			c.committed.Subtasks[i] = st.Clone()
		}
	}
}
