package views

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tgienger/taskhours/internal/models"
	"github.com/tgienger/taskhours/internal/priority"
	"github.com/tgienger/taskhours/internal/store"
)

// fakeStore serves fixed data and records every mutation
type fakeStore struct {
	Store // unused methods panic

	tasks    []models.Task
	archived []models.Task
	entries  []models.TimeEntry
	calls    []string
	fail     error
	failOn   string // fails calls with this prefix only

	created     store.NewTask
	createdSub  store.NewSubtask
	createdNote store.NewNote
	createdTime store.NewTimeEntry
	updates     []models.Fields
}

func (f *fakeStore) record(format string, args ...any) error {
	call := fmt.Sprintf(format, args...)
	f.calls = append(f.calls, call)
	if f.failOn != "" && strings.HasPrefix(call, f.failOn) {
		return errors.New("503")
	}
	return f.fail
}

func (f *fakeStore) FetchTasks(ctx context.Context) ([]models.Task, error) {
	out := make([]models.Task, len(f.tasks))
	for i, t := range f.tasks {
		out[i] = t.Clone()
	}
	return out, nil
}

func (f *fakeStore) FetchArchivedTasks(ctx context.Context) ([]models.Task, error) {
	return f.archived, nil
}

func (f *fakeStore) FetchTimeEntries(ctx context.Context) ([]models.TimeEntry, error) {
	return f.entries, nil
}

func (f *fakeStore) CreateTask(ctx context.Context, in store.NewTask) (models.Task, error) {
	f.created = in
	if err := f.record("CreateTask %s", in.Name); err != nil {
		return models.Task{}, err
	}
	t := models.Task{ID: 99, Name: in.Name, PriorityScore: len(f.tasks) + 1}
	f.tasks = append([]models.Task{t}, f.tasks...)
	return t, nil
}

func (f *fakeStore) CreateSubtask(ctx context.Context, in store.NewSubtask) (models.Subtask, error) {
	f.createdSub = in
	return models.Subtask{ID: 77, TaskID: in.TaskID, Name: in.Name}, f.record("CreateSubtask %d %s", in.TaskID, in.Name)
}

// UpdateTask applies name and completion so the next fetch sees them
func (f *fakeStore) UpdateTask(ctx context.Context, fields models.Fields) error {
	f.updates = append(f.updates, fields)
	id, _ := fields.ID()
	if err := f.record("UpdateTask %d", id); err != nil {
		return err
	}
	for i := range f.tasks {
		if f.tasks[i].ID != id {
			continue
		}
		if name, ok := fields[models.ColName].(string); ok {
			f.tasks[i].Name = name
		}
		if done, ok := fields[models.ColCompleted].(bool); ok {
			f.tasks[i].SetCompleted(done)
		}
	}
	return nil
}

func (f *fakeStore) UpdateSubtask(ctx context.Context, fields models.Fields) error {
	f.updates = append(f.updates, fields)
	id, _ := fields.ID()
	return f.record("UpdateSubtask %d", id)
}

func (f *fakeStore) DeleteTask(ctx context.Context, id int64) error {
	return f.record("DeleteTask %d", id)
}

func (f *fakeStore) DeleteSubtask(ctx context.Context, id int64) error {
	return f.record("DeleteSubtask %d", id)
}

func (f *fakeStore) ArchiveTask(ctx context.Context, id int64) error {
	return f.record("ArchiveTask %d", id)
}

func (f *fakeStore) ArchiveSubtask(ctx context.Context, id int64) error {
	return f.record("ArchiveSubtask %d", id)
}

func (f *fakeStore) RestoreTask(ctx context.Context, id int64) error {
	return f.record("RestoreTask %d", id)
}

func (f *fakeStore) RestoreSubtask(ctx context.Context, id int64) error {
	return f.record("RestoreSubtask %d", id)
}

// ReorderTasks applies the move so the next fetch returns the new order
func (f *fakeStore) ReorderTasks(ctx context.Context, tasks []models.Task, from, to int) error {
	if err := f.record("ReorderTasks %d->%d", from, to); err != nil {
		return err
	}
	f.tasks = priority.Move(f.tasks, from, to)
	return nil
}

func (f *fakeStore) ReorderSubtasks(ctx context.Context, subtasks []models.Subtask, from, to int) error {
	return f.record("ReorderSubtasks %d->%d", from, to)
}

func (f *fakeStore) CreateNote(ctx context.Context, in store.NewNote) (models.Note, error) {
	f.createdNote = in
	return models.Note{ID: 5, Content: in.Content}, f.record("CreateNote %s", in.Content)
}

func (f *fakeStore) UpdateNote(ctx context.Context, id int64, content string) error {
	return f.record("UpdateNote %d %s", id, content)
}

func (f *fakeStore) DeleteNote(ctx context.Context, id int64) error {
	return f.record("DeleteNote %d", id)
}

func (f *fakeStore) CreateTimeEntry(ctx context.Context, in store.NewTimeEntry) (models.TimeEntry, error) {
	f.createdTime = in
	return models.TimeEntry{ID: 1, Hours: in.Hours, Date: in.Date}, f.record("CreateTimeEntry %g", in.Hours)
}

func (f *fakeStore) UpdateTimeEntry(ctx context.Context, fields models.Fields) error {
	f.updates = append(f.updates, fields)
	id, _ := fields.ID()
	return f.record("UpdateTimeEntry %d", id)
}

func (f *fakeStore) DeleteTimeEntry(ctx context.Context, id int64) error {
	return f.record("DeleteTimeEntry %d", id)
}

var today = time.Date(2026, 5, 6, 9, 0, 0, 0, time.UTC)

func sampleTasks() []models.Task {
	return []models.Task{
		{ID: 1, Name: "Alpha", PriorityScore: 2, Icon: models.IconZap, Subtasks: []models.Subtask{
			{ID: 10, TaskID: 1, Name: "Alpha one", PriorityScore: 2},
			{ID: 11, TaskID: 1, Name: "Alpha two", PriorityScore: 1},
		}, Notes: []models.Note{{ID: 3, Content: "first", TaskID: int64Ptr(1)}}},
		{ID: 2, Name: "Beta", PriorityScore: 1, Icon: models.IconPenTool},
	}
}

func int64Ptr(v int64) *int64 { return &v }

func keyPress(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "shift+up":
		return tea.KeyMsg{Type: tea.KeyShiftUp}
	case "shift+down":
		return tea.KeyMsg{Type: tea.KeyShiftDown}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// press sends keys in order and returns the command of the last one
func press(m tea.Model, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = m.Update(keyPress(k))
	}
	return cmd
}

// deliver runs cmd and feeds its message back, the way the runtime would
func deliver(t *testing.T, m tea.Model, cmd tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd)
	m.Update(cmd())
}

func newTasksView(t *testing.T, fs *fakeStore) *TaskListView {
	t.Helper()
	v := NewTaskListView(context.Background(), fs)
	v.now = func() time.Time { return today }
	v.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	deliver(t, v, v.Init())
	return v
}

func TestTasksLoadAndRender(t *testing.T) {
	v := newTasksView(t, &fakeStore{tasks: sampleTasks()})

	assert.Len(t, v.rows, 2, "subtasks start collapsed")
	out := v.View()
	assert.Contains(t, out, "Alpha")
	assert.Contains(t, out, "Beta")
	assert.NotContains(t, out, "Alpha one")

	press(v, "enter")
	assert.Len(t, v.rows, 4)
	assert.Contains(t, v.View(), "Alpha one")
}

func TestMoveTaskUpReordersAndFollows(t *testing.T) {
	fs := &fakeStore{tasks: sampleTasks()}
	v := newTasksView(t, fs)

	press(v, "down")
	cmd := press(v, "shift+up")

	assert.Equal(t, []string{"ReorderTasks 1->0"}, fs.calls)
	deliver(t, v, cmd)
	assert.Equal(t, "Beta", v.tasks[0].Name)
	assert.Equal(t, 0, v.cursor, "selection stays on the moved task")
}

func TestMoveAtEdgeDoesNothing(t *testing.T) {
	fs := &fakeStore{tasks: sampleTasks()}
	v := newTasksView(t, fs)

	assert.Nil(t, press(v, "shift+up"))
	press(v, "down")
	assert.Nil(t, press(v, "shift+down"))
	assert.Empty(t, fs.calls)
}

func TestMoveSubtask(t *testing.T) {
	fs := &fakeStore{tasks: sampleTasks()}
	v := newTasksView(t, fs)

	press(v, "enter", "down", "down", "K")
	assert.Equal(t, []string{"ReorderSubtasks 1->0"}, fs.calls)
}

func TestFailedMutationKeepsList(t *testing.T) {
	fs := &fakeStore{tasks: sampleTasks(), fail: errors.New("offline")}
	v := newTasksView(t, fs)

	press(v, "down")
	cmd := press(v, "shift+up")

	assert.Nil(t, cmd, "no reload after a failure")
	assert.Equal(t, "Alpha", v.tasks[0].Name)
	assert.True(t, v.status.err)
	assert.Contains(t, v.View(), "offline")
}

func TestLoadFailureKeepsList(t *testing.T) {
	v := newTasksView(t, &fakeStore{tasks: sampleTasks()})

	v.Update(loadFailedMsg{source: "tasks", err: errors.New("timeout")})
	assert.Len(t, v.tasks, 2)
	assert.Contains(t, v.status.text, "timeout")

	v.status.clear()
	v.Update(loadFailedMsg{source: "week", err: errors.New("timeout")})
	assert.Empty(t, v.status.text, "other views' failures are ignored")
}

func TestEditSavesOnlyChangedFields(t *testing.T) {
	fs := &fakeStore{tasks: sampleTasks()}
	v := newTasksView(t, fs)

	press(v, "e")
	require.NotNil(t, v.card)
	assert.True(t, v.Capturing())

	press(v, "!")
	cmd := press(v, "ctrl+s")

	require.Len(t, fs.updates, 1)
	assert.Equal(t, models.Fields{models.ColID: int64(1), models.ColName: "Alpha!"}, fs.updates[0])
	assert.Nil(t, v.card)
	assert.NotNil(t, cmd)
}

func TestCheckboxIsBufferedUntilSave(t *testing.T) {
	fs := &fakeStore{tasks: sampleTasks()}
	v := newTasksView(t, fs)

	press(v, "space")
	require.NotNil(t, v.card)
	assert.Empty(t, fs.calls, "toggling only changes the buffer")
	assert.True(t, v.card.Task().Completed)
	assert.False(t, v.tasks[0].Completed)

	press(v, "ctrl+s")
	require.Len(t, fs.updates, 1)
	assert.Equal(t, true, fs.updates[0][models.ColCompleted])
	assert.Equal(t, 100, fs.updates[0][models.ColProgress])
}

func TestSubtaskProgressAndQueuedDelete(t *testing.T) {
	fs := &fakeStore{tasks: sampleTasks()}
	v := newTasksView(t, fs)

	press(v, "enter", "down", "+", "+", "down", "x")
	assert.Equal(t, []int64{11}, v.card.Queued())

	press(v, "ctrl+s")
	assert.Equal(t, []string{"DeleteSubtask 11", "UpdateSubtask 10"}, fs.calls)
	assert.Equal(t, 20, fs.updates[0][models.ColProgress])
}

func TestFailedSaveStaysEditing(t *testing.T) {
	fs := &fakeStore{tasks: sampleTasks(), fail: errors.New("503")}
	v := newTasksView(t, fs)

	press(v, "e", "!")
	cmd := press(v, "ctrl+s")

	assert.NotNil(t, cmd, "reloads after a failed save")
	require.NotNil(t, v.card)
	assert.True(t, v.card.Dirty())
	assert.True(t, v.status.err)

	fs.fail = nil
	press(v, "ctrl+s")
	assert.Nil(t, v.card)
	assert.Len(t, fs.updates, 2)
}

func TestPartialSaveRefreshesCommittedRows(t *testing.T) {
	fs := &fakeStore{tasks: sampleTasks(), failOn: "UpdateSubtask"}
	v := newTasksView(t, fs)

	press(v, "enter", "down", "+", "up", "space")
	cmd := press(v, "ctrl+s")
	assert.Equal(t, []string{"UpdateTask 1", "UpdateSubtask 10"}, fs.calls)
	require.NotNil(t, v.card)

	deliver(t, v, cmd)
	assert.True(t, v.tasks[0].Completed, "the written task shows in the list")
	require.NotNil(t, v.card)
	assert.True(t, v.card.Dirty())
	assert.True(t, v.status.err)

	fs.failOn = ""
	fs.calls = nil
	press(v, "ctrl+s")
	assert.Equal(t, []string{"UpdateSubtask 10"}, fs.calls, "only the rest is retried")
	assert.Nil(t, v.card)
}

func TestSaveOutsideEditSessionIsReported(t *testing.T) {
	fs := &fakeStore{tasks: sampleTasks()}
	v := newTasksView(t, fs)

	press(v, "e", "!")
	require.NotNil(t, v.card)
	v.card.Cancel()

	assert.Nil(t, press(v, "ctrl+s"))
	assert.Empty(t, fs.calls)
	assert.Contains(t, v.status.text, "Edit failed")
	assert.NotNil(t, v.card, "the form stays open")
}

func TestCancelDiscardsBuffer(t *testing.T) {
	fs := &fakeStore{tasks: sampleTasks()}
	v := newTasksView(t, fs)

	press(v, "space", "esc")
	assert.Nil(t, v.card)
	assert.Empty(t, fs.calls)
	assert.False(t, v.Capturing())
}

func TestInvalidDueDateIsNotSaved(t *testing.T) {
	fs := &fakeStore{tasks: sampleTasks()}
	v := newTasksView(t, fs)

	press(v, "e", "tab", "tab", "x", "y")
	press(v, "ctrl+s")

	assert.Empty(t, fs.calls)
	assert.NotNil(t, v.card)
	assert.Contains(t, v.status.text, "YYYY-MM-DD")
}

func TestDeleteAsksFirst(t *testing.T) {
	fs := &fakeStore{tasks: sampleTasks()}
	v := newTasksView(t, fs)

	press(v, "d", "n")
	assert.Empty(t, fs.calls)

	press(v, "d")
	assert.Contains(t, v.View(), "Delete task?")
	press(v, "y")
	assert.Equal(t, []string{"DeleteTask 1"}, fs.calls)
}

func TestArchiveSubtask(t *testing.T) {
	fs := &fakeStore{tasks: sampleTasks()}
	v := newTasksView(t, fs)

	press(v, "enter", "down", "a")
	assert.Equal(t, []string{"ArchiveSubtask 10"}, fs.calls)
}

func TestCreateTaskSelectsIt(t *testing.T) {
	fs := &fakeStore{tasks: sampleTasks()}
	v := newTasksView(t, fs)

	press(v, "down", "n", "N", "e", "w")
	cmd := press(v, "enter")

	assert.Equal(t, "New", fs.created.Name)
	assert.False(t, v.creating)
	deliver(t, v, cmd)
	assert.Equal(t, int64(99), v.tasks[v.rows[v.cursor].task].ID)
}

func TestCreateSubtaskUnderSelectedTask(t *testing.T) {
	fs := &fakeStore{tasks: sampleTasks()}
	v := newTasksView(t, fs)

	press(v, "down", "s", "Q")
	press(v, "ctrl+s")

	assert.Equal(t, store.NewSubtask{TaskID: 2, Name: "Q"}, fs.createdSub)
}

func TestCreateValidationKeepsFormOpen(t *testing.T) {
	fs := &fakeStore{tasks: sampleTasks(), fail: &store.ValidationError{Field: "name", Message: "is required"}}
	v := newTasksView(t, fs)

	press(v, "n", "enter")
	assert.True(t, v.creating)
	assert.True(t, v.status.err)
}

func TestNotesPanel(t *testing.T) {
	fs := &fakeStore{tasks: sampleTasks()}
	v := newTasksView(t, fs)

	press(v, "o")
	require.True(t, v.notesOpen)
	assert.Contains(t, v.View(), "first")

	press(v, "n", "h", "i")
	press(v, "ctrl+s")
	assert.Equal(t, "hi", fs.createdNote.Content)
	require.NotNil(t, fs.createdNote.Owner.TaskID)
	assert.Equal(t, int64(1), *fs.createdNote.Owner.TaskID)

	press(v, "e", "!")
	press(v, "ctrl+s")
	press(v, "d")
	assert.Equal(t, []string{"CreateNote hi", "UpdateNote 3 first!", "DeleteNote 3"}, fs.calls)
}

func TestLogTimeDefaultsToToday(t *testing.T) {
	fs := &fakeStore{tasks: sampleTasks()}
	v := newTasksView(t, fs)

	press(v, "enter", "down", "t", "1", ".", "5")
	press(v, "ctrl+s")

	assert.Equal(t, 1.5, fs.createdTime.Hours)
	assert.Equal(t, time.Date(2026, 5, 6, 0, 0, 0, 0, time.UTC), fs.createdTime.Date)
	require.NotNil(t, fs.createdTime.SubtaskID)
	assert.Equal(t, int64(10), *fs.createdTime.SubtaskID)
	assert.False(t, v.logging)
	assert.Contains(t, v.status.text, "1.5h")
}

func TestLogTimeRejectsBadHours(t *testing.T) {
	fs := &fakeStore{tasks: sampleTasks()}
	v := newTasksView(t, fs)

	press(v, "t", "x")
	press(v, "ctrl+s")
	assert.Empty(t, fs.calls)
	assert.True(t, v.logging)
}

func TestArchiveViewRestoreAndDelete(t *testing.T) {
	archived := []models.Task{
		{ID: 1, Name: "Old", Archived: true},
		{ID: 2, Name: "Live", Subtasks: []models.Subtask{{ID: 20, TaskID: 2, Name: "Gone", Archived: true}}},
	}
	fs := &fakeStore{archived: archived}
	v := NewArchiveView(context.Background(), fs)
	v.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	deliver(t, v, v.Init())
	require.Len(t, v.list.Items(), 3)

	press(v, "r")
	assert.Equal(t, []string{"RestoreTask 1"}, fs.calls)

	press(v, "down", "r")
	assert.Len(t, fs.calls, 1, "an active parent is not restored")

	press(v, "down", "d", "y")
	assert.Equal(t, []string{"RestoreTask 1", "DeleteSubtask 20"}, fs.calls)
}

func TestWeekViewEditAndDelete(t *testing.T) {
	fs := &fakeStore{entries: []models.TimeEntry{
		{ID: 7, Hours: 2, Date: time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC), TaskName: "Alpha"},
		{ID: 8, Hours: 1, Date: time.Date(2026, 4, 28, 0, 0, 0, 0, time.UTC), TaskName: "Beta"},
	}}
	v := NewWeekView(context.Background(), fs)
	v.now = func() time.Time { return today }
	v.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	deliver(t, v, v.Init())

	require.Len(t, v.weeks, 2)
	assert.Contains(t, v.View(), "Week 19")
	assert.Contains(t, v.View(), "Alpha")

	press(v, "left")
	assert.Contains(t, v.View(), "Week 18")

	press(v, "e", "backspace")
	v.editHours.SetValue("3")
	press(v, "enter")
	require.Len(t, fs.updates, 1)
	assert.Equal(t, 3.0, fs.updates[0][models.ColHours])
	assert.Equal(t, int64(8), fs.updates[0][models.ColID])

	press(v, "d", "y")
	assert.Equal(t, []string{"UpdateTimeEntry 8", "DeleteTimeEntry 8"}, fs.calls)
}

func TestWeekViewEmpty(t *testing.T) {
	v := NewWeekView(context.Background(), &fakeStore{})
	v.now = func() time.Time { return today }
	deliver(t, v, v.Init())

	assert.Contains(t, v.View(), "Week 19")
	assert.Contains(t, v.View(), "No time logged")
}
