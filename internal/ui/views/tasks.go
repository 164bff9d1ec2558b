package views

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tgienger/taskhours/internal/editor"
	"github.com/tgienger/taskhours/internal/models"
	"github.com/tgienger/taskhours/internal/store"
	"github.com/tgienger/taskhours/internal/timesheet"
	"github.com/tgienger/taskhours/internal/ui/keys"
	"github.com/tgienger/taskhours/internal/ui/styles"
)

// Focus targets of the edit form
const (
	editFocusName = iota
	editFocusDesc
	editFocusDue
	editFocusItems
	editFocusCount
)

// progressStep is how far +/- move progress
const progressStep = 10

// rowKey identifies a row across reloads
type rowKey struct {
	task int64
	sub  int64
}

type tasksLoadedMsg struct {
	tasks []models.Task
}

// TaskListView shows the active tasks, highest priority first
type TaskListView struct {
	ctx    context.Context
	store  Store
	styles *styles.Styles
	keys   keys.KeyMap
	now    func() time.Time

	width  int
	height int

	tasks    []models.Task
	expanded map[int64]bool
	rows     []row
	cursor   int
	scrollY  int
	follow   *rowKey // row to select after the next load
	status   status

	// Edit buffer of the selected task
	card      *editor.Card
	editFocus int
	editItem  int // 0 is the task, i is buffered subtask i-1
	editName  textinput.Model
	editDesc  textarea.Model
	editDue   textinput.Model

	// New task or subtask
	creating     bool
	createParent int64 // 0 creates a task
	createFocus  int   // 0=name, 1=description
	createName   textinput.Model
	createDesc   textarea.Model

	// Notes panel
	notesOpen   bool
	notesOwner  models.NoteOwner
	notesTitle  string
	noteCursor  int
	noteEditing bool
	noteEditID  int64 // 0 adds a note
	noteInput   textarea.Model

	// Time logging
	logging   bool
	logFocus  int // 0=hours, 1=date, 2=description
	logTarget store.NewTimeEntry
	logLabel  string
	logHours  textinput.Model
	logDate   textinput.Model
	logDesc   textinput.Model

	confirmingDelete bool
	deleteRow        row
	deleteName       string

	showHelpPopup bool
}

// NewTaskListView creates the active task view
func NewTaskListView(ctx context.Context, st Store) *TaskListView {
	editName := textinput.New()
	editName.Placeholder = "Task name"
	editName.CharLimit = 200

	editDesc := textarea.New()
	editDesc.Placeholder = "Description"
	editDesc.CharLimit = 2000
	editDesc.SetWidth(50)
	editDesc.SetHeight(3)
	editDesc.ShowLineNumbers = false

	editDue := textinput.New()
	editDue.Placeholder = "YYYY-MM-DD"
	editDue.CharLimit = 10

	createName := textinput.New()
	createName.CharLimit = 200

	createDesc := textarea.New()
	createDesc.Placeholder = "Description (optional)"
	createDesc.CharLimit = 2000
	createDesc.SetWidth(50)
	createDesc.SetHeight(3)
	createDesc.ShowLineNumbers = false

	noteInput := textarea.New()
	noteInput.Placeholder = "Write a note..."
	noteInput.CharLimit = 5000
	noteInput.SetWidth(50)
	noteInput.SetHeight(4)
	noteInput.ShowLineNumbers = false

	logHours := textinput.New()
	logHours.Placeholder = "1.5"
	logHours.CharLimit = 6

	logDate := textinput.New()
	logDate.Placeholder = "YYYY-MM-DD"
	logDate.CharLimit = 10

	logDesc := textinput.New()
	logDesc.Placeholder = "What was done"
	logDesc.CharLimit = 500

	return &TaskListView{
		ctx:        ctx,
		store:      st,
		styles:     styles.NewStyles(),
		keys:       keys.DefaultKeyMap(),
		now:        time.Now,
		expanded:   map[int64]bool{},
		editName:   editName,
		editDesc:   editDesc,
		editDue:    editDue,
		createName: createName,
		createDesc: createDesc,
		noteInput:  noteInput,
		logHours:   logHours,
		logDate:    logDate,
		logDesc:    logDesc,
	}
}

// Init loads the tasks
func (v *TaskListView) Init() tea.Cmd {
	return v.loadTasks()
}

func (v *TaskListView) loadTasks() tea.Cmd {
	ctx, st := v.ctx, v.store
	return func() tea.Msg {
		tasks, err := st.FetchTasks(ctx)
		if err != nil {
			return loadFailedMsg{source: "tasks", err: err}
		}
		return tasksLoadedMsg{tasks: tasks}
	}
}

// Capturing reports whether keys belong to a form or dialog
func (v *TaskListView) Capturing() bool {
	return v.card != nil || v.creating || v.notesOpen || v.logging || v.confirmingDelete || v.showHelpPopup
}

// Update handles messages
func (v *TaskListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		inputWidth := clamp(styles.ContentWidth(v.width)-10, 20, 60)
		v.editDesc.SetWidth(inputWidth)
		v.createDesc.SetWidth(inputWidth)
		v.noteInput.SetWidth(inputWidth)
		return v, nil

	case tasksLoadedMsg:
		v.setTasks(msg.tasks)
		return v, nil

	case loadFailedMsg:
		if msg.source == "tasks" {
			v.status.fail("Loading tasks failed", msg.err)
		}
		return v, nil

	case tea.KeyMsg:
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}
		switch {
		case v.confirmingDelete:
			return v, v.updateConfirmDelete(msg)
		case v.card != nil:
			return v, v.updateEditing(msg)
		case v.creating:
			return v, v.updateCreating(msg)
		case v.notesOpen:
			return v, v.updateNotes(msg)
		case v.logging:
			return v, v.updateLogging(msg)
		}
		return v, v.updateNormal(msg)
	}

	return v, nil
}

// setTasks swaps in a fresh fetch and keeps the selection on the same row
func (v *TaskListView) setTasks(tasks []models.Task) {
	want, ok := v.keyAt(v.cursor)
	if v.follow != nil {
		want, ok = *v.follow, true
		v.follow = nil
	}

	v.tasks = tasks
	v.rows = flatten(v.tasks, v.expanded)

	if ok {
		for i := range v.rows {
			if k, _ := v.keyAt(i); k == want {
				v.cursor = i
				break
			}
		}
	}
	v.cursor = clamp(v.cursor, 0, max(0, len(v.rows)-1))
	v.ensureVisible()

	if v.card != nil {
		if t, found := v.taskByID(v.card.Committed().ID); found {
			v.card.Refresh(t)
		}
	}
}

func (v *TaskListView) keyAt(i int) (rowKey, bool) {
	if i < 0 || i >= len(v.rows) {
		return rowKey{}, false
	}
	r := v.rows[i]
	t := v.tasks[r.task]
	if r.isSubtask() {
		return rowKey{task: t.ID, sub: t.Subtasks[r.sub].ID}, true
	}
	return rowKey{task: t.ID}, true
}

func (v *TaskListView) taskByID(id int64) (models.Task, bool) {
	for _, t := range v.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return models.Task{}, false
}

func (v *TaskListView) selected() (row, bool) {
	if v.cursor < 0 || v.cursor >= len(v.rows) {
		return row{}, false
	}
	return v.rows[v.cursor], true
}

// after reloads on success and reports failure on the status line,
// leaving the list as it is
func (v *TaskListView) after(err error, failed, done string) tea.Cmd {
	if err != nil {
		v.status.fail(failed, err)
		return nil
	}
	v.status.set("%s", done)
	return v.loadTasks()
}

func (v *TaskListView) updateNormal(msg tea.KeyMsg) tea.Cmd {
	r, ok := v.selected()

	switch {
	case key.Matches(msg, v.keys.Up):
		if v.cursor > 0 {
			v.cursor--
			v.ensureVisible()
		}

	case key.Matches(msg, v.keys.Down):
		if v.cursor < len(v.rows)-1 {
			v.cursor++
			v.ensureVisible()
		}

	case key.Matches(msg, v.keys.MoveUp):
		return v.move(-1)

	case key.Matches(msg, v.keys.MoveDown):
		return v.move(1)

	case key.Matches(msg, v.keys.New):
		return v.startCreate(0, "")

	case key.Matches(msg, v.keys.Help):
		v.showHelpPopup = true
	}

	if !ok {
		return nil
	}
	task := v.tasks[r.task]

	switch {
	case key.Matches(msg, v.keys.Enter):
		v.expanded[task.ID] = !v.expanded[task.ID]
		want, _ := v.keyAt(v.cursor)
		v.follow = &rowKey{task: want.task}
		v.setTasks(v.tasks)

	case key.Matches(msg, v.keys.Edit):
		return v.startEdit(r, editFocusName)

	case key.Matches(msg, v.keys.Toggle), key.Matches(msg, v.keys.More),
		key.Matches(msg, v.keys.Less), key.Matches(msg, v.keys.Remove):
		// changes made from the list open the buffer on the row
		cmd := v.startEdit(r, editFocusItems)
		return tea.Batch(cmd, v.updateEditing(msg))

	case key.Matches(msg, v.keys.NewChild):
		v.expanded[task.ID] = true
		return v.startCreate(task.ID, task.Name)

	case key.Matches(msg, v.keys.Archive):
		if r.isSubtask() {
			st := task.Subtasks[r.sub]
			return v.after(v.store.ArchiveSubtask(v.ctx, st.ID), "Archive failed", "Archived "+st.Name)
		}
		return v.after(v.store.ArchiveTask(v.ctx, task.ID), "Archive failed", "Archived "+task.Name)

	case key.Matches(msg, v.keys.Delete):
		v.confirmingDelete = true
		v.deleteRow = r
		v.deleteName = task.Name
		if r.isSubtask() {
			v.deleteName = task.Subtasks[r.sub].Name
		}

	case key.Matches(msg, v.keys.Notes):
		v.openNotes(r)
		return nil

	case key.Matches(msg, v.keys.LogTime):
		return v.startLog(r)
	}
	return nil
}

// move shifts the selected task, or subtask among its siblings, one place
func (v *TaskListView) move(delta int) tea.Cmd {
	r, ok := v.selected()
	if !ok {
		return nil
	}

	if !r.isSubtask() {
		to := r.task + delta
		if to < 0 || to >= len(v.tasks) {
			return nil
		}
		return v.after(v.store.ReorderTasks(v.ctx, v.tasks, r.task, to), "Reorder failed", "")
	}

	subtasks := v.tasks[r.task].Subtasks
	to := r.sub + delta
	if to < 0 || to >= len(subtasks) {
		return nil
	}
	return v.after(v.store.ReorderSubtasks(v.ctx, subtasks, r.sub, to), "Reorder failed", "")
}

func (v *TaskListView) updateConfirmDelete(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, v.keys.Confirm):
		v.confirmingDelete = false
		task := v.tasks[v.deleteRow.task]
		if v.deleteRow.isSubtask() {
			st := task.Subtasks[v.deleteRow.sub]
			return v.after(v.store.DeleteSubtask(v.ctx, st.ID), "Delete failed", "Deleted "+st.Name)
		}
		return v.after(v.store.DeleteTask(v.ctx, task.ID), "Delete failed", "Deleted "+task.Name)
	case key.Matches(msg, v.keys.Deny):
		v.confirmingDelete = false
	}
	return nil
}

// startEdit opens the edit buffer on the row's task with the row's item
// selected
func (v *TaskListView) startEdit(r row, focus int) tea.Cmd {
	task := v.tasks[r.task]
	v.card = editor.NewCard(task)
	v.card.Begin()

	v.editName.SetValue(task.Name)
	v.editDesc.SetValue(task.Description)
	v.editDue.SetValue("")
	if task.DueDate != nil {
		v.editDue.SetValue(task.DueDate.Format(dateLayout))
	}
	v.editItem = r.sub + 1
	v.editFocus = focus
	v.status.clear()
	v.updateEditFocus()
	return textinput.Blink
}

func (v *TaskListView) updateEditFocus() {
	v.editName.Blur()
	v.editDesc.Blur()
	v.editDue.Blur()
	switch v.editFocus {
	case editFocusName:
		v.editName.Focus()
	case editFocusDesc:
		v.editDesc.Focus()
	case editFocusDue:
		v.editDue.Focus()
	}
}

func (v *TaskListView) updateEditing(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.card.Cancel()
		v.card = nil
		v.status.clear()
		return nil

	case key.Matches(msg, v.keys.Save):
		return v.saveEdit()

	case key.Matches(msg, v.keys.Tab):
		v.editFocus = (v.editFocus + 1) % editFocusCount
		v.updateEditFocus()
		return nil

	case key.Matches(msg, v.keys.ShiftTab):
		v.editFocus = (v.editFocus + editFocusCount - 1) % editFocusCount
		v.updateEditFocus()
		return nil
	}

	var cmd tea.Cmd
	switch v.editFocus {
	case editFocusName:
		v.editName, cmd = v.editName.Update(msg)
	case editFocusDesc:
		v.editDesc, cmd = v.editDesc.Update(msg)
	case editFocusDue:
		v.editDue, cmd = v.editDue.Update(msg)
	case editFocusItems:
		v.updateEditItems(msg)
	}
	return cmd
}

// updateEditItems changes the buffered checkboxes and progress of the task
// and its subtasks
func (v *TaskListView) updateEditItems(msg tea.KeyMsg) {
	buf := v.card.Task()
	v.editItem = clamp(v.editItem, 0, len(buf.Subtasks))

	var err error
	switch {
	case key.Matches(msg, v.keys.Up):
		v.editItem = max(0, v.editItem-1)
	case key.Matches(msg, v.keys.Down):
		v.editItem = min(len(buf.Subtasks), v.editItem+1)

	case key.Matches(msg, v.keys.CycleIcon):
		i := slices.Index(models.Icons, buf.Icon)
		err = v.card.SetIcon(models.Icons[(i+1)%len(models.Icons)])

	case key.Matches(msg, v.keys.Toggle):
		if v.editItem == 0 {
			err = v.card.SetCompleted(!buf.Completed)
		} else {
			st := buf.Subtasks[v.editItem-1]
			err = v.card.SetSubtaskCompleted(st.ID, !st.Completed)
		}

	case key.Matches(msg, v.keys.More), key.Matches(msg, v.keys.Less):
		step := progressStep
		if key.Matches(msg, v.keys.Less) {
			step = -progressStep
		}
		if v.editItem == 0 {
			err = v.card.SetProgress(buf.Progress + step)
		} else {
			st := buf.Subtasks[v.editItem-1]
			err = v.card.SetSubtaskProgress(st.ID, st.Progress+step)
		}

	case key.Matches(msg, v.keys.Remove):
		if v.editItem > 0 {
			err = v.card.QueueSubtaskDelete(buf.Subtasks[v.editItem-1].ID)
			v.editItem = min(v.editItem, len(buf.Subtasks)-1)
		}
	}

	if err != nil {
		v.status.fail("Edit failed", err)
	}
}

// saveEdit moves the text inputs into the buffer and commits it. A failed
// save keeps the form open so it can be retried.
func (v *TaskListView) saveEdit() tea.Cmd {
	due, err := parseDate(v.editDue.Value())
	if err != nil {
		v.status.fail("Invalid due date", err)
		return nil
	}
	err = errors.Join(
		v.card.SetName(strings.TrimSpace(v.editName.Value())),
		v.card.SetDescription(strings.TrimSpace(v.editDesc.Value())),
		v.card.SetDueDate(due),
	)
	if err != nil {
		v.status.fail("Edit failed", err)
		return nil
	}

	if err := v.card.Save(v.ctx, v.store); err != nil {
		// part of the save may have been written; the reload refreshes the
		// committed side of the card and keeps the buffer
		v.status.fail("Save failed", err)
		return v.loadTasks()
	}
	name := v.card.Committed().Name
	v.card = nil
	v.status.set("Saved %s", name)
	return v.loadTasks()
}

func (v *TaskListView) startCreate(parent int64, parentName string) tea.Cmd {
	v.creating = true
	v.createParent = parent
	v.createFocus = 0
	v.createName.Reset()
	v.createDesc.Reset()
	v.createName.Placeholder = "Task name"
	if parent != 0 {
		v.createName.Placeholder = "Subtask of " + parentName
	}
	v.createDesc.Blur()
	v.createName.Focus()
	v.status.clear()
	return textinput.Blink
}

func (v *TaskListView) updateCreating(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.creating = false
		return nil

	case key.Matches(msg, v.keys.Save),
		key.Matches(msg, v.keys.Enter) && v.createFocus == 0:
		return v.submitCreate()

	case key.Matches(msg, v.keys.Tab), key.Matches(msg, v.keys.ShiftTab):
		v.createFocus = 1 - v.createFocus
		if v.createFocus == 0 {
			v.createDesc.Blur()
			v.createName.Focus()
		} else {
			v.createName.Blur()
			v.createDesc.Focus()
		}
		return nil
	}

	var cmd tea.Cmd
	if v.createFocus == 0 {
		v.createName, cmd = v.createName.Update(msg)
	} else {
		v.createDesc, cmd = v.createDesc.Update(msg)
	}
	return cmd
}

func (v *TaskListView) submitCreate() tea.Cmd {
	name := v.createName.Value()
	desc := strings.TrimSpace(v.createDesc.Value())

	if v.createParent == 0 {
		task, err := v.store.CreateTask(v.ctx, store.NewTask{Name: name, Description: desc})
		if err != nil {
			v.status.fail("Create failed", err)
			return nil
		}
		v.creating = false
		v.follow = &rowKey{task: task.ID}
		return v.after(nil, "", "Created "+task.Name)
	}

	sub, err := v.store.CreateSubtask(v.ctx, store.NewSubtask{TaskID: v.createParent, Name: name, Description: desc})
	if err != nil {
		v.status.fail("Create failed", err)
		return nil
	}
	v.creating = false
	v.follow = &rowKey{task: sub.TaskID, sub: sub.ID}
	return v.after(nil, "", "Created "+sub.Name)
}

func (v *TaskListView) openNotes(r row) {
	task := v.tasks[r.task]
	v.notesOpen = true
	v.noteCursor = 0
	v.noteEditing = false
	if r.isSubtask() {
		st := task.Subtasks[r.sub]
		v.notesOwner = models.SubtaskOwner(st.ID)
		v.notesTitle = st.Name
	} else {
		v.notesOwner = models.TaskOwner(task.ID)
		v.notesTitle = task.Name
	}
	v.status.clear()
}

// notes returns the current notes of the panel's owner from the last fetch
func (v *TaskListView) notes() []models.Note {
	for _, t := range v.tasks {
		if v.notesOwner.TaskID != nil && t.ID == *v.notesOwner.TaskID {
			return t.Notes
		}
		for _, st := range t.Subtasks {
			if v.notesOwner.SubtaskID != nil && st.ID == *v.notesOwner.SubtaskID {
				return st.Notes
			}
		}
	}
	return nil
}

func (v *TaskListView) updateNotes(msg tea.KeyMsg) tea.Cmd {
	if v.noteEditing {
		switch {
		case key.Matches(msg, v.keys.Back):
			v.noteEditing = false
			v.noteInput.Blur()
			return nil
		case key.Matches(msg, v.keys.Save):
			return v.submitNote()
		}
		var cmd tea.Cmd
		v.noteInput, cmd = v.noteInput.Update(msg)
		return cmd
	}

	notes := v.notes()
	switch {
	case key.Matches(msg, v.keys.Back):
		v.notesOpen = false
	case key.Matches(msg, v.keys.Up):
		v.noteCursor = max(0, v.noteCursor-1)
	case key.Matches(msg, v.keys.Down):
		v.noteCursor = clamp(v.noteCursor+1, 0, max(0, len(notes)-1))
	case key.Matches(msg, v.keys.New):
		v.noteEditing = true
		v.noteEditID = 0
		v.noteInput.Reset()
		v.noteInput.Focus()
		return textarea.Blink
	case key.Matches(msg, v.keys.Edit):
		if v.noteCursor < len(notes) {
			v.noteEditing = true
			v.noteEditID = notes[v.noteCursor].ID
			v.noteInput.SetValue(notes[v.noteCursor].Content)
			v.noteInput.Focus()
			return textarea.Blink
		}
	case key.Matches(msg, v.keys.Delete):
		if v.noteCursor < len(notes) {
			err := v.store.DeleteNote(v.ctx, notes[v.noteCursor].ID)
			if err == nil {
				v.noteCursor = max(0, v.noteCursor-1)
			}
			return v.after(err, "Delete failed", "Note deleted")
		}
	}
	return nil
}

func (v *TaskListView) submitNote() tea.Cmd {
	content := v.noteInput.Value()

	var err error
	if v.noteEditID == 0 {
		_, err = v.store.CreateNote(v.ctx, store.NewNote{Owner: v.notesOwner, Content: content})
	} else {
		err = v.store.UpdateNote(v.ctx, v.noteEditID, content)
	}
	if err != nil {
		v.status.fail("Saving note failed", err)
		return nil
	}
	v.noteEditing = false
	v.noteInput.Blur()
	return v.after(nil, "", "Note saved")
}

func (v *TaskListView) startLog(r row) tea.Cmd {
	task := v.tasks[r.task]
	v.logging = true
	v.logFocus = 0
	v.logTarget = store.NewTimeEntry{}
	if r.isSubtask() {
		st := task.Subtasks[r.sub]
		v.logTarget.TaskID = &task.ID
		v.logTarget.SubtaskID = &st.ID
		v.logLabel = task.Name + " / " + st.Name
	} else {
		v.logTarget.TaskID = &task.ID
		v.logLabel = task.Name
	}
	v.logHours.Reset()
	v.logDate.SetValue(v.now().Format(dateLayout))
	v.logDesc.Reset()
	v.updateLogFocus()
	v.status.clear()
	return textinput.Blink
}

func (v *TaskListView) updateLogFocus() {
	inputs := []*textinput.Model{&v.logHours, &v.logDate, &v.logDesc}
	for i, in := range inputs {
		if i == v.logFocus {
			in.Focus()
		} else {
			in.Blur()
		}
	}
}

func (v *TaskListView) updateLogging(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.logging = false
		return nil
	case key.Matches(msg, v.keys.Save),
		key.Matches(msg, v.keys.Enter) && v.logFocus == 2:
		return v.submitLog()
	case key.Matches(msg, v.keys.Tab), key.Matches(msg, v.keys.Enter):
		v.logFocus = (v.logFocus + 1) % 3
		v.updateLogFocus()
		return nil
	case key.Matches(msg, v.keys.ShiftTab):
		v.logFocus = (v.logFocus + 2) % 3
		v.updateLogFocus()
		return nil
	}

	var cmd tea.Cmd
	switch v.logFocus {
	case 0:
		v.logHours, cmd = v.logHours.Update(msg)
	case 1:
		v.logDate, cmd = v.logDate.Update(msg)
	case 2:
		v.logDesc, cmd = v.logDesc.Update(msg)
	}
	return cmd
}

func (v *TaskListView) submitLog() tea.Cmd {
	hours, err := strconv.ParseFloat(strings.TrimSpace(v.logHours.Value()), 64)
	if err != nil {
		v.status.fail("Invalid hours", fmt.Errorf("hours must be a number"))
		return nil
	}
	date, err := parseDate(v.logDate.Value())
	if err != nil {
		v.status.fail("Invalid date", err)
		return nil
	}

	in := v.logTarget
	in.Hours = hours
	in.Description = strings.TrimSpace(v.logDesc.Value())
	if date != nil {
		in.Date = *date
	}

	entry, err := v.store.CreateTimeEntry(v.ctx, in)
	if err != nil {
		v.status.fail("Logging time failed", err)
		return nil
	}
	v.logging = false
	v.status.set("Logged %sh on %s", timesheet.FormatHours(entry.Hours), v.logLabel)
	return nil
}

func (v *TaskListView) visibleRows() int {
	return max(1, v.height-9)
}

func (v *TaskListView) ensureVisible() {
	v.scrollY = scrollWindow(v.cursor, v.scrollY, v.visibleRows())
}

// View renders the view
func (v *TaskListView) View() string {
	switch {
	case v.showHelpPopup:
		return v.renderHelpPopup()
	case v.confirmingDelete:
		what := "task"
		if v.deleteRow.isSubtask() {
			what = "subtask"
		}
		return renderConfirm(v.styles, v.width, v.height-2, what, v.deleteName)
	case v.card != nil:
		return v.renderEditForm()
	case v.creating:
		return v.renderCreateForm()
	case v.notesOpen:
		return v.renderNotes()
	case v.logging:
		return v.renderLogForm()
	}

	s := v.styles
	var b strings.Builder
	b.WriteString(s.Title.Render(fmt.Sprintf("Tasks (%d)", len(v.tasks))))
	b.WriteString("\n\n")
	b.WriteString(v.renderList())
	b.WriteString("\n")
	if line := v.status.render(s); line != "" {
		b.WriteString("\n" + line)
	}
	b.WriteString("\n")
	b.WriteString(helpLine(s, "↵", "expand", "⇧↑↓", "move", "e", "edit", "n", "new", "s", "subtask",
		"o", "notes", "t", "time", "a", "archive", "d", "del", "?", "more"))
	return b.String()
}

func (v *TaskListView) renderList() string {
	s := v.styles
	if len(v.rows) == 0 {
		return s.TitleMuted.Render("No tasks. Press 'n' to create one.")
	}

	width := max(styles.ContentWidth(v.width)-2, 30)
	end := min(v.scrollY+v.visibleRows(), len(v.rows))
	var lines []string
	for i := v.scrollY; i < end; i++ {
		r := v.rows[i]
		task := v.tasks[r.task]
		var line string
		if r.isSubtask() {
			line = v.renderSubtaskLine(task.Subtasks[r.sub])
		} else {
			line = v.renderTaskLine(task)
		}
		style := s.Row
		if i == v.cursor {
			style = s.RowSelected
		}
		lines = append(lines, style.Width(width).Render(line))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (v *TaskListView) renderTaskLine(t models.Task) string {
	s := v.styles
	arrow := "▸"
	if v.expanded[t.ID] {
		arrow = "▾"
	}
	if len(t.Subtasks) == 0 {
		arrow = " "
	}
	name := t.Name
	if t.Completed {
		name = s.Done.Render("✓ " + name)
	}
	parts := []string{
		arrow,
		s.Icon.Render(styles.IconGlyph(t.Icon)),
		name,
		s.ProgressBar(t.Progress, 10),
		fmt.Sprintf("%3d%%", t.Progress),
		s.Badge.Render("#" + strconv.Itoa(t.PriorityScore)),
	}
	if len(t.Subtasks) > 0 {
		parts = append(parts, s.TitleMuted.Render(fmt.Sprintf("%d/%d", doneCount(t.Subtasks), len(t.Subtasks))))
	}
	if due := dueText(s, t.DueDate, v.now()); due != "" {
		parts = append(parts, due)
	}
	if len(t.Notes) > 0 {
		parts = append(parts, s.TitleMuted.Render(fmt.Sprintf("✉%d", len(t.Notes))))
	}
	return strings.Join(parts, " ")
}

func (v *TaskListView) renderSubtaskLine(st models.Subtask) string {
	s := v.styles
	box := "☐"
	name := st.Name
	if st.Completed {
		box = s.Done.Render("☑")
		name = s.Done.Render(name)
	}
	parts := []string{"   ", box, name, s.ProgressBar(st.Progress, 6), fmt.Sprintf("%3d%%", st.Progress)}
	if due := dueText(s, st.DueDate, v.now()); due != "" {
		parts = append(parts, due)
	}
	if len(st.Notes) > 0 {
		parts = append(parts, s.TitleMuted.Render(fmt.Sprintf("✉%d", len(st.Notes))))
	}
	return strings.Join(parts, " ")
}

func doneCount(subtasks []models.Subtask) int {
	n := 0
	for _, st := range subtasks {
		if st.Completed {
			n++
		}
	}
	return n
}

func (v *TaskListView) renderEditForm() string {
	s := v.styles
	buf := v.card.Task()
	inputWidth := clamp(styles.ContentWidth(v.width)-10, 20, 60)

	field := func(focus int) lipgloss.Style {
		if v.editFocus == focus {
			return s.InputFocused
		}
		return s.Input
	}

	var items []string
	items = append(items, v.editItemLine(0, fmt.Sprintf("%s %s %s %3d%%",
		checkbox(buf.Completed), styles.IconGlyph(buf.Icon), "task", buf.Progress), buf.Progress))
	for i, st := range buf.Subtasks {
		items = append(items, v.editItemLine(i+1, fmt.Sprintf("  %s %s %3d%%",
			checkbox(st.Completed), st.Name, st.Progress), st.Progress))
	}
	if queued := len(v.card.Queued()); queued > 0 {
		items = append(items, s.Dirty.Render(fmt.Sprintf("%d subtask(s) will be deleted", queued)))
	}

	title := "Edit " + v.card.Committed().Name
	if v.card.Dirty() {
		title += s.Dirty.Render("  (unsaved)")
	}

	form := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render(title),
		"",
		"Name:",
		field(editFocusName).Width(inputWidth).Render(v.editName.View()),
		"Description:",
		field(editFocusDesc).Render(v.editDesc.View()),
		"Due date:",
		field(editFocusDue).Width(16).Render(v.editDue.View()),
		"Progress:",
		field(editFocusItems).Width(inputWidth).Render(lipgloss.JoinVertical(lipgloss.Left, items...)),
		v.status.render(s),
		helpLine(s, "tab", "field", "space", "done", "+/-", "progress", "x", "drop subtask", "i", "icon",
			"ctrl+s", "save", "esc", "cancel"),
	)
	return form
}

func (v *TaskListView) editItemLine(i int, text string, progress int) string {
	line := text + " " + v.styles.ProgressBar(progress, 8)
	if v.editFocus == editFocusItems && v.editItem == i {
		return v.styles.RowSelected.Render(line)
	}
	return v.styles.Row.Render(line)
}

func checkbox(done bool) string {
	if done {
		return "☑"
	}
	return "☐"
}

func (v *TaskListView) renderCreateForm() string {
	s := v.styles
	title := "New Task"
	if v.createParent != 0 {
		title = "New Subtask"
	}
	nameStyle, descStyle := s.InputFocused, s.Input
	if v.createFocus == 1 {
		nameStyle, descStyle = s.Input, s.InputFocused
	}
	inputWidth := clamp(styles.ContentWidth(v.width)-10, 20, 60)

	return lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render(title),
		"",
		"Name:",
		nameStyle.Width(inputWidth).Render(v.createName.View()),
		"Description:",
		descStyle.Render(v.createDesc.View()),
		v.status.render(s),
		helpLine(s, "↵/ctrl+s", "create", "tab", "field", "esc", "cancel"),
	)
}

func (v *TaskListView) renderNotes() string {
	s := v.styles
	notes := v.notes()
	width := max(styles.ContentWidth(v.width)-6, 20)

	var body []string
	if len(notes) == 0 {
		body = append(body, s.TitleMuted.Render("No notes yet."))
	}
	for i, n := range notes {
		stamp := s.TitleMuted.Render(n.CreatedAt.Local().Format("2 Jan 15:04"))
		style := s.Row
		if i == v.noteCursor && !v.noteEditing {
			style = s.RowSelected
		}
		body = append(body, style.Width(width).Render(stamp+"  "+n.Content))
	}

	parts := []string{
		s.Title.Render("Notes: " + v.notesTitle),
		"",
		s.Panel.Width(width + 2).Render(lipgloss.JoinVertical(lipgloss.Left, body...)),
	}
	if v.noteEditing {
		label := "New note:"
		if v.noteEditID != 0 {
			label = "Edit note:"
		}
		parts = append(parts, "", label, s.InputFocused.Render(v.noteInput.View()),
			helpLine(s, "ctrl+s", "save", "esc", "cancel"))
	} else {
		parts = append(parts, helpLine(s, "n", "add", "e", "edit", "d", "delete", "esc", "back"))
	}
	if line := v.status.render(s); line != "" {
		parts = append(parts, line)
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (v *TaskListView) renderLogForm() string {
	s := v.styles
	style := func(i int) lipgloss.Style {
		if v.logFocus == i {
			return s.InputFocused
		}
		return s.Input
	}
	inputWidth := clamp(styles.ContentWidth(v.width)-10, 20, 60)

	return lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render("Log time: "+v.logLabel),
		"",
		"Hours:",
		style(0).Width(12).Render(v.logHours.View()),
		"Date:",
		style(1).Width(16).Render(v.logDate.View()),
		"Description:",
		style(2).Width(inputWidth).Render(v.logDesc.View()),
		v.status.render(s),
		helpLine(s, "tab", "field", "ctrl+s", "log", "esc", "cancel"),
	)
}

func (v *TaskListView) renderHelpPopup() string {
	s := v.styles
	items := []string{
		s.HelpKey.Render("↑↓") + "      select",
		s.HelpKey.Render("⇧↑ ⇧↓") + "   move up / down (J/K)",
		s.HelpKey.Render("↵") + "       expand subtasks",
		s.HelpKey.Render("e") + "       edit task",
		s.HelpKey.Render("space") + "   toggle done",
		s.HelpKey.Render("+ -") + "     adjust progress",
		s.HelpKey.Render("x") + "       drop subtask",
		s.HelpKey.Render("n") + "       new task",
		s.HelpKey.Render("s") + "       new subtask",
		s.HelpKey.Render("o") + "       notes",
		s.HelpKey.Render("t") + "       log time",
		s.HelpKey.Render("a") + "       archive",
		s.HelpKey.Render("d") + "       delete",
		s.HelpKey.Render("tab") + "     next view",
		s.HelpKey.Render("q") + "       quit",
		"",
		s.TitleMuted.Render("Press any key to close"),
	}
	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{s.Title.Render("Keyboard Shortcuts"), ""}, items...)...)
	return lipgloss.Place(styles.ContentWidth(v.width), v.height-2, lipgloss.Center, lipgloss.Center,
		s.Panel.Render(content))
}
