package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tgienger/taskhours/internal/backend"
	"github.com/tgienger/taskhours/internal/db"
	"github.com/tgienger/taskhours/internal/models"
	"github.com/tgienger/taskhours/internal/store"
	"github.com/xuri/excelize/v2"
)

// MockService implements Service; nil funcs return zero values
type MockService struct {
	FetchTasksFunc         func(ctx context.Context) ([]models.Task, error)
	FetchArchivedTasksFunc func(ctx context.Context) ([]models.Task, error)
	CreateTaskFunc         func(ctx context.Context, in store.NewTask) (models.Task, error)
	UpdateTaskFunc         func(ctx context.Context, fields models.Fields) error
	DeleteTaskFunc         func(ctx context.Context, id int64) error
	ReorderTasksFunc       func(ctx context.Context, tasks []models.Task, from, to int) error
	CreateSubtaskFunc      func(ctx context.Context, in store.NewSubtask) (models.Subtask, error)
	UpdateSubtaskFunc      func(ctx context.Context, fields models.Fields) error
	DeleteSubtaskFunc      func(ctx context.Context, id int64) error
	ReorderSubtasksFunc    func(ctx context.Context, subtasks []models.Subtask, from, to int) error
	CreateNoteFunc         func(ctx context.Context, in store.NewNote) (models.Note, error)
	UpdateNoteFunc         func(ctx context.Context, id int64, content string) error
	DeleteNoteFunc         func(ctx context.Context, id int64) error
	FetchTimeEntriesFunc   func(ctx context.Context) ([]models.TimeEntry, error)
	CreateTimeEntryFunc    func(ctx context.Context, in store.NewTimeEntry) (models.TimeEntry, error)
	UpdateTimeEntryFunc    func(ctx context.Context, fields models.Fields) error
	DeleteTimeEntryFunc    func(ctx context.Context, id int64) error

	changed []func()
}

func (m *MockService) OnChange(fn func()) {
	m.changed = append(m.changed, fn)
}

func (m *MockService) notify() {
	for _, fn := range m.changed {
		fn()
	}
}

func (m *MockService) FetchTasks(ctx context.Context) ([]models.Task, error) {
	if m.FetchTasksFunc != nil {
		return m.FetchTasksFunc(ctx)
	}
	return []models.Task{}, nil
}

func (m *MockService) FetchArchivedTasks(ctx context.Context) ([]models.Task, error) {
	if m.FetchArchivedTasksFunc != nil {
		return m.FetchArchivedTasksFunc(ctx)
	}
	return []models.Task{}, nil
}

func (m *MockService) CreateTask(ctx context.Context, in store.NewTask) (models.Task, error) {
	if m.CreateTaskFunc != nil {
		return m.CreateTaskFunc(ctx, in)
	}
	return models.Task{}, nil
}

func (m *MockService) UpdateTask(ctx context.Context, fields models.Fields) error {
	if m.UpdateTaskFunc != nil {
		return m.UpdateTaskFunc(ctx, fields)
	}
	return nil
}

func (m *MockService) DeleteTask(ctx context.Context, id int64) error {
	if m.DeleteTaskFunc != nil {
		return m.DeleteTaskFunc(ctx, id)
	}
	return nil
}

func (m *MockService) ReorderTasks(ctx context.Context, tasks []models.Task, from, to int) error {
	if m.ReorderTasksFunc != nil {
		return m.ReorderTasksFunc(ctx, tasks, from, to)
	}
	return nil
}

func (m *MockService) CreateSubtask(ctx context.Context, in store.NewSubtask) (models.Subtask, error) {
	if m.CreateSubtaskFunc != nil {
		return m.CreateSubtaskFunc(ctx, in)
	}
	return models.Subtask{}, nil
}

func (m *MockService) UpdateSubtask(ctx context.Context, fields models.Fields) error {
	if m.UpdateSubtaskFunc != nil {
		return m.UpdateSubtaskFunc(ctx, fields)
	}
	return nil
}

func (m *MockService) DeleteSubtask(ctx context.Context, id int64) error {
	if m.DeleteSubtaskFunc != nil {
		return m.DeleteSubtaskFunc(ctx, id)
	}
	return nil
}

func (m *MockService) ReorderSubtasks(ctx context.Context, subtasks []models.Subtask, from, to int) error {
	if m.ReorderSubtasksFunc != nil {
		return m.ReorderSubtasksFunc(ctx, subtasks, from, to)
	}
	return nil
}

func (m *MockService) CreateNote(ctx context.Context, in store.NewNote) (models.Note, error) {
	if m.CreateNoteFunc != nil {
		return m.CreateNoteFunc(ctx, in)
	}
	return models.Note{}, nil
}

func (m *MockService) UpdateNote(ctx context.Context, id int64, content string) error {
	if m.UpdateNoteFunc != nil {
		return m.UpdateNoteFunc(ctx, id, content)
	}
	return nil
}

func (m *MockService) DeleteNote(ctx context.Context, id int64) error {
	if m.DeleteNoteFunc != nil {
		return m.DeleteNoteFunc(ctx, id)
	}
	return nil
}

func (m *MockService) FetchTimeEntries(ctx context.Context) ([]models.TimeEntry, error) {
	if m.FetchTimeEntriesFunc != nil {
		return m.FetchTimeEntriesFunc(ctx)
	}
	return []models.TimeEntry{}, nil
}

func (m *MockService) CreateTimeEntry(ctx context.Context, in store.NewTimeEntry) (models.TimeEntry, error) {
	if m.CreateTimeEntryFunc != nil {
		return m.CreateTimeEntryFunc(ctx, in)
	}
	return models.TimeEntry{}, nil
}

func (m *MockService) UpdateTimeEntry(ctx context.Context, fields models.Fields) error {
	if m.UpdateTimeEntryFunc != nil {
		return m.UpdateTimeEntryFunc(ctx, fields)
	}
	return nil
}

func (m *MockService) DeleteTimeEntry(ctx context.Context, id int64) error {
	if m.DeleteTimeEntryFunc != nil {
		return m.DeleteTimeEntryFunc(ctx, id)
	}
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(mock *MockService) *Server {
	gin.SetMode(gin.TestMode)
	log, _ := test.NewNullLogger()
	s := NewServer(mock, log)
	s.now = func() time.Time { return time.Date(2026, 5, 6, 12, 0, 0, 0, time.UTC) }
	return s
}

func do(t *testing.T, s *Server, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestListTasks(t *testing.T) {
	mock := &MockService{
		FetchTasksFunc: func(ctx context.Context) ([]models.Task, error) {
			return []models.Task{{ID: 1, Name: "A", Subtasks: []models.Subtask{}, Notes: []models.Note{}}}, nil
		},
	}
	w, env := do(t, newTestServer(mock), http.MethodGet, "/api/tasks", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	var tasks []models.Task
	require.NoError(t, json.Unmarshal(env.Data, &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, "A", tasks[0].Name)
	assert.Contains(t, string(env.Data), `"subtasks":[]`)
}

func TestFetchFailureIsBadGateway(t *testing.T) {
	mock := &MockService{
		FetchArchivedTasksFunc: func(ctx context.Context) ([]models.Task, error) {
			return nil, &store.FetchError{Section: "tasks", Err: &store.BackendError{Op: "list tasks", Err: errors.New("timeout")}}
		},
	}
	w, env := do(t, newTestServer(mock), http.MethodGet, "/api/tasks/archived", nil)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "timeout")
}

func TestCreateTask(t *testing.T) {
	var got store.NewTask
	mock := &MockService{
		CreateTaskFunc: func(ctx context.Context, in store.NewTask) (models.Task, error) {
			got = in
			return models.Task{ID: 7, Name: in.Name, PriorityScore: 3}, nil
		},
	}
	w, env := do(t, newTestServer(mock), http.MethodPost, "/api/tasks", map[string]any{
		"name":     "Write report",
		"icon":     "penTool",
		"due_date": "2026-06-01",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "Write report", got.Name)
	assert.Equal(t, models.IconPenTool, got.Icon)
	assert.Nil(t, got.PriorityScore)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, "2026-06-01", got.DueDate.Format(time.DateOnly))
}

func TestCreateTaskBadDate(t *testing.T) {
	called := false
	mock := &MockService{
		CreateTaskFunc: func(ctx context.Context, in store.NewTask) (models.Task, error) {
			called = true
			return models.Task{}, nil
		},
	}
	w, _ := do(t, newTestServer(mock), http.MethodPost, "/api/tasks", map[string]any{"name": "A", "due_date": "tomorrow"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, called)
}

func TestValidationErrorIsBadRequest(t *testing.T) {
	mock := &MockService{
		CreateTaskFunc: func(ctx context.Context, in store.NewTask) (models.Task, error) {
			return models.Task{}, &store.ValidationError{Field: "name", Message: "a task needs a name"}
		},
	}
	w, env := do(t, newTestServer(mock), http.MethodPost, "/api/tasks", map[string]any{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid name: a task needs a name", env.Error)
}

func TestUpdateTaskUsesPathID(t *testing.T) {
	var got models.Fields
	mock := &MockService{
		UpdateTaskFunc: func(ctx context.Context, fields models.Fields) error {
			got = fields
			return nil
		},
	}
	w, _ := do(t, newTestServer(mock), http.MethodPatch, "/api/tasks/12", map[string]any{
		"id":       99,
		"progress": 100,
		"subtasks": []any{},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	id, ok := got.ID()
	assert.True(t, ok)
	assert.Equal(t, int64(12), id)
	assert.Equal(t, float64(100), got[models.ColProgress])
}

func TestBadPathID(t *testing.T) {
	s := newTestServer(&MockService{})
	for _, path := range []string{"/api/tasks/abc", "/api/subtasks/0", "/api/notes/-3"} {
		w, _ := do(t, s, http.MethodDelete, path, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestDeleteTaskBackendFailure(t *testing.T) {
	mock := &MockService{
		DeleteTaskFunc: func(ctx context.Context, id int64) error {
			return &store.BackendError{Op: "delete subtasks of task", Err: errors.New("connection reset")}
		},
	}
	w, env := do(t, newTestServer(mock), http.MethodDelete, "/api/tasks/3", nil)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, env.Error, "delete subtasks of task")
}

type constraintErr struct{}

func (constraintErr) Error() string    { return "violates foreign key" }
func (constraintErr) SQLState() string { return "23503" }

func TestConstraintViolationIsConflict(t *testing.T) {
	mock := &MockService{
		DeleteSubtaskFunc: func(ctx context.Context, id int64) error {
			return &store.BackendError{Op: "delete subtask", Err: constraintErr{}}
		},
	}
	w, _ := do(t, newTestServer(mock), http.MethodDelete, "/api/subtasks/3", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestNotFoundError(t *testing.T) {
	mock := &MockService{
		DeleteNoteFunc: func(ctx context.Context, id int64) error {
			return &store.BackendError{Op: "get", Err: fmt.Errorf("%w: notes %d", backend.ErrNotFound, id)}
		},
	}
	w, _ := do(t, newTestServer(mock), http.MethodDelete, "/api/notes/5", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReorderTasksFetchesReordersAndRefetches(t *testing.T) {
	var calls []string
	mock := &MockService{
		FetchTasksFunc: func(ctx context.Context) ([]models.Task, error) {
			calls = append(calls, "fetch")
			return []models.Task{{ID: 1, PriorityScore: 2}, {ID: 2, PriorityScore: 1}}, nil
		},
		ReorderTasksFunc: func(ctx context.Context, tasks []models.Task, from, to int) error {
			calls = append(calls, fmt.Sprintf("reorder %d->%d of %d", from, to, len(tasks)))
			return nil
		},
	}
	w, _ := do(t, newTestServer(mock), http.MethodPost, "/api/tasks/reorder", map[string]int{"from": 0, "to": 1})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"fetch", "reorder 0->1 of 2", "fetch"}, calls)
}

func TestReorderSubtasksOfUnknownTask(t *testing.T) {
	mock := &MockService{
		ReorderSubtasksFunc: func(ctx context.Context, subtasks []models.Subtask, from, to int) error {
			t.Fatal("reorder must not be called")
			return nil
		},
	}
	w, _ := do(t, newTestServer(mock), http.MethodPost, "/api/tasks/8/subtasks/reorder", map[string]int{"from": 0, "to": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReorderSubtasks(t *testing.T) {
	var got []models.Subtask
	mock := &MockService{
		FetchTasksFunc: func(ctx context.Context) ([]models.Task, error) {
			return []models.Task{{ID: 8, Subtasks: []models.Subtask{{ID: 80}, {ID: 81}}}}, nil
		},
		ReorderSubtasksFunc: func(ctx context.Context, subtasks []models.Subtask, from, to int) error {
			got = subtasks
			return nil
		},
	}
	w, _ := do(t, newTestServer(mock), http.MethodPost, "/api/tasks/8/subtasks/reorder", map[string]int{"from": 1, "to": 0})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, got, 2)
}

func TestCreateNote(t *testing.T) {
	var got store.NewNote
	mock := &MockService{
		CreateNoteFunc: func(ctx context.Context, in store.NewNote) (models.Note, error) {
			got = in
			return models.Note{ID: 1, Content: in.Content, SubtaskID: in.Owner.SubtaskID}, nil
		},
	}
	w, _ := do(t, newTestServer(mock), http.MethodPost, "/api/notes", map[string]any{"subtask_id": 4, "content": "check figures"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Nil(t, got.Owner.TaskID)
	require.NotNil(t, got.Owner.SubtaskID)
	assert.Equal(t, int64(4), *got.Owner.SubtaskID)
}

func TestUpdateNote(t *testing.T) {
	var gotID int64
	var gotContent string
	mock := &MockService{
		UpdateNoteFunc: func(ctx context.Context, id int64, content string) error {
			gotID, gotContent = id, content
			return nil
		},
	}
	w, _ := do(t, newTestServer(mock), http.MethodPatch, "/api/notes/9", map[string]any{"content": "new"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(9), gotID)
	assert.Equal(t, "new", gotContent)
}

func TestCreateTimeEntry(t *testing.T) {
	var got store.NewTimeEntry
	mock := &MockService{
		CreateTimeEntryFunc: func(ctx context.Context, in store.NewTimeEntry) (models.TimeEntry, error) {
			got = in
			return models.TimeEntry{ID: 1, Hours: in.Hours, Date: in.Date}, nil
		},
	}
	w, _ := do(t, newTestServer(mock), http.MethodPost, "/api/time-entries", map[string]any{
		"task_id": 2, "hours": 1.5, "date": "2026-05-04",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1.5, got.Hours)
	assert.Equal(t, "2026-05-04", got.Date.Format(time.DateOnly))

	w, _ = do(t, newTestServer(mock), http.MethodPost, "/api/time-entries", map[string]any{"hours": 1, "date": "May 4"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWeeks(t *testing.T) {
	mock := &MockService{
		FetchTimeEntriesFunc: func(ctx context.Context) ([]models.TimeEntry, error) {
			return []models.TimeEntry{
				{ID: 1, Hours: 2, Date: time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC)},
				{ID: 2, Hours: 1, Date: time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)},
			}, nil
		},
	}
	w, env := do(t, newTestServer(mock), http.MethodGet, "/api/time-entries/weeks", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var weeks []struct {
		Number     int     `json:"number"`
		TotalHours float64 `json:"total_hours"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &weeks))
	require.Len(t, weeks, 1)
	assert.Equal(t, 19, weeks[0].Number)
	assert.Equal(t, 3.0, weeks[0].TotalHours)
}

func TestWeeksWithoutEntriesShowsCurrentWeek(t *testing.T) {
	w, env := do(t, newTestServer(&MockService{}), http.MethodGet, "/api/time-entries/weeks", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var weeks []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &weeks))
	require.Len(t, weeks, 1)
	assert.Equal(t, float64(19), weeks[0]["number"])
	assert.Equal(t, float64(0), weeks[0]["total_hours"])
}

func TestExport(t *testing.T) {
	w, _ := do(t, newTestServer(&MockService{}), http.MethodGet, "/api/time-entries/export", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"2026-W19"}, f.GetSheetList())
}

func TestRevisionFollowsChanges(t *testing.T) {
	mock := &MockService{}
	s := newTestServer(mock)

	_, env := do(t, s, http.MethodGet, "/api/revision", nil)
	assert.JSONEq(t, `{"revision":0}`, string(env.Data))

	mock.notify()
	mock.notify()
	_, env = do(t, s, http.MethodGet, "/api/revision", nil)
	assert.JSONEq(t, `{"revision":2}`, string(env.Data))
}

func TestReorderWithoutDestinationWritesNothing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	log, _ := test.NewNullLogger()
	st := store.New(database, store.WithLogger(log))
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	_, err = st.CreateTask(ctx, store.NewTask{Name: "B"})
	require.NoError(t, err)
	a, err := st.CreateTask(ctx, store.NewTask{Name: "A"})
	require.NoError(t, err)
	for _, name := range []string{"two", "one"} {
		_, err = st.CreateSubtask(ctx, store.NewSubtask{TaskID: a.ID, Name: name})
		require.NoError(t, err)
	}

	s := NewServer(st, log)
	w, _ := do(t, s, http.MethodPost, "/api/tasks/reorder", map[string]int{"from": 1})
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, s, http.MethodPost, fmt.Sprintf("/api/tasks/%d/subtasks/reorder", a.ID), map[string]int{"from": 1})
	assert.Equal(t, http.StatusOK, w.Code)

	tasks, err := st.FetchTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "A", tasks[0].Name)
	assert.Equal(t, 2, tasks[0].PriorityScore)
	assert.Equal(t, "B", tasks[1].Name)
	assert.Equal(t, 1, tasks[1].PriorityScore)
	require.Len(t, tasks[0].Subtasks, 2)
	assert.Equal(t, "one", tasks[0].Subtasks[0].Name)
	assert.Equal(t, "two", tasks[0].Subtasks[1].Name)

	_, env := do(t, s, http.MethodGet, "/api/revision", nil)
	assert.JSONEq(t, `{"revision":0}`, string(env.Data), "no mutation since the server started")
}
