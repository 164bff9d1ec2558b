package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tgienger/taskhours/internal/backend"
	"github.com/tgienger/taskhours/internal/db"
	"github.com/tgienger/taskhours/internal/models"
	"github.com/tgienger/taskhours/internal/priority"
	"github.com/tgienger/taskhours/internal/store"
	"github.com/tgienger/taskhours/internal/timesheet"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type createTaskRequest struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Icon          string  `json:"icon"`
	PriorityScore *int    `json:"priority_score"`
	Progress      int     `json:"progress"`
	Completed     bool    `json:"completed"`
	DueDate       *string `json:"due_date"`
}

type createSubtaskRequest struct {
	TaskID        int64   `json:"task_id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	PriorityScore *int    `json:"priority_score"`
	DueDate       *string `json:"due_date"`
}

type noteRequest struct {
	TaskID    *int64 `json:"task_id"`
	SubtaskID *int64 `json:"subtask_id"`
	Content   string `json:"content"`
}

type createTimeEntryRequest struct {
	TaskID      *int64  `json:"task_id"`
	SubtaskID   *int64  `json:"subtask_id"`
	Hours       float64 `json:"hours"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
}

type reorderRequest struct {
	From int  `json:"from"`
	To   *int `json:"to"`
}

// destination is the target position; a missing "to" is a drop outside the
// list and moves nothing
func (r reorderRequest) destination() int {
	if r.To == nil {
		return priority.NoDestination
	}
	return *r.To
}

func (s *Server) handleRevision(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"revision": s.revision.Load()})
}

// Tasks

func (s *Server) handleListTasks(c *gin.Context) {
	tasks, err := s.svc.FetchTasks(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, tasks)
}

func (s *Server) handleListArchived(c *gin.Context) {
	tasks, err := s.svc.FetchArchivedTasks(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if !bind(c, &req) {
		return
	}
	due, err := parseDate(req.DueDate)
	if err != nil {
		badRequest(c, err)
		return
	}

	task, err := s.svc.CreateTask(c.Request.Context(), store.NewTask{
		Name:          req.Name,
		Description:   req.Description,
		Icon:          req.Icon,
		PriorityScore: req.PriorityScore,
		Progress:      req.Progress,
		Completed:     req.Completed,
		DueDate:       due,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, task)
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	fields, valid := patch(c)
	if !valid {
		return
	}
	if err := s.svc.UpdateTask(c.Request.Context(), fields); err != nil {
		s.fail(c, err)
		return
	}
	updated(c, fields)
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	if err := s.svc.DeleteTask(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	deleted(c, id)
}

// handleReorderTasks moves the task at position from of the active list to
// position to, as a drag and drop would
func (s *Server) handleReorderTasks(c *gin.Context) {
	var req reorderRequest
	if !bind(c, &req) {
		return
	}
	ctx := c.Request.Context()

	tasks, err := s.svc.FetchTasks(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.svc.ReorderTasks(ctx, tasks, req.From, req.destination()); err != nil {
		s.fail(c, err)
		return
	}

	tasks, err = s.svc.FetchTasks(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, tasks)
}

func (s *Server) handleReorderSubtasks(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	var req reorderRequest
	if !bind(c, &req) {
		return
	}
	ctx := c.Request.Context()

	tasks, err := s.svc.FetchTasks(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	var subtasks []models.Subtask
	found := false
	for _, t := range tasks {
		if t.ID == id {
			subtasks, found = t.Subtasks, true
			break
		}
	}
	if !found {
		notFound(c, "task", id)
		return
	}

	if err := s.svc.ReorderSubtasks(ctx, subtasks, req.From, req.destination()); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Subtasks reordered"})
}

// Subtasks

func (s *Server) handleCreateSubtask(c *gin.Context) {
	var req createSubtaskRequest
	if !bind(c, &req) {
		return
	}
	due, err := parseDate(req.DueDate)
	if err != nil {
		badRequest(c, err)
		return
	}

	sub, err := s.svc.CreateSubtask(c.Request.Context(), store.NewSubtask{
		TaskID:        req.TaskID,
		Name:          req.Name,
		Description:   req.Description,
		PriorityScore: req.PriorityScore,
		DueDate:       due,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, sub)
}

func (s *Server) handleUpdateSubtask(c *gin.Context) {
	fields, valid := patch(c)
	if !valid {
		return
	}
	if err := s.svc.UpdateSubtask(c.Request.Context(), fields); err != nil {
		s.fail(c, err)
		return
	}
	updated(c, fields)
}

func (s *Server) handleDeleteSubtask(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	if err := s.svc.DeleteSubtask(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	deleted(c, id)
}

// Notes

func (s *Server) handleCreateNote(c *gin.Context) {
	var req noteRequest
	if !bind(c, &req) {
		return
	}
	note, err := s.svc.CreateNote(c.Request.Context(), store.NewNote{
		Owner:   models.NoteOwner{TaskID: req.TaskID, SubtaskID: req.SubtaskID},
		Content: req.Content,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, note)
}

func (s *Server) handleUpdateNote(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	var req noteRequest
	if !bind(c, &req) {
		return
	}
	if err := s.svc.UpdateNote(c.Request.Context(), id, req.Content); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id, "message": "Note updated"})
}

func (s *Server) handleDeleteNote(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	if err := s.svc.DeleteNote(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	deleted(c, id)
}

// Time entries

func (s *Server) handleListTimeEntries(c *gin.Context) {
	entries, err := s.svc.FetchTimeEntries(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, entries)
}

func (s *Server) handleWeeks(c *gin.Context) {
	entries, err := s.svc.FetchTimeEntries(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, timesheet.GroupByWeek(entries, s.now()))
}

func (s *Server) handleExport(c *gin.Context) {
	entries, err := s.svc.FetchTimeEntries(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := timesheet.ExportXLSX(&buf, timesheet.GroupByWeek(entries, s.now())); err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="timesheet.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (s *Server) handleCreateTimeEntry(c *gin.Context) {
	var req createTimeEntryRequest
	if !bind(c, &req) {
		return
	}
	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		badRequest(c, fmt.Errorf("date must be YYYY-MM-DD: %q", req.Date))
		return
	}

	entry, err := s.svc.CreateTimeEntry(c.Request.Context(), store.NewTimeEntry{
		TaskID:      req.TaskID,
		SubtaskID:   req.SubtaskID,
		Hours:       req.Hours,
		Date:        date,
		Description: req.Description,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, entry)
}

func (s *Server) handleUpdateTimeEntry(c *gin.Context) {
	fields, valid := patch(c)
	if !valid {
		return
	}
	if err := s.svc.UpdateTimeEntry(c.Request.Context(), fields); err != nil {
		s.fail(c, err)
		return
	}
	updated(c, fields)
}

func (s *Server) handleDeleteTimeEntry(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	if err := s.svc.DeleteTimeEntry(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	deleted(c, id)
}

// Helpers

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func updated(c *gin.Context, fields models.Fields) {
	id, _ := fields.ID()
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id, "message": "Updated"})
}

func deleted(c *gin.Context, id int64) {
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id, "message": "Deleted"})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}

func notFound(c *gin.Context, what string, id int64) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"error":   fmt.Sprintf("%s %d not found", what, id),
	})
}

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, err)
		return false
	}
	return true
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, fmt.Errorf("invalid id %q", c.Param("id")))
		return 0, false
	}
	return id, true
}

// patch reads a partial update body and keys it by the path id
func patch(c *gin.Context) (models.Fields, bool) {
	id, valid := pathID(c)
	if !valid {
		return nil, false
	}
	var body map[string]any
	if !bind(c, &body) {
		return nil, false
	}
	fields := models.Fields(body)
	fields[models.ColID] = id
	return fields, true
}

func parseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := time.Parse(time.DateOnly, *s)
	if err != nil {
		return nil, fmt.Errorf("due_date must be YYYY-MM-DD: %q", *s)
	}
	return &d, nil
}

// fail maps an error to a status: rejected input is the client's fault,
// a failing backend is a bad gateway
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var (
		fe *store.FetchError
		be *store.BackendError
	)
	switch {
	case store.IsValidation(err):
		status = http.StatusBadRequest
	case errors.Is(err, backend.ErrNotFound):
		status = http.StatusNotFound
	case db.IsConstraint(err):
		status = http.StatusConflict
	case errors.As(err, &fe), errors.As(err, &be):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		s.log.WithError(err).WithField("path", c.FullPath()).Warn("request failed")
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}
