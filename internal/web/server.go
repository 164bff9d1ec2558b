// Package web serves the data access layer as a JSON API.
package web

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tgienger/taskhours/internal/models"
	"github.com/tgienger/taskhours/internal/store"
)

// Service is the part of *store.Store the API exposes
type Service interface {
	FetchTasks(ctx context.Context) ([]models.Task, error)
	FetchArchivedTasks(ctx context.Context) ([]models.Task, error)
	CreateTask(ctx context.Context, in store.NewTask) (models.Task, error)
	UpdateTask(ctx context.Context, fields models.Fields) error
	DeleteTask(ctx context.Context, id int64) error
	ReorderTasks(ctx context.Context, tasks []models.Task, from, to int) error

	CreateSubtask(ctx context.Context, in store.NewSubtask) (models.Subtask, error)
	UpdateSubtask(ctx context.Context, fields models.Fields) error
	DeleteSubtask(ctx context.Context, id int64) error
	ReorderSubtasks(ctx context.Context, subtasks []models.Subtask, from, to int) error

	CreateNote(ctx context.Context, in store.NewNote) (models.Note, error)
	UpdateNote(ctx context.Context, id int64, content string) error
	DeleteNote(ctx context.Context, id int64) error

	FetchTimeEntries(ctx context.Context) ([]models.TimeEntry, error)
	CreateTimeEntry(ctx context.Context, in store.NewTimeEntry) (models.TimeEntry, error)
	UpdateTimeEntry(ctx context.Context, fields models.Fields) error
	DeleteTimeEntry(ctx context.Context, id int64) error

	OnChange(fn func())
}

// Server is the taskhours HTTP API
type Server struct {
	svc    Service
	log    logrus.FieldLogger
	router *gin.Engine
	now    func() time.Time

	// revision counts successful mutations so clients know when to refetch
	revision atomic.Int64
}

// NewServer creates a server and registers its routes
func NewServer(svc Service, log logrus.FieldLogger) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	s := &Server{
		svc:    svc,
		log:    log,
		router: router,
		now:    time.Now,
	}
	svc.OnChange(func() { s.revision.Add(1) })

	api := router.Group("/api")
	{
		api.GET("/revision", s.handleRevision)

		api.GET("/tasks", s.handleListTasks)
		api.GET("/tasks/archived", s.handleListArchived)
		api.POST("/tasks", s.handleCreateTask)
		api.PATCH("/tasks/:id", s.handleUpdateTask)
		api.DELETE("/tasks/:id", s.handleDeleteTask)
		api.POST("/tasks/reorder", s.handleReorderTasks)
		api.POST("/tasks/:id/subtasks/reorder", s.handleReorderSubtasks)

		api.POST("/subtasks", s.handleCreateSubtask)
		api.PATCH("/subtasks/:id", s.handleUpdateSubtask)
		api.DELETE("/subtasks/:id", s.handleDeleteSubtask)

		api.POST("/notes", s.handleCreateNote)
		api.PATCH("/notes/:id", s.handleUpdateNote)
		api.DELETE("/notes/:id", s.handleDeleteNote)

		api.GET("/time-entries", s.handleListTimeEntries)
		api.GET("/time-entries/weeks", s.handleWeeks)
		api.GET("/time-entries/export", s.handleExport)
		api.POST("/time-entries", s.handleCreateTimeEntry)
		api.PATCH("/time-entries/:id", s.handleUpdateTimeEntry)
		api.DELETE("/time-entries/:id", s.handleDeleteTimeEntry)
	}

	return s
}

// Handler returns the router for use in tests or another server
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on addr until ctx is done, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("http api listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request")
	}
}
