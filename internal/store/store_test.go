package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"github.com/tgienger/taskhours/internal/backend"
	"github.com/tgienger/taskhours/internal/db"
)

var errInjected = errors.New("injected failure")

// call is one backend call as seen by the recorder
type call struct {
	Method string
	Table  string
	ID     int64
	Values backend.Row
}

// recorder wraps a real backend, records every call and can fail chosen ones
type recorder struct {
	backend.Backend

	mu    sync.Mutex
	calls []call
	// fail returns a non-nil error to make the call fail without reaching the backend
	fail func(c call, n int) error
}

func (r *recorder) record(c call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
	if r.fail != nil {
		return r.fail(c, len(r.calls))
	}
	return nil
}

func (r *recorder) List(ctx context.Context, table string, q backend.Query) ([]backend.Row, error) {
	if err := r.record(call{Method: "List", Table: table}); err != nil {
		return nil, err
	}
	return r.Backend.List(ctx, table, q)
}

func (r *recorder) Get(ctx context.Context, table string, id int64) (backend.Row, error) {
	if err := r.record(call{Method: "Get", Table: table, ID: id}); err != nil {
		return nil, err
	}
	return r.Backend.Get(ctx, table, id)
}

func (r *recorder) Insert(ctx context.Context, table string, values backend.Row) (backend.Row, error) {
	if err := r.record(call{Method: "Insert", Table: table, Values: values}); err != nil {
		return nil, err
	}
	return r.Backend.Insert(ctx, table, values)
}

func (r *recorder) Update(ctx context.Context, table string, id int64, values backend.Row) error {
	if err := r.record(call{Method: "Update", Table: table, ID: id, Values: values}); err != nil {
		return err
	}
	return r.Backend.Update(ctx, table, id, values)
}

func (r *recorder) Delete(ctx context.Context, table string, filters ...backend.Filter) error {
	if err := r.record(call{Method: "Delete", Table: table}); err != nil {
		return err
	}
	return r.Backend.Delete(ctx, table, filters...)
}

// reset forgets the calls made so far, typically after fixtures are in place
func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *recorder) recorded() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

func (r *recorder) mutations() []call {
	var out []call
	for _, c := range r.recorded() {
		if c.Method != "List" && c.Method != "Get" {
			out = append(out, c)
		}
	}
	return out
}

// createTestStore opens a store over a fresh SQLite database in a temp dir
func createTestStore(t *testing.T) (*Store, *recorder) {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	rec := &recorder{Backend: database}

	logger, _ := test.NewNullLogger()
	s := New(rec, WithLogger(logger))
	t.Cleanup(func() { s.Close() })
	return s, rec
}

func intPtr(n int) *int { return &n }
