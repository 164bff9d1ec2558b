// Package backend defines the collection contract every storage backend
// implements: filtered and ordered list, get by id, insert returning the
// created row, partial update by id and delete by equality filters.
package backend

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Collections
const (
	Tasks       = "tasks"
	Subtasks    = "subtasks"
	Notes       = "notes"
	TimeEntries = "time_entries"
)

var (
	// ErrNotFound is returned by Get when no row has the requested id
	ErrNotFound = errors.New("backend: row not found")
	// ErrUnknownTable is returned for a collection outside the schema
	ErrUnknownTable = errors.New("backend: unknown table")
	// ErrUnknownColumn is returned when a filter, order or value names a column the table does not have
	ErrUnknownColumn = errors.New("backend: unknown column")
	// ErrUnfilteredDelete is returned by Delete when no filter is given
	ErrUnfilteredDelete = errors.New("backend: delete without filter")
)

// Backend is the hosted collection store
type Backend interface {
	List(ctx context.Context, table string, q Query) ([]Row, error)
	Get(ctx context.Context, table string, id int64) (Row, error)
	Insert(ctx context.Context, table string, values Row) (Row, error)
	Update(ctx context.Context, table string, id int64, values Row) error
	Delete(ctx context.Context, table string, filters ...Filter) error
	Close() error
}

// Filter is an equality predicate. A nil Value matches NULL.
type Filter struct {
	Column string
	Value  any
}

// Eq builds an equality filter
func Eq(column string, value any) Filter {
	return Filter{Column: column, Value: value}
}

// Order sorts a list by one column
type Order struct {
	Column string
	Desc   bool
}

// Query narrows and orders a list
type Query struct {
	Filters []Filter
	Order   []Order
}

// Where returns a query with the given filters
func Where(filters ...Filter) Query {
	return Query{Filters: filters}
}

// OrderBy appends an order clause
func (q Query) OrderBy(column string, desc bool) Query {
	q.Order = append(append([]Order(nil), q.Order...), Order{Column: column, Desc: desc})
	return q
}

// columns is the schema of every collection
var columns = map[string][]string{
	Tasks:       {"id", "name", "description", "priority_score", "completed", "progress", "icon", "due_date", "created_at", "archived"},
	Subtasks:    {"id", "task_id", "name", "description", "priority_score", "completed", "progress", "due_date", "archived", "created_at"},
	Notes:       {"id", "content", "created_at", "task_id", "subtask_id"},
	TimeEntries: {"id", "task_id", "subtask_id", "hours", "date", "description", "created_at"},
}

// Columns returns the column names of a table
func Columns(table string) ([]string, error) {
	cols, ok := columns[table]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return cols, nil
}

// HasColumn reports whether table has column
func HasColumn(table, column string) bool {
	for _, c := range columns[table] {
		if c == column {
			return true
		}
	}
	return false
}

// CheckQuery validates every column a query refers to
func CheckQuery(table string, q Query) error {
	if _, err := Columns(table); err != nil {
		return err
	}
	for _, f := range q.Filters {
		if !HasColumn(table, f.Column) {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, f.Column)
		}
	}
	for _, o := range q.Order {
		if !HasColumn(table, o.Column) {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, o.Column)
		}
	}
	return nil
}

// CheckFilters validates the columns of delete filters.
// A delete must be narrowed by at least one filter.
func CheckFilters(table string, filters []Filter) error {
	if len(filters) == 0 {
		return fmt.Errorf("%w: %s", ErrUnfilteredDelete, table)
	}
	return CheckQuery(table, Query{Filters: filters})
}

// CheckValues validates the columns of an insert or update payload.
// The id column is never writable.
func CheckValues(table string, values Row) error {
	if _, err := Columns(table); err != nil {
		return err
	}
	for col := range values {
		if col == "id" || !HasColumn(table, col) {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, col)
		}
	}
	return nil
}

// SortedKeys returns the payload columns in a stable order
func SortedKeys(values Row) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
