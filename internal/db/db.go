package db

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/tgienger/taskhours/internal/backend"
)

//go:embed schema.sql
var sqliteSchema string

//go:embed schema_postgres.sql
var postgresSchema string

// dialect captures what differs between the SQL engines we speak to
type dialect struct {
	name   string
	driver string
	schema string
	// placeholder renders the n-th (1-based) bind parameter
	placeholder func(n int) string
}

var (
	sqliteDialect = dialect{
		name:        "sqlite",
		driver:      "sqlite3",
		schema:      sqliteSchema,
		placeholder: func(int) string { return "?" },
	}
	postgresDialect = dialect{
		name:        "postgres",
		driver:      "pgx",
		schema:      postgresSchema,
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	}
)

// DB wraps the database connection and implements backend.Backend
type DB struct {
	*sql.DB
	dialect dialect
}

var _ backend.Backend = (*DB)(nil)

// OpenSQLite opens (creating if needed) a SQLite database file and initializes the schema
func OpenSQLite(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return open(sqliteDialect, path+"?_foreign_keys=on")
}

// OpenPostgres connects to a Postgres database and initializes the schema
func OpenPostgres(url string) (*DB, error) {
	return open(postgresDialect, url)
}

func open(d dialect, dsn string) (*DB, error) {
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, err
	}

	// Initialize schema
	if _, err := db.Exec(d.schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init %s schema: %w", d.name, err)
	}

	return &DB{DB: db, dialect: d}, nil
}

// DefaultPath returns the path to the local database file
func DefaultPath() (string, error) {
	// Use XDG data directory or fallback to home directory
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, ".local", "share")
	}

	return filepath.Join(dataDir, "taskhours", "taskhours.db"), nil
}

// Dialect returns the engine name, "sqlite" or "postgres"
func (db *DB) Dialect() string {
	return db.dialect.name
}

// List returns the rows of a table matching every filter, in the requested order
func (db *DB) List(ctx context.Context, table string, q backend.Query) ([]backend.Row, error) {
	if err := backend.CheckQuery(table, q); err != nil {
		return nil, err
	}
	cols, _ := backend.Columns(table)

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", columnList(cols), table)
	where, args := db.where(q.Filters, 1)
	b.WriteString(where)

	if len(q.Order) > 0 {
		terms := make([]string, len(q.Order))
		for i, o := range q.Order {
			terms[i] = quote(o.Column)
			if o.Desc {
				terms[i] += " DESC"
			} else {
				terms[i] += " ASC"
			}
		}
		b.WriteString(" ORDER BY " + strings.Join(terms, ", "))
	}

	rows, err := db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []backend.Row
	for rows.Next() {
		r, err := scanRow(rows, cols)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get retrieves a row by id
func (db *DB) Get(ctx context.Context, table string, id int64) (backend.Row, error) {
	cols, err := backend.Columns(table)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = %s", columnList(cols), table, db.dialect.placeholder(1))
	rows, err := db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s %d", backend.ErrNotFound, table, id)
	}
	return scanRow(rows, cols)
}

// Insert creates a row and returns it as stored, defaults included
func (db *DB) Insert(ctx context.Context, table string, values backend.Row) (backend.Row, error) {
	if err := backend.CheckValues(table, values); err != nil {
		return nil, err
	}

	var query string
	var args []any
	if len(values) == 0 {
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING id", table)
	} else {
		keys := backend.SortedKeys(values)
		marks := make([]string, len(keys))
		for i, k := range keys {
			marks[i] = db.dialect.placeholder(i + 1)
			args = append(args, bindValue(values[k]))
		}
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
			table, columnList(keys), strings.Join(marks, ", "))
	}

	var id int64
	if err := db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return nil, err
	}

	return db.Get(ctx, table, id)
}

// Update applies a partial set of column values to the row with the given id.
// Updating a missing id is not an error.
func (db *DB) Update(ctx context.Context, table string, id int64, values backend.Row) error {
	if err := backend.CheckValues(table, values); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	keys := backend.SortedKeys(values)
	sets := make([]string, len(keys))
	args := make([]any, 0, len(keys)+1)
	for i, k := range keys {
		sets[i] = quote(k) + " = " + db.dialect.placeholder(i+1)
		args = append(args, bindValue(values[k]))
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = %s",
		table, strings.Join(sets, ", "), db.dialect.placeholder(len(keys)+1))
	_, err := db.ExecContext(ctx, query, args...)
	return err
}

// Delete removes every row matching all filters
func (db *DB) Delete(ctx context.Context, table string, filters ...backend.Filter) error {
	if err := backend.CheckFilters(table, filters); err != nil {
		return err
	}

	where, args := db.where(filters, 1)
	_, err := db.ExecContext(ctx, "DELETE FROM "+table+where, args...)
	return err
}

// where renders a WHERE clause, numbering placeholders from start
func (db *DB) where(filters []backend.Filter, start int) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}

	var args []any
	terms := make([]string, len(filters))
	n := start
	for i, f := range filters {
		if f.Value == nil {
			terms[i] = quote(f.Column) + " IS NULL"
			continue
		}
		terms[i] = quote(f.Column) + " = " + db.dialect.placeholder(n)
		args = append(args, bindValue(f.Value))
		n++
	}
	return " WHERE " + strings.Join(terms, " AND "), args
}

func scanRow(rows *sql.Rows, cols []string) (backend.Row, error) {
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	r := make(backend.Row, len(cols))
	for i, c := range cols {
		r[c] = vals[i]
	}
	return r, nil
}

// bindValue unwraps nullable pointers so drivers see plain values or NULL
func bindValue(v any) any {
	switch p := v.(type) {
	case *int64:
		if p == nil {
			return nil
		}
		return *p
	case *string:
		if p == nil {
			return nil
		}
		return *p
	case *time.Time:
		if p == nil {
			return nil
		}
		return *p
	}
	return v
}

func columnList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c)
	}
	return strings.Join(quoted, ", ")
}

func quote(col string) string {
	return `"` + col + `"`
}

// IsConstraint reports whether err is a foreign key or check violation
func IsConstraint(err error) bool {
	if err == nil {
		return false
	}
	var target interface{ SQLState() string }
	if errors.As(err, &target) {
		return strings.HasPrefix(target.SQLState(), "23")
	}
	return strings.Contains(err.Error(), "constraint failed")
}
