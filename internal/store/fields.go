package store

import (
	"strings"
	"time"

	"github.com/tgienger/taskhours/internal/backend"
	"github.com/tgienger/taskhours/internal/models"
)

// sanitize drops the id and relation keys from a patch and coerces values
// to the types the columns hold. The input is not modified.
func sanitize(table string, fields models.Fields) (backend.Row, error) {
	out := backend.Row{}
	for col, v := range fields {
		switch col {
		case models.ColID, models.RelSubtasks, models.RelNotes:
			continue
		}
		if !backend.HasColumn(table, col) {
			return nil, invalid(col, "not a column of %s", table)
		}

		cv, err := coerce(col, v)
		if err != nil {
			return nil, err
		}
		out[col] = cv
	}
	return out, nil
}

func coerce(col string, v any) (any, error) {
	switch col {
	case models.ColPriorityScore, models.ColProgress:
		n, ok := models.AsInt64(v)
		if !ok {
			return nil, invalid(col, "expected a number, got %T", v)
		}
		return int(n), nil

	case models.ColTaskID, models.ColSubtaskID:
		if p, ok := v.(*int64); ok {
			if p == nil {
				return nil, nil
			}
			return *p, nil
		}
		if v == nil {
			return nil, nil
		}
		n, ok := models.AsInt64(v)
		if !ok || n <= 0 {
			return nil, invalid(col, "expected an id, got %v", v)
		}
		return n, nil

	case models.ColHours:
		switch h := v.(type) {
		case float64:
			return h, nil
		case float32:
			return float64(h), nil
		case int:
			return float64(h), nil
		case int64:
			return float64(h), nil
		}
		return nil, invalid(col, "expected a number, got %T", v)

	case models.ColCompleted, models.ColArchived:
		b, ok := v.(bool)
		if !ok {
			return nil, invalid(col, "expected a boolean, got %T", v)
		}
		return b, nil

	case models.ColDueDate, models.ColDate, models.ColCreatedAt:
		return coerceTime(col, v)

	default:
		s, ok := v.(string)
		if !ok {
			return nil, invalid(col, "expected text, got %T", v)
		}
		return s, nil
	}
}

func coerceTime(col string, v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case *time.Time:
		if t == nil {
			return nil, nil
		}
		return *t, nil
	case time.Time:
		return t, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, nil
		}
		if d, err := time.Parse(time.DateOnly, t); err == nil {
			return d, nil
		}
		if d, err := time.Parse(time.RFC3339, t); err == nil {
			return d, nil
		}
		return nil, invalid(col, "unrecognised date %q", t)
	}
	return nil, invalid(col, "expected a date, got %T", v)
}

// Day truncates t to its calendar date at midnight UTC
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validIcon(icon string) bool {
	for _, i := range models.Icons {
		if i == icon {
			return true
		}
	}
	return false
}
