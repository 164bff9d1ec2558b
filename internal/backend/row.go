package backend

import (
	"math"
	"strconv"
	"time"
)

// Row is one record keyed by column name. Accessors accept the value
// shapes produced by SQL drivers as well as by JSON decoding.
type Row map[string]any

// timeLayouts covers RFC 3339 from JSON, SQLite's default text format and bare dates
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Int64 returns the column as an integer, 0 when missing or NULL
func (r Row) Int64(col string) int64 {
	n, _ := r.NullInt64(col)
	if n == nil {
		return 0
	}
	return *n
}

// Int returns the column as an int
func (r Row) Int(col string) int {
	return int(r.Int64(col))
}

// NullInt64 returns the column as a nullable integer
func (r Row) NullInt64(col string) (*int64, bool) {
	switch v := r[col].(type) {
	case int64:
		return &v, true
	case int:
		n := int64(v)
		return &n, true
	case int32:
		n := int64(v)
		return &n, true
	case float64:
		n := int64(math.Round(v))
		return &n, true
	case []byte:
		if n, err := strconv.ParseInt(string(v), 10, 64); err == nil {
			return &n, true
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return &n, true
		}
	}
	return nil, false
}

// Float64 returns the column as a float, 0 when missing or NULL
func (r Row) Float64(col string) float64 {
	switch v := r[col].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case []byte:
		f, _ := strconv.ParseFloat(string(v), 64)
		return f
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	}
	return 0
}

// String returns the column as a string, "" when missing or NULL
func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}

// Bool returns the column as a boolean, false when missing or NULL
func (r Row) Bool(col string) bool {
	switch v := r[col].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	case float64:
		return v != 0
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	case []byte:
		b, _ := strconv.ParseBool(string(v))
		return b
	}
	return false
}

// Time returns the column as a time, the zero time when missing or NULL
func (r Row) Time(col string) time.Time {
	if t := r.NullTime(col); t != nil {
		return *t
	}
	return time.Time{}
}

// NullTime returns the column as a nullable time
func (r Row) NullTime(col string) *time.Time {
	switch v := r[col].(type) {
	case time.Time:
		return &v
	case string:
		return parseTime(v)
	case []byte:
		return parseTime(string(v))
	}
	return nil
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
