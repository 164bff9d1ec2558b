// Package timesheet groups logged hours into calendar weeks and exports them.
package timesheet

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/tgienger/taskhours/internal/models"
)

// Week is the hours logged between a Monday and the following Sunday
type Week struct {
	Year       int                `json:"year"`
	Number     int                `json:"number"`
	Start      time.Time          `json:"start"`
	End        time.Time          `json:"end"`
	Entries    []models.TimeEntry `json:"entries"`
	TotalHours float64            `json:"total_hours"`
}

// Title is the heading a week is shown under, e.g. "Week 19"
func (w Week) Title() string {
	return fmt.Sprintf("Week %d", w.Number)
}

// Range renders the first and last day, e.g. "4 May - 10 May 2026"
func (w Week) Range() string {
	return w.Start.Format("2 Jan") + " - " + w.End.Format("2 Jan 2006")
}

// Key sorts weeks chronologically, e.g. "2026-W19"
func (w Week) Key() string {
	return fmt.Sprintf("%04d-W%02d", w.Year, w.Number)
}

// StartOfWeek returns the Monday of t's ISO week at midnight in t's location
func StartOfWeek(t time.Time) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7 // days since Monday
	return day.AddDate(0, 0, -offset)
}

// CurrentWeek returns the empty week containing now
func CurrentWeek(now time.Time) Week {
	return newWeek(now)
}

func newWeek(t time.Time) Week {
	start := StartOfWeek(t)
	year, number := start.ISOWeek()
	return Week{
		Year:    year,
		Number:  number,
		Start:   start,
		End:     start.AddDate(0, 0, 6),
		Entries: []models.TimeEntry{},
	}
}

// GroupByWeek buckets entries into ISO weeks, newest week first. Entries
// keep their input order within a week. Without entries the result is the
// current week with zero hours.
func GroupByWeek(entries []models.TimeEntry, now time.Time) []Week {
	if len(entries) == 0 {
		return []Week{CurrentWeek(now)}
	}

	byKey := map[string]*Week{}
	for _, e := range entries {
		w := newWeek(e.Date)
		key := w.Key()
		if existing, ok := byKey[key]; ok {
			existing.Entries = append(existing.Entries, e)
			existing.TotalHours += e.Hours
			continue
		}
		w.Entries = append(w.Entries, e)
		w.TotalHours = e.Hours
		byKey[key] = &w
	}

	weeks := make([]Week, 0, len(byKey))
	for _, w := range byKey {
		weeks = append(weeks, *w)
	}
	sort.Slice(weeks, func(i, j int) bool {
		return weeks[i].Key() > weeks[j].Key()
	})
	return weeks
}

// FormatHours renders hours without trailing zeros, e.g. "1.5" or "8"
func FormatHours(h float64) string {
	return strconv.FormatFloat(math.Round(h*100)/100, 'f', -1, 64)
}
