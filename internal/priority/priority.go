// Package priority reassigns priority scores after an item in an ordered
// sibling list is moved to a new position.
//
// Scores are descending: the item at position i of n gets score n-i, so the
// first item holds the highest score and lists are read ordered by score
// descending.
package priority

import (
	"errors"
	"fmt"
	"sort"
)

// ErrIndexOutOfRange is returned when a move refers to a position outside the list
var ErrIndexOutOfRange = errors.New("priority: index out of range")

// NoDestination marks a move that was dropped outside the list
const NoDestination = -1

// Item is one sibling in display order
type Item struct {
	ID    int64
	Score int
}

// Assignment is the score an item should be stored with
type Assignment struct {
	ID    int64
	Score int
}

// Reorder moves the item at from to position to and returns a score for
// every item in the list. A negative destination means the move was dropped
// outside the list and yields no assignments. Moving an item onto its own
// position returns the current scores untouched.
func Reorder(items []Item, from, to int) ([]Assignment, error) {
	if to < 0 {
		return nil, nil
	}
	if from < 0 || from >= len(items) || to >= len(items) {
		return nil, fmt.Errorf("%w: move %d -> %d in list of %d", ErrIndexOutOfRange, from, to, len(items))
	}

	if from == to {
		out := make([]Assignment, len(items))
		for i, it := range items {
			out[i] = Assignment{ID: it.ID, Score: it.Score}
		}
		return out, nil
	}

	moved := Move(items, from, to)
	ids := make([]int64, len(moved))
	for i, it := range moved {
		ids[i] = it.ID
	}
	return Renumber(ids), nil
}

// Renumber assigns descending scores to ids in the given order
func Renumber(ids []int64) []Assignment {
	n := len(ids)
	out := make([]Assignment, n)
	for i, id := range ids {
		out[i] = Assignment{ID: id, Score: n - i}
	}
	return out
}

// Move returns a copy of s with the element at from removed and reinserted at to
func Move[T any](s []T, from, to int) []T {
	out := make([]T, 0, len(s))
	out = append(out, s[:from]...)
	out = append(out, s[from+1:]...)

	moved := s[from]
	out = append(out, moved) // grow by one, then shift the tail right
	copy(out[to+1:], out[to:len(out)-1])
	out[to] = moved
	return out
}

// Changed filters assignments down to those that differ from the stored scores
func Changed(items []Item, assignments []Assignment) []Assignment {
	current := make(map[int64]int, len(items))
	for _, it := range items {
		current[it.ID] = it.Score
	}

	var out []Assignment
	for _, a := range assignments {
		if score, ok := current[a.ID]; ok && score == a.Score {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Order returns the ids sorted the way a list fetch orders them:
// score descending, ties keeping their relative input order
func Order(assignments []Assignment) []int64 {
	sorted := append([]Assignment(nil), assignments...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	ids := make([]int64, len(sorted))
	for i, a := range sorted {
		ids[i] = a.ID
	}
	return ids
}
