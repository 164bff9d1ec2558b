package store

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tgienger/taskhours/internal/backend"
	"github.com/tgienger/taskhours/internal/models"
)

// NewNote is the input for CreateNote
type NewNote struct {
	Owner   models.NoteOwner
	Content string
}

// CreateNote attaches a note to exactly one task or subtask
func (s *Store) CreateNote(ctx context.Context, in NewNote) (models.Note, error) {
	if !in.Owner.Valid() {
		return models.Note{}, invalid("owner", "a note belongs to exactly one task or subtask")
	}
	if strings.TrimSpace(in.Content) == "" {
		return models.Note{}, invalid(models.ColContent, "a note needs content")
	}

	values := backend.Row{
		models.ColContent:   in.Content,
		models.ColTaskID:    nil,
		models.ColSubtaskID: nil,
	}
	if in.Owner.TaskID != nil {
		values[models.ColTaskID] = *in.Owner.TaskID
	} else {
		values[models.ColSubtaskID] = *in.Owner.SubtaskID
	}

	row, err := s.backend.Insert(ctx, backend.Notes, values)
	if err != nil {
		return models.Note{}, s.failed("create note", err, nil)
	}
	n := noteFromRow(row)
	s.changed("note created", logrus.Fields{"note": n.ID})
	return n, nil
}

// UpdateNote replaces the content of a note
func (s *Store) UpdateNote(ctx context.Context, id int64, content string) error {
	if id <= 0 {
		return invalid(models.ColID, "an update needs the note id")
	}
	if strings.TrimSpace(content) == "" {
		return invalid(models.ColContent, "a note needs content")
	}
	if err := s.backend.Update(ctx, backend.Notes, id, backend.Row{models.ColContent: content}); err != nil {
		return s.failed("update note", err, logrus.Fields{"note": id})
	}
	s.changed("note updated", logrus.Fields{"note": id})
	return nil
}

func (s *Store) DeleteNote(ctx context.Context, id int64) error {
	if err := s.backend.Delete(ctx, backend.Notes, backend.Eq(models.ColID, id)); err != nil {
		return s.failed("delete note", err, logrus.Fields{"note": id})
	}
	s.changed("note deleted", logrus.Fields{"note": id})
	return nil
}

// NotesFor lists the notes of one task or subtask, oldest first
func (s *Store) NotesFor(ctx context.Context, owner models.NoteOwner) ([]models.Note, error) {
	if !owner.Valid() {
		return nil, invalid("owner", "a note belongs to exactly one task or subtask")
	}
	var q backend.Query
	if owner.TaskID != nil {
		q = backend.Where(backend.Eq(models.ColTaskID, *owner.TaskID))
	} else {
		q = backend.Where(backend.Eq(models.ColSubtaskID, *owner.SubtaskID))
	}

	rows, err := s.backend.List(ctx, backend.Notes, oldestFirst(q))
	if err != nil {
		return nil, s.fetchFailed("notes", err)
	}
	notes := make([]models.Note, len(rows))
	for i, r := range rows {
		notes[i] = noteFromRow(r)
	}
	return notes, nil
}
