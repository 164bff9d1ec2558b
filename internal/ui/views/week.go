package views

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/tgienger/taskhours/internal/models"
	"github.com/tgienger/taskhours/internal/timesheet"
	"github.com/tgienger/taskhours/internal/ui/keys"
	"github.com/tgienger/taskhours/internal/ui/styles"
)

type entriesLoadedMsg struct {
	entries []models.TimeEntry
}

// WeekView shows logged hours one ISO week at a time
type WeekView struct {
	ctx    context.Context
	store  Store
	styles *styles.Styles
	keys   keys.KeyMap
	now    func() time.Time

	// exportPath is where x writes the workbook
	exportPath string

	width  int
	height int

	weeks  []timesheet.Week
	week   int // index into weeks, 0 is the newest
	cursor int
	status status

	editing   bool
	editFocus int // 0=hours, 1=description
	editHours textinput.Model
	editDesc  textinput.Model

	confirmingDelete bool
}

// NewWeekView creates the hours view
func NewWeekView(ctx context.Context, st Store) *WeekView {
	editHours := textinput.New()
	editHours.CharLimit = 6

	editDesc := textinput.New()
	editDesc.Placeholder = "Description"
	editDesc.CharLimit = 500

	return &WeekView{
		ctx:        ctx,
		store:      st,
		styles:     styles.NewStyles(),
		keys:       keys.DefaultKeyMap(),
		now:        time.Now,
		exportPath: "taskhours-timesheet.xlsx",
		editHours:  editHours,
		editDesc:   editDesc,
	}
}

func (v *WeekView) Init() tea.Cmd {
	ctx, st := v.ctx, v.store
	return func() tea.Msg {
		entries, err := st.FetchTimeEntries(ctx)
		if err != nil {
			return loadFailedMsg{source: "week", err: err}
		}
		return entriesLoadedMsg{entries: entries}
	}
}

// Capturing reports whether keys belong to a form or dialog
func (v *WeekView) Capturing() bool {
	return v.editing || v.confirmingDelete
}

func (v *WeekView) current() timesheet.Week {
	if v.week < len(v.weeks) {
		return v.weeks[v.week]
	}
	return timesheet.CurrentWeek(v.now())
}

func (v *WeekView) selected() (models.TimeEntry, bool) {
	entries := v.current().Entries
	if v.cursor < 0 || v.cursor >= len(entries) {
		return models.TimeEntry{}, false
	}
	return entries[v.cursor], true
}

func (v *WeekView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil

	case entriesLoadedMsg:
		shown := v.current().Key()
		v.weeks = timesheet.GroupByWeek(msg.entries, v.now())
		v.week = 0
		for i, w := range v.weeks {
			if w.Key() == shown {
				v.week = i
				break
			}
		}
		v.cursor = clamp(v.cursor, 0, max(0, len(v.current().Entries)-1))
		return v, nil

	case loadFailedMsg:
		if msg.source == "week" {
			v.status.fail("Loading hours failed", msg.err)
		}
		return v, nil

	case tea.KeyMsg:
		switch {
		case v.confirmingDelete:
			return v, v.updateConfirmDelete(msg)
		case v.editing:
			return v, v.updateEditing(msg)
		}
		return v, v.updateNormal(msg)
	}
	return v, nil
}

func (v *WeekView) updateNormal(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, v.keys.Left):
		if v.week < len(v.weeks)-1 {
			v.week++
			v.cursor = 0
		}
	case key.Matches(msg, v.keys.Right):
		if v.week > 0 {
			v.week--
			v.cursor = 0
		}
	case key.Matches(msg, v.keys.Up):
		v.cursor = max(0, v.cursor-1)
	case key.Matches(msg, v.keys.Down):
		v.cursor = clamp(v.cursor+1, 0, max(0, len(v.current().Entries)-1))

	case key.Matches(msg, v.keys.Edit):
		if e, ok := v.selected(); ok {
			v.editing = true
			v.editFocus = 0
			v.editHours.SetValue(timesheet.FormatHours(e.Hours))
			v.editDesc.SetValue(e.Description)
			v.editDesc.Blur()
			v.editHours.Focus()
			v.status.clear()
			return textinput.Blink
		}

	case key.Matches(msg, v.keys.Delete):
		if _, ok := v.selected(); ok {
			v.confirmingDelete = true
		}

	case key.Matches(msg, v.keys.Export):
		return v.export()
	}
	return nil
}

func (v *WeekView) updateEditing(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.editing = false
		return nil
	case key.Matches(msg, v.keys.Save), key.Matches(msg, v.keys.Enter):
		return v.saveEdit()
	case key.Matches(msg, v.keys.Tab), key.Matches(msg, v.keys.ShiftTab):
		v.editFocus = 1 - v.editFocus
		if v.editFocus == 0 {
			v.editDesc.Blur()
			v.editHours.Focus()
		} else {
			v.editHours.Blur()
			v.editDesc.Focus()
		}
		return nil
	}

	var cmd tea.Cmd
	if v.editFocus == 0 {
		v.editHours, cmd = v.editHours.Update(msg)
	} else {
		v.editDesc, cmd = v.editDesc.Update(msg)
	}
	return cmd
}

func (v *WeekView) saveEdit() tea.Cmd {
	e, ok := v.selected()
	if !ok {
		v.editing = false
		return nil
	}
	hours, err := strconv.ParseFloat(strings.TrimSpace(v.editHours.Value()), 64)
	if err != nil {
		v.status.fail("Invalid hours", fmt.Errorf("hours must be a number"))
		return nil
	}

	err = v.store.UpdateTimeEntry(v.ctx, models.Fields{
		models.ColID:          e.ID,
		models.ColHours:       hours,
		models.ColDescription: strings.TrimSpace(v.editDesc.Value()),
	})
	if err != nil {
		v.status.fail("Save failed", err)
		return nil
	}
	v.editing = false
	v.status.set("Entry updated")
	return v.Init()
}

func (v *WeekView) updateConfirmDelete(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, v.keys.Confirm):
		v.confirmingDelete = false
		e, ok := v.selected()
		if !ok {
			return nil
		}
		if err := v.store.DeleteTimeEntry(v.ctx, e.ID); err != nil {
			v.status.fail("Delete failed", err)
			return nil
		}
		v.status.set("Entry deleted")
		return v.Init()
	case key.Matches(msg, v.keys.Deny):
		v.confirmingDelete = false
	}
	return nil
}

func (v *WeekView) export() tea.Cmd {
	f, err := os.Create(v.exportPath)
	if err != nil {
		v.status.fail("Export failed", err)
		return nil
	}
	err = timesheet.ExportXLSX(f, v.weeks)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		v.status.fail("Export failed", err)
		return nil
	}
	v.status.set("Exported %d week(s) to %s", len(v.weeks), v.exportPath)
	return nil
}

// View renders the view
func (v *WeekView) View() string {
	s := v.styles
	if v.confirmingDelete {
		e, _ := v.selected()
		return renderConfirm(s, v.width, v.height-2, "time entry",
			fmt.Sprintf("%sh on %s", timesheet.FormatHours(e.Hours), e.Label()))
	}

	week := v.current()
	var b strings.Builder
	b.WriteString(s.Title.Render(week.Title()))
	b.WriteString("  " + s.TitleMuted.Render(week.Range()))
	b.WriteString(fmt.Sprintf("  %s %s", s.Badge.Render(timesheet.FormatHours(week.TotalHours)+"h"),
		s.TitleMuted.Render(fmt.Sprintf("(%d/%d)", v.week+1, max(1, len(v.weeks))))))
	b.WriteString("\n\n")

	if len(week.Entries) == 0 {
		b.WriteString(s.TitleMuted.Render("No time logged this week. Press 't' on a task to log some."))
	} else {
		b.WriteString(v.renderTable(week))
	}
	b.WriteString("\n")

	if v.editing {
		hoursStyle, descStyle := s.InputFocused, s.Input
		if v.editFocus == 1 {
			hoursStyle, descStyle = s.Input, s.InputFocused
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			hoursStyle.Width(10).Render(v.editHours.View()), " ",
			descStyle.Width(clamp(styles.ContentWidth(v.width)-16, 20, 60)).Render(v.editDesc.View())))
		b.WriteString("\n")
	}
	if line := v.status.render(s); line != "" {
		b.WriteString(line + "\n")
	}

	if v.editing {
		b.WriteString(helpLine(s, "tab", "field", "↵/ctrl+s", "save", "esc", "cancel"))
	} else {
		b.WriteString(helpLine(s, "←/→", "week", "↑↓", "entry", "e", "edit", "d", "delete", "x", "export xlsx", "q", "quit"))
	}
	return b.String()
}

func (v *WeekView) renderTable(week timesheet.Week) string {
	s := v.styles
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(styles.Current.Border)).
		Headers("Title", "Description", "Hours", "Date").
		Width(styles.ContentWidth(v.width))

	for _, e := range week.Entries {
		t.Row(e.Label(), e.Description, timesheet.FormatHours(e.Hours), e.Date.Format("Mon 2 Jan"))
	}

	t.StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return s.Title.Padding(0, 1)
		case row == v.cursor:
			return s.RowSelected
		}
		return s.Row
	})
	return t.Render()
}
