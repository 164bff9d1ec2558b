package views

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tgienger/taskhours/internal/models"
	"github.com/tgienger/taskhours/internal/ui/keys"
	"github.com/tgienger/taskhours/internal/ui/styles"
)

// archiveItem is an archived task, or a subtask shown under its task
type archiveItem struct {
	task models.Task
	sub  *models.Subtask
}

func (i archiveItem) name() string {
	if i.sub != nil {
		return i.sub.Name
	}
	return i.task.Name
}

// archived reports whether the item itself is archived rather than shown
// as the parent of an archived subtask
func (i archiveItem) archived() bool {
	if i.sub != nil {
		return i.sub.Archived
	}
	return i.task.Archived
}

func (i archiveItem) FilterValue() string {
	if i.sub != nil {
		return i.task.Name + " " + i.sub.Name
	}
	return i.task.Name
}

type archiveDelegate struct {
	styles *styles.Styles
	width  int
}

func (d archiveDelegate) Height() int                               { return 2 }
func (d archiveDelegate) Spacing() int                              { return 0 }
func (d archiveDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d archiveDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(archiveItem)
	if !ok {
		return
	}
	s := d.styles
	width := max(d.width-4, 20)

	var title, detail string
	if it.sub != nil {
		title = "   └ " + it.sub.Name
		detail = fmt.Sprintf("     %d%% done", it.sub.Progress)
	} else {
		title = styles.IconGlyph(it.task.Icon) + " " + it.task.Name
		detail = fmt.Sprintf("  %d%% done, %d subtask(s)", it.task.Progress, len(it.task.Subtasks))
	}
	if !it.archived() {
		detail += " (active)"
	}

	titleStyle, detailStyle := s.Row.Width(width), s.Row.Foreground(styles.Current.ForegroundDim).Width(width)
	if index == m.Index() {
		titleStyle = s.RowSelected.Width(width)
		detailStyle = s.RowSelected.Foreground(styles.Current.ForegroundDim).Width(width)
	}
	fmt.Fprintf(w, "%s\n%s", titleStyle.Render(title), detailStyle.Render(detail))
}

type archiveLoadedMsg struct {
	tasks []models.Task
}

// ArchiveView lists archived tasks and subtasks for restoring or deleting
type ArchiveView struct {
	ctx      context.Context
	store    Store
	list     list.Model
	delegate *archiveDelegate
	styles   *styles.Styles
	keys     keys.KeyMap
	width    int
	height   int
	loaded   bool
	status   status

	confirmingDelete bool
	deleteTarget     archiveItem
}

// NewArchiveView creates the archive view
func NewArchiveView(ctx context.Context, st Store) *ArchiveView {
	s := styles.NewStyles()
	delegate := &archiveDelegate{styles: s, width: styles.MaxWidth}

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Archive"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = s.Title
	l.SetShowHelp(false)

	return &ArchiveView{
		ctx:      ctx,
		store:    st,
		list:     l,
		delegate: delegate,
		styles:   s,
		keys:     keys.DefaultKeyMap(),
	}
}

func (v *ArchiveView) Init() tea.Cmd {
	ctx, st := v.ctx, v.store
	return func() tea.Msg {
		tasks, err := st.FetchArchivedTasks(ctx)
		if err != nil {
			return loadFailedMsg{source: "archive", err: err}
		}
		return archiveLoadedMsg{tasks: tasks}
	}
}

// Capturing reports whether keys belong to the filter or a dialog
func (v *ArchiveView) Capturing() bool {
	return v.confirmingDelete || v.list.FilterState() == list.Filtering
}

func (v *ArchiveView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		contentWidth := styles.ContentWidth(msg.Width)
		v.delegate.width = contentWidth
		v.list.SetSize(contentWidth-2, max(msg.Height-8, 4))
		return v, nil

	case archiveLoadedMsg:
		var items []list.Item
		for _, t := range msg.tasks {
			items = append(items, archiveItem{task: t})
			for i := range t.Subtasks {
				items = append(items, archiveItem{task: t, sub: &t.Subtasks[i]})
			}
		}
		v.loaded = true
		return v, v.list.SetItems(items)

	case loadFailedMsg:
		if msg.source == "archive" {
			v.status.fail("Loading archive failed", msg.err)
		}
		return v, nil

	case tea.KeyMsg:
		if v.confirmingDelete {
			return v, v.updateConfirmDelete(msg)
		}
		if v.list.FilterState() == list.Filtering {
			break
		}

		item, ok := v.list.SelectedItem().(archiveItem)
		switch {
		case key.Matches(msg, v.keys.Restore) && ok:
			return v, v.restore(item)
		case key.Matches(msg, v.keys.Delete) && ok:
			if item.archived() || item.task.Archived {
				v.confirmingDelete = true
				v.deleteTarget = item
			}
			return v, nil
		}
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

func (v *ArchiveView) restore(it archiveItem) tea.Cmd {
	if !it.archived() {
		v.status.set("%s is not archived", it.name())
		return nil
	}
	var err error
	if it.sub != nil {
		err = v.store.RestoreSubtask(v.ctx, it.sub.ID)
	} else {
		err = v.store.RestoreTask(v.ctx, it.task.ID)
	}
	if err != nil {
		v.status.fail("Restore failed", err)
		return nil
	}
	v.status.set("Restored %s", it.name())
	return v.Init()
}

func (v *ArchiveView) updateConfirmDelete(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, v.keys.Confirm):
		v.confirmingDelete = false
		it := v.deleteTarget
		var err error
		if it.sub != nil {
			err = v.store.DeleteSubtask(v.ctx, it.sub.ID)
		} else {
			err = v.store.DeleteTask(v.ctx, it.task.ID)
		}
		if err != nil {
			v.status.fail("Delete failed", err)
			return nil
		}
		v.status.set("Deleted %s", it.name())
		return v.Init()
	case key.Matches(msg, v.keys.Deny):
		v.confirmingDelete = false
	}
	return nil
}

// View renders the view
func (v *ArchiveView) View() string {
	s := v.styles
	if v.confirmingDelete {
		what := "task"
		if v.deleteTarget.sub != nil {
			what = "subtask"
		}
		return renderConfirm(s, v.width, v.height-2, what, v.deleteTarget.name())
	}

	if !v.loaded {
		return s.TitleMuted.Render("Loading...")
	}

	var body string
	if len(v.list.Items()) == 0 {
		body = lipgloss.JoinVertical(lipgloss.Left,
			s.Title.Render("Archive"),
			"",
			s.TitleMuted.Render("Nothing archived. Press 'a' on a task to archive it."),
		)
	} else {
		body = v.list.View()
	}
	if line := v.status.render(s); line != "" {
		body += "\n" + line
	}
	return body + "\n" + helpLine(s, "r", "restore", "d", "delete", "/", "filter", "tab", "next view", "q", "quit")
}
