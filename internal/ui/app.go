package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tgienger/taskhours/internal/ui/keys"
	"github.com/tgienger/taskhours/internal/ui/styles"
	"github.com/tgienger/taskhours/internal/ui/views"
)

// View is the currently shown screen
type View int

const (
	ViewTasks View = iota
	ViewArchive
	ViewWeek
	viewCount
)

var viewNames = [...]string{"Tasks", "Archive", "Week"}

// screen is what every view provides
type screen interface {
	tea.Model
	// Capturing reports whether a form or dialog owns the keyboard
	Capturing() bool
}

// headerHeight is the lines taken by the view switcher
const headerHeight = 2

type App struct {
	currentView View
	screens     [viewCount]screen
	styles      *styles.Styles
	keys        keys.KeyMap
	width       int
	height      int
}

// NewApp creates the application over st
func NewApp(ctx context.Context, st views.Store) *App {
	return &App{
		currentView: ViewTasks,
		screens: [viewCount]screen{
			ViewTasks:   views.NewTaskListView(ctx, st),
			ViewArchive: views.NewArchiveView(ctx, st),
			ViewWeek:    views.NewWeekView(ctx, st),
		},
		styles: styles.NewStyles(),
		keys:   keys.DefaultKeyMap(),
	}
}

func (a *App) Init() tea.Cmd {
	return a.screens[a.currentView].Init()
}

// switchTo shows v and refetches its data, since other views may have
// changed it
func (a *App) switchTo(v View) tea.Cmd {
	a.currentView = v
	return a.screens[v].Init()
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		inner := tea.WindowSizeMsg{Width: msg.Width, Height: max(msg.Height-headerHeight, 0)}
		var cmds []tea.Cmd
		for _, s := range a.screens {
			_, cmd := s.Update(inner)
			cmds = append(cmds, cmd)
		}
		return a, tea.Batch(cmds...)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if !a.screens[a.currentView].Capturing() {
			switch {
			case key.Matches(msg, a.keys.Quit):
				return a, tea.Quit
			case key.Matches(msg, a.keys.Tab):
				return a, a.switchTo((a.currentView + 1) % viewCount)
			case key.Matches(msg, a.keys.ShiftTab):
				return a, a.switchTo((a.currentView + viewCount - 1) % viewCount)
			}
		}
	}

	// data messages are addressed by type, so every screen sees them
	if _, isKey := msg.(tea.KeyMsg); !isKey {
		var cmds []tea.Cmd
		for _, s := range a.screens {
			_, cmd := s.Update(msg)
			cmds = append(cmds, cmd)
		}
		return a, tea.Batch(cmds...)
	}

	_, cmd := a.screens[a.currentView].Update(msg)
	return a, cmd
}

func (a *App) View() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		a.renderTabs(),
		a.screens[a.currentView].View(),
	)
	return styles.CenterView(content, a.width, a.height)
}

func (a *App) renderTabs() string {
	tabs := make([]string, 0, len(viewNames))
	for i, name := range viewNames {
		style := a.styles.Tab
		if View(i) == a.currentView {
			style = a.styles.TabActive
		}
		tabs = append(tabs, style.Render(name))
	}
	return strings.Join(tabs, " ") + "\n"
}
