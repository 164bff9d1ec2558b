// Package keys holds the key bindings shared by every view
package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap lists every binding the views react to
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	MoveUp   key.Binding
	MoveDown key.Binding
	Enter    key.Binding
	Back     key.Binding
	Tab      key.Binding
	ShiftTab key.Binding
	Quit     key.Binding
	Help     key.Binding
	Save     key.Binding

	Edit      key.Binding
	New       key.Binding
	NewChild  key.Binding
	Delete    key.Binding
	Archive   key.Binding
	Restore   key.Binding
	Notes     key.Binding
	LogTime   key.Binding
	Export    key.Binding
	Toggle    key.Binding
	More      key.Binding
	Less      key.Binding
	Remove    key.Binding
	CycleIcon key.Binding
	Confirm   key.Binding
	Deny      key.Binding
}

// DefaultKeyMap returns the stock bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "older")),
		Right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "newer")),
		MoveUp:   key.NewBinding(key.WithKeys("shift+up", "K"), key.WithHelp("⇧↑", "move up")),
		MoveDown: key.NewBinding(key.WithKeys("shift+down", "J"), key.WithHelp("⇧↓", "move down")),
		Enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("↵", "expand")),
		Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next view")),
		ShiftTab: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("⇧tab", "previous view")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Save:     key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),

		Edit:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		New:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new task")),
		NewChild:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "new subtask")),
		Delete:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Archive:   key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "archive")),
		Restore:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restore")),
		Notes:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "notes")),
		LogTime:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "log time")),
		Export:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "export")),
		Toggle:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "done")),
		More:      key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "progress")),
		Less:      key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "progress")),
		Remove:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "drop subtask")),
		CycleIcon: key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "icon")),
		Confirm:   key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "yes")),
		Deny:      key.NewBinding(key.WithKeys("n", "N", "esc"), key.WithHelp("n", "no")),
	}
}
