package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

type globalKeys struct {
	Quit key.Binding
	Help key.Binding
}

type loginKeys struct {
	Next     key.Binding
	Submit   key.Binding
	Register key.Binding
	Quit     key.Binding
}

type projectKeys struct {
	Open   key.Binding
	New    key.Binding
	Rename key.Binding
	Delete key.Binding
	Pin    key.Binding
	Sort   key.Binding
	Logout key.Binding
	Help   key.Binding
	Quit   key.Binding
}

type browserKeys struct {
	Open      key.Binding
	Back      key.Binding
	NewDoc    key.Binding
	NewFolder key.Binding
	Rename    key.Binding
	Delete    key.Binding
	Move      key.Binding
	PutHere   key.Binding
	Crumb     key.Binding
	Sort      key.Binding
	Help      key.Binding
}

// editorKeys must stay in sync with the key table of the "editor" docs topic.
type editorKeys struct {
	Switch      key.Binding
	Open        key.Binding
	EditChapter key.Binding
	AddChapter  key.Binding
	AddScene    key.Binding
	Rename      key.Binding
	Delete      key.Binding
	MoveUp      key.Binding
	MoveDown    key.Binding
	Save        key.Binding
	Back        key.Binding
	Up          key.Binding
	Down        key.Binding
	Help        key.Binding
}

type keyMap struct {
	global   globalKeys
	login    loginKeys
	projects projectKeys
	browser  browserKeys
	editor   editorKeys
}

func defaultKeyMap() keyMap {
	return keyMap{
		global: globalKeys{
			Quit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
			Help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		},
		login: loginKeys{
			Next:     key.NewBinding(key.WithKeys("tab", "shift+tab", "up", "down"), key.WithHelp("tab", "next field")),
			Submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
			Register: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "login/register")),
			Quit:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "quit")),
		},
		projects: projectKeys{
			Open:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
			New:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
			Rename: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rename")),
			Delete: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
			Pin:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pin")),
			Sort:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
			Logout: key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "log out")),
			Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
			Quit:   key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		},
		browser: browserKeys{
			Open:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
			Back:      key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
			NewDoc:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new document")),
			NewFolder: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "new folder")),
			Rename:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rename")),
			Delete:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
			Move:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "pick up/drop on folder")),
			PutHere:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "drop here")),
			Crumb:     key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "breadcrumb")),
			Sort:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
			Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		},
		editor: editorKeys{
			Switch:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "outline/text")),
			Open:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
			EditChapter: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "edit chapter")),
			AddChapter:  key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "add chapter")),
			AddScene:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add scene")),
			Rename:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rename")),
			Delete:      key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
			MoveUp:      key.NewBinding(key.WithKeys("K"), key.WithHelp("K", "scene up")),
			MoveDown:    key.NewBinding(key.WithKeys("J"), key.WithHelp("J", "scene down")),
			Save:        key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save now")),
			Back:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
			Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
			Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
			Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		},
	}
}

func (k projectKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.New, k.Rename, k.Delete, k.Pin, k.Sort, k.Logout, k.Help, k.Quit}
}

func (k browserKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Back, k.NewDoc, k.NewFolder, k.Rename, k.Delete, k.Move, k.PutHere, k.Crumb, k.Sort}
}

func (k editorKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Switch, k.Open, k.EditChapter, k.AddChapter, k.AddScene, k.Rename, k.Delete, k.MoveUp, k.MoveDown, k.Save, k.Back}
}

func (k loginKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Submit, k.Register, k.Quit}
}
