package tui

import (
	"lyra-cli/internal/autosave"
	"lyra-cli/internal/editor"
	"lyra-cli/internal/model"
)

type screen int

const (
	screenLogin screen = iota
	screenProjects
	screenBrowser
	screenEditor
	screenHelp
)

func (s screen) String() string {
	switch s {
	case screenLogin:
		return "login"
	case screenProjects:
		return "projects"
	case screenBrowser:
		return "browser"
	case screenEditor:
		return "editor"
	case screenHelp:
		return "help"
	default:
		return "unknown"
	}
}

type modalKind int

const (
	modalNone modalKind = iota
	modalInput
	modalConfirm
)

// action names what a modal (or a finished request) was about.
type action int

const (
	actNone action = iota
	actNewProject
	actRenameProject
	actDeleteProject
	actNewDocument
	actNewFolder
	actRenameItem
	actDeleteItem
	actNewChapter
	actRenameChapter
	actDeleteChapter
	actNewScene
	actRenameScene
	actDeleteScene
	actMoveItem
	actPin
	actLogout
)

type focusPane int

const (
	focusOutline focusPane = iota
	focusText
)

// authDoneMsg ends a login or register attempt.
type authDoneMsg struct{ err error }

// loggedOutMsg arrives when the session dropped its token, either on request
// or because the server answered 401.
type loggedOutMsg struct{}

type projectsLoadedMsg struct{ err error }

// opDoneMsg ends a create/rename/delete/pin/move request. The owning manager
// already holds the refreshed state.
type opDoneMsg struct {
	act  action
	note string
	err  error
}

type itemsLoadedMsg struct {
	items []model.Item
	err   error
}

type editorOpenedMsg struct {
	ed  *editor.Editor
	doc model.Item
	err error
}

type selectionLoadedMsg struct {
	sel editor.Selection
	err error
}

type outlineChangedMsg struct {
	note string
	err  error
}

type saveStatusMsg struct {
	target autosave.Target
	status autosave.Status
	err    error
}

type flushedMsg struct{ err error }

type editorClosedMsg struct{ err error }
