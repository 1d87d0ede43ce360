package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"lyra-cli/internal/api"
	"lyra-cli/internal/autosave"
	"lyra-cli/internal/browser"
	"lyra-cli/internal/dnd"
	"lyra-cli/internal/editor"
	"lyra-cli/internal/model"
	"lyra-cli/internal/projects"
)

const fallbackErrMessage = "Could not reach the Lyra server"

// scope is the lifetime of one screen's requests. Leaving the screen cancels
// whatever it still has in flight.
type scope struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func newScope(parent context.Context) *scope {
	ctx, cancel := context.WithCancel(parent)
	return &scope{ctx: ctx, cancel: cancel}
}

func (s *scope) close() {
	if s != nil {
		s.cancel()
	}
}

type appModel struct {
	ctx   context.Context
	opts  Options
	log   *zap.Logger
	keys  keyMap
	send  *sender
	style string

	width  int
	height int
	screen screen
	// back is the screen help returns to.
	back screen

	status    string
	statusErr bool

	modal modalState
	help  help.Model
	page  viewport.Model

	login loginForm

	projects    *projects.Manager
	projectList list.Model
	projectSort projects.SortMode

	browser   *browser.Browser
	browse    *scope
	project   model.Project
	itemList  list.Model
	itemSort  browser.SortMode
	drag      dnd.Drag
	dragTitle string

	ed       *editor.Editor
	doc      model.Item
	rows     []outlineRow
	cursor   int
	focus    focusPane
	text     textarea.Model
	save     autosave.Status
	saveErr  error
	openSel  editor.Selection
	selTitle string
}

func newAppModel(ctx context.Context, opts Options, style string) appModel {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("tui")

	ta := textarea.New()
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.Prompt = ""
	ta.Placeholder = "Select a scene or chapter in the outline"

	m := appModel{
		ctx:         ctx,
		opts:        opts,
		log:         log,
		keys:        defaultKeyMap(),
		send:        &sender{},
		style:       style,
		screen:      screenLogin,
		help:        help.New(),
		page:        viewport.New(0, 0),
		login:       newLoginForm(),
		projects:    projects.NewManager(opts.Client, log),
		projectList: newList(nil),
		projectSort: projects.SortUpdatedDesc,
		itemList:    newList(nil),
		itemSort:    browser.SortUpdatedDesc,
		text:        ta,
	}
	send := m.send
	opts.Client.Session().OnLogout(func() { send.Send(loggedOutMsg{}) })
	if opts.Client.Session().Authenticated() {
		m.screen = screenProjects
	}
	return m
}

func (m appModel) Init() tea.Cmd {
	if m.screen == screenProjects {
		return m.loadProjects()
	}
	return textinput.Blink
}

func (m *appModel) setError(err error) {
	m.status = api.Message(err, fallbackErrMessage)
	m.statusErr = true
	var mr *dnd.MoveRejectedError
	switch {
	case errors.As(err, &mr), errors.Is(err, projects.ErrPinLimit):
		m.log.Debug("Refused", zap.Error(err))
	default:
		m.log.Warn("Request failed", zap.String("screen", m.screen.String()), zap.Error(err))
	}
}

func (m *appModel) setInfo(s string) {
	m.status = s
	m.statusErr = false
}

func (m *appModel) clearStatus() { m.setInfo("") }

// bodyHeight is what is left between the header and the status/help lines.
func (m appModel) bodyHeight() int {
	h := m.height - 4
	if h < 3 {
		h = 3
	}
	return h
}

func (m *appModel) resize(w, h int) {
	m.width, m.height = w, h
	m.help.Width = w
	m.projectList.SetSize(w, m.bodyHeight())
	m.itemList.SetSize(w, m.bodyHeight())
	outlineW := m.outlineWidth()
	m.text.SetWidth(max(10, w-outlineW-3))
	m.text.SetHeight(max(3, m.bodyHeight()-2))
	m.page.Width = w
	m.page.Height = m.bodyHeight()
}

func (m appModel) outlineWidth() int {
	w := m.width / 3
	if w < 24 {
		w = 24
	}
	if w > 48 {
		w = 48
	}
	return w
}

// closeEditor flushes and stops the open editor, if any.
func (m appModel) closeEditor(ctx context.Context) error {
	if m.ed == nil {
		return nil
	}
	return m.ed.Close(ctx)
}

func (m appModel) View() string {
	if m.width == 0 {
		return ""
	}
	var body, title string
	var keys []key.Binding
	switch m.screen {
	case screenLogin:
		title = "Lyra"
		body = m.viewLogin()
		keys = m.keys.login.ShortHelp()
	case screenProjects:
		title = "Projects · sort: " + string(m.projectSort)
		body = m.projectList.View()
		keys = m.keys.projects.ShortHelp()
	case screenBrowser:
		title = m.viewBreadcrumb()
		body = m.itemList.View()
		if len(m.itemList.Items()) == 0 {
			body = styleMuted().Render("Empty folder. n: new document   f: new folder")
		}
		keys = m.keys.browser.ShortHelp()
	case screenEditor:
		title = m.doc.Title
		body = m.viewEditor()
		keys = m.keys.editor.ShortHelp()
	case screenHelp:
		title = "Help · esc to close"
		body = m.page.View()
	}

	if m.modal.kind != modalNone {
		body = lipgloss.Place(m.width, m.bodyHeight(), lipgloss.Center, lipgloss.Center, m.modal.view(m.width))
	}

	header := styleTitle().Render(fitLine(title, m.width))
	body = normalizePane(body, m.width, m.bodyHeight())
	return strings.Join([]string{header, "", body, m.viewStatus(), m.help.ShortHelpView(keys)}, "\n")
}

func (m appModel) viewStatus() string {
	left := m.status
	st := styleMuted()
	if m.statusErr {
		st = styleError()
	}
	line := st.Render(left)
	if m.screen == screenEditor {
		right := m.viewSaveState()
		gap := m.width - lipgloss.Width(line) - lipgloss.Width(right)
		if gap < 1 {
			gap = 1
		}
		line += strings.Repeat(" ", gap) + right
	}
	return fitLine(line, m.width)
}
