package tui

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"lyra-cli/internal/api"
	"lyra-cli/internal/compose"
	"lyra-cli/internal/devserver"
	"lyra-cli/internal/model"
	"lyra-cli/internal/session"
	"lyra-cli/internal/store"
)

const (
	testEmail    = "ana@example.com"
	testPassword = "secret123"
)

type harness struct {
	url    string
	client *api.Client
}

// newHarness starts a dev server with one registered user. client is logged
// in as that user.
func newHarness(t *testing.T) *harness {
	t.Helper()
	srv, err := devserver.New(devserver.Config{JWTSecret: "test-secret", BcryptCost: bcrypt.MinCost}, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	sess, err := session.New(context.Background(), nil)
	require.NoError(t, err)
	c := api.NewClient(ts.URL, sess)
	require.NoError(t, c.Register(context.Background(), "Ana", testEmail, testPassword))
	return &harness{url: ts.URL, client: c}
}

// model builds an app model on the given client, sized like a terminal.
func (h *harness) model(t *testing.T, c *api.Client) appModel {
	t.Helper()
	m := newAppModel(context.Background(), Options{
		Client:        c,
		Store:         store.Store{Dir: t.TempDir()},
		AutosaveDelay: time.Hour,
		AutosaveRetry: time.Hour,
	}, "dark")
	m.resize(120, 40)
	t.Cleanup(func() { _ = m.closeEditor(context.Background()) })
	return m
}

func (h *harness) anonymousClient(t *testing.T) *api.Client {
	t.Helper()
	sess, err := session.New(context.Background(), nil)
	require.NoError(t, err)
	return api.NewClient(h.url, sess)
}

// isAppMsg reports whether msg is one of this package's results. Everything
// else (cursor blinks, list status timers) is dropped by drive.
func isAppMsg(msg tea.Msg) bool {
	switch msg.(type) {
	case authDoneMsg, loggedOutMsg, projectsLoadedMsg, opDoneMsg, itemsLoadedMsg,
		editorOpenedMsg, selectionLoadedMsg, outlineChangedMsg, saveStatusMsg,
		flushedMsg, editorClosedMsg:
		return true
	}
	return false
}

// collect runs cmd and any batch it expands to. Batched commands run
// concurrently so blink timers don't add up.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	}
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out []tea.Msg
	)
	for _, c := range batch {
		wg.Add(1)
		go func(c tea.Cmd) {
			defer wg.Done()
			msgs := collect(c)
			mu.Lock()
			out = append(out, msgs...)
			mu.Unlock()
		}(c)
	}
	wg.Wait()
	return out
}

// drive feeds the results of cmd back into m until no app messages are left.
func drive(t *testing.T, m appModel, cmd tea.Cmd) appModel {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(t, steps, 100, "update loop did not settle")
		c := queue[0]
		queue = queue[1:]
		for _, msg := range collect(c) {
			if !isAppMsg(msg) {
				continue
			}
			next, nc := m.Update(msg)
			m = next.(appModel)
			queue = append(queue, nc)
		}
	}
	return m
}

func press(t *testing.T, m appModel, msgs ...tea.KeyMsg) appModel {
	t.Helper()
	for _, msg := range msgs {
		next, cmd := m.Update(msg)
		m = drive(t, next.(appModel), cmd)
	}
	return m
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyCtrlS = tea.KeyMsg{Type: tea.KeyCtrlS}
)

func selectProject(t *testing.T, m *appModel, name string) {
	t.Helper()
	for i, it := range m.projectList.Items() {
		if it.(projectItem).p.Name == name {
			m.projectList.Select(i)
			return
		}
	}
	t.Fatalf("project %q not listed", name)
}

func selectItem(t *testing.T, m *appModel, title string) {
	t.Helper()
	for i, it := range m.itemList.Items() {
		if it.(itemRow).it.Title == title {
			m.itemList.Select(i)
			return
		}
	}
	t.Fatalf("item %q not listed", title)
}

func listedTitles(m appModel) []string {
	var out []string
	for _, it := range m.itemList.Items() {
		out = append(out, it.(itemRow).it.Title)
	}
	return out
}

func TestLoginThenProjects(t *testing.T) {
	h := newHarness(t)
	_, err := h.client.CreateProject(context.Background(), "Novel", nil)
	require.NoError(t, err)

	c := h.anonymousClient(t)
	m := h.model(t, c)
	require.Equal(t, screenLogin, m.screen)

	m = press(t, m, runes(testEmail), keyEnter)
	assert.Equal(t, fieldPassword, m.login.focus, "enter on email moves to password")

	m = press(t, m, runes(testPassword), keyEnter)
	require.Equal(t, screenProjects, m.screen, m.status)
	assert.True(t, c.Session().Authenticated())
	require.Len(t, m.projectList.Items(), 1)
	assert.Equal(t, "Novel", m.projectList.Items()[0].(projectItem).p.Name)
}

func TestLoginWrongPasswordStaysOnForm(t *testing.T) {
	h := newHarness(t)
	m := h.model(t, h.anonymousClient(t))

	m = press(t, m, runes(testEmail), keyEnter, runes("wrong-pass1"), keyEnter)
	assert.Equal(t, screenLogin, m.screen)
	assert.True(t, m.statusErr)
	assert.NotEmpty(t, m.status)
	assert.False(t, m.login.busy, "form is usable again")
}

func TestRegisterFromLoginScreen(t *testing.T) {
	h := newHarness(t)
	c := h.anonymousClient(t)
	m := h.model(t, c)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	require.True(t, m.login.register)
	require.Equal(t, fieldName, m.login.focus)

	m = press(t, m, runes("Bo"), keyEnter, runes("bo@example.com"), keyEnter, runes("another1"), keyEnter)
	require.Equal(t, screenProjects, m.screen, m.status)
	assert.True(t, c.Session().Authenticated())
}

func TestProjectsCreatePinAndLogout(t *testing.T) {
	h := newHarness(t)
	m := h.model(t, h.client)
	require.Equal(t, screenProjects, m.screen)
	m = drive(t, m, m.Init())

	m = press(t, m, runes("n"))
	require.Equal(t, modalInput, m.modal.kind)
	m = press(t, m, runes("Saga"), keyEnter)
	assert.Equal(t, modalNone, m.modal.kind)
	require.Len(t, m.projectList.Items(), 1)

	selectProject(t, &m, "Saga")
	m = press(t, m, runes("p"))
	p, ok := m.selectedProject()
	require.True(t, ok)
	assert.True(t, p.Pinned)
	assert.Equal(t, "Pinned Saga", m.status)

	m = press(t, m, runes("L"))
	assert.Equal(t, screenLogin, m.screen)
	assert.False(t, h.client.Session().Authenticated())
}

func TestProjectDeleteNeedsConfirmation(t *testing.T) {
	h := newHarness(t)
	_, err := h.client.CreateProject(context.Background(), "Doomed", nil)
	require.NoError(t, err)
	m := h.model(t, h.client)
	m = drive(t, m, m.Init())

	m = press(t, m, runes("d"))
	require.Equal(t, modalConfirm, m.modal.kind)
	m = press(t, m, runes("n"))
	assert.Equal(t, modalNone, m.modal.kind)
	require.Len(t, m.projectList.Items(), 1)

	m = press(t, m, runes("d"), runes("y"))
	assert.Empty(t, m.projectList.Items())
}

type browserFixture struct {
	project model.Project
	drafts  model.Item
	old     model.Item
	notes   model.Item
}

func seedBrowser(t *testing.T, c *api.Client) browserFixture {
	t.Helper()
	ctx := context.Background()
	var f browserFixture
	var err error
	f.project, err = c.CreateProject(ctx, "Novel", nil)
	require.NoError(t, err)
	f.drafts, err = c.CreateItem(ctx, f.project.ID, "Drafts", model.ItemFolder, nil)
	require.NoError(t, err)
	f.old, err = c.CreateItem(ctx, f.project.ID, "Old", model.ItemFolder, &f.drafts.ID)
	require.NoError(t, err)
	f.notes, err = c.CreateItem(ctx, f.project.ID, "Notes", model.ItemDocument, nil)
	require.NoError(t, err)
	return f
}

func openNovel(t *testing.T, m appModel) appModel {
	t.Helper()
	m = drive(t, m, m.Init())
	selectProject(t, &m, "Novel")
	m = press(t, m, keyEnter)
	require.Equal(t, screenBrowser, m.screen, m.status)
	return m
}

func TestBrowserNavigation(t *testing.T) {
	h := newHarness(t)
	seedBrowser(t, h.client)
	m := openNovel(t, h.model(t, h.client))
	assert.ElementsMatch(t, []string{"Drafts", "Notes"}, listedTitles(m))

	selectItem(t, &m, "Drafts")
	m = press(t, m, keyEnter)
	assert.Equal(t, []string{"Old"}, listedTitles(m))
	assert.Len(t, m.browser.Path(), 2)

	m = press(t, m, runes("1"))
	assert.Len(t, m.browser.Path(), 1)
	assert.ElementsMatch(t, []string{"Drafts", "Notes"}, listedTitles(m))

	m = press(t, m, keyEsc)
	assert.Equal(t, screenProjects, m.screen)
}

func TestBrowserMoveIntoOwnSubfolderIsRefused(t *testing.T) {
	h := newHarness(t)
	f := seedBrowser(t, h.client)
	m := openNovel(t, h.model(t, h.client))

	selectItem(t, &m, "Drafts")
	m = press(t, m, runes("m"))
	require.True(t, m.drag.Dragging())
	m = press(t, m, keyEnter)
	selectItem(t, &m, "Old")
	m = press(t, m, runes("m"))

	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, "move rejected")
	assert.False(t, m.drag.Dragging())

	roots, err := h.client.ListItems(context.Background(), f.project.ID, nil)
	require.NoError(t, err)
	var ids []string
	for _, it := range roots {
		ids = append(ids, it.ID)
	}
	assert.Contains(t, ids, f.drafts.ID, "drafts stays at the root")
}

func TestBrowserMoveDocumentIntoFolder(t *testing.T) {
	h := newHarness(t)
	f := seedBrowser(t, h.client)
	m := openNovel(t, h.model(t, h.client))

	selectItem(t, &m, "Notes")
	m = press(t, m, runes("m"))
	selectItem(t, &m, "Drafts")
	m = press(t, m, runes("m"))
	require.False(t, m.statusErr, m.status)
	assert.Equal(t, []string{"Drafts"}, listedTitles(m))

	inside, err := h.client.ListItems(context.Background(), f.project.ID, &f.drafts.ID)
	require.NoError(t, err)
	var titles []string
	for _, it := range inside {
		titles = append(titles, it.Title)
	}
	assert.ElementsMatch(t, []string{"Old", "Notes"}, titles)
}

func TestBrowserEscCancelsMove(t *testing.T) {
	h := newHarness(t)
	seedBrowser(t, h.client)
	m := openNovel(t, h.model(t, h.client))

	selectItem(t, &m, "Notes")
	m = press(t, m, runes("m"), keyEsc)
	assert.False(t, m.drag.Dragging())
	assert.Equal(t, screenBrowser, m.screen, "esc during a move does not leave the project")
	assert.Equal(t, "Move cancelled", m.status)
}

type editorFixture struct {
	project model.Project
	doc     model.Item
	chapter model.Chapter
	first   model.Scene
	second  model.Scene
}

func seedDocument(t *testing.T, c *api.Client) editorFixture {
	t.Helper()
	ctx := context.Background()
	var f editorFixture
	var err error
	f.project, err = c.CreateProject(ctx, "Novel", nil)
	require.NoError(t, err)
	f.doc, err = c.CreateItem(ctx, f.project.ID, "Book", model.ItemDocument, nil)
	require.NoError(t, err)
	f.chapter, err = c.CreateChapter(ctx, f.project.ID, f.doc.ID, "One")
	require.NoError(t, err)
	f.first, err = c.CreateScene(ctx, f.project.ID, f.doc.ID, f.chapter.ID, "Opening")
	require.NoError(t, err)
	f.second, err = c.CreateScene(ctx, f.project.ID, f.doc.ID, f.chapter.ID, "Turn")
	require.NoError(t, err)
	_, err = c.UpdateSceneContent(ctx, f.project.ID, f.doc.ID, f.chapter.ID, f.first.ID, "<p>Hello</p>")
	require.NoError(t, err)
	_, err = c.UpdateSceneContent(ctx, f.project.ID, f.doc.ID, f.chapter.ID, f.second.ID, "<p>World</p>")
	require.NoError(t, err)
	return f
}

func openBook(t *testing.T, m appModel) appModel {
	t.Helper()
	m = openNovel(t, m)
	selectItem(t, &m, "Book")
	m = press(t, m, keyEnter)
	require.Equal(t, screenEditor, m.screen, m.status)
	return m
}

func TestEditorSceneEditAndSave(t *testing.T) {
	h := newHarness(t)
	f := seedDocument(t, h.client)
	m := openBook(t, h.model(t, h.client))

	require.Len(t, m.rows, 3)
	assert.True(t, m.rows[0].isChapter())
	assert.Equal(t, f.first.ID, m.rows[1].SceneID)

	m = press(t, m, keyDown, keyEnter)
	require.Equal(t, focusText, m.focus)
	assert.Equal(t, "<p>Hello</p>", m.text.Value())

	m = press(t, m, runes("!"), keyCtrlS)
	require.False(t, m.statusErr, m.status)
	assert.Equal(t, "Saved", m.status)

	sc, err := h.client.GetScene(context.Background(), f.project.ID, f.doc.ID, f.chapter.ID, f.first.ID)
	require.NoError(t, err)
	assert.Equal(t, "<p>Hello</p>!", sc.Content)
}

func TestEditorChapterModeComposesScenes(t *testing.T) {
	h := newHarness(t)
	seedDocument(t, h.client)
	m := openBook(t, h.model(t, h.client))

	m = press(t, m, runes("c"))
	require.Equal(t, focusText, m.focus)
	assert.Equal(t, compose.ComposeContents([]string{"<p>Hello</p>", "<p>World</p>"}), m.text.Value())
	assert.Equal(t, "One", m.selTitle)
}

func TestEditorMoveSceneUp(t *testing.T) {
	h := newHarness(t)
	f := seedDocument(t, h.client)
	m := openBook(t, h.model(t, h.client))

	m = press(t, m, keyDown, keyDown)
	require.Equal(t, f.second.ID, m.rows[m.cursor].SceneID)
	m = press(t, m, runes("K"))
	require.False(t, m.statusErr, m.status)

	assert.Equal(t, f.second.ID, m.rows[1].SceneID)
	assert.Equal(t, f.first.ID, m.rows[2].SceneID)
	assert.Equal(t, 1, m.cursor, "cursor follows the moved scene")

	o, err := h.client.GetOutline(context.Background(), f.project.ID, f.doc.ID)
	require.NoError(t, err)
	ch, ok := o.FindChapter(f.chapter.ID)
	require.True(t, ok)
	ordered := compose.Ordered(ch.Scenes)
	require.Len(t, ordered, 2)
	assert.Equal(t, f.second.ID, ordered[0].ID)
}

func TestEditorAddAndDeleteChapter(t *testing.T) {
	h := newHarness(t)
	seedDocument(t, h.client)
	m := openBook(t, h.model(t, h.client))

	m = press(t, m, runes("C"), runes("Two"), keyEnter)
	require.False(t, m.statusErr, m.status)
	require.Len(t, m.rows, 4)
	assert.Equal(t, "Two", m.rows[3].Title)

	m.cursor = 3
	m = press(t, m, runes("d"), runes("y"))
	require.False(t, m.statusErr, m.status)
	assert.Len(t, m.rows, 3)
}

func TestEditorEscClosesToBrowser(t *testing.T) {
	h := newHarness(t)
	seedDocument(t, h.client)
	m := openBook(t, h.model(t, h.client))

	m = press(t, m, keyEsc)
	assert.Equal(t, screenBrowser, m.screen)
	assert.Nil(t, m.ed)
	assert.Equal(t, []string{"Book"}, listedTitles(m))
}

func TestHelpReturnsToPreviousScreen(t *testing.T) {
	h := newHarness(t)
	m := h.model(t, h.client)
	m = drive(t, m, m.Init())

	m = press(t, m, runes("?"))
	require.Equal(t, screenHelp, m.screen)
	assert.NotEmpty(t, m.page.View())
	m = press(t, m, keyEsc)
	assert.Equal(t, screenProjects, m.screen)
}
