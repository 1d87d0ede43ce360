package tui

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lyra-cli/internal/autosave"
	"lyra-cli/internal/compose"
	"lyra-cli/internal/editor"
	"lyra-cli/internal/model"
)

// outlineRow is one line of the outline pane: a chapter (SceneID "") or one
// of its scenes.
type outlineRow struct {
	ChapterID string
	SceneID   string
	Title     string
	Words     int
}

func (r outlineRow) isChapter() bool { return r.SceneID == "" }

// flattenOutline lists chapters in outline order, each followed by its scenes
// in display order.
func flattenOutline(o model.DocumentOutline) []outlineRow {
	var rows []outlineRow
	for _, ch := range o.Chapters {
		rows = append(rows, outlineRow{ChapterID: ch.ID, Title: ch.Title, Words: ch.Wordcount})
		for _, sc := range compose.Ordered(ch.Scenes) {
			rows = append(rows, outlineRow{ChapterID: ch.ID, SceneID: sc.ID, Title: sc.Title, Words: sc.Wordcount})
		}
	}
	return rows
}

func (m appModel) openDocument(doc model.Item) (appModel, tea.Cmd) {
	send := m.send
	ed := editor.New(m.opts.Client, m.browser.ProjectID(), doc.ID, editor.Options{
		Logger: m.log,
		Autosave: autosave.Options{
			Delay:      m.opts.AutosaveDelay,
			RetryDelay: m.opts.AutosaveRetry,
			OnStatus: func(t autosave.Target, st autosave.Status, err error) {
				send.Send(saveStatusMsg{target: t, status: st, err: err})
			},
		},
	})
	m.setInfo("Opening " + doc.Title + "…")
	ctx := m.ctx
	return m, func() tea.Msg {
		_, err := ed.Open(ctx)
		if err != nil {
			_ = ed.Close(ctx)
		}
		return editorOpenedMsg{ed: ed, doc: doc, err: err}
	}
}

func (m *appModel) enterEditor(ed *editor.Editor, doc model.Item) {
	m.ed = ed
	m.doc = doc
	m.screen = screenEditor
	m.focus = focusOutline
	m.cursor = 0
	m.save = autosave.StatusIdle
	m.saveErr = nil
	m.openSel = editor.Selection{}
	m.text.Reset()
	m.text.Blur()
	m.rebuildOutline("", "")
	m.clearStatus()
}

// rebuildOutline re-reads the editor's outline and puts the cursor back on
// the given chapter/scene when it still exists.
func (m *appModel) rebuildOutline(chapterID, sceneID string) {
	if m.ed == nil {
		m.rows = nil
		return
	}
	o, _ := m.ed.Outline()
	m.rows = flattenOutline(o)
	if chapterID != "" {
		for i, r := range m.rows {
			if r.ChapterID == chapterID && r.SceneID == sceneID {
				m.cursor = i
				return
			}
		}
	}
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m appModel) currentRow() (outlineRow, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return outlineRow{}, false
	}
	return m.rows[m.cursor], true
}

func (m appModel) editorOp(note string, fn func(ctx context.Context, ed *editor.Editor) error) tea.Cmd {
	ctx, ed := m.ctx, m.ed
	return func() tea.Msg {
		return outlineChangedMsg{note: note, err: fn(ctx, ed)}
	}
}

func (m appModel) selectCmd(row outlineRow, chapterMode bool) tea.Cmd {
	ctx, ed := m.ctx, m.ed
	return func() tea.Msg {
		var err error
		if chapterMode {
			err = ed.SelectChapter(ctx, row.ChapterID)
		} else {
			err = ed.SelectScene(ctx, row.ChapterID, row.SceneID)
		}
		return selectionLoadedMsg{sel: ed.Selection(), err: err}
	}
}

func (m appModel) updateEditor(msg tea.KeyMsg) (appModel, tea.Cmd) {
	k := m.keys.editor

	// Keys that work in both panes.
	switch {
	case key.Matches(msg, k.Save):
		if m.ed == nil {
			return m, nil
		}
		ctx, ed := m.ctx, m.ed
		m.setInfo("Saving…")
		return m, func() tea.Msg { return flushedMsg{err: ed.Flush(ctx)} }
	case key.Matches(msg, k.Switch):
		if m.focus == focusOutline && m.openSel.Mode != editor.ModeNone {
			m.focus = focusText
			return m, m.text.Focus()
		}
		m.focus = focusOutline
		m.text.Blur()
		return m, nil
	}

	if m.focus == focusText {
		if key.Matches(msg, k.Back) {
			m.focus = focusOutline
			m.text.Blur()
			return m, nil
		}
		return m.typeText(msg)
	}

	row, hasRow := m.currentRow()
	switch {
	case key.Matches(msg, k.Help):
		return m.openHelp("editor"), nil
	case key.Matches(msg, k.Back):
		ctx, ed := m.ctx, m.ed
		m.setInfo("Saving and closing…")
		return m, func() tea.Msg { return editorClosedMsg{err: ed.Close(ctx)} }
	case key.Matches(msg, k.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, k.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case key.Matches(msg, k.Open):
		if hasRow {
			m.setInfo("Loading…")
			return m, m.selectCmd(row, row.isChapter())
		}
	case key.Matches(msg, k.EditChapter):
		if hasRow {
			m.setInfo("Loading chapter…")
			return m, m.selectCmd(row, true)
		}
	case key.Matches(msg, k.AddChapter):
		var cmd tea.Cmd
		m.modal, cmd = newInputModal(actNewChapter, "New chapter", "", editor.DefaultChapterTitle)
		return m, cmd
	case key.Matches(msg, k.AddScene):
		if !hasRow {
			m.setInfo("Add a chapter first (C)")
			return m, nil
		}
		var cmd tea.Cmd
		m.modal, cmd = newInputModal(actNewScene, "New scene", "", editor.DefaultSceneTitle)
		m.modal.chapterID = row.ChapterID
		return m, cmd
	case key.Matches(msg, k.Rename):
		if !hasRow {
			return m, nil
		}
		act, title := actRenameScene, "Rename scene"
		if row.isChapter() {
			act, title = actRenameChapter, "Rename chapter"
		}
		var cmd tea.Cmd
		m.modal, cmd = newInputModal(act, title, row.Title, "Title")
		m.modal.chapterID, m.modal.targetID = row.ChapterID, row.SceneID
		return m, cmd
	case key.Matches(msg, k.Delete):
		if !hasRow {
			return m, nil
		}
		if row.isChapter() {
			m.modal = newConfirmModal(actDeleteChapter, "Delete chapter", "Delete chapter \""+row.Title+"\" and all of its scenes?")
		} else {
			m.modal = newConfirmModal(actDeleteScene, "Delete scene", "Delete scene \""+row.Title+"\"?")
		}
		m.modal.chapterID, m.modal.targetID = row.ChapterID, row.SceneID
		return m, nil
	case key.Matches(msg, k.MoveUp), key.Matches(msg, k.MoveDown):
		if !hasRow || row.isChapter() {
			return m, nil
		}
		return m.moveScene(row, key.Matches(msg, k.MoveUp))
	}
	return m, nil
}

// moveScene drops the scene onto its neighbour's position.
func (m appModel) moveScene(row outlineRow, up bool) (appModel, tea.Cmd) {
	ids, ok := m.ed.SceneOrder(row.ChapterID)
	if !ok {
		return m, nil
	}
	pos := -1
	for i, id := range ids {
		if id == row.SceneID {
			pos = i
		}
	}
	over := pos + 1
	if up {
		over = pos - 1
	}
	if pos < 0 || over < 0 || over >= len(ids) {
		return m, nil
	}
	overID := ids[over]
	return m, m.editorOp("Scene moved", func(ctx context.Context, ed *editor.Editor) error {
		_, err := ed.ReorderScenes(ctx, row.ChapterID, row.SceneID, overID)
		return err
	})
}

// typeText feeds a key to the text area and schedules an autosave when the
// buffer changed.
func (m appModel) typeText(msg tea.KeyMsg) (appModel, tea.Cmd) {
	before := m.text.Value()
	var cmd tea.Cmd
	m.text, cmd = m.text.Update(msg)
	if after := m.text.Value(); after != before {
		if err := m.ed.Edit(after); err != nil {
			if errors.Is(err, editor.ErrSelectionDeleted) {
				m.setInfo("The selected chapter or scene was deleted; pick another one")
			} else {
				m.setError(err)
			}
		}
	}
	return m, cmd
}

func (m appModel) submitEditorModal(s modalState) tea.Cmd {
	title, cid, sid := s.value(), s.chapterID, s.targetID
	switch s.act {
	case actNewChapter:
		return m.editorOp("Chapter added", func(ctx context.Context, ed *editor.Editor) error {
			_, err := ed.AddChapter(ctx, title)
			return err
		})
	case actNewScene:
		return m.editorOp("Scene added", func(ctx context.Context, ed *editor.Editor) error {
			_, err := ed.AddScene(ctx, cid, title)
			return err
		})
	case actRenameChapter:
		return m.editorOp("Chapter renamed", func(ctx context.Context, ed *editor.Editor) error {
			return ed.RenameChapter(ctx, cid, title)
		})
	case actRenameScene:
		return m.editorOp("Scene renamed", func(ctx context.Context, ed *editor.Editor) error {
			return ed.RenameScene(ctx, cid, sid, title)
		})
	case actDeleteChapter:
		return m.editorOp("Chapter deleted", func(ctx context.Context, ed *editor.Editor) error {
			return ed.DeleteChapter(ctx, cid)
		})
	case actDeleteScene:
		return m.editorOp("Scene deleted", func(ctx context.Context, ed *editor.Editor) error {
			return ed.DeleteScene(ctx, cid, sid)
		})
	}
	return nil
}

// syncText copies the editor buffer into the text area when they differ,
// e.g. after a chapter was recomposed or its selection was deleted.
func (m *appModel) syncText() {
	if m.ed == nil {
		return
	}
	if buf := m.ed.Buffer(); buf != m.text.Value() {
		m.text.SetValue(buf)
	}
}

func (m appModel) viewSaveState() string {
	if m.ed == nil || m.openSel.Mode == editor.ModeNone {
		return ""
	}
	words := strconv.Itoa(m.ed.WordCount()) + " words"
	if server := m.ed.ServerWordCount(); server != m.ed.WordCount() {
		words += " (saved: " + strconv.Itoa(server) + ")"
	}
	var st string
	switch m.save {
	case autosave.StatusFailed:
		st = styleWarn().Render(m.save.String())
	case autosave.StatusSaved:
		st = styleOK().Render(m.save.String())
	case autosave.StatusIdle:
		st = ""
	default:
		st = styleMuted().Render(m.save.String())
	}
	return strings.TrimSpace(styleMuted().Render(words) + "  " + st)
}

func (m appModel) viewOutline(width, height int) string {
	var b strings.Builder
	if len(m.rows) == 0 {
		b.WriteString(styleMuted().Render("No chapters yet. C: add chapter"))
	}
	for i, r := range m.rows {
		label := "  " + r.Title
		if r.isChapter() {
			label = r.Title
		}
		words := strconv.Itoa(r.Words)
		line := fitLine(label, max(1, width-len(words)-1)) + " " + words

		bound := r.ChapterID == m.openSel.ChapterID &&
			((m.openSel.Mode == editor.ModeChapter && r.isChapter()) ||
				(m.openSel.Mode == editor.ModeScene && r.SceneID == m.openSel.SceneID))
		switch {
		case i == m.cursor && m.focus == focusOutline:
			line = styleSelected().Render(line)
		case bound:
			line = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Render(line)
		case r.isChapter():
			line = lipgloss.NewStyle().Bold(true).Render(line)
		}
		b.WriteString(line + "\n")
	}
	return normalizePane(b.String(), width, height)
}

func (m appModel) viewEditor() string {
	h := m.bodyHeight()
	ow := m.outlineWidth()
	outline := m.viewOutline(ow, h)

	head := styleMuted().Render("No selection")
	switch m.openSel.Mode {
	case editor.ModeScene:
		head = styleAccent().Render("scene") + " " + m.selTitle
	case editor.ModeChapter:
		head = styleAccent().Render("chapter") + " " + m.selTitle + styleMuted().Render("  (scenes split at ***)")
	}
	textW := max(10, m.width-ow-3)
	right := normalizePane(head+"\n\n"+m.text.View(), textW, h)
	sep := styleMuted().Render(strings.TrimRight(strings.Repeat("│\n", h), "\n"))
	return lipgloss.JoinHorizontal(lipgloss.Top, outline, " ", sep, " ", right)
}

// selectionTitle names the chapter or scene the buffer is bound to.
func (m appModel) selectionTitle(sel editor.Selection) string {
	for _, r := range m.rows {
		if r.ChapterID != sel.ChapterID {
			continue
		}
		if sel.Mode == editor.ModeChapter && r.isChapter() {
			return r.Title
		}
		if sel.Mode == editor.ModeScene && r.SceneID == sel.SceneID {
			return r.Title
		}
	}
	return ""
}
