package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"lyra-cli/internal/autosave"
	"lyra-cli/internal/browser"
	"lyra-cli/internal/editor"
	"lyra-cli/internal/model"
)

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.global.Quit) {
			return m, tea.Quit
		}
		if m.modal.kind != modalNone {
			return m.updateModal(msg)
		}
		switch m.screen {
		case screenLogin:
			return m.updateLogin(msg)
		case screenProjects:
			return m.updateProjects(msg)
		case screenBrowser:
			return m.updateBrowser(msg)
		case screenEditor:
			return m.updateEditor(msg)
		case screenHelp:
			return m.updateHelp(msg)
		}
		return m, nil

	case authDoneMsg:
		m.login.busy = false
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		register := m.login.register
		m.login = newLoginForm()
		m.login.register = register
		m.screen = screenProjects
		m.setInfo("Logged in")
		return m, m.loadProjects()

	case loggedOutMsg:
		return m.toLogin()

	case projectsLoadedMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		return m, m.refreshProjectList()

	case opDoneMsg:
		return m.finishOp(msg)

	case itemsLoadedMsg:
		if msg.err != nil {
			m.setError(msg.err)
		}
		if m.browser == nil {
			return m, nil
		}
		return m, m.refreshItemList()

	case editorOpenedMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		if m.screen != screenBrowser {
			// The user navigated away while the outline loaded.
			_ = msg.ed.Close(m.ctx)
			return m, nil
		}
		m.enterEditor(msg.ed, msg.doc)
		return m, nil

	case selectionLoadedMsg:
		if m.ed == nil || errors.Is(msg.err, context.Canceled) {
			return m, nil
		}
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.openSel = msg.sel
		m.selTitle = m.selectionTitle(msg.sel)
		m.save = autosave.StatusIdle
		m.saveErr = nil
		m.text.SetValue(m.ed.Buffer())
		m.focus = focusText
		m.clearStatus()
		return m, m.text.Focus()

	case outlineChangedMsg:
		return m.finishOutlineChange(msg)

	case saveStatusMsg:
		if m.ed == nil {
			return m, nil
		}
		if t, ok := m.openSel.Target(); ok && t == msg.target {
			m.save = msg.status
			m.saveErr = msg.err
		}
		if msg.err != nil {
			m.log.Debug("Autosave failed", zap.String("target", msg.target.Key()), zap.Error(msg.err))
		}
		// Chapter saves reload the outline themselves.
		if msg.status == autosave.StatusSaved && !msg.target.IsChapter() {
			return m, m.editorOp("", func(ctx context.Context, ed *editor.Editor) error {
				_, err := ed.Reload(ctx)
				return err
			})
		}
		return m, nil

	case flushedMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.setInfo("Saved")
		return m, nil

	case editorClosedMsg:
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.clearStatus()
		}
		m.ed = nil
		m.rows = nil
		m.openSel = editor.Selection{}
		m.text.Reset()
		m.text.Blur()
		m.screen = screenBrowser
		return m, m.browseCmd(func(ctx context.Context, b *browser.Browser) ([]model.Item, error) {
			return b.Refresh(ctx)
		})
	}

	return m.updateComponents(msg)
}

// updateComponents routes everything else (cursor blinks, list filter
// results) to the component that has focus.
func (m appModel) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.modal.kind == modalInput {
		m.modal.input, cmd = m.modal.input.Update(msg)
		return m, cmd
	}
	switch m.screen {
	case screenLogin:
		m.login.fields[m.login.focus], cmd = m.login.fields[m.login.focus].Update(msg)
	case screenProjects:
		m.projectList, cmd = m.projectList.Update(msg)
	case screenBrowser:
		m.itemList, cmd = m.itemList.Update(msg)
	case screenEditor:
		if m.focus == focusText {
			m.text, cmd = m.text.Update(msg)
		}
	}
	return m, cmd
}

func (m appModel) updateModal(msg tea.KeyMsg) (appModel, tea.Cmd) {
	next, res, cmd := m.modal.update(msg)
	switch res {
	case modalCancelled:
		m.modal = modalState{}
		return m, nil
	case modalOpen:
		m.modal = next
		return m, cmd
	}

	m.modal = modalState{}
	m.setInfo("Working…")
	switch next.act {
	case actNewProject, actRenameProject, actDeleteProject:
		return m, m.submitProjectModal(next)
	case actNewDocument, actNewFolder, actRenameItem, actDeleteItem:
		return m, m.submitItemModal(next)
	case actNewChapter, actNewScene, actRenameChapter, actRenameScene, actDeleteChapter, actDeleteScene:
		if next.act == actDeleteChapter || next.act == actDeleteScene {
			m.dropSelectionIfDeleted(next.chapterID, next.targetID)
		}
		return m, m.submitEditorModal(next)
	}
	return m, nil
}

// dropSelectionIfDeleted unbinds the text area when the chapter or scene it
// shows is about to be deleted. Deleting one scene of an open chapter keeps
// the chapter open; it is recomposed afterwards.
func (m *appModel) dropSelectionIfDeleted(chapterID, sceneID string) {
	sel := m.openSel
	if sel.ChapterID != chapterID {
		return
	}
	if sceneID != "" && (sel.Mode != editor.ModeScene || sel.SceneID != sceneID) {
		return
	}
	m.openSel = editor.Selection{}
	m.selTitle = ""
	m.focus = focusOutline
	m.text.Reset()
	m.text.Blur()
}

func (m appModel) finishOp(msg opDoneMsg) (appModel, tea.Cmd) {
	if msg.err != nil {
		m.setError(msg.err)
	} else if msg.note != "" {
		m.setInfo(msg.note)
	}
	switch msg.act {
	case actNewProject, actRenameProject, actDeleteProject, actPin:
		return m, m.refreshProjectList()
	case actNewDocument, actNewFolder, actRenameItem, actDeleteItem, actMoveItem:
		if m.browser == nil {
			return m, nil
		}
		return m, m.refreshItemList()
	case actLogout:
		if msg.err != nil {
			return m, nil
		}
		return m.toLogin()
	}
	return m, nil
}

func (m appModel) finishOutlineChange(msg outlineChangedMsg) (appModel, tea.Cmd) {
	if m.ed == nil {
		return m, nil
	}
	if msg.err != nil {
		m.setError(msg.err)
	} else if msg.note != "" {
		m.setInfo(msg.note)
	}
	var chapterID, sceneID string
	if row, ok := m.currentRow(); ok {
		chapterID, sceneID = row.ChapterID, row.SceneID
	}
	m.rebuildOutline(chapterID, sceneID)
	if m.openSel.Mode != editor.ModeNone {
		m.selTitle = m.selectionTitle(m.openSel)
		m.syncText()
	}
	return m, nil
}

// toLogin is where every logout ends, requested or forced by a 401. Pending
// edits are flushed in the background; they fail without a session and are
// logged.
func (m appModel) toLogin() (appModel, tea.Cmd) {
	if m.screen == screenLogin {
		return m, nil
	}
	var cmd tea.Cmd
	if ed := m.ed; ed != nil {
		ctx, log := m.ctx, m.log
		cmd = func() tea.Msg {
			if err := ed.Close(ctx); err != nil {
				log.Warn("Closing editor after logout", zap.Error(err))
			}
			return nil
		}
	}
	m.browse.close()
	m.browser = nil
	m.ed = nil
	m.rows = nil
	m.openSel = editor.Selection{}
	m.text.Reset()
	m.modal = modalState{}
	m.login = newLoginForm()
	m.screen = screenLogin
	if m.status == "" || !m.statusErr {
		m.setInfo("Logged out")
	}
	return m, tea.Batch(cmd, m.login.fields[m.login.focus].Focus())
}
