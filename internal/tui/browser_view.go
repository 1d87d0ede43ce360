package tui

import (
	"context"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"lyra-cli/internal/browser"
	"lyra-cli/internal/dnd"
	"lyra-cli/internal/model"
)

var itemSortCycle = []browser.SortMode{browser.SortUpdatedDesc, browser.SortTitleAsc, browser.SortTitleDesc}

func (m appModel) openProject(p model.Project) (appModel, tea.Cmd) {
	m.browse.close()
	m.browse = newScope(m.ctx)
	m.browser = browser.New(m.opts.Client, p.ID, p.Name, m.log)
	m.project = p
	m.drag.Reset()
	m.screen = screenBrowser
	m.clearStatus()
	m.itemList.ResetFilter()
	_ = m.itemList.SetItems(nil)
	return m, m.browseCmd(func(ctx context.Context, b *browser.Browser) ([]model.Item, error) {
		return b.Refresh(ctx)
	})
}

// browseCmd runs a navigation step of the browser under the screen scope.
func (m appModel) browseCmd(fn func(ctx context.Context, b *browser.Browser) ([]model.Item, error)) tea.Cmd {
	ctx, b := m.browse.ctx, m.browser
	return func() tea.Msg {
		items, err := fn(ctx, b)
		return itemsLoadedMsg{items: items, err: err}
	}
}

func (m appModel) itemOp(act action, note string, fn func(ctx context.Context, b *browser.Browser) error) tea.Cmd {
	ctx, b := m.browse.ctx, m.browser
	return func() tea.Msg {
		return opDoneMsg{act: act, note: note, err: fn(ctx, b)}
	}
}

func (m *appModel) refreshItemList() tea.Cmd {
	selected := ""
	if it, ok := m.selectedItem(); ok {
		selected = it.ID
	}
	sorted := browser.SortItems(m.browser.Items(), m.itemSort)
	items := make([]list.Item, 0, len(sorted))
	idx := 0
	for i, it := range sorted {
		items = append(items, itemRow{it: it, moving: m.drag.Dragging() && m.drag.ActiveID() == it.ID})
		if it.ID == selected {
			idx = i
		}
	}
	cmd := m.itemList.SetItems(items)
	m.itemList.Select(idx)
	return cmd
}

func (m appModel) selectedItem() (model.Item, bool) {
	row, ok := m.itemList.SelectedItem().(itemRow)
	if !ok {
		return model.Item{}, false
	}
	return row.it, true
}

// viewBreadcrumb numbers each crumb so it can be reached with 1-9.
func (m appModel) viewBreadcrumb() string {
	if m.browser == nil {
		return ""
	}
	path := m.browser.Path()
	parts := make([]string, 0, len(path))
	for i, c := range path {
		parts = append(parts, strconv.Itoa(i+1)+":"+c.Title)
	}
	crumbs := strings.Join(parts, " / ")
	if m.drag.Dragging() {
		crumbs += "   " + styleWarn().Render("moving \""+m.dragTitle+"\": m on a folder or p to drop, esc to cancel")
	}
	return styleBreadcrumb().Render(crumbs)
}

func (m appModel) updateBrowser(msg tea.KeyMsg) (appModel, tea.Cmd) {
	if m.itemList.SettingFilter() {
		var cmd tea.Cmd
		m.itemList, cmd = m.itemList.Update(msg)
		return m, cmd
	}

	k := m.keys.browser
	it, hasSel := m.selectedItem()
	switch {
	case key.Matches(msg, k.Help):
		return m.openHelp("browser"), nil
	case key.Matches(msg, k.Back) && m.itemList.FilterState() == list.FilterApplied:
		m.itemList.ResetFilter()
		return m, nil
	case key.Matches(msg, k.Back):
		if m.drag.Dragging() {
			m.drag.Cancel()
			m.drag.Reset()
			m.setInfo("Move cancelled")
			return m, m.refreshItemList()
		}
		if len(m.browser.Path()) <= 1 {
			m.browse.close()
			m.screen = screenProjects
			m.clearStatus()
			return m, m.loadProjects()
		}
		return m, m.browseCmd(func(ctx context.Context, b *browser.Browser) ([]model.Item, error) {
			return b.Back(ctx)
		})
	case key.Matches(msg, k.Crumb):
		idx, _ := strconv.Atoi(msg.String())
		return m, m.browseCmd(func(ctx context.Context, b *browser.Browser) ([]model.Item, error) {
			return b.GoToFolder(ctx, idx-1)
		})
	case key.Matches(msg, k.Open):
		if !hasSel {
			return m, nil
		}
		if it.IsFolder() {
			id := it.ID
			return m, m.browseCmd(func(ctx context.Context, b *browser.Browser) ([]model.Item, error) {
				return b.EnterFolder(ctx, id)
			})
		}
		return m.openDocument(it)
	case key.Matches(msg, k.NewDoc):
		var cmd tea.Cmd
		m.modal, cmd = newInputModal(actNewDocument, "New document", "", "Title")
		return m, cmd
	case key.Matches(msg, k.NewFolder):
		var cmd tea.Cmd
		m.modal, cmd = newInputModal(actNewFolder, "New folder", "", "Folder name")
		return m, cmd
	case key.Matches(msg, k.Rename):
		if !hasSel {
			return m, nil
		}
		var cmd tea.Cmd
		m.modal, cmd = newInputModal(actRenameItem, "Rename", it.Title, "Title")
		m.modal.targetID = it.ID
		return m, cmd
	case key.Matches(msg, k.Delete):
		if !hasSel {
			return m, nil
		}
		body := "Delete \"" + it.Title + "\"?"
		if it.IsFolder() {
			body = "Delete folder \"" + it.Title + "\" and everything in it?"
		}
		m.modal = newConfirmModal(actDeleteItem, "Delete", body)
		m.modal.targetID = it.ID
		return m, nil
	case key.Matches(msg, k.Move):
		if !hasSel {
			return m, nil
		}
		if !m.drag.Dragging() {
			if err := m.drag.Start(it.ID); err != nil {
				m.setError(err)
				return m, nil
			}
			m.dragTitle = it.Title
			m.clearStatus()
			return m, m.refreshItemList()
		}
		if !it.IsFolder() {
			m.setInfo("Drop onto a folder, or press p to drop into this folder")
			return m, nil
		}
		if m.drag.Drop(it.ID) != dnd.PhaseDropped {
			m.drag.Reset()
			m.setInfo("Move cancelled")
			return m, m.refreshItemList()
		}
		target := it.ID
		return m.moveDragged(&target, it.Title)
	case key.Matches(msg, k.PutHere):
		if !m.drag.Dragging() {
			return m, nil
		}
		path := m.browser.Path()
		return m.moveDragged(m.browser.CurrentFolderID(), path[len(path)-1].Title)
	case key.Matches(msg, k.Sort):
		m.itemSort = nextSort(itemSortCycle, m.itemSort)
		return m, m.refreshItemList()
	}

	var cmd tea.Cmd
	m.itemList, cmd = m.itemList.Update(msg)
	return m, cmd
}

// moveDragged re-parents the picked-up item. The whole tree is loaded first
// so a move into the item's own subtree is refused without a request.
func (m appModel) moveDragged(target *string, targetTitle string) (appModel, tea.Cmd) {
	id, title := m.drag.ActiveID(), m.dragTitle
	m.drag.Reset()
	m.setInfo("Moving " + title + "…")
	return m, m.itemOp(actMoveItem, "Moved \""+title+"\" to "+targetTitle, func(ctx context.Context, b *browser.Browser) error {
		if _, err := b.LoadTree(ctx); err != nil {
			return err
		}
		return b.Reparent(ctx, id, target)
	})
}

func (m appModel) submitItemModal(s modalState) tea.Cmd {
	title, id := s.value(), s.targetID
	switch s.act {
	case actNewDocument, actNewFolder:
		kind := model.ItemDocument
		if s.act == actNewFolder {
			kind = model.ItemFolder
		}
		return m.itemOp(s.act, "Created "+title, func(ctx context.Context, b *browser.Browser) error {
			_, err := b.Create(ctx, title, kind)
			return err
		})
	case actRenameItem:
		return m.itemOp(actRenameItem, "Renamed to "+title, func(ctx context.Context, b *browser.Browser) error {
			_, err := b.Rename(ctx, id, title)
			return err
		})
	case actDeleteItem:
		return m.itemOp(actDeleteItem, "Deleted", func(ctx context.Context, b *browser.Browser) error {
			return b.Delete(ctx, id)
		})
	}
	return nil
}
