package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"lyra-cli/internal/auth"
	"lyra-cli/internal/model"
	"lyra-cli/internal/projects"
)

var projectSortCycle = []projects.SortMode{projects.SortUpdatedDesc, projects.SortNameAsc, projects.SortNameDesc}

func (m appModel) loadProjects() tea.Cmd {
	ctx, mgr := m.ctx, m.projects
	return func() tea.Msg {
		_, err := mgr.Refresh(ctx)
		return projectsLoadedMsg{err: err}
	}
}

// projectOp runs fn and reports it as opDoneMsg. The manager refreshes its
// cache itself after every write.
func (m appModel) projectOp(act action, note string, fn func(ctx context.Context, mgr *projects.Manager) error) tea.Cmd {
	ctx, mgr := m.ctx, m.projects
	return func() tea.Msg {
		return opDoneMsg{act: act, note: note, err: fn(ctx, mgr)}
	}
}

// refreshProjectList rebuilds the list from the manager cache, keeping the
// cursor on the same project when it still exists. The list's own filter
// stays in charge of searching.
func (m *appModel) refreshProjectList() tea.Cmd {
	selected := ""
	if p, ok := m.selectedProject(); ok {
		selected = p.ID
	}
	visible := m.projects.Visible("", m.projectSort)
	items := make([]list.Item, 0, len(visible))
	idx := 0
	for i, p := range visible {
		items = append(items, projectItem{p: p})
		if p.ID == selected {
			idx = i
		}
	}
	cmd := m.projectList.SetItems(items)
	m.projectList.Select(idx)
	return cmd
}

func (m appModel) selectedProject() (model.Project, bool) {
	it, ok := m.projectList.SelectedItem().(projectItem)
	if !ok {
		return model.Project{}, false
	}
	return it.p, true
}

func (m appModel) updateProjects(msg tea.KeyMsg) (appModel, tea.Cmd) {
	// While the filter prompt is open every key belongs to it.
	if m.projectList.SettingFilter() {
		var cmd tea.Cmd
		m.projectList, cmd = m.projectList.Update(msg)
		return m, cmd
	}

	k := m.keys.projects
	p, hasSel := m.selectedProject()
	switch {
	case key.Matches(msg, k.Quit):
		return m, tea.Quit
	case key.Matches(msg, k.Help):
		return m.openHelp("getting-started"), nil
	case key.Matches(msg, k.Open):
		if hasSel {
			return m.openProject(p)
		}
		return m, nil
	case key.Matches(msg, k.New):
		var cmd tea.Cmd
		m.modal, cmd = newInputModal(actNewProject, "New project", "", "Project name")
		return m, cmd
	case key.Matches(msg, k.Rename):
		if !hasSel {
			return m, nil
		}
		var cmd tea.Cmd
		m.modal, cmd = newInputModal(actRenameProject, "Rename project", p.Name, "Project name")
		m.modal.targetID = p.ID
		return m, cmd
	case key.Matches(msg, k.Delete):
		if !hasSel {
			return m, nil
		}
		m.modal = newConfirmModal(actDeleteProject, "Delete project", "Delete \""+p.Name+"\" and every folder and document in it?")
		m.modal.targetID = p.ID
		return m, nil
	case key.Matches(msg, k.Pin):
		if !hasSel {
			return m, nil
		}
		note := "Pinned " + p.Name
		if p.Pinned {
			note = "Unpinned " + p.Name
		}
		id := p.ID
		return m, m.projectOp(actPin, note, func(ctx context.Context, mgr *projects.Manager) error {
			_, err := mgr.TogglePin(ctx, id)
			return err
		})
	case key.Matches(msg, k.Sort):
		m.projectSort = nextSort(projectSortCycle, m.projectSort)
		return m, m.refreshProjectList()
	case key.Matches(msg, k.Logout):
		svc := auth.NewService(m.opts.Client, m.opts.Client.Session())
		ctx := m.ctx
		return m, func() tea.Msg {
			return opDoneMsg{act: actLogout, err: svc.Logout(ctx)}
		}
	}

	var cmd tea.Cmd
	m.projectList, cmd = m.projectList.Update(msg)
	return m, cmd
}

func (m appModel) submitProjectModal(s modalState) tea.Cmd {
	name, id := s.value(), s.targetID
	switch s.act {
	case actNewProject:
		return m.projectOp(actNewProject, "Created "+name, func(ctx context.Context, mgr *projects.Manager) error {
			_, err := mgr.Create(ctx, name, nil)
			return err
		})
	case actRenameProject:
		return m.projectOp(actRenameProject, "Renamed to "+name, func(ctx context.Context, mgr *projects.Manager) error {
			_, err := mgr.Rename(ctx, id, name, nil)
			return err
		})
	case actDeleteProject:
		return m.projectOp(actDeleteProject, "Project deleted", func(ctx context.Context, mgr *projects.Manager) error {
			return mgr.Delete(ctx, id)
		})
	}
	return nil
}

func nextSort[T comparable](cycle []T, cur T) T {
	for i, v := range cycle {
		if v == cur {
			return cycle[(i+1)%len(cycle)]
		}
	}
	return cycle[0]
}
