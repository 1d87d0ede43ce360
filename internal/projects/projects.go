// Package projects manages the signed-in user's project list: listing,
// search and sort, CRUD and pinning.
package projects

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"lyra-cli/internal/api"
	"lyra-cli/internal/browser"
	"lyra-cli/internal/model"
)

// ErrPinLimit is returned, without contacting the server, when pinning would
// exceed model.MaxPinnedProjects.
var ErrPinLimit = fmt.Errorf("you can pin up to %d projects only", model.MaxPinnedProjects)

type ValidationError = model.ValidationError

type SortMode string

const (
	SortUpdatedDesc SortMode = "updated-desc"
	SortNameAsc     SortMode = "name-asc"
	SortNameDesc    SortMode = "name-desc"
)

func ParseSortMode(s string) (SortMode, error) {
	switch m := SortMode(strings.TrimSpace(strings.ToLower(s))); m {
	case "":
		return SortUpdatedDesc, nil
	case SortUpdatedDesc, SortNameAsc, SortNameDesc:
		return m, nil
	default:
		return "", fmt.Errorf("invalid sort %q (expected updated-desc, name-asc or name-desc)", s)
	}
}

// API is the part of the REST client the manager uses.
type API interface {
	ListProjects(ctx context.Context) ([]model.Project, error)
	CreateProject(ctx context.Context, name string, coverURL *string) (model.Project, error)
	UpdateProject(ctx context.Context, id string, patch api.ProjectPatch) (model.Project, error)
	DeleteProject(ctx context.Context, id string) error
}

type Manager struct {
	api API
	log *zap.Logger

	mu       sync.Mutex
	projects []model.Project
	loaded   bool
}

func NewManager(c API, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{api: c, log: log.Named("projects")}
}

func (m *Manager) Refresh(ctx context.Context) ([]model.Project, error) {
	ps, err := m.api.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.projects = ps
	m.loaded = true
	m.mu.Unlock()
	return append([]model.Project(nil), ps...), nil
}

func (m *Manager) ensureLoaded(ctx context.Context) error {
	m.mu.Lock()
	loaded := m.loaded
	m.mu.Unlock()
	if loaded {
		return nil
	}
	_, err := m.Refresh(ctx)
	return err
}

func (m *Manager) Projects() []model.Project {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Project(nil), m.projects...)
}

// Find returns the cached project with id.
func (m *Manager) Find(id string) (model.Project, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.projects {
		if p.ID == id {
			return p, true
		}
	}
	return model.Project{}, false
}

// Visible filters the cached projects by name and sorts them, pinned first.
func (m *Manager) Visible(query string, mode SortMode) []model.Project {
	return Visible(m.Projects(), query, mode)
}

func Visible(ps []model.Project, query string, mode SortMode) []model.Project {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]model.Project, 0, len(ps))
	for _, p := range ps {
		if q == "" || strings.Contains(strings.ToLower(p.Name), q) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Pinned != b.Pinned {
			return a.Pinned
		}
		switch mode {
		case SortNameAsc:
			return browser.CompareTitles(a.Name, b.Name) < 0
		case SortNameDesc:
			return browser.CompareTitles(a.Name, b.Name) > 0
		default:
			return a.UpdatedAt.After(b.UpdatedAt)
		}
	})
	return out
}

func (m *Manager) Create(ctx context.Context, name string, coverURL *string) (model.Project, error) {
	name, err := model.RequireName("name", name)
	if err != nil {
		return model.Project{}, err
	}
	p, err := m.api.CreateProject(ctx, name, normalizeURL(coverURL))
	if err != nil {
		return model.Project{}, err
	}
	m.log.Debug("Created project", zap.String("project_id", p.ID))
	_, err = m.Refresh(ctx)
	return p, err
}

// Rename changes a project's name and, when coverURL is non-nil, its cover.
func (m *Manager) Rename(ctx context.Context, id, name string, coverURL *string) (model.Project, error) {
	name, err := model.RequireName("name", name)
	if err != nil {
		return model.Project{}, err
	}
	p, err := m.api.UpdateProject(ctx, id, api.ProjectPatch{Name: &name, CoverImageURL: normalizeURL(coverURL)})
	if err != nil {
		return model.Project{}, err
	}
	_, err = m.Refresh(ctx)
	return p, err
}

func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.api.DeleteProject(ctx, id); err != nil {
		return err
	}
	_, err := m.Refresh(ctx)
	return err
}

// TogglePin flips a project's pinned flag.
func (m *Manager) TogglePin(ctx context.Context, id string) (model.Project, error) {
	if err := m.ensureLoaded(ctx); err != nil {
		return model.Project{}, err
	}
	p, ok := m.Find(id)
	if !ok {
		return model.Project{}, fmt.Errorf("project not found: %s", id)
	}
	return m.SetPinned(ctx, id, !p.Pinned)
}

// SetPinned pins or unpins a project. Pinning a fourth project fails with
// ErrPinLimit before any request.
func (m *Manager) SetPinned(ctx context.Context, id string, pinned bool) (model.Project, error) {
	if err := m.ensureLoaded(ctx); err != nil {
		return model.Project{}, err
	}
	m.mu.Lock()
	count := 0
	var cur *model.Project
	for i := range m.projects {
		if m.projects[i].Pinned {
			count++
		}
		if m.projects[i].ID == id {
			cur = &m.projects[i]
		}
	}
	if cur == nil {
		m.mu.Unlock()
		return model.Project{}, fmt.Errorf("project not found: %s", id)
	}
	if cur.Pinned == pinned {
		p := *cur
		m.mu.Unlock()
		return p, nil
	}
	if pinned && count >= model.MaxPinnedProjects {
		m.mu.Unlock()
		return model.Project{}, ErrPinLimit
	}
	m.mu.Unlock()

	p, err := m.api.UpdateProject(ctx, id, api.ProjectPatch{Pinned: &pinned})
	if err != nil {
		return model.Project{}, err
	}
	if _, err := m.Refresh(ctx); err != nil {
		return p, err
	}
	return p, nil
}

func normalizeURL(u *string) *string {
	if u == nil {
		return nil
	}
	v := strings.TrimSpace(*u)
	if v == "" {
		return nil
	}
	return &v
}
