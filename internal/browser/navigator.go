package browser

import (
	"fmt"
	"strings"
)

// Crumb is one breadcrumb segment. The root crumb has a nil FolderID and the
// project's name as its title.
type Crumb struct {
	FolderID *string `json:"folder_id"`
	Title    string  `json:"title"`
}

// Navigator is the folder path inside one project. The root crumb is always
// first and can never be removed.
type Navigator struct {
	path []Crumb
}

func NewNavigator(projectName string) *Navigator {
	return &Navigator{path: []Crumb{{FolderID: nil, Title: projectName}}}
}

// CurrentFolderID is the id of the innermost folder, or nil at the root.
func (n *Navigator) CurrentFolderID() *string {
	id := n.path[len(n.path)-1].FolderID
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// Path returns a copy of the breadcrumb trail.
func (n *Navigator) Path() []Crumb {
	return append([]Crumb(nil), n.path...)
}

func (n *Navigator) Depth() int { return len(n.path) - 1 }

func (n *Navigator) AtRoot() bool { return len(n.path) == 1 }

func (n *Navigator) EnterFolder(id, title string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("enter folder: missing id")
	}
	n.path = append(n.path, Crumb{FolderID: &id, Title: title})
	return nil
}

// GoToFolder truncates the path so the crumb at index becomes current.
func (n *Navigator) GoToFolder(index int) error {
	if index < 0 || index >= len(n.path) {
		return fmt.Errorf("go to folder: index %d out of range [0,%d)", index, len(n.path))
	}
	n.path = n.path[:index+1]
	return nil
}

// Back leaves the current folder. It reports false at the root.
func (n *Navigator) Back() bool {
	if len(n.path) <= 1 {
		return false
	}
	n.path = n.path[:len(n.path)-1]
	return true
}

// SetProjectName retitles the root crumb, e.g. after the project was renamed.
func (n *Navigator) SetProjectName(name string) {
	n.path[0].Title = name
}

// String renders the trail as "Project / Folder / Sub".
func (n *Navigator) String() string {
	parts := make([]string, 0, len(n.path))
	for _, c := range n.path {
		parts = append(parts, c.Title)
	}
	return strings.Join(parts, " / ")
}
