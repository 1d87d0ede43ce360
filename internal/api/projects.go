package api

import (
	"context"
	"net/http"

	"lyra-cli/internal/model"
)

// ProjectPatch carries the fields to change; nil fields are left alone.
type ProjectPatch struct {
	Name          *string `json:"name,omitempty"`
	CoverImageURL *string `json:"cover_image_url,omitempty"`
	Pinned        *bool   `json:"pinned,omitempty"`
}

func (c *Client) ListProjects(ctx context.Context) ([]model.Project, error) {
	var out []model.Project
	err := c.do(ctx, request{method: http.MethodGet, path: "/projects"}, &out)
	return out, err
}

func (c *Client) GetProject(ctx context.Context, id string) (model.Project, error) {
	var out model.Project
	err := c.do(ctx, request{method: http.MethodGet, path: projectPath(id)}, &out)
	return out, err
}

func (c *Client) CreateProject(ctx context.Context, name string, coverURL *string) (model.Project, error) {
	var out model.Project
	body := struct {
		Name          string  `json:"name"`
		CoverImageURL *string `json:"cover_image_url,omitempty"`
	}{name, coverURL}
	err := c.do(ctx, request{method: http.MethodPost, path: "/projects", body: body}, &out)
	return out, err
}

func (c *Client) UpdateProject(ctx context.Context, id string, patch ProjectPatch) (model.Project, error) {
	var out model.Project
	err := c.do(ctx, request{method: http.MethodPatch, path: projectPath(id), body: patch}, &out)
	return out, err
}

func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: projectPath(id)}, nil)
}
