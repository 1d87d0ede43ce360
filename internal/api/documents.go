package api

import (
	"context"
	"net/http"

	"lyra-cli/internal/model"
)

type titleBody struct {
	Title string `json:"title"`
}

func (c *Client) GetOutline(ctx context.Context, projectID, documentID string) (model.DocumentOutline, error) {
	var out model.DocumentOutline
	err := c.do(ctx, request{method: http.MethodGet, path: documentPath(projectID, documentID) + "/outline"}, &out)
	return out, err
}

func (c *Client) CreateChapter(ctx context.Context, projectID, documentID, title string) (model.Chapter, error) {
	var out model.Chapter
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   documentPath(projectID, documentID) + "/chapters",
		body:   titleBody{title},
	}, &out)
	return out, err
}

func (c *Client) RenameChapter(ctx context.Context, projectID, documentID, chapterID, title string) error {
	return c.do(ctx, request{
		method: http.MethodPatch,
		path:   chapterPath(projectID, documentID, chapterID),
		body:   titleBody{title},
	}, nil)
}

func (c *Client) DeleteChapter(ctx context.Context, projectID, documentID, chapterID string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: chapterPath(projectID, documentID, chapterID)}, nil)
}

func (c *Client) CreateScene(ctx context.Context, projectID, documentID, chapterID, title string) (model.Scene, error) {
	var out model.Scene
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   chapterPath(projectID, documentID, chapterID) + "/scenes",
		body:   titleBody{title},
	}, &out)
	return out, err
}

func (c *Client) GetScene(ctx context.Context, projectID, documentID, chapterID, sceneID string) (model.SceneContent, error) {
	var out model.SceneContent
	err := c.do(ctx, request{method: http.MethodGet, path: scenePath(projectID, documentID, chapterID, sceneID)}, &out)
	return out, err
}

// UpdateSceneContent replaces a scene's HTML. The response carries the
// server's recomputed word counts.
func (c *Client) UpdateSceneContent(ctx context.Context, projectID, documentID, chapterID, sceneID, content string) (model.SceneContent, error) {
	var out model.SceneContent
	body := struct {
		Content string `json:"content"`
	}{content}
	err := c.do(ctx, request{
		method: http.MethodPatch,
		path:   scenePath(projectID, documentID, chapterID, sceneID),
		body:   body,
	}, &out)
	return out, err
}

func (c *Client) RenameScene(ctx context.Context, projectID, documentID, chapterID, sceneID, title string) error {
	return c.do(ctx, request{
		method: http.MethodPatch,
		path:   scenePath(projectID, documentID, chapterID, sceneID),
		body:   titleBody{title},
	}, nil)
}

func (c *Client) DeleteScene(ctx context.Context, projectID, documentID, chapterID, sceneID string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: scenePath(projectID, documentID, chapterID, sceneID)}, nil)
}

// ReorderScenes submits the complete scene id sequence of a chapter.
func (c *Client) ReorderScenes(ctx context.Context, projectID, documentID, chapterID string, orderedIDs []string) error {
	body := struct {
		OrderedIDs []string `json:"ordered_ids"`
	}{orderedIDs}
	return c.do(ctx, request{
		method: http.MethodPut,
		path:   chapterPath(projectID, documentID, chapterID) + "/scenes/reorder",
		body:   body,
	}, nil)
}
