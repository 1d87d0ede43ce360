package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"lyra-cli/internal/model"
)

// ItemPatch renames and/or re-parents an item. ParentID is only sent when
// SetParent is true, in which case a nil ParentID moves the item to the root
// and is encoded as an explicit null.
type ItemPatch struct {
	Title     *string
	ParentID  *string
	SetParent bool
}

func (p ItemPatch) MarshalJSON() ([]byte, error) {
	m := map[string]any{}
	if p.Title != nil {
		m["title"] = *p.Title
	}
	if p.SetParent {
		if p.ParentID == nil {
			m["parent_id"] = nil
		} else {
			m["parent_id"] = *p.ParentID
		}
	}
	return json.Marshal(m)
}

// MoveTo is the patch that re-parents an item under parentID (nil = root).
func MoveTo(parentID *string) ItemPatch {
	return ItemPatch{ParentID: parentID, SetParent: true}
}

// ListItems returns the direct children of parentID (nil = project root).
func (c *Client) ListItems(ctx context.Context, projectID string, parentID *string) ([]model.Item, error) {
	var q url.Values
	if parentID != nil && *parentID != "" {
		q = url.Values{"parent_id": {*parentID}}
	}
	var out []model.Item
	err := c.do(ctx, request{method: http.MethodGet, path: itemsPath(projectID), query: q}, &out)
	return out, err
}

func (c *Client) CreateItem(ctx context.Context, projectID, title string, kind model.ItemKind, parentID *string) (model.Item, error) {
	var out model.Item
	body := struct {
		Title    string         `json:"title"`
		Type     model.ItemKind `json:"type"`
		ParentID *string        `json:"parent_id"`
	}{title, kind, parentID}
	err := c.do(ctx, request{method: http.MethodPost, path: itemsPath(projectID), body: body}, &out)
	return out, err
}

func (c *Client) UpdateItem(ctx context.Context, projectID, id string, patch ItemPatch) (model.Item, error) {
	var out model.Item
	err := c.do(ctx, request{method: http.MethodPatch, path: documentPath(projectID, id), body: patch}, &out)
	return out, err
}

func (c *Client) DeleteItem(ctx context.Context, projectID, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: documentPath(projectID, id)}, nil)
}
