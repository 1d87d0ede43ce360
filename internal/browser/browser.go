// Package browser is the folder/document browser of one project: breadcrumb
// navigation, the current listing and optimistic re-parenting.
package browser

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"lyra-cli/internal/api"
	"lyra-cli/internal/dnd"
	"lyra-cli/internal/model"
)

// ItemsAPI is the part of the REST client the browser uses.
type ItemsAPI interface {
	ListItems(ctx context.Context, projectID string, parentID *string) ([]model.Item, error)
	CreateItem(ctx context.Context, projectID, title string, kind model.ItemKind, parentID *string) (model.Item, error)
	UpdateItem(ctx context.Context, projectID, id string, patch api.ItemPatch) (model.Item, error)
	DeleteItem(ctx context.Context, projectID, id string) error
}

type Browser struct {
	api       ItemsAPI
	projectID string
	log       *zap.Logger

	mu    sync.Mutex
	nav   *Navigator
	items []model.Item
	// known holds every item seen in this session, across folders. Re-parent
	// checks walk it.
	known map[string]model.Item
}

func New(c ItemsAPI, projectID, projectName string, log *zap.Logger) *Browser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Browser{
		api:       c,
		projectID: projectID,
		log:       log.Named("browser").With(zap.String("project_id", projectID)),
		nav:       NewNavigator(projectName),
		known:     map[string]model.Item{},
	}
}

func (b *Browser) ProjectID() string { return b.projectID }

// Items returns the current listing as last fetched (or optimistically
// modified).
func (b *Browser) Items() []model.Item {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Item(nil), b.items...)
}

func (b *Browser) Path() []Crumb {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nav.Path()
}

func (b *Browser) CurrentFolderID() *string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nav.CurrentFolderID()
}

func (b *Browser) Breadcrumb() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nav.String()
}

// Refresh re-fetches the listing of the current folder. The listing is never
// derived locally.
func (b *Browser) Refresh(ctx context.Context) ([]model.Item, error) {
	parent := b.CurrentFolderID()
	items, err := b.api.ListItems(ctx, b.projectID, parent)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	// The folder may have changed while the request was in flight.
	if !sameFolder(parent, b.nav.CurrentFolderID()) {
		return append([]model.Item(nil), b.items...), nil
	}
	b.items = items
	for _, it := range items {
		b.known[it.ID] = it
	}
	return append([]model.Item(nil), items...), nil
}

func sameFolder(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// EnterFolder descends into a folder of the current listing.
func (b *Browser) EnterFolder(ctx context.Context, id string) ([]model.Item, error) {
	b.mu.Lock()
	it, ok := b.known[id]
	if !ok || !it.IsFolder() {
		b.mu.Unlock()
		return nil, fmt.Errorf("not a folder: %s", id)
	}
	if err := b.nav.EnterFolder(it.ID, it.Title); err != nil {
		b.mu.Unlock()
		return nil, err
	}
	b.mu.Unlock()
	return b.Refresh(ctx)
}

func (b *Browser) GoToFolder(ctx context.Context, index int) ([]model.Item, error) {
	b.mu.Lock()
	err := b.nav.GoToFolder(index)
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return b.Refresh(ctx)
}

// Back leaves the current folder; at the root it only refreshes.
func (b *Browser) Back(ctx context.Context) ([]model.Item, error) {
	b.mu.Lock()
	b.nav.Back()
	b.mu.Unlock()
	return b.Refresh(ctx)
}

// Create adds a folder or document to the current folder.
func (b *Browser) Create(ctx context.Context, title string, kind model.ItemKind) (model.Item, error) {
	title, err := model.RequireName("title", title)
	if err != nil {
		return model.Item{}, err
	}
	if !kind.Valid() {
		return model.Item{}, &model.ValidationError{Field: "type", Message: fmt.Sprintf("unknown item type %q", kind)}
	}
	it, err := b.api.CreateItem(ctx, b.projectID, title, kind, b.CurrentFolderID())
	if err != nil {
		return model.Item{}, err
	}
	b.log.Debug("Created item", zap.String("item_id", it.ID), zap.String("type", string(kind)))
	_, err = b.Refresh(ctx)
	return it, err
}

func (b *Browser) Rename(ctx context.Context, id, title string) (model.Item, error) {
	title, err := model.RequireName("title", title)
	if err != nil {
		return model.Item{}, err
	}
	it, err := b.api.UpdateItem(ctx, b.projectID, id, api.ItemPatch{Title: &title})
	if err != nil {
		return model.Item{}, err
	}
	_, err = b.Refresh(ctx)
	return it, err
}

func (b *Browser) Delete(ctx context.Context, id string) error {
	if err := b.api.DeleteItem(ctx, b.projectID, id); err != nil {
		return err
	}
	b.mu.Lock()
	delete(b.known, id)
	b.mu.Unlock()
	_, err := b.Refresh(ctx)
	return err
}

// LoadTree walks every folder of the project breadth first so that re-parent
// checks see the whole tree, not only the folders visited so far.
func (b *Browser) LoadTree(ctx context.Context) ([]model.Item, error) {
	var all []model.Item
	queue := []*string{nil}
	seen := map[string]bool{}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		items, err := b.api.ListItems(ctx, b.projectID, parent)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			if seen[it.ID] {
				continue
			}
			seen[it.ID] = true
			all = append(all, it)
			if it.IsFolder() {
				id := it.ID
				queue = append(queue, &id)
			}
		}
	}
	b.mu.Lock()
	b.known = make(map[string]model.Item, len(all))
	for _, it := range all {
		b.known[it.ID] = it
	}
	b.mu.Unlock()
	return all, nil
}

// Known returns every item seen so far.
func (b *Browser) Known() []model.Item {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.knownLocked()
}

func (b *Browser) knownLocked() []model.Item {
	out := make([]model.Item, 0, len(b.known))
	for _, it := range b.known {
		out = append(out, it)
	}
	return out
}

// Reparent moves itemID under targetFolderID (nil = project root).
//
// Moves that would put a folder inside itself or its own subtree are rejected
// with *dnd.MoveRejectedError before any request. Otherwise the item leaves
// the listing at once; if the server refuses, it is put back where it was and
// the server error is returned.
func (b *Browser) Reparent(ctx context.Context, itemID string, targetFolderID *string) error {
	b.mu.Lock()
	if err := dnd.CheckReparent(b.knownLocked(), itemID, targetFolderID); err != nil {
		b.mu.Unlock()
		b.log.Debug("Move rejected", zap.String("item_id", itemID), zap.Error(err))
		return err
	}
	item := b.known[itemID]
	if item.ParentIs(targetFolderID) {
		b.mu.Unlock()
		return nil
	}
	cmd := MoveCommand{Item: item, Index: -1}
	for i, it := range b.items {
		if it.ID == itemID {
			cmd.Item, cmd.Index = it, i
			break
		}
	}
	if cmd.Index >= 0 {
		b.items = cmd.Apply(b.items)
	}
	b.mu.Unlock()

	moved, err := b.api.UpdateItem(ctx, b.projectID, itemID, api.MoveTo(targetFolderID))
	if err != nil {
		b.mu.Lock()
		if cmd.Index >= 0 {
			b.items = cmd.Undo(b.items)
		}
		b.mu.Unlock()
		b.log.Warn("Move failed, restored item",
			zap.String("item_id", itemID),
			zap.String("target", model.StrVal(targetFolderID)),
			zap.Error(err))
		return err
	}

	b.mu.Lock()
	if moved.ID == "" {
		moved = item
		moved.ParentID = targetFolderID
	}
	b.known[itemID] = moved
	b.mu.Unlock()

	if _, err := b.Refresh(ctx); err != nil {
		return fmt.Errorf("moved, but refreshing the listing failed: %w", err)
	}
	return nil
}
