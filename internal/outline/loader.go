// Package outline fetches and caches the chapter/scene outline of one document.
package outline

import (
	"context"
	"errors"
	"sync"

	"lyra-cli/internal/api"
	"lyra-cli/internal/model"
	"lyra-cli/internal/session"
)

// Fetcher is the API surface the loader needs.
type Fetcher interface {
	GetOutline(ctx context.Context, projectID, documentID string) (model.DocumentOutline, error)
}

// LoadError is any outline failure other than an expired or missing session.
type LoadError struct {
	DocumentID string
	Err        error
}

func (e *LoadError) Error() string { return "failed to load document outline" }

func (e *LoadError) Unwrap() error { return e.Err }

// Loader caches the last fetched outline. A reload replaces it wholesale, so
// edits that have not been saved yet are not reflected until their autosave
// lands and the outline is fetched again.
type Loader struct {
	fetcher    Fetcher
	projectID  string
	documentID string

	mu      sync.RWMutex
	outline *model.DocumentOutline
}

func NewLoader(f Fetcher, projectID, documentID string) *Loader {
	return &Loader{fetcher: f, projectID: projectID, documentID: documentID}
}

func (l *Loader) ProjectID() string  { return l.projectID }
func (l *Loader) DocumentID() string { return l.documentID }

// Load fetches the outline and replaces the cache. On failure the previous
// cache is kept.
func (l *Loader) Load(ctx context.Context) (model.DocumentOutline, error) {
	o, err := l.fetcher.GetOutline(ctx, l.projectID, l.documentID)
	if err != nil {
		if errors.Is(err, api.ErrAuthExpired) || errors.Is(err, session.ErrNotLoggedIn) {
			return model.DocumentOutline{}, err
		}
		return model.DocumentOutline{}, &LoadError{DocumentID: l.documentID, Err: err}
	}
	l.mu.Lock()
	l.outline = &o
	l.mu.Unlock()
	return o, nil
}

func (l *Loader) Reload(ctx context.Context) (model.DocumentOutline, error) {
	return l.Load(ctx)
}

// Outline returns the cached outline, if one was loaded.
func (l *Loader) Outline() (model.DocumentOutline, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.outline == nil {
		return model.DocumentOutline{}, false
	}
	return *l.outline, true
}

func (l *Loader) Chapter(id string) (model.Chapter, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ch, ok := l.outline.FindChapter(id)
	if !ok {
		return model.Chapter{}, false
	}
	return *ch, true
}

func (l *Loader) Scene(chapterID, sceneID string) (model.Scene, bool) {
	ch, ok := l.Chapter(chapterID)
	if !ok {
		return model.Scene{}, false
	}
	for _, s := range ch.Scenes {
		if s.ID == sceneID {
			return s, true
		}
	}
	return model.Scene{}, false
}
