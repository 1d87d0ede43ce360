// Package editor binds one document's outline to an editable buffer: scene or
// whole-chapter selection, debounced autosave and chapter/scene CRUD.
package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lyra-cli/internal/autosave"
	"lyra-cli/internal/compose"
	"lyra-cli/internal/dnd"
	"lyra-cli/internal/model"
	"lyra-cli/internal/outline"
	"lyra-cli/internal/wordcount"
)

const (
	DefaultChapterTitle = "New Chapter"
	DefaultSceneTitle   = "New Scene"

	defaultFetchConcurrency = 4
)

var (
	ErrNoSelection = errors.New("nothing selected")
	// ErrSelectionDeleted means the selected chapter or scene was deleted;
	// select something else to keep editing.
	ErrSelectionDeleted = errors.New("the selected chapter or scene was deleted")
)

// API is the part of the REST client the editor uses.
type API interface {
	outline.Fetcher
	GetScene(ctx context.Context, projectID, documentID, chapterID, sceneID string) (model.SceneContent, error)
	UpdateSceneContent(ctx context.Context, projectID, documentID, chapterID, sceneID, content string) (model.SceneContent, error)
	CreateChapter(ctx context.Context, projectID, documentID, title string) (model.Chapter, error)
	RenameChapter(ctx context.Context, projectID, documentID, chapterID, title string) error
	DeleteChapter(ctx context.Context, projectID, documentID, chapterID string) error
	CreateScene(ctx context.Context, projectID, documentID, chapterID, title string) (model.Scene, error)
	RenameScene(ctx context.Context, projectID, documentID, chapterID, sceneID, title string) error
	DeleteScene(ctx context.Context, projectID, documentID, chapterID, sceneID string) error
	ReorderScenes(ctx context.Context, projectID, documentID, chapterID string, orderedIDs []string) error
}

type Options struct {
	// Autosave configures the scheduler. Its Logger defaults to Logger.
	Autosave autosave.Options
	Logger   *zap.Logger
	// FetchConcurrency bounds parallel scene fetches when a chapter is opened.
	FetchConcurrency int
}

type Editor struct {
	api        API
	projectID  string
	documentID string
	loader     *outline.Loader
	sched      *autosave.Scheduler
	log        *zap.Logger
	fetchLimit int

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	sel         Selection
	gen         uint64
	buffer      string
	localCount  int
	serverCount int
	detached    bool
	cancelFetch context.CancelFunc
}

func New(c API, projectID, documentID string, opts Options) *Editor {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("editor").With(zap.String("document_id", documentID))
	limit := opts.FetchConcurrency
	if limit <= 0 {
		limit = defaultFetchConcurrency
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Editor{
		api:        c,
		projectID:  projectID,
		documentID: documentID,
		loader:     outline.NewLoader(c, projectID, documentID),
		log:        log,
		fetchLimit: limit,
		ctx:        ctx,
		cancel:     cancel,
	}
	so := opts.Autosave
	if so.Logger == nil {
		so.Logger = log
	}
	e.sched = autosave.New(e.save, so)
	return e
}

// scoped derives a context that ends with either ctx or the editor.
func (e *Editor) scoped(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(e.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (e *Editor) ProjectID() string  { return e.projectID }
func (e *Editor) DocumentID() string { return e.documentID }

// Open loads the outline. The selection stays ModeNone.
func (e *Editor) Open(ctx context.Context) (model.DocumentOutline, error) {
	ctx, done := e.scoped(ctx)
	defer done()
	return e.loader.Load(ctx)
}

func (e *Editor) Reload(ctx context.Context) (model.DocumentOutline, error) {
	ctx, done := e.scoped(ctx)
	defer done()
	return e.loader.Reload(ctx)
}

func (e *Editor) Outline() (model.DocumentOutline, bool) { return e.loader.Outline() }

func (e *Editor) Selection() Selection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sel
}

func (e *Editor) Buffer() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buffer
}

// WordCount is the local estimate for the buffer.
func (e *Editor) WordCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.localCount
}

// ServerWordCount is the last count the server reported for the selection.
func (e *Editor) ServerWordCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.serverCount
}

// SaveStatus reports the autosave state of the current selection.
func (e *Editor) SaveStatus() (autosave.Status, error) {
	t, ok := e.Selection().Target()
	if !ok {
		return autosave.StatusIdle, nil
	}
	return e.sched.Status(t)
}

// beginSelect cancels any selection fetch still in flight and returns the
// generation the new fetch must match to be applied.
func (e *Editor) beginSelect(ctx context.Context) (context.Context, uint64, func()) {
	ctx, done := e.scoped(ctx)
	e.mu.Lock()
	if e.cancelFetch != nil {
		e.cancelFetch()
	}
	e.gen++
	gen := e.gen
	e.cancelFetch = done
	e.mu.Unlock()
	return ctx, gen, done
}

// settle saves pending edits before a new selection is fetched. Otherwise a
// chapter could be composed from content older than an unsaved scene edit, and
// the next chapter save would overwrite that edit.
func (e *Editor) settle(ctx context.Context) error {
	if e.sched.Pending() == 0 {
		return nil
	}
	if err := e.sched.Flush(ctx); err != nil {
		return fmt.Errorf("save pending edits first: %w", err)
	}
	return nil
}

// SelectScene loads one scene into the buffer.
func (e *Editor) SelectScene(ctx context.Context, chapterID, sceneID string) error {
	next, err := e.Selection().SelectScene(chapterID, sceneID)
	if err != nil {
		return err
	}
	ctx, gen, done := e.beginSelect(ctx)
	defer done()
	if err := e.settle(ctx); err != nil {
		return err
	}

	sc, err := e.api.GetScene(ctx, e.projectID, e.documentID, next.ChapterID, next.SceneID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen {
		return context.Canceled
	}
	e.sel = next
	e.detached = false
	e.buffer = sc.Content
	e.localCount = wordcount.Count(sc.Content)
	e.serverCount = sc.SceneWordcount
	return nil
}

// SelectChapter fetches every scene of the chapter and composes them into one
// buffer. Scene contents are always fetched fresh, never taken from the
// outline.
func (e *Editor) SelectChapter(ctx context.Context, chapterID string) error {
	next, err := e.Selection().SelectChapter(chapterID)
	if err != nil {
		return err
	}
	ctx, gen, done := e.beginSelect(ctx)
	defer done()
	if err := e.settle(ctx); err != nil {
		return err
	}

	ch, ok := e.loader.Chapter(next.ChapterID)
	if !ok {
		if _, err := e.loader.Reload(ctx); err != nil {
			return err
		}
		if ch, ok = e.loader.Chapter(next.ChapterID); !ok {
			return fmt.Errorf("chapter not found: %s", next.ChapterID)
		}
	}

	scenes := append([]model.Scene(nil), ch.Scenes...)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.fetchLimit)
	for i := range scenes {
		i := i
		g.Go(func() error {
			sc, err := e.api.GetScene(gctx, e.projectID, e.documentID, ch.ID, scenes[i].ID)
			if err != nil {
				return err
			}
			content := sc.Content
			scenes[i].Content = &content
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	buf := compose.Compose(scenes)

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen {
		return context.Canceled
	}
	e.sel = next
	e.detached = false
	e.buffer = buf
	e.localCount = wordcount.Count(buf)
	e.serverCount = ch.Wordcount
	return nil
}

// Edit replaces the buffer and schedules its autosave.
func (e *Editor) Edit(content string) error {
	e.mu.Lock()
	t, ok := e.sel.Target()
	if !ok {
		e.mu.Unlock()
		return ErrNoSelection
	}
	if e.detached {
		e.mu.Unlock()
		return ErrSelectionDeleted
	}
	e.buffer = content
	e.localCount = wordcount.Count(content)
	e.mu.Unlock()

	e.sched.Schedule(t, content)
	return nil
}

// save is the autosave callback.
func (e *Editor) save(ctx context.Context, t autosave.Target, content string) error {
	if t.IsChapter() {
		_, err := e.SaveChapter(ctx, t.ChapterID, content)
		return err
	}
	sc, err := e.api.UpdateSceneContent(ctx, e.projectID, e.documentID, t.ChapterID, t.SceneID, content)
	if err != nil {
		return err
	}
	e.mu.Lock()
	if cur, ok := e.sel.Target(); ok && cur == t {
		e.serverCount = sc.SceneWordcount
	}
	e.mu.Unlock()
	return nil
}

// SaveChapter splits a composed chapter buffer and writes segment i to the
// i-th scene of the chapter in order. Scenes without a segment are cleared.
// Surplus segments, which come from a "***"-only paragraph inside a scene,
// cannot be placed; they are returned and logged. The outline is reloaded
// afterwards whether or not the writes succeeded.
func (e *Editor) SaveChapter(ctx context.Context, chapterID, html string) (dropped []string, err error) {
	ch, ok := e.loader.Chapter(chapterID)
	if !ok {
		if _, err := e.loader.Reload(ctx); err != nil {
			return nil, err
		}
		if ch, ok = e.loader.Chapter(chapterID); !ok {
			return nil, fmt.Errorf("chapter not found: %s", chapterID)
		}
	}

	assignments, dropped := compose.Assign(ch.Scenes, compose.Split(html))
	if len(dropped) > 0 {
		e.log.Warn("Chapter buffer has more segments than scenes; surplus not saved",
			zap.String("chapter_id", chapterID),
			zap.Int("scenes", len(ch.Scenes)),
			zap.Int("dropped", len(dropped)))
	}

	defer func() {
		if _, rerr := e.loader.Reload(ctx); rerr != nil && err == nil {
			err = rerr
		}
		if err == nil {
			if reloaded, ok := e.loader.Chapter(chapterID); ok {
				e.mu.Lock()
				if e.sel.Mode == ModeChapter && e.sel.ChapterID == chapterID {
					e.serverCount = reloaded.Wordcount
				}
				e.mu.Unlock()
			}
		}
	}()

	for _, a := range assignments {
		if _, err := e.api.UpdateSceneContent(ctx, e.projectID, e.documentID, chapterID, a.SceneID, a.Content); err != nil {
			return dropped, err
		}
	}
	return dropped, nil
}

// Flush saves pending edits now.
func (e *Editor) Flush(ctx context.Context) error {
	return e.sched.Flush(ctx)
}

// Close flushes pending edits, then stops autosave and cancels every request
// the editor still has in flight.
func (e *Editor) Close(ctx context.Context) error {
	err := e.sched.Flush(ctx)
	e.sched.Stop()
	e.cancel()
	return err
}

func (e *Editor) reload(ctx context.Context, opErr error) error {
	if _, err := e.loader.Reload(ctx); err != nil && opErr == nil {
		return err
	}
	return opErr
}

// flushChapter saves anything pending for the chapter before its structure
// changes, so a composed buffer is never split against a different scene list.
func (e *Editor) flushChapter(ctx context.Context, chapterID string) error {
	sel := e.Selection()
	if sel.Mode != ModeChapter || sel.ChapterID != chapterID {
		return nil
	}
	return e.sched.Flush(ctx)
}

// recompose re-reads the open chapter after its scene list changed.
func (e *Editor) recompose(ctx context.Context, chapterID string) error {
	sel := e.Selection()
	if sel.Mode != ModeChapter || sel.ChapterID != chapterID {
		return nil
	}
	return e.SelectChapter(ctx, chapterID)
}

func titleOr(title, def string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	return def
}

func (e *Editor) AddChapter(ctx context.Context, title string) (model.Chapter, error) {
	ctx, done := e.scoped(ctx)
	defer done()
	ch, err := e.api.CreateChapter(ctx, e.projectID, e.documentID, titleOr(title, DefaultChapterTitle))
	return ch, e.reload(ctx, err)
}

func (e *Editor) RenameChapter(ctx context.Context, chapterID, title string) error {
	title, err := model.RequireName("title", title)
	if err != nil {
		return err
	}
	ctx, done := e.scoped(ctx)
	defer done()
	err = e.api.RenameChapter(ctx, e.projectID, e.documentID, chapterID, title)
	return e.reload(ctx, err)
}

// DeleteChapter drops pending saves for the chapter and its scenes first.
func (e *Editor) DeleteChapter(ctx context.Context, chapterID string) error {
	ctx, done := e.scoped(ctx)
	defer done()
	if ch, ok := e.loader.Chapter(chapterID); ok {
		for _, s := range ch.Scenes {
			e.sched.Cancel(autosave.Target{ChapterID: chapterID, SceneID: s.ID})
		}
	}
	e.sched.Cancel(autosave.Target{ChapterID: chapterID})
	err := e.api.DeleteChapter(ctx, e.projectID, e.documentID, chapterID)
	if err == nil {
		e.mu.Lock()
		if e.sel.Covers(chapterID, "") {
			e.detached = true
		}
		e.mu.Unlock()
	}
	return e.reload(ctx, err)
}

// AddScene appends a scene to a chapter. An open chapter buffer is saved
// first and recomposed afterwards.
func (e *Editor) AddScene(ctx context.Context, chapterID, title string) (model.Scene, error) {
	ctx, done := e.scoped(ctx)
	defer done()
	if err := e.flushChapter(ctx, chapterID); err != nil {
		return model.Scene{}, err
	}
	sc, err := e.api.CreateScene(ctx, e.projectID, e.documentID, chapterID, titleOr(title, DefaultSceneTitle))
	if err = e.reload(ctx, err); err != nil {
		return sc, err
	}
	return sc, e.recompose(ctx, chapterID)
}

func (e *Editor) RenameScene(ctx context.Context, chapterID, sceneID, title string) error {
	title, err := model.RequireName("title", title)
	if err != nil {
		return err
	}
	ctx, done := e.scoped(ctx)
	defer done()
	err = e.api.RenameScene(ctx, e.projectID, e.documentID, chapterID, sceneID, title)
	return e.reload(ctx, err)
}

func (e *Editor) DeleteScene(ctx context.Context, chapterID, sceneID string) error {
	ctx, done := e.scoped(ctx)
	defer done()
	if err := e.flushChapter(ctx, chapterID); err != nil {
		return err
	}
	e.sched.Cancel(autosave.Target{ChapterID: chapterID, SceneID: sceneID})
	err := e.api.DeleteScene(ctx, e.projectID, e.documentID, chapterID, sceneID)
	if err == nil {
		e.mu.Lock()
		if e.sel.Mode == ModeScene && e.sel.Covers(chapterID, sceneID) {
			e.detached = true
		}
		e.mu.Unlock()
	}
	if err = e.reload(ctx, err); err != nil {
		return err
	}
	return e.recompose(ctx, chapterID)
}

// SceneOrder returns the chapter's scene ids in display order.
func (e *Editor) SceneOrder(chapterID string) ([]string, bool) {
	ch, ok := e.loader.Chapter(chapterID)
	if !ok {
		return nil, false
	}
	return model.Chapter{Scenes: compose.Ordered(ch.Scenes)}.SceneIDs(), true
}

// ReorderScenes drops activeID onto overID within a chapter and submits the
// full new id sequence. It reports false, without a request, when the order
// would not change.
func (e *Editor) ReorderScenes(ctx context.Context, chapterID, activeID, overID string) (bool, error) {
	ids, ok := e.SceneOrder(chapterID)
	if !ok {
		return false, fmt.Errorf("chapter not found: %s", chapterID)
	}
	ordered, changed := dnd.Reorder(ids, activeID, overID)
	if !changed {
		return false, nil
	}
	return true, e.SubmitOrder(ctx, chapterID, ordered)
}

// SubmitOrder persists a complete scene order for a chapter.
func (e *Editor) SubmitOrder(ctx context.Context, chapterID string, orderedIDs []string) error {
	ctx, done := e.scoped(ctx)
	defer done()
	if err := e.flushChapter(ctx, chapterID); err != nil {
		return err
	}
	err := e.api.ReorderScenes(ctx, e.projectID, e.documentID, chapterID, orderedIDs)
	if err = e.reload(ctx, err); err != nil {
		return err
	}
	return e.recompose(ctx, chapterID)
}
