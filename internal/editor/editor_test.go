package editor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lyra-cli/internal/autosave"
	"lyra-cli/internal/model"
	"lyra-cli/internal/wordcount"
)

// fakeAPI is a tiny in-memory document with one writer at a time.
type fakeAPI struct {
	mu       sync.Mutex
	chapters []model.Chapter
	contents map[string]string
	nextID   int

	updates  []string
	reorders [][]string
	outlines int
	gets     int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{contents: map[string]string{}}
}

func (f *fakeAPI) addScene(cid, title, content string, order int) string {
	f.nextID++
	id := fmt.Sprintf("s%d", f.nextID)
	for i := range f.chapters {
		if f.chapters[i].ID == cid {
			f.chapters[i].Scenes = append(f.chapters[i].Scenes, model.Scene{ID: id, Title: title, Order: order})
		}
	}
	f.contents[id] = content
	return id
}

func (f *fakeAPI) GetOutline(context.Context, string, string) (model.DocumentOutline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outlines++
	o := model.DocumentOutline{DocumentID: "d1", Title: "Draft 1"}
	for _, ch := range f.chapters {
		c := ch
		c.Scenes = append([]model.Scene(nil), ch.Scenes...)
		c.Wordcount = 0
		for i := range c.Scenes {
			c.Scenes[i].Wordcount = wordcount.Count(f.contents[c.Scenes[i].ID])
			c.Wordcount += c.Scenes[i].Wordcount
		}
		o.Chapters = append(o.Chapters, c)
	}
	return o, nil
}

func (f *fakeAPI) GetScene(_ context.Context, _, _, cid, sid string) (model.SceneContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	c, ok := f.contents[sid]
	if !ok {
		return model.SceneContent{}, fmt.Errorf("scene not found: %s", sid)
	}
	return model.SceneContent{SceneID: sid, ChapterID: cid, Content: c, SceneWordcount: wordcount.Count(c)}, nil
}

func (f *fakeAPI) UpdateSceneContent(_ context.Context, _, _, cid, sid, content string) (model.SceneContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, sid+"="+content)
	f.contents[sid] = content
	return model.SceneContent{SceneID: sid, ChapterID: cid, Content: content, SceneWordcount: wordcount.Count(content)}, nil
}

func (f *fakeAPI) CreateChapter(_ context.Context, _, _, title string) (model.Chapter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	ch := model.Chapter{ID: fmt.Sprintf("c%d", f.nextID), Title: title, Order: len(f.chapters)}
	f.chapters = append(f.chapters, ch)
	return ch, nil
}

func (f *fakeAPI) RenameChapter(_ context.Context, _, _, cid, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.chapters {
		if f.chapters[i].ID == cid {
			f.chapters[i].Title = title
		}
	}
	return nil
}

func (f *fakeAPI) DeleteChapter(_ context.Context, _, _, cid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.chapters {
		if f.chapters[i].ID == cid {
			f.chapters = append(f.chapters[:i], f.chapters[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeAPI) CreateScene(_ context.Context, _, _, cid, title string) (model.Scene, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order := 0
	for _, ch := range f.chapters {
		if ch.ID == cid {
			order = len(ch.Scenes)
		}
	}
	id := f.addScene(cid, title, "", order)
	return model.Scene{ID: id, Title: title, Order: order}, nil
}

func (f *fakeAPI) RenameScene(context.Context, string, string, string, string, string) error {
	return nil
}

func (f *fakeAPI) DeleteScene(_ context.Context, _, _, cid, sid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.chapters {
		if f.chapters[i].ID != cid {
			continue
		}
		for j, s := range f.chapters[i].Scenes {
			if s.ID == sid {
				f.chapters[i].Scenes = append(f.chapters[i].Scenes[:j], f.chapters[i].Scenes[j+1:]...)
				break
			}
		}
	}
	delete(f.contents, sid)
	return nil
}

func (f *fakeAPI) ReorderScenes(_ context.Context, _, _, cid string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reorders = append(f.reorders, append([]string(nil), ids...))
	for i := range f.chapters {
		if f.chapters[i].ID != cid {
			continue
		}
		byID := map[string]model.Scene{}
		for _, s := range f.chapters[i].Scenes {
			byID[s.ID] = s
		}
		var out []model.Scene
		for n, id := range ids {
			s := byID[id]
			s.Order = n
			out = append(out, s)
		}
		f.chapters[i].Scenes = out
	}
	return nil
}

func (f *fakeAPI) updateLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.updates...)
}

// newTestEditor returns an editor whose autosave never fires on its own;
// tests drive saves with Flush.
func newTestEditor(t *testing.T, f *fakeAPI) *Editor {
	t.Helper()
	e := New(f, "p1", "d1", Options{Autosave: autosave.Options{Delay: time.Hour}})
	t.Cleanup(func() { _ = e.Close(context.Background()) })
	_, err := e.Open(context.Background())
	require.NoError(t, err)
	return e
}

func seeded() (*fakeAPI, string, []string) {
	f := newFakeAPI()
	f.chapters = []model.Chapter{{ID: "c1", Title: "Ch1"}}
	// Array order differs from display order on purpose.
	s2 := f.addScene("c1", "Scene 2", "<p>World</p>", 1)
	s1 := f.addScene("c1", "Scene 1", "<p>Hello</p>", 0)
	return f, "c1", []string{s1, s2}
}

func TestEditBeforeSelectionFails(t *testing.T) {
	f, _, _ := seeded()
	e := newTestEditor(t, f)
	assert.ErrorIs(t, e.Edit("<p>x</p>"), ErrNoSelection)
	assert.Equal(t, ModeNone, e.Selection().Mode)
}

func TestSceneModeAutosave(t *testing.T) {
	f, cid, ids := seeded()
	e := newTestEditor(t, f)
	ctx := context.Background()

	require.NoError(t, e.SelectScene(ctx, cid, ids[0]))
	assert.Equal(t, Selection{Mode: ModeScene, ChapterID: cid, SceneID: ids[0]}, e.Selection())
	assert.Equal(t, "<p>Hello</p>", e.Buffer())
	assert.Equal(t, 1, e.WordCount())

	require.NoError(t, e.Edit("<p>Hello there</p>"))
	assert.Equal(t, 2, e.WordCount())
	st, _ := e.SaveStatus()
	assert.Equal(t, autosave.StatusPending, st)

	require.NoError(t, e.Flush(ctx))
	assert.Equal(t, []string{ids[0] + "=<p>Hello there</p>"}, f.updateLog())
	assert.Equal(t, 2, e.ServerWordCount())
	st, _ = e.SaveStatus()
	assert.Equal(t, autosave.StatusSaved, st)
}

func TestChapterModeComposesFreshContentInOrder(t *testing.T) {
	f, cid, _ := seeded()
	e := newTestEditor(t, f)

	require.NoError(t, e.SelectChapter(context.Background(), cid))
	assert.Equal(t, Selection{Mode: ModeChapter, ChapterID: cid}, e.Selection())
	assert.Equal(t, `<p>Hello</p><p style="text-align:center;">***</p><p>World</p>`, e.Buffer())
	assert.Equal(t, 2, f.gets, "every scene is fetched explicitly")
}

func TestChapterSaveSplitsIntoScenes(t *testing.T) {
	f, cid, ids := seeded()
	e := newTestEditor(t, f)
	ctx := context.Background()
	require.NoError(t, e.SelectChapter(ctx, cid))
	outlinesBefore := f.outlines

	require.NoError(t, e.Edit(`<p>Hi</p><P class="x"> *** </P><p>Earth</p>`))
	require.NoError(t, e.Flush(ctx))

	assert.Equal(t, []string{ids[0] + "=<p>Hi</p>", ids[1] + "=<p>Earth</p>"}, f.updateLog())
	assert.Greater(t, f.outlines, outlinesBefore, "a chapter save reloads the outline")
	assert.Equal(t, 2, e.ServerWordCount())
}

func TestChapterSaveClearsMissingAndDropsSurplus(t *testing.T) {
	f, cid, ids := seeded()
	e := newTestEditor(t, f)
	ctx := context.Background()

	dropped, err := e.SaveChapter(ctx, cid, "<p>only one</p>")
	require.NoError(t, err)
	assert.Empty(t, dropped)
	assert.Equal(t, []string{ids[0] + "=<p>only one</p>", ids[1] + "="}, f.updateLog())

	dropped, err = e.SaveChapter(ctx, cid, `<p>a</p><p>***</p><p>b</p><p>***</p><p>c</p>`)
	require.NoError(t, err)
	assert.Equal(t, []string{"<p>c</p>"}, dropped)
}

func TestReorderScenes(t *testing.T) {
	f, cid, ids := seeded()
	e := newTestEditor(t, f)
	ctx := context.Background()

	changed, err := e.ReorderScenes(ctx, cid, ids[0], ids[0])
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, f.reorders, "unchanged order sends nothing")

	changed, err = e.ReorderScenes(ctx, cid, ids[1], ids[0])
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, f.reorders, 1)
	assert.Equal(t, []string{ids[1], ids[0]}, f.reorders[0])

	order, ok := e.SceneOrder(cid)
	require.True(t, ok)
	assert.Equal(t, []string{ids[1], ids[0]}, order)
}

func TestReorderRecomposesOpenChapter(t *testing.T) {
	f, cid, ids := seeded()
	e := newTestEditor(t, f)
	ctx := context.Background()
	require.NoError(t, e.SelectChapter(ctx, cid))

	_, err := e.ReorderScenes(ctx, cid, ids[1], ids[0])
	require.NoError(t, err)
	assert.Equal(t, `<p>World</p><p style="text-align:center;">***</p><p>Hello</p>`, e.Buffer())
}

func TestAddSceneToOpenChapter(t *testing.T) {
	f := newFakeAPI()
	e := newTestEditor(t, f)
	ctx := context.Background()

	ch, err := e.AddChapter(ctx, " ")
	require.NoError(t, err)
	assert.Equal(t, DefaultChapterTitle, ch.Title)
	sc, err := e.AddScene(ctx, ch.ID, "Scene 1")
	require.NoError(t, err)
	require.NoError(t, e.SelectScene(ctx, ch.ID, sc.ID))
	require.NoError(t, e.Edit("<p>Hello</p>"))
	require.NoError(t, e.SelectChapter(ctx, ch.ID))
	assert.Equal(t, "<p>Hello</p>", e.Buffer())

	sc2, err := e.AddScene(ctx, ch.ID, "Scene 2")
	require.NoError(t, err)
	_, err = f.UpdateSceneContent(ctx, "p1", "d1", ch.ID, sc2.ID, "<p>World</p>")
	require.NoError(t, err)
	require.NoError(t, e.SelectChapter(ctx, ch.ID))
	assert.Equal(t, `<p>Hello</p><p style="text-align:center;">***</p><p>World</p>`, e.Buffer())
}

func TestDeletingSelectedSceneDetachesBuffer(t *testing.T) {
	f, cid, ids := seeded()
	e := newTestEditor(t, f)
	ctx := context.Background()
	require.NoError(t, e.SelectScene(ctx, cid, ids[1]))
	require.NoError(t, e.Edit("<p>unsaved</p>"))

	require.NoError(t, e.DeleteScene(ctx, cid, ids[1]))
	assert.ErrorIs(t, e.Edit("<p>more</p>"), ErrSelectionDeleted)
	require.NoError(t, e.Flush(ctx))
	assert.Empty(t, f.updateLog(), "pending edits of a deleted scene are dropped")

	require.NoError(t, e.SelectScene(ctx, cid, ids[0]))
	assert.NoError(t, e.Edit("<p>fine</p>"))
}

func TestRenameValidatesTitle(t *testing.T) {
	f, cid, ids := seeded()
	e := newTestEditor(t, f)
	assert.Error(t, e.RenameChapter(context.Background(), cid, "  "))
	assert.Error(t, e.RenameScene(context.Background(), cid, ids[0], ""))
	require.NoError(t, e.RenameChapter(context.Background(), cid, "Opening"))
	ch, ok := e.loader.Chapter(cid)
	require.True(t, ok)
	assert.Equal(t, "Opening", ch.Title)
}

func TestSelectionTransitions(t *testing.T) {
	var s Selection
	_, err := s.SelectScene("c1", "")
	assert.Error(t, err)
	_, err = s.SelectChapter(" ")
	assert.Error(t, err)

	s, err = s.SelectScene("c1", "s1")
	require.NoError(t, err)
	tgt, ok := s.Target()
	require.True(t, ok)
	assert.Equal(t, "scene:c1/s1", tgt.Key())

	s, err = s.SelectChapter("c1")
	require.NoError(t, err)
	assert.Empty(t, s.SceneID)
	tgt, _ = s.Target()
	assert.True(t, tgt.IsChapter())

	assert.True(t, s.Covers("c1", "s9"))
	assert.False(t, s.Covers("c2", ""))
	_, ok = Selection{}.Target()
	assert.False(t, ok)
}
