package devserver

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"lyra-cli/internal/api"
	"lyra-cli/internal/autosave"
	"lyra-cli/internal/compose"
	"lyra-cli/internal/editor"
	"lyra-cli/internal/model"
	"lyra-cli/internal/session"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	srv    *Server
	client *api.Client
	sess   *session.Session
	clock  *testClock

	mu    sync.Mutex
	codes map[string]string
}

func (f *fixture) code(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.codes[email]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock: &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		codes: map[string]string{},
	}
	srv, err := New(Config{
		JWTSecret:  "test-secret",
		BcryptCost: bcrypt.MinCost,
		Now:        f.clock.Now,
		OnResetCode: func(email, code string) {
			f.mu.Lock()
			f.codes[email] = code
			f.mu.Unlock()
		},
	}, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	f.srv = srv
	f.sess, err = session.New(context.Background(), nil)
	require.NoError(t, err)
	f.client = api.NewClient(ts.URL, f.sess)
	return f
}

func (f *fixture) register(t *testing.T) {
	t.Helper()
	require.NoError(t, f.client.Register(context.Background(), "Ana", "ana@example.com", "secret123"))
	require.True(t, f.sess.Authenticated())
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.Error(t, err)
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t)

	err := f.client.Register(ctx, "Ana", "ana@example.com", "secret123")
	var se *api.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 400, se.StatusCode)
	assert.Equal(t, "Email already registered", se.Detail)

	err = f.client.Login(ctx, "ana@example.com", "wrong-password1")
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 401, se.StatusCode)
	assert.Equal(t, "Invalid credentials", api.Message(err, "fallback"))
	// A failed login is not an expired session.
	assert.True(t, f.sess.Authenticated())

	require.NoError(t, f.sess.Logout(ctx))
	require.NoError(t, f.client.Login(ctx, "ana@example.com", "secret123"))
	assert.True(t, f.sess.Authenticated())
}

func TestRegisterValidationUsesDetailList(t *testing.T) {
	f := newFixture(t)
	err := f.client.Register(context.Background(), "Ana", "ana@example.com", "short")
	var se *api.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 422, se.StatusCode)
	assert.Equal(t, "Password must be at least 8 characters", se.Detail)
}

func TestBadAndExpiredTokensForceLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.sess.Login(ctx, "not-a-jwt"))
	_, err := f.client.ListProjects(ctx)
	assert.ErrorIs(t, err, api.ErrAuthExpired)
	assert.False(t, f.sess.Authenticated())

	f.register(t)
	_, err = f.client.ListProjects(ctx)
	require.NoError(t, err)

	f.clock.Advance(DefaultTokenTTL + time.Minute)
	_, err = f.client.ListProjects(ctx)
	assert.ErrorIs(t, err, api.ErrAuthExpired)
	assert.False(t, f.sess.Authenticated())
}

func TestPasswordReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t)

	msg, err := f.client.ForgotPassword(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, msg)
	assert.Empty(t, f.code("nobody@example.com"))

	_, err = f.client.ForgotPassword(ctx, "ana@example.com")
	require.NoError(t, err)
	code := f.code("ana@example.com")
	require.Len(t, code, 6)

	_, err = f.client.ResetPassword(ctx, "ana@example.com", "000000x", "newsecret1")
	assert.Error(t, err)

	_, err = f.client.ResetPassword(ctx, "ana@example.com", code, "newsecret1")
	require.NoError(t, err)
	// Single use.
	_, err = f.client.ResetPassword(ctx, "ana@example.com", code, "newsecret2")
	assert.Error(t, err)

	require.NoError(t, f.client.Login(ctx, "ana@example.com", "newsecret1"))

	_, err = f.client.ForgotPassword(ctx, "ana@example.com")
	require.NoError(t, err)
	f.clock.Advance(DefaultResetCodeTTL + time.Second)
	_, err = f.client.ResetPassword(ctx, "ana@example.com", f.code("ana@example.com"), "newsecret3")
	assert.Error(t, err)
}

func TestProjectsCRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t)

	cover := "https://example.com/c.png"
	p, err := f.client.CreateProject(ctx, "  Novel ", &cover)
	require.NoError(t, err)
	assert.Equal(t, "Novel", p.Name)
	assert.Equal(t, &cover, p.CoverImageURL)

	pinned := true
	p, err = f.client.UpdateProject(ctx, p.ID, api.ProjectPatch{Pinned: &pinned})
	require.NoError(t, err)
	assert.True(t, p.Pinned)
	assert.Equal(t, "Novel", p.Name)

	_, err = f.client.CreateProject(ctx, "   ", nil)
	var se *api.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 422, se.StatusCode)

	list, err := f.client.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, f.client.DeleteProject(ctx, p.ID))
	_, err = f.client.GetProject(ctx, p.ID)
	require.ErrorAs(t, err, &se)
	assert.True(t, se.NotFound())
}

func TestItemTreeMoves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t)
	p, err := f.client.CreateProject(ctx, "Novel", nil)
	require.NoError(t, err)

	a, err := f.client.CreateItem(ctx, p.ID, "A", model.ItemFolder, nil)
	require.NoError(t, err)
	b, err := f.client.CreateItem(ctx, p.ID, "B", model.ItemFolder, &a.ID)
	require.NoError(t, err)
	doc, err := f.client.CreateItem(ctx, p.ID, "Draft 1", model.ItemDocument, &b.ID)
	require.NoError(t, err)
	require.NotNil(t, doc.Doc)

	// A folder cannot go under its own descendant.
	_, err = f.client.UpdateItem(ctx, p.ID, a.ID, api.MoveTo(&b.ID))
	var se *api.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 400, se.StatusCode)

	// Nor under a document.
	_, err = f.client.UpdateItem(ctx, p.ID, a.ID, api.MoveTo(&doc.ID))
	require.ErrorAs(t, err, &se)

	moved, err := f.client.UpdateItem(ctx, p.ID, b.ID, api.MoveTo(nil))
	require.NoError(t, err)
	assert.Nil(t, moved.ParentID)

	root, err := f.client.ListItems(ctx, p.ID, nil)
	require.NoError(t, err)
	assert.Len(t, root, 2)

	title := "Renamed"
	renamed, err := f.client.UpdateItem(ctx, p.ID, doc.ID, api.ItemPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", renamed.Title)
	assert.Equal(t, &b.ID, renamed.ParentID)

	require.NoError(t, f.client.DeleteItem(ctx, p.ID, b.ID))
	_, err = f.client.GetOutline(ctx, p.ID, doc.ID)
	require.ErrorAs(t, err, &se)
	assert.True(t, se.NotFound())
}

func TestReorderValidatesIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t)
	p, err := f.client.CreateProject(ctx, "Novel", nil)
	require.NoError(t, err)
	doc, err := f.client.CreateItem(ctx, p.ID, "Draft 1", model.ItemDocument, nil)
	require.NoError(t, err)
	ch, err := f.client.CreateChapter(ctx, p.ID, doc.ID, "Ch1")
	require.NoError(t, err)
	s1, err := f.client.CreateScene(ctx, p.ID, doc.ID, ch.ID, "One")
	require.NoError(t, err)
	s2, err := f.client.CreateScene(ctx, p.ID, doc.ID, ch.ID, "Two")
	require.NoError(t, err)
	assert.Equal(t, 0, s1.Order)
	assert.Equal(t, 1, s2.Order)

	assert.Error(t, f.client.ReorderScenes(ctx, p.ID, doc.ID, ch.ID, []string{s1.ID}))
	assert.Error(t, f.client.ReorderScenes(ctx, p.ID, doc.ID, ch.ID, []string{s1.ID, s1.ID}))
	require.NoError(t, f.client.ReorderScenes(ctx, p.ID, doc.ID, ch.ID, []string{s2.ID, s1.ID}))

	o, err := f.client.GetOutline(ctx, p.ID, doc.ID)
	require.NoError(t, err)
	got := compose.Ordered(o.Chapters[0].Scenes)
	assert.Equal(t, []string{s2.ID, s1.ID}, model.Chapter{Scenes: got}.SceneIDs())
}

func TestSceneWordcountsAndOutlineOmitsContent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t)
	p, err := f.client.CreateProject(ctx, "Novel", nil)
	require.NoError(t, err)
	doc, err := f.client.CreateItem(ctx, p.ID, "Draft 1", model.ItemDocument, nil)
	require.NoError(t, err)
	ch, err := f.client.CreateChapter(ctx, p.ID, doc.ID, "Ch1")
	require.NoError(t, err)
	sc, err := f.client.CreateScene(ctx, p.ID, doc.ID, ch.ID, "One")
	require.NoError(t, err)

	out, err := f.client.UpdateSceneContent(ctx, p.ID, doc.ID, ch.ID, sc.ID, "<p>Three little words</p>")
	require.NoError(t, err)
	assert.Equal(t, 3, out.SceneWordcount)
	assert.Equal(t, 3, out.ChapterWordcount)
	assert.Equal(t, 3, out.DocumentWordcount)

	require.NoError(t, f.client.RenameScene(ctx, p.ID, doc.ID, ch.ID, sc.ID, "Opening"))
	got, err := f.client.GetScene(ctx, p.ID, doc.ID, ch.ID, sc.ID)
	require.NoError(t, err)
	assert.Equal(t, "<p>Three little words</p>", got.Content)

	o, err := f.client.GetOutline(ctx, p.ID, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, o.TotalWordcount)
	require.Len(t, o.Chapters[0].Scenes, 1)
	assert.Equal(t, "Opening", o.Chapters[0].Scenes[0].Title)
	assert.Nil(t, o.Chapters[0].Scenes[0].Content)

	items, err := f.client.ListItems(ctx, p.ID, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, model.DocumentStats{ChapterCount: 1, WordCount: 3}, *items[0].Doc)
}

// Adding a scene to a chapter shows up in the composed chapter buffer.
func TestEndToEndChapterComposition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t)

	p, err := f.client.CreateProject(ctx, "Novel", nil)
	require.NoError(t, err)
	doc, err := f.client.CreateItem(ctx, p.ID, "Draft 1", model.ItemDocument, nil)
	require.NoError(t, err)

	ed := editor.New(f.client, p.ID, doc.ID, editor.Options{Autosave: autosave.Options{Delay: time.Hour}})
	t.Cleanup(func() { _ = ed.Close(context.Background()) })
	_, err = ed.Open(ctx)
	require.NoError(t, err)

	ch, err := ed.AddChapter(ctx, "Ch1")
	require.NoError(t, err)
	s1, err := ed.AddScene(ctx, ch.ID, "Scene 1")
	require.NoError(t, err)
	require.NoError(t, ed.SelectScene(ctx, ch.ID, s1.ID))
	require.NoError(t, ed.Edit("<p>Hello</p>"))
	require.NoError(t, ed.Flush(ctx))

	require.NoError(t, ed.SelectChapter(ctx, ch.ID))
	assert.Equal(t, "<p>Hello</p>", ed.Buffer())

	s2, err := ed.AddScene(ctx, ch.ID, "Scene 2")
	require.NoError(t, err)
	require.NoError(t, ed.SelectScene(ctx, ch.ID, s2.ID))
	require.NoError(t, ed.Edit("<p>World</p>"))
	require.NoError(t, ed.SelectChapter(ctx, ch.ID))

	assert.Equal(t, `<p>Hello</p><p style="text-align:center;">***</p><p>World</p>`, ed.Buffer())

	o, err := ed.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, o.TotalWordcount)
}

func TestEndToEndChapterSave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t)
	p, err := f.client.CreateProject(ctx, "Novel", nil)
	require.NoError(t, err)
	doc, err := f.client.CreateItem(ctx, p.ID, "Draft 1", model.ItemDocument, nil)
	require.NoError(t, err)

	ed := editor.New(f.client, p.ID, doc.ID, editor.Options{Autosave: autosave.Options{Delay: time.Hour}})
	t.Cleanup(func() { _ = ed.Close(context.Background()) })
	_, err = ed.Open(ctx)
	require.NoError(t, err)
	ch, err := ed.AddChapter(ctx, "Ch1")
	require.NoError(t, err)
	s1, err := ed.AddScene(ctx, ch.ID, "One")
	require.NoError(t, err)
	s2, err := ed.AddScene(ctx, ch.ID, "Two")
	require.NoError(t, err)

	require.NoError(t, ed.SelectChapter(ctx, ch.ID))
	require.NoError(t, ed.Edit(compose.ComposeContents([]string{"<p>a b</p>", "<p>c</p>"})))
	require.NoError(t, ed.Flush(ctx))

	got1, err := f.client.GetScene(ctx, p.ID, doc.ID, ch.ID, s1.ID)
	require.NoError(t, err)
	got2, err := f.client.GetScene(ctx, p.ID, doc.ID, ch.ID, s2.ID)
	require.NoError(t, err)
	assert.Equal(t, "<p>a b</p>", got1.Content)
	assert.Equal(t, "<p>c</p>", got2.Content)
	assert.Equal(t, 3, got2.ChapterWordcount)
}
