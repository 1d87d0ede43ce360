package outline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lyra-cli/internal/api"
	"lyra-cli/internal/model"
)

type stubFetcher struct {
	outlines []model.DocumentOutline
	err      error
	calls    int
}

func (f *stubFetcher) GetOutline(_ context.Context, pid, did string) (model.DocumentOutline, error) {
	f.calls++
	if f.err != nil {
		return model.DocumentOutline{}, f.err
	}
	o := f.outlines[0]
	if len(f.outlines) > 1 {
		f.outlines = f.outlines[1:]
	}
	return o, nil
}

func sampleOutline(title string) model.DocumentOutline {
	return model.DocumentOutline{
		DocumentID: "d1",
		Title:      title,
		Chapters: []model.Chapter{{
			ID:    "c1",
			Title: "Ch1",
			Scenes: []model.Scene{
				{ID: "s1", Title: "Scene 1"},
				{ID: "s2", Title: "Scene 2", Order: 1},
			},
		}},
	}
}

func TestReloadReplacesWholesale(t *testing.T) {
	f := &stubFetcher{outlines: []model.DocumentOutline{sampleOutline("v1"), {DocumentID: "d1", Title: "v2"}}}
	l := NewLoader(f, "p1", "d1")

	_, ok := l.Outline()
	assert.False(t, ok)

	o, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v1", o.Title)
	sc, ok := l.Scene("c1", "s2")
	require.True(t, ok)
	assert.Equal(t, "Scene 2", sc.Title)

	_, err = l.Reload(context.Background())
	require.NoError(t, err)
	cached, ok := l.Outline()
	require.True(t, ok)
	assert.Equal(t, "v2", cached.Title)
	_, ok = l.Chapter("c1")
	assert.False(t, ok, "chapters of the old outline must not survive a reload")
	assert.Equal(t, 2, f.calls)
}

func TestLoadErrorKeepsCache(t *testing.T) {
	f := &stubFetcher{outlines: []model.DocumentOutline{sampleOutline("v1")}}
	l := NewLoader(f, "p1", "d1")
	_, err := l.Load(context.Background())
	require.NoError(t, err)

	f.err = &api.StatusError{Method: "GET", Path: "/x", StatusCode: 500}
	_, err = l.Reload(context.Background())
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "failed to load document outline", err.Error())
	assert.True(t, api.IsNetworkOrServer(err))

	cached, ok := l.Outline()
	require.True(t, ok)
	assert.Equal(t, "v1", cached.Title)
}

func TestAuthExpiryPassesThrough(t *testing.T) {
	l := NewLoader(&stubFetcher{err: api.ErrAuthExpired}, "p1", "d1")
	_, err := l.Load(context.Background())
	assert.ErrorIs(t, err, api.ErrAuthExpired)
	var le *LoadError
	assert.False(t, errors.As(err, &le))
}
