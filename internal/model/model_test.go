package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemDecodeVariants(t *testing.T) {
	raw := `[
		{"_id":"f1","title":"Drafts","type":"folder","created_at":"2024-01-02T03:04:05Z","updated_at":"2024-01-02T03:04:05Z","parent_id":null,"word_count":12},
		{"_id":"d1","title":"Draft 1","type":"document","created_at":"2024-01-02T03:04:05Z","updated_at":"2024-01-03T03:04:05Z","chapter_count":2,"word_count":340,"parent_id":"f1"}
	]`
	var items []Item
	require.NoError(t, json.Unmarshal([]byte(raw), &items))
	require.Len(t, items, 2)

	folder := items[0]
	assert.True(t, folder.IsFolder())
	assert.Nil(t, folder.ParentID)
	assert.Nil(t, folder.Doc, "folders never carry document stats")

	doc := items[1]
	assert.True(t, doc.IsDocument())
	require.NotNil(t, doc.ParentID)
	assert.Equal(t, "f1", *doc.ParentID)
	require.NotNil(t, doc.Doc)
	assert.Equal(t, 2, doc.Doc.ChapterCount)
	assert.Equal(t, 340, doc.Doc.WordCount)
}

func TestItemDecodeRejectsUnknownKind(t *testing.T) {
	var it Item
	err := json.Unmarshal([]byte(`{"_id":"x","title":"x","type":"image"}`), &it)
	require.Error(t, err)
}

func TestItemEncodeKeepsNullParent(t *testing.T) {
	b, err := json.Marshal(Item{Kind: ItemFolder, ID: "f1", Title: "A"})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"parent_id":null`)
	assert.NotContains(t, string(b), "word_count")
}

func TestItemParentIs(t *testing.T) {
	root := Item{ID: "a"}
	child := Item{ID: "b", ParentID: StrPtr("a")}
	assert.True(t, root.ParentIs(nil))
	assert.False(t, root.ParentIs(StrPtr("a")))
	assert.True(t, child.ParentIs(StrPtr("a")))
	assert.False(t, child.ParentIs(nil))
}

func TestFindChapter(t *testing.T) {
	o := &DocumentOutline{Chapters: []Chapter{{ID: "c1"}, {ID: "c2"}}}
	ch, ok := o.FindChapter("c2")
	require.True(t, ok)
	assert.Equal(t, "c2", ch.ID)
	_, ok = o.FindChapter("nope")
	assert.False(t, ok)
	var nilOutline *DocumentOutline
	_, ok = nilOutline.FindChapter("c1")
	assert.False(t, ok)
}
