package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// MaxPinnedProjects caps how many projects may be pinned at once.
// The server does not verify this; the client enforces it.
const MaxPinnedProjects = 3

type Project struct {
	ID            string    `json:"_id"`
	Name          string    `json:"name"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	CoverImageURL *string   `json:"cover_image_url,omitempty"`
	Pinned        bool      `json:"pinned,omitempty"`
}

type Scene struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Order     int    `json:"order"`
	Wordcount int    `json:"wordcount"`
	// Content is opaque HTML. The outline endpoint omits it.
	Content *string `json:"content,omitempty"`
}

// ContentOrEmpty returns the scene content, or "" when it was not loaded.
func (s Scene) ContentOrEmpty() string {
	if s.Content == nil {
		return ""
	}
	return *s.Content
}

type Chapter struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Order     int     `json:"order"`
	Wordcount int     `json:"wordcount"`
	Scenes    []Scene `json:"scenes"`
}

// SceneIDs returns the ids of the chapter's scenes in array order.
func (c Chapter) SceneIDs() []string {
	out := make([]string, 0, len(c.Scenes))
	for _, s := range c.Scenes {
		out = append(out, s.ID)
	}
	return out
}

// DocumentOutline is a read model; it is always fetched, never assembled locally.
type DocumentOutline struct {
	DocumentID     string    `json:"document_id"`
	Title          string    `json:"title"`
	TotalWordcount int       `json:"total_wordcount"`
	Chapters       []Chapter `json:"chapters"`
}

// FindChapter returns the chapter with the given id.
func (o *DocumentOutline) FindChapter(id string) (*Chapter, bool) {
	if o == nil {
		return nil, false
	}
	for i := range o.Chapters {
		if o.Chapters[i].ID == id {
			return &o.Chapters[i], true
		}
	}
	return nil, false
}

// SceneContent is the scene payload returned by GET/PATCH on a single scene.
type SceneContent struct {
	SceneID           string `json:"scene_id"`
	ChapterID         string `json:"chapter_id"`
	Content           string `json:"content"`
	SceneWordcount    int    `json:"scene_wordcount"`
	ChapterWordcount  int    `json:"chapter_wordcount"`
	DocumentWordcount int    `json:"document_wordcount"`
}

type ItemKind string

const (
	ItemFolder   ItemKind = "folder"
	ItemDocument ItemKind = "document"
)

func (k ItemKind) Valid() bool {
	return k == ItemFolder || k == ItemDocument
}

// DocumentStats only exists on document items.
type DocumentStats struct {
	ChapterCount int `json:"chapter_count"`
	WordCount    int `json:"word_count"`
}

// Item is a node of a project's file browser: either a folder or a document.
// Doc is non-nil exactly when Kind is ItemDocument.
type Item struct {
	Kind      ItemKind
	ID        string
	Title     string
	ParentID  *string
	CreatedAt time.Time
	UpdatedAt time.Time
	Doc       *DocumentStats
}

func (it Item) IsFolder() bool   { return it.Kind == ItemFolder }
func (it Item) IsDocument() bool { return it.Kind == ItemDocument }

// ParentIs reports whether the item sits directly under parentID (nil = root).
func (it Item) ParentIs(parentID *string) bool {
	if it.ParentID == nil || parentID == nil {
		return it.ParentID == nil && parentID == nil
	}
	return *it.ParentID == *parentID
}

type wireItem struct {
	ID           string    `json:"_id"`
	Title        string    `json:"title"`
	Type         ItemKind  `json:"type"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	ChapterCount *int      `json:"chapter_count,omitempty"`
	WordCount    *int      `json:"word_count,omitempty"`
	ParentID     *string   `json:"parent_id"`
}

func (it *Item) UnmarshalJSON(b []byte) error {
	var w wireItem
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if !w.Type.Valid() {
		return fmt.Errorf("item %s: unknown type %q", w.ID, w.Type)
	}
	*it = Item{
		Kind:      w.Type,
		ID:        w.ID,
		Title:     w.Title,
		ParentID:  w.ParentID,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
	if w.Type == ItemDocument {
		st := &DocumentStats{}
		if w.ChapterCount != nil {
			st.ChapterCount = *w.ChapterCount
		}
		if w.WordCount != nil {
			st.WordCount = *w.WordCount
		}
		it.Doc = st
	}
	return nil
}

func (it Item) MarshalJSON() ([]byte, error) {
	w := wireItem{
		ID:        it.ID,
		Title:     it.Title,
		Type:      it.Kind,
		CreatedAt: it.CreatedAt,
		UpdatedAt: it.UpdatedAt,
		ParentID:  it.ParentID,
	}
	if it.Kind == ItemDocument && it.Doc != nil {
		cc, wc := it.Doc.ChapterCount, it.Doc.WordCount
		w.ChapterCount = &cc
		w.WordCount = &wc
	}
	return json.Marshal(w)
}

// StrPtr returns a pointer to s, or nil when s is empty.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StrVal dereferences p, returning "" for nil.
func StrVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
