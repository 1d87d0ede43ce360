package editor

import (
	"errors"
	"strings"

	"lyra-cli/internal/autosave"
)

type Mode int

const (
	// ModeNone is only the state before the first selection.
	ModeNone Mode = iota
	ModeScene
	ModeChapter
)

func (m Mode) String() string {
	switch m {
	case ModeScene:
		return "scene"
	case ModeChapter:
		return "chapter"
	default:
		return "none"
	}
}

// Selection is what the editor buffer is bound to. In scene mode both ids are
// set; in chapter mode only ChapterID is.
type Selection struct {
	Mode      Mode
	ChapterID string
	SceneID   string
}

func (s Selection) SelectScene(chapterID, sceneID string) (Selection, error) {
	chapterID, sceneID = strings.TrimSpace(chapterID), strings.TrimSpace(sceneID)
	if chapterID == "" || sceneID == "" {
		return s, errors.New("select scene: chapter and scene ids are required")
	}
	return Selection{Mode: ModeScene, ChapterID: chapterID, SceneID: sceneID}, nil
}

func (s Selection) SelectChapter(chapterID string) (Selection, error) {
	chapterID = strings.TrimSpace(chapterID)
	if chapterID == "" {
		return s, errors.New("select chapter: chapter id is required")
	}
	return Selection{Mode: ModeChapter, ChapterID: chapterID}, nil
}

// Target is the autosave target of the selection.
func (s Selection) Target() (autosave.Target, bool) {
	switch s.Mode {
	case ModeScene:
		return autosave.Target{ChapterID: s.ChapterID, SceneID: s.SceneID}, true
	case ModeChapter:
		return autosave.Target{ChapterID: s.ChapterID}, true
	default:
		return autosave.Target{}, false
	}
}

// Covers reports whether deleting chapterID/sceneID (sceneID "" = whole
// chapter) removes what the selection is bound to.
func (s Selection) Covers(chapterID, sceneID string) bool {
	if s.Mode == ModeNone || s.ChapterID != chapterID {
		return false
	}
	if sceneID == "" {
		return true
	}
	// Deleting one scene of an open chapter changes the chapter buffer too.
	return s.Mode == ModeChapter || s.SceneID == sceneID
}
