package devserver

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lyra-cli/internal/compose"
	"lyra-cli/internal/dnd"
	"lyra-cli/internal/model"
	"lyra-cli/internal/wordcount"
)

// apiError is rendered as {"detail": Detail} with Status.
type apiError struct {
	Status int
	Detail string
}

func (e *apiError) Error() string { return fmt.Sprintf("%d: %s", e.Status, e.Detail) }

func notFound(what string) error {
	return &apiError{Status: http.StatusNotFound, Detail: what + " not found"}
}

func badRequest(detail string) error {
	return &apiError{Status: http.StatusBadRequest, Detail: detail}
}

var errInvalidCredentials = &apiError{Status: http.StatusUnauthorized, Detail: "Invalid credentials"}

type user struct {
	ID           string
	Name         string
	Email        string
	PasswordHash []byte

	resetCode    string
	resetExpires time.Time
}

type project struct {
	model.Project
	OwnerID string
}

// document holds the chapters of one document item; scene content is kept
// inline and stripped when the outline is served.
type document struct {
	Chapters []model.Chapter
}

// memStore is the dev server's whole database. Every method takes the lock,
// so handlers never see a half-applied change.
type memStore struct {
	mu       sync.Mutex
	now      func() time.Time
	users    map[string]*user
	byEmail  map[string]string
	projects map[string]*project
	items    map[string]*model.Item
	// project id per item id
	itemProject map[string]string
	docs        map[string]*document

	// creation order, so listings are stable
	projectOrder []string
	itemOrder    []string
}

func newMemStore(now func() time.Time) *memStore {
	if now == nil {
		now = time.Now
	}
	return &memStore{
		now:         func() time.Time { return now().UTC() },
		users:       map[string]*user{},
		byEmail:     map[string]string{},
		projects:    map[string]*project{},
		items:       map[string]*model.Item{},
		itemProject: map[string]string{},
		docs:        map[string]*document{},
	}
}

func newID() string { return uuid.NewString() }

// ---- users ----

func (s *memStore) addUser(name, email string, hash []byte) (*user, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(email)
	if _, ok := s.byEmail[key]; ok {
		return nil, badRequest("Email already registered")
	}
	u := &user{ID: newID(), Name: name, Email: email, PasswordHash: hash}
	s.users[u.ID] = u
	s.byEmail[key] = u.ID
	return u, nil
}

func (s *memStore) userByEmail(email string) (user, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return user{}, false
	}
	return *s.users[id], true
}

func (s *memStore) userExists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[id]
	return ok
}

func (s *memStore) setResetCode(email, code string, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return false
	}
	u := s.users[id]
	u.resetCode = code
	u.resetExpires = s.now().Add(ttl)
	return true
}

// resetPassword consumes a reset code. Codes are single use.
func (s *memStore) resetPassword(email, code string, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	invalid := badRequest("Invalid or expired reset code")
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return invalid
	}
	u := s.users[id]
	if u.resetCode == "" || u.resetCode != code || s.now().After(u.resetExpires) {
		return invalid
	}
	u.PasswordHash = hash
	u.resetCode = ""
	return nil
}

// ---- projects ----

func (s *memStore) ownedProjectLocked(owner, pid string) (*project, error) {
	p, ok := s.projects[pid]
	if !ok || p.OwnerID != owner {
		return nil, notFound("Project")
	}
	return p, nil
}

func (s *memStore) listProjects(owner string) []model.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Project{}
	for _, id := range s.projectOrder {
		if p := s.projects[id]; p.OwnerID == owner {
			out = append(out, p.Project)
		}
	}
	return out
}

func (s *memStore) getProject(owner, pid string) (model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.ownedProjectLocked(owner, pid)
	if err != nil {
		return model.Project{}, err
	}
	return p.Project, nil
}

func (s *memStore) createProject(owner, name string, cover *string) model.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	p := &project{
		Project: model.Project{
			ID:            newID(),
			Name:          name,
			CreatedAt:     now,
			UpdatedAt:     now,
			CoverImageURL: cover,
		},
		OwnerID: owner,
	}
	s.projects[p.ID] = p
	s.projectOrder = append(s.projectOrder, p.ID)
	return p.Project
}

type projectPatch struct {
	Name          *string `json:"name"`
	CoverImageURL *string `json:"cover_image_url"`
	Pinned        *bool   `json:"pinned"`
}

func (s *memStore) updateProject(owner, pid string, patch projectPatch) (model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.ownedProjectLocked(owner, pid)
	if err != nil {
		return model.Project{}, err
	}
	changed := false
	if patch.Name != nil {
		p.Name = *patch.Name
		changed = true
	}
	if patch.CoverImageURL != nil {
		p.CoverImageURL = patch.CoverImageURL
		changed = true
	}
	if patch.Pinned != nil {
		p.Pinned = *patch.Pinned
		changed = true
	}
	if changed {
		p.UpdatedAt = s.now()
	}
	return p.Project, nil
}

func (s *memStore) deleteProject(owner, pid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.ownedProjectLocked(owner, pid); err != nil {
		return err
	}
	delete(s.projects, pid)
	s.projectOrder = slices.DeleteFunc(s.projectOrder, func(id string) bool { return id == pid })
	for _, it := range s.projectItemsLocked(pid) {
		s.dropItemLocked(it.ID)
	}
	return nil
}

// ---- items ----

func (s *memStore) dropItemLocked(id string) {
	delete(s.items, id)
	delete(s.itemProject, id)
	delete(s.docs, id)
	s.itemOrder = slices.DeleteFunc(s.itemOrder, func(x string) bool { return x == id })
}

func (s *memStore) projectItemsLocked(pid string) []model.Item {
	var out []model.Item
	for _, id := range s.itemOrder {
		if s.itemProject[id] == pid {
			out = append(out, *s.items[id])
		}
	}
	return out
}

func (s *memStore) itemLocked(owner, pid, id string) (*model.Item, error) {
	if _, err := s.ownedProjectLocked(owner, pid); err != nil {
		return nil, err
	}
	it, ok := s.items[id]
	if !ok || s.itemProject[id] != pid {
		return nil, notFound("Document")
	}
	return it, nil
}

func (s *memStore) checkParentLocked(pid string, parentID *string) error {
	if parentID == nil {
		return nil
	}
	parent, ok := s.items[*parentID]
	if !ok || s.itemProject[*parentID] != pid {
		return notFound("Parent folder")
	}
	if !parent.IsFolder() {
		return badRequest("Parent must be a folder")
	}
	return nil
}

func (s *memStore) listItems(owner, pid string, parentID *string) ([]model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.ownedProjectLocked(owner, pid); err != nil {
		return nil, err
	}
	out := []model.Item{}
	for _, it := range s.projectItemsLocked(pid) {
		if it.ParentIs(parentID) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (s *memStore) createItem(owner, pid, title string, kind model.ItemKind, parentID *string) (model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.ownedProjectLocked(owner, pid); err != nil {
		return model.Item{}, err
	}
	if err := s.checkParentLocked(pid, parentID); err != nil {
		return model.Item{}, err
	}
	now := s.now()
	it := &model.Item{
		Kind:      kind,
		ID:        newID(),
		Title:     title,
		ParentID:  parentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if kind == model.ItemDocument {
		it.Doc = &model.DocumentStats{}
		s.docs[it.ID] = &document{Chapters: []model.Chapter{}}
	}
	s.items[it.ID] = it
	s.itemProject[it.ID] = pid
	s.itemOrder = append(s.itemOrder, it.ID)
	return *it, nil
}

type itemPatch struct {
	Title     *string
	ParentID  *string
	SetParent bool
}

func (s *memStore) updateItem(owner, pid, id string, patch itemPatch) (model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, err := s.itemLocked(owner, pid, id)
	if err != nil {
		return model.Item{}, err
	}
	if patch.SetParent && !it.ParentIs(patch.ParentID) {
		err := dnd.CheckReparent(s.projectItemsLocked(pid), id, patch.ParentID)
		var rej *dnd.MoveRejectedError
		if errors.As(err, &rej) {
			switch rej.Reason {
			case dnd.RejectUnknown:
				return model.Item{}, notFound("Parent folder")
			case dnd.RejectNotFolder:
				return model.Item{}, badRequest("Parent must be a folder")
			default:
				return model.Item{}, badRequest("Cannot move a folder into itself or one of its subfolders")
			}
		}
		it.ParentID = patch.ParentID
	}
	if patch.Title != nil {
		it.Title = *patch.Title
	}
	it.UpdatedAt = s.now()
	return *it, nil
}

// deleteItem removes the item and, for folders, everything below it.
func (s *memStore) deleteItem(owner, pid, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.itemLocked(owner, pid, id); err != nil {
		return err
	}
	for _, d := range dnd.Descendants(s.projectItemsLocked(pid), id) {
		s.dropItemLocked(d)
	}
	s.dropItemLocked(id)
	return nil
}

// ---- documents ----

func (s *memStore) docLocked(owner, pid, did string) (*model.Item, *document, error) {
	it, err := s.itemLocked(owner, pid, did)
	if err != nil {
		return nil, nil, err
	}
	doc, ok := s.docs[did]
	if !ok {
		return nil, nil, notFound("Document")
	}
	return it, doc, nil
}

func (d *document) chapter(cid string) (*model.Chapter, error) {
	for i := range d.Chapters {
		if d.Chapters[i].ID == cid {
			return &d.Chapters[i], nil
		}
	}
	return nil, notFound("Chapter")
}

func findScene(ch *model.Chapter, sid string) (*model.Scene, error) {
	for i := range ch.Scenes {
		if ch.Scenes[i].ID == sid {
			return &ch.Scenes[i], nil
		}
	}
	return nil, notFound("Scene")
}

// recount refreshes the chapter and document counts after scene changes and
// mirrors them onto the document item.
func (s *memStore) recountLocked(it *model.Item, doc *document) int {
	total := 0
	for i := range doc.Chapters {
		ch := &doc.Chapters[i]
		ch.Wordcount = 0
		for _, sc := range ch.Scenes {
			ch.Wordcount += sc.Wordcount
		}
		total += ch.Wordcount
	}
	it.Doc = &model.DocumentStats{ChapterCount: len(doc.Chapters), WordCount: total}
	it.UpdatedAt = s.now()
	return total
}

func (s *memStore) outline(owner, pid, did string) (model.DocumentOutline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, doc, err := s.docLocked(owner, pid, did)
	if err != nil {
		return model.DocumentOutline{}, err
	}
	out := model.DocumentOutline{
		DocumentID: did,
		Title:      it.Title,
		Chapters:   make([]model.Chapter, 0, len(doc.Chapters)),
	}
	if it.Doc != nil {
		out.TotalWordcount = it.Doc.WordCount
	}
	for _, ch := range doc.Chapters {
		c := ch
		c.Scenes = make([]model.Scene, 0, len(ch.Scenes))
		for _, sc := range ch.Scenes {
			sc.Content = nil
			c.Scenes = append(c.Scenes, sc)
		}
		out.Chapters = append(out.Chapters, c)
	}
	return out, nil
}

func (s *memStore) createChapter(owner, pid, did, title string) (model.Chapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, doc, err := s.docLocked(owner, pid, did)
	if err != nil {
		return model.Chapter{}, err
	}
	ch := model.Chapter{ID: newID(), Title: title, Order: len(doc.Chapters), Scenes: []model.Scene{}}
	doc.Chapters = append(doc.Chapters, ch)
	s.recountLocked(it, doc)
	return ch, nil
}

func (s *memStore) renameChapter(owner, pid, did, cid, title string) (model.Chapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, doc, err := s.docLocked(owner, pid, did)
	if err != nil {
		return model.Chapter{}, err
	}
	ch, err := doc.chapter(cid)
	if err != nil {
		return model.Chapter{}, err
	}
	ch.Title = title
	return *ch, nil
}

func (s *memStore) deleteChapter(owner, pid, did, cid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, doc, err := s.docLocked(owner, pid, did)
	if err != nil {
		return err
	}
	if _, err := doc.chapter(cid); err != nil {
		return err
	}
	doc.Chapters = slices.DeleteFunc(doc.Chapters, func(c model.Chapter) bool { return c.ID == cid })
	s.recountLocked(it, doc)
	return nil
}

func (s *memStore) sceneLocked(owner, pid, did, cid, sid string) (*model.Item, *document, *model.Chapter, *model.Scene, error) {
	it, doc, err := s.docLocked(owner, pid, did)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	ch, err := doc.chapter(cid)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	sc, err := findScene(ch, sid)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return it, doc, ch, sc, nil
}

func sceneContent(it *model.Item, ch *model.Chapter, sc *model.Scene) model.SceneContent {
	out := model.SceneContent{
		SceneID:          sc.ID,
		ChapterID:        ch.ID,
		Content:          sc.ContentOrEmpty(),
		SceneWordcount:   sc.Wordcount,
		ChapterWordcount: ch.Wordcount,
	}
	if it.Doc != nil {
		out.DocumentWordcount = it.Doc.WordCount
	}
	return out
}

func (s *memStore) createScene(owner, pid, did, cid, title string) (model.Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, doc, err := s.docLocked(owner, pid, did)
	if err != nil {
		return model.Scene{}, err
	}
	ch, err := doc.chapter(cid)
	if err != nil {
		return model.Scene{}, err
	}
	empty := ""
	sc := model.Scene{ID: newID(), Title: title, Order: len(ch.Scenes), Content: &empty}
	ch.Scenes = append(ch.Scenes, sc)
	s.recountLocked(it, doc)
	return sc, nil
}

func (s *memStore) getScene(owner, pid, did, cid, sid string) (model.SceneContent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, _, ch, sc, err := s.sceneLocked(owner, pid, did, cid, sid)
	if err != nil {
		return model.SceneContent{}, err
	}
	return sceneContent(it, ch, sc), nil
}

type scenePatch struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// updateScene stores new content and/or a new title. Word counts are
// recomputed from the stored HTML on every content write.
func (s *memStore) updateScene(owner, pid, did, cid, sid string, patch scenePatch) (model.SceneContent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, doc, ch, sc, err := s.sceneLocked(owner, pid, did, cid, sid)
	if err != nil {
		return model.SceneContent{}, err
	}
	if patch.Title != nil {
		sc.Title = *patch.Title
	}
	if patch.Content != nil {
		content := *patch.Content
		sc.Content = &content
		sc.Wordcount = wordcount.Count(content)
		s.recountLocked(it, doc)
	}
	return sceneContent(it, ch, sc), nil
}

func (s *memStore) deleteScene(owner, pid, did, cid, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, doc, ch, _, err := s.sceneLocked(owner, pid, did, cid, sid)
	if err != nil {
		return err
	}
	ch.Scenes = slices.DeleteFunc(ch.Scenes, func(sc model.Scene) bool { return sc.ID == sid })
	s.recountLocked(it, doc)
	return nil
}

// reorderScenes assigns order = position in ids. ids must name every scene of
// the chapter exactly once.
func (s *memStore) reorderScenes(owner, pid, did, cid string, ids []string) (model.Chapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, doc, err := s.docLocked(owner, pid, did)
	if err != nil {
		return model.Chapter{}, err
	}
	ch, err := doc.chapter(cid)
	if err != nil {
		return model.Chapter{}, err
	}
	if len(ids) != len(ch.Scenes) {
		return model.Chapter{}, badRequest("ordered_ids must list every scene of the chapter")
	}
	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, dup := pos[id]; dup {
			return model.Chapter{}, badRequest("ordered_ids contains duplicates")
		}
		pos[id] = i
	}
	for i := range ch.Scenes {
		p, ok := pos[ch.Scenes[i].ID]
		if !ok {
			return model.Chapter{}, badRequest("ordered_ids must list every scene of the chapter")
		}
		ch.Scenes[i].Order = p
	}
	ch.Scenes = compose.Ordered(ch.Scenes)
	return *ch, nil
}
