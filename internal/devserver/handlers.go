package devserver

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"lyra-cli/internal/auth"
	"lyra-cli/internal/model"
)

type validationError = model.ValidationError

func bind(c *gin.Context, out any) error {
	if err := c.ShouldBindJSON(out); err != nil {
		return &validationError{Field: "body", Message: "Invalid JSON body"}
	}
	return nil
}

func requireTitle(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", &validationError{Field: "title", Message: "Title is required"}
	}
	return s, nil
}

func owner(c *gin.Context) string { return c.GetString(userIDKey) }

func message(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// ---- auth ----

func (s *Server) register(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	name, err := auth.ValidateName(req.Name)
	if err != nil {
		s.fail(c, err)
		return
	}
	email, err := auth.ValidateEmail(req.Email)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		s.fail(c, err)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
	if err != nil {
		s.fail(c, fmt.Errorf("hash password: %w", err))
		return
	}
	u, err := s.store.addUser(name, email, hash)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.respondToken(c, u.ID)
}

func (s *Server) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	u, ok := s.store.userByEmail(strings.TrimSpace(req.Email))
	if !ok || bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(req.Password)) != nil {
		s.fail(c, errInvalidCredentials)
		return
	}
	s.respondToken(c, u.ID)
}

func (s *Server) respondToken(c *gin.Context, userID string) {
	token, err := s.tokens.issue(userID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": token})
}

// forgotPassword answers the same way whether or not the address is known.
func (s *Server) forgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	email, err := auth.ValidateEmail(req.Email)
	if err != nil {
		s.fail(c, err)
		return
	}
	code, err := resetCode()
	if err != nil {
		s.fail(c, err)
		return
	}
	if s.store.setResetCode(email, code, s.cfg.ResetCodeTTL) {
		s.log.Info("Password reset code issued", zap.String("email", email), zap.String("code", code))
		if s.cfg.OnResetCode != nil {
			s.cfg.OnResetCode(email, code)
		}
	}
	message(c, "If that email is registered, a reset code has been sent")
}

func (s *Server) resetPassword(c *gin.Context) {
	var req struct {
		Email       string `json:"email"`
		Code        string `json:"code"`
		NewPassword string `json:"new_password"`
	}
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		s.fail(c, err)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.cfg.BcryptCost)
	if err != nil {
		s.fail(c, fmt.Errorf("hash password: %w", err))
		return
	}
	if err := s.store.resetPassword(strings.TrimSpace(req.Email), strings.TrimSpace(req.Code), hash); err != nil {
		s.fail(c, err)
		return
	}
	message(c, "Password has been reset")
}

func resetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate reset code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// ---- projects ----

func (s *Server) listProjects(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.listProjects(owner(c)))
}

func (s *Server) getProject(c *gin.Context) {
	p, err := s.store.getProject(owner(c), c.Param("pid"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) createProject(c *gin.Context) {
	var req struct {
		Name          string  `json:"name"`
		CoverImageURL *string `json:"cover_image_url"`
	}
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	name, err := model.RequireName("name", req.Name)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.store.createProject(owner(c), name, req.CoverImageURL))
}

func (s *Server) updateProject(c *gin.Context) {
	var patch projectPatch
	if err := bind(c, &patch); err != nil {
		s.fail(c, err)
		return
	}
	if patch.Name != nil {
		name, err := model.RequireName("name", *patch.Name)
		if err != nil {
			s.fail(c, err)
			return
		}
		patch.Name = &name
	}
	p, err := s.store.updateProject(owner(c), c.Param("pid"), patch)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) deleteProject(c *gin.Context) {
	if err := s.store.deleteProject(owner(c), c.Param("pid")); err != nil {
		s.fail(c, err)
		return
	}
	message(c, "Project deleted")
}

// ---- items ----

func (s *Server) listItems(c *gin.Context) {
	var parentID *string
	if p := c.Query("parent_id"); p != "" {
		parentID = &p
	}
	items, err := s.store.listItems(owner(c), c.Param("pid"), parentID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) createItem(c *gin.Context) {
	var req struct {
		Title    string         `json:"title"`
		Type     model.ItemKind `json:"type"`
		ParentID *string        `json:"parent_id"`
	}
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	title, err := requireTitle(req.Title)
	if err != nil {
		s.fail(c, err)
		return
	}
	if req.Type == "" {
		req.Type = model.ItemDocument
	}
	if !req.Type.Valid() {
		s.fail(c, &validationError{Field: "type", Message: "Type must be document or folder"})
		return
	}
	if req.ParentID != nil && *req.ParentID == "" {
		req.ParentID = nil
	}
	it, err := s.store.createItem(owner(c), c.Param("pid"), title, req.Type, req.ParentID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

// updateItem tells an absent parent_id (keep) from an explicit null (move to
// the project root).
func (s *Server) updateItem(c *gin.Context) {
	var raw map[string]json.RawMessage
	if err := bind(c, &raw); err != nil {
		s.fail(c, err)
		return
	}
	var patch itemPatch
	if b, ok := raw["title"]; ok {
		var title string
		if err := json.Unmarshal(b, &title); err != nil {
			s.fail(c, &validationError{Field: "title", Message: "Title must be a string"})
			return
		}
		title, err := requireTitle(title)
		if err != nil {
			s.fail(c, err)
			return
		}
		patch.Title = &title
	}
	if b, ok := raw["parent_id"]; ok {
		var parent *string
		if err := json.Unmarshal(b, &parent); err != nil {
			s.fail(c, &validationError{Field: "parent_id", Message: "parent_id must be a string or null"})
			return
		}
		if parent != nil && *parent == "" {
			parent = nil
		}
		patch.ParentID, patch.SetParent = parent, true
	}
	it, err := s.store.updateItem(owner(c), c.Param("pid"), c.Param("did"), patch)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

func (s *Server) deleteItem(c *gin.Context) {
	if err := s.store.deleteItem(owner(c), c.Param("pid"), c.Param("did")); err != nil {
		s.fail(c, err)
		return
	}
	message(c, "Deleted")
}

// ---- outline, chapters, scenes ----

func (s *Server) getOutline(c *gin.Context) {
	out, err := s.store.outline(owner(c), c.Param("pid"), c.Param("did"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) bindTitle(c *gin.Context) (string, bool) {
	var req struct {
		Title string `json:"title"`
	}
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return "", false
	}
	title, err := requireTitle(req.Title)
	if err != nil {
		s.fail(c, err)
		return "", false
	}
	return title, true
}

func (s *Server) createChapter(c *gin.Context) {
	title, ok := s.bindTitle(c)
	if !ok {
		return
	}
	ch, err := s.store.createChapter(owner(c), c.Param("pid"), c.Param("did"), title)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ch)
}

func (s *Server) renameChapter(c *gin.Context) {
	title, ok := s.bindTitle(c)
	if !ok {
		return
	}
	ch, err := s.store.renameChapter(owner(c), c.Param("pid"), c.Param("did"), c.Param("cid"), title)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ch)
}

func (s *Server) deleteChapter(c *gin.Context) {
	if err := s.store.deleteChapter(owner(c), c.Param("pid"), c.Param("did"), c.Param("cid")); err != nil {
		s.fail(c, err)
		return
	}
	message(c, "Chapter deleted")
}

func (s *Server) createScene(c *gin.Context) {
	title, ok := s.bindTitle(c)
	if !ok {
		return
	}
	sc, err := s.store.createScene(owner(c), c.Param("pid"), c.Param("did"), c.Param("cid"), title)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sc)
}

func (s *Server) getScene(c *gin.Context) {
	out, err := s.store.getScene(owner(c), c.Param("pid"), c.Param("did"), c.Param("cid"), c.Param("sid"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) updateScene(c *gin.Context) {
	var patch scenePatch
	if err := bind(c, &patch); err != nil {
		s.fail(c, err)
		return
	}
	if patch.Title == nil && patch.Content == nil {
		s.fail(c, &validationError{Field: "body", Message: "Nothing to update"})
		return
	}
	if patch.Title != nil {
		title, err := requireTitle(*patch.Title)
		if err != nil {
			s.fail(c, err)
			return
		}
		patch.Title = &title
	}
	out, err := s.store.updateScene(owner(c), c.Param("pid"), c.Param("did"), c.Param("cid"), c.Param("sid"), patch)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) deleteScene(c *gin.Context) {
	if err := s.store.deleteScene(owner(c), c.Param("pid"), c.Param("did"), c.Param("cid"), c.Param("sid")); err != nil {
		s.fail(c, err)
		return
	}
	message(c, "Scene deleted")
}

func (s *Server) reorderScenes(c *gin.Context) {
	var req struct {
		OrderedIDs []string `json:"ordered_ids"`
	}
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	ch, err := s.store.reorderScenes(owner(c), c.Param("pid"), c.Param("did"), c.Param("cid"), req.OrderedIDs)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ch)
}
