// Package devserver is an in-memory implementation of the Lyra REST API.
// It backs `lyra devserver` and the end-to-end tests; nothing is persisted.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultAddr         = "127.0.0.1:8000"
	DefaultTokenTTL     = 7 * 24 * time.Hour
	DefaultResetCodeTTL = 15 * time.Minute
)

type Config struct {
	Addr      string
	JWTSecret string
	TokenTTL  time.Duration
	// ResetCodeTTL bounds how long a forgot-password code stays valid.
	ResetCodeTTL time.Duration
	BcryptCost   int
	// OnResetCode receives every issued reset code; there is no mail delivery.
	OnResetCode func(email, code string)
	Now         func() time.Time
}

type Server struct {
	cfg    Config
	store  *memStore
	tokens *tokenIssuer
	log    *zap.Logger
	engine *gin.Engine
}

func New(cfg Config, log *zap.Logger) (*Server, error) {
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, errors.New("devserver: jwt secret is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.ResetCodeTTL <= 0 {
		cfg.ResetCodeTTL = DefaultResetCodeTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		cfg:    cfg,
		store:  newMemStore(cfg.Now),
		tokens: &tokenIssuer{secret: []byte(cfg.JWTSecret), ttl: cfg.TokenTTL, now: cfg.Now},
		log:    log.Named("devserver"),
	}
	s.engine = s.routes()
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", s.register)
		authGroup.POST("/login", s.login)
		authGroup.POST("/forgot-password", s.forgotPassword)
		authGroup.PATCH("/reset-password", s.resetPassword)
	}

	projects := r.Group("/projects", s.requireAuth())
	{
		projects.GET("", s.listProjects)
		projects.POST("", s.createProject)
		projects.GET("/:pid", s.getProject)
		projects.PATCH("/:pid", s.updateProject)
		projects.DELETE("/:pid", s.deleteProject)

		projects.GET("/:pid/documents", s.listItems)
		projects.POST("/:pid/documents", s.createItem)
		projects.PATCH("/:pid/documents/:did", s.updateItem)
		projects.DELETE("/:pid/documents/:did", s.deleteItem)

		doc := projects.Group("/:pid/documents/:did")
		doc.GET("/outline", s.getOutline)
		doc.POST("/chapters", s.createChapter)
		doc.PATCH("/chapters/:cid", s.renameChapter)
		doc.DELETE("/chapters/:cid", s.deleteChapter)
		doc.POST("/chapters/:cid/scenes", s.createScene)
		doc.PUT("/chapters/:cid/scenes/reorder", s.reorderScenes)
		doc.GET("/chapters/:cid/scenes/:sid", s.getScene)
		doc.PATCH("/chapters/:cid/scenes/:sid", s.updateScene)
		doc.DELETE("/chapters/:cid/scenes/:sid", s.deleteScene)
	}
	return r
}

// Run serves on cfg.Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("devserver: listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.log.Info("Dev server listening", zap.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down dev server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("devserver: shutdown: %w", err)
	}
	return nil
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zapcore.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetHeader("X-Request-ID")),
			zap.Duration("latency", time.Since(start)),
		}
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("Request handled", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("Request handled", fields...)
		default:
			log.Debug("Request handled", fields...)
		}
	}
}

const userIDKey = "user_id"

func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			s.fail(c, &apiError{Status: http.StatusUnauthorized, Detail: "Not authenticated"})
			return
		}
		claims, err := s.tokens.parse(strings.TrimSpace(parts[1]))
		if err != nil {
			detail := "Invalid token"
			if errors.Is(err, errTokenExpired) {
				detail = "Token has expired"
			}
			s.log.Debug("Token rejected", zap.Error(err))
			s.fail(c, &apiError{Status: http.StatusUnauthorized, Detail: detail})
			return
		}
		// Users live in memory; a token from before a restart names nobody.
		if !s.store.userExists(claims.UserID) {
			s.fail(c, &apiError{Status: http.StatusUnauthorized, Detail: "Invalid token"})
			return
		}
		c.Set(userIDKey, claims.UserID)
		c.Next()
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	var ae *apiError
	if errors.As(err, &ae) {
		c.AbortWithStatusJSON(ae.Status, gin.H{"detail": ae.Detail})
		return
	}
	var ve *validationError
	if errors.As(err, &ve) {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{{
			"loc":  []string{"body", ve.Field},
			"msg":  ve.Message,
			"type": "value_error",
		}}})
		return
	}
	s.log.Error("Unhandled error", zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
}
