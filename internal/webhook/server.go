// Package webhook serves the HTTP API used by the LeetCode companion
// extension: submissions are posted into a Discord forum and online users
// are tracked in memory.
package webhook

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"bot2296/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	apiPrefix       = "/api/leetcode"
	apiKeyHeader    = "X-API-KEY"
	requestIDHeader = "X-Request-ID"
	submitTimeout   = 30 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Server is the webhook HTTP server.
type Server struct {
	addr   string
	apiKey string
	forum  Forum
	users  *ActiveUsers
	engine *gin.Engine
	logger zerolog.Logger
}

func New(addr, apiKey string, forum Forum) *Server {
	s := &Server{
		addr:   addr,
		apiKey: apiKey,
		forum:  forum,
		users:  NewActiveUsers(),
		logger: logger.For("webhook"),
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestID(), s.accessLog(), s.requireAPIKey())

	api := r.Group(apiPrefix)
	api.POST("/submit", s.submit)
	api.POST("/open", s.login)
	api.POST("/close", s.logout)
	api.POST("/activity", s.activity)
	api.GET("/online", s.online)
	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.addr).Msg("Webhook server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info().Msg("Webhook server shut down")
	return nil
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("request_id", c.GetString("request_id")).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	}
}

func (s *Server) requireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.HasPrefix(c.Request.URL.Path, apiPrefix) {
			c.Next()
			return
		}
		got := c.GetHeader(apiKeyHeader)
		if s.apiKey == "" || subtle.ConstantTimeCompare([]byte(got), []byte(s.apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid API Key"})
			return
		}
		c.Next()
	}
}

func (s *Server) submit(c *gin.Context) {
	var sub Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if sub.Type != TypeDiscordForum {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported type"})
		return
	}

	s.users.Solved(sub.User)

	ctx, cancel := context.WithTimeout(c.Request.Context(), submitTimeout)
	defer cancel()

	err := deliver(ctx, s.forum, sub)
	switch {
	case errors.Is(err, ErrForumNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Forum not found"})
	case err != nil:
		s.logger.Error().Err(err).Str("request_id", c.GetString("request_id")).Str("forum", sub.ForumID).Msg("Failed to deliver submission")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "success", "status_code": http.StatusOK})
	}
}

type userRequest struct {
	Username string  `json:"username"`
	Status   string  `json:"status"`
	Question *string `json:"question"`
}

// bindUser parses the body and reports false after answering 422 when the
// username is missing.
func bindUser(c *gin.Context) (userRequest, bool) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Missing username"})
		return req, false
	}
	return req, true
}

func (s *Server) login(c *gin.Context) {
	req, ok := bindUser(c)
	if !ok {
		return
	}
	s.users.Login(req.Username)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) logout(c *gin.Context) {
	req, ok := bindUser(c)
	if !ok {
		return
	}
	s.users.Logout(req.Username)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) activity(c *gin.Context) {
	req, ok := bindUser(c)
	if !ok {
		return
	}
	s.users.Activity(req.Username, req.Status, req.Question)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) online(c *gin.Context) {
	c.JSON(http.StatusOK, s.users.Snapshot())
}
