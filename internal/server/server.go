// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes writer sessions over a JSON HTTP API and pushes
// session notifications over a websocket.
package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pdiddy/goalwriter/internal/auth"
	"github.com/pdiddy/goalwriter/internal/conversation"
	"github.com/pdiddy/goalwriter/internal/critic"
	"github.com/pdiddy/goalwriter/internal/goalstore"
	"github.com/pdiddy/goalwriter/internal/hint"
	"github.com/pdiddy/goalwriter/internal/session"
)

// Server routes API requests to the caller's session.
type Server struct {
	sessions *session.Manager
	auth     *auth.Provider
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// New returns a server over sessions, authenticating with p.
func New(sessions *session.Manager, p *auth.Provider, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		sessions: sessions,
		auth:     p,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.POST("/auth/anonymous", s.signInAnonymously)
	r.POST("/auth/token", s.signInWithToken)

	api := r.Group("/api", auth.Middleware(s.auth))
	{
		api.GET("/session", s.withSession(s.getSession))
		api.DELETE("/session", s.closeSession)
		api.GET("/document", s.withSession(s.getDocument))
		api.PUT("/settings", s.withSession(s.putSettings))

		// Goal setting.
		api.GET("/chat", s.withSession(s.getTranscript))
		api.POST("/chat", s.withSession(s.postChat))
		api.GET("/raw", s.withSession(s.getRaw))
		api.PUT("/raw", s.withSession(s.putRaw))
		api.POST("/confirm", s.withSession(s.postConfirm))

		// Goal edits.
		api.GET("/goals", s.withSession(s.getGoals))
		api.PUT("/goals", s.withSession(s.putGoals))
		api.PATCH("/goals/text", s.withSession(s.patchGoalText))
		api.POST("/goals/insert", s.withSession(s.postInsertGoal))
		api.POST("/goals/remove", s.withSession(s.postRemoveGoal))
		api.GET("/flat-goals", s.withSession(s.getFlatGoals))

		// Writing.
		api.PUT("/text", s.withSession(s.putText))
		api.GET("/sentences", s.withSession(s.getSentences))
		api.GET("/analysis", s.withSession(s.getAnalysis))
		api.POST("/analysis", s.withSession(s.postAnalysis))
		api.GET("/goal/:index/highlights", s.withSession(s.getHighlights))
		api.GET("/goal/:index/matching", s.withSession(s.getMatching))
		api.POST("/goal/:index/summary", s.withSession(s.postSummary))
		api.POST("/goal/:index/advice", s.withSession(s.postAdviceFor))

		// Hints and advice.
		api.POST("/advice", s.withSession(s.postAdvice))
		api.POST("/advice/accept", s.withSession(s.postAccept))
		api.POST("/advice/reject", s.withSession(s.postReject))
		api.POST("/hint/dismiss", s.withSession(s.postDismiss))

		api.GET("/ws", s.withSession(s.notifications))
	}
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()))
	}
}

// handler is a route that needs the caller's session.
type handler func(c *gin.Context, sess *session.Session)

func (s *Server) withSession(h handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := s.sessions.Get(c.Request.Context(), auth.UserID(c))
		if err != nil {
			s.log.Error("opening session failed", zap.String("user_id", auth.UserID(c)), zap.Error(err))
			writeError(c, http.StatusInternalServerError, "Could not open session")
			return
		}
		h(c, sess)
	}
}

func writeError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"message": msg}})
}

// fail maps a domain error to a status and writes it.
func fail(c *gin.Context, err error) {
	writeError(c, statusOf(err), err.Error())
}

func statusOf(err error) int {
	var (
		pathErr   *goalstore.PathError
		typeErr   *goalstore.TypeError
		arrayErr  *goalstore.NotAnArrayError
		resultErr *critic.ResultError
	)
	switch {
	case errors.Is(err, session.ErrWrongPhase),
		errors.Is(err, conversation.ErrBusy),
		errors.Is(err, conversation.ErrNotFinalizing):
		return http.StatusConflict
	case errors.Is(err, session.ErrNoGoal), errors.Is(err, hint.ErrNoProblem):
		return http.StatusNotFound
	case errors.Is(err, session.ErrClosed):
		return http.StatusGone
	case errors.Is(err, conversation.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, conversation.ErrInvalidRawJSON),
		errors.As(err, &pathErr), errors.As(err, &typeErr), errors.As(err, &arrayErr):
		return http.StatusBadRequest
	case errors.As(err, &resultErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
