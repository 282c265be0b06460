// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pdiddy/goalwriter/internal/auth"
	"github.com/pdiddy/goalwriter/internal/conversation"
	"github.com/pdiddy/goalwriter/internal/session"
	"github.com/pdiddy/goalwriter/pkg/types"
)

// --- sign-in ---

type tokenRequest struct {
	Token string `json:"token"`
}

func (s *Server) signInAnonymously(c *gin.Context) {
	sess, err := s.auth.SignInAnonymously()
	if err != nil {
		s.log.Error("anonymous sign-in failed", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "Sign-in failed")
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (s *Server) signInWithToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	sess, err := s.auth.SignInWithCustomToken(req.Token)
	if err != nil {
		s.log.Error("custom token sign-in failed", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "Sign-in failed")
		return
	}
	c.JSON(http.StatusOK, sess)
}

// --- session ---

type sessionResponse struct {
	UserID            string             `json:"userId"`
	Phase             session.Phase      `json:"phase"`
	ConversationState conversation.State `json:"conversationState"`
	HintState         string             `json:"hintState"`
	HintMode          string             `json:"hintMode"`
	Sternness         types.Sternness    `json:"sternness"`
}

func describe(sess *session.Session) sessionResponse {
	return sessionResponse{
		UserID:            sess.UserID(),
		Phase:             sess.Phase(),
		ConversationState: sess.ConversationState(),
		HintState:         string(sess.HintState()),
		HintMode:          sess.HintMode().Name,
		Sternness:         sess.Sternness(),
	}
}

func (s *Server) getSession(c *gin.Context, sess *session.Session) {
	c.JSON(http.StatusOK, describe(sess))
}

func (s *Server) closeSession(c *gin.Context) {
	if err := s.sessions.Close(auth.UserID(c)); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getDocument(c *gin.Context, sess *session.Session) {
	c.JSON(http.StatusOK, sess.Document())
}

type settingsRequest struct {
	HintMode  *string `json:"hintMode"`
	Sternness *string `json:"sternness"`
}

func (s *Server) putSettings(c *gin.Context, sess *session.Session) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	var stern types.Sternness
	if req.Sternness != nil {
		v, err := types.ParseSternness(*req.Sternness)
		if err != nil {
			writeError(c, http.StatusBadRequest, err.Error())
			return
		}
		stern = v
	}
	if req.HintMode != nil {
		if err := sess.SetHintMode(*req.HintMode); err != nil {
			writeError(c, http.StatusBadRequest, err.Error())
			return
		}
	}
	if stern != "" {
		sess.SetSternness(stern)
	}
	s.getSession(c, sess)
}

// --- goal setting ---

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) getTranscript(c *gin.Context, sess *session.Session) {
	c.JSON(http.StatusOK, gin.H{
		"state":    sess.ConversationState(),
		"messages": sess.Transcript(),
	})
}

func (s *Server) postChat(c *gin.Context, sess *session.Session) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	reply, err := sess.Send(c.Request.Context(), req.Message)
	if errors.Is(err, conversation.ErrInvalidInput) {
		// The assistant re-prompts; the writer sees that as a normal reply.
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": gin.H{"message": err.Error()},
			"reply": reply,
		})
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

type rawPayload struct {
	Raw   string `json:"raw"`
	Valid bool   `json:"valid"`
}

func (s *Server) getRaw(c *gin.Context, sess *session.Session) {
	c.JSON(http.StatusOK, rawPayload{Raw: sess.RawJSON(), Valid: sess.RawValid()})
}

func (s *Server) putRaw(c *gin.Context, sess *session.Session) {
	var req rawPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := sess.EditRaw(req.Raw); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rawPayload{Raw: sess.RawJSON(), Valid: sess.RawValid()})
}

func (s *Server) postConfirm(c *gin.Context, sess *session.Session) {
	g, err := sess.Confirm(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// --- goal edits ---

type goalRequest struct {
	Path string `json:"path" binding:"required"`
	Text string `json:"text"`
}

func (s *Server) getGoals(c *gin.Context, sess *session.Session) {
	c.JSON(http.StatusOK, sess.Goals())
}

func (s *Server) getFlatGoals(c *gin.Context, sess *session.Session) {
	c.JSON(http.StatusOK, sess.FlatGoals())
}

func (s *Server) putGoals(c *gin.Context, sess *session.Session) {
	var g types.GoalStructure
	if err := c.ShouldBindJSON(&g); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid goal structure")
		return
	}
	s.editGoals(c, sess, sess.ReplaceGoals(&g))
}

func (s *Server) patchGoalText(c *gin.Context, sess *session.Session) {
	req, ok := bindGoal(c)
	if !ok {
		return
	}
	s.editGoals(c, sess, sess.SetGoalText(req.Path, req.Text))
}

func (s *Server) postInsertGoal(c *gin.Context, sess *session.Session) {
	req, ok := bindGoal(c)
	if !ok {
		return
	}
	s.editGoals(c, sess, sess.InsertGoal(req.Path))
}

func (s *Server) postRemoveGoal(c *gin.Context, sess *session.Session) {
	req, ok := bindGoal(c)
	if !ok {
		return
	}
	s.editGoals(c, sess, sess.RemoveGoal(req.Path))
}

func bindGoal(c *gin.Context) (goalRequest, bool) {
	var req goalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "A goal path is required")
		return req, false
	}
	return req, true
}

func (s *Server) editGoals(c *gin.Context, sess *session.Session, err error) {
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.Goals())
}

// --- writing ---

type textRequest struct {
	Text string `json:"text"`
}

func (s *Server) putText(c *gin.Context, sess *session.Session) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := sess.SetText(req.Text); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getSentences(c *gin.Context, sess *session.Session) {
	c.JSON(http.StatusOK, sess.Sentences())
}

func (s *Server) getAnalysis(c *gin.Context, sess *session.Session) {
	c.JSON(http.StatusOK, sess.Analysis())
}

func (s *Server) postAnalysis(c *gin.Context, sess *session.Session) {
	if sess.Phase() != session.PhaseWriting {
		fail(c, session.ErrWrongPhase)
		return
	}
	view, published := sess.AnalyzeNow(c.Request.Context())
	if !published {
		// A newer edit superseded this run; the caller gets what is current.
		c.JSON(http.StatusAccepted, view)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) getHighlights(c *gin.Context, sess *session.Session) {
	index, ok := goalIndex(c)
	if !ok {
		return
	}
	kind, err := parseKind(c.Query("kind"))
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	hl, err := sess.Highlights(index, kind)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, hl)
}

func (s *Server) getMatching(c *gin.Context, sess *session.Session) {
	index, ok := goalIndex(c)
	if !ok {
		return
	}
	matches, err := sess.Matching(index)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, matches)
}

func (s *Server) postSummary(c *gin.Context, sess *session.Session) {
	index, ok := goalIndex(c)
	if !ok {
		return
	}
	sum, err := sess.Summary(c.Request.Context(), index)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// --- hints and advice ---

type acceptRequest struct {
	Suggestion string `json:"suggestion"`
}

func (s *Server) postAdvice(c *gin.Context, sess *session.Session) {
	advice, err := sess.RequestAdvice(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, advice)
}

func (s *Server) postAdviceFor(c *gin.Context, sess *session.Session) {
	index, ok := goalIndex(c)
	if !ok {
		return
	}
	kind, err := parseKind(c.Query("kind"))
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	advice, err := sess.AdviceFor(c.Request.Context(), index, kind)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, advice)
}

func (s *Server) postAccept(c *gin.Context, sess *session.Session) {
	var req acceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	sess.AcceptAdvice(c.Request.Context(), req.Suggestion)
	c.Status(http.StatusNoContent)
}

func (s *Server) postReject(c *gin.Context, sess *session.Session) {
	sess.RejectAdvice(c.Request.Context())
	c.Status(http.StatusNoContent)
}

func (s *Server) postDismiss(c *gin.Context, sess *session.Session) {
	sess.DismissHint()
	c.Status(http.StatusNoContent)
}

func goalIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		writeError(c, http.StatusBadRequest, "Goal index must be a non-negative integer")
		return 0, false
	}
	return index, true
}

// parseKind reads a score kind, defaulting to content.
func parseKind(name string) (types.ScoreKind, error) {
	switch strings.ToLower(name) {
	case "", "content":
		return types.ScoreContent, nil
	case "review":
		return types.ScoreReview, nil
	}
	return "", fmt.Errorf("unknown score kind %q", name)
}
