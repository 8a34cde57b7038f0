package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rag-agent/internal/agent"
	"rag-agent/internal/llm"
	"rag-agent/internal/repository"
	"rag-agent/internal/service"
)

// ChatHandler mantiene dependencias para los endpoints de agentes e historial.
type ChatHandler struct {
	logger      *zap.Logger
	chatAgent   *agent.ChatAgent
	newsAgent   *agent.NewsAgent
	streamAgent *agent.StreamAgent
	sessions    repository.SessionRepository
	history     *service.HistoryService
}

func NewChatHandler(
	logger *zap.Logger,
	chatAgent *agent.ChatAgent,
	newsAgent *agent.NewsAgent,
	streamAgent *agent.StreamAgent,
	sessions repository.SessionRepository,
	history *service.HistoryService,
) *ChatHandler {
	return &ChatHandler{
		logger:      logger,
		chatAgent:   chatAgent,
		newsAgent:   newsAgent,
		streamAgent: streamAgent,
		sessions:    sessions,
		history:     history,
	}
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Model     string `json:"model"`
	Message   string `json:"message" binding:"required"`
}

// resolveUserID prefiere el user_id del token cuando hay middleware JWT.
func resolveUserID(c *gin.Context, bodyUserID string) string {
	if claims, ok := GetAuthClaims(c); ok {
		return claims.UserID
	}
	return bodyUserID
}

// Chat maneja POST /api/chat.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid chat request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.chatAgent.Handle(c.Request.Context(), req.SessionID, resolveUserID(c, req.UserID), req.Model, req.Message)
	if err != nil {
		h.renderTurnError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reply":      result.Reply,
		"session_id": result.SessionID,
		"agent":      h.chatAgent.Name(),
	})
}

type newsRequest struct {
	chatRequest
	Keywords []string `json:"keywords"`
}

// News maneja POST /api/news.
func (h *ChatHandler) News(c *gin.Context) {
	var req newsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid news request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.newsAgent.Handle(c.Request.Context(), agent.NewsRequest{
		SessionID: req.SessionID,
		UserID:    resolveUserID(c, req.UserID),
		ModelID:   req.Model,
		Message:   req.Message,
		Keywords:  req.Keywords,
	})
	if err != nil {
		h.renderTurnError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reply":      result.Reply,
		"session_id": result.SessionID,
		"agent":      h.newsAgent.Name(),
		"articles":   result.Articles,
	})
}

// ChatStream maneja POST /api/chat/stream con server-sent events.
func (h *ChatHandler) ChatStream(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid stream request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	chunks, err := h.streamAgent.Stream(c.Request.Context(), resolveUserID(c, req.UserID), req.Model, req.Message)
	if err != nil {
		h.renderTurnError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")

	// Un desconecte del cliente cancela c.Request.Context(), que detiene al
	// productor y cierra el canal; no hace falta CloseNotify.
	for chunk := range chunks {
		if chunk.Err != nil {
			h.logger.Warn("stream chunk failed", zap.Error(chunk.Err))
			break
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", chunk.Content)
		c.Writer.Flush()
	}
	fmt.Fprint(c.Writer, "data: [DONE]\n\n")
	c.Writer.Flush()
}

// History maneja GET /api/sessions/:id/history.
func (h *ChatHandler) History(c *gin.Context) {
	sessionID := c.Param("id")

	if _, err := h.sessions.GetByID(c.Request.Context(), sessionID); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		h.logger.Error("get session failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load session"})
		return
	}

	turns, err := h.history.BuildHistory(c.Request.Context(), sessionID)
	if err != nil {
		h.logger.Error("build history failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "history": turns})
}

// renderTurnError traduce la taxonomía de errores del core a status HTTP.
func (h *ChatHandler) renderTurnError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTurnInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
	case errors.Is(err, repository.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, llm.ErrModelCall):
		h.logger.Error("model call failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "model unavailable"})
	default:
		h.logger.Error("turn failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not complete turn"})
	}
}
