package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"rag-agent/internal/domain"
	"rag-agent/internal/llm"
	"rag-agent/internal/repository"
)

var ErrTurnInvalidInput = errors.New("turn invalid input")

// TurnRequest es un turno entrante: SessionID vacío significa conversación
// nueva. SystemPrompt lo compone el agente que origina el turno.
type TurnRequest struct {
	SessionID    string
	UserID       string
	AgentID      string
	ModelID      string
	Message      string
	SystemPrompt string
}

// TurnResult es el resultado de un turno confirmado.
type TurnResult struct {
	Reply      string
	SessionID  string
	NewSession bool
}

// ChatService es el controlador de ciclo de vida de sesión: decide crear o
// reanudar, y ejecuta el protocolo append-usuario → modelo → append-asistente.
type ChatService struct {
	logger      *zap.Logger
	sessionRepo repository.SessionRepository
	messageRepo repository.MessageRepository
	history     *HistoryService
	llmClient   llm.Client
}

func NewChatService(
	logger *zap.Logger,
	sessionRepo repository.SessionRepository,
	messageRepo repository.MessageRepository,
	history *HistoryService,
	llmClient llm.Client,
) *ChatService {
	return &ChatService{
		logger:      logger,
		sessionRepo: sessionRepo,
		messageRepo: messageRepo,
		history:     history,
		llmClient:   llmClient,
	}
}

// HandleTurn ejecuta un turno completo.
//
// Cada append confirma por separado, a propósito: si el modelo falla después
// del append del usuario, ese mensaje queda persistido (el input del usuario
// no se pierde nunca) y una sesión recién creada también sobrevive. Reanudar
// con un id desconocido falla con repository.ErrSessionNotFound antes de
// escribir nada.
func (s *ChatService) HandleTurn(ctx context.Context, req TurnRequest) (TurnResult, error) {
	req.SessionID = strings.TrimSpace(req.SessionID)
	req.UserID = strings.TrimSpace(req.UserID)
	req.Message = strings.TrimSpace(req.Message)
	if req.UserID == "" || req.Message == "" {
		return TurnResult{}, ErrTurnInvalidInput
	}

	var (
		history    []domain.ChatTurn
		newSession bool
	)

	if req.SessionID == "" {
		session, err := s.sessionRepo.Create(ctx, req.UserID, req.AgentID, req.ModelID)
		if err != nil {
			return TurnResult{}, fmt.Errorf("create session: %w", err)
		}
		req.SessionID = session.SessionID
		history = []domain.ChatTurn{}
		newSession = true
		s.logger.Info("session created",
			zap.String("session_id", session.SessionID),
			zap.String("user_id", req.UserID),
			zap.String("agent_id", req.AgentID),
		)
	} else {
		if _, err := s.sessionRepo.GetByID(ctx, req.SessionID); err != nil {
			return TurnResult{}, fmt.Errorf("resume session %s: %w", req.SessionID, err)
		}
		var err error
		history, err = s.history.BuildHistory(ctx, req.SessionID)
		if err != nil {
			return TurnResult{}, fmt.Errorf("build history: %w", err)
		}
	}

	userMsg, err := s.messageRepo.Append(ctx, req.SessionID, domain.RoleUser, req.Message)
	if err != nil {
		return TurnResult{}, fmt.Errorf("append user message: %w", err)
	}

	reply, err := s.llmClient.Generate(ctx, llm.Request{
		Model:       req.ModelID,
		System:      req.SystemPrompt,
		History:     history,
		UserMessage: req.Message,
	})
	if err != nil {
		// El mensaje del usuario ya quedó durable; solo falla la respuesta.
		s.logger.Warn("model call failed",
			zap.String("session_id", req.SessionID),
			zap.Int64("user_sequence", userMsg.Sequence),
			zap.Error(err),
		)
		return TurnResult{}, err
	}

	if _, err := s.messageRepo.Append(ctx, req.SessionID, domain.RoleAssistant, reply); err != nil {
		return TurnResult{}, fmt.Errorf("append assistant message: %w", err)
	}

	return TurnResult{Reply: reply, SessionID: req.SessionID, NewSession: newSession}, nil
}
