package service

import (
	"context"
	"fmt"
	"strings"

	"rag-agent/internal/domain"
	"rag-agent/internal/repository"
)

// HistoryService reconstruye el historial de una sesión como la lista
// rol/contenido que espera una llamada al modelo.
type HistoryService struct {
	messageRepo repository.MessageRepository
}

func NewHistoryService(messageRepo repository.MessageRepository) *HistoryService {
	return &HistoryService{messageRepo: messageRepo}
}

// BuildHistory proyecta el log de la sesión, ya ordenado por sequence, a
// []ChatTurn. Determinista: sin escrituras de por medio, dos llamadas
// devuelven lo mismo. Sesión sin mensajes devuelve slice vacío, no error.
func (s *HistoryService) BuildHistory(ctx context.Context, sessionID string) ([]domain.ChatTurn, error) {
	if strings.TrimSpace(sessionID) == "" {
		return []domain.ChatTurn{}, nil
	}

	messages, err := s.messageRepo.ListBySessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	turns := make([]domain.ChatTurn, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case domain.RoleUser, domain.RoleAssistant, domain.RoleSystem:
			turns = append(turns, domain.ChatTurn{Role: msg.Role, Content: msg.Content})
		default:
			return nil, fmt.Errorf("session %s sequence %d: unknown role %q", msg.SessionID, msg.Sequence, msg.Role)
		}
	}
	return turns, nil
}
