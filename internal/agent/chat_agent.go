package agent

import (
	"context"

	"rag-agent/internal/service"
)

const chatAgentName = "ChatAgent"

const chatRolePrompt = "Eres un asistente de IA que ayuda al usuario con su trabajo diario. " +
	"Responde de forma breve y clara."

// ChatAgent es la persona de conversación general: prompt fijo y delegación
// directa al controlador de turnos.
type ChatAgent struct {
	chat *service.ChatService
}

func NewChatAgent(chat *service.ChatService) *ChatAgent {
	return &ChatAgent{chat: chat}
}

func (a *ChatAgent) Name() string { return chatAgentName }

// Handle ejecuta un turno de conversación general.
func (a *ChatAgent) Handle(ctx context.Context, sessionID, userID, modelID, message string) (service.TurnResult, error) {
	return a.chat.HandleTurn(ctx, service.TurnRequest{
		SessionID:    sessionID,
		UserID:       userID,
		AgentID:      a.Name(),
		ModelID:      modelID,
		Message:      message,
		SystemPrompt: chatRolePrompt,
	})
}
