package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"rag-agent/internal/domain"
	"rag-agent/internal/llm"
	"rag-agent/internal/repository"
)

func newChatFixture(client llm.Client) (*ChatService, *repository.LocalSessionRepository, *repository.LocalMessageRepository) {
	sessions := repository.NewLocalSessionRepository()
	messages := repository.NewLocalMessageRepository()
	svc := NewChatService(zap.NewNop(), sessions, messages, NewHistoryService(messages), client)
	return svc, sessions, messages
}

func TestChatServiceHandleTurn_NewSession(t *testing.T) {
	client := &llm.MockClient{Response: "hola, soy tu asistente"}
	svc, sessions, messages := newChatFixture(client)

	result, err := svc.HandleTurn(context.Background(), TurnRequest{
		UserID:  "u1",
		AgentID: "ChatAgent",
		ModelID: "gpt-4o-mini",
		Message: "hola",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SessionID == "" || !result.NewSession {
		t.Fatalf("expected freshly minted session, got %+v", result)
	}
	if result.Reply != "hola, soy tu asistente" {
		t.Fatalf("unexpected reply %q", result.Reply)
	}

	session, err := sessions.GetByID(context.Background(), result.SessionID)
	if err != nil {
		t.Fatalf("expected session row, got %v", err)
	}
	if session.UserID != "u1" || session.AgentID != "ChatAgent" || session.ModelID != "gpt-4o-mini" {
		t.Fatalf("session fields mismatch: %+v", session)
	}

	log, err := messages.ListBySessionID(context.Background(), result.SessionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(log) != 2 {
		t.Fatalf("expected exactly 2 messages, got %d", len(log))
	}
	if log[0].Sequence != 1 || log[0].Role != domain.RoleUser || log[0].Content != "hola" {
		t.Fatalf("unexpected user row: %+v", log[0])
	}
	if log[1].Sequence != 2 || log[1].Role != domain.RoleAssistant || log[1].Content != result.Reply {
		t.Fatalf("unexpected assistant row: %+v", log[1])
	}

	if len(client.LastRequest.History) != 0 {
		t.Fatalf("expected empty history on first turn, got %+v", client.LastRequest.History)
	}
}

func TestChatServiceHandleTurn_ResumedSession(t *testing.T) {
	client := &llm.MockClient{Response: "respuesta 1"}
	svc, _, messages := newChatFixture(client)

	first, err := svc.HandleTurn(context.Background(), TurnRequest{
		UserID: "u1", AgentID: "ChatAgent", ModelID: "gpt-4o-mini", Message: "mensaje 1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	client.Response = "respuesta 2"
	second, err := svc.HandleTurn(context.Background(), TurnRequest{
		SessionID: first.SessionID,
		UserID:    "u1", AgentID: "ChatAgent", ModelID: "gpt-4o-mini", Message: "mensaje 2",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.SessionID != first.SessionID || second.NewSession {
		t.Fatalf("expected resumed session, got %+v", second)
	}

	// El segundo turno ve exactamente el primer turno como historial.
	wantHistory := []domain.ChatTurn{
		{Role: domain.RoleUser, Content: "mensaje 1"},
		{Role: domain.RoleAssistant, Content: "respuesta 1"},
	}
	if len(client.LastRequest.History) != len(wantHistory) {
		t.Fatalf("expected history of %d turns, got %+v", len(wantHistory), client.LastRequest.History)
	}
	for i, turn := range wantHistory {
		if client.LastRequest.History[i] != turn {
			t.Fatalf("history[%d] mismatch: got %+v want %+v", i, client.LastRequest.History[i], turn)
		}
	}

	log, _ := messages.ListBySessionID(context.Background(), first.SessionID)
	if len(log) != 4 {
		t.Fatalf("expected 4 messages after two turns, got %d", len(log))
	}
	for i, msg := range log {
		if msg.Sequence != int64(i+1) {
			t.Fatalf("expected sequences 1..4, got %d at position %d", msg.Sequence, i)
		}
	}
}

func TestChatServiceHandleTurn_ModelFailureKeepsUserMessage(t *testing.T) {
	client := &llm.MockClient{Err: llm.ErrModelCall}
	svc, sessions, messages := newChatFixture(client)

	result, err := svc.HandleTurn(context.Background(), TurnRequest{
		UserID: "u1", AgentID: "ChatAgent", ModelID: "gpt-4o-mini", Message: "hola",
	})
	if !errors.Is(err, llm.ErrModelCall) {
		t.Fatalf("expected ErrModelCall, got %v", err)
	}
	if result.Reply != "" {
		t.Fatalf("expected no reply on failure, got %q", result.Reply)
	}

	// El turno falló sin devolver el id, así que lo ubicamos en el log:
	// la sesión creada y el mensaje del usuario deben sobrevivir a la falla.
	sessionID := findOnlySessionWithMessages(t, messages)

	log, err := messages.ListBySessionID(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(log) != 1 {
		t.Fatalf("expected only the user message, got %d rows", len(log))
	}
	if log[0].Role != domain.RoleUser || log[0].Content != "hola" || log[0].Sequence != 1 {
		t.Fatalf("unexpected surviving row: %+v", log[0])
	}
	if _, err := sessions.GetByID(context.Background(), sessionID); err != nil {
		t.Fatalf("expected the new session to survive the model failure, got %v", err)
	}
}

func TestChatServiceHandleTurn_UnknownSessionFailsBeforeWriting(t *testing.T) {
	client := &llm.MockClient{Response: "no debería llamarse"}
	svc, _, messages := newChatFixture(client)

	_, err := svc.HandleTurn(context.Background(), TurnRequest{
		SessionID: "3f0c8f9a-0000-0000-0000-000000000000",
		UserID:    "u1", AgentID: "ChatAgent", ModelID: "gpt-4o-mini", Message: "hola",
	})
	if !errors.Is(err, repository.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if client.Calls != 0 {
		t.Fatalf("expected no model call, got %d", client.Calls)
	}
	log, _ := messages.ListBySessionID(context.Background(), "3f0c8f9a-0000-0000-0000-000000000000")
	if len(log) != 0 {
		t.Fatalf("expected nothing written, got %d rows", len(log))
	}
}

func TestChatServiceHandleTurn_Validation(t *testing.T) {
	svc, _, _ := newChatFixture(&llm.MockClient{})

	cases := []TurnRequest{
		{UserID: "", Message: "hola"},
		{UserID: "u1", Message: "   "},
	}
	for i, req := range cases {
		if _, err := svc.HandleTurn(context.Background(), req); !errors.Is(err, ErrTurnInvalidInput) {
			t.Fatalf("case %d: expected ErrTurnInvalidInput, got %v", i, err)
		}
	}
}

func TestChatServiceHandleTurn_SystemPromptReachesModel(t *testing.T) {
	client := &llm.MockClient{Response: "ok"}
	svc, _, _ := newChatFixture(client)

	_, err := svc.HandleTurn(context.Background(), TurnRequest{
		UserID: "u1", AgentID: "NewsAgent", ModelID: "gpt-4o-mini",
		Message: "resumen", SystemPrompt: "eres un curador de noticias",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.LastRequest.System != "eres un curador de noticias" {
		t.Fatalf("expected system prompt forwarded, got %q", client.LastRequest.System)
	}
	if client.LastRequest.Model != "gpt-4o-mini" {
		t.Fatalf("expected model forwarded, got %q", client.LastRequest.Model)
	}
}

// findOnlySessionWithMessages localiza la única sesión con mensajes en el
// repositorio local; falla el test si hay cero o más de una.
func findOnlySessionWithMessages(t *testing.T, repo *repository.LocalMessageRepository) string {
	t.Helper()
	ids := repo.SessionIDs()
	if len(ids) != 1 {
		t.Fatalf("expected exactly one session with messages, got %d", len(ids))
	}
	return ids[0]
}
