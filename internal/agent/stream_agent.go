package agent

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"rag-agent/internal/domain"
	"rag-agent/internal/llm"
)

const streamAgentName = "StreamAgent"

const streamRolePrompt = "Eres un asistente conversacional que responde en streaming."

// HistoryStore es la memoria reciente del agente; memory.RedisHistory la
// implementa.
type HistoryStore interface {
	Recent(ctx context.Context, userID string) ([]domain.ChatTurn, error)
	Append(ctx context.Context, userID string, turns ...domain.ChatTurn) error
}

// StreamAgent relaya tokens del proveedor por un canal acotado. Su memoria es
// el buffer reciente en Redis, no el log durable: si el consumidor cancela a
// mitad de stream, la respuesta parcial se descarta y la memoria no se
// actualiza (decisión documentada; el buffer solo guarda turnos completos).
type StreamAgent struct {
	logger    *zap.Logger
	llmClient llm.Client
	history   HistoryStore
}

func NewStreamAgent(logger *zap.Logger, llmClient llm.Client, history HistoryStore) *StreamAgent {
	return &StreamAgent{logger: logger, llmClient: llmClient, history: history}
}

func (a *StreamAgent) Name() string { return streamAgentName }

// Stream lanza la generación y devuelve el canal de chunks. El cierre del
// canal es el fin del stream; cancelar ctx detiene al productor.
func (a *StreamAgent) Stream(ctx context.Context, userID, modelID, message string) (<-chan llm.Chunk, error) {
	recent := []domain.ChatTurn{}
	if a.history != nil {
		loaded, err := a.history.Recent(ctx, userID)
		if err != nil {
			// La memoria es best-effort: sin contexto reciente, el turno sigue.
			a.logger.Warn("stream history load failed", zap.String("user_id", userID), zap.Error(err))
		} else {
			recent = loaded
		}
	}

	chunks, err := a.llmClient.GenerateStream(ctx, llm.Request{
		Model:       modelID,
		System:      streamRolePrompt,
		History:     recent,
		UserMessage: message,
	})
	if err != nil {
		return nil, err
	}

	out := make(chan llm.Chunk)
	go func() {
		defer close(out)

		var reply strings.Builder
		clean := true
		for chunk := range chunks {
			if chunk.Err != nil {
				clean = false
			} else {
				reply.WriteString(chunk.Content)
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
		if a.history == nil || ctx.Err() != nil || !clean || reply.Len() == 0 {
			return
		}

		// El stream terminó completo: el turno entra a la memoria reciente.
		// Contexto propio para que un disconnect tardío no pierda la escritura.
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		err := a.history.Append(writeCtx, userID,
			domain.ChatTurn{Role: domain.RoleUser, Content: message},
			domain.ChatTurn{Role: domain.RoleAssistant, Content: reply.String()},
		)
		if err != nil {
			a.logger.Warn("stream history append failed", zap.String("user_id", userID), zap.Error(err))
		}
	}()

	return out, nil
}
