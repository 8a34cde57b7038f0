package domain

import "time"

// ChatSession es un hilo de conversación durable. Se crea una sola vez en el
// primer turno y nunca se actualiza; la retención/borrado es política externa.
type ChatSession struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	AgentID   string    `json:"agent_id"`
	ModelID   string    `json:"model_id"`
	CreatedAt time.Time `json:"created_at"`
}
