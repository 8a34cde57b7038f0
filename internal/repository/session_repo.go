package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rag-agent/internal/domain"
)

// ErrSessionNotFound señala ausencia de sesión. Es un resultado esperado para
// lookups optimistas, no una falla de almacenamiento.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository define el contrato de persistencia para sesiones de chat.
type SessionRepository interface {
	Create(ctx context.Context, userID, agentID, modelID string) (domain.ChatSession, error)
	GetByID(ctx context.Context, sessionID string) (domain.ChatSession, error)
}

// PgSessionRepository implementa SessionRepository usando pgxpool.
type PgSessionRepository struct {
	pool *pgxpool.Pool
}

func NewPgSessionRepository(pool *pgxpool.Pool) *PgSessionRepository {
	return &PgSessionRepository{pool: pool}
}

// Create inserta la sesión y devuelve la fila completa; session_id y
// created_at los genera la base de datos.
func (r *PgSessionRepository) Create(ctx context.Context, userID, agentID, modelID string) (domain.ChatSession, error) {
	const query = `
		INSERT INTO chat_session (user_id, agent_id, model_id)
		VALUES ($1, $2, $3)
		RETURNING session_id, user_id, agent_id, model_id, created_at
	`
	var s domain.ChatSession
	err := r.pool.QueryRow(ctx, query, userID, agentID, modelID).Scan(
		&s.SessionID,
		&s.UserID,
		&s.AgentID,
		&s.ModelID,
		&s.CreatedAt,
	)
	if err != nil {
		return domain.ChatSession{}, fmt.Errorf("insert chat_session: %w", err)
	}
	return s, nil
}

func (r *PgSessionRepository) GetByID(ctx context.Context, sessionID string) (domain.ChatSession, error) {
	const query = `
		SELECT session_id, user_id, agent_id, model_id, created_at
		FROM chat_session
		WHERE session_id = $1
	`
	var s domain.ChatSession
	err := r.pool.QueryRow(ctx, query, sessionID).Scan(
		&s.SessionID,
		&s.UserID,
		&s.AgentID,
		&s.ModelID,
		&s.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ChatSession{}, ErrSessionNotFound
	}
	if err != nil {
		return domain.ChatSession{}, fmt.Errorf("select chat_session: %w", err)
	}
	return s, nil
}
