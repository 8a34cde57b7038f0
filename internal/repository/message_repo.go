package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"rag-agent/internal/domain"
)

// MessageRepository define el contrato del log de mensajes por sesión.
type MessageRepository interface {
	// Append asigna sequence = max(sequence)+1 dentro de la sesión e inserta
	// el mensaje, devolviéndolo con su sequence asignado.
	Append(ctx context.Context, sessionID string, role domain.Role, content string) (domain.SessionMessage, error)
	// ListBySessionID devuelve todos los mensajes de la sesión ordenados por
	// sequence ascendente; slice vacío si no hay ninguno.
	ListBySessionID(ctx context.Context, sessionID string) ([]domain.SessionMessage, error)
}

// PgMessageRepository implementa MessageRepository usando pgxpool.
type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

// Append corre en una transacción propia. El advisory lock por sesión
// serializa el read-max-then-insert: dos appenders concurrentes sobre la misma
// sesión nunca calculan el mismo sequence. El lock vive solo lo que dura esta
// transacción; la llamada al modelo nunca lo retiene.
func (r *PgMessageRepository) Append(ctx context.Context, sessionID string, role domain.Role, content string) (domain.SessionMessage, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.SessionMessage{}, fmt.Errorf("begin append tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, sessionID); err != nil {
		return domain.SessionMessage{}, fmt.Errorf("lock session %s: %w", sessionID, err)
	}

	const query = `
		INSERT INTO session_message (session_id, role, content, sequence)
		VALUES (
			$1, $2, $3,
			(SELECT COALESCE(MAX(sequence), 0) + 1 FROM session_message WHERE session_id = $1)
		)
		RETURNING sequence, created_at
	`
	msg := domain.SessionMessage{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
	}
	if err := tx.QueryRow(ctx, query, sessionID, string(role), content).Scan(&msg.Sequence, &msg.CreatedAt); err != nil {
		return domain.SessionMessage{}, fmt.Errorf("insert session_message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.SessionMessage{}, fmt.Errorf("commit append tx: %w", err)
	}
	return msg, nil
}

func (r *PgMessageRepository) ListBySessionID(ctx context.Context, sessionID string) ([]domain.SessionMessage, error) {
	const query = `
		SELECT session_id, role, content, sequence, created_at
		FROM session_message
		WHERE session_id = $1
		ORDER BY sequence ASC
	`
	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("select session_message: %w", err)
	}
	defer rows.Close()

	messages := []domain.SessionMessage{}
	for rows.Next() {
		var msg domain.SessionMessage
		var roleValue string

		err = rows.Scan(
			&msg.SessionID,
			&roleValue,
			&msg.Content,
			&msg.Sequence,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan session_message: %w", err)
		}
		msg.Role, err = domain.ParseRole(roleValue)
		if err != nil {
			return nil, fmt.Errorf("session %s sequence %d: %w", msg.SessionID, msg.Sequence, err)
		}
		messages = append(messages, msg)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session_message: %w", err)
	}

	return messages, nil
}
