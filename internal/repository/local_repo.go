package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"rag-agent/internal/domain"
)

// LocalSessionRepository es un SessionRepository en memoria para tests y para
// cmd/cli_chat cuando no hay DATABASE_URL. Replica el contrato del backend
// Postgres, incluida la asignación de ids por el store.
type LocalSessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]domain.ChatSession
}

func NewLocalSessionRepository() *LocalSessionRepository {
	return &LocalSessionRepository{sessions: make(map[string]domain.ChatSession)}
}

func (r *LocalSessionRepository) Create(_ context.Context, userID, agentID, modelID string) (domain.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := domain.ChatSession{
		SessionID: uuid.NewString(),
		UserID:    userID,
		AgentID:   agentID,
		ModelID:   modelID,
		CreatedAt: time.Now().UTC(),
	}
	r.sessions[s.SessionID] = s
	return s, nil
}

func (r *LocalSessionRepository) GetByID(_ context.Context, sessionID string) (domain.ChatSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[strings.TrimSpace(sessionID)]
	if !ok {
		return domain.ChatSession{}, ErrSessionNotFound
	}
	return s, nil
}

// LocalMessageRepository es un MessageRepository en memoria. El mutex por
// sesión serializa la asignación de sequence igual que el advisory lock en
// Postgres; appends sobre sesiones distintas no se bloquean entre sí.
type LocalMessageRepository struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
	logs  map[string][]domain.SessionMessage
}

func NewLocalMessageRepository() *LocalMessageRepository {
	return &LocalMessageRepository{
		locks: make(map[string]*sync.Mutex),
		logs:  make(map[string][]domain.SessionMessage),
	}
}

func (r *LocalMessageRepository) sessionLock(sessionID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[sessionID] = l
	}
	return l
}

func (r *LocalMessageRepository) Append(_ context.Context, sessionID string, role domain.Role, content string) (domain.SessionMessage, error) {
	lock := r.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	log := r.logs[sessionID]
	var last int64
	if len(log) > 0 {
		last = log[len(log)-1].Sequence
	}
	msg := domain.SessionMessage{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Sequence:  last + 1,
		CreatedAt: time.Now().UTC(),
	}
	r.logs[sessionID] = append(log, msg)
	return msg, nil
}

// SessionIDs devuelve los ids de sesión con al menos un mensaje. Útil en tests.
func (r *LocalMessageRepository) SessionIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.logs))
	for id := range r.logs {
		ids = append(ids, id)
	}
	return ids
}

func (r *LocalMessageRepository) ListBySessionID(_ context.Context, sessionID string) ([]domain.SessionMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	log := r.logs[sessionID]
	out := make([]domain.SessionMessage, len(log))
	copy(out, log)
	return out, nil
}

var (
	_ SessionRepository = (*LocalSessionRepository)(nil)
	_ MessageRepository = (*LocalMessageRepository)(nil)
)
