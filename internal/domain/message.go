package domain

import (
	"fmt"
	"time"
)

// Role identifica quién produjo un mensaje. Es un tipo cerrado: todo switch
// sobre Role debe cubrir los tres valores para que agregar uno nuevo sea un
// cambio verificado en compilación.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reporta si el rol es uno de los conocidos.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// ParseRole convierte el valor persistido en un Role, rechazando desconocidos.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// SessionMessage es una entrada inmutable del log de mensajes de una sesión.
// Sequence lo asigna siempre el log, nunca el caller: es estrictamente
// creciente y único dentro de la sesión, y ordena el transcript completo.
type SessionMessage struct {
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Sequence  int64     `json:"sequence"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatTurn es la proyección mínima que consume una llamada al modelo:
// rol y contenido, sin campos de almacenamiento.
type ChatTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
