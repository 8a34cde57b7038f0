package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"rag-agent/internal/domain"
)

// maxTurns acota el buffer por usuario a los últimos N turnos (2N entradas).
const maxTurns = 10

// redisLister es el subconjunto de comandos que usa el cache; *redis.Client lo
// satisface y los tests lo implementan con un mock.
type redisLister interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisHistory guarda el historial reciente del agente de streaming como una
// lista por usuario con TTL. Es un cache efímero, no el log durable de
// mensajes: perder la clave solo pierde contexto conversacional.
type RedisHistory struct {
	client redisLister
	ttl    time.Duration
	prefix string
}

func NewRedisHistory(client *redis.Client, ttl time.Duration) *RedisHistory {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisHistory{client: client, ttl: ttl, prefix: "stream:history:"}
}

func (h *RedisHistory) key(userID string) string {
	return h.prefix + strings.TrimSpace(userID)
}

// Append agrega turnos al buffer, recorta al máximo y renueva el TTL.
func (h *RedisHistory) Append(ctx context.Context, userID string, turns ...domain.ChatTurn) error {
	if h == nil || h.client == nil {
		return nil
	}
	if strings.TrimSpace(userID) == "" || len(turns) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(turns))
	for _, turn := range turns {
		encoded, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("marshal turn: %w", err)
		}
		values = append(values, encoded)
	}

	key := h.key(userID)
	if err := h.client.RPush(ctx, key, values...).Err(); err != nil {
		return fmt.Errorf("rpush history: %w", err)
	}
	if err := h.client.LTrim(ctx, key, -int64(maxTurns*2), -1).Err(); err != nil {
		return fmt.Errorf("ltrim history: %w", err)
	}
	if err := h.client.Expire(ctx, key, h.ttl).Err(); err != nil {
		return fmt.Errorf("expire history: %w", err)
	}
	return nil
}

// Recent devuelve los turnos guardados en orden cronológico; slice vacío si
// no hay clave o el cache no está configurado.
func (h *RedisHistory) Recent(ctx context.Context, userID string) ([]domain.ChatTurn, error) {
	if h == nil || h.client == nil {
		return []domain.ChatTurn{}, nil
	}
	if strings.TrimSpace(userID) == "" {
		return []domain.ChatTurn{}, nil
	}

	raw, err := h.client.LRange(ctx, h.key(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange history: %w", err)
	}

	turns := make([]domain.ChatTurn, 0, len(raw))
	for _, entry := range raw {
		var turn domain.ChatTurn
		if err := json.Unmarshal([]byte(entry), &turn); err != nil {
			// Entradas corruptas se saltan; el cache es best-effort.
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}
