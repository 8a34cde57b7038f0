package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"rag-agent/internal/domain"
)

type mockRedisLister struct {
	entries  []string
	pushErr  error
	rangeErr error

	lastKey    string
	lastExpire time.Duration
	trimStart  int64
	trimStop   int64
}

func (m *mockRedisLister) RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	m.lastKey = key
	cmd := redis.NewIntCmd(ctx)
	if m.pushErr != nil {
		cmd.SetErr(m.pushErr)
		return cmd
	}
	for _, v := range values {
		m.entries = append(m.entries, string(v.([]byte)))
	}
	cmd.SetVal(int64(len(m.entries)))
	return cmd
}

func (m *mockRedisLister) LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd {
	m.lastKey = key
	cmd := redis.NewStringSliceCmd(ctx)
	if m.rangeErr != nil {
		cmd.SetErr(m.rangeErr)
		return cmd
	}
	cmd.SetVal(append([]string{}, m.entries...))
	return cmd
}

func (m *mockRedisLister) LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd {
	m.trimStart, m.trimStop = start, stop
	if start < 0 && int64(len(m.entries)) > -start {
		m.entries = m.entries[int64(len(m.entries))+start:]
	}
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (m *mockRedisLister) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	m.lastExpire = expiration
	cmd := redis.NewBoolCmd(ctx)
	cmd.SetVal(true)
	return cmd
}

func TestRedisHistoryAppendAndRecent(t *testing.T) {
	mock := &mockRedisLister{}
	h := &RedisHistory{client: mock, ttl: time.Hour, prefix: "stream:history:"}

	turns := []domain.ChatTurn{
		{Role: domain.RoleUser, Content: "hola"},
		{Role: domain.RoleAssistant, Content: "buenas"},
	}
	if err := h.Append(context.Background(), "u1", turns...); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.lastKey != "stream:history:u1" {
		t.Fatalf("unexpected key %q", mock.lastKey)
	}
	if mock.lastExpire != time.Hour {
		t.Fatalf("expected ttl renewal, got %v", mock.lastExpire)
	}
	if mock.trimStart != -int64(maxTurns*2) || mock.trimStop != -1 {
		t.Fatalf("unexpected trim window [%d,%d]", mock.trimStart, mock.trimStop)
	}

	got, err := h.Recent(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != turns[0] || got[1] != turns[1] {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestRedisHistoryRecent_SkipsCorruptEntries(t *testing.T) {
	valid, _ := json.Marshal(domain.ChatTurn{Role: domain.RoleUser, Content: "hola"})
	mock := &mockRedisLister{entries: []string{"{not json", string(valid)}}
	h := &RedisHistory{client: mock, ttl: time.Hour, prefix: "stream:history:"}

	got, err := h.Recent(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Content != "hola" {
		t.Fatalf("expected only the valid entry, got %+v", got)
	}
}

func TestRedisHistory_NilSafe(t *testing.T) {
	var h *RedisHistory
	if err := h.Append(context.Background(), "u1", domain.ChatTurn{Role: domain.RoleUser, Content: "x"}); err != nil {
		t.Fatalf("expected nil-safe append, got %v", err)
	}
	turns, err := h.Recent(context.Background(), "u1")
	if err != nil || len(turns) != 0 {
		t.Fatalf("expected nil-safe recent, got %+v %v", turns, err)
	}
}

func TestRedisHistoryAppend_PropagatesStorageError(t *testing.T) {
	boom := errors.New("redis down")
	mock := &mockRedisLister{pushErr: boom}
	h := &RedisHistory{client: mock, ttl: time.Hour, prefix: "stream:history:"}

	err := h.Append(context.Background(), "u1", domain.ChatTurn{Role: domain.RoleUser, Content: "x"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped redis error, got %v", err)
	}
}
