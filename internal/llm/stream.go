package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// streamBuffer acota el canal de chunks: si el consumidor se atrasa, el
// productor se bloquea en lugar de acumular tokens sin límite.
const streamBuffer = 32

const streamDone = "[DONE]"

// GenerateStream lanza la petición con stream=true y devuelve un canal de
// chunks. El canal se cierra al terminar el stream (sentinel [DONE] del
// proveedor) o cuando ctx se cancela; la cancelación del consumidor corta la
// petición en curso, no deja una goroutine bloqueada.
func (c *HTTPClient) GenerateStream(ctx context.Context, req Request) (<-chan Chunk, error) {
	reqBody := chatRequest{
		Model:    c.model(req),
		Messages: c.buildMessages(req),
		Stream:   true,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: do request: %v", ErrModelCall, err)
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status=%d", ErrModelCall, resp.StatusCode)
	}

	out := make(chan Chunk, streamBuffer)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == streamDone {
				return
			}

			var ev streamEvent
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				continue
			}
			if len(ev.Choices) == 0 || ev.Choices[0].Delta.Content == "" {
				continue
			}

			select {
			case out <- Chunk{Content: ev.Choices[0].Delta.Content}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			select {
			case out <- Chunk{Err: fmt.Errorf("%w: read stream: %v", ErrModelCall, err)}:
			case <-ctx.Done():
			}
		}
	}()

	return out, nil
}

type streamEvent struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}
