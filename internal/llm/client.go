package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rag-agent/internal/domain"
)

// ErrModelCall marca toda falla del proveedor o del transporte hacia él.
// Los callers distinguen con errors.Is entre fallas de modelo y de storage.
var ErrModelCall = errors.New("model call failed")

// Request es una invocación al modelo: historial previo, mensaje del usuario
// y prompt de sistema opcional (vacío = sin mensaje system).
type Request struct {
	Model       string
	System      string
	History     []domain.ChatTurn
	UserMessage string
}

// Chunk es un fragmento de una respuesta en streaming. Err viaja por el mismo
// canal; el cierre del canal es el sentinel de fin de stream.
type Chunk struct {
	Content string
	Err     error
}

// Client define la interfaz para generar respuestas con un LLM.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
	GenerateStream(ctx context.Context, req Request) (<-chan Chunk, error)
}

type logger interface {
	Printf(format string, v ...interface{})
}

// HTTPClient implementa Client contra una API OpenAI-compatible.
type HTTPClient struct {
	baseURL      string
	apiKey       string
	defaultModel string
	client       *http.Client
	logger       logger
}

// NewHTTPClient construye un cliente HTTP apuntando a la API de chat completions.
func NewHTTPClient(baseURL, apiKey, defaultModel string, log any) *HTTPClient {
	l, _ := log.(logger)
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &HTTPClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		defaultModel: defaultModel,
		client:       &http.Client{Timeout: 120 * time.Second},
		logger:       l,
	}
}

func (c *HTTPClient) buildMessages(req Request) []chatMessage {
	messages := make([]chatMessage, 0, len(req.History)+2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, chatMessage{Role: string(domain.RoleSystem), Content: req.System})
	}
	for _, turn := range req.History {
		messages = append(messages, chatMessage{Role: string(turn.Role), Content: turn.Content})
	}
	messages = append(messages, chatMessage{Role: string(domain.RoleUser), Content: req.UserMessage})
	return messages
}

func (c *HTTPClient) model(req Request) string {
	if strings.TrimSpace(req.Model) != "" {
		return req.Model
	}
	return c.defaultModel
}

func (c *HTTPClient) Generate(ctx context.Context, req Request) (string, error) {
	reqBody := chatRequest{
		Model:    c.model(req),
		Messages: c.buildMessages(req),
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: do request: %v", ErrModelCall, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrModelCall, err)
	}

	if resp.StatusCode >= 400 {
		if c.logger != nil {
			c.logger.Printf("llm error status %d: %s", resp.StatusCode, string(respBody))
		}
		return "", fmt.Errorf("%w: status=%d", ErrModelCall, resp.StatusCode)
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return "", fmt.Errorf("%w: unmarshal response: %v", ErrModelCall, err)
	}

	if cr.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrModelCall, cr.Error.Message)
	}

	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: empty response", ErrModelCall)
	}

	return cr.Choices[0].Message.Content, nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}
