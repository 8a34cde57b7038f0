package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func sseBody(tokens ...string) string {
	var sb strings.Builder
	for _, tok := range tokens {
		fmt.Fprintf(&sb, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", tok)
	}
	sb.WriteString("data: [DONE]\n\n")
	return sb.String()
}

func TestHTTPClientGenerateStream(t *testing.T) {
	t.Run("chunks en orden y canal cerrado en DONE", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			w.Write([]byte(sseBody("ho", "la", "!")))
		}))
		defer srv.Close()

		client := NewHTTPClient(srv.URL, "key-1", "gpt-4o-mini", nil)
		chunks, err := client.GenerateStream(context.Background(), Request{UserMessage: "hola"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got []string
		for chunk := range chunks {
			if chunk.Err != nil {
				t.Fatalf("unexpected chunk error: %v", chunk.Err)
			}
			got = append(got, chunk.Content)
		}
		if strings.Join(got, "") != "hola!" {
			t.Fatalf("expected reassembled reply hola!, got %q", strings.Join(got, ""))
		}
	})

	t.Run("status >= 400 falla sin canal", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		client := NewHTTPClient(srv.URL, "key-1", "gpt-4o-mini", nil)
		if _, err := client.GenerateStream(context.Background(), Request{UserMessage: "hola"}); !errors.Is(err, ErrModelCall) {
			t.Fatalf("expected ErrModelCall, got %v", err)
		}
	})

	t.Run("cancelación del consumidor detiene al productor", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			flusher := w.(http.Flusher)
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":\"primero\"}}]}\n\n")
			flusher.Flush()
			<-release
		}))
		defer srv.Close()
		defer close(release)

		ctx, cancel := context.WithCancel(context.Background())
		client := NewHTTPClient(srv.URL, "key-1", "gpt-4o-mini", nil)
		chunks, err := client.GenerateStream(ctx, Request{UserMessage: "hola"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		first := <-chunks
		if first.Content != "primero" {
			t.Fatalf("expected first chunk, got %+v", first)
		}
		cancel()

		select {
		case _, open := <-chunks:
			if open {
				// Puede llegar un chunk ya en vuelo; el siguiente debe cerrar.
				if _, open = <-chunks; open {
					t.Fatalf("expected channel to close after cancel")
				}
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for channel close after cancel")
		}
	})
}
