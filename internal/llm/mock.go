package llm

import "context"

// MockClient permite tests sin llamar a un LLM real.
type MockClient struct {
	Response string
	Chunks   []string
	Err      error

	LastRequest Request
	Calls       int
}

func (m *MockClient) Generate(_ context.Context, req Request) (string, error) {
	m.LastRequest = req
	m.Calls++
	return m.Response, m.Err
}

func (m *MockClient) GenerateStream(ctx context.Context, req Request) (<-chan Chunk, error) {
	m.LastRequest = req
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}

	out := make(chan Chunk, len(m.Chunks))
	go func() {
		defer close(out)
		for _, content := range m.Chunks {
			select {
			case out <- Chunk{Content: content}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

var _ Client = (*MockClient)(nil)
