package reasoning

import (
	"context"
	"sync"
)

// MockReply — один заготовленный ответ MockClient
type MockReply struct {
	Text string
	Err  error
}

// MockClient отдает заготовленные ответы по очереди; последний повторяется.
// Используется в тестах и в CLI без сети.
type MockClient struct {
	model string

	mu      sync.Mutex
	replies []MockReply
	calls   []Request
}

func NewMockClient(model string, replies ...MockReply) *MockClient {
	return &MockClient{model: model, replies: replies}
}

func (c *MockClient) Model() string { return c.model }

func (c *MockClient) Generate(ctx context.Context, credential string, req Request) (string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, req)
	var reply MockReply
	switch len(c.replies) {
	case 0:
	case 1:
		reply = c.replies[0]
	default:
		reply = c.replies[0]
		c.replies = c.replies[1:]
	}
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	if credential == "" {
		return "", ErrNoCredential
	}
	return reply.Text, reply.Err
}

// Calls возвращает копию принятых запросов.
func (c *MockClient) Calls() []Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Request, len(c.calls))
	copy(out, c.calls)
	return out
}
