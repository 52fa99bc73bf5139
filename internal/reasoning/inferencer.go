package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
)

// Request — инструкция роли и входные данные задачи.
type Request struct {
	Instruction string
	Input       map[string]any
}

// Prompt собирает текст запроса: инструкция, затем блок INPUT DATA с JSON.
func (r Request) Prompt() (string, error) {
	data, err := json.Marshal(r.Input)
	if err != nil {
		return "", fmt.Errorf("encode input: %w", err)
	}
	return r.Instruction + "\n\nINPUT DATA:\n" + string(data), nil
}

// Inferencer — внешний сервис вывода (LLM). credential передается с каждым запросом
// и не проверяется на нашей стороне.
type Inferencer interface {
	Generate(ctx context.Context, credential string, req Request) (string, error)
	Model() string
}

// availability реализуют клиенты, которые умеют сообщить, что сейчас звать их бессмысленно
// (например, открыт Circuit Breaker).
type availability interface {
	Available() bool
}
