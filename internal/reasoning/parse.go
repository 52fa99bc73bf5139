package reasoning

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// parseObject вырезает JSON из ответа модели (в том числе из блока ```json) и
// декодирует ровно один объект.
func parseObject(text string) (map[string]any, error) {
	body := stripFence(text)
	if body == "" {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if out == nil {
		return nil, fmt.Errorf("%w: not an object", ErrMalformedResponse)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after object", ErrMalformedResponse)
	}
	return out, nil
}

func stripFence(text string) string {
	s := strings.TrimSpace(text)
	start := strings.Index(s, "```")
	if start < 0 {
		return s
	}
	s = s[start+3:]
	// Язык после открывающей ограды: ```json
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	if end := strings.Index(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

func requireKeys(m map[string]any, keys []string) error {
	for _, k := range keys {
		// null приравниваем к отсутствию ключа
		if v, ok := m[k]; !ok || v == nil {
			return fmt.Errorf("%w: missing key %q", ErrMalformedResponse, k)
		}
	}
	return nil
}

// decodeInto раскладывает ответ в типизированную структуру. Модели иногда отдают
// числа строками, поэтому включен weak typing.
func decodeInto(m map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(m); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
