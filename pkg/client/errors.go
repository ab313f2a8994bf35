package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrUnauthorized - сессия недействительна, токен нужно сбросить
var ErrUnauthorized = errors.New("unauthorized")

// APIError - нормализованная ошибка сервера: статус и одно сообщение
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Is позволяет проверять errors.Is(err, ErrUnauthorized)
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

const maxErrorBody = 64 << 10

func newAPIError(resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &APIError{
		Status:  resp.StatusCode,
		Message: errorMessage(raw, resp.StatusCode),
	}
}

// errorMessage вытаскивает сообщение из известных форм ответа:
// {"error":{"message"}}, {"error":"..."}, {"message":"..."},
// {"errors":[{"msg"|"message"}]} или простой текст.
func errorMessage(body []byte, status int) string {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch e := payload["error"].(type) {
		case map[string]interface{}:
			if msg, ok := e["message"].(string); ok && msg != "" {
				return msg
			}
		case string:
			if e != "" {
				return e
			}
		}
		if msg, ok := payload["message"].(string); ok && msg != "" {
			return msg
		}
		if list, ok := payload["errors"].([]interface{}); ok {
			msgs := make([]string, 0, len(list))
			for _, item := range list {
				switch v := item.(type) {
				case map[string]interface{}:
					if m := firstString(v, "msg", "message"); m != "" {
						msgs = append(msgs, m)
					}
				case string:
					msgs = append(msgs, v)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" && !strings.HasPrefix(text, "{") && !strings.HasPrefix(text, "<") {
		return text
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "Request failed"
}
