package line

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError 表示 LINE 接口返回的非 2xx 响应
type APIError struct {
	StatusCode int
	Message    string // 上游 JSON 中的 message 字段，可能为空
	Body       string // 原始响应内容
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("line api error: status=%d, message=%s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("line api error: status=%d, body=%s", e.StatusCode, truncate(e.Body, 256))
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: string(body)}

	var envelope struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		apiErr.Message = strings.TrimSpace(envelope.Message)
	}
	return apiErr
}

// AsAPIError extracts the upstream error from err.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsNotFound reports whether err means the rich menu (or default link) does not exist on LINE.
func IsNotFound(err error) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}
	if apiErr.StatusCode == http.StatusNotFound {
		return true
	}
	return strings.Contains(strings.ToLower(apiErr.Message), "not found")
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
