package reasoning

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMalformedResponse — ответ модели не удалось разобрать или он нарушает контракт задачи
	ErrMalformedResponse = errors.New("malformed model response")
	ErrNoCredential      = errors.New("inference credential is empty")
	// ErrCredentialRejected — провайдер отверг ключ (401/403). Повтор не поможет.
	ErrCredentialRejected = errors.New("inference credential rejected")
)

// isCredentialError: ошибка ключа, а не провайдера. Не повторяем и не считаем в CB.
func isCredentialError(err error) bool {
	return errors.Is(err, ErrNoCredential) || errors.Is(err, ErrCredentialRejected)
}

// ThrottleError возвращается клиентом, когда провайдер просит подождать (HTTP 429).
// ReliableClient берет RetryAfter как задержку перед следующей попыткой.
type ThrottleError struct {
	RetryAfter time.Duration
	Cause      error
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("throttled: retry after %v (cause: %v)", e.RetryAfter, e.Cause)
}

func (e *ThrottleError) Unwrap() error { return e.Cause }
