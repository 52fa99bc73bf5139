package reasoning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ReliabilityConfig — предохранители вокруг внешнего вывода
type ReliabilityConfig struct {
	Timeout     time.Duration // на одну попытку
	MaxAttempts uint
	RateLimit   float64
	RateBurst   int

	CBMaxRequests uint32
	CBInterval    time.Duration
	CBTimeout     time.Duration // через сколько CB попробует "закрыться"
	CBFailures    uint32        // подряд идущих ошибок до размыкания

	// OnStateChange вызывается при смене состояния CB (метрики, логи)
	OnStateChange func(name string, from, to gobreaker.State)
}

// ReliableClient оборачивает Inferencer: лимитер -> Circuit Breaker -> повторы с таймаутом на попытку.
type ReliableClient struct {
	next        Inferencer
	cb          *gobreaker.CircuitBreaker
	limiter     *rate.Limiter
	timeout     time.Duration
	maxAttempts uint
}

func NewReliableClient(next Inferencer, cfg ReliabilityConfig) *ReliableClient {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 5
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}
	failures := cfg.CBFailures
	if failures == 0 {
		failures = 5
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "inference-" + next.Model(),
		MaxRequests: cfg.CBMaxRequests,
		Interval:    cfg.CBInterval,
		Timeout:     cfg.CBTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// Отвергнутый ключ — проблема запроса, провайдер жив
		IsSuccessful: func(err error) bool {
			return err == nil || isCredentialError(err)
		},
		OnStateChange: cfg.OnStateChange,
	})

	return &ReliableClient{
		next:        next,
		cb:          cb,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		timeout:     cfg.Timeout,
		maxAttempts: cfg.MaxAttempts,
	}
}

func (w *ReliableClient) Model() string { return w.next.Model() }

// Available — false, пока CB разомкнут: звать провайдера бессмысленно.
func (w *ReliableClient) Available() bool {
	return w.cb.State() != gobreaker.StateOpen
}

func (w *ReliableClient) Generate(ctx context.Context, credential string, req Request) (string, error) {
	// 1. Rate Limiter
	if err := w.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit exceeded: %w", err)
	}

	// 2. Circuit Breaker
	res, err := w.cb.Execute(func() (interface{}, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(w.maxAttempts),
			retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
				// Провайдер сам сказал, сколько ждать
				var tErr *ThrottleError
				if errors.As(err, &tErr) {
					return tErr.RetryAfter
				}
				return retry.BackOffDelay(n, err, config)
			}),
		)

		var text string
		retryErr := r.Do(func() error {
			tCtx := ctx
			if w.timeout > 0 {
				var cancel context.CancelFunc
				tCtx, cancel = context.WithTimeout(ctx, w.timeout)
				defer cancel()
			}

			var callErr error
			text, callErr = w.next.Generate(tCtx, credential, req)
			if isCredentialError(callErr) {
				return retry.Unrecoverable(callErr)
			}
			return callErr
		})
		return text, retryErr
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}
