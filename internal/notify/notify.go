package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/vehicle-health-pipeline/internal/infra"
)

// Kind — тип события по итогам compliance-проверки
type Kind string

const (
	KindDriverNotification Kind = "driver_notification"
	KindSecurityBlock      Kind = "security_block"
)

// Event — то, что уходит водителю (план действий) или в службу безопасности (блокировка).
type Event struct {
	Kind      Kind      `json:"kind"`
	RunID     string    `json:"run_id"`
	VehicleID string    `json:"vehicle_id"`
	Status    string    `json:"status"`
	Alerts    []string  `json:"alerts,omitempty"`
	ServiceID string    `json:"service_id,omitempty"`
	Slot      string    `json:"slot,omitempty"`
	At        time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// RedisPublisher публикует событие в общий канал типа и в канал машины.
type RedisPublisher struct {
	rdb *goredis.Client
}

func NewRedisPublisher(rdb *goredis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("notify: encode event: %w", err)
	}

	pipe := p.rdb.Pipeline()
	pipe.Publish(ctx, Channel(ev.Kind), data)
	pipe.Publish(ctx, infra.VehicleChannel(ev.VehicleID), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("notify: publish %s: %w", ev.Kind, err)
	}
	return nil
}

// Channel — общий канал для типа события
func Channel(kind Kind) string {
	if kind == KindSecurityBlock {
		return infra.RedisChanSecurityBlock
	}
	return infra.RedisChanDriverNotify
}

// LogPublisher используется, когда Redis не настроен: событие только логируется.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.Named("notify")}
}

func (p *LogPublisher) Publish(_ context.Context, ev Event) error {
	p.logger.Info("event dispatched",
		zap.String("kind", string(ev.Kind)),
		zap.String("run_id", ev.RunID),
		zap.String("vehicle_id", ev.VehicleID),
		zap.String("status", ev.Status),
		zap.Strings("alerts", ev.Alerts),
	)
	return nil
}
