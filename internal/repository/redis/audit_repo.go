package redis

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xela07ax/vehicle-health-pipeline/internal/audit"
	"github.com/xela07ax/vehicle-health-pipeline/internal/infra"
)

// AuditRepo хранит журнал списком JSON-записей; RPUSH сохраняет порядок записи.
type AuditRepo struct {
	rdb *goredis.Client
	key string
}

func NewAuditRepo(rdb *goredis.Client) *AuditRepo {
	return &AuditRepo{rdb: rdb, key: infra.RedisKeyAuditLog}
}

func (r *AuditRepo) WriteBatch(ctx context.Context, entries []audit.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	vals := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("redis: encode audit entry: %w", err)
		}
		vals = append(vals, data)
	}

	if err := r.rdb.RPush(ctx, r.key, vals...).Err(); err != nil {
		return fmt.Errorf("redis: write audit batch: %w", err)
	}
	return nil
}

// Recent возвращает последние limit записей, новые первыми. limit <= 0 — все записи.
func (r *AuditRepo) Recent(ctx context.Context, limit int) ([]audit.Entry, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}

	raw, err := r.rdb.LRange(ctx, r.key, start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: read audit: %w", err)
	}

	out := make([]audit.Entry, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var e audit.Entry
		if err := json.Unmarshal([]byte(raw[i]), &e); err != nil {
			return nil, fmt.Errorf("redis: decode audit entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *AuditRepo) Clear(ctx context.Context) error {
	if err := r.rdb.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis: clear audit: %w", err)
	}
	return nil
}
