// cache — denylist access-токенов в Redis.
//
// Access-токен сам по себе не отзывается; после logout идентификатор
// его сессии (jti) кладётся в Redis на остаток времени жизни access-токена,
// и Access Guard отклоняет такие токены.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "edubloom:deny:"

// Denylist хранит отозванные идентификаторы сессий с TTL.
type Denylist struct {
	rdb    *redis.Client
	prefix string
}

// NewDenylist создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "edubloom:deny:".
func NewDenylist(ctx context.Context, redisURL, prefix string) (*Denylist, error) {
	const op = "cache.NewDenylist"

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return newDenylist(rdb, prefix), nil
}

func newDenylist(rdb *redis.Client, prefix string) *Denylist {
	if prefix == "" {
		prefix = defaultPrefix
	}

	return &Denylist{rdb: rdb, prefix: prefix}
}

func (d *Denylist) key(sessionID uuid.UUID) string { return d.prefix + sessionID.String() }

// Deny помечает сессию отозванной на ttl. Неположительный ttl — no-op.
func (d *Denylist) Deny(ctx context.Context, sessionID uuid.UUID, ttl time.Duration) error {
	const op = "cache.Denylist.Deny"

	if ttl <= 0 {
		return nil
	}

	if err := d.rdb.Set(ctx, d.key(sessionID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// IsDenied сообщает, отозвана ли сессия.
func (d *Denylist) IsDenied(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	const op = "cache.Denylist.IsDenied"

	n, err := d.rdb.Exists(ctx, d.key(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return n > 0, nil
}

// Ping проверяет доступность Redis.
func (d *Denylist) Ping(ctx context.Context) error {
	return d.rdb.Ping(ctx).Err()
}

// Close закрывает клиент Redis.
func (d *Denylist) Close() error { return d.rdb.Close() }
