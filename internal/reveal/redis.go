package reveal

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisGate keeps reveal progress in Redis so reveal state is shared
// across instances. Field semantics match MemoryGate.
type RedisGate struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisGate constructs a Redis-backed reveal gate.
func NewRedisGate(client *redis.Client) *RedisGate {
	return &RedisGate{client: client, now: time.Now}
}

func revealKey(userID, dealID uint64) string {
	return fmt.Sprintf("reveal:%d:%d", userID, dealID)
}

// Hold registers one continuous-hold tick.
func (g *RedisGate) Hold(ctx context.Context, userID, dealID uint64) (Progress, error) {
	key := revealKey(userID, dealID)
	fields, errGet := g.client.HGetAll(ctx, key).Result()
	if errGet != nil {
		return Progress{}, fmt.Errorf("reveal: read session: %w", errGet)
	}

	now := g.now()
	percent, _ := strconv.Atoi(fields["percent"])
	lastMillis, _ := strconv.ParseInt(fields["last_hold_ms"], 10, 64)
	revealed := fields["revealed"] == "1"

	if revealed {
		return Progress{Percent: 100, Revealed: true}, nil
	}

	step := stepPercent()
	last := time.UnixMilli(lastMillis)
	if lastMillis > 0 && now.Sub(last) <= holdTickTolerance {
		percent += step
	} else {
		percent = step
	}
	if percent >= 100 {
		percent = 100
		revealed = true
	}

	revealedFlag := "0"
	if revealed {
		revealedFlag = "1"
	}
	pipe := g.client.TxPipeline()
	pipe.HSet(ctx, key, "percent", percent, "last_hold_ms", now.UnixMilli(), "revealed", revealedFlag)
	pipe.Expire(ctx, key, revealedTTL)
	if _, errExec := pipe.Exec(ctx); errExec != nil {
		return Progress{}, fmt.Errorf("reveal: write session: %w", errExec)
	}
	return Progress{Percent: percent, Revealed: revealed}, nil
}

// Release ends the hold; partial progress resets to zero.
func (g *RedisGate) Release(ctx context.Context, userID, dealID uint64) error {
	key := revealKey(userID, dealID)
	revealed, errGet := g.client.HGet(ctx, key, "revealed").Result()
	if errGet == redis.Nil {
		return nil
	}
	if errGet != nil {
		return fmt.Errorf("reveal: read session: %w", errGet)
	}
	if revealed == "1" {
		return nil
	}
	if errDel := g.client.Del(ctx, key).Err(); errDel != nil {
		return fmt.Errorf("reveal: reset session: %w", errDel)
	}
	return nil
}

// Revealed reports whether the user has fully revealed the deal.
func (g *RedisGate) Revealed(ctx context.Context, userID, dealID uint64) (bool, error) {
	revealed, errGet := g.client.HGet(ctx, revealKey(userID, dealID), "revealed").Result()
	if errGet == redis.Nil {
		return false, nil
	}
	if errGet != nil {
		return false, fmt.Errorf("reveal: read session: %w", errGet)
	}
	return revealed == "1", nil
}
