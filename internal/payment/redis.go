package payment

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/asset-marketplace/internal/domain"
)

const (
	balanceKeyPrefix = "payment:balance:"
	rejectingKey     = "payment:rejecting"
)

// transferScript runs the check and both updates atomically inside Redis.
// Returns 1 on success, -1 when the recipient rejects, -2 on low balance.
var transferScript = redis.NewScript(`
if redis.call("SISMEMBER", KEYS[3], ARGV[2]) == 1 then
  return -1
end
local amount = tonumber(ARGV[1])
local balance = tonumber(redis.call("GET", KEYS[1]) or "0")
if balance < amount then
  return -2
end
if KEYS[1] ~= KEYS[2] then
  redis.call("DECRBY", KEYS[1], amount)
  redis.call("INCRBY", KEYS[2], amount)
end
return 1
`)

// RedisLedger keeps balances in Redis so several service instances share them.
type RedisLedger struct {
	client *redis.Client
}

// NewRedisLedger wraps client.
func NewRedisLedger(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client}
}

func balanceKey(identity domain.Identity) string {
	return balanceKeyPrefix + string(identity)
}

// Transfer debits from and credits to.
func (r *RedisLedger) Transfer(ctx context.Context, from, to domain.Identity, amount uint64) error {
	if amount > math.MaxInt64 {
		return ErrAmountTooLarge
	}
	res, err := transferScript.Run(ctx, r.client,
		[]string{balanceKey(from), balanceKey(to), rejectingKey},
		int64(amount), string(to),
	).Int()
	if err != nil {
		return fmt.Errorf("redis transfer: %w", err)
	}
	switch res {
	case 1:
		return nil
	case -1:
		return fmt.Errorf("transfer to %s: %w", to, ErrRecipientRejected)
	case -2:
		return fmt.Errorf("transfer %d from %s: %w", amount, from, ErrInsufficientBalance)
	default:
		return fmt.Errorf("redis transfer: unexpected result %d", res)
	}
}

// Balance returns the balance of identity.
func (r *RedisLedger) Balance(ctx context.Context, identity domain.Identity) (uint64, error) {
	v, err := r.client.Get(ctx, balanceKey(identity)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("negative balance for %s", identity)
	}
	return uint64(v), nil
}

// Credit adds amount to identity.
func (r *RedisLedger) Credit(ctx context.Context, identity domain.Identity, amount uint64) error {
	if amount > math.MaxInt64 {
		return ErrAmountTooLarge
	}
	return r.client.IncrBy(ctx, balanceKey(identity), int64(amount)).Err()
}

// RejectTransfersTo makes transfers to identity fail.
func (r *RedisLedger) RejectTransfersTo(ctx context.Context, identity domain.Identity) error {
	return r.client.SAdd(ctx, rejectingKey, string(identity)).Err()
}
