package backend

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisURL    = "redis://localhost:6379/0"
	defaultRedisPrefix = "chatkeep"
	defaultLockTTL     = 30 * time.Second
	scanBatch          = 100
)

// RedisOptions configures the redis backend.
type RedisOptions struct {
	URL     string        `mapstructure:"url"`
	Prefix  string        `mapstructure:"prefix"`
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

// Redis stores each record under <prefix>:session:<key>. Session locks live
// under <prefix>:lock:<key> and expire after LockTTL so a crashed writer
// cannot wedge a session.
type Redis struct {
	client  *redis.Client
	prefix  string
	lockTTL time.Duration
}

var (
	_ Backend = (*Redis)(nil)
	_ Locker  = (*Redis)(nil)
)

// Only the holder of the token may release the lock.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	if opts.URL == "" {
		opts.URL = defaultRedisURL
	}
	if opts.Prefix == "" {
		opts.Prefix = defaultRedisPrefix
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaultLockTTL
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Redis{client: client, prefix: opts.Prefix, lockTTL: opts.LockTTL}, nil
}

func (r *Redis) recordKey(key string) string {
	return r.prefix + ":session:" + key
}

func (r *Redis) lockKey(key string) string {
	return r.prefix + ":lock:" + key
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	data, err := r.client.Get(ctx, r.recordKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

func (r *Redis) Put(ctx context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.recordKey(key), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}
	n, err := r.client.Del(ctx, r.recordKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis del %s: %w", key, err)
	}
	return n > 0, nil
}

func (r *Redis) Keys(ctx context.Context) ([]string, error) {
	prefix := r.recordKey("")
	iter := r.client.Scan(ctx, 0, prefix+"*", scanBatch).Iterator()

	var keys []string
	for iter.Next(ctx) {
		key := strings.TrimPrefix(iter.Val(), prefix)
		if ValidateKey(key) != nil {
			continue
		}
		keys = append(keys, key)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}

	// SCAN may return a key more than once.
	slices.Sort(keys)
	return slices.Compact(keys), nil
}

// Lock spins on SET NX until it owns the session's lock key.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, lockWait)
		defer cancel()
	}

	lockKey := r.lockKey(key)
	token := uuid.NewString()
	ticker := time.NewTicker(lockRetryDelay)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, lockKey, token, r.lockTTL).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			return func() {
				_ = unlockScript.Run(context.Background(), r.client, []string{lockKey}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		case <-ticker.C:
		}
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}
