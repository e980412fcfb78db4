package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("farrier day lock not acquired")
)

// Locker serialises admissions per farrier and calendar date.
type Locker interface {
	WithDayLock(ctx context.Context, farrierID uuid.UUID, day time.Time, fn func(ctx context.Context) error) error
}

type redisDayLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDayLocker creates a locker that uses one Redis key per farrier and day
func NewRedisDayLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisDayLocker{
		client: client,
		ttl:    ttl,
	}
}

// DayLockKey is the Redis key guarding farrierID on the local date of day.
func DayLockKey(farrierID uuid.UUID, day time.Time) string {
	return fmt.Sprintf("lock:farrier:%s:day:%s", farrierID.String(), day.Format("2006-01-02"))
}

func (l *redisDayLocker) WithDayLock(ctx context.Context, farrierID uuid.UUID, day time.Time, fn func(ctx context.Context) error) error {
	key := DayLockKey(farrierID, day)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire day lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		// released on a fresh context so a cancelled request still frees the key
		relCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = l.release(relCtx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisDayLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release day lock: %w", err)
	}
	return nil
}
