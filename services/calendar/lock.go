package calendar

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	lockPrefix = "cal:lock:"
	// The lease must outlive the longest sequence it guards: a freebusy
	// reverify and an event insert (one callTimeout each) plus the booking
	// record write, with headroom for scheduling stalls.
	lockTTL      = 2*callTimeout + 25*time.Second
	lockPollStep = 50 * time.Millisecond
	// renewInterval keeps the lease alive while the holder is still working,
	// so even a hold longer than lockTTL cannot let a second holder in.
	renewInterval = lockTTL / 3
)

// unlockScript deletes the key only if this holder still owns it.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// renewScript extends the lease only if this holder still owns it.
var renewScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker implements schedule.CalendarLocker with a SETNX lease per
// calendar.
type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) Acquire(ctx context.Context, calendarID string) (func(), error) {
	key := lockPrefix + calendarID
	token := uuid.New().String()

	for {
		ok, err := l.client.SetNX(ctx, key, token, lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire calendar lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("calendar lock wait aborted: %w", ctx.Err())
		case <-time.After(lockPollStep):
		}
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(renewInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				renewCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				_ = renewScript.Run(renewCtx, l.client, []string{key}, token, lockTTL.Milliseconds()).Err()
				cancel()
			}
		}
	}()

	var once sync.Once
	release := func() {
		once.Do(func() {
			close(done)
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = unlockScript.Run(releaseCtx, l.client, []string{key}, token).Err()
		})
	}
	return release, nil
}
