package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// reserveScript atomically admits a request when committed usage plus
// in-flight reservations stays under the limit. Running it as one script
// closes the race where two concurrent requests both read "0 used" and
// both proceed.
var reserveScript = goredis.NewScript(`
local inflight = tonumber(redis.call('GET', KEYS[1]) or '0')
local committed = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
if committed + inflight >= limit then
	return 0
end
redis.call('INCR', KEYS[1])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// releaseScript decrements the in-flight counter without going below
// zero.
var releaseScript = goredis.NewScript(`
local inflight = tonumber(redis.call('GET', KEYS[1]) or '0')
if inflight <= 0 then
	return 0
end
return redis.call('DECR', KEYS[1])
`)

// Reservations guards per-user admission slots for limits that must hold
// under concurrent requests.
type Reservations struct {
	client *Client
	ttl    time.Duration
}

// NewReservations creates a reservation guard. Reservations expire after
// ttl so a crashed request cannot hold a slot forever; zero ttl defaults
// to 30 minutes.
func NewReservations(client *Client, ttl time.Duration) *Reservations {
	if ttl == 0 {
		ttl = 30 * time.Minute
	}
	return &Reservations{client: client, ttl: ttl}
}

func reservationKey(userID string) string {
	return "entitlement:inflight:" + userID
}

// Reserve takes an admission slot for the user. committed is the durable
// usage count; limit is the plan's cap. Returns false when no slot is
// available.
func (r *Reservations) Reserve(ctx context.Context, userID string, committed, limit int) (bool, error) {
	res, err := reserveScript.Run(ctx, r.client.Unwrap(),
		[]string{reservationKey(userID)},
		committed, limit, r.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("reserve slot for user %s: %w", userID, err)
	}
	return res == 1, nil
}

// Release frees a previously reserved slot. Call it on every exit path
// once the request's usage is durably committed or abandoned.
func (r *Reservations) Release(ctx context.Context, userID string) error {
	if err := releaseScript.Run(ctx, r.client.Unwrap(), []string{reservationKey(userID)}).Err(); err != nil {
		return fmt.Errorf("release slot for user %s: %w", userID, err)
	}
	return nil
}
