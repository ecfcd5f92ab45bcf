package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLeaseHeld is returned by Acquire while another holder owns the lease.
var ErrLeaseHeld = errors.New("lease held by another owner")

// Deletes the key only if it still carries the caller's token, so an expired
// lease taken over by someone else is never released by its previous owner.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Leases hands out expiring, token-owned locks stored in Redis.
type Leases struct {
	client *redis.Client
	prefix string
}

func NewLeases(client *redis.Client, prefix string) *Leases {
	return &Leases{client: client, prefix: prefix}
}

// Lease is one acquired lock. Release it when done; the TTL frees it otherwise.
type Lease struct {
	client *redis.Client
	key    string
	token  string
}

func (l *Leases) Acquire(ctx context.Context, name string, ttl time.Duration) (*Lease, error) {
	key := l.prefix + name
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lease %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLeaseHeld
	}
	return &Lease{client: l.client, key: key, token: token}, nil
}

// Held reports whether any owner currently holds name.
func (l *Leases) Held(ctx context.Context, name string) (bool, error) {
	n, err := l.client.Exists(ctx, l.prefix+name).Result()
	if err != nil {
		return false, fmt.Errorf("check lease %s: %w", l.prefix+name, err)
	}
	return n > 0, nil
}

func (l *Lease) Key() string { return l.key }

func (l *Lease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("release lease %s: %w", l.key, err)
	}
	return nil
}

// Ping checks the connection, for readiness probes.
func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}
