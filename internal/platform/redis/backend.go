package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/phrazzld/tasklane-api/internal/cache"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultQueryTimeout = 2 * time.Second
	defaultScanCount    = 250
)

type options struct {
	prefix       string
	queryTimeout time.Duration
	scanCount    int64
}

// Option configures a Backend.
type Option func(*options)

// WithPrefix namespaces every key under prefix.
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithQueryTimeout bounds each Redis round trip.
func WithQueryTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.queryTimeout = d
		}
	}
}

// WithScanCount sets the COUNT hint used while scanning for prefix deletes.
func WithScanCount(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.scanCount = int64(n)
		}
	}
}

// Backend is a cache.Backend stored in Redis.
type Backend struct {
	client *goredis.Client
	opts   options
}

var _ cache.Backend = (*Backend)(nil)

// NewBackend returns a Backend using client. The caller owns the client
// lifecycle.
func NewBackend(client *goredis.Client, opts ...Option) *Backend {
	if client == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("redis client cannot be nil")
	}
	o := options{queryTimeout: defaultQueryTimeout, scanCount: defaultScanCount}
	for _, opt := range opts {
		opt(&o)
	}
	return &Backend{client: client, opts: o}
}

func (b *Backend) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, b.opts.queryTimeout)
}

func (b *Backend) prefixKey(key string) string {
	if b.opts.prefix == "" {
		return key
	}
	return b.opts.prefix + cache.Separator + key
}

// Get implements cache.Backend.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	qctx, cancel := b.queryCtx(ctx)
	defer cancel()

	data, err := b.client.Get(qctx, b.prefixKey(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return data, true, nil
}

// Set implements cache.Backend. A zero ttl stores the key without expiry.
func (b *Backend) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	qctx, cancel := b.queryCtx(ctx)
	defer cancel()

	// SET XX KEEPTTL never creates a key, so a refresh cannot resurrect an
	// expired entry without its TTL.
	if ttl == cache.KeepTTL {
		err := b.client.SetArgs(qctx, b.prefixKey(key), val, goredis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return fmt.Errorf("redis set keepttl: %w", err)
		}
		return nil
	}

	if ttl < 0 {
		ttl = 0
	}
	if err := b.client.Set(qctx, b.prefixKey(key), val, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// DeleteByPrefix implements cache.Backend. Keys written concurrently with the
// scan may survive; they still expire through their TTL.
func (b *Backend) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	match := escapeGlob(b.prefixKey(prefix)) + "*"

	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := b.scan(ctx, cursor, match)
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := b.unlink(ctx, keys)
			if err != nil {
				return deleted, err
			}
			deleted += n
		}
		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}

func (b *Backend) scan(ctx context.Context, cursor uint64, match string) ([]string, uint64, error) {
	qctx, cancel := b.queryCtx(ctx)
	defer cancel()

	keys, next, err := b.client.Scan(qctx, cursor, match, b.opts.scanCount).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("redis scan: %w", err)
	}
	return keys, next, nil
}

func (b *Backend) unlink(ctx context.Context, keys []string) (int, error) {
	qctx, cancel := b.queryCtx(ctx)
	defer cancel()

	n, err := b.client.Unlink(qctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis unlink: %w", err)
	}
	return int(n), nil
}

var globEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)

// escapeGlob quotes the characters Redis treats as MATCH metacharacters.
func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
