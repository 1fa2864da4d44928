package cache

import (
	"context"
	"strings"
	"time"
)

// Separator joins key segments.
const Separator = ":"

// KeepTTL passed to Backend.Set overwrites a live key without touching its
// remaining lifetime.
const KeepTTL time.Duration = -1

// Backend is a key/value store for opaque payloads.
//
// Implementations must be safe for concurrent use. They report failures
// honestly; the fail-open policy lives in QueryCache and CounterStore, not here.
type Backend interface {
	// Get returns the stored payload and true, or false when the key is
	// absent or expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores val under key. A zero ttl stores without expiry. KeepTTL
	// only replaces the value of an existing live key and is a no-op when
	// the key is absent.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error

	// DeleteByPrefix removes every key starting with prefix and returns how
	// many were removed.
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)
}

var segmentEscaper = strings.NewReplacer("%", "%25", Separator, "%3A", "*", "%2A", "?", "%3F", "[", "%5B", "]", "%5D", "\\", "%5C")

// Key joins segments into a backend key. Segments are escaped so a segment
// can never smuggle in a separator or a glob metacharacter.
func Key(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = segmentEscaper.Replace(s)
	}
	return strings.Join(escaped, Separator)
}

// Prefix returns the key prefix covering every key whose leading segments
// equal segments. It ends with the separator, so Prefix("q", "p1") does not
// match keys under "p10".
func Prefix(segments ...string) string {
	return Key(segments...) + Separator
}
