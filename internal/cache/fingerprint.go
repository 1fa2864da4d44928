package cache

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Params is a query-parameter mapping as received from a caller.
//
// Values may be nil, strings, bools, integers, time.Time, fmt.Stringer,
// []string or []any (both treated as unordered sets), or Tuple (ordered).
type Params map[string]any

// Tuple is an ordered sequence whose positions carry meaning, such as a
// (from, to) date range. Unlike slices, tuples are never reordered when
// fingerprinted.
type Tuple []any

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Canonical renders params as a deterministic string independent of map
// iteration order and of element order within set-valued parameters.
func Canonical(params Params) string {
	var b strings.Builder
	for i, k := range params.Keys() {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(strconv.Quote(k))
		b.WriteByte('=')
		b.WriteString(renderValue(params[k]))
	}
	return b.String()
}

// Fingerprint returns a short stable digest of Canonical(params).
func Fingerprint(params Params) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(Canonical(params)))
}

func renderValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(val)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if val == nil {
			return "null"
		}
		return val.UTC().Format(time.RFC3339Nano)
	case Tuple:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = renderValue(e)
		}
		return "(" + strings.Join(parts, ",") + ")"
	case []string:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = strconv.Quote(e)
		}
		return renderSet(parts)
	case []any:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = renderValue(e)
		}
		return renderSet(parts)
	case fmt.Stringer:
		return strconv.Quote(val.String())
	default:
		// Keep unexpected values distinct from every case above.
		return fmt.Sprintf("%T:%v", val, val)
	}
}

func renderSet(parts []string) string {
	sort.Strings(parts)
	return "[" + strings.Join(parts, ",") + "]"
}
