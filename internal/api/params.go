package api

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/phrazzld/tasklane-api/internal/cache"
	"github.com/phrazzld/tasklane-api/internal/domain"
	"github.com/phrazzld/tasklane-api/internal/store"
)

// Query parameter names understood by the task routes.
const (
	paramProjectID   = cache.ParamProjectID
	paramProjectIDs  = "projectIds"
	paramAssigneeIDs = "assigneeIds"
	paramStatusIDs   = "statusIds"
	paramDueDate     = cache.ParamDueDate
	paramDone        = "done"
	paramTerm        = "term"
	paramTake        = "take"
	paramSkip        = "skip"
	paramCounter     = "counter"
)

// listParams are always treated as sets, even with a single value.
var listParams = map[string]bool{
	paramProjectIDs:  true,
	paramAssigneeIDs: true,
	paramStatusIDs:   true,
}

const dateOnlyLayout = "2006-01-02"

// taskQueryParams is a task query parsed from a URL. Params keeps every
// received key for cache admission and fingerprinting; Filter is the subset
// the task store understands.
type taskQueryParams struct {
	Params  cache.Params
	Filter  store.TaskFilter
	Counter bool
}

// normalizeQuery folds "key[]" and "key[n]" into "key", keeping values in
// index order, and drops empty-named keys.
func normalizeQuery(values url.Values) map[string][]string {
	type indexedKey struct {
		raw   string
		base  string
		index int
	}

	keys := make([]indexedKey, 0, len(values))
	for raw := range values {
		base, index := splitIndexedKey(raw)
		if base == "" {
			continue
		}
		keys = append(keys, indexedKey{raw: raw, base: base, index: index})
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].base != keys[j].base {
			return keys[i].base < keys[j].base
		}
		if keys[i].index != keys[j].index {
			return keys[i].index < keys[j].index
		}
		return keys[i].raw < keys[j].raw
	})

	out := make(map[string][]string, len(keys))
	for _, k := range keys {
		out[k.base] = append(out[k.base], values[k.raw]...)
	}
	return out
}

// splitIndexedKey splits "key[3]" into ("key", 3). Plain keys and "key[]"
// get index -1.
func splitIndexedKey(raw string) (string, int) {
	open := strings.IndexByte(raw, '[')
	if open < 0 || !strings.HasSuffix(raw, "]") {
		return raw, -1
	}
	index, err := strconv.Atoi(raw[open+1 : len(raw)-1])
	if err != nil {
		index = -1
	}
	return raw[:open], index
}

// parseTaskQuery normalizes values into cache params and a store filter.
func parseTaskQuery(values url.Values) (*taskQueryParams, error) {
	q := &taskQueryParams{Params: cache.Params{}}

	for key, vals := range normalizeQuery(values) {
		switch key {
		case paramDueDate:
			from, to, err := parseDueDate(vals)
			if err != nil {
				return nil, err
			}
			q.Filter.DueDate = store.DateRange{From: from, To: to}
			q.Params[key] = cache.Tuple{timeOrNil(from), timeOrNil(to)}
			continue
		case paramCounter:
			counter, err := parseFlag(key, vals)
			if err != nil {
				return nil, err
			}
			q.Counter = counter
		case paramProjectID:
			if len(vals) > 1 {
				return nil, domain.NewValidationError(key, "must be a single value", domain.ErrInvalidFormat)
			}
			q.Filter.ProjectID = strings.TrimSpace(lastValue(vals))
		case paramProjectIDs:
			q.Filter.ProjectIDs = splitList(vals)
		case paramAssigneeIDs:
			q.Filter.AssigneeIDs = splitList(vals)
		case paramStatusIDs:
			q.Filter.StatusIDs = splitList(vals)
		case paramDone:
			done, err := parseDone(vals)
			if err != nil {
				return nil, err
			}
			q.Filter.Done = done
		case paramTerm:
			q.Filter.Term = strings.TrimSpace(lastValue(vals))
		case paramTake:
			n, err := parseNonNegative(key, vals)
			if err != nil {
				return nil, err
			}
			q.Filter.Take = n
		case paramSkip:
			n, err := parseNonNegative(key, vals)
			if err != nil {
				return nil, err
			}
			q.Filter.Skip = n
		}

		switch {
		case listParams[key]:
			q.Params[key] = splitList(vals)
		case len(vals) == 1:
			q.Params[key] = vals[0]
		default:
			q.Params[key] = append([]string(nil), vals...)
		}
	}

	return q, nil
}

// parseDueDate accepts "from,to" in one value or from and to as two values.
// An empty bound is open.
func parseDueDate(vals []string) (*time.Time, *time.Time, error) {
	var fromRaw, toRaw string
	switch len(vals) {
	case 1:
		fromRaw, toRaw, _ = strings.Cut(vals[0], ",")
	case 2:
		fromRaw, toRaw = vals[0], vals[1]
	default:
		return nil, nil, domain.NewValidationError(paramDueDate, "must have at most two bounds", domain.ErrInvalidFormat)
	}

	from, err := parseDate(fromRaw, false)
	if err != nil {
		return nil, nil, err
	}
	to, err := parseDate(toRaw, true)
	if err != nil {
		return nil, nil, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, domain.NewValidationError(paramDueDate, "ends before it starts", domain.ErrValidation)
	}
	return from, to, nil
}

// parseDate parses an RFC 3339 timestamp or a calendar date. A calendar date
// used as an upper bound covers the whole day.
func parseDate(raw string, upper bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "", "null", "undefined":
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(dateOnlyLayout, raw)
	if err != nil {
		return nil, domain.NewValidationError(paramDueDate, "must be an RFC 3339 timestamp or YYYY-MM-DD date", domain.ErrInvalidFormat)
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func parseFlag(key string, vals []string) (bool, error) {
	raw := strings.TrimSpace(lastValue(vals))
	if raw == "" {
		return true, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, domain.NewValidationError(key, "must be a boolean", domain.ErrInvalidFormat)
	}
	return b, nil
}

func parseDone(vals []string) (store.DoneFilter, error) {
	switch strings.ToLower(strings.TrimSpace(lastValue(vals))) {
	case "":
		return store.DoneAny, nil
	case "yes", "true", "1":
		return store.DoneYes, nil
	case "no", "false", "0":
		return store.DoneNo, nil
	default:
		return store.DoneAny, domain.NewValidationError(paramDone, "must be yes or no", domain.ErrInvalidFormat)
	}
}

func parseNonNegative(key string, vals []string) (int, error) {
	raw := strings.TrimSpace(lastValue(vals))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.NewValidationError(key, "must be a non-negative integer", domain.ErrInvalidFormat)
	}
	return n, nil
}

// splitList flattens repeated and comma-separated values, dropping blanks.
func splitList(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func lastValue(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return vals[len(vals)-1]
}
