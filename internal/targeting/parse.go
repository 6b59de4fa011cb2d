// internal/targeting/parse.go
package targeting

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/solatis/cuitarget/internal/types"
)

/*
 * Filter construction from raw config values and serialization back.
 *
 * Input shape (one entry per filter, usually decoded from YAML/JSON):
 *
 *   {"<kind>": "<value>" | ["<value>", ...]
 *              | {"depth": <int>, "cui": "<value>" | ["<value>", ...]}}
 *
 * Mapping values are only legal for CUI_AND_CHILDREN; that kind in turn
 * requires a mapping. Decoders disagree on number types (YAML int, JSON
 * float64, env string), so depth accepts all three when integral.
 *
 * All failures wrap types.ErrConfiguration and happen before any
 * evaluation, so a Selector built from config either exists fully or not.
 */

const (
	keyDepth = "depth"
	keyCUI   = "cui"
)

// FromInput builds one filter from a kind name and its raw value.
func FromInput(kindName string, raw any) (Filter, error) {
	kind, err := MatchKind(kindName)
	if err != nil {
		return nil, err
	}

	if m, ok := raw.(map[string]any); ok {
		if kind != KindCUIAndChildren {
			return nil, fmt.Errorf("%w: misconfigured %s, expected a value or a list of values for this type of filter",
				types.ErrConfiguration, kindName)
		}
		return childFromMap(m)
	}

	values, err := stringValues(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kindName, err)
	}
	return NewTypedFilter(kind, values)
}

// childFromMap parses {depth, cui} into a ChildFilter.
func childFromMap(m map[string]any) (*ChildFilter, error) {
	rawDepth, ok := lookupKey(m, keyDepth)
	if !ok {
		return nil, fmt.Errorf("%w: %s requires %q", types.ErrConfiguration, KindCUIAndChildren, keyDepth)
	}
	depth, err := intValue(rawDepth)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", KindCUIAndChildren, keyDepth, err)
	}

	rawCUIs, ok := lookupKey(m, keyCUI)
	if !ok {
		return nil, fmt.Errorf("%w: %s requires %q", types.ErrConfiguration, KindCUIAndChildren, keyCUI)
	}
	if _, nested := rawCUIs.(map[string]any); nested {
		return nil, fmt.Errorf("%w: %s.%s must be a value or a list of values", types.ErrConfiguration, KindCUIAndChildren, keyCUI)
	}
	delegate, err := FromInput(KindCUI.String(), rawCUIs)
	if err != nil {
		return nil, err
	}
	return NewChildFilter(delegate, depth)
}

// lookupKey finds key case-insensitively; viper lower-cases keys, hand-written
// JSON may not.
func lookupKey(m map[string]any, key string) (any, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(strings.TrimSpace(k), key) {
			return v, true
		}
	}
	return nil, false
}

// stringValues accepts a string, []string or []any of strings.
func stringValues(raw any) ([]string, error) {
	switch v := raw.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for i, elem := range v {
			s, ok := elem.(string)
			if !ok {
				return nil, fmt.Errorf("%w: value %d is %T, want string", types.ErrConfiguration, i, elem)
			}
			out = append(out, s)
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("%w: missing value", types.ErrConfiguration)
	default:
		return nil, fmt.Errorf("%w: unsupported value type %T", types.ErrConfiguration, raw)
	}
}

// intValue accepts int kinds, integral float64 and numeric strings.
func intValue(raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint64:
		if v > math.MaxInt32 {
			return 0, fmt.Errorf("%w: %d too large", types.ErrConfiguration, v)
		}
		return int(v), nil
	case float64:
		if v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
			return 0, fmt.Errorf("%w: %v is not an integer", types.ErrConfiguration, v)
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not an integer", types.ErrConfiguration, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: unsupported integer type %T", types.ErrConfiguration, raw)
	}
}

// FromDict builds one filter per top-level key. Keys are processed in sorted order
// so the result and the first reported error are deterministic.
func FromDict(input map[string]any) ([]Filter, error) {
	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	filters := make([]Filter, 0, len(keys))
	for _, k := range keys {
		f, err := FromInput(k, input[k])
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, nil
}

// ListToDicts returns each filter's single-key dict.
func ListToDicts(filters []Filter) []map[string]any {
	out := make([]map[string]any, 0, len(filters))
	for _, f := range filters {
		out = append(out, f.ToDict())
	}
	return out
}

// ListToDict merges every filter's dict. Two filters of the same kind collide and
// the later one wins.
func ListToDict(filters []Filter) map[string]any {
	out := make(map[string]any, len(filters))
	for _, d := range ListToDicts(filters) {
		for k, v := range d {
			out[k] = v
		}
	}
	return out
}
