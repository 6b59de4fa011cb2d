package targeting

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/solatis/cuitarget/internal/types"
)

const (
	keyStrategy     = "strategy"
	keyPrefNameOnly = "prefname-only"
)

// FilterOptions carries the combinator policy for a filter set.
type FilterOptions struct {
	Strategy      FilterStrategy
	OnlyPrefNames bool
}

// DefaultOptions returns ALL without the preferred-name restriction.
func DefaultOptions() FilterOptions {
	return FilterOptions{Strategy: StrategyAll}
}

// OptionsFromDict parses {strategy, prefname-only}. Both keys are optional.
// prefname-only is true only for a case-insensitive "true" (or a decoded bool).
func OptionsFromDict(section map[string]any) (FilterOptions, error) {
	opts := DefaultOptions()

	if raw, ok := lookupKey(section, keyStrategy); ok {
		name, isString := raw.(string)
		if !isString {
			return FilterOptions{}, fmt.Errorf("%w: %s must be a string, got %T", types.ErrConfiguration, keyStrategy, raw)
		}
		strategy, err := MatchStrategy(name)
		if err != nil {
			return FilterOptions{}, err
		}
		opts.Strategy = strategy
	}

	if raw, ok := lookupKey(section, keyPrefNameOnly); ok {
		switch v := raw.(type) {
		case string:
			opts.OnlyPrefNames = strings.EqualFold(strings.TrimSpace(v), "true")
		case bool:
			opts.OnlyPrefNames = v
		default:
			return FilterOptions{}, fmt.Errorf("%w: %s must be \"true\" or \"false\", got %T", types.ErrConfiguration, keyPrefNameOnly, raw)
		}
	}

	return opts, nil
}

// ToDict returns {strategy: ALL|ANY, prefname-only: "true"|"false"}.
func (o FilterOptions) ToDict() map[string]any {
	strategy := o.Strategy
	if strategy == StrategyUnspecified {
		strategy = StrategyAll
	}
	return map[string]any{
		keyStrategy:     strategy.String(),
		keyPrefNameOnly: strconv.FormatBool(o.OnlyPrefNames),
	}
}
