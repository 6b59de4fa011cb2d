// internal/targeting/selector.go
package targeting

import (
	"context"
	"fmt"
	"iter"

	"github.com/solatis/cuitarget/internal/ontology"
	"github.com/solatis/cuitarget/internal/types"
)

/*
 * Combinator over a filter set.
 *
 * Strategy semantics:
 *   - ALL: stages are chained, each consuming the previous stage's output,
 *     starting from Lookup.AllTargets(). Nothing is materialized.
 *   - ANY: every filter runs over a fresh AllTargets() and the union is
 *     emitted, each distinct target once. The seen-set is the only state
 *     that grows with output size.
 *   - No filters: every target.
 *
 * OnlyPrefNames is applied last and keeps targets whose name equals the
 * concept's preferred name; concepts without one are dropped.
 */

const (
	keyTargets = "targets"
	keyOptions = "options"

	// source targets pulled between cancellation checks
	pollEvery = 256
)

// Selector applies a filter set under FilterOptions.
type Selector struct {
	filters []Filter
	opts    FilterOptions
}

// NewSelector builds a Selector. An unspecified strategy is treated as ALL.
func NewSelector(filters []Filter, opts FilterOptions) *Selector {
	if opts.Strategy == StrategyUnspecified {
		opts.Strategy = StrategyAll
	}
	return &Selector{
		filters: append([]Filter(nil), filters...),
		opts:    opts,
	}
}

// Filters returns the configured filters.
func (s *Selector) Filters() []Filter {
	return append([]Filter(nil), s.filters...)
}

// Options returns the configured options.
func (s *Selector) Options() FilterOptions {
	return s.opts
}

// Targets lazily yields the selected targets.
func (s *Selector) Targets(l *ontology.Lookup) iter.Seq[types.TargetInfo] {
	return s.targets(l, l.AllTargets)
}

// TargetsContext is Targets that stops early once ctx is done. Every pass over
// the ontology polls ctx, so a filter that matches little still notices
// cancellation. Callers check ctx.Err() after ranging to tell a cut short
// sequence from a complete one.
func (s *Selector) TargetsContext(ctx context.Context, l *ontology.Lookup) iter.Seq[types.TargetInfo] {
	return s.targets(l, func() iter.Seq[types.TargetInfo] {
		return untilDone(ctx, l.AllTargets())
	})
}

func (s *Selector) targets(l *ontology.Lookup, source func() iter.Seq[types.TargetInfo]) iter.Seq[types.TargetInfo] {
	var seq iter.Seq[types.TargetInfo]
	switch {
	case len(s.filters) == 0:
		seq = source()
	case s.opts.Strategy == StrategyAny:
		seq = s.anyOf(l, source)
	default:
		seq = s.allOf(l, source)
	}
	if s.opts.OnlyPrefNames {
		seq = preferredOnly(l, seq)
	}
	return seq
}

func (s *Selector) allOf(l *ontology.Lookup, source func() iter.Seq[types.TargetInfo]) iter.Seq[types.TargetInfo] {
	seq := source()
	for _, f := range s.filters {
		seq = f.Apply(l, seq)
	}
	return seq
}

func (s *Selector) anyOf(l *ontology.Lookup, source func() iter.Seq[types.TargetInfo]) iter.Seq[types.TargetInfo] {
	return func(yield func(types.TargetInfo) bool) {
		seen := make(map[types.TargetInfo]struct{})
		for _, f := range s.filters {
			for ti := range f.Apply(l, source()) {
				if _, dup := seen[ti]; dup {
					continue
				}
				seen[ti] = struct{}{}
				if !yield(ti) {
					return
				}
			}
		}
	}
}

// untilDone passes in through until ctx is done, checking before the first
// element and then every pollEvery elements.
func untilDone(ctx context.Context, in iter.Seq[types.TargetInfo]) iter.Seq[types.TargetInfo] {
	return func(yield func(types.TargetInfo) bool) {
		if ctx.Err() != nil {
			return
		}
		n := 0
		for ti := range in {
			if n++; n%pollEvery == 0 && ctx.Err() != nil {
				return
			}
			if !yield(ti) {
				return
			}
		}
	}
}

func preferredOnly(l *ontology.Lookup, in iter.Seq[types.TargetInfo]) iter.Seq[types.TargetInfo] {
	return func(yield func(types.TargetInfo) bool) {
		for ti := range in {
			if pref, ok := l.PreferredName(ti.CUI); !ok || pref != ti.Name {
				continue
			}
			if !yield(ti) {
				return
			}
		}
	}
}

// ToDict returns {targets: {...}, options: {...}}.
func (s *Selector) ToDict() map[string]any {
	return map[string]any{
		keyTargets: ListToDict(s.filters),
		keyOptions: s.opts.ToDict(),
	}
}

// SelectorFromDict parses the ToDict shape. Both keys are optional.
func SelectorFromDict(input map[string]any) (*Selector, error) {
	var filters []Filter
	if raw, ok := lookupKey(input, keyTargets); ok && raw != nil {
		m, isMap := raw.(map[string]any)
		if !isMap {
			return nil, fmt.Errorf("%w: %s must be a mapping, got %T", types.ErrConfiguration, keyTargets, raw)
		}
		parsed, err := FromDict(m)
		if err != nil {
			return nil, err
		}
		filters = parsed
	}

	opts := DefaultOptions()
	if raw, ok := lookupKey(input, keyOptions); ok && raw != nil {
		m, isMap := raw.(map[string]any)
		if !isMap {
			return nil, fmt.Errorf("%w: %s must be a mapping, got %T", types.ErrConfiguration, keyOptions, raw)
		}
		parsed, err := OptionsFromDict(m)
		if err != nil {
			return nil, err
		}
		opts = parsed
	}

	return NewSelector(filters, opts), nil
}
