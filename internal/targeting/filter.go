// internal/targeting/filter.go
package targeting

import (
	"fmt"
	"iter"

	"github.com/solatis/cuitarget/internal/ontology"
	"github.com/solatis/cuitarget/internal/types"
)

/*
 * Filter variants.
 *
 * A Filter is one lazy stage: it pulls targets from its input sequence only
 * as far as needed to produce the next output. Two implementations, closed
 * by an unexported method:
 *
 *   - TypedFilter: TYPE_ID, CUI or NAME membership test against Values.
 *   - ChildFilter: CUI_AND_CHILDREN. Delegates the CUI match to an inner
 *     TypedFilter, then expands descendants up to Depth hops.
 *
 * TYPE_ID emits a target once per matching type category, so a concept
 * matching two requested TUIs appears twice downstream. Selector.Targets
 * under ANY deduplicates; ALL chains preserve the repeats.
 *
 * ChildFilter keeps, per accepted target, the deepest remaining budget seen
 * for each expanded CUI plus the set of CUIs already emitted. A concept is
 * emitted at most once per accepted target and only re-expanded when reached
 * with more remaining depth, which terminates on cyclic children tables.
 */

// Filter is a single targeting stage.
type Filter interface {
	// Kind is the filter's kind.
	Kind() FilterKind
	// Values are the filter's own match values; empty for ChildFilter.
	Values() []string
	// Apply lazily filters (and for ChildFilter expands) the input targets.
	Apply(l *ontology.Lookup, in iter.Seq[types.TargetInfo]) iter.Seq[types.TargetInfo]
	// ToDict returns the single-key config representation.
	ToDict() map[string]any

	sealed()
}

// TypedFilter matches targets by type category, CUI or name.
type TypedFilter struct {
	kind   FilterKind
	values []string
	set    ontology.Set
}

// NewTypedFilter validates values and builds a TypedFilter.
// CUI_AND_CHILDREN is rejected; use NewChildFilter.
func NewTypedFilter(kind FilterKind, values []string) (*TypedFilter, error) {
	switch kind {
	case KindTypeID, KindCUI, KindName:
	case KindCUIAndChildren:
		return nil, fmt.Errorf("%w: %s requires depth and cui, not a plain value list", types.ErrConfiguration, kind)
	default:
		return nil, fmt.Errorf("%w: unsupported filter kind %s", types.ErrConfiguration, kind)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: %s filter has no values", types.ErrConfiguration, kind)
	}
	if len(values) > types.MaxFilterValues {
		return nil, fmt.Errorf("%w: %w: %s has %d", types.ErrConfiguration, types.ErrTooManyValues, kind, len(values))
	}

	f := &TypedFilter{kind: kind, set: make(ontology.Set, len(values))}
	for _, v := range values {
		if _, dup := f.set[v]; dup {
			continue
		}
		f.set[v] = struct{}{}
		f.values = append(f.values, v)
	}
	return f, nil
}

func (f *TypedFilter) Kind() FilterKind { return f.kind }

// Values returns the distinct values in first-seen order.
func (f *TypedFilter) Values() []string {
	return append([]string(nil), f.values...)
}

func (f *TypedFilter) sealed() {}

// Apply passes through targets matching the filter, lazily.
func (f *TypedFilter) Apply(l *ontology.Lookup, in iter.Seq[types.TargetInfo]) iter.Seq[types.TargetInfo] {
	return func(yield func(types.TargetInfo) bool) {
		for ti := range in {
			for n := f.matches(l, ti); n > 0; n-- {
				if !yield(ti) {
					return
				}
			}
		}
	}
}

// matches returns how many times ti is emitted: 0 or 1 for CUI and NAME, one per
// matching type category for TYPE_ID.
func (f *TypedFilter) matches(l *ontology.Lookup, ti types.TargetInfo) int {
	switch f.kind {
	case KindCUI:
		if _, ok := f.set[ti.CUI]; ok {
			return 1
		}
	case KindName:
		if _, ok := f.set[ti.Name]; ok {
			return 1
		}
	case KindTypeID:
		n := 0
		for tid := range l.TypeIDs(ti.CUI) {
			if _, ok := f.set[tid]; ok {
				n++
			}
		}
		return n
	}
	return 0
}

// ToDict returns {KIND: [values]}.
func (f *TypedFilter) ToDict() map[string]any {
	return map[string]any{f.kind.String(): f.Values()}
}

// ChildFilter matches CUIs and their descendants up to Depth hops.
type ChildFilter struct {
	delegate *TypedFilter
	depth    int
}

// NewChildFilter wraps a CUI filter. Any other delegate is ErrConfiguration.
func NewChildFilter(delegate Filter, depth int) (*ChildFilter, error) {
	typed, ok := delegate.(*TypedFilter)
	if !ok || typed == nil {
		return nil, fmt.Errorf("%w: %s delegate must be a plain %s filter",
			types.ErrConfiguration, KindCUIAndChildren, KindCUI)
	}
	if typed.Kind() != KindCUI {
		return nil, fmt.Errorf("%w: %s delegate must be a %s filter, got %s",
			types.ErrConfiguration, KindCUIAndChildren, KindCUI, typed.Kind())
	}
	if depth < 1 || depth > types.MaxHierarchyDepth {
		return nil, fmt.Errorf("%w: %w: %d not in 1..%d",
			types.ErrConfiguration, types.ErrDepthOutOfRange, depth, types.MaxHierarchyDepth)
	}
	return &ChildFilter{delegate: typed, depth: depth}, nil
}

func (f *ChildFilter) Kind() FilterKind { return KindCUIAndChildren }

// Values is always empty; the match values live on the delegate.
func (f *ChildFilter) Values() []string { return nil }

// Delegate returns the inner CUI filter.
func (f *ChildFilter) Delegate() *TypedFilter { return f.delegate }

// Depth returns the inclusive expansion depth.
func (f *ChildFilter) Depth() int { return f.depth }

func (f *ChildFilter) sealed() {}

// Apply emits each target accepted by the delegate followed, depth-first, by the
// targets of its descendants. Descendants without names are skipped.
func (f *ChildFilter) Apply(l *ontology.Lookup, in iter.Seq[types.TargetInfo]) iter.Seq[types.TargetInfo] {
	return func(yield func(types.TargetInfo) bool) {
		for ti := range f.delegate.Apply(l, in) {
			if !yield(ti) {
				return
			}
			w := walk{
				lookup:  l,
				yield:   yield,
				emitted: ontology.NewSet(ti.CUI),
				budget:  map[string]int{ti.CUI: f.depth},
			}
			if !w.descend(ti.CUI, f.depth) {
				return
			}
		}
	}
}

// walk is the state of one descendant expansion.
type walk struct {
	lookup  *ontology.Lookup
	yield   func(types.TargetInfo) bool
	emitted ontology.Set
	budget  map[string]int
}

// descend emits the children of cui and recurses while remaining > 1.
// Returns false once the consumer stops.
func (w *walk) descend(cui string, remaining int) bool {
	for child := range w.lookup.Children(cui) {
		if _, done := w.emitted[child]; !done {
			w.emitted[child] = struct{}{}
			if !w.emit(child) {
				return false
			}
		}
		if remaining <= 1 {
			continue
		}
		if prev, seen := w.budget[child]; seen && prev >= remaining-1 {
			continue
		}
		w.budget[child] = remaining - 1
		if !w.descend(child, remaining-1) {
			return false
		}
	}
	return true
}

func (w *walk) emit(cui string) bool {
	targets, err := w.lookup.TargetsFor(cui)
	if err != nil {
		// child listed in the hierarchy but absent from the names table
		return true
	}
	for ti := range targets {
		if !w.yield(ti) {
			return false
		}
	}
	return true
}

// ToDict returns {CUI_AND_CHILDREN: {depth: d, cui: [values]}}.
func (f *ChildFilter) ToDict() map[string]any {
	return map[string]any{
		KindCUIAndChildren.String(): map[string]any{
			"depth": f.depth,
			"cui":   f.delegate.Values(),
		},
	}
}
