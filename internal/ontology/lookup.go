// Package ontology provides the read-only concept lookup used by the targeting engine.
package ontology

import (
	"fmt"
	"iter"

	"github.com/rs/zerolog"
	"github.com/solatis/cuitarget/internal/types"
)

/*
 * Ontology lookup over identifier-keyed tables.
 *
 * Decouples targeting from whatever produced the tables (SQL store, RRF
 * files, test fixtures). Four set-valued mappings plus preferred names:
 *   - Names:          CUI  -> names
 *   - CUIsByName:     name -> CUIs
 *   - TypeIDs:        CUI  -> type categories (TUIs)
 *   - Children:       CUI  -> child CUIs (nil when the source has no hierarchy)
 *   - PreferredNames: CUI  -> preferred name
 *
 * Immutability: New never writes to the caller's maps. Missing Children
 * entries are filled in a private outer map that shares the inner sets.
 *
 * Hierarchy queries are depth-bounded and carry a per-call record of the
 * deepest remaining budget seen per CUI, so cyclic tables terminate while
 * acyclic tables give the same answers as an unguarded recursion.
 */

// Set is a string set.
type Set = map[string]struct{}

// NewSet builds a Set from values.
func NewSet(values ...string) Set {
	s := make(Set, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// Tables is the raw ontology content a source hands to New.
type Tables struct {
	Names          map[string]Set
	CUIsByName     map[string]Set
	TypeIDs        map[string]Set
	Children       map[string]Set
	PreferredNames map[string]string
}

// Lookup is an immutable view over Tables, safe for concurrent readers.
type Lookup struct {
	names      map[string]Set
	cuisByName map[string]Set
	typeIDs    map[string]Set
	children   map[string]Set
	prefNames  map[string]string
	hierarchy  bool
}

// New builds a Lookup. A nil Children table is degraded mode: a warning is
// logged and every concept gets an empty child set.
func New(t Tables, log zerolog.Logger) *Lookup {
	children := make(map[string]Set, len(t.Names))
	for cui, kids := range t.Children {
		children[cui] = kids
	}
	for cui := range t.Names {
		if _, ok := children[cui]; !ok {
			children[cui] = Set{}
		}
	}

	if t.Children == nil {
		log.Warn().
			Int("concepts", len(t.Names)).
			Msg("no parent to child information, hierarchy filters will match no descendants")
	}

	return &Lookup{
		names:      orEmpty(t.Names),
		cuisByName: orEmpty(t.CUIsByName),
		typeIDs:    orEmpty(t.TypeIDs),
		children:   children,
		prefNames:  t.PreferredNames,
		hierarchy:  t.Children != nil,
	}
}

func orEmpty(m map[string]Set) map[string]Set {
	if m == nil {
		return map[string]Set{}
	}
	return m
}

// Len returns the number of concepts with names.
func (l *Lookup) Len() int {
	return len(l.names)
}

// HasHierarchy reports whether the source supplied a children table.
func (l *Lookup) HasHierarchy() bool {
	return l.hierarchy
}

// TargetsFor yields one target per name registered for cui.
// Returns ErrNotFound if cui has no names entry.
func (l *Lookup) TargetsFor(cui string) (iter.Seq[types.TargetInfo], error) {
	names, ok := l.names[cui]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, cui)
	}
	return func(yield func(types.TargetInfo) bool) {
		for name := range names {
			if !yield(types.TargetInfo{CUI: cui, Name: name}) {
				return
			}
		}
	}, nil
}

// AllTargets yields every (CUI, name) pair. Order is unspecified; the sequence is
// restartable.
func (l *Lookup) AllTargets() iter.Seq[types.TargetInfo] {
	return func(yield func(types.TargetInfo) bool) {
		for cui, names := range l.names {
			for name := range names {
				if !yield(types.TargetInfo{CUI: cui, Name: name}) {
					return
				}
			}
		}
	}
}

// TypeIDs yields the type categories of cui; nothing if it has none.
func (l *Lookup) TypeIDs(cui string) iter.Seq[string] {
	return setSeq(l.typeIDs[cui])
}

// Children yields the direct children of cui; nothing if it has none.
func (l *Lookup) Children(cui string) iter.Seq[string] {
	return setSeq(l.children[cui])
}

// CUIsForName yields the concepts registered under name.
func (l *Lookup) CUIsForName(name string) iter.Seq[string] {
	return setSeq(l.cuisByName[name])
}

// PreferredName returns the preferred name of cui if the source supplied one.
func (l *Lookup) PreferredName(cui string) (string, bool) {
	name, ok := l.prefNames[cui]
	return name, ok
}

func setSeq(s Set) iter.Seq[string] {
	return func(yield func(string) bool) {
		for v := range s {
			if !yield(v) {
				return
			}
		}
	}
}

// HasChildOf reports whether any descendant of cui within depth hops is in found.
// depth <= 1 checks direct children only. Returns false when cui has no children entry.
func (l *Lookup) HasChildOf(found Set, cui string, depth int) bool {
	return l.hasChildOf(found, cui, depth, make(map[string]int))
}

// hasChildOf recurses one level per call. budget records the deepest remaining
// depth already explored below a CUI; a shallower or equal revisit cannot find
// anything new and is cut, which bounds recursion on cycles.
func (l *Lookup) hasChildOf(found Set, cui string, depth int, budget map[string]int) bool {
	children, ok := l.children[cui]
	if !ok {
		return false
	}
	if prev, seen := budget[cui]; seen && prev >= depth {
		return false
	}
	budget[cui] = depth

	for child := range children {
		if _, hit := found[child]; hit {
			return true
		}
	}
	if depth <= 1 {
		return false
	}
	for child := range children {
		if l.hasChildOf(found, child, depth-1, budget) {
			return true
		}
	}
	return false
}

// HasParentOf reports whether any CUI in found has cui as a descendant within depth
// hops, i.e. found contains an ancestor of cui at distance <= depth.
func (l *Lookup) HasParentOf(found Set, cui string, depth int) bool {
	target := NewSet(cui)
	for candidate := range found {
		if l.HasChildOf(target, candidate, depth) {
			return true
		}
	}
	return false
}
