// internal/targeting/kinds.go
package targeting

import (
	"fmt"
	"strings"

	"github.com/solatis/cuitarget/internal/types"
)

/*
 * Closed vocabularies for filter configuration.
 *
 * FilterKind selects what a filter matches on, FilterStrategy how several
 * filters combine. Both are matched from free-form config strings through a
 * normalized lookup table built once at package init:
 *
 *   "cui_and_children", "Cui And Children", "cui-and-children"
 *       -> CUI_AND_CHILDREN
 *
 * Normalization trims, upper-cases and folds runs of spaces and hyphens to a
 * single underscore. No match is ErrConfiguration.
 */

// FilterKind is the attribute a filter matches on.
type FilterKind int

const (
	KindUnspecified FilterKind = iota
	KindTypeID
	KindCUI
	KindName
	KindCUIAndChildren
)

var kindNames = map[FilterKind]string{
	KindTypeID:         "TYPE_ID",
	KindCUI:            "CUI",
	KindName:           "NAME",
	KindCUIAndChildren: "CUI_AND_CHILDREN",
}

// String returns the canonical config name, e.g. CUI_AND_CHILDREN.
func (k FilterKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("FilterKind(%d)", int(k))
}

// FilterStrategy governs how multiple filters combine.
type FilterStrategy int

const (
	StrategyUnspecified FilterStrategy = iota
	// StrategyAll requires every filter to accept a target.
	StrategyAll
	// StrategyAny requires at least one filter to accept a target.
	StrategyAny
)

var strategyNames = map[FilterStrategy]string{
	StrategyAll: "ALL",
	StrategyAny: "ANY",
}

// String returns the canonical config name, ALL or ANY.
func (s FilterStrategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("FilterStrategy(%d)", int(s))
}

var (
	kindsByName      = invert(kindNames)
	strategiesByName = invert(strategyNames)
)

func invert[E comparable](names map[E]string) map[string]E {
	out := make(map[string]E, len(names))
	for e, name := range names {
		out[normalizeName(name)] = e
	}
	return out
}

// normalizeName folds case and separators so loosely written names compare equal.
func normalizeName(name string) string {
	fields := strings.FieldsFunc(strings.ToUpper(name), func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '\t'
	})
	return strings.Join(fields, "_")
}

// MatchKind resolves a loosely written filter kind name.
func MatchKind(name string) (FilterKind, error) {
	if kind, ok := kindsByName[normalizeName(name)]; ok {
		return kind, nil
	}
	return KindUnspecified, fmt.Errorf("%w: unknown filter type %q", types.ErrConfiguration, name)
}

// MatchStrategy resolves a loosely written strategy name.
func MatchStrategy(name string) (FilterStrategy, error) {
	if strategy, ok := strategiesByName[normalizeName(name)]; ok {
		return strategy, nil
	}
	return StrategyUnspecified, fmt.Errorf("%w: unknown filter strategy %q", types.ErrConfiguration, name)
}
