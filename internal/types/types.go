// Package types provides domain models shared across cuitarget components.
//
// Zero-dependency design: types.go and errors.go use only the standard library so
// the targeting engine can be embedded without pulling in storage or transport deps.
// ID utilities in ids.go import uuid but are isolated from the core types.
package types

import "fmt"

// TargetInfo identifies one (concept, name) pair under consideration for selection.
// Comparable value type: two targets are equal iff CUI and Name are equal.
type TargetInfo struct {
	CUI  string `json:"cui"`
	Name string `json:"name"`
}

// String renders the target as TI[cui:name] for logs and test failures.
func (t TargetInfo) String() string {
	return fmt.Sprintf("TI[%s:%s]", t.CUI, t.Name)
}

// Resource limits enforced at configuration time.
const (
	// MaxHierarchyDepth caps CUI_AND_CHILDREN depth.
	// Ontology hierarchies rarely exceed a dozen levels; deeper requests are a config typo.
	MaxHierarchyDepth = 16

	// MaxFilterValues limits values in a single filter.
	// Large enough for a full semantic group of TUIs or a hand-picked CUI list.
	MaxFilterValues = 10000
)
