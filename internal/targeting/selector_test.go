// internal/targeting/selector_test.go
package targeting

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/solatis/cuitarget/internal/ontology/ontologytest"
	"github.com/solatis/cuitarget/internal/types"
)

func selectorFixture() *ontologytest.Builder {
	return ontologytest.NewBuilder().
		Concept("C1", "diabetes", "diabetes mellitus").
		Concept("C2", "type 2 diabetes").
		Concept("C3", "fever", "pyrexia").
		Types("C1", "T047").
		Types("C2", "T047").
		Types("C3", "T184").
		Edge("C1", "C2")
}

func TestSelector_NoFilters(t *testing.T) {
	l := selectorFixture().Lookup()
	got := slices.Collect(NewSelector(nil, DefaultOptions()).Targets(l))
	if len(got) != 5 {
		t.Errorf("len = %d, want every target (5): %v", len(got), got)
	}
}

func TestSelector_AllChainsFilters(t *testing.T) {
	l := selectorFixture().Lookup()
	s := NewSelector([]Filter{
		mustTyped(t, KindTypeID, "T047"),
		mustTyped(t, KindName, "diabetes", "fever"),
	}, FilterOptions{Strategy: StrategyAll})

	assertTargets(t, slices.Collect(s.Targets(l)),
		types.TargetInfo{CUI: "C1", Name: "diabetes"},
	)
}

func TestSelector_AllWithHierarchy(t *testing.T) {
	l := selectorFixture().Lookup()
	s := NewSelector([]Filter{
		mustChild(t, 1, "C1"),
		mustTyped(t, KindName, "type 2 diabetes", "diabetes"),
	}, FilterOptions{Strategy: StrategyAll})

	// C1 has two names, so the child expansion runs once per accepted C1 target.
	assertTargets(t, slices.Collect(s.Targets(l)),
		types.TargetInfo{CUI: "C1", Name: "diabetes"},
		types.TargetInfo{CUI: "C2", Name: "type 2 diabetes"},
		types.TargetInfo{CUI: "C2", Name: "type 2 diabetes"},
	)
}

func TestSelector_AnyIsDeduplicatedUnion(t *testing.T) {
	l := selectorFixture().Lookup()
	s := NewSelector([]Filter{
		mustTyped(t, KindCUI, "C3"),
		mustTyped(t, KindName, "pyrexia", "diabetes"),
	}, FilterOptions{Strategy: StrategyAny})

	assertTargets(t, slices.Collect(s.Targets(l)),
		types.TargetInfo{CUI: "C1", Name: "diabetes"},
		types.TargetInfo{CUI: "C3", Name: "fever"},
		types.TargetInfo{CUI: "C3", Name: "pyrexia"},
	)
}

func TestSelector_OnlyPrefNames(t *testing.T) {
	l := selectorFixture().Lookup()
	s := NewSelector([]Filter{mustTyped(t, KindTypeID, "T047", "T184")},
		FilterOptions{Strategy: StrategyAll, OnlyPrefNames: true})

	assertTargets(t, slices.Collect(s.Targets(l)),
		types.TargetInfo{CUI: "C1", Name: "diabetes"},
		types.TargetInfo{CUI: "C2", Name: "type 2 diabetes"},
		types.TargetInfo{CUI: "C3", Name: "fever"},
	)
}

func TestSelector_UnspecifiedStrategyIsAll(t *testing.T) {
	s := NewSelector(nil, FilterOptions{})
	if s.Options().Strategy != StrategyAll {
		t.Errorf("Strategy = %v, want ALL", s.Options().Strategy)
	}
}

func TestSelector_DictRoundTrip(t *testing.T) {
	s := NewSelector([]Filter{
		mustTyped(t, KindTypeID, "T047"),
		mustChild(t, 2, "C1"),
	}, FilterOptions{Strategy: StrategyAny, OnlyPrefNames: true})

	parsed, err := SelectorFromDict(s.ToDict())
	if err != nil {
		t.Fatalf("SelectorFromDict() error = %v", err)
	}
	if parsed.Options() != s.Options() {
		t.Errorf("Options() = %+v, want %+v", parsed.Options(), s.Options())
	}
	if !equivalentSets(parsed.Filters(), s.Filters()) {
		t.Errorf("Filters() = %v, want %v", describe(parsed.Filters()), describe(s.Filters()))
	}
}

func TestSelectorFromDict_Errors(t *testing.T) {
	for _, in := range []map[string]any{
		{"targets": "CUI"},
		{"options": []any{"ALL"}},
		{"targets": map[string]any{"bogus": "x"}},
		{"options": map[string]any{"strategy": "most"}},
	} {
		if _, err := SelectorFromDict(in); !errors.Is(err, types.ErrConfiguration) {
			t.Errorf("SelectorFromDict(%v) error = %v, want ErrConfiguration", in, err)
		}
	}
}

func TestSelectorFromDict_Empty(t *testing.T) {
	s, err := SelectorFromDict(map[string]any{})
	if err != nil {
		t.Fatalf("SelectorFromDict() error = %v", err)
	}
	if len(s.Filters()) != 0 || s.Options() != DefaultOptions() {
		t.Errorf("SelectorFromDict({}) = %v / %+v, want no filters and defaults", s.Filters(), s.Options())
	}
}

// bulkFixture registers n single-name concepts C00000..C(n-1).
func bulkFixture(n int) *ontologytest.Builder {
	b := ontologytest.NewBuilder()
	for i := 0; i < n; i++ {
		b.Concept(fmt.Sprintf("C%05d", i), fmt.Sprintf("concept %d", i))
	}
	return b
}

func TestSelector_TargetsContext_MatchesTargets(t *testing.T) {
	l := selectorFixture().Lookup()
	for _, strategy := range []FilterStrategy{StrategyAll, StrategyAny} {
		s := NewSelector([]Filter{
			mustTyped(t, KindTypeID, "T047"),
			mustChild(t, 1, "C1"),
		}, FilterOptions{Strategy: strategy})

		assertTargets(t, slices.Collect(s.TargetsContext(context.Background(), l)),
			slices.Collect(s.Targets(l))...)
	}
}

func TestSelector_TargetsContext_CancelledBeforeScan(t *testing.T) {
	l := bulkFixture(5000).Lookup()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, filters := range [][]Filter{
		nil,
		{mustTyped(t, KindName, "no such name")},
	} {
		s := NewSelector(filters, DefaultOptions())
		if got := slices.Collect(s.TargetsContext(ctx, l)); len(got) != 0 {
			t.Errorf("filters %v: got %d targets from a cancelled context, want 0", describe(filters), len(got))
		}
	}
}

func TestSelector_TargetsContext_StopsMidScan(t *testing.T) {
	const total = 5000
	l := bulkFixture(total).Lookup()
	s := NewSelector(nil, DefaultOptions())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := 0
	for range s.TargetsContext(ctx, l) {
		n++
		if n == 1 {
			cancel()
		}
	}
	if n >= pollEvery || n >= total {
		t.Errorf("pulled %d targets after cancel, want fewer than %d", n, pollEvery)
	}
}
