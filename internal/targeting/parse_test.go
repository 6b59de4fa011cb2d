// internal/targeting/parse_test.go
package targeting

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/solatis/cuitarget/internal/types"
)

func TestFromInput_SimpleValues(t *testing.T) {
	tests := []struct {
		name     string
		kindName string
		raw      any
		wantKind FilterKind
		want     []string
	}{
		{"single string", "cui", "C1", KindCUI, []string{"C1"}},
		{"string slice", "NAME", []string{"a", "b"}, KindName, []string{"a", "b"}},
		{"any slice", "type_id", []any{"T047", "T184"}, KindTypeID, []string{"T047", "T184"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := FromInput(tt.kindName, tt.raw)
			if err != nil {
				t.Fatalf("FromInput() error = %v, want nil", err)
			}
			if f.Kind() != tt.wantKind {
				t.Errorf("Kind() = %v, want %v", f.Kind(), tt.wantKind)
			}
			if !slices.Equal(f.Values(), tt.want) {
				t.Errorf("Values() = %v, want %v", f.Values(), tt.want)
			}
		})
	}
}

func TestFromInput_Hierarchical(t *testing.T) {
	tests := []struct {
		name      string
		raw       map[string]any
		wantDepth int
		wantCUIs  []string
	}{
		{"int depth, single cui", map[string]any{"depth": 2, "cui": "C1"}, 2, []string{"C1"}},
		{"float depth from JSON", map[string]any{"depth": float64(3), "cui": []any{"C1", "C2"}}, 3, []string{"C1", "C2"}},
		{"string depth from env", map[string]any{"depth": " 1 ", "cui": []string{"C7"}}, 1, []string{"C7"}},
		{"upper-case keys", map[string]any{"DEPTH": int64(4), "CUI": "C1"}, 4, []string{"C1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := FromInput("CUI_AND_CHILDREN", tt.raw)
			if err != nil {
				t.Fatalf("FromInput() error = %v, want nil", err)
			}
			child, ok := f.(*ChildFilter)
			if !ok {
				t.Fatalf("FromInput() = %T, want *ChildFilter", f)
			}
			if child.Depth() != tt.wantDepth {
				t.Errorf("Depth() = %d, want %d", child.Depth(), tt.wantDepth)
			}
			if child.Delegate().Kind() != KindCUI {
				t.Errorf("Delegate().Kind() = %v, want CUI", child.Delegate().Kind())
			}
			if !slices.Equal(child.Delegate().Values(), tt.wantCUIs) {
				t.Errorf("Delegate().Values() = %v, want %v", child.Delegate().Values(), tt.wantCUIs)
			}
			if len(child.Values()) != 0 {
				t.Errorf("Values() = %v, want empty", child.Values())
			}
		})
	}
}

func TestFromInput_Errors(t *testing.T) {
	tests := []struct {
		name     string
		kindName string
		raw      any
	}{
		{"unknown kind", "TUI", "T047"},
		{"mapping for CUI", "CUI", map[string]any{"depth": 1, "cui": "C1"}},
		{"mapping for NAME", "NAME", map[string]any{"depth": 1, "cui": "C1"}},
		{"list for CUI_AND_CHILDREN", "CUI_AND_CHILDREN", []string{"C1"}},
		{"missing depth", "CUI_AND_CHILDREN", map[string]any{"cui": "C1"}},
		{"missing cui", "CUI_AND_CHILDREN", map[string]any{"depth": 1}},
		{"fractional depth", "CUI_AND_CHILDREN", map[string]any{"depth": 1.5, "cui": "C1"}},
		{"zero depth", "CUI_AND_CHILDREN", map[string]any{"depth": 0, "cui": "C1"}},
		{"depth too large", "CUI_AND_CHILDREN", map[string]any{"depth": types.MaxHierarchyDepth + 1, "cui": "C1"}},
		{"non-numeric depth", "CUI_AND_CHILDREN", map[string]any{"depth": "deep", "cui": "C1"}},
		{"nested cui mapping", "CUI_AND_CHILDREN", map[string]any{"depth": 1, "cui": map[string]any{"depth": 1}}},
		{"non-string list element", "NAME", []any{"a", 3}},
		{"nil value", "CUI", nil},
		{"empty list", "CUI", []string{}},
		{"number value", "CUI", 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromInput(tt.kindName, tt.raw)
			if !errors.Is(err, types.ErrConfiguration) {
				t.Errorf("FromInput() error = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestFromDict(t *testing.T) {
	filters, err := FromDict(map[string]any{
		"type_id":          []any{"T047"},
		"name":             "fever",
		"cui_and_children": map[string]any{"depth": 2, "cui": "C1"},
	})
	if err != nil {
		t.Fatalf("FromDict() error = %v, want nil", err)
	}
	if len(filters) != 3 {
		t.Fatalf("len(filters) = %d, want 3", len(filters))
	}

	// sorted key order: cui_and_children, name, type_id
	wantKinds := []FilterKind{KindCUIAndChildren, KindName, KindTypeID}
	for i, f := range filters {
		if f.Kind() != wantKinds[i] {
			t.Errorf("filters[%d].Kind() = %v, want %v", i, f.Kind(), wantKinds[i])
		}
	}
}

func TestFromDict_UnknownKind(t *testing.T) {
	_, err := FromDict(map[string]any{"cui": "C1", "bogus": "x"})
	if !errors.Is(err, types.ErrConfiguration) {
		t.Fatalf("FromDict() error = %v, want ErrConfiguration", err)
	}
}

func TestToDict(t *testing.T) {
	typed := mustTyped(t, KindName, "fever", "chills")
	got, _ := json.Marshal(typed.ToDict())
	if string(got) != `{"NAME":["fever","chills"]}` {
		t.Errorf("TypedFilter.ToDict() = %s", got)
	}

	child := mustChild(t, 3, "C1", "C2")
	got, _ = json.Marshal(child.ToDict())
	if string(got) != `{"CUI_AND_CHILDREN":{"cui":["C1","C2"],"depth":3}}` {
		t.Errorf("ChildFilter.ToDict() = %s", got)
	}
}

func TestListToDict_LastWriterWins(t *testing.T) {
	filters := []Filter{
		mustTyped(t, KindCUI, "C1"),
		mustTyped(t, KindName, "fever"),
		mustTyped(t, KindCUI, "C2"),
	}
	if dicts := ListToDicts(filters); len(dicts) != 3 {
		t.Fatalf("len(ListToDicts) = %d, want 3", len(dicts))
	}

	merged := ListToDict(filters)
	if len(merged) != 2 {
		t.Fatalf("len(ListToDict) = %d, want 2", len(merged))
	}
	if v := merged["CUI"].([]string); !slices.Equal(v, []string{"C2"}) {
		t.Errorf("CUI = %v, want [C2]", v)
	}
}

func TestRoundTrip_ThroughJSON(t *testing.T) {
	filters := []Filter{
		mustTyped(t, KindTypeID, "T047", "T184"),
		mustTyped(t, KindName, "fever"),
		mustChild(t, 2, "C1", "C9"),
	}

	data, err := json.Marshal(ListToDict(filters))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	parsed, err := FromDict(decoded)
	if err != nil {
		t.Fatalf("FromDict() error = %v", err)
	}

	if !equivalentSets(filters, parsed) {
		t.Errorf("round trip mismatch:\n got  %v\n want %v", describe(parsed), describe(filters))
	}
}

// describe renders filters canonically: kind, depth, sorted values.
func describe(filters []Filter) []string {
	out := make([]string, 0, len(filters))
	for _, f := range filters {
		values := f.Values()
		depth := 0
		if child, ok := f.(*ChildFilter); ok {
			values = child.Delegate().Values()
			depth = child.Depth()
		}
		sort.Strings(values)
		out = append(out, fmt.Sprintf("%s/%d/%v", f.Kind(), depth, values))
	}
	sort.Strings(out)
	return out
}

func equivalentSets(a, b []Filter) bool {
	return slices.Equal(describe(a), describe(b))
}

// Property-based test: every constructible filter survives ToDict -> FromDict
func TestRoundTrip_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	kinds := []FilterKind{KindTypeID, KindCUI, KindName, KindCUIAndChildren}

	properties.Property("FromDict(ToDict(f)) is equivalent to f", prop.ForAll(
		func(kindIdx int, depth int, values []string) bool {
			if len(values) == 0 {
				values = []string{"C0"}
			}
			kind := kinds[kindIdx]

			var f Filter
			var err error
			if kind == KindCUIAndChildren {
				f, err = NewChildFilter(mustTyped(t, KindCUI, values...), depth)
			} else {
				f, err = NewTypedFilter(kind, values)
			}
			if err != nil {
				return false
			}

			parsed, err := FromDict(f.ToDict())
			if err != nil || len(parsed) != 1 {
				return false
			}
			return equivalentSets([]Filter{f}, parsed)
		},
		gen.IntRange(0, len(kinds)-1),
		gen.IntRange(1, types.MaxHierarchyDepth),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
