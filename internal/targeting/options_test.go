package targeting

import (
	"errors"
	"testing"

	"github.com/solatis/cuitarget/internal/types"
)

func TestOptionsFromDict_Defaults(t *testing.T) {
	opts, err := OptionsFromDict(map[string]any{})
	if err != nil {
		t.Fatalf("OptionsFromDict() error = %v, want nil", err)
	}
	if opts.Strategy != StrategyAll {
		t.Errorf("Strategy = %v, want ALL", opts.Strategy)
	}
	if opts.OnlyPrefNames {
		t.Error("OnlyPrefNames = true, want false")
	}

	if nilOpts, err := OptionsFromDict(nil); err != nil || nilOpts != opts {
		t.Errorf("OptionsFromDict(nil) = %+v, %v, want defaults", nilOpts, err)
	}
}

func TestOptionsFromDict(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		want FilterOptions
	}{
		{"any strategy", map[string]any{"strategy": "any"}, FilterOptions{Strategy: StrategyAny}},
		{"prefname TRUE", map[string]any{"prefname-only": "TRUE"}, FilterOptions{Strategy: StrategyAll, OnlyPrefNames: true}},
		{"prefname False", map[string]any{"prefname-only": "False"}, FilterOptions{Strategy: StrategyAll}},
		{"prefname yes is not true", map[string]any{"prefname-only": "yes"}, FilterOptions{Strategy: StrategyAll}},
		{"prefname bool", map[string]any{"prefname-only": true, "strategy": "All"}, FilterOptions{Strategy: StrategyAll, OnlyPrefNames: true}},
		{"upper-case keys", map[string]any{"STRATEGY": "ANY", "Prefname-Only": "true"}, FilterOptions{Strategy: StrategyAny, OnlyPrefNames: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OptionsFromDict(tt.in)
			if err != nil {
				t.Fatalf("OptionsFromDict() error = %v, want nil", err)
			}
			if got != tt.want {
				t.Errorf("OptionsFromDict() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestOptionsFromDict_Errors(t *testing.T) {
	for _, in := range []map[string]any{
		{"strategy": "most"},
		{"strategy": 1},
		{"prefname-only": 1},
	} {
		if _, err := OptionsFromDict(in); !errors.Is(err, types.ErrConfiguration) {
			t.Errorf("OptionsFromDict(%v) error = %v, want ErrConfiguration", in, err)
		}
	}
}

func TestOptions_RoundTrip(t *testing.T) {
	for _, opts := range []FilterOptions{
		{Strategy: StrategyAll},
		{Strategy: StrategyAny},
		{Strategy: StrategyAll, OnlyPrefNames: true},
		{Strategy: StrategyAny, OnlyPrefNames: true},
	} {
		d := opts.ToDict()
		if _, ok := d["prefname-only"].(string); !ok {
			t.Errorf("prefname-only is %T, want string", d["prefname-only"])
		}
		got, err := OptionsFromDict(d)
		if err != nil || got != opts {
			t.Errorf("OptionsFromDict(%v) = %+v, %v, want %+v", d, got, err, opts)
		}
	}
}
