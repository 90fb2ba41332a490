package reconcile

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"mercator-hq/cwlens/pkg/window"
)

func TestNormalize(t *testing.T) {
	got := Normalize(testWindow(), testSnapshot())

	if _, ok := got["scratchpad"]; ok {
		t.Error("Expected inactive module to be skipped")
	}
	if _, ok := got["legacy_memory"]; ok {
		t.Error("Expected unknown contribution to be skipped")
	}
	if len(got) != 4 {
		t.Fatalf("Expected 4 active modules, got %d", len(got))
	}

	history := got["conversation_history"]
	if history.Status != StatusContributing {
		t.Errorf("Expected contributing, got %s", history.Status)
	}
	if history.AllocPct != 45 {
		t.Errorf("Expected allocPct 45, got %g", history.AllocPct)
	}
	if history.DeltaPct != 5 {
		t.Errorf("Expected deltaPct 5, got %g", history.DeltaPct)
	}
	if history.Band != BandMedium {
		t.Errorf("Expected medium band for %.1f%%, got %s", history.UtilPct, history.Band)
	}
	if !history.Condensed {
		t.Error("Expected condensed flag to carry through")
	}

	tools := got["tool_definitions"]
	if tools.Status != StatusIdle {
		t.Errorf("Expected idle, got %s", tools.Status)
	}
	if tools.DeltaPct != -5 {
		t.Errorf("Expected deltaPct -5, got %g", tools.DeltaPct)
	}

	docs := got["retrieved_documents"]
	if docs.Status != StatusNotApplicable {
		t.Errorf("Expected not_applicable, got %s", docs.Status)
	}
}

func TestNormalize_FractionalTarget(t *testing.T) {
	wt := &window.Type{
		Modules: map[window.ModuleID]window.Module{
			"system_prompt": {Active: true, TargetPct: 33.33},
		},
	}
	snap := &window.Snapshot{
		Budget:        window.Budget{Available: 10000},
		Contributions: []window.Contribution{{ModuleID: "system_prompt", Allocated: 3330, Used: 100}},
	}

	got := Normalize(wt, snap)["system_prompt"]

	want := 33.3 - 33.33
	if math.Abs(got.DeltaPct-want) > 1e-9 {
		t.Errorf("Expected deltaPct %g, got %g", want, got.DeltaPct)
	}
	if !math.Signbit(got.DeltaPct) || got.DeltaPct == 0 {
		t.Errorf("Expected a small negative delta, got %g", got.DeltaPct)
	}
}

func TestNormalize_NilSnapshot(t *testing.T) {
	if got := Normalize(testWindow(), nil); got != nil {
		t.Errorf("Expected nil, got %v", got)
	}
}

func TestNormalize_ZeroAllocation(t *testing.T) {
	wt := &window.Type{Modules: map[window.ModuleID]window.Module{"a": {Active: true, TargetPct: 10}}}
	snap := &window.Snapshot{
		Budget:        window.Budget{Available: 1000},
		Contributions: []window.Contribution{{ModuleID: "a", Allocated: 0, Used: 50}},
	}

	a := Normalize(wt, snap)["a"]
	if a.UtilPct != 0 {
		t.Errorf("Expected utilPct 0 with zero allocation, got %g", a.UtilPct)
	}
	if a.Status != StatusContributing {
		t.Errorf("Expected contributing (used > 0), got %s", a.Status)
	}
}

func TestNormalize_OverBudgetNotCapped(t *testing.T) {
	wt := &window.Type{Modules: map[window.ModuleID]window.Module{"a": {Active: true}}}
	snap := &window.Snapshot{
		Budget:        window.Budget{Available: 1000},
		Contributions: []window.Contribution{{ModuleID: "a", Allocated: 100, Used: 150}},
	}

	a := Normalize(wt, snap)["a"]
	if a.UtilPct != 150 {
		t.Errorf("Expected utilPct 150, got %g", a.UtilPct)
	}
	if a.Band != BandHigh {
		t.Errorf("Expected high band, got %s", a.Band)
	}
}

func TestUtilBand(t *testing.T) {
	tests := []struct {
		util float64
		want Band
	}{
		{0, BandLow},
		{50, BandLow},
		{50.5, BandMedium},
		{51, BandMedium},
		{80, BandMedium},
		{80.1, BandHigh},
		{81, BandHigh},
		{250, BandHigh},
	}

	for _, tt := range tests {
		if got := UtilBand(tt.util); got != tt.want {
			t.Errorf("UtilBand(%g): expected %s, got %s", tt.util, tt.want, got)
		}
	}
}

func TestNormalizeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("zero available budget yields zero allocPct and utilPct", prop.ForAll(
		func(seed int64) bool {
			in := randomInput(seed, 0)
			for _, n := range Normalize(in.Window, in.Snapshot) {
				if n.AllocPct != 0 || n.UtilPct != 0 {
					return false
				}
			}
			return true
		},
		gen.Int64(),
	))

	properties.Property("every active module is reported", prop.ForAll(
		func(seed int64, available int) bool {
			in := randomInput(seed, available)
			got := Normalize(in.Window, in.Snapshot)
			for id, m := range in.Window.Modules {
				if _, ok := got[id]; ok != m.Active {
					return false
				}
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(0, 500000),
	))

	properties.TestingRun(t)
}
