package reconcile

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"mercator-hq/cwlens/pkg/limit"
	"mercator-hq/cwlens/pkg/window"
)

func moduleByID(v *View, id string) *ModuleView {
	for i := range v.Modules {
		if v.Modules[i].ID == id {
			return &v.Modules[i]
		}
	}
	return nil
}

func TestReconcile(t *testing.T) {
	profile := &window.Profile{ID: "p1", Name: "Coder", ContextLimitOverride: intPtr(100000)}
	v := Reconcile(Input{Window: testWindow(), Profile: profile, Snapshot: testSnapshot()})

	require.Equal(t, "coding", v.Window)
	require.Equal(t, "p1", v.ProfileID)
	require.Equal(t, 85.0, v.ConfiguredPct)
	require.Equal(t, 100000, v.Limit.Tokens)
	require.Equal(t, limit.SourceProfile, v.Limit.Source)

	ids := make([]string, 0, len(v.Modules))
	for _, m := range v.Modules {
		ids = append(ids, m.ID)
	}
	require.Equal(t, "system_prompt,conversation_history,tool_definitions,retrieved_documents,scratchpad", strings.Join(ids, ","))

	sp := moduleByID(v, "system_prompt")
	require.True(t, sp.Required)
	require.Equal(t, StatusContributing, sp.Status)
	require.Equal(t, 40.0, sp.Usage.UtilPct)
	require.Nil(t, sp.AdjustmentTags, "pinned_prompt did not fire")

	history := moduleByID(v, "conversation_history")
	require.Equal(t, []string{"history_overflow", "tools_idle"}, history.AdjustmentTags)
	require.NotNil(t, history.Reallocation)
	require.Equal(t, 5000, *history.Reallocation.Gained)
	require.Nil(t, history.Reallocation.Donated)
	require.Equal(t, &Condensation{Strategies: []string{"summarize"}, Before: 30000, After: 12000, Saved: 18000}, history.Condensation)

	tools := moduleByID(v, "tool_definitions")
	require.Equal(t, StatusIdle, tools.Status)
	require.Equal(t, []string{"tools_idle"}, tools.AdjustmentTags)
	require.Equal(t, 5000, *tools.Reallocation.Donated)

	docs := moduleByID(v, "retrieved_documents")
	require.Equal(t, StatusNotApplicable, docs.Status)
	require.Nil(t, docs.Usage)

	scratch := moduleByID(v, "scratchpad")
	require.Equal(t, StatusInactive, scratch.Status)
	require.False(t, scratch.Required)

	totals := v.Totals
	require.NotNil(t, totals)
	require.Equal(t, 7, totals.TurnNumber)
	require.Equal(t, "25.0%", totals.Utilization)
	require.Equal(t, 25.0, totals.TotalPct)
	require.Equal(t, 1, totals.CondensationCount)
	require.Equal(t, 2, totals.DistillationCount)
	require.Equal(t, 150, totals.DistilledRows)
	require.Equal(t, 1, totals.RecipientCount)
	require.Equal(t, 2, totals.Adjustments.RulesMatched)
	require.Equal(t, []string{"unmapped_condition"}, totals.Adjustments.Unconfigured)
	require.Equal(t, []window.ModuleID{"legacy_memory"}, totals.UnknownModules)
	require.Equal(t, "5000 tokens surplus reallocated to conversation_history", totals.ReallocationNote)
}

func TestReconcile_UtilizationScenario(t *testing.T) {
	snap := &window.Snapshot{Budget: window.Budget{Used: 25000, Available: 100000}}
	v := Reconcile(Input{Window: testWindow(), Snapshot: snap})

	if v.Totals.Utilization != "25.0%" {
		t.Errorf("Expected 25.0%%, got %s", v.Totals.Utilization)
	}
}

func TestReconcile_NoSnapshot(t *testing.T) {
	v := Reconcile(Input{Window: testWindow(), ModelLimit: 200000})

	if v.Totals != nil {
		t.Error("Expected no totals before the first turn")
	}
	for _, m := range v.Modules {
		if m.Status != "" || m.Usage != nil || m.AdjustmentTags != nil || m.Reallocation != nil || m.Condensation != nil {
			t.Errorf("Expected static-only module view, got %+v", m)
		}
	}
	if v.Limit.Tokens != 200000 {
		t.Errorf("Expected limit 200000, got %d", v.Limit.Tokens)
	}

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	for _, key := range []string{`"totals"`, `"usage"`, `"status"`} {
		if strings.Contains(string(data), key) {
			t.Errorf("Expected %s to be absent from %s", key, data)
		}
	}
}

func TestReconcile_NilWindow(t *testing.T) {
	v := Reconcile(Input{Snapshot: testSnapshot()})
	if len(v.Modules) != 0 || v.Totals != nil {
		t.Errorf("Expected empty view, got %+v", v)
	}
	if v.Limit.Tokens != 128000 {
		t.Errorf("Expected snapshot model limit, got %d", v.Limit.Tokens)
	}
}

func TestReconcile_LimitPrecedence(t *testing.T) {
	snap := testSnapshot()
	snap.Budget.ModelLimit = 8000
	snap.Budget.SessionContextLimitOverride = intPtr(6144)

	v := Reconcile(Input{Window: testWindow(), Snapshot: snap, ModelLimit: 200000})
	if v.Limit.Tokens != 6144 || v.Limit.Source != limit.SourceSession {
		t.Errorf("Expected snapshot session override, got %+v", v.Limit)
	}

	v = Reconcile(Input{Window: testWindow(), Snapshot: snap, SessionOverride: intPtr(20000)})
	if v.Limit.Tokens != 8000 || !v.Limit.Clamped {
		t.Errorf("Expected explicit override clamped to 8000, got %+v", v.Limit)
	}
}

func TestReconcile_OverBudgetBarCapped(t *testing.T) {
	snap := &window.Snapshot{
		Budget:        window.Budget{Available: 1000, Used: 300},
		Contributions: []window.Contribution{{ModuleID: "system_prompt", Allocated: 100, Used: 300}},
	}
	v := Reconcile(Input{Window: testWindow(), Snapshot: snap})
	u := moduleByID(v, "system_prompt").Usage

	if u.UtilPct != 300 {
		t.Errorf("Expected reported util 300, got %g", u.UtilPct)
	}
	if u.UtilBarPct != 100 {
		t.Errorf("Expected bar capped at 100, got %g", u.UtilBarPct)
	}
}

func TestReconcileProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("reconcile is idempotent", prop.ForAll(
		func(seed int64, available int) bool {
			in := randomInput(seed, available)
			return reflect.DeepEqual(Reconcile(in), Reconcile(in))
		},
		gen.Int64(),
		gen.IntRange(0, 500000),
	))

	properties.Property("zero available budget zeroes every module", prop.ForAll(
		func(seed int64) bool {
			v := Reconcile(randomInput(seed, 0))
			for _, m := range v.Modules {
				if m.Usage != nil && (m.Usage.AllocPct != 0 || m.Usage.UtilPct != 0) {
					return false
				}
			}
			return v.Totals.TotalPct == 0 && v.Totals.Utilization == "0.0%"
		},
		gen.Int64(),
	))

	properties.Property("reconcile does not mutate its input", prop.ForAll(
		func(seed int64) bool {
			in := randomInput(seed, 1000)
			before, _ := json.Marshal(in.Snapshot)
			Reconcile(in)
			after, _ := json.Marshal(in.Snapshot)
			return string(before) == string(after)
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}
