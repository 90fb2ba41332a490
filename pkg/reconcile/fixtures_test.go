package reconcile

import (
	"fmt"
	"math/rand"

	"mercator-hq/cwlens/pkg/window"
)

func intPtr(v int) *int { return &v }

// testWindow returns a representative window type.
func testWindow() *window.Type {
	return &window.Type{
		Name:             "coding",
		Description:      "Coding assistant",
		OutputReservePct: 12,
		Modules: map[window.ModuleID]window.Module{
			"system_prompt":        {Active: true, TargetPct: 10, Priority: 100},
			"conversation_history": {Active: true, TargetPct: 40, Priority: 80},
			"tool_definitions":     {Active: true, TargetPct: 15, Priority: 60},
			"retrieved_documents":  {Active: true, TargetPct: 20, Priority: 50},
			"scratchpad":           {Active: false, TargetPct: 3, Priority: 10},
		},
		Rules: []window.Rule{
			{Condition: "history_overflow", Action: window.Condense{Module: "conversation_history"}},
			{Condition: "tools_idle", Action: window.Transfer{From: "tool_definitions", To: "conversation_history"}},
			{Condition: "pinned_prompt", Action: window.ForceFull{Module: "system_prompt"}},
		},
	}
}

// testSnapshot returns a snapshot matching testWindow. retrieved_documents
// has no contribution.
func testSnapshot() *window.Snapshot {
	return &window.Snapshot{
		TurnNumber: 7,
		Budget: window.Budget{
			Available:  100000,
			Used:       25000,
			ModelLimit: 128000,
		},
		Contributions: []window.Contribution{
			{ModuleID: "system_prompt", Allocated: 10000, Used: 4000},
			{ModuleID: "conversation_history", Allocated: 45000, Used: 30000, Condensed: true},
			{ModuleID: "tool_definitions", Allocated: 10000, Used: 0},
			{ModuleID: "legacy_memory", Allocated: 500, Used: 0},
		},
		Fired: []string{"history_overflow", "tools_idle", "unmapped_condition"},
		Condensations: []window.CondensationEvent{
			{ModuleID: "conversation_history", Strategy: "summarize", Before: 30000, After: 12000},
		},
		Distillations: []window.DistillationEvent{{RowCount: 120}, {RowCount: 30}},
		Reallocations: []window.ReallocationEvent{
			{ModuleID: "tool_definitions", Type: window.Donor, Tokens: 5000},
			{ModuleID: "conversation_history", Type: window.Recipient, Tokens: 5000},
		},
	}
}

// randomInput builds an arbitrary, possibly inconsistent input from a seed.
func randomInput(seed int64, available int) Input {
	r := rand.New(rand.NewSource(seed))

	wt := &window.Type{
		Name:             "random",
		OutputReservePct: float64(r.Intn(30)),
		Modules:          map[window.ModuleID]window.Module{},
	}
	n := 1 + r.Intn(8)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("m%d", i)
		wt.Modules[id] = window.Module{
			Active:    r.Intn(4) > 0,
			TargetPct: float64(r.Intn(120)),
			Priority:  r.Intn(100),
		}
		if r.Intn(2) == 0 {
			wt.Rules = append(wt.Rules, window.Rule{
				Condition: fmt.Sprintf("c%d", r.Intn(4)),
				Action:    window.Transfer{From: id, To: fmt.Sprintf("m%d", r.Intn(n))},
			})
		}
	}

	snap := &window.Snapshot{
		TurnNumber: r.Intn(50),
		Budget:     window.Budget{Available: available, Used: r.Intn(200000), ModelLimit: r.Intn(300000)},
	}
	for i := 0; i < n+1; i++ {
		if r.Intn(3) == 0 {
			continue
		}
		snap.Contributions = append(snap.Contributions, window.Contribution{
			ModuleID:  fmt.Sprintf("m%d", i),
			Allocated: r.Intn(3) * r.Intn(50000),
			Used:      r.Intn(60000),
		})
		if r.Intn(2) == 0 {
			snap.Reallocations = append(snap.Reallocations, window.ReallocationEvent{
				ModuleID: fmt.Sprintf("m%d", i),
				Type:     []window.ReallocationType{window.Donor, window.Recipient}[r.Intn(2)],
				Tokens:   r.Intn(4000),
			})
		}
	}
	for i := 0; i < r.Intn(4); i++ {
		snap.Fired = append(snap.Fired, fmt.Sprintf("c%d", r.Intn(5)))
	}

	return Input{Window: wt, Snapshot: snap, ModelLimit: r.Intn(200000)}
}
