package window

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestType_Validate(t *testing.T) {
	doc := `{
		"name": "",
		"output_reserve_pct": 20,
		"modules": {
			"a": {"active": true, "target_pct": 60},
			"b": {"active": true, "target_pct": 30},
			"c": {"active": false, "target_pct": 150}
		},
		"dynamic_adjustments": [
			{"condition": "", "action": {"reduce": "a"}},
			{"condition": "c2", "action": {"reduce": "a", "condense": "b"}},
			{"condition": "c3", "action": {"condense": "b", "to": "a"}},
			{"condition": "c4", "action": {}},
			{"condition": "c5", "action": {"transfer": "a", "to": "ghost"}}
		]
	}`

	var wt Type
	if err := json.Unmarshal([]byte(doc), &wt); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	issues := wt.Validate()
	if !HasErrors(issues) {
		t.Fatal("Expected errors")
	}

	wantFields := []string{
		"name",
		"modules.c.target_pct",
		"modules",
		"dynamic_adjustments[0].condition",
		"dynamic_adjustments[1].action",
		"dynamic_adjustments[2].action.to",
		"dynamic_adjustments[3].action",
		"dynamic_adjustments[4].action",
	}
	got := make([]string, 0, len(issues))
	for _, i := range issues {
		got = append(got, i.Field)
	}
	if strings.Join(got, ",") != strings.Join(wantFields, ",") {
		t.Errorf("Expected fields %v, got %v", wantFields, got)
	}
}

func TestType_ValidateClean(t *testing.T) {
	wt := Type{
		Name:             "default",
		OutputReservePct: 12,
		Modules: map[ModuleID]Module{
			"system_prompt":        {Active: true, TargetPct: 10, Priority: 100},
			"conversation_history": {Active: true, TargetPct: 60, Priority: 80},
		},
		Rules: []Rule{
			{Condition: "overflow", Action: Condense{Module: "conversation_history"}},
		},
	}

	if issues := wt.Validate(); len(issues) != 0 {
		t.Errorf("Expected no issues, got %v", issues)
	}
}

func TestType_ModuleIDs(t *testing.T) {
	wt := Type{Modules: map[ModuleID]Module{
		"b": {Priority: 50},
		"a": {Priority: 50},
		"z": {Priority: 90},
	}}

	got := strings.Join(wt.ModuleIDs(), ",")
	if got != "z,a,b" {
		t.Errorf("Expected z,a,b, got %s", got)
	}
}
