package reconcile

import (
	"reflect"
	"testing"

	"mercator-hq/cwlens/pkg/window"
)

func TestAggregate(t *testing.T) {
	l := Aggregate([]window.ReallocationEvent{
		{ModuleID: "a", Type: window.Donor, Tokens: 500},
		{ModuleID: "b", Type: window.Recipient, Tokens: 500},
	})

	if l.TotalSurplus != 500 {
		t.Errorf("Expected surplus 500, got %d", l.TotalSurplus)
	}
	if !reflect.DeepEqual(l.Recipients, map[window.ModuleID]int{"b": 500}) {
		t.Errorf("Expected recipients {b:500}, got %v", l.Recipients)
	}
	if !l.Balanced() {
		t.Error("Expected balanced ledger")
	}
	if got := l.Summary(); got != "500 tokens surplus reallocated to b" {
		t.Errorf("Unexpected summary %q", got)
	}
}

func TestAggregate_DuplicatesAndImbalance(t *testing.T) {
	l := Aggregate([]window.ReallocationEvent{
		{ModuleID: "a", Type: window.Donor, Tokens: 300},
		{ModuleID: "c", Type: window.Donor, Tokens: 700},
		{ModuleID: "b", Type: window.Recipient, Tokens: 200},
		{ModuleID: "b", Type: window.Recipient, Tokens: 200},
		{ModuleID: "d", Type: window.Recipient, Tokens: 500},
		{ModuleID: "x", Type: "bogus", Tokens: 999},
	})

	if l.TotalSurplus != 1000 {
		t.Errorf("Expected surplus 1000, got %d", l.TotalSurplus)
	}
	if l.Recipients["b"] != 400 {
		t.Errorf("Expected duplicates summed to 400, got %d", l.Recipients["b"])
	}
	if l.Balanced() {
		t.Error("Expected imbalance to be reported, not corrected")
	}
	if got := l.RecipientIDs(); !reflect.DeepEqual(got, []window.ModuleID{"d", "b"}) {
		t.Errorf("Expected [d b], got %v", got)
	}
	if _, ok := l.Donors["x"]; ok {
		t.Error("Expected unknown event type to be ignored")
	}
}

func TestAggregate_Empty(t *testing.T) {
	l := Aggregate(nil)
	if l.TotalSurplus != 0 || len(l.Recipients) != 0 || len(l.Donors) != 0 {
		t.Errorf("Expected empty ledger, got %+v", l)
	}
	if l.Summary() != "" {
		t.Errorf("Expected empty summary, got %q", l.Summary())
	}
}
