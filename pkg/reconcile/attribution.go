package reconcile

import "mercator-hq/cwlens/pkg/window"

// Attribute maps each fired rule's condition onto the modules its action
// targets.
//
// A rule fires when its condition appears verbatim in fired. The primary
// module of the action receives the condition as a tag, and a transfer's
// destination receives the same tag too. Tags keep rule evaluation order and
// are not deduplicated across rules: two rules sharing a condition are two
// configured facts and show up twice.
//
// The result is never nil.
func Attribute(rules []window.Rule, fired []string) map[window.ModuleID][]string {
	out := make(map[window.ModuleID][]string)
	if len(rules) == 0 || len(fired) == 0 {
		return out
	}

	firedSet := make(map[string]struct{}, len(fired))
	for _, c := range fired {
		firedSet[c] = struct{}{}
	}

	for _, r := range rules {
		if _, ok := firedSet[r.Condition]; !ok {
			continue
		}
		for _, id := range window.Targets(r.Action) {
			out[id] = append(out[id], r.Condition)
		}
	}

	return out
}

// AdjustmentSummary describes which fired conditions the configuration
// explains.
type AdjustmentSummary struct {
	// Fired is the snapshot's fired condition list, in order.
	Fired []string `json:"fired"`

	// RulesMatched counts configured rules whose condition fired.
	RulesMatched int `json:"rules_matched"`

	// Unconfigured lists fired conditions that match no configured rule.
	Unconfigured []string `json:"unconfigured,omitempty"`
}

func summarizeAdjustments(rules []window.Rule, fired []string) AdjustmentSummary {
	summary := AdjustmentSummary{Fired: append([]string{}, fired...)}

	firedSet := make(map[string]struct{}, len(fired))
	for _, c := range fired {
		firedSet[c] = struct{}{}
	}

	configured := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		configured[r.Condition] = struct{}{}
		if _, ok := firedSet[r.Condition]; ok {
			summary.RulesMatched++
		}
	}

	seen := make(map[string]bool)
	for _, c := range fired {
		if _, ok := configured[c]; ok || seen[c] {
			continue
		}
		seen[c] = true
		summary.Unconfigured = append(summary.Unconfigured, c)
	}

	return summary
}
