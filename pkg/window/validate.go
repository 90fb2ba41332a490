package window

import (
	"fmt"
	"sort"
)

// Severity grades a validation issue.
type Severity string

const (
	// SeverityWarning marks a configuration the engine tolerates.
	SeverityWarning Severity = "warning"
	// SeverityError marks a configuration that will attribute or report wrongly.
	SeverityError Severity = "error"
)

// Issue is a single finding from Type.Validate.
type Issue struct {
	Severity Severity `json:"severity"`
	Field    string   `json:"field"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s: %s", i.Severity, i.Field, i.Message)
}

// Validate inspects the type and reports problems without failing.
// The engine reconciles any Type; this report exists for operators.
func (t *Type) Validate() []Issue {
	var issues []Issue
	add := func(sev Severity, field, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if t.Name == "" {
		add(SeverityError, "name", "name is required")
	}
	if t.OutputReservePct < 0 || t.OutputReservePct > 100 {
		add(SeverityError, "output_reserve_pct", "must be between 0 and 100, got %g", t.OutputReservePct)
	}

	ids := make([]ModuleID, 0, len(t.Modules))
	for id := range t.Modules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		m := t.Modules[id]
		if m.TargetPct < 0 || m.TargetPct > 100 {
			add(SeverityError, "modules."+id+".target_pct", "must be between 0 and 100, got %g", m.TargetPct)
		}
	}

	if total := t.ConfiguredPct() + t.OutputReservePct; total > 100 {
		add(SeverityWarning, "modules", "active targets plus output reserve sum to %.1f%%", total)
	}

	for i, r := range t.Rules {
		field := fmt.Sprintf("dynamic_adjustments[%d]", i)
		if r.Condition == "" {
			add(SeverityError, field+".condition", "condition is required")
		}
		if r.raw.keys() > 1 {
			add(SeverityWarning, field+".action", "multiple actions set, using %q", r.Action.Kind())
		}
		if r.raw.To != "" && r.raw.Transfer == "" {
			add(SeverityWarning, field+".action.to", "\"to\" is only used by transfer and is ignored")
		}
		if _, ok := r.Action.(Unrecognized); ok {
			add(SeverityError, field+".action", "no force_full, reduce, transfer or condense key")
			continue
		}
		for _, target := range Targets(r.Action) {
			if _, ok := t.Modules[target]; !ok {
				add(SeverityWarning, field+".action", "targets unknown module %q", target)
			}
		}
	}

	return issues
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}
