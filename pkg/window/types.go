package window

import "sort"

// ModuleID identifies a module inside a context window type (e.g. "system_prompt").
type ModuleID = string

// Default values applied when a field is absent from the wire.
const (
	// DefaultPriority is the priority of a module that does not declare one.
	DefaultPriority = 50

	// DefaultOutputReservePct is the share of the window reserved for output.
	DefaultOutputReservePct = 12.0
)

// Module is a named category of content competing for a share of the budget.
type Module struct {
	// Active controls whether the module takes part in budgeting.
	Active bool `json:"active" yaml:"active"`

	// TargetPct is the configured share of the input budget (0-100).
	TargetPct float64 `json:"target_pct" yaml:"target_pct"`

	// Priority orders modules when competing for budget. Higher wins.
	Priority int `json:"priority" yaml:"priority"`
}

// Type is a context window type: the static budget configuration bound to a
// profile.
type Type struct {
	Name             string              `json:"name" yaml:"name"`
	Description      string              `json:"description" yaml:"description"`
	OutputReservePct float64             `json:"output_reserve_pct" yaml:"output_reserve_pct"`
	Modules          map[ModuleID]Module `json:"modules" yaml:"modules"`
	Rules            []Rule              `json:"dynamic_adjustments" yaml:"dynamic_adjustments"`
}

// ApplyDefaults fills in fields the configuration service may omit.
// Modules that leave priority unset get DefaultPriority.
func (t *Type) ApplyDefaults() {
	if t.OutputReservePct == 0 {
		t.OutputReservePct = DefaultOutputReservePct
	}
	for id, m := range t.Modules {
		if m.Priority == 0 {
			m.Priority = DefaultPriority
			t.Modules[id] = m
		}
	}
}

// ModuleIDs returns the module ids ordered by descending priority, then id.
func (t *Type) ModuleIDs() []ModuleID {
	ids := make([]ModuleID, 0, len(t.Modules))
	for id := range t.Modules {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		pi, pj := t.Modules[ids[i]].Priority, t.Modules[ids[j]].Priority
		if pi != pj {
			return pi > pj
		}
		return ids[i] < ids[j]
	})
	return ids
}

// ConfiguredPct returns the sum of active modules' target percentages.
// The result may exceed 100; nothing here treats that as an error.
func (t *Type) ConfiguredPct() float64 {
	var sum float64
	for _, m := range t.Modules {
		if m.Active {
			sum += m.TargetPct
		}
	}
	return sum
}

// Rule is a dynamic adjustment rule: when Condition fires, Action names the
// module(s) the planner adjusted.
type Rule struct {
	Condition string
	Action    Action

	// raw is the decoded wire action, kept for validation.
	raw rawAction
}

// Profile is a user profile as served by the upstream profile service.
type Profile struct {
	ID                   string `json:"id" yaml:"id"`
	Name                 string `json:"name" yaml:"name"`
	IsDefault            bool   `json:"is_default" yaml:"is_default"`
	WindowTypeID         string `json:"contextWindowTypeId" yaml:"context_window_type_id"`
	ContextLimitOverride *int   `json:"contextLimitOverride" yaml:"context_limit_override"`
	LLMConfigurationID   string `json:"llmConfigurationId" yaml:"llm_configuration_id"`
}

// Budget holds the turn-level token budget facts.
type Budget struct {
	Available                   int  `json:"available"`
	Used                        int  `json:"used"`
	ModelLimit                  int  `json:"model_limit"`
	ContextLimitOverride        *int `json:"context_limit_override,omitempty"`
	SessionContextLimitOverride *int `json:"session_context_limit_override,omitempty"`
}

// Contribution is one module's allocation and usage for a turn.
// Used is expected to be at most Allocated but that is not enforced.
type Contribution struct {
	ModuleID  ModuleID `json:"module_id"`
	Allocated int      `json:"allocated"`
	Used      int      `json:"used"`
	Condensed bool     `json:"condensed"`
}

// ReallocationType distinguishes the two sides of a surplus transfer.
type ReallocationType string

const (
	// Donor modules gave up unused budget.
	Donor ReallocationType = "donor"
	// Recipient modules received surplus budget.
	Recipient ReallocationType = "recipient"
)

// ReallocationEvent records one side of a surplus redistribution.
type ReallocationEvent struct {
	ModuleID ModuleID         `json:"module_id"`
	Type     ReallocationType `json:"type"`
	Tokens   int              `json:"tokens"`
}

// CondensationEvent records a lossy compression applied to a module.
type CondensationEvent struct {
	ModuleID ModuleID `json:"module_id"`
	Strategy string   `json:"strategy"`
	Before   int      `json:"before"`
	After    int      `json:"after"`
}

// DistillationEvent records tabular data reduced to metadata only.
type DistillationEvent struct {
	RowCount int `json:"row_count"`
}

// Snapshot is the runtime record of one completed turn.
type Snapshot struct {
	TurnNumber    int                 `json:"turn_number"`
	Budget        Budget              `json:"budget"`
	Contributions []Contribution      `json:"contributions"`
	Fired         []string            `json:"dynamic_adjustments"`
	Condensations []CondensationEvent `json:"condensations"`
	Distillations []DistillationEvent `json:"distillation_events"`
	Reallocations []ReallocationEvent `json:"reallocation_events"`
}
