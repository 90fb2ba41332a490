package reconcile

import (
	"mercator-hq/cwlens/pkg/limit"
	"mercator-hq/cwlens/pkg/window"
)

// requiredModules are fixed modules every window type must budget for.
var requiredModules = map[window.ModuleID]bool{
	"system_prompt":        true,
	"conversation_history": true,
}

// IsRequired reports whether id is a fixed module.
func IsRequired(id window.ModuleID) bool {
	return requiredModules[id]
}

// Input holds everything one reconciliation needs.
type Input struct {
	// Window is the static configuration. Required.
	Window *window.Type

	// Profile is the active profile. Optional.
	Profile *window.Profile

	// Snapshot is the latest turn's runtime record, nil before the first turn.
	Snapshot *window.Snapshot

	// ModelLimit is the model capability. The snapshot's model limit takes
	// precedence when present. Zero means unknown.
	ModelLimit int

	// SessionOverride is the session's context limit override, if any.
	// When nil the snapshot's session override is used.
	SessionOverride *int
}

// View is the reconciled picture of configured versus actual budget.
type View struct {
	Window           string  `json:"window"`
	Description      string  `json:"description,omitempty"`
	ProfileID        string  `json:"profile_id,omitempty"`
	ProfileName      string  `json:"profile_name,omitempty"`
	OutputReservePct float64 `json:"output_reserve_pct"`
	ConfiguredPct    float64 `json:"configured_pct"`

	Limit   limit.EffectiveLimit `json:"limit"`
	Modules []ModuleView         `json:"modules"`

	// Totals is nil until a snapshot is available.
	Totals *Totals `json:"totals,omitempty"`
}

// ModuleView is one module's configured and actual figures.
type ModuleView struct {
	ID        window.ModuleID `json:"id"`
	TargetPct float64         `json:"target_pct"`
	Priority  int             `json:"priority"`
	Active    bool            `json:"active"`
	Required  bool            `json:"required"`

	// Status is empty until a snapshot is available.
	Status Status `json:"status,omitempty"`

	// Usage is nil when no contribution exists for the module.
	Usage *Usage `json:"usage,omitempty"`

	AdjustmentTags []string      `json:"adjustment_tags,omitempty"`
	Reallocation   *Reallocation `json:"reallocation,omitempty"`
	Condensation   *Condensation `json:"condensation,omitempty"`
}

// Usage holds a module's runtime figures for the turn.
type Usage struct {
	Allocated int     `json:"allocated"`
	Used      int     `json:"used"`
	AllocPct  float64 `json:"alloc_pct"`
	DeltaPct  float64 `json:"delta_pct"`
	UtilPct   float64 `json:"util_pct"`
	UtilBand  Band    `json:"util_band"`

	// UtilBarPct is UtilPct capped at 100 for bar widths. The numeric
	// UtilPct is reported uncapped.
	UtilBarPct float64 `json:"util_bar_pct"`
	Condensed  bool    `json:"condensed"`
}

// Reallocation holds the tokens a module gained or donated this turn.
type Reallocation struct {
	Gained  *int `json:"gained,omitempty"`
	Donated *int `json:"donated,omitempty"`
}

// Condensation aggregates the condensation events of one module.
type Condensation struct {
	Strategies []string `json:"strategies"`
	Before     int      `json:"before"`
	After      int      `json:"after"`
	Saved      int      `json:"saved"`
}

// Totals aggregates the turn across modules.
type Totals struct {
	TurnNumber     int     `json:"turn_number"`
	TotalUsed      int     `json:"total_used"`
	TotalAvailable int     `json:"total_available"`
	TotalPct       float64 `json:"total_pct"`
	Utilization    string  `json:"utilization"`

	Adjustments AdjustmentSummary `json:"adjustment_summary"`

	CondensationCount int `json:"condensation_count"`
	DistillationCount int `json:"distillation_count"`
	DistilledRows     int `json:"distilled_rows"`
	RecipientCount    int `json:"recipient_count"`

	Ledger           Ledger            `json:"ledger"`
	ReallocationNote string            `json:"reallocation_note,omitempty"`
	UnknownModules   []window.ModuleID `json:"unknown_modules,omitempty"`
}

// Reconcile builds the View for in. It is pure and deterministic.
// A nil Window yields an empty View with only the resolved limit.
func Reconcile(in Input) *View {
	view := &View{
		Limit:   resolveLimit(in),
		Modules: []ModuleView{},
	}
	if in.Profile != nil {
		view.ProfileID = in.Profile.ID
		view.ProfileName = in.Profile.Name
	}
	if in.Window == nil {
		return view
	}

	wt := in.Window
	view.Window = wt.Name
	view.Description = wt.Description
	view.OutputReservePct = wt.OutputReservePct
	view.ConfiguredPct = wt.ConfiguredPct()

	for _, id := range wt.ModuleIDs() {
		m := wt.Modules[id]
		view.Modules = append(view.Modules, ModuleView{
			ID:        id,
			TargetPct: m.TargetPct,
			Priority:  m.Priority,
			Active:    m.Active,
			Required:  IsRequired(id),
		})
	}

	snap := in.Snapshot
	if snap == nil {
		return view
	}

	normalized := Normalize(wt, snap)
	tags := Attribute(wt.Rules, snap.Fired)
	ledger := Aggregate(snap.Reallocations)
	condensations := groupCondensations(snap.Condensations)

	for i := range view.Modules {
		mv := &view.Modules[i]
		if !mv.Active {
			mv.Status = StatusInactive
		} else if n, ok := normalized[mv.ID]; ok {
			mv.Status = n.Status
			if n.Status != StatusNotApplicable {
				mv.Usage = &Usage{
					Allocated:  n.Allocated,
					Used:       n.Used,
					AllocPct:   n.AllocPct,
					DeltaPct:   n.DeltaPct,
					UtilPct:    n.UtilPct,
					UtilBand:   n.Band,
					UtilBarPct: min(n.UtilPct, 100),
					Condensed:  n.Condensed,
				}
			}
		}

		if t := tags[mv.ID]; len(t) > 0 {
			mv.AdjustmentTags = append([]string{}, t...)
		}
		mv.Reallocation = moduleReallocation(ledger, mv.ID)
		mv.Condensation = condensations[mv.ID]
	}

	view.Totals = &Totals{
		TurnNumber:        snap.TurnNumber,
		TotalUsed:         snap.Budget.Used,
		TotalAvailable:    snap.Budget.Available,
		TotalPct:          Percent(snap.Budget.Used, snap.Budget.Available),
		Utilization:       FormatPercent(Percent(snap.Budget.Used, snap.Budget.Available)),
		Adjustments:       summarizeAdjustments(wt.Rules, snap.Fired),
		CondensationCount: len(snap.Condensations),
		DistillationCount: len(snap.Distillations),
		DistilledRows:     distilledRows(snap.Distillations),
		RecipientCount:    len(ledger.Recipients),
		Ledger:            ledger,
		ReallocationNote:  ledger.Summary(),
		UnknownModules:    unknownModules(wt, snap),
	}

	return view
}

// resolveLimit applies the override hierarchy using the freshest source for
// each tier.
func resolveLimit(in Input) limit.EffectiveLimit {
	modelLimit := in.ModelLimit
	var profileOverride, sessionOverride *int

	if in.Profile != nil {
		profileOverride = in.Profile.ContextLimitOverride
	}
	sessionOverride = in.SessionOverride

	if snap := in.Snapshot; snap != nil {
		if snap.Budget.ModelLimit > 0 {
			modelLimit = snap.Budget.ModelLimit
		}
		if profileOverride == nil {
			profileOverride = snap.Budget.ContextLimitOverride
		}
		if sessionOverride == nil {
			sessionOverride = snap.Budget.SessionContextLimitOverride
		}
	}

	return limit.Resolve(modelLimit, profileOverride, sessionOverride)
}

func moduleReallocation(l Ledger, id window.ModuleID) *Reallocation {
	gained, isRecipient := l.Recipients[id]
	donated, isDonor := l.Donors[id]
	if !isRecipient && !isDonor {
		return nil
	}

	r := &Reallocation{}
	if isRecipient {
		r.Gained = &gained
	}
	if isDonor {
		r.Donated = &donated
	}
	return r
}

func groupCondensations(events []window.CondensationEvent) map[window.ModuleID]*Condensation {
	out := make(map[window.ModuleID]*Condensation)
	for _, e := range events {
		c, ok := out[e.ModuleID]
		if !ok {
			c = &Condensation{}
			out[e.ModuleID] = c
		}
		c.Strategies = append(c.Strategies, e.Strategy)
		c.Before += e.Before
		c.After += e.After
		c.Saved = c.Before - c.After
	}
	return out
}

func distilledRows(events []window.DistillationEvent) int {
	var rows int
	for _, e := range events {
		rows += e.RowCount
	}
	return rows
}
