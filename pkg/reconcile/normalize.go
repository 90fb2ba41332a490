package reconcile

import "mercator-hq/cwlens/pkg/window"

// Status classifies a module for display. It is not a budget decision.
type Status string

const (
	// StatusContributing means the module used tokens this turn.
	StatusContributing Status = "contributing"
	// StatusIdle means the module is allocated but used nothing.
	StatusIdle Status = "idle"
	// StatusNotApplicable means the module is configured and active but the
	// snapshot has no contribution for it, typically because the current
	// profile type skips it. It is distinct from zero usage.
	StatusNotApplicable Status = "not_applicable"
	// StatusInactive means the module is switched off in configuration.
	StatusInactive Status = "inactive"
)

// Band classifies utilization: low up to 50, medium up to 80, high above.
type Band string

const (
	BandLow    Band = "low"
	BandMedium Band = "medium"
	BandHigh   Band = "high"
)

// UtilBand returns the band for a utilization percentage.
// 50 is low, 80 is medium, anything above 80 is high.
func UtilBand(utilPct float64) Band {
	switch {
	case utilPct > 80:
		return BandHigh
	case utilPct > 50:
		return BandMedium
	default:
		return BandLow
	}
}

// Normalized is one active module's contribution expressed against the
// turn's budget and its configured target.
type Normalized struct {
	ModuleID  window.ModuleID
	Status    Status
	TargetPct float64
	Allocated int
	Used      int
	Condensed bool

	// AllocPct is Allocated as a share of the available budget.
	AllocPct float64
	// DeltaPct is Round1(AllocPct) - TargetPct. Positive means over target.
	DeltaPct float64
	// UtilPct is Used as a share of Allocated. It is not capped at 100.
	UtilPct float64
	Band    Band
}

// Normalize computes per-module figures for every active module in wt.
// It returns nil when snap is nil.
//
// A snapshot without an available budget is treated as malformed: its
// modules report zero allocation and zero utilization.
func Normalize(wt *window.Type, snap *window.Snapshot) map[window.ModuleID]Normalized {
	if wt == nil || snap == nil {
		return nil
	}

	byModule := make(map[window.ModuleID]window.Contribution, len(snap.Contributions))
	for _, c := range snap.Contributions {
		byModule[c.ModuleID] = c
	}

	available := snap.Budget.Available
	out := make(map[window.ModuleID]Normalized, len(wt.Modules))
	for id, m := range wt.Modules {
		if !m.Active {
			continue
		}

		c, ok := byModule[id]
		if !ok {
			out[id] = Normalized{
				ModuleID:  id,
				Status:    StatusNotApplicable,
				TargetPct: m.TargetPct,
			}
			continue
		}

		allocPct := Percent(c.Allocated, available)
		utilPct := 0.0
		if available > 0 {
			utilPct = Percent(c.Used, c.Allocated)
		}
		status := StatusIdle
		if c.Used > 0 {
			status = StatusContributing
		}

		out[id] = Normalized{
			ModuleID:  id,
			Status:    status,
			TargetPct: m.TargetPct,
			Allocated: c.Allocated,
			Used:      c.Used,
			Condensed: c.Condensed,
			AllocPct:  allocPct,
			DeltaPct:  Round1(allocPct) - m.TargetPct,
			UtilPct:   utilPct,
			Band:      UtilBand(utilPct),
		}
	}

	return out
}

// unknownModules returns contribution ids absent from wt, in snapshot order.
func unknownModules(wt *window.Type, snap *window.Snapshot) []window.ModuleID {
	var out []window.ModuleID
	seen := make(map[window.ModuleID]bool)
	for _, c := range snap.Contributions {
		if _, ok := wt.Modules[c.ModuleID]; ok || seen[c.ModuleID] {
			continue
		}
		seen[c.ModuleID] = true
		out = append(out, c.ModuleID)
	}
	return out
}
