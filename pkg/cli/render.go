package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"mercator-hq/cwlens/pkg/controller"
	"mercator-hq/cwlens/pkg/journal"
	"mercator-hq/cwlens/pkg/reconcile"
	"mercator-hq/cwlens/pkg/window"
)

// HistoryReport is one session's journal with any turn-order findings.
type HistoryReport struct {
	SessionID   string               `json:"session_id"`
	Entries     []*journal.Entry     `json:"entries"`
	OrderIssues []journal.OrderIssue `json:"order_issues,omitempty"`
}

// ValidationReport lists the findings for one window type file.
type ValidationReport struct {
	Path   string         `json:"path"`
	Window string         `json:"window"`
	Issues []window.Issue `json:"issues"`
}

// HasErrors reports whether any finding has error severity.
func (r ValidationReport) HasErrors() bool {
	return window.HasErrors(r.Issues)
}

func renderer(data any) (func(io.Writer) error, bool) {
	switch v := data.(type) {
	case *reconcile.View:
		return func(w io.Writer) error { return RenderView(w, v) }, true
	case *controller.Status:
		return func(w io.Writer) error { return RenderStatus(w, v) }, true
	case []journal.SessionSummary:
		return func(w io.Writer) error { return renderSessions(w, v) }, true
	case *HistoryReport:
		return func(w io.Writer) error { return renderHistory(w, v) }, true
	case []ValidationReport:
		return func(w io.Writer) error { return renderValidation(w, v) }, true
	}
	return nil, false
}

// RenderStatus writes a session status, including its view when present.
func RenderStatus(w io.Writer, st *controller.Status) error {
	if st == nil {
		_, err := fmt.Fprintln(w, "no status")
		return err
	}
	session := st.SessionID
	if session == "" {
		session = "(none)"
	}
	fmt.Fprintf(w, "Session: %s  State: %s\n", session, st.State)
	if st.Guidance != "" {
		fmt.Fprintf(w, "Guidance: %s\n", st.Guidance)
	}
	if len(st.Profiles) > 0 {
		names := make([]string, 0, len(st.Profiles))
		for _, p := range st.Profiles {
			label := p.Name
			if p.ID == st.ProfileID {
				label = "*" + label
			}
			if p.IsDefault {
				label += " (default)"
			}
			names = append(names, label)
		}
		fmt.Fprintf(w, "Profiles: %s\n", strings.Join(names, ", "))
	}
	if st.View == nil {
		return nil
	}
	fmt.Fprintln(w)
	return RenderView(w, st.View)
}

// RenderView writes a reconciled view as a header, a module table, and a
// turn summary.
func RenderView(w io.Writer, v *reconcile.View) error {
	header := v.Window
	if header == "" {
		header = "(no window type)"
	}
	if v.ProfileName != "" {
		header += "  profile " + v.ProfileName
	}
	fmt.Fprintf(w, "Window: %s\n", header)
	if v.Description != "" {
		fmt.Fprintf(w, "  %s\n", v.Description)
	}

	lim := fmt.Sprintf("Limit: %d tokens (%s", v.Limit.Tokens, v.Limit.Source)
	if v.Limit.Clamped {
		lim += ", clamped"
	}
	lim += fmt.Sprintf(")  model %d  default %d", v.Limit.ModelLimit, v.Limit.Default)
	fmt.Fprintln(w, lim)
	fmt.Fprintf(w, "Output reserve: %s  Configured: %s\n",
		reconcile.FormatPercent(v.OutputReservePct), reconcile.FormatPercent(v.ConfiguredPct))

	if len(v.Modules) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "MODULE\tTARGET\tPRIO\tSTATUS\tALLOC\tUSED\tALLOC%\tDELTA\tUTIL\tNOTES")
		for _, m := range v.Modules {
			writeModuleRow(tw, m)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if v.Totals == nil {
		_, err := fmt.Fprintln(w, "\nNo snapshot yet.")
		return err
	}
	return renderTotals(w, v.Totals)
}

func writeModuleRow(w io.Writer, m reconcile.ModuleView) {
	status := string(m.Status)
	switch {
	case !m.Active:
		status = string(reconcile.StatusInactive)
	case status == "":
		status = "-"
	}

	alloc, used, allocPct, delta, util := "-", "-", "-", "-", "-"
	if u := m.Usage; u != nil {
		alloc = fmt.Sprint(u.Allocated)
		used = fmt.Sprint(u.Used)
		allocPct = reconcile.FormatPercent(u.AllocPct)
		delta = fmt.Sprintf("%+.1f", u.DeltaPct)
		util = fmt.Sprintf("%s %s", reconcile.FormatPercent(u.UtilPct), u.UtilBand)
	}

	var notes []string
	if m.Required {
		notes = append(notes, "required")
	}
	notes = append(notes, m.AdjustmentTags...)
	if r := m.Reallocation; r != nil {
		if r.Gained != nil {
			notes = append(notes, fmt.Sprintf("+%d reallocated", *r.Gained))
		}
		if r.Donated != nil {
			notes = append(notes, fmt.Sprintf("-%d donated", *r.Donated))
		}
	}
	if c := m.Condensation; c != nil {
		notes = append(notes, fmt.Sprintf("condensed %d->%d (%s)", c.Before, c.After, strings.Join(c.Strategies, "+")))
	}

	fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		m.ID, reconcile.FormatPercent(m.TargetPct), m.Priority, status,
		alloc, used, allocPct, delta, util, strings.Join(notes, ", "))
}

func renderTotals(w io.Writer, t *reconcile.Totals) error {
	fmt.Fprintf(w, "\nTurn %d: %d / %d tokens (%s)\n", t.TurnNumber, t.TotalUsed, t.TotalAvailable, t.Utilization)

	adj := t.Adjustments
	if len(adj.Fired) > 0 {
		fmt.Fprintf(w, "Adjustments: %s (%d matched)\n", strings.Join(adj.Fired, ", "), adj.RulesMatched)
		if len(adj.Unconfigured) > 0 {
			fmt.Fprintf(w, "  unconfigured: %s\n", strings.Join(adj.Unconfigured, ", "))
		}
	}
	fmt.Fprintf(w, "Condensations: %d  Distillations: %d (%d rows)  Recipients: %d\n",
		t.CondensationCount, t.DistillationCount, t.DistilledRows, t.RecipientCount)

	if t.Ledger.TotalSurplus > 0 || len(t.Ledger.Recipients) > 0 {
		fmt.Fprintf(w, "Reallocated: %d tokens\n", t.Ledger.TotalSurplus)
	}
	if t.ReallocationNote != "" {
		fmt.Fprintf(w, "  note: %s\n", t.ReallocationNote)
	}
	if len(t.UnknownModules) > 0 {
		ids := make([]string, len(t.UnknownModules))
		for i, id := range t.UnknownModules {
			ids[i] = string(id)
		}
		fmt.Fprintf(w, "Unknown modules: %s\n", strings.Join(ids, ", "))
	}
	return nil
}

func renderSessions(w io.Writer, sessions []journal.SessionSummary) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No recorded sessions.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tENTRIES\tLAST TURN\tFIRST\tLAST")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n",
			s.SessionID, s.Entries, s.LastTurn, s.FirstAt.Format(time.RFC3339), s.LastAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func renderHistory(w io.Writer, h *HistoryReport) error {
	fmt.Fprintf(w, "Session: %s  Entries: %d\n", h.SessionID, len(h.Entries))
	if len(h.Entries) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTURN\tPROFILE\tUSED\tAVAILABLE\tRECORDED\tFLAGS")
		for _, e := range h.Entries {
			used, avail := 0, 0
			if e.Snapshot != nil {
				used, avail = e.Snapshot.Budget.Used, e.Snapshot.Budget.Available
			}
			flags := ""
			if e.OutOfOrder {
				flags = "out-of-order"
			}
			fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%d\t%s\t%s\n",
				e.ID, e.TurnNumber, e.ProfileID, used, avail, e.RecordedAt.Format(time.RFC3339), flags)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	for _, issue := range h.OrderIssues {
		fmt.Fprintf(w, "entry %d: turn %d follows turn %d\n", issue.EntryID, issue.Turn, issue.Previous)
	}
	return nil
}

func renderValidation(w io.Writer, reports []ValidationReport) error {
	sorted := append([]ValidationReport(nil), reports...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	for _, r := range sorted {
		if len(r.Issues) == 0 {
			fmt.Fprintf(w, "✓ %s (%s)\n", r.Path, r.Window)
			continue
		}
		mark := "!"
		if r.HasErrors() {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s (%s)\n", mark, r.Path, r.Window)
		for _, issue := range r.Issues {
			fmt.Fprintf(w, "    %s\n", issue)
		}
	}
	return nil
}
