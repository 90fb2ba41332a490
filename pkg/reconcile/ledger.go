package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"mercator-hq/cwlens/pkg/window"
)

// Ledger summarizes the reallocation events of one turn.
type Ledger struct {
	// TotalSurplus is the sum of donor tokens.
	TotalSurplus int `json:"total_surplus"`

	// Recipients maps module id to tokens received.
	Recipients map[window.ModuleID]int `json:"recipients"`

	// Donors maps module id to tokens given up.
	Donors map[window.ModuleID]int `json:"donors"`
}

// Aggregate sums reallocation events into a ledger. Duplicate events for a
// module are summed and events of unknown type are ignored. Nothing here
// requires TotalSurplus to equal the recipients' total; see Balanced.
func Aggregate(events []window.ReallocationEvent) Ledger {
	l := Ledger{
		Recipients: make(map[window.ModuleID]int),
		Donors:     make(map[window.ModuleID]int),
	}

	for _, e := range events {
		switch e.Type {
		case window.Donor:
			l.TotalSurplus += e.Tokens
			l.Donors[e.ModuleID] += e.Tokens
		case window.Recipient:
			l.Recipients[e.ModuleID] += e.Tokens
		}
	}

	return l
}

// Received returns the total tokens credited to recipients.
func (l Ledger) Received() int {
	var sum int
	for _, v := range l.Recipients {
		sum += v
	}
	return sum
}

// Balanced reports whether donated surplus equals received tokens. Correct
// upstream data is balanced, but the ledger does not enforce it.
func (l Ledger) Balanced() bool {
	return l.TotalSurplus == l.Received()
}

// RecipientIDs returns recipient module ids sorted by tokens received
// (descending), then id.
func (l Ledger) RecipientIDs() []window.ModuleID {
	ids := make([]window.ModuleID, 0, len(l.Recipients))
	for id := range l.Recipients {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if l.Recipients[ids[i]] != l.Recipients[ids[j]] {
			return l.Recipients[ids[i]] > l.Recipients[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}

// Summary renders "N tokens surplus reallocated to a, b". It returns an
// empty string when there was no surplus.
func (l Ledger) Summary() string {
	if l.TotalSurplus == 0 {
		return ""
	}
	ids := l.RecipientIDs()
	if len(ids) == 0 {
		return fmt.Sprintf("%d tokens surplus, no recipients", l.TotalSurplus)
	}
	return fmt.Sprintf("%d tokens surplus reallocated to %s", l.TotalSurplus, strings.Join(ids, ", "))
}
