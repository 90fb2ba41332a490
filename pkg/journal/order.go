package journal

// OrderIssue marks an entry whose turn number is lower than the one
// applied before it.
type OrderIssue struct {
	EntryID  int64 `json:"entry_id"`
	Previous int   `json:"previous_turn"`
	Turn     int   `json:"turn"`
}

// CheckTurnOrder scans one session's entries in append order.
func CheckTurnOrder(entries []*Entry) []OrderIssue {
	var issues []OrderIssue
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1].TurnNumber, entries[i].TurnNumber
		if cur < prev {
			issues = append(issues, OrderIssue{EntryID: entries[i].ID, Previous: prev, Turn: cur})
		}
	}
	return issues
}
