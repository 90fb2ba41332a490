package window

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Action is the closed set of adjustment actions a rule can carry.
// The variants are ForceFull, Reduce, Transfer, Condense and Unrecognized.
type Action interface {
	// Kind returns the wire key of the action ("force_full", "reduce", ...).
	Kind() string

	isAction()
}

// ForceFull keeps Module at its full allocation.
type ForceFull struct{ Module ModuleID }

// Reduce shrinks Module's allocation.
type Reduce struct{ Module ModuleID }

// Transfer moves budget from one module to another.
type Transfer struct {
	From ModuleID
	To   ModuleID
}

// Condense compresses Module's content to fit its allocation.
type Condense struct{ Module ModuleID }

// Unrecognized is an action carrying none of the known keys.
type Unrecognized struct{}

func (ForceFull) Kind() string    { return "force_full" }
func (Reduce) Kind() string       { return "reduce" }
func (Transfer) Kind() string     { return "transfer" }
func (Condense) Kind() string     { return "condense" }
func (Unrecognized) Kind() string { return "unrecognized" }

func (ForceFull) isAction()    {}
func (Reduce) isAction()       {}
func (Transfer) isAction()     {}
func (Condense) isAction()     {}
func (Unrecognized) isAction() {}

// rawAction is the wire shape of an action.
type rawAction struct {
	ForceFull string `json:"force_full,omitempty" yaml:"force_full,omitempty"`
	Reduce    string `json:"reduce,omitempty" yaml:"reduce,omitempty"`
	Transfer  string `json:"transfer,omitempty" yaml:"transfer,omitempty"`
	Condense  string `json:"condense,omitempty" yaml:"condense,omitempty"`
	To        string `json:"to,omitempty" yaml:"to,omitempty"`
}

// keys returns how many primary keys are set.
func (r rawAction) keys() int {
	n := 0
	for _, v := range []string{r.ForceFull, r.Reduce, r.Transfer, r.Condense} {
		if v != "" {
			n++
		}
	}
	return n
}

// toAction converts the wire shape into a variant. When several primary keys
// are present the first of force_full, reduce, transfer, condense wins.
// A "to" without "transfer" is dropped; Type.Validate reports both cases.
func (r rawAction) toAction() Action {
	switch {
	case r.ForceFull != "":
		return ForceFull{Module: r.ForceFull}
	case r.Reduce != "":
		return Reduce{Module: r.Reduce}
	case r.Transfer != "":
		return Transfer{From: r.Transfer, To: r.To}
	case r.Condense != "":
		return Condense{Module: r.Condense}
	default:
		return Unrecognized{}
	}
}

func fromAction(a Action) rawAction {
	switch a := a.(type) {
	case ForceFull:
		return rawAction{ForceFull: a.Module}
	case Reduce:
		return rawAction{Reduce: a.Module}
	case Transfer:
		return rawAction{Transfer: a.From, To: a.To}
	case Condense:
		return rawAction{Condense: a.Module}
	default:
		return rawAction{}
	}
}

// wireRule is the wire shape of a rule.
type wireRule struct {
	Condition string    `json:"condition" yaml:"condition"`
	Action    rawAction `json:"action" yaml:"action"`
}

// UnmarshalJSON decodes the wire action object into an Action variant.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var w wireRule
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.Condition = w.Condition
	r.Action = w.Action.toAction()
	r.raw = w.Action
	return nil
}

// MarshalJSON encodes the rule back into its wire shape.
func (r Rule) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireRule{Condition: r.Condition, Action: fromAction(r.Action)})
}

// UnmarshalYAML decodes the wire action mapping into an Action variant.
func (r *Rule) UnmarshalYAML(node *yaml.Node) error {
	var w wireRule
	if err := node.Decode(&w); err != nil {
		return err
	}
	r.Condition = w.Condition
	r.Action = w.Action.toAction()
	r.raw = w.Action
	return nil
}

// MarshalYAML encodes the rule back into its wire shape.
func (r Rule) MarshalYAML() (interface{}, error) {
	return wireRule{Condition: r.Condition, Action: fromAction(r.Action)}, nil
}

// Targets returns the distinct modules an action affects: the primary module
// first, then the transfer destination when present. Empty ids are skipped.
func Targets(a Action) []ModuleID {
	switch a := a.(type) {
	case ForceFull:
		return nonEmpty(a.Module)
	case Reduce:
		return nonEmpty(a.Module)
	case Condense:
		return nonEmpty(a.Module)
	case Transfer:
		if a.To == "" || a.To == a.From {
			return nonEmpty(a.From)
		}
		return append(nonEmpty(a.From), a.To)
	case Unrecognized:
		return nil
	default:
		return nil
	}
}

func nonEmpty(id ModuleID) []ModuleID {
	if id == "" {
		return nil
	}
	return []ModuleID{id}
}
