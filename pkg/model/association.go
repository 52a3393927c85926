package model

import (
	"fmt"
	"strings"
)

// Direction is the direction of an association relative to its owner.
type Direction string

const (
	DirOut  Direction = "out"
	DirIn   Direction = "in"
	DirBoth Direction = "both"
)

// Association describes a has-one or has-many relation between models.
type Association struct {
	Name      string
	Direction Direction
	// Type is the relationship type; empty matches any type.
	Type   string
	Unique bool
	// Targets are the target models. More than one makes the association
	// polymorphic; none matches any node.
	Targets []*Model
	// NoTargetFilter disables label filtering on the target and association
	// expansion in where conditions.
	NoTargetFilter bool
	// RelModel types the relationship objects returned for this association.
	RelModel *RelModel

	// Before runs before a relationship is created; returning false vetoes it.
	Before func(from, to *Node) bool
	After  func(from, to *Node)

	owner *Model
}

// Owner returns the model that declares the association.
func (a *Association) Owner() *Model { return a.owner }

// ArrowCypher renders the relationship part of a pattern, such as
// "-[rel0:FRIEND]->". When create is set a direction and a type are
// required: undirected associations are created outgoing.
func (a *Association) ArrowCypher(relVar string, create bool) (string, error) {
	inner := relVar
	if a.Type != "" {
		inner += ":" + a.Type
	} else if create {
		return "", fmt.Errorf("association %s has no relationship type", a.Name)
	}
	rel := ""
	if inner != "" {
		rel = "[" + inner + "]"
	}

	dir := a.Direction
	if create && dir == DirBoth {
		dir = DirOut
	}
	switch dir {
	case DirOut:
		return "-" + rel + "->", nil
	case DirIn:
		return "<-" + rel + "-", nil
	default:
		return "-" + rel + "-", nil
	}
}

// TargetModel returns the single target model, or nil when the association
// is untargeted or polymorphic.
func (a *Association) TargetModel() *Model {
	if len(a.Targets) != 1 {
		return nil
	}
	return a.Targets[0]
}

// Polymorphic reports whether the association has more than one target.
func (a *Association) Polymorphic() bool { return len(a.Targets) > 1 }

// TargetLabels renders the label filter of the target node pattern.
func (a *Association) TargetLabels() string {
	if a.NoTargetFilter || a.Polymorphic() {
		return ""
	}
	if t := a.TargetModel(); t != nil {
		return t.LabelPattern()
	}
	return ""
}

// TargetWhere renders a label filter for a polymorphic target bound to v,
// e.g. "(v:Person OR v:Robot)". It is empty when no filter applies.
func (a *Association) TargetWhere(v string) string {
	if a.NoTargetFilter || !a.Polymorphic() {
		return ""
	}
	alts := make([]string, len(a.Targets))
	for i, t := range a.Targets {
		alts[i] = v + t.LabelPattern()
	}
	return "(" + strings.Join(alts, " OR ") + ")"
}

// ModelFor picks the target model matching labels. It falls back to the
// first target.
func (a *Association) ModelFor(labels []string) *Model {
	for _, t := range a.Targets {
		if t.MatchesLabels(labels) {
			return t
		}
	}
	if len(a.Targets) > 0 {
		return a.Targets[0]
	}
	return nil
}

// RunBefore runs the before callback; a missing callback never vetoes.
func (a *Association) RunBefore(from, to *Node) bool {
	if a.Before == nil {
		return true
	}
	return a.Before(from, to)
}

// RunAfter runs the after callback, if any.
func (a *Association) RunAfter(from, to *Node) {
	if a.After != nil {
		a.After(from, to)
	}
}
