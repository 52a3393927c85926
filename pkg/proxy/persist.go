package proxy

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/maraichr/neogm/pkg/apierr"
	"github.com/maraichr/neogm/pkg/cypher"
	"github.com/maraichr/neogm/pkg/graph"
	"github.com/maraichr/neogm/pkg/model"
)

// errVetoed rolls back a relate transaction when a before callback says no.
var errVetoed = errors.New("relationship vetoed")

// Save creates or updates n. Associations deferred on n are created in the
// same transaction.
func (g *Graph) Save(ctx context.Context, n *model.Node) error {
	var at attempt
	err := g.session.WriteTransaction(ctx, func(tx graph.Runner) error {
		at.undo()
		return g.save(ctx, tx, n, &at)
	})
	if err != nil {
		at.undo()
	}
	return err
}

// attempt records what one run of a transaction function changed on the
// nodes it touched. The driver may run the function again after a transient
// failure, so every run starts by undoing the previous one.
type attempt struct {
	created []*model.Node
	taken   map[*model.Node]map[string][]*model.Node
}

func (at *attempt) persist(n *model.Node, dn dbtype.Node) {
	n.Persist(dn.Id, dn.ElementId)
	at.created = append(at.created, n)
}

func (at *attempt) takePending(n *model.Node) map[string][]*model.Node {
	pending := n.TakePending()
	if len(pending) > 0 {
		if at.taken == nil {
			at.taken = map[*model.Node]map[string][]*model.Node{}
		}
		at.taken[n] = pending
	}
	return pending
}

func (at *attempt) undo() {
	for _, n := range at.created {
		n.ResetPersistence()
	}
	for n, pending := range at.taken {
		restorePending(n, pending)
	}
	at.created, at.taken = nil, nil
}

func (g *Graph) save(ctx context.Context, tx graph.Runner, n *model.Node, at *attempt) error {
	m := n.Model()
	if m == nil {
		return apierr.InvalidArgument("node without model", n)
	}
	if n.Persisted() {
		q := cypher.New().Match("(n)").
			Where(cypher.Cond{"n": {cypher.NeoIDKey: n.NeoID()}}).
			Set("n += $props", cypher.Params{"props": map[string]any(n.Props())})
		if _, err := run(ctx, tx, q); err != nil {
			return fmt.Errorf("update %s: %w", m.Name(), err)
		}
		return nil
	}

	if m.AutoID() && n.IDValue() == nil {
		n.Set(m.IDProperty(), uuid.NewString())
	}
	q := cypher.New().Create("(n"+m.LabelPattern()+")").
		Set("n = $props", cypher.Params{"props": map[string]any(n.Props())}).
		Return("n")
	recs, err := run(ctx, tx, q)
	if err != nil {
		return fmt.Errorf("create %s: %w", m.Name(), err)
	}
	if len(recs) == 0 || len(recs[0].Values) == 0 {
		return fmt.Errorf("create %s: no node returned", m.Name())
	}
	dn, ok := recs[0].Values[0].(dbtype.Node)
	if !ok {
		return fmt.Errorf("create %s: unexpected result %T", m.Name(), recs[0].Values[0])
	}
	at.persist(n, dn)

	pending := at.takePending(n)
	for _, a := range m.Associations() {
		for _, other := range pending[a.Name] {
			if !other.Persisted() {
				if err := g.save(ctx, tx, other, at); err != nil {
					return err
				}
			}
			if _, err := g.createRel(ctx, tx, a, n, other, nil); err != nil && !errors.Is(err, errVetoed) {
				return err
			}
		}
	}
	return nil
}

// relate creates relationships from start to each node in one transaction,
// saving unsaved nodes first. prepare runs at the start of the transaction.
// A vetoed relationship rolls everything back and reports false.
func (g *Graph) relate(ctx context.Context, a *model.Association, start *model.Node, props map[string]any,
	nodes []*model.Node, prepare func(ctx context.Context, tx graph.Runner) error) (bool, error) {
	var at attempt
	err := g.session.WriteTransaction(ctx, func(tx graph.Runner) error {
		at.undo()
		if prepare != nil {
			if err := prepare(ctx, tx); err != nil {
				return err
			}
		}
		for _, other := range nodes {
			if !other.Persisted() {
				if err := g.save(ctx, tx, other, &at); err != nil {
					return err
				}
			}
			if _, err := g.createRel(ctx, tx, a, start, other, props); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		at.undo()
		if errors.Is(err, errVetoed) {
			return false, nil
		}
		return false, fmt.Errorf("relate %s: %w", a.Name, err)
	}
	return true, nil
}

func (g *Graph) createRel(ctx context.Context, tx graph.Runner, a *model.Association, from, to *model.Node, props map[string]any) (bool, error) {
	if !a.RunBefore(from, to) {
		return false, errVetoed
	}
	from.ClearAssociationCache()

	arrow, err := a.ArrowCypher("r", true)
	if err != nil {
		return false, err
	}
	q := cypher.New().
		Match("(from_node)", "(to_node)").
		Where(cypher.Cond{
			"from_node": {cypher.NeoIDKey: from.NeoID()},
			"to_node":   {cypher.NeoIDKey: to.NeoID()},
		}).
		Create("(from_node)" + arrow + "(to_node)")
	if len(props) > 0 {
		converted := map[string]any{}
		for k, v := range props {
			converted[k] = a.RelModel.ConvertProperty(k, v)
		}
		q = q.Set("r = $rel_props", cypher.Params{"rel_props": converted})
	}
	if _, err := run(ctx, tx, q); err != nil {
		return false, fmt.Errorf("create %s relationship: %w", a.Name, err)
	}
	a.RunAfter(from, to)
	return true, nil
}

// DestroyRel deletes r, running its model's destroy hooks around it.
func (g *Graph) DestroyRel(ctx context.Context, r *model.Rel) error {
	rm := r.Model()
	if rm != nil && rm.BeforeDestroy != nil {
		if err := rm.BeforeDestroy(r); err != nil {
			return err
		}
	}
	q := cypher.New().Match("()-[r]->()").
		Where(cypher.Cond{"r": {cypher.NeoIDKey: r.NeoID()}}).
		Delete("r")
	if _, err := run(ctx, g.session, q); err != nil {
		return fmt.Errorf("destroy %s relationship: %w", r.Type(), err)
	}
	if rm != nil && rm.AfterDestroy != nil {
		return rm.AfterDestroy(r)
	}
	return nil
}

// Create relates the chain's start node to nodes through the association,
// in one transaction. It returns false, creating nothing, when a before
// callback vetoes any of the relationships.
func (p *QueryProxy) Create(ctx context.Context, relProps map[string]any, nodes ...*model.Node) (bool, error) {
	if p.err != nil {
		return false, p.err
	}
	if p.assoc == nil {
		return false, apierr.NotAssociation("create")
	}
	if !p.start.Persisted() {
		return false, apierr.NotPersisted("start node")
	}
	return p.graph.relate(ctx, p.assoc, p.start, relProps, nodes, nil)
}

// Append relates nodes to the chain's start node. For a start node that is
// not saved yet the relationships are deferred until Graph.Save.
func (p *QueryProxy) Append(ctx context.Context, nodes ...*model.Node) (bool, error) {
	if p.err != nil {
		return false, p.err
	}
	switch {
	case p.start.Persisted():
		return p.Create(ctx, nil, nodes...)
	case p.start != nil && p.assoc != nil:
		p.start.DeferCreate(p.assoc.Name, nodes...)
		return true, nil
	}
	return false, apierr.CrazyError("append needs an association of a node")
}

func restorePending(n *model.Node, pending map[string][]*model.Node) {
	for name, nodes := range pending {
		n.DeferCreate(name, nodes...)
	}
}
