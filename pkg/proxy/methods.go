package proxy

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/maraichr/neogm/pkg/apierr"
	"github.com/maraichr/neogm/pkg/cypher"
	"github.com/maraichr/neogm/pkg/graph"
	"github.com/maraichr/neogm/pkg/model"
)

// Count returns the number of matched nodes. Any ordering of the chain is
// dropped.
func (p *QueryProxy) Count(ctx context.Context) (int64, error) {
	return p.count(ctx, false)
}

// CountDistinct counts each matched node once.
func (p *QueryProxy) CountDistinct(ctx context.Context) (int64, error) {
	return p.count(ctx, true)
}

func (p *QueryProxy) Size(ctx context.Context) (int64, error)   { return p.Count(ctx) }
func (p *QueryProxy) Length(ctx context.Context) (int64, error) { return p.Count(ctx) }

func (p *QueryProxy) count(ctx context.Context, distinct bool) (int64, error) {
	if p.err != nil {
		return 0, p.err
	}
	if p.unsaved() {
		return 0, nil
	}
	v := p.Identity()
	d := ""
	if distinct {
		d = "DISTINCT "
	}
	q := p.QueryAs(v).Reorder().Return(fmt.Sprintf("count(%s%s) AS %s", d, v, v))
	return p.scalar(ctx, p.graph.session, q)
}

func (p *QueryProxy) scalar(ctx context.Context, r graph.Runner, q *cypher.Query) (int64, error) {
	recs, err := run(ctx, r, q)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", p.Identity(), err)
	}
	return firstInt(recs), nil
}

func firstInt(recs []*neo4j.Record) int64 {
	if len(recs) == 0 || len(recs[0].Values) == 0 {
		return 0
	}
	n, _ := model.AsInt64(recs[0].Values[0])
	return n
}

// First returns the first node in the chain's order, or by ascending id
// property when the chain is unordered. It returns nil when nothing matches.
func (p *QueryProxy) First(ctx context.Context) (*model.Node, error) {
	return p.firstOrLast(ctx, false)
}

// Last is First from the other end.
func (p *QueryProxy) Last(ctx context.Context) (*model.Node, error) {
	return p.firstOrLast(ctx, true)
}

func (p *QueryProxy) firstOrLast(ctx context.Context, last bool) (*model.Node, error) {
	if p.err != nil {
		return nil, p.err
	}
	if p.unsaved() {
		return nil, nil
	}
	v := p.Identity()
	q := p.QueryAs(v)
	if q.Pending(cypher.KindOrder) {
		agg := "HEAD"
		if last {
			agg = "LAST"
		}
		q = q.With(v).Break().Return(fmt.Sprintf("%s(COLLECT(%s)) AS %s", agg, v, v))
	} else {
		q = q.Order(p.defaultOrder(v, last)).Limit(1).Return(v)
	}

	recs, err := run(ctx, p.graph.session, q)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", v, err)
	}
	if len(recs) == 0 {
		return nil, nil
	}
	n := p.decodeNode(recs[0].Values[0])
	if n != nil {
		n.SetOrigin(p, []*model.Node{n})
	}
	return n, nil
}

func (p *QueryProxy) defaultOrder(v string, desc bool) any {
	if p.model == nil {
		o := "ID(" + v + ")"
		if desc {
			o += " DESC"
		}
		return o
	}
	return cypher.OrderBy{Var: v, Prop: p.model.IDProperty(), Desc: desc}
}

// Exists reports whether the chain matches anything. An optional condition
// narrows it: an integer identity or a property map.
func (p *QueryProxy) Exists(ctx context.Context, cond ...any) (bool, error) {
	if p.err != nil {
		return false, p.err
	}
	if len(cond) > 1 {
		return false, apierr.InvalidParameter("exists", cond)
	}
	target := p
	if len(cond) == 1 && cond[0] != nil {
		if id, ok := model.AsInt64(cond[0]); ok {
			target = p.Where(map[string]any{cypher.NeoIDKey: id})
		} else if m, ok := asMap(cond[0]); ok {
			target = p.Where(m)
		} else {
			return false, apierr.InvalidParameter("exists", cond[0])
		}
		if target.err != nil {
			return false, target.err
		}
	}
	if p.unsaved() {
		return false, nil
	}
	v := target.Identity()
	q := target.QueryAs(v).Reorder().Return("COUNT(" + v + ") AS count")
	n, err := target.scalar(ctx, p.graph.session, q)
	return n > 0, err
}

// Empty is the negation of Exists.
func (p *QueryProxy) Empty(ctx context.Context) (bool, error) {
	ok, err := p.Exists(ctx)
	return !ok, err
}

// Include reports whether other, a persisted node, is matched by the chain.
func (p *QueryProxy) Include(ctx context.Context, other any) (bool, error) {
	n, ok := other.(*model.Node)
	if !ok || !n.Persisted() {
		return false, apierr.InvalidParameter("include", other)
	}
	return p.Exists(ctx, map[string]any{cypher.NeoIDKey: n.NeoID()})
}

// RelsTo loads the association's relationships to node.
func (p *QueryProxy) RelsTo(ctx context.Context, node *model.Node) ([]*model.Rel, error) {
	if p.assoc == nil {
		return nil, apierr.NotAssociation("load relationships")
	}
	return p.MatchTo(node).rels(ctx)
}

// FirstRelTo loads one relationship of the association to node, or nil.
func (p *QueryProxy) FirstRelTo(ctx context.Context, node *model.Node) (*model.Rel, error) {
	if p.assoc == nil {
		return nil, apierr.NotAssociation("load relationships")
	}
	rels, err := p.MatchTo(node).Limit(1).rels(ctx)
	if err != nil || len(rels) == 0 {
		return nil, err
	}
	return rels[0], nil
}

func (p *QueryProxy) rels(ctx context.Context) ([]*model.Rel, error) {
	var rels []*model.Rel
	for r, err := range p.Rels(ctx) {
		if err != nil {
			return nil, err
		}
		rels = append(rels, r)
	}
	return rels, nil
}

// Delete removes the association's relationships to node in one statement.
// Relationship destroy hooks do not run; see Destroy.
func (p *QueryProxy) Delete(ctx context.Context, node *model.Node) error {
	if p.assoc == nil {
		return apierr.NotAssociation("delete")
	}
	target := p.MatchTo(node)
	q := target.Query().Delete(target.RelVar())
	if _, err := run(ctx, p.graph.session, q); err != nil {
		return fmt.Errorf("delete %s relationship: %w", p.assoc.Name, err)
	}
	p.clearStartCache()
	return nil
}

// Destroy loads the association's relationships to node and destroys them
// one by one, running their hooks.
func (p *QueryProxy) Destroy(ctx context.Context, node *model.Node) error {
	rels, err := p.RelsTo(ctx, node)
	if err != nil {
		return err
	}
	for _, r := range rels {
		if err := p.graph.DestroyRel(ctx, r); err != nil {
			return err
		}
	}
	p.clearStartCache()
	return nil
}

// ReplaceWith makes nodes the only targets of the association.
func (p *QueryProxy) ReplaceWith(ctx context.Context, nodes ...*model.Node) (bool, error) {
	if p.assoc == nil {
		return false, apierr.NotAssociation("replace")
	}
	start := p.start
	if !start.Persisted() {
		return false, apierr.NotPersisted("start node")
	}
	return p.graph.relate(ctx, p.assoc, start, nil, nodes, func(ctx context.Context, tx graph.Runner) error {
		_, err := run(ctx, tx, p.Query().Delete(p.RelVar()))
		return err
	})
}

func (p *QueryProxy) clearStartCache() {
	if s := p.startNode(); s != nil {
		s.ClearAssociationCache()
	}
}
