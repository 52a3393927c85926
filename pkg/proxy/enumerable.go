package proxy

import (
	"context"
	"fmt"
	"iter"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/maraichr/neogm/pkg/cypher"
	"github.com/maraichr/neogm/pkg/model"
)

type row struct {
	node *model.Node
	rel  *model.Rel
}

type resultSet struct {
	rows []row
}

func cacheKey(node, rel bool) int {
	k := 0
	if node {
		k |= 1
	}
	if rel {
		k |= 2
	}
	return k
}

// startNode returns the instance the chain begins at, if any.
func (p *QueryProxy) startNode() *model.Node {
	for q := p; q != nil; q = q.parent {
		if q.start != nil {
			return q.start
		}
	}
	return nil
}

// unsaved reports whether the chain starts at a node not yet in the store,
// in which case nothing can match.
func (p *QueryProxy) unsaved() bool {
	s := p.startNode()
	return s != nil && !s.Persisted()
}

// bare reports whether p is an unfiltered association of an instance, whose
// results can be shared through the instance's association cache.
func (p *QueryProxy) bare() bool {
	return p.start != nil && p.assoc != nil && p.parent == nil && p.startQuery == nil &&
		len(p.chain) == 0 && !p.distinct && !p.optional && len(p.eager) == 0
}

func (p *QueryProxy) result(ctx context.Context, node, rel bool) ([]row, error) {
	if p.err != nil {
		return nil, p.err
	}
	if p.unsaved() {
		return nil, nil
	}
	key := cacheKey(node, rel)
	if rs := p.cache[key]; rs != nil {
		return rs.rows, nil
	}

	if p.bare() && node && !rel {
		if nodes, ok := p.start.AssociationCache(p.assoc.Name); ok {
			rows := make([]row, len(nodes))
			for i, n := range nodes {
				rows[i] = row{node: n}
			}
			p.cache[key] = &resultSet{rows: rows}
			return rows, nil
		}
	}

	var rows []row
	var err error
	if len(p.eager) > 0 && node && !rel {
		rows, err = p.eagerResult(ctx)
	} else {
		rows, err = p.pluckVars(ctx, node, rel)
	}
	if err != nil {
		return nil, err
	}

	siblings := make([]*model.Node, 0, len(rows))
	for _, r := range rows {
		if r.node != nil {
			siblings = append(siblings, r.node)
		}
	}
	for _, r := range rows {
		if r.node != nil {
			r.node.SetOrigin(p, siblings)
		}
		if r.node != nil && r.rel != nil && p.assoc != nil && p.assoc.RelModel != nil {
			r.rel.Wire(r.node)
		}
	}
	if p.bare() && node && !rel {
		p.start.SetAssociationCache(p.assoc.Name, siblings)
	}
	p.cache[key] = &resultSet{rows: rows}
	return rows, nil
}

func (p *QueryProxy) pluckVars(ctx context.Context, node, rel bool) ([]row, error) {
	v := p.Identity()
	var cols []string
	if node {
		cols = append(cols, v)
	}
	if rel {
		cols = append(cols, p.RelVar())
	}
	q := p.QueryAs(v)
	if p.distinct {
		q = q.ReturnDistinct(cols...)
	} else {
		q = q.Return(cols...)
	}

	recs, err := run(ctx, p.graph.session, q)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", v, err)
	}
	rows := make([]row, 0, len(recs))
	for _, rec := range recs {
		var r row
		i := 0
		if node {
			r.node = p.decodeNode(rec.Values[i])
			i++
		}
		if rel {
			r.rel = p.decodeRel(rec.Values[i])
		}
		rows = append(rows, r)
	}
	return rows, nil
}

func (p *QueryProxy) decodeNode(v any) *model.Node {
	dn, ok := v.(dbtype.Node)
	if !ok {
		return nil
	}
	m := p.model
	if p.assoc != nil && p.assoc.Polymorphic() {
		m = p.assoc.ModelFor(dn.Labels)
	}
	return model.NodeFromDB(m, dn)
}

func (p *QueryProxy) decodeRel(v any) *model.Rel {
	dr, ok := v.(dbtype.Relationship)
	if !ok {
		return nil
	}
	var rm *model.RelModel
	if p.assoc != nil {
		rm = p.assoc.RelModel
	}
	return model.RelFromDB(rm, dr)
}

func (p *QueryProxy) decodeValue(v any) any {
	switch v.(type) {
	case dbtype.Node:
		return p.decodeNode(v)
	case dbtype.Relationship:
		return p.decodeRel(v)
	}
	return v
}

// Each calls fn for every node of the chain.
func (p *QueryProxy) Each(ctx context.Context, fn func(*model.Node) error) error {
	rows, err := p.result(ctx, true, false)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := fn(r.node); err != nil {
			return err
		}
	}
	return nil
}

// EachRel calls fn for every relationship of the association.
func (p *QueryProxy) EachRel(ctx context.Context, fn func(*model.Rel) error) error {
	rows, err := p.result(ctx, false, true)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := fn(r.rel); err != nil {
			return err
		}
	}
	return nil
}

// EachWithRel calls fn for every node together with the relationship it
// was reached through.
func (p *QueryProxy) EachWithRel(ctx context.Context, fn func(*model.Node, *model.Rel) error) error {
	rows, err := p.result(ctx, true, true)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := fn(r.node, r.rel); err != nil {
			return err
		}
	}
	return nil
}

// Nodes returns the chain's nodes as a sequence. The query runs on first
// iteration; ranging again reuses the memoized result.
func (p *QueryProxy) Nodes(ctx context.Context) iter.Seq2[*model.Node, error] {
	return func(yield func(*model.Node, error) bool) {
		rows, err := p.result(ctx, true, false)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, r := range rows {
			if !yield(r.node, nil) {
				return
			}
		}
	}
}

// Rels returns the association's relationships as a sequence.
func (p *QueryProxy) Rels(ctx context.Context) iter.Seq2[*model.Rel, error] {
	return func(yield func(*model.Rel, error) bool) {
		rows, err := p.result(ctx, false, true)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, r := range rows {
			if !yield(r.rel, nil) {
				return
			}
		}
	}
}

// ToA loads every node of the chain.
func (p *QueryProxy) ToA(ctx context.Context) ([]*model.Node, error) {
	rows, err := p.result(ctx, true, false)
	if err != nil {
		return nil, err
	}
	nodes := make([]*model.Node, len(rows))
	for i, r := range rows {
		nodes[i] = r.node
	}
	return nodes, nil
}

// Pluck projects the given columns, one slice per row. Declared properties,
// the id property and "neo_id" are read from the chain's nodes; any other
// column is used as a raw Cypher expression.
func (p *QueryProxy) Pluck(ctx context.Context, cols ...string) ([][]any, error) {
	if p.err != nil {
		return nil, p.err
	}
	if p.unsaved() {
		return nil, nil
	}
	v := p.Identity()
	exprs := make([]string, len(cols))
	for i, c := range cols {
		exprs[i] = p.attributeExpr(v, c)
	}
	q := p.QueryAs(v)
	if p.distinct {
		q = q.ReturnDistinct(exprs...)
	} else {
		q = q.Return(exprs...)
	}

	recs, err := run(ctx, p.graph.session, q)
	if err != nil {
		return nil, fmt.Errorf("pluck %s: %w", v, err)
	}
	out := make([][]any, len(recs))
	for i, rec := range recs {
		vals := make([]any, len(rec.Values))
		for j, val := range rec.Values {
			vals[j] = p.decodeValue(val)
		}
		out[i] = vals
	}
	return out, nil
}

func (p *QueryProxy) attributeExpr(v, col string) string {
	switch {
	case col == cypher.NeoIDKey:
		return "ID(" + v + ")"
	case col == model.DefaultIDProperty, p.model != nil && p.model.Attribute(col):
		return v + "." + col
	}
	return col
}

// Equal reports whether both chains load the same nodes in the same order.
func (p *QueryProxy) Equal(ctx context.Context, other *QueryProxy) (bool, error) {
	a, err := p.ToA(ctx)
	if err != nil {
		return false, err
	}
	b, err := other.ToA(ctx)
	if err != nil {
		return false, err
	}
	if len(a) != len(b) {
		return false, nil
	}
	for i := range a {
		if a[i].NeoID() != b[i].NeoID() {
			return false, nil
		}
	}
	return true, nil
}
