package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maraichr/neogm/pkg/cypher"
	"github.com/maraichr/neogm/pkg/model"
)

// eagerQuery matches every eager association off the identity with one
// OPTIONAL MATCH each, collecting the targets per node.
func (p *QueryProxy) eagerQuery(v string) *cypher.Query {
	q := p.QueryAs(v).With(v).Break()
	var collections []string
	for _, name := range p.eager {
		a, _ := p.model.Association(name)
		alias := identifierPart(name)
		arrow, err := a.ArrowCypher("", false)
		if err != nil {
			return q.AddError(err)
		}
		q = q.OptionalMatch("(" + v + ")" + arrow + "(" + alias + a.TargetLabels() + ")")
		if w := a.TargetWhere(alias); w != "" {
			q = q.Where(w)
		}
		items := append([]string{v, fmt.Sprintf("collect(DISTINCT %s) AS %s_collection", alias, alias)}, collections...)
		q = q.With(items...).Break()
		collections = append(collections, alias+"_collection")
	}
	return q.Return(v, "["+strings.Join(collections, ", ")+"]")
}

func (p *QueryProxy) eagerResult(ctx context.Context) ([]row, error) {
	v := p.Identity()
	recs, err := run(ctx, p.graph.session, p.eagerQuery(v))
	if err != nil {
		return nil, fmt.Errorf("eager load %s: %w", v, err)
	}
	p.graph.logger.Debug("eager loaded associations",
		slog.String("identity", v),
		slog.Any("associations", p.eager),
		slog.Int("rows", len(recs)),
	)

	rows := make([]row, 0, len(recs))
	for _, rec := range recs {
		n := p.decodeNode(rec.Values[0])
		if n == nil {
			continue
		}
		collections, _ := rec.Values[1].([]any)
		for i, name := range p.eager {
			a, _ := p.model.Association(name)
			var raw []any
			if i < len(collections) {
				raw, _ = collections[i].([]any)
			}
			n.SetAssociationCache(name, decodeTargets(a, raw))
		}
		rows = append(rows, row{node: n})
	}
	return rows, nil
}

func decodeTargets(a *model.Association, raw []any) []*model.Node {
	nodes := make([]*model.Node, 0, len(raw))
	tp := &QueryProxy{assoc: a, model: a.TargetModel()}
	for _, v := range raw {
		if n := tp.decodeNode(v); n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes
}
