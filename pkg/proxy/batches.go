package proxy

import (
	"context"
	"fmt"

	"github.com/maraichr/neogm/pkg/apierr"
	"github.com/maraichr/neogm/pkg/cypher"
	"github.com/maraichr/neogm/pkg/model"
)

// DefaultBatchSize is used when a non-positive batch size is given.
const DefaultBatchSize = 1000

// FindInBatches loads the chain's nodes in batches ordered by id property,
// using the last id seen as the lower bound of the next batch. Any ordering
// of the chain is replaced. A full batch ending in a node without an id
// value is an error.
func (p *QueryProxy) FindInBatches(ctx context.Context, size int, fn func([]*model.Node) error) error {
	if p.err != nil {
		return p.err
	}
	if p.model == nil {
		return apierr.InvalidArgument("batch source", p.assoc)
	}
	if size <= 0 {
		size = DefaultBatchSize
	}
	if p.unsaved() {
		return nil
	}

	v := p.Identity()
	idProp := p.model.IDProperty()
	var offset any
	for {
		q := p.QueryAs(v).Reorder(cypher.OrderBy{Var: v, Prop: idProp}).Limit(size)
		if offset != nil {
			q = q.Where(v+"."+idProp+" > $batch_offset", cypher.Params{"batch_offset": offset})
		}
		recs, err := run(ctx, p.graph.session, q.Return(v))
		if err != nil {
			return fmt.Errorf("load %s batch: %w", v, err)
		}
		if len(recs) == 0 {
			return nil
		}

		batch := make([]*model.Node, 0, len(recs))
		for _, rec := range recs {
			if n := p.decodeNode(rec.Values[0]); n != nil {
				batch = append(batch, n)
			}
		}
		if err := fn(batch); err != nil {
			return err
		}
		if len(recs) < size || len(batch) == 0 {
			return nil
		}
		last := batch[len(batch)-1]
		if offset = last.IDValue(); offset == nil {
			return fmt.Errorf("load %s batch: node %d has no %s to page from", v, last.NeoID(), idProp)
		}
	}
}

// FindEach calls fn for every node, loading them in batches.
func (p *QueryProxy) FindEach(ctx context.Context, size int, fn func(*model.Node) error) error {
	return p.FindInBatches(ctx, size, func(batch []*model.Node) error {
		for _, n := range batch {
			if err := fn(n); err != nil {
				return err
			}
		}
		return nil
	})
}
