package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/maraichr/neogm/pkg/apierr"
	"github.com/maraichr/neogm/pkg/cypher"
	"github.com/maraichr/neogm/pkg/graph"
)

// DeleteAll deletes the matched nodes and their relationships. target names
// another identifier of the chain to delete instead of Identity.
func (p *QueryProxy) DeleteAll(ctx context.Context, target ...string) error {
	if p.err != nil {
		return p.err
	}
	defer p.clearStartCache()
	if p.unsaved() {
		return nil
	}
	v := p.Identity()
	t := v
	if len(target) > 0 && target[0] != "" {
		t = target[0]
	}

	base := p.QueryAs(v)
	q := base.With(t).Break().
		OptionalMatch("("+t+")-["+t+"_rel]-()").
		Delete(t, t+"_rel")
	_, err := run(ctx, p.graph.session, q)
	if err == nil {
		return nil
	}
	if !graph.IsCypherError(err) {
		return fmt.Errorf("delete %s: %w", t, err)
	}

	p.graph.logger.Warn("combined delete rejected, deleting nodes only",
		slog.String("target", t),
		slog.String("error", err.Error()),
	)
	if _, err := run(ctx, p.graph.session, base.Delete(t)); err != nil {
		return fmt.Errorf("delete %s: %w", t, err)
	}
	return nil
}

// DeleteAllRels deletes every relationship the association chain matches.
func (p *QueryProxy) DeleteAllRels(ctx context.Context) error {
	if p.err != nil {
		return p.err
	}
	if p.assoc == nil {
		return apierr.NotAssociation("delete relationships")
	}
	defer p.clearStartCache()
	if p.unsaved() {
		return nil
	}
	if _, err := run(ctx, p.graph.session, p.Query().Delete(p.RelVar())); err != nil {
		return fmt.Errorf("delete %s relationships: %w", p.assoc.Name, err)
	}
	return nil
}

// UpdateAll sets properties on every matched node and returns how many were
// updated. updates is either a property map or a raw SET fragment with
// optional params.
func (p *QueryProxy) UpdateAll(ctx context.Context, updates any, params ...cypher.Params) (int64, error) {
	return p.updateAll(ctx, p.Identity(), updates, params)
}

// UpdateAllRels is UpdateAll for the association's relationships.
func (p *QueryProxy) UpdateAllRels(ctx context.Context, updates any, params ...cypher.Params) (int64, error) {
	if p.assoc == nil {
		return 0, apierr.NotAssociation("update relationships")
	}
	return p.updateAll(ctx, p.RelVar(), updates, params)
}

func (p *QueryProxy) updateAll(ctx context.Context, v string, updates any, params []cypher.Params) (int64, error) {
	if p.err != nil {
		return 0, p.err
	}
	q := p.Query()
	switch u := updates.(type) {
	case string:
		merged := cypher.Params{}
		for _, ps := range params {
			maps.Copy(merged, ps)
		}
		q = q.Set(u, merged)
	default:
		m, ok := asMap(updates)
		if !ok {
			return 0, apierr.InvalidArgument("update", updates)
		}
		props := map[string]any{}
		for k, val := range m {
			props[k] = p.convertFor(v, k, val)
		}
		q = q.Set(cypher.Cond{v: props})
	}
	if p.unsaved() {
		return 0, nil
	}
	q = q.Return("count(" + v + ") AS count")

	recs, err := run(ctx, p.graph.session, q)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", v, err)
	}
	return firstInt(recs), nil
}

func (p *QueryProxy) convertFor(v, key string, val any) any {
	if v == p.RelVar() && p.assoc != nil {
		return p.assoc.RelModel.ConvertProperty(key, val)
	}
	return p.model.ConvertProperty(key, val)
}
