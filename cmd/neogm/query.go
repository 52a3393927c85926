package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maraichr/neogm/pkg/graph"
	"github.com/maraichr/neogm/pkg/model"
	"github.com/maraichr/neogm/pkg/proxy"
)

type queryOptions struct {
	assocs   []string
	where    []string
	raw      []string
	order    []string
	with     []string
	skip     int
	limit    int
	distinct bool

	count  bool
	first  bool
	cypher bool
}

func newQueryCommand(a *app) *cobra.Command {
	opts := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "query <model>",
		Short: "Run a model query and print the matched nodes as JSON lines",
		Example: `  neogm query Person --where name=Ann --assoc friends --order age:desc --limit 10
  neogm query Person --with friends --with pets
  neogm query Person --where age=30 --count`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.schema()
			if err != nil {
				return err
			}
			m, ok := s.Model(args[0])
			if !ok {
				return fmt.Errorf("unknown model %q", args[0])
			}

			var sess graph.Session
			if !opts.cypher {
				client, err := a.connect(ctx)
				if err != nil {
					return err
				}
				defer client.Close(ctx)
				sess = client
			}
			g := proxy.New(sess, proxy.WithLogger(a.logger))
			p, err := buildQuery(g, m, opts)
			if err != nil {
				return err
			}
			return runQuery(cmd, p, opts, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringArrayVar(&opts.assocs, "assoc", nil, "traverse an association, repeatable")
	f.StringArrayVar(&opts.where, "where", nil, "property condition key=value, repeatable")
	f.StringArrayVar(&opts.raw, "raw", nil, "raw Cypher condition, repeatable")
	f.StringArrayVar(&opts.order, "order", nil, "order by property, prop or prop:desc")
	f.StringArrayVar(&opts.with, "with", nil, "eager load an association, repeatable")
	f.IntVar(&opts.skip, "skip", 0, "skip this many nodes")
	f.IntVar(&opts.limit, "limit", 0, "return at most this many nodes")
	f.BoolVar(&opts.distinct, "distinct", false, "return each node once")
	f.BoolVar(&opts.count, "count", false, "print the number of matched nodes")
	f.BoolVar(&opts.first, "first", false, "print only the first node")
	f.BoolVar(&opts.cypher, "cypher", false, "print the statement without running it")
	return cmd
}

// buildQuery turns the command line into a proxy chain. Conditions and
// ordering apply to the last traversed association.
func buildQuery(g *proxy.Graph, m *model.Model, opts *queryOptions) (*proxy.QueryProxy, error) {
	p := g.Model(m)
	for _, name := range opts.assocs {
		p = p.Assoc(name)
	}

	if len(opts.where) > 0 {
		conds := map[string]any{}
		for _, w := range opts.where {
			k, v, ok := strings.Cut(w, "=")
			if !ok || k == "" {
				return nil, fmt.Errorf("invalid --where %q, want key=value", w)
			}
			conds[k] = v
		}
		p = p.Where(conds)
	}
	for _, r := range opts.raw {
		p = p.Where(r)
	}
	for _, o := range opts.order {
		prop, dir, _ := strings.Cut(o, ":")
		if strings.EqualFold(dir, "desc") {
			p = p.Order(proxy.Desc(prop))
		} else {
			p = p.Order(proxy.Asc(prop))
		}
	}
	if opts.skip > 0 {
		p = p.Skip(opts.skip)
	}
	if opts.limit > 0 {
		p = p.Limit(opts.limit)
	}
	if opts.distinct {
		p = p.Distinct()
	}
	if len(opts.with) > 0 {
		p = p.WithAssociations(opts.with...)
	}
	return p, p.Err()
}

type nodeJSON struct {
	NeoID        int64                 `json:"neo_id"`
	Labels       []string              `json:"labels"`
	Props        map[string]any        `json:"props"`
	Associations map[string][]nodeJSON `json:"associations,omitempty"`
}

func toJSON(n *model.Node, eager []string) nodeJSON {
	out := nodeJSON{NeoID: n.NeoID(), Labels: n.Labels(), Props: n.Props()}
	for _, name := range eager {
		targets, ok := n.AssociationCache(name)
		if !ok {
			continue
		}
		if out.Associations == nil {
			out.Associations = map[string][]nodeJSON{}
		}
		list := make([]nodeJSON, len(targets))
		for i, t := range targets {
			list[i] = toJSON(t, nil)
		}
		out.Associations[name] = list
	}
	return out
}

func runQuery(cmd *cobra.Command, p *proxy.QueryProxy, opts *queryOptions, w io.Writer) error {
	ctx := cmd.Context()
	enc := json.NewEncoder(w)

	switch {
	case opts.cypher:
		stmt, params, err := p.ToCypher()
		if err != nil {
			return err
		}
		return enc.Encode(map[string]any{"cypher": stmt, "params": params})
	case opts.count:
		n, err := p.Count(ctx)
		if err != nil {
			return err
		}
		return enc.Encode(map[string]int64{"count": n})
	case opts.first:
		n, err := p.First(ctx)
		if err != nil || n == nil {
			return err
		}
		return enc.Encode(toJSON(n, opts.with))
	}

	return p.Each(ctx, func(n *model.Node) error {
		return enc.Encode(toJSON(n, opts.with))
	})
}
