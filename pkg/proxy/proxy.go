package proxy

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode"

	"github.com/maraichr/neogm/pkg/apierr"
	"github.com/maraichr/neogm/pkg/cypher"
	"github.com/maraichr/neogm/pkg/model"
)

// QueryProxy is one node of a query chain.
type QueryProxy struct {
	graph *Graph
	model *model.Model
	assoc *model.Association
	// start is the instance an association chain begins at.
	start *model.Node
	// parent is the proxy this association was traversed from. It is only
	// read to build the base query.
	parent *QueryProxy
	// startQuery replaces the base query of a branched chain.
	startQuery *cypher.Query

	nodeVar string
	relVar  string
	level   int
	// idents counts the association identifiers (n1, n2, ...) minted so
	// far across the whole query, including parents and branches.
	idents int

	chain    []Link
	params   map[string]any
	optional bool
	distinct bool
	eager    []string
	err      error

	cache [4]*resultSet
}

func (p *QueryProxy) clone() *QueryProxy {
	return &QueryProxy{
		graph:      p.graph,
		model:      p.model,
		assoc:      p.assoc,
		start:      p.start,
		parent:     p.parent,
		startQuery: p.startQuery,
		nodeVar:    p.nodeVar,
		relVar:     p.relVar,
		level:      p.level,
		idents:     p.idents,
		chain:      slices.Clone(p.chain),
		params:     maps.Clone(p.params),
		optional:   p.optional,
		distinct:   p.distinct,
		eager:      slices.Clone(p.eager),
		err:        p.err,
	}
}

func (p *QueryProxy) setVars(vars []string) {
	if len(vars) > 0 {
		p.nodeVar = vars[0]
	}
	if len(vars) > 1 {
		p.relVar = vars[1]
	}
}

// Err returns the error recorded while building the chain.
func (p *QueryProxy) Err() error { return p.err }

func (p *QueryProxy) Model() *model.Model             { return p.model }
func (p *QueryProxy) Association() *model.Association { return p.assoc }
func (p *QueryProxy) ChainLevel() int                 { return p.level }

// Links returns a copy of the accumulated chain.
func (p *QueryProxy) Links() []Link { return slices.Clone(p.chain) }

// Identity is the identifier the proxy's nodes are bound to.
func (p *QueryProxy) Identity() string {
	switch {
	case p.nodeVar != "":
		return p.nodeVar
	case p.assoc != nil:
		return "result_" + identifierPart(p.assoc.Name)
	case p.model != nil:
		return "result_" + identifierPart(p.model.Name())
	}
	return "result"
}

// RelVar is the identifier the association's relationships are bound to.
func (p *QueryProxy) RelVar() string {
	if p.relVar != "" {
		return p.relVar
	}
	return fmt.Sprintf("rel%d", p.level-1)
}

// chainVar names the node an association is traversed from.
func (p *QueryProxy) chainVar() string {
	if p.start != nil {
		return snakeCase(p.start.Model()) + fmt.Sprint(p.start.NeoID())
	}
	if p.parent.nodeVar != "" {
		return p.parent.nodeVar
	}
	return fmt.Sprintf("node%d", p.level)
}

func (p *QueryProxy) link(clause Clause, args ...any) *QueryProxy {
	np := p.clone()
	if np.err != nil {
		return np
	}
	links, err := linksFor(p.model, p.assoc, clause, p.idents, args)
	if err != nil {
		np.err = err
		return np
	}
	for _, l := range links {
		if l.clause == ClauseMatch {
			np.idents++
		}
	}
	np.chain = append(np.chain, links...)
	return np
}

// Where filters the chain. Accepted forms:
//
//	Where(map[string]any{"name": "Alice", "friends": bob})
//	Where("result_person.age > ?", 30)
//	Where("result_person.age > $min", cypher.Params{"min": 30})
//
// A map key naming an association matches nodes related to the given node
// or identity.
func (p *QueryProxy) Where(args ...any) *QueryProxy { return p.link(ClauseWhere, args...) }

// NodeWhere is Where.
func (p *QueryProxy) NodeWhere(args ...any) *QueryProxy { return p.Where(args...) }

// WhereNot is Where with every condition negated.
func (p *QueryProxy) WhereNot(args ...any) *QueryProxy { return p.link(ClauseWhereNot, args...) }

// RelWhere filters on properties of the association's relationship.
func (p *QueryProxy) RelWhere(conds map[string]any) *QueryProxy {
	return p.link(ClauseRelWhere, conds)
}

// Order orders by raw strings, Sort values or map[string]string{"prop": "desc"}.
func (p *QueryProxy) Order(args ...any) *QueryProxy { return p.link(ClauseOrder, args...) }

func (p *QueryProxy) NodeOrder(args ...any) *QueryProxy { return p.Order(args...) }
func (p *QueryProxy) OrderBy(args ...any) *QueryProxy   { return p.Order(args...) }

// RelOrder orders by properties of the association's relationship.
func (p *QueryProxy) RelOrder(args ...any) *QueryProxy { return p.link(ClauseRelOrder, args...) }

func (p *QueryProxy) Skip(n int) *QueryProxy   { return p.link(ClauseSkip, n) }
func (p *QueryProxy) Offset(n int) *QueryProxy { return p.Skip(n) }
func (p *QueryProxy) Limit(n int) *QueryProxy  { return p.link(ClauseLimit, n) }

// Params adds bind parameters for raw conditions.
func (p *QueryProxy) Params(params map[string]any) *QueryProxy {
	np := p.clone()
	maps.Copy(np.params, params)
	return np
}

// As names the node identifier, and optionally the relationship identifier.
func (p *QueryProxy) As(vars ...string) *QueryProxy {
	np := p.clone()
	np.setVars(vars)
	return np
}

// Distinct returns each node once.
func (p *QueryProxy) Distinct() *QueryProxy {
	np := p.clone()
	np.distinct = true
	return np
}

// Assoc traverses an association of the chain's model.
func (p *QueryProxy) Assoc(name string, vars ...string) *QueryProxy {
	return p.traverse(name, false, vars)
}

// Optional traverses an association with OPTIONAL MATCH.
func (p *QueryProxy) Optional(name string, vars ...string) *QueryProxy {
	return p.traverse(name, true, vars)
}

func (p *QueryProxy) traverse(name string, optional bool, vars []string) *QueryProxy {
	child := &QueryProxy{
		graph:    p.graph,
		parent:   p,
		level:    p.level + 1,
		idents:   p.idents,
		params:   maps.Clone(p.params),
		optional: optional,
		err:      p.err,
	}
	child.setVars(vars)
	if child.err != nil {
		return child
	}
	a, ok := p.model.Association(name)
	if !ok {
		child.err = apierr.UnknownAssociation(modelName(p.model), name)
		return child
	}
	child.assoc = a
	child.model = a.TargetModel()
	return child
}

// MatchTo narrows the chain to a node, a list of nodes, an id value or a
// list of ids. nil matches nothing.
func (p *QueryProxy) MatchTo(target any) *QueryProxy {
	switch t := target.(type) {
	case nil:
		return p.Where("1 = 2")
	case *model.Node:
		if t == nil {
			return p.Where("1 = 2")
		}
		return p.Where(map[string]any{cypher.NeoIDKey: t.NeoID()})
	case []*model.Node:
		ids := make([]int64, len(t))
		for i, n := range t {
			ids[i] = n.NeoID()
		}
		return p.Where(map[string]any{cypher.NeoIDKey: ids})
	default:
		return p.Where(map[string]any{"id": target})
	}
}

// WithAssociations eager loads the named associations of every result.
func (p *QueryProxy) WithAssociations(names ...string) *QueryProxy {
	np := p.clone()
	if np.err != nil {
		return np
	}
	for _, name := range names {
		if _, ok := p.model.Association(name); !ok {
			np.err = apierr.UnknownAssociation(modelName(p.model), name)
			return np
		}
	}
	np.eager = append(np.eager, names...)
	return np
}

// Branch matches the sub-chain built by fn while still returning this
// chain's nodes. Associations traversed after the branch are numbered past
// the ones used inside it.
func (p *QueryProxy) Branch(fn func(*QueryProxy) *QueryProxy) *QueryProxy {
	v := p.Identity()
	sub := fn(p.As(v))
	np := &QueryProxy{
		graph:   p.graph,
		model:   p.model,
		assoc:   p.assoc,
		start:   p.start,
		nodeVar: v,
		relVar:  p.RelVar(),
		level:   max(p.level, sub.level),
		idents:  max(p.idents, sub.idents),
		params:  map[string]any{},
		err:     sub.err,
	}
	if np.err == nil {
		np.startQuery = sub.QueryAs(sub.Identity())
	}
	return np
}

// Query materializes the chain bound to Identity.
func (p *QueryProxy) Query() *cypher.Query { return p.QueryAs(p.Identity()) }

// QueryAs materializes the chain with its nodes bound to v.
func (p *QueryProxy) QueryAs(v string) *cypher.Query {
	if p.err != nil {
		return cypher.New().AddError(p.err)
	}
	q := p.baseQuery(v)
	rel := p.RelVar()
	for _, l := range p.chain {
		q = l.apply(q, v, rel)
	}
	return q.Params(p.params).WithChainLevel(p.level)
}

// ToCypher renders the statement ToA runs: the chain with a RETURN of its
// identity, or the eager loading query once WithAssociations was called.
func (p *QueryProxy) ToCypher() (string, map[string]any, error) {
	v := p.Identity()
	if len(p.eager) > 0 {
		return p.eagerQuery(v).Cypher()
	}
	return p.QueryAs(v).Return(v).Cypher()
}

func (p *QueryProxy) baseQuery(v string) *cypher.Query {
	if p.startQuery != nil {
		return p.startQuery
	}
	if p.assoc == nil {
		return cypher.New().Match("(" + v + labelPattern(p.model) + ")")
	}

	cv := p.chainVar()
	var q *cypher.Query
	if p.start != nil {
		q = cypher.New().
			Match("(" + cv + labelPattern(p.start.Model()) + ")").
			Where(cypher.Cond{cv: {cypher.NeoIDKey: p.start.NeoID()}})
	} else {
		q = p.parent.QueryAs(cv)
	}

	arrow, err := p.assoc.ArrowCypher(p.RelVar(), false)
	if err != nil {
		return q.AddError(err)
	}
	pattern := "(" + cv + ")" + arrow + "(" + v + p.assoc.TargetLabels() + ")"
	// ORDER BY, SKIP and LIMIT of the parent have to hang off a WITH.
	if q.Pending(cypher.KindOrder, cypher.KindSkip, cypher.KindLimit) {
		q = q.With(cv)
	}
	q = q.Break()
	if p.optional {
		q = q.OptionalMatch(pattern)
	} else {
		q = q.Match(pattern)
	}
	if w := p.assoc.TargetWhere(v); w != "" {
		q = q.Where(w)
	}
	return q
}

// Scoping runs fn with this chain installed as the current scope of its
// model; Graph.Scoped returns it for contexts derived from the one passed
// to fn.
func (p *QueryProxy) Scoping(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(context.WithValue(ctx, scopeKey{p.model}, p))
}

// Call runs a method registered with Graph.Define for the chain's model,
// scoped to this chain.
func (p *QueryProxy) Call(ctx context.Context, name string, args ...any) (any, error) {
	if p.err != nil {
		return nil, p.err
	}
	fn, ok := p.graph.method(p.model, name)
	if !ok {
		return nil, apierr.UnknownMethod(modelName(p.model), name)
	}
	var out any
	err := p.Scoping(ctx, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx, p.graph.Scoped(ctx, p.model), args...)
		return err
	})
	return out, err
}

func labelPattern(m *model.Model) string {
	if m == nil {
		return ""
	}
	return m.LabelPattern()
}

// identifierPart lower-cases s and drops anything that cannot appear in a
// Cypher identifier.
func identifierPart(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r == '_' || r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// snakeCase turns a model name such as "BlogPost" into "blog_post".
func snakeCase(m *model.Model) string {
	name := modelName(m)
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return identifierPart(b.String())
}
