package proxy

import (
	"fmt"
	"slices"
	"strings"

	"github.com/maraichr/neogm/pkg/apierr"
	"github.com/maraichr/neogm/pkg/cypher"
	"github.com/maraichr/neogm/pkg/model"
)

// Clause is the keyword a Link applies to the query.
type Clause string

const (
	ClauseMatch    Clause = "match"
	ClauseWhere    Clause = "where"
	ClauseWhereNot Clause = "where_not"
	ClauseOrder    Clause = "order"
	ClauseRelWhere Clause = "rel_where"
	ClauseRelOrder Clause = "rel_order"
	ClauseSkip     Clause = "skip"
	ClauseLimit    Clause = "limit"
)

// Link is one clause instruction of a chain. Its argument is either a
// literal or a function of the node and relationship identifiers the chain
// binds at materialization.
type Link struct {
	clause Clause
	value  any
	fn     func(node, rel string) any
	extra  []any
}

// NewLink creates a link with a literal argument.
func NewLink(clause Clause, value any, extra ...any) Link {
	return Link{clause: clause, value: value, extra: extra}
}

// DeferredLink creates a link whose argument is computed from the node and
// relationship identifiers. fn must not depend on anything else.
func DeferredLink(clause Clause, fn func(node, rel string) any, extra ...any) Link {
	return Link{clause: clause, fn: fn, extra: extra}
}

func (l Link) Clause() Clause { return l.clause }
func (l Link) Deferred() bool { return l.fn != nil }

// Args resolves the argument against the given identifiers, followed by
// the extra arguments.
func (l Link) Args(node, rel string) []any {
	v := l.value
	if l.fn != nil {
		v = l.fn(node, rel)
	}
	return append([]any{v}, l.extra...)
}

func (l Link) withClause(c Clause) Link {
	l.clause = c
	return l
}

func (l Link) apply(q *cypher.Query, node, rel string) *cypher.Query {
	args := l.Args(node, rel)
	switch l.clause {
	case ClauseMatch:
		s, ok := args[0].(string)
		if !ok {
			return q.AddError(fmt.Errorf("match: unsupported argument %T", args[0]))
		}
		return q.Match(s)
	case ClauseWhere, ClauseRelWhere:
		return q.Where(args...)
	case ClauseWhereNot:
		return q.WhereNot(args...)
	case ClauseOrder, ClauseRelOrder:
		return q.Order(args...)
	case ClauseSkip, ClauseLimit:
		n, ok := model.AsInt64(args[0])
		if !ok || n < 0 {
			return q.AddError(fmt.Errorf("%s: invalid value %v", l.clause, args[0]))
		}
		if l.clause == ClauseSkip {
			return q.Skip(int(n))
		}
		return q.Limit(int(n))
	}
	return q.AddError(fmt.Errorf("unknown clause %q", l.clause))
}

// Sort orders by a property of the node (or relationship) in scope.
type Sort struct {
	Prop string
	Desc bool
}

// Asc sorts ascending by prop.
func Asc(prop string) Sort { return Sort{Prop: prop} }

// Desc sorts descending by prop.
func Desc(prop string) Sort { return Sort{Prop: prop, Desc: true} }

// LinksFor translates the arguments of one builder call into links. m and
// a may be nil.
func LinksFor(m *model.Model, a *model.Association, clause Clause, args ...any) ([]Link, error) {
	return linksFor(m, a, clause, 0, args)
}

// linksFor numbers association identifiers after offset.
func linksFor(m *model.Model, a *model.Association, clause Clause, offset int, args []any) ([]Link, error) {
	if len(args) == 0 {
		return nil, nil
	}
	switch clause {
	case ClauseWhere:
		return whereLinks(m, offset, args)
	case ClauseWhereNot:
		links, err := whereLinks(m, offset, args)
		if err != nil {
			return nil, err
		}
		for i := range links {
			links[i] = links[i].withClause(ClauseWhereNot)
		}
		return links, nil
	case ClauseRelWhere:
		if conds, ok := asMap(args[0]); ok {
			return relWhereLinks(a, conds), nil
		}
	case ClauseOrder, ClauseRelOrder:
		return orderLinks(clause, args), nil
	}
	return []Link{NewLink(clause, args[0], args[1:]...)}, nil
}

func whereLinks(m *model.Model, offset int, args []any) ([]Link, error) {
	if s, ok := args[0].(string); ok {
		return []Link{NewLink(ClauseWhere, s, args[1:]...)}, nil
	}
	conds, ok := asMap(args[0])
	if !ok {
		return []Link{NewLink(ClauseWhere, args[0], args[1:]...)}, nil
	}

	var links []Link
	n := offset
	for _, key := range sortedKeys(conds) {
		value := conds[key]
		if a, ok := m.Association(key); ok && !a.NoTargetFilter {
			id, ok := identityOf(value)
			if !ok {
				return nil, apierr.InvalidCondition(key)
			}
			n++
			links = append(links, associationLinks(a, fmt.Sprintf("n%d", n), id)...)
			continue
		}
		links = append(links, propertyLink(m, key, value))
	}
	return links, nil
}

func associationLinks(a *model.Association, other string, id int64) []Link {
	arrow, _ := a.ArrowCypher("", false)
	match := DeferredLink(ClauseMatch, func(node, _ string) any {
		return "(" + node + ")" + arrow + "(" + other + ")"
	})
	where := NewLink(ClauseWhere, cypher.Cond{other: {cypher.NeoIDKey: id}})
	return []Link{match, where}
}

func propertyLink(m *model.Model, key string, value any) Link {
	if key == "id" && m != nil {
		key = m.IDProperty()
	}
	if n, ok := value.(*model.Node); ok {
		switch {
		case key == cypher.NeoIDKey:
			value = n.NeoID()
		case m != nil && key == m.IDProperty():
			value = n.IDValue()
		}
	}
	converted := m.ConvertProperty(key, value)
	return DeferredLink(ClauseWhere, func(node, _ string) any {
		return cypher.Cond{node: {key: converted}}
	})
}

func relWhereLinks(a *model.Association, conds map[string]any) []Link {
	var rm *model.RelModel
	if a != nil {
		rm = a.RelModel
	}
	links := make([]Link, 0, len(conds))
	for _, key := range sortedKeys(conds) {
		converted := rm.ConvertProperty(key, conds[key])
		links = append(links, DeferredLink(ClauseRelWhere, func(_, rel string) any {
			return cypher.Cond{rel: {key: converted}}
		}))
	}
	return links
}

func orderLinks(clause Clause, args []any) []Link {
	bind := func(node, rel string) string {
		if clause == ClauseRelOrder {
			return rel
		}
		return node
	}
	var links []Link
	for _, arg := range args {
		switch v := arg.(type) {
		case string:
			links = append(links, NewLink(ClauseOrder, v))
		case Sort:
			links = append(links, DeferredLink(clause, func(node, rel string) any {
				return cypher.OrderBy{Var: bind(node, rel), Prop: v.Prop, Desc: v.Desc}
			}))
		case map[string]string:
			for _, prop := range sortedKeys(v) {
				desc := strings.EqualFold(v[prop], "desc")
				links = append(links, DeferredLink(clause, func(node, rel string) any {
					return cypher.OrderBy{Var: bind(node, rel), Prop: prop, Desc: desc}
				}))
			}
		default:
			links = append(links, NewLink(clause, arg))
		}
	}
	return links
}

// identityOf resolves the store identity of a node or integer.
func identityOf(v any) (int64, bool) {
	if n, ok := v.(*model.Node); ok {
		if !n.Persisted() {
			return 0, false
		}
		return n.NeoID(), true
	}
	return model.AsInt64(v)
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case model.Props:
		return m, true
	case cypher.Params:
		return m, true
	}
	return nil, false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
