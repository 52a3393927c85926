// Package cypher builds Cypher statements from chainable clause calls.
//
// A Query is immutable: every method returns a new Query, so a partially
// built statement can be shared and extended in several directions. Clauses
// are grouped into partitions separated by Break; inside a partition they are
// rendered in keyword order (MATCH, OPTIONAL MATCH, WHERE, CREATE, SET,
// DELETE, WITH, RETURN, ORDER BY, SKIP, LIMIT) and same-keyword clauses are
// merged, so `MATCH a MATCH b` becomes `MATCH a, b` and where conditions are
// joined with AND.
package cypher

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// NeoIDKey is the property key rendered as ID(var) instead of var.key.
const NeoIDKey = "neo_id"

// Params are bind parameters passed alongside a raw fragment.
type Params map[string]any

// Cond maps an identifier to property conditions, e.g.
// Cond{"n": {"name": "Alice"}} renders `n.name = $n_name`.
type Cond map[string]map[string]any

// OrderBy orders by a property of an identifier. An empty Prop orders by
// the identifier itself.
type OrderBy struct {
	Var  string
	Prop string
	Desc bool
}

func (o OrderBy) String() string {
	s := o.Var
	if o.Prop != "" {
		s += "." + o.Prop
	}
	if o.Desc {
		s += " DESC"
	}
	return s
}

// Query is an immutable Cypher statement under construction.
type Query struct {
	clauses    []clause
	params     map[string]any
	errs       []error
	chainLevel int
}

// New returns an empty query.
func New() *Query {
	return &Query{params: map[string]any{}}
}

func (q *Query) clone() *Query {
	return &Query{
		clauses:    slices.Clone(q.clauses),
		params:     maps.Clone(q.params),
		errs:       slices.Clone(q.errs),
		chainLevel: q.chainLevel,
	}
}

func (q *Query) add(kind Kind, texts ...string) *Query {
	nq := q.clone()
	for _, t := range texts {
		nq.clauses = append(nq.clauses, clause{kind: kind, text: t})
	}
	return nq
}

// AddError records a build error; Cypher reports it instead of a statement.
func (q *Query) AddError(err error) *Query {
	nq := q.clone()
	nq.errs = append(nq.errs, err)
	return nq
}

// Err returns the accumulated build errors, if any.
func (q *Query) Err() error {
	return errors.Join(q.errs...)
}

// Break starts a new partition. Clauses added afterwards are never merged
// with or reordered before clauses added earlier.
func (q *Query) Break() *Query {
	return q.add(kindBreak, "")
}

// Match appends MATCH patterns.
func (q *Query) Match(patterns ...string) *Query {
	return q.add(KindMatch, patterns...)
}

// OptionalMatch appends OPTIONAL MATCH patterns. Each pattern is rendered as
// its own OPTIONAL MATCH.
func (q *Query) OptionalMatch(patterns ...string) *Query {
	return q.add(KindOptionalMatch, patterns...)
}

// Create appends CREATE patterns.
func (q *Query) Create(patterns ...string) *Query {
	return q.add(KindCreate, patterns...)
}

// Where appends a condition. Accepted forms:
//
//	Where("n.age > $min", Params{"min": 30})
//	Where("n.age > ? AND n.age < ?", 30, 40)
//	Where(Cond{"n": {"name": "Alice"}})
func (q *Query) Where(args ...any) *Query {
	return q.where(false, args)
}

// WhereNot is Where with the condition negated.
func (q *Query) WhereNot(args ...any) *Query {
	return q.where(true, args)
}

func (q *Query) where(not bool, args []any) *Query {
	if len(args) == 0 {
		return q
	}
	nq := q.clone()
	var text string
	switch v := args[0].(type) {
	case string:
		text = nq.bindRaw(v, args[1:])
	case Cond:
		text = nq.renderCond(v)
	default:
		nq.errs = append(nq.errs, fmt.Errorf("where: unsupported argument %T", args[0]))
		return nq
	}
	if text == "" {
		return nq
	}
	nq.clauses = append(nq.clauses, clause{kind: KindWhere, text: text, not: not})
	return nq
}

// Set appends SET items: a Cond renders one assignment per property, a
// string is used verbatim with optional Params.
func (q *Query) Set(args ...any) *Query {
	if len(args) == 0 {
		return q
	}
	nq := q.clone()
	switch v := args[0].(type) {
	case string:
		nq.clauses = append(nq.clauses, clause{kind: KindSet, text: nq.bindRaw(v, args[1:])})
	case Cond:
		for _, name := range sortedKeys(v) {
			for _, key := range sortedKeys(v[name]) {
				p := nq.addParam("setter_"+name+"_"+key, v[name][key])
				nq.clauses = append(nq.clauses, clause{kind: KindSet, text: name + "." + key + " = $" + p})
			}
		}
	default:
		nq.errs = append(nq.errs, fmt.Errorf("set: unsupported argument %T", args[0]))
	}
	return nq
}

// Delete appends DELETE targets.
func (q *Query) Delete(targets ...string) *Query {
	return q.add(KindDelete, targets...)
}

// With appends WITH items. ORDER BY, SKIP and LIMIT in the same partition
// attach to the WITH; follow it with Break to continue the statement.
func (q *Query) With(items ...string) *Query {
	return q.add(KindWith, items...)
}

// Return appends RETURN items.
func (q *Query) Return(items ...string) *Query {
	return q.add(KindReturn, items...)
}

// ReturnDistinct appends RETURN DISTINCT items.
func (q *Query) ReturnDistinct(items ...string) *Query {
	if len(items) == 0 {
		return q
	}
	items = slices.Clone(items)
	items[0] = "DISTINCT " + items[0]
	return q.add(KindReturn, items...)
}

// Order appends ORDER BY items: raw strings or OrderBy values.
func (q *Query) Order(items ...any) *Query {
	nq := q.clone()
	for _, it := range items {
		switch v := it.(type) {
		case string:
			nq.clauses = append(nq.clauses, clause{kind: KindOrder, text: v})
		case OrderBy:
			nq.clauses = append(nq.clauses, clause{kind: KindOrder, text: v.String()})
		default:
			nq.errs = append(nq.errs, fmt.Errorf("order: unsupported argument %T", it))
		}
	}
	return nq
}

// Reorder drops every ORDER BY item and appends items instead.
func (q *Query) Reorder(items ...any) *Query {
	nq := q.clone()
	nq.clauses = slices.DeleteFunc(nq.clauses, func(c clause) bool { return c.kind == KindOrder })
	return nq.Order(items...)
}

// Skip sets SKIP.
func (q *Query) Skip(n int) *Query {
	return q.add(KindSkip, strconv.Itoa(n))
}

// Limit sets LIMIT.
func (q *Query) Limit(n int) *Query {
	return q.add(KindLimit, strconv.Itoa(n))
}

// Params merges bind parameters into the query.
func (q *Query) Params(p map[string]any) *Query {
	if len(p) == 0 {
		return q
	}
	nq := q.clone()
	maps.Copy(nq.params, p)
	return nq
}

// WithChainLevel tags the query with the depth of the proxy chain that
// produced it.
func (q *Query) WithChainLevel(level int) *Query {
	nq := q.clone()
	nq.chainLevel = level
	return nq
}

// ChainLevel returns the tag set by WithChainLevel.
func (q *Query) ChainLevel() int { return q.chainLevel }

// HasClause reports whether a clause of the given kind was added.
func (q *Query) HasClause(kind Kind) bool {
	return slices.ContainsFunc(q.clauses, func(c clause) bool { return c.kind == kind })
}

// Pending reports whether a clause of one of the kinds was added since the
// last Break.
func (q *Query) Pending(kinds ...Kind) bool {
	for _, c := range slices.Backward(q.clauses) {
		if c.kind == kindBreak {
			return false
		}
		if slices.Contains(kinds, c.kind) {
			return true
		}
	}
	return false
}

// Writes reports whether the statement modifies the graph.
func (q *Query) Writes() bool {
	return q.HasClause(KindCreate) || q.HasClause(KindSet) || q.HasClause(KindDelete)
}

// Cypher renders the statement and its parameters.
func (q *Query) Cypher() (string, map[string]any, error) {
	if err := q.Err(); err != nil {
		return "", nil, fmt.Errorf("build cypher: %w", err)
	}
	var parts []string
	for _, part := range partitions(q.clauses) {
		parts = append(parts, renderPartition(part)...)
	}
	return strings.Join(parts, " "), maps.Clone(q.params), nil
}

// String renders the statement, or the build error.
func (q *Query) String() string {
	s, _, err := q.Cypher()
	if err != nil {
		return err.Error()
	}
	return s
}
