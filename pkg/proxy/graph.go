// Package proxy builds lazily evaluated, chainable queries over models and
// their associations, and materializes them through a graph.Session.
//
// A QueryProxy never changes once built: every builder returns a new proxy,
// so one proxy can be the base of several diverging chains. Materialization
// folds the chain into a single cypher.Query; each terminal operation issues
// one round trip, and node/relationship results are memoized per proxy.
package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/maraichr/neogm/pkg/apierr"
	"github.com/maraichr/neogm/pkg/cypher"
	"github.com/maraichr/neogm/pkg/graph"
	"github.com/maraichr/neogm/pkg/model"
)

// Method is a model-level finder composed on top of a scope.
type Method func(ctx context.Context, scope *QueryProxy, args ...any) (any, error)

// Graph is the entry point: it binds models to a session.
type Graph struct {
	session graph.Session
	logger  *slog.Logger

	mu      sync.RWMutex
	methods map[*model.Model]map[string]Method
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) { g.logger = l }
}

// New creates a Graph over sess.
func New(sess graph.Session, opts ...Option) *Graph {
	g := &Graph{
		session: sess,
		logger:  slog.Default(),
		methods: map[*model.Model]map[string]Method{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// run executes q on r. Failures reported by the store carry CodeQueryFailed.
func run(ctx context.Context, r graph.Runner, q *cypher.Query) ([]*neo4j.Record, error) {
	if err := q.Err(); err != nil {
		return nil, fmt.Errorf("build cypher: %w", err)
	}
	recs, err := r.Run(ctx, q)
	if err != nil {
		return nil, apierr.QueryFailed(err)
	}
	return recs, nil
}

// Model starts a class-level chain over every node of m.
func (g *Graph) Model(m *model.Model) *QueryProxy {
	return &QueryProxy{graph: g, model: m, level: 1, params: map[string]any{}}
}

// Assoc starts a chain at an association of node n. vars optionally name
// the node and relationship identifiers.
func (g *Graph) Assoc(n *model.Node, name string, vars ...string) *QueryProxy {
	p := &QueryProxy{graph: g, start: n, level: 1, params: map[string]any{}}
	if n == nil {
		p.err = apierr.CrazyError("association " + name + " requested on a nil node")
		return p
	}
	a, ok := n.Model().Association(name)
	if !ok {
		p.err = apierr.UnknownAssociation(modelName(n.Model()), name)
		return p
	}
	p.assoc = a
	p.model = a.TargetModel()
	p.setVars(vars)
	return p
}

type scopeKey struct{ m *model.Model }

// Scoped returns the scope installed for m by QueryProxy.Scoping, or a
// class-level chain over m.
func (g *Graph) Scoped(ctx context.Context, m *model.Model) *QueryProxy {
	if p, ok := ctx.Value(scopeKey{m}).(*QueryProxy); ok {
		return p
	}
	return g.Model(m)
}

// Define registers a method callable through QueryProxy.Call on chains
// over m.
func (g *Graph) Define(m *model.Model, name string, fn Method) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.methods[m] == nil {
		g.methods[m] = map[string]Method{}
	}
	g.methods[m][name] = fn
}

func (g *Graph) method(m *model.Model, name string) (Method, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	fn, ok := g.methods[m][name]
	return fn, ok
}

func modelName(m *model.Model) string {
	if m == nil {
		return "node"
	}
	return m.Name()
}
