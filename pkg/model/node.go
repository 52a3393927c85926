package model

import (
	"maps"
	"slices"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// Node is a node instance of a Model.
type Node struct {
	model     *Model
	neoID     int64
	elementID string
	labels    []string
	persisted bool
	props     Props

	assocCache map[string][]*Node
	pending    map[string][]*Node

	origin   any
	siblings []*Node
}

// NewNode creates an unpersisted node with props coerced through m.
func NewNode(m *Model, props Props) *Node {
	n := &Node{model: m, labels: m.Labels(), props: Props{}}
	for k, v := range props {
		n.props[k] = m.ConvertProperty(k, v)
	}
	return n
}

// NodeFromDB wraps a node returned by the driver.
func NodeFromDB(m *Model, dn dbtype.Node) *Node {
	props := Props{}
	maps.Copy(props, dn.Props)
	return &Node{
		model:     m,
		neoID:     dn.Id,
		elementID: dn.ElementId,
		labels:    slices.Clone(dn.Labels),
		persisted: true,
		props:     props,
	}
}

func (n *Node) Model() *Model      { return n.model }
func (n *Node) NeoID() int64       { return n.neoID }
func (n *Node) ElementID() string  { return n.elementID }
func (n *Node) Labels() []string   { return slices.Clone(n.labels) }
func (n *Node) Persisted() bool    { return n != nil && n.persisted }
func (n *Node) Get(key string) any { return n.props[key] }

// Props returns a copy of the node's properties.
func (n *Node) Props() Props { return maps.Clone(n.props) }

// Set assigns a property, coercing it through the model.
func (n *Node) Set(key string, v any) {
	n.props[key] = n.model.ConvertProperty(key, v)
}

// IDValue returns the value of the model's id property.
func (n *Node) IDValue() any {
	if n.model == nil {
		return nil
	}
	return n.props[n.model.IDProperty()]
}

// Persist records the identity assigned by the store.
func (n *Node) Persist(neoID int64, elementID string) {
	n.neoID = neoID
	n.elementID = elementID
	n.persisted = true
}

// ResetPersistence marks the node unsaved again, e.g. after a rolled back
// transaction.
func (n *Node) ResetPersistence() {
	n.neoID = 0
	n.elementID = ""
	n.persisted = false
}

// AssociationCache returns the cached nodes for an association.
func (n *Node) AssociationCache(name string) ([]*Node, bool) {
	nodes, ok := n.assocCache[name]
	return nodes, ok
}

func (n *Node) SetAssociationCache(name string, nodes []*Node) {
	if n.assocCache == nil {
		n.assocCache = map[string][]*Node{}
	}
	n.assocCache[name] = nodes
}

func (n *Node) ClearAssociationCache() {
	n.assocCache = nil
}

// DeferCreate records nodes to be related through assoc once n is saved.
func (n *Node) DeferCreate(assoc string, nodes ...*Node) {
	if n.pending == nil {
		n.pending = map[string][]*Node{}
	}
	n.pending[assoc] = append(n.pending[assoc], nodes...)
}

// PendingAssociations returns a copy of the deferred relations.
func (n *Node) PendingAssociations() map[string][]*Node {
	return maps.Clone(n.pending)
}

// TakePending returns and clears the deferred relations.
func (n *Node) TakePending() map[string][]*Node {
	p := n.pending
	n.pending = nil
	return p
}

// SetOrigin stamps the node with the result set it was loaded in.
func (n *Node) SetOrigin(origin any, siblings []*Node) {
	n.origin = origin
	n.siblings = siblings
}

func (n *Node) Origin() any       { return n.origin }
func (n *Node) Siblings() []*Node { return n.siblings }
