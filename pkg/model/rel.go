package model

import (
	"maps"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// RelModel is a relationship type descriptor.
type RelModel struct {
	name  string
	typ   string
	props map[string]PropertyType

	BeforeDestroy func(*Rel) error
	AfterDestroy  func(*Rel) error
}

// NewRelModel creates a relationship model for relationship type typ.
func NewRelModel(name, typ string) *RelModel {
	return &RelModel{name: name, typ: typ, props: map[string]PropertyType{}}
}

func (rm *RelModel) Name() string { return rm.name }
func (rm *RelModel) Type() string { return rm.typ }

// Property declares a property and returns rm for chaining.
func (rm *RelModel) Property(name string, t PropertyType) *RelModel {
	rm.props[name] = t
	return rm
}

// ConvertProperty coerces v through the declared type of name.
func (rm *RelModel) ConvertProperty(name string, v any) any {
	if rm == nil {
		return v
	}
	t, ok := rm.props[name]
	if !ok {
		return v
	}
	return t.Convert(v)
}

// Rel is a relationship instance.
type Rel struct {
	model     *RelModel
	neoID     int64
	elementID string
	typ       string
	props     Props
	startID   int64
	endID     int64
	start     *Node
	end       *Node
}

// RelFromDB wraps a relationship returned by the driver. rm may be nil.
func RelFromDB(rm *RelModel, dr dbtype.Relationship) *Rel {
	props := Props{}
	maps.Copy(props, dr.Props)
	return &Rel{
		model:     rm,
		neoID:     dr.Id,
		elementID: dr.ElementId,
		typ:       dr.Type,
		props:     props,
		startID:   dr.StartId,
		endID:     dr.EndId,
	}
}

func (r *Rel) Model() *RelModel   { return r.model }
func (r *Rel) NeoID() int64       { return r.neoID }
func (r *Rel) ElementID() string  { return r.elementID }
func (r *Rel) Type() string       { return r.typ }
func (r *Rel) Get(key string) any { return r.props[key] }
func (r *Rel) Props() Props       { return maps.Clone(r.props) }
func (r *Rel) StartID() int64     { return r.startID }
func (r *Rel) EndID() int64       { return r.endID }

// Start returns the start node when it has been wired.
func (r *Rel) Start() *Node { return r.start }
func (r *Rel) End() *Node   { return r.end }

// Wire sets whichever endpoint n is, by identity.
func (r *Rel) Wire(n *Node) {
	switch n.NeoID() {
	case r.startID:
		r.start = n
	case r.endID:
		r.end = n
	}
}
