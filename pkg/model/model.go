// Package model describes the node and relationship types a query proxy
// works against: labels, the id property, declared properties with their
// coercion rules, and the associations between node types.
package model

import (
	"slices"
	"strings"
)

// DefaultIDProperty is the id property used when none is configured. Its
// values are generated on save.
const DefaultIDProperty = "uuid"

// NeoIDProperty names the store-assigned identity in conditions and plucks.
const NeoIDProperty = "neo_id"

// Model is a node type descriptor.
type Model struct {
	name       string
	labels     []string
	idProperty string
	autoID     bool
	props      map[string]PropertyType
	assocs     map[string]*Association
	assocOrder []string
}

// Option configures a Model.
type Option func(*Model)

// WithLabels overrides the labels, which default to the model name.
func WithLabels(labels ...string) Option {
	return func(m *Model) { m.labels = labels }
}

// WithIDProperty sets a caller-managed id property.
func WithIDProperty(name string) Option {
	return func(m *Model) {
		m.idProperty = name
		m.autoID = false
	}
}

// New creates a model named name.
func New(name string, opts ...Option) *Model {
	m := &Model{
		name:       name,
		labels:     []string{name},
		idProperty: DefaultIDProperty,
		autoID:     true,
		props:      map[string]PropertyType{},
		assocs:     map[string]*Association{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Model) Name() string     { return m.name }
func (m *Model) Labels() []string { return slices.Clone(m.labels) }

// LabelPattern renders the labels for a node pattern, e.g. ":Person".
func (m *Model) LabelPattern() string {
	if len(m.labels) == 0 {
		return ""
	}
	return ":" + strings.Join(m.labels, ":")
}

// IDProperty returns the name of the property holding the model's id.
func (m *Model) IDProperty() string { return m.idProperty }

// AutoID reports whether ids are generated on save.
func (m *Model) AutoID() bool { return m.autoID }

// Property declares a property and returns m for chaining.
func (m *Model) Property(name string, t PropertyType) *Model {
	m.props[name] = t
	return m
}

// PropertyType returns the declared type of a property.
func (m *Model) PropertyType(name string) (PropertyType, bool) {
	t, ok := m.props[name]
	return t, ok
}

// Properties returns the declared property names in sorted order.
func (m *Model) Properties() []string {
	names := make([]string, 0, len(m.props))
	for name := range m.props {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Attribute reports whether name is a declared property, the id property or
// the store identity.
func (m *Model) Attribute(name string) bool {
	if _, ok := m.props[name]; ok {
		return true
	}
	return name == m.idProperty || name == NeoIDProperty
}

// ConvertProperty coerces v through the declared type of name. Undeclared
// properties pass through unchanged.
func (m *Model) ConvertProperty(name string, v any) any {
	if m == nil {
		return v
	}
	t, ok := m.props[name]
	if !ok {
		return v
	}
	return t.Convert(v)
}

// MatchesLabels reports whether labels contain every label of the model.
func (m *Model) MatchesLabels(labels []string) bool {
	for _, l := range m.labels {
		if !slices.Contains(labels, l) {
			return false
		}
	}
	return true
}

// Association looks up an association by name.
func (m *Model) Association(name string) (*Association, bool) {
	if m == nil {
		return nil, false
	}
	a, ok := m.assocs[name]
	return a, ok
}

// Associations returns the associations in declaration order.
func (m *Model) Associations() []*Association {
	out := make([]*Association, 0, len(m.assocOrder))
	for _, name := range m.assocOrder {
		out = append(out, m.assocs[name])
	}
	return out
}

// HasMany declares a to-many association.
func (m *Model) HasMany(name string, dir Direction, relType string, targets ...*Model) *Association {
	return m.associate(name, dir, relType, false, targets)
}

// HasOne declares a to-one association.
func (m *Model) HasOne(name string, dir Direction, relType string, targets ...*Model) *Association {
	return m.associate(name, dir, relType, true, targets)
}

func (m *Model) associate(name string, dir Direction, relType string, unique bool, targets []*Model) *Association {
	a := &Association{
		Name:      name,
		Direction: dir,
		Type:      relType,
		Unique:    unique,
		Targets:   targets,
		owner:     m,
	}
	if _, exists := m.assocs[name]; !exists {
		m.assocOrder = append(m.assocOrder, name)
	}
	m.assocs[name] = a
	return a
}
