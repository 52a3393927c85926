package model

import (
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/maraichr/neogm/pkg/apierr"
)

// SchemaFile is the YAML form of a set of model definitions.
type SchemaFile struct {
	Models    []ModelDef    `yaml:"models"`
	RelModels []RelModelDef `yaml:"rel_models,omitempty"`
}

// ModelDef defines one node model.
type ModelDef struct {
	Name   string   `yaml:"name"`
	Labels []string `yaml:"labels,omitempty"`
	// IDProperty switches to a caller-managed id property.
	IDProperty   string                  `yaml:"id_property,omitempty"`
	Properties   map[string]PropertyType `yaml:"properties,omitempty"`
	Associations []AssociationDef        `yaml:"associations,omitempty"`
}

// AssociationDef defines one association of a model.
type AssociationDef struct {
	Name      string    `yaml:"name"`
	Type      string    `yaml:"type,omitempty"`
	Direction Direction `yaml:"direction"`
	Unique    bool      `yaml:"unique,omitempty"`
	Targets   []string  `yaml:"targets,omitempty"`
	Untyped   bool      `yaml:"untyped,omitempty"`
	RelModel  string    `yaml:"rel_model,omitempty"`
}

// RelModelDef defines one relationship model.
type RelModelDef struct {
	Name       string                  `yaml:"name"`
	Type       string                  `yaml:"type"`
	Properties map[string]PropertyType `yaml:"properties,omitempty"`
}

// Schema is a resolved set of models.
type Schema struct {
	models    map[string]*Model
	relModels map[string]*RelModel
}

// Model returns the model with the given name.
func (s *Schema) Model(name string) (*Model, bool) {
	m, ok := s.models[name]
	return m, ok
}

// RelModel returns the relationship model with the given name.
func (s *Schema) RelModel(name string) (*RelModel, bool) {
	rm, ok := s.relModels[name]
	return rm, ok
}

// Models returns every model sorted by name.
func (s *Schema) Models() []*Model {
	out := make([]*Model, 0, len(s.models))
	for _, m := range s.models {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b *Model) int {
		switch {
		case a.name < b.name:
			return -1
		case a.name > b.name:
			return 1
		}
		return 0
	})
	return out
}

// LoadSchemaFile reads a YAML schema from path.
func LoadSchemaFile(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema: %w", err)
	}
	defer f.Close()
	return LoadSchema(f)
}

// LoadSchema decodes a YAML schema and resolves association targets.
func LoadSchema(r io.Reader) (*Schema, error) {
	var file SchemaFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return file.Build()
}

// Build resolves the definitions into models.
func (f *SchemaFile) Build() (*Schema, error) {
	s := &Schema{models: map[string]*Model{}, relModels: map[string]*RelModel{}}

	for _, def := range f.RelModels {
		if def.Name == "" || def.Type == "" {
			return nil, apierr.SchemaInvalid("rel model needs a name and a type")
		}
		rm := NewRelModel(def.Name, def.Type)
		for prop, t := range def.Properties {
			if !t.Valid() {
				return nil, apierr.SchemaInvalid(fmt.Sprintf("%s.%s: unknown type %q", def.Name, prop, t))
			}
			rm.Property(prop, t)
		}
		s.relModels[def.Name] = rm
	}

	for _, def := range f.Models {
		if def.Name == "" {
			return nil, apierr.SchemaInvalid("model needs a name")
		}
		if _, dup := s.models[def.Name]; dup {
			return nil, apierr.SchemaInvalid("duplicate model " + def.Name)
		}
		var opts []Option
		if len(def.Labels) > 0 {
			opts = append(opts, WithLabels(def.Labels...))
		}
		if def.IDProperty != "" {
			opts = append(opts, WithIDProperty(def.IDProperty))
		}
		m := New(def.Name, opts...)
		for prop, t := range def.Properties {
			if !t.Valid() {
				return nil, apierr.SchemaInvalid(fmt.Sprintf("%s.%s: unknown type %q", def.Name, prop, t))
			}
			m.Property(prop, t)
		}
		s.models[def.Name] = m
	}

	// second pass: targets may be declared after their owner
	for _, def := range f.Models {
		m := s.models[def.Name]
		for _, ad := range def.Associations {
			if err := s.associate(m, ad); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

func (s *Schema) associate(m *Model, ad AssociationDef) error {
	switch ad.Direction {
	case DirOut, DirIn, DirBoth:
	default:
		return apierr.SchemaInvalid(fmt.Sprintf("%s.%s: invalid direction %q", m.name, ad.Name, ad.Direction))
	}
	targets := make([]*Model, 0, len(ad.Targets))
	for _, name := range ad.Targets {
		t, ok := s.models[name]
		if !ok {
			return apierr.SchemaInvalid(fmt.Sprintf("%s.%s: unknown target %q", m.name, ad.Name, name))
		}
		targets = append(targets, t)
	}

	var a *Association
	if ad.Unique {
		a = m.HasOne(ad.Name, ad.Direction, ad.Type, targets...)
	} else {
		a = m.HasMany(ad.Name, ad.Direction, ad.Type, targets...)
	}
	a.NoTargetFilter = ad.Untyped
	if ad.RelModel != "" {
		rm, ok := s.relModels[ad.RelModel]
		if !ok {
			return apierr.SchemaInvalid(fmt.Sprintf("%s.%s: unknown rel model %q", m.name, ad.Name, ad.RelModel))
		}
		a.RelModel = rm
		if a.Type == "" {
			a.Type = rm.Type()
		}
	}
	return nil
}
