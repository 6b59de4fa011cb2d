// Package ontologytest builds small in-memory ontologies for tests.
package ontologytest

import (
	"github.com/rs/zerolog"
	"github.com/solatis/cuitarget/internal/ontology"
)

// Builder accumulates concepts, types and edges into ontology.Tables.
type Builder struct {
	t ontology.Tables
}

// NewBuilder returns a Builder with a (possibly empty) hierarchy.
func NewBuilder() *Builder {
	return &Builder{t: ontology.Tables{
		Names:          map[string]ontology.Set{},
		CUIsByName:     map[string]ontology.Set{},
		TypeIDs:        map[string]ontology.Set{},
		Children:       map[string]ontology.Set{},
		PreferredNames: map[string]string{},
	}}
}

// Concept registers cui with names; the first name becomes the preferred name.
func (b *Builder) Concept(cui string, names ...string) *Builder {
	if _, ok := b.t.Names[cui]; !ok {
		b.t.Names[cui] = ontology.Set{}
	}
	for i, name := range names {
		b.t.Names[cui][name] = struct{}{}
		if _, ok := b.t.CUIsByName[name]; !ok {
			b.t.CUIsByName[name] = ontology.Set{}
		}
		b.t.CUIsByName[name][cui] = struct{}{}
		if i == 0 {
			if _, ok := b.t.PreferredNames[cui]; !ok {
				b.t.PreferredNames[cui] = name
			}
		}
	}
	return b
}

// Types assigns type categories to cui.
func (b *Builder) Types(cui string, tuis ...string) *Builder {
	if _, ok := b.t.TypeIDs[cui]; !ok {
		b.t.TypeIDs[cui] = ontology.Set{}
	}
	for _, tui := range tuis {
		b.t.TypeIDs[cui][tui] = struct{}{}
	}
	return b
}

// Edge records child as a direct child of parent.
func (b *Builder) Edge(parent string, children ...string) *Builder {
	if _, ok := b.t.Children[parent]; !ok {
		b.t.Children[parent] = ontology.Set{}
	}
	for _, child := range children {
		b.t.Children[parent][child] = struct{}{}
	}
	return b
}

// WithoutHierarchy drops the children table, simulating a source without one.
func (b *Builder) WithoutHierarchy() *Builder {
	b.t.Children = nil
	return b
}

// Tables returns the accumulated tables.
func (b *Builder) Tables() ontology.Tables {
	return b.t
}

// Lookup builds a Lookup with a nop logger.
func (b *Builder) Lookup() *ontology.Lookup {
	return ontology.New(b.t, zerolog.Nop())
}

// ThreeLevel returns root -> mid -> leaf with one name each.
func ThreeLevel() *Builder {
	return NewBuilder().
		Concept("root", "root name").
		Concept("mid", "mid name").
		Concept("leaf", "leaf name").
		Edge("root", "mid").
		Edge("mid", "leaf")
}
