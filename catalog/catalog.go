// Package catalog holds the immutable, process-wide Schema Catalog: the
// mapping from graph vocabulary (labels, relationship types, properties)
// to the backend table/column/type triples the KQL emitter needs.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"github.com/flanksource/yellowstone-kql/diag"
	"gopkg.in/yaml.v3"
)

// ColumnType is the backend column's declared type.
type ColumnType string

const (
	TypeString  ColumnType = "string"
	TypeNumber  ColumnType = "number"
	TypeBool    ColumnType = "bool"
	TypeTime    ColumnType = "datetime"
	TypeDynamic ColumnType = "dynamic"
)

// Column describes one backend table column.
type Column struct {
	Name     string     `yaml:"name"`
	Type     ColumnType `yaml:"type"`
	Required bool       `yaml:"required"`
}

// Table describes one backend table: its ordered columns, its id column,
// and (per SPEC_FULL.md §9 item 1) an optional explicit time column used by
// the optimizer's TimeRange rule.
type Table struct {
	Name        string   `yaml:"name"`
	Columns     []Column `yaml:"columns"`
	IDColumn    string   `yaml:"id_column"`
	TimeColumn  string   `yaml:"time_column,omitempty"`
	RowEstimate int64    `yaml:"row_estimate"`
}

func (t Table) column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Label maps a graph node label to its backend table and property columns.
type Label struct {
	Name     string            `yaml:"name"`
	Table    string            `yaml:"table"`
	IDColumn string            `yaml:"id_column"`
	Props    map[string]string `yaml:"properties"` // property name -> column name
}

// RelationshipMeta maps a graph relationship type to its endpoints, join
// predicate template, and backend table.
type RelationshipMeta struct {
	Type         string `yaml:"type"`
	FromLabel    string `yaml:"from_label"`
	ToLabel      string `yaml:"to_label"`
	Table        string `yaml:"table"`
	JoinTemplate string `yaml:"join_template"`
	Strength     string `yaml:"strength"`
}

// Description is the declarative, serializable form a Catalog is loaded
// from (spec.md §4.1: "loaded from a declarative description").
type Description struct {
	Labels        []Label            `yaml:"labels"`
	Relationships []RelationshipMeta `yaml:"relationships"`
	Tables        []Table            `yaml:"tables"`
}

// Catalog is the immutable, process-wide schema. All lookups are O(1) via
// prebuilt maps; Catalog is never mutated after Load returns.
type Catalog struct {
	labels        map[string]Label
	relationships map[string]RelationshipMeta
	tables        map[string]Table
}

// Load parses a Description and builds the prebuilt indices. It does not
// validate referential integrity — call Validate for that, matching
// spec.md's separate load()/validate() contract.
func Load(desc Description) *Catalog {
	c := &Catalog{
		labels:        make(map[string]Label, len(desc.Labels)),
		relationships: make(map[string]RelationshipMeta, len(desc.Relationships)),
		tables:        make(map[string]Table, len(desc.Tables)),
	}
	for _, l := range desc.Labels {
		c.labels[l.Name] = l
	}
	for _, r := range desc.Relationships {
		c.relationships[r.Type] = r
	}
	for _, t := range desc.Tables {
		c.tables[t.Name] = t
	}
	return c
}

// LoadYAML reads a Description from a YAML file and builds a Catalog.
func LoadYAML(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog description: %w", err)
	}
	var desc Description
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("parsing catalog description: %w", err)
	}
	return Load(desc), nil
}

// TableOf returns the backend table for a label, or UnknownLabel.
func (c *Catalog) TableOf(label string) (Table, *diag.Diagnostic) {
	l, ok := c.labels[label]
	if !ok {
		return Table{}, diag.New(diag.UnknownLabel, "unknown label %q", label)
	}
	t, ok := c.tables[l.Table]
	if !ok {
		return Table{}, diag.New(diag.UnknownLabel, "label %q maps to unknown table %q", label, l.Table)
	}
	return t, nil
}

// ColumnOf returns the backend column and type for a label's property.
func (c *Catalog) ColumnOf(label, property string) (string, ColumnType, *diag.Diagnostic) {
	l, ok := c.labels[label]
	if !ok {
		return "", "", diag.New(diag.UnknownLabel, "unknown label %q", label)
	}
	colName, ok := l.Props[property]
	if !ok {
		return "", "", diag.New(diag.UnknownProperty, "label %q has no property %q", label, property)
	}
	t, ok := c.tables[l.Table]
	if !ok {
		return "", "", diag.New(diag.UnknownLabel, "label %q maps to unknown table %q", label, l.Table)
	}
	col, ok := t.column(colName)
	if !ok {
		return "", "", diag.New(diag.UnknownProperty, "column %q not found in table %q", colName, l.Table)
	}
	return col.Name, col.Type, nil
}

// Relationship returns the metadata for a relationship type.
func (c *Catalog) Relationship(relType string) (RelationshipMeta, *diag.Diagnostic) {
	r, ok := c.relationships[relType]
	if !ok {
		return RelationshipMeta{}, diag.New(diag.UnknownRelationship, "unknown relationship type %q", relType)
	}
	return r, nil
}

// PathTables returns the (from, to) backend tables for a label pair, used
// by the planner to decide join feasibility.
func (c *Catalog) PathTables(fromLabel, toLabel string) (string, string, *diag.Diagnostic) {
	fromL, ok := c.labels[fromLabel]
	if !ok {
		return "", "", diag.New(diag.UnknownLabel, "unknown label %q", fromLabel)
	}
	toL, ok := c.labels[toLabel]
	if !ok {
		return "", "", diag.New(diag.UnknownLabel, "unknown label %q", toLabel)
	}
	return fromL.Table, toL.Table, nil
}

// Label looks up a label's raw metadata (used by the resolver).
func (c *Catalog) Label(name string) (Label, bool) {
	l, ok := c.labels[name]
	return l, ok
}

// Table looks up a table's raw metadata by name.
func (c *Catalog) Table(name string) (Table, bool) {
	t, ok := c.tables[name]
	return t, ok
}

// HasTableReference reports whether kql mentions at least one of this
// catalog's known table names, used by the engine's Validate to reject
// KQL that cannot possibly be reading from a registered backend table
// without executing anything.
func (c *Catalog) HasTableReference(kql string) bool {
	for name := range c.tables {
		if strings.Contains(kql, name) {
			return true
		}
	}
	return false
}

// Validate cross-checks referential integrity at load time: every
// relationship's from/to labels must exist, and every label's property
// must map to a column whose table matches the label's table.
func (c *Catalog) Validate() diag.List {
	var errs diag.List

	for relType, r := range c.relationships {
		if _, ok := c.labels[r.FromLabel]; !ok {
			errs = append(errs, diag.New(diag.UnknownLabel, "relationship %q: unknown from-label %q", relType, r.FromLabel))
		}
		if _, ok := c.labels[r.ToLabel]; !ok {
			errs = append(errs, diag.New(diag.UnknownLabel, "relationship %q: unknown to-label %q", relType, r.ToLabel))
		}
		if _, ok := c.tables[r.Table]; !ok {
			errs = append(errs, diag.New(diag.UnknownLabel, "relationship %q: unknown table %q", relType, r.Table))
		}
	}

	for name, l := range c.labels {
		table, ok := c.tables[l.Table]
		if !ok {
			errs = append(errs, diag.New(diag.UnknownLabel, "label %q: unknown table %q", name, l.Table))
			continue
		}
		for prop, colName := range l.Props {
			if _, ok := table.column(colName); !ok {
				errs = append(errs, diag.New(diag.UnknownProperty, "label %q property %q maps to missing column %q in table %q", name, prop, colName, l.Table))
			}
		}
	}

	errs.Sort()
	return errs
}
