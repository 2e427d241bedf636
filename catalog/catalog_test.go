package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDescription() Description {
	return Description{
		Labels: []Label{
			{Name: "User", Table: "users", IDColumn: "id", Props: map[string]string{"name": "name", "age": "age"}},
			{Name: "Company", Table: "companies", IDColumn: "id", Props: map[string]string{"name": "name"}},
		},
		Relationships: []RelationshipMeta{
			{Type: "KNOWS", FromLabel: "User", ToLabel: "User", Table: "knows_edges"},
			{Type: "WORKS_AT", FromLabel: "User", ToLabel: "Company", Table: "works_at_edges"},
		},
		Tables: []Table{
			{Name: "users", IDColumn: "id", TimeColumn: "created_at", RowEstimate: 1000, Columns: []Column{
				{Name: "id", Type: TypeString, Required: true},
				{Name: "name", Type: TypeString},
				{Name: "age", Type: TypeNumber},
				{Name: "created_at", Type: TypeTime},
			}},
			{Name: "companies", IDColumn: "id", RowEstimate: 50, Columns: []Column{
				{Name: "id", Type: TypeString, Required: true},
				{Name: "name", Type: TypeString},
			}},
			{Name: "knows_edges", Columns: []Column{{Name: "from"}, {Name: "to"}}},
			{Name: "works_at_edges", Columns: []Column{{Name: "from"}, {Name: "to"}}},
		},
	}
}

func TestLoadAndValidateSucceeds(t *testing.T) {
	c := Load(sampleDescription())
	assert.Empty(t, c.Validate())
}

func TestTableOfAndColumnOf(t *testing.T) {
	c := Load(sampleDescription())

	table, err := c.TableOf("User")
	require.Nil(t, err)
	assert.Equal(t, "users", table.Name)

	col, typ, err := c.ColumnOf("User", "age")
	require.Nil(t, err)
	assert.Equal(t, "age", col)
	assert.Equal(t, TypeNumber, typ)

	_, _, err = c.ColumnOf("User", "nonexistent")
	require.NotNil(t, err)
	assert.Equal(t, "UnknownProperty", string(err.Kind))
}

func TestTableOfUnknownLabel(t *testing.T) {
	c := Load(sampleDescription())
	_, err := c.TableOf("Ghost")
	require.NotNil(t, err)
	assert.Equal(t, "UnknownLabel", string(err.Kind))
}

func TestValidateCatchesBadReferences(t *testing.T) {
	desc := sampleDescription()
	desc.Relationships = append(desc.Relationships, RelationshipMeta{Type: "OWNS", FromLabel: "User", ToLabel: "Ghost", Table: "users"})
	c := Load(desc)
	errs := c.Validate()
	require.NotEmpty(t, errs)
}

func TestHasTableReference(t *testing.T) {
	c := Load(sampleDescription())
	assert.True(t, c.HasTableReference("users | where age > 1"))
	assert.False(t, c.HasTableReference("nonexistent_table | where age > 1"))
}

func TestPathTables(t *testing.T) {
	c := Load(sampleDescription())
	from, to, err := c.PathTables("User", "Company")
	require.Nil(t, err)
	assert.Equal(t, "users", from)
	assert.Equal(t, "companies", to)
}
