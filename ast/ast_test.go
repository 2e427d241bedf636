package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flanksource/yellowstone-kql/diag"
)

func TestNewPathExpressionSingleNode(t *testing.T) {
	n := NodePattern{Variable: &Identifier{Name: "n"}}
	path, err := NewPathExpression([]NodePattern{n}, nil, diag.Span{})
	require.Nil(t, err)
	assert.Len(t, path.Nodes, 1)
	assert.Empty(t, path.Relationships)
}

func TestNewPathExpressionValidChain(t *testing.T) {
	a := NodePattern{Variable: &Identifier{Name: "a"}}
	b := NodePattern{Variable: &Identifier{Name: "b"}}
	rel := RelationshipPattern{Direction: Out}
	path, err := NewPathExpression([]NodePattern{a, b}, []RelationshipPattern{rel}, diag.Span{})
	require.Nil(t, err)
	assert.Len(t, path.Nodes, 2)
	assert.Len(t, path.Relationships, 1)
}

func TestNewPathExpressionRejectsArityMismatch(t *testing.T) {
	a := NodePattern{Variable: &Identifier{Name: "a"}}
	rel := RelationshipPattern{Direction: Out}
	_, err := NewPathExpression([]NodePattern{a}, []RelationshipPattern{rel}, diag.Span{})
	require.NotNil(t, err)
	assert.Equal(t, diag.InvalidPathStructure, err.Kind)
}

func TestDirectionString(t *testing.T) {
	assert.Equal(t, "Out", Out.String())
	assert.Equal(t, "In", In.String())
	assert.Equal(t, "Both", Both.String())
}

func TestNodePatternStringIncludesLabels(t *testing.T) {
	n := NodePattern{Variable: &Identifier{Name: "n"}, Labels: []Identifier{{Name: "User"}}}
	assert.Equal(t, "(n:User)", n.String())
}
