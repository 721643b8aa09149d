package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lintelhq/lintel/pkg/engine"
)

func TestNode(t *testing.T) {
	t.Parallel()

	child := engine.NewNode("LineLength", engine.WithAttr("max", "120"))
	root := engine.NewNode("Checker",
		engine.WithAttr("severity", "warning"),
		engine.WithMessage("key", "custom"),
		engine.WithChildNodes(child),
	)

	assert.Equal(t, "Checker", root.Name())

	v, ok := root.Attribute("severity")
	require.True(t, ok)
	assert.Equal(t, "warning", v)

	_, ok = root.Attribute("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"severity"}, root.AttributeNames())
	assert.Equal(t, map[string]string{"key": "custom"}, root.Messages())
	require.Len(t, root.Children(), 1)
	assert.Equal(t, "LineLength", root.Children()[0].Name())
}

func TestNode_WithAttribute(t *testing.T) {
	t.Parallel()

	orig := engine.NewNode("SuppressionFilter",
		engine.WithAttr("file", "suppressions.xml"),
		engine.WithAttr("other", "x"),
	)

	rewritten := orig.WithAttribute("file", "/abs/suppressions.xml")

	// The attribute is replaced and moves to the end of the definition order.
	v, ok := rewritten.Attribute("file")
	require.True(t, ok)
	assert.Equal(t, "/abs/suppressions.xml", v)
	assert.Equal(t, []string{"other", "file"}, rewritten.AttributeNames())

	// The original is untouched.
	v, ok = orig.Attribute("file")
	require.True(t, ok)
	assert.Equal(t, "suppressions.xml", v)
	assert.Equal(t, []string{"file", "other"}, orig.AttributeNames())
}

func TestNode_WithChildReplaced(t *testing.T) {
	t.Parallel()

	a := engine.NewNode("A")
	b := engine.NewNode("B")
	root := engine.NewNode("Checker", engine.WithChildNodes(a, b))

	replacement := engine.NewNode("B2")
	next := root.WithChildReplaced(1, replacement)

	assert.Equal(t, "B2", next.Children()[1].Name())
	assert.Equal(t, "A", next.Children()[0].Name())

	// The original is untouched.
	assert.Equal(t, "B", root.Children()[1].Name())

	assert.Panics(t, func() {
		root.WithChildReplaced(5, replacement)
	})
}
