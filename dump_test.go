package cobweb

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrettyPrintIncludesCountsAndAttrs(t *testing.T) {
	tree := newTestTree()
	tree.root.IncrementCounts(Instance{"color": "red"})
	tree.root.CreateNewChild(Instance{"color": "blue"})

	out := tree.root.PrettyPrint()

	require.Contains(t, out, "count=1")
	require.True(t, strings.Contains(out, "color"))
	require.Contains(t, out, "concept")
}

func TestPrettyPrintNumericSummary(t *testing.T) {
	tree := newTestTree()
	n := tree.newNode()
	n.IncrementCounts(Instance{"size": 2.0})
	n.IncrementCounts(Instance{"size": 4.0})

	out := n.PrettyPrint()
	require.Contains(t, out, "mean=")
	require.Contains(t, out, "std=")
}

func TestPrettyPrintLeafProducesSingleLineOfTreeArt(t *testing.T) {
	tree := newTestTree()
	leaf := tree.newNode()
	leaf.IncrementCounts(Instance{"a": "b"})

	out := leaf.PrettyPrint()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2) // header line + one attribute line
}
