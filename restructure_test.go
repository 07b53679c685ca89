package cobweb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNodePathFromRoot(t *testing.T) {
	tree := newTestTree()
	child := tree.root.CreateNewChild(Instance{"a": "1"})
	grandchild := child.CreateNewChild(Instance{"a": "1"})

	path := nodePathFromRoot(grandchild)
	require.Equal(t, []*Node{tree.root, child, grandchild}, path)
}

func TestAddByPathEmptyLeaf(t *testing.T) {
	tree := newTestTree()
	inst := Instance{"color": "red"}
	ctx := newContextHandle([]*Node{tree.root})

	committed := tree.addByPath(inst, ctx, nil, nil)

	require.Same(t, tree.root, committed)
	require.True(t, ctx.IsCommitted())
	require.Equal(t, 1, tree.root.count)
}

func TestAddByPathExactMatchIncrementsInPlace(t *testing.T) {
	tree := newTestTree()
	first := Instance{"color": "red"}
	ctx1 := newContextHandle([]*Node{tree.root})
	tree.addByPath(first, ctx1, nil, nil)

	second := Instance{"color": "red"}
	ctx2 := newContextHandle([]*Node{tree.root})
	committed := tree.addByPath(second, ctx2, nil, nil)

	require.Same(t, tree.root, committed)
	require.Equal(t, 2, tree.root.count)
	require.True(t, tree.root.IsLeaf())
}

func TestAddByPathFringeSplit(t *testing.T) {
	tree := newTestTree()
	first := Instance{"color": "red"}
	ctx1 := newContextHandle([]*Node{tree.root})
	tree.addByPath(first, ctx1, nil, nil)

	second := Instance{"color": "blue"}
	ctx2 := newContextHandle([]*Node{tree.root})
	committed := tree.addByPath(second, ctx2, nil, nil)

	require.NotSame(t, tree.root, committed)
	require.Same(t, tree.root, committed.parent)
	require.Len(t, tree.root.children, 2)
	require.Equal(t, 2, tree.root.count)
	require.True(t, ctx1.IsDescendantOf(tree.root))
}

func TestFringeSplitFixesUpUnaddedHandles(t *testing.T) {
	tree := newTestTree()
	first := Instance{"color": "red"}
	ctx1 := newContextHandle([]*Node{tree.root})
	tree.addByPath(first, ctx1, nil, nil)
	leaf := ctx1.Leaf()

	unadded := newContextHandle([]*Node{tree.root, leaf})
	w := &windowItem{inst: Instance{"color": "red"}, ctx: unadded}

	second := Instance{"color": "blue"}
	ctx2 := newContextHandle([]*Node{tree.root})
	tree.addByPath(second, ctx2, nil, []*windowItem{w})

	require.True(t, unadded.IsDescendantOf(leaf.parent))
}

func TestMergeUpdateRewiresUnaddedHandles(t *testing.T) {
	tree := newTestTree()
	parent := tree.root
	a := parent.CreateNewChild(Instance{"x": "1"})
	b := parent.CreateNewChild(Instance{"x": "2"})

	h := newContextHandle([]*Node{parent, a})
	w := &windowItem{inst: Instance{}, ctx: h}

	merged := tree.mergeUpdate(parent, a, b, []*windowItem{w})

	require.True(t, h.IsDescendantOf(merged))
	require.Len(t, parent.children, 1)
	require.Same(t, merged, parent.children[0])
}

func TestSplitUpdateDropsStaleHandleEntries(t *testing.T) {
	tree := newTestTree()
	parent := tree.root
	mid := parent.CreateNewChild(Instance{"x": "1"})
	leaf := mid.CreateNewChild(Instance{"x": "1"})

	h := newContextHandle([]*Node{parent, mid})
	w := &windowItem{inst: Instance{}, ctx: h}

	tree.splitUpdate(parent, mid, []*windowItem{w})

	require.Len(t, parent.children, 1)
	require.Same(t, leaf, parent.children[0])
	require.False(t, h.IsDescendantOf(mid))
}

func TestSplitUpdateRetargetsNewChildSite(t *testing.T) {
	tree := newTestTree()
	parent := tree.root
	mid := parent.CreateNewChild(Instance{"x": "1"})
	mid.CreateNewChild(Instance{"x": "1"})

	h := newContextHandle([]*Node{parent, mid})
	require.Same(t, mid, h.Leaf())
	w := &windowItem{inst: Instance{}, ctx: h}

	tree.splitUpdate(parent, mid, []*windowItem{w})

	require.Same(t, parent, h.Leaf())
}

func TestMergeContextsCollapsesRepresentatives(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeDepth = 0
	tree := New(cfg)

	leaf1 := tree.root.CreateNewChild(Instance{"x": "1"})
	leaf2 := tree.root.CreateNewChild(Instance{"x": "2"})

	h1 := newContextHandle([]*Node{tree.root, leaf1})
	h1.SetInstance(leaf1)
	h2 := newContextHandle([]*Node{tree.root, leaf2})
	h2.SetInstance(leaf2)

	tree.root.avCounts[CtxAttr] = newContextCounts()
	tree.root.avCounts[CtxAttr].context[h1] = 3
	tree.root.avCounts[CtxAttr].context[h2] = 5

	tree.mergeContexts()

	bucket := tree.root.avCounts[CtxAttr]
	require.Len(t, bucket.context, 1)

	total := 0
	for _, c := range bucket.context {
		total += c
	}
	require.Equal(t, 8, total)
}

func TestMergeContextsDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeDepth = 0
	cfg.MergeContextsEnabled = false
	tree := New(cfg)

	leaf1 := tree.root.CreateNewChild(Instance{"x": "1"})
	leaf2 := tree.root.CreateNewChild(Instance{"x": "2"})

	h1 := newContextHandle([]*Node{tree.root, leaf1})
	h1.SetInstance(leaf1)
	h2 := newContextHandle([]*Node{tree.root, leaf2})
	h2.SetInstance(leaf2)

	tree.root.avCounts[CtxAttr] = newContextCounts()
	tree.root.avCounts[CtxAttr].context[h1] = 3
	tree.root.avCounts[CtxAttr].context[h2] = 5

	tree.mergeContexts()

	require.Len(t, tree.root.avCounts[CtxAttr].context, 2)
}
