package cobweb

import (
	"sort"

	"github.com/y0ssar1an/q"
)

// nodePathFromRoot returns the root-to-n chain of ancestors, n included.
func nodePathFromRoot(n *Node) []*Node {
	var path []*Node
	for cur := n; cur != nil; cur = cur.parent {
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// addByPath commits inst at the leaf ctx currently points to. If that
// position is an internal node (cobwebPath chose "new" before reaching a
// leaf), inst becomes a fresh sibling leaf there; if the leaf is empty or
// an exact match, inst is folded into it in place; otherwise inst
// disagrees with the leaf and it is fringe-split. Each branch then hands
// off to incrementAndRestructure, which increments counts from the
// committed position up to the root and reconsiders merge/split at every
// level recorded in actions (§4.5).
func (t *Tree) addByPath(inst Instance, ctx *ContextHandle, actions []actionRecord, unaddedWindow []*windowItem) *Node {
	whereToAdd := ctx.Leaf()

	switch {
	case !whereToAdd.IsLeaf():
		if t.config.Trace {
			q.Q("add_by_path: new child of internal node", whereToAdd.id)
		}
		leaf := whereToAdd.CreateNewLeaf(inst, ctx)
		t.incrementAndRestructure(inst, whereToAdd, actions, unaddedWindow)
		return leaf
	case whereToAdd.count == 0 || whereToAdd.IsExactMatch(inst):
		if t.config.Trace {
			q.Q("add_by_path: leaf match", whereToAdd.id)
		}
		leaf := ctx.SetInstance(whereToAdd)
		t.incrementAndRestructure(inst, whereToAdd, actions, unaddedWindow)
		return leaf
	default:
		if t.config.Trace {
			q.Q("add_by_path: fringe split", whereToAdd.id)
		}
		return t.fringeSplitUpdate(whereToAdd, inst, ctx, actions, unaddedWindow)
	}
}

// fringeSplitUpdate handles the case where the committing instance
// disagrees with the leaf it descended to: it inserts a new parent above
// leaf carrying leaf's old counts, adds inst as a fresh sibling leaf, fixes
// up every still-unadded context handle whose tentative path ran through
// leaf to also include the new parent, and retargets the last recorded
// action's best1 (which was leaf) to the new parent, since leaf is no
// longer current's direct child (§4.1, §4.5).
func (t *Tree) fringeSplitUpdate(leaf *Node, inst Instance, ctx *ContextHandle, actions []actionRecord, unaddedWindow []*windowItem) *Node {
	parent := leaf.InsertParentWithCurrentCounts()
	newLeaf := parent.CreateNewLeaf(inst, ctx)

	for _, w := range unaddedWindow {
		if w.ctx.IsDescendantOf(leaf) {
			w.ctx.InsertIntoPath(parent)
		}
	}
	if len(actions) > 0 {
		actions[len(actions)-1].best1 = parent
	}

	t.incrementAndRestructure(inst, parent, actions, unaddedWindow)
	return newLeaf
}

// incrementAndRestructure increments whereToAdd and every ancestor up to
// the root with inst, then walks actions bottom-up (the deepest level
// first) and applies merge or split wherever its CU strictly beats the CU
// recorded for that level at categorization time, skipping levels where
// neither is structurally possible (current has at most two children and
// best1 is a leaf) (§4.5).
func (t *Tree) incrementAndRestructure(inst Instance, whereToAdd *Node, actions []actionRecord, unaddedWindow []*windowItem) {
	whereToAdd.IncrementAllCounts(inst)

	for i := len(actions) - 1; i >= 0; i-- {
		a := actions[i]
		current, best1, best2 := a.current, a.best1, a.best2

		if len(current.children) <= 2 && len(best1.children) == 0 {
			continue
		}

		possible := opsSplitMerge
		if best2 == nil {
			possible = map[string]bool{opSplit: true}
		}

		actionCU, action := t.getBestOperation(current, nil, best1, best2, a.best1CU, possible)
		if actionCU <= a.actionCU {
			continue
		}

		switch action {
		case opMerge:
			t.mergeUpdate(current, best1, best2, unaddedWindow)
		case opSplit:
			t.splitUpdate(current, best1, unaddedWindow)
		}
	}
}

// mergeUpdate replaces best1 and best2 with a shared merge node and rewires
// every still-unadded handle whose path passed through either into also
// including the merge node (§4.1, §4.5 __merge_update).
func (t *Tree) mergeUpdate(current, best1, best2 *Node, unaddedWindow []*windowItem) *Node {
	mergeNode := current.Merge(best1, best2)
	for _, w := range unaddedWindow {
		if w.ctx.IsDescendantOf(best1) || w.ctx.IsDescendantOf(best2) {
			w.ctx.InsertIntoPath(mergeNode)
		}
	}
	return mergeNode
}

// splitUpdate promotes best1's children to current and discards best1,
// dropping it from any still-unadded handle's tentative path and retargeting
// any handle whose candidate "new child" site was best1 to current instead
// (§4.1, §4.5 __split_update).
func (t *Tree) splitUpdate(current, best1 *Node, unaddedWindow []*windowItem) {
	current.Split(best1)
	for _, w := range unaddedWindow {
		if w.ctx.IsCommitted() {
			continue
		}
		delete(w.ctx.tentativePath, best1)
		if w.ctx.instance == best1 {
			w.ctx.setLeaf(current)
		}
	}
}

// mergeContexts is the periodic compaction pass (§4.5 merge_contexts): below
// MergeDepth levels from the root, every distinct committed leaf within a
// subtree is collapsed to a single representative context handle, folding
// the others' CTX bucket counts into it. This is a no-op when
// Config.MergeContextsEnabled is false — see the Open Questions discussion
// in DESIGN.md for why that knob exists.
func (t *Tree) mergeContexts() {
	if !t.config.MergeContextsEnabled {
		return
	}
	t.mergeContextHelper(t.root, 0)
}

func (t *Tree) mergeContextHelper(n *Node, depth int) {
	if depth < t.config.MergeDepth {
		for _, c := range n.children {
			t.mergeContextHelper(c, depth+1)
		}
		return
	}

	var leaves []*Node
	t.walk(n, func(d *Node) {
		if d.committedContext != nil {
			leaves = append(leaves, d)
		}
	})
	if len(leaves) < 2 {
		return
	}

	sort.Slice(leaves, func(i, j int) bool { return leaves[i].id < leaves[j].id })
	representative := leaves[0].committedContext

	for _, leaf := range leaves[1:] {
		stale := leaf.committedContext
		if stale == representative {
			continue
		}
		t.rewriteContextHandle(stale, representative)
		leaf.committedContext = representative
	}
}

// rewriteContextHandle folds every av_counts[CTX] occurrence of stale, from
// stale's leaf up to the root, into representative, then drops stale.
func (t *Tree) rewriteContextHandle(stale, representative *ContextHandle) {
	for cur := stale.Leaf(); cur != nil; cur = cur.parent {
		bucket := cur.avCounts[CtxAttr]
		if bucket == nil {
			continue
		}
		if c, ok := bucket.context[stale]; ok {
			bucket.context[representative] += c
			delete(bucket.context, stale)
		}
	}
}
