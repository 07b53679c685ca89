package cobweb

// ContextHandle is a mutable reference held by an instance representing
// where that instance currently sits in the tree (§3 "Context handle
// lifecycle", §4.2). It starts out unadded, carrying a tentative path (a
// set of nodes from root down to a candidate leaf); once its owning
// instance is committed via Tree.addByPath it becomes committed, discards
// the tentative path, and instance becomes the final leaf.
//
// The tree owns every Node a ContextHandle can point at; a ContextHandle
// never owns a node, only refers to one (§3 "Ownership").
type ContextHandle struct {
	// tentativePath is nil once the handle is committed. While unadded it
	// holds the set of nodes on the handle's current candidate path.
	tentativePath map[*Node]struct{}

	// instance is the node this handle currently points at: the last
	// element of tentativePath while unadded, or the committed leaf.
	instance *Node
}

// newContextHandle builds an unadded handle whose tentative path is path,
// a root-to-leaf (or root-to-new-child-site) sequence as produced by
// Tree.cobwebPath.
func newContextHandle(path []*Node) *ContextHandle {
	h := &ContextHandle{tentativePath: make(map[*Node]struct{}, len(path))}
	for _, n := range path {
		h.tentativePath[n] = struct{}{}
	}
	if len(path) > 0 {
		h.instance = path[len(path)-1]
	}
	return h
}

// IsCommitted reports whether the handle's owning instance has been added
// to the tree.
func (h *ContextHandle) IsCommitted() bool { return h.tentativePath == nil }

// Leaf returns the node the handle currently refers to: the committed leaf,
// or (while unadded) the current stopping point of its tentative path.
func (h *ContextHandle) Leaf() *Node { return h.instance }

// SetPath replaces the tentative path with the set of nodes in path and
// points instance at its last element (§4.2).
func (h *ContextHandle) SetPath(path []*Node) {
	assertInvariant(!h.IsCommitted(), "I5", "SetPath called on a committed context handle")
	h.tentativePath = make(map[*Node]struct{}, len(path))
	for _, n := range path {
		h.tentativePath[n] = struct{}{}
	}
	if len(path) > 0 {
		h.instance = path[len(path)-1]
	}
}

// InsertIntoPath adds node to the tentative path set, used when a merge or
// fringe-split creates a new common ancestor along the handle's path
// (§4.2).
func (h *ContextHandle) InsertIntoPath(node *Node) {
	assertInvariant(!h.IsCommitted(), "I5", "InsertIntoPath called on a committed context handle")
	h.tentativePath[node] = struct{}{}
}

// setLeaf repoints instance without touching the tentative path set,
// used by splitUpdate (§4.5) after a split moves the handle's stopping
// point to a new node without changing path membership semantics.
func (h *ContextHandle) setLeaf(node *Node) {
	h.instance = node
}

// SetInstance commits the handle to leaf: the tentative path is discarded
// and instance becomes the final leaf. Returns leaf, matching the Python
// idiom `context.set_instance(node)` being used as an expression (§4.2,
// used by CreateNewLeaf).
func (h *ContextHandle) SetInstance(leaf *Node) *Node {
	h.tentativePath = nil
	h.instance = leaf
	leaf.committedContext = h
	return leaf
}

// IsDescendantOf reports whether node lies on this handle's current path:
// for an unadded handle, whether node is a member of the tentative path
// set; for a committed handle, whether node is instance or one of its
// ancestors (§4.2).
func (h *ContextHandle) IsDescendantOf(node *Node) bool {
	if !h.IsCommitted() {
		_, ok := h.tentativePath[node]
		return ok
	}
	for cur := h.instance; cur != nil; cur = cur.parent {
		if cur == node {
			return true
		}
	}
	return false
}

// IsUnaddedLeafOf reports whether h is unadded and currently points exactly
// at node (§4.2).
func (h *ContextHandle) IsUnaddedLeafOf(node *Node) bool {
	return !h.IsCommitted() && h.instance == node
}

// pathEqual reports whether an unadded handle's tentative path is exactly
// the node sequence path — used by the stabilization loop (§4.4) to decide
// whether a freshly computed path differs from what the handle already
// holds. Optimized for the same invariant the Python relies on: if the new
// path is a subset of the old path and the sizes match, the sets are equal.
func pathEqual(h *ContextHandle, path []*Node) bool {
	if len(path) != len(h.tentativePath) {
		return false
	}
	for _, n := range path {
		if _, ok := h.tentativePath[n]; !ok {
			return false
		}
	}
	return true
}
