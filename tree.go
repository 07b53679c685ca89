package cobweb

import (
	"context"
	"fmt"
	"strings"

	"github.com/mediocregopher/mediocre-go-lib/mlog"
	"github.com/y0ssar1an/q"
)

// ContextKey selects how context is drawn from the instance sequence (§6).
// Only SymmetricWindow is implemented by this core; the other two are
// accepted by the type system but rejected at the ContextualIfit entry
// point, matching spec.md §6 ("Rejects past_window / future_window").
type ContextKey int

const (
	SymmetricWindow ContextKey = iota
	PastWindow
	FutureWindow
)

// Config is the core's enumerated configuration surface (§6). There is no
// process entry point in this module (no cmd/, per spec.md §1's explicit
// scoping of CLI as an external collaborator), so Config is a plain struct
// rather than something bound from flags/env by a config library — see
// SPEC_FULL.md §9 for why that's the correct idiom here.
type Config struct {
	CtxtWeight       float64
	Scaling          float64
	InnerAttrScaling bool
	ContextSize      int
	DepthCap         int
	MergeDepth       int
	CompactionPeriod int

	// MergeContextsEnabled toggles the periodic context-handle compaction
	// pass (§4.5 merge_contexts). The spec's Open Questions flag the
	// original's "any descendant with a non-null context field" semantics
	// as a possible bug; this flag is the configurability the spec asks
	// for so a caller uncomfortable with that semantics can disable
	// compaction entirely (at the cost of unbounded context-handle growth).
	MergeContextsEnabled bool

	// Trace enables q.Q debug tracing of the categorization recursion,
	// mirroring the teacher's use of q.Q in its own recursive insert path.
	Trace bool

	// MaxStabilizationIterations caps the per-window stabilization loop
	// (§4.4, §9 Open Questions: "not proven to terminate"). Zero means
	// use the package default.
	MaxStabilizationIterations int
}

const defaultMaxStabilizationIterations = 10000

// DefaultConfig returns the configuration described in spec.md §6.
func DefaultConfig() Config {
	return Config{
		CtxtWeight:                 1,
		Scaling:                    0.5,
		InnerAttrScaling:           true,
		ContextSize:                4,
		DepthCap:                   6,
		MergeDepth:                 8,
		CompactionPeriod:           200,
		MergeContextsEnabled:       true,
		MaxStabilizationIterations: defaultMaxStabilizationIterations,
	}
}

// Tree owns the concept hierarchy and every Node and ContextHandle that
// refers into it (§5 "Shared-resource policy"). It is not safe for
// concurrent mutation; the driver is a synchronous loop.
type Tree struct {
	root       *Node
	config     Config
	idSeq      uint64
	attrScales map[string]*Accumulator
}

// New returns a tree configured by cfg, with an empty root leaf.
func New(cfg Config) *Tree {
	if cfg.MaxStabilizationIterations <= 0 {
		cfg.MaxStabilizationIterations = defaultMaxStabilizationIterations
	}
	t := &Tree{config: cfg, attrScales: map[string]*Accumulator{}}
	t.root = t.newNode()
	return t
}

func (t *Tree) nextID() uint64 {
	t.idSeq++
	return t.idSeq
}

// Root returns the tree's current root node.
func (t *Tree) Root() *Node { return t.root }

// Clear resets the tree's concepts but preserves the scaling/weight
// parameters carried in Config (§6 "clear()").
func (t *Tree) Clear() {
	t.idSeq = 0
	t.attrScales = map[string]*Accumulator{}
	t.root = t.newNode()
}

func (t *Tree) updateAttrScales(inst Instance) {
	for attr, val := range inst {
		if attr == CtxAttr || !isNumber(val) {
			continue
		}
		inner := t.innerAttr(attr)
		acc := t.attrScales[inner]
		if acc == nil {
			acc = NewAccumulator()
			t.attrScales[inner] = acc
		}
		acc.Update(val.(float64))
	}
}

func (t *Tree) walk(n *Node, fn func(*Node)) {
	fn(n)
	for _, c := range n.children {
		t.walk(c, fn)
	}
}

// cobwebPath returns the path of the place where adding instance will
// maximize category utility (§4.4). It considers only the "best"/"new"
// operations; leaves terminate the descent.
func (t *Tree) cobwebPath(inst Instance) []*Node {
	current := t.root
	var path []*Node
	for {
		path = append(path, current)
		if current.IsLeaf() {
			break
		}

		best1CU, best1, best2 := t.twoBestChildren(current, inst)
		_, bestAction := t.getBestOperation(current, inst, best1, best2, best1CU, opsBestNew)
		if t.config.Trace {
			q.Q("cobweb_path", current.id, bestAction)
		}

		if bestAction == opNew {
			break
		}
		current = best1
	}
	return path
}

// actionRecord is the bookkeeping cobwebPathAndRestructurings collects at
// each level of the descent: enough information to later evaluate whether
// merge or split at that level would improve CU (§4.4).
type actionRecord struct {
	current  *Node
	actionCU float64
	best1CU  float64
	best2    *Node
	best1    *Node
}

// cobwebPathAndRestructurings is cobwebPath plus the restructuring
// bookkeeping of §4.4.
func (t *Tree) cobwebPathAndRestructurings(inst Instance) ([]*Node, []actionRecord) {
	current := t.root
	var path []*Node
	var actions []actionRecord
	for {
		path = append(path, current)
		if current.IsLeaf() {
			break
		}

		best1CU, best1, best2 := t.twoBestChildren(current, inst)
		actionCU, bestAction := t.getBestOperation(current, inst, best1, best2, best1CU, opsBestNew)
		actions = append(actions, actionRecord{current: current, actionCU: actionCU, best1CU: best1CU, best2: best2, best1: best1})

		current = best1
		if bestAction == opNew {
			break
		}
	}
	return path, actions
}

// windowItem pairs an instance still in the stabilization window with the
// context handle tracking its current candidate position.
type windowItem struct {
	inst Instance
	ctx  *ContextHandle
}

// ContextualIfit incrementally fits instances into the tree using the
// tree's configured ContextSize and the symmetric-window context key, and
// returns the resulting leaf for each instance in input order (§6).
func (t *Tree) ContextualIfit(ctx context.Context, instances []Instance) ([]*Node, error) {
	return t.ContextualIfitWithContext(ctx, instances, t.config.ContextSize, SymmetricWindow)
}

// ContextualIfitWithContext is ContextualIfit with an explicit window size
// and context key (§6 API surface).
func (t *Tree) ContextualIfitWithContext(ctx context.Context, instances []Instance, contextSize int, key ContextKey) ([]*Node, error) {
	if key != SymmetricWindow {
		return nil, ErrInvalidContextKey
	}
	if contextSize <= 0 {
		return nil, ErrNonPositiveContextSize
	}
	return t.contextualCobweb(ctx, instances, contextSize, true), nil
}

// InferFromContext categorizes instances (with one nil entry marking the
// unknown anchor) without learning, then predicts the Anchor attribute at
// the leaf a synthetic instance built from the surrounding context routes
// to (§6).
func (t *Tree) InferFromContext(ctx context.Context, instances []Instance, contextSize int) (any, error) {
	if len(instances) < 2 {
		return nil, ErrEmptyInferenceInput
	}

	predInd := -1
	for i, inst := range instances {
		if inst == nil {
			predInd = i
			break
		}
	}
	if predInd < 0 {
		return nil, ErrMissingAnchor
	}

	rest := make([]Instance, 0, len(instances)-1)
	rest = append(rest, instances[:predInd]...)
	rest = append(rest, instances[predInd+1:]...)

	leaves := t.contextualCobweb(ctx, rest, contextSize, false)

	lo := predInd - contextSize
	if lo < 0 {
		lo = 0
	}
	hi := predInd + contextSize
	if hi > len(leaves) {
		hi = len(leaves)
	}

	neighbors := make([]*ContextHandle, 0, hi-lo)
	for _, leaf := range leaves[lo:hi] {
		neighbors = append(neighbors, &ContextHandle{instance: leaf})
	}

	newInst := Instance{CtxAttr: neighbors}
	path := t.cobwebPath(newInst)
	category := path[len(path)-1]

	return t.predict(category, AnchorAttr)
}

// contextualCobweb is the core context-aware categorization loop (§4.4):
// it stabilizes a sliding window of instances and, when learning, commits
// the left-most instance via the restructuring operators each time the
// window settles.
func (t *Tree) contextualCobweb(pctx context.Context, instances []Instance, contextSize int, learning bool) []*Node {
	seedCount := contextSize + 1
	if seedCount > len(instances) {
		seedCount = len(instances)
	}

	initialContexts := make([]*ContextHandle, seedCount)
	for i := 0; i < seedCount; i++ {
		initialContexts[i] = newContextHandle(t.cobwebPath(instances[i]))
	}

	window := make([]*windowItem, 0, seedCount)
	for i := 0; i < seedCount; i++ {
		neighbors := make([]*ContextHandle, 0, seedCount-1)
		for j, h := range initialContexts {
			if j != i {
				neighbors = append(neighbors, h)
			}
		}
		instances[i][CtxAttr] = neighbors
		window = append(window, &windowItem{inst: instances[i], ctx: initialContexts[i]})
	}

	nextToInitialize := seedCount
	commits := 0
	var fixed []*Node

	for len(window) > 0 {
		select {
		case <-pctx.Done():
			mlog.Info(pctx, "contextual_cobweb canceled", mlog.KV{"committed": commits})
			return fixed
		default:
		}

		if commits > 0 && commits%t.config.CompactionPeriod == 0 {
			t.mergeContexts()
		}

		var actions []actionRecord
		iterations := t.stabilizeWindow(window, &actions)

		if learning {
			t.updateAttrScales(window[0].inst)
		}

		head := window[0]
		window = window[1:]

		var committed *Node
		if learning {
			committed = t.addByPath(head.inst, head.ctx, actions, window)
		} else {
			committed = head.ctx.Leaf()
		}
		fixed = append(fixed, committed)
		commits++
		nextToInitialize++

		if nextToInitialize < len(instances) {
			t.createWindowInstance(instances[nextToInitialize], &window)
		}

		mlog.Info(pctx, "contextual_cobweb progress", mlog.KV{
			"committed":   nextToInitialize - contextSize,
			"iterations":  iterations,
			"window_size": len(window),
		})
	}

	return fixed
}

// stabilizeWindow runs the position-cycling stabilization loop of §4.4
// until the window's tentative paths stop changing, recording the
// restructuring actions computed for position 0 into *actions. It returns
// the number of full sweeps performed.
func (t *Tree) stabilizeWindow(window []*windowItem, actions *[]actionRecord) int {
	lastChanged := len(window) - 1
	looped := false
	seen := map[string]struct{}{}

	iterations := 0
	index := 0
	for i := 0; ; i++ {
		if i >= t.config.MaxStabilizationIterations*len(window) {
			mlog.Warn(context.Background(), "contextual_cobweb stabilization did not converge; forcing a stop", mlog.KV{
				"iterations": iterations,
			})
			break
		}

		item := window[index]
		var path []*Node
		var newActions []actionRecord
		if index == 0 {
			iterations++
			key := recordKey(window)
			if _, ok := seen[key]; ok {
				looped = true
			}
			seen[key] = struct{}{}
			path, newActions = t.cobwebPathAndRestructurings(item.inst)
		} else {
			path = t.cobwebPath(item.inst)
		}

		if looped {
			if !pathEqual(item.ctx, path) && t.updateIfBetter(window, path, item.ctx) {
				lastChanged = index
				if index == 0 {
					*actions = newActions
				}
			} else if lastChanged == index {
				break
			}
		} else {
			if index == 0 {
				*actions = newActions
			}
			if !pathEqual(item.ctx, path) {
				item.ctx.SetPath(path)
				lastChanged = index
			} else if lastChanged == index {
				break
			}
		}

		index = (index + 1) % len(window)
	}

	return iterations
}

// updateIfBetter sets ctx's path to newPath only if doing so strictly
// increases the window's total CU, reverting otherwise (§4.4
// __update_if_better).
func (t *Tree) updateIfBetter(window []*windowItem, newPath []*Node, ctx *ContextHandle) bool {
	oldPath := ctx.tentativePath
	oldInstance := ctx.instance

	oldCU := t.windowCU(window)
	ctx.SetPath(newPath)
	newCU := t.windowCU(window)

	if newCU > oldCU {
		return true
	}

	ctx.tentativePath = oldPath
	ctx.instance = oldInstance
	return false
}

// windowCU is the total CU of inserting each window instance as a new
// child of the leaf its handle currently points to (§4.4).
func (t *Tree) windowCU(window []*windowItem) float64 {
	sum := 0.0
	for _, w := range window {
		sum += t.cuForNewChild(w.ctx.Leaf(), w.inst)
	}
	return sum
}

// recordKey hashes the tuple of committed-leaf targets across the window,
// used by the loop-detection scheme of §4.4/§9.
func recordKey(window []*windowItem) string {
	var b strings.Builder
	for _, w := range window {
		fmt.Fprintf(&b, "%d,", w.ctx.Leaf().id)
	}
	return b.String()
}

// createWindowInstance appends a new instance to the right of the window,
// wiring its CTX to the current window handles and vice versa (§4.4
// __create_instance).
func (t *Tree) createWindowInstance(inst Instance, window *[]*windowItem) {
	neighbors := make([]*ContextHandle, 0, len(*window))
	for _, w := range *window {
		neighbors = append(neighbors, w.ctx)
	}
	inst[CtxAttr] = neighbors

	ctx := newContextHandle(t.cobwebPath(inst))

	for _, w := range *window {
		existing, _ := w.inst[CtxAttr].([]*ContextHandle)
		w.inst[CtxAttr] = append(existing, ctx)
	}

	*window = append(*window, &windowItem{inst: inst, ctx: ctx})
}
