package mht

// nodeHandle is a generational index into a lineage's node arena. Pruning
// frees slots for reuse; the generation counter keeps a stale handle from
// ever resolving to the slot's new occupant, so pruning a subtree is
// O(pruned-nodes) and leaves no dangling references.
type nodeHandle struct {
	index      int32
	generation int32
}

var nilHandle = nodeHandle{index: -1}

func (h nodeHandle) valid() bool { return h.index >= 0 }

type eventKind int

const (
	eventStart eventKind = iota
	eventContinue
	eventSkip
)

// hypothesisNode is one node of a track lineage's hypothesis tree: the
// object state resulting from one frame's transition (start / continue /
// skip), plus the bookkeeping the engine needs to walk, commit, and prune
// the tree.
type hypothesisNode struct {
	parent   nodeHandle
	children []nodeHandle

	state       ObjectState
	kind        eventKind
	report      *ObjectReport // non-nil only for eventContinue
	measured    Point2D       // resolved measurement, valid only for eventContinue
	frameNumber int

	committed bool // hooks already fired for this node
}

type arenaSlot struct {
	node hypothesisNode
	gen  int32
	free bool
}

// nodeArena owns one lineage's hypothesis tree. Each lineage has its own
// arena so pruning one track's siblings never touches another's.
type nodeArena struct {
	slots    []arenaSlot
	freeList []int32
}

func (a *nodeArena) alloc(n hypothesisNode) nodeHandle {
	if len(a.freeList) > 0 {
		idx := a.freeList[len(a.freeList)-1]
		a.freeList = a.freeList[:len(a.freeList)-1]
		slot := &a.slots[idx]
		slot.node = n
		slot.free = false
		return nodeHandle{index: idx, generation: slot.gen}
	}

	a.slots = append(a.slots, arenaSlot{node: n, gen: 0})
	return nodeHandle{index: int32(len(a.slots) - 1), generation: 0}
}

func (a *nodeArena) get(h nodeHandle) (*hypothesisNode, bool) {
	if !h.valid() || int(h.index) >= len(a.slots) {
		return nil, false
	}
	slot := &a.slots[h.index]
	if slot.free || slot.gen != h.generation {
		return nil, false
	}
	return &slot.node, true
}

// free releases a node's slot. Callers must have already detached it from
// its parent's children list.
func (a *nodeArena) free(h nodeHandle) {
	if !h.valid() || int(h.index) >= len(a.slots) {
		return
	}
	slot := &a.slots[h.index]
	if slot.free {
		return
	}
	slot.free = true
	slot.node = hypothesisNode{}
	slot.gen++
	a.freeList = append(a.freeList, h.index)
}

// pruneSubtree frees h and every descendant of h, depth-first. Used to
// discard sibling branches that lost the N-scan commit race.
func (a *nodeArena) pruneSubtree(h nodeHandle) {
	node, ok := a.get(h)
	if !ok {
		return
	}
	children := node.children
	for _, c := range children {
		a.pruneSubtree(c)
	}
	a.free(h)
}
