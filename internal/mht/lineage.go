package mht

// trackLineage is one track's hypothesis tree: an arena-owned chain of
// states extended one frame at a time, with the sibling candidates each
// frame considered (and rejected by the top-K global hypotheses) kept
// around only until the N-scan window passes them by.
//
// Of the several candidate continuations a frame may produce for a
// lineage, only the one chosen by the best global hypothesis is ever
// extended further — alternates are retained as frozen leaves purely as
// evidence for N-scan pruning, never re-extended themselves. This keeps
// the assignment matrix at one column per lineage (its live leaf) while
// still giving the commit step real siblings to prune.
type trackLineage struct {
	arena *nodeArena
	root  nodeHandle
	leaf  nodeHandle

	// predictedHandle/predictedState/hasPredicted hold a predict()-advanced
	// working copy of the leaf's state for this frame's update() to consume,
	// kept off the leaf node itself: the leaf node's own state is that
	// node's committed history once it folds into the committed path, and
	// mutating it in place to reflect a bare predict() would corrupt the
	// sample already recorded for its frame.
	predictedHandle nodeHandle
	predictedState  ObjectState
	hasPredicted    bool

	trackID uint64 // 0 until the lineage's Start node commits
	ended   bool
}

func newTrackLineage(state ObjectState, frameNumber int) *trackLineage {
	a := &nodeArena{}
	root := a.alloc(hypothesisNode{
		parent:      nilHandle,
		state:       state,
		kind:        eventStart,
		frameNumber: frameNumber,
	})
	return &trackLineage{arena: a, root: root, leaf: root}
}

func (l *trackLineage) currentState() ObjectState {
	return l.arenaState(l.leaf)
}

// predictLeaf computes the leaf's one-step motion-model advance into a
// working copy for this frame's update() to build candidates from,
// without touching the leaf node itself. Cleared by clearPredicted once
// the frame's update() has consumed it.
func (l *trackLineage) predictLeaf(model *ObjectModel) {
	node, _ := l.arena.get(l.leaf)
	state := node.state.deepCopy()
	model.advanceFilter(&state)
	l.predictedHandle = l.leaf
	l.predictedState = state
	l.hasPredicted = true
}

// clearPredicted discards any pending predictLeaf result. A no-op if
// none is pending.
func (l *trackLineage) clearPredicted() {
	l.hasPredicted = false
}

func (l *trackLineage) extendContinue(state ObjectState, report ObjectReport, measured Point2D, frameNumber int) {
	l.leaf = l.addChild(l.leaf, state, eventContinue, &report, measured, frameNumber)
}

func (l *trackLineage) extendSkip(state ObjectState, frameNumber int) {
	l.leaf = l.addChild(l.leaf, state, eventSkip, nil, Point2D{}, frameNumber)
}

// addAlternateContinue and addAlternateSkip attach a sibling of the
// representative leaf's *previous* position — a candidate a lower-ranked
// global hypothesis would have chosen instead — without disturbing the
// lineage's own live leaf. They exist purely so the N-scan commit walk has
// real siblings to discard.
func (l *trackLineage) addAlternateContinue(parent nodeHandle, state ObjectState, report ObjectReport, measured Point2D, frameNumber int) {
	l.addChild(parent, state, eventContinue, &report, measured, frameNumber)
}

func (l *trackLineage) addAlternateSkip(parent nodeHandle, state ObjectState, frameNumber int) {
	l.addChild(parent, state, eventSkip, nil, Point2D{}, frameNumber)
}

func (l *trackLineage) addChild(parent nodeHandle, state ObjectState, kind eventKind, report *ObjectReport, measured Point2D, frameNumber int) nodeHandle {
	h := l.arena.alloc(hypothesisNode{
		parent:      parent,
		state:       state,
		kind:        kind,
		report:      report,
		measured:    measured,
		frameNumber: frameNumber,
	})
	// alloc may grow and reallocate a.slots, so the parent must be
	// re-fetched after alloc rather than held across the call — a pointer
	// taken before growth points into the old backing array.
	parentNode, _ := l.arena.get(parent)
	parentNode.children = append(parentNode.children, h)
	return h
}

// commitAll folds every remaining node from root to leaf into the
// committed path, in frame order, without pruning or freeing anything.
// Used when a lineage ends: there is no future frame left to walk an
// N-scan window back from, so the whole remaining chain commits at once.
func (l *trackLineage) commitAll(onCommit func(*hypothesisNode)) {
	var path []nodeHandle
	h := l.leaf
	for h != l.root {
		path = append(path, h)
		node, _ := l.arena.get(h)
		h = node.parent
	}
	path = append(path, l.root)
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	for _, h := range path {
		node, _ := l.arena.get(h)
		if !node.committed {
			onCommit(node)
			node.committed = true
		}
	}
}

// commit performs N-scan pruning: it walks back maxDepth edges from the
// current leaf to find the ancestor that should become the new committed
// root, deletes every sibling of the path between the old root and that
// ancestor, and invokes onCommit once (in frame order) for every node
// newly folded into the committed path — the old root itself included,
// the new root included, every node before the new root freed once
// reported.
func (l *trackLineage) commit(maxDepth int, onCommit func(*hypothesisNode)) {
	ancestor := l.leaf
	steps := 0
	for ; steps < maxDepth; steps++ {
		node, ok := l.arena.get(ancestor)
		if !ok || !node.parent.valid() {
			break
		}
		ancestor = node.parent
	}
	if ancestor == l.root {
		if rootNode, ok := l.arena.get(l.root); ok && steps == maxDepth && !rootNode.committed {
			onCommit(rootNode)
			rootNode.committed = true
		}
		return
	}

	var path []nodeHandle
	h := ancestor
	for h != l.root {
		path = append(path, h)
		node, _ := l.arena.get(h)
		h = node.parent
	}
	path = append(path, l.root)
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	for i := 0; i < len(path)-1; i++ {
		node, _ := l.arena.get(path[i])
		next := path[i+1]
		kept := node.children[:0]
		for _, c := range node.children {
			if c == next {
				kept = append(kept, c)
			} else {
				l.arena.pruneSubtree(c)
			}
		}
		node.children = kept
	}

	for i := 0; i < len(path)-1; i++ {
		node, _ := l.arena.get(path[i])
		if !node.committed {
			onCommit(node)
		}
		l.arena.free(path[i])
	}

	ancestorNode, _ := l.arena.get(ancestor)
	if !ancestorNode.committed {
		onCommit(ancestorNode)
		ancestorNode.committed = true
	}
	ancestorNode.parent = nilHandle
	l.root = ancestor
}
