package mht

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeArena_AllocAndGet(t *testing.T) {
	t.Parallel()
	var a nodeArena

	h := a.alloc(hypothesisNode{frameNumber: 1})
	node, ok := a.get(h)
	require.True(t, ok)
	assert.Equal(t, 1, node.frameNumber)
}

func TestNodeArena_Get_InvalidHandle(t *testing.T) {
	t.Parallel()
	var a nodeArena

	_, ok := a.get(nilHandle)
	assert.False(t, ok)

	_, ok = a.get(nodeHandle{index: 5})
	assert.False(t, ok)
}

func TestNodeArena_Free_InvalidatesStaleHandle(t *testing.T) {
	t.Parallel()
	var a nodeArena

	h := a.alloc(hypothesisNode{frameNumber: 1})
	a.free(h)

	_, ok := a.get(h)
	assert.False(t, ok)
}

func TestNodeArena_Free_ReusesSlotWithNewGeneration(t *testing.T) {
	t.Parallel()
	var a nodeArena

	h1 := a.alloc(hypothesisNode{frameNumber: 1})
	a.free(h1)
	h2 := a.alloc(hypothesisNode{frameNumber: 2})

	assert.Equal(t, h1.index, h2.index)
	assert.NotEqual(t, h1.generation, h2.generation)

	_, ok := a.get(h1)
	assert.False(t, ok, "stale handle from before the free must not resolve into the reused slot")

	node2, ok := a.get(h2)
	require.True(t, ok)
	assert.Equal(t, 2, node2.frameNumber)
}

func TestNodeArena_Free_DoubleFreeIsNoop(t *testing.T) {
	t.Parallel()
	var a nodeArena

	h := a.alloc(hypothesisNode{frameNumber: 1})
	a.free(h)
	assert.NotPanics(t, func() { a.free(h) })
}

func TestNodeArena_PruneSubtree_FreesEntireSubtree(t *testing.T) {
	t.Parallel()
	var a nodeArena

	root := a.alloc(hypothesisNode{parent: nilHandle, frameNumber: 0})
	child := a.alloc(hypothesisNode{parent: root, frameNumber: 1})
	grandchild := a.alloc(hypothesisNode{parent: child, frameNumber: 2})

	rootNode, _ := a.get(root)
	rootNode.children = []nodeHandle{child}
	childNode, _ := a.get(child)
	childNode.children = []nodeHandle{grandchild}

	a.pruneSubtree(child)

	_, ok := a.get(child)
	assert.False(t, ok)
	_, ok = a.get(grandchild)
	assert.False(t, ok)

	_, ok = a.get(root)
	assert.True(t, ok, "pruning a subtree must not touch its parent")
}

func TestNodeArena_PruneSubtree_UnknownHandleIsNoop(t *testing.T) {
	t.Parallel()
	var a nodeArena
	assert.NotPanics(t, func() { a.pruneSubtree(nodeHandle{index: 42}) })
}

func TestNodeHandle_Valid(t *testing.T) {
	t.Parallel()
	assert.False(t, nilHandle.valid())
	assert.True(t, (nodeHandle{index: 0}).valid())
}
