package mht

import (
	"container/heap"
	"math"
)

// globalAssignment is one ranked solution to a frame's assignment
// problem: columns[i] is the column chosen for row i, and cost is the
// sum of the original (unmasked) matrix entries it selects.
type globalAssignment struct {
	columns []int
	cost    float64
}

type assignmentPair struct {
	row, col int
}

// murtyNode is one partition of the assignment search space: a set of
// forced pairs (include) and forbidden pairs (exclude), together with the
// best solution of the square matrix subject to those constraints.
type murtyNode struct {
	include []assignmentPair
	exclude []assignmentPair

	columns []int
	cost    float64
}

type murtyHeap []*murtyNode

func (h murtyHeap) Len() int            { return len(h) }
func (h murtyHeap) Less(i, j int) bool  { return h[i].cost < h[j].cost }
func (h murtyHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *murtyHeap) Push(x interface{}) { *h = append(*h, x.(*murtyNode)) }
func (h *murtyHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// kBestAssignments ranks the k lowest-cost solutions to a square cost
// matrix using Murty's algorithm layered over hungarianSolveSquare: each
// popped node is partitioned into one child per row of its own solution,
// each child forcing the prefix of that solution and forbidding one more
// pair, so that the search space is covered without repetition. The
// result is the top-k global hypotheses ranked by joint likelihood.
//
// Rows or columns beyond n×n padding should already be resolved by the
// caller into finite "slot" costs; kBestAssignments treats +Inf purely as
// forbidden and drops any solution that could not avoid it.
//
// truncated reports whether feasible solutions remained unexplored when
// the k cap cut the search short, as opposed to the heap having
// genuinely emptied on its own.
func kBestAssignments(cost [][]float64, k int) (results []globalAssignment, truncated bool) {
	n := len(cost)
	if n == 0 || k <= 0 {
		return nil, false
	}

	root := &murtyNode{}
	if !root.solve(cost, n) {
		return nil, false
	}

	h := &murtyHeap{root}
	heap.Init(h)

	for h.Len() > 0 && len(results) < k {
		node := heap.Pop(h).(*murtyNode)
		results = append(results, globalAssignment{columns: node.columns, cost: node.cost})

		for _, child := range node.partition(cost, n) {
			if child.solve(cost, n) {
				heap.Push(h, child)
			}
		}
	}
	return results, h.Len() > 0
}

// partition splits node into one child per row of node's own solution,
// following the standard Murty scheme: child i inherits node's
// constraints, forces rows before i to node's chosen columns, and forbids
// row i from repeating its own chosen column.
func (node *murtyNode) partition(cost [][]float64, n int) []*murtyNode {
	fixedRows := make(map[int]bool, len(node.include))
	for _, p := range node.include {
		fixedRows[p.row] = true
	}

	var freeRows []int
	for r := 0; r < n; r++ {
		if !fixedRows[r] {
			freeRows = append(freeRows, r)
		}
	}

	children := make([]*murtyNode, 0, len(freeRows))
	for i, r := range freeRows {
		child := &murtyNode{
			include: append([]assignmentPair(nil), node.include...),
			exclude: append([]assignmentPair(nil), node.exclude...),
		}
		for _, prev := range freeRows[:i] {
			child.include = append(child.include, assignmentPair{row: prev, col: node.columns[prev]})
		}
		child.exclude = append(child.exclude, assignmentPair{row: r, col: node.columns[r]})
		children = append(children, child)
	}
	return children
}

// solve masks cost according to node's include/exclude constraints, runs
// the square Hungarian solver, and records the resulting columns and true
// (unmasked) total cost. Returns false if the constraints make the
// problem infeasible.
func (node *murtyNode) solve(cost [][]float64, n int) bool {
	masked := make([][]float64, n)
	for i := range masked {
		masked[i] = append([]float64(nil), cost[i]...)
	}

	for _, p := range node.exclude {
		masked[p.row][p.col] = math.Inf(1)
	}
	for _, p := range node.include {
		for j := 0; j < n; j++ {
			if j != p.col {
				masked[p.row][j] = math.Inf(1)
			}
		}
		for i := 0; i < n; i++ {
			if i != p.row {
				masked[i][p.col] = math.Inf(1)
			}
		}
	}

	columns := hungarianSolveSquare(masked)

	total := 0.0
	for i, j := range columns {
		if j < 0 || j >= n || math.IsInf(masked[i][j], 1) {
			return false
		}
		total += cost[i][j]
	}

	node.columns = columns
	node.cost = total
	return true
}
