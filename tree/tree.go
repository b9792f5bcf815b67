// Package tree implements simulation of phylogenies under a
// birth-death-mutation-sampling (BDMS) process.
//
// A simulation starts from a bare root node and grows a tree of lineages
// under competing state-dependent birth, death, and mutation Poisson
// processes (see Evolve). Lineages alive at the end of the run are
// survivors; SampleSurvivors marks an observed subset, Prune restricts the
// tree to the observed subtree, and RemoveMutationEvents collapses mutation
// nodes into per-branch mutation counts.
package tree

import (
	"errors"
	"fmt"
)

// Event labels what happened at a node.
type Event string

const (
	// EventNone marks a node with no realized event yet (the root, or an
	// active lineage tip during simulation).
	EventNone Event = ""
	// EventBirth marks a bifurcation.
	EventBirth Event = "birth"
	// EventDeath marks lineage extinction.
	EventDeath Event = "death"
	// EventMutation marks a state change; mutation nodes are unifurcating.
	EventMutation Event = "mutation"
	// EventSurvival marks a lineage alive at the end of the simulation.
	EventSurvival Event = "survival"
	// EventSampling marks a survivor chosen by the sampling step.
	EventSampling Event = "sampling"
)

// Sentinel errors for tree operations.
var (
	ErrNotRoot          = errors.New("tree: operation requires the root node")
	ErrAlreadyEvolved   = errors.New("tree: tree has already evolved")
	ErrAlreadySampled   = errors.New("tree: tree has already been sampled")
	ErrNotSampled       = errors.New("tree: tree has not been sampled")
	ErrAlreadyPruned    = errors.New("tree: tree has already been pruned")
	ErrNotPruned        = errors.New("tree: tree has not been pruned")
	ErrCapacityExceeded = errors.New("tree: population exceeded carrying capacity")
	ErrZeroCapacityRate = errors.New("tree: capacity modulation requires a positive total rate")
	ErrTooFewSurvivors  = errors.New("tree: too few survivors")
	ErrNoSampledLeaves  = errors.New("tree: no leaves were sampled")
	ErrUnevolved        = errors.New("tree: tree has not evolved")
)

// TreeNode is a node of a BDMS tree.
//
// OffspringNumber children are created at each birth event. Mutation event
// nodes are unifurcating; all other internal nodes are birth nodes.
type TreeNode struct {
	// Name uniquely identifies the node within its tree.
	Name int
	// T is the absolute time of the node.
	T float64
	// Dist is the branch length above the node.
	Dist float64
	// X is the lineage state (phenotype) at the node.
	X float64
	// Event is the event realized at this node.
	Event Event
	// NMutations counts mutations collapsed onto the branch above this
	// node. Zero unless RemoveMutationEvents has run.
	NMutations int

	// Up is the parent; nil at the root.
	Up *TreeNode
	// Children are the child nodes.
	Children []*TreeNode

	sampled  bool
	pruned   bool
	nextName int // root only: next name for nodes added during Evolve
}

// OffspringNumber is the number of children created at a birth event.
const OffspringNumber = 2

// New returns a root node at time t with state x.
func New(t, x float64) *TreeNode {
	return &TreeNode{T: t, X: x, nextName: 1}
}

// IsRoot reports whether the node has no parent.
func (n *TreeNode) IsRoot() bool { return n.Up == nil }

// IsLeaf reports whether the node has no children.
func (n *TreeNode) IsLeaf() bool { return len(n.Children) == 0 }

// Root walks to the root of the tree containing n.
func (n *TreeNode) Root() *TreeNode {
	for !n.IsRoot() {
		n = n.Up
	}
	return n
}

// AddChild attaches child below n.
func (n *TreeNode) AddChild(child *TreeNode) {
	child.Up = n
	n.Children = append(n.Children, child)
}

// Detach removes n from its parent. Detaching a root is a no-op.
func (n *TreeNode) Detach() {
	if n.Up == nil {
		return
	}
	siblings := n.Up.Children
	for i, c := range siblings {
		if c == n {
			n.Up.Children = append(siblings[:i:i], siblings[i+1:]...)
			break
		}
	}
	n.Up = nil
}

// delete splices n out of the tree: its children are reattached to its
// parent with n's branch length added to theirs. Deleting a root is a
// no-op. This is the branch-length-preserving node removal used by pruning
// and mutation-event collapsing.
func (n *TreeNode) delete() {
	parent := n.Up
	if parent == nil {
		return
	}
	children := n.Children
	n.Detach()
	for _, c := range children {
		c.Dist += n.Dist
		parent.AddChild(c)
	}
	n.Children = nil
}

// Preorder visits n and its descendants parent-first. Returning false from
// visit skips the descent into that node's children.
func (n *TreeNode) Preorder(visit func(*TreeNode) bool) {
	stack := []*TreeNode{n}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !visit(node) {
			continue
		}
		for i := len(node.Children) - 1; i >= 0; i-- {
			stack = append(stack, node.Children[i])
		}
	}
}

// Postorder visits n and its descendants children-first.
func (n *TreeNode) Postorder(visit func(*TreeNode)) {
	for _, c := range n.Children {
		c.Postorder(visit)
	}
	visit(n)
}

// Nodes returns all nodes of the subtree in preorder.
func (n *TreeNode) Nodes() []*TreeNode {
	var nodes []*TreeNode
	n.Preorder(func(node *TreeNode) bool {
		nodes = append(nodes, node)
		return true
	})
	return nodes
}

// Leaves returns the leaves of the subtree in preorder.
func (n *TreeNode) Leaves() []*TreeNode {
	var leaves []*TreeNode
	n.Preorder(func(node *TreeNode) bool {
		if node.IsLeaf() {
			leaves = append(leaves, node)
		}
		return true
	})
	return leaves
}

// Len returns the number of nodes in the subtree.
func (n *TreeNode) Len() int {
	count := 0
	n.Preorder(func(*TreeNode) bool {
		count++
		return true
	})
	return count
}

// EndTime returns the maximum node time in the subtree.
func (n *TreeNode) EndTime() float64 {
	end := n.T
	n.Preorder(func(node *TreeNode) bool {
		if node.T > end {
			end = node.T
		}
		return true
	})
	return end
}

// TotalBranchLength sums branch lengths over the subtree.
func (n *TreeNode) TotalBranchLength() float64 {
	var total float64
	n.Preorder(func(node *TreeNode) bool {
		total += node.Dist
		return true
	})
	return total
}

// Sampled reports whether sampling has been run on the tree containing n.
func (n *TreeNode) Sampled() bool { return n.sampled }

// Pruned reports whether the tree containing n has been pruned.
func (n *TreeNode) Pruned() bool { return n.pruned }

// eventCache maps each node of the subtree to the set of events realized in
// that node's subtree (the node's own event included). Built once per
// prune/render pass in a single postorder sweep.
func (n *TreeNode) eventCache() map[*TreeNode]map[Event]bool {
	cache := make(map[*TreeNode]map[Event]bool)
	n.Postorder(func(node *TreeNode) {
		events := map[Event]bool{node.Event: true}
		for _, c := range node.Children {
			for e := range cache[c] {
				events[e] = true
			}
		}
		cache[node] = events
	})
	return cache
}

func (n *TreeNode) String() string {
	return fmt.Sprintf("TreeNode(name=%d, t=%g, x=%g, event=%q)", n.Name, n.T, n.X, n.Event)
}
