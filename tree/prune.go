package tree

import "fmt"

// Prune restricts the tree to the subtree subtending sampled leaves.
// Maximal subtrees containing no sampling event are removed, and the birth
// nodes left unifurcating by a removal are spliced out with their branch
// length added to the remaining child.
func (n *TreeNode) Prune() error {
	if n.pruned {
		return fmt.Errorf("%w: below node %d", ErrAlreadyPruned, n.Name)
	}
	if !n.sampled {
		return fmt.Errorf("%w: below node %d", ErrNotSampled, n.Name)
	}
	cache := n.eventCache()
	if !cache[n][EventSampling] {
		return fmt.Errorf("%w: cannot prune", ErrNoSampledLeaves)
	}

	// Maximal unsampled subtree roots: no sampling below them, but some
	// sampling below their parent.
	var unobserved []*TreeNode
	n.Preorder(func(node *TreeNode) bool {
		if !cache[node][EventSampling] {
			unobserved = append(unobserved, node)
			return false
		}
		return true
	})

	for _, node := range unobserved {
		parent := node.Up
		node.Detach()
		// The parent is a birth node left with a single child (or the
		// root, which keeps its remaining init lineages).
		if !parent.IsRoot() {
			parent.delete()
		}
	}
	n.Preorder(func(node *TreeNode) bool {
		node.pruned = true
		return true
	})
	return nil
}

// RemoveMutationEvents splices out unifurcating mutation-event nodes,
// preserving branch length and accumulating the count of removed events in
// the child's NMutations. The tree must have been pruned first.
func (n *TreeNode) RemoveMutationEvents() error {
	if !n.pruned {
		return fmt.Errorf("%w: below node %d", ErrNotPruned, n.Name)
	}
	var order []*TreeNode
	n.Postorder(func(node *TreeNode) {
		order = append(order, node)
	})
	for _, node := range order {
		if node.Event != EventMutation {
			continue
		}
		if len(node.Children) != 1 {
			return fmt.Errorf("tree: mutation node %d has %d children, want 1",
				node.Name, len(node.Children))
		}
		node.Children[0].NMutations++
		node.delete()
	}
	return nil
}
