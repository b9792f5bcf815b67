package tree

import "fmt"

// Slice returns the state of every lineage alive at time t. The value for
// a lineage is taken from the node at the bottom of the branch spanning t
// if that node sits exactly at t, otherwise from the node above, so state
// changes at events are attributed to the correct side of the slice.
func (n *TreeNode) Slice(t float64) ([]float64, error) {
	if n.pruned {
		return nil, fmt.Errorf("tree: cannot slice a pruned tree")
	}
	if len(n.Children) == 0 {
		return nil, fmt.Errorf("%w: cannot slice", ErrUnevolved)
	}
	if t < n.T {
		return nil, fmt.Errorf("tree: slice time %g before root time %g", t, n.T)
	}
	if end := n.EndTime(); t > end {
		return nil, fmt.Errorf("tree: slice time %g after tree end time %g", t, end)
	}
	if t == n.T {
		return []float64{n.X}, nil
	}
	var states []float64
	n.Preorder(func(node *TreeNode) bool {
		if node.IsRoot() {
			return true
		}
		if node.T >= t && node.Up.T < t {
			if node.T == t {
				states = append(states, node.X)
			} else {
				states = append(states, node.Up.X)
			}
			return false // branch crosses the slice; nothing below does again
		}
		return true
	})
	return states, nil
}
