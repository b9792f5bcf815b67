package tree

import (
	"fmt"

	"golang.org/x/exp/rand"
)

// SampleSurvivors marks each survival leaf as sampled with probability p.
// Sampling can run only once per tree.
func (n *TreeNode) SampleSurvivors(rng *rand.Rand, p float64) error {
	if n.sampled {
		return fmt.Errorf("%w: below node %d", ErrAlreadySampled, n.Name)
	}
	if p < 0 || p > 1 {
		return fmt.Errorf("tree: sampling probability %g outside [0, 1]", p)
	}
	for _, leaf := range n.survivorLeaves() {
		if rng.Float64() < p {
			leaf.Event = EventSampling
		}
	}
	n.markSampled()
	return nil
}

// SampleSurvivorsCount marks exactly count survival leaves as sampled,
// chosen uniformly without replacement.
func (n *TreeNode) SampleSurvivorsCount(rng *rand.Rand, count int) error {
	if n.sampled {
		return fmt.Errorf("%w: below node %d", ErrAlreadySampled, n.Name)
	}
	survivors := n.survivorLeaves()
	if count < 0 {
		return fmt.Errorf("tree: cannot sample %d survivors", count)
	}
	if count > len(survivors) {
		return fmt.Errorf("%w: cannot sample %d of %d survivors",
			ErrTooFewSurvivors, count, len(survivors))
	}
	// Partial Fisher-Yates over the survivor slice.
	for i := 0; i < count; i++ {
		j := i + rng.Intn(len(survivors)-i)
		survivors[i], survivors[j] = survivors[j], survivors[i]
		survivors[i].Event = EventSampling
	}
	n.markSampled()
	return nil
}

func (n *TreeNode) survivorLeaves() []*TreeNode {
	var survivors []*TreeNode
	for _, leaf := range n.Leaves() {
		if leaf.Event == EventSurvival {
			survivors = append(survivors, leaf)
		}
	}
	return survivors
}

func (n *TreeNode) markSampled() {
	n.Preorder(func(node *TreeNode) bool {
		node.sampled = true
		return true
	})
}
