package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

// sampledTree marks leaf c of buildEvolvedTree as sampled:
//
//	root(0) ── a(1, birth) ── b(2, mutation) ── c(3, sampling)
//	                      └── d(4, death)
func sampledTree(t *testing.T) (root, a, b, c, d *TreeNode) {
	t.Helper()
	root, a, b, c, d = buildEvolvedTree()
	c.Event = EventSampling
	root.markSampled()
	return root, a, b, c, d
}

func TestPruneRemovesUnobserved(t *testing.T) {
	root, _, b, c, _ := sampledTree(t)
	require.NoError(t, root.Prune())

	// d is gone and a (left unifurcating) is spliced out: the root now
	// leads to the mutation node b with a's branch length folded in.
	require.Equal(t, 1, len(root.Children))
	assert.Equal(t, b, root.Children[0])
	assert.InDelta(t, 1.5, b.Dist, 1e-12)
	assert.Equal(t, []*TreeNode{c}, b.Children)
	assert.True(t, root.Pruned())
	assert.Equal(t, 3, root.Len())
}

func TestPruneRequiresSampling(t *testing.T) {
	root, _, _, _, _ := buildEvolvedTree()
	err := root.Prune()
	assert.ErrorIs(t, err, ErrNotSampled)
}

func TestPruneTwice(t *testing.T) {
	root, _, _, _, _ := sampledTree(t)
	require.NoError(t, root.Prune())
	err := root.Prune()
	assert.ErrorIs(t, err, ErrAlreadyPruned)
}

func TestPruneNoSampledLeaves(t *testing.T) {
	root, _, _, _, _ := buildEvolvedTree()
	root.markSampled() // sampling ran but chose nothing
	err := root.Prune()
	assert.ErrorIs(t, err, ErrNoSampledLeaves)
}

func TestRemoveMutationEvents(t *testing.T) {
	root, _, _, c, _ := sampledTree(t)
	require.NoError(t, root.Prune())
	require.NoError(t, root.RemoveMutationEvents())

	// The mutation node b collapses onto c's branch.
	require.Equal(t, []*TreeNode{c}, root.Children)
	assert.Equal(t, 1, c.NMutations)
	assert.InDelta(t, 3.0, c.Dist, 1e-12)
	assert.Equal(t, EventSampling, c.Event)
}

func TestRemoveMutationEventsRequiresPrune(t *testing.T) {
	root, _, _, _, _ := sampledTree(t)
	err := root.RemoveMutationEvents()
	assert.ErrorIs(t, err, ErrNotPruned)
}

func TestRemoveMutationEventsChain(t *testing.T) {
	// root ── m1(mutation) ── m2(mutation) ── leaf(sampling)
	root := New(0, 0)
	m1 := &TreeNode{Name: 1, T: 0.5, Dist: 0.5, X: 1, Event: EventMutation}
	m2 := &TreeNode{Name: 2, T: 1.2, Dist: 0.7, X: 2, Event: EventMutation}
	leaf := &TreeNode{Name: 3, T: 2, Dist: 0.8, X: 2, Event: EventSampling}
	root.AddChild(m1)
	m1.AddChild(m2)
	m2.AddChild(leaf)
	root.markSampled()
	require.NoError(t, root.Prune())
	require.NoError(t, root.RemoveMutationEvents())

	require.Equal(t, []*TreeNode{leaf}, root.Children)
	assert.Equal(t, 2, leaf.NMutations)
	assert.InDelta(t, 2.0, leaf.Dist, 1e-12)
}

func TestPruneEvolvedTree(t *testing.T) {
	root := evolvedRoot(t, 8)
	rng := rand.New(rand.NewSource(2))
	require.NoError(t, root.SampleSurvivorsCount(rng, 2))
	require.NoError(t, root.Prune())

	// Every remaining leaf is sampled, and total sampled leaves survive.
	leaves := root.Leaves()
	assert.Equal(t, 2, len(leaves))
	for _, leaf := range leaves {
		assert.Equal(t, EventSampling, leaf.Event)
	}
	// Branch lengths still tile the time axis.
	root.Preorder(func(n *TreeNode) bool {
		if !n.IsRoot() {
			assert.InDelta(t, n.T-n.Up.T, n.Dist, 1e-9)
		}
		return true
	})
}
