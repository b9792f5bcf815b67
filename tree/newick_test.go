package tree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestNewickFormat(t *testing.T) {
	root, _, _, _, _ := buildEvolvedTree()
	nwk := root.Newick()
	assert.True(t, strings.HasSuffix(nwk, ";"))
	assert.Contains(t, nwk, "&&NHX")
	assert.Contains(t, nwk, "event=birth")
	assert.Contains(t, nwk, "event=death")
	assert.Contains(t, nwk, "x=2")
}

func TestNewickRoundTrip(t *testing.T) {
	root, _, _, _, _ := buildEvolvedTree()
	nwk := root.Newick()
	parsed, err := ParseNewick(nwk)
	require.NoError(t, err)
	assert.Equal(t, nwk, parsed.Newick())
	assertTreesEqual(t, root, parsed)
}

func TestNewickRoundTripEvolved(t *testing.T) {
	root := evolvedRoot(t, 17)
	rng := rand.New(rand.NewSource(1))
	require.NoError(t, root.SampleSurvivors(rng, 0.8))
	nwk := root.Newick()

	parsed, err := ParseNewick(nwk)
	require.NoError(t, err)
	assertTreesEqual(t, root, parsed)
	assert.True(t, parsed.Sampled(), "sampled flag survives the round trip")
	assert.False(t, parsed.Pruned())
}

func TestNewickRoundTripPruned(t *testing.T) {
	root, _, _, _, _ := sampledTree(t)
	require.NoError(t, root.Prune())
	require.NoError(t, root.RemoveMutationEvents())

	parsed, err := ParseNewick(root.Newick())
	require.NoError(t, err)
	assertTreesEqual(t, root, parsed)
	assert.True(t, parsed.Pruned())
	// Mutation counts are carried through.
	assert.Equal(t, 1, parsed.Children[0].NMutations)
}

func TestParsePlainNewick(t *testing.T) {
	parsed, err := ParseNewick("(1:0.5,2:1.5)0:0;")
	require.NoError(t, err)
	assert.Equal(t, 0, parsed.Name)
	require.Equal(t, 2, len(parsed.Children))
	assert.Equal(t, 0.5, parsed.Children[0].Dist)
	assert.Equal(t, 1.5, parsed.Children[1].Dist)
	assert.Equal(t, EventNone, parsed.Children[0].Event)
}

func TestParseNewickErrors(t *testing.T) {
	cases := []string{
		"",
		"(1:0.5,2:1.5)0:0",     // missing semicolon
		"(1:0.5,2:1.5;",        // unbalanced parenthesis
		"(a:0.5)0:0;",          // non-integer label
		"(1:x)0:0;",            // bad branch length
		"1:0[&&NHX:t=zz];",     // bad NHX value
		"1:0[&&NHX:t=1;",       // unterminated NHX
		"(1:0.5)0:0; trailing", // trailing input
	}
	for _, s := range cases {
		_, err := ParseNewick(s)
		assert.Error(t, err, "input %q", s)
	}
}

// assertTreesEqual compares two trees node by node in preorder.
func assertTreesEqual(t *testing.T, want, got *TreeNode) {
	t.Helper()
	wantNodes := want.Nodes()
	gotNodes := got.Nodes()
	require.Equal(t, len(wantNodes), len(gotNodes))
	for i := range wantNodes {
		w, g := wantNodes[i], gotNodes[i]
		assert.Equal(t, w.Name, g.Name)
		assert.Equal(t, w.T, g.T)
		assert.Equal(t, w.Dist, g.Dist)
		assert.Equal(t, w.X, g.X)
		assert.Equal(t, w.Event, g.Event)
		assert.Equal(t, w.NMutations, g.NMutations)
		assert.Equal(t, len(w.Children), len(g.Children))
	}
}
