package tree

import (
	"fmt"
	"strings"
)

// Ascii renders the subtree as indented text for terminal inspection, one
// node per line with its event, time, state, and collapsed mutation count.
func (n *TreeNode) Ascii() string {
	var b strings.Builder
	n.renderAscii(&b, "", "")
	return b.String()
}

func (n *TreeNode) renderAscii(b *strings.Builder, prefix, childPrefix string) {
	b.WriteString(prefix)
	fmt.Fprintf(b, "%d", n.Name)
	if n.Event != EventNone {
		fmt.Fprintf(b, " [%s]", n.Event)
	}
	fmt.Fprintf(b, " t=%.4g x=%.4g", n.T, n.X)
	if n.Dist > 0 {
		fmt.Fprintf(b, " dist=%.4g", n.Dist)
	}
	if n.NMutations > 0 {
		fmt.Fprintf(b, " mutations=%d", n.NMutations)
	}
	b.WriteByte('\n')
	for i, c := range n.Children {
		if i == len(n.Children)-1 {
			c.renderAscii(b, childPrefix+"└─ ", childPrefix+"   ")
		} else {
			c.renderAscii(b, childPrefix+"├─ ", childPrefix+"│  ")
		}
	}
}
