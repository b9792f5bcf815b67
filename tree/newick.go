package tree

import (
	"fmt"
	"strconv"
	"strings"
)

// Newick serializes the subtree in Newick format with NHX annotations
// carrying the node time, state, event, and collapsed mutation count. The
// root annotation additionally records the sampled and pruned flags so a
// parsed tree resumes in the same lifecycle stage.
func (n *TreeNode) Newick() string {
	var b strings.Builder
	n.writeNewick(&b, true)
	b.WriteByte(';')
	return b.String()
}

func (n *TreeNode) writeNewick(b *strings.Builder, root bool) {
	if len(n.Children) > 0 {
		b.WriteByte('(')
		for i, c := range n.Children {
			if i > 0 {
				b.WriteByte(',')
			}
			c.writeNewick(b, false)
		}
		b.WriteByte(')')
	}
	b.WriteString(strconv.Itoa(n.Name))
	b.WriteByte(':')
	b.WriteString(formatFloat(n.Dist))
	b.WriteString("[&&NHX:t=")
	b.WriteString(formatFloat(n.T))
	b.WriteString(":x=")
	b.WriteString(formatFloat(n.X))
	if n.Event != EventNone {
		b.WriteString(":event=")
		b.WriteString(string(n.Event))
	}
	if n.NMutations > 0 {
		b.WriteString(":mutations=")
		b.WriteString(strconv.Itoa(n.NMutations))
	}
	if root {
		if n.sampled {
			b.WriteString(":sampled=1")
		}
		if n.pruned {
			b.WriteString(":pruned=1")
		}
	}
	b.WriteByte(']')
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ParseNewick parses a tree serialized by Newick. Unannotated plain Newick
// is accepted; missing NHX fields default to zero values.
func ParseNewick(s string) (*TreeNode, error) {
	p := &newickParser{s: s}
	root, err := p.parseNode()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.consume(';') {
		return nil, p.errorf("expected ';'")
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return nil, p.errorf("trailing input")
	}
	if root.sampled || root.pruned {
		sampled, pruned := root.sampled, root.pruned
		root.Preorder(func(node *TreeNode) bool {
			node.sampled = sampled
			node.pruned = pruned
			return true
		})
	}
	return root, nil
}

type newickParser struct {
	s   string
	pos int
}

func (p *newickParser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("tree: newick parse error at offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *newickParser) skipSpace() {
	for p.pos < len(p.s) {
		switch p.s[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *newickParser) peek() byte {
	if p.pos < len(p.s) {
		return p.s[p.pos]
	}
	return 0
}

func (p *newickParser) consume(c byte) bool {
	if p.peek() == c {
		p.pos++
		return true
	}
	return false
}

func (p *newickParser) parseNode() (*TreeNode, error) {
	p.skipSpace()
	node := &TreeNode{}
	if p.consume('(') {
		for {
			child, err := p.parseNode()
			if err != nil {
				return nil, err
			}
			node.AddChild(child)
			p.skipSpace()
			if p.consume(',') {
				continue
			}
			break
		}
		if !p.consume(')') {
			return nil, p.errorf("expected ')'")
		}
	}
	p.skipSpace()
	if label := p.scanToken(); label != "" {
		name, err := strconv.Atoi(label)
		if err != nil {
			return nil, p.errorf("node label %q is not an integer", label)
		}
		node.Name = name
	}
	if p.consume(':') {
		tok := p.scanToken()
		dist, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, p.errorf("invalid branch length %q", tok)
		}
		node.Dist = dist
	}
	if p.peek() == '[' {
		if err := p.parseNHX(node); err != nil {
			return nil, err
		}
	}
	return node, nil
}

// scanToken reads up to the next structural character.
func (p *newickParser) scanToken() string {
	start := p.pos
	for p.pos < len(p.s) {
		switch p.s[p.pos] {
		case '(', ')', ',', ':', ';', '[', ']', ' ', '\t', '\n', '\r':
			return p.s[start:p.pos]
		}
		p.pos++
	}
	return p.s[start:p.pos]
}

func (p *newickParser) parseNHX(node *TreeNode) error {
	end := strings.IndexByte(p.s[p.pos:], ']')
	if end < 0 {
		return p.errorf("unterminated NHX annotation")
	}
	body := p.s[p.pos+1 : p.pos+end]
	p.pos += end + 1
	body = strings.TrimPrefix(body, "&&NHX")
	for _, field := range strings.Split(body, ":") {
		if field == "" {
			continue
		}
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return p.errorf("malformed NHX field %q", field)
		}
		switch key {
		case "t":
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return p.errorf("invalid NHX time %q", value)
			}
			node.T = v
		case "x":
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return p.errorf("invalid NHX state %q", value)
			}
			node.X = v
		case "event":
			node.Event = Event(value)
		case "mutations":
			v, err := strconv.Atoi(value)
			if err != nil {
				return p.errorf("invalid NHX mutation count %q", value)
			}
			node.NMutations = v
		case "sampled":
			node.sampled = value == "1"
		case "pruned":
			node.pruned = value == "1"
		default:
			// Foreign NHX keys are ignored.
		}
	}
	return nil
}
