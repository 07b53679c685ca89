package cobweb

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// dumper renders a concept subtree as tree art, the same indentation scheme
// the teacher uses for its ART dumps (§11 pretty_print), adapted from node
// dispatch to the single Node type this module uses.
type dumper struct {
	buf         *bytes.Buffer
	nChildStack []int
}

func (d *dumper) padding() (string, string) {
	depth := len(d.nChildStack)
	if depth == 0 {
		return "───", "   "
	}
	pad := "    " + strings.Repeat("│   ", depth-1)

	childrenLeft := d.nChildStack[len(d.nChildStack)-1]
	head, finalPad := "├──", "│   "
	if childrenLeft == 1 {
		head, finalPad = "└──", "    "
	}
	return pad + head, pad + finalPad
}

func (d *dumper) pushNChildren(n int) { d.nChildStack = append(d.nChildStack, n) }

func (d *dumper) decNChildren() {
	if len(d.nChildStack) > 0 {
		d.nChildStack[len(d.nChildStack)-1]--
	}
}

func (d *dumper) popNChildren() {
	if depth := len(d.nChildStack); depth > 0 {
		d.nChildStack = d.nChildStack[:depth-1]
	}
}

func (d *dumper) dumpNode(n *Node) {
	headerPad, pad := d.padding()

	fmt.Fprintf(d.buf, "%s concept%d (count=%d)\n", headerPad, n.id, n.count)

	attrs := n.attrs(true)
	sort.Strings(attrs)
	for _, attr := range attrs {
		bucket := n.avCounts[attr]
		switch {
		case attr == CtxAttr:
			fmt.Fprintf(d.buf, "%s %s: %d distinct context handles (size %d)\n", pad, attr, len(bucket.context), n.contextSize)
		case bucket.numeric != nil:
			fmt.Fprintf(d.buf, "%s %s: mean=%.4f std=%.4f n=%d\n", pad, attr, bucket.numeric.UnbiasedMean(), bucket.numeric.UnbiasedStd(), bucket.numeric.Num())
		default:
			fmt.Fprintf(d.buf, "%s %s: %v\n", pad, attr, bucket.nominal)
		}
	}

	d.pushNChildren(len(n.children))
	for _, c := range n.children {
		d.dumpNode(c)
		d.decNChildren()
	}
	d.popNChildren()
}

// PrettyPrint renders the subtree rooted at n as an indented, human-readable
// tree (§11 pretty_print).
func (n *Node) PrettyPrint() string {
	d := &dumper{buf: bytes.NewBufferString("")}
	d.dumpNode(n)
	return d.buf.String()
}
