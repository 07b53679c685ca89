package cobweb

import (
	"encoding/json"
	"fmt"
)

// nodeExport is the shape a subtree marshals to (§6, §11 output_json): a
// name, its instance count, an attribute-count breakdown, and its children.
type nodeExport struct {
	Name     string                    `json:"name"`
	Size     int                       `json:"size"`
	Counts   map[string]map[string]int `json:"counts,omitempty"`
	Children []*nodeExport             `json:"children,omitempty"`
}

func (n *Node) export() *nodeExport {
	e := &nodeExport{
		Name: fmt.Sprintf("concept%d", n.id),
		Size: n.count,
	}

	for _, attr := range n.attrs(false) {
		bucket := n.avCounts[attr]
		if e.Counts == nil {
			e.Counts = make(map[string]map[string]int)
		}
		switch {
		case attr == CtxAttr:
			e.Counts[attr] = map[string]int{"distinct_contexts": len(bucket.context)}
		case bucket.numeric != nil:
			e.Counts[attr] = map[string]int{"n": bucket.numeric.Num()}
		default:
			e.Counts[attr] = bucket.nominal
		}
	}

	for _, c := range n.children {
		e.Children = append(e.Children, c.export())
	}
	return e
}

// OutputJSON renders the subtree rooted at n as indented JSON, the format
// the original's browser-based tree viewer consumes (§11).
func (n *Node) OutputJSON() ([]byte, error) {
	return json.MarshalIndent(n.export(), "", "  ")
}
