package cobweb

import "sort"

// Predict returns the most likely value of attr at n: the mode for a
// nominal attribute, or the mean for a numeric attribute (§4.1 predict).
// Predicting the contextual attribute itself is rejected, since there is
// no single "most likely" path through the tree to return (§6).
func (n *Node) Predict(attr string) (any, error) {
	return n.tree.predict(n, attr)
}

func (t *Tree) predict(n *Node, attr string) (any, error) {
	if attr == CtxAttr {
		return nil, ErrContextPrediction
	}
	bucket := n.avCounts[attr]
	if bucket == nil {
		return nil, nil
	}
	if bucket.numeric != nil {
		return bucket.numeric.UnbiasedMean(), nil
	}

	var best string
	bestCount := -1
	for v, c := range bucket.nominal {
		if c > bestCount || (c == bestCount && v < best) {
			best, bestCount = v, c
		}
	}
	return best, nil
}

// WeightedValue pairs a value of an attribute with its relative frequency
// at a node.
type WeightedValue struct {
	Value  any
	Weight float64
}

// WeightedValues returns every nominal value recorded for attr at n,
// weighted by its share of n.count, or a single numeric mean weighted 1 for
// a numeric attribute (§4.1 get_weighted_values). Values are returned in a
// deterministic order.
func (n *Node) WeightedValues(attr string) ([]WeightedValue, error) {
	if attr == CtxAttr {
		return nil, ErrContextPrediction
	}
	bucket := n.avCounts[attr]
	if bucket == nil || n.count == 0 {
		return nil, nil
	}
	if bucket.numeric != nil {
		return []WeightedValue{{Value: bucket.numeric.UnbiasedMean(), Weight: 1}}, nil
	}

	out := make([]WeightedValue, 0, len(bucket.nominal))
	for v, c := range bucket.nominal {
		out = append(out, WeightedValue{Value: v, Weight: float64(c) / float64(n.count)})
	}
	sort.Slice(out, func(i, j int) bool {
		vi, _ := out[i].Value.(string)
		vj, _ := out[j].Value.(string)
		return vi < vj
	})
	return out, nil
}
