package cobweb

import "math"

// Accumulator is the continuous-value accumulator substrate (§2 item 1):
// an online mean/variance estimator for a single numeric attribute, updated
// via Welford's method so that neither the running mean nor the running
// variance ever requires replaying the full value history.
//
// This is the one piece of the module built directly on the standard
// library rather than a pack dependency (see SPEC_FULL.md §10): the
// retrieval pack carries no statistics/numeric library to ground it on,
// and the accumulator's contract (§2, §4.3) is fixed by the spec as a
// provided substrate, not something to redesign.
type Accumulator struct {
	num  int
	mean float64
	m2   float64 // sum of squared deviations from the running mean
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Update folds a single observation into the accumulator.
func (a *Accumulator) Update(x float64) {
	a.num++
	delta := x - a.mean
	a.mean += delta / float64(a.num)
	a.m2 += delta * (x - a.mean)
}

// Combine folds another accumulator's observations into a, as if every
// value it saw had been passed to Update individually. Used by
// update_counts_from_node (§4.1) when merging sibling/child counts.
func (a *Accumulator) Combine(other *Accumulator) {
	if other == nil || other.num == 0 {
		return
	}
	if a.num == 0 {
		a.num, a.mean, a.m2 = other.num, other.mean, other.m2
		return
	}
	n1, n2 := float64(a.num), float64(other.num)
	delta := other.mean - a.mean
	total := n1 + n2
	a.mean += delta * n2 / total
	a.m2 += other.m2 + delta*delta*n1*n2/total
	a.num += other.num
}

// Clone returns an independent copy, used whenever a hypothetical node
// needs to probe "what if this instance were added" without mutating the
// live tree (§4.3's insert-CU computations).
func (a *Accumulator) Clone() *Accumulator {
	if a == nil {
		return NewAccumulator()
	}
	cp := *a
	return &cp
}

// Num is the number of values folded into the accumulator.
func (a *Accumulator) Num() int { return a.num }

// UnbiasedMean is the running mean.
func (a *Accumulator) UnbiasedMean() float64 { return a.mean }

// UnbiasedVariance is the sample variance (Bessel-corrected); zero until at
// least two values have been seen.
func (a *Accumulator) UnbiasedVariance() float64 {
	if a.num < 2 {
		return 0
	}
	return a.m2 / float64(a.num-1)
}

// UnbiasedStd is the sample standard deviation.
func (a *Accumulator) UnbiasedStd() float64 {
	return math.Sqrt(a.UnbiasedVariance())
}

// ScaledUnbiasedStd returns the standard deviation divided by scale, the
// accessor category-utility scales numeric attributes by (§2 item 1,
// §6 "scaling"). A non-positive scale disables scaling and returns the raw
// standard deviation.
func (a *Accumulator) ScaledUnbiasedStd(scale float64) float64 {
	std := a.UnbiasedStd()
	if scale <= 0 {
		return std
	}
	return std / scale
}
