package cobweb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAccumulatorUpdate(t *testing.T) {
	a := NewAccumulator()
	for _, v := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		a.Update(v)
	}
	require.Equal(t, 8, a.Num())
	require.InDelta(t, 5.0, a.UnbiasedMean(), 1e-9)
	require.InDelta(t, 32.0/7.0, a.UnbiasedVariance(), 1e-6)
}

func TestAccumulatorEmpty(t *testing.T) {
	a := NewAccumulator()
	require.Equal(t, 0, a.Num())
	require.Equal(t, 0.0, a.UnbiasedVariance())
	require.Equal(t, 0.0, a.UnbiasedStd())
}

func TestAccumulatorCombine(t *testing.T) {
	a := NewAccumulator()
	b := NewAccumulator()
	for _, v := range []float64{1, 2, 3} {
		a.Update(v)
	}
	for _, v := range []float64{4, 5, 6} {
		b.Update(v)
	}
	a.Combine(b)
	require.Equal(t, 6, a.Num())
	require.InDelta(t, 3.5, a.UnbiasedMean(), 1e-9)
}

func TestAccumulatorCombineIntoEmpty(t *testing.T) {
	a := NewAccumulator()
	b := NewAccumulator()
	b.Update(10)
	b.Update(20)

	a.Combine(b)
	require.Equal(t, b.Num(), a.Num())
	require.InDelta(t, b.UnbiasedMean(), a.UnbiasedMean(), 1e-9)
}

func TestAccumulatorCloneIsIndependent(t *testing.T) {
	a := NewAccumulator()
	a.Update(1)
	cp := a.Clone()
	cp.Update(100)

	require.Equal(t, 1, a.Num())
	require.Equal(t, 2, cp.Num())
}

func TestAccumulatorScaledUnbiasedStd(t *testing.T) {
	a := NewAccumulator()
	a.Update(1)
	a.Update(3)

	require.InDelta(t, a.UnbiasedStd(), a.ScaledUnbiasedStd(1), 1e-9)
	require.InDelta(t, a.UnbiasedStd()/2, a.ScaledUnbiasedStd(2), 1e-9)
	require.InDelta(t, a.UnbiasedStd(), a.ScaledUnbiasedStd(0), 1e-9)
}
