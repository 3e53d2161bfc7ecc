// Package paramest implements the three joint state-parameter estimation
// strategies spec.md §4.3 describes on top of pf.Filter: the auxiliary
// particle filter, the measurement-comparison artificial-evolution filter,
// and SPSA. The auxiliary and measurement-comparison estimators pair each
// particle with its own parameter vector, evolve that augmented particle
// set, and write the resulting state trajectory back into the same arrays
// (*pf.Filter).EstimateStates itself populates. SPSA instead scores whole
// filter runs under fixed parameter vectors and leaves f's arrays untouched.
package paramest

import (
	"github.com/milosgajdos/go-smcfilter/numat"
	"github.com/milosgajdos/go-smcfilter/system"
)

// initialParams returns a copy of the system's stored parameter vector,
// flattened regardless of whether it was stored as a row or column vector.
func initialParams(sys system.System) []float64 {
	p := sys.Parameters()
	if p == nil {
		return nil
	}
	raw := p.RawRowMajor()
	out := make([]float64, len(raw))
	copy(out, raw)
	return out
}

// paramJitterVariance returns a small proportional spread around a
// parameter's current value, used to seed and artificially evolve
// parameter particles when no explicit prior spread is given.
func paramJitterVariance(v float64) float64 {
	return 0.01*v*v + 1e-6
}

// columnValues returns column c of m as a plain slice.
func columnValues(m *numat.Matrix, c int) ([]float64, error) {
	col, err := m.Col(c)
	if err != nil {
		return nil, err
	}
	return col.RawRowMajor(), nil
}

// weightedRowVariance returns the weighted sample variance of row's values
// across m's N columns, weighted by w (a 1xN row vector).
func weightedRowVariance(m, w *numat.Matrix, row int) (float64, error) {
	n, _ := m.Dims()
	mean := 0.0
	vals := make([]float64, n)
	weights := make([]float64, n)
	for k := 1; k <= n; k++ {
		v, err := m.At(row, k)
		if err != nil {
			return 0, err
		}
		wv, err := w.At(1, k)
		if err != nil {
			return 0, err
		}
		vals[k-1] = v
		weights[k-1] = wv
		mean += wv * v
	}
	variance := 0.0
	for k, v := range vals {
		d := v - mean
		variance += weights[k] * d * d
	}
	return variance, nil
}
