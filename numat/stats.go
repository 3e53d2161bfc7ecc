package numat

import (
	"fmt"

	"github.com/milosgajdos/go-smcfilter/pferrors"
	"gonum.org/v1/gonum/floats"
)

// RowSums returns a slice containing the sum of each row of an F64 matrix.
// Adapted from matrix.RowSums in the teacher repo.
func RowSums(m *Matrix) []float64 {
	sums := make([]float64, m.h)
	for r := 0; r < m.h; r++ {
		sums[r] = floats.Sum(m.data[r*m.w : (r+1)*m.w])
	}
	return sums
}

// ColSums returns a slice containing the sum of each column of an F64
// matrix. Adapted from matrix.ColSums.
func ColSums(m *Matrix) []float64 {
	sums := make([]float64, m.w)
	for r := 0; r < m.h; r++ {
		for c := 0; c < m.w; c++ {
			sums[c] += m.data[r*m.w+c]
		}
	}
	return sums
}

// ColMeans returns the mean of each column. Adapted from matrix.ColsMean,
// generalized from a fixed "rows"/"cols" dimension string to a dedicated
// function per the dimension the particle filter actually needs (columns
// of particles).
func ColMeans(m *Matrix) []float64 {
	means := ColSums(m)
	floats.Scale(1/float64(m.h), means)
	return means
}

// WeightedColMean returns the weighted mean across columns of m, weighted
// by w (len(w) == number of columns). This is the operation
// pf.Filter.EstimateStates uses to collapse particlesPredicted into
// Estimate[:, i].
func WeightedColMean(m *Matrix, w []float64) ([]float64, error) {
	if len(w) != m.w {
		return nil, fmt.Errorf("weight count %d does not match column count %d: %w", len(w), m.w, pferrors.ErrShapeMismatch)
	}
	out := make([]float64, m.h)
	for r := 0; r < m.h; r++ {
		var acc float64
		for c := 0; c < m.w; c++ {
			acc += w[c] * m.data[r*m.w+c]
		}
		out[r] = acc
	}
	return out, nil
}

// ColCov computes the sample covariance matrix of the columns of m (each
// column treated as one observation of an m.h-dimensional vector).
// Adapted from matrix.Cov (dim="cols") in the teacher repo.
func ColCov(m *Matrix) (*Matrix, error) {
	if m.w < 2 {
		return nil, fmt.Errorf("need at least 2 columns to estimate covariance, got %d: %w", m.w, pferrors.ErrParameterOutOfDomain)
	}
	mean := RowSums(m)
	floats.Scale(1/float64(m.w), mean)

	centered := make([]float64, len(m.data))
	for r := 0; r < m.h; r++ {
		for c := 0; c < m.w; c++ {
			centered[r*m.w+c] = m.data[r*m.w+c] - mean[r]
		}
	}

	cov := make([]float64, m.h*m.h)
	n := float64(m.w - 1)
	for i := 0; i < m.h; i++ {
		for j := 0; j < m.h; j++ {
			var acc float64
			for c := 0; c < m.w; c++ {
				acc += centered[i*m.w+c] * centered[j*m.w+c]
			}
			cov[i*m.h+j] = acc / n
		}
	}

	return NewFromRowMajor(F64, m.h, m.h, cov)
}
