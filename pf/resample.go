package pf

import (
	"fmt"
	"math"
	"sort"

	"github.com/milosgajdos/go-smcfilter/numat"
	"github.com/milosgajdos/go-smcfilter/pferrors"
	"github.com/milosgajdos/go-smcfilter/rngbank"
	"gonum.org/v1/gonum/floats"
)

// resample dispatches to the filter's configured scheme, returning 1-based
// particle indices a_1..a_N such that particle k should be replaced by
// particlesPredicted[a_k].
func resample(scheme Scheme, w *numat.Matrix, bank *rngbank.Bank) ([]int, error) {
	switch scheme {
	case Multinomial:
		return multinomialResample(w, bank, RNGIDForResampler)
	case Systematic:
		return systematicResample(w, bank)
	case Residual:
		return residualResample(w, bank)
	default:
		return nil, fmt.Errorf("unknown resampling scheme %v: %w", scheme, pferrors.ErrParameterOutOfDomain)
	}
}

func weightVector(w *numat.Matrix) ([]float64, error) {
	n, h := w.Dims()
	if h != 1 {
		return nil, fmt.Errorf("weights must be a 1 x N row vector, got height %d: %w", h, pferrors.ErrShapeMismatch)
	}
	out := make([]float64, n)
	for k := 1; k <= n; k++ {
		v, err := w.At(1, k)
		if err != nil {
			return nil, err
		}
		out[k-1] = v
	}
	return out, nil
}

func cdfOf(p []float64) []float64 {
	cdf := make([]float64, len(p))
	floats.CumSum(cdf, p)
	return cdf
}

// searchCDF returns the 0-based index of the smallest entry of cdf that is
// >= u (spec.md §4.2's multinomial/systematic bucket rule), built on
// rand.RouletteDrawN's sort.Search(cdf[i] > val) pattern generalized to a
// ">=" boundary so a particle with weight exactly matching u is still
// selected.
func searchCDF(cdf []float64, u float64) int {
	n := len(cdf)
	i := sort.Search(n, func(i int) bool { return cdf[i] >= u })
	if i == n {
		i = n - 1
	}
	return i
}

// multinomialResample draws N i.i.d. uniforms from the given slot and maps
// each to its CDF bucket, per spec.md §4.2's multinomial scheme.
func multinomialResample(w *numat.Matrix, bank *rngbank.Bank, slot int) ([]int, error) {
	p, err := weightVector(w)
	if err != nil {
		return nil, err
	}
	cdf := cdfOf(p)
	total := cdf[len(cdf)-1]

	n := len(p)
	out := make([]int, n)
	for k := 0; k < n; k++ {
		u, err := bank.Float64(slot)
		if err != nil {
			return nil, err
		}
		out[k] = searchCDF(cdf, u*total) + 1
	}
	return out, nil
}

// systematicResample draws a single uniform offset in [0, 1/N) and takes N
// evenly spaced samples from it, guaranteeing at least one copy of every
// particle with weight >= 1/N (spec.md §4.2).
func systematicResample(w *numat.Matrix, bank *rngbank.Bank) ([]int, error) {
	p, err := weightVector(w)
	if err != nil {
		return nil, err
	}
	cdf := cdfOf(p)
	total := cdf[len(cdf)-1]

	n := len(p)
	u0, err := bank.Float64(RNGIDForResampler)
	if err != nil {
		return nil, err
	}
	u0 *= total / float64(n)

	out := make([]int, n)
	for k := 0; k < n; k++ {
		u := u0 + float64(k)*total/float64(n)
		out[k] = searchCDF(cdf, u) + 1
	}
	return out, nil
}

// residualResample deterministically assigns floor(N*w_j) copies of
// particle j, then fills the remaining R = N - sum(floor(N*w)) slots via a
// multinomial draw over the residual weights (N*w - floor(N*w))/R, per
// spec.md §4.2. The remainder draw uses RNGIDForBernoulli, the reserved
// slot for resampling's auxiliary tail draws.
func residualResample(w *numat.Matrix, bank *rngbank.Bank) ([]int, error) {
	p, err := weightVector(w)
	if err != nil {
		return nil, err
	}
	n := len(p)

	floors := make([]int, n)
	residual := make([]float64, n)
	assigned := 0
	for j, pj := range p {
		f := math.Floor(float64(n) * pj)
		floors[j] = int(f)
		residual[j] = float64(n)*pj - f
		assigned += floors[j]
	}

	out := make([]int, 0, n)
	for j, count := range floors {
		for c := 0; c < count; c++ {
			out = append(out, j+1)
		}
	}

	r := n - assigned
	if r > 0 {
		sum := floats.Sum(residual)
		if sum <= 0 || !isFiniteAndSane(sum) {
			// degenerate remainder: distribute evenly rather than divide by
			// zero.
			for j := range residual {
				residual[j] = 1
			}
			sum = float64(n)
		}
		residualMat, err := numat.NewFromRowMajor(numat.F64, n, 1, residual)
		if err != nil {
			return nil, err
		}
		tailIdx, err := multinomialResample(residualMat, bank, RNGIDForBernoulli)
		if err != nil {
			return nil, err
		}
		out = append(out, tailIdx[:r]...)
	}
	return out, nil
}
