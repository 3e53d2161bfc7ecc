package pf

import (
	"fmt"
	"math"

	"github.com/milosgajdos/go-smcfilter/internal/logging"
	"github.com/milosgajdos/go-smcfilter/numat"
	"github.com/milosgajdos/go-smcfilter/pferrors"
	"github.com/milosgajdos/go-smcfilter/system"
)

// EstimateStates runs the particle filter's full recursion for i = 2..T:
// predict, weight (normalize or fail with ErrDegenerateWeights), estimate,
// resample (spec.md §4.2).
func (f *Filter) EstimateStates() error {
	if err := f.requireInitialized(); err != nil {
		return err
	}
	t := f.Horizon()
	for i := 2; i <= t; i++ {
		if err := f.step(i); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}

func (f *Filter) step(i int) error {
	dimX, _, dimY, _, _ := f.sys.Dims()

	xPrev := f.particles[i-1]
	wPrev := f.weights[i-1]

	xPred, err := numat.New(numat.F64, f.n, dimX)
	if err != nil {
		return err
	}
	yPred, err := numat.New(numat.F64, f.n, dimY)
	if err != nil {
		return err
	}

	// 1. Predict.
	for k := 1; k <= f.n; k++ {
		xk, err := xPrev.Col(k)
		if err != nil {
			return err
		}
		xNext, err := f.sys.NextState(i, xk.RawRowMajor(), nil)
		if err != nil {
			return fmt.Errorf("predicting particle %d: %w", k, err)
		}
		for r := 1; r <= dimX; r++ {
			if err := xPred.Set(r, k, xNext[r-1]); err != nil {
				return err
			}
		}

		yHat, err := f.sys.NoiseFreeMeasurement(i, xNext)
		if err != nil {
			return fmt.Errorf("predicting measurement for particle %d: %w", k, err)
		}
		for r := 1; r <= dimY; r++ {
			if err := yPred.Set(r, k, yHat[r-1]); err != nil {
				return err
			}
		}
	}

	// 2. Weight.
	wNext, err := numat.New(numat.F64, f.n, 1)
	if err != nil {
		return err
	}
	total := 0.0
	for k := 1; k <= f.n; k++ {
		yHatCol, err := yPred.Col(k)
		if err != nil {
			return err
		}
		weight, err := weightAtColumn(f, i, yHatCol.RawRowMajor(), wPrev, k)
		if err != nil {
			return err
		}
		if err := wNext.Set(1, k, weight); err != nil {
			return err
		}
		total += weight
	}
	if total == 0 || !isFiniteAndSane(total) {
		logging.Warnf("particle weights degenerated at step %d (total=%v)", i, total)
		return fmt.Errorf("importance weights collapsed to zero/non-finite at step %d: %w", i, pferrors.ErrDegenerateWeights)
	}
	wNext.ScaleInPlace(1 / total)

	// 3. Estimate.
	for r := 1; r <= dimX; r++ {
		if err := f.estimate.Set(r, i, weightedMeanComponent(xPred, wNext, r)); err != nil {
			return err
		}
	}

	f.particlesPredicted[i] = xPred
	f.measurementsPredicted[i] = yPred

	// 4. Resample.
	indices, err := resample(f.Scheme, wNext, f.sys.Bank())
	if err != nil {
		return err
	}
	xResampled, err := numat.New(numat.F64, f.n, dimX)
	if err != nil {
		return err
	}
	wResampled, err := numat.New(numat.F64, f.n, 1)
	if err != nil {
		return err
	}
	for k, a := range indices {
		col, err := xPred.Col(a)
		if err != nil {
			return err
		}
		if err := xResampled.SetCol(k+1, col); err != nil {
			return err
		}
		if err := wResampled.Set(1, k+1, 1/float64(f.n)); err != nil {
			return err
		}
	}
	f.particles[i] = xResampled
	f.weights[i] = wResampled

	return nil
}

// weightAtColumn computes w_{i-1}^{(k)} * p(y_i | xHat_i^{(k)}) using the
// system's measurement log-density evaluated at the recorded observation.
func weightAtColumn(f *Filter, i int, yHat []float64, wPrev *numat.Matrix, k int) (float64, error) {
	wv, err := wPrev.At(1, k)
	if err != nil {
		return 0, err
	}
	lik, err := system.ImportanceWeightAtTimeIndex(f.sys, i, yHat)
	if err != nil {
		return 0, err
	}
	w := wv * lik
	if !isFiniteAndSane(w) {
		return 0, nil
	}
	return math.Max(w, 0), nil
}
