package paramest

import (
	"fmt"
	"math"

	"github.com/milosgajdos/go-smcfilter/dist"
	"github.com/milosgajdos/go-smcfilter/numat"
	"github.com/milosgajdos/go-smcfilter/pf"
	"github.com/milosgajdos/go-smcfilter/pferrors"
	"github.com/milosgajdos/go-smcfilter/system"
	"gonum.org/v1/gonum/mat"
)

// MeasurementComparison runs the measurement-comparison joint
// state-parameter recursion (spec.md §4.3): parameters evolve as an
// artificial random walk, particle weights are multiplied by the direct
// observation likelihood p(y_i | x_i, params), and standard resampling
// follows. It writes each step's resampled particles (with uniform
// weights), pre-resample predictions and estimate into f via SetStepResult
// and returns the P x T parameter-estimate trajectory. The estimate column
// is the mean of the resampled particles, not the pre-resample weighted
// mean (*pf.Filter).EstimateStates records.
func MeasurementComparison(f *pf.Filter) (*numat.Matrix, error) {
	sys := f.System()
	n := f.N()
	t := f.Horizon()
	dimX, _, dimY, _, _ := sys.Dims()
	bank := sys.Bank()

	theta0 := initialParams(sys)
	p := len(theta0)
	if p == 0 {
		return nil, fmt.Errorf("system has no estimable parameters: %w", pferrors.ErrParameterOutOfDomain)
	}

	jitterSlot := bank.SuggestEmptySlot()
	if jitterSlot < 0 {
		return nil, fmt.Errorf("no free RNG slot for parameter evolution: %w", pferrors.ErrSlotUnavailable)
	}
	if err := bank.OccupySlot(jitterSlot); err != nil {
		return nil, err
	}
	defer bank.FreeSlot(jitterSlot)

	thetaEst, err := numat.New(numat.F64, t, p)
	if err != nil {
		return nil, err
	}
	theta, err := numat.New(numat.F64, n, p)
	if err != nil {
		return nil, err
	}
	for k := 1; k <= n; k++ {
		for j := 1; j <= p; j++ {
			cov := mat.NewSymDense(1, []float64{paramJitterVariance(theta0[j-1])})
			nrm, err := dist.NewNormal(bank, jitterSlot, []float64{theta0[j-1]}, cov)
			if err != nil {
				return nil, err
			}
			if err := theta.Set(j, k, nrm.Sample()[0]); err != nil {
				return nil, err
			}
		}
	}
	for j := 1; j <= p; j++ {
		if err := thetaEst.Set(j, 1, theta0[j-1]); err != nil {
			return nil, err
		}
	}

	for i := 2; i <= t; i++ {
		xPrev, err := f.Particles(i - 1)
		if err != nil {
			return nil, err
		}
		wPrev, err := f.Weights(i - 1)
		if err != nil {
			return nil, err
		}
		yMeasured, err := system.ColValues(sys.Y(), i)
		if err != nil {
			return nil, err
		}

		xPred, err := numat.New(numat.F64, n, dimX)
		if err != nil {
			return nil, err
		}
		yPred, err := numat.New(numat.F64, n, dimY)
		if err != nil {
			return nil, err
		}
		thetaPred, err := numat.New(numat.F64, n, p)
		if err != nil {
			return nil, err
		}
		wNext, err := numat.New(numat.F64, n, 1)
		if err != nil {
			return nil, err
		}

		total := 0.0
		for k := 1; k <= n; k++ {
			xk, err := columnValues(xPrev, k)
			if err != nil {
				return nil, err
			}
			thetak, err := columnValues(theta, k)
			if err != nil {
				return nil, err
			}

			thetaHat := make([]float64, p)
			for j := 1; j <= p; j++ {
				v, err := weightedRowVariance(theta, wPrev, j)
				if err != nil {
					return nil, err
				}
				cov := mat.NewSymDense(1, []float64{math.Max(v, 1e-9)})
				nrm, err := dist.NewNormal(bank, jitterSlot, []float64{thetak[j-1]}, cov)
				if err != nil {
					return nil, err
				}
				thetaHat[j-1] = nrm.Sample()[0]
			}

			xHat, err := sys.NextStateWithParams(i, xk, nil, thetaHat)
			if err != nil {
				return nil, err
			}
			yHat, err := sys.NoiseFreeMeasurement(i, xHat)
			if err != nil {
				return nil, err
			}
			lp, err := sys.MeasurementLogDensity(yMeasured, yHat, i, thetaHat)
			if err != nil {
				return nil, err
			}
			wv, err := wPrev.At(1, k)
			if err != nil {
				return nil, err
			}
			w := wv * math.Exp(lp)
			if !isFiniteNonNeg(w) {
				w = 0
			}

			for r := 1; r <= dimX; r++ {
				if err := xPred.Set(r, k, xHat[r-1]); err != nil {
					return nil, err
				}
			}
			for r := 1; r <= dimY; r++ {
				if err := yPred.Set(r, k, yHat[r-1]); err != nil {
					return nil, err
				}
			}
			for j := 1; j <= p; j++ {
				if err := thetaPred.Set(j, k, thetaHat[j-1]); err != nil {
					return nil, err
				}
			}
			if err := wNext.Set(1, k, w); err != nil {
				return nil, err
			}
			total += w
		}

		if total == 0 || math.IsNaN(total) || math.IsInf(total, 0) {
			return nil, fmt.Errorf("measurement-comparison weights collapsed at step %d: %w", i, pferrors.ErrDegenerateWeights)
		}
		wNext.ScaleInPlace(1 / total)

		indices, err := pf.Resample(f.Scheme, wNext, bank)
		if err != nil {
			return nil, err
		}
		xResampled, err := numat.New(numat.F64, n, dimX)
		if err != nil {
			return nil, err
		}
		thetaResampled, err := numat.New(numat.F64, n, p)
		if err != nil {
			return nil, err
		}
		wResampled, err := numat.New(numat.F64, n, 1)
		if err != nil {
			return nil, err
		}
		for k, a := range indices {
			xc, err := xPred.Col(a)
			if err != nil {
				return nil, err
			}
			if err := xResampled.SetCol(k+1, xc); err != nil {
				return nil, err
			}
			tc, err := thetaPred.Col(a)
			if err != nil {
				return nil, err
			}
			if err := thetaResampled.SetCol(k+1, tc); err != nil {
				return nil, err
			}
			if err := wResampled.Set(1, k+1, 1/float64(n)); err != nil {
				return nil, err
			}
		}

		if err := f.SetStepResult(i, xResampled, xPred, yPred, wResampled); err != nil {
			return nil, err
		}
		theta = thetaResampled

		for j := 1; j <= p; j++ {
			estJ := 0.0
			for k := 1; k <= n; k++ {
				tv, _ := theta.At(j, k)
				estJ += tv / float64(n)
			}
			if err := thetaEst.Set(j, i, estJ); err != nil {
				return nil, err
			}
		}
	}

	return thetaEst, nil
}
