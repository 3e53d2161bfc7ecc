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

// AuxiliaryPF runs the auxiliary particle filter's joint state-parameter
// recursion (spec.md §4.3) for i = 2..f.Horizon() and returns the P x T
// parameter-estimate trajectory. Each step's propagated particles, their
// normalized (non-uniform) weights, the predicted measurements and the
// weighted-mean estimate are written into f via SetStepResult; unlike
// (*pf.Filter).EstimateStates, the stored particles are not resampled after
// weighting.
//
// The system contract has no deterministic "noise-free transition", so
// mu_i^(k) (the auxiliary predictive mean) is approximated by one forward
// draw of the transition rather than its true conditional mean; this is a
// pragmatic stand-in, not an exact expectation.
func AuxiliaryPF(f *pf.Filter, windowSize int) (*numat.Matrix, error) {
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
	if windowSize < 1 {
		windowSize = 1
	}

	jitterSlot := bank.SuggestEmptySlot()
	if jitterSlot < 0 {
		return nil, fmt.Errorf("no free RNG slot for parameter jitter: %w", pferrors.ErrSlotUnavailable)
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

		// (i) auxiliary weights g_k = w_{i-1}^(k) * p(y_i | mu_i^(k)).
		muY := make([][]float64, n)
		g := make([]float64, n)
		for k := 1; k <= n; k++ {
			xk, err := columnValues(xPrev, k)
			if err != nil {
				return nil, err
			}
			thetak, err := columnValues(theta, k)
			if err != nil {
				return nil, err
			}
			muK, err := sys.NextStateWithParams(i, xk, nil, thetak)
			if err != nil {
				return nil, err
			}
			muYK, err := sys.NoiseFreeMeasurement(i, muK)
			if err != nil {
				return nil, err
			}
			lp, err := sys.MeasurementLogDensity(yMeasured, muYK, i, thetak)
			if err != nil {
				return nil, err
			}
			wv, err := wPrev.At(1, k)
			if err != nil {
				return nil, err
			}
			muY[k-1] = muYK
			g[k-1] = wv * math.Exp(lp)
		}

		gMat, err := numat.NewFromRowMajor(numat.F64, n, 1, g)
		if err != nil {
			return nil, err
		}

		// (ii) resample on the auxiliary weights.
		indices, err := pf.Resample(f.Scheme, gMat, bank)
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
		thetaNext, err := numat.New(numat.F64, n, p)
		if err != nil {
			return nil, err
		}
		wNext, err := numat.New(numat.F64, n, 1)
		if err != nil {
			return nil, err
		}

		shrink := 1.0 / float64(windowSize)
		total := 0.0
		for k, a := range indices {
			xa, err := columnValues(xPrev, a)
			if err != nil {
				return nil, err
			}
			thetaa, err := columnValues(theta, a)
			if err != nil {
				return nil, err
			}

			// (iii) propagate state and parameters with independent noise.
			xHat, err := sys.NextStateWithParams(i, xa, nil, thetaa)
			if err != nil {
				return nil, err
			}
			thetaHat := make([]float64, p)
			for j := 1; j <= p; j++ {
				v, err := weightedRowVariance(theta, wPrev, j)
				if err != nil {
					return nil, err
				}
				cov := mat.NewSymDense(1, []float64{shrink * math.Max(v, 1e-9)})
				nrm, err := dist.NewNormal(bank, jitterSlot, []float64{thetaa[j-1]}, cov)
				if err != nil {
					return nil, err
				}
				thetaHat[j-1] = nrm.Sample()[0]
			}

			yHat, err := sys.NoiseFreeMeasurement(i, xHat)
			if err != nil {
				return nil, err
			}

			// (iv) re-weight by p(y_i|xHat) / p(y_i|mu_{a_k}).
			lpNum, err := sys.MeasurementLogDensity(yMeasured, yHat, i, thetaHat)
			if err != nil {
				return nil, err
			}
			lpDen, err := sys.MeasurementLogDensity(yMeasured, muY[a-1], i, thetaa)
			if err != nil {
				return nil, err
			}
			wk := math.Exp(lpNum - lpDen)
			if !isFiniteNonNeg(wk) {
				wk = 0
			}

			for r := 1; r <= dimX; r++ {
				if err := xPred.Set(r, k+1, xHat[r-1]); err != nil {
					return nil, err
				}
			}
			for r := 1; r <= dimY; r++ {
				if err := yPred.Set(r, k+1, yHat[r-1]); err != nil {
					return nil, err
				}
			}
			for j := 1; j <= p; j++ {
				if err := thetaNext.Set(j, k+1, thetaHat[j-1]); err != nil {
					return nil, err
				}
			}
			if err := wNext.Set(1, k+1, wk); err != nil {
				return nil, err
			}
			total += wk
		}

		if total == 0 || math.IsNaN(total) || math.IsInf(total, 0) {
			return nil, fmt.Errorf("auxiliary particle filter weights collapsed at step %d: %w", i, pferrors.ErrDegenerateWeights)
		}
		wNext.ScaleInPlace(1 / total)

		if err := f.SetStepResult(i, xPred, xPred, yPred, wNext); err != nil {
			return nil, err
		}
		theta = thetaNext

		for j := 1; j <= p; j++ {
			estJ := 0.0
			for k := 1; k <= n; k++ {
				tv, _ := theta.At(j, k)
				wv, _ := wNext.At(1, k)
				estJ += wv * tv
			}
			if err := thetaEst.Set(j, i, estJ); err != nil {
				return nil, err
			}
		}
	}

	return thetaEst, nil
}

func isFiniteNonNeg(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
